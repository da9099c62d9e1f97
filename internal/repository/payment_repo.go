package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository only appends and reads; payment rows are never updated.
type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByReservation(ctx context.Context, tx *gorm.DB, reservationID uint) ([]models.Payment, error)
	FindByReservationIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Payment, error)
	List(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error)
	DeleteByReservationIDs(ctx context.Context, tx *gorm.DB, ids []uint) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByReservation(ctx context.Context, tx *gorm.DB, reservationID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := conn(ctx, r.db, tx).
		Where("reservation_id = ?", reservationID).
		Order("paid_at ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindByReservationIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var payments []models.Payment
	err := conn(ctx, r.db, tx).
		Where("reservation_id IN ?", ids).
		Order("reservation_id ASC, paid_at ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// List returns payments newest first. A non-empty userID restricts the result
// to that booker's reservations.
func (r *paymentRepository) List(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{}).Select("payments.*")
	if userID != "" {
		q = q.Joins("JOIN reservations ON reservations.id = payments.reservation_id").
			Where("reservations.user_id = ?", userID)
	}
	q = q.Order("payments.paid_at DESC, payments.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) DeleteByReservationIDs(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Where("reservation_id IN ?", ids).Delete(&models.Payment{}).Error
}
