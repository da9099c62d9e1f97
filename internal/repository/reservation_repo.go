package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationFilter narrows List. Zero values are ignored.
type ReservationFilter struct {
	UserID          string
	RoomID          uint
	BookingStatus   models.BookingStatus
	PaymentStatuses []models.PaymentStatus
	CheckInFrom     time.Time
	CheckInTo       time.Time
	CheckOutFrom    time.Time
	CheckOutTo      time.Time
	InHouse         bool
	ExcludeCanceled bool
	ExcludeNoShow   bool
	OrderBy         string
	Limit           int
	Offset          int
}

var reservationOrders = map[string]string{
	"":               "id ASC",
	"id":             "id ASC",
	"check_in_date":  "check_in_date ASC, id ASC",
	"check_out_date": "check_out_date ASC, id ASC",
	"created_at":     "created_at DESC, id DESC",
}

type ReservationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error
	Save(ctx context.Context, tx *gorm.DB, res *models.Reservation) error
	FindByID(ctx context.Context, id uint) (*models.Reservation, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Reservation, error)
	List(ctx context.Context, tx *gorm.DB, filter ReservationFilter) ([]models.Reservation, int64, error)
	FindNoShowCandidates(ctx context.Context, checkInDate time.Time) ([]models.Reservation, error)
	FindPurgeable(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]uint, error)
	DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uint) error
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create inserts a pending reservation. An exclusion-constraint violation
// means another transaction committed an overlapping stay first.
func (r *reservationRepository) Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(res).Error; err != nil {
		if isExclusionViolation(err) {
			return apperror.ErrOverlap
		}
		return err
	}
	return nil
}

func (r *reservationRepository) Save(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Save(res).Error; err != nil {
		if isExclusionViolation(err) {
			return apperror.ErrOverlap
		}
		return err
	}
	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.WithContext(ctx).Preload("Room").First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// FindByIDForUpdate locks the reservation row so payments and transitions on
// the same id run one at a time.
func (r *reservationRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) List(ctx context.Context, tx *gorm.DB, f ReservationFilter) ([]models.Reservation, int64, error) {
	q := conn(ctx, r.db, tx).Model(&models.Reservation{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.RoomID != 0 {
		q = q.Where("room_id = ?", f.RoomID)
	}
	if f.BookingStatus != "" {
		q = q.Where("booking_status = ?", f.BookingStatus)
	}
	if len(f.PaymentStatuses) > 0 {
		q = q.Where("payment_status IN ?", f.PaymentStatuses)
	}
	if !f.CheckInFrom.IsZero() {
		q = q.Where("check_in_date >= ?", f.CheckInFrom)
	}
	if !f.CheckInTo.IsZero() {
		q = q.Where("check_in_date <= ?", f.CheckInTo)
	}
	if !f.CheckOutFrom.IsZero() {
		q = q.Where("check_out_date >= ?", f.CheckOutFrom)
	}
	if !f.CheckOutTo.IsZero() {
		q = q.Where("check_out_date <= ?", f.CheckOutTo)
	}
	if f.InHouse {
		q = q.Where("is_checked_in = ? AND is_checked_out = ?", true, false)
	}
	if f.ExcludeCanceled {
		q = q.Where("booking_status <> ?", models.StatusCancelled)
	}
	if f.ExcludeNoShow {
		q = q.Where("check_in_status <> ?", models.CheckInNoShow)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := reservationOrders[f.OrderBy]
	if !ok {
		order = reservationOrders[""]
	}
	q = q.Preload("Room").Order(order)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var list []models.Reservation
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// FindNoShowCandidates selects confirmed reservations for checkInDate whose
// guest never arrived. No lock is taken; callers re-check each row.
func (r *reservationRepository) FindNoShowCandidates(ctx context.Context, checkInDate time.Time) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("check_in_date = ? AND booking_status = ?", checkInDate, models.StatusConfirmed).
		Where("is_checked_in = ? AND is_no_show = ?", false, false).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// FindPurgeable returns ids of cancelled or no-show reservations created
// before cutoff.
func (r *reservationRepository) FindPurgeable(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]uint, error) {
	var ids []uint
	err := conn(ctx, r.db, tx).
		Model(&models.Reservation{}).
		Where("(booking_status = ? OR check_in_status = ?) AND created_at < ?", models.StatusCancelled, models.CheckInNoShow, cutoff).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *reservationRepository) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Where("id IN ?", ids).Delete(&models.Reservation{}).Error
}
