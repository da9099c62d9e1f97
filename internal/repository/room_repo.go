package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepository is the inventory ledger: room records plus the overlap
// query that decides whether a date range is free.
type RoomRepository interface {
	Create(ctx context.Context, tx *gorm.DB, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Room, error)
	FindAll(ctx context.Context) ([]models.Room, error)
	FindAvailable(ctx context.Context, checkIn, checkOut time.Time) ([]models.Room, error)
	Update(ctx context.Context, tx *gorm.DB, room *models.Room) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	CountActiveReservations(ctx context.Context, tx *gorm.DB, roomID uint) (int64, error)
	CheckOverlap(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time) (bool, error)
	SetAvailable(ctx context.Context, tx *gorm.DB, roomID uint, available bool) error
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, tx *gorm.DB, room *models.Room) error {
	if err := conn(ctx, r.db, tx).Create(room).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateRoom
		}
		return err
	}
	return nil
}

func (r *roomRepository) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByIDForUpdate locks the room row until tx ends. Creates for the same
// room queue behind it.
func (r *roomRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Room, error) {
	var room models.Room
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindAll(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := r.db.WithContext(ctx).Order("room_number ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// FindAvailable returns rooms open for booking. With a date range it also
// drops rooms that already have a blocking reservation in that range.
func (r *roomRepository) FindAvailable(ctx context.Context, checkIn, checkOut time.Time) ([]models.Room, error) {
	q := r.db.WithContext(ctx).Where("is_available = ?", true)
	if !checkIn.IsZero() && !checkOut.IsZero() {
		busy := r.db.Model(&models.Reservation{}).
			Select("1").
			Where("reservations.room_id = rooms.id").
			Where("reservations.check_in_date < ? AND reservations.check_out_date > ?", checkOut, checkIn).
			Where("reservations.booking_status <> ? AND reservations.check_in_status <> ?", models.StatusCancelled, models.CheckInNoShow)
		q = q.Where("NOT EXISTS (?)", busy)
	}

	var rooms []models.Room
	if err := q.Order("room_number ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) Update(ctx context.Context, tx *gorm.DB, room *models.Room) error {
	if err := conn(ctx, r.db, tx).Save(room).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateRoom
		}
		return err
	}
	return nil
}

func (r *roomRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(ctx, r.db, tx).Delete(&models.Room{}, id).Error
}

// CountActiveReservations counts reservations that still reference the room
// in a non-cancelled state.
func (r *roomRepository) CountActiveReservations(ctx context.Context, tx *gorm.DB, roomID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).
		Model(&models.Reservation{}).
		Where("room_id = ? AND booking_status <> ?", roomID, models.StatusCancelled).
		Count(&count).Error
	return count, err
}

// CheckOverlap reports whether a blocking reservation intersects the
// half-open range [checkIn, checkOut). It never writes.
func (r *roomRepository) CheckOverlap(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	var count int64
	err := conn(ctx, r.db, tx).
		Model(&models.Reservation{}).
		Where("room_id = ? AND check_in_date < ? AND check_out_date > ?", roomID, checkOut, checkIn).
		Where("booking_status <> ? AND check_in_status <> ?", models.StatusCancelled, models.CheckInNoShow).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roomRepository) SetAvailable(ctx context.Context, tx *gorm.DB, roomID uint, available bool) error {
	return conn(ctx, r.db, tx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("is_available", available).Error
}
