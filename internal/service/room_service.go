package service

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RoomInput struct {
	RoomNumber    string
	RoomType      string
	Description   string
	PricePerNight decimal.Decimal
	MaxOccupancy  int
	Available     *bool
}

type RoomService interface {
	CreateRoom(ctx context.Context, p models.Principal, in RoomInput) (*models.Room, error)
	GetRoom(ctx context.Context, id uint) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListAvailable(ctx context.Context, checkIn, checkOut time.Time) ([]models.Room, error)
	UpdateRoom(ctx context.Context, p models.Principal, id uint, in RoomInput) (*models.Room, error)
	DeleteRoom(ctx context.Context, p models.Principal, id uint) error
}

type roomService struct {
	tx       repository.Transactor
	roomRepo repository.RoomRepository
	log      logrus.FieldLogger
}

func NewRoomService(tx repository.Transactor, roomRepo repository.RoomRepository, log logrus.FieldLogger) RoomService {
	return &roomService{tx: tx, roomRepo: roomRepo, log: log.WithField("component", "RoomService")}
}

func validateRoom(in RoomInput) error {
	switch {
	case in.RoomNumber == "":
		return apperror.Validation("room_number is required")
	case in.RoomType == "":
		return apperror.Validation("room_type is required")
	case in.PricePerNight.Sign() <= 0:
		return apperror.Validation("price_per_night must be greater than zero")
	case !in.PricePerNight.Equal(in.PricePerNight.Truncate(2)):
		return apperror.Validation("price_per_night must have at most 2 decimal places")
	case in.MaxOccupancy < 1:
		return apperror.Validation("max_occupancy must be at least 1")
	}
	return nil
}

func (s *roomService) CreateRoom(ctx context.Context, p models.Principal, in RoomInput) (*models.Room, error) {
	if err := authorize(p, CapManageRooms, nil); err != nil {
		return nil, err
	}
	if err := validateRoom(in); err != nil {
		return nil, err
	}

	room := &models.Room{
		RoomNumber:    in.RoomNumber,
		RoomType:      in.RoomType,
		Description:   in.Description,
		PricePerNight: in.PricePerNight,
		MaxOccupancy:  in.MaxOccupancy,
		Available:     true,
	}
	closed := in.Available != nil && !*in.Available
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.roomRepo.Create(ctx, tx, room); err != nil {
			return err
		}
		// New rows take the column default; an explicit false needs a second write.
		if closed {
			return s.roomRepo.SetAvailable(ctx, tx, room.ID, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	room.Available = !closed

	s.log.WithFields(logrus.Fields{"room_id": room.ID, "room_number": room.RoomNumber}).Info("room created")
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, apperror.ErrRoomNotFound)
	}
	return room, nil
}

func (s *roomService) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.roomRepo.FindAll(ctx)
}

func (s *roomService) ListAvailable(ctx context.Context, checkIn, checkOut time.Time) ([]models.Room, error) {
	if !checkIn.IsZero() && !checkOut.IsZero() && models.NightsBetween(checkIn, checkOut) < 1 {
		return nil, apperror.ErrInvalidDateRange
	}
	return s.roomRepo.FindAvailable(ctx, checkIn, checkOut)
}

// UpdateRoom changes the room's attributes. Reservations keep the total
// they were priced at.
func (s *roomService) UpdateRoom(ctx context.Context, p models.Principal, id uint, in RoomInput) (*models.Room, error) {
	if err := authorize(p, CapManageRooms, nil); err != nil {
		return nil, err
	}
	if err := validateRoom(in); err != nil {
		return nil, err
	}

	var result *models.Room
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		room, err := s.roomRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return orNotFound(err, apperror.ErrRoomNotFound)
		}
		room.RoomNumber = in.RoomNumber
		room.RoomType = in.RoomType
		room.Description = in.Description
		room.PricePerNight = in.PricePerNight
		room.MaxOccupancy = in.MaxOccupancy
		if in.Available != nil {
			room.Available = *in.Available
		}
		if err := s.roomRepo.Update(ctx, tx, room); err != nil {
			return err
		}
		result = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteRoom refuses while any non-cancelled reservation references the room.
func (s *roomService) DeleteRoom(ctx context.Context, p models.Principal, id uint) error {
	if err := authorize(p, CapManageRooms, nil); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.roomRepo.FindByIDForUpdate(ctx, tx, id); err != nil {
			return orNotFound(err, apperror.ErrRoomNotFound)
		}
		active, err := s.roomRepo.CountActiveReservations(ctx, tx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperror.ErrRoomHasBookings
		}
		return s.roomRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithField("room_id", id).Info("room deleted")
	return nil
}
