package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type BookingService interface {
	CreateReservation(ctx context.Context, p models.Principal, roomID uint, checkIn, checkOut time.Time) (*models.Reservation, error)
	ApplyPayment(ctx context.Context, p models.Principal, reservationID uint, req models.PaymentRequest) (*PaymentResult, error)
	CheckIn(ctx context.Context, p models.Principal, reservationID uint) (*models.Reservation, error)
	CheckOut(ctx context.Context, p models.Principal, reservationID uint) (*models.Reservation, error)
	Cancel(ctx context.Context, p models.Principal, reservationID uint) (*models.Reservation, error)
	GetReservation(ctx context.Context, p models.Principal, id uint) (*models.Reservation, error)
	ListReservations(ctx context.Context, p models.Principal, filter repository.ReservationFilter) ([]models.Reservation, int64, error)
	ListPayments(ctx context.Context, p models.Principal, reservationID uint) ([]models.Payment, error)
	ListAllPayments(ctx context.Context, p models.Principal, limit, offset int) ([]models.Payment, error)
	GetPayment(ctx context.Context, p models.Principal, id uint) (*models.Payment, error)
	ReconcileReservation(ctx context.Context, p models.Principal, id uint) (models.Reconciliation, error)
}

type PaymentResult struct {
	Reservation *models.Reservation
	Payment     *models.Payment
	Crossing    models.Crossing
}

type bookingService struct {
	tx          repository.Transactor
	roomRepo    repository.RoomRepository
	resRepo     repository.ReservationRepository
	paymentRepo repository.PaymentRepository
	notifier    Notifier
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewBookingService(
	tx repository.Transactor,
	roomRepo repository.RoomRepository,
	resRepo repository.ReservationRepository,
	paymentRepo repository.PaymentRepository,
	notifier Notifier,
	log logrus.FieldLogger,
) BookingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &bookingService{
		tx:          tx,
		roomRepo:    roomRepo,
		resRepo:     resRepo,
		paymentRepo: paymentRepo,
		notifier:    notifier,
		log:         log.WithField("component", "BookingService"),
		now:         time.Now,
	}
}

func (s *bookingService) CreateReservation(ctx context.Context, p models.Principal, roomID uint, checkIn, checkOut time.Time) (*models.Reservation, error) {
	if err := authorize(p, CapBook, nil); err != nil {
		return nil, err
	}
	if models.NightsBetween(checkIn, checkOut) < 1 {
		return nil, apperror.ErrInvalidDateRange
	}

	var result *models.Reservation
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		// 1. Lock the room row so creates for this room run one at a time
		room, err := s.roomRepo.FindByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return orNotFound(err, apperror.ErrRoomNotFound)
		}

		// 2. Fast-path flag
		if !room.Available {
			return apperror.ErrRoomUnavailable
		}

		res, err := models.NewReservation(room, p.ID, checkIn, checkOut, s.now())
		if err != nil {
			return err
		}

		// 3. Authoritative range check, evaluated under the room lock
		overlap, err := s.roomRepo.CheckOverlap(ctx, tx, room.ID, res.CheckInDate, res.CheckOutDate)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlap {
			return apperror.ErrOverlap
		}

		if err := s.resRepo.Create(ctx, tx, res); err != nil {
			return err
		}
		res.Room = room
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reservation_id": result.ID,
		"room_id":        result.RoomID,
		"user_id":        result.UserID,
		"nights":         result.Nights,
	}).Info("reservation created")
	return result, nil
}

func (s *bookingService) ApplyPayment(ctx context.Context, p models.Principal, reservationID uint, req models.PaymentRequest) (*PaymentResult, error) {
	var result *PaymentResult

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		res, err := s.resRepo.FindByIDForUpdate(ctx, tx, reservationID)
		if err != nil {
			return orNotFound(err, apperror.ErrReservationNotFound)
		}
		if err := authorize(p, CapPay, res); err != nil {
			return err
		}

		// Thresholds are evaluated on the locked row, after accumulation.
		payment, crossing, err := models.ApplyPayment(res, req, s.now())
		if err != nil {
			return err
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := s.resRepo.Save(ctx, tx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if crossing.CrossedAdvance || crossing.CrossedFull {
			if err := s.roomRepo.SetAvailable(ctx, tx, res.RoomID, false); err != nil {
				return fmt.Errorf("occupy room: %w", err)
			}
		}

		result = &PaymentResult{Reservation: res, Payment: payment, Crossing: crossing}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"payment_id":     result.Payment.ID,
		"amount":         result.Payment.Amount.StringFixed(2),
		"type":           result.Payment.Type,
		"payment_status": result.Reservation.PaymentStatus,
	}).Info("payment applied")

	// Only committed state leaves the service.
	switch {
	case result.Crossing.CrossedFull:
		s.notifier.NotifyInvoice(ctx, models.InvoiceFinal, *result.Reservation, *result.Payment)
	case result.Crossing.CrossedAdvance:
		s.notifier.NotifyInvoice(ctx, models.InvoiceAdvance, *result.Reservation, *result.Payment)
	}
	return result, nil
}

func (s *bookingService) CheckIn(ctx context.Context, p models.Principal, reservationID uint) (*models.Reservation, error) {
	return s.transition(ctx, p, reservationID, CapCheckIn, func(res *models.Reservation, now time.Time) (bool, error) {
		return false, res.CheckIn(now)
	})
}

func (s *bookingService) CheckOut(ctx context.Context, p models.Principal, reservationID uint) (*models.Reservation, error) {
	return s.transition(ctx, p, reservationID, CapCheckOut, func(res *models.Reservation, now time.Time) (bool, error) {
		return true, res.CheckOut(now)
	})
}

func (s *bookingService) Cancel(ctx context.Context, p models.Principal, reservationID uint) (*models.Reservation, error) {
	return s.transition(ctx, p, reservationID, CapCancel, func(res *models.Reservation, now time.Time) (bool, error) {
		return true, res.Cancel(now)
	})
}

// transition runs one lifecycle step on a locked reservation. step reports
// whether a successful transition frees the room.
func (s *bookingService) transition(
	ctx context.Context,
	p models.Principal,
	reservationID uint,
	capability Capability,
	step func(res *models.Reservation, now time.Time) (bool, error),
) (*models.Reservation, error) {
	var result *models.Reservation

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		res, err := s.resRepo.FindByIDForUpdate(ctx, tx, reservationID)
		if err != nil {
			return orNotFound(err, apperror.ErrReservationNotFound)
		}
		if err := authorize(p, capability, res); err != nil {
			return err
		}

		release, err := step(res, s.now())
		if err != nil {
			return err
		}
		if err := s.resRepo.Save(ctx, tx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if release {
			if err := s.roomRepo.SetAvailable(ctx, tx, res.RoomID, true); err != nil {
				return fmt.Errorf("release room: %w", err)
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"action":         capability,
		"state":          result.State(),
		"by":             p.ID,
	}).Info("reservation transitioned")
	return result, nil
}

func (s *bookingService) GetReservation(ctx context.Context, p models.Principal, id uint) (*models.Reservation, error) {
	res, err := s.resRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, apperror.ErrReservationNotFound)
	}
	if err := authorize(p, CapView, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListReservations scopes non-admin callers to their own bookings.
func (s *bookingService) ListReservations(ctx context.Context, p models.Principal, filter repository.ReservationFilter) ([]models.Reservation, int64, error) {
	if p.ID == "" {
		return nil, 0, apperror.ErrForbidden
	}
	if !p.IsAdmin() {
		filter.UserID = p.ID
	}
	return s.resRepo.List(ctx, nil, filter)
}

func (s *bookingService) ListPayments(ctx context.Context, p models.Principal, reservationID uint) ([]models.Payment, error) {
	if _, err := s.GetReservation(ctx, p, reservationID); err != nil {
		return nil, err
	}
	return s.paymentRepo.FindByReservation(ctx, nil, reservationID)
}

func (s *bookingService) ListAllPayments(ctx context.Context, p models.Principal, limit, offset int) ([]models.Payment, error) {
	if p.ID == "" {
		return nil, apperror.ErrForbidden
	}
	userID := p.ID
	if p.IsAdmin() {
		userID = ""
	}
	return s.paymentRepo.List(ctx, userID, limit, offset)
}

func (s *bookingService) GetPayment(ctx context.Context, p models.Principal, id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, apperror.ErrPaymentNotFound)
	}
	if _, err := s.GetReservation(ctx, p, payment.ReservationID); err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ReconcileReservation folds the payment rows and compares them with the
// cached totals. A mismatch is reported in the result, not as an error.
func (s *bookingService) ReconcileReservation(ctx context.Context, p models.Principal, id uint) (models.Reconciliation, error) {
	res, err := s.GetReservation(ctx, p, id)
	if err != nil {
		return models.Reconciliation{}, err
	}
	payments, err := s.paymentRepo.FindByReservation(ctx, nil, id)
	if err != nil {
		return models.Reconciliation{}, err
	}

	rec, err := models.Reconcile(res, payments)
	if err != nil {
		s.log.WithError(err).WithField("reservation_id", id).Warn("ledger mismatch")
	}
	return rec, nil
}
