package models

import (
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/shopspring/decimal"
)

// LifecycleState is the single lifecycle position derived from a
// reservation's status columns and flags.
type LifecycleState string

const (
	StatePending    LifecycleState = "pending"
	StateConfirmed  LifecycleState = "confirmed"
	StateCheckedIn  LifecycleState = "checked_in"
	StateCheckedOut LifecycleState = "checked_out"
	StateCancelled  LifecycleState = "cancelled"
	StateNoShow     LifecycleState = "no_show"
)

var (
	errNotConfirmed     = apperror.Precondition("booking is not confirmed")
	errAdvanceUnpaid    = apperror.Precondition("advance payment has not been made")
	errAlreadyCheckedIn = apperror.Precondition("guest already checked in")
	errNotCheckedIn     = apperror.Precondition("guest has not checked in")
	errAlreadyOut       = apperror.Precondition("guest already checked out")
	errNotFullyPaid     = apperror.Precondition("reservation is not fully paid")
	errAlreadyCancelled = apperror.Precondition("reservation already cancelled")
	errIsNoShow         = apperror.Precondition("reservation is marked as no-show")
	errCancelCheckedIn  = apperror.Precondition("cannot cancel after check-in")
)

// NewReservation prices a stay in room and returns it in the pending state.
// Dates are reduced to calendar days; checkOut is exclusive.
func NewReservation(room *Room, userID string, checkIn, checkOut, now time.Time) (*Reservation, error) {
	in, out := DateOf(checkIn), DateOf(checkOut)
	nights := NightsBetween(in, out)
	if nights < 1 {
		return nil, apperror.ErrInvalidDateRange
	}

	total := room.PricePerNight.Mul(decimal.NewFromInt(int64(nights))).Round(2)
	return &Reservation{
		RoomID:          room.ID,
		UserID:          userID,
		CheckInDate:     in,
		CheckOutDate:    out,
		Nights:          nights,
		TotalPrice:      total,
		AdvanceAmount:   MinimumAdvance(total).Round(2),
		RemainingAmount: total,
		TotalPaidAmount: decimal.Zero,
		BookingStatus:   StatusPending,
		PaymentStatus:   PaymentPending,
		CheckInStatus:   CheckInPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (r *Reservation) State() LifecycleState {
	switch {
	case r.BookingStatus == StatusCancelled:
		return StateCancelled
	case r.IsNoShow || r.CheckInStatus == CheckInNoShow:
		return StateNoShow
	case r.IsCheckedOut:
		return StateCheckedOut
	case r.IsCheckedIn:
		return StateCheckedIn
	case r.BookingStatus == StatusConfirmed:
		return StateConfirmed
	default:
		return StatePending
	}
}

func (r *Reservation) IsTerminal() bool {
	switch r.State() {
	case StateCancelled, StateNoShow, StateCheckedOut:
		return true
	}
	return false
}

// Blocks reports whether the reservation occupies its room for its dates.
func (r *Reservation) Blocks() bool {
	return r.BookingStatus != StatusCancelled && r.CheckInStatus != CheckInNoShow
}

func (r *Reservation) CheckIn(now time.Time) error {
	switch {
	case r.IsCheckedIn:
		return errAlreadyCheckedIn
	case r.IsNoShow:
		return errIsNoShow
	case r.BookingStatus != StatusConfirmed:
		return errNotConfirmed
	case !r.AdvancePaid:
		return errAdvanceUnpaid
	}

	r.IsCheckedIn = true
	r.CheckInStatus = CheckInArrived
	r.CheckedInAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) CheckOut(now time.Time) error {
	switch {
	case !r.IsCheckedIn:
		return errNotCheckedIn
	case r.IsCheckedOut:
		return errAlreadyOut
	case !r.IsFullyPaid:
		return errNotFullyPaid
	}

	r.IsCheckedOut = true
	r.CheckedOutAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) Cancel(now time.Time) error {
	switch {
	case r.BookingStatus == StatusCancelled:
		return errAlreadyCancelled
	case r.IsNoShow:
		return errIsNoShow
	case r.IsCheckedIn:
		return errCancelCheckedIn
	}

	r.BookingStatus = StatusCancelled
	r.PaymentStatus = PaymentCancelled
	r.UpdatedAt = now
	return nil
}

// MarkNoShow is terminal: afterwards the reservation accepts no transition.
func (r *Reservation) MarkNoShow(now time.Time) error {
	switch {
	case r.IsNoShow:
		return errIsNoShow
	case r.BookingStatus == StatusCancelled:
		return errAlreadyCancelled
	case r.IsCheckedIn:
		return errAlreadyCheckedIn
	}

	r.IsNoShow = true
	r.CheckInStatus = CheckInNoShow
	r.UpdatedAt = now
	return nil
}
