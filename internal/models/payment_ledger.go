package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var advanceRate = decimal.RequireFromString("0.05")

var ErrLedgerMismatch = errors.New("payment ledger does not match reservation totals")

var (
	errPayCancelled     = apperror.Precondition("cannot pay a cancelled reservation")
	errPayNoShow        = apperror.Precondition("cannot pay a no-show reservation")
	errAlreadyFullyPaid = apperror.Precondition("reservation already fully paid")
	errFullAfterAdvance = apperror.Precondition("advance already paid, use a remaining payment")
)

// MinimumAdvance is the unrounded 5% deposit for total.
func MinimumAdvance(total decimal.Decimal) decimal.Decimal {
	return total.Mul(advanceRate)
}

type PaymentRequest struct {
	Amount         decimal.Decimal
	Method         string
	TransactionRef string
	Type           PaymentType
	Notes          string
}

// Crossing records which payment thresholds a single payment moved the
// reservation across.
type Crossing struct {
	CrossedAdvance bool
	CrossedFull    bool
}

// ApplyPayment validates req against the current state of res, accumulates it
// and returns the payment row to append. res is only mutated on success.
func ApplyPayment(res *Reservation, req PaymentRequest, now time.Time) (*Payment, Crossing, error) {
	var crossing Crossing

	switch {
	case res.BookingStatus == StatusCancelled:
		return nil, crossing, errPayCancelled
	case res.IsNoShow:
		return nil, crossing, errPayNoShow
	}

	if req.Type == "" {
		req.Type = PaymentTypeFull
	}
	if err := validateRequest(req); err != nil {
		return nil, crossing, err
	}

	due := res.TotalPrice.Sub(res.TotalPaidAmount)
	switch req.Type {
	case PaymentTypeAdvance:
		if res.AdvancePaid {
			return nil, crossing, apperror.ErrDuplicateAdvance
		}
		if req.Amount.GreaterThan(due) {
			return nil, crossing, apperror.ErrExceedsRemaining
		}
		if minimum := MinimumAdvance(res.TotalPrice); req.Amount.LessThan(minimum) {
			return nil, crossing, apperror.Precondition("advance payment must be at least %s", minimum.StringFixed(2))
		}

	case PaymentTypeRemaining:
		if !res.AdvancePaid {
			return nil, crossing, errAdvanceUnpaid
		}
		if res.IsFullyPaid {
			return nil, crossing, errAlreadyFullyPaid
		}
		if req.Amount.GreaterThan(due) {
			return nil, crossing, apperror.ErrExceedsRemaining
		}
		if req.Amount.LessThan(due) {
			return nil, crossing, apperror.Precondition("remaining payment must be at least %s", due.StringFixed(2))
		}

	case PaymentTypeFull:
		if res.AdvancePaid {
			return nil, crossing, errFullAfterAdvance
		}
		if req.Amount.GreaterThan(due) {
			return nil, crossing, apperror.ErrExceedsRemaining
		}
		if req.Amount.LessThan(res.TotalPrice) {
			return nil, crossing, apperror.Precondition("full payment must be at least %s", res.TotalPrice.StringFixed(2))
		}

	default:
		return nil, crossing, apperror.ErrUnknownPaymentType
	}

	res.TotalPaidAmount = res.TotalPaidAmount.Add(req.Amount)
	res.RemainingAmount = res.TotalPrice.Sub(res.TotalPaidAmount)
	res.UpdatedAt = now

	if !res.AdvancePaid {
		res.AdvancePaid = true
		res.BookingStatus = StatusConfirmed
		res.PaymentStatus = PaymentAdvancePaid
		crossing.CrossedAdvance = true
	}
	if !res.IsFullyPaid && res.RemainingAmount.Sign() <= 0 {
		res.IsFullyPaid = true
		res.PaymentStatus = PaymentFullyPaid
		res.RemainingAmount = decimal.Zero
		crossing.CrossedFull = true
	}

	ref := req.TransactionRef
	if ref == "" {
		ref = uuid.NewString()
	}
	payment := &Payment{
		ReservationID:  res.ID,
		Amount:         req.Amount,
		Method:         req.Method,
		Status:         PaymentRecordPaid,
		TransactionRef: ref,
		Type:           req.Type,
		Notes:          req.Notes,
		PaidAt:         now,
	}
	return payment, crossing, nil
}

func validateRequest(req PaymentRequest) error {
	if req.Amount.Sign() <= 0 {
		return apperror.ErrNonPositiveAmount
	}
	if !req.Amount.Equal(req.Amount.Truncate(2)) {
		return apperror.ErrAmountPrecision
	}
	if req.Method == "" {
		return apperror.ErrMissingMethod
	}
	return nil
}

// FoldPayments sums the settled payments.
func FoldPayments(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentRecordPaid {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

type Reconciliation struct {
	ReservationID uint            `json:"reservation_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	CachedPaid    decimal.Decimal `json:"cached_paid"`
	FoldedPaid    decimal.Decimal `json:"folded_paid"`
	Remaining     decimal.Decimal `json:"remaining"`
	PaymentCount  int             `json:"payment_count"`
	Consistent    bool            `json:"consistent"`
}

// Reconcile cross-checks the cached totals on res against its payment rows.
// The returned error wraps ErrLedgerMismatch when they disagree.
func Reconcile(res *Reservation, payments []Payment) (Reconciliation, error) {
	folded := FoldPayments(payments)
	rec := Reconciliation{
		ReservationID: res.ID,
		TotalPrice:    res.TotalPrice,
		CachedPaid:    res.TotalPaidAmount,
		FoldedPaid:    folded,
		Remaining:     res.RemainingAmount,
		PaymentCount:  len(payments),
	}

	switch {
	case !folded.Equal(res.TotalPaidAmount):
		return rec, fmt.Errorf("reservation %d: paid %s, payments sum to %s: %w",
			res.ID, res.TotalPaidAmount.StringFixed(2), folded.StringFixed(2), ErrLedgerMismatch)
	case res.RemainingAmount.IsNegative():
		return rec, fmt.Errorf("reservation %d: negative remaining %s: %w",
			res.ID, res.RemainingAmount.StringFixed(2), ErrLedgerMismatch)
	case !res.RemainingAmount.Add(res.TotalPaidAmount).Equal(res.TotalPrice):
		return rec, fmt.Errorf("reservation %d: remaining %s + paid %s != total %s: %w",
			res.ID, res.RemainingAmount.StringFixed(2), res.TotalPaidAmount.StringFixed(2),
			res.TotalPrice.StringFixed(2), ErrLedgerMismatch)
	}

	rec.Consistent = true
	return rec, nil
}
