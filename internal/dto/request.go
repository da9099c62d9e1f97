package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = time.DateOnly

type RoomRequest struct {
	RoomNumber    string          `json:"room_number" validate:"required,max=10"`
	RoomType      string          `json:"room_type" validate:"required,max=50"`
	Description   string          `json:"description" validate:"max=255"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	MaxOccupancy  int             `json:"max_occupancy" validate:"required,gt=0"`
	IsAvailable   *bool           `json:"is_available"`
}

type CreateReservationRequest struct {
	RoomID       uint   `json:"room_id" validate:"required"`
	CheckInDate  string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate string `json:"check_out_date" validate:"required,datetime=2006-01-02"`
}

// Dates parses the stay dates; validation has already checked the layout.
func (r CreateReservationRequest) Dates() (checkIn, checkOut time.Time, err error) {
	if checkIn, err = ParseDate(r.CheckInDate); err != nil {
		return
	}
	checkOut, err = ParseDate(r.CheckOutDate)
	return
}

type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=50"`
	TransactionID string          `json:"transaction_id" validate:"max=100"`
	PaymentType   string          `json:"payment_type" validate:"omitempty,oneof=advance remaining full"`
	Notes         string          `json:"payment_notes" validate:"max=255"`
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
