package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentAdvancePaid PaymentStatus = "advance_paid"
	PaymentFullyPaid   PaymentStatus = "fully_paid"
	PaymentCancelled   PaymentStatus = "cancelled"
)

type CheckInStatus string

const (
	CheckInPending CheckInStatus = "pending"
	CheckInArrived CheckInStatus = "arrived"
	CheckInNoShow  CheckInStatus = "no-show"
)

type Reservation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoomID       uint      `gorm:"not null;index" json:"room_id"`
	UserID       string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	CheckInDate  time.Time `gorm:"type:date;not null;index" json:"check_in_date"`
	CheckOutDate time.Time `gorm:"type:date;not null" json:"check_out_date"`
	Nights       int       `gorm:"not null" json:"nights"`

	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	AdvanceAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"advance_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"remaining_amount"`
	TotalPaidAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_paid_amount"`

	BookingStatus BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"booking_status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	CheckInStatus CheckInStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"check_in_status"`

	AdvancePaid  bool `gorm:"not null;default:false" json:"advance_paid"`
	IsFullyPaid  bool `gorm:"not null;default:false" json:"is_fully_paid"`
	IsCheckedIn  bool `gorm:"not null;default:false" json:"is_checked_in"`
	IsCheckedOut bool `gorm:"not null;default:false" json:"is_checked_out"`
	IsNoShow     bool `gorm:"not null;default:false" json:"is_no_show"`

	CheckedInAt  *time.Time `json:"check_in_date_time,omitempty"`
	CheckedOutAt *time.Time `json:"check_out_date_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Room     *Room     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"room,omitempty"`
	Payments []Payment `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

// DateOf drops the clock part of t, keeping the calendar day in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NightsBetween counts whole days between two calendar dates.
func NightsBetween(checkIn, checkOut time.Time) int {
	return int(DateOf(checkOut).Sub(DateOf(checkIn)).Hours() / 24)
}
