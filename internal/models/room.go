package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Room struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RoomNumber    string          `gorm:"type:varchar(10);uniqueIndex;not null" json:"room_number"`
	RoomType      string          `gorm:"type:varchar(50);not null" json:"room_type"`
	Description   string          `gorm:"type:varchar(255)" json:"description"`
	PricePerNight decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_night"`
	MaxOccupancy  int             `gorm:"not null" json:"max_occupancy"`
	// Available only gates new bookings; range availability comes from the overlap query.
	Available bool      `gorm:"column:is_available;not null;default:true" json:"is_available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
