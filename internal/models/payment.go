package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeAdvance   PaymentType = "advance"
	PaymentTypeRemaining PaymentType = "remaining"
	PaymentTypeFull      PaymentType = "full"
)

// ParsePaymentType maps an empty type to full, the default for requests
// that do not say which phase they pay for.
func ParsePaymentType(s string) (PaymentType, bool) {
	switch PaymentType(s) {
	case "":
		return PaymentTypeFull, true
	case PaymentTypeAdvance, PaymentTypeRemaining, PaymentTypeFull:
		return PaymentType(s), true
	}
	return "", false
}

type PaymentRecordStatus string

const (
	PaymentRecordPaid     PaymentRecordStatus = "paid"
	PaymentRecordFailed   PaymentRecordStatus = "failed"
	PaymentRecordRefunded PaymentRecordStatus = "refunded"
)

// Payment is append-only: rows are inserted once and never updated.
type Payment struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	ReservationID  uint                `gorm:"not null;index" json:"reservation_id"`
	Amount         decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method         string              `gorm:"column:payment_method;type:varchar(50);not null" json:"payment_method"`
	Status         PaymentRecordStatus `gorm:"column:payment_status;type:varchar(20);not null;default:'paid'" json:"payment_status"`
	TransactionRef string              `gorm:"column:transaction_id;type:varchar(100)" json:"transaction_id"`
	Type           PaymentType         `gorm:"column:payment_type;type:varchar(20);not null;default:'full'" json:"payment_type"`
	Notes          string              `gorm:"column:payment_notes;type:varchar(255)" json:"payment_notes,omitempty"`
	PaidAt         time.Time           `gorm:"not null" json:"paid_at"`
}
