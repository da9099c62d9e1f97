package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"gorm.io/gorm"
)

// Notifier hands a committed reservation/payment pair to the invoice
// pipeline. Implementations must not block the caller and must not fail it.
type Notifier interface {
	NotifyInvoice(ctx context.Context, kind models.InvoiceKind, res models.Reservation, payment models.Payment)
}

// Locker guards batch jobs against concurrent runs. release is safe to call
// once acquired is true.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyInvoice(context.Context, models.InvoiceKind, models.Reservation, models.Payment) {
}

func orNotFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
