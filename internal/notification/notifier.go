// Package notification turns committed payments into invoice events on the
// message bus.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// InvoiceEvent is the message body on invoice.advance and invoice.final.
type InvoiceEvent struct {
	Kind          models.InvoiceKind `json:"kind"`
	InvoiceNumber string             `json:"invoice_number"`
	ReservationID uint               `json:"reservation_id"`
	UserID        string             `json:"user_id"`
	RoomNumber    string             `json:"room_number,omitempty"`
	CheckInDate   string             `json:"check_in_date"`
	CheckOutDate  string             `json:"check_out_date"`
	Nights        int                `json:"nights"`
	TotalPrice    decimal.Decimal    `json:"total_price"`
	PaidAmount    decimal.Decimal    `json:"paid_amount"`
	Remaining     decimal.Decimal    `json:"remaining_amount"`

	PaymentID      uint            `json:"payment_id"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentType    string          `json:"payment_type"`
	TransactionRef string          `json:"transaction_ref"`
	PaidAt         time.Time       `json:"paid_at"`
}

func RoutingKey(kind models.InvoiceKind) string {
	return "invoice." + string(kind)
}

func NewInvoiceEvent(kind models.InvoiceKind, res models.Reservation, p models.Payment) InvoiceEvent {
	ev := InvoiceEvent{
		Kind:           kind,
		InvoiceNumber:  models.InvoiceNumber(kind, res.ID),
		ReservationID:  res.ID,
		UserID:         res.UserID,
		CheckInDate:    res.CheckInDate.Format(time.DateOnly),
		CheckOutDate:   res.CheckOutDate.Format(time.DateOnly),
		Nights:         res.Nights,
		TotalPrice:     res.TotalPrice,
		PaidAmount:     res.TotalPaidAmount,
		Remaining:      res.RemainingAmount,
		PaymentID:      p.ID,
		PaymentAmount:  p.Amount,
		PaymentMethod:  p.Method,
		PaymentType:    string(p.Type),
		TransactionRef: p.TransactionRef,
		PaidAt:         p.PaidAt,
	}
	if res.Room != nil {
		ev.RoomNumber = res.Room.RoomNumber
	}
	return ev
}

// RabbitNotifier publishes in the background; a failed publish is logged and
// never reaches the payment caller.
type RabbitNotifier struct {
	pub Publisher
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func NewRabbitNotifier(pub Publisher, log logrus.FieldLogger) *RabbitNotifier {
	return &RabbitNotifier{pub: pub, log: log.WithField("component", "InvoiceNotifier")}
}

func (n *RabbitNotifier) NotifyInvoice(_ context.Context, kind models.InvoiceKind, res models.Reservation, p models.Payment) {
	ev := NewInvoiceEvent(kind, res, p)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		// the request context is gone by the time this runs
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := n.pub.Publish(ctx, RoutingKey(kind), ev); err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"reservation_id": res.ID,
				"invoice":        ev.InvoiceNumber,
			}).Error("failed to publish invoice event")
			return
		}
		n.log.WithField("invoice", ev.InvoiceNumber).Info("invoice event published")
	}()
}

// Wait blocks until in-flight publishes finish.
func (n *RabbitNotifier) Wait() {
	n.wg.Wait()
}
