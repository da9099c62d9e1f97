package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/notification"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/mailer"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const sendTimeout = 30 * time.Second

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type InvoiceConsumer struct {
	mailer Mailer
	from   string
	to     string
	log    logrus.FieldLogger
}

// NewInvoiceConsumer delivers every invoice to one mailbox (front desk or
// accounting); the core holds no guest addresses.
func NewInvoiceConsumer(m Mailer, from, to string, log logrus.FieldLogger) *InvoiceConsumer {
	return &InvoiceConsumer{mailer: m, from: from, to: to, log: log.WithField("component", "InvoiceConsumer")}
}

// Start drains msgs until the channel closes. done is closed afterwards.
func (ic *InvoiceConsumer) Start(msgs <-chan amqp.Delivery) (done <-chan struct{}) {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for msg := range msgs {
			ic.handleMessage(msg)
		}
		ic.log.Info("channel closed, stopping consumer")
	}()
	return ch
}

func (ic *InvoiceConsumer) handleMessage(msg amqp.Delivery) {
	var ev notification.InvoiceEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.InvoiceNumber == "" {
		ic.log.WithError(err).Warn("dropping malformed invoice event")
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err := ic.mailer.Send(ctx, mailer.Message{
		From:    ic.from,
		To:      []string{ic.to},
		Subject: Subject(ev),
		Body:    RenderInvoice(ev),
	})
	if err != nil {
		ic.log.WithError(err).WithField("invoice", ev.InvoiceNumber).Error("failed to send invoice")
		msg.Nack(false, true) // requeue
		return
	}

	ic.log.WithField("invoice", ev.InvoiceNumber).Info("invoice sent")
	msg.Ack(false)
}

func Subject(ev notification.InvoiceEvent) string {
	if ev.Kind == models.InvoiceAdvance {
		return fmt.Sprintf("Advance payment receipt %s (reservation #%d)", ev.InvoiceNumber, ev.ReservationID)
	}
	return fmt.Sprintf("Invoice %s (reservation #%d)", ev.InvoiceNumber, ev.ReservationID)
}

// RenderInvoice produces the plain-text receipt body.
func RenderInvoice(ev notification.InvoiceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", ev.InvoiceNumber)
	fmt.Fprintf(&b, "Reservation #%d for guest %s\n", ev.ReservationID, ev.UserID)
	if ev.RoomNumber != "" {
		fmt.Fprintf(&b, "Room %s\n", ev.RoomNumber)
	}
	fmt.Fprintf(&b, "Stay: %s to %s (%d nights)\n\n", ev.CheckInDate, ev.CheckOutDate, ev.Nights)

	fmt.Fprintf(&b, "Payment:    %s via %s", ev.PaymentAmount.StringFixed(2), ev.PaymentMethod)
	if ev.TransactionRef != "" {
		fmt.Fprintf(&b, " (ref %s)", ev.TransactionRef)
	}
	b.WriteString("\n")
	if !ev.PaidAt.IsZero() {
		fmt.Fprintf(&b, "Paid at:    %s\n", ev.PaidAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Total:      %s\n", ev.TotalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Paid so far: %s\n", ev.PaidAmount.StringFixed(2))
	fmt.Fprintf(&b, "Balance:    %s\n", ev.Remaining.StringFixed(2))
	if ev.Remaining.IsZero() {
		b.WriteString("\nPaid in full. Thank you.\n")
	}
	return b.String()
}
