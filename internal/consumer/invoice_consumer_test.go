package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/notification"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/mailer"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Mailer ---

type mockMailer struct {
	sent   []mailer.Message
	SendFn func(ctx context.Context, msg mailer.Message) error
}

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	return nil
}

// --- Mock Acknowledger ---

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func finalEvent() notification.InvoiceEvent {
	return notification.InvoiceEvent{
		Kind:           models.InvoiceFinal,
		InvoiceNumber:  "INV-FINAL-00042",
		ReservationID:  42,
		UserID:         "guest-1",
		RoomNumber:     "101",
		CheckInDate:    "2024-06-01",
		CheckOutDate:   "2024-06-04",
		Nights:         3,
		TotalPrice:     decimal.RequireFromString("300"),
		PaidAmount:     decimal.RequireFromString("300"),
		Remaining:      decimal.Zero,
		PaymentAmount:  decimal.RequireFromString("285"),
		PaymentMethod:  "card",
		TransactionRef: "tx-1",
	}
}

func delivery(t *testing.T, body any) (amqp.Delivery, *ackRecorder) {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	ack := &ackRecorder{}
	return amqp.Delivery{Acknowledger: ack, Body: raw}, ack
}

func TestHandleMessage_Sends(t *testing.T) {
	m := &mockMailer{}
	ic := NewInvoiceConsumer(m, "desk@hotel.test", "accounts@hotel.test", logrus.New())
	msg, ack := delivery(t, finalEvent())

	ic.handleMessage(msg)

	assert.True(t, ack.acked)
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"accounts@hotel.test"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "INV-FINAL-00042")
	assert.Contains(t, m.sent[0].Body, "Balance:    0.00")
	assert.Contains(t, m.sent[0].Body, "Paid in full")
}

func TestHandleMessage_Malformed(t *testing.T) {
	m := &mockMailer{}
	ic := NewInvoiceConsumer(m, "a@b.test", "c@d.test", logrus.New())

	for _, body := range [][]byte{[]byte("{not json"), []byte(`{"kind":"final"}`)} {
		msg, ack := delivery(t, body)
		ic.handleMessage(msg)
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	}
	assert.Empty(t, m.sent)
}

func TestHandleMessage_SendFailureRequeues(t *testing.T) {
	m := &mockMailer{SendFn: func(context.Context, mailer.Message) error { return errors.New("smtp down") }}
	ic := NewInvoiceConsumer(m, "a@b.test", "c@d.test", logrus.New())
	msg, ack := delivery(t, finalEvent())

	ic.handleMessage(msg)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
	assert.False(t, ack.acked)
}

func TestStart_StopsOnClose(t *testing.T) {
	m := &mockMailer{}
	ic := NewInvoiceConsumer(m, "a@b.test", "c@d.test", logrus.New())
	msgs := make(chan amqp.Delivery, 1)
	msg, ack := delivery(t, finalEvent())
	msgs <- msg
	close(msgs)

	<-ic.Start(msgs)
	assert.True(t, ack.acked)
}

func TestRenderInvoice_Advance(t *testing.T) {
	ev := finalEvent()
	ev.Kind = models.InvoiceAdvance
	ev.InvoiceNumber = "INV-ADVANCE-00042"
	ev.PaymentAmount = decimal.RequireFromString("15")
	ev.PaidAmount = decimal.RequireFromString("15")
	ev.Remaining = decimal.RequireFromString("285")

	body := RenderInvoice(ev)
	assert.Contains(t, body, "Payment:    15.00 via card (ref tx-1)")
	assert.Contains(t, body, "Balance:    285.00")
	assert.NotContains(t, body, "Paid in full")
	assert.Contains(t, Subject(ev), "Advance payment receipt")
}
