// Package notify emits best-effort, human-readable storefront events to an
// external channel. Publishing never blocks or fails the triggering
// operation: errors are logged and swallowed. Payloads are redacted before
// they leave the process — no raw card number or CVC is ever published.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

// PaymentMethodCreated is the redacted event emitted when an account saves a
// new payment method. MaskedNumber keeps only the last four digits.
type PaymentMethodCreated struct {
	EventID      string
	AccountID    int64
	MethodID     int64
	Brand        string
	MaskedNumber string
	CardHolder   string
	ExpiryMonth  int
	ExpiryYear   int
}

// NewPaymentMethodCreated builds the redacted event from the submitted card
// and the stored method. The CVC is never captured.
func NewPaymentMethodCreated(in *payment.CardInput, m *payment.Method) PaymentMethodCreated {
	return PaymentMethodCreated{
		EventID:      uuid.New().String(),
		AccountID:    m.AccountID,
		MethodID:     m.ID,
		Brand:        m.Brand,
		MaskedNumber: payment.MaskNumber(in.Number),
		CardHolder:   m.CardHolder,
		ExpiryMonth:  m.ExpiryMonth,
		ExpiryYear:   m.ExpiryYear,
	}
}

// Encode renders the event as JSON.
func (e PaymentMethodCreated) Encode() []byte {
	var enc jx.Encoder
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("event_id", func(enc *jx.Encoder) { enc.Str(e.EventID) })
		enc.Field("type", func(enc *jx.Encoder) { enc.Str("payment_method.created") })
		enc.Field("account_id", func(enc *jx.Encoder) { enc.Int64(e.AccountID) })
		enc.Field("method_id", func(enc *jx.Encoder) { enc.Int64(e.MethodID) })
		enc.Field("brand", func(enc *jx.Encoder) { enc.Str(e.Brand) })
		enc.Field("number", func(enc *jx.Encoder) { enc.Str(e.MaskedNumber) })
		enc.Field("card_holder", func(enc *jx.Encoder) { enc.Str(e.CardHolder) })
		enc.Field("expiry_month", func(enc *jx.Encoder) { enc.Int(e.ExpiryMonth) })
		enc.Field("expiry_year", func(enc *jx.Encoder) { enc.Int(e.ExpiryYear) })
		enc.Field("timestamp", func(enc *jx.Encoder) { enc.Str(time.Now().UTC().Format(time.RFC3339Nano)) })
	})
	return enc.Bytes()
}

// Sink publishes an encoded event under a partitioning key.
type Sink interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// KafkaSink publishes events to a Kafka topic.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink writing to the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish writes one message.
func (s *KafkaSink) Publish(ctx context.Context, key string, payload []byte) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// Notifier wraps a Sink with fire-and-forget semantics. A nil Sink disables
// publishing entirely.
type Notifier struct {
	sink    Sink
	lg      *zap.Logger
	timeout time.Duration
}

// NewNotifier creates a Notifier. sink may be nil.
func NewNotifier(sink Sink, lg *zap.Logger) *Notifier {
	return &Notifier{sink: sink, lg: lg, timeout: 5 * time.Second}
}

// PaymentMethodCreated publishes the event in the background. The caller's
// context is not used: the triggering request must not wait on, or fail
// because of, the notification channel.
func (n *Notifier) PaymentMethodCreated(e PaymentMethodCreated) {
	if n == nil || n.sink == nil {
		return
	}
	payload := e.Encode()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.sink.Publish(ctx, e.EventID, payload); err != nil {
			n.lg.Warn("notification publish failed",
				zap.String("event_id", e.EventID),
				zap.Error(err),
			)
		}
	}()
}
