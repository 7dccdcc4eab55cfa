package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/s1037989/stripepayment/internal/domain"
	pkgkafka "github.com/s1037989/stripepayment/pkg/kafka"
	"github.com/s1037989/stripepayment/pkg/logger"
)

// Kafka topics for charge lifecycle events.
const (
	TopicChargeCreated  = "stripe.charge.created"
	TopicChargeCaptured = "stripe.charge.captured"
	TopicChargeFailed   = "stripe.charge.failed"
)

// AggregateTypeCharge is the aggregate type of every charge event.
const AggregateTypeCharge = "charge"

// SourceStripePayment identifies events published by this process.
const SourceStripePayment = "stripe-payment"

// ChargeData is the payload of every charge event.
type ChargeData struct {
	RecordID      string `json:"record_id"`
	ChargeID      string `json:"charge_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Livemode      bool   `json:"livemode"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Publisher is the part of pkgkafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes charge lifecycle events. A nil Publisher disables
// publishing.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a charge event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishChargeCreated publishes a stripe.charge.created event.
func (p *Producer) PublishChargeCreated(ctx context.Context, rec *domain.ChargeRecord) error {
	return p.publish(ctx, TopicChargeCreated, rec)
}

// PublishChargeCaptured publishes a stripe.charge.captured event.
func (p *Producer) PublishChargeCaptured(ctx context.Context, rec *domain.ChargeRecord) error {
	return p.publish(ctx, TopicChargeCaptured, rec)
}

// PublishChargeFailed publishes a stripe.charge.failed event.
func (p *Producer) PublishChargeFailed(ctx context.Context, rec *domain.ChargeRecord) error {
	return p.publish(ctx, TopicChargeFailed, rec)
}

func (p *Producer) publish(ctx context.Context, topic string, rec *domain.ChargeRecord) error {
	if p == nil || p.publisher == nil {
		return nil
	}

	ev, err := pkgkafka.NewEvent(topic, rec.ChargeID, AggregateTypeCharge, SourceStripePayment, ChargeData{
		RecordID:      rec.ID,
		ChargeID:      rec.ChargeID,
		Status:        rec.Status,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Livemode:      rec.Livemode,
		FailureReason: rec.FailureReason,
	})
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	ev.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.publisher.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.InfoContext(ctx, "charge event published",
		slog.String("topic", topic),
		slog.String("charge_id", rec.ChargeID),
	)
	return nil
}
