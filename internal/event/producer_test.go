package event

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/s1037989/stripepayment/internal/domain"
	pkgkafka "github.com/s1037989/stripepayment/pkg/kafka"
	"github.com/s1037989/stripepayment/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, ev *pkgkafka.Event) error {
	return m.Called(ctx, topic, ev).Error(0)
}

func TestProducer_PublishChargeCreated(t *testing.T) {
	pub := &mockPublisher{}
	p := NewProducer(pub, testLogger())

	rec := domain.NewChargeRecord("ch_1", 100, "usd")
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	var got *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicChargeCreated, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { got = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	require.NoError(t, p.PublishChargeCreated(ctx, rec))
	pub.AssertExpectations(t)

	require.NotNil(t, got)
	assert.Equal(t, "ch_1", got.AggregateID)
	assert.Equal(t, AggregateTypeCharge, got.AggregateType)
	assert.Equal(t, "corr-1", got.CorrelationID)

	var data ChargeData
	require.NoError(t, got.UnmarshalData(&data))
	assert.Equal(t, rec.ID, data.RecordID)
	assert.Equal(t, domain.ChargeStatusCreated, data.Status)
	assert.Equal(t, int64(100), data.Amount)
}

func TestProducer_PublishChargeCaptured_Error(t *testing.T) {
	pub := &mockPublisher{}
	p := NewProducer(pub, testLogger())

	pub.On("Publish", mock.Anything, TopicChargeCaptured, mock.Anything).Return(errors.New("broker down"))

	err := p.PublishChargeCaptured(context.Background(), domain.NewChargeRecord("ch_1", 100, "usd"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicChargeCaptured)
}

func TestProducer_Disabled(t *testing.T) {
	p := NewProducer(nil, testLogger())
	assert.NoError(t, p.PublishChargeFailed(context.Background(), domain.NewChargeRecord("ch_1", 1, "usd")))

	var nilProducer *Producer
	assert.NoError(t, nilProducer.PublishChargeCreated(context.Background(), domain.NewChargeRecord("ch_1", 1, "usd")))
}
