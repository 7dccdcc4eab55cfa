package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/s1037989/stripepayment/internal/charge"
	"github.com/s1037989/stripepayment/internal/domain"
	"github.com/s1037989/stripepayment/internal/provider"
	"github.com/s1037989/stripepayment/internal/repository/memory"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
	"github.com/s1037989/stripepayment/pkg/idempotency"
)

// --- Mock Provider ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCharge(ctx context.Context, args charge.Args, defaults charge.Lookup) <-chan provider.Result {
	a := m.Called(ctx, args, defaults)
	return provider.Done(a.Get(0).(provider.Result))
}

func (m *mockProvider) CaptureCharge(ctx context.Context, args charge.Args) <-chan provider.Result {
	a := m.Called(ctx, args)
	return provider.Done(a.Get(0).(provider.Result))
}

func (m *mockProvider) RetrieveCharge(ctx context.Context, args charge.Args) <-chan provider.Result {
	a := m.Called(ctx, args)
	return provider.Done(a.Get(0).(provider.Result))
}

func (m *mockProvider) PublicKey() string {
	return m.Called().String(0)
}

// --- Mock Event Publisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishChargeCreated(ctx context.Context, rec *domain.ChargeRecord) error {
	return m.Called(ctx, rec.ChargeID).Error(0)
}

func (m *mockEvents) PublishChargeCaptured(ctx context.Context, rec *domain.ChargeRecord) error {
	return m.Called(ctx, rec.ChargeID).Error(0)
}

func (m *mockEvents) PublishChargeFailed(ctx context.Context, rec *domain.ChargeRecord) error {
	return m.Called(ctx, rec.ChargeID).Error(0)
}

// --- Helpers ---

func newTestService(p *mockProvider, ev *mockEvents) (*CheckoutService, *memory.ChargeRecordRepository, *idempotency.MemoryStore) {
	repo := memory.NewChargeRecordRepository()
	keys := idempotency.NewMemoryStore(time.Hour)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewCheckoutService(p, repo, ev, keys, logger), repo, keys
}

func okResult(id string, captured bool) provider.Result {
	return provider.Result{
		Charge: provider.Charge{
			ID:       id,
			Object:   "charge",
			Amount:   2000,
			Currency: "usd",
			Captured: captured,
			Status:   provider.StatusSucceeded,
		},
		Payload:    map[string]any{"id": id},
		StatusCode: 200,
	}
}

func failResult(msg string) provider.Result {
	return provider.Result{
		Err:        msg,
		Payload:    map[string]any{"error": map[string]any{"message": msg}},
		StatusCode: 402,
	}
}

func checkoutArgs() charge.Args {
	return charge.Args{"amount": 2000, "source": "tok_visa", "capture": false}
}

// --- Tests ---

func TestCheckout_CreatesAndCaptures(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, repo, _ := newTestService(p, ev)
	ctx := context.Background()

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_1", false)).Once()
	p.On("CaptureCharge", mock.Anything, charge.Args{"id": "ch_1"}).Return(okResult("ch_1", true)).Once()
	ev.On("PublishChargeCreated", mock.Anything, "ch_1").Return(nil).Once()
	ev.On("PublishChargeCaptured", mock.Anything, "ch_1").Return(nil).Once()

	res, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "key-1"})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.Charge.Captured)
	assert.Equal(t, domain.ChargeStatusCaptured, res.Record.Status)
	assert.Equal(t, "key-1", res.Record.IdempotencyKey)

	stored, err := repo.GetByChargeID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusCaptured, stored.Status)
	assert.Equal(t, int64(2000), stored.Amount)

	p.AssertExpectations(t)
	ev.AssertExpectations(t)
}

func TestCheckout_AlreadyCapturedSkipsCapture(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, _, _ := newTestService(p, ev)

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_2", true)).Once()
	ev.On("PublishChargeCreated", mock.Anything, "ch_2").Return(nil)
	ev.On("PublishChargeCaptured", mock.Anything, "ch_2").Return(nil)

	res, err := svc.Checkout(context.Background(), CheckoutInput{Args: checkoutArgs()})
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusCaptured, res.Record.Status)

	p.AssertNotCalled(t, "CaptureCharge", mock.Anything, mock.Anything)
}

func TestCheckout_CreateFailed(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, _, keys := newTestService(p, ev)

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(failResult("Your card was declined.")).Once()

	res, err := svc.Checkout(context.Background(), CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "key-2"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Your card was declined.", appErr.Message)

	// The key is released so the caller may retry.
	assert.Equal(t, 0, keys.Len())
	ev.AssertNotCalled(t, "PublishChargeCreated", mock.Anything, mock.Anything)
}

func TestCheckout_CaptureFailedMarksRecord(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, repo, _ := newTestService(p, ev)
	ctx := context.Background()

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_3", false)).Once()
	p.On("CaptureCharge", mock.Anything, mock.Anything).Return(failResult("Charge already refunded")).Once()
	ev.On("PublishChargeCreated", mock.Anything, "ch_3").Return(nil).Once()
	ev.On("PublishChargeFailed", mock.Anything, "ch_3").Return(nil).Once()

	_, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))

	stored, err := repo.GetByChargeID(ctx, "ch_3")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusFailed, stored.Status)
	assert.Equal(t, "Charge already refunded", stored.FailureReason)

	ev.AssertExpectations(t)
	ev.AssertNotCalled(t, "PublishChargeCaptured", mock.Anything, mock.Anything)
}

func TestCheckout_IdempotencyReplay(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, _, _ := newTestService(p, ev)
	ctx := context.Background()

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_4", true)).Once()
	ev.On("PublishChargeCreated", mock.Anything, mock.Anything).Return(nil)
	ev.On("PublishChargeCaptured", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "same"})
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "same"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	p.AssertNumberOfCalls(t, "CreateCharge", 1)
}

func TestCheckout_EventFailureDoesNotFailCheckout(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, _, _ := newTestService(p, ev)

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_5", true)).Once()
	ev.On("PublishChargeCreated", mock.Anything, "ch_5").Return(errors.New("broker down"))
	ev.On("PublishChargeCaptured", mock.Anything, "ch_5").Return(errors.New("broker down"))

	res, err := svc.Checkout(context.Background(), CheckoutInput{Args: checkoutArgs()})
	require.NoError(t, err)
	assert.Equal(t, "ch_5", res.Record.ChargeID)
}

func TestCheckout_ReusesRecordForKnownCharge(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, repo, _ := newTestService(p, ev)
	ctx := context.Background()

	existing := domain.NewChargeRecord("ch_6", 100, "usd")
	require.NoError(t, repo.Create(ctx, existing))
	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_6", true)).Once()
	ev.On("PublishChargeCaptured", mock.Anything, "ch_6").Return(nil).Once()

	res, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "key-6"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.Record.ID)
	assert.Equal(t, domain.ChargeStatusCaptured, res.Record.Status)

	ev.AssertExpectations(t)
	ev.AssertNotCalled(t, "PublishChargeCreated", mock.Anything, mock.Anything)
}

func TestCheckout_RepeatedChargeIDKeepsWorking(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, repo, _ := newTestService(p, ev)
	ctx := context.Background()

	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_same", false))
	p.On("CaptureCharge", mock.Anything, charge.Args{"id": "ch_same"}).Return(okResult("ch_same", true))
	ev.On("PublishChargeCreated", mock.Anything, "ch_same").Return(nil).Once()
	ev.On("PublishChargeCaptured", mock.Anything, "ch_same").Return(nil).Once()

	first, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "k1"})
	require.NoError(t, err)

	second, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "k2"})
	require.NoError(t, err)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.True(t, second.Charge.Captured)

	stored, err := repo.GetByChargeID(ctx, "ch_same")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusCaptured, stored.Status)

	p.AssertNumberOfCalls(t, "CreateCharge", 2)
	ev.AssertExpectations(t)
}

func TestCheckout_FailedRecordForKnownCharge(t *testing.T) {
	p := new(mockProvider)
	ev := new(mockEvents)
	svc, repo, keys := newTestService(p, ev)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewChargeRecord("ch_7", 100, "usd")))
	require.NoError(t, repo.UpdateStatus(ctx, "ch_7", domain.ChargeStatusFailed, "declined"))
	p.On("CreateCharge", mock.Anything, mock.Anything, mock.Anything).Return(okResult("ch_7", true)).Once()

	_, err := svc.Checkout(ctx, CheckoutInput{Args: checkoutArgs(), IdempotencyKey: "key-7"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	// The charge exists at the provider, so the key stays reserved.
	assert.Equal(t, 1, keys.Len())
	ev.AssertNotCalled(t, "PublishChargeCreated", mock.Anything, mock.Anything)
}

func TestGetRecord_NotFound(t *testing.T) {
	svc, _, _ := newTestService(new(mockProvider), new(mockEvents))

	_, err := svc.GetRecord(context.Background(), "ch_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
