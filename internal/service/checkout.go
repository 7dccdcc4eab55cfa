package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/s1037989/stripepayment/internal/charge"
	"github.com/s1037989/stripepayment/internal/domain"
	"github.com/s1037989/stripepayment/internal/provider"
	"github.com/s1037989/stripepayment/internal/repository"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
	"github.com/s1037989/stripepayment/pkg/idempotency"
	"github.com/s1037989/stripepayment/pkg/logger"
)

// EventPublisher publishes charge lifecycle events.
type EventPublisher interface {
	PublishChargeCreated(ctx context.Context, rec *domain.ChargeRecord) error
	PublishChargeCaptured(ctx context.Context, rec *domain.ChargeRecord) error
	PublishChargeFailed(ctx context.Context, rec *domain.ChargeRecord) error
}

// CheckoutInput is one checkout attempt.
type CheckoutInput struct {
	Args           charge.Args
	Defaults       charge.Lookup
	IdempotencyKey string
}

// CheckoutResult is a completed checkout.
type CheckoutResult struct {
	Record *domain.ChargeRecord `json:"record"`
	Charge provider.Charge      `json:"charge"`
}

// CheckoutService runs the create → persist → capture → update flow against
// a provider. Every step waits for the previous one to complete.
type CheckoutService struct {
	provider provider.Provider
	repo     repository.ChargeRecordRepository
	events   EventPublisher
	keys     idempotency.Store
	logger   *slog.Logger
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	p provider.Provider,
	repo repository.ChargeRecordRepository,
	events EventPublisher,
	keys idempotency.Store,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		provider: p,
		repo:     repo,
		events:   events,
		keys:     keys,
		logger:   logger,
	}
}

// Checkout creates a charge, records it, captures it when the provider left
// it uncaptured and marks the record captured. A failed step is returned as
// is; nothing is retried.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.IdempotencyKey != "" {
		ok, err := s.keys.Reserve(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, apperrors.New("IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable",
				http.StatusServiceUnavailable, apperrors.ErrServiceUnavail)
		}
		if !ok {
			return nil, apperrors.Conflict("a checkout with this idempotency key was already submitted")
		}
	}

	created := <-s.provider.CreateCharge(ctx, in.Args, in.Defaults)
	if !created.OK() {
		s.releaseKey(ctx, in.IdempotencyKey)
		return nil, created.Error()
	}

	ctx = logger.WithChargeID(ctx, created.Charge.ID)
	log := logger.WithContext(ctx, s.logger)

	rec, reused, err := s.record(ctx, created.Charge, in.IdempotencyKey)
	if err != nil {
		log.ErrorContext(ctx, "charge created but not recorded",
			slog.String("idempotency_key", in.IdempotencyKey),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if reused {
		log.InfoContext(ctx, "charge already recorded, reusing record",
			slog.String("record_id", rec.ID),
			slog.String("status", rec.Status),
		)
	} else {
		s.publish(ctx, log, s.events.PublishChargeCreated, rec)
	}

	result := &CheckoutResult{Record: rec, Charge: created.Charge}

	if !created.Charge.Captured {
		captured := <-s.provider.CaptureCharge(ctx, charge.Args{"id": rec.ChargeID})
		if !captured.OK() {
			s.markFailed(ctx, log, rec, captured.Err)
			return nil, captured.Error()
		}
		result.Charge = captured.Charge
	}

	if rec.Status != domain.ChargeStatusCaptured {
		if err := s.repo.UpdateStatus(ctx, rec.ChargeID, domain.ChargeStatusCaptured, ""); err != nil {
			return nil, err
		}
		rec.Status = domain.ChargeStatusCaptured
		s.publish(ctx, log, s.events.PublishChargeCaptured, rec)
	}

	log.InfoContext(ctx, "checkout completed",
		slog.Int64("amount", rec.Amount),
		slog.String("currency", rec.Currency),
	)
	return result, nil
}

// record stores a new record for c. When c's id is already recorded and the
// record has not failed, the stored record is returned with reused set. The
// in-process mock answers every create with the same charge id.
func (s *CheckoutService) record(ctx context.Context, c provider.Charge, key string) (rec *domain.ChargeRecord, reused bool, err error) {
	rec = domain.NewChargeRecord(c.ID, c.Amount, c.Currency)
	rec.Livemode = c.Livemode
	rec.IdempotencyKey = key

	err = s.repo.Create(ctx, rec)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, false, err
	}

	existing, getErr := s.repo.GetByChargeID(ctx, c.ID)
	if getErr != nil || existing.Status == domain.ChargeStatusFailed {
		return nil, false, err
	}
	return existing, true, nil
}

// GetRecord returns the stored record for a provider charge id.
func (s *CheckoutService) GetRecord(ctx context.Context, chargeID string) (*domain.ChargeRecord, error) {
	return s.repo.GetByChargeID(ctx, chargeID)
}

func (s *CheckoutService) markFailed(ctx context.Context, log *slog.Logger, rec *domain.ChargeRecord, reason string) {
	if err := s.repo.UpdateStatus(ctx, rec.ChargeID, domain.ChargeStatusFailed, reason); err != nil {
		log.ErrorContext(ctx, "failed to mark charge record failed", slog.String("error", err.Error()))
		return
	}
	rec.Status = domain.ChargeStatusFailed
	rec.FailureReason = reason
	s.publish(ctx, log, s.events.PublishChargeFailed, rec)
}

func (s *CheckoutService) publish(
	ctx context.Context,
	log *slog.Logger,
	fn func(context.Context, *domain.ChargeRecord) error,
	rec *domain.ChargeRecord,
) {
	if err := fn(ctx, rec); err != nil {
		log.WarnContext(ctx, "failed to publish charge event", slog.String("error", err.Error()))
	}
}

func (s *CheckoutService) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.keys.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release idempotency key", slog.String("error", err.Error()))
	}
}
