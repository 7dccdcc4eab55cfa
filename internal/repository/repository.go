package repository

import (
	"context"

	"github.com/s1037989/stripepayment/internal/domain"
)

// ChargeRecordRepository persists the host's charge records.
type ChargeRecordRepository interface {
	// Create inserts a new record. A duplicate charge id or idempotency key
	// returns apperrors.ErrConflict.
	Create(ctx context.Context, record *domain.ChargeRecord) error

	// GetByChargeID retrieves a record by the provider's charge id.
	GetByChargeID(ctx context.Context, chargeID string) (*domain.ChargeRecord, error)

	// UpdateStatus sets the status (and failure reason) of the record for chargeID.
	UpdateStatus(ctx context.Context, chargeID, status, failureReason string) error
}
