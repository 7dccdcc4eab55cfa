// Package memory keeps charge records in process memory. It backs the host
// when no PostgreSQL instance is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/s1037989/stripepayment/internal/domain"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
)

// ChargeRecordRepository is a map-backed repository.ChargeRecordRepository.
type ChargeRecordRepository struct {
	mu      sync.RWMutex
	records map[string]domain.ChargeRecord
	keys    map[string]string
}

// NewChargeRecordRepository returns an empty repository.
func NewChargeRecordRepository() *ChargeRecordRepository {
	return &ChargeRecordRepository{
		records: make(map[string]domain.ChargeRecord),
		keys:    make(map[string]string),
	}
}

// Create stores a copy of rec.
func (r *ChargeRecordRepository) Create(_ context.Context, rec *domain.ChargeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ChargeID]; ok {
		return apperrors.Conflict(fmt.Sprintf("charge record for %s already exists", rec.ChargeID))
	}
	if rec.IdempotencyKey != "" {
		if _, ok := r.keys[rec.IdempotencyKey]; ok {
			return apperrors.Conflict("idempotency key already used")
		}
		r.keys[rec.IdempotencyKey] = rec.ChargeID
	}
	r.records[rec.ChargeID] = *rec
	return nil
}

// GetByChargeID returns a copy of the stored record.
func (r *ChargeRecordRepository) GetByChargeID(_ context.Context, chargeID string) (*domain.ChargeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[chargeID]
	if !ok {
		return nil, apperrors.NotFound("charge record", chargeID)
	}
	return &rec, nil
}

// UpdateStatus moves the record for chargeID to status. Moves the record's
// current status does not allow are rejected with a conflict.
func (r *ChargeRecordRepository) UpdateStatus(_ context.Context, chargeID, status, failureReason string) error {
	if !domain.IsValidChargeStatus(status) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown charge record status %q", status))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[chargeID]
	if !ok {
		return apperrors.NotFound("charge record", chargeID)
	}
	if !domain.CanTransition(rec.Status, status) {
		return apperrors.Conflict(fmt.Sprintf("charge record %s cannot move from %s to %s", chargeID, rec.Status, status))
	}
	rec.Status = status
	rec.FailureReason = failureReason
	rec.UpdatedAt = time.Now().UTC()
	r.records[chargeID] = rec
	return nil
}
