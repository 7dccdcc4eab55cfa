package domain

import (
	"time"

	"github.com/google/uuid"
)

// Charge record status constants.
const (
	ChargeStatusCreated  = "created"
	ChargeStatusCaptured = "captured"
	ChargeStatusFailed   = "failed"
)

// ChargeRecord is the host's own record of a provider charge. ChargeID is the
// provider's id and the lookup key.
type ChargeRecord struct {
	ID             string    `json:"id"`
	ChargeID       string    `json:"charge_id"`
	Status         string    `json:"status"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Livemode       bool      `json:"livemode"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewChargeRecord returns a record in the created state.
func NewChargeRecord(chargeID string, amount int64, currency string) *ChargeRecord {
	now := time.Now().UTC()
	return &ChargeRecord{
		ID:        uuid.New().String(),
		ChargeID:  chargeID,
		Status:    ChargeStatusCreated,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsValidChargeStatus checks whether status is a known record status.
func IsValidChargeStatus(status string) bool {
	switch status {
	case ChargeStatusCreated, ChargeStatusCaptured, ChargeStatusFailed:
		return true
	}
	return false
}

var transitions = map[string][]string{
	ChargeStatusCreated: {ChargeStatusCaptured, ChargeStatusFailed},
}

// CanTransition reports whether a record may move from one status to another.
// Records only move forward out of created.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionSources returns the statuses a record may move to status from.
func TransitionSources(status string) []string {
	var out []string
	for _, from := range []string{ChargeStatusCreated, ChargeStatusCaptured, ChargeStatusFailed} {
		if CanTransition(from, status) {
			out = append(out, from)
		}
	}
	return out
}
