package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1037989/stripepayment/internal/domain"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
)

func TestChargeRecordRepository_Lifecycle(t *testing.T) {
	repo := NewChargeRecordRepository()
	ctx := context.Background()

	rec := domain.NewChargeRecord("ch_1", 100, "usd")
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByChargeID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusCreated, got.Status)

	require.NoError(t, repo.UpdateStatus(ctx, "ch_1", domain.ChargeStatusCaptured, ""))

	got, err = repo.GetByChargeID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusCaptured, got.Status)
	assert.Equal(t, domain.ChargeStatusCreated, rec.Status, "stored record is a copy")
}

func TestChargeRecordRepository_Conflicts(t *testing.T) {
	repo := NewChargeRecordRepository()
	ctx := context.Background()

	first := domain.NewChargeRecord("ch_1", 100, "usd")
	first.IdempotencyKey = "key-1"
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, domain.NewChargeRecord("ch_1", 100, "usd"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	second := domain.NewChargeRecord("ch_2", 100, "usd")
	second.IdempotencyKey = "key-1"
	err = repo.Create(ctx, second)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestChargeRecordRepository_NotFound(t *testing.T) {
	repo := NewChargeRecordRepository()
	ctx := context.Background()

	_, err := repo.GetByChargeID(ctx, "ch_missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.UpdateStatus(ctx, "ch_missing", domain.ChargeStatusCaptured, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChargeRecordRepository_IllegalTransition(t *testing.T) {
	repo := NewChargeRecordRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewChargeRecord("ch_1", 100, "usd")))
	require.NoError(t, repo.UpdateStatus(ctx, "ch_1", domain.ChargeStatusCaptured, ""))

	err := repo.UpdateStatus(ctx, "ch_1", domain.ChargeStatusFailed, "late decline")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := repo.GetByChargeID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusCaptured, got.Status)
	assert.Empty(t, got.FailureReason)
}

func TestChargeRecordRepository_UnknownStatus(t *testing.T) {
	repo := NewChargeRecordRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewChargeRecord("ch_1", 100, "usd")))

	err := repo.UpdateStatus(ctx, "ch_1", "refunded", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
