package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/s1037989/stripepayment/internal/domain"
	"github.com/s1037989/stripepayment/pkg/database"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
)

const uniqueViolation = "23505"

// ChargeRecordRepository implements repository.ChargeRecordRepository using PostgreSQL.
type ChargeRecordRepository struct {
	db     database.DBTX
	tracer database.QueryTracer
}

// NewChargeRecordRepository creates a PostgreSQL-backed charge record repository.
func NewChargeRecordRepository(db database.DBTX, tracer database.QueryTracer) *ChargeRecordRepository {
	return &ChargeRecordRepository{db: db, tracer: tracer}
}

// Create inserts a new charge record.
func (r *ChargeRecordRepository) Create(ctx context.Context, rec *domain.ChargeRecord) (err error) {
	query := `
		INSERT INTO charge_records (id, charge_id, status, amount, currency, livemode, idempotency_key, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, end := r.tracer.Start(ctx, "CreateChargeRecord", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		rec.ID,
		rec.ChargeID,
		rec.Status,
		rec.Amount,
		rec.Currency,
		rec.Livemode,
		nullable(rec.IdempotencyKey),
		rec.FailureReason,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.Conflict(fmt.Sprintf("charge record for %s already exists", rec.ChargeID))
		}
		return fmt.Errorf("insert charge record: %w", err)
	}

	return nil
}

// GetByChargeID retrieves a record by the provider's charge id.
func (r *ChargeRecordRepository) GetByChargeID(ctx context.Context, chargeID string) (rec *domain.ChargeRecord, err error) {
	query := `
		SELECT id, charge_id, status, amount, currency, livemode, idempotency_key, failure_reason, created_at, updated_at
		FROM charge_records
		WHERE charge_id = $1`

	ctx, end := r.tracer.Start(ctx, "GetChargeRecord", query)
	defer func() { end(err) }()

	var (
		out            domain.ChargeRecord
		idempotencyKey *string
	)
	err = r.db.QueryRow(ctx, query, chargeID).Scan(
		&out.ID,
		&out.ChargeID,
		&out.Status,
		&out.Amount,
		&out.Currency,
		&out.Livemode,
		&idempotencyKey,
		&out.FailureReason,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("charge record", chargeID)
		}
		return nil, fmt.Errorf("get charge record: %w", err)
	}
	if idempotencyKey != nil {
		out.IdempotencyKey = *idempotencyKey
	}

	return &out, nil
}

// UpdateStatus moves the record for chargeID to status. The update only
// applies while the stored status may move to status; otherwise the record is
// left untouched and a conflict is returned.
func (r *ChargeRecordRepository) UpdateStatus(ctx context.Context, chargeID, status, failureReason string) (err error) {
	if !domain.IsValidChargeStatus(status) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown charge record status %q", status))
	}

	query := `
		UPDATE charge_records
		SET status = $1, failure_reason = $2, updated_at = $3
		WHERE charge_id = $4 AND status = ANY($5)`

	ctx, end := r.tracer.Start(ctx, "UpdateChargeRecordStatus", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, status, failureReason, time.Now().UTC(), chargeID, domain.TransitionSources(status))
	if err != nil {
		return fmt.Errorf("update charge record: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	current, getErr := r.GetByChargeID(ctx, chargeID)
	if getErr != nil {
		return getErr
	}
	return apperrors.Conflict(fmt.Sprintf("charge record %s cannot move from %s to %s", chargeID, current.Status, status))
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
