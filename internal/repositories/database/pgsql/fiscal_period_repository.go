package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
)

const fiscalPeriodColumns = `
	fiscal_period_id, name, start_date, end_date, is_locked, is_closed,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxFiscalPeriodRepository struct {
	BaseRepository
}

// newPgxFiscalPeriodRepository creates a new repository for fiscal period data.
func newPgxFiscalPeriodRepository(pool *pgxpool.Pool) portsrepo.FiscalPeriodRepositoryFacade {
	return &PgxFiscalPeriodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.FiscalPeriodRepositoryFacade = (*PgxFiscalPeriodRepository)(nil)

func scanFiscalPeriod(row pgx.Row) (*domain.FiscalPeriod, error) {
	var p domain.FiscalPeriod
	err := row.Scan(
		&p.FiscalPeriodID,
		&p.Name,
		&p.StartDate,
		&p.EndDate,
		&p.IsLocked,
		&p.IsClosed,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPeriodByID retrieves a specific fiscal period by its identifier.
func (r *PgxFiscalPeriodRepository) FindPeriodByID(ctx context.Context, fiscalPeriodID string) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + fiscalPeriodColumns + ` FROM fiscal_periods WHERE fiscal_period_id = $1;`
	period, err := scanFiscalPeriod(r.Pool.QueryRow(ctx, query, fiscalPeriodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find fiscal period "+fiscalPeriodID, err)
	}
	return period, nil
}

// FindPeriodForDate resolves the single period covering the date. The
// exclusion constraint on the table guarantees at most one row matches.
func (r *PgxFiscalPeriodRepository) FindPeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + fiscalPeriodColumns + ` FROM fiscal_periods WHERE $1::date BETWEEN start_date AND end_date;`
	period, err := scanFiscalPeriod(r.Pool.QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find fiscal period for date", err)
	}
	return period, nil
}

// ListPeriods retrieves all fiscal periods ordered by start date.
func (r *PgxFiscalPeriodRepository) ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	query := `SELECT ` + fiscalPeriodColumns + ` FROM fiscal_periods ORDER BY start_date;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query fiscal periods", err)
	}
	defer rows.Close()

	periods := []domain.FiscalPeriod{}
	for rows.Next() {
		period, err := scanFiscalPeriod(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan fiscal period row", err)
		}
		periods = append(periods, *period)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating fiscal period rows", err)
	}
	return periods, nil
}

// SavePeriod persists a new fiscal period. The exclusion constraint rejects
// overlapping ranges even under concurrent creation.
func (r *PgxFiscalPeriodRepository) SavePeriod(ctx context.Context, period domain.FiscalPeriod) error {
	query := `
		INSERT INTO fiscal_periods (` + fiscalPeriodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		period.FiscalPeriodID,
		period.Name,
		period.StartDate,
		period.EndDate,
		period.IsLocked,
		period.IsClosed,
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
			return apperrors.NewAppError(409, "fiscal period "+period.Name+" overlaps an existing period", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert fiscal period "+period.Name, err)
	}
	return nil
}

// SetLocked flips the lock flag of a period.
func (r *PgxFiscalPeriodRepository) SetLocked(ctx context.Context, fiscalPeriodID string, locked bool, userID string, now time.Time) error {
	query := `
		UPDATE fiscal_periods
		SET is_locked = $2,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE fiscal_period_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, fiscalPeriodID, locked, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update lock state of fiscal period "+fiscalPeriodID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("fiscal period " + fiscalPeriodID + " not found")
	}
	return nil
}

// ClosePeriod marks a period closed and flags every ledger line inside it as
// closed, in one transaction.
func (r *PgxFiscalPeriodRepository) ClosePeriod(ctx context.Context, fiscalPeriodID string, userID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	periodQuery := `
		UPDATE fiscal_periods
		SET is_closed = TRUE,
		    is_locked = TRUE,
		    last_updated_at = $2,
		    last_updated_by = $3
		WHERE fiscal_period_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, periodQuery, fiscalPeriodID, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to close fiscal period "+fiscalPeriodID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("fiscal period " + fiscalPeriodID + " not found")
	}

	linesQuery := `
		UPDATE ledger_lines
		SET is_closed = TRUE,
		    last_updated_at = $2,
		    last_updated_by = $3
		WHERE voucher_id IN (SELECT voucher_id FROM vouchers WHERE fiscal_period_id = $1);
	`
	if _, err := tx.Exec(ctx, linesQuery, fiscalPeriodID, now, userID); err != nil {
		return apperrors.NewAppError(500, "failed to close ledger lines of fiscal period "+fiscalPeriodID, err)
	}

	return r.Commit(ctx, tx)
}
