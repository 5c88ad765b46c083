package repositories

import (
	"context"
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
)

// FiscalPeriodReader defines read operations for fiscal period data
type FiscalPeriodReader interface {
	// FindPeriodByID retrieves a specific fiscal period by its identifier.
	FindPeriodByID(ctx context.Context, fiscalPeriodID string) (*domain.FiscalPeriod, error)

	// FindPeriodForDate resolves the single fiscal period covering the given date.
	// Returns apperrors.ErrNotFound when no period covers it.
	FindPeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error)

	// ListPeriods retrieves all fiscal periods ordered by start date.
	ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error)
}

// FiscalPeriodWriter defines administrative write operations
type FiscalPeriodWriter interface {
	// SavePeriod persists a new fiscal period. Overlapping ranges are rejected.
	SavePeriod(ctx context.Context, period domain.FiscalPeriod) error

	// SetLocked flips the lock flag of a period.
	SetLocked(ctx context.Context, fiscalPeriodID string, locked bool, userID string, now time.Time) error

	// ClosePeriod marks a period closed and flags every ledger line inside it
	// as closed, in one transaction.
	ClosePeriod(ctx context.Context, fiscalPeriodID string, userID string, now time.Time) error
}

// FiscalPeriodRepositoryFacade combines all fiscal-period repository interfaces
type FiscalPeriodRepositoryFacade interface {
	FiscalPeriodReader
	FiscalPeriodWriter
}
