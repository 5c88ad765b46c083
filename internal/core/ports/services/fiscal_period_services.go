package services

import (
	"context"
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/openacct/ledger_backend/internal/dto"
)

// FiscalPeriodReaderSvc defines read operations for fiscal periods
type FiscalPeriodReaderSvc interface {
	// ResolvePeriodForDate maps a date to the single fiscal period covering
	// it. A date outside every period yields apperrors.ErrIntegrity.
	ResolvePeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error)

	// ListPeriods retrieves all fiscal periods ordered by start date.
	ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error)
}

// FiscalPeriodWriterSvc defines administrative operations on fiscal periods
type FiscalPeriodWriterSvc interface {
	// CreatePeriod persists a new, non-overlapping fiscal period.
	CreatePeriod(ctx context.Context, req dto.CreateFiscalPeriodRequest, userID string) (*domain.FiscalPeriod, error)

	// SetPeriodLocked locks or unlocks a period for posting.
	SetPeriodLocked(ctx context.Context, fiscalPeriodID string, locked bool, userID string) error

	// ClosePeriod permanently closes a period and marks its ledger lines closed.
	ClosePeriod(ctx context.Context, fiscalPeriodID string, userID string) error
}

// FiscalPeriodSvcFacade combines all fiscal-period service interfaces
type FiscalPeriodSvcFacade interface {
	FiscalPeriodReaderSvc
	FiscalPeriodWriterSvc
}
