package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/openacct/ledger_backend/internal/core/ports/services"
	"github.com/openacct/ledger_backend/internal/dto"
	"github.com/openacct/ledger_backend/internal/middleware"
)

var (
	ErrPeriodOverlap  = errors.New("fiscal period overlaps an existing period")
	ErrPeriodDates    = errors.New("fiscal period end date must not precede start date")
	ErrPeriodClosed   = errors.New("fiscal period is closed")
	ErrPeriodReopened = errors.New("closed fiscal periods cannot be reopened")
)

// fiscalPeriodService maps dates to fiscal periods and manages lock/close
// transitions.
type fiscalPeriodService struct {
	periodRepo portsrepo.FiscalPeriodRepositoryFacade
}

// NewFiscalPeriodService creates a new fiscal period resolver.
func NewFiscalPeriodService(periodRepo portsrepo.FiscalPeriodRepositoryFacade) portssvc.FiscalPeriodSvcFacade {
	return &fiscalPeriodService{periodRepo: periodRepo}
}

var _ portssvc.FiscalPeriodSvcFacade = (*fiscalPeriodService)(nil)

// ResolvePeriodForDate maps a date to the single period covering it.
func (s *fiscalPeriodService) ResolvePeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	period, err := s.periodRepo.FindPeriodForDate(ctx, date)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no fiscal period covers %s", apperrors.ErrIntegrity, date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to resolve fiscal period for %s: %w", date.Format("2006-01-02"), err)
	}
	return period, nil
}

// ListPeriods retrieves all fiscal periods.
func (s *fiscalPeriodService) ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	return s.periodRepo.ListPeriods(ctx)
}

// CreatePeriod persists a new fiscal period after overlap validation.
// The repository enforces non-overlap again with an exclusion constraint.
func (s *fiscalPeriodService) CreatePeriod(ctx context.Context, req dto.CreateFiscalPeriodRequest, userID string) (*domain.FiscalPeriod, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: %s to %s", apperrors.ErrValidation, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	}

	existing, err := s.periodRepo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods for overlap check: %w", err)
	}
	for _, p := range existing {
		if !req.EndDate.Before(p.StartDate) && !req.StartDate.After(p.EndDate) {
			return nil, fmt.Errorf("%w: overlaps period %s", ErrPeriodOverlap, p.Name)
		}
	}

	now := time.Now().UTC()
	period := domain.FiscalPeriod{
		FiscalPeriodID: uuid.NewString(),
		Name:           req.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.periodRepo.SavePeriod(ctx, period); err != nil {
		logger.Error("Failed to save fiscal period", slog.String("error", err.Error()), slog.String("name", req.Name))
		return nil, fmt.Errorf("failed to save fiscal period: %w", err)
	}

	logger.Info("Fiscal period created", slog.String("fiscal_period_id", period.FiscalPeriodID), slog.String("name", period.Name))
	return &period, nil
}

// SetPeriodLocked locks or unlocks a period for posting. Closed periods
// stay closed regardless.
func (s *fiscalPeriodService) SetPeriodLocked(ctx context.Context, fiscalPeriodID string, locked bool, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	period, err := s.periodRepo.FindPeriodByID(ctx, fiscalPeriodID)
	if err != nil {
		return err
	}
	if period.IsClosed {
		return fmt.Errorf("%w: period %s", ErrPeriodClosed, period.Name)
	}

	if err := s.periodRepo.SetLocked(ctx, fiscalPeriodID, locked, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update lock state for period %s: %w", fiscalPeriodID, err)
	}

	logger.Info("Fiscal period lock state changed", slog.String("fiscal_period_id", fiscalPeriodID), slog.Bool("locked", locked))
	return nil
}

// ClosePeriod permanently closes a period and flags its ledger lines closed,
// excluding them from open balance queries.
func (s *fiscalPeriodService) ClosePeriod(ctx context.Context, fiscalPeriodID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	period, err := s.periodRepo.FindPeriodByID(ctx, fiscalPeriodID)
	if err != nil {
		return err
	}
	if period.IsClosed {
		return fmt.Errorf("%w: period %s", ErrPeriodClosed, period.Name)
	}

	if err := s.periodRepo.ClosePeriod(ctx, fiscalPeriodID, userID, time.Now().UTC()); err != nil {
		logger.Error("Failed to close fiscal period", slog.String("error", err.Error()), slog.String("fiscal_period_id", fiscalPeriodID))
		return fmt.Errorf("failed to close period %s: %w", fiscalPeriodID, err)
	}

	logger.Info("Fiscal period closed", slog.String("fiscal_period_id", fiscalPeriodID), slog.String("name", period.Name))
	return nil
}
