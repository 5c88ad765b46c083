package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/openacct/ledger_backend/internal/core/ports/services"
	"github.com/openacct/ledger_backend/internal/dto"
	"github.com/openacct/ledger_backend/internal/middleware"
)

var (
	ErrPrimaryExists   = errors.New("a reference currency already exists")
	ErrRateNotPositive = errors.New("exchange rate must be positive")
)

// currencyService manages the currency table and historical rates.
type currencyService struct {
	currencyRepo portsrepo.CurrencyRepositoryFacade
}

// NewCurrencyService creates a new currency service.
func NewCurrencyService(currencyRepo portsrepo.CurrencyRepositoryFacade) portssvc.CurrencySvcFacade {
	return &currencyService{currencyRepo: currencyRepo}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

// CreateCurrency registers a currency. Only one currency may be primary;
// the primary currency's spot rate is pinned to 1.
func (s *currencyService) CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, userID string) (*domain.Currency, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrValidation, ErrRateNotPositive.Error(), req.ExchangeRate.String())
	}

	if req.IsPrimary {
		existing, err := s.currencyRepo.FindPrimaryCurrency(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check for existing reference currency: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrValidation, ErrPrimaryExists.Error(), existing.CurrencyCode)
		}
	}

	now := time.Now().UTC()
	currency := domain.Currency{
		CurrencyCode: req.CurrencyCode,
		Name:         req.Name,
		Symbol:       req.Symbol,
		ExchangeRate: req.ExchangeRate,
		IsPrimary:    req.IsPrimary,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	if currency.IsPrimary {
		currency.ExchangeRate = decimal.NewFromInt(1)
	}

	if err := s.currencyRepo.SaveCurrency(ctx, currency); err != nil {
		logger.Error("Failed to save currency", slog.String("error", err.Error()), slog.String("currency_code", req.CurrencyCode))
		return nil, fmt.Errorf("failed to save currency: %w", err)
	}

	logger.Info("Currency created", slog.String("currency_code", currency.CurrencyCode), slog.Bool("primary", currency.IsPrimary))
	return &currency, nil
}

// GetCurrencyByCode retrieves a currency.
func (s *currencyService) GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	return s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
}

// ListCurrencies retrieves all configured currencies.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.currencyRepo.ListCurrencies(ctx)
}

// CreateExchangeRate records a historical rate for a pair and date. Both
// currencies must exist; recorded rates win over spot for their exact date.
func (s *currencyService) CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, userID string) (*domain.ExchangeRate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Rate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrValidation, ErrRateNotPositive.Error(), req.Rate.String())
	}
	if req.FromCurrencyCode == req.ToCurrencyCode {
		return nil, fmt.Errorf("%w: rate from %s to itself", apperrors.ErrValidation, req.FromCurrencyCode)
	}
	if _, err := s.currencyRepo.FindCurrencyByCode(ctx, req.FromCurrencyCode); err != nil {
		return nil, err
	}
	if _, err := s.currencyRepo.FindCurrencyByCode(ctx, req.ToCurrencyCode); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rate := domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: req.FromCurrencyCode,
		ToCurrencyCode:   req.ToCurrencyCode,
		Rate:             req.Rate,
		DateEffective:    req.DateEffective,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.currencyRepo.SaveExchangeRate(ctx, rate); err != nil {
		logger.Error("Failed to save exchange rate", slog.String("error", err.Error()),
			slog.String("from", req.FromCurrencyCode), slog.String("to", req.ToCurrencyCode))
		return nil, fmt.Errorf("failed to save exchange rate: %w", err)
	}

	logger.Info("Exchange rate recorded",
		slog.String("from", rate.FromCurrencyCode),
		slog.String("to", rate.ToCurrencyCode),
		slog.String("rate", rate.Rate.String()))
	return &rate, nil
}
