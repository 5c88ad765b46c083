package services

import (
	"context"
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/openacct/ledger_backend/internal/dto"
	"github.com/shopspring/decimal"
)

// CurrencySvcFacade defines CRUD operations for currencies and historical rates.
type CurrencySvcFacade interface {
	// CreateCurrency registers a currency.
	CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, userID string) (*domain.Currency, error)

	// GetCurrencyByCode retrieves a currency.
	GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// ListCurrencies retrieves all configured currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)

	// CreateExchangeRate records a historical rate for a pair and date.
	CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, userID string) (*domain.ExchangeRate, error)
}

// PolicyResolverSvc resolves and interrogates the currency policy.
type PolicyResolverSvc interface {
	// ResolvePolicy loads the active policy and reference currency once for
	// the current call chain. The snapshot is threaded through explicitly.
	ResolvePolicy(ctx context.Context) (domain.PolicySnapshot, error)

	// GetExchangeRate resolves the conversion rate between two currencies,
	// preferring a recorded historical rate for the exact date, then falling
	// back to configured spot rates (direct, inverse, or cross via the
	// reference currency). An unresolvable rate is apperrors.ErrPolicy.
	GetExchangeRate(ctx context.Context, sourceCode, targetCode string, date *time.Time) (decimal.Decimal, error)

	// Convert converts an amount between currencies, rounding to 4 decimal
	// places after applying the resolved rate.
	Convert(ctx context.Context, amount decimal.Decimal, sourceCode, targetCode string, date *time.Time) (domain.ConversionOutcome, error)

	// GetLedgerPostingAmount decides the amount and currency the ledger
	// should record for an original amount, per the snapshot's policy.
	// It never invents a rate: an unresolvable mandatory conversion fails.
	GetLedgerPostingAmount(ctx context.Context, snap domain.PolicySnapshot, originalAmount decimal.Decimal, currencyCode string, tcc *domain.TransactionCurrencyContext) (domain.PostingAmount, error)

	// CreateTransactionContext persists the one point-in-time currency
	// context per (transaction type, transaction ID). A second call for the
	// same identity fails with apperrors.ErrPolicy.
	CreateTransactionContext(ctx context.Context, snap domain.PolicySnapshot, transactionType, transactionID, currencyCode string, amount decimal.Decimal, userRequestedConversion bool, userID string) (*domain.TransactionCurrencyContext, error)
}

// PolicyAdminSvc defines administrative operations on currency policies.
type PolicyAdminSvc interface {
	// CreatePolicy persists a policy, optionally activating it.
	CreatePolicy(ctx context.Context, req dto.CreatePolicyRequest, userID string) (*domain.CurrencyPolicy, error)

	// ActivatePolicy swaps the active policy.
	ActivatePolicy(ctx context.Context, policyID string, userID string) error

	// ListPolicies retrieves all policies.
	ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error)
}

// RevaluationSvc recomputes foreign-currency balances at a new rate.
type RevaluationSvc interface {
	// ProcessRevaluation revalues every account holding a nonzero balance in
	// the currency, posts the aggregate gain/loss voucher, and commits the
	// revaluation rows together with the new spot rate.
	ProcessRevaluation(ctx context.Context, currencyCode string, newRate decimal.Decimal, fiscalPeriodID *string, userID string) (*domain.RevaluationResult, error)
}

// CurrencyPolicySvcFacade combines the policy engine interfaces.
type CurrencyPolicySvcFacade interface {
	PolicyResolverSvc
	PolicyAdminSvc
	RevaluationSvc
}
