package repositories

import (
	"context"
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CurrencyReader defines read operations for currency data
type CurrencyReader interface {
	// FindCurrencyByCode retrieves a currency by its code.
	FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// FindPrimaryCurrency retrieves the single reference currency.
	FindPrimaryCurrency(ctx context.Context) (*domain.Currency, error)

	// ListCurrencies retrieves all configured currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}

// CurrencyWriter defines write operations for currency data
type CurrencyWriter interface {
	// SaveCurrency persists a new currency.
	SaveCurrency(ctx context.Context, currency domain.Currency) error

	// SaveExchangeRate records a historical rate for a currency pair and date.
	SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error
}

// ExchangeRateReader defines historical rate lookups.
type ExchangeRateReader interface {
	// FindHistoricalRate retrieves the recorded rate for the exact pair and
	// date, or apperrors.ErrNotFound.
	FindHistoricalRate(ctx context.Context, fromCode, toCode string, date time.Time) (*domain.ExchangeRate, error)
}

// PolicyReader defines read operations for currency policies.
type PolicyReader interface {
	// FindActivePolicy retrieves the single active policy, or
	// apperrors.ErrNotFound when none is active.
	FindActivePolicy(ctx context.Context) (*domain.CurrencyPolicy, error)

	// FindPolicyByID retrieves a policy by its identifier.
	FindPolicyByID(ctx context.Context, policyID string) (*domain.CurrencyPolicy, error)

	// ListPolicies retrieves all policies.
	ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error)
}

// PolicyWriter defines administrative writes for currency policies.
type PolicyWriter interface {
	// SavePolicy persists a new policy record.
	SavePolicy(ctx context.Context, policy domain.CurrencyPolicy) error

	// ActivatePolicy activates the given policy and deactivates every other
	// one, atomically. Policies are swapped, never mutated in place.
	ActivatePolicy(ctx context.Context, policyID string, userID string, now time.Time) error
}

// ContextWriter persists transaction currency contexts.
type ContextWriter interface {
	// SaveTransactionContext persists one context row. A second context for
	// the same (transaction type, transaction ID) fails with
	// apperrors.ErrDuplicate; the snapshot is never silently overwritten.
	SaveTransactionContext(ctx context.Context, tcc domain.TransactionCurrencyContext) error
}

// ContextReader reads transaction currency contexts.
type ContextReader interface {
	// FindTransactionContext retrieves the context for a source transaction.
	FindTransactionContext(ctx context.Context, transactionType, transactionID string) (*domain.TransactionCurrencyContext, error)
}

// CurrencyBalanceReader reconstructs per-currency balances from shadow entries.
type CurrencyBalanceReader interface {
	// SumShadowEntries sums original-currency debits and credits for one
	// account in one currency.
	SumShadowEntries(ctx context.Context, accountCode, currencyCode string) (debits, credits decimal.Decimal, err error)

	// CurrencyBalancesByAccount returns every currency the account holds
	// activity in, with debit/credit aggregates.
	CurrencyBalancesByAccount(ctx context.Context, accountCode string) ([]domain.CurrencyBalance, error)

	// AccountsHoldingCurrency returns per-account aggregates for every
	// account with nonzero shadow activity in the currency.
	AccountsHoldingCurrency(ctx context.Context, currencyCode string) ([]domain.CurrencyBalance, error)

	// TrialBalanceActivityByCurrency groups shadow activity per currency and
	// account for the multi-currency trial balance.
	TrialBalanceActivityByCurrency(ctx context.Context, asOf *time.Time) (map[string][]domain.CurrencyBalance, error)
}

// RevaluationWriter persists revaluation runs.
type RevaluationWriter interface {
	// SaveRevaluationRun commits the gain/loss voucher, all revaluation rows
	// and the currency's new spot rate as one transaction; partial
	// application never survives. The voucher is nil when every position
	// netted to zero. Returns the adjustment voucher number when one was
	// posted.
	SaveRevaluationRun(ctx context.Context, revaluations []domain.Revaluation, currencyCode string, newRate decimal.Decimal, voucher *domain.Voucher, lines []domain.LedgerLine, userID string, now time.Time) (*string, error)
}

// CurrencyRepositoryFacade combines all currency-related repository interfaces
type CurrencyRepositoryFacade interface {
	CurrencyReader
	CurrencyWriter
	ExchangeRateReader
	PolicyReader
	PolicyWriter
	ContextReader
	ContextWriter
	CurrencyBalanceReader
	RevaluationWriter
}
