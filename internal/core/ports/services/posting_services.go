package services

import (
	"context"
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/openacct/ledger_backend/internal/dto"
	"github.com/shopspring/decimal"
)

// MultiCurrencyPosterSvc composes the ledger engine and the policy engine.
type MultiCurrencyPosterSvc interface {
	// PostMultiCurrencyTransaction converts caller-supplied multi-currency
	// entries into ledger postings, records original-currency shadow entries
	// when the policy allows multi-currency balances, and binds one
	// transaction currency context when the call carries a reference.
	PostMultiCurrencyTransaction(ctx context.Context, req dto.PostMultiCurrencyRequest, creatorUserID string) (*domain.Voucher, *domain.TransactionCurrencyContext, error)
}

// CurrencyBalanceReaderSvc reconstructs balances per original currency.
type CurrencyBalanceReaderSvc interface {
	// GetAccountBalanceInCurrency computes an account's balance in one
	// original currency from shadow entries.
	GetAccountBalanceInCurrency(ctx context.Context, accountCode, currencyCode string) (decimal.Decimal, error)

	// GetAccountCurrencyBalances lists an account's balances per currency.
	GetAccountCurrencyBalances(ctx context.Context, accountCode string) ([]domain.CurrencyBalance, error)

	// GetMultiCurrencyTrialBalance groups shadow-entry balances per currency.
	GetMultiCurrencyTrialBalance(ctx context.Context, asOf *time.Time) (map[string][]domain.CurrencyBalance, error)
}

// MultiCurrencyPostingSvcFacade combines the orchestrator interfaces.
type MultiCurrencyPostingSvcFacade interface {
	MultiCurrencyPosterSvc
	CurrencyBalanceReaderSvc
}
