package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/openacct/ledger_backend/internal/core/domain"
)

// AccountReader defines read operations for chart-of-accounts data
type AccountReader interface {
	// FindAccountByCode retrieves a specific account by its business code.
	FindAccountByCode(ctx context.Context, accountCode string) (*domain.Account, error)

	// FindAccountsByCodes retrieves multiple accounts by their codes.
	FindAccountsByCodes(ctx context.Context, accountCodes []string) (map[string]domain.Account, error)

	// HasChildAccounts reports whether the account is a parent of at least one other account.
	HasChildAccounts(ctx context.Context, accountCode string) (bool, error)

	// ListAccounts retrieves a paginated list of accounts.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)
}

// AccountWriter defines write operations for chart-of-accounts data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount updates an existing account's details.
	UpdateAccount(ctx context.Context, account domain.Account) error

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, accountCode string, userID string, now time.Time) error
}

// AccountTransactionSupport defines operations that participate in a posting transaction
type AccountTransactionSupport interface {
	// FindAccountsByCodesForShare selects accounts within a transaction with a
	// share lock, so a concurrent hierarchy change cannot race the summary
	// account check of an in-flight posting.
	FindAccountsByCodesForShare(ctx context.Context, tx pgx.Tx, accountCodes []string) (map[string]domain.Account, error)

	// HasChildAccountsInTx runs the summary-account check inside the posting transaction.
	HasChildAccountsInTx(ctx context.Context, tx pgx.Tx, accountCode string) (bool, error)
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	AccountTransactionSupport
}
