package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// VoucherReader defines read operations for voucher and ledger line data
type VoucherReader interface {
	// FindVoucherByNumber retrieves a voucher header by its document number.
	FindVoucherByNumber(ctx context.Context, voucherNumber string) (*domain.Voucher, error)

	// FindLinesByVoucherNumber retrieves all ledger lines of a voucher in insertion order.
	FindLinesByVoucherNumber(ctx context.Context, voucherNumber string) ([]domain.LedgerLine, error)

	// ListVouchers retrieves a paginated list of vouchers using token-based pagination.
	ListVouchers(ctx context.Context, limit int, nextToken *string) ([]domain.Voucher, *string, error)

	// ListLinesByAccountCode retrieves a paginated account statement.
	ListLinesByAccountCode(ctx context.Context, accountCode string, limit int, nextToken *string) ([]domain.LedgerLine, *string, error)
}

// VoucherWriter defines the atomic posting operation.
type VoucherWriter interface {
	// SaveVoucher persists a voucher, its ledger lines, and any shadow
	// currency entries and transaction currency context, as one database
	// transaction. When voucher.VoucherNumber is empty the per-document-type
	// sequencer is incremented inside the same transaction; a supplied number
	// leaves the sequencer untouched. The fiscal period's lock state is
	// re-checked inside the transaction before commit.
	// Returns the voucher number and the persisted lines in insertion order.
	SaveVoucher(ctx context.Context, voucher domain.Voucher, lines []domain.LedgerLine, shadowEntries []domain.CurrencyLedgerEntry, currencyContext *domain.TransactionCurrencyContext) (string, []domain.LedgerLine, error)
}

// BalanceReader defines aggregate reads over ledger lines.
type BalanceReader interface {
	// SumAccountEntries sums DEBIT and CREDIT amounts separately over
	// non-closed lines of the account, optionally bounded by voucher date.
	SumAccountEntries(ctx context.Context, accountCode string, asOf *time.Time) (debits, credits decimal.Decimal, err error)

	// TrialBalanceActivity returns per-account debit/credit aggregates for
	// every active account with nonzero activity. Pure read.
	TrialBalanceActivity(ctx context.Context, asOf *time.Time) ([]domain.AccountActivity, error)
}

// SequenceReader exposes sequencer configuration reads.
type SequenceReader interface {
	// FindSequence retrieves the counter row for a document type, or
	// apperrors.ErrNotFound when none has been created yet.
	FindSequence(ctx context.Context, documentType string) (*domain.VoucherSequence, error)
}

// SequenceTransactionSupport is the sequencer primitive. Implementations
// must serialize concurrent increments per document type; when atomicity
// cannot be guaranteed the whole posting fails rather than risking a
// duplicate number.
type SequenceTransactionSupport interface {
	// NextVoucherNumberInTx atomically increments the per-document-type
	// counter within the given transaction and returns the formatted number.
	// The counter row is created with value 0 on first use.
	NextVoucherNumberInTx(ctx context.Context, tx pgx.Tx, documentType string) (string, error)
}

// VoucherRepositoryFacade combines all voucher-related repository interfaces
type VoucherRepositoryFacade interface {
	VoucherReader
	VoucherWriter
	BalanceReader
	SequenceReader
	SequenceTransactionSupport
	TransactionManager
}
