package services

import (
	"context"
	"time"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/openacct/ledger_backend/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerPosterSvc defines the posting operations of the ledger engine.
type LedgerPosterSvc interface {
	// PostTransaction validates and commits a balanced voucher atomically,
	// returning the persisted voucher with its assigned number.
	PostTransaction(ctx context.Context, req dto.PostVoucherRequest, creatorUserID string) (*domain.Voucher, error)

	// PrepareVoucher runs every posting validation and assembles the voucher
	// with its ledger lines without committing anything. Callers that must
	// persist the voucher atomically alongside other writes hand the result
	// to their repository.
	PrepareVoucher(ctx context.Context, req dto.PostVoucherRequest, creatorUserID string) (*domain.Voucher, []domain.LedgerLine, error)

	// ReverseTransaction posts a brand-new voucher that flips every line of
	// the given voucher, dated now. The original is never edited in place.
	ReverseTransaction(ctx context.Context, voucherNumber string, description *string, userID string) (*domain.Voucher, error)
}

// LedgerReaderSvc defines the read operations of the ledger engine.
type LedgerReaderSvc interface {
	// GetAccountBalance computes the account balance over non-closed lines,
	// optionally as of a date, using the central debit/credit sign rule.
	GetAccountBalance(ctx context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, error)

	// GetTrialBalanceData computes the trial balance. Pure read: identical
	// inputs produce identical output and no ledger state is mutated.
	GetTrialBalanceData(ctx context.Context, asOf *time.Time) (*domain.TrialBalanceData, error)

	// GetVoucher retrieves a voucher and its lines by document number.
	GetVoucher(ctx context.Context, voucherNumber string) (*domain.Voucher, error)

	// ListVouchers retrieves a paginated voucher list.
	ListVouchers(ctx context.Context, limit int, nextToken *string) ([]domain.Voucher, *string, error)

	// ListAccountStatement retrieves a paginated statement for one account.
	ListAccountStatement(ctx context.Context, accountCode string, limit int, nextToken *string) ([]domain.LedgerLine, *string, error)
}

// LedgerSvcFacade combines all ledger service interfaces
type LedgerSvcFacade interface {
	LedgerPosterSvc
	LedgerReaderSvc
}
