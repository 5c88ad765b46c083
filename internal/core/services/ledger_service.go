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
	"github.com/openacct/ledger_backend/internal/utils/accounting"
)

// Posting sentinels chain onto the apperrors taxonomy so callers can match
// either the specific failure or its class.
var (
	ErrVoucherMinLines   = fmt.Errorf("%w: voucher must have at least two ledger lines", apperrors.ErrValidation)
	ErrVoucherUnbalanced = fmt.Errorf("%w: voucher debits and credits do not balance", apperrors.ErrValidation)
	ErrSummaryAccount    = fmt.Errorf("%w: cannot post to a summary account", apperrors.ErrIntegrity)
	ErrAccountInactive   = fmt.Errorf("%w: account is inactive", apperrors.ErrIntegrity)
	ErrPeriodNotPostable = fmt.Errorf("%w: fiscal period is locked or closed", apperrors.ErrIntegrity)
)

// DefaultDocumentType is used when a posting request does not name one.
const DefaultDocumentType = "JV"

// LedgerConfig carries the posting toggles resolved from configuration.
type LedgerConfig struct {
	// ForbidSummaryPosting rejects lines against accounts that have children.
	ForbidSummaryPosting bool
}

// ledgerService validates and commits balanced vouchers and computes
// balances, reversals and trial balances.
type ledgerService struct {
	voucherRepo portsrepo.VoucherRepositoryFacade
	accountSvc  portssvc.AccountSvcFacade
	periodSvc   portssvc.FiscalPeriodSvcFacade
	cfg         LedgerConfig
}

// NewLedgerService creates a new ledger posting engine.
func NewLedgerService(voucherRepo portsrepo.VoucherRepositoryFacade, accountSvc portssvc.AccountSvcFacade, periodSvc portssvc.FiscalPeriodSvcFacade, cfg LedgerConfig) portssvc.LedgerSvcFacade {
	return &ledgerService{
		voucherRepo: voucherRepo,
		accountSvc:  accountSvc,
		periodSvc:   periodSvc,
		cfg:         cfg,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// validateLines checks line-level preconditions: count, entry types and
// positive amounts. Balance is checked separately so the error names the
// offending sums.
func (s *ledgerService) validateLines(lines []dto.PostLineRequest) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: got %d", ErrVoucherMinLines, len(lines))
	}

	for i, line := range lines {
		if !line.EntryType.Valid() {
			return fmt.Errorf("%w: line %d has invalid entry type %q", apperrors.ErrValidation, i, line.EntryType)
		}
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: line %d amount must be positive, got %s", apperrors.ErrValidation, i, line.Amount.String())
		}
		if line.AccountCode == "" {
			return fmt.Errorf("%w: line %d is missing an account code", apperrors.ErrValidation, i)
		}
	}
	return nil
}

// validateBalance checks the double-entry invariant within tolerance.
func (s *ledgerService) validateBalance(lines []domain.LedgerLine) error {
	debits, credits := accounting.SumByEntryType(lines)
	if !accounting.IsBalanced(debits, credits) {
		return fmt.Errorf("%w: debits %s, credits %s", ErrVoucherUnbalanced, debits.String(), credits.String())
	}
	return nil
}

// validateAccounts resolves every referenced account and rejects missing,
// inactive and summary accounts. The summary check is re-run inside the
// commit transaction by the repository so a concurrent hierarchy change
// cannot race this decision.
func (s *ledgerService) validateAccounts(ctx context.Context, codes []string) (map[string]domain.Account, error) {
	uniqueCodes := uniqueStrings(codes)
	accountsMap, err := s.accountSvc.GetAccountsByCodes(ctx, uniqueCodes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	for _, code := range uniqueCodes {
		acc, found := accountsMap[code]
		if !found {
			return nil, fmt.Errorf("%w: account %s does not exist", apperrors.ErrIntegrity, code)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s", ErrAccountInactive, code)
		}
		if s.cfg.ForbidSummaryPosting {
			isSummary, err := s.accountSvc.IsSummaryAccount(ctx, code)
			if err != nil {
				return nil, fmt.Errorf("failed to check children of account %s: %w", code, err)
			}
			if isSummary {
				return nil, fmt.Errorf("%w: account %s has child accounts", ErrSummaryAccount, code)
			}
		}
	}
	return accountsMap, nil
}

// PrepareVoucher runs every posting validation and assembles the voucher
// with its ledger lines without committing anything. PostTransaction is the
// plain commit path; callers that must persist the voucher atomically
// alongside other writes hand the prepared result to their repository.
func (s *ledgerService) PrepareVoucher(ctx context.Context, req dto.PostVoucherRequest, creatorUserID string) (*domain.Voucher, []domain.LedgerLine, error) {
	if err := s.validateLines(req.Lines); err != nil {
		return nil, nil, err
	}

	voucherDate := time.Now().UTC()
	if req.VoucherDate != nil {
		voucherDate = req.VoucherDate.UTC()
	}

	// Resolve the fiscal period once for the whole voucher. The repository
	// re-checks its lock state inside the commit transaction.
	period, err := s.periodSvc.ResolvePeriodForDate(ctx, voucherDate)
	if err != nil {
		return nil, nil, err
	}
	if !period.AcceptsPostings() {
		return nil, nil, fmt.Errorf("%w: period %s", ErrPeriodNotPostable, period.Name)
	}

	now := time.Now().UTC()
	voucherID := uuid.NewString()

	lines := make([]domain.LedgerLine, len(req.Lines))
	codes := make([]string, 0, len(req.Lines))
	for i, lineReq := range req.Lines {
		lines[i] = domain.LedgerLine{
			LedgerLineID:  uuid.NewString(),
			VoucherID:     voucherID,
			AccountCode:   lineReq.AccountCode,
			EntryType:     lineReq.EntryType,
			Amount:        lineReq.Amount,
			Description:   lineReq.Description,
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creatorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: creatorUserID,
			},
		}
		codes = append(codes, lineReq.AccountCode)
	}

	if err := s.validateBalance(lines); err != nil {
		return nil, nil, err
	}

	if _, err := s.validateAccounts(ctx, codes); err != nil {
		return nil, nil, err
	}

	documentType := req.DocumentType
	if documentType == "" {
		documentType = DefaultDocumentType
	}

	voucher := domain.Voucher{
		VoucherID:      voucherID,
		DocumentType:   documentType,
		VoucherDate:    voucherDate,
		FiscalPeriodID: period.FiscalPeriodID,
		Description:    req.Description,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if req.VoucherNumber != nil {
		voucher.VoucherNumber = *req.VoucherNumber
	}
	return &voucher, lines, nil
}

// PostTransaction validates and commits a balanced voucher atomically.
// The sequencer is only consumed when the caller did not supply a number,
// and only inside the same transaction as the voucher itself.
func (s *ledgerService) PostTransaction(ctx context.Context, req dto.PostVoucherRequest, creatorUserID string) (*domain.Voucher, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	prepared, lines, err := s.PrepareVoucher(ctx, req, creatorUserID)
	if err != nil {
		return nil, err
	}
	voucher := *prepared

	voucherNumber, savedLines, err := s.voucherRepo.SaveVoucher(ctx, voucher, lines, nil, nil)
	if err != nil {
		logger.Error("Failed to save voucher", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save voucher: %w", err)
	}

	voucher.VoucherNumber = voucherNumber
	voucher.Lines = savedLines

	logger.Info("Voucher posted", slog.String("voucher_number", voucherNumber), slog.Int("line_count", len(savedLines)))
	return &voucher, nil
}

// GetAccountBalance sums debits and credits over non-closed lines,
// optionally bounded by voucher date, then applies the central sign rule.
func (s *ledgerService) GetAccountBalance(ctx context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.accountSvc.GetAccountByCode(ctx, accountCode)
	if err != nil {
		return decimal.Zero, err
	}

	debits, credits, err := s.voucherRepo.SumAccountEntries(ctx, accountCode, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum entries for account %s: %w", accountCode, err)
	}

	balance, err := accounting.NetBalance(account.AccountType, debits, credits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance for account %s: %w", accountCode, err)
	}
	return balance, nil
}

// ReverseTransaction loads the voucher's lines, flips each entry type and
// posts the flipped set as a brand-new voucher dated now. Amounts are
// unchanged; the original voucher is never edited.
func (s *ledgerService) ReverseTransaction(ctx context.Context, voucherNumber string, description *string, userID string) (*domain.Voucher, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.voucherRepo.FindVoucherByNumber(ctx, voucherNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: voucher %s", apperrors.ErrNotFound, voucherNumber)
		}
		return nil, fmt.Errorf("failed to find voucher %s: %w", voucherNumber, err)
	}

	originalLines, err := s.voucherRepo.FindLinesByVoucherNumber(ctx, voucherNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines of voucher %s: %w", voucherNumber, err)
	}
	if len(originalLines) == 0 {
		return nil, fmt.Errorf("%w: voucher %s has no lines", apperrors.ErrIntegrity, voucherNumber)
	}

	reversalDescription := fmt.Sprintf("Reversal of voucher %s", voucherNumber)
	if description != nil && *description != "" {
		reversalDescription = *description
	}

	reverseReq := dto.PostVoucherRequest{
		Description:   reversalDescription,
		DocumentType:  original.DocumentType,
		ReferenceType: original.ReferenceType,
		ReferenceID:   original.ReferenceID,
		Lines:         make([]dto.PostLineRequest, len(originalLines)),
	}
	for i, line := range originalLines {
		reverseReq.Lines[i] = dto.PostLineRequest{
			AccountCode: line.AccountCode,
			EntryType:   line.EntryType.Opposite(),
			Amount:      line.Amount,
			Description: line.Description,
		}
	}

	reversal, err := s.PostTransaction(ctx, reverseReq, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to post reversal of voucher %s: %w", voucherNumber, err)
	}

	logger.Info("Voucher reversed", slog.String("voucher_number", voucherNumber), slog.String("reversal_number", reversal.VoucherNumber))
	return reversal, nil
}

// GetTrialBalanceData computes the trial balance for every active account
// with nonzero activity. Pure read; no ledger state changes.
func (s *ledgerService) GetTrialBalanceData(ctx context.Context, asOf *time.Time) (*domain.TrialBalanceData, error) {
	activity, err := s.voucherRepo.TrialBalanceActivity(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load trial balance activity: %w", err)
	}

	data := &domain.TrialBalanceData{
		Accounts:     make([]domain.TrialBalanceRow, 0, len(activity)),
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}

	for _, act := range activity {
		balance, err := accounting.NetBalance(act.AccountType, act.Debits, act.Credits)
		if err != nil {
			return nil, fmt.Errorf("failed to compute balance for account %s: %w", act.AccountCode, err)
		}
		if balance.IsZero() {
			continue
		}

		row := domain.TrialBalanceRow{
			AccountCode:   act.AccountCode,
			AccountName:   act.AccountName,
			AccountType:   act.AccountType,
			DebitBalance:  decimal.Zero,
			CreditBalance: decimal.Zero,
		}
		// A debit-positive balance lands in the debit column regardless of
		// account type, and vice versa.
		switch act.AccountType {
		case domain.Asset, domain.Expense:
			if balance.IsPositive() {
				row.DebitBalance = balance
			} else {
				row.CreditBalance = balance.Neg()
			}
		default:
			if balance.IsPositive() {
				row.CreditBalance = balance
			} else {
				row.DebitBalance = balance.Neg()
			}
		}

		data.TotalDebits = data.TotalDebits.Add(row.DebitBalance)
		data.TotalCredits = data.TotalCredits.Add(row.CreditBalance)
		data.Accounts = append(data.Accounts, row)
	}

	data.IsBalanced = accounting.IsBalanced(data.TotalDebits, data.TotalCredits)
	return data, nil
}

// GetVoucher retrieves a voucher and its lines by document number.
func (s *ledgerService) GetVoucher(ctx context.Context, voucherNumber string) (*domain.Voucher, error) {
	voucher, err := s.voucherRepo.FindVoucherByNumber(ctx, voucherNumber)
	if err != nil {
		return nil, err
	}

	lines, err := s.voucherRepo.FindLinesByVoucherNumber(ctx, voucherNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines of voucher %s: %w", voucherNumber, err)
	}
	voucher.Lines = lines
	return voucher, nil
}

// ListVouchers retrieves a paginated voucher list.
func (s *ledgerService) ListVouchers(ctx context.Context, limit int, nextToken *string) ([]domain.Voucher, *string, error) {
	return s.voucherRepo.ListVouchers(ctx, limit, nextToken)
}

// ListAccountStatement retrieves a paginated statement for one account.
func (s *ledgerService) ListAccountStatement(ctx context.Context, accountCode string, limit int, nextToken *string) ([]domain.LedgerLine, *string, error) {
	if _, err := s.accountSvc.GetAccountByCode(ctx, accountCode); err != nil {
		return nil, nil, err
	}
	return s.voucherRepo.ListLinesByAccountCode(ctx, accountCode, limit, nextToken)
}

// uniqueStrings returns a slice containing only the unique strings from the input.
func uniqueStrings(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, str := range input {
		if _, ok := seen[str]; !ok {
			seen[str] = struct{}{}
			result = append(result, str)
		}
	}
	return result
}
