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

var ErrUnbalancedCurrency = fmt.Errorf("%w: entries do not balance within their posted currency", apperrors.ErrValidation)

// processedEntry pairs the ledger line that will be posted with the shadow
// entry preserving its original currency. Both sides travel together so a
// line and its shadow can never drift out of step.
type processedEntry struct {
	Line   domain.LedgerLine
	Shadow domain.CurrencyLedgerEntry
}

// multiCurrencyPostingService orchestrates the currency policy engine and
// the ledger posting engine: it decides per entry what amount and currency
// the ledger records, and commits lines, shadow entries and the transaction
// currency context as one database transaction.
type multiCurrencyPostingService struct {
	ledger       *ledgerService
	policySvc    portssvc.PolicyResolverSvc
	currencyRepo portsrepo.CurrencyRepositoryFacade
	accountSvc   portssvc.AccountSvcFacade
	periodSvc    portssvc.FiscalPeriodSvcFacade
	voucherRepo  portsrepo.VoucherRepositoryFacade
}

// NewMultiCurrencyPostingService creates a new multi-currency posting
// orchestrator.
func NewMultiCurrencyPostingService(
	voucherRepo portsrepo.VoucherRepositoryFacade,
	currencyRepo portsrepo.CurrencyRepositoryFacade,
	accountSvc portssvc.AccountSvcFacade,
	periodSvc portssvc.FiscalPeriodSvcFacade,
	policySvc portssvc.PolicyResolverSvc,
	cfg LedgerConfig,
) portssvc.MultiCurrencyPostingSvcFacade {
	return &multiCurrencyPostingService{
		ledger: &ledgerService{
			voucherRepo: voucherRepo,
			accountSvc:  accountSvc,
			periodSvc:   periodSvc,
			cfg:         cfg,
		},
		policySvc:    policySvc,
		currencyRepo: currencyRepo,
		accountSvc:   accountSvc,
		periodSvc:    periodSvc,
		voucherRepo:  voucherRepo,
	}
}

var _ portssvc.MultiCurrencyPostingSvcFacade = (*multiCurrencyPostingService)(nil)

// PostMultiCurrencyTransaction converts caller-supplied entries into ledger
// postings per the active policy. Each entry resolves its currency from the
// entry itself, then the transaction currency, then the reference currency.
// One transaction currency context is created when the request names a
// source transaction; lines, shadow entries and the context commit together.
func (s *multiCurrencyPostingService) PostMultiCurrencyTransaction(ctx context.Context, req dto.PostMultiCurrencyRequest, creatorUserID string) (*domain.Voucher, *domain.TransactionCurrencyContext, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.validateEntries(req.Entries); err != nil {
		return nil, nil, err
	}

	snap, err := s.policySvc.ResolvePolicy(ctx)
	if err != nil {
		return nil, nil, err
	}
	refCode := snap.ReferenceCurrencyCode()
	if refCode == "" {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrPolicy, ErrNoReferenceCurrency.Error())
	}

	transactionCurrency := refCode
	if req.TransactionCurrency != nil && *req.TransactionCurrency != "" {
		transactionCurrency = *req.TransactionCurrency
	}

	voucherDate := time.Now().UTC()
	if req.VoucherDate != nil {
		voucherDate = req.VoucherDate.UTC()
	}

	period, err := s.periodSvc.ResolvePeriodForDate(ctx, voucherDate)
	if err != nil {
		return nil, nil, err
	}
	if !period.AcceptsPostings() {
		return nil, nil, fmt.Errorf("%w: period %s", ErrPeriodNotPostable, period.Name)
	}

	var tcc *domain.TransactionCurrencyContext
	if req.ReferenceType != nil && req.ReferenceID != nil {
		tcc, err = s.buildTransactionContext(ctx, snap, req, transactionCurrency, creatorUserID)
		if err != nil {
			return nil, nil, err
		}
	}

	now := time.Now().UTC()
	voucherID := uuid.NewString()

	processed := make([]processedEntry, len(req.Entries))
	codes := make([]string, 0, len(req.Entries))
	for i, entry := range req.Entries {
		originalCurrency := transactionCurrency
		if entry.CurrencyCode != nil && *entry.CurrencyCode != "" {
			originalCurrency = *entry.CurrencyCode
		}

		// Only the entries in the transaction currency are covered by the
		// context's snapshot; other currencies resolve their own rate.
		entryTCC := tcc
		if tcc != nil && originalCurrency != tcc.TransactionCurrency {
			entryTCC = nil
		}

		posting, err := s.policySvc.GetLedgerPostingAmount(ctx, snap, entry.Amount, originalCurrency, entryTCC)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve posting amount for entry %d: %w", i, err)
		}

		lineID := uuid.NewString()
		audit := domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		}
		processed[i] = processedEntry{
			Line: domain.LedgerLine{
				LedgerLineID:  lineID,
				VoucherID:     voucherID,
				AccountCode:   entry.AccountCode,
				EntryType:     entry.EntryType,
				Amount:        posting.Amount,
				Description:   entry.Description,
				ReferenceType: req.ReferenceType,
				ReferenceID:   req.ReferenceID,
				AuditFields:   audit,
			},
			Shadow: domain.CurrencyLedgerEntry{
				EntryID:          uuid.NewString(),
				LedgerLineID:     lineID,
				AccountCode:      entry.AccountCode,
				EntryType:        entry.EntryType,
				OriginalCurrency: originalCurrency,
				OriginalAmount:   entry.Amount,
				PostedCurrency:   posting.CurrencyCode,
				PostedAmount:     posting.Amount,
				ExchangeRateUsed: posting.Rate,
				EntryDate:        voucherDate,
				AuditFields:      audit,
			},
		}
		codes = append(codes, entry.AccountCode)
	}

	if err := s.validateBalanceByCurrency(processed); err != nil {
		return nil, nil, err
	}
	if _, err := s.ledger.validateAccounts(ctx, codes); err != nil {
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

	lines := make([]domain.LedgerLine, len(processed))
	shadows := make([]domain.CurrencyLedgerEntry, len(processed))
	for i, p := range processed {
		lines[i] = p.Line
		shadows[i] = p.Shadow
	}

	voucherNumber, savedLines, err := s.voucherRepo.SaveVoucher(ctx, voucher, lines, shadows, tcc)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) && tcc != nil {
			return nil, nil, fmt.Errorf("%w: %s for %s/%s", apperrors.ErrPolicy, ErrDuplicateContext.Error(), tcc.TransactionType, tcc.TransactionID)
		}
		logger.Error("Failed to save multi-currency voucher", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to save voucher: %w", err)
	}

	voucher.VoucherNumber = voucherNumber
	voucher.Lines = savedLines

	logger.Info("Multi-currency voucher posted",
		slog.String("voucher_number", voucherNumber),
		slog.String("transaction_currency", transactionCurrency),
		slog.Int("line_count", len(savedLines)))
	return &voucher, tcc, nil
}

// validateEntries checks entry-level preconditions before any conversion.
func (s *multiCurrencyPostingService) validateEntries(entries []dto.MultiCurrencyEntryRequest) error {
	if len(entries) < 2 {
		return fmt.Errorf("%w: got %d", ErrVoucherMinLines, len(entries))
	}
	for i, entry := range entries {
		if !entry.EntryType.Valid() {
			return fmt.Errorf("%w: entry %d has invalid entry type %q", apperrors.ErrValidation, i, entry.EntryType)
		}
		if entry.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: entry %d amount must be positive, got %s", apperrors.ErrValidation, i, entry.Amount.String())
		}
		if entry.AccountCode == "" {
			return fmt.Errorf("%w: entry %d is missing an account code", apperrors.ErrValidation, i)
		}
	}
	return nil
}

// validateBalanceByCurrency checks the double-entry invariant per posted
// currency. Under normalization every entry lands in the reference currency
// and this degenerates to the single-currency check; when the policy keeps
// multi-currency balances each currency must balance on its own.
func (s *multiCurrencyPostingService) validateBalanceByCurrency(processed []processedEntry) error {
	type sums struct{ debits, credits decimal.Decimal }
	byCurrency := make(map[string]sums)
	for _, p := range processed {
		cur := byCurrency[p.Shadow.PostedCurrency]
		if p.Line.EntryType == domain.Debit {
			cur.debits = cur.debits.Add(p.Line.Amount)
		} else {
			cur.credits = cur.credits.Add(p.Line.Amount)
		}
		byCurrency[p.Shadow.PostedCurrency] = cur
	}

	for currency, cur := range byCurrency {
		if !accounting.IsBalanced(cur.debits, cur.credits) {
			return fmt.Errorf("%w: %s debits %s, credits %s", ErrUnbalancedCurrency, currency, cur.debits.String(), cur.credits.String())
		}
	}
	return nil
}

// buildTransactionContext assembles the point-in-time currency context for
// the request's source transaction without persisting it; it commits with
// the voucher. The transaction amount defaults to the sum of DEBIT entries.
func (s *multiCurrencyPostingService) buildTransactionContext(ctx context.Context, snap domain.PolicySnapshot, req dto.PostMultiCurrencyRequest, transactionCurrency, userID string) (*domain.TransactionCurrencyContext, error) {
	refCode := snap.ReferenceCurrencyCode()

	amount := decimal.Zero
	if req.TransactionAmount != nil {
		amount = *req.TransactionAmount
	} else {
		for _, entry := range req.Entries {
			if entry.EntryType == domain.Debit {
				amount = amount.Add(entry.Amount)
			}
		}
	}

	decision := snap.DetermineConversionDecision(transactionCurrency, req.UserRequestedConversion)

	now := time.Now().UTC()
	tcc := &domain.TransactionCurrencyContext{
		ContextID:           uuid.NewString(),
		TransactionType:     *req.ReferenceType,
		TransactionID:       *req.ReferenceID,
		TransactionCurrency: transactionCurrency,
		TransactionAmount:   amount,
		ReferenceCurrency:   refCode,
		Decision:            decision,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	if snap.ActivePolicy != nil {
		tcc.PolicyID = &snap.ActivePolicy.PolicyID
	}

	if decision.InvolvesConversion() && transactionCurrency != refCode {
		rate, err := s.policySvc.GetExchangeRate(ctx, transactionCurrency, refCode, nil)
		if err != nil {
			return nil, err
		}
		converted := amount.Mul(rate).Round(amountScale)
		tcc.ExchangeRateUsed = &rate
		tcc.ConvertedAmount = &converted
		tcc.ConversionOccurred = true
	}
	return tcc, nil
}

// GetAccountBalanceInCurrency computes one account's balance in one original
// currency from shadow entries, using the central sign rule.
func (s *multiCurrencyPostingService) GetAccountBalanceInCurrency(ctx context.Context, accountCode, currencyCode string) (decimal.Decimal, error) {
	account, err := s.accountSvc.GetAccountByCode(ctx, accountCode)
	if err != nil {
		return decimal.Zero, err
	}

	debits, credits, err := s.currencyRepo.SumShadowEntries(ctx, accountCode, currencyCode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s entries for account %s: %w", currencyCode, accountCode, err)
	}

	balance, err := accounting.NetBalance(account.AccountType, debits, credits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute %s balance for account %s: %w", currencyCode, accountCode, err)
	}
	return balance, nil
}

// GetAccountCurrencyBalances lists an account's balances per original currency.
func (s *multiCurrencyPostingService) GetAccountCurrencyBalances(ctx context.Context, accountCode string) ([]domain.CurrencyBalance, error) {
	if _, err := s.accountSvc.GetAccountByCode(ctx, accountCode); err != nil {
		return nil, err
	}

	balances, err := s.currencyRepo.CurrencyBalancesByAccount(ctx, accountCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load currency balances for account %s: %w", accountCode, err)
	}

	for i := range balances {
		balance, err := accounting.NetBalance(balances[i].AccountType, balances[i].Debits, balances[i].Credits)
		if err != nil {
			return nil, fmt.Errorf("failed to compute %s balance for account %s: %w", balances[i].CurrencyCode, accountCode, err)
		}
		balances[i].Balance = balance
	}
	return balances, nil
}

// GetMultiCurrencyTrialBalance groups shadow-entry balances per currency.
func (s *multiCurrencyPostingService) GetMultiCurrencyTrialBalance(ctx context.Context, asOf *time.Time) (map[string][]domain.CurrencyBalance, error) {
	grouped, err := s.currencyRepo.TrialBalanceActivityByCurrency(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load multi-currency trial balance activity: %w", err)
	}

	for currency, rows := range grouped {
		for i := range rows {
			balance, err := accounting.NetBalance(rows[i].AccountType, rows[i].Debits, rows[i].Credits)
			if err != nil {
				return nil, fmt.Errorf("failed to compute %s balance for account %s: %w", currency, rows[i].AccountCode, err)
			}
			rows[i].Balance = balance
		}
	}
	return grouped, nil
}
