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

var (
	ErrNoExchangeRate        = errors.New("no exchange rate available")
	ErrNoReferenceCurrency   = errors.New("no reference currency configured")
	ErrDuplicateContext      = errors.New("transaction currency context already exists")
	ErrRevaluationDisabled   = errors.New("revaluation is not enabled by the active policy")
	ErrRevaluationOfPrimary  = errors.New("the reference currency cannot be revalued")
	ErrConversionUnavailable = errors.New("conversion required but rate could not be resolved")
)

// RevaluationDocumentType names the sequencer document type of gain/loss vouchers.
const RevaluationDocumentType = "RV"

// rateScale and amountScale fix the rounding applied to resolved rates
// and converted amounts.
const (
	rateScale   = 8
	amountScale = 4
)

// CurrencyPolicyConfig carries the account codes revaluation posts against.
type CurrencyPolicyConfig struct {
	RevaluationGainAccount string
	RevaluationLossAccount string
}

// currencyPolicyService holds the policy decision tables, rate resolution
// and revaluation. The active policy and reference currency are resolved
// once per call chain into a domain.PolicySnapshot and passed explicitly.
type currencyPolicyService struct {
	currencyRepo portsrepo.CurrencyRepositoryFacade
	ledgerSvc    portssvc.LedgerSvcFacade
	cfg          CurrencyPolicyConfig
}

// NewCurrencyPolicyService creates a new currency policy engine.
func NewCurrencyPolicyService(currencyRepo portsrepo.CurrencyRepositoryFacade, ledgerSvc portssvc.LedgerSvcFacade, cfg CurrencyPolicyConfig) portssvc.CurrencyPolicySvcFacade {
	return &currencyPolicyService{
		currencyRepo: currencyRepo,
		ledgerSvc:    ledgerSvc,
		cfg:          cfg,
	}
}

var _ portssvc.CurrencyPolicySvcFacade = (*currencyPolicyService)(nil)

// ResolvePolicy loads the active policy and reference currency. A missing
// policy is not an error: the snapshot then behaves like normalization and
// callers log the fail-safe.
func (s *currencyPolicyService) ResolvePolicy(ctx context.Context) (domain.PolicySnapshot, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	snap := domain.PolicySnapshot{}

	policy, err := s.currencyRepo.FindActivePolicy(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return snap, fmt.Errorf("failed to load active currency policy: %w", err)
		}
		logger.Warn("No active currency policy; defaulting to normalization behavior")
	} else {
		snap.ActivePolicy = policy
	}

	primary, err := s.currencyRepo.FindPrimaryCurrency(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return snap, fmt.Errorf("failed to load reference currency: %w", err)
		}
		logger.Warn("No reference currency configured")
	} else {
		snap.ReferenceCurrency = primary
	}

	return snap, nil
}

// GetExchangeRate resolves the conversion rate from source to target.
// A recorded historical rate for the exact date wins; otherwise the
// configured spot rates are used: direct when the target is the reference
// currency, inverse when the source is, and a cross-rate via the reference
// currency for any other pair. An unresolvable rate is fatal for the
// conversion; the rate is never defaulted to 1.
func (s *currencyPolicyService) GetExchangeRate(ctx context.Context, sourceCode, targetCode string, date *time.Time) (decimal.Decimal, error) {
	if sourceCode == targetCode {
		return decimal.NewFromInt(1), nil
	}

	lookupDate := time.Now().UTC()
	if date != nil {
		lookupDate = *date
	}

	historical, err := s.currencyRepo.FindHistoricalRate(ctx, sourceCode, targetCode, lookupDate)
	if err == nil {
		return historical.Rate, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("failed to look up historical rate %s/%s: %w", sourceCode, targetCode, err)
	}

	source, err := s.currencyRepo.FindCurrencyByCode(ctx, sourceCode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %s", apperrors.ErrPolicy, ErrNoExchangeRate.Error(), sourceCode)
	}
	target, err := s.currencyRepo.FindCurrencyByCode(ctx, targetCode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %s", apperrors.ErrPolicy, ErrNoExchangeRate.Error(), targetCode)
	}

	switch {
	case target.IsPrimary:
		if source.ExchangeRate.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: %s: %s has no spot rate", apperrors.ErrPolicy, ErrNoExchangeRate.Error(), sourceCode)
		}
		return source.ExchangeRate, nil
	case source.IsPrimary:
		if target.ExchangeRate.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: %s: %s has no spot rate", apperrors.ErrPolicy, ErrNoExchangeRate.Error(), targetCode)
		}
		return decimal.NewFromInt(1).DivRound(target.ExchangeRate, rateScale), nil
	default:
		if source.ExchangeRate.IsZero() || target.ExchangeRate.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: %s: cross rate %s/%s", apperrors.ErrPolicy, ErrNoExchangeRate.Error(), sourceCode, targetCode)
		}
		// Cross-rate via the reference currency.
		return source.ExchangeRate.DivRound(target.ExchangeRate, rateScale), nil
	}
}

// Convert converts an amount from source to target currency, rounding the
// result to 4 decimal places.
func (s *currencyPolicyService) Convert(ctx context.Context, amount decimal.Decimal, sourceCode, targetCode string, date *time.Time) (domain.ConversionOutcome, error) {
	rate, err := s.GetExchangeRate(ctx, sourceCode, targetCode, date)
	if err != nil {
		return domain.ConversionOutcome{}, err
	}
	return domain.ConversionOutcome{
		Amount: amount.Mul(rate).Round(amountScale),
		Rate:   rate,
	}, nil
}

// CreateTransactionContext computes the conversion decision and persists the
// one point-in-time currency context for a source transaction. The rate is
// resolved only when the decision involves conversion and the currencies
// differ. Duplicate contexts fail loudly; the snapshot is never overwritten.
func (s *currencyPolicyService) CreateTransactionContext(ctx context.Context, snap domain.PolicySnapshot, transactionType, transactionID, currencyCode string, amount decimal.Decimal, userRequestedConversion bool, userID string) (*domain.TransactionCurrencyContext, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	refCode := snap.ReferenceCurrencyCode()
	if refCode == "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPolicy, ErrNoReferenceCurrency.Error())
	}

	decision := snap.DetermineConversionDecision(currencyCode, userRequestedConversion)
	if snap.ActivePolicy == nil {
		logger.Warn("Creating currency context without an active policy", slog.String("transaction_id", transactionID))
	}

	now := time.Now().UTC()
	tcc := domain.TransactionCurrencyContext{
		ContextID:           uuid.NewString(),
		TransactionType:     transactionType,
		TransactionID:       transactionID,
		TransactionCurrency: currencyCode,
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

	if decision.InvolvesConversion() && currencyCode != refCode {
		outcome, err := s.Convert(ctx, amount, currencyCode, refCode, nil)
		if err != nil {
			// Conversion is mandated here, so a missing rate is fatal.
			return nil, err
		}
		tcc.ExchangeRateUsed = &outcome.Rate
		tcc.ConvertedAmount = &outcome.Amount
		tcc.ConversionOccurred = true
	}

	if err := s.currencyRepo.SaveTransactionContext(ctx, tcc); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s for %s/%s", apperrors.ErrPolicy, ErrDuplicateContext.Error(), transactionType, transactionID)
		}
		return nil, fmt.Errorf("failed to save currency context for %s/%s: %w", transactionType, transactionID, err)
	}

	logger.Info("Currency context created",
		slog.String("transaction_type", transactionType),
		slog.String("transaction_id", transactionID),
		slog.String("decision", string(tcc.Decision)))
	return &tcc, nil
}

// GetLedgerPostingAmount decides the amount and currency the ledger records
// for an original amount:
//
//  1. No policy, or the policy allows multi-currency balances -> unchanged.
//  2. A context recording a completed conversion -> its converted amount.
//  3. Transaction currency equals the reference currency -> unchanged.
//  4. The policy mandates posting-time conversion -> convert now.
//  5. Otherwise unchanged, as a last resort.
//
// A rate is never invented: case 4 fails when no rate resolves.
func (s *currencyPolicyService) GetLedgerPostingAmount(ctx context.Context, snap domain.PolicySnapshot, originalAmount decimal.Decimal, currencyCode string, tcc *domain.TransactionCurrencyContext) (domain.PostingAmount, error) {
	unchanged := domain.PostingAmount{Amount: originalAmount, CurrencyCode: currencyCode}

	if snap.AllowsMultiCurrencyBalances() {
		return unchanged, nil
	}

	refCode := snap.ReferenceCurrencyCode()

	if tcc != nil && tcc.ConversionOccurred && tcc.ConvertedAmount != nil && tcc.ExchangeRateUsed != nil {
		converted := originalAmount.Mul(*tcc.ExchangeRateUsed).Round(amountScale)
		return domain.PostingAmount{
			Amount:       converted,
			CurrencyCode: tcc.ReferenceCurrency,
			Rate:         tcc.ExchangeRateUsed,
			Converted:    true,
		}, nil
	}

	if currencyCode == refCode {
		return unchanged, nil
	}

	if s.mandatesPostingConversion(snap) {
		if refCode == "" {
			return domain.PostingAmount{}, fmt.Errorf("%w: %s", apperrors.ErrPolicy, ErrNoReferenceCurrency.Error())
		}
		outcome, err := s.Convert(ctx, originalAmount, currencyCode, refCode, nil)
		if err != nil {
			return domain.PostingAmount{}, fmt.Errorf("%w: %s %s", apperrors.ErrPolicy, ErrConversionUnavailable.Error(), currencyCode)
		}
		return domain.PostingAmount{
			Amount:       outcome.Amount,
			CurrencyCode: refCode,
			Rate:         &outcome.Rate,
			Converted:    true,
		}, nil
	}

	return unchanged, nil
}

// mandatesPostingConversion reports whether the snapshot's policy converts
// at posting time.
func (s *currencyPolicyService) mandatesPostingConversion(snap domain.PolicySnapshot) bool {
	if snap.ActivePolicy == nil {
		// Fail-safe default behaves like normalization.
		return true
	}
	switch snap.ActivePolicy.PolicyType {
	case domain.PolicyNormalization:
		return true
	case domain.PolicyValuedAsset:
		return snap.ActivePolicy.ConversionTiming == domain.TimingPosting
	default:
		return false
	}
}

// CreatePolicy persists a new currency policy record, optionally activating it.
func (s *currencyPolicyService) CreatePolicy(ctx context.Context, req dto.CreatePolicyRequest, userID string) (*domain.CurrencyPolicy, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	policy := domain.CurrencyPolicy{
		PolicyID:                   uuid.NewString(),
		Name:                       req.Name,
		PolicyType:                 req.PolicyType,
		ConversionTiming:           req.ConversionTiming,
		AllowMultiCurrencyBalances: req.AllowMultiCurrencyBalances,
		RevaluationEnabled:         req.RevaluationEnabled,
		RevaluationFrequency:       req.RevaluationFrequency,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.currencyRepo.SavePolicy(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save currency policy: %w", err)
	}

	if req.Activate {
		if err := s.currencyRepo.ActivatePolicy(ctx, policy.PolicyID, userID, now); err != nil {
			return nil, fmt.Errorf("failed to activate currency policy %s: %w", policy.PolicyID, err)
		}
		policy.IsActive = true
	}

	logger.Info("Currency policy created", slog.String("policy_id", policy.PolicyID), slog.Bool("active", policy.IsActive))
	return &policy, nil
}

// ActivatePolicy swaps the active policy. Existing transaction contexts
// keep their original snapshots; nothing is recomputed.
func (s *currencyPolicyService) ActivatePolicy(ctx context.Context, policyID string, userID string) error {
	if _, err := s.currencyRepo.FindPolicyByID(ctx, policyID); err != nil {
		return err
	}
	return s.currencyRepo.ActivatePolicy(ctx, policyID, userID, time.Now().UTC())
}

// ListPolicies retrieves all policies.
func (s *currencyPolicyService) ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error) {
	return s.currencyRepo.ListPolicies(ctx)
}

// ProcessRevaluation revalues every account holding a nonzero balance in
// the currency at the new rate. Gain/loss per account is
// (newRate − previousRate) × balance; positive values are gains. The
// aggregate gain/loss voucher, the revaluation rows and the new spot rate
// commit as one transaction.
func (s *currencyPolicyService) ProcessRevaluation(ctx context.Context, currencyCode string, newRate decimal.Decimal, fiscalPeriodID *string, userID string) (*domain.RevaluationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	snap, err := s.ResolvePolicy(ctx)
	if err != nil {
		return nil, err
	}
	if snap.ActivePolicy == nil || !snap.ActivePolicy.RevaluationEnabled {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPolicy, ErrRevaluationDisabled.Error())
	}
	if snap.ReferenceCurrency == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPolicy, ErrNoReferenceCurrency.Error())
	}
	if currencyCode == snap.ReferenceCurrency.CurrencyCode {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPolicy, ErrRevaluationOfPrimary.Error())
	}
	if newRate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: revaluation rate must be positive", apperrors.ErrValidation)
	}

	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
	if err != nil {
		return nil, err
	}
	previousRate := currency.ExchangeRate

	positions, err := s.currencyRepo.AccountsHoldingCurrency(ctx, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s positions: %w", currencyCode, err)
	}

	now := time.Now().UTC()
	result := &domain.RevaluationResult{
		TotalGain: decimal.Zero,
		TotalLoss: decimal.Zero,
		NetEffect: decimal.Zero,
	}
	rateDelta := newRate.Sub(previousRate)

	for _, pos := range positions {
		balance, err := accounting.NetBalance(pos.AccountType, pos.Debits, pos.Credits)
		if err != nil {
			return nil, fmt.Errorf("failed to compute %s balance for account %s: %w", currencyCode, pos.AccountCode, err)
		}
		if balance.IsZero() {
			continue
		}

		gainLoss := rateDelta.Mul(balance).Round(amountScale)
		rev := domain.Revaluation{
			RevaluationID:   uuid.NewString(),
			CurrencyCode:    currencyCode,
			AccountCode:     pos.AccountCode,
			PreviousRate:    previousRate,
			NewRate:         newRate,
			PreviousBalance: balance.Mul(previousRate).Round(amountScale),
			NewBalance:      balance.Mul(newRate).Round(amountScale),
			GainLoss:        gainLoss,
			FiscalPeriodID:  fiscalPeriodID,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
		result.Revaluations = append(result.Revaluations, rev)

		if gainLoss.IsPositive() {
			result.TotalGain = result.TotalGain.Add(gainLoss)
		} else {
			result.TotalLoss = result.TotalLoss.Add(gainLoss.Abs())
		}
	}
	result.NetEffect = result.TotalGain.Sub(result.TotalLoss)

	voucher, lines, err := s.prepareRevaluationVoucher(ctx, currencyCode, result, userID)
	if err != nil {
		return nil, err
	}

	adjustmentNumber, err := s.currencyRepo.SaveRevaluationRun(ctx, result.Revaluations, currencyCode, newRate, voucher, lines, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to commit revaluation run for %s: %w", currencyCode, err)
	}
	if adjustmentNumber != nil {
		for i := range result.Revaluations {
			result.Revaluations[i].AdjustmentNumber = adjustmentNumber
		}
	}

	logger.Info("Revaluation processed",
		slog.String("currency", currencyCode),
		slog.Int("positions", len(result.Revaluations)),
		slog.String("net_effect", result.NetEffect.String()))
	return result, nil
}

// prepareRevaluationVoucher assembles the aggregate gain/loss voucher
// without committing it; it persists inside the revaluation run's
// transaction. Gains debit the revalued account and credit the gain account;
// losses debit the loss account and credit the revalued account. Returns nil
// when every position nets to zero.
func (s *currencyPolicyService) prepareRevaluationVoucher(ctx context.Context, currencyCode string, result *domain.RevaluationResult, userID string) (*domain.Voucher, []domain.LedgerLine, error) {
	lines := make([]dto.PostLineRequest, 0, len(result.Revaluations)*2)
	for _, rev := range result.Revaluations {
		amount := rev.GainLoss.Abs().Round(2)
		if amount.IsZero() {
			continue
		}
		if rev.GainLoss.IsPositive() {
			lines = append(lines,
				dto.PostLineRequest{AccountCode: rev.AccountCode, EntryType: domain.Debit, Amount: amount},
				dto.PostLineRequest{AccountCode: s.cfg.RevaluationGainAccount, EntryType: domain.Credit, Amount: amount},
			)
		} else {
			lines = append(lines,
				dto.PostLineRequest{AccountCode: s.cfg.RevaluationLossAccount, EntryType: domain.Debit, Amount: amount},
				dto.PostLineRequest{AccountCode: rev.AccountCode, EntryType: domain.Credit, Amount: amount},
			)
		}
	}
	if len(lines) == 0 {
		return nil, nil, nil
	}

	voucher, domainLines, err := s.ledgerSvc.PrepareVoucher(ctx, dto.PostVoucherRequest{
		Lines:        lines,
		Description:  fmt.Sprintf("Revaluation of %s", currencyCode),
		DocumentType: RevaluationDocumentType,
	}, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare revaluation voucher for %s: %w", currencyCode, err)
	}
	return voucher, domainLines, nil
}
