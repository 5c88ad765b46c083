package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portssvc "github.com/openacct/ledger_backend/internal/core/ports/services"
	"github.com/openacct/ledger_backend/internal/core/services"
	"github.com/openacct/ledger_backend/internal/dto"
)

// --- Mock PolicyResolverSvc ---
type MockPolicyService struct {
	mock.Mock
}

var _ portssvc.PolicyResolverSvc = (*MockPolicyService)(nil)

func (m *MockPolicyService) ResolvePolicy(ctx context.Context) (domain.PolicySnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PolicySnapshot), args.Error(1)
}

func (m *MockPolicyService) GetExchangeRate(ctx context.Context, sourceCode, targetCode string, date *time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, sourceCode, targetCode, date)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPolicyService) Convert(ctx context.Context, amount decimal.Decimal, sourceCode, targetCode string, date *time.Time) (domain.ConversionOutcome, error) {
	args := m.Called(ctx, amount, sourceCode, targetCode, date)
	return args.Get(0).(domain.ConversionOutcome), args.Error(1)
}

func (m *MockPolicyService) GetLedgerPostingAmount(ctx context.Context, snap domain.PolicySnapshot, originalAmount decimal.Decimal, currencyCode string, tcc *domain.TransactionCurrencyContext) (domain.PostingAmount, error) {
	args := m.Called(ctx, snap, originalAmount, currencyCode, tcc)
	return args.Get(0).(domain.PostingAmount), args.Error(1)
}

func (m *MockPolicyService) CreateTransactionContext(ctx context.Context, snap domain.PolicySnapshot, transactionType, transactionID, currencyCode string, amount decimal.Decimal, userRequestedConversion bool, userID string) (*domain.TransactionCurrencyContext, error) {
	args := m.Called(ctx, snap, transactionType, transactionID, currencyCode, amount, userRequestedConversion, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionCurrencyContext), args.Error(1)
}

// --- Test Suite Setup ---
type MultiCurrencyPostingTestSuite struct {
	suite.Suite
	mockVoucherRepo  *MockVoucherRepository
	mockCurrencyRepo *MockCurrencyRepository
	mockAccountSvc   *MockAccountService
	mockPeriodSvc    *MockFiscalPeriodService
	mockPolicySvc    *MockPolicyService
	service          portssvc.MultiCurrencyPostingSvcFacade
	openPeriod       domain.FiscalPeriod
	bankAccount      domain.Account
	salesAccount     domain.Account
	userID           string
}

func (suite *MultiCurrencyPostingTestSuite) SetupTest() {
	suite.mockVoucherRepo = new(MockVoucherRepository)
	suite.mockCurrencyRepo = new(MockCurrencyRepository)
	suite.mockAccountSvc = new(MockAccountService)
	suite.mockPeriodSvc = new(MockFiscalPeriodService)
	suite.mockPolicySvc = new(MockPolicyService)
	suite.service = services.NewMultiCurrencyPostingService(
		suite.mockVoucherRepo,
		suite.mockCurrencyRepo,
		suite.mockAccountSvc,
		suite.mockPeriodSvc,
		suite.mockPolicySvc,
		services.LedgerConfig{ForbidSummaryPosting: true},
	)

	suite.userID = uuid.NewString()
	suite.openPeriod = domain.FiscalPeriod{
		FiscalPeriodID: uuid.NewString(),
		Name:           "2026-09",
		StartDate:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}
	suite.bankAccount = domain.Account{
		AccountID:   uuid.NewString(),
		AccountCode: "1100",
		Name:        "Bank EUR",
		AccountType: domain.Asset,
		IsActive:    true,
	}
	suite.salesAccount = domain.Account{
		AccountID:   uuid.NewString(),
		AccountCode: "4000",
		Name:        "Sales",
		AccountType: domain.Revenue,
		IsActive:    true,
	}
}

func (suite *MultiCurrencyPostingTestSuite) postingSnapshot(policyType domain.PolicyType, allowMulti bool) domain.PolicySnapshot {
	return domain.PolicySnapshot{
		ActivePolicy: &domain.CurrencyPolicy{
			PolicyID:                   uuid.NewString(),
			PolicyType:                 policyType,
			ConversionTiming:           domain.TimingPosting,
			AllowMultiCurrencyBalances: allowMulti,
			IsActive:                   true,
		},
		ReferenceCurrency: &domain.Currency{CurrencyCode: "USD", IsPrimary: true, ExchangeRate: decimal.NewFromInt(1)},
	}
}

func (suite *MultiCurrencyPostingTestSuite) expectPostableAccounts(accounts ...domain.Account) {
	accountsMap := make(map[string]domain.Account, len(accounts))
	for _, acc := range accounts {
		accountsMap[acc.AccountCode] = acc
		suite.mockAccountSvc.On("IsSummaryAccount", mock.Anything, acc.AccountCode).Return(false, nil).Maybe()
	}
	suite.mockAccountSvc.On("GetAccountsByCodes", mock.Anything, mock.AnythingOfType("[]string")).Return(accountsMap, nil).Once()
}

func eurEntries(amount decimal.Decimal) []dto.MultiCurrencyEntryRequest {
	eur := "EUR"
	return []dto.MultiCurrencyEntryRequest{
		{AccountCode: "1100", EntryType: domain.Debit, Amount: amount, CurrencyCode: &eur},
		{AccountCode: "4000", EntryType: domain.Credit, Amount: amount, CurrencyCode: &eur},
	}
}

// --- Test Cases ---

func (suite *MultiCurrencyPostingTestSuite) TestPost_NormalizationConvertsLines() {
	ctx := context.Background()
	snap := suite.postingSnapshot(domain.PolicyNormalization, false)
	rate := decimal.NewFromFloat(1.10)

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(snap, nil).Once()
	suite.mockPeriodSvc.On("ResolvePeriodForDate", ctx, mock.AnythingOfType("time.Time")).Return(&suite.openPeriod, nil).Once()
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(100), "EUR", (*domain.TransactionCurrencyContext)(nil)).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(110), CurrencyCode: "USD", Rate: &rate, Converted: true}, nil).Twice()
	suite.expectPostableAccounts(suite.bankAccount, suite.salesAccount)

	var savedLines []domain.LedgerLine
	var savedShadows []domain.CurrencyLedgerEntry
	suite.mockVoucherRepo.On("SaveVoucher", ctx, mock.AnythingOfType("domain.Voucher"), mock.AnythingOfType("[]domain.LedgerLine"), mock.AnythingOfType("[]domain.CurrencyLedgerEntry"), (*domain.TransactionCurrencyContext)(nil)).
		Run(func(args mock.Arguments) {
			savedLines = args.Get(2).([]domain.LedgerLine)
			savedShadows = args.Get(3).([]domain.CurrencyLedgerEntry)
		}).
		Return("JV-000020", []domain.LedgerLine{{}, {}}, nil).Once()

	voucher, tcc, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{
		Entries:     eurEntries(decimal.NewFromInt(100)),
		Description: "EUR sale under normalization",
	}, suite.userID)

	suite.Require().NoError(err)
	suite.Nil(tcc)
	suite.Equal("JV-000020", voucher.VoucherNumber)

	// Ledger lines carry the converted amount; shadows keep the original.
	suite.Require().Len(savedLines, 2)
	suite.True(decimal.NewFromInt(110).Equal(savedLines[0].Amount))
	suite.Require().Len(savedShadows, 2)
	suite.Equal("EUR", savedShadows[0].OriginalCurrency)
	suite.True(decimal.NewFromInt(100).Equal(savedShadows[0].OriginalAmount))
	suite.Equal("USD", savedShadows[0].PostedCurrency)
	suite.True(decimal.NewFromInt(110).Equal(savedShadows[0].PostedAmount))
	suite.Require().NotNil(savedShadows[0].ExchangeRateUsed)
	suite.True(rate.Equal(*savedShadows[0].ExchangeRateUsed))
	suite.Equal(savedLines[0].LedgerLineID, savedShadows[0].LedgerLineID)
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_UnitOfMeasureKeepsOriginalCurrencies() {
	ctx := context.Background()
	snap := suite.postingSnapshot(domain.PolicyUnitOfMeasure, true)
	eur := "EUR"

	entries := []dto.MultiCurrencyEntryRequest{
		{AccountCode: "1100", EntryType: domain.Debit, Amount: decimal.NewFromInt(100), CurrencyCode: &eur},
		{AccountCode: "4000", EntryType: domain.Credit, Amount: decimal.NewFromInt(100), CurrencyCode: &eur},
		{AccountCode: "1100", EntryType: domain.Debit, Amount: decimal.NewFromInt(40)},
		{AccountCode: "4000", EntryType: domain.Credit, Amount: decimal.NewFromInt(40)},
	}

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(snap, nil).Once()
	suite.mockPeriodSvc.On("ResolvePeriodForDate", ctx, mock.AnythingOfType("time.Time")).Return(&suite.openPeriod, nil).Once()
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(100), "EUR", (*domain.TransactionCurrencyContext)(nil)).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(100), CurrencyCode: "EUR"}, nil).Twice()
	// Entries without a currency fall back to the reference currency.
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(40), "USD", (*domain.TransactionCurrencyContext)(nil)).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(40), CurrencyCode: "USD"}, nil).Twice()
	suite.expectPostableAccounts(suite.bankAccount, suite.salesAccount)

	var savedShadows []domain.CurrencyLedgerEntry
	suite.mockVoucherRepo.On("SaveVoucher", ctx, mock.AnythingOfType("domain.Voucher"), mock.AnythingOfType("[]domain.LedgerLine"), mock.AnythingOfType("[]domain.CurrencyLedgerEntry"), (*domain.TransactionCurrencyContext)(nil)).
		Run(func(args mock.Arguments) {
			savedShadows = args.Get(3).([]domain.CurrencyLedgerEntry)
		}).
		Return("JV-000021", []domain.LedgerLine{{}, {}, {}, {}}, nil).Once()

	_, _, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{Entries: entries}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().Len(savedShadows, 4)
	suite.Equal("EUR", savedShadows[0].PostedCurrency)
	suite.Equal("EUR", savedShadows[1].PostedCurrency)
	suite.Equal("USD", savedShadows[2].PostedCurrency)
	suite.Equal("USD", savedShadows[3].PostedCurrency)
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_UnbalancedWithinCurrencyRejected() {
	ctx := context.Background()
	snap := suite.postingSnapshot(domain.PolicyUnitOfMeasure, true)
	eur := "EUR"

	// The EUR debit is offset by a USD credit: each currency is one-sided.
	entries := []dto.MultiCurrencyEntryRequest{
		{AccountCode: "1100", EntryType: domain.Debit, Amount: decimal.NewFromInt(100), CurrencyCode: &eur},
		{AccountCode: "4000", EntryType: domain.Credit, Amount: decimal.NewFromInt(100)},
	}

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(snap, nil).Once()
	suite.mockPeriodSvc.On("ResolvePeriodForDate", ctx, mock.AnythingOfType("time.Time")).Return(&suite.openPeriod, nil).Once()
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(100), "EUR", (*domain.TransactionCurrencyContext)(nil)).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(100), CurrencyCode: "EUR"}, nil).Once()
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(100), "USD", (*domain.TransactionCurrencyContext)(nil)).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(100), CurrencyCode: "USD"}, nil).Once()

	_, _, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{Entries: entries}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrUnbalancedCurrency)
	suite.mockVoucherRepo.AssertNotCalled(suite.T(), "SaveVoucher", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_ReferenceCreatesCurrencyContext() {
	ctx := context.Background()
	snap := suite.postingSnapshot(domain.PolicyNormalization, false)
	rate := decimal.NewFromFloat(1.10)
	eur := "EUR"
	refType := "INVOICE"
	refID := "inv-77"

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(snap, nil).Once()
	suite.mockPeriodSvc.On("ResolvePeriodForDate", ctx, mock.AnythingOfType("time.Time")).Return(&suite.openPeriod, nil).Once()
	suite.mockPolicySvc.On("GetExchangeRate", ctx, "EUR", "USD", (*time.Time)(nil)).Return(rate, nil).Once()
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(100), "EUR", mock.AnythingOfType("*domain.TransactionCurrencyContext")).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(110), CurrencyCode: "USD", Rate: &rate, Converted: true}, nil).Twice()
	suite.expectPostableAccounts(suite.bankAccount, suite.salesAccount)

	var savedTCC *domain.TransactionCurrencyContext
	suite.mockVoucherRepo.On("SaveVoucher", ctx, mock.AnythingOfType("domain.Voucher"), mock.AnythingOfType("[]domain.LedgerLine"), mock.AnythingOfType("[]domain.CurrencyLedgerEntry"), mock.AnythingOfType("*domain.TransactionCurrencyContext")).
		Run(func(args mock.Arguments) {
			savedTCC = args.Get(4).(*domain.TransactionCurrencyContext)
		}).
		Return("JV-000022", []domain.LedgerLine{{}, {}}, nil).Once()

	_, tcc, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{
		Entries:             eurEntries(decimal.NewFromInt(100)),
		ReferenceType:       &refType,
		ReferenceID:         &refID,
		TransactionCurrency: &eur,
	}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(tcc)
	suite.Same(savedTCC, tcc)
	suite.Equal("INVOICE", tcc.TransactionType)
	suite.Equal("inv-77", tcc.TransactionID)
	suite.Equal("EUR", tcc.TransactionCurrency)
	suite.Equal("USD", tcc.ReferenceCurrency)
	// The transaction amount defaults to the sum of debit entries.
	suite.True(decimal.NewFromInt(100).Equal(tcc.TransactionAmount))
	suite.True(tcc.ConversionOccurred)
	suite.Require().NotNil(tcc.ConvertedAmount)
	suite.True(decimal.NewFromInt(110).Equal(*tcc.ConvertedAmount))
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_DuplicateContextRejected() {
	ctx := context.Background()
	snap := suite.postingSnapshot(domain.PolicyNormalization, false)
	rate := decimal.NewFromFloat(1.10)
	eur := "EUR"
	refType := "INVOICE"
	refID := "inv-77"

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(snap, nil).Once()
	suite.mockPeriodSvc.On("ResolvePeriodForDate", ctx, mock.AnythingOfType("time.Time")).Return(&suite.openPeriod, nil).Once()
	suite.mockPolicySvc.On("GetExchangeRate", ctx, "EUR", "USD", (*time.Time)(nil)).Return(rate, nil).Once()
	suite.mockPolicySvc.On("GetLedgerPostingAmount", ctx, snap, decimal.NewFromInt(100), "EUR", mock.AnythingOfType("*domain.TransactionCurrencyContext")).
		Return(domain.PostingAmount{Amount: decimal.NewFromInt(110), CurrencyCode: "USD", Rate: &rate, Converted: true}, nil).Twice()
	suite.expectPostableAccounts(suite.bankAccount, suite.salesAccount)
	suite.mockVoucherRepo.On("SaveVoucher", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", nil, apperrors.ErrDuplicate).Once()

	_, _, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{
		Entries:             eurEntries(decimal.NewFromInt(100)),
		ReferenceType:       &refType,
		ReferenceID:         &refID,
		TransactionCurrency: &eur,
	}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrPolicy)
	suite.ErrorContains(err, services.ErrDuplicateContext.Error())
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_SingleEntryRejected() {
	ctx := context.Background()
	eur := "EUR"

	_, _, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{
		Entries: []dto.MultiCurrencyEntryRequest{
			{AccountCode: "1100", EntryType: domain.Debit, Amount: decimal.NewFromInt(100), CurrencyCode: &eur},
		},
	}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrVoucherMinLines)
	suite.mockPolicySvc.AssertNotCalled(suite.T(), "ResolvePolicy", mock.Anything)
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_NoReferenceCurrencyRejected() {
	ctx := context.Background()

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(domain.PolicySnapshot{}, nil).Once()

	_, _, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{
		Entries: eurEntries(decimal.NewFromInt(100)),
	}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrPolicy)
}

func (suite *MultiCurrencyPostingTestSuite) TestPost_LockedPeriodRejected() {
	ctx := context.Background()
	snap := suite.postingSnapshot(domain.PolicyNormalization, false)
	lockedPeriod := suite.openPeriod
	lockedPeriod.IsLocked = true

	suite.mockPolicySvc.On("ResolvePolicy", ctx).Return(snap, nil).Once()
	suite.mockPeriodSvc.On("ResolvePeriodForDate", ctx, mock.AnythingOfType("time.Time")).Return(&lockedPeriod, nil).Once()

	_, _, err := suite.service.PostMultiCurrencyTransaction(ctx, dto.PostMultiCurrencyRequest{
		Entries: eurEntries(decimal.NewFromInt(100)),
	}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrPeriodNotPostable)
}

func (suite *MultiCurrencyPostingTestSuite) TestGetAccountBalanceInCurrency() {
	ctx := context.Background()

	suite.mockAccountSvc.On("GetAccountByCode", ctx, "1100").Return(&suite.bankAccount, nil).Once()
	suite.mockCurrencyRepo.On("SumShadowEntries", ctx, "1100", "EUR").
		Return(decimal.NewFromInt(1500), decimal.NewFromInt(500), nil).Once()

	balance, err := suite.service.GetAccountBalanceInCurrency(ctx, "1100", "EUR")

	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(1000).Equal(balance))
}

func (suite *MultiCurrencyPostingTestSuite) TestGetAccountCurrencyBalances() {
	ctx := context.Background()
	rows := []domain.CurrencyBalance{
		{AccountCode: "1100", AccountType: domain.Asset, CurrencyCode: "EUR", Debits: decimal.NewFromInt(300), Credits: decimal.NewFromInt(100)},
		{AccountCode: "1100", AccountType: domain.Asset, CurrencyCode: "GBP", Debits: decimal.NewFromInt(50), Credits: decimal.NewFromInt(80)},
	}

	suite.mockAccountSvc.On("GetAccountByCode", ctx, "1100").Return(&suite.bankAccount, nil).Once()
	suite.mockCurrencyRepo.On("CurrencyBalancesByAccount", ctx, "1100").Return(rows, nil).Once()

	balances, err := suite.service.GetAccountCurrencyBalances(ctx, "1100")

	suite.Require().NoError(err)
	suite.Require().Len(balances, 2)
	suite.True(decimal.NewFromInt(200).Equal(balances[0].Balance))
	suite.True(decimal.NewFromInt(-30).Equal(balances[1].Balance))
}

func (suite *MultiCurrencyPostingTestSuite) TestGetMultiCurrencyTrialBalance() {
	ctx := context.Background()
	grouped := map[string][]domain.CurrencyBalance{
		"EUR": {
			{AccountCode: "1100", AccountType: domain.Asset, CurrencyCode: "EUR", Debits: decimal.NewFromInt(300), Credits: decimal.NewFromInt(100)},
			{AccountCode: "4000", AccountType: domain.Revenue, CurrencyCode: "EUR", Debits: decimal.Zero, Credits: decimal.NewFromInt(200)},
		},
	}

	suite.mockCurrencyRepo.On("TrialBalanceActivityByCurrency", ctx, (*time.Time)(nil)).Return(grouped, nil).Once()

	result, err := suite.service.GetMultiCurrencyTrialBalance(ctx, nil)

	suite.Require().NoError(err)
	suite.Require().Len(result["EUR"], 2)
	suite.True(decimal.NewFromInt(200).Equal(result["EUR"][0].Balance))
	suite.True(decimal.NewFromInt(200).Equal(result["EUR"][1].Balance))
}

func TestMultiCurrencyPostingTestSuite(t *testing.T) {
	suite.Run(t, new(MultiCurrencyPostingTestSuite))
}
