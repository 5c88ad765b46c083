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

// --- Test Suite Setup ---
type CurrencyServiceTestSuite struct {
	suite.Suite
	mockCurrencyRepo *MockCurrencyRepository
	service          portssvc.CurrencySvcFacade
	usd              domain.Currency
	eur              domain.Currency
	userID           string
}

func (suite *CurrencyServiceTestSuite) SetupTest() {
	suite.mockCurrencyRepo = new(MockCurrencyRepository)
	suite.service = services.NewCurrencyService(suite.mockCurrencyRepo)

	suite.userID = uuid.NewString()
	suite.usd = domain.Currency{CurrencyCode: "USD", Name: "US Dollar", ExchangeRate: decimal.NewFromInt(1), IsPrimary: true}
	suite.eur = domain.Currency{CurrencyCode: "EUR", Name: "Euro", ExchangeRate: decimal.NewFromFloat(1.10)}
}

// --- Test Cases ---

func (suite *CurrencyServiceTestSuite) TestCreateCurrency_Success() {
	ctx := context.Background()
	req := dto.CreateCurrencyRequest{
		CurrencyCode: "GBP",
		Name:         "Pound Sterling",
		Symbol:       "£",
		ExchangeRate: decimal.NewFromFloat(1.25),
	}

	suite.mockCurrencyRepo.On("SaveCurrency", ctx, mock.AnythingOfType("domain.Currency")).Return(nil).Once()

	currency, err := suite.service.CreateCurrency(ctx, req, suite.userID)

	suite.Require().NoError(err)
	suite.Equal("GBP", currency.CurrencyCode)
	suite.False(currency.IsPrimary)
	suite.True(decimal.NewFromFloat(1.25).Equal(currency.ExchangeRate))
	// A non-primary currency never checks for an existing reference currency.
	suite.mockCurrencyRepo.AssertNotCalled(suite.T(), "FindPrimaryCurrency", mock.Anything)
}

func (suite *CurrencyServiceTestSuite) TestCreateCurrency_SecondPrimaryRejected() {
	ctx := context.Background()
	req := dto.CreateCurrencyRequest{
		CurrencyCode: "EUR",
		Name:         "Euro",
		ExchangeRate: decimal.NewFromInt(1),
		IsPrimary:    true,
	}

	suite.mockCurrencyRepo.On("FindPrimaryCurrency", ctx).Return(&suite.usd, nil).Once()

	_, err := suite.service.CreateCurrency(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.ErrorContains(err, services.ErrPrimaryExists.Error())
	suite.mockCurrencyRepo.AssertNotCalled(suite.T(), "SaveCurrency", mock.Anything, mock.Anything)
}

func (suite *CurrencyServiceTestSuite) TestCreateCurrency_FirstPrimaryPinnedToOne() {
	ctx := context.Background()
	req := dto.CreateCurrencyRequest{
		CurrencyCode: "USD",
		Name:         "US Dollar",
		ExchangeRate: decimal.NewFromFloat(0.85),
		IsPrimary:    true,
	}

	suite.mockCurrencyRepo.On("FindPrimaryCurrency", ctx).Return(nil, apperrors.ErrNotFound).Once()
	var saved domain.Currency
	suite.mockCurrencyRepo.On("SaveCurrency", ctx, mock.AnythingOfType("domain.Currency")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(domain.Currency)
		}).Return(nil).Once()

	currency, err := suite.service.CreateCurrency(ctx, req, suite.userID)

	suite.Require().NoError(err)
	suite.True(currency.IsPrimary)
	// The reference currency's spot rate is always 1, whatever was sent.
	suite.True(decimal.NewFromInt(1).Equal(saved.ExchangeRate))
}

func (suite *CurrencyServiceTestSuite) TestCreateCurrency_NonPositiveRateRejected() {
	ctx := context.Background()
	req := dto.CreateCurrencyRequest{
		CurrencyCode: "XXX",
		Name:         "Broken",
		ExchangeRate: decimal.Zero,
	}

	_, err := suite.service.CreateCurrency(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockCurrencyRepo.AssertNotCalled(suite.T(), "SaveCurrency", mock.Anything, mock.Anything)
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_Success() {
	ctx := context.Background()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "USD",
		Rate:             decimal.NewFromFloat(1.0875),
		DateEffective:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	suite.mockCurrencyRepo.On("FindCurrencyByCode", ctx, "EUR").Return(&suite.eur, nil).Once()
	suite.mockCurrencyRepo.On("FindCurrencyByCode", ctx, "USD").Return(&suite.usd, nil).Once()
	suite.mockCurrencyRepo.On("SaveExchangeRate", ctx, mock.AnythingOfType("domain.ExchangeRate")).Return(nil).Once()

	rate, err := suite.service.CreateExchangeRate(ctx, req, suite.userID)

	suite.Require().NoError(err)
	suite.Equal("EUR", rate.FromCurrencyCode)
	suite.Equal("USD", rate.ToCurrencyCode)
	suite.NotEmpty(rate.ExchangeRateID)
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_SamePairRejected() {
	ctx := context.Background()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "EUR",
		Rate:             decimal.NewFromInt(1),
		DateEffective:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	_, err := suite.service.CreateExchangeRate(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_UnknownCurrencyRejected() {
	ctx := context.Background()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "ZZZ",
		ToCurrencyCode:   "USD",
		Rate:             decimal.NewFromFloat(2.5),
		DateEffective:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	suite.mockCurrencyRepo.On("FindCurrencyByCode", ctx, "ZZZ").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateExchangeRate(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockCurrencyRepo.AssertNotCalled(suite.T(), "SaveExchangeRate", mock.Anything, mock.Anything)
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_NonPositiveRateRejected() {
	ctx := context.Background()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "USD",
		Rate:             decimal.NewFromInt(-1),
		DateEffective:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	_, err := suite.service.CreateExchangeRate(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *CurrencyServiceTestSuite) TestListCurrencies() {
	ctx := context.Background()

	suite.mockCurrencyRepo.On("ListCurrencies", ctx).Return([]domain.Currency{suite.usd, suite.eur}, nil).Once()

	currencies, err := suite.service.ListCurrencies(ctx)

	suite.Require().NoError(err)
	suite.Len(currencies, 2)
}

func TestCurrencyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CurrencyServiceTestSuite))
}
