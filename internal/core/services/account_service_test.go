package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/openacct/ledger_backend/internal/core/ports/services"
	"github.com/openacct/ledger_backend/internal/core/services"
	"github.com/openacct/ledger_backend/internal/dto"
)

// --- Mock AccountRepository ---
type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, accountCode string) (*domain.Account, error) {
	args := m.Called(ctx, accountCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByCodes(ctx context.Context, accountCodes []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountCodes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) HasChildAccounts(ctx context.Context, accountCode string) (bool, error) {
	args := m.Called(ctx, accountCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountCode string, userID string, now time.Time) error {
	args := m.Called(ctx, accountCode, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountsByCodesForShare(ctx context.Context, tx pgx.Tx, accountCodes []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tx, accountCodes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) HasChildAccountsInTx(ctx context.Context, tx pgx.Tx, accountCode string) (bool, error) {
	args := m.Called(ctx, tx, accountCode)
	return args.Bool(0), args.Error(1)
}

// --- Test Suite Setup ---
type AccountServiceTestSuite struct {
	suite.Suite
	mockAccountRepo *MockAccountRepository
	service         portssvc.AccountSvcFacade
	assetParent     domain.Account
	userID          string
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewAccountService(suite.mockAccountRepo)

	suite.userID = uuid.NewString()
	suite.assetParent = domain.Account{
		AccountID:   uuid.NewString(),
		AccountCode: "1000",
		Name:        "Current Assets",
		AccountType: domain.Asset,
		IsActive:    true,
	}
}

// --- Test Cases ---

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		AccountCode: "1100",
		Name:        "Bank",
		AccountType: domain.Asset,
	}

	var saved domain.Account
	suite.mockAccountRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(domain.Account)
		}).Return(nil).Once()

	account, err := suite.service.CreateAccount(ctx, req, suite.userID)

	suite.Require().NoError(err)
	suite.Equal("1100", account.AccountCode)
	suite.True(account.IsActive)
	suite.Equal(suite.userID, saved.CreatedBy)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "FindAccountByCode", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_WithParent() {
	ctx := context.Background()
	parentCode := "1000"
	req := dto.CreateAccountRequest{
		AccountCode:       "1100",
		Name:              "Bank",
		AccountType:       domain.Asset,
		ParentAccountCode: &parentCode,
	}

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1000").Return(&suite.assetParent, nil).Once()
	suite.mockAccountRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	account, err := suite.service.CreateAccount(ctx, req, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(account.ParentAccountCode)
	suite.Equal("1000", *account.ParentAccountCode)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_MissingParentRejected() {
	ctx := context.Background()
	parentCode := "9999"
	req := dto.CreateAccountRequest{
		AccountCode:       "1100",
		Name:              "Bank",
		AccountType:       domain.Asset,
		ParentAccountCode: &parentCode,
	}

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "9999").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateAccount(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_ParentTypeMismatchRejected() {
	ctx := context.Background()
	parentCode := "1000"
	req := dto.CreateAccountRequest{
		AccountCode:       "4100",
		Name:              "Service Revenue",
		AccountType:       domain.Revenue,
		ParentAccountCode: &parentCode,
	}

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1000").Return(&suite.assetParent, nil).Once()

	_, err := suite.service.CreateAccount(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_RenamesAndStamps() {
	ctx := context.Background()
	newName := "Petty Cash"
	existing := suite.assetParent

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1000").Return(&existing, nil).Once()
	var saved domain.Account
	suite.mockAccountRepo.On("UpdateAccount", ctx, mock.AnythingOfType("domain.Account")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(domain.Account)
		}).Return(nil).Once()

	account, err := suite.service.UpdateAccount(ctx, "1000", dto.UpdateAccountRequest{Name: &newName}, suite.userID)

	suite.Require().NoError(err)
	suite.Equal("Petty Cash", account.Name)
	suite.Equal(suite.userID, saved.LastUpdatedBy)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_NoChangesSkipsWrite() {
	ctx := context.Background()
	existing := suite.assetParent

	suite.mockAccountRepo.On("FindAccountByCode", ctx, "1000").Return(&existing, nil).Once()

	account, err := suite.service.UpdateAccount(ctx, "1000", dto.UpdateAccountRequest{}, suite.userID)

	suite.Require().NoError(err)
	suite.Equal("Current Assets", account.Name)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestIsSummaryAccount() {
	ctx := context.Background()

	suite.mockAccountRepo.On("HasChildAccounts", ctx, "1000").Return(true, nil).Once()

	isSummary, err := suite.service.IsSummaryAccount(ctx, "1000")

	suite.Require().NoError(err)
	suite.True(isSummary)
}

func (suite *AccountServiceTestSuite) TestDeactivateAccount() {
	ctx := context.Background()

	suite.mockAccountRepo.On("DeactivateAccount", ctx, "1000", suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.DeactivateAccount(ctx, "1000", suite.userID)

	suite.NoError(err)
}

func (suite *AccountServiceTestSuite) TestListAccounts_DefaultsLimit() {
	ctx := context.Background()

	suite.mockAccountRepo.On("ListAccounts", ctx, 50, 0).Return([]domain.Account{suite.assetParent}, nil).Once()

	accounts, err := suite.service.ListAccounts(ctx, 0, 0)

	suite.Require().NoError(err)
	suite.Len(accounts, 1)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
