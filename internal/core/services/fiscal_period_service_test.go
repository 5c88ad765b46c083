package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
	portssvc "github.com/openacct/ledger_backend/internal/core/ports/services"
	"github.com/openacct/ledger_backend/internal/core/services"
	"github.com/openacct/ledger_backend/internal/dto"
)

// --- Mock FiscalPeriodRepository ---
type MockFiscalPeriodRepository struct {
	mock.Mock
}

var _ portsrepo.FiscalPeriodRepositoryFacade = (*MockFiscalPeriodRepository)(nil)

func (m *MockFiscalPeriodRepository) FindPeriodByID(ctx context.Context, fiscalPeriodID string) (*domain.FiscalPeriod, error) {
	args := m.Called(ctx, fiscalPeriodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) FindPeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodRepository) SavePeriod(ctx context.Context, period domain.FiscalPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockFiscalPeriodRepository) SetLocked(ctx context.Context, fiscalPeriodID string, locked bool, userID string, now time.Time) error {
	args := m.Called(ctx, fiscalPeriodID, locked, userID, now)
	return args.Error(0)
}

func (m *MockFiscalPeriodRepository) ClosePeriod(ctx context.Context, fiscalPeriodID string, userID string, now time.Time) error {
	args := m.Called(ctx, fiscalPeriodID, userID, now)
	return args.Error(0)
}

// --- Test Suite Setup ---
type FiscalPeriodServiceTestSuite struct {
	suite.Suite
	mockPeriodRepo *MockFiscalPeriodRepository
	service        portssvc.FiscalPeriodSvcFacade
	marchPeriod    domain.FiscalPeriod
	userID         string
}

func (suite *FiscalPeriodServiceTestSuite) SetupTest() {
	suite.mockPeriodRepo = new(MockFiscalPeriodRepository)
	suite.service = services.NewFiscalPeriodService(suite.mockPeriodRepo)

	suite.userID = uuid.NewString()
	suite.marchPeriod = domain.FiscalPeriod{
		FiscalPeriodID: uuid.NewString(),
		Name:           "2026-03",
		StartDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

// --- Test Cases ---

func (suite *FiscalPeriodServiceTestSuite) TestResolvePeriodForDate_Found() {
	ctx := context.Background()
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	suite.mockPeriodRepo.On("FindPeriodForDate", ctx, date).Return(&suite.marchPeriod, nil).Once()

	period, err := suite.service.ResolvePeriodForDate(ctx, date)

	suite.Require().NoError(err)
	suite.Equal(suite.marchPeriod.FiscalPeriodID, period.FiscalPeriodID)
}

func (suite *FiscalPeriodServiceTestSuite) TestResolvePeriodForDate_GapIsIntegrityError() {
	ctx := context.Background()
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	suite.mockPeriodRepo.On("FindPeriodForDate", ctx, date).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.ResolvePeriodForDate(ctx, date)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrIntegrity)
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod_Success() {
	ctx := context.Background()
	req := dto.CreateFiscalPeriodRequest{
		Name:      "2026-04",
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}

	suite.mockPeriodRepo.On("ListPeriods", ctx).Return([]domain.FiscalPeriod{suite.marchPeriod}, nil).Once()
	suite.mockPeriodRepo.On("SavePeriod", ctx, mock.AnythingOfType("domain.FiscalPeriod")).Return(nil).Once()

	period, err := suite.service.CreatePeriod(ctx, req, suite.userID)

	suite.Require().NoError(err)
	suite.Equal("2026-04", period.Name)
	suite.False(period.IsLocked)
	suite.False(period.IsClosed)
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod_EndBeforeStartRejected() {
	ctx := context.Background()
	req := dto.CreateFiscalPeriodRequest{
		Name:      "backwards",
		StartDate: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := suite.service.CreatePeriod(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockPeriodRepo.AssertNotCalled(suite.T(), "SavePeriod", mock.Anything, mock.Anything)
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod_OverlapRejected() {
	ctx := context.Background()
	req := dto.CreateFiscalPeriodRequest{
		Name:      "overlapping",
		StartDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC),
	}

	suite.mockPeriodRepo.On("ListPeriods", ctx).Return([]domain.FiscalPeriod{suite.marchPeriod}, nil).Once()

	_, err := suite.service.CreatePeriod(ctx, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrPeriodOverlap)
	suite.mockPeriodRepo.AssertNotCalled(suite.T(), "SavePeriod", mock.Anything, mock.Anything)
}

func (suite *FiscalPeriodServiceTestSuite) TestCreatePeriod_AdjacentPeriodsAccepted() {
	ctx := context.Background()
	req := dto.CreateFiscalPeriodRequest{
		Name:      "2026-04",
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}

	suite.mockPeriodRepo.On("ListPeriods", ctx).Return([]domain.FiscalPeriod{suite.marchPeriod}, nil).Once()
	suite.mockPeriodRepo.On("SavePeriod", ctx, mock.AnythingOfType("domain.FiscalPeriod")).Return(nil).Once()

	_, err := suite.service.CreatePeriod(ctx, req, suite.userID)

	suite.NoError(err)
}

func (suite *FiscalPeriodServiceTestSuite) TestSetPeriodLocked_Success() {
	ctx := context.Background()

	suite.mockPeriodRepo.On("FindPeriodByID", ctx, suite.marchPeriod.FiscalPeriodID).Return(&suite.marchPeriod, nil).Once()
	suite.mockPeriodRepo.On("SetLocked", ctx, suite.marchPeriod.FiscalPeriodID, true, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.SetPeriodLocked(ctx, suite.marchPeriod.FiscalPeriodID, true, suite.userID)

	suite.NoError(err)
}

func (suite *FiscalPeriodServiceTestSuite) TestSetPeriodLocked_ClosedPeriodRejected() {
	ctx := context.Background()
	closed := suite.marchPeriod
	closed.IsClosed = true

	suite.mockPeriodRepo.On("FindPeriodByID", ctx, closed.FiscalPeriodID).Return(&closed, nil).Once()

	err := suite.service.SetPeriodLocked(ctx, closed.FiscalPeriodID, false, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrPeriodClosed)
	suite.mockPeriodRepo.AssertNotCalled(suite.T(), "SetLocked", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod_Success() {
	ctx := context.Background()

	suite.mockPeriodRepo.On("FindPeriodByID", ctx, suite.marchPeriod.FiscalPeriodID).Return(&suite.marchPeriod, nil).Once()
	suite.mockPeriodRepo.On("ClosePeriod", ctx, suite.marchPeriod.FiscalPeriodID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.ClosePeriod(ctx, suite.marchPeriod.FiscalPeriodID, suite.userID)

	suite.NoError(err)
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod_AlreadyClosedRejected() {
	ctx := context.Background()
	closed := suite.marchPeriod
	closed.IsClosed = true

	suite.mockPeriodRepo.On("FindPeriodByID", ctx, closed.FiscalPeriodID).Return(&closed, nil).Once()

	err := suite.service.ClosePeriod(ctx, closed.FiscalPeriodID, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrPeriodClosed)
	suite.mockPeriodRepo.AssertNotCalled(suite.T(), "ClosePeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFiscalPeriodServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FiscalPeriodServiceTestSuite))
}
