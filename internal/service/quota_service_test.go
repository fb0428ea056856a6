package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestQuotaService(repo *MockRepository, cache *MockRedisClient) QuotaService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewQuotaService(repo, cache, log)
}

func TestCheckLimitAllowsWhenUnderLimit(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	mockRepo.quota.On("FindCount", mock.Anything, uint(3), models.ResourceKindVM).
		Return(&models.ResourceCount{DepartmentID: 3, Count: 4, Limit: 10}, nil)

	caller := models.Caller{UserID: 7, DepartmentID: 3}
	require.NoError(t, svc.CheckLimit(context.Background(), caller, models.ResourceKindVM))
}

func TestCheckLimitRejectsAtLimit(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	mockRepo.quota.On("FindCount", mock.Anything, uint(3), models.ResourceKindVM).
		Return(&models.ResourceCount{DepartmentID: 3, Count: 10, Limit: 10}, nil)

	caller := models.Caller{UserID: 7, DepartmentID: 3}
	err := svc.CheckLimit(context.Background(), caller, models.ResourceKindVM)
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCheckLimitZeroLimitMeansUnlimited(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	mockRepo.quota.On("FindCount", mock.Anything, uint(3), models.ResourceKindVolume).
		Return(&models.ResourceCount{DepartmentID: 3, Count: 5000, Limit: 0}, nil)

	caller := models.Caller{DepartmentID: 3}
	require.NoError(t, svc.CheckLimit(context.Background(), caller, models.ResourceKindVolume))
}

func TestCheckLimitMissingCountRowAllows(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	mockRepo.quota.On("FindCount", mock.Anything, uint(3), models.ResourceKindSnapshot).
		Return(nil, repository.ErrNotFound)

	caller := models.Caller{DepartmentID: 3}
	require.NoError(t, svc.CheckLimit(context.Background(), caller, models.ResourceKindSnapshot))
}

func TestCheckLimitRejectsUnknownKind(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	err := svc.CheckLimit(context.Background(), models.Caller{DepartmentID: 3}, "template")
	require.Error(t, err)
	mockRepo.quota.AssertNotCalled(t, "FindCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCountIncrementsThroughGivenRepository(t *testing.T) {
	mockRepo := newMockRepository()
	mockCache := new(MockRedisClient)
	svc := newTestQuotaService(mockRepo, mockCache)

	// The adjustment runs against the repository the caller passes in, so a
	// transaction-bound repository carries it inside the transaction
	txRepo := newMockRepository()
	txRepo.quota.On("AdjustCount", mock.Anything, uint(3), models.ResourceKindVM, int64(1)).
		Return(int64(5), nil)

	count, err := svc.UpdateCount(context.Background(), txRepo, 3, models.ResourceKindVM, CountActionCreate)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)
	txRepo.quota.AssertExpectations(t)
	mockRepo.quota.AssertNotCalled(t, "AdjustCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCountDecrementsOnDelete(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	mockRepo.quota.On("AdjustCount", mock.Anything, uint(3), models.ResourceKindIP, int64(-1)).
		Return(int64(2), nil)

	count, err := svc.UpdateCount(context.Background(), mockRepo, 3, models.ResourceKindIP, CountActionDelete)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	mockRepo.quota.AssertExpectations(t)
}

func TestUpdateCountDatabaseFailurePropagates(t *testing.T) {
	mockRepo := newMockRepository()
	svc := newTestQuotaService(mockRepo, new(MockRedisClient))

	mockRepo.quota.On("AdjustCount", mock.Anything, uint(3), models.ResourceKindVM, int64(1)).
		Return(int64(0), errors.New("deadlock detected"))

	_, err := svc.UpdateCount(context.Background(), mockRepo, 3, models.ResourceKindVM, CountActionCreate)
	require.Error(t, err)
}

func TestMirrorCountWritesCache(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestQuotaService(newMockRepository(), mockCache)

	mockCache.On("Set", mock.Anything, "rescount:3:vm", "5", 24*time.Hour).Return(nil)

	svc.MirrorCount(context.Background(), 3, models.ResourceKindVM, 5)
	mockCache.AssertExpectations(t)
}

func TestMirrorCountCacheFailureIsNotFatal(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestQuotaService(newMockRepository(), mockCache)

	mockCache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection refused"))

	svc.MirrorCount(context.Background(), 3, models.ResourceKindVM, 5)
	mockCache.AssertExpectations(t)
}
