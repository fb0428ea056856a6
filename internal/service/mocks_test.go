package service

import (
	"context"
	"time"

	"example.com/cloudpanel/internal/messaging"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"

	"github.com/stretchr/testify/mock"
)

// Mock repositories for testing

type MockRepository struct {
	mock.Mock
	events    *MockEventRepository
	resources *MockResourceRepository
	quota     *MockQuotaRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		events:    new(MockEventRepository),
		resources: new(MockResourceRepository),
		quota:     new(MockQuotaRepository),
	}
}

func (m *MockRepository) Events() repository.EventRepository {
	return m.events
}

func (m *MockRepository) Resources() repository.ResourceRepository {
	return m.resources
}

func (m *MockRepository) Quota() repository.QuotaRepository {
	return m.quota
}

func (m *MockRepository) Auth() repository.AuthRepository {
	return nil
}

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo repository.Repository) error) error {
	return fn(ctx, m)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Save(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Update(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) FindByUUID(ctx context.Context, uuid string) (*models.Event, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindByJobID(ctx context.Context, jobID string) ([]*models.Event, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindByJobIDAndStatus(ctx context.Context, jobID string, status models.EventStatus) (*models.Event, error) {
	args := m.Called(ctx, jobID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindTerminalByJobID(ctx context.Context, jobID string) (*models.Event, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindByOwnerAndEventType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error) {
	args := m.Called(ctx, ownerID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindByOwnerAndEventAndStatus(ctx context.Context, ownerID uint, eventName string, status models.EventStatus) ([]*models.Event, error) {
	args := m.Called(ctx, ownerID, eventName, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindByOwnerAndJobIDAndStatus(ctx context.Context, ownerID uint, jobID string, status models.EventStatus) ([]*models.Event, error) {
	args := m.Called(ctx, ownerID, jobID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindByOwnerAndEventAndJobIDAndStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error) {
	args := m.Called(ctx, ownerID, eventName, jobID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) ListActive(ctx context.Context, paging repository.PagingAndSorting) (*repository.Page[*models.Event], error) {
	args := m.Called(ctx, paging)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Page[*models.Event]), args.Error(1)
}

func (m *MockEventRepository) ListInFlight(ctx context.Context, olderThan time.Duration) ([]*models.Event, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) ListArchivable(ctx context.Context, inactiveSince time.Time, limit int) ([]*models.Event, error) {
	args := m.Called(ctx, inactiveSince, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) SoftDelete(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Archive(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) CreateTerminal(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockResourceRepository struct {
	mock.Mock
}

func (m *MockResourceRepository) SaveVM(ctx context.Context, vm *models.VMInstance) error {
	args := m.Called(ctx, vm)
	return args.Error(0)
}

func (m *MockResourceRepository) UpdateVM(ctx context.Context, vm *models.VMInstance) error {
	args := m.Called(ctx, vm)
	return args.Error(0)
}

func (m *MockResourceRepository) FindVMByUUID(ctx context.Context, uuid string) (*models.VMInstance, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VMInstance), args.Error(1)
}

func (m *MockResourceRepository) ListVMs(ctx context.Context, departmentID uint, paging repository.PagingAndSorting) (*repository.Page[*models.VMInstance], error) {
	args := m.Called(ctx, departmentID, paging)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Page[*models.VMInstance]), args.Error(1)
}

func (m *MockResourceRepository) SaveVolume(ctx context.Context, volume *models.Volume) error {
	args := m.Called(ctx, volume)
	return args.Error(0)
}

func (m *MockResourceRepository) UpdateVolume(ctx context.Context, volume *models.Volume) error {
	args := m.Called(ctx, volume)
	return args.Error(0)
}

func (m *MockResourceRepository) FindVolumeByUUID(ctx context.Context, uuid string) (*models.Volume, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Volume), args.Error(1)
}

func (m *MockResourceRepository) ListVolumes(ctx context.Context, departmentID uint, paging repository.PagingAndSorting) (*repository.Page[*models.Volume], error) {
	args := m.Called(ctx, departmentID, paging)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Page[*models.Volume]), args.Error(1)
}

func (m *MockResourceRepository) SaveNetwork(ctx context.Context, network *models.Network) error {
	args := m.Called(ctx, network)
	return args.Error(0)
}

func (m *MockResourceRepository) UpdateNetwork(ctx context.Context, network *models.Network) error {
	args := m.Called(ctx, network)
	return args.Error(0)
}

func (m *MockResourceRepository) FindNetworkByUUID(ctx context.Context, uuid string) (*models.Network, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Network), args.Error(1)
}

func (m *MockResourceRepository) SaveNetworkOffering(ctx context.Context, offering *models.NetworkOffering) error {
	args := m.Called(ctx, offering)
	return args.Error(0)
}

func (m *MockResourceRepository) UpdateNetworkOffering(ctx context.Context, offering *models.NetworkOffering) error {
	args := m.Called(ctx, offering)
	return args.Error(0)
}

func (m *MockResourceRepository) FindNetworkOfferingByUUID(ctx context.Context, uuid string) (*models.NetworkOffering, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NetworkOffering), args.Error(1)
}

func (m *MockResourceRepository) FindIPAddressByUUID(ctx context.Context, uuid string) (*models.IPAddress, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IPAddress), args.Error(1)
}

func (m *MockResourceRepository) UpdateIPAddress(ctx context.Context, ip *models.IPAddress) error {
	args := m.Called(ctx, ip)
	return args.Error(0)
}

func (m *MockResourceRepository) FindSnapshotByUUID(ctx context.Context, uuid string) (*models.Snapshot, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockResourceRepository) UpdateSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockResourceRepository) UpdateStateByTypeAndUUID(ctx context.Context, resourceType, uuid string, state models.ResourceState) error {
	args := m.Called(ctx, resourceType, uuid, state)
	return args.Error(0)
}

type MockQuotaRepository struct {
	mock.Mock
}

func (m *MockQuotaRepository) FindCount(ctx context.Context, departmentID uint, kind models.ResourceKind) (*models.ResourceCount, error) {
	args := m.Called(ctx, departmentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResourceCount), args.Error(1)
}

func (m *MockQuotaRepository) ListCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ResourceCount), args.Error(1)
}

func (m *MockQuotaRepository) SetLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error {
	args := m.Called(ctx, departmentID, kind, limit)
	return args.Error(0)
}

func (m *MockQuotaRepository) AdjustCount(ctx context.Context, departmentID uint, kind models.ResourceKind, delta int64) (int64, error) {
	args := m.Called(ctx, departmentID, kind, delta)
	return args.Get(0).(int64), args.Error(1)
}

// Mock infrastructure clients

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockRedisClient) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockRedisClient) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRedisClient) Publish(ctx context.Context, channel, payload string) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockBusClient struct {
	mock.Mock
}

func (m *MockBusClient) PublishMessage(ctx context.Context, queueName string, body interface{}) error {
	args := m.Called(ctx, queueName, body)
	return args.Error(0)
}

func (m *MockBusClient) ReceiveMessages(ctx context.Context, queueName string, count int) ([]messaging.Message, error) {
	args := m.Called(ctx, queueName, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]messaging.Message), args.Error(1)
}

// MockBusMessage is a settleable message for processor tests
type MockBusMessage struct {
	mock.Mock
	body []byte
}

func (m *MockBusMessage) Body() []byte {
	return m.body
}

func (m *MockBusMessage) Complete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBusMessage) Abandon(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBusClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPlatformClient struct {
	mock.Mock
}

func (m *MockPlatformClient) GetVirtualMachineState(ctx context.Context, instanceUUID string) (models.ResourceState, error) {
	args := m.Called(ctx, instanceUUID)
	return args.Get(0).(models.ResourceState), args.Error(1)
}

func (m *MockPlatformClient) QueryAsyncJobResult(ctx context.Context, jobID string) (*models.JobStatusPayload, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobStatusPayload), args.Error(1)
}

// Mock collaborating services

type MockWebsocketService struct {
	mock.Mock
}

func (m *MockWebsocketService) HandleEventAction(ctx context.Context, event *models.Event) {
	m.Called(ctx, event)
}

type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) CheckLimit(ctx context.Context, caller models.Caller, kind models.ResourceKind) error {
	args := m.Called(ctx, caller, kind)
	return args.Error(0)
}

func (m *MockQuotaService) UpdateCount(ctx context.Context, repo repository.Repository, departmentID uint, kind models.ResourceKind, action CountAction) (int64, error) {
	args := m.Called(ctx, repo, departmentID, kind, action)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaService) MirrorCount(ctx context.Context, departmentID uint, kind models.ResourceKind, count int64) {
	m.Called(ctx, departmentID, kind, count)
}

func (m *MockQuotaService) ListCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ResourceCount), args.Error(1)
}

func (m *MockQuotaService) SetLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error {
	args := m.Called(ctx, departmentID, kind, limit)
	return args.Error(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) EnqueueTerminalNotice(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
