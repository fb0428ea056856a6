package service

import (
	"context"
	"errors"
	"testing"

	"example.com/cloudpanel/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ownerID(id uint) *uint {
	return &id
}

func newTestWebsocketService(cache *MockRedisClient) WebsocketService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewWebsocketService(cache, log)
}

func TestHandleEventActionRoutesActionToOwnerAndResource(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "action:7", "starting VM").Return(nil)
	mockCache.On("Publish", mock.Anything, "action:vm.start:7:vm-123", "starting VM").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:         "ev-1",
		EventName:    "vm.start",
		EventType:    models.EventTypeAction,
		Status:       models.EventStatusCreated,
		ResourceUUID: "vm-123",
		EventOwnerID: ownerID(7),
		Message:      "starting VM",
	})

	mockCache.AssertExpectations(t)
}

func TestHandleEventActionWithoutResourceSkipsResourceChannel(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "action:7", "msg").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:         "ev-2",
		EventName:    "vm.start",
		EventType:    models.EventTypeAction,
		EventOwnerID: ownerID(7),
		Message:      "msg",
	})

	mockCache.AssertExpectations(t)
	mockCache.AssertNumberOfCalls(t, "Publish", 1)
}

func TestHandleEventActionNamelessEventUsesResourceChannel(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "resource:vm-123", "raw message").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:         "ev-3",
		EventType:    models.EventTypeAction,
		ResourceUUID: "vm-123",
		EventOwnerID: ownerID(7),
		Message:      "raw message",
	})

	mockCache.AssertExpectations(t)
	mockCache.AssertNumberOfCalls(t, "Publish", 1)
}

func TestHandleEventActionAsyncSuccessCarriesStatusOnly(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	// Payload is the status, not the message
	mockCache.On("Publish", mock.Anything, "async:vm.create:7:vm-123", "SUCCEEDED").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:         "ev-4",
		EventName:    "vm.create",
		EventType:    models.EventTypeAsync,
		Status:       models.EventStatusSucceeded,
		ResourceUUID: "vm-123",
		EventOwnerID: ownerID(7),
		Message:      "VM deployed",
	})

	mockCache.AssertExpectations(t)
	mockCache.AssertNumberOfCalls(t, "Publish", 1)
}

func TestHandleEventActionAsyncFailureUsesErrorChannel(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "error:vm.create:7:vm-123", "insufficient capacity").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:         "ev-5",
		EventName:    "vm.create",
		EventType:    models.EventTypeAsync,
		Status:       models.EventStatusFailed,
		ResourceUUID: "vm-123",
		EventOwnerID: ownerID(7),
		Message:      "insufficient capacity",
	})

	mockCache.AssertExpectations(t)
}

func TestHandleEventActionSuppressesNonTerminalAsync(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	for _, status := range []models.EventStatus{models.EventStatusCreated, models.EventStatusInProgress} {
		svc.HandleEventAction(context.Background(), &models.Event{
			UUID:         "ev-6",
			EventName:    "vm.create",
			EventType:    models.EventTypeAsync,
			Status:       status,
			ResourceUUID: "vm-123",
			EventOwnerID: ownerID(7),
		})
	}

	mockCache.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEventActionTerminalAsyncWithoutResourceDegradesToOwner(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "action:7", "done").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:         "ev-7",
		EventName:    "vm.create",
		EventType:    models.EventTypeAsync,
		Status:       models.EventStatusSucceeded,
		EventOwnerID: ownerID(7),
		Message:      "done",
	})

	mockCache.AssertExpectations(t)
	mockCache.AssertNumberOfCalls(t, "Publish", 1)
}

func TestHandleEventActionAlertUsesGlobalChannel(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "alert:host.down", "host h-1 unreachable").Return(nil)

	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:      "ev-8",
		EventName: "host.down",
		EventType: models.EventTypeAlert,
		Status:    models.EventStatusCreated,
		Message:   "host h-1 unreachable",
	})

	mockCache.AssertExpectations(t)
}

func TestHandleEventActionPublishFailureIsSwallowed(t *testing.T) {
	mockCache := new(MockRedisClient)
	svc := newTestWebsocketService(mockCache)

	mockCache.On("Publish", mock.Anything, "alert:host.down", "down").
		Return(errors.New("connection refused"))

	// Must not panic or propagate
	svc.HandleEventAction(context.Background(), &models.Event{
		UUID:      "ev-9",
		EventName: "host.down",
		EventType: models.EventTypeAlert,
		Message:   "down",
	})

	mockCache.AssertExpectations(t)
}

func TestChannelKeyComposition(t *testing.T) {
	require.Equal(t, "action:12", OwnerActionChannel(12))
	require.Equal(t, "action:vm.stop:12:uuid-1", ActionResourceChannel("vm.stop", 12, "uuid-1"))
	require.Equal(t, "async:vm.create:12:uuid-1", AsyncChannel("vm.create", 12, "uuid-1"))
	require.Equal(t, "error:vm.create:12:uuid-1", ErrorChannel("vm.create", 12, "uuid-1"))
	require.Equal(t, "alert:host.down", AlertChannel("host.down"))
	require.Equal(t, "resource:uuid-1", ResourceChannel("uuid-1"))
}
