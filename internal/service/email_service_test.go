package service

import (
	"context"
	"testing"

	"example.com/cloudpanel/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEmailService(bus *MockBusClient) EmailJobService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEmailJobService(bus, "email-jobs", log)
}

func TestEnqueueTerminalNoticeSkipsNonTerminal(t *testing.T) {
	mockBus := new(MockBusClient)
	svc := newTestEmailService(mockBus)

	err := svc.EnqueueTerminalNotice(context.Background(), &models.Event{
		UUID:         "ev-1",
		Status:       models.EventStatusInProgress,
		EventOwnerID: ownerID(7),
	})

	require.NoError(t, err)
	mockBus.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnqueueTerminalNoticeSkipsOwnerlessEvent(t *testing.T) {
	mockBus := new(MockBusClient)
	svc := newTestEmailService(mockBus)

	err := svc.EnqueueTerminalNotice(context.Background(), &models.Event{
		UUID:   "ev-2",
		Status: models.EventStatusSucceeded,
	})

	require.NoError(t, err)
	mockBus.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnqueueTerminalNoticeSuccessTemplate(t *testing.T) {
	mockBus := new(MockBusClient)
	svc := newTestEmailService(mockBus)

	mockBus.On("PublishMessage", mock.Anything, "email-jobs", mock.MatchedBy(func(body interface{}) bool {
		job, ok := body.(*EmailJob)
		return ok && job.Template == "event-succeeded" && job.OwnerID == 7 && job.EventUUID == "ev-3"
	})).Return(nil)

	err := svc.EnqueueTerminalNotice(context.Background(), &models.Event{
		UUID:         "ev-3",
		EventName:    "vm.create",
		Status:       models.EventStatusSucceeded,
		EventOwnerID: ownerID(7),
		Message:      "VM deployed",
	})

	require.NoError(t, err)
	mockBus.AssertExpectations(t)
}

func TestEnqueueTerminalNoticeFailureTemplate(t *testing.T) {
	mockBus := new(MockBusClient)
	svc := newTestEmailService(mockBus)

	mockBus.On("PublishMessage", mock.Anything, "email-jobs", mock.MatchedBy(func(body interface{}) bool {
		job, ok := body.(*EmailJob)
		return ok && job.Template == "event-failed" && job.Body == "insufficient capacity"
	})).Return(nil)

	err := svc.EnqueueTerminalNotice(context.Background(), &models.Event{
		UUID:         "ev-4",
		EventName:    "vm.create",
		Status:       models.EventStatusFailed,
		EventOwnerID: ownerID(7),
		Message:      "insufficient capacity",
	})

	require.NoError(t, err)
	mockBus.AssertExpectations(t)
}
