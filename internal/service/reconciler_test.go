package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"example.com/cloudpanel/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuditIndexer struct {
	mock.Mock
}

func (m *MockAuditIndexer) IndexEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type reconcilerFixture struct {
	repo       *MockRepository
	correlator *MockCorrelator
	platform   *MockPlatformClient
	indexer    *MockAuditIndexer
	rec        *Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f := &reconcilerFixture{
		repo:       newMockRepository(),
		correlator: new(MockCorrelator),
		platform:   new(MockPlatformClient),
		indexer:    new(MockAuditIndexer),
	}
	f.rec = NewReconciler(f.repo, f.correlator, f.platform, f.indexer, log, 5*time.Minute, 30*24*time.Hour)
	return f
}

func TestReconcileInFlightReplaysTerminalOutcome(t *testing.T) {
	f := newReconcilerFixture()

	stuck := &models.Event{
		UUID:         "ev-1",
		EventName:    "vm.create",
		EventType:    models.EventTypeAsync,
		Status:       models.EventStatusInProgress,
		JobID:        "job-1",
		ResourceUUID: "vm-1",
		ResourceType: "VM",
		EventOwnerID: ownerID(7),
	}
	f.repo.events.On("ListInFlight", mock.Anything, 5*time.Minute).
		Return([]*models.Event{stuck}, nil)
	f.platform.On("QueryAsyncJobResult", mock.Anything, "job-1").
		Return(&models.JobStatusPayload{JobID: "job-1", JobStatus: models.JobStatusSucceeded}, nil)
	// The replayed payload carries the original correlation keys
	f.correlator.On("SyncResourceStatus", mock.Anything, mock.MatchedBy(func(p *models.JobStatusPayload) bool {
		return p.JobID == "job-1" && p.EventName == "vm.create" &&
			p.ResourceUUID == "vm-1" && p.ResourceType == "VM" && *p.OwnerID == 7
	})).Return(nil)

	require.NoError(t, f.rec.ReconcileInFlight(context.Background()))
	f.correlator.AssertExpectations(t)
}

func TestReconcileInFlightSkipsStillRunningJobs(t *testing.T) {
	f := newReconcilerFixture()

	stuck := &models.Event{UUID: "ev-1", JobID: "job-1", Status: models.EventStatusInProgress}
	f.repo.events.On("ListInFlight", mock.Anything, 5*time.Minute).
		Return([]*models.Event{stuck}, nil)
	f.platform.On("QueryAsyncJobResult", mock.Anything, "job-1").
		Return(&models.JobStatusPayload{JobID: "job-1", JobStatus: models.JobStatusInProgress}, nil)

	require.NoError(t, f.rec.ReconcileInFlight(context.Background()))
	f.correlator.AssertNotCalled(t, "SyncResourceStatus", mock.Anything, mock.Anything)
}

func TestReconcileInFlightPollFailureDoesNotAbortSweep(t *testing.T) {
	f := newReconcilerFixture()

	events := []*models.Event{
		{UUID: "ev-1", JobID: "job-1"},
		{UUID: "ev-2", JobID: "job-2", EventName: "vm.create"},
	}
	f.repo.events.On("ListInFlight", mock.Anything, 5*time.Minute).Return(events, nil)
	f.platform.On("QueryAsyncJobResult", mock.Anything, "job-1").
		Return(nil, errors.New("platform unreachable"))
	f.platform.On("QueryAsyncJobResult", mock.Anything, "job-2").
		Return(&models.JobStatusPayload{JobID: "job-2", JobStatus: models.JobStatusFailed}, nil)
	f.correlator.On("SyncResourceStatus", mock.Anything, mock.MatchedBy(func(p *models.JobStatusPayload) bool {
		return p.JobID == "job-2"
	})).Return(nil)

	require.NoError(t, f.rec.ReconcileInFlight(context.Background()))
	f.correlator.AssertExpectations(t)
}

func TestArchiveSweepIndexesBeforeFlagging(t *testing.T) {
	f := newReconcilerFixture()

	old := &models.Event{UUID: "ev-1", IsActive: false}
	f.repo.events.On("ListArchivable", mock.Anything, mock.AnythingOfType("time.Time"), 500).
		Return([]*models.Event{old}, nil)
	f.indexer.On("IndexEvent", mock.Anything, old).Return(nil)
	f.repo.events.On("Archive", mock.Anything, old).Return(nil)

	require.NoError(t, f.rec.ArchiveSweep(context.Background()))
	f.indexer.AssertExpectations(t)
	f.repo.events.AssertExpectations(t)
}

func TestArchiveSweepKeepsEventEligibleOnIndexFailure(t *testing.T) {
	f := newReconcilerFixture()

	old := &models.Event{UUID: "ev-1", IsActive: false}
	f.repo.events.On("ListArchivable", mock.Anything, mock.AnythingOfType("time.Time"), 500).
		Return([]*models.Event{old}, nil)
	f.indexer.On("IndexEvent", mock.Anything, old).Return(errors.New("index unavailable"))

	require.NoError(t, f.rec.ArchiveSweep(context.Background()))

	// Not flagged, so the next sweep retries it
	f.repo.events.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
}
