package service

import (
	"context"
	"time"

	"example.com/cloudpanel/internal/cloudstack"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"
	"example.com/cloudpanel/internal/search"

	"github.com/sirupsen/logrus"
)

// Reconciler is the fallback for missed callbacks: it re-polls the platform
// for async events stuck in a non-terminal state and runs the archival sweep
// that moves old inactive events into the audit index. Push delivery is
// at-most-once, so this plus the polling queries is what makes the pipeline
// converge.
type Reconciler struct {
	repo       repository.Repository
	correlator AsyncJobService
	platform   cloudstack.Client
	indexer    search.AuditIndexer
	log        *logrus.Logger

	stuckAfter       time.Duration
	archiveAfter     time.Duration
	archiveBatchSize int
}

// NewReconciler creates a new reconciler
func NewReconciler(
	repo repository.Repository,
	correlator AsyncJobService,
	platform cloudstack.Client,
	indexer search.AuditIndexer,
	log *logrus.Logger,
	stuckAfter, archiveAfter time.Duration,
) *Reconciler {
	return &Reconciler{
		repo:       repo,
		correlator: correlator,
		platform:   platform,
		indexer:    indexer,
		log:        log,

		stuckAfter:       stuckAfter,
		archiveAfter:     archiveAfter,
		archiveBatchSize: 500,
	}
}

// ReconcileInFlight re-polls every stuck async job and replays the platform's
// answer through the correlator. The correlator's duplicate check makes the
// replay safe against a callback that arrives concurrently.
func (r *Reconciler) ReconcileInFlight(ctx context.Context) error {
	events, err := r.repo.Events().ListInFlight(ctx, r.stuckAfter)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	r.log.Infof("Reconciling %d in-flight async events", len(events))

	for _, event := range events {
		if event.JobID == "" {
			// Cannot be correlated to a platform job; an async event without
			// a job id should not exist, flag it rather than retry forever
			r.log.WithField("event_uuid", event.UUID).Warn("In-flight async event has no job id, skipping")
			continue
		}

		payload, err := r.platform.QueryAsyncJobResult(ctx, event.JobID)
		if err != nil {
			r.log.WithError(err).WithField("job_id", event.JobID).Warn("Failed to re-poll job")
			continue
		}

		if !payload.JobStatus.EventStatus().IsTerminal() {
			continue
		}

		// Carry the original correlation keys; the poll response has only
		// the job outcome
		payload.EventName = event.EventName
		payload.ResourceUUID = event.ResourceUUID
		payload.ResourceType = event.ResourceType
		payload.OwnerID = event.EventOwnerID

		if err := r.correlator.SyncResourceStatus(ctx, payload); err != nil {
			r.log.WithError(err).WithField("job_id", event.JobID).Error("Failed to reconcile job")
		}
	}
	return nil
}

// ArchiveSweep flags old inactive events as archived and indexes them for
// audit queries
func (r *Reconciler) ArchiveSweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.archiveAfter)
	events, err := r.repo.Events().ListArchivable(ctx, cutoff, r.archiveBatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	r.log.Infof("Archiving %d events", len(events))

	for _, event := range events {
		if err := r.archiveOne(ctx, event); err != nil {
			r.log.WithError(err).WithField("event_uuid", event.UUID).Error("Failed to archive event")
		}
	}
	return nil
}

// archiveOne indexes the event then flips the archive flag. Index before
// flag: a failed index leaves the event eligible for the next sweep.
func (r *Reconciler) archiveOne(ctx context.Context, event *models.Event) error {
	if r.indexer != nil {
		if err := r.indexer.IndexEvent(ctx, event); err != nil {
			return err
		}
	}
	return r.repo.Events().Archive(ctx, event)
}
