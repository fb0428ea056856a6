package service

import (
	"context"
	"fmt"
	"time"

	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventNotificationService is the lookup and write surface over the event
// ledger. The scoped queries back the UI polling fallback when push delivery
// is unavailable and the duplicate-suppression checks in the correlator.
type EventNotificationService interface {
	Save(ctx context.Context, event *models.Event) (*models.Event, error)
	FindByUUID(ctx context.Context, uuid string) (*models.Event, error)
	FindByJobID(ctx context.Context, jobID string) ([]*models.Event, error)
	FindByJobIDAndStatus(ctx context.Context, jobID string, status models.EventStatus) (*models.Event, error)
	FindByOwnerAndEventType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error)
	FindByOwnerAndEventAndStatus(ctx context.Context, ownerID uint, eventName string, status models.EventStatus) ([]*models.Event, error)
	FindByOwnerAndJobIDAndStatus(ctx context.Context, ownerID uint, jobID string, status models.EventStatus) ([]*models.Event, error)
	FindByOwnerAndEventAndJobIDAndStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error)
	ListActive(ctx context.Context, paging repository.PagingAndSorting) (*repository.Page[*models.Event], error)
	SoftDelete(ctx context.Context, eventUUID string) error
}

// eventNotificationService implements EventNotificationService
type eventNotificationService struct {
	repo repository.Repository
	log  *logrus.Logger
}

// NewEventNotificationService creates a new event notification service
func NewEventNotificationService(repo repository.Repository, log *logrus.Logger) EventNotificationService {
	return &eventNotificationService{
		repo: repo,
		log:  log,
	}
}

// Save persists a new event. New events start active and unarchived.
func (s *eventNotificationService) Save(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.UUID == "" {
		event.UUID = uuid.New().String()
	}
	if event.Status == "" {
		event.Status = models.EventStatusCreated
	}
	event.IsActive = true
	event.IsArchive = false

	if err := s.repo.Events().Save(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}
	return event, nil
}

// FindByUUID gets an event by its external identifier
func (s *eventNotificationService) FindByUUID(ctx context.Context, uuid string) (*models.Event, error) {
	return s.repo.Events().FindByUUID(ctx, uuid)
}

// FindByJobID lists the full event history of a job
func (s *eventNotificationService) FindByJobID(ctx context.Context, jobID string) ([]*models.Event, error) {
	return s.repo.Events().FindByJobID(ctx, jobID)
}

// FindByJobIDAndStatus gets the event for a job in a given status
func (s *eventNotificationService) FindByJobIDAndStatus(ctx context.Context, jobID string, status models.EventStatus) (*models.Event, error) {
	return s.repo.Events().FindByJobIDAndStatus(ctx, jobID, status)
}

// FindByOwnerAndEventType lists active events of a type for an owner
func (s *eventNotificationService) FindByOwnerAndEventType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error) {
	return s.repo.Events().FindByOwnerAndEventType(ctx, ownerID, eventType)
}

// FindByOwnerAndEventAndStatus lists active events by owner, name and status
func (s *eventNotificationService) FindByOwnerAndEventAndStatus(ctx context.Context, ownerID uint, eventName string, status models.EventStatus) ([]*models.Event, error) {
	return s.repo.Events().FindByOwnerAndEventAndStatus(ctx, ownerID, eventName, status)
}

// FindByOwnerAndJobIDAndStatus lists active events by owner, job and status
func (s *eventNotificationService) FindByOwnerAndJobIDAndStatus(ctx context.Context, ownerID uint, jobID string, status models.EventStatus) ([]*models.Event, error) {
	return s.repo.Events().FindByOwnerAndJobIDAndStatus(ctx, ownerID, jobID, status)
}

// FindByOwnerAndEventAndJobIDAndStatus narrows the job scoped lookup by event name
func (s *eventNotificationService) FindByOwnerAndEventAndJobIDAndStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error) {
	return s.repo.Events().FindByOwnerAndEventAndJobIDAndStatus(ctx, ownerID, eventName, jobID, status)
}

// ListActive returns one page of active events for UI display
func (s *eventNotificationService) ListActive(ctx context.Context, paging repository.PagingAndSorting) (*repository.Page[*models.Event], error) {
	return s.repo.Events().ListActive(ctx, paging)
}

// SoftDelete marks an event inactive. The row stays for audit and remains
// reachable through the audit index.
func (s *eventNotificationService) SoftDelete(ctx context.Context, eventUUID string) error {
	event, err := s.repo.Events().FindByUUID(ctx, eventUUID)
	if err != nil {
		return err
	}

	if err := s.repo.Events().SoftDelete(ctx, event); err != nil {
		return fmt.Errorf("failed to soft delete event %s: %w", eventUUID, err)
	}

	s.log.WithFields(logrus.Fields{
		"event_uuid": eventUUID,
		"event":      event.EventName,
		"deleted_at": time.Now().UTC().Format(time.RFC3339),
	}).Info("Event soft deleted")
	return nil
}
