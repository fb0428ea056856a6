package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"example.com/cloudpanel/internal/cache"
	"example.com/cloudpanel/internal/cloudstack"
	"example.com/cloudpanel/internal/messaging"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"
	"example.com/cloudpanel/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ActionRequest describes a user-initiated console action to record
type ActionRequest struct {
	EventName    string `json:"event" validate:"required"`
	ResourceUUID string `json:"resource_uuid"`
	ResourceType string `json:"resource_type"`
	Message      string `json:"message"`
}

// Service defines the business logic operations of the console backend
type Service interface {
	// Action pipeline
	DispatchAction(ctx context.Context, caller models.Caller, req *ActionRequest) (*models.Event, error)
	RecordAlert(ctx context.Context, eventName, message string) (*models.Event, error)

	// Job correlation entry points
	SyncResourceStatus(ctx context.Context, payload *models.JobStatusPayload) error
	SyncVMUpdate(ctx context.Context, instanceUUID string) error
	AsyncNetworkOffering(ctx context.Context, resp *models.NetworkOfferingResponse) error
	AsyncVolume(ctx context.Context, resp *models.VolumeResponse) error

	// Event queries (UI polling fallback)
	GetEvent(ctx context.Context, eventUUID string) (*models.Event, error)
	ListActiveEvents(ctx context.Context, paging repository.PagingAndSorting) (*repository.Page[*models.Event], error)
	FindEventsByJobID(ctx context.Context, jobID string) ([]*models.Event, error)
	FindEventsByOwnerAndType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error)
	FindOwnerEventsByStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error)
	SoftDeleteEvent(ctx context.Context, eventUUID string) error

	// Quota operations
	ListResourceCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error)
	SetResourceLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error

	// Resource queries
	ListVMs(ctx context.Context, departmentID uint, paging repository.PagingAndSorting) (*repository.Page[*models.VMInstance], error)
	ListVolumes(ctx context.Context, departmentID uint, paging repository.PagingAndSorting) (*repository.Page[*models.Volume], error)

	// Correlator exposes the job correlator so the reconciler can replay
	// missed outcomes through the same pipeline the callback queue feeds
	Correlator() AsyncJobService

	// Monitoring and lifecycle
	RunProcessor(ctx context.Context) error
	GetProcessorStats() map[string]interface{}
	Shutdown() error
}

// service is an implementation of the Service interface
type service struct {
	repo      repository.Repository
	cache     cache.RedisClient
	log       *logrus.Logger
	validator *validation.Validator

	events     EventNotificationService
	websocket  WebsocketService
	quota      QuotaService
	email      EmailJobService
	correlator AsyncJobService
	processor  *JobProcessor
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository      repository.Repository
	Cache           cache.RedisClient
	MessagingClient messaging.Client
	Platform        cloudstack.Client
	Logger          *logrus.Logger
	JobQueueName    string
	EmailQueueName  string
	WorkerCount     int
	QueueSize       int
}

// NewService creates a new service instance
func NewService(config ServiceConfig) (Service, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if config.MessagingClient == nil {
		return nil, errors.New("messaging client is required")
	}
	if config.Platform == nil {
		return nil, errors.New("platform client is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.NumCPU() * 2
	}

	events := NewEventNotificationService(config.Repository, config.Logger)
	websocket := NewWebsocketService(config.Cache, config.Logger)
	quota := NewQuotaService(config.Repository, config.Cache, config.Logger)
	email := NewEmailJobService(config.MessagingClient, config.EmailQueueName, config.Logger)
	correlator := NewAsyncJobService(
		config.Repository, events, websocket, quota, email, config.Platform, config.Logger,
	)
	processor := NewJobProcessor(
		config.MessagingClient, correlator, config.Logger,
		config.JobQueueName, workerCount, config.QueueSize,
	)

	return &service{
		repo:      config.Repository,
		cache:     config.Cache,
		log:       config.Logger,
		validator: validation.New(),

		events:     events,
		websocket:  websocket,
		quota:      quota,
		email:      email,
		correlator: correlator,
		processor:  processor,
	}, nil
}

// RunProcessor drains the job callback queue until ctx is cancelled
func (s *service) RunProcessor(ctx context.Context) error {
	return s.processor.Run(ctx)
}

// DispatchAction records a user action in the ledger and fans it out. For
// resource-creating actions of countable kinds the quota check runs before
// anything is recorded, so an over-limit action never reaches the platform.
func (s *service) DispatchAction(ctx context.Context, caller models.Caller, req *ActionRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid action request: %w", err)
	}

	if action, ok := countActionForEvent(req.EventName); ok && action == CountActionCreate {
		if kind, ok := models.ResourceKindForType(req.ResourceType); ok {
			if err := s.quota.CheckLimit(ctx, caller, kind); err != nil {
				return nil, err
			}
		}
	}

	ownerID := caller.UserID
	event := &models.Event{
		EventName:    req.EventName,
		EventType:    models.EventTypeAction,
		Status:       models.EventStatusCreated,
		ResourceUUID: req.ResourceUUID,
		ResourceType: req.ResourceType,
		EventOwnerID: &ownerID,
		Message:      req.Message,
	}

	event, err := s.events.Save(ctx, event)
	if err != nil {
		return nil, err
	}

	s.websocket.HandleEventAction(ctx, event)
	return event, nil
}

// RecordAlert records a system alert with no owner and pushes it to the
// global alert channel
func (s *service) RecordAlert(ctx context.Context, eventName, message string) (*models.Event, error) {
	if eventName == "" {
		return nil, errors.New("alert event name is required")
	}

	event := &models.Event{
		UUID:      uuid.New().String(),
		EventName: eventName,
		EventType: models.EventTypeAlert,
		Status:    models.EventStatusCreated,
		Message:   message,
	}

	event, err := s.events.Save(ctx, event)
	if err != nil {
		return nil, err
	}

	s.websocket.HandleEventAction(ctx, event)
	return event, nil
}

// Job correlation entry points - delegated to the correlator

func (s *service) SyncResourceStatus(ctx context.Context, payload *models.JobStatusPayload) error {
	return s.correlator.SyncResourceStatus(ctx, payload)
}

func (s *service) SyncVMUpdate(ctx context.Context, instanceUUID string) error {
	return s.correlator.SyncVMUpdate(ctx, instanceUUID)
}

func (s *service) AsyncNetworkOffering(ctx context.Context, resp *models.NetworkOfferingResponse) error {
	return s.correlator.AsyncNetworkOffering(ctx, resp)
}

func (s *service) AsyncVolume(ctx context.Context, resp *models.VolumeResponse) error {
	return s.correlator.AsyncVolume(ctx, resp)
}

// Event queries - delegated to the event notification service

func (s *service) GetEvent(ctx context.Context, eventUUID string) (*models.Event, error) {
	return s.events.FindByUUID(ctx, eventUUID)
}

func (s *service) ListActiveEvents(ctx context.Context, paging repository.PagingAndSorting) (*repository.Page[*models.Event], error) {
	return s.events.ListActive(ctx, paging)
}

func (s *service) FindEventsByJobID(ctx context.Context, jobID string) ([]*models.Event, error) {
	return s.events.FindByJobID(ctx, jobID)
}

func (s *service) FindEventsByOwnerAndType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error) {
	return s.events.FindByOwnerAndEventType(ctx, ownerID, eventType)
}

// FindOwnerEventsByStatus serves the scoped polling lookups: an owner's
// active events narrowed by name, job id or both, in one status
func (s *service) FindOwnerEventsByStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error) {
	switch {
	case eventName != "" && jobID != "":
		return s.events.FindByOwnerAndEventAndJobIDAndStatus(ctx, ownerID, eventName, jobID, status)
	case jobID != "":
		return s.events.FindByOwnerAndJobIDAndStatus(ctx, ownerID, jobID, status)
	case eventName != "":
		return s.events.FindByOwnerAndEventAndStatus(ctx, ownerID, eventName, status)
	default:
		return nil, errors.New("an event name or job id filter is required")
	}
}

func (s *service) SoftDeleteEvent(ctx context.Context, eventUUID string) error {
	return s.events.SoftDelete(ctx, eventUUID)
}

// Quota operations - delegated to the quota service

func (s *service) ListResourceCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error) {
	return s.quota.ListCounts(ctx, departmentID)
}

func (s *service) SetResourceLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error {
	return s.quota.SetLimit(ctx, departmentID, kind, limit)
}

// Resource queries

func (s *service) ListVMs(ctx context.Context, departmentID uint, paging repository.PagingAndSorting) (*repository.Page[*models.VMInstance], error) {
	return s.repo.Resources().ListVMs(ctx, departmentID, paging)
}

func (s *service) ListVolumes(ctx context.Context, departmentID uint, paging repository.PagingAndSorting) (*repository.Page[*models.Volume], error) {
	return s.repo.Resources().ListVolumes(ctx, departmentID, paging)
}

// Correlator returns the job correlator for reconciliation replay
func (s *service) Correlator() AsyncJobService {
	return s.correlator
}

// GetProcessorStats returns statistics about the job processor
func (s *service) GetProcessorStats() map[string]interface{} {
	return s.processor.QueueStats()
}

// Shutdown gracefully stops the service
func (s *service) Shutdown() error {
	s.log.Info("Shutting down service...")
	s.processor.Stop()
	return nil
}
