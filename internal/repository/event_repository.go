package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/cloudpanel/internal/models"
)

// EventRepository defines the data access surface of the event ledger
type EventRepository interface {
	Save(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	FindByUUID(ctx context.Context, uuid string) (*models.Event, error)
	FindByJobID(ctx context.Context, jobID string) ([]*models.Event, error)
	FindByJobIDAndStatus(ctx context.Context, jobID string, status models.EventStatus) (*models.Event, error)
	FindTerminalByJobID(ctx context.Context, jobID string) (*models.Event, error)
	FindByOwnerAndEventType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error)
	FindByOwnerAndEventAndStatus(ctx context.Context, ownerID uint, eventName string, status models.EventStatus) ([]*models.Event, error)
	FindByOwnerAndJobIDAndStatus(ctx context.Context, ownerID uint, jobID string, status models.EventStatus) ([]*models.Event, error)
	FindByOwnerAndEventAndJobIDAndStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error)
	ListActive(ctx context.Context, paging PagingAndSorting) (*Page[*models.Event], error)
	ListInFlight(ctx context.Context, olderThan time.Duration) ([]*models.Event, error)
	ListArchivable(ctx context.Context, inactiveSince time.Time, limit int) ([]*models.Event, error)
	SoftDelete(ctx context.Context, event *models.Event) error
	Archive(ctx context.Context, event *models.Event) error

	// CreateTerminal records a terminal event for a job if and only if no
	// terminal event exists for that job id yet. Concurrent deliveries of the
	// same job status resolve to exactly one stored row; the loser receives
	// ErrDuplicateTerminalEvent.
	CreateTerminal(ctx context.Context, event *models.Event) error
}

// eventRepo implements EventRepository
type eventRepo struct {
	db *gorm.DB
}

// Save creates a new event row
func (r *eventRepo) Save(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Update persists changes to an existing event row
func (r *eventRepo) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// FindByUUID gets an event by its external identifier
func (r *eventRepo) FindByUUID(ctx context.Context, uuid string) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&event).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// FindByJobID lists all events recorded for a job, oldest first. The history
// spans retries and polling cycles.
func (r *eventRepo) FindByJobID(ctx context.Context, jobID string) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// FindByJobIDAndStatus gets the event for a job in a given status
func (r *eventRepo) FindByJobIDAndStatus(ctx context.Context, jobID string, status models.EventStatus) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND status = ?", jobID, status).
		First(&event).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// FindTerminalByJobID gets the terminal event for a job if one exists
func (r *eventRepo) FindTerminalByJobID(ctx context.Context, jobID string) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND status IN (?)", jobID,
			[]models.EventStatus{models.EventStatusSucceeded, models.EventStatusFailed}).
		First(&event).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// FindByOwnerAndEventType lists active events of a type for an owner
func (r *eventRepo) FindByOwnerAndEventType(ctx context.Context, ownerID uint, eventType models.EventType) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("event_owner_id = ? AND event_type = ? AND is_active = ?", ownerID, eventType, true).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// FindByOwnerAndEventAndStatus lists active events by owner, name and status
func (r *eventRepo) FindByOwnerAndEventAndStatus(ctx context.Context, ownerID uint, eventName string, status models.EventStatus) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("event_owner_id = ? AND event_name = ? AND status = ? AND is_active = ?",
			ownerID, eventName, status, true).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// FindByOwnerAndJobIDAndStatus lists active events by owner, job and status
func (r *eventRepo) FindByOwnerAndJobIDAndStatus(ctx context.Context, ownerID uint, jobID string, status models.EventStatus) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("event_owner_id = ? AND job_id = ? AND status = ? AND is_active = ?",
			ownerID, jobID, status, true).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// FindByOwnerAndEventAndJobIDAndStatus narrows the job scoped lookup by event name
func (r *eventRepo) FindByOwnerAndEventAndJobIDAndStatus(ctx context.Context, ownerID uint, eventName, jobID string, status models.EventStatus) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("event_owner_id = ? AND event_name = ? AND job_id = ? AND status = ? AND is_active = ?",
			ownerID, eventName, jobID, status, true).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListActive returns one page of active, non-archived events
func (r *eventRepo) ListActive(ctx context.Context, paging PagingAndSorting) (*Page[*models.Event], error) {
	query := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("is_active = ? AND is_archive = ?", true, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	order := "created_at DESC"
	if paging.SortBy != "" {
		order = paging.SortBy
		if paging.Desc {
			order += " DESC"
		}
	}

	var events []*models.Event
	err := query.
		Order(order).
		Limit(paging.Limit()).
		Offset(paging.Offset()).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return &Page[*models.Event]{Items: events, TotalCount: total}, nil
}

// ListInFlight returns async events that have not reached a terminal state
// within olderThan, candidates for reconciliation against the platform
func (r *eventRepo) ListInFlight(ctx context.Context, olderThan time.Duration) ([]*models.Event, error) {
	cutoff := time.Now().Add(-olderThan)
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("event_type = ? AND status IN (?) AND is_active = ? AND created_at < ?",
			models.EventTypeAsync,
			[]models.EventStatus{models.EventStatusCreated, models.EventStatusInProgress},
			true, cutoff).
		Order("created_at").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListArchivable returns inactive events old enough for the archival sweep
func (r *eventRepo) ListArchivable(ctx context.Context, inactiveSince time.Time, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_archive = ? AND updated_at < ?", false, false, inactiveSince).
		Order("updated_at").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SoftDelete marks an event inactive. The row is retained for audit.
func (r *eventRepo) SoftDelete(ctx context.Context, event *models.Event) error {
	event.IsActive = false
	return r.db.WithContext(ctx).
		Model(event).
		Update("is_active", false).Error
}

// Archive flags an inactive event as archived
func (r *eventRepo) Archive(ctx context.Context, event *models.Event) error {
	event.IsArchive = true
	return r.db.WithContext(ctx).
		Model(event).
		Update("is_archive", true).Error
}

// CreateTerminal records a terminal event under the at-most-one invariant.
// A row lock over the job's events serializes concurrent deliveries; the
// partial unique index on (job_id) for terminal statuses is the backstop.
func (r *eventRepo) CreateTerminal(ctx context.Context, event *models.Event) error {
	if !event.Status.IsTerminal() {
		return gorm.ErrInvalidData
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Event
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("job_id = ? AND status IN (?)", event.JobID,
				[]models.EventStatus{models.EventStatusSucceeded, models.EventStatusFailed}).
			First(&existing).Error
		if err == nil {
			return ErrDuplicateTerminalEvent
		}
		if !isRecordNotFoundError(err) {
			return err
		}
		return tx.Create(event).Error
	})
	if isDuplicateKeyError(err) {
		return ErrDuplicateTerminalEvent
	}
	return err
}
