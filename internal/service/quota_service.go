package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"example.com/cloudpanel/internal/cache"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"

	"github.com/sirupsen/logrus"
)

// CountAction says which direction a terminal event moves a resource count
type CountAction string

const (
	// CountActionCreate increments the department's count for a kind
	CountActionCreate CountAction = "create"
	// CountActionDelete decrements the department's count for a kind
	CountActionDelete CountAction = "delete"
)

// QuotaService pairs the check-before / update-after-terminal-event contract
// around resource-affecting operations. CheckLimit runs before an action is
// dispatched to the platform; UpdateCount runs exactly once per terminal
// event, never on intermediate statuses. It takes the repository as an
// argument so the correlator can bind the adjustment into the transaction
// that records the terminal event.
type QuotaService interface {
	CheckLimit(ctx context.Context, caller models.Caller, kind models.ResourceKind) error
	UpdateCount(ctx context.Context, repo repository.Repository, departmentID uint, kind models.ResourceKind, action CountAction) (int64, error)
	MirrorCount(ctx context.Context, departmentID uint, kind models.ResourceKind, count int64)
	ListCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error)
	SetLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error
}

// quotaService implements QuotaService
type quotaService struct {
	repo  repository.Repository
	cache cache.RedisClient
	log   *logrus.Logger
}

// NewQuotaService creates a new quota service
func NewQuotaService(repo repository.Repository, cache cache.RedisClient, log *logrus.Logger) QuotaService {
	return &quotaService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// countCacheKey is the Redis mirror of a department's count for a kind
func countCacheKey(departmentID uint, kind models.ResourceKind) string {
	return fmt.Sprintf("rescount:%d:%s", departmentID, kind)
}

// CheckLimit fails with ErrQuotaExceeded when the caller's department is at
// or over its limit for the resource kind. A zero limit means unlimited.
func (s *quotaService) CheckLimit(ctx context.Context, caller models.Caller, kind models.ResourceKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown resource kind %q", kind)
	}

	count, err := s.repo.Quota().FindCount(ctx, caller.DepartmentID, kind)
	if err != nil {
		if err == repository.ErrNotFound {
			// No count row yet means nothing provisioned and no limit set
			return nil
		}
		return fmt.Errorf("failed to read resource count: %w", err)
	}

	if count.Limit > 0 && count.Count >= count.Limit {
		s.log.WithFields(logrus.Fields{
			"department_id": caller.DepartmentID,
			"user_id":       caller.UserID,
			"kind":          kind,
			"count":         count.Count,
			"limit":         count.Limit,
		}).Warn("Quota limit reached")
		return ErrQuotaExceeded
	}
	return nil
}

// UpdateCount adjusts a department's count for a kind after a terminal
// event. The adjustment goes through the given repository, which the caller
// binds to the transaction that records the event; the new count is returned
// for mirroring once that transaction commits.
func (s *quotaService) UpdateCount(ctx context.Context, repo repository.Repository, departmentID uint, kind models.ResourceKind, action CountAction) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown resource kind %q", kind)
	}

	var delta int64
	switch action {
	case CountActionCreate:
		delta = 1
	case CountActionDelete:
		delta = -1
	default:
		return 0, fmt.Errorf("unknown count action %q", action)
	}

	newCount, err := repo.Quota().AdjustCount(ctx, departmentID, kind, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust resource count: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"department_id": departmentID,
		"kind":          kind,
		"action":        action,
		"count":         newCount,
	}).Debug("Resource count updated")
	return newCount, nil
}

// MirrorCount writes the count into Redis for cheap reads. Failures are not
// fatal; the database row is authoritative.
func (s *quotaService) MirrorCount(ctx context.Context, departmentID uint, kind models.ResourceKind, count int64) {
	if err := s.cache.Set(ctx, countCacheKey(departmentID, kind), strconv.FormatInt(count, 10), 24*time.Hour); err != nil {
		s.log.WithError(err).Warnf("Failed to mirror resource count for department %d", departmentID)
	}
}

// ListCounts lists all resource counts for a department
func (s *quotaService) ListCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error) {
	return s.repo.Quota().ListCounts(ctx, departmentID)
}

// SetLimit sets the quota limit for a department and resource kind
func (s *quotaService) SetLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown resource kind %q", kind)
	}
	return s.repo.Quota().SetLimit(ctx, departmentID, kind, limit)
}
