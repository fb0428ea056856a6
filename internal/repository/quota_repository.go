package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/cloudpanel/internal/models"
)

// QuotaRepository provides data access for cached resource counts
type QuotaRepository interface {
	FindCount(ctx context.Context, departmentID uint, kind models.ResourceKind) (*models.ResourceCount, error)
	ListCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error)
	SetLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error

	// AdjustCount applies delta to the department's count for a kind under a
	// row lock and returns the new value. A missing row is created first, so
	// the adjustment is always applied to a locked row.
	AdjustCount(ctx context.Context, departmentID uint, kind models.ResourceKind, delta int64) (int64, error)
}

// quotaRepo implements QuotaRepository
type quotaRepo struct {
	db *gorm.DB
}

// FindCount gets the count row for a department and resource kind
func (r *quotaRepo) FindCount(ctx context.Context, departmentID uint, kind models.ResourceKind) (*models.ResourceCount, error) {
	var count models.ResourceCount
	err := r.db.WithContext(ctx).
		Where("department_id = ? AND resource_kind = ?", departmentID, kind).
		First(&count).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &count, nil
}

// ListCounts lists all count rows for a department
func (r *quotaRepo) ListCounts(ctx context.Context, departmentID uint) ([]*models.ResourceCount, error) {
	var counts []*models.ResourceCount
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("resource_kind").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// SetLimit sets the quota limit for a department and kind, creating the count
// row when absent
func (r *quotaRepo) SetLimit(ctx context.Context, departmentID uint, kind models.ResourceKind, limit int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "department_id"}, {Name: "resource_kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"max_limit": limit}),
		}).
		Create(&models.ResourceCount{
			DepartmentID: departmentID,
			ResourceKind: string(kind),
			Limit:        limit,
		}).Error
}

// AdjustCount applies delta under a row lock and returns the new count
func (r *quotaRepo) AdjustCount(ctx context.Context, departmentID uint, kind models.ResourceKind, delta int64) (int64, error) {
	var newCount int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ensure the row exists before locking it
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ResourceCount{
				DepartmentID: departmentID,
				ResourceKind: string(kind),
			}).Error
		if err != nil {
			return err
		}

		var count models.ResourceCount
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("department_id = ? AND resource_kind = ?", departmentID, kind).
			First(&count).Error
		if err != nil {
			return err
		}

		count.Count += delta
		if count.Count < 0 {
			count.Count = 0
		}
		newCount = count.Count

		return tx.Model(&count).Update("count", count.Count).Error
	})
	return newCount, err
}
