package repository

import (
	"context"
	"errors"

	"example.com/cloudpanel/internal/database"

	"gorm.io/gorm"
)

// PagingAndSorting carries the paging window and sort order for list queries
type PagingAndSorting struct {
	Page     int
	PageSize int
	SortBy   string
	Desc     bool
}

// Limit returns the page size, defaulting when unset
func (p PagingAndSorting) Limit() int {
	if p.PageSize <= 0 {
		return 50
	}
	return p.PageSize
}

// Offset returns the row offset for the page
func (p PagingAndSorting) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Page wraps one page of results with the total row count
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
}

// Repository aggregates the data access surfaces of the console
type Repository interface {
	Events() EventRepository
	Resources() ResourceRepository
	Quota() QuotaRepository
	Auth() AuthRepository

	// WithTransaction runs fn against a repository bound to a single
	// database transaction
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error
}

// repo is an implementation of the Repository interface
type repo struct {
	gdb *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) (Repository, error) {
	gdb, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &repo{gdb: gdb}, nil
}

// Events returns the event ledger repository
func (r *repo) Events() EventRepository {
	return &eventRepo{db: r.gdb}
}

// Resources returns the domain resource repository
func (r *repo) Resources() ResourceRepository {
	return &resourceRepo{db: r.gdb}
}

// Quota returns the resource count repository
func (r *repo) Quota() QuotaRepository {
	return &quotaRepo{db: r.gdb}
}

// Auth returns the API key repository
func (r *repo) Auth() AuthRepository {
	return &authRepo{db: r.gdb}
}

// WithTransaction runs fn inside a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	return r.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &repo{gdb: tx})
	})
}

// isRecordNotFoundError reports whether err is gorm's missing-row error
func isRecordNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicateKeyError reports whether err is a unique constraint violation
func isDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
