package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/cloudpanel/internal/models"
)

// AuthRepository provides data access for API keys and users
type AuthRepository interface {
	CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error)
	UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id uint) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// authRepo implements AuthRepository
type authRepo struct {
	db *gorm.DB
}

// CreateAPIKey creates a new API key
func (r *authRepo) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	return r.db.WithContext(ctx).Create(apiKey).Error
}

// GetAPIKeyByKey gets an API key by its token value
func (r *authRepo) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

// UpdateAPIKey persists changes to an API key
func (r *authRepo) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	return r.db.WithContext(ctx).Save(apiKey).Error
}

// ListAPIKeys lists all API keys
func (r *authRepo) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	if err := r.db.WithContext(ctx).Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteAPIKey removes an API key
func (r *authRepo) DeleteAPIKey(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.APIKey{}, id).Error
}

// FindUserByID gets a user by id
func (r *authRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
