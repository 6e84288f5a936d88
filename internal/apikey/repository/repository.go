package repository

import (
	"context"
	"errors"

	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

func Provide(db *gorm.DB) domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, key *domain.APIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (r *gormRepository) FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := db.WithContext(ctx).First(&key, "key_hash = ?", keyHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *gormRepository) Disable(ctx context.Context, db *gorm.DB, keyHash string) error {
	res := db.WithContext(ctx).
		Model(&domain.APIKey{}).
		Where("key_hash = ?", keyHash).
		Update("disabled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, db *gorm.DB) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
