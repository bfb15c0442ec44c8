package repository

import (
	"context"
	"errors"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	WithTx(tx *gorm.DB) CategoryRepository
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id uint) (*model.Category, error)
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	FindPolicy(ctx context.Context, categoryID uint) (*model.CategoryBadgePolicy, error)
	CreatePolicy(ctx context.Context, policy *model.CategoryBadgePolicy) error
	SavePolicy(ctx context.Context, policy *model.CategoryBadgePolicy) error
	DeletePolicy(ctx context.Context, categoryID uint) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepository{db: tx}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		logger.Error("Failed to create category", err, map[string]interface{}{
			"slug": category.Slug,
		})
		return err
	}
	return nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindPolicy returns (nil, nil) when the category has no policy
func (r *categoryRepository) FindPolicy(ctx context.Context, categoryID uint) (*model.CategoryBadgePolicy, error) {
	var policy model.CategoryBadgePolicy
	err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to find badge policy", err, map[string]interface{}{
			"category_id": categoryID,
		})
		return nil, err
	}
	return &policy, nil
}

func (r *categoryRepository) CreatePolicy(ctx context.Context, policy *model.CategoryBadgePolicy) error {
	if err := r.db.WithContext(ctx).Create(policy).Error; err != nil {
		logger.Error("Failed to create badge policy", err, map[string]interface{}{
			"category_id": policy.CategoryID,
		})
		return err
	}

	logger.Debug("Badge policy created", map[string]interface{}{
		"category_id":  policy.CategoryID,
		"allows_badge": policy.AllowsBadge,
	})
	return nil
}

func (r *categoryRepository) SavePolicy(ctx context.Context, policy *model.CategoryBadgePolicy) error {
	if err := r.db.WithContext(ctx).Save(policy).Error; err != nil {
		logger.Error("Failed to save badge policy", err, map[string]interface{}{
			"category_id": policy.CategoryID,
		})
		return err
	}
	return nil
}

// DeletePolicy hard-deletes the policy and reports whether one existed
func (r *categoryRepository) DeletePolicy(ctx context.Context, categoryID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Delete(&model.CategoryBadgePolicy{})
	if result.Error != nil {
		logger.Error("Failed to delete badge policy", result.Error, map[string]interface{}{
			"category_id": categoryID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
