package repository

import (
	"context"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

// TrustFlags 파생 신뢰 플래그 (항상 함께 기록)
type TrustFlags struct {
	IsVerified       bool
	HasVerifiedBadge bool
}

type SellerRepository interface {
	WithTx(tx *gorm.DB) SellerRepository
	Create(ctx context.Context, profile *model.SellerProfile) error
	FindByUserID(ctx context.Context, userID uint) (*model.SellerProfile, error)
	ListUserIDsByPrimaryCategory(ctx context.Context, categoryID uint) ([]uint, error)
	UpdateTrustFlags(ctx context.Context, userID uint, flags TrustFlags) error
	UpdateOverride(ctx context.Context, userID uint, override *bool, reason string) error
	UpdatePremiumSince(ctx context.Context, userID uint, since *time.Time) error
	UpdateDetails(ctx context.Context, userID uint, updates map[string]interface{}) error
}

type sellerRepository struct {
	db *gorm.DB
}

func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

func (r *sellerRepository) WithTx(tx *gorm.DB) SellerRepository {
	return &sellerRepository{db: tx}
}

func (r *sellerRepository) Create(ctx context.Context, profile *model.SellerProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		logger.Error("Failed to create seller profile", err, map[string]interface{}{
			"user_id": profile.UserID,
		})
		return err
	}
	return nil
}

func (r *sellerRepository) FindByUserID(ctx context.Context, userID uint) (*model.SellerProfile, error) {
	var profile model.SellerProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		logger.Debug("Seller profile not found", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &profile, nil
}

func (r *sellerRepository) ListUserIDsByPrimaryCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.SellerProfile{}).
		Where("primary_category_id = ?", categoryID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		logger.Error("Failed to list sellers by primary category", err, map[string]interface{}{
			"category_id": categoryID,
		})
		return nil, err
	}
	return ids, nil
}

// UpdateTrustFlags writes both derived flags in a single UPDATE
func (r *sellerRepository) UpdateTrustFlags(ctx context.Context, userID uint, flags TrustFlags) error {
	result := r.db.WithContext(ctx).Model(&model.SellerProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_verified":        flags.IsVerified,
			"has_verified_badge": flags.HasVerifiedBadge,
		})
	if result.Error != nil {
		logger.Error("Failed to update seller trust flags", result.Error, map[string]interface{}{
			"user_id": userID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Seller trust flags updated", map[string]interface{}{
		"user_id":            userID,
		"is_verified":        flags.IsVerified,
		"has_verified_badge": flags.HasVerifiedBadge,
	})
	return nil
}

func (r *sellerRepository) UpdateOverride(ctx context.Context, userID uint, override *bool, reason string) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"verification_override": override,
		"override_reason":       reason,
	})
}

func (r *sellerRepository) UpdatePremiumSince(ctx context.Context, userID uint, since *time.Time) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"premium_since": since,
	})
}

// UpdateDetails updates descriptive columns; trust columns are rejected
func (r *sellerRepository) UpdateDetails(ctx context.Context, userID uint, updates map[string]interface{}) error {
	for _, column := range []string{"is_verified", "has_verified_badge", "verification_override"} {
		delete(updates, column)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.updateColumns(ctx, userID, updates)
}

func (r *sellerRepository) updateColumns(ctx context.Context, userID uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.SellerProfile{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update seller profile", result.Error, map[string]interface{}{
			"user_id": userID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
