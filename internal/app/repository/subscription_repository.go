package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	WithTx(tx *gorm.DB) SubscriptionRepository
	Create(ctx context.Context, sub *model.PremiumSubscription) error
	FindByID(ctx context.Context, id uint) (*model.PremiumSubscription, error)
	FindActiveBySeller(ctx context.Context, sellerID uint) (*model.PremiumSubscription, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*model.PremiumSubscription, error)
	CountActiveBySeller(ctx context.Context, sellerID uint) (int64, error)
	FindExpiredActive(ctx context.Context, now time.Time) ([]model.PremiumSubscription, error)
	Update(ctx context.Context, sub *model.PremiumSubscription) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) WithTx(tx *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: tx}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.PremiumSubscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		logger.Error("Failed to create premium subscription", err, map[string]interface{}{
			"seller_id":  sub.SellerID,
			"payment_id": sub.PaymentID,
		})
		return err
	}

	logger.Debug("Premium subscription created", map[string]interface{}{
		"subscription_id": sub.ID,
		"seller_id":       sub.SellerID,
	})
	return nil
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uint) (*model.PremiumSubscription, error) {
	var sub model.PremiumSubscription
	if err := r.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveBySeller returns (nil, nil) when the seller has no active subscription
func (r *subscriptionRepository) FindActiveBySeller(ctx context.Context, sellerID uint) (*model.PremiumSubscription, error) {
	var sub model.PremiumSubscription
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND is_active = ?", sellerID, true).
		Order("start_date DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to find active subscription", err, map[string]interface{}{
			"seller_id": sellerID,
		})
		return nil, err
	}
	return &sub, nil
}

// FindByPaymentID returns the most recent subscription created for the payment
func (r *subscriptionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*model.PremiumSubscription, error) {
	var sub model.PremiumSubscription
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id DESC").
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) CountActiveBySeller(ctx context.Context, sellerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PremiumSubscription{}).
		Where("seller_id = ? AND is_active = ?", sellerID, true).
		Count(&count).Error
	return count, err
}

func (r *subscriptionRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]model.PremiumSubscription, error) {
	var subs []model.PremiumSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date <= ?", true, now).
		Order("end_date ASC").
		Find(&subs).Error; err != nil {
		logger.Error("Failed to find expired subscriptions", err)
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.PremiumSubscription) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		logger.Error("Failed to update premium subscription", err, map[string]interface{}{
			"subscription_id": sub.ID,
		})
		return err
	}
	return nil
}
