package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

// SubscriptionTerm 구독 기간. 0 값은 1년
type SubscriptionTerm struct {
	Years     int  `json:"years"`
	Months    int  `json:"months"`
	Days      int  `json:"days"`
	OpenEnded bool `json:"open_ended"`
}

// EndDate returns nil for open-ended terms
func (t SubscriptionTerm) EndDate(start time.Time) *time.Time {
	if t.OpenEnded {
		return nil
	}
	years, months, days := t.Years, t.Months, t.Days
	if years == 0 && months == 0 && days == 0 {
		years = 1
	}
	end := start.AddDate(years, months, days)
	return &end
}

// PaymentConfirmation 결제 결과 신호
type PaymentConfirmation struct {
	SellerID  uint   `json:"seller_id"`
	PaymentID string `json:"payment_id"`
	Succeeded bool   `json:"succeeded"`
}

type SubscriptionService interface {
	Activate(ctx context.Context, actor Actor, sellerID uint, paymentID string, term SubscriptionTerm) (*model.PremiumSubscription, error)
	Deactivate(ctx context.Context, actor Actor, subscriptionID uint, reason string) (*model.PremiumSubscription, error)
	GetActiveForSeller(ctx context.Context, sellerID uint) (*model.PremiumSubscription, error)
	HandlePaymentConfirmation(ctx context.Context, confirmation PaymentConfirmation) (*model.PremiumSubscription, error)
	DeactivateByPayment(ctx context.Context, paymentID, reason string) (*model.PremiumSubscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	SetAutoRenew(ctx context.Context, subscriptionID uint, autoRenew bool) (*model.PremiumSubscription, error)
}

type subscriptionService struct {
	subRepo      repository.SubscriptionRepository
	sellerRepo   repository.SellerRepository
	audit        AuditService
	verification VerificationService
	notifier     NotificationSink
}

func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	sellerRepo repository.SellerRepository,
	audit AuditService,
	verification VerificationService,
	notifier NotificationSink,
) SubscriptionService {
	return &subscriptionService{
		subRepo:      subRepo,
		sellerRepo:   sellerRepo,
		audit:        audit,
		verification: verification,
		notifier:     notifier,
	}
}

// Activate creates the seller's single active subscription. An existing active
// subscription is never overwritten.
func (s *subscriptionService) Activate(ctx context.Context, actor Actor, sellerID uint, paymentID string, term SubscriptionTerm) (*model.PremiumSubscription, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	start := time.Now()
	sub := &model.PremiumSubscription{
		SellerID:  sellerID,
		PaymentID: paymentID,
		StartDate: start,
		EndDate:   term.EndDate(start),
		IsActive:  true,
	}

	trigger := Trigger{
		Actor:  actor,
		Reason: fmt.Sprintf("premium activated (payment %s)", paymentID),
	}
	_, err := s.verification.ApplyFact(ctx, sellerID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		subs := s.subRepo.WithTx(tx)

		count, err := subs.CountActiveBySeller(ctx, sellerID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyActive
		}

		if err := subs.Create(ctx, sub); err != nil {
			return err
		}
		if err := s.sellerRepo.WithTx(tx).UpdatePremiumSince(ctx, sellerID, &start); err != nil {
			return err
		}

		entry, err := newAuditEntry(sellerID, actor, model.AuditActionPremiumActivated, trigger.Reason,
			model.SnapshotSchemaSubscription, nil, model.SubscriptionSnapshotOf(sub))
		if err != nil {
			return err
		}
		return s.audit.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyActive) {
			logger.Warn("Premium subscription already active", map[string]interface{}{
				"seller_id":  sellerID,
				"payment_id": paymentID,
			})
		}
		return nil, err
	}

	s.notifier.Notify(ctx, sellerID, model.NotificationTypePremiumActivated, "프리미엄 구독이 시작되었습니다")

	logger.Info("Premium subscription activated", map[string]interface{}{
		"subscription_id": sub.ID,
		"seller_id":       sellerID,
		"payment_id":      paymentID,
		"end_date":        sub.EndDate,
	})
	return sub, nil
}

// Deactivate ends the subscription now. Deactivating an inactive subscription returns it unchanged.
func (s *subscriptionService) Deactivate(ctx context.Context, actor Actor, subscriptionID uint, reason string) (*model.PremiumSubscription, error) {
	sub, err := s.subRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	result, _, err := s.deactivate(ctx, actor, sub, reason, time.Now())
	return result, err
}

// deactivate reports whether it changed the subscription. A row found inactive
// under the seller lock is returned unchanged.
func (s *subscriptionService) deactivate(ctx context.Context, actor Actor, sub *model.PremiumSubscription, reason string, endAt time.Time) (*model.PremiumSubscription, bool, error) {
	if !sub.IsActive {
		return sub, false, nil
	}

	result := sub
	changed := false
	trigger := Trigger{
		Actor:  actor,
		Reason: fmt.Sprintf("premium deactivated: %s", reason),
	}
	_, err := s.verification.ApplyFact(ctx, sub.SellerID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		subs := s.subRepo.WithTx(tx)

		current, err := subs.FindByID(ctx, sub.ID)
		if err != nil {
			return err
		}
		result = current
		if !current.IsActive {
			return nil
		}
		before := model.SubscriptionSnapshotOf(current)

		now := time.Now()
		current.IsActive = false
		current.EndDate = &endAt
		current.DeactivatedAt = &now
		current.DeactivationReason = reason
		if err := subs.Update(ctx, current); err != nil {
			return err
		}
		if err := s.sellerRepo.WithTx(tx).UpdatePremiumSince(ctx, current.SellerID, nil); err != nil {
			return err
		}

		entry, err := newAuditEntry(current.SellerID, actor, model.AuditActionPremiumDeactivated, reason,
			model.SnapshotSchemaSubscription, before, model.SubscriptionSnapshotOf(current))
		if err != nil {
			return err
		}
		changed = true
		return s.audit.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.notifier.Notify(ctx, result.SellerID, model.NotificationTypePremiumDeactivated, "프리미엄 구독이 종료되었습니다")
		logger.Info("Premium subscription deactivated", map[string]interface{}{
			"subscription_id": result.ID,
			"seller_id":       result.SellerID,
			"reason":          reason,
		})
	}
	return result, changed, nil
}

func (s *subscriptionService) GetActiveForSeller(ctx context.Context, sellerID uint) (*model.PremiumSubscription, error) {
	return s.subRepo.FindActiveBySeller(ctx, sellerID)
}

// HandlePaymentConfirmation applies a payment result. Replays for a payment that
// already produced a subscription return that subscription without changes.
func (s *subscriptionService) HandlePaymentConfirmation(ctx context.Context, confirmation PaymentConfirmation) (*model.PremiumSubscription, error) {
	logger.Info("Payment confirmation received", map[string]interface{}{
		"seller_id":  confirmation.SellerID,
		"payment_id": confirmation.PaymentID,
		"succeeded":  confirmation.Succeeded,
	})

	if !confirmation.Succeeded {
		s.notifier.Notify(ctx, confirmation.SellerID, model.NotificationTypePaymentFailed, "프리미엄 구독 결제에 실패했습니다")
		return nil, nil
	}

	paymentID := strings.TrimSpace(confirmation.PaymentID)
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	existing, err := s.subRepo.FindByPaymentID(ctx, paymentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		logger.Info("Payment already applied, skipping", map[string]interface{}{
			"payment_id":      paymentID,
			"subscription_id": existing.ID,
		})
		return existing, nil
	}

	return s.Activate(ctx, SystemActor, confirmation.SellerID, paymentID, SubscriptionTerm{})
}

// DeactivateByPayment is used for refunds
func (s *subscriptionService) DeactivateByPayment(ctx context.Context, paymentID, reason string) (*model.PremiumSubscription, error) {
	sub, err := s.subRepo.FindByPaymentID(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	result, _, err := s.deactivate(ctx, SystemActor, sub, reason, time.Now())
	return result, err
}

// ExpireDue deactivates every active subscription whose end date is at or before now.
// It keeps going past individual failures and reports how many were expired.
func (s *subscriptionService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.subRepo.FindExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for i := range due {
		sub := &due[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		_, changed, err := s.deactivate(ctx, SystemActor, sub, "expired", *sub.EndDate)
		if err != nil {
			logger.Error("Failed to expire subscription", err, map[string]interface{}{
				"subscription_id": sub.ID,
				"seller_id":       sub.SellerID,
			})
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
			continue
		}
		if changed {
			expired++
		}
	}

	if expired > 0 {
		logger.Info("Expired premium subscriptions", map[string]interface{}{
			"count": expired,
		})
	}
	return expired, errors.Join(errs...)
}

// SetAutoRenew is not a trust fact and skips the recompute pipeline
func (s *subscriptionService) SetAutoRenew(ctx context.Context, subscriptionID uint, autoRenew bool) (*model.PremiumSubscription, error) {
	sub, err := s.subRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if sub.AutoRenew == autoRenew {
		return sub, nil
	}

	sub.AutoRenew = autoRenew
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
