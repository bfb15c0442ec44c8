package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubscriptionTerm_EndDate(t *testing.T) {
	start := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)

	end := SubscriptionTerm{}.EndDate(start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2027, 1, 31, 9, 0, 0, 0, time.UTC), *end)

	end = SubscriptionTerm{Days: 30}.EndDate(start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), *end)

	assert.Nil(t, SubscriptionTerm{OpenEnded: true}.EndDate(start))
}

func TestSubscriptionService_Activate(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)

	sub, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-1", SubscriptionTerm{})
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, sub.StartDate.AddDate(1, 0, 0), *sub.EndDate, time.Second)

	profile := f.profile(t, seller.ID)
	assert.True(t, profile.IsVerified, "premium alone grants verification")
	require.NotNil(t, profile.PremiumSince)

	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionPremiumActivated), 1)
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionRecompute), 1)

	active, err := f.subs.GetActiveForSeller(ctx, seller.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sub.ID, active.ID)
}

func TestSubscriptionService_ActivateTwiceConflicts(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)

	_, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-1", SubscriptionTerm{})
	require.NoError(t, err)

	_, err = f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-2", SubscriptionTerm{})
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, int64(1), f.countRows(t, &model.PremiumSubscription{}))
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionPremiumActivated), 1)
}

func TestSubscriptionService_ActivateValidation(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()

	_, err := f.subs.Activate(ctx, adminActor(900), 404, "pay-1", SubscriptionTerm{})
	assert.ErrorIs(t, err, ErrSellerNotFound)

	seller := f.createSeller(t, nil)
	_, err = f.subs.Activate(ctx, adminActor(900), seller.ID, "  ", SubscriptionTerm{})
	assert.ErrorIs(t, err, ErrInvalidPaymentID)
	assert.Equal(t, int64(0), f.countRows(t, &model.PremiumSubscription{}))
}

func TestSubscriptionService_Deactivate(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	sub, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-1", SubscriptionTerm{OpenEnded: true})
	require.NoError(t, err)
	assert.Nil(t, sub.EndDate)

	deactivated, err := f.subs.Deactivate(ctx, adminActor(900), sub.ID, "refund requested")
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	require.NotNil(t, deactivated.EndDate)
	assert.Equal(t, "refund requested", deactivated.DeactivationReason)

	profile := f.profile(t, seller.ID)
	assert.False(t, profile.IsVerified)
	assert.Nil(t, profile.PremiumSince)

	// 이미 비활성인 구독은 그대로 반환
	again, err := f.subs.Deactivate(ctx, adminActor(900), sub.ID, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, "refund requested", again.DeactivationReason)
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionPremiumDeactivated), 1)

	active, err := f.subs.GetActiveForSeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = f.subs.Deactivate(ctx, adminActor(900), 404, "missing")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	// 비활성화 후에는 다시 활성화할 수 있다
	_, err = f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-2", SubscriptionTerm{})
	assert.NoError(t, err)
}

func TestSubscriptionService_PremiumLapseKeepsCertifiedSellerVerified(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")

	sub, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-1", SubscriptionTerm{})
	require.NoError(t, err)
	_, err = f.subs.Deactivate(ctx, adminActor(900), sub.ID, "expired")
	require.NoError(t, err)

	assert.True(t, f.profile(t, seller.ID).IsVerified)
}

func TestSubscriptionService_HandlePaymentConfirmation(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)

	sub, err := f.subs.HandlePaymentConfirmation(ctx, PaymentConfirmation{SellerID: seller.ID, PaymentID: "pay-9", Succeeded: true})
	require.NoError(t, err)
	require.NotNil(t, sub)

	replay, err := f.subs.HandlePaymentConfirmation(ctx, PaymentConfirmation{SellerID: seller.ID, PaymentID: "pay-9", Succeeded: true})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, replay.ID)
	assert.Equal(t, int64(1), f.countRows(t, &model.PremiumSubscription{}))

	entries := f.auditEntries(t, seller.ID, model.AuditActionPremiumActivated)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
	assert.Equal(t, "system", entries[0].ActorName)
}

func TestSubscriptionService_PaymentFailureNotifies(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)

	sub, err := f.subs.HandlePaymentConfirmation(ctx, PaymentConfirmation{SellerID: seller.ID, PaymentID: "pay-x", Succeeded: false})
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, int64(0), f.countRows(t, &model.PremiumSubscription{}))

	notifications, err := f.notifications.ListRecent(ctx, seller.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationTypePaymentFailed, notifications[0].Type)
}

func TestSubscriptionService_DeactivateByPayment(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	_, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-r", SubscriptionTerm{})
	require.NoError(t, err)

	sub, err := f.subs.DeactivateByPayment(ctx, "pay-r", "refund")
	require.NoError(t, err)
	assert.False(t, sub.IsActive)
	assert.False(t, f.profile(t, seller.ID).IsVerified)

	// 환불된 결제의 재전송은 구독을 되살리지 않는다
	replay, err := f.subs.HandlePaymentConfirmation(ctx, PaymentConfirmation{SellerID: seller.ID, PaymentID: "pay-r", Succeeded: true})
	require.NoError(t, err)
	assert.False(t, replay.IsActive)

	_, err = f.subs.DeactivateByPayment(ctx, "unknown", "refund")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestSubscriptionService_ExpireDue(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	shortTerm := f.createSeller(t, nil)
	longTerm := f.createSeller(t, nil)
	openEnded := f.createSeller(t, nil)

	short, err := f.subs.Activate(ctx, adminActor(900), shortTerm.ID, "pay-a", SubscriptionTerm{Days: 1})
	require.NoError(t, err)
	_, err = f.subs.Activate(ctx, adminActor(900), longTerm.ID, "pay-b", SubscriptionTerm{})
	require.NoError(t, err)
	_, err = f.subs.Activate(ctx, adminActor(900), openEnded.ID, "pay-c", SubscriptionTerm{OpenEnded: true})
	require.NoError(t, err)

	expired, err := f.subs.ExpireDue(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.subRepo.FindByID(ctx, short.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "expired", stored.DeactivationReason)
	require.NotNil(t, stored.EndDate)
	assert.WithinDuration(t, *short.EndDate, *stored.EndDate, time.Second)

	assert.False(t, f.profile(t, shortTerm.ID).IsVerified)
	assert.True(t, f.profile(t, longTerm.ID).IsVerified)
	assert.True(t, f.profile(t, openEnded.ID).IsVerified)

	// 두 번째 실행은 할 일이 없다
	expired, err = f.subs.ExpireDue(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}

// staleDueRepo deactivates each due row right after listing it, like a concurrent refund would
type staleDueRepo struct {
	repository.SubscriptionRepository
	db *gorm.DB
}

func (r staleDueRepo) FindExpiredActive(ctx context.Context, now time.Time) ([]model.PremiumSubscription, error) {
	due, err := r.SubscriptionRepository.FindExpiredActive(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, sub := range due {
		if err := r.db.Model(&model.PremiumSubscription{}).Where("id = ?", sub.ID).Update("is_active", false).Error; err != nil {
			return nil, err
		}
	}
	return due, nil
}

func TestSubscriptionService_ExpireDueCountsOnlyRealChanges(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	_, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-a", SubscriptionTerm{Days: 1})
	require.NoError(t, err)

	subs := NewSubscriptionService(staleDueRepo{f.subRepo, f.db}, f.sellerRepo, f.audit, f.verification, f.notifications)
	expired, err := subs.ExpireDue(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Empty(t, f.auditEntries(t, seller.ID, model.AuditActionPremiumDeactivated))
}

func TestSubscriptionService_SetAutoRenew(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	sub, err := f.subs.Activate(ctx, adminActor(900), seller.ID, "pay-1", SubscriptionTerm{})
	require.NoError(t, err)

	updated, err := f.subs.SetAutoRenew(ctx, sub.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.AutoRenew)

	stored, err := f.subRepo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.AutoRenew)

	_, err = f.subs.SetAutoRenew(ctx, 404, true)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}
