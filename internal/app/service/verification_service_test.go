package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	errFlagWrite  = errors.New("flag write failed")
	errAuditWrite = errors.New("audit write failed")
)

type failingFlagsRepo struct {
	repository.SellerRepository
}

func (r failingFlagsRepo) WithTx(tx *gorm.DB) repository.SellerRepository {
	return failingFlagsRepo{r.SellerRepository.WithTx(tx)}
}

func (r failingFlagsRepo) UpdateTrustFlags(ctx context.Context, userID uint, flags repository.TrustFlags) error {
	return errFlagWrite
}

type failingRecomputeAudit struct {
	AuditService
}

func (a failingRecomputeAudit) WithTx(tx *gorm.DB) AuditService {
	return failingRecomputeAudit{a.AuditService.WithTx(tx)}
}

func (a failingRecomputeAudit) Append(ctx context.Context, entry *model.AuditLog) error {
	if entry.Action == model.AuditActionRecompute {
		return errAuditWrite
	}
	return a.AuditService.Append(ctx, entry)
}

func TestVerificationService_RecomputeIsIdempotent(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")

	first, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.NotZero(t, first.AuditID)

	second, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Zero(t, second.AuditID)

	assert.True(t, f.profile(t, seller.ID).IsVerified)
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionRecompute), 1)
}

func TestVerificationService_NoChangeIsSilent(t *testing.T) {
	f := setupTrustTest(t)
	seller := f.createSeller(t, nil)

	change, err := f.verification.Recompute(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.False(t, change.Changed)
	assert.Equal(t, int64(0), f.countRows(t, &model.AuditLog{}))
}

func TestVerificationService_SellerNotFound(t *testing.T) {
	f := setupTrustTest(t)

	writeCalled := false
	_, err := f.verification.ApplyFact(context.Background(), 999, Trigger{Reason: "test"}, func(ctx context.Context, tx *gorm.DB) error {
		writeCalled = true
		return nil
	})
	assert.ErrorIs(t, err, ErrSellerNotFound)
	assert.False(t, writeCalled)
	assert.Equal(t, int64(0), f.countRows(t, &model.AuditLog{}))
}

func TestVerificationService_FlagWriteFailureWritesNoAudit(t *testing.T) {
	f := setupTrustTest(t, withSellerRepo(func(r repository.SellerRepository) repository.SellerRepository {
		return failingFlagsRepo{r}
	}))
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")

	_, err := f.verification.Recompute(context.Background(), seller.ID)
	assert.ErrorIs(t, err, errFlagWrite)

	assert.False(t, f.profile(t, seller.ID).IsVerified)
	assert.Equal(t, int64(0), f.countRows(t, &model.AuditLog{}))
}

func TestVerificationService_AuditFailureRollsBackTriggeringWrite(t *testing.T) {
	f := setupTrustTest(t, withAudit(func(a AuditService) AuditService {
		return failingRecomputeAudit{a}
	}))
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	pending, err := f.certs.Submit(ctx, seller.ID, SubmitCertificationInput{Name: "ISO9001", Document: pdf("iso")})
	require.NoError(t, err)

	_, err = f.certs.Review(ctx, adminActor(900), pending.ID, model.CertificationStatusApproved, "")
	assert.ErrorIs(t, err, errAuditWrite)

	// 트랜잭션 전체가 롤백되어 검토 전 상태가 유지된다
	cert, err := f.certRepo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificationStatusPending, cert.Status)
	assert.False(t, f.profile(t, seller.ID).IsVerified)
	assert.Equal(t, int64(0), f.countRows(t, &model.AuditLog{}))

	// 재시도는 안전하다
	f.verification = NewVerificationService(f.db, f.sellerRepo, f.certRepo, f.subRepo, f.categoryRepo,
		NewAuditService(f.auditRepo, f.codec), f.locker, f.notifications, VerificationConfig{})
	f.certs = NewCertificationService(f.certRepo, f.sellerRepo, f.store, NewAuditService(f.auditRepo, f.codec),
		f.verification, f.notifications, CertificationConfig{})
	_, err = f.certs.Review(ctx, adminActor(900), pending.ID, model.CertificationStatusApproved, "")
	require.NoError(t, err)
	assert.True(t, f.profile(t, seller.ID).IsVerified)
}

func TestVerificationService_ManualOverride(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")
	_, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)

	change, err := f.verification.ManualOverride(ctx, adminActor(901), seller.ID, false, "fraud investigation")
	require.NoError(t, err)
	assert.True(t, change.Changed)

	profile := f.profile(t, seller.ID)
	assert.False(t, profile.IsVerified)
	require.NotNil(t, profile.VerificationOverride)
	assert.False(t, *profile.VerificationOverride)

	entries := f.auditEntries(t, seller.ID, model.AuditActionManualOverride)
	require.Len(t, entries, 1)
	assert.Equal(t, "manual override: fraud investigation", entries[0].Reason)
	assert.Equal(t, "관리자", entries[0].ActorName)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, uint(901), *entries[0].ActorID)

	before, err := entries[0].Before.Data().DecodeTrust()
	require.NoError(t, err)
	after, err := entries[0].After.Data().DecodeTrust()
	require.NoError(t, err)
	assert.True(t, before.IsVerified)
	assert.Nil(t, before.VerificationOverride)
	assert.False(t, after.IsVerified)
	require.NotNil(t, after.VerificationOverride)

	// Recompute 는 override 를 존중한다
	again, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.False(t, f.profile(t, seller.ID).IsVerified)

	_, err = f.verification.ClearOverride(ctx, adminActor(901), seller.ID, "cleared after review")
	require.NoError(t, err)
	profile = f.profile(t, seller.ID)
	assert.True(t, profile.IsVerified)
	assert.Nil(t, profile.VerificationOverride)
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionManualOverride), 2)
}

func TestVerificationService_ManualOverrideSameValueStillAudited(t *testing.T) {
	f := setupTrustTest(t)
	seller := f.createSeller(t, nil)

	change, err := f.verification.ManualOverride(context.Background(), adminActor(900), seller.ID, false, "keep unverified")
	require.NoError(t, err)
	// override 값 자체가 스냅샷에 기록된다
	assert.True(t, change.Changed)
	assert.False(t, change.After.IsVerified)
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionManualOverride), 1)
}

func TestVerificationService_SerializesSameSeller(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.verification.ApplyFact(ctx, seller.ID, Trigger{Reason: fmt.Sprintf("worker %d", i)}, func(ctx context.Context, tx *gorm.DB) error {
				return f.certRepo.WithTx(tx).Create(ctx, &model.Certification{
					SellerID:    seller.ID,
					Name:        fmt.Sprintf("CERT-%d", i),
					Status:      model.CertificationStatusApproved,
					DocumentRef: "ref",
				})
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.True(t, f.profile(t, seller.ID).IsVerified)
	assert.Equal(t, int64(workers), f.countRows(t, &model.Certification{}))
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionRecompute), 1)
}

func TestVerificationService_LockTimeout(t *testing.T) {
	locker := lock.NewKeyedLocker()
	f := setupTrustTest(t, withLocker(locker))
	seller := f.createSeller(t, nil)

	unlock, err := locker.Lock(context.Background(), sellerLockKey(seller.ID))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.verification.Recompute(ctx, seller.ID)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
}

func TestVerificationService_HoldTimeoutAbortsTransaction(t *testing.T) {
	f := setupTrustTest(t)
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")

	svc := NewVerificationService(f.db, f.sellerRepo, f.certRepo, f.subRepo, f.categoryRepo,
		f.audit, f.locker, f.notifications, VerificationConfig{HoldTimeout: 50 * time.Millisecond})

	_, err := svc.ApplyFact(context.Background(), seller.ID, Trigger{Reason: "slow writer"}, func(ctx context.Context, tx *gorm.DB) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, f.profile(t, seller.ID).IsVerified)
	assert.Equal(t, int64(0), f.countRows(t, &model.AuditLog{}))

	// 락은 해제되어 다음 재계산이 진행된다
	change, err := svc.Recompute(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.True(t, change.After.IsVerified)
}

func TestIsBusinessError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "conflict", err: ErrAlreadyActive, want: true},
		{name: "wrapped state transition", err: fmt.Errorf("review: %w", ErrInvalidStateTransition), want: true},
		{name: "not found", err: ErrCategoryNotFound, want: true},
		{name: "persistence", err: errFlagWrite, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBusinessError(tt.err))
		})
	}
}

func TestVerificationService_RecomputeCategory(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	category := f.createCategory(t, "machinery")

	qualified := f.createSeller(t, &category.ID)
	f.seedApproved(t, qualified.ID, "ISO9001")
	alsoQualified := f.createSeller(t, &category.ID)
	f.seedApproved(t, alsoQualified.ID, "iso9001")
	unqualified := f.createSeller(t, &category.ID)
	f.seedApproved(t, unqualified.ID, "CE")
	elsewhere := f.createSeller(t, nil)
	f.seedApproved(t, elsewhere.ID, "ISO9001")

	_, err := f.policies.Create(ctx, adminActor(900), category.ID, BadgePolicyInput{
		AllowsBadge:            true,
		MinCertifications:      1,
		RequiredCertifications: []string{"ISO9001"},
	})
	require.NoError(t, err)

	// 정책 생성만으로는 재계산하지 않는다
	assert.False(t, f.profile(t, qualified.ID).HasVerifiedBadge)

	result, err := f.verification.RecomputeCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Sellers)
	assert.Equal(t, 3, result.Changed) // 세 명 모두 IsVerified 가 바뀐다

	assert.True(t, f.profile(t, qualified.ID).HasVerifiedBadge)
	assert.True(t, f.profile(t, alsoQualified.ID).HasVerifiedBadge)
	assert.False(t, f.profile(t, unqualified.ID).HasVerifiedBadge)
	assert.True(t, f.profile(t, unqualified.ID).IsVerified)
	assert.False(t, f.profile(t, elsewhere.ID).IsVerified)

	_, err = f.verification.RecomputeCategory(ctx, 404)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestVerificationService_GetTrustState(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")
	_, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)

	state, err := f.verification.GetTrustState(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, state.IsVerified)
	assert.Equal(t, 1, state.ApprovedCount)
	assert.False(t, state.HasActivePremium)

	_, err = f.verification.GetTrustState(ctx, 12345)
	assert.ErrorIs(t, err, ErrSellerNotFound)
}

func TestVerificationService_NotifiesOnFlagChange(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")

	_, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)

	notifications, err := f.notifications.ListRecent(ctx, seller.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationTypeTrustStatusChanged, notifications[0].Type)
	assert.True(t, strings.Contains(notifications[0].Message, "인증 판매자"))
}
