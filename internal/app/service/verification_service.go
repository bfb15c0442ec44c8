package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/lock"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultLockTimeout          = 10 * time.Second
	defaultRecomputeConcurrency = 8
	manualOverrideReasonPrefix  = "manual override: "
)

// FactWriter applies a ledger change inside the recompute transaction.
// ctx carries the hold deadline and must be used for every statement on tx.
type FactWriter func(ctx context.Context, tx *gorm.DB) error

// TrustChange is the outcome of one pass through the recompute pipeline
type TrustChange struct {
	SellerID uint
	Before   model.TrustSnapshot
	After    model.TrustSnapshot
	Changed  bool
	AuditID  uint // 0 when no entry was written
}

// TrustState 판매자 신뢰 상태 조회 결과
type TrustState struct {
	SellerID             uint       `json:"seller_id"`
	IsVerified           bool       `json:"is_verified"`
	HasVerifiedBadge     bool       `json:"has_verified_badge"`
	PrimaryCategoryID    *uint      `json:"primary_category_id,omitempty"`
	PremiumSince         *time.Time `json:"premium_since,omitempty"`
	VerificationOverride *bool      `json:"verification_override,omitempty"`
	OverrideReason       string     `json:"override_reason,omitempty"`
	ApprovedCount        int        `json:"approved_certifications"`
	HasActivePremium     bool       `json:"has_active_premium"`
}

// BulkRecomputeResult 카테고리 일괄 재계산 결과
type BulkRecomputeResult struct {
	CategoryID uint `json:"category_id"`
	Sellers    int  `json:"sellers"`
	Changed    int  `json:"changed"`
}

type VerificationConfig struct {
	LockTimeout          time.Duration
	RecomputeConcurrency int
	// HoldTimeout bounds the transaction run under the lock. It must stay below a
	// lease-based lock's TTL. 0 means no bound.
	HoldTimeout time.Duration
}

// VerificationService is the only writer of IsVerified and HasVerifiedBadge
type VerificationService interface {
	Recompute(ctx context.Context, sellerID uint) (*TrustChange, error)
	ApplyFact(ctx context.Context, sellerID uint, trigger Trigger, write FactWriter) (*TrustChange, error)
	ManualOverride(ctx context.Context, actor Actor, sellerID uint, isVerified bool, reason string) (*TrustChange, error)
	ClearOverride(ctx context.Context, actor Actor, sellerID uint, reason string) (*TrustChange, error)
	RecomputeCategory(ctx context.Context, categoryID uint) (*BulkRecomputeResult, error)
	GetTrustState(ctx context.Context, sellerID uint) (*TrustState, error)
}

type verificationService struct {
	db           *gorm.DB
	sellerRepo   repository.SellerRepository
	certRepo     repository.CertificationRepository
	subRepo      repository.SubscriptionRepository
	categoryRepo repository.CategoryRepository
	audit        AuditService
	locker       lock.Locker
	notifier     NotificationSink
	cfg          VerificationConfig
}

func NewVerificationService(
	db *gorm.DB,
	sellerRepo repository.SellerRepository,
	certRepo repository.CertificationRepository,
	subRepo repository.SubscriptionRepository,
	categoryRepo repository.CategoryRepository,
	audit AuditService,
	locker lock.Locker,
	notifier NotificationSink,
	cfg VerificationConfig,
) VerificationService {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.RecomputeConcurrency <= 0 {
		cfg.RecomputeConcurrency = defaultRecomputeConcurrency
	}
	return &verificationService{
		db:           db,
		sellerRepo:   sellerRepo,
		certRepo:     certRepo,
		subRepo:      subRepo,
		categoryRepo: categoryRepo,
		audit:        audit,
		locker:       locker,
		notifier:     notifier,
		cfg:          cfg,
	}
}

func sellerLockKey(sellerID uint) string {
	return fmt.Sprintf("seller-trust:%d", sellerID)
}

func (s *verificationService) Recompute(ctx context.Context, sellerID uint) (*TrustChange, error) {
	return s.ApplyFact(ctx, sellerID, Trigger{Actor: SystemActor, Reason: "recompute"}, nil)
}

// ApplyFact runs write and the recompute of sellerID's trust flags in one transaction
// under the seller's lock. An audit entry is written only when the trust snapshot changes
// (or trigger.Force is set), and always in the same transaction as the flag update.
func (s *verificationService) ApplyFact(ctx context.Context, sellerID uint, trigger Trigger, write FactWriter) (*TrustChange, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	unlock, err := s.locker.Lock(lockCtx, sellerLockKey(sellerID))
	cancel()
	if err != nil {
		logger.Warn("Failed to acquire seller trust lock", map[string]interface{}{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return nil, err
	}
	defer unlock()

	txCtx, cancelHold := s.holdContext(ctx)
	defer cancelHold()

	change := &TrustChange{SellerID: sellerID}
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		ctx := txCtx
		sellers := s.sellerRepo.WithTx(tx)

		profile, err := sellers.FindByUserID(ctx, sellerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSellerNotFound
			}
			return err
		}
		change.Before = model.TrustSnapshotOf(profile)

		if write != nil {
			if err := write(ctx, tx); err != nil {
				return err
			}
			if profile, err = sellers.FindByUserID(ctx, sellerID); err != nil {
				return err
			}
		}

		facts, err := s.gatherFacts(ctx, tx, profile)
		if err != nil {
			return err
		}
		flags := facts.flags(profile)

		if flags.IsVerified != profile.IsVerified || flags.HasVerifiedBadge != profile.HasVerifiedBadge {
			if err := sellers.UpdateTrustFlags(ctx, sellerID, flags); err != nil {
				return err
			}
			profile.IsVerified = flags.IsVerified
			profile.HasVerifiedBadge = flags.HasVerifiedBadge
		}
		change.After = model.TrustSnapshotOf(profile)
		change.Changed = !change.After.Equal(change.Before)

		if !change.Changed && !trigger.Force {
			return ctx.Err()
		}

		entry, err := newAuditEntry(sellerID, trigger.Actor, trigger.action(), trigger.Reason,
			model.SnapshotSchemaSellerTrust, change.Before, change.After)
		if err != nil {
			return err
		}
		if err := s.audit.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		change.AuditID = entry.ID
		// 락 보유 시간이 지났으면 커밋하지 않는다
		return ctx.Err()
	})
	if err != nil {
		s.logApplyFailure(sellerID, trigger, err)
		return nil, err
	}

	if change.Before.IsVerified != change.After.IsVerified || change.Before.HasVerifiedBadge != change.After.HasVerifiedBadge {
		logger.Info("Seller trust flags changed", map[string]interface{}{
			"seller_id":          sellerID,
			"action":             trigger.action(),
			"is_verified":        change.After.IsVerified,
			"has_verified_badge": change.After.HasVerifiedBadge,
		})
		s.notifier.Notify(ctx, sellerID, model.NotificationTypeTrustStatusChanged, trustChangeMessage(change.After))
	}
	return change, nil
}

func (s *verificationService) holdContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.HoldTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.HoldTimeout)
}

// logApplyFailure keeps expected business conflicts out of the error log
func (s *verificationService) logApplyFailure(sellerID uint, trigger Trigger, err error) {
	fields := map[string]interface{}{
		"seller_id": sellerID,
		"action":    trigger.action(),
	}
	if isBusinessError(err) {
		fields["error"] = err.Error()
		logger.Debug("Trust fact rejected", fields)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		fields["error"] = err.Error()
		logger.Warn("Trust recompute aborted", fields)
		return
	}
	logger.Error("Trust recompute failed", err, fields)
}

func trustChangeMessage(after model.TrustSnapshot) string {
	switch {
	case after.IsVerified && after.HasVerifiedBadge:
		return "인증 판매자 및 카테고리 인증 배지가 적용되었습니다"
	case after.IsVerified:
		return "인증 판매자 상태가 적용되었습니다"
	default:
		return "인증 판매자 상태가 해제되었습니다"
	}
}

type trustFacts struct {
	approved         []model.Certification
	hasActivePremium bool
	policy           *model.CategoryBadgePolicy
}

func (f trustFacts) flags(profile *model.SellerProfile) repository.TrustFlags {
	return repository.TrustFlags{
		IsVerified:       ResolveIsVerified(profile.VerificationOverride, len(f.approved), f.hasActivePremium),
		HasVerifiedBadge: ComputeHasBadge(profile.PrimaryCategoryID, f.policy, f.approved),
	}
}

// gatherFacts reads every input of the trust rules through tx
func (s *verificationService) gatherFacts(ctx context.Context, tx *gorm.DB, profile *model.SellerProfile) (trustFacts, error) {
	var facts trustFacts

	approved, err := s.certRepo.WithTx(tx).FindBySellerAndStatus(ctx, profile.UserID, model.CertificationStatusApproved)
	if err != nil {
		return facts, err
	}
	facts.approved = approved

	active, err := s.subRepo.WithTx(tx).FindActiveBySeller(ctx, profile.UserID)
	if err != nil {
		return facts, err
	}
	facts.hasActivePremium = active != nil

	if profile.PrimaryCategoryID != nil {
		policy, err := s.categoryRepo.WithTx(tx).FindPolicy(ctx, *profile.PrimaryCategoryID)
		if err != nil {
			return facts, err
		}
		facts.policy = policy
	}
	return facts, nil
}

func (s *verificationService) ManualOverride(ctx context.Context, actor Actor, sellerID uint, isVerified bool, reason string) (*TrustChange, error) {
	logger.Info("Applying manual verification override", map[string]interface{}{
		"seller_id":   sellerID,
		"is_verified": isVerified,
		"admin_id":    actor.AdminID,
	})

	override := isVerified
	trigger := Trigger{
		Actor:  actor,
		Action: model.AuditActionManualOverride,
		Reason: manualOverrideReasonPrefix + reason,
		Force:  true,
	}
	return s.ApplyFact(ctx, sellerID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		return s.sellerRepo.WithTx(tx).UpdateOverride(ctx, sellerID, &override, reason)
	})
}

// ClearOverride returns the seller to computed verification
func (s *verificationService) ClearOverride(ctx context.Context, actor Actor, sellerID uint, reason string) (*TrustChange, error) {
	trigger := Trigger{
		Actor:  actor,
		Action: model.AuditActionManualOverride,
		Reason: manualOverrideReasonPrefix + "cleared: " + reason,
		Force:  true,
	}
	return s.ApplyFact(ctx, sellerID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		return s.sellerRepo.WithTx(tx).UpdateOverride(ctx, sellerID, nil, "")
	})
}

// RecomputeCategory recomputes every seller whose primary category is categoryID.
// Policy edits never call this; it is an explicit admin action.
func (s *verificationService) RecomputeCategory(ctx context.Context, categoryID uint) (*BulkRecomputeResult, error) {
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	sellerIDs, err := s.sellerRepo.ListUserIDsByPrimaryCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	var changed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RecomputeConcurrency)
	for _, sellerID := range sellerIDs {
		g.Go(func() error {
			trigger := Trigger{Actor: SystemActor, Reason: fmt.Sprintf("category %d bulk recompute", categoryID)}
			change, err := s.ApplyFact(gctx, sellerID, trigger, nil)
			if err != nil {
				return fmt.Errorf("seller %d: %w", sellerID, err)
			}
			if change.Changed {
				changed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BulkRecomputeResult{
		CategoryID: categoryID,
		Sellers:    len(sellerIDs),
		Changed:    int(changed.Load()),
	}
	logger.Info("Category recompute completed", map[string]interface{}{
		"category_id": categoryID,
		"sellers":     result.Sellers,
		"changed":     result.Changed,
	})
	return result, nil
}

func (s *verificationService) GetTrustState(ctx context.Context, sellerID uint) (*TrustState, error) {
	profile, err := s.sellerRepo.FindByUserID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSellerNotFound
		}
		return nil, err
	}

	facts, err := s.gatherFacts(ctx, s.db, profile)
	if err != nil {
		return nil, err
	}

	return &TrustState{
		SellerID:             sellerID,
		IsVerified:           profile.IsVerified,
		HasVerifiedBadge:     profile.HasVerifiedBadge,
		PrimaryCategoryID:    profile.PrimaryCategoryID,
		PremiumSince:         profile.PremiumSince,
		VerificationOverride: profile.VerificationOverride,
		OverrideReason:       profile.OverrideReason,
		ApprovedCount:        len(facts.approved),
		HasActivePremium:     facts.hasActivePremium,
	}, nil
}
