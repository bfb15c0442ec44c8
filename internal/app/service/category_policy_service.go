package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// BadgePolicyInput 배지 정책 생성/수정 입력
type BadgePolicyInput struct {
	AllowsBadge            bool     `json:"allows_badge"`
	MinCertifications      int      `json:"min_certifications"`
	RequiredCertifications []string `json:"required_certifications"`
}

// CategoryPolicyService manages per-category badge policies.
// Edits never recompute sellers; use VerificationService.RecomputeCategory for that.
type CategoryPolicyService interface {
	Get(ctx context.Context, categoryID uint) (*model.CategoryBadgePolicy, error)
	Create(ctx context.Context, actor Actor, categoryID uint, input BadgePolicyInput) (*model.CategoryBadgePolicy, error)
	Update(ctx context.Context, actor Actor, categoryID uint, input BadgePolicyInput) (*model.CategoryBadgePolicy, error)
	Delete(ctx context.Context, actor Actor, categoryID uint) error
}

type categoryPolicyService struct {
	db           *gorm.DB
	categoryRepo repository.CategoryRepository
	audit        AuditService
}

func NewCategoryPolicyService(db *gorm.DB, categoryRepo repository.CategoryRepository, audit AuditService) CategoryPolicyService {
	return &categoryPolicyService{
		db:           db,
		categoryRepo: categoryRepo,
		audit:        audit,
	}
}

// normalizeRequiredNames trims names and drops blanks and case-insensitive duplicates,
// keeping the first spelling seen
func normalizeRequiredNames(names []string) pq.StringArray {
	seen := make(map[string]struct{}, len(names))
	out := make(pq.StringArray, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func (in BadgePolicyInput) validate() error {
	if in.MinCertifications < 0 {
		return fmt.Errorf("%w: min_certifications must not be negative", ErrInvalidPolicy)
	}
	return nil
}

func (s *categoryPolicyService) Get(ctx context.Context, categoryID uint) (*model.CategoryBadgePolicy, error) {
	return s.categoryRepo.FindPolicy(ctx, categoryID)
}

func (s *categoryPolicyService) Create(ctx context.Context, actor Actor, categoryID uint, input BadgePolicyInput) (*model.CategoryBadgePolicy, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	policy := &model.CategoryBadgePolicy{
		CategoryID:             categoryID,
		AllowsBadge:            input.AllowsBadge,
		MinCertifications:      input.MinCertifications,
		RequiredCertifications: normalizeRequiredNames(input.RequiredCertifications),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := s.categoryRepo.WithTx(tx)

		if _, err := categories.FindByID(ctx, categoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}

		existing, err := categories.FindPolicy(ctx, categoryID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicatePolicy
		}

		if err := categories.CreatePolicy(ctx, policy); err != nil {
			return err
		}
		return s.appendPolicyAudit(ctx, tx, actor, model.AuditActionPolicyCreated, nil, policy)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Badge policy created", map[string]interface{}{
		"category_id":        categoryID,
		"allows_badge":       policy.AllowsBadge,
		"min_certifications": policy.MinCertifications,
	})
	return policy, nil
}

func (s *categoryPolicyService) Update(ctx context.Context, actor Actor, categoryID uint, input BadgePolicyInput) (*model.CategoryBadgePolicy, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var updated *model.CategoryBadgePolicy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := s.categoryRepo.WithTx(tx)

		policy, err := categories.FindPolicy(ctx, categoryID)
		if err != nil {
			return err
		}
		if policy == nil {
			return ErrPolicyNotFound
		}
		before := *policy

		policy.AllowsBadge = input.AllowsBadge
		policy.MinCertifications = input.MinCertifications
		policy.RequiredCertifications = normalizeRequiredNames(input.RequiredCertifications)
		if err := categories.SavePolicy(ctx, policy); err != nil {
			return err
		}

		updated = policy
		return s.appendPolicyAudit(ctx, tx, actor, model.AuditActionPolicyUpdated, &before, policy)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Badge policy updated", map[string]interface{}{
		"category_id":        categoryID,
		"allows_badge":       updated.AllowsBadge,
		"min_certifications": updated.MinCertifications,
	})
	return updated, nil
}

func (s *categoryPolicyService) Delete(ctx context.Context, actor Actor, categoryID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := s.categoryRepo.WithTx(tx)

		policy, err := categories.FindPolicy(ctx, categoryID)
		if err != nil {
			return err
		}
		if policy == nil {
			return ErrPolicyNotFound
		}

		deleted, err := categories.DeletePolicy(ctx, categoryID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrPolicyNotFound
		}
		return s.appendPolicyAudit(ctx, tx, actor, model.AuditActionPolicyDeleted, policy, nil)
	})
	if err != nil {
		return err
	}

	logger.Info("Badge policy deleted", map[string]interface{}{
		"category_id": categoryID,
	})
	return nil
}

// appendPolicyAudit records policy edits against the acting admin; system edits are not audited
func (s *categoryPolicyService) appendPolicyAudit(ctx context.Context, tx *gorm.DB, actor Actor, action model.AuditAction, before, after *model.CategoryBadgePolicy) error {
	if actor.IsSystem() {
		return nil
	}

	var beforeValue, afterValue interface{}
	if before != nil {
		beforeValue = before
	}
	if after != nil {
		afterValue = after
	}

	categoryID := uint(0)
	if after != nil {
		categoryID = after.CategoryID
	} else if before != nil {
		categoryID = before.CategoryID
	}

	entry, err := newAuditEntry(*actor.AdminID, actor, action, fmt.Sprintf("category %d badge policy", categoryID),
		model.SnapshotSchemaBadgePolicy, beforeValue, afterValue)
	if err != nil {
		return err
	}
	return s.audit.WithTx(tx).Append(ctx, entry)
}
