package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

// ProfileUpdate is one of BuyerUpdate, SellerUpdate or SellerExtendedUpdate.
// None of them carries trust flags.
type ProfileUpdate interface {
	profileUpdate()
}

// BuyerUpdate 담당자 정보 수정 (모든 역할 허용)
type BuyerUpdate struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// SellerUpdate 판매자 회사 정보 수정
type SellerUpdate struct {
	BuyerUpdate
	CompanyName *string `json:"company_name"`
	Description *string `json:"description"`
}

// SellerExtendedUpdate 대표 카테고리 변경 포함 (신뢰 상태 재계산)
type SellerExtendedUpdate struct {
	SellerUpdate
	PrimaryCategoryID    *uint `json:"primary_category_id"`
	ClearPrimaryCategory bool  `json:"clear_primary_category"`
}

func (BuyerUpdate) profileUpdate()          {}
func (SellerUpdate) profileUpdate()         {}
func (SellerExtendedUpdate) profileUpdate() {}

type ProfileService interface {
	UpdateProfile(ctx context.Context, actor Actor, userID uint, update ProfileUpdate) (*model.User, error)
}

type profileService struct {
	userRepo     repository.UserRepository
	sellerRepo   repository.SellerRepository
	categoryRepo repository.CategoryRepository
	verification VerificationService
}

func NewProfileService(
	userRepo repository.UserRepository,
	sellerRepo repository.SellerRepository,
	categoryRepo repository.CategoryRepository,
	verification VerificationService,
) ProfileService {
	return &profileService{
		userRepo:     userRepo,
		sellerRepo:   sellerRepo,
		categoryRepo: categoryRepo,
		verification: verification,
	}
}

func (s *profileService) UpdateProfile(ctx context.Context, actor Actor, userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	switch u := update.(type) {
	case BuyerUpdate:
		err = s.applyContact(ctx, user, u)
	case SellerUpdate:
		if user.Role != model.RoleSeller {
			return nil, ErrInvalidProfileUpdate
		}
		err = s.applySeller(ctx, user, u)
	case SellerExtendedUpdate:
		if user.Role != model.RoleSeller {
			return nil, ErrInvalidProfileUpdate
		}
		if err = s.applySeller(ctx, user, u.SellerUpdate); err == nil {
			err = s.applyPrimaryCategory(ctx, actor, userID, u)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidProfileUpdate, update)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Profile updated", map[string]interface{}{
		"user_id": userID,
		"update":  fmt.Sprintf("%T", update),
	})
	return s.userRepo.FindByID(ctx, userID)
}

func (s *profileService) applyContact(ctx context.Context, user *model.User, u BuyerUpdate) error {
	changed := false
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		user.Name = strings.TrimSpace(*u.Name)
		changed = true
	}
	if u.Phone != nil {
		user.Phone = strings.TrimSpace(*u.Phone)
		changed = true
	}
	if !changed {
		return nil
	}
	return s.userRepo.Update(ctx, user)
}

func (s *profileService) applySeller(ctx context.Context, user *model.User, u SellerUpdate) error {
	if err := s.applyContact(ctx, user, u.BuyerUpdate); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if u.CompanyName != nil && strings.TrimSpace(*u.CompanyName) != "" {
		updates["company_name"] = strings.TrimSpace(*u.CompanyName)
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.sellerRepo.UpdateDetails(ctx, user.ID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSellerNotFound
		}
		return err
	}
	return nil
}

// applyPrimaryCategory routes the category change through the recompute pipeline
func (s *profileService) applyPrimaryCategory(ctx context.Context, actor Actor, userID uint, u SellerExtendedUpdate) error {
	if u.PrimaryCategoryID == nil && !u.ClearPrimaryCategory {
		return nil
	}

	var categoryID *uint
	if !u.ClearPrimaryCategory {
		categoryID = u.PrimaryCategoryID
	}

	reason := "primary category cleared"
	if categoryID != nil {
		reason = fmt.Sprintf("primary category set to %d", *categoryID)
	}
	trigger := Trigger{
		Actor:  actor,
		Action: model.AuditActionPrimaryCategoryChanged,
		Reason: reason,
	}
	_, err := s.verification.ApplyFact(ctx, userID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		if categoryID != nil {
			if _, err := s.categoryRepo.WithTx(tx).FindByID(ctx, *categoryID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCategoryNotFound
				}
				return err
			}
		}
		return s.sellerRepo.WithTx(tx).UpdateDetails(ctx, userID, map[string]interface{}{
			"primary_category_id": categoryID,
		})
	})
	return err
}
