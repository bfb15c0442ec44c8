package model

import (
	"time"
)

// SellerProfile 판매자 프로필
// IsVerified / HasVerifiedBadge 는 파생 값이며 VerificationService 만 기록한다
type SellerProfile struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"` // 판매자 사용자 ID
	CompanyName string `gorm:"not null" json:"company_name"`        // 회사명
	Description string `gorm:"type:text" json:"description"`        // 회사 소개

	// 파생 신뢰 상태
	IsVerified        bool       `gorm:"default:false;not null;index" json:"is_verified"`        // 인증 판매자 여부
	HasVerifiedBadge  bool       `gorm:"default:false;not null;index" json:"has_verified_badge"` // 카테고리 인증 배지 여부
	PrimaryCategoryID *uint      `gorm:"index" json:"primary_category_id,omitempty"`             // 대표 카테고리
	PremiumSince      *time.Time `json:"premium_since,omitempty"`                                // 프리미엄 시작 시각

	// 관리자 수동 지정 (nil 이면 계산값 사용)
	VerificationOverride *bool  `json:"verification_override,omitempty"`
	OverrideReason       string `gorm:"type:text" json:"override_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User            *User     `gorm:"foreignKey:UserID" json:"-"`
	PrimaryCategory *Category `gorm:"foreignKey:PrimaryCategoryID;constraint:OnDelete:SET NULL" json:"primary_category,omitempty"`
}

func (SellerProfile) TableName() string {
	return "seller_profiles"
}

// TrustSnapshot 감사 로그에 기록되는 신뢰 상태 스냅샷 (schema: seller_trust v1)
type TrustSnapshot struct {
	IsVerified           bool  `json:"is_verified"`
	HasVerifiedBadge     bool  `json:"has_verified_badge"`
	PrimaryCategoryID    *uint `json:"primary_category_id,omitempty"`
	VerificationOverride *bool `json:"verification_override,omitempty"`
}

// TrustSnapshotOf captures the trust-relevant fields of a profile
func TrustSnapshotOf(p *SellerProfile) TrustSnapshot {
	return TrustSnapshot{
		IsVerified:           p.IsVerified,
		HasVerifiedBadge:     p.HasVerifiedBadge,
		PrimaryCategoryID:    copyUint(p.PrimaryCategoryID),
		VerificationOverride: copyBool(p.VerificationOverride),
	}
}

// Equal compares by value, including the pointed-to override and category
func (s TrustSnapshot) Equal(o TrustSnapshot) bool {
	return s.IsVerified == o.IsVerified &&
		s.HasVerifiedBadge == o.HasVerifiedBadge &&
		equalUint(s.PrimaryCategoryID, o.PrimaryCategoryID) &&
		equalBool(s.VerificationOverride, o.VerificationOverride)
}

func copyUint(v *uint) *uint {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalUint(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
