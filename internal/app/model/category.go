package model

import (
	"time"

	"github.com/lib/pq"
)

// Category 상품 카테고리
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BadgePolicy *CategoryBadgePolicy `gorm:"foreignKey:CategoryID" json:"badge_policy,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryBadgePolicy 카테고리별 인증 배지 부여 정책 (카테고리당 최대 1개, 하드 삭제)
type CategoryBadgePolicy struct {
	ID         uint `gorm:"primarykey" json:"id"`
	CategoryID uint `gorm:"uniqueIndex;not null" json:"category_id"`

	AllowsBadge            bool           `gorm:"not null;default:false" json:"allows_badge"`      // false 면 배지 부여 불가
	MinCertifications      int            `gorm:"not null;default:0" json:"min_certifications"`    // 최소 승인 인증서 수
	RequiredCertifications pq.StringArray `gorm:"type:text" json:"required_certifications"`        // 필수 인증서 이름 (대소문자 무시)

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CategoryBadgePolicy) TableName() string {
	return "category_badge_policies"
}
