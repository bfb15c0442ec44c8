package model

import (
	"time"
)

// PremiumSubscription 프리미엄 구독
// 판매자당 활성 구독은 1개 (DB 제약이 아닌 SubscriptionService 에서 보장)
type PremiumSubscription struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	SellerID  uint       `gorm:"not null;index:idx_premium_seller_active,priority:1" json:"seller_id"`
	PaymentID string     `gorm:"type:varchar(100);not null;index" json:"payment_id"` // 결제 ID
	StartDate time.Time  `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `gorm:"index" json:"end_date,omitempty"` // nil = 기간 제한 없음
	IsActive  bool       `gorm:"not null;default:true;index:idx_premium_seller_active,priority:2" json:"is_active"`
	AutoRenew bool       `gorm:"not null;default:false" json:"auto_renew"`

	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason string     `gorm:"type:text" json:"deactivation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PremiumSubscription) TableName() string {
	return "premium_subscriptions"
}

// SubscriptionSnapshot 감사 로그용 구독 스냅샷 (schema: premium_subscription v1)
type SubscriptionSnapshot struct {
	ID        uint       `json:"id"`
	PaymentID string     `json:"payment_id"`
	IsActive  bool       `json:"is_active"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func SubscriptionSnapshotOf(s *PremiumSubscription) SubscriptionSnapshot {
	return SubscriptionSnapshot{
		ID:        s.ID,
		PaymentID: s.PaymentID,
		IsActive:  s.IsActive,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}
