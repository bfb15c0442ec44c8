package model

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCertificationReviewed NotificationType = "certification_reviewed"
	NotificationTypeTrustStatusChanged    NotificationType = "trust_status_changed"
	NotificationTypePremiumActivated      NotificationType = "premium_activated"
	NotificationTypePremiumDeactivated    NotificationType = "premium_deactivated"
	NotificationTypePaymentFailed         NotificationType = "payment_failed"
)

// Notification 알림 모델
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID  uint             `gorm:"not null;index" json:"user_id"`                 // 알림 받을 사용자
	Type    NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`   // 알림 타입
	Message string           `gorm:"type:text;not null" json:"message"`             // 알림 내용
	IsRead  bool             `gorm:"default:false;index" json:"is_read"`            // 읽음 여부
}

func (Notification) TableName() string {
	return "notifications"
}
