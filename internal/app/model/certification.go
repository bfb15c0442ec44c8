package model

import (
	"time"
)

type CertificationStatus string

// CertificationStatus 상수 정의
const (
	CertificationStatusPending  CertificationStatus = "pending"  // 검토 대기
	CertificationStatusApproved CertificationStatus = "approved" // 승인됨
	CertificationStatusRejected CertificationStatus = "rejected" // 반려됨
)

// IsValid reports whether s is one of the known statuses
func (s CertificationStatus) IsValid() bool {
	switch s {
	case CertificationStatusPending, CertificationStatusApproved, CertificationStatusRejected:
		return true
	}
	return false
}

// Certification 판매자가 제출한 인증서 (검토 후 변경 불가, 삭제하지 않음)
type Certification struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	SellerID uint   `gorm:"not null;index:idx_certifications_seller_status,priority:1" json:"seller_id"` // 판매자 사용자 ID
	Name     string `gorm:"type:varchar(200);not null" json:"name"`                                     // 인증서 이름 (예: ISO9001)

	Status      CertificationStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_certifications_seller_status,priority:2" json:"status"`
	SubmittedAt time.Time           `gorm:"not null" json:"submitted_at"`  // 제출 일시
	ReviewedAt  *time.Time          `json:"reviewed_at,omitempty"`         // 검토 완료 일시
	ReviewedBy  *uint               `json:"reviewed_by,omitempty"`         // 검토한 관리자 ID
	AdminNotes  *string             `gorm:"type:text" json:"admin_notes"` // 관리자 메모

	// 문서 정보 (DocumentStore 참조)
	DocumentRef         string `gorm:"type:text;not null" json:"-"`
	DocumentName        string `gorm:"type:varchar(255)" json:"document_name"`
	DocumentContentType string `gorm:"type:varchar(100)" json:"document_content_type"`
	DocumentSize        int64  `json:"document_size"`

	// 추적 정보 (보안/로그용)
	IPAddress string `gorm:"type:varchar(50)" json:"-"`
	UserAgent string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Certification) TableName() string {
	return "certifications"
}

// IsReviewed reports whether the certification reached a terminal state
func (c *Certification) IsReviewed() bool {
	return c.Status != CertificationStatusPending
}

// CertificationSnapshot 감사 로그용 인증서 스냅샷 (schema: certification v1)
type CertificationSnapshot struct {
	ID         uint                `json:"id"`
	Name       string              `json:"name"`
	Status     CertificationStatus `json:"status"`
	ReviewedAt *time.Time          `json:"reviewed_at,omitempty"`
}

func CertificationSnapshotOf(c *Certification) CertificationSnapshot {
	return CertificationSnapshot{
		ID:         c.ID,
		Name:       c.Name,
		Status:     c.Status,
		ReviewedAt: c.ReviewedAt,
	}
}
