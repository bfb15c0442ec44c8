package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionRecompute              AuditAction = "Recompute"
	AuditActionManualOverride         AuditAction = "ManualOverride"
	AuditActionCertificationReviewed  AuditAction = "CertificationReviewed"
	AuditActionPolicyCreated          AuditAction = "PolicyCreated"
	AuditActionPolicyUpdated          AuditAction = "PolicyUpdated"
	AuditActionPolicyDeleted          AuditAction = "PolicyDeleted"
	AuditActionPremiumActivated       AuditAction = "PremiumActivated"
	AuditActionPremiumDeactivated     AuditAction = "PremiumDeactivated"
	AuditActionPrimaryCategoryChanged AuditAction = "PrimaryCategoryChanged"
)

// MutatesTrustState reports whether entries of this action must carry both snapshots
func (a AuditAction) MutatesTrustState() bool {
	switch a {
	case AuditActionRecompute, AuditActionManualOverride, AuditActionPrimaryCategoryChanged:
		return true
	}
	return false
}

// Snapshot schema 이름
const (
	SnapshotSchemaSellerTrust   = "seller_trust"
	SnapshotSchemaCertification = "certification"
	SnapshotSchemaSubscription  = "premium_subscription"
	SnapshotSchemaBadgePolicy   = "category_badge_policy"
)

// Snapshot 버전/스키마 태그가 붙은 직렬화 스냅샷
// 상태 구조가 바뀌어도 과거 로그를 schema+version 으로 해석할 수 있어야 한다
type Snapshot struct {
	Schema  string          `json:"schema"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// NewSnapshot serializes v under the given schema at version 1
func NewSnapshot(schema string, v interface{}) (*Snapshot, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s snapshot: %w", schema, err)
	}
	return &Snapshot{Schema: schema, Version: 1, Data: data}, nil
}

// DecodeTrust decodes a seller_trust snapshot
func (s *Snapshot) DecodeTrust() (TrustSnapshot, error) {
	var t TrustSnapshot
	if s == nil {
		return t, fmt.Errorf("nil snapshot")
	}
	if s.Schema != SnapshotSchemaSellerTrust {
		return t, fmt.Errorf("snapshot schema %q is not %q", s.Schema, SnapshotSchemaSellerTrust)
	}
	switch s.Version {
	case 1:
		err := json.Unmarshal(s.Data, &t)
		return t, err
	default:
		return t, fmt.Errorf("unsupported %s snapshot version %d", s.Schema, s.Version)
	}
}

// AuditLog 관리 작업 감사 로그 (append-only)
// ActorName / ActorRole / Reason 은 PII 코덱으로 암호화되어 저장된다
type AuditLog struct {
	ID            uint        `gorm:"primarykey" json:"id"`
	SubjectUserID uint        `gorm:"not null;index" json:"subject_user_id"`         // 대상 사용자
	ActorID       *uint       `gorm:"index" json:"actor_id,omitempty"`               // 작업 관리자 (nil = 시스템)
	ActorName     string      `gorm:"type:text" json:"actor_name,omitempty"`         // 암호화
	ActorRole     string      `gorm:"type:text" json:"actor_role,omitempty"`         // 암호화
	Action        AuditAction `gorm:"type:varchar(50);not null;index" json:"action"` // 작업 이름
	Reason        string      `gorm:"type:text" json:"reason,omitempty"`             // 암호화

	Before datatypes.JSONType[*Snapshot] `json:"before"`
	After  datatypes.JSONType[*Snapshot] `json:"after"`

	IPAddress string `gorm:"type:varchar(50)" json:"ip_address,omitempty"`
	UserAgent string `gorm:"type:text" json:"user_agent,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
