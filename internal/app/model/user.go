package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // 사용자 권한 타입

const (
	RoleBuyer  UserRole = "buyer"  // 구매 기업 담당자
	RoleSeller UserRole = "seller" // 판매 기업 담당자
	RoleAdmin  UserRole = "admin"  // 운영 관리자
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`                         // 사용자 ID
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`            // 이메일
	Name      string         `gorm:"not null" json:"name"`                         // 담당자 이름
	Phone     string         `json:"phone"`                                        // 전화번호
	Role      UserRole       `gorm:"type:varchar(20);default:'buyer'" json:"role"` // 권한
	CreatedAt time.Time      `json:"created_at"`                                   // 생성 시각
	UpdatedAt time.Time      `json:"updated_at"`                                   // 수정 시각
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                               // 삭제 시각(소프트 삭제)

	SellerProfile *SellerProfile `gorm:"foreignKey:UserID" json:"seller_profile,omitempty"` // 판매자 프로필 (판매자만)
}

func (User) TableName() string {
	return "users"
}
