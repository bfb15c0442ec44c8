package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 서비스 계층에서 분류되지 않은 에러(DB/네트워크)를 코드와 메시지로 변환
// 보안상 민감한 정보는 숨긴다
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "서버 오류가 발생했습니다"}
	}

	errLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: getNotFoundMessage(context)}
	}

	// PostgreSQL unique violation (23505)
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// PostgreSQL foreign key violation (23503)
	if strings.Contains(errLower, "foreign key constraint") {
		if strings.Contains(errLower, "still referenced") {
			return ErrorInfo{Code: ResourceConflict, Message: "연결된 데이터가 있어 삭제할 수 없습니다"}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "참조하는 데이터를 찾을 수 없습니다"}
	}

	if strings.Contains(errLower, "violates not-null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "필수 항목이 누락되었습니다"}
	}

	if strings.Contains(errLower, "context deadline exceeded") || strings.Contains(errLower, "lock acquisition timed out") {
		return ErrorInfo{Code: TrustBusy, Message: "다른 작업이 처리 중입니다. 잠시 후 다시 시도해주세요"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "category_badge_policies"):
		return ErrorInfo{Code: PolicyDuplicate, Message: "이미 배지 정책이 등록된 카테고리입니다"}
	case strings.Contains(errLower, "premium_subscriptions"):
		return ErrorInfo{Code: PremiumAlreadyActive, Message: "이미 처리된 결제입니다"}
	case strings.Contains(errLower, "seller_profiles"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 판매자 프로필이 있습니다"}
	case strings.Contains(errLower, "slug"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 사용 중인 카테고리 식별자입니다"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 사용 중인 이메일입니다"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 존재하는 데이터입니다"}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "seller") || strings.Contains(contextLower, "판매자"):
		return "판매자를 찾을 수 없습니다"
	case strings.Contains(contextLower, "certification") || strings.Contains(contextLower, "인증서"):
		return "인증서를 찾을 수 없습니다"
	case strings.Contains(contextLower, "category") || strings.Contains(contextLower, "카테고리"):
		return "카테고리를 찾을 수 없습니다"
	case strings.Contains(contextLower, "subscription") || strings.Contains(contextLower, "구독"):
		return "구독 정보를 찾을 수 없습니다"
	case strings.Contains(contextLower, "user") || strings.Contains(contextLower, "사용자"):
		return "사용자를 찾을 수 없습니다"
	}
	return "요청한 데이터를 찾을 수 없습니다"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create") || strings.Contains(contextLower, "등록"):
		return "등록 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "update") || strings.Contains(contextLower, "수정"):
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "삭제"):
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "recompute") || strings.Contains(contextLower, "재계산"):
		return "신뢰 상태 재계산 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}
