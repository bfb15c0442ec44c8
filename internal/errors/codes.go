package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // 관리자만 가능
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"     // 소유자만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 판매자 (SELLER_) ====================
	SellerNotFound   = "SELLER_NOT_FOUND"   // 판매자 프로필 없음
	UserNotFound     = "USER_NOT_FOUND"     // 사용자 없음
	CategoryNotFound = "CATEGORY_NOT_FOUND" // 카테고리 없음
	ProfileInvalid   = "PROFILE_INVALID"    // 역할에 맞지 않는 프로필 수정

	// ==================== 인증서 (CERT_) ====================
	CertNotFound            = "CERT_NOT_FOUND"            // 인증서 없음
	CertInvalidDocument     = "CERT_INVALID_DOCUMENT"     // 문서 형식/크기 오류
	CertInvalidName         = "CERT_INVALID_NAME"         // 인증서 이름 오류
	CertInvalidOutcome      = "CERT_INVALID_OUTCOME"      // 심사 결과는 approved/rejected 만
	CertInvalidStatus       = "CERT_INVALID_STATUS"       // 알 수 없는 상태
	CertAlreadyReviewed     = "CERT_ALREADY_REVIEWED"     // 이미 심사 완료
	CertDocumentUnavailable = "CERT_DOCUMENT_UNAVAILABLE" // 문서 저장소 오류

	// ==================== 배지 정책 (POLICY_) ====================
	PolicyNotFound  = "POLICY_NOT_FOUND" // 정책 없음
	PolicyInvalid   = "POLICY_INVALID"   // 잘못된 정책 값
	PolicyDuplicate = "POLICY_DUPLICATE" // 카테고리당 정책 하나

	// ==================== 프리미엄 (PREMIUM_) ====================
	PremiumNotFound       = "PREMIUM_NOT_FOUND"       // 구독 없음
	PremiumAlreadyActive  = "PREMIUM_ALREADY_ACTIVE"  // 이미 활성 구독 있음
	PremiumInvalidPayment = "PREMIUM_INVALID_PAYMENT" // 결제 ID 오류

	// ==================== 신뢰 엔진 (TRUST_) ====================
	TrustBusy         = "TRUST_BUSY"          // 판매자 락 획득 실패
	TrustAuditInvalid = "TRUST_AUDIT_INVALID" // 감사 로그 항목 오류

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
