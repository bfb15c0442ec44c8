package service

import "errors"

// 검증 에러
var (
	ErrInvalidDocument            = errors.New("document failed size or type validation")
	ErrInvalidCertificationName   = errors.New("certification name is required")
	ErrInvalidReviewOutcome       = errors.New("review outcome must be approved or rejected")
	ErrInvalidCertificationStatus = errors.New("unknown certification status")
	ErrInvalidPolicy              = errors.New("invalid badge policy")
	ErrInvalidAuditEntry          = errors.New("audit entry is missing required fields")
	ErrInvalidProfileUpdate       = errors.New("profile update does not match user role")
	ErrInvalidPaymentID           = errors.New("payment id is required")
)

// 상태 충돌 에러
var (
	ErrInvalidStateTransition = errors.New("certification has already been reviewed")
	ErrAlreadyActive          = errors.New("seller already has an active premium subscription")
	ErrDuplicatePolicy        = errors.New("category already has a badge policy")
)

// 조회 실패 에러
var (
	ErrSellerNotFound        = errors.New("seller not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCertificationNotFound = errors.New("certification not found")
	ErrPolicyNotFound        = errors.New("badge policy not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
)

var businessErrors = []error{
	ErrInvalidDocument, ErrInvalidCertificationName, ErrInvalidReviewOutcome, ErrInvalidCertificationStatus,
	ErrInvalidPolicy, ErrInvalidAuditEntry, ErrInvalidProfileUpdate, ErrInvalidPaymentID,
	ErrInvalidStateTransition, ErrAlreadyActive, ErrDuplicatePolicy,
	ErrSellerNotFound, ErrUserNotFound, ErrCategoryNotFound, ErrCertificationNotFound,
	ErrPolicyNotFound, ErrSubscriptionNotFound,
}

// isBusinessError reports whether err is one of the sentinels above
func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
