package controller

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
	"github.com/ikkim/bizmarket-backend/internal/lock"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

type serviceErrorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var serviceErrorMappings = []serviceErrorMapping{
	{service.ErrInvalidDocument, http.StatusBadRequest, errors.CertInvalidDocument, "지원하지 않는 문서 형식이거나 크기가 허용 범위를 벗어났습니다"},
	{service.ErrInvalidCertificationName, http.StatusBadRequest, errors.CertInvalidName, "인증서 이름을 입력해주세요"},
	{service.ErrInvalidReviewOutcome, http.StatusBadRequest, errors.CertInvalidOutcome, "심사 결과는 approved 또는 rejected 여야 합니다"},
	{service.ErrInvalidCertificationStatus, http.StatusBadRequest, errors.CertInvalidStatus, "알 수 없는 인증서 상태입니다"},
	{service.ErrInvalidPolicy, http.StatusBadRequest, errors.PolicyInvalid, "배지 정책 값이 올바르지 않습니다"},
	{service.ErrInvalidAuditEntry, http.StatusInternalServerError, errors.TrustAuditInvalid, "감사 로그를 기록할 수 없습니다"},
	{service.ErrInvalidProfileUpdate, http.StatusBadRequest, errors.ProfileInvalid, "현재 역할로는 수정할 수 없는 항목입니다"},
	{service.ErrInvalidPaymentID, http.StatusBadRequest, errors.PremiumInvalidPayment, "결제 ID가 필요합니다"},

	{service.ErrInvalidStateTransition, http.StatusConflict, errors.CertAlreadyReviewed, "이미 심사가 완료된 인증서입니다"},
	{service.ErrAlreadyActive, http.StatusConflict, errors.PremiumAlreadyActive, "이미 활성화된 프리미엄 구독이 있습니다"},
	{service.ErrDuplicatePolicy, http.StatusConflict, errors.PolicyDuplicate, "이미 배지 정책이 등록된 카테고리입니다"},

	{service.ErrSellerNotFound, http.StatusNotFound, errors.SellerNotFound, "판매자를 찾을 수 없습니다"},
	{service.ErrUserNotFound, http.StatusNotFound, errors.UserNotFound, "사용자를 찾을 수 없습니다"},
	{service.ErrCategoryNotFound, http.StatusNotFound, errors.CategoryNotFound, "카테고리를 찾을 수 없습니다"},
	{service.ErrCertificationNotFound, http.StatusNotFound, errors.CertNotFound, "인증서를 찾을 수 없습니다"},
	{service.ErrPolicyNotFound, http.StatusNotFound, errors.PolicyNotFound, "배지 정책이 없습니다"},
	{service.ErrSubscriptionNotFound, http.StatusNotFound, errors.PremiumNotFound, "구독 정보를 찾을 수 없습니다"},

	{lock.ErrLockTimeout, http.StatusServiceUnavailable, errors.TrustBusy, "다른 작업이 처리 중입니다. 잠시 후 다시 시도해주세요"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, errors.TrustBusy, "처리 시간이 초과되었습니다. 잠시 후 다시 시도해주세요"},
}

const busyRetryAfter = time.Second

// respondServiceError maps service sentinels to HTTP responses.
// Anything unrecognised goes through errors.ParseError and is logged as a 500.
func respondServiceError(c *gin.Context, err error, op string) {
	for _, m := range serviceErrorMappings {
		if !stderrors.Is(err, m.err) {
			continue
		}
		if m.status == http.StatusServiceUnavailable {
			errors.ServiceUnavailable(c, m.code, m.message, busyRetryAfter)
			return
		}
		errors.RespondWithError(c, m.status, m.code, m.message)
		return
	}

	middleware.GetLoggerFromContext(c).Error("Unhandled service error", err, map[string]interface{}{
		"context": op,
	})
	errors.ParseAndRespond(c, http.StatusInternalServerError, err, op)
}

// actorFromContext builds the audit actor for the authenticated user
func actorFromContext(c *gin.Context) service.Actor {
	userID, _ := middleware.GetUserID(c)
	email, _ := middleware.GetUserEmail(c)
	role, _ := middleware.GetUserRole(c)

	actor := service.Actor{
		Name:      email,
		Role:      string(role),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if role == model.RoleAdmin {
		actor.AdminID = &userID
	}
	return actor
}

func parseIDParam(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		errors.BadRequest(c, errors.ValidationInvalidID, "잘못된 "+label+" ID입니다")
		return 0, false
	}
	return uint(id), true
}

// requireUser returns the authenticated user ID or writes 401
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "로그인이 필요합니다")
		return 0, false
	}
	return userID, true
}

func isAdminOrSelf(c *gin.Context, sellerID uint) bool {
	role, _ := middleware.GetUserRole(c)
	if role == model.RoleAdmin {
		return true
	}
	userID, _ := middleware.GetUserID(c)
	return userID == sellerID
}

// canAccessSeller allows admins and the seller themself, else responds 403
func canAccessSeller(c *gin.Context, sellerID uint) bool {
	if isAdminOrSelf(c, sellerID) {
		return true
	}
	errors.RespondWithError(c, http.StatusForbidden, errors.AuthzOwnerOnly, "본인 정보만 조회할 수 있습니다")
	return false
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
