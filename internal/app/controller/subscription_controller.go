package controller

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// SubscriptionController 프리미엄 구독 및 결제 콜백
type SubscriptionController struct {
	service       service.SubscriptionService
	webhookSecret string
}

func NewSubscriptionController(service service.SubscriptionService, webhookSecret string) *SubscriptionController {
	return &SubscriptionController{
		service:       service,
		webhookSecret: webhookSecret,
	}
}

type ActivatePremiumRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Years     int    `json:"years"`
	Months    int    `json:"months"`
	Days      int    `json:"days"`
	OpenEnded bool   `json:"open_ended"`
}

type DeactivatePremiumRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type AutoRenewRequest struct {
	AutoRenew *bool `json:"auto_renew" binding:"required"`
}

type PaymentCallbackRequest struct {
	SellerID  uint   `json:"seller_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Succeeded bool   `json:"succeeded"`
}

type RefundCallbackRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Reason    string `json:"reason"`
}

// Activate POST /api/v1/admin/sellers/:id/premium
func (ctrl *SubscriptionController) Activate(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id", "판매자")
	if !ok {
		return
	}
	var req ActivatePremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "결제 ID를 입력해주세요")
		return
	}

	term := service.SubscriptionTerm{Years: req.Years, Months: req.Months, Days: req.Days, OpenEnded: req.OpenEnded}
	sub, err := ctrl.service.Activate(c.Request.Context(), actorFromContext(c), sellerID, req.PaymentID, term)
	if err != nil {
		respondServiceError(c, err, "subscription create")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}

// Deactivate POST /api/v1/admin/premium/:id/deactivate
func (ctrl *SubscriptionController) Deactivate(c *gin.Context) {
	subID, ok := parseIDParam(c, "id", "구독")
	if !ok {
		return
	}
	var req DeactivatePremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "비활성화 사유를 입력해주세요")
		return
	}

	sub, err := ctrl.service.Deactivate(c.Request.Context(), actorFromContext(c), subID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "subscription update")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// GetMine GET /api/v1/seller/premium
func (ctrl *SubscriptionController) GetMine(c *gin.Context) {
	sellerID, ok := requireUser(c)
	if !ok {
		return
	}

	sub, err := ctrl.service.GetActiveForSeller(c.Request.Context(), sellerID)
	if err != nil {
		respondServiceError(c, err, "subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// SetAutoRenew PATCH /api/v1/seller/premium/auto-renew
func (ctrl *SubscriptionController) SetAutoRenew(c *gin.Context) {
	sellerID, ok := requireUser(c)
	if !ok {
		return
	}
	var req AutoRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "auto_renew 값을 입력해주세요")
		return
	}

	active, err := ctrl.service.GetActiveForSeller(c.Request.Context(), sellerID)
	if err != nil {
		respondServiceError(c, err, "subscription")
		return
	}
	if active == nil {
		errors.NotFound(c, errors.PremiumNotFound, "활성화된 구독이 없습니다")
		return
	}

	sub, err := ctrl.service.SetAutoRenew(c.Request.Context(), active.ID, *req.AutoRenew)
	if err != nil {
		respondServiceError(c, err, "subscription update")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// VerifyWebhook rejects callbacks without the shared secret
func (ctrl *SubscriptionController) VerifyWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(WebhookSecretHeader)
		if ctrl.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(ctrl.webhookSecret)) != 1 {
			middleware.GetLoggerFromContext(c).Warn("Payment webhook rejected", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "유효하지 않은 콜백입니다")
			c.Abort()
			return
		}
		c.Next()
	}
}

// PaymentCallback POST /api/v1/payments/callback
// 결제 대행사가 재전송해도 같은 결제 ID 에 대해 구독은 하나만 생긴다
func (ctrl *SubscriptionController) PaymentCallback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "콜백 형식이 올바르지 않습니다")
		return
	}

	sub, err := ctrl.service.HandlePaymentConfirmation(c.Request.Context(), service.PaymentConfirmation{
		SellerID:  req.SellerID,
		PaymentID: req.PaymentID,
		Succeeded: req.Succeeded,
	})
	if err != nil {
		respondServiceError(c, err, "payment confirmation")
		return
	}

	log.Info("Payment callback handled", map[string]interface{}{
		"seller_id":  req.SellerID,
		"payment_id": req.PaymentID,
		"succeeded":  req.Succeeded,
	})
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// RefundCallback POST /api/v1/payments/refund
func (ctrl *SubscriptionController) RefundCallback(c *gin.Context) {
	var req RefundCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "콜백 형식이 올바르지 않습니다")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "refund"
	}

	sub, err := ctrl.service.DeactivateByPayment(c.Request.Context(), req.PaymentID, reason)
	if err != nil {
		respondServiceError(c, err, "payment refund")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
