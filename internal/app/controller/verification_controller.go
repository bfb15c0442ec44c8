package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

// VerificationController 판매자 신뢰 상태 조회/재계산/수동 지정
type VerificationController struct {
	service service.VerificationService
}

func NewVerificationController(service service.VerificationService) *VerificationController {
	return &VerificationController{service: service}
}

type OverrideRequest struct {
	IsVerified *bool  `json:"is_verified" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

type ClearOverrideRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// TrustChangeResponse 재계산 결과
type TrustChangeResponse struct {
	SellerID uint                `json:"seller_id"`
	Before   model.TrustSnapshot `json:"before"`
	After    model.TrustSnapshot `json:"after"`
	Changed  bool                `json:"changed"`
	AuditID  uint                `json:"audit_id,omitempty"`
}

func newTrustChangeResponse(change *service.TrustChange) TrustChangeResponse {
	return TrustChangeResponse{
		SellerID: change.SellerID,
		Before:   change.Before,
		After:    change.After,
		Changed:  change.Changed,
		AuditID:  change.AuditID,
	}
}

// GetTrustState GET /api/v1/sellers/:id/trust
func (ctrl *VerificationController) GetTrustState(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id", "판매자")
	if !ok {
		return
	}

	state, err := ctrl.service.GetTrustState(c.Request.Context(), sellerID)
	if err != nil {
		respondServiceError(c, err, "seller trust")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trust": state})
}

// Recompute POST /api/v1/admin/sellers/:id/recompute
func (ctrl *VerificationController) Recompute(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id", "판매자")
	if !ok {
		return
	}

	change, err := ctrl.service.Recompute(c.Request.Context(), sellerID)
	if err != nil {
		respondServiceError(c, err, "seller recompute")
		return
	}
	c.JSON(http.StatusOK, gin.H{"change": newTrustChangeResponse(change)})
}

// Override godoc
// @Summary 인증 여부 수동 지정
// @Description 계산값 대신 관리자가 지정한 인증 여부를 사용합니다. 같은 값이어도 감사 로그가 남습니다
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "판매자 ID"
// @Success 200 {object} gin.H{change=TrustChangeResponse}
// @Security BearerAuth
// @Router /api/v1/admin/sellers/{id}/override [put]
func (ctrl *VerificationController) Override(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id", "판매자")
	if !ok {
		return
	}
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "is_verified 와 사유를 입력해주세요")
		return
	}

	change, err := ctrl.service.ManualOverride(c.Request.Context(), actorFromContext(c), sellerID, *req.IsVerified, req.Reason)
	if err != nil {
		respondServiceError(c, err, "seller override")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Verification override set", map[string]interface{}{
		"seller_id":   sellerID,
		"is_verified": *req.IsVerified,
	})
	c.JSON(http.StatusOK, gin.H{"change": newTrustChangeResponse(change)})
}

// ClearOverride DELETE /api/v1/admin/sellers/:id/override
func (ctrl *VerificationController) ClearOverride(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id", "판매자")
	if !ok {
		return
	}
	var req ClearOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "해제 사유를 입력해주세요")
		return
	}

	change, err := ctrl.service.ClearOverride(c.Request.Context(), actorFromContext(c), sellerID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "seller override")
		return
	}
	c.JSON(http.StatusOK, gin.H{"change": newTrustChangeResponse(change)})
}

// RecomputeCategory POST /api/v1/admin/categories/:id/recompute
func (ctrl *VerificationController) RecomputeCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id", "카테고리")
	if !ok {
		return
	}

	result, err := ctrl.service.RecomputeCategory(c.Request.Context(), categoryID)
	if err != nil {
		respondServiceError(c, err, "category recompute")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Category recompute finished", map[string]interface{}{
		"category_id": categoryID,
		"sellers":     result.Sellers,
		"changed":     result.Changed,
	})
	c.JSON(http.StatusOK, gin.H{"result": result})
}
