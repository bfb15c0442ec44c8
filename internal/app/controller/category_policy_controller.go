package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

// CategoryPolicyController 카테고리 배지 정책 관리
// 정책 변경은 판매자 플래그를 바로 바꾸지 않는다. 필요하면 /admin/categories/:id/recompute 를 호출
type CategoryPolicyController struct {
	service service.CategoryPolicyService
}

func NewCategoryPolicyController(service service.CategoryPolicyService) *CategoryPolicyController {
	return &CategoryPolicyController{service: service}
}

// Get GET /api/v1/categories/:id/badge-policy
func (ctrl *CategoryPolicyController) Get(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id", "카테고리")
	if !ok {
		return
	}

	policy, err := ctrl.service.Get(c.Request.Context(), categoryID)
	if err != nil {
		respondServiceError(c, err, "category policy")
		return
	}
	if policy == nil {
		errors.NotFound(c, errors.PolicyNotFound, "배지 정책이 없습니다")
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": policy})
}

// Create POST /api/v1/admin/categories/:id/badge-policy
func (ctrl *CategoryPolicyController) Create(c *gin.Context) {
	categoryID, input, ok := ctrl.bind(c)
	if !ok {
		return
	}

	policy, err := ctrl.service.Create(c.Request.Context(), actorFromContext(c), categoryID, input)
	if err != nil {
		respondServiceError(c, err, "category policy create")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Badge policy created", map[string]interface{}{
		"category_id": categoryID,
	})
	c.JSON(http.StatusCreated, gin.H{"policy": policy})
}

// Update PUT /api/v1/admin/categories/:id/badge-policy
func (ctrl *CategoryPolicyController) Update(c *gin.Context) {
	categoryID, input, ok := ctrl.bind(c)
	if !ok {
		return
	}

	policy, err := ctrl.service.Update(c.Request.Context(), actorFromContext(c), categoryID, input)
	if err != nil {
		respondServiceError(c, err, "category policy update")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Badge policy updated", map[string]interface{}{
		"category_id": categoryID,
	})
	c.JSON(http.StatusOK, gin.H{"policy": policy})
}

// Delete DELETE /api/v1/admin/categories/:id/badge-policy
func (ctrl *CategoryPolicyController) Delete(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id", "카테고리")
	if !ok {
		return
	}

	if err := ctrl.service.Delete(c.Request.Context(), actorFromContext(c), categoryID); err != nil {
		respondServiceError(c, err, "category policy delete")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Badge policy deleted", map[string]interface{}{
		"category_id": categoryID,
	})
	c.Status(http.StatusNoContent)
}

func (ctrl *CategoryPolicyController) bind(c *gin.Context) (uint, service.BadgePolicyInput, bool) {
	var input service.BadgePolicyInput

	categoryID, ok := parseIDParam(c, "id", "카테고리")
	if !ok {
		return 0, input, false
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "배지 정책 형식이 올바르지 않습니다")
		return 0, input, false
	}
	return categoryID, input, true
}
