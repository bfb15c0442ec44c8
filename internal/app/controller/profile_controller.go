package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
)

// ProfileController 내 프로필 수정
type ProfileController struct {
	service service.ProfileService
}

func NewProfileController(service service.ProfileService) *ProfileController {
	return &ProfileController{service: service}
}

// UpdateProfileRequest 역할에 따라 BuyerUpdate / SellerUpdate / SellerExtendedUpdate 로 변환
// 신뢰 플래그 필드는 받지 않는다
type UpdateProfileRequest struct {
	Name                 *string `json:"name"`
	Phone                *string `json:"phone"`
	CompanyName          *string `json:"company_name"`
	Description          *string `json:"description"`
	PrimaryCategoryID    *uint   `json:"primary_category_id"`
	ClearPrimaryCategory bool    `json:"clear_primary_category"`
}

func (r UpdateProfileRequest) toUpdate() service.ProfileUpdate {
	buyer := service.BuyerUpdate{Name: r.Name, Phone: r.Phone}
	if r.CompanyName == nil && r.Description == nil && r.PrimaryCategoryID == nil && !r.ClearPrimaryCategory {
		return buyer
	}

	seller := service.SellerUpdate{BuyerUpdate: buyer, CompanyName: r.CompanyName, Description: r.Description}
	if r.PrimaryCategoryID == nil && !r.ClearPrimaryCategory {
		return seller
	}
	return service.SellerExtendedUpdate{
		SellerUpdate:         seller,
		PrimaryCategoryID:    r.PrimaryCategoryID,
		ClearPrimaryCategory: r.ClearPrimaryCategory,
	}
}

// UpdateMe PATCH /api/v1/me/profile
func (ctrl *ProfileController) UpdateMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	user, err := ctrl.service.UpdateProfile(c.Request.Context(), actorFromContext(c), userID, req.toUpdate())
	if err != nil {
		respondServiceError(c, err, "user update")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
