package controller

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

// CertificationController 인증서 제출/심사 컨트롤러
type CertificationController struct {
	service          service.CertificationService
	maxDocumentBytes int64
}

func NewCertificationController(svc service.CertificationService, maxDocumentBytes int64) *CertificationController {
	return &CertificationController{
		service:          svc,
		maxDocumentBytes: service.ResolveMaxDocumentBytes(maxDocumentBytes),
	}
}

type ReviewCertificationRequest struct {
	Outcome    model.CertificationStatus `json:"outcome" binding:"required"`
	AdminNotes string                    `json:"admin_notes"`
}

// Submit godoc
// @Summary 인증서 제출
// @Description 판매자가 인증서 문서를 업로드합니다 (multipart: name, document)
// @Tags certifications
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} gin.H{certification=model.Certification}
// @Security BearerAuth
// @Router /api/v1/seller/certifications [post]
func (ctrl *CertificationController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sellerID, ok := requireUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "인증서 문서를 첨부해주세요")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		errors.BadRequest(c, errors.CertInvalidDocument, "문서를 읽을 수 없습니다")
		return
	}
	defer file.Close()

	// 한도 +1 바이트까지만 읽고 크기 판정은 서비스에 맡긴다
	data, err := io.ReadAll(io.LimitReader(file, ctrl.maxDocumentBytes+1))
	if err != nil {
		errors.BadRequest(c, errors.CertInvalidDocument, "문서를 읽을 수 없습니다")
		return
	}

	cert, err := ctrl.service.Submit(c.Request.Context(), sellerID, service.SubmitCertificationInput{
		Name: c.PostForm("name"),
		Document: service.DocumentUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondServiceError(c, err, "certification create")
		return
	}

	log.Info("Certification submitted", map[string]interface{}{
		"certification_id": cert.ID,
		"seller_id":        sellerID,
	})
	c.JSON(http.StatusCreated, gin.H{"certification": cert})
}

// ListMine GET /api/v1/seller/certifications
func (ctrl *CertificationController) ListMine(c *gin.Context) {
	sellerID, ok := requireUser(c)
	if !ok {
		return
	}
	ctrl.respondList(c, sellerID)
}

// ListBySeller GET /api/v1/sellers/:id/certifications (본인 또는 관리자)
func (ctrl *CertificationController) ListBySeller(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id", "판매자")
	if !ok || !canAccessSeller(c, sellerID) {
		return
	}
	ctrl.respondList(c, sellerID)
}

func (ctrl *CertificationController) respondList(c *gin.Context, sellerID uint) {
	certs, err := ctrl.service.ListBySeller(c.Request.Context(), sellerID)
	if err != nil {
		respondServiceError(c, err, "certification list")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"certifications": certs,
		"count":          len(certs),
	})
}

// ListByStatus GET /api/v1/admin/certifications?status=pending
func (ctrl *CertificationController) ListByStatus(c *gin.Context) {
	status := model.CertificationStatus(c.DefaultQuery("status", string(model.CertificationStatusPending)))

	certs, err := ctrl.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err, "certification list")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"certifications": certs,
		"count":          len(certs),
	})
}

// Review godoc
// @Summary 인증서 심사
// @Description 관리자가 대기 중인 인증서를 승인하거나 반려합니다. 판매자 신뢰 상태가 함께 재계산됩니다
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "인증서 ID"
// @Success 200 {object} gin.H{certification=model.Certification}
// @Failure 409 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/certifications/{id}/review [post]
func (ctrl *CertificationController) Review(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	certID, ok := parseIDParam(c, "id", "인증서")
	if !ok {
		return
	}

	var req ReviewCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "심사 결과를 입력해주세요")
		return
	}

	cert, err := ctrl.service.Review(c.Request.Context(), actorFromContext(c), certID, req.Outcome, req.AdminNotes)
	if err != nil {
		respondServiceError(c, err, "certification review")
		return
	}

	log.Info("Certification reviewed", map[string]interface{}{
		"certification_id": cert.ID,
		"outcome":          cert.Status,
	})
	c.JSON(http.StatusOK, gin.H{"certification": cert})
}

// DownloadDocument GET /api/v1/certifications/:id/document (본인 또는 관리자)
func (ctrl *CertificationController) DownloadDocument(c *gin.Context) {
	certID, ok := parseIDParam(c, "id", "인증서")
	if !ok {
		return
	}

	cert, err := ctrl.service.Get(c.Request.Context(), certID)
	if err != nil {
		respondServiceError(c, err, "certification document")
		return
	}
	// 권한이 없으면 존재 여부도 드러내지 않는다
	if !isAdminOrSelf(c, cert.SellerID) {
		respondServiceError(c, service.ErrCertificationNotFound, "certification document")
		return
	}

	data, err := ctrl.service.LoadDocument(c.Request.Context(), cert)
	if err != nil {
		respondServiceError(c, err, "certification document")
		return
	}

	contentType := cert.DocumentContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.DocumentName))
	c.Data(http.StatusOK, contentType, data)
}
