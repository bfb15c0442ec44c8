package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/errors"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AuditController 감사 로그 조회 (관리자 전용)
type AuditController struct {
	service service.AuditService
}

func NewAuditController(service service.AuditService) *AuditController {
	return &AuditController{service: service}
}

// Query godoc
// @Summary 감사 로그 조회
// @Description subject_id 또는 from/to(RFC3339) 로 조회합니다. 최신순
// @Tags admin
// @Produce json
// @Param subject_id query int false "대상 사용자 ID"
// @Param from query string false "시작 시각 (RFC3339)"
// @Param to query string false "종료 시각 (RFC3339, 미포함)"
// @Param page query int false "페이지 번호" default(1)
// @Param page_size query int false "페이지 크기" default(20)
// @Security BearerAuth
// @Router /api/v1/admin/audit [get]
func (ctrl *AuditController) Query(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	var (
		entries []model.AuditLog
		total   int64
		err     error
	)

	if subject := c.Query("subject_id"); subject != "" {
		subjectID, parseErr := strconv.ParseUint(subject, 10, 32)
		if parseErr != nil {
			errors.BadRequest(c, errors.ValidationInvalidID, "잘못된 사용자 ID입니다")
			return
		}
		entries, total, err = ctrl.service.QueryBySubject(c.Request.Context(), uint(subjectID), page, pageSize)
	} else {
		from, to, ok := parseRange(c)
		if !ok {
			return
		}
		entries, total, err = ctrl.service.QueryByDateRange(c.Request.Context(), from, to, page, pageSize)
	}
	if err != nil {
		respondServiceError(c, err, "audit query")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Export GET /api/v1/admin/audit/subjects/:id/export
func (ctrl *AuditController) Export(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "id", "사용자")
	if !ok {
		return
	}

	data, err := ctrl.service.ExportBySubject(c.Request.Context(), subjectID)
	if err != nil {
		respondServiceError(c, err, "audit export")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Audit log exported", map[string]interface{}{
		"subject_id": subjectID,
		"bytes":      len(data),
	})
	filename := fmt.Sprintf("audit-%d-%s.xlsx", subjectID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// parseRange defaults to the last 7 days
func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	to := time.Now()
	from := to.AddDate(0, 0, -7)

	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errors.BadRequest(c, errors.ValidationInvalidFormat, "from 은 RFC3339 형식이어야 합니다")
			return from, to, false
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errors.BadRequest(c, errors.ValidationInvalidFormat, "to 는 RFC3339 형식이어야 합니다")
			return from, to, false
		}
		to = t
	}
	return from, to, true
}
