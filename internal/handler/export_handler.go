package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/pkg/response"
)

type exportService interface {
	CourseGrades(ctx context.Context, actor service.Actor, courseID, format string, scope *models.GradeScope) (*service.ExportResult, error)
}

// ExportHandler serves grade sheet downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CourseGrades godoc
// @Summary Download a course grade sheet
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv (default) or pdf"
// @Param scope query string false "general or an activity id; all scopes when omitted"
// @Success 200 {file} file
// @Router /courses/{id}/grades/export [get]
func (h *ExportHandler) CourseGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var scope *models.GradeScope
	if raw, present := c.GetQuery("scope"); present {
		parsed := models.ParseGradeScope(raw)
		scope = &parsed
	}
	result, err := h.exports.CourseGrades(c.Request.Context(), actor, c.Param("id"), c.Query("format"), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.ContentType, result.Filename, result.Payload)
}
