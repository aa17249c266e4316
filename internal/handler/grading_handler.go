package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/service"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
	"github.com/noah-isme/coursework-api/pkg/response"
)

type gradingService interface {
	Open(ctx context.Context, actor service.Actor, courseID string) (*service.GradingSession, error)
	Get(actor service.Actor, id string) (*service.GradingSession, error)
	Close(actor service.Actor, id string) error
}

// GradingHandler exposes grading session endpoints.
type GradingHandler struct {
	sessions gradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(sessions gradingService) *GradingHandler {
	return &GradingHandler{sessions: sessions}
}

// Open godoc
// @Summary Open a grading session for a course
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body dto.OpenGradingSessionRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /grading/sessions [post]
func (h *GradingHandler) Open(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.OpenGradingSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Open(c.Request.Context(), actor, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	sheet, err := session.Sheet(models.GeneralScope())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sheet)
}

// Sheet godoc
// @Summary Render a grading session sheet
// @Tags Grading
// @Produce json
// @Param id path string true "Session ID"
// @Param scope query string false "general or an activity id"
// @Success 200 {object} response.Envelope
// @Router /grading/sessions/{id} [get]
func (h *GradingHandler) Sheet(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.writeSheet(c, session)
}

// Write godoc
// @Summary Edit a cell without committing
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.GradingCellRequest true "Cell edit"
// @Success 200 {object} response.Envelope
// @Router /grading/sessions/{id}/cells [put]
func (h *GradingHandler) Write(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.GradingCellRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Value == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "value is required"))
		return
	}
	key := req.Key()
	if err := session.Write(key, *req.Value); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cellView(session, key, nil))
}

// Discard godoc
// @Summary Drop an uncommitted edit
// @Tags Grading
// @Param id path string true "Session ID"
// @Param student_id query string true "Student ID"
// @Param scope query string false "general or an activity id"
// @Success 200 {object} response.Envelope
// @Router /grading/sessions/{id}/cells [delete]
func (h *GradingHandler) Discard(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	studentID := c.Query("student_id")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}
	key := models.NewGradeKey(studentID, models.ParseGradeScope(c.Query("scope")))
	session.Discard(key)
	response.JSON(c, http.StatusOK, cellView(session, key, nil))
}

// Commit godoc
// @Summary Commit one cell
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.GradingCellRequest true "Cell; value defaults to the pending edit"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grading/sessions/{id}/commit [post]
func (h *GradingHandler) Commit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.GradingCellRequest
	if !bindJSON(c, &req) {
		return
	}
	key := req.Key()
	var (
		grade *models.Grade
		err   error
	)
	if req.Value != nil {
		grade, err = session.Commit(c.Request.Context(), key, *req.Value)
	} else {
		grade, err = session.CommitPending(c.Request.Context(), key)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "dirty_count", session.Ledger().DirtyCount())
	response.JSON(c, http.StatusOK, cellView(session, key, grade), middleware.ExtractMeta(c))
}

// Refresh godoc
// @Summary Reload persisted grades, keeping pending edits
// @Tags Grading
// @Produce json
// @Param id path string true "Session ID"
// @Param scope query string false "general or an activity id"
// @Success 200 {object} response.Envelope
// @Router /grading/sessions/{id}/refresh [post]
func (h *GradingHandler) Refresh(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	h.writeSheet(c, session)
}

// Close godoc
// @Summary Close a grading session, discarding pending edits
// @Tags Grading
// @Param id path string true "Session ID"
// @Success 204
// @Router /grading/sessions/{id} [delete]
func (h *GradingHandler) Close(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *GradingHandler) session(c *gin.Context) (*service.GradingSession, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return nil, false
	}
	session, err := h.sessions.Get(actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return session, true
}

func (h *GradingHandler) writeSheet(c *gin.Context, session *service.GradingSession) {
	sheet, err := session.Sheet(models.ParseGradeScope(c.Query("scope")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet)
}

func cellView(session *service.GradingSession, key models.GradeKey, grade *models.Grade) dto.GradingCell {
	value, has := session.Read(key)
	return dto.GradingCell{
		StudentID:  key.StudentID,
		Scope:      key.Scope,
		Value:      value,
		HasValue:   has,
		Dirty:      session.Ledger().IsDirty(key),
		Committing: session.Committing(key),
		Grade:      grade,
	}
}
