package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/pkg/response"
)

type submissionService interface {
	List(ctx context.Context, actor service.Actor, studentID string) ([]models.Submission, error)
	Create(ctx context.Context, actor service.Actor, req service.CreateSubmissionRequest) (*models.Submission, error)
}

// SubmissionHandler exposes submission endpoints.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// List godoc
// @Summary List a student's submissions
// @Tags Submissions
// @Produce json
// @Param student_id query string false "Student ID, defaults to the caller"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	studentID := c.DefaultQuery("student_id", actor.ID)
	submissions, err := h.submissions.List(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions)
}

// Create godoc
// @Summary Submit an activity
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreateSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.submissions.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}
