package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/pkg/response"
)

type activityService interface {
	List(ctx context.Context, courseID string) ([]models.Activity, bool, error)
	Create(ctx context.Context, actor service.Actor, req service.ActivityRequest) (*models.Activity, error)
	Update(ctx context.Context, actor service.Actor, id string, req service.ActivityRequest) (*models.Activity, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	ForStudent(ctx context.Context, actor service.Actor, studentID string) ([]dto.StudentActivity, error)
}

// ActivityHandler exposes activity endpoints.
type ActivityHandler struct {
	activities activityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activities activityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List course activities
// @Tags Activities
// @Produce json
// @Param course_id query string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	activities, hit, err := h.activities.List(c.Request.Context(), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, activities, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body service.ActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.ActivityRequest
	if !bindJSON(c, &req) {
		return
	}
	activity, err := h.activities.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// Update godoc
// @Summary Update activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body service.ActivityRequest true "Activity payload"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.ActivityRequest
	if !bindJSON(c, &req) {
		return
	}
	activity, err := h.activities.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity)
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Param id path string true "Activity ID"
// @Success 204
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.activities.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ForStudent godoc
// @Summary List a student's activities with status
// @Tags Activities
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/activities [get]
func (h *ActivityHandler) ForStudent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.activities.ForStudent(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}
