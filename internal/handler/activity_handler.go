package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-insights/engagement-api/internal/models"
	"github.com/campus-insights/engagement-api/pkg/response"
)

type activityLister interface {
	CourseActivities(ctx context.Context, courseID int64) ([]models.CourseModule, error)
}

// ActivityHandler exposes course structure lookups.
type ActivityHandler struct {
	activities activityLister
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(activities activityLister) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List course activities
// @Tags Courses
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	courseID, ok := courseIDFromPath(c)
	if !ok {
		return
	}
	modules, err := h.activities.CourseActivities(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, modules, map[string]interface{}{"total": len(modules)})
}
