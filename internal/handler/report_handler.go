package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-insights/engagement-api/internal/dto"
	"github.com/campus-insights/engagement-api/internal/models"
	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
	"github.com/campus-insights/engagement-api/pkg/response"
)

type reportService interface {
	ActivityReport(ctx context.Context, spec models.FilterSpec) ([]models.ResultEntry, bool, error)
	InvalidateCourse(ctx context.Context, courseID int64) error
}

type timelineService interface {
	Timeline(ctx context.Context, spec models.FilterSpec) ([]models.TimelinePoint, error)
}

type searchService interface {
	Participants(ctx context.Context, spec models.FilterSpec) ([]models.UserDetail, error)
}

// ReportHandler wires the report engine to HTTP endpoints.
type ReportHandler struct {
	reports       reportService
	timeline      timelineService
	search        searchService
	sectionMarker string
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports reportService, timeline timelineService, search searchService, sectionMarker string) *ReportHandler {
	return &ReportHandler{reports: reports, timeline: timeline, search: search, sectionMarker: sectionMarker}
}

// Activity godoc
// @Summary Activity engagement report
// @Tags Reports
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body dto.ReportRequest true "Report filters"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/reports/activity [post]
func (h *ReportHandler) Activity(c *gin.Context) {
	courseID, ok := courseIDFromPath(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	spec, err := req.ToFilterSpec(courseID, h.sectionMarker)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	entries, cacheHit, err := h.reports.ActivityReport(c.Request.Context(), spec)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, entries, meta)
}

// Timeline godoc
// @Summary Time-binned engagement report
// @Tags Reports
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body dto.TimelineRequest true "Report filters and bin count"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/reports/timeline [post]
func (h *ReportHandler) Timeline(c *gin.Context) {
	courseID, ok := courseIDFromPath(c)
	if !ok {
		return
	}
	var req dto.TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	spec, err := req.ToFilterSpec(courseID, h.sectionMarker)
	if err != nil {
		response.Error(c, err)
		return
	}

	points, err := h.timeline.Timeline(c.Request.Context(), spec)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points)
}

// Participants godoc
// @Summary Search participants by criteria
// @Tags Reports
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body dto.SearchRequest true "Search criteria"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/reports/participants [post]
func (h *ReportHandler) Participants(c *gin.Context) {
	courseID, ok := courseIDFromPath(c)
	if !ok {
		return
	}
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	spec, err := req.ToFilterSpec(courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	details, err := h.search.Participants(c.Request.Context(), spec)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, map[string]interface{}{"total": len(details)})
}

// InvalidateCache godoc
// @Summary Drop cached report snapshots for a course
// @Tags Reports
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 204 "No Content"
// @Router /courses/{courseId}/reports/cache [delete]
func (h *ReportHandler) InvalidateCache(c *gin.Context) {
	courseID, ok := courseIDFromPath(c)
	if !ok {
		return
	}
	if err := h.reports.InvalidateCourse(c.Request.Context(), courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func courseIDFromPath(c *gin.Context) (int64, bool) {
	courseID, err := strconv.ParseInt(c.Param("courseId"), 10, 64)
	if err != nil || courseID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId must be a positive integer"))
		return 0, false
	}
	return courseID, true
}
