package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-insights/engagement-api/internal/models"
)

type fakeActivityLister struct {
	modules []models.CourseModule
	err     error
	lastID  int64
}

func (f *fakeActivityLister) CourseActivities(_ context.Context, courseID int64) ([]models.CourseModule, error) {
	f.lastID = courseID
	return f.modules, f.err
}

func TestActivityHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lister := &fakeActivityLister{
		modules: []models.CourseModule{
			{ID: 12, CourseID: 1, Section: 1, Component: "mod_forum", Name: "News forum"},
		},
	}
	handler := NewActivityHandler(lister)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/activities", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "1"}}

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), lister.lastID)

	var envelope struct {
		Data []models.CourseModule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "News forum", envelope.Data[0].Name)
}

func TestActivityHandlerListRejectsBadCourseID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewActivityHandler(&fakeActivityLister{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/activities", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "-4"}}

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
