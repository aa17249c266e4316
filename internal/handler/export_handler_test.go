package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/service"
)

type fakeExportSrv struct {
	format string
	scope  *models.GradeScope
}

func (f *fakeExportSrv) CourseGrades(_ context.Context, _ service.Actor, courseID, format string, scope *models.GradeScope) (*service.ExportResult, error) {
	f.format, f.scope = format, scope
	return &service.ExportResult{Filename: "grades_" + courseID + ".csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("a,b\n")}, nil
}

func TestExportHandlerStreamsAttachment(t *testing.T) {
	srv := &fakeExportSrv{}
	h := NewExportHandler(srv)
	r := newTestRouter(teacherClaims)
	r.GET("/courses/:id/grades/export", h.CourseGrades)

	rec := doRequest(t, r, http.MethodGet, "/courses/c-1/grades/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="grades_c-1.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rec.Body.String())
	assert.Nil(t, srv.scope)

	doRequest(t, r, http.MethodGet, "/courses/c-1/grades/export?scope=general", nil)
	require.NotNil(t, srv.scope)
	assert.True(t, srv.scope.IsGeneral())
}
