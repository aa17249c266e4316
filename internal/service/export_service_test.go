package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

func newExportFixture() *ExportService {
	courses, activities := courseFixture()
	activities.activities = append(activities.activities, models.Activity{ID: "a-2", CourseID: "c-1", Title: "Taller 1"})
	grades := &fakeGradeRepo{grades: []models.Grade{
		{StudentID: "s-1", CourseID: "c-1", Value: 4},
		{StudentID: "s-1", CourseID: "c-1", ActivityID: strPtr("a-1"), Value: 4.5},
	}}
	return NewExportService(courses, activities, grades, nil, nil, clock.NewFixed(baseTime), zap.NewNop())
}

func TestExportCourseGradesCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.CourseGrades(context.Background(), teacherActor, "c-1", "CSV", nil)
	require.NoError(t, err)
	assert.Equal(t, "grades_Matemáticas_20240310_120000.csv", result.Filename)
	assert.Contains(t, result.ContentType, "text/csv")

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Estudiante,Cédula,Nota General,Taller 1,Taller 1 (2),Promedio", lines[0])
	assert.Equal(t, "Ana Pérez,V-1,4,4.5,-,4.3", lines[1])
	assert.Equal(t, "Luis Gómez,V-2,-,-,-,-", lines[2])
}

func TestExportCourseGradesKeepsHeadersUnique(t *testing.T) {
	courses, activities := courseFixture()
	activities.activities = append(activities.activities,
		models.Activity{ID: "a-2", CourseID: "c-1", Title: "Promedio"},
		models.Activity{ID: "a-3", CourseID: "c-1", Title: "Taller 1 (2)"},
		models.Activity{ID: "a-4", CourseID: "c-1", Title: "Taller 1"},
	)
	grades := &fakeGradeRepo{grades: []models.Grade{
		{StudentID: "s-1", CourseID: "c-1", Value: 1},
		{StudentID: "s-1", CourseID: "c-1", ActivityID: strPtr("a-2"), Value: 5},
	}}
	svc := NewExportService(courses, activities, grades, nil, nil, clock.NewFixed(baseTime), zap.NewNop())

	result, err := svc.CourseGrades(context.Background(), teacherActor, "c-1", "csv", nil)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Estudiante,Cédula,Nota General,Taller 1,Promedio (2),Taller 1 (2),Taller 1 (3),Promedio", lines[0])
	assert.Equal(t, "Ana Pérez,V-1,1,-,5,-,-,3.0", lines[1])
}

func TestSanitizeFilenameTruncatesOnRuneBoundary(t *testing.T) {
	name := sanitizeFilename(strings.Repeat("á", 150))
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, 100, utf8.RuneCountInString(name))
	assert.Equal(t, "Historia_Universal", sanitizeFilename("Historia Universal"))
	assert.Equal(t, "na", sanitizeFilename(""))
}

func TestExportCourseGradesSingleScope(t *testing.T) {
	svc := newExportFixture()
	scope := models.ActivityScope("a-1")

	result, err := svc.CourseGrades(context.Background(), teacherActor, "c-1", "csv", &scope)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	assert.Equal(t, "Estudiante,Cédula,Taller 1,Promedio", lines[0])

	missing := models.ActivityScope("a-404")
	_, err = svc.CourseGrades(context.Background(), teacherActor, "c-1", "csv", &missing)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExportCourseGradesPDF(t *testing.T) {
	svc := newExportFixture()
	result, err := svc.CourseGrades(context.Background(), teacherActor, "c-1", "pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF-"))
}

func TestExportCourseGradesRejects(t *testing.T) {
	svc := newExportFixture()
	_, err := svc.CourseGrades(context.Background(), teacherActor, "c-1", "xlsx", nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CourseGrades(context.Background(), Actor{ID: "t-2", Role: models.RoleTeacher}, "c-1", "csv", nil)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
