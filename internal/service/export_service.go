package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
	"github.com/noah-isme/coursework-api/pkg/export"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type sheetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered grade sheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders course grade sheets.
type ExportService struct {
	courses    courseReader
	activities activityReader
	grades     gradeRepository
	renderers  map[string]sheetRenderer
	clock      clock.Clock
	logger     *zap.Logger
}

// NewExportService constructs ExportService. Nil renderers fall back to the
// default CSV and PDF exporters.
func NewExportService(courses courseReader, activities activityReader, grades gradeRepository, csv, pdf sheetRenderer, clk clock.Clock, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System{}
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		courses:    courses,
		activities: activities,
		grades:     grades,
		renderers:  map[string]sheetRenderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		clock:      clk,
		logger:     logger,
	}
}

// CourseGrades renders the course's grade sheet. A nil scope exports every
// scope as its own column; otherwise only the given scope is exported.
func (s *ExportService) CourseGrades(ctx context.Context, actor Actor, courseID, format string, scope *models.GradeScope) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	var (
		course     *models.Course
		activities []models.Activity
		grades     []models.Grade
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		course, err = s.courses.FindByID(gctx, courseID)
		if err != nil {
			return lookupError(err, "course not found", "failed to load course")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if activities, err = s.activities.List(gctx, models.ActivityFilter{CourseID: courseID}); err != nil {
			return appErrors.Transport(err, "failed to load activities")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if grades, err = s.grades.List(gctx, models.GradeFilter{CourseID: courseID}); err != nil {
			return appErrors.Transport(err, "failed to load grades")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(*course) {
		return nil, appErrors.ErrForbidden
	}
	students := []models.Student{}
	if len(course.StudentIDs) > 0 {
		var err error
		if students, err = s.courses.ListStudents(ctx, course.StudentIDs); err != nil {
			return nil, appErrors.Transport(err, "failed to load students")
		}
	}

	columns, err := exportColumns(activities, scope)
	if err != nil {
		return nil, err
	}
	dataset := buildGradeDataset(students, columns, NewGradeLedger(grades))
	title := fmt.Sprintf("Calificaciones %s", course.Name)
	payload, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade sheet")
	}
	filename := fmt.Sprintf("grades_%s_%s.%s", sanitizeFilename(course.Name), s.clock.Now().Format("20060102_150405"), renderer.Extension())
	s.logger.Info("grade sheet exported", zap.String("course_id", course.ID), zap.String("format", format), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{Filename: filename, ContentType: renderer.ContentType(), Payload: payload}, nil
}

type exportColumn struct {
	header string
	scope  models.GradeScope
}

func exportColumns(activities []models.Activity, only *models.GradeScope) ([]exportColumn, error) {
	all := make([]exportColumn, 0, len(activities)+1)
	all = append(all, exportColumn{header: GeneralScopeLabel, scope: models.GeneralScope()})
	for _, a := range activities {
		all = append(all, exportColumn{header: a.Title, scope: models.ActivityScope(a.ID)})
	}
	if only == nil {
		return all, nil
	}
	for _, col := range all {
		if col.scope == *only {
			return []exportColumn{col}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found in course")
}

func buildGradeDataset(students []models.Student, columns []exportColumn, ledger *GradeLedger) export.Dataset {
	headers := []string{"Estudiante", "Cédula"}
	// Dataset rows are keyed by header, so every header must be unique.
	used := map[string]bool{"Estudiante": true, "Cédula": true, "Promedio": true}
	for i := range columns {
		columns[i].header = uniqueHeader(columns[i].header, used)
		headers = append(headers, columns[i].header)
	}
	headers = append(headers, "Promedio")

	rows := make([]map[string]string, 0, len(students))
	for _, student := range students {
		row := map[string]string{
			"Estudiante": student.FullName,
			"Cédula":     student.Cedula,
			"Promedio":   FormatAverage(ledger.Average(student.ID)),
		}
		for _, col := range columns {
			value, ok := ledger.Read(models.NewGradeKey(student.ID, col.scope))
			if !ok {
				value = NoAverageLabel
			}
			row[col.header] = value
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func uniqueHeader(base string, used map[string]bool) string {
	header := base
	for n := 2; used[header]; n++ {
		header = fmt.Sprintf("%s (%d)", base, n)
	}
	used[header] = true
	return header
}

const maxFilenameRunes = 100

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if runes := []rune(result); len(runes) > maxFilenameRunes {
		return string(runes[:maxFilenameRunes])
	}
	return result
}
