package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// GeneralScopeLabel names the course-wide grade and stands in for activities
// that no longer exist.
const GeneralScopeLabel = "Nota General"

// UnknownCourseLabel stands in for courses missing from the directory.
const UnknownCourseLabel = "-"

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade, keepComments bool) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Course, error)
	ListStudents(ctx context.Context, ids []string) ([]models.Student, error)
}

type activityReader interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

// UpsertGradeRequest creates or replaces the grade of a student for one scope.
// A nil Comments keeps the stored comment on update.
type UpsertGradeRequest struct {
	StudentID  string   `json:"student_id" validate:"required"`
	CourseID   string   `json:"course_id" validate:"required"`
	ActivityID *string  `json:"activity_id"`
	Value      *float64 `json:"value" validate:"required,gte=0,lte=5"`
	Comments   *string  `json:"comments" validate:"omitempty,max=2000"`
}

// Scope returns the request's grading scope.
func (r UpsertGradeRequest) Scope() models.GradeScope {
	return models.ScopeOf(r.ActivityID)
}

// GradeService exposes the persisted grade resource.
type GradeService struct {
	grades     gradeRepository
	courses    courseReader
	activities activityReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeRepository, courses courseReader, activities activityReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, courses: courses, activities: activities, validator: validate, logger: logger}
}

// List returns grades for a student or a course.
func (s *GradeService) List(ctx context.Context, actor Actor, filter models.GradeFilter) ([]models.Grade, error) {
	if filter.StudentID == "" && filter.CourseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id or course_id is required")
	}
	if filter.StudentID != "" && !actor.CanViewStudent(filter.StudentID) {
		return nil, appErrors.ErrForbidden
	}
	if filter.StudentID == "" {
		course, err := s.courses.FindByID(ctx, filter.CourseID)
		if err != nil {
			return nil, lookupError(err, "course not found", "failed to load course")
		}
		if !actor.CanManageCourse(*course) {
			return nil, appErrors.ErrForbidden
		}
	}
	return s.ListCourse(ctx, filter)
}

// ListCourse fetches grades without access checks; used for ledger refreshes.
func (s *GradeService) ListCourse(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Transport(err, "failed to list grades")
	}
	return grades, nil
}

// Upsert validates and persists a grade.
func (s *GradeService) Upsert(ctx context.Context, actor Actor, req UpsertGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !actor.CanManageCourse(*course) {
		return nil, appErrors.ErrForbidden
	}
	if !course.HasStudent(req.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in course")
	}
	scope := req.Scope()
	if activityID, ok := scope.ActivityID(); ok {
		activity, err := s.activities.FindByID(ctx, activityID)
		if err != nil {
			return nil, lookupError(err, "activity not found", "failed to load activity")
		}
		if activity.CourseID != course.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "activity does not belong to course")
		}
	}

	grade := &models.Grade{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		ActivityID: scope.ActivityRef(),
		Value:      *req.Value,
	}
	keepComments := req.Comments == nil
	if !keepComments {
		grade.Comments = *req.Comments
	}
	if err := s.grades.Upsert(ctx, grade, keepComments); err != nil {
		return nil, appErrors.Transport(err, "failed to save grade")
	}
	s.logger.Info("grade saved",
		zap.String("grade_id", grade.ID),
		zap.String("student_id", grade.StudentID),
		zap.String("course_id", grade.CourseID),
		zap.Stringer("scope", scope),
		zap.Float64("value", grade.Value),
		zap.String("actor_id", actor.ID),
	)
	return grade, nil
}

// Summary lists a student's grades with course and activity names and the
// pooled average. Missing courses and activities fall back to placeholders.
func (s *GradeService) Summary(ctx context.Context, actor Actor, studentID string) (*dto.StudentGradeSummary, error) {
	if !actor.CanViewStudent(studentID) {
		return nil, appErrors.ErrForbidden
	}
	var (
		grades  []models.Grade
		courses []models.Course
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grades, err = s.grades.List(gctx, models.GradeFilter{StudentID: studentID})
		return err
	})
	g.Go(func() error {
		var err error
		courses, err = s.courses.ListByStudent(gctx, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Transport(err, "failed to load grades")
	}

	courseNames := make(map[string]string, len(courses))
	courseIDs := make([]string, 0, len(courses))
	for _, c := range courses {
		courseNames[c.ID] = c.Name
		courseIDs = append(courseIDs, c.ID)
	}
	activityTitles := map[string]string{}
	if len(courseIDs) > 0 {
		activities, err := s.activities.List(ctx, models.ActivityFilter{CourseIDs: courseIDs})
		if err != nil {
			return nil, appErrors.Transport(err, "failed to load activities")
		}
		for _, a := range activities {
			activityTitles[a.ID] = a.Title
		}
	}

	avg := AverageAll(grades)
	summary := &dto.StudentGradeSummary{
		StudentID:    studentID,
		Average:      avg,
		AverageLabel: FormatAverage(avg),
		Grades:       make([]dto.StudentGradeRow, 0, len(grades)),
	}
	for _, grade := range grades {
		row := dto.StudentGradeRow{
			Grade:         grade,
			CourseName:    UnknownCourseLabel,
			ActivityTitle: GeneralScopeLabel,
			Passing:       grade.Passing(),
		}
		if name, ok := courseNames[grade.CourseID]; ok {
			row.CourseName = name
		}
		if id, ok := grade.Scope().ActivityID(); ok {
			if title, ok := activityTitles[id]; ok {
				row.ActivityTitle = title
			}
		}
		summary.Grades = append(summary.Grades, row)
	}
	return summary, nil
}
