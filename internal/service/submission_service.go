package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

type submissionRepository interface {
	submissionLister
	Create(ctx context.Context, submission *models.Submission) error
}

// CreateSubmissionRequest is a student's response to an activity.
type CreateSubmissionRequest struct {
	ActivityID string           `json:"activity_id" validate:"required"`
	Content    string           `json:"content" validate:"max=20000"`
	Files      []models.FileRef `json:"files" validate:"omitempty,dive"`
}

// Submission results recorded by MetricsService.
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
)

// SubmissionService records and lists activity submissions.
type SubmissionService struct {
	submissions submissionRepository
	activities  activityReader
	courses     courseReader
	metrics     *MetricsService
	clock       clock.Clock
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(submissions submissionRepository, activities activityReader, courses courseReader, metrics *MetricsService, clk clock.Clock, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &SubmissionService{
		submissions: submissions,
		activities:  activities,
		courses:     courses,
		metrics:     metrics,
		clock:       clk,
		validator:   validate,
		logger:      logger,
	}
}

// List returns a student's submissions ordered by creation.
func (s *SubmissionService) List(ctx context.Context, actor Actor, studentID string) ([]models.Submission, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if !actor.CanViewStudent(studentID) {
		return nil, appErrors.ErrForbidden
	}
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Transport(err, "failed to list submissions")
	}
	return submissions, nil
}

// Create stores a submission for the calling student. The activity must be
// open at the current instant and the payload must carry text or files.
// Resubmissions are appended.
func (s *SubmissionService) Create(ctx context.Context, actor Actor, req CreateSubmissionRequest) (*models.Submission, error) {
	submission, err := s.create(ctx, actor, req)
	if err != nil {
		s.metrics.RecordSubmission(SubmissionRejected)
		return nil, err
	}
	s.metrics.RecordSubmission(SubmissionAccepted)
	return submission, nil
}

func (s *SubmissionService) create(ctx context.Context, actor Actor, req CreateSubmissionRequest) (*models.Submission, error) {
	if actor.Role != models.RoleStudent || actor.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Files) == 0 {
		return nil, appErrors.ErrEmptySubmission
	}

	activity, err := s.activities.FindByID(ctx, req.ActivityID)
	if err != nil {
		return nil, lookupError(err, "activity not found", "failed to load activity")
	}
	course, err := s.courses.FindByID(ctx, activity.CourseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !course.HasStudent(actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in course")
	}
	switch ResolveActivityStatus(activity.StartDate, activity.DueDate, s.clock.Now()) {
	case models.ActivityExpired:
		return nil, appErrors.ErrActivityExpired
	case models.ActivityUpcoming:
		return nil, appErrors.ErrActivityNotOpen
	}

	submission := &models.Submission{
		ActivityID: activity.ID,
		StudentID:  actor.ID,
		Content:    content,
		Files:      models.FileRefs(req.Files),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, appErrors.Transport(err, "failed to save submission")
	}
	s.logger.Info("submission stored",
		zap.String("submission_id", submission.ID),
		zap.String("activity_id", activity.ID),
		zap.String("student_id", actor.ID),
		zap.Int("files", len(submission.Files)),
	)
	return submission, nil
}
