package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/cache"
	"github.com/noah-isme/coursework-api/pkg/clock"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

type activityRepository interface {
	activityReader
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id string) error
}

type submissionLister interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

// ActivityRequest is the create/update payload of an activity.
type ActivityRequest struct {
	CourseID    string           `json:"course_id"`
	Number      *int             `json:"activity_number" validate:"omitempty,min=1"`
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=10000"`
	StartDate   *time.Time       `json:"start_date"`
	DueDate     *time.Time       `json:"due_date" validate:"required"`
	Files       []models.FileRef `json:"files" validate:"omitempty,dive"`
}

// ActivityService manages course activities and derives their status.
type ActivityService struct {
	activities  activityRepository
	courses     courseReader
	submissions submissionLister
	cache       *CacheService
	cacheTTL    time.Duration
	clock       clock.Clock
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewActivityService constructs ActivityService.
func NewActivityService(activities activityRepository, courses courseReader, submissions submissionLister, cacheSvc *CacheService, cacheTTL time.Duration, clk clock.Clock, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &ActivityService{
		activities:  activities,
		courses:     courses,
		submissions: submissions,
		cache:       cacheSvc,
		cacheTTL:    cacheTTL,
		clock:       clk,
		validator:   validate,
		logger:      logger,
	}
}

// List returns a course's activities, served from cache when possible.
func (s *ActivityService) List(ctx context.Context, courseID string) ([]models.Activity, bool, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
	}
	key := cache.ActivityListKey(courseID)
	var cached []models.Activity
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}
	activities, err := s.activities.List(ctx, models.ActivityFilter{CourseID: courseID})
	if err != nil {
		return nil, false, appErrors.Transport(err, "failed to list activities")
	}
	s.cache.Set(ctx, key, activities, s.cacheTTL)
	return activities, false, nil
}

// Create adds an activity to a course the actor manages.
func (s *ActivityService) Create(ctx context.Context, actor Actor, req ActivityRequest) (*models.Activity, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CourseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
	}
	if err := s.authorizeCourse(ctx, actor, req.CourseID); err != nil {
		return nil, err
	}
	activity := &models.Activity{CourseID: req.CourseID}
	applyActivityRequest(activity, req)
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, appErrors.Transport(err, "failed to create activity")
	}
	s.cache.Invalidate(ctx, cache.ActivityListKey(activity.CourseID))
	s.logger.Info("activity created", zap.String("activity_id", activity.ID), zap.String("course_id", activity.CourseID), zap.String("actor_id", actor.ID))
	return activity, nil
}

// Update edits an activity. The course of an activity cannot change.
func (s *ActivityService) Update(ctx context.Context, actor Actor, id string, req ActivityRequest) (*models.Activity, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "activity not found", "failed to load activity")
	}
	if err := s.authorizeCourse(ctx, actor, activity.CourseID); err != nil {
		return nil, err
	}
	applyActivityRequest(activity, req)
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, lookupError(err, "activity not found", "failed to update activity")
	}
	s.cache.Invalidate(ctx, cache.ActivityListKey(activity.CourseID))
	return activity, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, actor Actor, id string) error {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "activity not found", "failed to load activity")
	}
	if err := s.authorizeCourse(ctx, actor, activity.CourseID); err != nil {
		return err
	}
	if err := s.activities.Delete(ctx, id); err != nil {
		return lookupError(err, "activity not found", "failed to delete activity")
	}
	s.cache.Invalidate(ctx, cache.ActivityListKey(activity.CourseID))
	s.logger.Info("activity deleted", zap.String("activity_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// ForStudent lists the activities of every course the student is enrolled in,
// each with its status at the current instant and its submission linkage.
func (s *ActivityService) ForStudent(ctx context.Context, actor Actor, studentID string) ([]dto.StudentActivity, error) {
	if !actor.CanViewStudent(studentID) {
		return nil, appErrors.ErrForbidden
	}
	courses, err := s.courses.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Transport(err, "failed to load courses")
	}
	result := []dto.StudentActivity{}
	if len(courses) == 0 {
		return result, nil
	}
	courseNames := make(map[string]string, len(courses))
	courseIDs := make([]string, 0, len(courses))
	for _, c := range courses {
		courseNames[c.ID] = c.Name
		courseIDs = append(courseIDs, c.ID)
	}

	var (
		activities  []models.Activity
		submissions []models.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activities, err = s.activities.List(gctx, models.ActivityFilter{CourseIDs: courseIDs})
		return err
	})
	g.Go(func() error {
		var err error
		submissions, err = s.submissions.List(gctx, models.SubmissionFilter{StudentID: studentID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Transport(err, "failed to load activities")
	}

	now := s.clock.Now()
	index := NewSubmissionIndex(submissions)
	for _, activity := range activities {
		item := dto.StudentActivity{
			Activity:    activity,
			CourseName:  courseNames[activity.CourseID],
			State:       DescribeActivityStatus(activity, now),
			Submissions: index.Count(activity.ID),
		}
		if sub, ok := index.Find(activity.ID); ok {
			item.Submitted = true
			item.Submission = sub
		}
		if item.CourseName == "" {
			item.CourseName = UnknownCourseLabel
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *ActivityService) validate(req ActivityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if req.StartDate != nil && req.StartDate.After(*req.DueDate) {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must not be after due_date")
	}
	return nil
}

func (s *ActivityService) authorizeCourse(ctx context.Context, actor Actor, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return lookupError(err, "course not found", "failed to load course")
	}
	if !actor.CanManageCourse(*course) {
		return appErrors.ErrForbidden
	}
	return nil
}

func applyActivityRequest(activity *models.Activity, req ActivityRequest) {
	activity.Title = strings.TrimSpace(req.Title)
	activity.Description = req.Description
	activity.StartDate = req.StartDate
	activity.DueDate = req.DueDate.UTC()
	activity.Files = models.FileRefs(req.Files)
	if req.Number != nil {
		number := *req.Number
		activity.Number = &number
	}
	if activity.StartDate != nil {
		start := activity.StartDate.UTC()
		activity.StartDate = &start
	}
}
