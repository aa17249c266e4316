package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// GradingConfig tunes grading sessions.
type GradingConfig struct {
	SessionTTL    time.Duration
	CommitTimeout time.Duration
}

// GradingService keeps the in-memory registry of open grading sessions.
type GradingService struct {
	courses    courseReader
	activities activityReader
	grades     gradeCommitter
	metrics    *MetricsService
	logger     *zap.Logger
	clock      clock.Clock
	cfg        GradingConfig

	mu       sync.RWMutex
	sessions map[string]*GradingSession
}

// NewGradingService constructs GradingService.
func NewGradingService(courses courseReader, activities activityReader, grades gradeCommitter, metrics *MetricsService, clk clock.Clock, cfg GradingConfig, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &GradingService{
		courses:    courses,
		activities: activities,
		grades:     grades,
		metrics:    metrics,
		logger:     logger,
		clock:      clk,
		cfg:        cfg,
		sessions:   make(map[string]*GradingSession),
	}
}

// Open loads a course's roster, activities and grades into a new session.
func (s *GradingService) Open(ctx context.Context, actor Actor, courseID string) (*GradingSession, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
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
		activities, err = s.activities.List(gctx, models.ActivityFilter{CourseID: courseID})
		if err != nil {
			return appErrors.Transport(err, "failed to load activities")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		grades, err = s.grades.ListCourse(gctx, models.GradeFilter{CourseID: courseID})
		return err
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
		students, err = s.courses.ListStudents(ctx, course.StudentIDs)
		if err != nil {
			return nil, appErrors.Transport(err, "failed to load students")
		}
	}

	session := newGradingSession(uuid.NewString(), actor, *course, students, activities, grades, s.grades, s.metrics, s.logger, s.clock, s.cfg.CommitTimeout)
	s.mu.Lock()
	s.sessions[session.ID()] = session
	open := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetOpenSessions(open)
	s.logger.Info("grading session opened", zap.String("session_id", session.ID()), zap.String("course_id", courseID), zap.String("actor_id", actor.ID))
	return session, nil
}

// Get returns a session owned by actor.
func (s *GradingService) Get(actor Actor, id string) (*GradingSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	if !session.ownedBy(actor) {
		return nil, appErrors.ErrForbidden
	}
	return session, nil
}

// Close discards a session and its uncommitted edits.
func (s *GradingService) Close(actor Actor, id string) error {
	if _, err := s.Get(actor, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	open := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetOpenSessions(open)
	return nil
}

// Len returns the number of open sessions.
func (s *GradingService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the configured TTL and returns
// how many were removed.
func (s *GradingService) Sweep() int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.cfg.SessionTTL)
	s.mu.Lock()
	removed := 0
	for id, session := range s.sessions {
		if session.idleSince(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	open := len(s.sessions)
	s.mu.Unlock()
	if removed > 0 {
		s.metrics.SetOpenSessions(open)
		s.logger.Info("grading sessions expired", zap.Int("removed", removed), zap.Int("open", open))
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *GradingService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
