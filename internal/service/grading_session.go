package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

type gradeCommitter interface {
	Upsert(ctx context.Context, actor Actor, req UpsertGradeRequest) (*models.Grade, error)
	ListCourse(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

// ParseGradeValue reads a raw grade entry. Surrounding whitespace is ignored;
// anything that is not a finite number within the grade range is rejected.
func ParseGradeValue(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, appErrors.Clone(appErrors.ErrInvalidGradeValue, "grade value is required")
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, appErrors.Clone(appErrors.ErrInvalidGradeValue, "grade value must be a number")
	}
	if value < models.MinGradeValue || value > models.MaxGradeValue {
		return 0, appErrors.Clone(appErrors.ErrInvalidGradeValue, "grade value must be between 0 and 5")
	}
	return value, nil
}

// GradingSession is one grader's working copy of a course grade sheet. Edits
// stay in the ledger overlay until committed one cell at a time.
type GradingSession struct {
	id         string
	owner      Actor
	course     models.Course
	students   []models.Student
	activities []models.Activity
	ledger     *GradeLedger

	grades        gradeCommitter
	metrics       *MetricsService
	logger        *zap.Logger
	clock         clock.Clock
	commitTimeout time.Duration

	mu       sync.Mutex
	inFlight map[models.GradeKey]struct{}
	lastUsed time.Time
}

func newGradingSession(id string, owner Actor, course models.Course, students []models.Student, activities []models.Activity, grades []models.Grade, committer gradeCommitter, metrics *MetricsService, logger *zap.Logger, clk clock.Clock, commitTimeout time.Duration) *GradingSession {
	return &GradingSession{
		id:            id,
		owner:         owner,
		course:        course,
		students:      students,
		activities:    activities,
		ledger:        NewGradeLedger(grades),
		grades:        committer,
		metrics:       metrics,
		logger:        logger.With(zap.String("session_id", id), zap.String("course_id", course.ID)),
		clock:         clk,
		commitTimeout: commitTimeout,
		inFlight:      make(map[models.GradeKey]struct{}),
		lastUsed:      clk.Now(),
	}
}

// ID returns the session identifier.
func (s *GradingSession) ID() string { return s.id }

// Course returns the graded course.
func (s *GradingSession) Course() models.Course { return s.course }

// Ledger exposes the session's grade ledger.
func (s *GradingSession) Ledger() *GradeLedger { return s.ledger }

// Write records an uncommitted edit.
func (s *GradingSession) Write(key models.GradeKey, raw string) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	s.touch()
	s.ledger.Write(key, raw)
	return nil
}

// Read returns the displayed value of a cell.
func (s *GradingSession) Read(key models.GradeKey) (string, bool) {
	s.touch()
	return s.ledger.Read(key)
}

// Discard drops an uncommitted edit.
func (s *GradingSession) Discard(key models.GradeKey) {
	s.touch()
	s.ledger.Clear(key)
}

// Committing reports whether a commit for key is in flight.
func (s *GradingSession) Committing(key models.GradeKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[key]
	return ok
}

// CommitPending commits the overlay value currently held for key.
func (s *GradingSession) CommitPending(ctx context.Context, key models.GradeKey) (*models.Grade, error) {
	raw, ok := s.ledger.Overlay(key)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no pending edit for cell")
	}
	return s.Commit(ctx, key, raw)
}

// Commit validates raw, persists it for key, reloads the course grades and
// drops the overlay entry, whether it held raw or the edit pending when the
// commit started. Invalid input leaves the overlay untouched. When the upsert
// succeeds but the reload fails a pending edit is replaced by the saved value
// and the error is returned together with the saved grade.
func (s *GradingSession) Commit(ctx context.Context, key models.GradeKey, raw string) (*models.Grade, error) {
	started := s.clock.Now()
	s.touch()

	value, err := ParseGradeValue(raw)
	if err != nil {
		s.metrics.RecordCommit(CommitOutcomeInvalid, 0)
		return nil, err
	}
	if err := s.checkKey(key); err != nil {
		s.metrics.RecordCommit(CommitOutcomeInvalid, 0)
		return nil, err
	}
	if !s.acquire(key) {
		s.metrics.RecordCommit(CommitOutcomeInFlight, 0)
		return nil, appErrors.ErrCommitInFlight
	}
	defer s.release(key)
	pending, hasPending := s.ledger.Overlay(key)

	if s.commitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.commitTimeout)
		defer cancel()
	}

	grade, err := s.grades.Upsert(ctx, s.owner, UpsertGradeRequest{
		StudentID:  key.StudentID,
		CourseID:   s.course.ID,
		ActivityID: key.Scope.ActivityRef(),
		Value:      &value,
	})
	if err != nil {
		outcome := CommitOutcomeTransport
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			outcome = CommitOutcomeInvalid
		}
		s.metrics.RecordCommit(outcome, s.clock.Now().Sub(started))
		s.logger.Warn("grade commit failed", zap.String("student_id", key.StudentID), zap.Stringer("scope", key.Scope), zap.Error(err))
		return nil, err
	}

	if err := s.refresh(ctx); err != nil {
		s.metrics.RecordCommit(CommitOutcomeRefreshError, s.clock.Now().Sub(started))
		s.logger.Warn("grade saved but refresh failed", zap.String("student_id", key.StudentID), zap.Stringer("scope", key.Scope), zap.Error(err))
		if hasPending {
			s.ledger.SwapIf(key, pending, raw)
		}
		return grade, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "grade saved but reload failed")
	}
	committed := []string{raw}
	if hasPending {
		committed = append(committed, pending)
	}
	s.ledger.ClearIf(key, committed...)
	s.metrics.RecordCommit(CommitOutcomeSuccess, s.clock.Now().Sub(started))
	s.logger.Info("grade committed", zap.String("student_id", key.StudentID), zap.Stringer("scope", key.Scope), zap.Float64("value", value))
	return grade, nil
}

// Refresh reloads the persisted grades. The overlay is kept.
func (s *GradingSession) Refresh(ctx context.Context) error {
	s.touch()
	return s.refresh(ctx)
}

func (s *GradingSession) refresh(ctx context.Context) error {
	grades, err := s.grades.ListCourse(ctx, models.GradeFilter{CourseID: s.course.ID})
	if err != nil {
		return err
	}
	s.ledger.Replace(grades)
	return nil
}

// Sheet renders the grade sheet for one scope.
func (s *GradingSession) Sheet(scope models.GradeScope) (*dto.GradeSheet, error) {
	label, ok := s.scopeLabel(scope)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found in course")
	}
	s.touch()

	sheet := &dto.GradeSheet{
		SessionID:  s.id,
		CourseID:   s.course.ID,
		CourseName: s.course.Name,
		Scope:      scope.String(),
		ScopeLabel: label,
		Scopes:     s.scopeOptions(),
		Rows:       make([]dto.GradeSheetRow, 0, len(s.students)),
		DirtyCount: s.ledger.DirtyCount(),
	}
	for _, student := range s.students {
		key := models.NewGradeKey(student.ID, scope)
		value, has := s.ledger.Read(key)
		avg := s.ledger.Average(student.ID)
		row := dto.GradeSheetRow{
			StudentID:    student.ID,
			FullName:     student.FullName,
			Cedula:       student.Cedula,
			Value:        value,
			HasValue:     has,
			Dirty:        s.ledger.IsDirty(key),
			Committing:   s.Committing(key),
			Average:      avg,
			AverageLabel: FormatAverage(avg),
		}
		if grade, ok := s.ledger.Persisted(key); ok {
			passing := grade.Passing()
			row.Passing = &passing
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func (s *GradingSession) scopeOptions() []dto.ScopeOption {
	options := make([]dto.ScopeOption, 0, len(s.activities)+1)
	general := models.GeneralScope()
	options = append(options, dto.ScopeOption{Scope: general, Value: general.String(), Label: GeneralScopeLabel})
	for _, a := range s.activities {
		scope := models.ActivityScope(a.ID)
		options = append(options, dto.ScopeOption{Scope: scope, Value: scope.String(), Label: a.Title})
	}
	return options
}

func (s *GradingSession) scopeLabel(scope models.GradeScope) (string, bool) {
	id, ok := scope.ActivityID()
	if !ok {
		return GeneralScopeLabel, true
	}
	for _, a := range s.activities {
		if a.ID == id {
			return a.Title, true
		}
	}
	return "", false
}

func (s *GradingSession) checkKey(key models.GradeKey) error {
	if !s.course.HasStudent(key.StudentID) {
		return appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in course")
	}
	if _, ok := s.scopeLabel(key.Scope); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "activity does not belong to course")
	}
	return nil
}

func (s *GradingSession) acquire(key models.GradeKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *GradingSession) release(key models.GradeKey) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *GradingSession) touch() {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// idleSince reports whether the session has been idle past cutoff with no
// commit in flight.
func (s *GradingSession) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight) == 0 && s.lastUsed.Before(cutoff)
}

func (s *GradingSession) ownedBy(actor Actor) bool {
	return actor.IsAdmin() || (actor.ID != "" && actor.ID == s.owner.ID)
}
