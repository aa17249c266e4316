package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/coursework-api/internal/models"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

var errBackendDown = errors.New("connection refused")

var baseTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

type fakeGradeRepo struct {
	mu        sync.Mutex
	grades    []models.Grade
	listErr   error
	upsertErr error
	// gate, when set, blocks Upsert until closed.
	gate      chan struct{}
	entered   chan struct{}
	listCalls int
	keepFlags []bool
}

func (f *fakeGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	result := []models.Grade{}
	for _, g := range f.grades {
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && g.CourseID != filter.CourseID {
			continue
		}
		result = append(result, g)
	}
	return result, nil
}

func (f *fakeGradeRepo) Upsert(ctx context.Context, grade *models.Grade, keepComments bool) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.keepFlags = append(f.keepFlags, keepComments)
	for i, existing := range f.grades {
		if existing.CourseID == grade.CourseID && existing.Key() == grade.Key() {
			existing.Value = grade.Value
			if !keepComments {
				existing.Comments = grade.Comments
			}
			f.grades[i] = existing
			*grade = existing
			return nil
		}
	}
	grade.ID = uuid.NewString()
	f.grades = append(f.grades, *grade)
	return nil
}

func (f *fakeGradeRepo) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

type fakeCourseReader struct {
	courses  map[string]models.Course
	students map[string]models.Student
	err      error
}

func (f *fakeCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	course, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (f *fakeCourseReader) ListByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := []models.Course{}
	for _, c := range f.courses {
		if c.HasStudent(studentID) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeCourseReader) ListStudents(ctx context.Context, ids []string) ([]models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := f.students[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

type fakeActivityRepo struct {
	activities []models.Activity
	listErr    error
	listCalls  int
}

func (f *fakeActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	result := []models.Activity{}
	for _, a := range f.activities {
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if len(filter.CourseIDs) > 0 && !contains(filter.CourseIDs, a.CourseID) {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (f *fakeActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	for _, a := range f.activities {
		if a.ID == id {
			activity := a
			return &activity, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	activity.ID = uuid.NewString()
	if activity.Number == nil {
		number := len(f.activities) + 1
		activity.Number = &number
	}
	f.activities = append(f.activities, *activity)
	return nil
}

func (f *fakeActivityRepo) Update(ctx context.Context, activity *models.Activity) error {
	for i, a := range f.activities {
		if a.ID == activity.ID {
			f.activities[i] = *activity
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeActivityRepo) Delete(ctx context.Context, id string) error {
	for i, a := range f.activities {
		if a.ID == id {
			f.activities = append(f.activities[:i], f.activities[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeSubmissionRepo struct {
	submissions []models.Submission
	err         error
}

func (f *fakeSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := []models.Submission{}
	for _, s := range f.submissions {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.ActivityID != "" && s.ActivityID != filter.ActivityID {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if f.err != nil {
		return f.err
	}
	submission.ID = uuid.NewString()
	f.submissions = append(f.submissions, *submission)
	return nil
}

type memoryCache struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.items, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.items = map[string][]byte{}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// courseFixture is a course with two students, one activity and the teacher t-1.
func courseFixture() (*fakeCourseReader, *fakeActivityRepo) {
	courses := &fakeCourseReader{
		courses: map[string]models.Course{
			"c-1": {ID: "c-1", Name: "Matemáticas", TeacherID: "t-1", StudentIDs: []string{"s-1", "s-2"}},
		},
		students: map[string]models.Student{
			"s-1": {ID: "s-1", FullName: "Ana Pérez", Cedula: "V-1"},
			"s-2": {ID: "s-2", FullName: "Luis Gómez", Cedula: "V-2"},
		},
	}
	activities := &fakeActivityRepo{activities: []models.Activity{
		{ID: "a-1", CourseID: "c-1", Title: "Taller 1", DueDate: baseTime.Add(48 * time.Hour)},
	}}
	return courses, activities
}

var teacherActor = Actor{ID: "t-1", Role: models.RoleTeacher}
