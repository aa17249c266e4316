package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/cache"
	"github.com/noah-isme/coursework-api/pkg/clock"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

type activityFixture struct {
	svc         *ActivityService
	activities  *fakeActivityRepo
	submissions *fakeSubmissionRepo
	cache       *memoryCache
}

func newActivityFixture() *activityFixture {
	courses, activities := courseFixture()
	courses.courses["c-2"] = models.Course{ID: "c-2", Name: "Historia", TeacherID: "t-2", StudentIDs: []string{"s-1"}}
	submissions := &fakeSubmissionRepo{}
	mem := newMemoryCache()
	cacheSvc := NewCacheService(mem, nil, time.Minute, zap.NewNop(), true)
	svc := NewActivityService(activities, courses, submissions, cacheSvc, time.Minute, clock.NewFixed(baseTime), validator.New(), zap.NewNop())
	return &activityFixture{svc: svc, activities: activities, submissions: submissions, cache: mem}
}

func TestActivityServiceListUsesCache(t *testing.T) {
	f := newActivityFixture()

	first, hit, err := f.svc.List(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 1)

	second, hit, err := f.svc.List(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, f.activities.listCalls)
}

func TestActivityServiceCreateValidatesWindow(t *testing.T) {
	f := newActivityFixture()
	due := baseTime.Add(24 * time.Hour)

	_, err := f.svc.Create(context.Background(), teacherActor, ActivityRequest{CourseID: "c-1", Title: "Sin fecha"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Create(context.Background(), teacherActor, ActivityRequest{
		CourseID: "c-1", Title: "Invertida", StartDate: timePtr(due.Add(time.Hour)), DueDate: &due,
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Create(context.Background(), Actor{ID: "t-2", Role: models.RoleTeacher}, ActivityRequest{
		CourseID: "c-1", Title: "Ajena", DueDate: &due,
	})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestActivityServiceCreateInvalidatesCache(t *testing.T) {
	f := newActivityFixture()
	_, _, err := f.svc.List(context.Background(), "c-1")
	require.NoError(t, err)

	due := baseTime.Add(24 * time.Hour)
	activity, err := f.svc.Create(context.Background(), teacherActor, ActivityRequest{
		CourseID: "c-1", Title: "  Taller 2 ", StartDate: &due, DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "Taller 2", activity.Title)
	assert.Contains(t, f.cache.deleted, cache.ActivityListKey("c-1"))

	list, hit, err := f.svc.List(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, list, 2)
}

func TestActivityServiceActivityNumber(t *testing.T) {
	f := newActivityFixture()
	due := baseTime.Add(24 * time.Hour)

	numbered, err := f.svc.Create(context.Background(), teacherActor, ActivityRequest{
		CourseID: "c-1", Title: "Taller 7", DueDate: &due, Number: intPtr(7),
	})
	require.NoError(t, err)
	require.NotNil(t, numbered.Number)
	assert.Equal(t, 7, *numbered.Number)

	auto, err := f.svc.Create(context.Background(), teacherActor, ActivityRequest{CourseID: "c-1", Title: "Taller", DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, auto.Number)
	assert.Equal(t, 3, *auto.Number)

	renumbered, err := f.svc.Update(context.Background(), teacherActor, numbered.ID, ActivityRequest{Title: "Taller 7", DueDate: &due, Number: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, *renumbered.Number)

	kept, err := f.svc.Update(context.Background(), teacherActor, numbered.ID, ActivityRequest{Title: "Taller 7", DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, 2, *kept.Number)

	_, err = f.svc.Create(context.Background(), teacherActor, ActivityRequest{CourseID: "c-1", Title: "Cero", DueDate: &due, Number: intPtr(0)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestActivityServiceUpdateAndDelete(t *testing.T) {
	f := newActivityFixture()
	due := baseTime.Add(72 * time.Hour)

	updated, err := f.svc.Update(context.Background(), teacherActor, "a-1", ActivityRequest{Title: "Taller 1b", DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, "c-1", updated.CourseID)
	assert.Equal(t, due, updated.DueDate)

	_, err = f.svc.Update(context.Background(), teacherActor, "a-404", ActivityRequest{Title: "x", DueDate: &due})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, f.svc.Delete(context.Background(), teacherActor, "a-1"))
	assert.Empty(t, f.activities.activities)
}

func TestActivityServiceForStudent(t *testing.T) {
	f := newActivityFixture()
	f.activities.activities = append(f.activities.activities,
		models.Activity{ID: "a-2", CourseID: "c-2", Title: "Ensayo", DueDate: baseTime.Add(-time.Hour)},
		models.Activity{ID: "a-3", CourseID: "c-2", Title: "Exposición", StartDate: timePtr(baseTime.Add(40 * time.Hour)), DueDate: baseTime.Add(96 * time.Hour)},
		models.Activity{ID: "a-4", CourseID: "c-9", Title: "Ajena", DueDate: baseTime.Add(time.Hour)},
	)
	f.submissions.submissions = []models.Submission{
		{ID: "sub-1", ActivityID: "a-1", StudentID: "s-1", Content: "primera"},
		{ID: "sub-2", ActivityID: "a-1", StudentID: "s-1", Content: "segunda"},
		{ID: "sub-3", ActivityID: "a-2", StudentID: "s-2", Content: "otro"},
	}

	items, err := f.svc.ForStudent(context.Background(), Actor{ID: "s-1", Role: models.RoleStudent}, "s-1")
	require.NoError(t, err)
	require.Len(t, items, 3)

	byID := map[string]int{}
	for i, item := range items {
		byID[item.ID] = i
	}
	taller := items[byID["a-1"]]
	assert.True(t, taller.Submitted)
	require.NotNil(t, taller.Submission)
	assert.Equal(t, "sub-1", taller.Submission.ID)
	assert.Equal(t, 2, taller.Submissions)
	assert.Equal(t, "Matemáticas", taller.CourseName)
	assert.True(t, taller.State.CanSubmit)

	ensayo := items[byID["a-2"]]
	assert.False(t, ensayo.Submitted)
	assert.Equal(t, models.ActivityExpired, ensayo.State.Status)
	assert.False(t, ensayo.State.CanSubmit)

	expo := items[byID["a-3"]]
	assert.Equal(t, models.ActivityUpcoming, expo.State.Status)
	require.NotNil(t, expo.State.DaysUntilAvailable)
	assert.Equal(t, 2, *expo.State.DaysUntilAvailable)
}

func TestActivityServiceForStudentForbidden(t *testing.T) {
	f := newActivityFixture()
	_, err := f.svc.ForStudent(context.Background(), Actor{ID: "s-2", Role: models.RoleStudent}, "s-1")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
