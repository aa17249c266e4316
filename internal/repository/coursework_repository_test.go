package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
)

var stampedAt = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

var gradeCols = []string{"id", "student_id", "course_id", "activity_id", "value", "comments", "created_at", "updated_at"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db, nil)

	now := time.Now()
	rows := sqlmock.NewRows(gradeCols).
		AddRow("g1", "s1", "c1", nil, 4.5, "", now, now).
		AddRow("g2", "s1", "c1", "a1", 3.0, "bien", now, now)
	mock.ExpectQuery(`FROM grades WHERE 1=1 AND course_id = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs("c1").
		WillReturnRows(rows)

	grades, err := repo.List(context.Background(), models.GradeFilter{CourseID: "c1"})
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.True(t, grades[0].Scope().IsGeneral())
	assert.Equal(t, models.ActivityScope("a1"), grades[1].Scope())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertKeepsComments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db, clock.NewFixed(stampedAt))

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO grades .* ON CONFLICT \(student_id, course_id, activity_id\)`).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", nil, 4.5, "", stampedAt, stampedAt, true).
		WillReturnRows(sqlmock.NewRows(gradeCols).AddRow("g-existing", "s1", "c1", nil, 4.5, "previous note", now, now))

	grade := &models.Grade{StudentID: "s1", CourseID: "c1", Value: 4.5}
	require.NoError(t, repo.Upsert(context.Background(), grade, true))
	assert.Equal(t, "g-existing", grade.ID)
	assert.Equal(t, "previous note", grade.Comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db, nil)

	mock.ExpectQuery("INSERT INTO grades").WillReturnError(sql.ErrConnDone)

	err := repo.Upsert(context.Background(), &models.Grade{StudentID: "s1", CourseID: "c1", Value: 1}, false)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestSubmissionRepositoryListOrdersByCreation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db, nil)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "activity_id", "student_id", "content", "files", "created_at"}).
		AddRow("sub1", "a1", "s1", "respuesta", []byte(`[{"name":"a.pdf","url":"/files/a.pdf"}]`), now)
	mock.ExpectQuery(`FROM submissions WHERE 1=1 AND student_id = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs("s1").
		WillReturnRows(rows)

	subs, err := repo.List(context.Background(), models.SubmissionFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "a.pdf", subs[0].Files[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db, clock.NewFixed(stampedAt))

	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(sqlmock.AnyArg(), "a1", "s1", "hola", []byte("[]"), stampedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{ActivityID: "a1", StudentID: "s1", Content: "hola"}
	require.NoError(t, repo.Create(context.Background(), sub))
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, stampedAt, sub.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryCreateAssignsNumber(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db, clock.NewFixed(stampedAt))

	mock.ExpectQuery("INSERT INTO activities").
		WillReturnRows(sqlmock.NewRows([]string{"activity_number"}).AddRow(3))

	activity := &models.Activity{CourseID: "c1", Title: "Taller", DueDate: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), activity))
	require.NotNil(t, activity.Number)
	assert.Equal(t, 3, *activity.Number)
	assert.NotEmpty(t, activity.ID)
	assert.Equal(t, stampedAt, activity.CreatedAt)
	assert.Equal(t, stampedAt, activity.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListByCourses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db, nil)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "activity_number", "title", "description", "start_date", "due_date", "files", "created_at", "updated_at"}).
		AddRow("a1", "c1", 1, "Taller", "", nil, now, []byte("[]"), now, now)
	mock.ExpectQuery(`FROM activities WHERE 1=1 AND course_id = ANY\(\$1\) ORDER BY due_date ASC`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	activities, err := repo.List(context.Background(), models.ActivityFilter{CourseIDs: []string{"c1", "c2"}})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Nil(t, activities[0].StartDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db, nil)

	mock.ExpectExec("UPDATE activities SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Activity{ID: "missing", DueDate: time.Now()})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestActivityRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db, nil)

	mock.ExpectExec(`DELETE FROM activities WHERE id = \$1`).WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`FROM courses c LEFT JOIN course_students cs ON cs.course_id = c.id WHERE c.id = \$1 GROUP BY c.id`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "teacher_id", "student_ids"}).AddRow("c1", "Matemáticas", "t1", "{s1,s2}"))

	course, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Matemáticas", course.Name)
	assert.True(t, course.HasStudent("s2"))
	assert.False(t, course.HasStudent("s3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListStudentsEmpty(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	students, err := repo.ListStudents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, students)
}
