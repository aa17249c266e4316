package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/coursework-api/internal/models"
)

const courseSelect = `SELECT c.id, c.name, c.teacher_id,
        COALESCE(array_agg(cs.student_id) FILTER (WHERE cs.student_id IS NOT NULL), '{}') AS student_ids
        FROM courses c LEFT JOIN course_students cs ON cs.course_id = c.id`

// CourseRepository reads the course directory. Courses and rosters are managed elsewhere.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course with its roster.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	query := courseSelect + ` WHERE c.id = $1 GROUP BY c.id`
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByStudent returns the courses a student is enrolled in.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	query := courseSelect + ` WHERE c.id IN (SELECT course_id FROM course_students WHERE student_id = $1) GROUP BY c.id ORDER BY c.name`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// ListStudents returns roster entries for the given user ids.
func (r *CourseRepository) ListStudents(ctx context.Context, ids []string) ([]models.Student, error) {
	students := []models.Student{}
	if len(ids) == 0 {
		return students, nil
	}
	const query = `SELECT id, full_name, cedula FROM users WHERE id = ANY($1) ORDER BY full_name`
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
