package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
)

const gradeColumns = `id, student_id, course_id, activity_id, value, comments, created_at, updated_at`

// GradeRepository handles grade persistence. The (student_id, course_id, activity_id)
// unique index treats NULL activity ids as equal, so the general grade is unique too.
type GradeRepository struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewGradeRepository creates a new grade repository stamping rows with clk.
func NewGradeRepository(db *sqlx.DB, clk clock.Clock) *GradeRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &GradeRepository{db: db, clock: clk}
}

// List returns grades matching the filter in creation order.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	query += " ORDER BY created_at ASC, id ASC"
	grades := []models.Grade{}
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

type gradeUpsertParams struct {
	models.Grade
	KeepComments bool `db:"keep_comments"`
}

// Upsert inserts the grade or replaces the value of the existing one for the same
// student, course and scope. When keepComments is set an existing comment survives.
// The stored row is scanned back into grade.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade, keepComments bool) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := r.clock.Now()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, course_id, activity_id, value, comments, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :activity_id, :value, :comments, :created_at, :updated_at)
        ON CONFLICT (student_id, course_id, activity_id)
        DO UPDATE SET value = EXCLUDED.value,
            comments = CASE WHEN :keep_comments THEN grades.comments ELSE EXCLUDED.comments END,
            updated_at = EXCLUDED.updated_at
        RETURNING ` + gradeColumns
	stmt, args, err := sqlx.Named(query, gradeUpsertParams{Grade: *grade, KeepComments: keepComments})
	if err != nil {
		return fmt.Errorf("bind grade upsert: %w", err)
	}
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(stmt), args...).StructScan(grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}
