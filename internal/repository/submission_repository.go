package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
)

// SubmissionRepository persists student submissions.
type SubmissionRepository struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewSubmissionRepository creates a new submission repository stamping rows with clk.
func NewSubmissionRepository(db *sqlx.DB, clk clock.Clock) *SubmissionRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &SubmissionRepository{db: db, clock: clk}
}

// List returns submissions in creation order; resubmissions appear after earlier ones.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	query := `SELECT id, activity_id, student_id, content, files, created_at FROM submissions WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.ActivityID != "" {
		args = append(args, filter.ActivityID)
		query += fmt.Sprintf(" AND activity_id = $%d", len(args))
	}
	query += " ORDER BY created_at ASC, id ASC"
	submissions := []models.Submission{}
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Create inserts a submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = r.clock.Now()
	}
	if submission.Files == nil {
		submission.Files = models.FileRefs{}
	}
	const query = `INSERT INTO submissions (id, activity_id, student_id, content, files, created_at)
        VALUES (:id, :activity_id, :student_id, :content, :files, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}
