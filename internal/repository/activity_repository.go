package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/clock"
)

const activityColumns = `id, course_id, activity_number, title, description, start_date, due_date, files, created_at, updated_at`

// ActivityRepository persists course activities.
type ActivityRepository struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewActivityRepository creates a new activity repository stamping rows with clk.
func NewActivityRepository(db *sqlx.DB, clk clock.Clock) *ActivityRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &ActivityRepository{db: db, clock: clk}
}

// List returns activities matching the filter ordered by due date.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE 1=1`
	var args []interface{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if len(filter.CourseIDs) > 0 {
		args = append(args, pq.Array(filter.CourseIDs))
		query += fmt.Sprintf(" AND course_id = ANY($%d)", len(args))
	}
	query += " ORDER BY due_date ASC, created_at ASC"
	activities := []models.Activity{}
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// FindByID returns a single activity.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Create inserts a new activity, numbering it after the course's last one when unset.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := r.clock.Now()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	if activity.Files == nil {
		activity.Files = models.FileRefs{}
	}
	const query = `INSERT INTO activities (id, course_id, activity_number, title, description, start_date, due_date, files, created_at, updated_at)
        VALUES (:id, :course_id,
            COALESCE(:activity_number, (SELECT COALESCE(MAX(activity_number), 0) + 1 FROM activities WHERE course_id = :course_id)),
            :title, :description, :start_date, :due_date, :files, :created_at, :updated_at)
        RETURNING activity_number`
	stmt, args, err := sqlx.Named(query, activity)
	if err != nil {
		return fmt.Errorf("bind activity insert: %w", err)
	}
	var number int
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(stmt), args...).Scan(&number); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	activity.Number = &number
	return nil
}

// Update overwrites the editable fields of an activity.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = r.clock.Now()
	if activity.Files == nil {
		activity.Files = models.FileRefs{}
	}
	const query = `UPDATE activities SET activity_number = COALESCE(:activity_number, activity_number), title = :title,
        description = :description, start_date = :start_date, due_date = :due_date, files = :files,
        updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, activity)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an activity.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return expectAffected(res)
}
