package models

import "time"

const (
	// MinGradeValue is the lowest accepted grade.
	MinGradeValue = 0.0
	// MaxGradeValue is the highest accepted grade.
	MaxGradeValue = 5.0
	// PassingGradeValue marks the boundary used for pass/fail badges.
	PassingGradeValue = 3.0
)

// Grade is a persisted numeric evaluation for a student within a course scope.
type Grade struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	ActivityID *string   `db:"activity_id" json:"activity_id"`
	Value      float64   `db:"value" json:"value"`
	Comments   string    `db:"comments" json:"comments"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Scope returns the grade's scope.
func (g Grade) Scope() GradeScope {
	return ScopeOf(g.ActivityID)
}

// Key returns the ledger key of the grade.
func (g Grade) Key() GradeKey {
	return NewGradeKey(g.StudentID, g.Scope())
}

// Passing reports whether the grade meets the passing mark.
func (g Grade) Passing() bool {
	return g.Value >= PassingGradeValue
}

// GradeFilter allows querying of grade entries. At least one field must be set.
type GradeFilter struct {
	StudentID string
	CourseID  string
}
