package dto

import "github.com/noah-isme/coursework-api/internal/models"

// ScopeOption is a selectable grading scope on the sheet.
type ScopeOption struct {
	Scope models.GradeScope `json:"activity_id"`
	Value string            `json:"value"`
	Label string            `json:"label"`
}

// GradeSheetRow is one student's cell plus their running average.
type GradeSheetRow struct {
	StudentID    string   `json:"student_id"`
	FullName     string   `json:"full_name"`
	Cedula       string   `json:"cedula"`
	Value        string   `json:"value"`
	HasValue     bool     `json:"has_value"`
	Dirty        bool     `json:"dirty"`
	Committing   bool     `json:"committing"`
	Average      *float64 `json:"average"`
	AverageLabel string   `json:"average_label"`
	Passing      *bool    `json:"passing,omitempty"`
}

// GradeSheet is the grading session view for one scope.
type GradeSheet struct {
	SessionID  string          `json:"session_id"`
	CourseID   string          `json:"course_id"`
	CourseName string          `json:"course_name"`
	Scope      string          `json:"scope"`
	ScopeLabel string          `json:"scope_label"`
	Scopes     []ScopeOption   `json:"scopes"`
	Rows       []GradeSheetRow `json:"rows"`
	DirtyCount int             `json:"dirty_count"`
}

// StudentGradeRow is a persisted grade with resolved names.
type StudentGradeRow struct {
	models.Grade
	CourseName    string `json:"course_name"`
	ActivityTitle string `json:"activity_title"`
	Passing       bool   `json:"passing"`
}

// StudentGradeSummary lists a student's grades with their pooled average.
type StudentGradeSummary struct {
	StudentID    string            `json:"student_id"`
	Average      *float64          `json:"average"`
	AverageLabel string            `json:"average_label"`
	Grades       []StudentGradeRow `json:"grades"`
}

// OpenGradingSessionRequest starts a grading session for a course.
type OpenGradingSessionRequest struct {
	CourseID string `json:"course_id" binding:"required"`
}

// GradingCellRequest addresses one cell of a grading session. A null or
// missing activity_id addresses the general grade. Value is optional on commit,
// where it defaults to the pending edit.
type GradingCellRequest struct {
	StudentID string            `json:"student_id" binding:"required"`
	Scope     models.GradeScope `json:"activity_id"`
	Value     *string           `json:"value"`
}

// Key returns the ledger key of the addressed cell.
func (r GradingCellRequest) Key() models.GradeKey {
	return models.NewGradeKey(r.StudentID, r.Scope)
}

// GradingCell is the state of one cell after an edit or commit.
type GradingCell struct {
	StudentID  string            `json:"student_id"`
	Scope      models.GradeScope `json:"activity_id"`
	Value      string            `json:"value"`
	HasValue   bool              `json:"has_value"`
	Dirty      bool              `json:"dirty"`
	Committing bool              `json:"committing"`
	Grade      *models.Grade     `json:"grade,omitempty"`
}
