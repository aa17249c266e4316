package models

import "time"

// Submission is a student's response to one activity.
type Submission struct {
	ID         string    `db:"id" json:"id"`
	ActivityID string    `db:"activity_id" json:"activity_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Content    string    `db:"content" json:"content"`
	Files      FileRefs  `db:"files" json:"files"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SubmissionFilter scopes submission listings.
type SubmissionFilter struct {
	StudentID  string
	ActivityID string
}
