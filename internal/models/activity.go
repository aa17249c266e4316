package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FileRef is an opaque reference to an uploaded file.
type FileRef struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required"`
}

// FileRefs persists as a JSONB array.
type FileRefs []FileRef

// Value implements driver.Valuer.
func (f FileRefs) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *FileRefs) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = FileRefs{}
		return nil
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("scan file refs: unsupported type %T", src)
	}
}

// Activity is a gradable unit of coursework with an availability window.
type Activity struct {
	ID          string     `db:"id" json:"id"`
	CourseID    string     `db:"course_id" json:"course_id"`
	Number      *int       `db:"activity_number" json:"activity_number,omitempty"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	Files       FileRefs   `db:"files" json:"files"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ActivityStatus is the lifecycle state of an activity at a given instant.
type ActivityStatus string

const (
	// ActivityUpcoming activities have not opened yet.
	ActivityUpcoming ActivityStatus = "upcoming"
	// ActivityActive activities accept submissions.
	ActivityActive ActivityStatus = "active"
	// ActivityExpired activities are past due and reject submissions.
	ActivityExpired ActivityStatus = "expired"
)

// ActivityFilter scopes activity listings.
type ActivityFilter struct {
	CourseID  string
	CourseIDs []string
}
