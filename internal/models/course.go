package models

import "github.com/lib/pq"

// Course is the read-only view of a course and its roster.
type Course struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	TeacherID  string         `db:"teacher_id" json:"teacher_id"`
	StudentIDs pq.StringArray `db:"student_ids" json:"student_ids"`
}

// HasStudent reports whether the student is enrolled.
func (c Course) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// Student is the roster entry shown on grade sheets.
type Student struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Cedula   string `db:"cedula" json:"cedula"`
}
