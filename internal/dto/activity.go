package dto

import "github.com/noah-isme/coursework-api/internal/models"

// ActivityStatusView is the display-ready description of an activity's state.
type ActivityStatusView struct {
	Status             models.ActivityStatus `json:"status"`
	Label              string                `json:"label"`
	Variant            string                `json:"variant"`
	DaysRemaining      *int                  `json:"days_remaining,omitempty"`
	DaysUntilAvailable *int                  `json:"days_until_available,omitempty"`
	CanSubmit          bool                  `json:"can_submit"`
}

// StudentActivity is one row of a student's activity list.
type StudentActivity struct {
	models.Activity
	CourseName  string             `json:"course_name"`
	State       ActivityStatusView `json:"state"`
	Submitted   bool               `json:"submitted"`
	Submission  *models.Submission `json:"submission,omitempty"`
	Submissions int                `json:"submission_count"`
}
