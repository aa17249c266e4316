package service

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/noah-isme/coursework-api/internal/models"
)

// NoAverageLabel is shown when a student has no persisted grades.
const NoAverageLabel = "-"

// AverageGrade returns the mean of every persisted grade of studentID, all scopes
// pooled, rounded to one decimal. It returns nil when the student has no grades.
func AverageGrade(grades []models.Grade, studentID string) *float64 {
	values := make(stats.Float64Data, 0, len(grades))
	for _, g := range grades {
		if g.StudentID == studentID {
			values = append(values, g.Value)
		}
	}
	return meanOf(values)
}

// AverageAll averages grades that already belong to a single student.
func AverageAll(grades []models.Grade) *float64 {
	values := make(stats.Float64Data, 0, len(grades))
	for _, g := range grades {
		values = append(values, g.Value)
	}
	return meanOf(values)
}

// FormatAverage renders an average with one decimal, or "-" when undefined.
func FormatAverage(avg *float64) string {
	if avg == nil {
		return NoAverageLabel
	}
	return fmt.Sprintf("%.1f", *avg)
}

func meanOf(values stats.Float64Data) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	rounded, err := stats.Round(mean, 1)
	if err != nil {
		return nil
	}
	return &rounded
}
