package service

import "github.com/noah-isme/coursework-api/internal/models"

// SubmissionIndex answers whether a student has submitted an activity. When an
// activity has several submissions the first one in input order is returned.
type SubmissionIndex struct {
	first  map[string]models.Submission
	counts map[string]int
}

// NewSubmissionIndex indexes one student's submissions by activity.
func NewSubmissionIndex(submissions []models.Submission) *SubmissionIndex {
	idx := &SubmissionIndex{
		first:  make(map[string]models.Submission, len(submissions)),
		counts: make(map[string]int, len(submissions)),
	}
	for _, sub := range submissions {
		if _, seen := idx.first[sub.ActivityID]; !seen {
			idx.first[sub.ActivityID] = sub
		}
		idx.counts[sub.ActivityID]++
	}
	return idx
}

// Find returns the submission for activityID, if any.
func (i *SubmissionIndex) Find(activityID string) (*models.Submission, bool) {
	sub, ok := i.first[activityID]
	if !ok {
		return nil, false
	}
	return &sub, true
}

// Has reports whether activityID has been submitted.
func (i *SubmissionIndex) Has(activityID string) bool {
	_, ok := i.first[activityID]
	return ok
}

// Count returns how many submissions exist for activityID.
func (i *SubmissionIndex) Count(activityID string) int {
	return i.counts[activityID]
}
