package service

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/noah-isme/coursework-api/internal/models"
)

// gradeSnapshot is an immutable view of the persisted grade set.
type gradeSnapshot struct {
	grades []models.Grade
	byKey  map[models.GradeKey]models.Grade
}

func newGradeSnapshot(grades []models.Grade) *gradeSnapshot {
	snap := &gradeSnapshot{
		grades: append([]models.Grade(nil), grades...),
		byKey:  make(map[models.GradeKey]models.Grade, len(grades)),
	}
	for _, g := range snap.grades {
		key := g.Key()
		if _, exists := snap.byKey[key]; !exists {
			snap.byKey[key] = g
		}
	}
	return snap
}

// GradeLedger combines the persisted grade set with an overlay of uncommitted
// edits keyed by (student, scope). The persisted set is only ever replaced
// wholesale, so readers see either the old or the new snapshot.
type GradeLedger struct {
	persisted atomic.Pointer[gradeSnapshot]

	mu      sync.RWMutex
	overlay map[models.GradeKey]string
}

// NewGradeLedger builds a ledger over grades with an empty overlay.
func NewGradeLedger(grades []models.Grade) *GradeLedger {
	l := &GradeLedger{overlay: make(map[models.GradeKey]string)}
	l.persisted.Store(newGradeSnapshot(grades))
	return l
}

// Read returns the value to display for key: the overlay entry if present,
// otherwise the persisted value. The boolean is false when neither exists.
func (l *GradeLedger) Read(key models.GradeKey) (string, bool) {
	if raw, ok := l.Overlay(key); ok {
		return raw, true
	}
	if g, ok := l.Persisted(key); ok {
		return FormatGradeValue(g.Value), true
	}
	return "", false
}

// Write stores raw in the overlay. Validation is deferred to commit.
func (l *GradeLedger) Write(key models.GradeKey, raw string) {
	l.mu.Lock()
	l.overlay[key] = raw
	l.mu.Unlock()
}

// IsDirty reports whether key has an overlay entry.
func (l *GradeLedger) IsDirty(key models.GradeKey) bool {
	_, ok := l.Overlay(key)
	return ok
}

// Overlay returns the uncommitted value for key.
func (l *GradeLedger) Overlay(key models.GradeKey) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	raw, ok := l.overlay[key]
	return raw, ok
}

// Clear removes the overlay entry for key.
func (l *GradeLedger) Clear(key models.GradeKey) {
	l.mu.Lock()
	delete(l.overlay, key)
	l.mu.Unlock()
}

// ClearIf removes the overlay entry only while it still holds one of values, so
// an edit typed during a commit survives that commit. It reports whether it
// cleared.
func (l *GradeLedger) ClearIf(key models.GradeKey, values ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.overlay[key]
	if !ok {
		return false
	}
	for _, v := range values {
		if current == v {
			delete(l.overlay, key)
			return true
		}
	}
	return false
}

// SwapIf replaces the overlay entry with to while it still holds from.
func (l *GradeLedger) SwapIf(key models.GradeKey, from, to string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.overlay[key]
	if !ok || current != from {
		return false
	}
	l.overlay[key] = to
	return true
}

// DirtyCount returns the number of overlay entries.
func (l *GradeLedger) DirtyCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.overlay)
}

// Persisted returns the persisted grade for key.
func (l *GradeLedger) Persisted(key models.GradeKey) (models.Grade, bool) {
	g, ok := l.persisted.Load().byKey[key]
	return g, ok
}

// Grades returns a copy of the persisted grade set.
func (l *GradeLedger) Grades() []models.Grade {
	return append([]models.Grade(nil), l.persisted.Load().grades...)
}

// Replace swaps in a freshly fetched persisted set.
func (l *GradeLedger) Replace(grades []models.Grade) {
	l.persisted.Store(newGradeSnapshot(grades))
}

// Average returns the student's average over the persisted set only.
func (l *GradeLedger) Average(studentID string) *float64 {
	return AverageGrade(l.persisted.Load().grades, studentID)
}

// FormatGradeValue renders a grade without trailing zeros.
func FormatGradeValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
