package models

import (
	"encoding/json"
	"strings"
)

// GeneralScopeName is the wire/query spelling of the course-wide scope.
const GeneralScopeName = "general"

type scopeKind uint8

const (
	scopeGeneral scopeKind = iota
	scopeActivity
)

// GradeScope is the grading context of a grade: either the course-wide general
// bucket or one specific activity. The zero value is the general scope.
type GradeScope struct {
	kind       scopeKind
	activityID string
}

// GeneralScope returns the course-wide scope.
func GeneralScope() GradeScope {
	return GradeScope{kind: scopeGeneral}
}

// ActivityScope returns the scope of one activity. An empty id yields the general scope.
func ActivityScope(activityID string) GradeScope {
	if activityID == "" {
		return GeneralScope()
	}
	return GradeScope{kind: scopeActivity, activityID: activityID}
}

// ScopeOf maps a nullable activity reference to its scope.
func ScopeOf(activityID *string) GradeScope {
	if activityID == nil {
		return GeneralScope()
	}
	return ActivityScope(*activityID)
}

// ParseGradeScope reads the query-string form: "general" (or empty) or an activity id.
func ParseGradeScope(raw string) GradeScope {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, GeneralScopeName) {
		return GeneralScope()
	}
	return ActivityScope(raw)
}

// IsGeneral reports whether the scope is the course-wide bucket.
func (s GradeScope) IsGeneral() bool {
	return s.kind == scopeGeneral
}

// ActivityID returns the activity id for activity scopes.
func (s GradeScope) ActivityID() (string, bool) {
	if s.kind != scopeActivity {
		return "", false
	}
	return s.activityID, true
}

// ActivityRef returns the nullable column value for the scope.
func (s GradeScope) ActivityRef() *string {
	if id, ok := s.ActivityID(); ok {
		return &id
	}
	return nil
}

// String renders the query-string form.
func (s GradeScope) String() string {
	if id, ok := s.ActivityID(); ok {
		return id
	}
	return GeneralScopeName
}

// MarshalJSON renders the general scope as null and activity scopes as their id,
// matching the nullable activity_id of the grades resource.
func (s GradeScope) MarshalJSON() ([]byte, error) {
	if id, ok := s.ActivityID(); ok {
		return json.Marshal(id)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts null or an activity id.
func (s *GradeScope) UnmarshalJSON(data []byte) error {
	var ref *string
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*s = ScopeOf(ref)
	return nil
}

// GradeKey addresses one ledger cell.
type GradeKey struct {
	StudentID string
	Scope     GradeScope
}

// NewGradeKey builds a key for student and scope.
func NewGradeKey(studentID string, scope GradeScope) GradeKey {
	return GradeKey{StudentID: studentID, Scope: scope}
}
