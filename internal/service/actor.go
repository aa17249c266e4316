package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/coursework-api/internal/models"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.UserRole
}

// ActorFromClaims maps token claims to an Actor.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{ID: claims.UserID, Role: claims.Role}
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanManageCourse reports whether the actor may edit the course's activities and grades.
func (a Actor) CanManageCourse(course models.Course) bool {
	return a.IsAdmin() || (a.Role == models.RoleTeacher && course.TeacherID == a.ID)
}

// CanViewStudent reports whether the actor may read a student's records.
func (a Actor) CanViewStudent(studentID string) bool {
	return a.IsAdmin() || a.Role == models.RoleTeacher || (a.ID != "" && a.ID == studentID)
}

// lookupError maps a repository lookup failure to not-found or transport.
func lookupError(err error, notFound string, failed string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Transport(err, failed)
}
