// internal/app/system/authz/authz.go
//
// Package authz identifies the caller of a service operation. Identity
// arrives pre-authenticated from the transport layer; services receive an
// Actor and apply domain rules against it.
package authz

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Platform roles.
const (
	RoleAdmin       = "admin"
	RoleOrganizer   = "organizer"
	RoleCoordinator = "coordinator"
	RoleJudge       = "judge"
	RoleParticipant = "participant"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Roles []string
}

// Valid reports whether the actor carries a real identity.
func (a Actor) Valid() bool {
	return !a.ID.IsZero()
}

// HasRole reports whether the actor has the given role. Comparison is
// case-insensitive.
func (a Actor) HasRole(role string) bool {
	want := strings.ToLower(strings.TrimSpace(role))
	for _, r := range a.Roles {
		if strings.ToLower(r) == want {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor has at least one of the roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is a platform admin.
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// IsOrganizer reports whether the actor has the organizer role.
func (a Actor) IsOrganizer() bool {
	return a.HasRole(RoleOrganizer)
}
