package auth

import (
	"fmt"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

// PortalActorID identifies changes made through the public job link.
const PortalActorID = "portal"

// Actor is the principal performing a mutation. Its Label is written into
// job audit records.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

// PortalActor is the anonymous subcontractor acting through a job's public link.
func PortalActor() Actor {
	return Actor{ID: PortalActorID, Role: RoleGuest}
}

// Label returns the identifier recorded as the author of a change.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	if a.ID != "" {
		return a.ID
	}
	return "unknown"
}

var roleLevels = map[Role]int{
	RoleGuest: 0,
	RoleUser:  1,
	RoleAdmin: 2,
}

// Satisfies reports whether r meets required under the hierarchy
// guest < user < admin. Unknown roles satisfy nothing.
func (r Role) Satisfies(required Role) bool {
	have, ok := roleLevels[r]
	if !ok {
		return false
	}
	need, ok := roleLevels[required]
	if !ok {
		return false
	}
	return have >= need
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AssertRole returns a forbidden error unless actor holds at least required.
// Every mutating service operation calls it before touching persistence.
func AssertRole(actor Actor, required Role) error {
	if actor.Role.Satisfies(required) {
		return nil
	}
	return apperrors.Forbidden(fmt.Sprintf("%s role required", required))
}
