package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

func TestAssertRole(t *testing.T) {
	tests := []struct {
		name     string
		actor    Role
		required Role
		allowed  bool
	}{
		{name: "admin acts as user", actor: RoleAdmin, required: RoleUser, allowed: true},
		{name: "admin acts as admin", actor: RoleAdmin, required: RoleAdmin, allowed: true},
		{name: "user cannot act as admin", actor: RoleUser, required: RoleAdmin},
		{name: "guest cannot act as user", actor: RoleGuest, required: RoleUser},
		{name: "guest acts as guest", actor: RoleGuest, required: RoleGuest, allowed: true},
		{name: "unknown role", actor: Role("owner"), required: RoleGuest},
		{name: "unknown requirement", actor: RoleAdmin, required: Role("root")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertRole(Actor{ID: "u1", Role: tt.actor}, tt.required)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsForbidden(err), "got %v", err)
		})
	}
}

func TestActor_Label(t *testing.T) {
	assert.Equal(t, "ops@example.com", Actor{ID: "u1", Email: "ops@example.com"}.Label())
	assert.Equal(t, "u1", Actor{ID: "u1"}.Label())
	assert.Equal(t, "unknown", Actor{}.Label())
	assert.Equal(t, PortalActorID, PortalActor().Label())
}

func TestSession_Actor(t *testing.T) {
	s := Session{UserID: "u1", Email: "a@b.co", Role: RoleAdmin}
	assert.Equal(t, Actor{ID: "u1", Email: "a@b.co", Role: RoleAdmin}, s.Actor())
}

func TestSession_IsGuest(t *testing.T) {
	assert.True(t, Session{Role: RoleGuest}.IsGuest())
	assert.False(t, Session{Role: RoleUser}.IsGuest())
}
