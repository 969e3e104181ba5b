package auth

import (
	"context"
	"errors"
)

// Session is the verified identity behind a user-mode request.
type Session struct {
	UserID string
	Email  string
}

// SessionVerifier turns an opaque bearer token into a verified session.
// A nil session with a nil error is never returned; verification failures
// are errors.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// RoleStore looks up the authorization role assigned to a user. Users
// without an assignment resolve to RoleUser, not an error.
type RoleStore interface {
	RoleFor(ctx context.Context, userID string) (string, error)
}

// Known roles. Only the manager-and-above set may pass the gate in user mode.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleUser       = "user"
)

var privilegedRoles = map[string]bool{
	RoleSuperAdmin: true,
	RoleAdmin:      true,
	RoleManager:    true,
}

// Privileged reports whether the role may enter the studio.
func Privileged(role string) bool {
	return privilegedRoles[role]
}

// DenyAllVerifier rejects every session. Deployments without an identity
// provider wire this so only service-key traffic passes the gate.
type DenyAllVerifier struct{}

func (DenyAllVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	return nil, errors.New("session verification is not configured")
}
