/*
Package identity models who is calling the hours engine and what they may do.

PURPOSE:
  Every core operation takes an explicit Principal value.
  Nothing in the engine reads roles or claims from ambient state; the
  transport layer authenticates once and passes the principal down.

KEY CONCEPTS:
  Principal: The authenticated caller (subject id, email, role)
  Verifier:  Turns a bearer credential into a Principal
  Store:     Persistence for user records and pre-authorized emails
  Service:   Authentication + first-run bootstrap orchestration

BOOTSTRAP RULE:
  The first successfully authenticated caller becomes admin when no
  authorized user exists yet. This is modeled as a pure function of the
  current authorized-user count (see bootstrap.go), not as hidden global
  state.

SEE ALSO:
  - jwt.go: Bundled HS256 token implementation
  - bootstrap.go: First-admin rule and signup gating
*/
package identity

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// PRINCIPAL - The authenticated caller
// =============================================================================

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

// Principal is the authenticated caller of a core operation.
// It is constructed by the Verifier and passed explicitly everywhere.
type Principal struct {
	SubjectID string
	Email     string
	Role      Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// =============================================================================
// USER - Persisted identity record
// =============================================================================

// User is the stored record behind a Principal. Authorized gates access:
// an unauthorized user can hold a valid token but may not use the API.
type User struct {
	SubjectID  string
	Email      string
	Name       string
	Role       Role
	Authorized bool
	CreatedAt  time.Time
}

func (u User) Principal() Principal {
	return Principal{SubjectID: u.SubjectID, Email: u.Email, Role: u.Role}
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Verifier turns a bearer credential into a Principal.
// Fails with ErrUnauthenticated on anything it cannot verify.
type Verifier interface {
	VerifyToken(ctx context.Context, bearer string) (Principal, error)
}

// Store persists user records and the pre-authorized email list.
type Store interface {
	GetUser(ctx context.Context, subjectID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	PutUser(ctx context.Context, u User) error
	ListAuthorizedUsers(ctx context.Context) ([]User, error)
	CountAuthorizedUsers(ctx context.Context) (int, error)

	IsPreAuthorized(ctx context.Context, email string) (bool, error)
	AddPreAuthorizedEmail(ctx context.Context, email string) error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthenticated is returned when a bearer credential cannot be verified.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotAuthorized is returned when a verified user is not (yet) allowed in.
	ErrNotAuthorized = errors.New("user not authorized")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)
