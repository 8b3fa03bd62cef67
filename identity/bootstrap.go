/*
bootstrap.go - First-run bootstrap and signup gating

PURPOSE:
  Decides what happens when a verified caller has no user record yet:
  1. Fresh deployment (no authorized users): caller becomes the admin.
  2. Email is on the pre-authorized list: caller becomes a collaborator.
  3. Otherwise: rejected with ErrNotAuthorized.

  The first-admin decision is a pure function of the authorized-user
  count so it can be tested without a store.

SEE ALSO:
  - identity.go: Store interface this builds on
*/
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BootstrapRole returns the role a newly authenticated user should get,
// given how many authorized users already exist. The first user into an
// empty deployment is the admin; everyone after is a collaborator.
func BootstrapRole(authorizedCount int) Role {
	if authorizedCount == 0 {
		return RoleAdmin
	}
	return RoleCollaborator
}

// =============================================================================
// SERVICE - Authentication + user provisioning
// =============================================================================

// Service authenticates bearer credentials and provisions user records on
// first contact, applying the bootstrap rule and the pre-authorized list.
type Service struct {
	Store    Store
	Verifier Verifier
	Now      func() time.Time
}

func NewService(store Store, verifier Verifier) *Service {
	return &Service{Store: store, Verifier: verifier, Now: time.Now}
}

// Authenticate verifies the bearer credential and resolves it to an
// authorized Principal, creating the user record if this is the caller's
// first contact. The stored role wins over whatever the token claims:
// role changes made by an admin take effect without re-issuing tokens.
func (s *Service) Authenticate(ctx context.Context, bearer string) (Principal, error) {
	claimed, err := s.Verifier.VerifyToken(ctx, bearer)
	if err != nil {
		return Principal{}, err
	}

	user, err := s.Store.GetUser(ctx, claimed.SubjectID)
	if err != nil {
		return Principal{}, fmt.Errorf("look up user: %w", err)
	}

	if user == nil {
		u, err := s.provision(ctx, claimed)
		if err != nil {
			return Principal{}, err
		}
		user = u
	}

	if !user.Authorized {
		return Principal{}, ErrNotAuthorized
	}

	return user.Principal(), nil
}

// provision creates the user record for a first-time caller.
func (s *Service) provision(ctx context.Context, claimed Principal) (*User, error) {
	count, err := s.Store.CountAuthorizedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count authorized users: %w", err)
	}

	role := BootstrapRole(count)
	authorized := role == RoleAdmin

	if !authorized {
		ok, err := s.Store.IsPreAuthorized(ctx, normalizeEmail(claimed.Email))
		if err != nil {
			return nil, fmt.Errorf("check pre-authorized list: %w", err)
		}
		authorized = ok
	}

	user := User{
		SubjectID:  claimed.SubjectID,
		Email:      normalizeEmail(claimed.Email),
		Role:       role,
		Authorized: authorized,
		CreatedAt:  s.Now(),
	}
	if err := s.Store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// SetRole changes a user's role. Only admins may call this.
func (s *Service) SetRole(ctx context.Context, caller Principal, subjectID string, role Role) error {
	if !caller.IsAdmin() {
		return ErrNotAuthorized
	}
	if role != RoleAdmin && role != RoleCollaborator {
		return fmt.Errorf("unknown role %q", role)
	}

	user, err := s.Store.GetUser(ctx, subjectID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	user.Role = role
	return s.Store.PutUser(ctx, *user)
}

// SetAuthorized flips a user's authorization flag. Only admins may call this.
func (s *Service) SetAuthorized(ctx context.Context, caller Principal, subjectID string, authorized bool) error {
	if !caller.IsAdmin() {
		return ErrNotAuthorized
	}

	user, err := s.Store.GetUser(ctx, subjectID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	user.Authorized = authorized
	return s.Store.PutUser(ctx, *user)
}

// PreAuthorize adds an email to the signup allow-list. Only admins may call this.
func (s *Service) PreAuthorize(ctx context.Context, caller Principal, email string) error {
	if !caller.IsAdmin() {
		return ErrNotAuthorized
	}
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	return s.Store.AddPreAuthorizedEmail(ctx, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
