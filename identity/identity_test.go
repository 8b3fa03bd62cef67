package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hours-bank/identity"
	"github.com/warp/hours-bank/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestIdentity(t *testing.T) (*identity.Service, *identity.TokenService, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := identity.NewTokenService("test-secret", time.Hour)
	return identity.NewService(store, tokens), tokens, store
}

func mint(t *testing.T, tokens *identity.TokenService, subjectID, email string) string {
	t.Helper()
	token, err := tokens.Mint(identity.User{SubjectID: subjectID, Email: email, Role: identity.RoleCollaborator})
	require.NoError(t, err)
	return token
}

// =============================================================================
// BOOTSTRAP RULE TESTS
// =============================================================================

func TestBootstrapRole(t *testing.T) {
	// The first user into an empty deployment is the admin
	assert.Equal(t, identity.RoleAdmin, identity.BootstrapRole(0))
	assert.Equal(t, identity.RoleCollaborator, identity.BootstrapRole(1))
	assert.Equal(t, identity.RoleCollaborator, identity.BootstrapRole(42))
}

func TestAuthenticate_FirstUserBecomesAdmin(t *testing.T) {
	// GIVEN: A fresh deployment
	svc, tokens, _ := newTestIdentity(t)

	// WHEN: The first caller authenticates
	principal, err := svc.Authenticate(context.Background(), mint(t, tokens, "founder", "Founder@Example.com"))

	// THEN: Provisioned as admin, email normalized
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, principal.Role)
	assert.Equal(t, "founder@example.com", principal.Email)
	assert.True(t, principal.IsAdmin())
}

func TestAuthenticate_SecondUserNeedsPreAuthorization(t *testing.T) {
	// GIVEN: A deployment with a bootstrapped admin
	svc, tokens, _ := newTestIdentity(t)
	ctx := context.Background()
	adminPrincipal, err := svc.Authenticate(ctx, mint(t, tokens, "founder", "founder@example.com"))
	require.NoError(t, err)

	// WHEN: An unlisted caller authenticates
	_, err = svc.Authenticate(ctx, mint(t, tokens, "stranger", "stranger@example.com"))

	// THEN: Rejected until pre-authorized
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)

	require.NoError(t, svc.PreAuthorize(ctx, adminPrincipal, "Colleague@Example.com"))
	principal, err := svc.Authenticate(ctx, mint(t, tokens, "colleague", "colleague@example.com"))
	require.NoError(t, err)
	assert.Equal(t, identity.RoleCollaborator, principal.Role)
}

func TestAuthenticate_StoredRoleWinsOverTokenClaims(t *testing.T) {
	// GIVEN: An authenticated collaborator later promoted by the admin
	svc, tokens, _ := newTestIdentity(t)
	ctx := context.Background()
	adminPrincipal, err := svc.Authenticate(ctx, mint(t, tokens, "founder", "founder@example.com"))
	require.NoError(t, err)
	require.NoError(t, svc.PreAuthorize(ctx, adminPrincipal, "colleague@example.com"))
	token := mint(t, tokens, "colleague", "colleague@example.com")
	_, err = svc.Authenticate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.SetRole(ctx, adminPrincipal, "colleague", identity.RoleAdmin))

	// WHEN: Re-authenticating with the old token still claiming collaborator
	principal, err := svc.Authenticate(ctx, token)

	// THEN: The stored role wins; no token re-issue required
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, principal.Role)
}

func TestAuthenticate_DeauthorizedUserRejected(t *testing.T) {
	svc, tokens, _ := newTestIdentity(t)
	ctx := context.Background()
	adminPrincipal, err := svc.Authenticate(ctx, mint(t, tokens, "founder", "founder@example.com"))
	require.NoError(t, err)
	require.NoError(t, svc.PreAuthorize(ctx, adminPrincipal, "colleague@example.com"))
	token := mint(t, tokens, "colleague", "colleague@example.com")
	_, err = svc.Authenticate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.SetAuthorized(ctx, adminPrincipal, "colleague", false))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)
}

// =============================================================================
// ADMIN GUARD TESTS
// =============================================================================

func TestAdminGuards(t *testing.T) {
	svc, tokens, _ := newTestIdentity(t)
	ctx := context.Background()
	adminPrincipal, err := svc.Authenticate(ctx, mint(t, tokens, "founder", "founder@example.com"))
	require.NoError(t, err)
	require.NoError(t, svc.PreAuthorize(ctx, adminPrincipal, "colleague@example.com"))
	collaborator, err := svc.Authenticate(ctx, mint(t, tokens, "colleague", "colleague@example.com"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetRole(ctx, collaborator, "founder", identity.RoleCollaborator), identity.ErrNotAuthorized)
	assert.ErrorIs(t, svc.SetAuthorized(ctx, collaborator, "founder", false), identity.ErrNotAuthorized)
	assert.ErrorIs(t, svc.PreAuthorize(ctx, collaborator, "x@example.com"), identity.ErrNotAuthorized)

	assert.ErrorIs(t, svc.SetRole(ctx, adminPrincipal, "ghost", identity.RoleAdmin), identity.ErrUserNotFound)
	assert.Error(t, svc.PreAuthorize(ctx, adminPrincipal, "not-an-email"))
}

// =============================================================================
// TOKEN TESTS
// =============================================================================

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := identity.NewTokenService("secret", time.Hour)
	token, err := tokens.Mint(identity.User{SubjectID: "alice", Email: "alice@example.com", Role: identity.RoleAdmin})
	require.NoError(t, err)

	principal, err := tokens.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.SubjectID)
	assert.Equal(t, "alice@example.com", principal.Email)
	assert.Equal(t, identity.RoleAdmin, principal.Role)
}

func TestTokenService_RejectsBadTokens(t *testing.T) {
	tokens := identity.NewTokenService("secret", time.Hour)
	ctx := context.Background()

	// Garbage
	_, err := tokens.VerifyToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	// Wrong secret
	other := identity.NewTokenService("other-secret", time.Hour)
	token, err := other.Mint(identity.User{SubjectID: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = tokens.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	// Expired
	expired := identity.NewTokenService("secret", -time.Hour)
	token, err = expired.Mint(identity.User{SubjectID: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = tokens.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}
