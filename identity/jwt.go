/*
jwt.go - Bundled HS256 token verifier

PURPOSE:
  A self-contained Verifier implementation for deployments that do not
  front the service with an external identity provider. Tokens are HS256
  JWTs carrying subject, email, and role claims.

  The engine only depends on the Verifier interface; swapping this for an
  OIDC verifier is a wiring change in cmd/server.

SEE ALSO:
  - identity.go: Verifier interface
  - bootstrap.go: Where verified principals are provisioned
*/
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by tokens minted here.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Mint issues a token for the given user.
func (ts *TokenService) Mint(user User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken implements Verifier.
func (ts *TokenService) VerifyToken(_ context.Context, bearer string) (Principal, error) {
	token, err := jwt.ParseWithClaims(bearer, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrUnauthenticated
	}

	return Principal{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
	}, nil
}

// Compile-time check that TokenService implements Verifier.
var _ Verifier = (*TokenService)(nil)
