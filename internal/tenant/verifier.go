package tenant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("tenant: invalid token")
	ErrNoTenant     = errors.New("tenant: token carries no tenant id")
)

// Claims is the token payload the verifier accepts. The tenant id rides in
// the "tid" claim alongside the registered claims.
type Claims struct {
	TenantID string `json:"tid"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens minted by the authentication frontend
// and extracts the tenant id. Signature scheme is HS256 with a shared
// secret; anything else is rejected.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier constructs a Verifier for the given shared secret.
func NewVerifier(secret string, issuer string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("tenant: secret is required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses and validates the raw token and returns the tenant id.
func (v *Verifier) Verify(raw string) (string, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.TenantID) == "" {
		return "", ErrNoTenant
	}
	return claims.TenantID, nil
}

// Mint issues a signed token for the tenant. Used by tests and the local
// development bootstrap; production tokens come from the auth frontend.
func (v *Verifier) Mint(tenantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
