// Package identity resolves bearer credentials into an optional
// (user, tenant) pair and mints access tokens.
package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Resolver turns a bearer credential into an optional identity pair.
// A missing or invalid credential yields (nil, nil), never an error:
// endpoints that require authentication enforce that themselves.
type Resolver interface {
	Resolve(token string) (userID, tenantID *uuid.UUID)
}

type accessClaims struct {
	jwt.RegisteredClaims
	TenantID   string `json:"tenant_id,omitempty"`
	Role       string `json:"role,omitempty"`
	GerenciaID *int64 `json:"gerencia_id,omitempty"`
}

// TokenResolver resolves HS256 access tokens.
type TokenResolver struct {
	Secret string
}

func (r TokenResolver) Resolve(token string) (*uuid.UUID, *uuid.UUID) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(r.Secret) == "" {
		return nil, nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &accessClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(r.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, nil
	}
	userID := parseOptionalUUID(claims.Subject)
	tenantID := parseOptionalUUID(claims.TenantID)
	return userID, tenantID
}

func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" || s == "None" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// TokenInput is the identity baked into a minted access token.
type TokenInput struct {
	UserID     uuid.UUID
	TenantID   *uuid.UUID
	Role       string
	GerenciaID *int64
}

// Issuer mints HS256 access tokens for the login and
// organization-switch paths.
type Issuer struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func (i Issuer) Issue(in TokenInput) (string, error) {
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	ttl := i.TTL
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now()),
			ExpiresAt: jwt.NewNumericDate(now().Add(ttl)),
		},
		Role:       in.Role,
		GerenciaID: in.GerenciaID,
	}
	if in.TenantID != nil {
		claims.TenantID = in.TenantID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.Secret))
}
