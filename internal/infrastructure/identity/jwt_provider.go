// Package identity resolves bearer tokens into production actors.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
)

// ErrInvalidToken is returned for missing, malformed, expired or unknown credentials
var ErrInvalidToken = errors.New("invalid or expired token")

const defaultTTL = 12 * time.Hour

// Claims is the token payload: subject is the user id
type Claims struct {
	Role         string `json:"role"`
	ProductionID string `json:"production_id"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HS256 tokens
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  port.Clock
	users  port.UserRepository
}

// NewJWTProvider creates a provider. When users is non-nil every resolved
// actor must still exist in the directory with the same role and production.
func NewJWTProvider(secret, issuer string, ttl time.Duration, clock port.Clock, users port.UserRepository) *JWTProvider {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWTProvider{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		clock:  clock,
		users:  users,
	}
}

// Issue signs a token for user
func (p *JWTProvider) Issue(user *entity.User) (string, error) {
	now := p.clock.Now()
	claims := &Claims{
		Role:         user.Role.String(),
		ProductionID: user.ProductionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies token and returns the actor it names
func (p *JWTProvider) Resolve(ctx context.Context, token string) (entity.Actor, error) {
	if token == "" {
		return entity.Actor{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return entity.Actor{}, ErrInvalidToken
	}

	role, ok := entity.ParseRole(claims.Role)
	if !ok || claims.Subject == "" || claims.ProductionID == "" {
		return entity.Actor{}, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	actor := entity.Actor{UserID: claims.Subject, Role: role, ProductionID: claims.ProductionID}

	if p.users != nil {
		user, err := p.users.GetByID(ctx, actor.UserID)
		if err != nil {
			return entity.Actor{}, fmt.Errorf("failed to load user: %w", err)
		}
		if user == nil || user.Role != actor.Role || user.ProductionID != actor.ProductionID {
			return entity.Actor{}, fmt.Errorf("%w: user no longer matches token", ErrInvalidToken)
		}
	}
	return actor, nil
}

var _ port.IdentityProvider = (*JWTProvider)(nil)
