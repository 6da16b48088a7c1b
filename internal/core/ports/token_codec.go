package ports

import (
	"context"
	"time"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// TokenCodec signs and verifies self-contained bearer tokens.
type TokenCodec interface {
	Issue(subject string, role domain.Role, ttl time.Duration) (*domain.Token, error)
	// ParseAndVerify returns an error wrapping domain.ErrInvalidToken and one
	// of the token failure subtypes.
	ParseAndVerify(encoded string) (*domain.Claims, error)
}

// TokenDenylist records revoked token IDs until they would have expired.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
