package ports

import (
	"context"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// CredentialStore persists credentials. Implementations must enforce username
// and email uniqueness atomically inside Save, reporting violations as
// domain.ErrUsernameTaken or domain.ErrEmailTaken.
type CredentialStore interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindByUsername returns domain.ErrCredentialNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*domain.Credential, error)
	Save(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
}

// Pinger is implemented by stores that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
