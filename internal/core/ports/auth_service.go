package ports

import (
	"context"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// SignupInput is the already-validated signup request.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// LoginInput is the already-validated login request.
type LoginInput struct {
	Username string
	Password string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*domain.AuthResult, error)
	Verify(ctx context.Context, token string) (*domain.Claims, error)
	Logout(ctx context.Context, token string) error
}
