package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paysecure/auth-service/internal/core/domain"
)

const (
	uniqueViolation = "23505"

	usernameConstraint = "credentials_username_key"
	emailConstraint    = "credentials_email_key"
)

// CredentialStore persists credentials in PostgreSQL.
type CredentialStore struct {
	pool *pgxpool.Pool
}

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

func (s *CredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM credentials WHERE username = $1)`, username)
}

func (s *CredentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM credentials WHERE email = $1)`, email)
}

func (s *CredentialStore) exists(ctx context.Context, query, arg string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("credential exists: %w", err)
	}
	return ok, nil
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	const query = `
SELECT id::text, username, email, password_hash, role, enabled, created_at
FROM credentials WHERE username = $1
`
	var (
		c    domain.Credential
		role string
	)
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&c.ID,
		&c.Username,
		&c.Email,
		&c.PasswordHash,
		&role,
		&c.Enabled,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	c.Role = domain.Role(role)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Save inserts cred. Unique constraint violations are reported as the
// matching taken error.
func (s *CredentialStore) Save(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	const query = `
INSERT INTO credentials (id, username, email, password_hash, role, enabled, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	stored := *cred
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		stored.ID,
		stored.Username,
		stored.Email,
		stored.PasswordHash,
		stored.Role.String(),
		stored.Enabled,
		stored.CreatedAt,
	)
	if err != nil {
		if taken := uniqueViolationError(err); taken != nil {
			return nil, taken
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}
	return &stored, nil
}

// Ping checks a connection can be acquired.
func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	if pgErr.ConstraintName == emailConstraint {
		return domain.ErrEmailTaken
	}
	return domain.ErrUsernameTaken
}
