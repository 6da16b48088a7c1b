package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paysecure/auth-service/internal/pkg/metrics"
	"github.com/paysecure/auth-service/internal/core/domain"
	"github.com/paysecure/auth-service/internal/core/ports"
)

const defaultTokenTTL = 15 * time.Minute

// Options tunes token lifetimes.
type Options struct {
	// TokenTTL is the lifetime of every issued token.
	TokenTTL time.Duration
	// ClockSkew extends denylist entries past expiry so a revoked token
	// cannot slip back in through the verifier's leeway.
	ClockSkew time.Duration
}

type authService struct {
	store    ports.CredentialStore
	hasher   ports.PasswordHasher
	codec    ports.TokenCodec
	denylist ports.TokenDenylist
	opts     Options
	log      zerolog.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

// NewAuthService returns an AuthService implementation.
func NewAuthService(
	store ports.CredentialStore,
	hasher ports.PasswordHasher,
	codec ports.TokenCodec,
	denylist ports.TokenDenylist,
	opts Options,
	log zerolog.Logger,
) ports.AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.ClockSkew < 0 {
		opts.ClockSkew = 0
	}
	return &authService{
		store:    store,
		hasher:   hasher,
		codec:    codec,
		denylist: denylist,
		opts:     opts,
		log:      log,
	}
}

// Signup registers a new credential and issues its first token. Username
// uniqueness is checked before email.
func (s *authService) Signup(ctx context.Context, in ports.SignupInput) (*domain.AuthResult, error) {
	username := domain.NormalizeUsername(in.Username)
	email := domain.NormalizeEmail(in.Email)

	if err := validateSignup(username, email, in.Password, in.Role); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	taken, err := s.store.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, s.storeFailure("signup: username lookup", err)
	}
	if taken {
		metrics.SignupsTotal.WithLabelValues("username_taken").Inc()
		return nil, domain.ErrUsernameTaken
	}

	taken, err = s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, s.storeFailure("signup: email lookup", err)
	}
	if taken {
		metrics.SignupsTotal.WithLabelValues("email_taken").Inc()
		return nil, domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("password hashing failed")
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("signup: hash: %w: %w", domain.ErrInternal, err)
	}

	cred, err := s.store.Save(ctx, &domain.Credential{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	})
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		// Lost a race with a concurrent signup that passed the same pre-check.
		metrics.SignupsTotal.WithLabelValues("username_taken").Inc()
		return nil, domain.ErrUsernameTaken
	case errors.Is(err, domain.ErrEmailTaken):
		metrics.SignupsTotal.WithLabelValues("email_taken").Inc()
		return nil, domain.ErrEmailTaken
	case err != nil:
		return nil, s.storeFailure("signup: save", err)
	}

	result, err := s.issue(cred)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SignupsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("username", cred.Username).Str("role", cred.Role.String()).Msg("credential registered")
	return result, nil
}

// Login verifies a username/password pair. Every failure cause yields the
// same ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, in ports.LoginInput) (*domain.AuthResult, error) {
	username := domain.NormalizeUsername(in.Username)

	cred, err := s.store.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, s.storeFailure("login: lookup", err)
	}

	if cred == nil {
		// Pay for one verification anyway so response time does not reveal
		// whether the username exists.
		s.hasher.Verify(ctx, in.Password, s.dummy(ctx))
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		s.log.Debug().Str("username", username).Msg("login rejected: unknown user")
		return nil, domain.ErrInvalidCredentials
	}

	ok := s.hasher.Verify(ctx, in.Password, cred.PasswordHash)
	if !ok || !cred.Enabled {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		s.log.Debug().Str("username", username).Bool("enabled", cred.Enabled).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issue(cred)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// Verify checks a bearer token's signature, expiry and revocation status.
func (s *authService) Verify(ctx context.Context, encoded string) (*domain.Claims, error) {
	claims, err := s.codec.ParseAndVerify(encoded)
	if err != nil {
		return nil, s.tokenFailure(err)
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.log.Error().Err(err).Str("jti", claims.ID).Msg("denylist lookup failed")
		metrics.TokenVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("verify: %w: %w", domain.ErrUnavailable, err)
	}
	if revoked {
		return nil, s.tokenFailure(fmt.Errorf("%w: %w", domain.ErrInvalidToken, domain.ErrTokenRevoked))
	}

	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	return claims, nil
}

// Logout revokes a still-valid token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, encoded string) error {
	claims, err := s.Verify(ctx, encoded)
	if err != nil {
		return err
	}

	until := claims.ExpiresAt.Add(s.opts.ClockSkew)
	if err := s.denylist.Revoke(ctx, claims.ID, until); err != nil {
		s.log.Error().Err(err).Str("jti", claims.ID).Msg("token revocation failed")
		return fmt.Errorf("logout: %w: %w", domain.ErrUnavailable, err)
	}

	metrics.TokensRevokedTotal.Inc()
	s.log.Info().Str("username", claims.Subject).Str("jti", claims.ID).Msg("token revoked")
	return nil
}

func (s *authService) issue(cred *domain.Credential) (*domain.AuthResult, error) {
	tok, err := s.codec.Issue(cred.Username, cred.Role, s.opts.TokenTTL)
	if err != nil {
		s.log.Error().Err(err).Str("username", cred.Username).Msg("token issuance failed")
		return nil, fmt.Errorf("issue token: %w: %w", domain.ErrInternal, err)
	}
	metrics.TokensIssuedTotal.Inc()
	return domain.NewAuthResult(tok, cred), nil
}

func (s *authService) tokenFailure(err error) error {
	reason := "unknown"
	if sub := domain.TokenFailure(err); sub != nil {
		reason = sub.Error()
	}
	metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
	s.log.Debug().Str("reason", reason).Msg("token rejected")
	if !errors.Is(err, domain.ErrInvalidToken) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	return err
}

func (s *authService) storeFailure(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("credential store failure")
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}

// dummy returns a hash of a random password produced by the configured
// hasher. It is built on first use and rebuilt on later calls until one
// attempt succeeds, independent of the caller's cancellation.
func (s *authService) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		s.log.Warn().Err(err).Msg("dummy hash unavailable")
		return ""
	}
	hash, err := s.hasher.Hash(context.WithoutCancel(ctx), hex.EncodeToString(buf))
	if err != nil {
		s.log.Warn().Err(err).Msg("dummy hash unavailable")
		return ""
	}
	s.dummyHash = hash
	return hash
}

// validateSignup re-checks the invariants the boundary validator enforces,
// so the service never persists an unusable credential.
func validateSignup(username, email, password string, role domain.Role) error {
	var fields []domain.FieldViolation
	if username == "" {
		fields = append(fields, domain.FieldViolation{Field: "username", Rule: "required", Message: "username is required"})
	}
	if email == "" {
		fields = append(fields, domain.FieldViolation{Field: "email", Rule: "required", Message: "email is required"})
	}
	if password == "" {
		fields = append(fields, domain.FieldViolation{Field: "password", Rule: "required", Message: "password is required"})
	}
	if !role.Valid() {
		fields = append(fields, domain.FieldViolation{Field: "role", Rule: "oneof", Message: "role must be one of USER, MERCHANT, ADMIN"})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
