// Package token implements the bearer-token codec as compact HS256 JWTs.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// MinSecretLength matches the HS256 output size.
const MinSecretLength = 32

// DefaultClockSkew is the leeway applied to exp and iat checks.
const DefaultClockSkew = 5 * time.Second

// ErrWeakSecret is returned by NewCodec when the signing secret is too short.
var ErrWeakSecret = fmt.Errorf("token: signing secret must be at least %d bytes", MinSecretLength)

var signingMethod = jwt.SigningMethodHS256

// claims is the wire form of domain.Claims.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Options configures a Codec.
type Options struct {
	Secret    []byte
	Issuer    string
	ClockSkew time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Codec issues and verifies HS256 tokens with a process-wide secret.
type Codec struct {
	secret []byte
	issuer string
	skew   time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec validates opts and returns a ready Codec.
func NewCodec(opts Options) (*Codec, error) {
	if len(opts.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if opts.ClockSkew < 0 {
		opts.ClockSkew = DefaultClockSkew
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	secret := make([]byte, len(opts.Secret))
	copy(secret, opts.Secret)

	c := &Codec{secret: secret, issuer: opts.Issuer, skew: opts.ClockSkew, now: opts.Now}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithLeeway(c.skew),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(parserOpts...)
	return c, nil
}

// Issue signs a token for subject carrying role, valid for ttl from now.
// Timestamps are truncated to whole seconds.
func (c *Codec) Issue(subject string, role domain.Role, ttl time.Duration) (*domain.Token, error) {
	if subject == "" {
		return nil, errors.New("token: empty subject")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("token: unknown role %q", role)
	}

	iat := c.now().UTC().Truncate(time.Second)
	exp := iat.Add(ttl).Truncate(time.Second)
	jti := uuid.NewString()

	wire := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	encoded, err := jwt.NewWithClaims(signingMethod, wire).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("token: sign: %w", err)
	}

	return &domain.Token{
		Encoded: encoded,
		Claims: domain.Claims{
			ID:        jti,
			Subject:   subject,
			Role:      role,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}, nil
}

// ParseAndVerify checks the signature before looking at header or claims, so
// the token's own alg field is never trusted.
func (c *Codec) ParseAndVerify(encoded string) (*domain.Claims, error) {
	parts := strings.Split(encoded, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, invalid(domain.ErrTokenMalformed)
	}

	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return nil, invalid(domain.ErrTokenSignatureInvalid)
	}
	if err := signingMethod.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return nil, invalid(domain.ErrTokenSignatureInvalid)
	}

	var wire claims
	if _, err := c.parser.ParseWithClaims(encoded, &wire, c.key); err != nil {
		return nil, invalid(classify(err))
	}

	role := domain.Role(wire.Role)
	if wire.Subject == "" || wire.ID == "" || !role.Valid() || wire.IssuedAt == nil {
		return nil, invalid(domain.ErrTokenMalformed)
	}

	return &domain.Claims{
		ID:        wire.ID,
		Subject:   wire.Subject,
		Role:      role,
		IssuedAt:  wire.IssuedAt.Time.UTC(),
		ExpiresAt: wire.ExpiresAt.Time.UTC(),
	}, nil
}

func (c *Codec) key(*jwt.Token) (any, error) {
	return c.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrTokenSignatureInvalid
	default:
		return domain.ErrTokenMalformed
	}
}

func invalid(reason error) error {
	return fmt.Errorf("%w: %w", domain.ErrInvalidToken, reason)
}
