package token

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/paysecure/auth-service/internal/core/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T, clock *fakeClock) *Codec {
	t.Helper()
	c, err := NewCodec(Options{
		Secret:    testSecret,
		Issuer:    "paysecure-auth",
		ClockSkew: 5 * time.Second,
		Now:       clock.Now,
	})
	require.NoError(t, err)
	return c
}

func requireTokenError(t *testing.T, err error, subtype error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrInvalidToken), "expected ErrInvalidToken, got %v", err)
	require.True(t, errors.Is(err, subtype), "expected %v, got %v", subtype, err)
}

func TestCodec_IssueAndParse(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)}
	c := newTestCodec(t, clock)

	tok, err := c.Issue("alice", domain.RoleMerchant, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(tok.Encoded, "."))
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), tok.Claims.IssuedAt, "iat is whole seconds")
	require.Equal(t, tok.Claims.IssuedAt.Add(15*time.Minute), tok.Claims.ExpiresAt)

	claims, err := c.ParseAndVerify(tok.Encoded)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, domain.RoleMerchant, claims.Role)
	require.Equal(t, tok.Claims.ID, claims.ID)
	require.Equal(t, tok.Claims.IssuedAt, claims.IssuedAt)
	require.Equal(t, tok.Claims.ExpiresAt, claims.ExpiresAt)
}

func TestCodec_UniqueTokenIDs(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now()})

	a, err := c.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)
	b, err := c.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)
	require.NotEqual(t, a.Claims.ID, b.Claims.ID)
	require.NotEqual(t, a.Encoded, b.Encoded)
}

func TestCodec_ExpiryHonoursSkew(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	c := newTestCodec(t, clock)

	tok, err := c.Issue("bob", domain.RoleUser, 0)
	require.NoError(t, err)

	// Within the skew budget the token is still accepted.
	_, err = c.ParseAndVerify(tok.Encoded)
	require.NoError(t, err)

	clock.Advance(6 * time.Second)
	_, err = c.ParseAndVerify(tok.Encoded)
	requireTokenError(t, err, domain.ErrTokenExpired)
}

func TestCodec_PastTTLIsExpired(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now().UTC()})

	tok, err := c.Issue("bob", domain.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = c.ParseAndVerify(tok.Encoded)
	requireTokenError(t, err, domain.ErrTokenExpired)
}

func TestCodec_TamperingAnyByteInvalidatesSignature(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now().UTC()})

	tok, err := c.Issue("carol", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	for i := 0; i < len(tok.Encoded); i++ {
		if tok.Encoded[i] == '.' {
			continue
		}
		replacement := byte('A')
		if tok.Encoded[i] == 'A' {
			replacement = 'B'
		}
		tampered := tok.Encoded[:i] + string(replacement) + tok.Encoded[i+1:]

		_, err := c.ParseAndVerify(tampered)
		requireTokenError(t, err, domain.ErrTokenSignatureInvalid)
	}
}

func TestCodec_RoleEscalationIsDetected(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now().UTC()})

	tok, err := c.Issue("dave", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok.Encoded, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"role":"USER"`, `"role":"ADMIN"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = c.ParseAndVerify(strings.Join(parts, "."))
	requireTokenError(t, err, domain.ErrTokenSignatureInvalid)
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	c := newTestCodec(t, clock)

	now := jwt.NewNumericDate(clock.Now())
	exp := jwt.NewNumericDate(clock.Now().Add(time.Hour))
	wire := claims{Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{
		ID: "x", Subject: "mallory", Issuer: "paysecure-auth", IssuedAt: now, ExpiresAt: exp,
	}}

	t.Run("hs384 with same secret", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, wire).SignedString(testSecret)
		require.NoError(t, err)
		_, err = c.ParseAndVerify(signed)
		requireTokenError(t, err, domain.ErrTokenSignatureInvalid)
	})

	t.Run("alg none", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, wire).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = c.ParseAndVerify(signed)
		requireTokenError(t, err, domain.ErrTokenMalformed)
	})

	t.Run("hs256 signature under a lying header", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(testSecret)
		require.NoError(t, err)
		parts := strings.Split(signed, ".")
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS512","typ":"JWT"}`))
		// Re-sign with HS256 over the new header so only the alg claim lies.
		sig, err := jwt.SigningMethodHS256.Sign(header+"."+parts[1], testSecret)
		require.NoError(t, err)
		forged := header + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

		_, err = c.ParseAndVerify(forged)
		requireTokenError(t, err, domain.ErrTokenSignatureInvalid)
	})
}

func TestCodec_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	issuer := newTestCodec(t, clock)
	other, err := NewCodec(Options{Secret: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "paysecure-auth", Now: clock.Now})
	require.NoError(t, err)

	tok, err := issuer.Issue("erin", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = other.ParseAndVerify(tok.Encoded)
	requireTokenError(t, err, domain.ErrTokenSignatureInvalid)
}

func TestCodec_Malformed(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now().UTC()})

	for _, bad := range []string{
		"",
		"not-a-jwt",
		"a.b",
		"a.b.c.d",
		"..",
		"header.payload.",
	} {
		_, err := c.ParseAndVerify(bad)
		requireTokenError(t, err, domain.ErrTokenMalformed)
	}
}

func TestCodec_ValidSignatureBadClaims(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	c := newTestCodec(t, clock)

	sign := func(body string) string {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(body))
		sig, err := jwt.SigningMethodHS256.Sign(header+"."+payload, testSecret)
		require.NoError(t, err)
		return header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(sig)
	}
	iat := clock.Now().Unix()
	exp := clock.Now().Add(time.Hour).Unix()

	t.Run("not json", func(t *testing.T) {
		_, err := c.ParseAndVerify(sign("not json"))
		requireTokenError(t, err, domain.ErrTokenMalformed)
	})
	t.Run("missing exp", func(t *testing.T) {
		_, err := c.ParseAndVerify(sign(`{"sub":"a","role":"USER","jti":"1","iss":"paysecure-auth","iat":` + itoa(iat) + `}`))
		requireTokenError(t, err, domain.ErrTokenMalformed)
	})
	t.Run("unknown role", func(t *testing.T) {
		_, err := c.ParseAndVerify(sign(`{"sub":"a","role":"ROOT","jti":"1","iss":"paysecure-auth","iat":` + itoa(iat) + `,"exp":` + itoa(exp) + `}`))
		requireTokenError(t, err, domain.ErrTokenMalformed)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		_, err := c.ParseAndVerify(sign(`{"sub":"a","role":"USER","jti":"1","iss":"elsewhere","iat":` + itoa(iat) + `,"exp":` + itoa(exp) + `}`))
		requireTokenError(t, err, domain.ErrTokenMalformed)
	})
	t.Run("issued in the future", func(t *testing.T) {
		future := clock.Now().Add(time.Minute).Unix()
		_, err := c.ParseAndVerify(sign(`{"sub":"a","role":"USER","jti":"1","iss":"paysecure-auth","iat":` + itoa(future) + `,"exp":` + itoa(exp) + `}`))
		requireTokenError(t, err, domain.ErrTokenMalformed)
	})
}

func TestNewCodec_RejectsWeakSecret(t *testing.T) {
	_, err := NewCodec(Options{Secret: []byte("too-short")})
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestCodec_IssueRejectsBadInput(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now()})

	_, err := c.Issue("", domain.RoleUser, time.Minute)
	require.Error(t, err)
	_, err = c.Issue("frank", domain.Role("ROOT"), time.Minute)
	require.Error(t, err)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
