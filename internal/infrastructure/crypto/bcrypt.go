package crypto

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher is the bcrypt alternative to Argon2Hasher.
//
// bcrypt reads at most 72 bytes, so passwords are first reduced to the
// base64 SHA-256 digest (44 bytes) in both Hash and Verify.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost
// is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(_ context.Context, raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prehash(raw), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(_ context.Context, raw, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), prehash(raw)) == nil
}

func prehash(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
