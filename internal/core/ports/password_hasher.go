package ports

import "context"

// PasswordHasher hashes and verifies passwords. Verify never returns an error:
// malformed encodings and cancelled contexts simply do not match.
type PasswordHasher interface {
	Hash(ctx context.Context, raw string) (string, error)
	Verify(ctx context.Context, raw, encoded string) bool
}
