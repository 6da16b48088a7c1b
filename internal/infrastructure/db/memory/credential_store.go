// Package memory holds process-local store implementations used for local
// development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// CredentialStore keeps credentials in maps guarded by a single mutex, which
// makes Save an atomic insert-if-absent.
type CredentialStore struct {
	mu         sync.RWMutex
	byUsername map[string]*domain.Credential
	byEmail    map[string]string // email -> username
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		byUsername: make(map[string]*domain.Credential),
		byEmail:    make(map[string]string),
	}
}

func (s *CredentialStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUsername[username]
	return ok, nil
}

func (s *CredentialStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *CredentialStore) FindByUsername(_ context.Context, username string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byUsername[username]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	clone := *c
	return &clone, nil
}

// Save inserts cred unless its username or email is already present. The
// username is checked first.
func (s *CredentialStore) Save(_ context.Context, cred *domain.Credential) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[cred.Username]; ok {
		return nil, domain.ErrUsernameTaken
	}
	if _, ok := s.byEmail[cred.Email]; ok {
		return nil, domain.ErrEmailTaken
	}

	stored := *cred
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.byUsername[stored.Username] = &stored
	s.byEmail[stored.Email] = stored.Username

	out := stored
	return &out, nil
}

// Len returns the number of stored credentials.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUsername)
}

// Ping always succeeds.
func (s *CredentialStore) Ping(context.Context) error { return nil }
