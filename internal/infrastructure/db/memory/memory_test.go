package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paysecure/auth-service/internal/core/domain"
)

func TestCredentialStore_SaveAndFind(t *testing.T) {
	s := NewCredentialStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, &domain.Credential{Username: "alice", Email: "a@x.com", PasswordHash: "h", Role: domain.RoleUser, Enabled: true})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected ID and CreatedAt to be assigned: %+v", saved)
	}

	got, err := s.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.Email != "a@x.com" || got.ID != saved.ID {
		t.Fatalf("unexpected credential: %+v", got)
	}

	got.Email = "mutated@x.com"
	again, _ := s.FindByUsername(ctx, "alice")
	if again.Email != "a@x.com" {
		t.Fatalf("store returned shared state")
	}

	if ok, _ := s.ExistsByUsername(ctx, "alice"); !ok {
		t.Fatalf("expected username to exist")
	}
	if ok, _ := s.ExistsByEmail(ctx, "a@x.com"); !ok {
		t.Fatalf("expected email to exist")
	}
	if _, err := s.FindByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestCredentialStore_Conflicts(t *testing.T) {
	s := NewCredentialStore()
	ctx := context.Background()
	_, _ = s.Save(ctx, &domain.Credential{Username: "alice", Email: "a@x.com"})

	if _, err := s.Save(ctx, &domain.Credential{Username: "alice", Email: "b@y.com"}); err != domain.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := s.Save(ctx, &domain.Credential{Username: "bob", Email: "a@x.com"}); err != domain.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	// Username wins when both collide.
	if _, err := s.Save(ctx, &domain.Credential{Username: "alice", Email: "a@x.com"}); err != domain.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", s.Len())
	}
}

func TestCredentialStore_ConcurrentSaveIsAtomic(t *testing.T) {
	s := NewCredentialStore()
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Save(ctx, &domain.Credential{Username: "racer", Email: fmt.Sprintf("r%d@x.com", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrUsernameTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || taken != callers-1 || s.Len() != 1 {
		t.Fatalf("expected exactly one winner, got ok=%d taken=%d len=%d", ok, taken, s.Len())
	}
}

func TestDenylist_RevokeAndExpire(t *testing.T) {
	d := NewDenylist()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	if err := d.Revoke(ctx, "jti-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, _ := d.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatalf("expected jti-1 revoked")
	}
	if revoked, _ := d.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("jti-2 was never revoked")
	}

	now = now.Add(2 * time.Minute)
	if revoked, _ := d.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("entry should expire with the token")
	}
}

func TestDenylist_IgnoresAlreadyExpired(t *testing.T) {
	d := NewDenylist()
	ctx := context.Background()

	_ = d.Revoke(ctx, "old", time.Now().Add(-time.Second))
	if revoked, _ := d.IsRevoked(ctx, "old"); revoked {
		t.Fatalf("expired tokens need no denylist entry")
	}
	if len(d.entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(d.entries))
	}
}
