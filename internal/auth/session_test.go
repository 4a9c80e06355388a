package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestUsersAuthenticate(t *testing.T) {
	users, err := NewUsers("admin:password:query_reader|ops_admin,user:user123:query_reader")
	if err != nil {
		t.Fatalf("NewUsers() error = %v", err)
	}

	identity, err := users.Authenticate("admin", "password")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if identity.Subject != "admin" || !identity.HasRole(RoleOpsAdmin) || !identity.HasRole(RoleQueryReader) {
		t.Fatalf("identity = %+v", identity)
	}

	if _, err := users.Authenticate("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v", err)
	}
	if _, err := users.Authenticate("nobody", "password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user error = %v", err)
	}
}

func TestUsersUnknownNameStillComparesHash(t *testing.T) {
	users, err := NewUsers("admin:password:query_reader")
	if err != nil {
		t.Fatalf("NewUsers() error = %v", err)
	}

	var compared [][]byte
	original := compareHash
	compareHash = func(hash, password []byte) error {
		compared = append(compared, hash)
		return original(hash, password)
	}
	t.Cleanup(func() { compareHash = original })

	if _, err := users.Authenticate("nobody", "password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if len(compared) != 1 {
		t.Fatalf("bcrypt comparisons = %d, want 1", len(compared))
	}
	if _, err := bcrypt.Cost(compared[0]); err != nil {
		t.Fatalf("compared against a non-bcrypt hash: %v", err)
	}
	if _, err := users.Authenticate("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if len(compared) != 2 {
		t.Fatalf("bcrypt comparisons = %d, want 2", len(compared))
	}
}

func TestUsersAcceptBcryptHashes(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users, err := NewUsers("ops:" + string(hash) + ":ops_admin")
	if err != nil {
		t.Fatalf("NewUsers() error = %v", err)
	}
	if _, err := users.Authenticate("ops", "s3cret"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
}

func TestUsersEmptyDisablesLogin(t *testing.T) {
	users, err := NewUsers("")
	if err != nil {
		t.Fatalf("NewUsers() error = %v", err)
	}
	if !users.Empty() {
		t.Fatal("expected no users")
	}
	if _, err := users.Authenticate("admin", "password"); !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("error = %v, want ErrLoginDisabled", err)
	}
}

func TestUsersRejectBadSpec(t *testing.T) {
	for _, spec := range []string{"admin:password", "admin::query_reader", "admin:password:|"} {
		if _, err := NewUsers(spec); err == nil {
			t.Fatalf("NewUsers(%q) expected error", spec)
		}
	}
}

func TestSessionStoreExpiresSessions(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	store := NewSessionStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	session := store.Issue(Identity{Subject: "user", Roles: []string{RoleQueryReader}})
	if session.Token == "" {
		t.Fatal("expected token")
	}
	if want := now.Add(30 * time.Minute); !session.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", session.ExpiresAt, want)
	}

	if identity, ok := store.Validate(context.Background(), session.Token); !ok || identity.Subject != "user" {
		t.Fatalf("Validate() = %+v, %v", identity, ok)
	}

	now = now.Add(30 * time.Minute)
	if _, ok := store.Validate(context.Background(), session.Token); ok {
		t.Fatal("expected expired session to be rejected")
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after pruning", store.Len())
	}
}

func TestSessionStoreRevoke(t *testing.T) {
	store := NewSessionStore(0)
	session := store.Issue(Identity{Subject: "admin"})
	store.Revoke(session.Token)
	if _, ok := store.Validate(context.Background(), session.Token); ok {
		t.Fatal("expected revoked session to be rejected")
	}
}
