package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLoginDisabled      = errors.New("no users configured")
)

// missingUserHash is compared against on unknown usernames so both failure
// paths pay for one bcrypt comparison.
var missingUserHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("querydesk-missing-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("hash placeholder password: %v", err))
	}
	return hash
})

var compareHash = bcrypt.CompareHashAndPassword

type user struct {
	hash  []byte
	roles []string
}

// Users checks username/password pairs. Passwords are held as bcrypt hashes;
// configured values already in bcrypt form are used as-is.
type Users struct {
	users map[string]user
}

// NewUsers parses "username:password:role|role" entries separated by commas.
func NewUsers(spec string) (*Users, error) {
	entries, err := parseEntries(spec, "username:password:role|role")
	if err != nil {
		return nil, err
	}
	users := &Users{users: make(map[string]user, len(entries))}
	for _, item := range entries {
		hash := []byte(item.second)
		if _, err := bcrypt.Cost(hash); err != nil {
			hash, err = bcrypt.GenerateFromPassword([]byte(item.second), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash password for %q: %w", item.first, err)
			}
		}
		users.users[item.first] = user{hash: hash, roles: item.roles}
	}
	return users, nil
}

func (u *Users) Empty() bool {
	return u == nil || len(u.users) == 0
}

func (u *Users) Authenticate(username, password string) (Identity, error) {
	if u.Empty() {
		return Identity{}, ErrLoginDisabled
	}
	found, ok := u.users[strings.TrimSpace(username)]
	if !ok {
		_ = compareHash(missingUserHash(), []byte(password))
		return Identity{}, ErrInvalidCredentials
	}
	if err := compareHash(found.hash, []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{Subject: strings.TrimSpace(username), Roles: append([]string(nil), found.roles...)}, nil
}

type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore issues opaque tokens and resolves them until they expire.
// Expired sessions are pruned whenever the store is touched.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{ttl: ttl, now: time.Now, sessions: map[string]Session{}}
}

func (s *SessionStore) Issue(identity Identity) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	session := Session{
		Token:     uuid.NewString(),
		Identity:  identity,
		ExpiresAt: now.Add(s.ttl).UTC(),
	}
	s.sessions[session.Token] = session
	return session
}

func (s *SessionStore) Validate(_ context.Context, token string) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	session, ok := s.sessions[token]
	if !ok {
		return Identity{}, false
	}
	return session.Identity, true
}

func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	return len(s.sessions)
}

func (s *SessionStore) pruneLocked(now time.Time) {
	for token, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
