package session

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Directory is an optional real credential store behind the session. When nil
// the store runs in demo mode and accepts any non-empty credentials, which is
// the behavior the console shipped with.
type Directory interface {
	Create(ctx context.Context, u User, password string) error
	Verify(ctx context.Context, email, password string) (User, error)
}

type dirRecord struct {
	user User
	hash []byte
}

type MemDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]dirRecord
}

func NewMemDirectory() *MemDirectory {
	return &MemDirectory{byEmail: make(map[string]dirRecord)}
}

func (d *MemDirectory) Create(_ context.Context, u User, password string) error {
	email := normalizeEmail(u.Email)
	password = strings.TrimSpace(password)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[email]; ok {
		return ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.Email = email
	d.byEmail[email] = dirRecord{user: u, hash: hash}
	return nil
}

func (d *MemDirectory) Verify(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)

	d.mu.RLock()
	rec, ok := d.byEmail[email]
	d.mu.RUnlock()

	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(strings.TrimSpace(password))); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return rec.user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
