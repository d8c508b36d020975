// Package session owns the authenticated-identity state of the console:
// current user, authentication flag, and the durable storage both survive a
// restart in. All mutation goes through the Store; consumers read the
// snapshot or subscribe to state changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CatalogConsole/pkg/state"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrEmailExists        = errors.New("email already exists")
	ErrNotFound           = errors.New("stored user not found")
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// State is the published session snapshot. IsAuthenticated is true exactly
// when CurrentUser is non-nil.
type State struct {
	CurrentUser     *User `json:"currentUser"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// Session is the result of login/register/refresh: the identity plus the
// bearer credential issued for it.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type NewUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type Options struct {
	Storage KV
	Tokens  *TokenMaker

	// Directory, when set, verifies login credentials and records
	// registrations. Nil runs the demo mode the console shipped with.
	Directory Directory

	// Navigate is invoked with a route when an operation requires the view
	// layer to move away (logout lands on the anonymous page).
	Navigate func(route string)

	Log *zap.Logger
}

type Store struct {
	storage  KV
	tokens   *TokenMaker
	dir      Directory
	navigate func(string)
	log      *zap.Logger

	state   *state.Value[State]
	loading *state.Value[bool]
}

// New builds the store and immediately attempts to restore a persisted
// session: a stored user plus token yields an authenticated state without
// contacting anything; a user record that fails to parse clears storage so
// memory and storage never disagree.
func New(opts Options) *Store {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		storage:  opts.Storage,
		tokens:   opts.Tokens,
		dir:      opts.Directory,
		navigate: opts.Navigate,
		log:      log,
		state:    state.NewValue(State{}),
		loading:  state.NewValue(false),
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	raw, hasUser := s.storage.Get(KeyCurrentUser)
	_, hasToken := s.storage.Get(KeyAuthToken)
	if !hasUser || !hasToken {
		return
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("stored session unreadable, clearing", zap.Error(err))
		s.clear()
		return
	}

	s.state.Set(State{CurrentUser: &u, IsAuthenticated: true})
	s.log.Info("session restored", zap.String("email", u.Email))
}

func (s *Store) clear() {
	_ = s.storage.Delete(KeyCurrentUser)
	_ = s.storage.Delete(KeyAuthToken)
	s.state.Set(State{})
}

// Login authenticates and persists the session. In demo mode any non-empty
// email/password pair succeeds and the identity is derived from the email
// local part with the admin role, exactly as the mock console behaved.
func (s *Store) Login(ctx context.Context, creds Credentials) (Session, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	email := normalizeEmail(creds.Email)
	password := strings.TrimSpace(creds.Password)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	var u User
	if s.dir != nil {
		verified, err := s.dir.Verify(ctx, email, password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				return Session{}, ErrInvalidCredentials
			}
			return Session{}, err
		}
		u = verified
	} else {
		u = User{
			ID:    "u_1",
			Name:  strings.SplitN(email, "@", 2)[0],
			Email: email,
			Role:  "admin",
		}
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.persist(u, token); err != nil {
		return Session{}, err
	}

	// Publish before returning so subscribers and the caller agree.
	s.state.Set(State{CurrentUser: &u, IsAuthenticated: true})
	s.log.Info("login", zap.String("email", u.Email), zap.String("role", u.Role))
	return Session{User: u, Token: token}, nil
}

// Register builds the new account and returns it with a token, but neither
// persists the session nor authenticates the caller. That matches the
// shipped console; in directory mode the credential record is written so the
// account can log in later, but the session state is still untouched.
func (s *Store) Register(ctx context.Context, nu NewUser) (Session, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	email := normalizeEmail(nu.Email)
	password := strings.TrimSpace(nu.Password)
	if email == "" || password == "" {
		return Session{}, ErrRegistrationFailed
	}

	u := User{
		ID:    "u_" + uuid.NewString(),
		Name:  strings.TrimSpace(nu.FirstName + " " + nu.LastName),
		Email: email,
		Role:  "user",
	}

	if s.dir != nil {
		if err := s.dir.Create(ctx, u, password); err != nil {
			if errors.Is(err, ErrEmailExists) {
				return Session{}, fmt.Errorf("%w: %s", ErrEmailExists, email)
			}
			return Session{}, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		}
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("registered", zap.String("email", u.Email))
	return Session{User: u, Token: token}, nil
}

// Logout clears storage and state, then asks the view layer to navigate to
// the anonymous landing page.
func (s *Store) Logout() {
	s.clear()
	s.log.Info("logout")
	if s.navigate != nil {
		s.navigate("/")
	}
}

// RefreshToken renews the stored credential. No stored token is a no-op
// success returning nil; a stored token with an unreadable user record fails
// with ErrNotFound. Only the token is rewritten, the user record is left
// untouched.
func (s *Store) RefreshToken(ctx context.Context) (*Session, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	if _, ok := s.storage.Get(KeyAuthToken); !ok {
		return nil, nil
	}

	raw, ok := s.storage.Get(KeyCurrentUser)
	if !ok {
		return nil, ErrNotFound
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.storage.Set(KeyAuthToken, token); err != nil {
		return nil, err
	}

	return &Session{User: u, Token: token}, nil
}

func (s *Store) persist(u User, token string) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.storage.Set(KeyCurrentUser, string(raw)); err != nil {
		return err
	}
	return s.storage.Set(KeyAuthToken, token)
}

func (s *Store) Snapshot() State { return s.state.Get() }

func (s *Store) SubscribeState(fn func(State)) (cancel func()) {
	return s.state.Subscribe(fn)
}

func (s *Store) CurrentUser() *User { return s.state.Get().CurrentUser }

func (s *Store) IsLoggedIn() bool { return s.state.Get().IsAuthenticated }

func (s *Store) HasRole(role string) bool {
	u := s.CurrentUser()
	return u != nil && u.Role == role
}

// Token reads the persisted bearer credential; empty when anonymous.
func (s *Store) Token() string {
	tok, _ := s.storage.Get(KeyAuthToken)
	return tok
}

func (s *Store) Loading() bool { return s.loading.Get() }

func (s *Store) SubscribeLoading(fn func(bool)) (cancel func()) {
	return s.loading.Subscribe(fn)
}
