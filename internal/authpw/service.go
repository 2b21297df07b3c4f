// Package authpw provides username/password authentication for the
// dashboard server against a small JSON users table.
package authpw

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// EnvVar holds the users table as JSON when no users file is configured.
const EnvVar = "BASIC_AUTH_USERS"

// ErrInvalidCredentials is returned for an unknown user or a wrong
// password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Users maps a username to its password hash.
type Users map[string]string

// ParseUsers decodes a users table; blank input is an empty table.
func ParseUsers(raw string) (Users, error) {
	users := Users{}
	if strings.TrimSpace(raw) == "" {
		return users, nil
	}
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("parse users: %w", err)
	}
	return users, nil
}

// EnvValue is the compact JSON form to paste into BASIC_AUTH_USERS.
func (u Users) EnvValue() (string, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode users: %w", err)
	}
	return string(raw), nil
}

// UserStore defines the storage interface for auth
type UserStore interface {
	Load(ctx context.Context) (Users, error)
	Save(ctx context.Context, users Users) error
}

// FileStore keeps the users table in a JSON file. A missing file is an
// empty table.
type FileStore struct {
	Path string
}

func (f FileStore) Load(_ context.Context) (Users, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Users{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return ParseUsers(string(raw))
}

func (f FileStore) Save(_ context.Context, users Users) error {
	raw, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create users dir: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}

// StaticStore is a read-only table, typically parsed from BASIC_AUTH_USERS.
type StaticStore struct {
	Users Users
}

func (s StaticStore) Load(_ context.Context) (Users, error) {
	out := make(Users, len(s.Users))
	for name, hash := range s.Users {
		out[name] = hash
	}
	return out, nil
}

func (s StaticStore) Save(context.Context, Users) error {
	return errors.New("users table is read-only")
}

// Service authenticates against a UserStore. The table is read once and
// cached until Reload.
type Service struct {
	store UserStore

	mu     sync.RWMutex
	users  Users
	loaded bool
}

// NewService creates a new auth service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// Reload rereads the users table.
func (s *Service) Reload(ctx context.Context) error {
	users, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users, s.loaded = users, true
	s.mu.Unlock()
	return nil
}

func (s *Service) table(ctx context.Context) (Users, error) {
	s.mu.RLock()
	users, loaded := s.users, s.loaded
	s.mu.RUnlock()
	if loaded {
		return users, nil
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users, nil
}

// Enabled reports whether any user is configured. Without users the
// server runs open.
func (s *Service) Enabled(ctx context.Context) (bool, error) {
	users, err := s.table(ctx)
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

// SignIn checks a username and password.
func (s *Service) SignIn(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	users, err := s.table(ctx)
	if err != nil {
		return err
	}
	hash, ok := users[username]
	if !ok || !VerifyPassword(hash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// AddUser hashes the password, stores the user (replacing any existing
// entry) and returns the updated table.
func (s *Service) AddUser(ctx context.Context, username, password string) (Users, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	users[username] = hash
	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.users, s.loaded = users, true
	s.mu.Unlock()
	return users, nil
}

// HashPassword returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword accepts bcrypt hashes and the legacy unsalted sha256 hex
// digests older users files still carry.
func VerifyPassword(hash, password string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	if len(hash) != sha256.Size*2 {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) == 1
}
