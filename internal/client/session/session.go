// Package session persists the signed-in user on the client: the bearer token
// and the cached user view, always written and cleared together.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/stumpscore/stumpscore/internal/model"
)

const (
	KeyToken = "stumpscore_auth_token"
	KeyUser  = "stumpscore_user"
)

var (
	ErrNoSession  = errors.New("no session")
	ErrEmptyToken = errors.New("session token is empty")
)

type Session struct {
	Token string
	User  model.UserView
}

type Store interface {
	// Load returns ErrNoSession unless both the token and the user are stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	// Replace writes s only while the stored token is still expectedToken.
	// It returns ErrNoSession, and writes nothing, once that session is gone.
	Replace(ctx context.Context, expectedToken string, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil, ErrNoSession
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if s.Token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = &s
	return nil
}

func (m *MemoryStore) Replace(_ context.Context, expectedToken string, s Session) error {
	if s.Token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.Token != expectedToken {
		return ErrNoSession
	}
	m.session = &s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	return nil
}
