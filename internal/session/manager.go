package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"expensepool/internal/core"
	"expensepool/internal/log"
)

var ErrEmptyToken = errors.New("empty session token")

// Manager holds the bearer token and cached user profile in memory and
// mirrors them to a Store. The token is read on every authenticated request.
type Manager struct {
	store  Store
	logger *log.Logger

	mu    sync.RWMutex
	token string
	user  *core.User
}

func NewManager(store Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		store:  store,
		logger: logger.WithComponent(log.ComponentSession),
	}
}

// Load reads the persisted session. It is called once at startup.
func (m *Manager) Load(ctx context.Context) error {
	token, _, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}
	raw, hasUser, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("load session user: %w", err)
	}

	var user *core.User
	if hasUser && raw != "" {
		var u core.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			m.logger.WarnContext(ctx, "Discarding unreadable cached user", "error", err)
		} else {
			user = &u
		}
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Session loaded", "authenticated", token != "")
	return nil
}

// Token returns the bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// User returns the cached profile.
func (m *Manager) User() (core.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return core.User{}, false
	}
	return *m.user, true
}

// Save persists token and user together.
func (m *Manager) Save(ctx context.Context, token string, user core.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := m.store.SetMany(ctx, map[string]string{KeyToken: token, KeyUser: string(raw)}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.user = &user
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Session saved", "email", user.Email)
	return nil
}

// Clear drops token and user from the store, then from memory. A failed
// delete leaves the session in place.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Session cleared")
	return nil
}
