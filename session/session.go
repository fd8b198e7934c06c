// Package session mirrors the identity provider's login state into local
// storage so the UI shell can read it synchronously without re-querying
// the provider.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"blogfront/pkg/blog"
	"blogfront/storage"
)

const storageKey = "session"

// Manager owns the locally cached session. All components read login state
// through it instead of touching storage keys directly.
type Manager struct {
	store  *storage.Store
	logger *slog.Logger

	mu     sync.Mutex
	cached *blog.Session
	loaded bool
}

// New creates a session manager backed by the given store.
func New(store *storage.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
	}
}

// Current returns the session mirrored in local storage. A browser that has
// never logged in gets an empty session, not an error.
func (m *Manager) Current(ctx context.Context) *blog.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.cached
	}

	var sess blog.Session
	if err := m.store.Get(ctx, storageKey, &sess); err != nil {
		if !storage.IsNotFound(err) {
			m.logger.Warn("Failed to load session from storage", "error", err)
		}
		sess = blog.Session{}
	}
	m.cached = &sess
	m.loaded = true
	return m.cached
}

// Token returns the stored bearer token, or "" when logged out.
func (m *Manager) Token(ctx context.Context) string {
	return m.Current(ctx).Token
}

// Set persists a new session after a successful identity-provider sign-in.
// The role flag is set by the client itself and is a UI convenience only.
func (m *Manager) Set(ctx context.Context, sess blog.Session) error {
	if err := m.store.Put(ctx, storageKey, &sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.cached = &sess
	m.loaded = true
	m.mu.Unlock()

	m.logger.Info("Session stored", "email", sess.UserEmail, "role", sess.Role)
	return nil
}

// Clear wipes token, role, email and id. Sign-out never contacts the
// identity provider; it only invalidates the local mirror.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, storageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	m.mu.Lock()
	m.cached = &blog.Session{}
	m.loaded = true
	m.mu.Unlock()

	m.logger.Info("Session cleared")
	return nil
}

// LoggedIn reports whether a bearer token is present locally.
func (m *Manager) LoggedIn(ctx context.Context) bool {
	return m.Current(ctx).LoggedIn()
}

// IsAdmin reports the locally stored role flag.
func (m *Manager) IsAdmin(ctx context.Context) bool {
	return m.Current(ctx).IsAdmin()
}
