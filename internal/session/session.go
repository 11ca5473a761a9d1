// Package session owns the bearer token and the identity derived from it.
// A Manager is created once per process and passed to whatever needs it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/storage"
	"go.uber.org/zap"
)

// Landing routes the session navigates to
const (
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
)

// ErrAuthentication wraps every login failure
var ErrAuthentication = errors.New("authentication failed")

// Authenticator exchanges credentials for a token
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Navigator receives the route the session moves the user to
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

// Navigate calls f(route)
func (f NavigatorFunc) Navigate(route string) { f(route) }

// Manager holds the session state: Anonymous when identity is nil,
// Authenticated otherwise
type Manager struct {
	mu       sync.RWMutex
	token    string
	identity *Identity

	store  storage.Store
	auth   Authenticator
	nav    Navigator
	logger *zap.Logger
}

// New creates an Anonymous session. Call Restore to load a stored token.
func New(store storage.Store, auth Authenticator, nav Navigator, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	return &Manager{store: store, auth: auth, nav: nav, logger: log}
}

// Restore loads the persisted token. A malformed token is removed and the
// session stays Anonymous.
func (m *Manager) Restore(ctx context.Context) (DecodeResult, error) {
	token, err := m.store.Get(ctx, storage.KeyToken)
	if errors.Is(err, storage.ErrNotFound) {
		return DecodeResult{Status: Absent}, nil
	}
	if err != nil {
		return DecodeResult{}, fmt.Errorf("failed to read stored token: %w", err)
	}
	return m.apply(ctx, token)
}

// Login authenticates and, on success, persists the token and navigates to
// the dashboard. Stored credentials are untouched when the backend call fails.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	token, err := m.auth.Login(ctx, username, password)
	if err != nil {
		m.logger.Info("login_failed",
			zap.String("username", logger.SanitizeString(username, logger.MaxGeneralStringLength)),
			zap.String("error", logger.SanitizeError(err)),
		)
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	if err := m.store.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	result, err := m.apply(ctx, token)
	if err != nil {
		return err
	}
	if result.Status != Valid {
		return fmt.Errorf("%w: received malformed token: %w", ErrAuthentication, result.Err)
	}

	m.logger.Info("login_succeeded",
		zap.String("username", logger.SanitizeString(result.Identity.Username, logger.MaxGeneralStringLength)),
		zap.Strings("roles", result.Identity.RawRoles),
	)
	m.nav.Navigate(RouteDashboard)
	return nil
}

// Logout clears the token and identity and navigates to the login route.
// Calling it while Anonymous is harmless.
func (m *Manager) Logout(ctx context.Context) error {
	m.clear()
	if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
		return fmt.Errorf("failed to remove stored token: %w", err)
	}
	m.nav.Navigate(RouteLogin)
	return nil
}

// Identity returns the current identity, nil when Anonymous
func (m *Manager) Identity() *Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// Token returns the current token, "" when Anonymous
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Authenticated reports whether an identity is present
func (m *Manager) Authenticated() bool {
	return m.Identity() != nil
}

// apply decodes token and transitions accordingly. Malformed tokens force a
// logout.
func (m *Manager) apply(ctx context.Context, token string) (DecodeResult, error) {
	result := Decode(token)
	switch result.Status {
	case Valid:
		m.mu.Lock()
		m.token = token
		m.identity = result.Identity
		m.mu.Unlock()
		m.logger.Debug("token_decoded",
			zap.String("token", logger.MaskToken(token)),
			zap.String("username", logger.SanitizeString(result.Identity.Username, logger.MaxGeneralStringLength)),
			zap.Strings("roles", result.Identity.RawRoles),
			zap.Time("expires_at", result.Identity.ExpiresAt),
		)
		return result, nil
	case Malformed:
		m.logger.Warn("discarding_malformed_token", zap.String("error", logger.SanitizeError(result.Err)))
		if err := m.Logout(ctx); err != nil {
			return result, err
		}
		return result, nil
	default:
		m.clear()
		return result, nil
	}
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.token = ""
	m.identity = nil
	m.mu.Unlock()
}
