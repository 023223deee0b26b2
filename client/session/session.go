// Package session holds the client's authenticated state: one explicit
// container with defined transitions instead of globals spread across
// modules.
package session

import (
	"context"
	"fmt"

	"github.com/royamoon/FoodLens/client/api"
	"github.com/royamoon/FoodLens/client/deeplink"
	"github.com/royamoon/FoodLens/models"
)

type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateErrored        State = "errored"
)

// Route is the navigation target a flow resolves to.
type Route string

const (
	RouteLogin Route = "/auth/login"
	RouteShell Route = "/(tabs)"
)

// TokenStore persists the single bearer token pair across launches.
type TokenStore interface {
	SaveTokens(accessToken, refreshToken string) error
	LoadTokens() (accessToken, refreshToken string, err error)
	ClearTokens() error
}

// HistoryCache is the per-user durable food log mirror.
type HistoryCache interface {
	Load(userID string) ([]models.FoodEntry, error)
	Replace(userID string, entries []models.FoodEntry) error
	Clear(userID string) error
}

// Manager owns the auth lifecycle. It is driven from the UI event loop and
// is not safe for concurrent use.
type Manager struct {
	api   *api.Client
	store TokenStore
	cache HistoryCache

	state  State
	user   *api.User
	tokens api.Session
	err    error
}

func NewManager(client *api.Client, store TokenStore, cache HistoryCache) *Manager {
	return &Manager{
		api:   client,
		store: store,
		cache: cache,
		state: StateAnonymous,
	}
}

func (m *Manager) State() State        { return m.state }
func (m *Manager) User() *api.User     { return m.user }
func (m *Manager) Err() error          { return m.err }
func (m *Manager) Tokens() api.Session { return m.tokens }

// Login runs the password flow end to end: authenticate, persist tokens,
// refresh the history mirror.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.state = StateAuthenticating
	m.err = nil

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return m.fail(err)
	}
	return m.establish(ctx, resp)
}

// HandleCallback processes an OAuth deep link and reports where to navigate.
// Error parameters abort to the login screen without touching stored tokens;
// a code is exchanged for a session; implicit tokens are used directly.
func (m *Manager) HandleCallback(ctx context.Context, rawURL string) (Route, error) {
	m.state = StateAuthenticating
	m.err = nil

	result, err := deeplink.Parse(rawURL)
	if err != nil {
		m.state = StateAnonymous
		return RouteLogin, err
	}

	switch res := result.(type) {
	case deeplink.CallbackError:
		m.state = StateAnonymous
		m.err = fmt.Errorf("OAuth error: %s", res.Code)
		return RouteLogin, nil

	case deeplink.AuthCode:
		resp, err := m.api.ExchangeCallback(ctx, res.Code, res.State, "")
		if err != nil {
			m.fail(err)
			return RouteLogin, err
		}
		if err := m.establish(ctx, resp); err != nil {
			return RouteLogin, err
		}
		return RouteShell, nil

	case deeplink.ImplicitTokens:
		resp, err := m.api.SessionFromTokens(ctx, res.AccessToken, res.RefreshToken)
		if err != nil {
			m.fail(err)
			return RouteLogin, err
		}
		if err := m.establish(ctx, resp); err != nil {
			return RouteLogin, err
		}
		return RouteShell, nil
	}

	// No OAuth parameters at all.
	m.state = StateAnonymous
	return RouteLogin, nil
}

// Restore revives a session from stored tokens on app launch.
func (m *Manager) Restore(ctx context.Context) error {
	access, refresh, err := m.store.LoadTokens()
	if err != nil {
		return m.fail(err)
	}
	if access == "" {
		m.state = StateAnonymous
		return nil
	}

	m.state = StateAuthenticating
	user, err := m.api.Verify(ctx, access)
	if err != nil {
		// Stale token: drop it rather than loop on 401s.
		m.store.ClearTokens()
		m.state = StateAnonymous
		return nil
	}

	m.user = user
	m.tokens = api.Session{AccessToken: access, RefreshToken: refresh}
	m.state = StateAuthenticated
	m.syncHistory(ctx)
	return nil
}

// Logout invalidates the hosted session (best effort), clears the stored
// tokens and the user's cached history, and returns to anonymous.
func (m *Manager) Logout(ctx context.Context) error {
	if m.tokens.AccessToken != "" {
		m.api.Logout(ctx, m.tokens.AccessToken)
	}

	var userID string
	if m.user != nil {
		userID = m.user.ID
	}

	if err := m.store.ClearTokens(); err != nil {
		return err
	}
	if m.cache != nil && userID != "" {
		if err := m.cache.Clear(userID); err != nil {
			return err
		}
	}

	m.user = nil
	m.tokens = api.Session{}
	m.state = StateAnonymous
	m.err = nil
	return nil
}

// CachedHistory is the optimistic list shown before the server responds.
func (m *Manager) CachedHistory() ([]models.FoodEntry, error) {
	if m.cache == nil || m.user == nil {
		return nil, nil
	}
	return m.cache.Load(m.user.ID)
}

// SyncHistory fetches the authoritative server list and overwrites the
// cache with it, empty list included.
func (m *Manager) SyncHistory(ctx context.Context) ([]models.FoodEntry, error) {
	if m.state != StateAuthenticated {
		return nil, fmt.Errorf("not authenticated")
	}

	entries, err := m.api.ListFood(ctx, m.tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	if m.cache != nil && m.user != nil {
		if err := m.cache.Replace(m.user.ID, entries); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// establish finalizes a successful auth response: persist tokens, hydrate
// identity, sync history.
func (m *Manager) establish(ctx context.Context, resp *api.AuthResponse) error {
	if resp.Session == nil || resp.Session.AccessToken == "" {
		return m.fail(fmt.Errorf("auth response carried no session"))
	}

	if err := m.store.SaveTokens(resp.Session.AccessToken, resp.Session.RefreshToken); err != nil {
		return m.fail(err)
	}

	user, err := m.api.Verify(ctx, resp.Session.AccessToken)
	if err != nil {
		m.store.ClearTokens()
		return m.fail(err)
	}

	m.user = user
	m.tokens = *resp.Session
	m.state = StateAuthenticated
	m.syncHistory(ctx)
	return nil
}

// syncHistory is the best-effort refresh after login; a failure leaves the
// old cache in place.
func (m *Manager) syncHistory(ctx context.Context) {
	if m.cache == nil || m.user == nil {
		return
	}
	entries, err := m.api.ListFood(ctx, m.tokens.AccessToken)
	if err != nil {
		return
	}
	m.cache.Replace(m.user.ID, entries)
}

func (m *Manager) fail(err error) error {
	m.state = StateErrored
	m.err = err
	return err
}
