package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/royamoon/FoodLens/client/api"
	"github.com/royamoon/FoodLens/client/history"
	"github.com/royamoon/FoodLens/models"
)

// fakeBackend implements just enough of the REST surface for the flows
// under test.
type fakeBackend struct {
	verifyCalls  int
	logoutCalls  int
	foodEntries  []models.FoodEntry
	validToken   string
	refreshToken string
}

// requireMethod restricts a handler to one HTTP method; the Go 1.22
// "METHOD /path" mux patterns are unavailable on the 1.21 toolchain.
func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		if in.Email != "user@test.com" || in.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid email or password"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user":    map[string]string{"id": "user-1", "email": in.Email, "name": in.Email},
			"session": map[string]string{"access_token": f.validToken, "refresh_token": f.refreshToken},
		})
	}))

	mux.HandleFunc("/auth/auth/callback", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			AccessToken string `json:"access_token"`
			Code        string `json:"code"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		switch {
		case in.Code == "good-code":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"user":    map[string]string{"id": "user-1", "email": "user@test.com", "name": "Test User"},
				"session": map[string]string{"access_token": f.validToken, "refresh_token": f.refreshToken},
			})
		case in.AccessToken == f.validToken:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"user":    map[string]string{"id": "user-1", "email": "user@test.com", "name": "Test User"},
				"session": map[string]string{"access_token": in.AccessToken, "refresh_token": f.refreshToken},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "OAuth callback failed: invalid token"})
		}
	}))

	mux.HandleFunc("/auth/verify", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		f.verifyCalls++
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"valid": true,
			"user":  map[string]string{"id": "user-1", "email": "user@test.com", "name": "Test User"},
		})
	}))

	mux.HandleFunc("/auth/logout", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls++
		json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
	}))

	mux.HandleFunc("/food", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(f.foodEntries)
	}))

	return mux
}

func setupManager(t *testing.T, backend *fakeBackend) (*Manager, *history.Cache) {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	cache, err := history.Open(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	return NewManager(api.New(srv.URL), cache, cache), cache
}

func TestHandleCallbackImplicitTokens(t *testing.T) {
	backend := &fakeBackend{
		validToken:   "AAA",
		refreshToken: "BBB",
		foodEntries:  []models.FoodEntry{{ID: "e1", UserID: "user-1", IdentifiedFood: "Ramen"}},
	}
	mgr, cache := setupManager(t, backend)

	route, err := mgr.HandleCallback(context.Background(), "foodlens://callback#access_token=AAA&refresh_token=BBB")
	if err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	if route != RouteShell {
		t.Errorf("route = %q, want %q", route, RouteShell)
	}
	if mgr.State() != StateAuthenticated {
		t.Errorf("state = %q, want %q", mgr.State(), StateAuthenticated)
	}
	if backend.verifyCalls == 0 {
		t.Error("expected identity verification against /auth/verify")
	}

	access, refresh, err := cache.LoadTokens()
	if err != nil {
		t.Fatalf("LoadTokens failed: %v", err)
	}
	if access != "AAA" || refresh != "BBB" {
		t.Errorf("stored tokens = %q/%q, want AAA/BBB", access, refresh)
	}

	// Login also refreshed the history mirror.
	entries, err := cache.Load("user-1")
	if err != nil {
		t.Fatalf("cache Load failed: %v", err)
	}
	if len(entries) != 1 || entries[0].IdentifiedFood != "Ramen" {
		t.Errorf("unexpected cached history: %+v", entries)
	}
}

func TestHandleCallbackAccessDenied(t *testing.T) {
	backend := &fakeBackend{validToken: "AAA"}
	mgr, cache := setupManager(t, backend)

	route, err := mgr.HandleCallback(context.Background(), "foodlens://callback?error=access_denied")
	if err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	if route != RouteLogin {
		t.Errorf("route = %q, want %q", route, RouteLogin)
	}
	if mgr.State() != StateAnonymous {
		t.Errorf("state = %q, want %q", mgr.State(), StateAnonymous)
	}

	access, _, err := cache.LoadTokens()
	if err != nil {
		t.Fatalf("LoadTokens failed: %v", err)
	}
	if access != "" {
		t.Errorf("no token should be stored after an OAuth error, got %q", access)
	}
}

func TestHandleCallbackAuthCode(t *testing.T) {
	backend := &fakeBackend{validToken: "AAA", refreshToken: "BBB"}
	mgr, cache := setupManager(t, backend)

	route, err := mgr.HandleCallback(context.Background(), "foodlens://auth/login-callback?code=good-code")
	if err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	if route != RouteShell {
		t.Errorf("route = %q, want %q", route, RouteShell)
	}
	access, _, _ := cache.LoadTokens()
	if access != "AAA" {
		t.Errorf("stored access token = %q, want AAA", access)
	}
}

func TestHandleCallbackBadToken(t *testing.T) {
	backend := &fakeBackend{validToken: "AAA"}
	mgr, _ := setupManager(t, backend)

	route, err := mgr.HandleCallback(context.Background(), "foodlens://callback#access_token=WRONG")
	if err == nil {
		t.Fatal("expected error for unverifiable token")
	}
	if route != RouteLogin {
		t.Errorf("route = %q, want %q", route, RouteLogin)
	}
	if mgr.State() != StateErrored {
		t.Errorf("state = %q, want %q", mgr.State(), StateErrored)
	}
}

func TestLoginAndLogout(t *testing.T) {
	backend := &fakeBackend{
		validToken:   "AAA",
		refreshToken: "BBB",
		foodEntries:  []models.FoodEntry{{ID: "e1", UserID: "user-1", IdentifiedFood: "Toast"}},
	}
	mgr, cache := setupManager(t, backend)

	if err := mgr.Login(context.Background(), "user@test.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if mgr.State() != StateAuthenticated {
		t.Fatalf("state = %q, want %q", mgr.State(), StateAuthenticated)
	}
	if mgr.User() == nil || mgr.User().ID != "user-1" {
		t.Errorf("unexpected user: %+v", mgr.User())
	}

	if err := mgr.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if mgr.State() != StateAnonymous {
		t.Errorf("state after logout = %q, want %q", mgr.State(), StateAnonymous)
	}
	if backend.logoutCalls != 1 {
		t.Errorf("logoutCalls = %d, want 1", backend.logoutCalls)
	}

	access, _, _ := cache.LoadTokens()
	if access != "" {
		t.Errorf("tokens should be cleared on logout, got %q", access)
	}
	entries, _ := cache.Load("user-1")
	if entries != nil {
		t.Errorf("history cache should be cleared on logout, got %d entries", len(entries))
	}
}

func TestLoginBadCredentials(t *testing.T) {
	backend := &fakeBackend{validToken: "AAA"}
	mgr, _ := setupManager(t, backend)

	err := mgr.Login(context.Background(), "user@test.com", "wrong")
	if err == nil {
		t.Fatal("expected error for bad credentials")
	}
	if mgr.State() != StateErrored {
		t.Errorf("state = %q, want %q", mgr.State(), StateErrored)
	}
}

func TestRestoreFromStoredTokens(t *testing.T) {
	backend := &fakeBackend{validToken: "AAA", refreshToken: "BBB"}
	mgr, cache := setupManager(t, backend)

	if err := cache.SaveTokens("AAA", "BBB"); err != nil {
		t.Fatalf("SaveTokens failed: %v", err)
	}

	if err := mgr.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if mgr.State() != StateAuthenticated {
		t.Errorf("state = %q, want %q", mgr.State(), StateAuthenticated)
	}
}

func TestRestoreStaleToken(t *testing.T) {
	backend := &fakeBackend{validToken: "AAA"}
	mgr, cache := setupManager(t, backend)

	if err := cache.SaveTokens("EXPIRED", ""); err != nil {
		t.Fatalf("SaveTokens failed: %v", err)
	}

	if err := mgr.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if mgr.State() != StateAnonymous {
		t.Errorf("state = %q, want %q", mgr.State(), StateAnonymous)
	}
	access, _, _ := cache.LoadTokens()
	if access != "" {
		t.Errorf("stale token should have been dropped, got %q", access)
	}
}
