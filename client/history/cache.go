// Package history is the durable client-side cache: each user's last-known
// food log plus the stored session token pair.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/royamoon/FoodLens/models"
)

type Cache struct {
	db *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cache := &Cache{db: db}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return cache, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS history_cache (
        user_id TEXT PRIMARY KEY,
        entries TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS session_tokens (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        access_token TEXT NOT NULL,
        refresh_token TEXT NOT NULL
    );
    `

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load returns the cached list for a user, nil when nothing is cached.
// Shown optimistically while the server list is being fetched.
func (c *Cache) Load(userID string) ([]models.FoodEntry, error) {
	var serialized string
	err := c.db.QueryRow(
		"SELECT entries FROM history_cache WHERE user_id = ?", userID,
	).Scan(&serialized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached history: %w", err)
	}

	var entries []models.FoodEntry
	if err := json.Unmarshal([]byte(serialized), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode cached history: %w", err)
	}
	return entries, nil
}

// Replace overwrites the cache with the authoritative server list. An empty
// list is stored as such: server-side deletions must win over stale cache.
func (c *Cache) Replace(userID string, entries []models.FoodEntry) error {
	if entries == nil {
		entries = []models.FoodEntry{}
	}
	serialized, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	_, err = c.db.Exec(`
        INSERT INTO history_cache (user_id, entries, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET entries = excluded.entries, updated_at = excluded.updated_at`,
		userID, string(serialized), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store history: %w", err)
	}
	return nil
}

// Clear drops a user's cached history (logout).
func (c *Cache) Clear(userID string) error {
	_, err := c.db.Exec("DELETE FROM history_cache WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cached history: %w", err)
	}
	return nil
}

// SaveTokens persists the single stored bearer token pair.
func (c *Cache) SaveTokens(accessToken, refreshToken string) error {
	_, err := c.db.Exec(`
        INSERT INTO session_tokens (id, access_token, refresh_token)
        VALUES (1, ?, ?)
        ON CONFLICT(id) DO UPDATE SET access_token = excluded.access_token, refresh_token = excluded.refresh_token`,
		accessToken, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	return nil
}

// LoadTokens returns the stored pair; empty strings when none is stored.
func (c *Cache) LoadTokens() (string, string, error) {
	var access, refresh string
	err := c.db.QueryRow(
		"SELECT access_token, refresh_token FROM session_tokens WHERE id = 1",
	).Scan(&access, &refresh)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load tokens: %w", err)
	}
	return access, refresh, nil
}

func (c *Cache) ClearTokens() error {
	_, err := c.db.Exec("DELETE FROM session_tokens WHERE id = 1")
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
