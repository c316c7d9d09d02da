// Package session maps opaque cookie-carried IDs to per-session ledgers.
// A session's ledger lives in memory only: it is created empty on first use,
// extended on every access, and discarded when the session idles out or the
// session cap evicts it.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spendsight/internal/cache"
	"spendsight/internal/ledger"
)

const CookieName = "spendsight_session"

type Manager struct {
	store         *cache.LRUCache[*ledger.Ledger]
	sweepInterval time.Duration
}

// NewManager creates a manager holding at most limit concurrent sessions,
// each expiring after ttl of inactivity.
func NewManager(limit int, ttl time.Duration) *Manager {
	return &Manager{
		store:         cache.NewLRUCache[*ledger.Ledger](limit, ttl),
		sweepInterval: ttl / 2,
	}
}

// NewID generates a fresh opaque session ID.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Ledger returns the ledger for the given session, creating an empty one if
// the session is new or has expired. Access extends the session's lifetime.
func (m *Manager) Ledger(id string) *ledger.Ledger {
	l, created := m.store.GetOrAdd(id, ledger.New)
	if created {
		slog.Debug("Session started", "session_id", id)
	}
	return l
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	return m.store.Size()
}

// Run sweeps expired sessions until ctx is cancelled. Intended to run in the
// application's errgroup.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.store.CleanExpired(); n > 0 {
				slog.Debug("Expired sessions discarded", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
