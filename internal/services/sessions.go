package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"fairplay-backend/internal/lib/sl"
	"fairplay-backend/internal/models"
)

// WagerCloser terminates an abandoned wager. Satisfied by Ledger.
type WagerCloser interface {
	ForceLose(ctx context.Context, wagerID string) error
}

// ActiveWagerLister lists open multi-step wagers for crash recovery.
// Satisfied by the postgres store.
type ActiveWagerLister interface {
	ListActiveWagers(ctx context.Context) ([]models.Wager, error)
}

const forceLoseTimeout = 10 * time.Second

// SessionManager holds a lease per open multi-step wager. Every player action
// renews the lease; when it runs out without a renewal the wager is force-lost
// so the locked stake cannot be held hostage forever. The clock is injected so
// tests drive expiry without waiting.
type SessionManager struct {
	clock  clock.Clock
	lease  time.Duration
	closer WagerCloser
	log    *slog.Logger

	mu     sync.Mutex
	timers map[string]*clock.Timer
}

func NewSessionManager(c clock.Clock, lease time.Duration, closer WagerCloser, log *slog.Logger) *SessionManager {
	return &SessionManager{
		clock:  c,
		lease:  lease,
		closer: closer,
		log:    log,
		timers: make(map[string]*clock.Timer),
	}
}

// Track arms a fresh lease for the wager, replacing any running one.
func (m *SessionManager) Track(wagerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[wagerID]; ok {
		t.Stop()
	}
	m.timers[wagerID] = m.clock.AfterFunc(m.lease, func() {
		m.expire(wagerID)
	})
}

// Touch renews the lease after a player action. An untracked wager gets a
// fresh lease, which covers actions racing a restart.
func (m *SessionManager) Touch(wagerID string) {
	m.Track(wagerID)
}

// Close drops the lease when the wager settles through a player action.
func (m *SessionManager) Close(wagerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[wagerID]; ok {
		t.Stop()
		delete(m.timers, wagerID)
	}
}

// Recover re-arms a fresh lease for every wager left open by a previous
// process. The wager state lives entirely in postgres, so a restart costs the
// player nothing but a new lease window.
func (m *SessionManager) Recover(ctx context.Context, store ActiveWagerLister) error {
	wagers, err := store.ListActiveWagers(ctx)
	if err != nil {
		return err
	}
	for _, w := range wagers {
		m.Track(w.ID)
	}
	if len(wagers) > 0 {
		m.log.Info("recovered open sessions", slog.Int("count", len(wagers)))
	}
	return nil
}

func (m *SessionManager) expire(wagerID string) {
	m.mu.Lock()
	delete(m.timers, wagerID)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), forceLoseTimeout)
	defer cancel()

	if err := m.closer.ForceLose(ctx, wagerID); err != nil {
		m.log.Error("force-lose on lease expiry failed",
			slog.String("wager_id", wagerID), sl.Err(err))
		return
	}
	m.log.Info("session lease expired, wager lost", slog.String("wager_id", wagerID))
}
