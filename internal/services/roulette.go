package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/lib/sl"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/storage"
)

// RoundLedger is the slice of Ledger the orchestrator needs.
type RoundLedger interface {
	PlaceRoundBet(ctx context.Context, accountID int64, roundID string, stake decimal.Decimal, choice *games.RouletteChoice) (*models.BetResponse, error)
	SettleRoundWagers(ctx context.Context, roundID, proof string, nonce int64, res *games.RouletteResult) error
}

// RoundOrchestrator drives the perpetual shared roulette loop:
// betting, spinning, results, forever. Each round carries its own committed
// seed pair; the hash goes out with round_start and the seed is revealed with
// the results, so any bettor can replay the spin. The clock is injected so
// tests step through phases without real waiting.
type RoundOrchestrator struct {
	clock  clock.Clock
	store  *storage.Store
	cache  *storage.Cache
	ledger RoundLedger
	bus    Broadcaster
	cfg    *config.Config
	log    *slog.Logger

	mu      sync.Mutex
	current *models.Round
}

func NewRoundOrchestrator(c clock.Clock, store *storage.Store, cache *storage.Cache, ledger RoundLedger, bus Broadcaster, cfg *config.Config, log *slog.Logger) *RoundOrchestrator {
	return &RoundOrchestrator{
		clock:  c,
		store:  store,
		cache:  cache,
		ledger: ledger,
		bus:    bus,
		cfg:    cfg,
		log:    log,
	}
}

// Recover settles wagers left open by rounds that never finished, typically
// after a crash mid-spin. The round row persists its seed pair, so the
// outcome is re-derived and the wagers settle exactly as they would have.
// Runs before the round loop starts.
func (o *RoundOrchestrator) Recover(ctx context.Context) error {
	ids, err := o.store.ActiveRoundIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		round, err := o.store.GetRound(ctx, id)
		if err != nil {
			return err
		}

		proof := games.Proof(round.ServerSeed, round.ClientSeed, round.Nonce)
		res, err := games.RouletteSpin(proof)
		if err != nil {
			return err
		}
		if err := o.ledger.SettleRoundWagers(ctx, id, proof, round.Nonce, res); err != nil {
			return err
		}

		if round.Phase != models.RoundResults {
			now := time.Now()
			round.Phase = models.RoundResults
			round.SettledAt = &now
			if err := round.SetOutcome(res); err != nil {
				return err
			}
			if err := o.store.WithTx(ctx, func(tx *gorm.DB) error {
				if err := tx.Save(round).Error; err != nil {
					return err
				}
				return storage.RevealSeedCommit(tx, round.ServerSeedHash, round.ServerSeed, now)
			}); err != nil {
				return err
			}
		}
		o.log.Info("settled orphaned round", slog.String("round_id", id))
	}
	return nil
}

// Run loops rounds until the context is cancelled. Storage failures never
// kill the loop: each persistence step retries with backoff, and the round
// simply starts late.
func (o *RoundOrchestrator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := o.runRound(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			o.log.Error("round aborted", sl.Err(err))
		}
	}
}

func (o *RoundOrchestrator) runRound(ctx context.Context) error {
	round, err := o.openRound(ctx)
	if err != nil {
		return err
	}

	o.bus.Broadcast(EventRoundStart, o.snapshotOf(round))
	if err := o.countdown(ctx, round); err != nil {
		return err
	}

	// Bets are closed; the outcome is fixed and shown the moment the wheel
	// starts, but no money moves until the spin window has played out, so
	// every viewer sees the reveal before any payout lands.
	o.setPhase(round, models.RoundSpinning)

	proof := games.Proof(round.ServerSeed, round.ClientSeed, round.Nonce)
	res, err := games.RouletteSpin(proof)
	if err != nil {
		return err
	}
	o.bus.Broadcast(EventSpinning, map[string]any{"round_id": round.ID, "outcome": res})

	if err := o.sleep(ctx, o.cfg.SpinDuration); err != nil {
		return err
	}

	// Entering results: settle every wager of the round in one pass.
	if err := o.retry(ctx, "settle round wagers", func() error {
		return o.ledger.SettleRoundWagers(ctx, round.ID, proof, round.Nonce, res)
	}); err != nil {
		return err
	}
	if err := o.closeRound(ctx, round, res); err != nil {
		return err
	}

	o.bus.Broadcast(EventResults, o.snapshotWithHistory(ctx, round))
	return o.sleep(ctx, o.cfg.ResultsDuration)
}

// openRound mints the round's seed pair, records the commit, and opens the
// betting window.
func (o *RoundOrchestrator) openRound(ctx context.Context) (*models.Round, error) {
	serverSeed, err := games.NewServerSeed()
	if err != nil {
		return nil, err
	}
	clientSeed, err := games.NewClientSeed()
	if err != nil {
		return nil, err
	}

	round := &models.Round{
		ID:             uuid.New().String(),
		Phase:          models.RoundBetting,
		BetsCloseAt:    o.clock.Now().Add(o.cfg.BettingDuration),
		ClientSeed:     clientSeed,
		ServerSeed:     serverSeed,
		ServerSeedHash: games.SeedHash(serverSeed),
		Nonce:          1,
	}

	if err := o.retry(ctx, "create round", func() error {
		return o.store.WithTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Create(round).Error; err != nil {
				return err
			}
			return tx.Create(&models.SeedCommit{
				Scope:    models.SeedScopeRound,
				OwnerID:  round.ID,
				SeedHash: round.ServerSeedHash,
			}).Error
		})
	}); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.current = round
	o.mu.Unlock()

	return round, nil
}

// countdown ticks the remaining betting time to listeners until the window
// closes.
func (o *RoundOrchestrator) countdown(ctx context.Context, round *models.Round) error {
	ticker := o.clock.Ticker(o.cfg.CountdownTick)
	defer ticker.Stop()

	for {
		left := round.BetsCloseAt.Sub(o.clock.Now())
		if left <= 0 {
			return nil
		}
		o.bus.Broadcast(EventCountdown, map[string]any{
			"round_id":    round.ID,
			"millis_left": left.Milliseconds(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// closeRound persists the outcome, reveals the round seed, and pushes the
// result onto the bounded history ring.
func (o *RoundOrchestrator) closeRound(ctx context.Context, round *models.Round, res *games.RouletteResult) error {
	now := time.Now()
	o.mu.Lock()
	round.Phase = models.RoundResults
	round.SettledAt = &now
	if err := round.SetOutcome(res); err != nil {
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	if err := o.retry(ctx, "close round", func() error {
		return o.store.WithTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Save(round).Error; err != nil {
				return err
			}
			return storage.RevealSeedCommit(tx, round.ServerSeedHash, round.ServerSeed, now)
		})
	}); err != nil {
		return err
	}

	entry := models.RoundHistoryEntry{RoundID: round.ID, Number: res.Number, Color: res.Color}
	if err := o.cache.PushRoundHistory(ctx, entry, o.cfg.RoundHistory); err != nil {
		// History is a convenience ring; losing one entry is not worth
		// aborting the round.
		o.log.Warn("push round history failed", sl.Err(err))
	}
	return nil
}

// PlaceBet routes a bet into the current round if its window is still open.
func (o *RoundOrchestrator) PlaceBet(ctx context.Context, accountID int64, stake decimal.Decimal, choice *games.RouletteChoice) (*models.BetResponse, error) {
	o.mu.Lock()
	round := o.current
	var open bool
	if round != nil {
		open = round.Phase == models.RoundBetting && o.clock.Now().Before(round.BetsCloseAt)
	}
	o.mu.Unlock()

	if round == nil {
		return nil, ErrRoundUnavailable
	}
	if !open {
		return nil, ErrBettingClosed
	}
	return o.ledger.PlaceRoundBet(ctx, accountID, round.ID, stake, choice)
}

// Snapshot renders the current round for a newly connected listener.
func (o *RoundOrchestrator) Snapshot(ctx context.Context) (*models.RoundSnapshot, error) {
	o.mu.Lock()
	round := o.current
	o.mu.Unlock()

	if round == nil {
		return nil, ErrRoundUnavailable
	}
	return o.snapshotWithHistory(ctx, round), nil
}

// snapshotWithHistory attaches the recent-history ring to a round snapshot.
// An unreachable ring costs the history, never the snapshot.
func (o *RoundOrchestrator) snapshotWithHistory(ctx context.Context, round *models.Round) *models.RoundSnapshot {
	snap := o.snapshotOf(round)
	history, err := o.cache.RecentRoundHistory(ctx, o.cfg.RoundHistory)
	if err != nil {
		o.log.Warn("round history unavailable", sl.Err(err))
	} else {
		snap.History = history
	}
	return snap
}

func (o *RoundOrchestrator) snapshotOf(round *models.Round) *models.RoundSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := &models.RoundSnapshot{
		ID:             round.ID,
		Phase:          round.Phase,
		BetsCloseAt:    round.BetsCloseAt,
		ServerSeedHash: round.ServerSeedHash,
		ClientSeed:     round.ClientSeed,
		Nonce:          round.Nonce,
		History:        []models.RoundHistoryEntry{},
	}
	if left := round.BetsCloseAt.Sub(o.clock.Now()); left > 0 {
		snap.MillisLeft = left.Milliseconds()
	}
	if round.Phase == models.RoundResults {
		snap.RevealedSeed = round.ServerSeed
		if outcome, err := round.GetOutcome(); err == nil {
			snap.Outcome = outcome
		}
	}
	return snap
}

func (o *RoundOrchestrator) setPhase(round *models.Round, phase models.RoundPhase) {
	o.mu.Lock()
	round.Phase = phase
	o.mu.Unlock()
}

func (o *RoundOrchestrator) sleep(ctx context.Context, d time.Duration) error {
	t := o.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retry runs fn until it succeeds, backing off from 250ms up to 5s. Only
// context cancellation gives up.
func (o *RoundOrchestrator) retry(ctx context.Context, what string, fn func() error) error {
	backoff := 250 * time.Millisecond
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.log.Error(what+" failed, retrying", sl.Err(err), slog.Duration("backoff", backoff))
		if serr := o.sleep(ctx, backoff); serr != nil {
			return serr
		}
		if backoff *= 2; backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
}
