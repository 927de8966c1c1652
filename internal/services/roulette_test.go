package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

type recordingBus struct {
	mu     sync.Mutex
	events []busEvent
}

type busEvent struct {
	name    string
	payload any
}

func (b *recordingBus) Broadcast(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{name: event, payload: payload})
}

// waitFor polls until an event of the given name shows up or the deadline
// passes.
func (b *recordingBus) waitFor(t *testing.T, name string, timeout time.Duration) busEvent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		for _, ev := range b.events {
			if ev.name == name {
				b.mu.Unlock()
				return ev
			}
		}
		b.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("No %q event within %s", name, timeout)
	return busEvent{}
}

func setupOrchestrator(t *testing.T) (*services.RoundOrchestrator, *recordingBus, *ledgerFixture) {
	fx := setupLedger(t)

	// Short phases so a full round fits in a test run.
	fx.cfg.BettingDuration = 400 * time.Millisecond
	fx.cfg.CountdownTick = 100 * time.Millisecond
	fx.cfg.SpinDuration = 300 * time.Millisecond
	fx.cfg.ResultsDuration = 50 * time.Millisecond

	bus := &recordingBus{}
	orch := services.NewRoundOrchestrator(clock.New(), fx.store, fx.cache, fx.ledger, bus, fx.cfg, discardLogger())
	return orch, bus, fx
}

func TestRoundLifecycle(t *testing.T) {
	orch, bus, _ := setupOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx)

	start := bus.waitFor(t, services.EventRoundStart, 5*time.Second)
	snap, ok := start.payload.(*models.RoundSnapshot)
	if !ok {
		t.Fatalf("round_start payload has type %T", start.payload)
	}
	if snap.Phase != models.RoundBetting {
		t.Errorf("Round should open in the betting phase, got %q", snap.Phase)
	}
	if len(snap.ServerSeedHash) != 64 {
		t.Errorf("Round should commit its seed hash up front, got %q", snap.ServerSeedHash)
	}
	if snap.RevealedSeed != "" {
		t.Error("Betting phase must not reveal the server seed")
	}

	bus.waitFor(t, services.EventCountdown, 2*time.Second)

	spin := bus.waitFor(t, services.EventSpinning, 2*time.Second)
	spinPayload, ok := spin.payload.(map[string]any)
	if !ok {
		t.Fatalf("spinning payload has type %T", spin.payload)
	}
	spinOutcome, ok := spinPayload["outcome"].(*games.RouletteResult)
	if !ok {
		t.Fatal("Spinning event should reveal the outcome as the wheel starts")
	}

	results := bus.waitFor(t, services.EventResults, 2*time.Second)
	final, ok := results.payload.(*models.RoundSnapshot)
	if !ok {
		t.Fatalf("results payload has type %T", results.payload)
	}
	if final.Phase != models.RoundResults {
		t.Errorf("Results event should carry the results phase, got %q", final.Phase)
	}
	if games.SeedHash(final.RevealedSeed) != final.ServerSeedHash {
		t.Error("Revealed round seed must hash to the committed value")
	}
	if final.Outcome == nil {
		t.Fatal("Results should carry the spin outcome")
	}
	if final.Outcome.Number < 0 || final.Outcome.Number > 36 {
		t.Errorf("Pocket %d out of range", final.Outcome.Number)
	}
	if spinOutcome.Number != final.Outcome.Number {
		t.Errorf("Spin reveal %d does not match the settled outcome %d", spinOutcome.Number, final.Outcome.Number)
	}
	if len(final.History) == 0 || final.History[0].RoundID != final.ID {
		t.Error("Results should carry the history ring with this round on top")
	}

	// The outcome must be exactly what the committed seeds derive.
	proof := games.Proof(final.RevealedSeed, final.ClientSeed, final.Nonce)
	want, err := games.RouletteSpin(proof)
	if err != nil {
		t.Fatalf("Failed to replay spin: %v", err)
	}
	if want.Number != final.Outcome.Number {
		t.Errorf("Broadcast pocket %d does not match the proof's %d", final.Outcome.Number, want.Number)
	}
}

func TestRoundBetSettlesWithRound(t *testing.T) {
	orch, bus, fx := setupOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx)

	bus.waitFor(t, services.EventRoundStart, 5*time.Second)

	accountID := testAccountID()
	stake := decimal.NewFromInt(10)
	resp, err := orch.PlaceBet(ctx, accountID, stake, &games.RouletteChoice{BetType: games.BetRed})
	if err != nil {
		t.Fatalf("Failed to place round bet: %v", err)
	}
	if !resp.Bet.Active {
		t.Fatal("Round wager should stay open until the round settles")
	}
	if !resp.NewBalance.Equal(fx.cfg.StartingBalance.Sub(stake)) {
		t.Errorf("Stake should be debited immediately, balance %s", resp.NewBalance)
	}

	// No money moves during the spin window: the wager is still open right
	// after the wheel starts.
	bus.waitFor(t, services.EventSpinning, 2*time.Second)
	if mid, err := fx.store.GetWager(ctx, resp.Bet.ID); err != nil {
		t.Fatalf("Failed to reload wager mid-spin: %v", err)
	} else if !mid.Active {
		t.Error("Round wager should not settle before the spin window elapses")
	}

	bus.waitFor(t, services.EventResults, 3*time.Second)

	wager, err := fx.store.GetWager(ctx, resp.Bet.ID)
	if err != nil {
		t.Fatalf("Failed to reload wager: %v", err)
	}
	if wager.Active {
		t.Fatal("Round wager should be settled by results time")
	}
	if wager.Proof == "" {
		t.Error("Settled round wager should carry the round proof")
	}
	if wager.Won == nil {
		t.Fatal("Settled round wager should record the verdict")
	}

	acct, _ := fx.store.GetAccount(ctx, accountID)
	want := fx.cfg.StartingBalance.Sub(stake).Add(wager.Payout)
	if !acct.AvailableBalance.Equal(want) {
		t.Errorf("Balance %s does not reconcile with payout %s", acct.AvailableBalance, wager.Payout)
	}
}

func TestPlaceBetWithoutRound(t *testing.T) {
	// No Run loop: the orchestrator has no current round yet.
	orch := services.NewRoundOrchestrator(clock.New(), nil, nil, nil, &recordingBus{}, nil, discardLogger())

	_, err := orch.PlaceBet(context.Background(), 1, decimal.NewFromInt(1), &games.RouletteChoice{BetType: games.BetRed})
	if !errors.Is(err, services.ErrRoundUnavailable) {
		t.Errorf("Betting with no round should be refused, got %v", err)
	}
}

func TestLateRoundBetRefused(t *testing.T) {
	fx := setupLedger(t)
	ctx := context.Background()

	// A round whose window already closed; only the persisted close time
	// matters, not any in-memory phase.
	round := &models.Round{
		ID:             uuid.New().String(),
		Phase:          models.RoundBetting,
		BetsCloseAt:    time.Now().Add(-time.Second),
		ClientSeed:     "late-client-seed",
		ServerSeed:     "late-server-seed",
		ServerSeedHash: games.SeedHash("late-server-seed"),
		Nonce:          1,
	}
	if err := fx.store.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(round).Error
	}); err != nil {
		t.Fatalf("Failed to create round: %v", err)
	}

	_, err := fx.ledger.PlaceRoundBet(ctx, testAccountID(), round.ID, decimal.NewFromInt(5),
		&games.RouletteChoice{BetType: games.BetRed})
	if !errors.Is(err, services.ErrBettingClosed) {
		t.Errorf("Bet after the close time should be refused, got %v", err)
	}
}

func TestRecoverSettlesOrphanedRoundWagers(t *testing.T) {
	orch, _, fx := setupOrchestrator(t)
	ctx := context.Background()

	// A round left mid-flight, as after a crash during the spin: the row and
	// its seed commit exist, the wager is debited and open, nothing settled.
	serverSeed := fmt.Sprintf("orphan-server-seed-%d", time.Now().UnixNano())
	round := &models.Round{
		ID:             uuid.New().String(),
		Phase:          models.RoundBetting,
		BetsCloseAt:    time.Now().Add(time.Minute),
		ClientSeed:     "orphan-client-seed",
		ServerSeed:     serverSeed,
		ServerSeedHash: games.SeedHash(serverSeed),
		Nonce:          1,
	}
	if err := fx.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(round).Error; err != nil {
			return err
		}
		return tx.Create(&models.SeedCommit{
			Scope:    models.SeedScopeRound,
			OwnerID:  round.ID,
			SeedHash: round.ServerSeedHash,
		}).Error
	}); err != nil {
		t.Fatalf("Failed to create round: %v", err)
	}

	accountID := testAccountID()
	stake := decimal.NewFromInt(10)
	resp, err := fx.ledger.PlaceRoundBet(ctx, accountID, round.ID, stake,
		&games.RouletteChoice{BetType: games.BetBlack})
	if err != nil {
		t.Fatalf("Failed to place round bet: %v", err)
	}

	if err := orch.Recover(ctx); err != nil {
		t.Fatalf("Failed to recover: %v", err)
	}

	proof := games.Proof(round.ServerSeed, round.ClientSeed, round.Nonce)
	res, err := games.RouletteSpin(proof)
	if err != nil {
		t.Fatalf("Failed to replay spin: %v", err)
	}

	wager, err := fx.store.GetWager(ctx, resp.Bet.ID)
	if err != nil {
		t.Fatalf("Failed to reload wager: %v", err)
	}
	if wager.Active {
		t.Fatal("Recovery should settle the orphaned wager")
	}
	if wager.Proof != proof {
		t.Error("Settled wager should carry the round proof")
	}
	if wager.Won == nil || *wager.Won != (res.Color == "black") {
		t.Error("Recovered settlement should match the proof's outcome")
	}

	acct, err := fx.store.GetAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("Failed to reload account: %v", err)
	}
	want := fx.cfg.StartingBalance.Sub(stake).Add(wager.Payout)
	if !acct.AvailableBalance.Equal(want) {
		t.Errorf("Balance %s does not reconcile with payout %s", acct.AvailableBalance, wager.Payout)
	}

	reloaded, err := fx.store.GetRound(ctx, round.ID)
	if err != nil {
		t.Fatalf("Failed to reload round: %v", err)
	}
	if reloaded.Phase != models.RoundResults {
		t.Errorf("Recovered round should be closed, phase %q", reloaded.Phase)
	}

	commit, err := fx.store.GetSeedCommit(ctx, round.ServerSeedHash)
	if err != nil {
		t.Fatalf("Failed to load seed commit: %v", err)
	}
	if commit.RevealedSeed == nil || *commit.RevealedSeed != serverSeed {
		t.Error("Recovery should reveal the round seed")
	}

	// A second recovery pass finds nothing left to do.
	if err := orch.Recover(ctx); err != nil {
		t.Fatalf("Recovery must be idempotent: %v", err)
	}
}
