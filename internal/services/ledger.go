package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/lib/sl"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/storage"
)

const idempotencyWait = 2 * time.Second

// Ledger is the only component allowed to mutate money. Every operation is
// one atomic database transaction: a debited stake without a persisted wager,
// or a credit without a settled wager, cannot survive a rollback.
type Ledger struct {
	store    *storage.Store
	cache    *storage.Cache
	resolver *games.Resolver
	fair     *Fairness
	cfg      *config.Config
	log      *slog.Logger
}

func NewLedger(store *storage.Store, cache *storage.Cache, resolver *games.Resolver, fair *Fairness, cfg *config.Config, log *slog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		cache:    cache,
		resolver: resolver,
		fair:     fair,
		cfg:      cfg,
		log:      log,
	}
}

func (l *Ledger) Resolver() *games.Resolver { return l.resolver }

// PlaceBet validates, debits, resolves and settles a single-shot wager in one
// transaction. A replay under the same idempotency key returns the cached
// response verbatim with zero additional mutation.
func (l *Ledger) PlaceBet(ctx context.Context, accountID int64, req *models.BetRequest) (*models.BetResponse, error) {
	const op = "services.ledger.PlaceBet"

	if err := games.ValidateChoice(req.Game, req.Choice); err != nil {
		return nil, err
	}
	if err := l.validateStake(req.Stake); err != nil {
		return nil, err
	}
	if _, err := l.fair.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		cached, reserved, err := l.claimIdempotencyKey(ctx, req.IdempotencyKey, accountID)
		if err != nil {
			return nil, err
		}
		if !reserved {
			return cached, nil
		}
	}

	resp, err := l.placeBetTx(ctx, accountID, req)
	if req.IdempotencyKey != "" {
		l.settleIdempotencyKey(ctx, req.IdempotencyKey, accountID, resp, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (l *Ledger) placeBetTx(ctx context.Context, accountID int64, req *models.BetRequest) (*models.BetResponse, error) {
	const op = "services.ledger.placeBetTx"

	if err := l.checkBetRate(ctx, accountID); err != nil {
		return nil, err
	}

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		acct, err := storage.AccountForUpdate(tx, accountID)
		if err != nil {
			return err
		}
		if err := requireSeedCommit(tx, acct); err != nil {
			return err
		}
		if acct.AvailableBalance.LessThan(req.Stake) {
			return ErrInsufficientBalance
		}

		acct.Nonce++
		proof := games.Proof(acct.ServerSeed, acct.ClientSeed, acct.Nonce)

		outcome, err := l.resolver.Resolve(req.Game, req.Stake, proof, req.Choice)
		if err != nil {
			return err
		}

		wager := &models.Wager{
			ID:         uuid.New().String(),
			AccountID:  accountID,
			Game:       req.Game,
			Stake:      req.Stake,
			Proof:      proof,
			Nonce:      acct.Nonce,
			Multiplier: outcome.Multiplier,
			Payout:     outcome.Payout,
			Profit:     outcome.Payout.Sub(req.Stake),
			Won:        &outcome.Win,
			Active:     false,
		}
		now := time.Now()
		wager.ClosedAt = &now
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			wager.IdempotencyKey = &key
		}
		if err := wager.SetChoice(req.Choice); err != nil {
			return err
		}
		if err := wager.SetResult(outcome.Result); err != nil {
			return err
		}

		if err := debit(tx, acct, req.Stake, models.TransactionTypeBet, &wager.ID, string(req.Game)); err != nil {
			return err
		}
		acct.TotalWagered = acct.TotalWagered.Add(req.Stake)

		if outcome.Payout.IsPositive() {
			if err := credit(tx, acct, outcome.Payout, models.TransactionTypeWin, &wager.ID, string(req.Game)); err != nil {
				return err
			}
			acct.TotalWon = acct.TotalWon.Add(outcome.Payout)
		}

		if err := tx.Create(wager).Error; err != nil {
			return err
		}
		if err := tx.Save(acct).Error; err != nil {
			return err
		}

		resp = &models.BetResponse{Bet: wager.View(), NewBalance: acct.AvailableBalance}
		return nil
	})
	if err != nil {
		return nil, l.classify(op, err)
	}
	return resp, nil
}

// Deposit credits the available balance on behalf of the external payment
// subsystem. It never touches the resolution path.
func (l *Ledger) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.BalanceView, error) {
	const op = "services.ledger.Deposit"
	return l.adjustBalance(ctx, op, accountID, amount, models.TransactionTypeDeposit)
}

// Withdraw debits the available balance; locked funds are not withdrawable.
func (l *Ledger) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.BalanceView, error) {
	const op = "services.ledger.Withdraw"
	return l.adjustBalance(ctx, op, accountID, amount.Neg(), models.TransactionTypeWithdraw)
}

func (l *Ledger) adjustBalance(ctx context.Context, op string, accountID int64, delta decimal.Decimal, txType models.TransactionType) (*models.BalanceView, error) {
	if !delta.Abs().IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", games.ErrInvalidChoice)
	}
	if _, err := l.fair.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	var view models.BalanceView
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		acct, err := storage.AccountForUpdate(tx, accountID)
		if err != nil {
			return err
		}

		if delta.IsNegative() {
			if acct.AvailableBalance.LessThan(delta.Neg()) {
				return ErrInsufficientBalance
			}
			if err := debit(tx, acct, delta.Neg(), txType, nil, ""); err != nil {
				return err
			}
		} else {
			if err := credit(tx, acct, delta, txType, nil, ""); err != nil {
				return err
			}
		}

		if err := tx.Save(acct).Error; err != nil {
			return err
		}
		view = acct.Balance()
		return nil
	})
	if err != nil {
		return nil, l.classify(op, err)
	}
	return &view, nil
}

func (l *Ledger) Balance(ctx context.Context, accountID int64) (*models.BalanceView, error) {
	acct, err := l.fair.EnsureAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	view := acct.Balance()
	return &view, nil
}

func (l *Ledger) Transactions(ctx context.Context, accountID int64, limit int) ([]models.LedgerTransaction, error) {
	return l.store.ListTransactions(ctx, accountID, limit)
}

func (l *Ledger) validateStake(stake decimal.Decimal) error {
	if stake.LessThan(l.cfg.MinBet) {
		return ErrBetTooSmall
	}
	if stake.GreaterThan(l.cfg.MaxBet) {
		return ErrBetTooLarge
	}
	return nil
}

func (l *Ledger) checkBetRate(ctx context.Context, accountID int64) error {
	allowed, err := l.cache.CheckRateLimit(ctx, accountID, "bet", l.cfg.BetsPerMinute, time.Minute)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// claimIdempotencyKey reserves the key or resolves an earlier claim. When the
// reservation is lost, it returns the first writer's cached response.
func (l *Ledger) claimIdempotencyKey(ctx context.Context, key string, accountID int64) (*models.BetResponse, bool, error) {
	rec, reserved, err := l.cache.ReserveIdempotencyKey(ctx, key, accountID, l.cfg.IdempotencyTTL)
	if err != nil {
		return nil, false, err
	}
	if reserved {
		return nil, true, nil
	}

	if rec.AccountID != accountID {
		return nil, false, ErrInvalidIdempotencyKey
	}
	if !rec.Complete() {
		if rec, err = l.cache.WaitForIdempotencyKey(ctx, key, idempotencyWait); err != nil {
			return nil, false, err
		}
	}
	if rec == nil || !rec.Complete() {
		return nil, false, ErrRequestInFlight
	}

	var resp models.BetResponse
	if err := json.Unmarshal(rec.Response, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, false, nil
}

// settleIdempotencyKey caches a successful response or releases the
// reservation after a rollback so a retry can run fresh.
func (l *Ledger) settleIdempotencyKey(ctx context.Context, key string, accountID int64, resp *models.BetResponse, opErr error) {
	if opErr != nil {
		if err := l.cache.ReleaseIdempotencyKey(ctx, key); err != nil {
			l.log.Error("failed to release idempotency key", sl.Err(err))
		}
		return
	}

	data, err := json.Marshal(resp)
	if err == nil {
		err = l.cache.CompleteIdempotencyKey(ctx, key, accountID, data, l.cfg.IdempotencyTTL)
	}
	if err != nil {
		l.log.Error("failed to cache idempotent response", sl.Err(err))
	}
}

// classify keeps caller-fault kinds as-is and wraps everything else as an
// internal persistence failure.
func (l *Ledger) classify(op string, err error) error {
	for _, known := range []error{
		ErrBetTooSmall, ErrBetTooLarge, ErrInsufficientBalance, ErrRateLimited,
		ErrInvalidIdempotencyKey, ErrRequestInFlight, ErrAlreadyActive,
		ErrBetNotActive, ErrNotOwner, ErrSeedNotCommitted,
		ErrRoundUnavailable, ErrBettingClosed,
		games.ErrUnsupportedGame, games.ErrInvalidChoice,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		return err
	}
	l.log.Error("ledger transaction failed", slog.String("op", op), sl.Err(err))
	return fmt.Errorf("%s: %w", op, err)
}

func requireSeedCommit(tx *gorm.DB, acct *models.Account) error {
	committed, err := storage.SeedCommitExists(tx, acct.ServerSeedHash)
	if err != nil {
		return err
	}
	if !committed {
		// Resolving against an uncommitted seed would break auditability.
		return ErrSeedNotCommitted
	}
	return nil
}

// debit subtracts from the available balance and appends the audit row.
func debit(tx *gorm.DB, acct *models.Account, amount decimal.Decimal, txType models.TransactionType, wagerID *string, note string) error {
	before := acct.AvailableBalance
	acct.AvailableBalance = before.Sub(amount)
	return appendLedgerRow(tx, acct.ID, txType, amount.Neg(), before, acct.AvailableBalance, wagerID, note)
}

// credit adds to the available balance and appends the audit row.
func credit(tx *gorm.DB, acct *models.Account, amount decimal.Decimal, txType models.TransactionType, wagerID *string, note string) error {
	before := acct.AvailableBalance
	acct.AvailableBalance = before.Add(amount)
	return appendLedgerRow(tx, acct.ID, txType, amount, before, acct.AvailableBalance, wagerID, note)
}

func appendLedgerRow(tx *gorm.DB, accountID int64, txType models.TransactionType, delta, before, after decimal.Decimal, wagerID *string, note string) error {
	return tx.Create(&models.LedgerTransaction{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		Type:          txType,
		Delta:         delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		WagerID:       wagerID,
		Note:          note,
	}).Error
}
