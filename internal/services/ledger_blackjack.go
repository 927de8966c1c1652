package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/storage"
)

// BlackjackDealRequest carries the main stake plus optional side-bet stakes.
// Side bets settle on the deal; the main stake rides until stand or bust.
type BlackjackDealRequest struct {
	Stake             decimal.Decimal `json:"stake"`
	PerfectPairsStake decimal.Decimal `json:"perfect_pairs_stake"`
	TwentyOnePlus3    decimal.Decimal `json:"twenty_one_plus_three_stake"`
}

// DealBlackjack opens a blackjack wager: one proof is consumed, the whole
// shoe is derived from it, and the first four cards are dealt. Side bets are
// debited and settled immediately. A natural on either side finishes the
// hand in the same transaction.
func (l *Ledger) DealBlackjack(ctx context.Context, accountID int64, req *BlackjackDealRequest) (*models.BetResponse, error) {
	const op = "services.ledger.DealBlackjack"

	if err := l.validateStake(req.Stake); err != nil {
		return nil, err
	}
	for _, side := range []decimal.Decimal{req.PerfectPairsStake, req.TwentyOnePlus3} {
		if side.IsNegative() {
			return nil, ErrBetTooSmall
		}
		if side.GreaterThan(l.cfg.MaxBet) {
			return nil, ErrBetTooLarge
		}
	}
	if _, err := l.fair.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if err := l.checkBetRate(ctx, accountID); err != nil {
		return nil, err
	}

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := storage.ActiveWager(tx, accountID, string(games.KindBlackjack)); err == nil {
			return ErrAlreadyActive
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		acct, err := storage.AccountForUpdate(tx, accountID)
		if err != nil {
			return err
		}
		if err := requireSeedCommit(tx, acct); err != nil {
			return err
		}

		needed := req.Stake.Add(req.PerfectPairsStake).Add(req.TwentyOnePlus3)
		if acct.AvailableBalance.LessThan(needed) {
			return ErrInsufficientBalance
		}

		acct.Nonce++
		proof := games.Proof(acct.ServerSeed, acct.ClientSeed, acct.Nonce)

		state, err := games.DealBlackjack(proof)
		if err != nil {
			return err
		}

		wager := &models.Wager{
			ID:         uuid.New().String(),
			AccountID:  accountID,
			Game:       games.KindBlackjack,
			Stake:      req.Stake,
			Proof:      proof,
			Nonce:      acct.Nonce,
			Multiplier: 1,
			Active:     true,
		}
		if err := wager.SetResult(games.Result{Blackjack: state}); err != nil {
			return err
		}

		if err := debit(tx, acct, req.Stake, models.TransactionTypeBet, &wager.ID, "blackjack"); err != nil {
			return err
		}
		acct.LockedBalance = acct.LockedBalance.Add(req.Stake)
		acct.TotalWagered = acct.TotalWagered.Add(req.Stake)

		if err := l.settleSideBet(tx, acct, wager, "blackjack:perfect_pairs", req.PerfectPairsStake, state.PerfectPairs); err != nil {
			return err
		}
		if err := l.settleSideBet(tx, acct, wager, "blackjack:21+3", req.TwentyOnePlus3, state.TwentyOnePlus3); err != nil {
			return err
		}

		if err := tx.Create(wager).Error; err != nil {
			return err
		}

		if state.Finished {
			if err := l.settleBlackjack(tx, acct, wager, state); err != nil {
				return err
			}
		} else if err := tx.Save(acct).Error; err != nil {
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

// Hit draws one card. A bust settles the hand as a loss.
func (l *Ledger) Hit(ctx context.Context, accountID int64, wagerID string) (*models.BetResponse, error) {
	const op = "services.ledger.Hit"
	return l.blackjackMove(ctx, op, accountID, wagerID, func(state *games.BlackjackState, proof string) error {
		return state.Hit(proof)
	})
}

// Stand plays out the dealer and settles the hand.
func (l *Ledger) Stand(ctx context.Context, accountID int64, wagerID string) (*models.BetResponse, error) {
	const op = "services.ledger.Stand"
	return l.blackjackMove(ctx, op, accountID, wagerID, func(state *games.BlackjackState, proof string) error {
		return state.Stand(proof, l.resolver.DealerHitsSoft17())
	})
}

// DoubleDown debits a second stake, draws exactly one card and stands.
func (l *Ledger) DoubleDown(ctx context.Context, accountID int64, wagerID string) (*models.BetResponse, error) {
	const op = "services.ledger.DoubleDown"

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wager, err := activeWagerForUpdate(tx, accountID, wagerID, games.KindBlackjack)
		if err != nil {
			return err
		}
		result, err := wager.GetResult()
		if err != nil {
			return err
		}
		state := result.Blackjack

		acct, err := storage.AccountForUpdate(tx, wager.AccountID)
		if err != nil {
			return err
		}
		if acct.AvailableBalance.LessThan(wager.Stake) {
			return ErrInsufficientBalance
		}

		// Double the held stake before the card is drawn so a bust on the
		// double card settles against the full amount.
		if err := debit(tx, acct, wager.Stake, models.TransactionTypeBet, &wager.ID, "blackjack:double"); err != nil {
			return err
		}
		acct.LockedBalance = acct.LockedBalance.Add(wager.Stake)
		acct.TotalWagered = acct.TotalWagered.Add(wager.Stake)
		wager.Stake = wager.Stake.Add(wager.Stake)

		if err := state.DoubleDown(wager.Proof, l.resolver.DealerHitsSoft17()); err != nil {
			return err
		}
		if err := wager.SetResult(result); err != nil {
			return err
		}

		if state.Finished {
			if err := l.settleBlackjack(tx, acct, wager, state); err != nil {
				return err
			}
		} else {
			if err := tx.Save(wager).Error; err != nil {
				return err
			}
			if err := tx.Save(acct).Error; err != nil {
				return err
			}
		}

		resp = &models.BetResponse{Bet: wager.View(), NewBalance: acct.AvailableBalance}
		return nil
	})
	if err != nil {
		return nil, l.classify(op, err)
	}
	return resp, nil
}

func (l *Ledger) blackjackMove(ctx context.Context, op string, accountID int64, wagerID string, move func(*games.BlackjackState, string) error) (*models.BetResponse, error) {
	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wager, err := activeWagerForUpdate(tx, accountID, wagerID, games.KindBlackjack)
		if err != nil {
			return err
		}
		result, err := wager.GetResult()
		if err != nil {
			return err
		}
		state := result.Blackjack

		if err := move(state, wager.Proof); err != nil {
			return err
		}
		if err := wager.SetResult(result); err != nil {
			return err
		}

		if state.Finished {
			acct, err := storage.AccountForUpdate(tx, wager.AccountID)
			if err != nil {
				return err
			}
			if err := l.settleBlackjack(tx, acct, wager, state); err != nil {
				return err
			}
			resp = &models.BetResponse{Bet: wager.View(), NewBalance: acct.AvailableBalance}
			return nil
		}

		if err := tx.Save(wager).Error; err != nil {
			return err
		}
		acct, err := l.store.GetAccount(ctx, wager.AccountID)
		if err != nil {
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

// settleBlackjack maps the finished hand's outcome onto the main stake and
// closes the wager. A push returns the stake at 1x.
func (l *Ledger) settleBlackjack(tx *gorm.DB, acct *models.Account, wager *models.Wager, state *games.BlackjackState) error {
	mult := games.BlackjackMultiplier(state.Outcome)
	wager.Multiplier = mult
	payout := l.resolver.CapPayout(wager.Stake, mult)
	won := state.Outcome == games.BlackjackWin || state.Outcome == games.BlackjackNatural
	return l.settleWager(tx, acct, wager, payout, won)
}

// settleSideBet debits the side stake and immediately credits its fixed
// total-return payout. A zero stake is a no-op.
func (l *Ledger) settleSideBet(tx *gorm.DB, acct *models.Account, wager *models.Wager, note string, stake decimal.Decimal, outcome *games.SideBetOutcome) error {
	if !stake.IsPositive() {
		return nil
	}
	if err := debit(tx, acct, stake, models.TransactionTypeBet, &wager.ID, note); err != nil {
		return err
	}
	acct.TotalWagered = acct.TotalWagered.Add(stake)

	if outcome == nil || outcome.Multiplier == 0 {
		return appendLedgerRow(tx, acct.ID, models.TransactionTypeLoss, decimal.Zero,
			acct.AvailableBalance, acct.AvailableBalance, &wager.ID, note)
	}

	payout := l.resolver.CapPayout(stake, outcome.Multiplier)
	if err := credit(tx, acct, payout, models.TransactionTypeWin, &wager.ID, note); err != nil {
		return err
	}
	acct.TotalWon = acct.TotalWon.Add(payout)
	return nil
}
