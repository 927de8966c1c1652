package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/storage"
)

// StartMines locks the stake and opens a mines wager. The mine layout is
// drawn from one proof at start; reveals walk the fixed layout without
// consuming further proofs.
func (l *Ledger) StartMines(ctx context.Context, accountID int64, stake decimal.Decimal, minesCount int) (*models.BetResponse, error) {
	const op = "services.ledger.StartMines"

	choice := games.Choice{Mines: &games.MinesChoice{MinesCount: minesCount}}
	if err := choice.Mines.Validate(); err != nil {
		return nil, err
	}

	return l.startMultiStep(ctx, op, accountID, games.KindMines, stake, choice,
		func(proof string) (games.Result, float64, error) {
			mines, err := games.MinePositions(proof, minesCount)
			if err != nil {
				return games.Result{}, 0, err
			}
			return games.Result{Mines: &games.MinesResult{Mines: mines, Revealed: []int{}}}, 1, nil
		})
}

// StartPump locks the stake and opens a pump wager. Unlike mines, every pump
// consumes its own proof, so the start consumes none.
func (l *Ledger) StartPump(ctx context.Context, accountID int64, stake decimal.Decimal, difficulty string) (*models.BetResponse, error) {
	const op = "services.ledger.StartPump"

	if err := games.ValidatePumpDifficulty(difficulty); err != nil {
		return nil, err
	}

	return l.startMultiStep(ctx, op, accountID, games.KindPump, stake, games.Choice{},
		func(proof string) (games.Result, float64, error) {
			return games.Result{Pump: &games.PumpState{Difficulty: difficulty}}, 1, nil
		})
}

func (l *Ledger) startMultiStep(ctx context.Context, op string, accountID int64, game games.Kind, stake decimal.Decimal, choice games.Choice, init func(proof string) (games.Result, float64, error)) (*models.BetResponse, error) {
	if err := l.validateStake(stake); err != nil {
		return nil, err
	}
	if _, err := l.fair.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if err := l.checkBetRate(ctx, accountID); err != nil {
		return nil, err
	}

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := storage.ActiveWager(tx, accountID, string(game)); err == nil {
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
		if acct.AvailableBalance.LessThan(stake) {
			return ErrInsufficientBalance
		}

		wager := &models.Wager{
			ID:         uuid.New().String(),
			AccountID:  accountID,
			Game:       game,
			Stake:      stake,
			Multiplier: 1,
			Active:     true,
		}

		if game != games.KindPump {
			acct.Nonce++
			wager.Proof = games.Proof(acct.ServerSeed, acct.ClientSeed, acct.Nonce)
			wager.Nonce = acct.Nonce
		}

		result, mult, err := init(wager.Proof)
		if err != nil {
			return err
		}
		wager.Multiplier = mult
		if err := wager.SetChoice(choice); err != nil {
			return err
		}
		if err := wager.SetResult(result); err != nil {
			return err
		}

		// Stake leaves the spendable balance and is held for the wager.
		if err := debit(tx, acct, stake, models.TransactionTypeBet, &wager.ID, string(game)); err != nil {
			return err
		}
		acct.LockedBalance = acct.LockedBalance.Add(stake)
		acct.TotalWagered = acct.TotalWagered.Add(stake)

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

// RevealMine uncovers one tile. A safe tile bumps the running multiplier; a
// mine busts the wager.
func (l *Ledger) RevealMine(ctx context.Context, accountID int64, wagerID string, tile int) (*models.BetResponse, error) {
	const op = "services.ledger.RevealMine"

	if tile < 0 || tile > 24 {
		return nil, games.ErrInvalidChoice
	}

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wager, err := activeWagerForUpdate(tx, accountID, wagerID, games.KindMines)
		if err != nil {
			return err
		}

		choice, err := wager.GetChoice()
		if err != nil {
			return err
		}
		result, err := wager.GetResult()
		if err != nil {
			return err
		}
		state := result.Mines

		for _, t := range state.Revealed {
			if t == tile {
				return games.ErrInvalidChoice
			}
		}

		acct, err := storage.AccountForUpdate(tx, wager.AccountID)
		if err != nil {
			return err
		}

		hit := false
		for _, m := range state.Mines {
			if m == tile {
				hit = true
				break
			}
		}

		state.Revealed = append(state.Revealed, tile)
		state.Hit = hit

		if hit {
			wager.Multiplier = 0
			if err := wager.SetResult(result); err != nil {
				return err
			}
			if err := l.loseWager(tx, acct, wager); err != nil {
				return err
			}
		} else {
			wager.Multiplier = games.MinesMultiplier(choice.Mines.MinesCount, len(state.Revealed), l.resolver.RTP())
			if err := wager.SetResult(result); err != nil {
				return err
			}
			if err := tx.Save(wager).Error; err != nil {
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

// Pump inflates once. Each pump consumes a fresh proof under the account's
// advancing nonce; popping busts the wager.
func (l *Ledger) Pump(ctx context.Context, accountID int64, wagerID string) (*models.BetResponse, error) {
	const op = "services.ledger.Pump"

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wager, err := activeWagerForUpdate(tx, accountID, wagerID, games.KindPump)
		if err != nil {
			return err
		}
		result, err := wager.GetResult()
		if err != nil {
			return err
		}
		state := result.Pump

		acct, err := storage.AccountForUpdate(tx, wager.AccountID)
		if err != nil {
			return err
		}
		if err := requireSeedCommit(tx, acct); err != nil {
			return err
		}

		acct.Nonce++
		proof := games.Proof(acct.ServerSeed, acct.ClientSeed, acct.Nonce)
		wager.Proof = proof
		wager.Nonce = acct.Nonce

		popped, err := games.PumpStep(proof, state.Difficulty)
		if err != nil {
			return err
		}

		if popped {
			state.Popped = true
			wager.Multiplier = 0
			if err := wager.SetResult(result); err != nil {
				return err
			}
			if err := l.loseWager(tx, acct, wager); err != nil {
				return err
			}
		} else {
			state.Pumps++
			wager.Multiplier = games.PumpMultiplier(state.Difficulty, state.Pumps, l.resolver.RTP())
			if err := wager.SetResult(result); err != nil {
				return err
			}
			if err := tx.Save(wager).Error; err != nil {
				return err
			}
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

// Cashout closes an active mines or pump wager at its running multiplier:
// the locked stake is released and stake times multiplier, less the
// configured fee, is credited.
func (l *Ledger) Cashout(ctx context.Context, accountID int64, wagerID string) (*models.BetResponse, error) {
	const op = "services.ledger.Cashout"

	var resp *models.BetResponse
	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wager, err := activeWagerForUpdate(tx, accountID, wagerID, "")
		if err != nil {
			return err
		}
		if wager.Game == games.KindBlackjack {
			// Blackjack settles through stand/double, never a cashout.
			return ErrBetNotActive
		}

		acct, err := storage.AccountForUpdate(tx, wager.AccountID)
		if err != nil {
			return err
		}

		payout := l.resolver.CapPayout(wager.Stake, wager.Multiplier)
		if l.cfg.CashoutFeeRate > 0 {
			fee := payout.Mul(decimal.NewFromFloat(l.cfg.CashoutFeeRate)).Round(2)
			payout = payout.Sub(fee)
		}

		if err := l.settleWager(tx, acct, wager, payout, true); err != nil {
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

// ForceLose terminates an abandoned multi-step wager with zero credit. It is
// idempotent: a wager closed by a racing player action is left untouched.
func (l *Ledger) ForceLose(ctx context.Context, wagerID string) error {
	const op = "services.ledger.ForceLose"

	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wager, err := storage.WagerForUpdate(tx, wagerID)
		if err != nil {
			return err
		}
		if !wager.Active {
			return nil
		}

		acct, err := storage.AccountForUpdate(tx, wager.AccountID)
		if err != nil {
			return err
		}
		wager.Multiplier = 0
		return l.loseWager(tx, acct, wager)
	})
	if err != nil {
		return l.classify(op, err)
	}
	return nil
}

// settleWager releases the locked stake, credits the payout and closes the
// wager. Exactly one settlement path runs: the row lock taken by the caller
// serializes racing closers, and the Active check rejects the loser.
func (l *Ledger) settleWager(tx *gorm.DB, acct *models.Account, wager *models.Wager, payout decimal.Decimal, won bool) error {
	acct.LockedBalance = acct.LockedBalance.Sub(wager.Stake)

	if payout.IsPositive() {
		if err := credit(tx, acct, payout, models.TransactionTypeWin, &wager.ID, string(wager.Game)); err != nil {
			return err
		}
		acct.TotalWon = acct.TotalWon.Add(payout)
	} else {
		if err := appendLedgerRow(tx, acct.ID, models.TransactionTypeLoss, decimal.Zero,
			acct.AvailableBalance, acct.AvailableBalance, &wager.ID, string(wager.Game)); err != nil {
			return err
		}
	}

	now := time.Now()
	wager.Active = false
	wager.Won = &won
	wager.Payout = payout
	wager.Profit = payout.Sub(wager.Stake)
	wager.ClosedAt = &now

	if err := tx.Save(wager).Error; err != nil {
		return err
	}
	return tx.Save(acct).Error
}

func (l *Ledger) loseWager(tx *gorm.DB, acct *models.Account, wager *models.Wager) error {
	return l.settleWager(tx, acct, wager, decimal.Zero, false)
}

// activeWagerForUpdate locks the wager row and checks it is open, owned by
// the caller, and of the expected game. An empty game matches any.
func activeWagerForUpdate(tx *gorm.DB, accountID int64, wagerID string, game games.Kind) (*models.Wager, error) {
	wager, err := storage.WagerForUpdate(tx, wagerID)
	if err != nil {
		return nil, err
	}
	if wager.AccountID != accountID {
		return nil, ErrNotOwner
	}
	if !wager.Active {
		return nil, ErrBetNotActive
	}
	if game != "" && wager.Game != game {
		return nil, ErrBetNotActive
	}
	return wager, nil
}
