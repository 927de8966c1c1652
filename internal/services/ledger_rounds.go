package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/storage"
)

// PlaceRoundBet attaches a wager to a shared live round. The stake is debited
// immediately; the wager stays open until the orchestrator settles the whole
// round against its single spin.
func (l *Ledger) PlaceRoundBet(ctx context.Context, accountID int64, roundID string, stake decimal.Decimal, choice *games.RouletteChoice) (*models.BetResponse, error) {
	const op = "services.ledger.PlaceRoundBet"

	if choice == nil {
		return nil, games.ErrInvalidChoice
	}
	if err := choice.Validate(); err != nil {
		return nil, err
	}
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
		// Re-check the window inside the transaction: a bet that commits
		// after the round closed would be invisible to the one-pass
		// settlement sweep.
		round, err := storage.RoundByID(tx, roundID)
		if err != nil {
			return err
		}
		if !time.Now().Before(round.BetsCloseAt) {
			return ErrBettingClosed
		}

		acct, err := storage.AccountForUpdate(tx, accountID)
		if err != nil {
			return err
		}
		if acct.AvailableBalance.LessThan(stake) {
			return ErrInsufficientBalance
		}

		wager := &models.Wager{
			ID:        uuid.New().String(),
			AccountID: accountID,
			Game:      games.KindRoulette,
			Stake:     stake,
			RoundID:   &roundID,
			Active:    true,
		}
		if err := wager.SetChoice(games.Choice{Roulette: choice}); err != nil {
			return err
		}

		if err := debit(tx, acct, stake, models.TransactionTypeBet, &wager.ID, "roulette:round"); err != nil {
			return err
		}
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

// SettleRoundWagers grades every open wager of a round against the shared
// spin and closes it, all in one transaction. Each bettor's wager gets the
// round proof stamped onto it so the outcome stays individually verifiable.
func (l *Ledger) SettleRoundWagers(ctx context.Context, roundID, proof string, nonce int64, res *games.RouletteResult) error {
	const op = "services.ledger.SettleRoundWagers"

	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		wagers, err := storage.WagersByRound(tx, roundID)
		if err != nil {
			return err
		}

		now := time.Now()
		for i := range wagers {
			wager := &wagers[i]

			choice, err := wager.GetChoice()
			if err != nil {
				return err
			}

			outcome := l.resolver.SettleRouletteBet(wager.Stake, choice.Roulette, res)

			acct, err := storage.AccountForUpdate(tx, wager.AccountID)
			if err != nil {
				return err
			}

			wager.Proof = proof
			wager.Nonce = nonce
			wager.Multiplier = outcome.Multiplier
			wager.Payout = outcome.Payout
			wager.Profit = outcome.Payout.Sub(wager.Stake)
			won := outcome.Win
			wager.Won = &won
			wager.Active = false
			wager.ClosedAt = &now
			if err := wager.SetResult(outcome.Result); err != nil {
				return err
			}

			if outcome.Payout.IsPositive() {
				if err := credit(tx, acct, outcome.Payout, models.TransactionTypeWin, &wager.ID, "roulette:round"); err != nil {
					return err
				}
				acct.TotalWon = acct.TotalWon.Add(outcome.Payout)
			} else if err := appendLedgerRow(tx, acct.ID, models.TransactionTypeLoss, decimal.Zero,
				acct.AvailableBalance, acct.AvailableBalance, &wager.ID, "roulette:round"); err != nil {
				return err
			}

			if err := tx.Save(wager).Error; err != nil {
				return err
			}
			if err := tx.Save(acct).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return l.classify(op, err)
	}
	return nil
}
