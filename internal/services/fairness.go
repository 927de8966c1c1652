package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/lib/sl"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/storage"
)

// Fairness owns the per-account seed pairs and their commit-reveal lifecycle.
// A server seed's hash is persisted before the seed resolves anything; the
// seed itself is revealed on rotation so players can replay past proofs.
type Fairness struct {
	store *storage.Store
	cfg   *config.Config
	log   *slog.Logger
}

func NewFairness(store *storage.Store, cfg *config.Config, log *slog.Logger) *Fairness {
	return &Fairness{store: store, cfg: cfg, log: log}
}

// EnsureAccount fetches the account, creating it with a starting balance and
// a committed seed pair on first contact.
func (f *Fairness) EnsureAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	const op = "services.fairness.EnsureAccount"

	acct, err := f.store.GetAccount(ctx, accountID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverSeed, err := games.NewServerSeed()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	clientSeed, err := games.NewClientSeed()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acct = &models.Account{
		ID:               accountID,
		AvailableBalance: f.cfg.StartingBalance,
		ClientSeed:       clientSeed,
		ServerSeed:       serverSeed,
		ServerSeedHash:   games.SeedHash(serverSeed),
	}

	err = f.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(acct).Error; err != nil {
			return err
		}
		return tx.Create(&models.SeedCommit{
			Scope:    models.SeedScopeAccount,
			OwnerID:  fmt.Sprintf("%d", accountID),
			SeedHash: acct.ServerSeedHash,
		}).Error
	})
	if err != nil {
		// A concurrent first request may have created it already.
		if existing, getErr := f.store.GetAccount(ctx, accountID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f.log.Info("account created", slog.Int64("account_id", accountID))
	return acct, nil
}

// Rotate reveals the outgoing server seed, commits a fresh one by hash and
// resets the nonce. It refuses to rotate while a multi-step wager is active:
// those wagers still derive proofs from the current pair.
func (f *Fairness) Rotate(ctx context.Context, accountID int64, newClientSeed string) (*models.RotateSeedsResponse, error) {
	const op = "services.fairness.Rotate"

	if _, err := f.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	nextSeed, err := games.NewServerSeed()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	clientSeed := newClientSeed
	if clientSeed == "" {
		if clientSeed, err = games.NewClientSeed(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var resp *models.RotateSeedsResponse
	err = f.store.WithTx(ctx, func(tx *gorm.DB) error {
		acct, err := storage.AccountForUpdate(tx, accountID)
		if err != nil {
			return err
		}

		for _, game := range []games.Kind{games.KindMines, games.KindPump, games.KindBlackjack} {
			if _, err := storage.ActiveWager(tx, accountID, string(game)); err == nil {
				return ErrAlreadyActive
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		now := time.Now()
		if err := storage.RevealSeedCommit(tx, acct.ServerSeedHash, acct.ServerSeed, now); err != nil {
			return err
		}

		resp = &models.RotateSeedsResponse{
			RevealedServerSeed: acct.ServerSeed,
			RevealedSeedHash:   acct.ServerSeedHash,
			NextSeedHash:       games.SeedHash(nextSeed),
			ClientSeed:         clientSeed,
		}

		acct.ServerSeed = nextSeed
		acct.ServerSeedHash = resp.NextSeedHash
		acct.ClientSeed = clientSeed
		acct.Nonce = 0

		if err := tx.Create(&models.SeedCommit{
			Scope:    models.SeedScopeAccount,
			OwnerID:  fmt.Sprintf("%d", accountID),
			SeedHash: acct.ServerSeedHash,
		}).Error; err != nil {
			return err
		}

		return tx.Save(acct).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyActive) {
			return nil, err
		}
		f.log.Error("seed rotation failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

// View returns what a player needs to verify upcoming wagers.
func (f *Fairness) View(ctx context.Context, accountID int64) (*models.FairnessView, error) {
	acct, err := f.EnsureAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &models.FairnessView{
		ClientSeed:     acct.ClientSeed,
		ServerSeedHash: acct.ServerSeedHash,
		Nonce:          acct.Nonce,
	}, nil
}
