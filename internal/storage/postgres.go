package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"fairplay-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the Postgres source of truth: accounts, wagers, ledger rows, seed
// commits and rounds. All money mutation happens inside its transactions,
// guarded by row locks, never by in-process locks.
type Store struct {
	db *gorm.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Wager{},
		&models.LedgerTransaction{},
		&models.SeedCommit{},
		&models.Round{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// WithTx runs fn in one database transaction; any error rolls back entirely.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).First(&acct, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// AccountForUpdate locks the account row for the duration of tx. Concurrent
// debits against the same account serialize here, so two requests can never
// both spend past the available balance.
func AccountForUpdate(tx *gorm.DB, id int64) (*models.Account, error) {
	var acct models.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acct, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) GetWager(ctx context.Context, id string) (*models.Wager, error) {
	var w models.Wager
	err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func WagerForUpdate(tx *gorm.DB, id string) (*models.Wager, error) {
	var w models.Wager
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ActiveWager finds the account's active wager for one game, if any.
func ActiveWager(tx *gorm.DB, accountID int64, game string) (*models.Wager, error) {
	var w models.Wager
	err := tx.Where("account_id = ? AND game = ? AND active = ?", accountID, game, true).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListActiveWagers returns every still-open multi-step wager; used to
// recover session leases after a restart.
func (s *Store) ListActiveWagers(ctx context.Context) ([]models.Wager, error) {
	var ws []models.Wager
	err := s.db.WithContext(ctx).
		Where("active = ? AND round_id IS NULL", true).
		Find(&ws).Error
	return ws, err
}

func WagersByRound(tx *gorm.DB, roundID string) ([]models.Wager, error) {
	var ws []models.Wager
	err := tx.Where("round_id = ? AND active = ?", roundID, true).Find(&ws).Error
	return ws, err
}

// ListAccountActiveWagers returns the account's open multi-step wagers.
func (s *Store) ListAccountActiveWagers(ctx context.Context, accountID int64) ([]models.Wager, error) {
	var ws []models.Wager
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND active = ?", accountID, true).
		Find(&ws).Error
	return ws, err
}

// ListWagers returns the account's most recent wagers, newest first.
func (s *Store) ListWagers(ctx context.Context, accountID int64, limit int) ([]models.Wager, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var ws []models.Wager
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ws).Error
	return ws, err
}

func (s *Store) ListTransactions(ctx context.Context, accountID int64, limit int) ([]models.LedgerTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var txs []models.LedgerTransaction
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func SeedCommitExists(tx *gorm.DB, hash string) (bool, error) {
	var count int64
	err := tx.Model(&models.SeedCommit{}).Where("seed_hash = ?", hash).Count(&count).Error
	return count > 0, err
}

func RevealSeedCommit(tx *gorm.DB, hash, seed string, at time.Time) error {
	return tx.Model(&models.SeedCommit{}).
		Where("seed_hash = ?", hash).
		Updates(map[string]any{"revealed_seed": seed, "revealed_at": at}).Error
}

func (s *Store) GetSeedCommit(ctx context.Context, hash string) (*models.SeedCommit, error) {
	var c models.SeedCommit
	err := s.db.WithContext(ctx).First(&c, "seed_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RoundByID loads a round row inside tx.
func RoundByID(tx *gorm.DB, id string) (*models.Round, error) {
	var r models.Round
	err := tx.First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return RoundByID(s.db.WithContext(ctx), id)
}

// ActiveRoundIDs lists rounds that still have open wagers attached; after a
// clean shutdown it is empty.
func (s *Store) ActiveRoundIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Wager{}).
		Where("active = ? AND round_id IS NOT NULL", true).
		Distinct().
		Pluck("round_id", &ids).Error
	return ids, err
}
