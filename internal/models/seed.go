package models

import "time"

const (
	SeedScopeAccount = "account"
	SeedScopeRound   = "round"
)

// SeedCommit is the commit-reveal record for one server seed. The hash row
// must exist before any wager under that seed is resolved; the seed itself is
// revealed on rotation (or at round settlement) so players can replay proofs.
type SeedCommit struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Scope    string `gorm:"size:16;index" json:"scope"`
	OwnerID  string `gorm:"size:64;index" json:"owner_id"`
	SeedHash string `gorm:"size:64;uniqueIndex" json:"seed_hash"`

	RevealedSeed *string `gorm:"size:128" json:"revealed_seed,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	RevealedAt *time.Time `json:"revealed_at,omitempty"`
}
