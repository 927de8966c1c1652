package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBet      TransactionType = "bet"
	TransactionTypeWin      TransactionType = "win"
	TransactionTypeLoss     TransactionType = "loss"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

// LedgerTransaction is one append-only audit row over the available balance.
// Rows are never mutated after insert.
type LedgerTransaction struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	AccountID int64           `gorm:"index;not null" json:"account_id"`
	Type      TransactionType `gorm:"size:16" json:"type"`

	Delta         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"delta"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance_after"`

	WagerID *string `gorm:"size:36;index" json:"wager_id,omitempty"`
	Note    string  `gorm:"size:255" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
