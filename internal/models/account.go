package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the money and fairness state of one player. AvailableBalance is
// spendable; LockedBalance is the sum of stakes of currently active
// multi-step wagers and never goes negative. Nonce advances by exactly one
// for every proof consumed under the current seed pair.
type Account struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	AvailableBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"available_balance"`
	LockedBalance    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"locked_balance"`
	TotalWagered     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_wagered"`
	TotalWon         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_won"`

	ClientSeed     string `gorm:"size:64" json:"client_seed"`
	ServerSeed     string `gorm:"size:128" json:"-"`
	ServerSeedHash string `gorm:"size:64" json:"server_seed_hash"`
	Nonce          int64  `json:"nonce"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BalanceView struct {
	Available    decimal.Decimal `json:"available"`
	Locked       decimal.Decimal `json:"locked"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalWon     decimal.Decimal `json:"total_won"`
}

func (a *Account) Balance() BalanceView {
	return BalanceView{
		Available:    a.AvailableBalance,
		Locked:       a.LockedBalance,
		TotalWagered: a.TotalWagered,
		TotalWon:     a.TotalWon,
	}
}
