// Package model defines the data models for the dice casino service.
package model

import (
	"time"

	"dice-casino/internal/money"
)

// WalletStats holds a player's lifetime game statistics.
type WalletStats struct {
	GamesPlayed  int64       `db:"games_played"`
	GamesWon     int64       `db:"games_won"`
	TotalWagered money.Money `db:"total_wagered"`
	TotalWon     money.Money `db:"total_won"`
}

// Wallet represents a player's balance and lifetime statistics.
// It is mutated only through escrow/settlement deltas and the wallet service
// (deposits, withdrawals, admin adjustments).
type Wallet struct {
	PlayerID       string      `db:"player_id"`
	DisplayName    string      `db:"display_name"`
	Balance        money.Money `db:"balance"`
	TotalDeposited money.Money `db:"total_deposited"`
	TotalWithdrawn money.Money `db:"total_withdrawn"`
	Stats          WalletStats
	Blocked        bool      `db:"blocked"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// WalletDelta is an atomic change applied to a wallet during escrow or
// settlement. Balance may be negative (escrow debit); the stat fields are
// increments and must be >= 0.
type WalletDelta struct {
	Balance      money.Money
	GamesPlayed  int64
	GamesWon     int64
	TotalWagered money.Money
	TotalWon     money.Money
}

// LedgerEntry is one append-only row in the transaction ledger.
// Entries are never mutated after creation.
type LedgerEntry struct {
	ID        string      `db:"id"`
	PlayerID  string      `db:"player_id"`
	Type      string      `db:"type"`
	Amount    money.Money `db:"amount"`
	Status    string      `db:"status"`
	Note      *string     `db:"note"`
	CreatedAt time.Time   `db:"created_at"`
}

// Ledger entry types.
const (
	EntryDeposit         = "DEPOSIT"
	EntryWithdraw        = "WITHDRAW"
	EntryGameBet         = "GAME_BET"
	EntryGameWin         = "GAME_WIN"
	EntryGameRefund      = "GAME_REFUND"
	EntryAdminAdjustment = "ADMIN_ADJUSTMENT"
)

// Ledger entry statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusPending = "PENDING"
	StatusFailed  = "FAILED"
)

// GameEntryTypes returns the ledger entry types produced by settlement.
// Profitability reports sum over exactly these types.
func GameEntryTypes() []string {
	return []string{EntryGameBet, EntryGameWin, EntryGameRefund}
}

// DailyHouseNet is the house's net take for one day, derived from game
// ledger entries. Positive means the house profited.
type DailyHouseNet struct {
	Day      time.Time   `db:"day"`
	Wagered  money.Money `db:"wagered"`
	PaidOut  money.Money `db:"paid_out"`
	HouseNet money.Money `db:"house_net"`
}

// PlayerNet is one player's net game result over a reporting range.
type PlayerNet struct {
	PlayerID    string      `db:"player_id"`
	DisplayName string      `db:"display_name"`
	Net         money.Money `db:"net"`
}
