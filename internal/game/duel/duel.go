// Package duel implements the head-to-head dice game: the player's two-dice
// total is compared against one or two opponents, with a commission taken
// from the pot on each won duel.
package duel

import (
	"errors"
	"fmt"

	"dice-casino/internal/money"
)

const (
	// MinTableSize and MaxTableSize bound the number of seats at a table.
	MinTableSize = 2
	MaxTableSize = 5

	// DefaultMinBet is the minimum bet per duel. Sub-minimum bets are
	// clamped up by the engine, not rejected.
	DefaultMinBet = 100

	// MaxCommissionRate is the upper bound on the commission percentage.
	MaxCommissionRate = 20
)

// Errors for duel slips.
var (
	ErrInvalidTableSize  = errors.New("table size must be between 2 and 5")
	ErrInvalidBet        = errors.New("bet must be positive")
	ErrInvalidCommission = errors.New("commission rate out of range")
)

// DuelResult is the outcome of a single duel.
type DuelResult string

const (
	ResultWin  DuelResult = "WIN"
	ResultLoss DuelResult = "LOSS"
	ResultDraw DuelResult = "DRAW"
)

// Slip is the player's commitment for one duel round: a flat bet replicated
// across each duel at the table.
type Slip struct {
	BetPerDuel money.Money
	TableSize  int
}

// DuelCount returns the number of duels for the table size:
// one opponent for a two-seat table, two otherwise.
func (s Slip) DuelCount() int {
	if s.TableSize <= 2 {
		return 1
	}
	return 2
}

// TotalStake returns the escrowed amount: the bet times the duel count.
func (s Slip) TotalStake() money.Money {
	return s.BetPerDuel * money.Money(s.DuelCount())
}

// Validate checks the table size and bet sign. The minimum-bet clamp happens
// before validation, so only non-positive bets are rejected here.
func (s Slip) Validate() error {
	if s.TableSize < MinTableSize || s.TableSize > MaxTableSize {
		return fmt.Errorf("%w: %d", ErrInvalidTableSize, s.TableSize)
	}
	if s.BetPerDuel <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBet, s.BetPerDuel)
	}
	return nil
}

// Duel records one settled head-to-head comparison.
type Duel struct {
	Opponent      string
	MyTotal       int
	OpponentTotal int
	Result        DuelResult
	Payout        money.Money
	Fee           money.Money
}

// Outcome is the aggregate of all duels in one round.
// GrossWinnings is the total credited back to the wallet (win payouts plus
// draw refunds); Net is gross minus the escrowed stake.
type Outcome struct {
	Duels         []Duel
	GrossWinnings money.Money
	TotalFee      money.Money
	TotalStake    money.Money
	Net           money.Money
}

// ResolveDuel settles one duel. On a win the pot is both bets combined and
// the house keeps floor(pot * rate / 100); a draw refunds the bet with no
// commission; a loss pays nothing, the stake being already escrowed.
func ResolveDuel(opponent string, bet money.Money, myTotal, opponentTotal, commissionRate int) (Duel, error) {
	d := Duel{
		Opponent:      opponent,
		MyTotal:       myTotal,
		OpponentTotal: opponentTotal,
	}

	switch {
	case myTotal > opponentTotal:
		pot := bet * 2
		fee, err := pot.FloorPercent(commissionRate)
		if err != nil {
			return Duel{}, err
		}
		d.Result = ResultWin
		d.Payout = pot - fee
		d.Fee = fee
	case myTotal == opponentTotal:
		d.Result = ResultDraw
		d.Payout = bet
	default:
		d.Result = ResultLoss
	}

	return d, nil
}

// Resolve settles a full round: the player's two-dice total against each
// opponent's. opponents carries one name and one dice pair per duel.
func Resolve(slip Slip, myDice [2]int, opponents []string, opponentDice [][2]int, commissionRate int) (*Outcome, error) {
	if err := slip.Validate(); err != nil {
		return nil, err
	}
	if commissionRate < 0 || commissionRate > MaxCommissionRate {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCommission, commissionRate)
	}
	if len(opponents) != slip.DuelCount() || len(opponentDice) != slip.DuelCount() {
		return nil, fmt.Errorf("expected %d opponents, got %d", slip.DuelCount(), len(opponents))
	}

	myTotal := myDice[0] + myDice[1]

	outcome := &Outcome{
		TotalStake: slip.TotalStake(),
	}
	for i, opp := range opponents {
		oppTotal := opponentDice[i][0] + opponentDice[i][1]
		d, err := ResolveDuel(opp, slip.BetPerDuel, myTotal, oppTotal, commissionRate)
		if err != nil {
			return nil, err
		}
		outcome.Duels = append(outcome.Duels, d)
		outcome.GrossWinnings += d.Payout
		outcome.TotalFee += d.Fee
	}

	outcome.Net = outcome.GrossWinnings - outcome.TotalStake
	return outcome, nil
}
