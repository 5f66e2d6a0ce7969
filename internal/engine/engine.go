// Package engine implements the wagering and settlement state machine.
// A round moves IDLE -> ESCROWED -> AWAITING_ROLL -> SETTLING -> SETTLED:
// funds are escrowed before the roll is known, the roll is obtained from a
// Roller (with local fallback), and the outcome mutates the wallet exactly
// once.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dice-casino/internal/game/dicetable"
	"dice-casino/internal/game/duel"
	"dice-casino/internal/model"
	"dice-casino/internal/money"
	"dice-casino/internal/pkg/lock"
	"dice-casino/internal/roller"
)

// Errors surfaced by the engine.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoStake            = errors.New("no stake placed")
	ErrPlayerBlocked      = errors.New("player is blocked")
	ErrTicketNotFound     = errors.New("round ticket not found")
	ErrInvariantViolation = errors.New("settlement invariant violation")
)

// Phase is the lifecycle stage of a round.
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseEscrowed     Phase = "ESCROWED"
	PhaseAwaitingRoll Phase = "AWAITING_ROLL"
	PhaseSettling     Phase = "SETTLING"
	PhaseSettled      Phase = "SETTLED"
)

// Mode selects which game a round plays.
type Mode string

const (
	ModeDiceTable Mode = "dicetable"
	ModeDuel      Mode = "duel"
)

// Opponent names for duel mode, in duel order.
var duelOpponents = []string{"left", "right"}

// WalletStore is the persistence capability the engine needs for wallets.
type WalletStore interface {
	Get(ctx context.Context, playerID string) (*model.Wallet, error)
	// ApplyDelta atomically applies a balance/stats delta. It must fail
	// without mutating anything if the balance would go negative.
	ApplyDelta(ctx context.Context, playerID string, delta model.WalletDelta) (*model.Wallet, error)
}

// LedgerStore is the append-only transaction ledger capability.
type LedgerStore interface {
	Append(ctx context.Context, playerID string, amount money.Money, entryType, status string, note *string) (*model.LedgerEntry, error)
}

// CommissionSource supplies the current duel commission rate in [0,20].
type CommissionSource interface {
	Rate() int
}

// Ticket identifies one in-flight or settled round.
type Ticket struct {
	ID         string
	PlayerID   string
	Mode       Mode
	Phase      Phase
	TableSlip  dicetable.Slip
	DuelSlip   duel.Slip
	TotalStake money.Money
	CreatedAt  time.Time
}

// Outcome is the settled result of a round.
// Exactly one of Table and Duel is set, matching the ticket's mode.
type Outcome struct {
	TicketID string
	Mode     Mode
	Table    *dicetable.Result
	Duel     *duel.Outcome
	Gross    money.Money
	Fee      money.Money
	Net      money.Money
	Balance  money.Money
}

// Config holds engine tunables.
type Config struct {
	MinStake   money.Money // dice table per-face minimum
	Multiplier int64       // dice table payout multiple
	MinBet     money.Money // duel per-duel minimum, clamped up
}

// Engine coordinates validation, escrow, rolling and settlement.
type Engine struct {
	wallets    WalletStore
	ledger     LedgerStore
	roller     roller.Roller
	commission CommissionSource
	locks      *lock.PlayerLock
	cfg        Config

	mu      sync.Mutex
	tickets map[string]*Ticket
}

// New creates a settlement engine.
func New(wallets WalletStore, ledger LedgerStore, r roller.Roller, commission CommissionSource, cfg Config) *Engine {
	if cfg.MinStake <= 0 {
		cfg.MinStake = dicetable.DefaultMinStake
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = dicetable.DefaultMultiplier
	}
	if cfg.MinBet <= 0 {
		cfg.MinBet = duel.DefaultMinBet
	}
	return &Engine{
		wallets:    wallets,
		ledger:     ledger,
		roller:     r,
		commission: commission,
		locks:      lock.NewPlayerLock(),
		cfg:        cfg,
		tickets:    make(map[string]*Ticket),
	}
}

// PlaceTableBet validates and escrows a single-number slip, returning the
// round ticket. Validation order is deliberate: a broke player sees the
// funds error even with an empty slip, but a placed stake that merely
// exceeds the balance is reported only after the no-stake check.
func (e *Engine) PlaceTableBet(ctx context.Context, playerID string, slip dicetable.Slip) (*Ticket, error) {
	if err := e.locks.TryLock(playerID); err != nil {
		return nil, err
	}

	ticket, err := e.placeTableBet(ctx, playerID, slip)
	if err != nil {
		e.locks.Unlock(playerID)
		return nil, err
	}
	return ticket, nil
}

func (e *Engine) placeTableBet(ctx context.Context, playerID string, slip dicetable.Slip) (*Ticket, error) {
	wallet, err := e.wallets.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if wallet.Blocked {
		return nil, ErrPlayerBlocked
	}

	total := slip.Total()
	switch {
	case wallet.Balance <= 0:
		return nil, ErrInsufficientFunds
	case total == 0:
		return nil, ErrNoStake
	}
	if err := slip.Validate(e.cfg.MinStake); err != nil {
		return nil, err
	}
	if wallet.Balance < total {
		return nil, ErrInsufficientFunds
	}

	return e.escrow(ctx, playerID, &Ticket{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		Mode:       ModeDiceTable,
		Phase:      PhaseIdle,
		TableSlip:  slip,
		TotalStake: total,
		CreatedAt:  time.Now(),
	})
}

// PlaceDuelBet validates and escrows a duel slip. A bet below the minimum
// is clamped up before validation rather than rejected.
func (e *Engine) PlaceDuelBet(ctx context.Context, playerID string, slip duel.Slip) (*Ticket, error) {
	if err := e.locks.TryLock(playerID); err != nil {
		return nil, err
	}

	ticket, err := e.placeDuelBet(ctx, playerID, slip)
	if err != nil {
		e.locks.Unlock(playerID)
		return nil, err
	}
	return ticket, nil
}

func (e *Engine) placeDuelBet(ctx context.Context, playerID string, slip duel.Slip) (*Ticket, error) {
	slip.BetPerDuel = money.Clamp(slip.BetPerDuel, e.cfg.MinBet)
	if err := slip.Validate(); err != nil {
		return nil, err
	}

	wallet, err := e.wallets.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if wallet.Blocked {
		return nil, ErrPlayerBlocked
	}

	total := slip.TotalStake()
	if wallet.Balance < total {
		return nil, ErrInsufficientFunds
	}

	return e.escrow(ctx, playerID, &Ticket{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		Mode:       ModeDuel,
		Phase:      PhaseIdle,
		DuelSlip:   slip,
		TotalStake: total,
		CreatedAt:  time.Now(),
	})
}

// escrow debits the total stake and records the wager. The debit is
// irrevocable: from here the round must resolve to a win or a loss.
func (e *Engine) escrow(ctx context.Context, playerID string, ticket *Ticket) (*Ticket, error) {
	_, err := e.wallets.ApplyDelta(ctx, playerID, model.WalletDelta{
		Balance:      -ticket.TotalStake,
		GamesPlayed:  1,
		TotalWagered: ticket.TotalStake,
	})
	if err != nil {
		return nil, fmt.Errorf("escrow failed: %w", err)
	}
	ticket.Phase = PhaseEscrowed

	note := fmt.Sprintf("round %s %s stake", ticket.ID, ticket.Mode)
	if _, err := e.ledger.Append(ctx, playerID, -ticket.TotalStake, model.EntryGameBet, model.StatusSuccess, &note); err != nil {
		log.Error().Err(err).Str("ticket", ticket.ID).Msg("Failed to record bet ledger entry")
	}

	ticket.Phase = PhaseAwaitingRoll
	e.mu.Lock()
	e.tickets[ticket.ID] = ticket
	e.mu.Unlock()

	log.Info().
		Str("ticket", ticket.ID).
		Str("player", playerID).
		Str("mode", string(ticket.Mode)).
		Int64("stake", int64(ticket.TotalStake)).
		Msg("Stake escrowed")

	return ticket, nil
}

// Settle resolves a round awaiting its roll and applies the outcome.
// Settling a ticket twice, or one that never escrowed, violates the round
// lifecycle and returns ErrInvariantViolation.
//
// The ticket is claimed under the engine mutex: the AWAITING_ROLL check and
// the transition to SETTLING are one critical section, so concurrent settle
// calls cannot both roll and both pay out.
func (e *Engine) Settle(ctx context.Context, ticketID string) (*Outcome, error) {
	ticket, err := e.claimForSettlement(ticketID)
	if err != nil {
		return nil, err
	}

	var outcome *Outcome
	switch ticket.Mode {
	case ModeDiceTable:
		outcome, err = e.settleTable(ctx, ticket)
	case ModeDuel:
		outcome, err = e.settleDuel(ctx, ticket)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrInvariantViolation, ticket.Mode)
	}
	if err != nil {
		// Return the ticket to AWAITING_ROLL so settlement can be
		// retried; escrowed funds are never silently dropped.
		e.setPhase(ticket, PhaseAwaitingRoll)
		return nil, err
	}

	e.setPhase(ticket, PhaseSettled)
	e.locks.Unlock(ticket.PlayerID)

	log.Info().
		Str("ticket", ticket.ID).
		Str("player", ticket.PlayerID).
		Int64("gross", int64(outcome.Gross)).
		Int64("net", int64(outcome.Net)).
		Msg("Round settled")

	return outcome, nil
}

// claimForSettlement moves a ticket from AWAITING_ROLL to SETTLING, failing
// any caller that finds it in another phase. Exactly one settle call per
// round can win the claim.
func (e *Engine) claimForSettlement(ticketID string) (*Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ticket, ok := e.tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if ticket.Phase != PhaseAwaitingRoll {
		return nil, fmt.Errorf("%w: settle in phase %s", ErrInvariantViolation, ticket.Phase)
	}
	ticket.Phase = PhaseSettling
	return ticket, nil
}

func (e *Engine) setPhase(ticket *Ticket, phase Phase) {
	e.mu.Lock()
	ticket.Phase = phase
	e.mu.Unlock()
}

func (e *Engine) settleTable(ctx context.Context, ticket *Ticket) (*Outcome, error) {
	// Full coverage skips the roller entirely: the result is the house
	// face, instantly and deterministically.
	face, forced := dicetable.ForcedFace(ticket.TableSlip)
	if !forced {
		faces, err := e.roller.Roll(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("roll failed: %w", err)
		}
		face = faces[0]
	}

	result := dicetable.Resolve(ticket.TableSlip, face, e.cfg.Multiplier)

	delta := model.WalletDelta{}
	if result.Win {
		delta.Balance = result.Payout
		delta.GamesWon = 1
		delta.TotalWon = result.Payout
	}
	wallet, err := e.wallets.ApplyDelta(ctx, ticket.PlayerID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to apply outcome: %w", err)
	}

	if result.Win {
		note := fmt.Sprintf("round %s face %d pays %dx", ticket.ID, face, e.cfg.Multiplier)
		if _, err := e.ledger.Append(ctx, ticket.PlayerID, result.Payout, model.EntryGameWin, model.StatusSuccess, &note); err != nil {
			log.Error().Err(err).Str("ticket", ticket.ID).Msg("Failed to record win ledger entry")
		}
	}

	return &Outcome{
		TicketID: ticket.ID,
		Mode:     ModeDiceTable,
		Table:    &result,
		Gross:    result.Payout,
		Net:      result.Payout - ticket.TotalStake,
		Balance:  wallet.Balance,
	}, nil
}

func (e *Engine) settleDuel(ctx context.Context, ticket *Ticket) (*Outcome, error) {
	duelCount := ticket.DuelSlip.DuelCount()

	// One roll call covers the player's pair and every opponent's pair;
	// dice within a call are independent.
	faces, err := e.roller.Roll(ctx, 2+2*duelCount)
	if err != nil {
		return nil, fmt.Errorf("roll failed: %w", err)
	}

	myDice := [2]int{faces[0], faces[1]}
	opponents := duelOpponents[:duelCount]
	opponentDice := make([][2]int, duelCount)
	for i := 0; i < duelCount; i++ {
		opponentDice[i] = [2]int{faces[2+2*i], faces[3+2*i]}
	}

	result, err := duel.Resolve(ticket.DuelSlip, myDice, opponents, opponentDice, e.commission.Rate())
	if err != nil {
		return nil, fmt.Errorf("duel resolution failed: %w", err)
	}

	delta := model.WalletDelta{Balance: result.GrossWinnings}
	if result.Net > 0 {
		delta.GamesWon = 1
	}
	if result.GrossWinnings > 0 {
		delta.TotalWon = result.GrossWinnings
	}
	wallet, err := e.wallets.ApplyDelta(ctx, ticket.PlayerID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to apply outcome: %w", err)
	}

	for _, d := range result.Duels {
		switch d.Result {
		case duel.ResultWin:
			note := fmt.Sprintf("round %s duel vs %s won %d-%d", ticket.ID, d.Opponent, d.MyTotal, d.OpponentTotal)
			if _, err := e.ledger.Append(ctx, ticket.PlayerID, d.Payout, model.EntryGameWin, model.StatusSuccess, &note); err != nil {
				log.Error().Err(err).Str("ticket", ticket.ID).Msg("Failed to record win ledger entry")
			}
		case duel.ResultDraw:
			note := fmt.Sprintf("round %s duel vs %s drew %d-%d", ticket.ID, d.Opponent, d.MyTotal, d.OpponentTotal)
			if _, err := e.ledger.Append(ctx, ticket.PlayerID, d.Payout, model.EntryGameRefund, model.StatusSuccess, &note); err != nil {
				log.Error().Err(err).Str("ticket", ticket.ID).Msg("Failed to record refund ledger entry")
			}
		}
	}

	return &Outcome{
		TicketID: ticket.ID,
		Mode:     ModeDuel,
		Duel:     result,
		Gross:    result.GrossWinnings,
		Fee:      result.TotalFee,
		Net:      result.Net,
		Balance:  wallet.Balance,
	}, nil
}

// Reset discards a settled ticket, returning the round to IDLE.
// There is no abort-and-refund path: resetting an unsettled round is an
// invariant violation because its escrowed funds have not resolved.
func (e *Engine) Reset(ticketID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ticket, ok := e.tickets[ticketID]
	if !ok {
		return ErrTicketNotFound
	}
	if ticket.Phase != PhaseSettled {
		return fmt.Errorf("%w: reset in phase %s", ErrInvariantViolation, ticket.Phase)
	}
	delete(e.tickets, ticketID)
	return nil
}

// Ticket returns a snapshot of a ticket by ID.
func (e *Engine) Ticket(ticketID string) (*Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ticket, ok := e.tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}
