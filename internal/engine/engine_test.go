package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dice-casino/internal/game/dicetable"
	"dice-casino/internal/game/duel"
	"dice-casino/internal/model"
	"dice-casino/internal/money"
	"dice-casino/internal/pkg/lock"
)

// memWalletStore is an in-memory WalletStore for engine tests.
type memWalletStore struct {
	wallets map[string]*model.Wallet
}

func newMemWalletStore() *memWalletStore {
	return &memWalletStore{wallets: make(map[string]*model.Wallet)}
}

func (s *memWalletStore) add(playerID string, balance money.Money) *model.Wallet {
	w := &model.Wallet{PlayerID: playerID, DisplayName: playerID, Balance: balance}
	s.wallets[playerID] = w
	return w
}

func (s *memWalletStore) Get(_ context.Context, playerID string) (*model.Wallet, error) {
	w, ok := s.wallets[playerID]
	if !ok {
		return nil, errors.New("wallet not found")
	}
	copied := *w
	return &copied, nil
}

func (s *memWalletStore) ApplyDelta(_ context.Context, playerID string, delta model.WalletDelta) (*model.Wallet, error) {
	w, ok := s.wallets[playerID]
	if !ok {
		return nil, errors.New("wallet not found")
	}
	if w.Balance+delta.Balance < 0 {
		return nil, errors.New("insufficient balance")
	}
	w.Balance += delta.Balance
	w.Stats.GamesPlayed += delta.GamesPlayed
	w.Stats.GamesWon += delta.GamesWon
	w.Stats.TotalWagered += delta.TotalWagered
	w.Stats.TotalWon += delta.TotalWon
	copied := *w
	return &copied, nil
}

// memLedger records appended entries in order.
type memLedger struct {
	entries []*model.LedgerEntry
}

func (l *memLedger) Append(_ context.Context, playerID string, amount money.Money, entryType, status string, note *string) (*model.LedgerEntry, error) {
	e := &model.LedgerEntry{
		PlayerID:  playerID,
		Type:      entryType,
		Amount:    amount,
		Status:    status,
		Note:      note,
		CreatedAt: time.Now(),
	}
	l.entries = append(l.entries, e)
	return e, nil
}

func (l *memLedger) byType(entryType string) []*model.LedgerEntry {
	var out []*model.LedgerEntry
	for _, e := range l.entries {
		if e.Type == entryType {
			out = append(out, e)
		}
	}
	return out
}

// fixedRoller returns a preset face sequence.
type fixedRoller struct {
	faces []int
}

func (f fixedRoller) Roll(_ context.Context, n int) ([]int, error) {
	if n > len(f.faces) {
		return nil, errors.New("not enough preset faces")
	}
	return f.faces[:n], nil
}

// slowRoller delays each roll, widening the settlement window.
type slowRoller struct {
	faces []int
	delay time.Duration
}

func (s slowRoller) Roll(_ context.Context, n int) ([]int, error) {
	time.Sleep(s.delay)
	if n > len(s.faces) {
		return nil, errors.New("not enough preset faces")
	}
	return s.faces[:n], nil
}

type fixedCommission int

func (c fixedCommission) Rate() int { return int(c) }

func newTestEngine(wallets *memWalletStore, ledger *memLedger, faces []int, rate int) *Engine {
	return New(wallets, ledger, fixedRoller{faces: faces}, fixedCommission(rate), Config{
		MinStake:   100,
		Multiplier: 5,
		MinBet:     100,
	})
}

func TestTableBetValidationOrdering(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		balance money.Money
		slip    dicetable.Slip
		wantErr error
	}{
		{"zero balance empty slip sees funds error", 0, dicetable.Slip{}, ErrInsufficientFunds},
		{"zero balance with stake sees funds error", 0, dicetable.Slip{3: 1000}, ErrInsufficientFunds},
		{"funded empty slip sees no-stake error", 1000, dicetable.Slip{}, ErrNoStake},
		{"stake above balance sees funds error", 500, dicetable.Slip{3: 1000}, ErrInsufficientFunds},
		{"stake below minimum rejected", 1000, dicetable.Slip{3: 50}, dicetable.ErrInvalidStake},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallets := newMemWalletStore()
			wallets.add("p1", tt.balance)
			eng := newTestEngine(wallets, &memLedger{}, []int{3}, 5)

			_, err := eng.PlaceTableBet(ctx, "p1", tt.slip)
			assert.ErrorIs(t, err, tt.wantErr)

			// Failed validation moves no funds.
			w, _ := wallets.Get(ctx, "p1")
			assert.Equal(t, tt.balance, w.Balance)
		})
	}
}

func TestTableRoundWin(t *testing.T) {
	// balance=5000, stake 1000 on face 3, roll=3:
	// payout 5000, final balance 5000-1000+5000=9000.
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	ledger := &memLedger{}
	eng := newTestEngine(wallets, ledger, []int{3}, 5)

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingRoll, ticket.Phase)
	assert.Equal(t, money.Money(1000), ticket.TotalStake)

	// Funds are escrowed before the roll.
	w, _ := wallets.Get(ctx, "p1")
	assert.Equal(t, money.Money(4000), w.Balance)
	assert.Equal(t, int64(1), w.Stats.GamesPlayed)
	assert.Equal(t, money.Money(1000), w.Stats.TotalWagered)

	outcome, err := eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Money(5000), outcome.Gross)
	assert.Equal(t, money.Money(4000), outcome.Net)
	assert.Equal(t, money.Money(9000), outcome.Balance)

	w, _ = wallets.Get(ctx, "p1")
	assert.Equal(t, money.Money(9000), w.Balance)
	assert.Equal(t, int64(1), w.Stats.GamesWon)
	assert.Equal(t, money.Money(5000), w.Stats.TotalWon)

	require.Len(t, ledger.byType(model.EntryGameBet), 1)
	require.Len(t, ledger.byType(model.EntryGameWin), 1)
	assert.Equal(t, money.Money(-1000), ledger.byType(model.EntryGameBet)[0].Amount)
	assert.Equal(t, money.Money(5000), ledger.byType(model.EntryGameWin)[0].Amount)
}

func TestTableRoundHouseFace(t *testing.T) {
	// balance=5000, stake 1000 on face 3, roll=1: payout 0, final 4000.
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	eng := newTestEngine(wallets, &memLedger{}, []int{1}, 5)

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)

	outcome, err := eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Table.HouseWin)
	assert.Zero(t, outcome.Gross)
	assert.Equal(t, money.Money(4000), outcome.Balance)

	w, _ := wallets.Get(ctx, "p1")
	assert.Zero(t, w.Stats.GamesWon)
}

func TestTableFullCoverageBypassesRoller(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 10000)
	// A roller that would pick 6 if consulted; full coverage must ignore it.
	eng := newTestEngine(wallets, &memLedger{}, []int{6}, 5)

	slip := dicetable.Slip{1: 100, 2: 100, 3: 100, 4: 100, 5: 100, 6: 100}
	ticket, err := eng.PlaceTableBet(ctx, "p1", slip)
	require.NoError(t, err)

	outcome, err := eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, dicetable.HouseFace, outcome.Table.Face)
	assert.True(t, outcome.Table.HouseWin)
	assert.Zero(t, outcome.Gross)
}

func TestDuelRoundWinWithCommission(t *testing.T) {
	// tableSize=2, bet=500, commission=5%, my 4+5=9 vs 2+4=6:
	// pot=1000, fee=50, payout=950, net=450, final balance 5000-500+950=5450.
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	ledger := &memLedger{}
	eng := newTestEngine(wallets, ledger, []int{4, 5, 2, 4}, 5)

	ticket, err := eng.PlaceDuelBet(ctx, "p1", duel.Slip{BetPerDuel: 500, TableSize: 2})
	require.NoError(t, err)
	assert.Equal(t, money.Money(500), ticket.TotalStake)

	outcome, err := eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Money(950), outcome.Gross)
	assert.Equal(t, money.Money(50), outcome.Fee)
	assert.Equal(t, money.Money(450), outcome.Net)
	assert.Equal(t, money.Money(5450), outcome.Balance)

	w, _ := wallets.Get(ctx, "p1")
	assert.Equal(t, int64(1), w.Stats.GamesWon)
	require.Len(t, ledger.byType(model.EntryGameWin), 1)
}

func TestDuelRoundDrawAndLoss(t *testing.T) {
	// tableSize=4 (2 duels), bet=500, stake=1000.
	// my 3+4=7; left 3+4=7 draw; right 6+5=11 loss.
	// gross=500 refund, net=-500, final balance 5000-1000+500=4500.
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	ledger := &memLedger{}
	eng := newTestEngine(wallets, ledger, []int{3, 4, 3, 4, 6, 5}, 5)

	ticket, err := eng.PlaceDuelBet(ctx, "p1", duel.Slip{BetPerDuel: 500, TableSize: 4})
	require.NoError(t, err)
	assert.Equal(t, money.Money(1000), ticket.TotalStake)

	outcome, err := eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Money(500), outcome.Gross)
	assert.Equal(t, money.Money(-500), outcome.Net)
	assert.Equal(t, money.Money(4500), outcome.Balance)

	w, _ := wallets.Get(ctx, "p1")
	assert.Zero(t, w.Stats.GamesWon, "a negative net round is not a win")

	require.Len(t, ledger.byType(model.EntryGameRefund), 1)
	assert.Equal(t, money.Money(500), ledger.byType(model.EntryGameRefund)[0].Amount)
	assert.Empty(t, ledger.byType(model.EntryGameWin))
}

func TestDuelBetClampedToMinimum(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	eng := newTestEngine(wallets, &memLedger{}, []int{1, 1, 1, 1}, 5)

	ticket, err := eng.PlaceDuelBet(ctx, "p1", duel.Slip{BetPerDuel: 10, TableSize: 2})
	require.NoError(t, err)
	assert.Equal(t, money.Money(100), ticket.TotalStake, "sub-minimum bet is clamped up, not rejected")
}

func TestDuelInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 900)
	eng := newTestEngine(wallets, &memLedger{}, []int{1, 1, 1, 1, 1, 1}, 5)

	// tableSize=4 doubles the stake: 500*2=1000 > 900.
	_, err := eng.PlaceDuelBet(ctx, "p1", duel.Slip{BetPerDuel: 500, TableSize: 4})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSecondRoundRejectedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 10000)
	eng := newTestEngine(wallets, &memLedger{}, []int{3}, 5)

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)

	_, err = eng.PlaceTableBet(ctx, "p1", dicetable.Slip{4: 1000})
	assert.ErrorIs(t, err, lock.ErrRoundInFlight)

	// Settling frees the player for the next round.
	_, err = eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)
	_, err = eng.PlaceTableBet(ctx, "p1", dicetable.Slip{4: 1000})
	assert.NoError(t, err)
}

func TestDoubleSettleViolatesInvariant(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	eng := newTestEngine(wallets, &memLedger{}, []int{3}, 5)

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)

	_, err = eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)

	_, err = eng.Settle(ctx, ticket.ID)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestConcurrentSettleResolvesOnce(t *testing.T) {
	// Two settle calls race on the same ticket while the roll is slow.
	// Exactly one may claim the round; the loser must see the lifecycle
	// error, the wallet must be credited once, and the player lock must
	// release cleanly for the next round.
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	ledger := &memLedger{}
	eng := New(wallets, ledger, slowRoller{faces: []int{3}, delay: 100 * time.Millisecond}, fixedCommission(5), Config{
		MinStake:   100,
		Multiplier: 5,
		MinBet:     100,
	})

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Settle(ctx, ticket.ID)
		}(i)
	}
	wg.Wait()

	var wins, violations int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvariantViolation):
			violations++
		default:
			t.Fatalf("unexpected settle error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, violations)

	// The wallet was paid exactly once.
	w, _ := wallets.Get(ctx, "p1")
	assert.Equal(t, money.Money(9000), w.Balance)
	assert.Len(t, ledger.byType(model.EntryGameWin), 1)

	// The single release left the player free to bet again.
	_, err = eng.PlaceTableBet(ctx, "p1", dicetable.Slip{4: 1000})
	assert.NoError(t, err)
}

func TestSettleErrorKeepsRoundRetryable(t *testing.T) {
	// A failed roll returns the ticket to AWAITING_ROLL: the claim is
	// released and a later settle call can still resolve the round.
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	eng := newTestEngine(wallets, &memLedger{}, nil, 5)

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)

	_, err = eng.Settle(ctx, ticket.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvariantViolation)

	got, err := eng.Ticket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingRoll, got.Phase)
}

func TestResetRules(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	wallets.add("p1", 5000)
	eng := newTestEngine(wallets, &memLedger{}, []int{3}, 5)

	assert.ErrorIs(t, eng.Reset("missing"), ErrTicketNotFound)

	ticket, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	require.NoError(t, err)

	// No abort-and-refund: an unsettled round cannot be reset.
	assert.ErrorIs(t, eng.Reset(ticket.ID), ErrInvariantViolation)

	_, err = eng.Settle(ctx, ticket.ID)
	require.NoError(t, err)

	assert.NoError(t, eng.Reset(ticket.ID))
	_, err = eng.Ticket(ticket.ID)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestBlockedPlayerCannotBet(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	w := wallets.add("p1", 5000)
	w.Blocked = true
	eng := newTestEngine(wallets, &memLedger{}, []int{3}, 5)

	_, err := eng.PlaceTableBet(ctx, "p1", dicetable.Slip{3: 1000})
	assert.ErrorIs(t, err, ErrPlayerBlocked)

	_, err = eng.PlaceDuelBet(ctx, "p1", duel.Slip{BetPerDuel: 500, TableSize: 2})
	assert.ErrorIs(t, err, ErrPlayerBlocked)
}

// TestEscrowConservationProperty: for any valid slip, escrow debits exactly
// the total stake and the balance never goes negative.
func TestEscrowConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()

		balance := money.Money(rapid.Int64Range(0, 1_000_000).Draw(t, "balance"))
		wallets := newMemWalletStore()
		wallets.add("p1", balance)
		eng := newTestEngine(wallets, &memLedger{}, []int{3}, 5)

		slip := dicetable.Slip{}
		faceCount := rapid.IntRange(0, 6).Draw(t, "faceCount")
		for i := 0; i < faceCount; i++ {
			face := rapid.IntRange(1, 6).Draw(t, "face")
			slip[face] = money.Money(rapid.Int64Range(100, 10000).Draw(t, "stake"))
		}

		_, err := eng.PlaceTableBet(ctx, "p1", slip)
		w, _ := wallets.Get(ctx, "p1")

		if err != nil {
			assert.Equal(t, balance, w.Balance, "rejected bets move no funds")
			return
		}

		assert.Equal(t, balance-slip.Total(), w.Balance)
		assert.GreaterOrEqual(t, w.Balance, money.Money(0))
	})
}
