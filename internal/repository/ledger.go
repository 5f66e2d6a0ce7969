package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"dice-casino/internal/model"
	"dice-casino/internal/money"
)

const entryColumns = `id, player_id, type, amount, status, note, created_at`

// LedgerRepository handles the append-only transaction ledger.
// Rows are inserted, never updated or deleted.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Append inserts a new ledger entry.
func (r *LedgerRepository) Append(ctx context.Context, playerID string, amount money.Money, entryType, status string, note *string) (*model.LedgerEntry, error) {
	query := `
		INSERT INTO ledger_entries (id, player_id, type, amount, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + entryColumns

	var e model.LedgerEntry
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), playerID, entryType, amount, status, note).Scan(
		&e.ID, &e.PlayerID, &e.Type, &e.Amount, &e.Status, &e.Note, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return &e, nil
}

// GetByPlayer retrieves a player's entries, newest first.
func (r *LedgerRepository) GetByPlayer(ctx context.Context, playerID string, limit int) ([]*model.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryEntries(ctx, query, playerID, limit)
}

// GetByPlayerAndRange retrieves a player's entries within [from, to),
// in chronological order.
func (r *LedgerRepository) GetByPlayerAndRange(ctx context.Context, playerID string, from, to time.Time) ([]*model.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE player_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`
	return r.queryEntries(ctx, query, playerID, from, to)
}

func (r *LedgerRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Type, &e.Amount, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// CountByTypeSince counts a player's entries of a given type created at or
// after the cutoff. Used for the weekly withdrawal limit.
func (r *LedgerRepository) CountByTypeSince(ctx context.Context, playerID, entryType string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE player_id = $1 AND type = $2 AND created_at >= $3
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, playerID, entryType, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// HouseNetByDay aggregates game entries per day over [from, to).
// Game entry amounts are signed from the player's perspective, so the house
// net for a day is the negated sum: wagered minus payouts and refunds.
func (r *LedgerRepository) HouseNetByDay(ctx context.Context, from, to time.Time) ([]*model.DailyHouseNet, error) {
	query := `
		SELECT DATE_TRUNC('day', created_at) AS day,
		       COALESCE(SUM(CASE WHEN type = 'GAME_BET' THEN -amount ELSE 0 END), 0) AS wagered,
		       COALESCE(SUM(CASE WHEN type IN ('GAME_WIN', 'GAME_REFUND') THEN amount ELSE 0 END), 0) AS paid_out,
		       COALESCE(-SUM(amount), 0) AS house_net
		FROM ledger_entries
		WHERE type IN ('GAME_BET', 'GAME_WIN', 'GAME_REFUND')
		  AND created_at >= $1
		  AND created_at < $2
		GROUP BY DATE_TRUNC('day', created_at)
		ORDER BY day ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get house net by day: %w", err)
	}
	defer rows.Close()

	var results []*model.DailyHouseNet
	for rows.Next() {
		var d model.DailyHouseNet
		if err := rows.Scan(&d.Day, &d.Wagered, &d.PaidOut, &d.HouseNet); err != nil {
			return nil, fmt.Errorf("failed to scan daily house net: %w", err)
		}
		results = append(results, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily house net: %w", err)
	}
	return results, nil
}

// PlayerNetByRange returns each player's net game result over [from, to),
// biggest winners first.
func (r *LedgerRepository) PlayerNetByRange(ctx context.Context, from, to time.Time) ([]*model.PlayerNet, error) {
	query := `
		SELECT l.player_id, p.display_name, COALESCE(SUM(l.amount), 0) AS net
		FROM ledger_entries l
		JOIN players p ON l.player_id = p.player_id
		WHERE l.type IN ('GAME_BET', 'GAME_WIN', 'GAME_REFUND')
		  AND l.created_at >= $1
		  AND l.created_at < $2
		GROUP BY l.player_id, p.display_name
		ORDER BY net DESC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get player net: %w", err)
	}
	defer rows.Close()

	var results []*model.PlayerNet
	for rows.Next() {
		var n model.PlayerNet
		if err := rows.Scan(&n.PlayerID, &n.DisplayName, &n.Net); err != nil {
			return nil, fmt.Errorf("failed to scan player net: %w", err)
		}
		results = append(results, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player net: %w", err)
	}
	return results, nil
}
