// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dice-casino/internal/model"
	"dice-casino/internal/money"
)

// Common errors for repository operations.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

const walletColumns = `player_id, display_name, balance, total_deposited, total_withdrawn,
		games_played, games_won, total_wagered, total_won, blocked, created_at, updated_at`

// WalletRepository handles wallet persistence.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.PlayerID,
		&w.DisplayName,
		&w.Balance,
		&w.TotalDeposited,
		&w.TotalWithdrawn,
		&w.Stats.GamesPlayed,
		&w.Stats.GamesWon,
		&w.Stats.TotalWagered,
		&w.Stats.TotalWon,
		&w.Blocked,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Create creates a wallet for a new player with a zero balance.
func (r *WalletRepository) Create(ctx context.Context, playerID, displayName string) (*model.Wallet, error) {
	query := `
		INSERT INTO players (player_id, display_name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, playerID, displayName))
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return w, nil
}

// Get retrieves a wallet by player ID.
// Returns ErrWalletNotFound if the player does not exist.
func (r *WalletRepository) Get(ctx context.Context, playerID string) (*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM players WHERE player_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// GetOrCreate retrieves a wallet, creating one if it doesn't exist.
func (r *WalletRepository) GetOrCreate(ctx context.Context, playerID, displayName string) (*model.Wallet, bool, error) {
	w, err := r.Get(ctx, playerID)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, false, err
	}

	w, err = r.Create(ctx, playerID, displayName)
	if err != nil {
		// Another request may have created the wallet concurrently.
		w, err = r.Get(ctx, playerID)
		if err != nil {
			return nil, false, err
		}
		return w, false, nil
	}
	return w, true, nil
}

// ApplyDelta atomically applies a settlement delta to a wallet.
// The balance guard is enforced in SQL: if the debit would push the balance
// negative no row is updated and nothing is mutated.
func (r *WalletRepository) ApplyDelta(ctx context.Context, playerID string, delta model.WalletDelta) (*model.Wallet, error) {
	query := `
		UPDATE players
		SET balance = balance + $2,
		    games_played = games_played + $3,
		    games_won = games_won + $4,
		    total_wagered = total_wagered + $5,
		    total_won = total_won + $6,
		    updated_at = NOW()
		WHERE player_id = $1 AND balance + $2 >= 0
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query,
		playerID, delta.Balance, delta.GamesPlayed, delta.GamesWon, delta.TotalWagered, delta.TotalWon))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			// No row updated: either the player is missing or the
			// guard rejected a debit past zero.
			if _, getErr := r.Get(ctx, playerID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to apply wallet delta: %w", err)
	}
	return w, nil
}

// Deposit credits the balance and the lifetime deposited total.
func (r *WalletRepository) Deposit(ctx context.Context, playerID string, amount money.Money) (*model.Wallet, error) {
	query := `
		UPDATE players
		SET balance = balance + $2,
		    total_deposited = total_deposited + $2,
		    updated_at = NOW()
		WHERE player_id = $1
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, playerID, amount))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}
	return w, nil
}

// Withdraw debits the balance and credits the lifetime withdrawn total.
// Fails with ErrInsufficientBalance if the balance cannot cover the amount.
func (r *WalletRepository) Withdraw(ctx context.Context, playerID string, amount money.Money) (*model.Wallet, error) {
	query := `
		UPDATE players
		SET balance = balance - $2,
		    total_withdrawn = total_withdrawn + $2,
		    updated_at = NOW()
		WHERE player_id = $1 AND balance >= $2
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, playerID, amount))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			if _, getErr := r.Get(ctx, playerID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}
	return w, nil
}

// AdjustBalance applies a signed admin adjustment to the balance.
// Like settlement debits, an adjustment may not push the balance negative.
func (r *WalletRepository) AdjustBalance(ctx context.Context, playerID string, amount money.Money) (*model.Wallet, error) {
	query := `
		UPDATE players
		SET balance = balance + $2, updated_at = NOW()
		WHERE player_id = $1 AND balance + $2 >= 0
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, playerID, amount))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			if _, getErr := r.Get(ctx, playerID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return w, nil
}

// SetBlocked flips a player's blocked flag.
func (r *WalletRepository) SetBlocked(ctx context.Context, playerID string, blocked bool) error {
	query := `UPDATE players SET blocked = $2, updated_at = NOW() WHERE player_id = $1`

	result, err := r.pool.Exec(ctx, query, playerID, blocked)
	if err != nil {
		return fmt.Errorf("failed to set blocked: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// GetTopByBalance retrieves the top N wallets by balance.
func (r *WalletRepository) GetTopByBalance(ctx context.Context, limit int) ([]*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM players ORDER BY balance DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*model.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}
	return wallets, nil
}
