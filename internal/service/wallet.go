// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"dice-casino/internal/model"
	"dice-casino/internal/money"
	"dice-casino/internal/repository"
)

// Wallet service errors.
var (
	ErrInvalidAmount        = errors.New("invalid amount: must be positive")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrWithdrawLimitReached = errors.New("weekly withdrawal limit reached")
	ErrPlayerNotFound       = errors.New("player not found")
)

// WalletStore is the wallet persistence capability the service needs.
type WalletStore interface {
	GetOrCreate(ctx context.Context, playerID, displayName string) (*model.Wallet, bool, error)
	Get(ctx context.Context, playerID string) (*model.Wallet, error)
	Deposit(ctx context.Context, playerID string, amount money.Money) (*model.Wallet, error)
	Withdraw(ctx context.Context, playerID string, amount money.Money) (*model.Wallet, error)
}

// LedgerStore is the append-only ledger capability the service needs.
type LedgerStore interface {
	Append(ctx context.Context, playerID string, amount money.Money, entryType, status string, note *string) (*model.LedgerEntry, error)
	CountByTypeSince(ctx context.Context, playerID, entryType string, since time.Time) (int, error)
	GetByPlayer(ctx context.Context, playerID string, limit int) ([]*model.LedgerEntry, error)
}

// WalletService handles deposits, withdrawals and wallet lookups.
type WalletService struct {
	wallets     WalletStore
	ledger      LedgerStore
	weeklyLimit int
}

// NewWalletService creates a new WalletService instance.
func NewWalletService(
	wallets WalletStore,
	ledger LedgerStore,
	weeklyWithdrawLimit int,
) *WalletService {
	return &WalletService{
		wallets:     wallets,
		ledger:      ledger,
		weeklyLimit: weeklyWithdrawLimit,
	}
}

// EnsureWallet ensures a wallet exists for a player, creating one if needed.
func (s *WalletService) EnsureWallet(ctx context.Context, playerID, displayName string) (*model.Wallet, bool, error) {
	w, created, err := s.wallets.GetOrCreate(ctx, playerID, displayName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return w, created, nil
}

// GetWallet retrieves a player's wallet.
func (s *WalletService) GetWallet(ctx context.Context, playerID string) (*model.Wallet, error) {
	w, err := s.wallets.Get(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return w, nil
}

// Deposit credits a player's balance and records the ledger entry.
func (s *WalletService) Deposit(ctx context.Context, playerID string, amount money.Money, method string) (*model.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.wallets.Deposit(ctx, playerID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}

	note := fmt.Sprintf("deposit via %s", method)
	if _, err := s.ledger.Append(ctx, playerID, amount, model.EntryDeposit, model.StatusSuccess, &note); err != nil {
		// Balance was already credited; the failure is not propagated
		// to the player.
		log.Error().Err(err).Str("player", playerID).Msg("Failed to record deposit ledger entry")
	}
	return w, nil
}

// Withdraw debits a player's balance, enforcing the weekly withdrawal count
// limit, and records the ledger entry.
func (s *WalletService) Withdraw(ctx context.Context, playerID string, amount money.Money, method string) (*model.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	weekAgo := time.Now().Add(-7 * 24 * time.Hour)
	count, err := s.ledger.CountByTypeSince(ctx, playerID, model.EntryWithdraw, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to check withdrawal limit: %w", err)
	}
	if s.weeklyLimit > 0 && count >= s.weeklyLimit {
		return nil, ErrWithdrawLimitReached
	}

	w, err := s.wallets.Withdraw(ctx, playerID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWalletNotFound):
			return nil, ErrPlayerNotFound
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}

	note := fmt.Sprintf("withdrawal via %s", method)
	if _, err := s.ledger.Append(ctx, playerID, -amount, model.EntryWithdraw, model.StatusSuccess, &note); err != nil {
		log.Error().Err(err).Str("player", playerID).Msg("Failed to record withdrawal ledger entry")
	}
	return w, nil
}

// History returns a player's most recent ledger entries.
func (s *WalletService) History(ctx context.Context, playerID string, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ledger.GetByPlayer(ctx, playerID, limit)
}
