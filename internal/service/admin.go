package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"dice-casino/internal/model"
	"dice-casino/internal/money"
	"dice-casino/internal/repository"
)

// Admin service errors.
var (
	ErrInvalidCommission = errors.New("commission rate must be between 0 and 20")
)

// CommissionConfig holds the process-wide duel commission rate.
// The rate is read by every duel settlement and set by the admin service;
// access is synchronized so settlement reads a consistent value.
type CommissionConfig struct {
	mu   sync.RWMutex
	rate int
}

// NewCommissionConfig creates a commission config with a starting rate.
func NewCommissionConfig(rate int) (*CommissionConfig, error) {
	if rate < 0 || rate > 20 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCommission, rate)
	}
	return &CommissionConfig{rate: rate}, nil
}

// Rate returns the current commission percentage.
func (c *CommissionConfig) Rate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate
}

// Set updates the commission percentage, rejecting out-of-range values.
func (c *CommissionConfig) Set(rate int) error {
	if rate < 0 || rate > 20 {
		return fmt.Errorf("%w: %d", ErrInvalidCommission, rate)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
	return nil
}

// AdminService handles administrative operations: commission control,
// balance adjustments and player blocking.
type AdminService struct {
	wallets    *repository.WalletRepository
	ledger     *repository.LedgerRepository
	commission *CommissionConfig
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	wallets *repository.WalletRepository,
	ledger *repository.LedgerRepository,
	commission *CommissionConfig,
) *AdminService {
	return &AdminService{
		wallets:    wallets,
		ledger:     ledger,
		commission: commission,
	}
}

// CommissionRate returns the active commission percentage.
func (s *AdminService) CommissionRate() int {
	return s.commission.Rate()
}

// SetCommissionRate updates the active commission percentage.
func (s *AdminService) SetCommissionRate(rate int) error {
	if err := s.commission.Set(rate); err != nil {
		return err
	}
	log.Info().Int("rate", rate).Msg("Commission rate updated")
	return nil
}

// AdjustBalance applies a signed balance adjustment and records an
// ADMIN_ADJUSTMENT ledger entry.
func (s *AdminService) AdjustBalance(ctx context.Context, playerID string, amount money.Money, note string) (*model.Wallet, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.wallets.AdjustBalance(ctx, playerID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWalletNotFound):
			return nil, ErrPlayerNotFound
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	if _, err := s.ledger.Append(ctx, playerID, amount, model.EntryAdminAdjustment, model.StatusSuccess, &note); err != nil {
		log.Error().Err(err).Str("player", playerID).Msg("Failed to record adjustment ledger entry")
	}

	log.Info().Str("player", playerID).Int64("amount", int64(amount)).Msg("Admin balance adjustment")
	return w, nil
}

// SetBlocked blocks or unblocks a player. Blocked players cannot place bets.
func (s *AdminService) SetBlocked(ctx context.Context, playerID string, blocked bool) error {
	if err := s.wallets.SetBlocked(ctx, playerID, blocked); err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to set blocked: %w", err)
	}
	log.Info().Str("player", playerID).Bool("blocked", blocked).Msg("Player block state changed")
	return nil
}
