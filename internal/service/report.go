package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dice-casino/internal/model"
	"dice-casino/internal/repository"
)

// ErrInvalidRange is returned for a reporting range where from is not
// before to.
var ErrInvalidRange = errors.New("invalid date range")

// ReportService produces profitability reports from the ledger.
type ReportService struct {
	ledger *repository.LedgerRepository
}

// NewReportService creates a new ReportService instance.
func NewReportService(ledger *repository.LedgerRepository) *ReportService {
	return &ReportService{ledger: ledger}
}

// HouseNetByDay returns the house's daily net take over [from, to).
func (s *ReportService) HouseNetByDay(ctx context.Context, from, to time.Time) ([]*model.DailyHouseNet, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	results, err := s.ledger.HouseNetByDay(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build house report: %w", err)
	}
	return results, nil
}

// PlayerNet returns per-player net game results over [from, to),
// biggest winners first.
func (s *ReportService) PlayerNet(ctx context.Context, from, to time.Time) ([]*model.PlayerNet, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	results, err := s.ledger.PlayerNetByRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build player report: %w", err)
	}
	return results, nil
}

// PlayerLedger returns one player's game and money movements over [from, to)
// in chronological order.
func (s *ReportService) PlayerLedger(ctx context.Context, playerID string, from, to time.Time) ([]*model.LedgerEntry, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	return s.ledger.GetByPlayerAndRange(ctx, playerID, from, to)
}
