// Package main is the entry point for the dice casino settlement service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dice-casino/internal/config"
	"dice-casino/internal/engine"
	"dice-casino/internal/money"
	"dice-casino/internal/pkg/db"
	"dice-casino/internal/repository"
	"dice-casino/internal/roller"
	"dice-casino/internal/server"
	"dice-casino/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	walletRepo := repository.NewWalletRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)

	// Commission rate, admin-settable at runtime
	commission, err := service.NewCommissionConfig(cfg.Admin.CommissionRate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid commission rate")
	}

	// Die roller: remote authority with local fallback when configured,
	// local generator otherwise.
	var dieRoller roller.Roller
	if cfg.Roller.BaseURL != "" {
		dieRoller = roller.NewFallback(roller.NewRemote(cfg.Roller.BaseURL, cfg.Roller.Timeout))
		log.Info().Str("base_url", cfg.Roller.BaseURL).Msg("Using remote roller with local fallback")
	} else {
		dieRoller = roller.NewLocal()
		log.Info().Msg("Using local roller")
	}

	// Settlement engine
	eng := engine.New(walletRepo, ledgerRepo, dieRoller, commission, engine.Config{
		MinStake:   money.Money(cfg.Games.DiceTable.MinStake),
		Multiplier: cfg.Games.DiceTable.Multiplier,
		MinBet:     money.Money(cfg.Games.Duel.MinBet),
	})

	// Services
	walletService := service.NewWalletService(walletRepo, ledgerRepo, cfg.Withdrawal.WeeklyLimit)
	adminService := service.NewAdminService(walletRepo, ledgerRepo, commission)
	reportService := service.NewReportService(ledgerRepo)

	srv := server.New(&cfg.Server, cfg.Admin.Token, eng, walletService, adminService, reportService)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: players table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			player_id TEXT PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			total_deposited BIGINT NOT NULL DEFAULT 0,
			total_withdrawn BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			games_won BIGINT NOT NULL DEFAULT 0,
			total_wagered BIGINT NOT NULL DEFAULT 0,
			total_won BIGINT NOT NULL DEFAULT 0,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_balance ON players(balance DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: players table created")

	// Migration 2: ledger_entries table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id UUID PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(player_id) ON DELETE CASCADE,
			type VARCHAR(32) NOT NULL,
			amount BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'SUCCESS',
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_player_time ON ledger_entries(player_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_type_time ON ledger_entries(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: ledger_entries table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
