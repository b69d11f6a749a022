package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jackpotIndexer/internal/config"
	"jackpotIndexer/internal/indexer"
	"jackpotIndexer/internal/storage/postgres"
)

// withStore loads the admin config and opens the database for one command.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *postgres.Store, logger *zap.Logger) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAdmin(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	return fn(ctx, store, logger)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, store *postgres.Store, logger *zap.Logger) error {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", zap.Int64("version", version))
		return nil
	})
}

func runRecomputeTotals(cmd *cobra.Command, args []string) error {
	var pool *common.Address
	if len(args) == 1 {
		addr, err := indexer.ParseAddress(args[0])
		if err != nil {
			return err
		}
		pool = &addr
	}

	return withStore(cmd, func(ctx context.Context, store *postgres.Store, logger *zap.Logger) error {
		pools, err := store.RecomputeTotals(ctx, pool)
		if err != nil {
			return err
		}
		for _, p := range pools {
			logger.Info("pool totals recomputed",
				zap.String("pool", p.PoolID.Hex()),
				zap.String("deposited", p.Deposited.String()),
				zap.String("total_entries", p.TotalEntries.String()),
				zap.Uint64("participants", p.ParticipantCount),
			)
		}
		logger.Info("recompute complete", zap.Int("pools", len(pools)))
		return nil
	})
}

func runResetPools(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, store *postgres.Store, logger *zap.Logger) error {
		deleted, err := store.ResetPools(ctx)
		if err != nil {
			return err
		}
		logger.Info("open pools reset", zap.Int64("deleted", deleted))
		return nil
	})
}
