package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jackpotIndexer/internal/chain"
	"jackpotIndexer/internal/config"
	"jackpotIndexer/internal/indexer"
	"jackpotIndexer/internal/lock"
	"jackpotIndexer/internal/metrics"
	"jackpotIndexer/internal/projection"
	"jackpotIndexer/internal/relayer"
	"jackpotIndexer/internal/storage/postgres"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
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

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	projector, err := projection.New(store, chainClient, cfg.Factory(), logger)
	if err != nil {
		return err
	}
	processor, err := indexer.NewProcessor(indexer.ProcessorConfig{
		Factory:              cfg.Factory(),
		PoolAddressChunk:     cfg.PoolAddressChunk,
		TimestampConcurrency: cfg.TimestampConcurrency,
		MaxRetries:           cfg.MaxRetries,
		RetryBackoff:         cfg.RetryBackoff,
	}, chainClient, projector, logger)
	if err != nil {
		return err
	}
	runner, err := indexer.NewRunner(indexer.RunConfig{
		StartBlock:        cfg.StartBlock,
		BatchSize:         cfg.BatchSize,
		Finality:          cfg.Finality,
		NearHeadThreshold: cfg.NearHeadThreshold,
		TailPollInterval:  cfg.TailPollInterval,
		ShutdownGrace:     cfg.ShutdownGrace,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, processor, store, logger)
	if err != nil {
		return err
	}

	logger.Info("indexer start",
		zap.String("factory", cfg.Factory().Hex()),
		zap.String("rpc", cfg.RPCURL),
		zap.Bool("ws", cfg.WSURL != ""),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Uint64("finality", cfg.Finality),
		zap.Uint64("near_head_threshold", cfg.NearHeadThreshold),
		zap.Bool("relayer", cfg.RelayerEnabled()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})

	var headFeed *chain.HeadFeed
	if cfg.WSURL != "" {
		feed, err := chain.NewHeadFeed(chain.HeadFeedConfig{
			URL:            cfg.WSURL,
			ReconnectDelay: cfg.ReconnectDelay,
			HeadTimeout:    cfg.HeadTimeout,
			OnHead:         runner.NotifyHead,
			OnDisconnect:   runner.NotifyDisconnect,
		}, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return feed.Run(gctx)
		})
		headFeed = feed
	}

	if cfg.RelayerEnabled() {
		rel, closeLease, err := newRelayer(ctx, cfg, chainClient, store, logger)
		if err != nil {
			return err
		}
		defer closeLease()
		g.Go(func() error {
			return rel.Run(gctx)
		})
	}

	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, logger)
		if headFeed != nil {
			server.AddCheck("head_feed", headFeed.Connected)
		}
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	return g.Wait()
}

func newRelayer(ctx context.Context, cfg config.Config, client *chain.Client, store *postgres.Store, logger *zap.Logger) (*relayer.Relayer, func(), error) {
	transactor, err := chain.NewTransactor(ctx, client, cfg.RelayerKey, cfg.RelayerConfirmTimeout, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("relayer key: %w", err)
	}

	var (
		locker lock.Locker = lock.Local{}
		closer             = func() {}
	)
	if cfg.RedisURL != "" {
		rdb, err := lock.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		lease := lock.NewRedis(rdb, "jackpot:relayer:"+cfg.Factory().Hex(), cfg.RelayerLeaseTTL, logger)
		locker = lease
		closer = func() { _ = rdb.Close() }
		logger.Info("relayer lease enabled", zap.String("owner", lease.Owner()))
	}

	rel, err := relayer.New(relayer.Config{
		BatchSize: cfg.RelayerBatch,
		Interval:  cfg.RelayerInterval,
	}, store, client, transactor, locker, logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	logger.Info("relayer enabled", zap.String("sender", transactor.Address().Hex()))
	return rel, closer, nil
}
