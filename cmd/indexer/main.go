package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Jackpot pool indexer and relayer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index factory and pool events and drive the relayer",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("factory-address", "", "pool factory contract address")
	runCmd.Flags().String("rpc-url", "", "HTTP RPC URL")
	runCmd.Flags().String("ws-url", "", "WebSocket RPC URL for new heads (optional)")
	runCmd.Flags().String("start-block", "", "block to start after when no checkpoint exists")
	runCmd.Flags().Uint64("batch-size", 500, "blocks per batch")
	runCmd.Flags().Uint64("finality", 0, "blocks to stay behind the head")
	runCmd.Flags().Uint64("near-head-threshold", 2000, "gap at which backfill switches to tailing")
	runCmd.Flags().Duration("tail-poll-interval", 5*time.Second, "head poll interval while tailing")
	runCmd.Flags().Duration("reconnect-delay", 3*time.Second, "delay before redialing the head feed")
	runCmd.Flags().Duration("head-timeout", time.Minute, "silence after which the head feed is redialed")
	runCmd.Flags().Duration("shutdown-grace", 30*time.Second, "time allowed for the in-flight batch on shutdown")
	runCmd.Flags().Duration("rpc-timeout", 20*time.Second, "timeout for each RPC call")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Int("pool-address-chunk", 500, "pool addresses per log query")
	runCmd.Flags().Int("timestamp-concurrency", 8, "concurrent block timestamp fetches")
	runCmd.Flags().String("relayer-key", "", "hex private key enabling the relayer")
	runCmd.Flags().Duration("relayer-interval", 15*time.Second, "relayer cycle interval")
	runCmd.Flags().Uint64("relayer-batch", 50, "iterations per batched relayer call")
	runCmd.Flags().String("redis-url", "", "Redis URL for the shared relayer lease (optional)")
	runCmd.Flags().Duration("relayer-lease-ttl", time.Minute, "relayer lease TTL")
	runCmd.Flags().Duration("relayer-confirm-timeout", 3*time.Minute, "how long to wait for a relayer transaction receipt")
	runCmd.Flags().String("metrics-addr", "", "listen address for /metrics (optional)")
	runCmd.Flags().Bool("auto-migrate", true, "apply database migrations on start")

	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	})

	root.AddCommand(&cobra.Command{
		Use:   "recompute-totals [pool]",
		Short: "Recompute pool aggregates from participants",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRecomputeTotals,
	})

	root.AddCommand(&cobra.Command{
		Use:   "reset-pools",
		Short: "Delete open pools and the checkpoint so they are reimported",
		Args:  cobra.NoArgs,
		RunE:  runResetPools,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
