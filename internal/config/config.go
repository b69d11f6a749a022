package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	FactoryAddress string
	RPCURL         string
	WSURL          string
	PGDSN          string
	AutoMigrate    bool

	StartBlock        *uint64
	BatchSize         uint64
	Finality          uint64
	NearHeadThreshold uint64
	TailPollInterval  time.Duration
	ReconnectDelay    time.Duration
	HeadTimeout       time.Duration
	ShutdownGrace     time.Duration

	RPCTimeout           time.Duration
	MaxRetries           int
	RetryBackoff         time.Duration
	PoolAddressChunk     int
	TimestampConcurrency int

	RelayerKey      string
	RelayerInterval time.Duration
	RelayerBatch    uint64
	RedisURL        string
	RelayerLeaseTTL time.Duration

	RelayerConfirmTimeout time.Duration

	MetricsAddr string
	LogLevel    string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		FactoryAddress: strings.TrimSpace(v.GetString("factory-address")),
		RPCURL:         v.GetString("rpc-url"),
		WSURL:          v.GetString("ws-url"),
		PGDSN:          v.GetString("pg-dsn"),
		AutoMigrate:    v.GetBool("auto-migrate"),

		BatchSize:         v.GetUint64("batch-size"),
		Finality:          v.GetUint64("finality"),
		NearHeadThreshold: v.GetUint64("near-head-threshold"),
		TailPollInterval:  v.GetDuration("tail-poll-interval"),
		ReconnectDelay:    v.GetDuration("reconnect-delay"),
		HeadTimeout:       v.GetDuration("head-timeout"),
		ShutdownGrace:     v.GetDuration("shutdown-grace"),

		RPCTimeout:           v.GetDuration("rpc-timeout"),
		MaxRetries:           v.GetInt("max-retries"),
		RetryBackoff:         v.GetDuration("retry-backoff"),
		PoolAddressChunk:     v.GetInt("pool-address-chunk"),
		TimestampConcurrency: v.GetInt("timestamp-concurrency"),

		RelayerKey:      strings.TrimSpace(v.GetString("relayer-key")),
		RelayerInterval: v.GetDuration("relayer-interval"),
		RelayerBatch:    v.GetUint64("relayer-batch"),
		RedisURL:        v.GetString("redis-url"),
		RelayerLeaseTTL: v.GetDuration("relayer-lease-ttl"),

		RelayerConfirmTimeout: v.GetDuration("relayer-confirm-timeout"),

		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}
	if raw := strings.TrimSpace(v.GetString("start-block")); raw != "" {
		block, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid start block %q: %w", raw, err)
		}
		cfg.StartBlock = &block
	}

	return cfg, nil
}

// Validate checks the settings the indexer cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.FactoryAddress == "" {
		errs = append(errs, fmt.Errorf("factory address is required"))
	} else if !common.IsHexAddress(c.FactoryAddress) {
		errs = append(errs, fmt.Errorf("invalid factory address: %q", c.FactoryAddress))
	}
	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("rpc url is required"))
	}
	if c.PGDSN == "" {
		errs = append(errs, fmt.Errorf("pg dsn is required"))
	}
	if c.BatchSize == 0 {
		errs = append(errs, fmt.Errorf("batch size must be greater than zero"))
	}
	return errors.Join(errs...)
}

// Factory returns the parsed factory address. Call Validate first.
func (c Config) Factory() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// RelayerEnabled reports whether a relayer key is configured.
func (c Config) RelayerEnabled() bool {
	return c.RelayerKey != ""
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("auto-migrate", true)
	v.SetDefault("batch-size", uint64(500))
	v.SetDefault("finality", uint64(0))
	v.SetDefault("near-head-threshold", uint64(2000))
	v.SetDefault("tail-poll-interval", 5*time.Second)
	v.SetDefault("reconnect-delay", 3*time.Second)
	v.SetDefault("head-timeout", time.Minute)
	v.SetDefault("shutdown-grace", 30*time.Second)
	v.SetDefault("rpc-timeout", 20*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("pool-address-chunk", 500)
	v.SetDefault("timestamp-concurrency", 8)
	v.SetDefault("relayer-interval", 15*time.Second)
	v.SetDefault("relayer-batch", uint64(50))
	v.SetDefault("relayer-lease-ttl", time.Minute)
	v.SetDefault("relayer-confirm-timeout", 3*time.Minute)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
