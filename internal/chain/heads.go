package chain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"jackpotIndexer/internal/metrics"
)

// ErrHeadTimeout reports a push transport that stopped delivering heads.
var ErrHeadTimeout = errors.New("no new head within timeout")

// HeadFeedConfig configures a HeadFeed.
type HeadFeedConfig struct {
	URL            string
	ReconnectDelay time.Duration
	HeadTimeout    time.Duration
	// OnHead receives the number of every new head.
	OnHead func(number uint64)
	// OnDisconnect runs after the subscription is lost, before redialing.
	OnDisconnect func(err error)
}

// HeadFeed follows new heads over a WebSocket subscription and redials on
// failure. The active client is swapped atomically so a reconnect never
// races a reader.
type HeadFeed struct {
	cfg    HeadFeedConfig
	logger *zap.Logger
	client atomic.Pointer[ethclient.Client]
}

// NewHeadFeed builds a head feed. Nothing is dialed until Run.
func NewHeadFeed(cfg HeadFeedConfig, logger *zap.Logger) (*HeadFeed, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("head feed url is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.HeadTimeout <= 0 {
		cfg.HeadTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadFeed{cfg: cfg, logger: logger}, nil
}

// Connected reports whether a subscription client is currently installed.
func (f *HeadFeed) Connected() bool {
	return f.client.Load() != nil
}

// Run keeps a subscription alive until ctx is cancelled.
func (f *HeadFeed) Run(ctx context.Context) error {
	for {
		err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		f.logger.Warn("head subscription lost", zap.Error(err), zap.Duration("reconnect_in", f.cfg.ReconnectDelay))
		if f.cfg.OnDisconnect != nil {
			f.cfg.OnDisconnect(err)
		}

		timer := time.NewTimer(f.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (f *HeadFeed) session(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, f.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	f.client.Store(client)
	metrics.HeadFeedConnected.Set(1)
	defer func() {
		f.client.Store(nil)
		metrics.HeadFeedConnected.Set(0)
		client.Close()
	}()

	heads := make(chan *types.Header, 16)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return fmt.Errorf("subscribe new heads: %w", err)
	}
	defer sub.Unsubscribe()

	f.logger.Info("head subscription established", zap.String("url", f.cfg.URL))

	watchdog := time.NewTimer(f.cfg.HeadTimeout)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case <-watchdog.C:
			return ErrHeadTimeout
		case header := <-heads:
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(f.cfg.HeadTimeout)
			if header == nil || header.Number == nil {
				continue
			}
			if f.cfg.OnHead != nil {
				f.cfg.OnHead(header.Number.Uint64())
			}
		}
	}
}
