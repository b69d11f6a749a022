package indexer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jackpotIndexer/internal/metrics"
	"jackpotIndexer/internal/storage"
)

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	StartBlock        *uint64
	BatchSize         uint64
	Finality          uint64
	NearHeadThreshold uint64
	TailPollInterval  time.Duration
	ShutdownGrace     time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
}

// RangeProcessor projects one block range.
type RangeProcessor interface {
	Process(ctx context.Context, from, to uint64, pools []common.Address) ([]common.Address, error)
}

// RunnerStore is the persistence the runner reads on start and writes per range.
type RunnerStore interface {
	storage.CheckpointStore
	storage.PoolReader
}

// Runner backfills to near the head, then tails new blocks.
type Runner struct {
	cfg        RunConfig
	chain      Chain
	processor  RangeProcessor
	store      RunnerStore
	checkpoint *Checkpoint
	logger     *zap.Logger

	head    atomic.Uint64
	trigger chan struct{}
	catchUp chan struct{}

	// pools is owned by whichever goroutine is processing ranges.
	pools []common.Address
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chain Chain, processor RangeProcessor, store RunnerStore, logger *zap.Logger) (*Runner, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain is nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.TailPollInterval <= 0 {
		cfg.TailPollInterval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chain,
		processor:  processor,
		store:      store,
		checkpoint: NewCheckpoint(store, storage.CheckpointKey),
		logger:     logger,
		trigger:    make(chan struct{}, 1),
		catchUp:    make(chan struct{}, 1),
	}, nil
}

// Run executes the indexing loop until ctx is cancelled. A cancelled
// context ends the run without error.
func (r *Runner) Run(ctx context.Context) error {
	last, err := r.checkpoint.Load(ctx, r.cfg.StartBlock)
	if err != nil {
		return err
	}
	pools, err := r.store.KnownPools(ctx)
	if err != nil {
		return fmt.Errorf("load known pools: %w", err)
	}
	r.pools = pools
	metrics.KnownPools.Set(float64(len(pools)))
	metrics.Phase.Set(0)
	r.logger.Info("indexer starting", zap.Uint64("checkpoint", last), zap.Int("known_pools", len(pools)))

	if err := r.backfill(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	metrics.Phase.Set(1)
	r.logger.Info("switching to tail", zap.Uint64("checkpoint", r.checkpoint.Last()), zap.Uint64("head", r.head.Load()))
	return r.tail(ctx)
}

// Checkpoint returns the last committed block.
func (r *Runner) Checkpoint() uint64 {
	return r.checkpoint.Last()
}

// NotifyHead records a head observed by any transport and wakes the tail
// consumer. It never blocks.
func (r *Runner) NotifyHead(number uint64) {
	for {
		current := r.head.Load()
		if number <= current {
			break
		}
		if r.head.CompareAndSwap(current, number) {
			metrics.ChainHead.Set(float64(number))
			break
		}
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// NotifyDisconnect requests an HTTP catch-up after the push transport dropped.
func (r *Runner) NotifyDisconnect(err error) {
	metrics.HeadReconnects.Inc()
	r.logger.Warn("head feed disconnected, catching up over http", zap.Error(err))
	select {
	case r.catchUp <- struct{}{}:
	default:
	}
}

func (r *Runner) backfill(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		head, err := r.latestHead(ctx, -1)
		if err != nil {
			return err
		}
		r.NotifyHead(head)

		rng, ok := NextBackfillRange(r.checkpoint.Last(), r.head.Load(), r.cfg.Finality, r.cfg.NearHeadThreshold, r.cfg.BatchSize)
		if !ok {
			return nil
		}
		if err := r.commitRange(ctx, rng, "backfill"); err != nil {
			return err
		}
	}
}

func (r *Runner) tail(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.poll(gctx)
	})
	g.Go(func() error {
		return r.consume(gctx)
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// poll reads the head over HTTP on a fixed interval and on catch-up requests.
func (r *Runner) poll(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TailPollInterval)
	defer ticker.Stop()

	r.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.catchUp:
		}
		r.pollOnce(ctx)
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	head, err := r.latestHead(ctx, r.cfg.MaxRetries)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("head poll failed", zap.Error(err))
		}
		return
	}
	r.NotifyHead(head)
}

// consume is the single writer of the tail phase. Triggers that arrive while
// it is busy coalesce into one queued slot.
func (r *Runner) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.trigger:
		}
		if err := r.closeGap(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// closeGap processes every block between the checkpoint and the finalized head.
func (r *Runner) closeGap(ctx context.Context) error {
	target := finalizedHead(r.head.Load(), r.cfg.Finality)
	last := r.checkpoint.Last()
	if target <= last {
		return nil
	}
	ranges, err := SplitRange(last+1, target, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, rng := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.commitRange(ctx, rng, "tail"); err != nil {
			return err
		}
	}
	return nil
}

// commitRange processes rng and advances the checkpoint, retrying until it
// succeeds or ctx ends. An attempt in flight when ctx ends keeps running for
// up to the shutdown grace so its writes land together.
func (r *Runner) commitRange(ctx context.Context, rng BlockRange, mode string) error {
	start := time.Now()
	attempt := func() error {
		work, cancel := r.detached(ctx)
		defer cancel()

		pools, err := r.processor.Process(work, rng.From, rng.To, r.pools)
		if err != nil {
			return err
		}
		r.pools = pools
		return r.checkpoint.Advance(work, rng.To)
	}

	err := backoff.RetryNotify(attempt, retryPolicy(ctx, -1, r.cfg.RetryBackoff), func(err error, d time.Duration) {
		metrics.RangesProcessed.WithLabelValues(mode, "error").Inc()
		r.logger.Warn("range failed, retrying",
			zap.String("mode", mode),
			zap.Uint64("from", rng.From),
			zap.Uint64("to", rng.To),
			zap.Duration("retry_in", d),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("range [%d,%d]: %w", rng.From, rng.To, err)
	}

	metrics.RangesProcessed.WithLabelValues(mode, "ok").Inc()
	metrics.RangeDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	r.logger.Info("range complete",
		zap.String("mode", mode),
		zap.Uint64("from", rng.From),
		zap.Uint64("to", rng.To),
		zap.Int("pools", len(r.pools)),
	)
	return nil
}

// detached returns a context that survives cancellation of parent for at
// most the shutdown grace.
func (r *Runner) detached(parent context.Context) (context.Context, context.CancelFunc) {
	work, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(parent, func() {
		timer := time.NewTimer(r.cfg.ShutdownGrace)
		defer timer.Stop()
		select {
		case <-timer.C:
			cancel()
		case <-work.Done():
		}
	})
	return work, func() {
		stop()
		cancel()
	}
}

func (r *Runner) latestHead(ctx context.Context, maxRetries int) (uint64, error) {
	var head uint64
	err := withRetry(ctx, maxRetries, r.cfg.RetryBackoff, "latest_block", r.logger, func(ctx context.Context) error {
		var err error
		head, err = r.chain.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	return head, nil
}
