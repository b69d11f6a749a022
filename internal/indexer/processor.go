package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jackpotIndexer/internal/contracts"
	"jackpotIndexer/internal/metrics"
	"jackpotIndexer/internal/model"
)

// Chain is the read side of the chain used by the indexer.
type Chain interface {
	contracts.Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Projection applies decoded events.
type Projection interface {
	ApplyFactory(ctx context.Context, ev model.FactoryEvent) ([]common.Address, error)
	ApplyPool(ctx context.Context, ev model.PoolEvent) error
}

// timestampForgetter is implemented by chain clients with a timestamp cache.
type timestampForgetter interface {
	ForgetTimestampsBelow(number uint64)
}

// ProcessorConfig holds range processing settings.
type ProcessorConfig struct {
	Factory              common.Address
	PoolAddressChunk     int
	TimestampConcurrency int
	MaxRetries           int
	RetryBackoff         time.Duration
}

// Processor fetches, decodes and projects the logs of one block range.
type Processor struct {
	cfg        ProcessorConfig
	chain      Chain
	projection Projection
	factoryDec *contracts.FactoryDecoder
	poolDec    *contracts.PoolDecoder
	logger     *zap.Logger
}

// NewProcessor builds a Processor.
func NewProcessor(cfg ProcessorConfig, chain Chain, projection Projection, logger *zap.Logger) (*Processor, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain is nil")
	}
	if projection == nil {
		return nil, fmt.Errorf("projection is nil")
	}
	if cfg.Factory == (common.Address{}) {
		return nil, fmt.Errorf("factory address is required")
	}
	if cfg.TimestampConcurrency <= 0 {
		cfg.TimestampConcurrency = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	factoryDec, err := contracts.NewFactoryDecoder()
	if err != nil {
		return nil, err
	}
	poolDec, err := contracts.NewPoolDecoder()
	if err != nil {
		return nil, err
	}
	return &Processor{
		cfg:        cfg,
		chain:      chain,
		projection: projection,
		factoryDec: factoryDec,
		poolDec:    poolDec,
		logger:     logger,
	}, nil
}

// Process projects every factory and pool log in [from, to] and returns the
// pool set to follow afterwards: pools plus any the range introduced.
func (p *Processor) Process(ctx context.Context, from, to uint64, pools []common.Address) ([]common.Address, error) {
	factoryLogs, err := p.filterLogs(ctx, from, to, []common.Address{p.cfg.Factory}, p.factoryDec.Topics())
	if err != nil {
		return pools, fmt.Errorf("factory logs [%d,%d]: %w", from, to, err)
	}
	timestamps, err := p.prefetchTimestamps(ctx, factoryLogs)
	if err != nil {
		return pools, err
	}

	discovered := make([]common.Address, 0)
	for _, log := range factoryLogs {
		meta := buildLogMeta(log, timestamps[log.BlockNumber])
		ev, err := p.factoryDec.Decode(log, meta)
		if err != nil {
			p.skipLog("decode", log, err)
			continue
		}
		if ev == nil {
			continue
		}
		added, err := p.projection.ApplyFactory(ctx, ev)
		if err != nil {
			p.skipLog("project", log, err)
			continue
		}
		discovered = append(discovered, added...)
	}

	merged := DedupeAddresses(append(append(make([]common.Address, 0, len(pools)+len(discovered)), pools...), discovered...))
	metrics.KnownPools.Set(float64(len(merged)))
	if len(merged) == 0 {
		return merged, nil
	}

	poolLogs, err := p.poolLogs(ctx, from, to, merged)
	if err != nil {
		return merged, fmt.Errorf("pool logs [%d,%d]: %w", from, to, err)
	}
	poolTimestamps, err := p.prefetchTimestamps(ctx, poolLogs)
	if err != nil {
		return merged, err
	}

	tally := make(map[string]int)
	events := make([]model.PoolEvent, 0, len(poolLogs))
	for _, log := range poolLogs {
		ev, err := p.poolDec.Decode(log, buildLogMeta(log, poolTimestamps[log.BlockNumber]))
		if err != nil {
			p.skipLog("decode", log, err)
			continue
		}
		if ev == nil {
			continue
		}
		tally[poolEventName(ev)]++
		events = append(events, ev)
	}
	if len(events) > 0 {
		p.logger.Info("pool logs",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Int(contracts.EventTicketPurchased, tally[contracts.EventTicketPurchased]),
			zap.Int(contracts.EventPoolClosed, tally[contracts.EventPoolClosed]),
			zap.Int(contracts.EventPrizeClaimed, tally[contracts.EventPrizeClaimed]),
		)
	}

	for i, ev := range events {
		if err := p.projection.ApplyPool(ctx, ev); err != nil {
			meta := ev.Meta()
			p.logger.Warn("skipping pool log",
				zap.String("stage", "project"),
				zap.Int("position", i),
				zap.Uint64("block", meta.BlockNumber),
				zap.String("tx", meta.TxHash.Hex()),
				zap.Uint("log_index", meta.LogIndex),
				zap.Error(err),
			)
			metrics.LogErrors.WithLabelValues("project").Inc()
		}
	}

	if forgetter, ok := p.chain.(timestampForgetter); ok {
		forgetter.ForgetTimestampsBelow(from)
	}
	return merged, nil
}

func (p *Processor) filterLogs(ctx context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, "filter_logs", p.logger, func(ctx context.Context) error {
		var err error
		logs, err = p.chain.FilterLogs(ctx, from, to, addresses, topics)
		return err
	})
	return logs, err
}

// poolLogs queries pool logs in address chunks and merges them in chain order.
func (p *Processor) poolLogs(ctx context.Context, from, to uint64, pools []common.Address) ([]types.Log, error) {
	chunks := chunkAddresses(pools, p.cfg.PoolAddressChunk)
	topics := p.poolDec.Topics()
	if len(chunks) == 1 {
		return p.filterLogs(ctx, from, to, chunks[0], topics)
	}

	var out []types.Log
	for _, chunk := range chunks {
		logs, err := p.filterLogs(ctx, from, to, chunk, topics)
		if err != nil {
			return nil, err
		}
		out = append(out, logs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// prefetchTimestamps resolves the distinct block timestamps of logs with
// bounded concurrency.
func (p *Processor) prefetchTimestamps(ctx context.Context, logs []types.Log) (map[uint64]uint64, error) {
	blocks := make(map[uint64]struct{})
	for _, log := range logs {
		blocks[log.BlockNumber] = struct{}{}
	}
	out := make(map[uint64]uint64, len(blocks))
	if len(blocks) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.TimestampConcurrency)
	for block := range blocks {
		block := block
		g.Go(func() error {
			var ts uint64
			err := withRetry(gctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, "block_timestamp", p.logger, func(ctx context.Context) error {
				var err error
				ts, err = p.chain.BlockTimestamp(ctx, block)
				return err
			})
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", block, err)
			}
			mu.Lock()
			out[block] = ts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) skipLog(stage string, log types.Log, err error) {
	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("address", log.Address.Hex()),
		zap.Uint64("block", log.BlockNumber),
		zap.String("tx", log.TxHash.Hex()),
		zap.Uint("log_index", log.Index),
		zap.Error(err),
	}
	var decodeErr *model.DecodeError
	if errors.As(err, &decodeErr) {
		fields = append(fields, zap.String("event", decodeErr.Event))
	}
	p.logger.Warn("skipping log", fields...)
	metrics.LogErrors.WithLabelValues(stage).Inc()
}

func poolEventName(ev model.PoolEvent) string {
	switch ev.(type) {
	case model.TicketPurchased:
		return contracts.EventTicketPurchased
	case model.PoolClosed:
		return contracts.EventPoolClosed
	case model.PrizeClaimed:
		return contracts.EventPrizeClaimed
	default:
		return "unknown"
	}
}
