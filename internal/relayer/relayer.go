// Package relayer drives closed pools through their payout lifecycle.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"jackpotIndexer/internal/contracts"
	"jackpotIndexer/internal/lock"
	"jackpotIndexer/internal/metrics"
	"jackpotIndexer/internal/model"
	"jackpotIndexer/internal/storage"
)

// ErrTotalEntriesChanged reports a closed pool whose entry count moved.
var ErrTotalEntriesChanged = errors.New("total entries changed after close")

// TxSender submits a transaction and waits for a successful receipt.
type TxSender interface {
	SendAndWait(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
}

// Config holds relayer settings.
type Config struct {
	BatchSize uint64
	Interval  time.Duration
}

// Relayer submits at most one lifecycle transaction per pool per cycle.
type Relayer struct {
	cfg    Config
	store  storage.RelayerStore
	caller contracts.Caller
	sender TxSender
	locker lock.Locker
	logger *zap.Logger

	sem *semaphore.Weighted

	mu        sync.Mutex
	snapshots map[common.Address]*big.Int
}

// New builds a Relayer. A nil locker means no cross-process lease.
func New(cfg Config, store storage.RelayerStore, caller contracts.Caller, sender TxSender, locker lock.Locker, logger *zap.Logger) (*Relayer, error) {
	if store == nil {
		return nil, fmt.Errorf("relayer store is nil")
	}
	if caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("transaction sender is nil")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if locker == nil {
		locker = lock.Local{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relayer{
		cfg:       cfg,
		store:     store,
		caller:    caller,
		sender:    sender,
		locker:    locker,
		logger:    logger,
		sem:       semaphore.NewWeighted(1),
		snapshots: make(map[common.Address]*big.Int),
	}, nil
}

// Run calls RunOnce every interval until ctx is done.
func (r *Relayer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("relayer cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce evaluates every closed pool. It returns immediately while another
// cycle is running here or, with a shared lease, in another process.
func (r *Relayer) RunOnce(ctx context.Context) error {
	if !r.sem.TryAcquire(1) {
		r.logger.Debug("relayer cycle already running")
		return nil
	}
	defer r.sem.Release(1)

	ok, err := r.locker.TryLock(ctx)
	if err != nil {
		metrics.RelayerErrors.WithLabelValues("lock").Inc()
		return fmt.Errorf("acquire relayer lease: %w", err)
	}
	if !ok {
		r.logger.Debug("relayer lease held elsewhere")
		return nil
	}
	defer func() {
		if err := r.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("release relayer lease", zap.Error(err))
		}
	}()

	pools, err := r.store.ClosedPools(ctx)
	if err != nil {
		metrics.RelayerErrors.WithLabelValues("list").Inc()
		return fmt.Errorf("list closed pools: %w", err)
	}

	for _, pool := range pools {
		if ctx.Err() != nil {
			return nil
		}
		if !r.locker.Held() {
			metrics.RelayerErrors.WithLabelValues("lock").Inc()
			r.logger.Warn("relayer lease lost, stopping cycle", zap.String("next_pool", pool.Hex()))
			return nil
		}
		if _, err := r.Evaluate(ctx, pool); err != nil {
			metrics.RelayerErrors.WithLabelValues("evaluate").Inc()
			r.logger.Warn("relayer pool failed", zap.String("pool", pool.Hex()), zap.Error(err))
		}
	}
	return nil
}

// Evaluate submits the next lifecycle step for pool, if any, and returns the
// action recorded.
func (r *Relayer) Evaluate(ctx context.Context, pool common.Address) (model.RelayerAction, error) {
	last, err := r.store.LoadRelayerAction(ctx, pool)
	if err != nil {
		return model.ActionNone, fmt.Errorf("load relayer state: %w", err)
	}
	if last.Terminal() {
		return model.ActionNone, nil
	}

	state, err := contracts.ReadPoolState(ctx, r.caller, pool)
	if err != nil {
		return model.ActionNone, fmt.Errorf("read pool state: %w", err)
	}
	if !state.Closed || !state.RandomnessReady() {
		return model.ActionNone, nil
	}
	if err := r.checkTotalEntries(pool, state.TotalEntries); err != nil {
		return model.ActionNone, err
	}

	action, data, err := r.nextStep(state)
	if err != nil {
		return model.ActionNone, err
	}

	tx, err := r.sender.SendAndWait(ctx, pool, data)
	if err != nil {
		return model.ActionNone, fmt.Errorf("%s transaction: %w", action, err)
	}
	metrics.RelayerActions.WithLabelValues(string(action)).Inc()

	stored, err := r.store.SaveRelayerAction(ctx, pool, action)
	if err != nil {
		return action, fmt.Errorf("record %s: %w", action, err)
	}
	r.logger.Info("relayer action confirmed",
		zap.String("pool", pool.Hex()),
		zap.String("action", string(action)),
		zap.String("tx", tx.Hex()),
		zap.Bool("recorded", stored),
	)
	return action, nil
}

// nextStep picks the one transaction the pool needs now.
func (r *Relayer) nextStep(state model.PoolState) (model.RelayerAction, []byte, error) {
	batch := r.cfg.BatchSize
	switch {
	case !state.WinnersFinalized:
		data, err := contracts.FinalizeWinnersCall(batch)
		return model.ActionFinalize, data, err

	case !state.JackpotPaid:
		data, err := contracts.PayJackpotCall()
		return model.ActionJackpot, data, err
	}

	remaining := ConsolationTarget(state.TotalEntries, state.ConsolationWinnerBps)
	if state.ConsolationPayoutIndex != nil {
		remaining.Sub(remaining, state.ConsolationPayoutIndex)
	}
	if remaining.Sign() > 0 {
		iterations := batch
		if remaining.IsUint64() && remaining.Uint64() < batch {
			iterations = remaining.Uint64()
		}
		data, err := contracts.ConsolationPayoutCall(iterations)
		return model.ActionConsolation, data, err
	}

	data, err := contracts.SweepResidualCall()
	return model.ActionCompleted, data, err
}

// checkTotalEntries remembers the entry count first seen after close and
// rejects any later change.
func (r *Relayer) checkTotalEntries(pool common.Address, total *big.Int) error {
	if total == nil {
		total = new(big.Int)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen, ok := r.snapshots[pool]
	if !ok {
		r.snapshots[pool] = new(big.Int).Set(total)
		return nil
	}
	if seen.Cmp(total) != 0 {
		r.logger.Error("total entries changed after close",
			zap.String("pool", pool.Hex()),
			zap.String("snapshot", seen.String()),
			zap.String("current", total.String()),
		)
		return fmt.Errorf("pool %s: %w", pool.Hex(), ErrTotalEntriesChanged)
	}
	return nil
}

// ConsolationTarget is the number of consolation payouts a pool owes:
// min(total-1, bps*total/10000), or zero for an empty pool.
func ConsolationTarget(total, bps *big.Int) *big.Int {
	if total == nil || total.Sign() < 1 || bps == nil {
		return new(big.Int)
	}
	target := new(big.Int).Mul(bps, total)
	target.Quo(target, big.NewInt(10000))

	ceiling := new(big.Int).Sub(total, big.NewInt(1))
	if target.Cmp(ceiling) > 0 {
		target.Set(ceiling)
	}
	if target.Sign() < 0 {
		target.SetInt64(0)
	}
	return target
}
