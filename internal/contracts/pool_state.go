package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"jackpotIndexer/internal/model"
)

// ReadPoolState reads the pool's lifecycle state. The view calls run
// concurrently; any failure fails the whole read.
func ReadPoolState(ctx context.Context, caller Caller, pool common.Address) (model.PoolState, error) {
	if caller == nil {
		return model.PoolState{}, fmt.Errorf("chain caller is nil")
	}
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var state model.PoolState
	g, gctx := errgroup.WithContext(ctx)
	read := func(method string, assign func(interface{}) error) {
		g.Go(func() error {
			values, err := callMethod(gctx, caller, pool, parsed, method)
			if err != nil {
				return err
			}
			if err := assign(values[0]); err != nil {
				return fmt.Errorf("%s: %w", method, err)
			}
			return nil
		})
	}

	read("closed", func(v interface{}) (err error) { state.Closed, err = asBool(v); return })
	read("randomSeedCount", func(v interface{}) (err error) { state.RandomSeedCount, err = asUint8(v); return })
	read("winnersFinalized", func(v interface{}) (err error) { state.WinnersFinalized, err = asBool(v); return })
	read("jackpotPayed", func(v interface{}) (err error) { state.JackpotPaid, err = asBool(v); return })
	read("totalEntries", func(v interface{}) (err error) { state.TotalEntries, err = asBigInt(v); return })
	read("consolationPayoutIndex", func(v interface{}) (err error) { state.ConsolationPayoutIndex, err = asBigInt(v); return })
	read("generatedConsolationWinners", func(v interface{}) (err error) {
		state.GeneratedConsolationWinners, err = asUint32(v)
		return
	})
	read("consolationWinnerBps", func(v interface{}) (err error) { state.ConsolationWinnerBps, err = asBigInt(v); return })

	if err := g.Wait(); err != nil {
		return model.PoolState{}, err
	}
	return state, nil
}

// FinalizeWinnersCall encodes batchFinalizeWinners(iterations).
func FinalizeWinnersCall(iterations uint64) ([]byte, error) {
	return packPoolCall("batchFinalizeWinners", new(big.Int).SetUint64(iterations))
}

// PayJackpotCall encodes payJackpotWinner().
func PayJackpotCall() ([]byte, error) {
	return packPoolCall("payJackpotWinner")
}

// ConsolationPayoutCall encodes batchConsolationPayout(iterations).
func ConsolationPayoutCall(iterations uint64) ([]byte, error) {
	return packPoolCall("batchConsolationPayout", new(big.Int).SetUint64(iterations))
}

// SweepResidualCall encodes sweepResidualToTreasury().
func SweepResidualCall() ([]byte, error) {
	return packPoolCall("sweepResidualToTreasury")
}

func packPoolCall(method string, args ...interface{}) ([]byte, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}
