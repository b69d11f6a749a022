package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"jackpotIndexer/internal/chain"
	"jackpotIndexer/internal/contracts"
	"jackpotIndexer/internal/contracts/contractstest"
	"jackpotIndexer/internal/model"
	"jackpotIndexer/internal/storage/memory"
)

var (
	poolA = contractstest.Address(0xa0)
	poolB = contractstest.Address(0xa1)
	token = contractstest.Address(0xe0)

	errUnconfirmed = fmt.Errorf("%w: 0xabc after 3m0s", chain.ErrConfirmTimeout)
)

type sentTx struct {
	to     common.Address
	method string
	args   []interface{}
}

type fakeSender struct {
	t      *testing.T
	mu     sync.Mutex
	sent   []sentTx
	failTo map[common.Address]bool
	// failErr replaces the default revert error for pools in failTo.
	failErr error
}

func newFakeSender(t *testing.T) *fakeSender {
	return &fakeSender{t: t, failTo: make(map[common.Address]bool)}
}

func (s *fakeSender) SendAndWait(_ context.Context, to common.Address, data []byte) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTo[to] {
		if s.failErr != nil {
			return common.Hash{}, s.failErr
		}
		return common.Hash{}, errors.New("transaction reverted")
	}
	parsed, err := contracts.PoolABI()
	if err != nil {
		s.t.Fatalf("pool abi: %v", err)
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		s.t.Fatalf("unknown selector %x: %v", data[:4], err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		s.t.Fatalf("unpack %s: %v", method.Name, err)
	}
	s.sent = append(s.sent, sentTx{to: to, method: method.Name, args: args})
	return common.BigToHash(big.NewInt(int64(len(s.sent)))), nil
}

func (s *fakeSender) calls() []sentTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentTx(nil), s.sent...)
}

type heldLock struct{}

func (heldLock) TryLock(context.Context) (bool, error) { return false, nil }
func (heldLock) Held() bool                            { return false }
func (heldLock) Unlock(context.Context) error          { return nil }

// expiringLock is granted but reports the lease gone after checks calls to
// Held.
type expiringLock struct {
	checks int
}

func (l *expiringLock) TryLock(context.Context) (bool, error) { return true, nil }

func (l *expiringLock) Held() bool {
	if l.checks == 0 {
		return false
	}
	l.checks--
	return true
}

func (l *expiringLock) Unlock(context.Context) error { return nil }

func closedPool(t *testing.T, store *memory.Store, pool common.Address) {
	t.Helper()
	ctx := context.Background()
	err := store.UpsertPool(ctx, model.PoolTerms{
		PoolID:       pool,
		TemplateID:   big.NewInt(1),
		PoolSize:     big.NewInt(1000),
		EntryFee:     big.NewInt(1),
		TokenAddress: token,
	})
	if err != nil {
		t.Fatalf("upsert pool: %v", err)
	}
	if _, err := store.ClosePool(ctx, model.PoolClose{PoolID: pool, JackpotAmount: big.NewInt(0), ConsolationAmount: big.NewInt(0), TreasuryAmount: big.NewInt(0)}); err != nil {
		t.Fatalf("close pool: %v", err)
	}
}

func seededState() model.PoolState {
	return model.PoolState{
		Closed:                 true,
		RandomSeedCount:        1,
		TotalEntries:           big.NewInt(1000),
		ConsolationPayoutIndex: big.NewInt(0),
		ConsolationWinnerBps:   big.NewInt(500),
	}
}

func newTestRelayer(t *testing.T, chain *contractstest.Chain, store *memory.Store, sender TxSender) *Relayer {
	t.Helper()
	r, err := New(Config{BatchSize: 50}, store, chain, sender, nil, nil)
	if err != nil {
		t.Fatalf("relayer: %v", err)
	}
	return r
}

func TestConsolationTarget(t *testing.T) {
	cases := []struct {
		total, bps int64
		want       int64
	}{
		{1000, 500, 50},
		{0, 500, 0},
		{1, 10000, 0},
		{10, 10000, 9},
		{3, 5000, 1},
		{7, 0, 0},
	}
	for _, tc := range cases {
		got := ConsolationTarget(big.NewInt(tc.total), big.NewInt(tc.bps))
		if got.Int64() != tc.want {
			t.Fatalf("target(%d, %d) = %s, want %d", tc.total, tc.bps, got, tc.want)
		}
	}
}

func TestEvaluateLifecycleOrder(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	store := memory.New()
	sender := newFakeSender(t)
	r := newTestRelayer(t, chain, store, sender)
	closedPool(t, store, poolA)

	state := seededState()
	steps := []struct {
		mutate func(*model.PoolState)
		action model.RelayerAction
		method string
		arg    int64
	}{
		{func(*model.PoolState) {}, model.ActionFinalize, "batchFinalizeWinners", 50},
		{func(s *model.PoolState) { s.WinnersFinalized = true }, model.ActionJackpot, "payJackpotWinner", -1},
		{func(s *model.PoolState) { s.JackpotPaid = true }, model.ActionConsolation, "batchConsolationPayout", 50},
		{func(s *model.PoolState) { s.ConsolationPayoutIndex = big.NewInt(30) }, model.ActionConsolation, "batchConsolationPayout", 20},
		{func(s *model.PoolState) { s.ConsolationPayoutIndex = big.NewInt(50) }, model.ActionCompleted, "sweepResidualToTreasury", -1},
	}
	for i, step := range steps {
		step.mutate(&state)
		chain.SetPoolState(t, poolA, state)

		action, err := r.Evaluate(ctx, poolA)
		if err != nil {
			t.Fatalf("step %d: evaluate: %v", i, err)
		}
		if action != step.action {
			t.Fatalf("step %d: action %q, want %q", i, action, step.action)
		}
		calls := sender.calls()
		last := calls[len(calls)-1]
		if last.to != poolA || last.method != step.method {
			t.Fatalf("step %d: sent %s to %s, want %s", i, last.method, last.to.Hex(), step.method)
		}
		if step.arg >= 0 {
			if got := last.args[0].(*big.Int).Int64(); got != step.arg {
				t.Fatalf("step %d: iterations %d, want %d", i, got, step.arg)
			}
		}
		if stored, _ := store.LoadRelayerAction(ctx, poolA); stored != step.action {
			t.Fatalf("step %d: stored action %q", i, stored)
		}
	}

	// Completed pools are never touched again.
	action, err := r.Evaluate(ctx, poolA)
	if err != nil || action != model.ActionNone {
		t.Fatalf("completed pool should be skipped: %q %v", action, err)
	}
	if got := len(sender.calls()); got != len(steps) {
		t.Fatalf("expected %d transactions, got %d", len(steps), got)
	}
}

func TestEvaluateWaitsForCloseAndSeed(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	store := memory.New()
	sender := newFakeSender(t)
	r := newTestRelayer(t, chain, store, sender)

	for _, state := range []model.PoolState{
		{Closed: false, RandomSeedCount: 1},
		{Closed: true, RandomSeedCount: 0},
	} {
		chain.SetPoolState(t, poolA, state)
		action, err := r.Evaluate(ctx, poolA)
		if err != nil || action != model.ActionNone {
			t.Fatalf("expected no-op for %+v: %q %v", state, action, err)
		}
	}
	if len(sender.calls()) != 0 {
		t.Fatalf("no transaction expected")
	}
}

func TestEvaluateRejectsChangedTotal(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	sender := newFakeSender(t)
	r := newTestRelayer(t, chain, memory.New(), sender)

	state := seededState()
	chain.SetPoolState(t, poolA, state)
	if _, err := r.Evaluate(ctx, poolA); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}

	state.TotalEntries = big.NewInt(1001)
	chain.SetPoolState(t, poolA, state)
	if _, err := r.Evaluate(ctx, poolA); !errors.Is(err, ErrTotalEntriesChanged) {
		t.Fatalf("expected ErrTotalEntriesChanged, got %v", err)
	}
	if got := len(sender.calls()); got != 1 {
		t.Fatalf("changed pool must be skipped, got %d transactions", got)
	}
}

func TestRunOnceIsolatesPoolFailures(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	store := memory.New()
	sender := newFakeSender(t)
	sender.failTo[poolA] = true
	r := newTestRelayer(t, chain, store, sender)

	closedPool(t, store, poolA)
	closedPool(t, store, poolB)
	chain.SetPoolState(t, poolA, seededState())
	chain.SetPoolState(t, poolB, seededState())

	if err := r.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	calls := sender.calls()
	if len(calls) != 1 || calls[0].to != poolB || calls[0].method != "batchFinalizeWinners" {
		t.Fatalf("expected one finalize on poolB, got %+v", calls)
	}
	if stored, _ := store.LoadRelayerAction(ctx, poolA); stored != model.ActionNone {
		t.Fatalf("failed pool must not record progress: %q", stored)
	}
}

func TestRunOnceSkipsWhenBusy(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	store := memory.New()
	sender := newFakeSender(t)
	closedPool(t, store, poolA)
	chain.SetPoolState(t, poolA, seededState())

	r := newTestRelayer(t, chain, store, sender)
	if !r.sem.TryAcquire(1) {
		t.Fatalf("semaphore should be free")
	}
	if err := r.RunOnce(ctx); err != nil {
		t.Fatalf("overlapping run: %v", err)
	}
	r.sem.Release(1)

	leased, err := New(Config{BatchSize: 50}, store, chain, sender, heldLock{}, nil)
	if err != nil {
		t.Fatalf("relayer: %v", err)
	}
	if err := leased.RunOnce(ctx); err != nil {
		t.Fatalf("leased run: %v", err)
	}
	if got := len(sender.calls()); got != 0 {
		t.Fatalf("no transaction expected while busy, got %d", got)
	}
}

func TestRunOnceRetriesUnconfirmedTransaction(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	store := memory.New()
	sender := newFakeSender(t)
	sender.failTo[poolA] = true
	sender.failErr = errUnconfirmed
	r := newTestRelayer(t, chain, store, sender)

	closedPool(t, store, poolA)
	chain.SetPoolState(t, poolA, seededState())

	if err := r.RunOnce(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if stored, _ := store.LoadRelayerAction(ctx, poolA); stored != model.ActionNone {
		t.Fatalf("unconfirmed transaction must not record progress: %q", stored)
	}

	sender.mu.Lock()
	delete(sender.failTo, poolA)
	sender.mu.Unlock()

	if err := r.RunOnce(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	calls := sender.calls()
	if len(calls) != 1 || calls[0].to != poolA || calls[0].method != "batchFinalizeWinners" {
		t.Fatalf("expected finalize resubmitted on poolA, got %+v", calls)
	}
}

func TestRunOnceStopsWhenLeaseLost(t *testing.T) {
	ctx := context.Background()
	chain := contractstest.New()
	store := memory.New()
	sender := newFakeSender(t)

	closedPool(t, store, poolA)
	closedPool(t, store, poolB)
	chain.SetPoolState(t, poolA, seededState())
	chain.SetPoolState(t, poolB, seededState())

	r, err := New(Config{BatchSize: 50}, store, chain, sender, &expiringLock{checks: 1}, nil)
	if err != nil {
		t.Fatalf("relayer: %v", err)
	}
	if err := r.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	calls := sender.calls()
	if len(calls) != 1 || calls[0].to != poolA {
		t.Fatalf("only poolA should be submitted before the lease is lost, got %+v", calls)
	}
	if stored, _ := store.LoadRelayerAction(ctx, poolB); stored != model.ActionNone {
		t.Fatalf("poolB must be left for the next holder: %q", stored)
	}
}
