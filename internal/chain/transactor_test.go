package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// pendingEth answers receipt lookups as if the transaction was never mined.
type pendingEth struct{}

func (pendingEth) GetTransactionReceipt(common.Hash) (*types.Receipt, error) {
	return nil, nil
}

func newInProcClient(t *testing.T, service interface{}, timeout time.Duration) *Client {
	t.Helper()
	server := rpc.NewServer()
	if err := server.RegisterName("eth", service); err != nil {
		t.Fatalf("register eth service: %v", err)
	}
	client := newClient(rpc.DialInProc(server), timeout)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

func TestWaitConfirmedTimesOut(t *testing.T) {
	client := newInProcClient(t, pendingEth{}, 100*time.Millisecond)
	transactor := &Transactor{client: client, confirmTimeout: 200 * time.Millisecond, logger: zap.NewNop()}
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000})

	done := make(chan error, 1)
	go func() {
		_, err := transactor.WaitConfirmed(context.Background(), tx)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrConfirmTimeout) {
			t.Fatalf("expected ErrConfirmTimeout, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("WaitConfirmed ignored its confirm timeout")
	}
}

func TestWaitConfirmedKeepsCallerCancellation(t *testing.T) {
	client := newInProcClient(t, pendingEth{}, 100*time.Millisecond)
	transactor := &Transactor{client: client, confirmTimeout: time.Hour, logger: zap.NewNop()}
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := transactor.WaitConfirmed(ctx, tx)
	if err == nil || errors.Is(err, ErrConfirmTimeout) {
		t.Fatalf("caller cancellation should not look like a confirm timeout: %v", err)
	}
}
