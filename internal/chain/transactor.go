package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	// ErrTxReverted is returned when a mined transaction has a failed status.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrConfirmTimeout is returned when no receipt arrives in time.
	ErrConfirmTimeout = errors.New("transaction not confirmed in time")
)

// Transactor signs and submits raw contract calls from a single key.
type Transactor struct {
	client         *Client
	opts           *bind.TransactOpts
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewTransactor parses the hex private key and binds it to the chain ID
// reported by the node. confirmTimeout bounds each wait for a receipt.
func NewTransactor(ctx context.Context, client *Client, hexKey string, confirmTimeout time.Duration, logger *zap.Logger) (*Transactor, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse relayer key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}
	return &Transactor{client: client, opts: opts, confirmTimeout: confirmTimeout, logger: logger}, nil
}

// Address returns the sending account.
func (t *Transactor) Address() common.Address {
	return t.opts.From
}

// Send submits data to the contract at to. Gas, nonce and fees are filled
// in by the node. The whole submission is bounded by the RPC timeout.
func (t *Transactor) Send(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	ctx, cancel := t.client.bound(ctx)
	defer cancel()

	opts := *t.opts
	opts.Context = ctx
	backend := t.client.ethClient
	contract := bind.NewBoundContract(to, abi.ABI{}, backend, backend, backend)
	tx, err := contract.RawTransact(&opts, data)
	if err != nil {
		return nil, fmt.Errorf("send transaction to %s: %w", to.Hex(), err)
	}
	return tx, nil
}

// WaitConfirmed blocks until tx is mined and fails if it reverted. A
// receipt that does not show up within the confirm timeout fails with
// ErrConfirmTimeout; the caller may resubmit on its next cycle.
func (t *Transactor) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, t.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, t.client.ethClient, tx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, tx.Hash().Hex(), t.confirmTimeout)
		}
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// SendAndWait submits data and waits for a successful receipt.
func (t *Transactor) SendAndWait(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	tx, err := t.Send(ctx, to, data)
	if err != nil {
		return common.Hash{}, err
	}
	t.logger.Debug("transaction sent", zap.String("to", to.Hex()), zap.String("tx", tx.Hash().Hex()))
	if _, err := t.WaitConfirmed(ctx, tx); err != nil {
		return tx.Hash(), err
	}
	return tx.Hash(), nil
}
