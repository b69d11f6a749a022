package contracts

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"jackpotIndexer/internal/model"
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

func callMethod(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// templateTuple mirrors the getTemplate return struct.
type templateTuple struct {
	Token       common.Address
	PoolSize    *big.Int
	EntryFee    *big.Int
	Exists      bool
	Active      bool
	CurrentPool common.Address
}

// FetchTemplate reads a template's current terms from the factory.
func FetchTemplate(ctx context.Context, caller Caller, factory common.Address, templateID *big.Int) (model.TemplateInfo, error) {
	if caller == nil {
		return model.TemplateInfo{}, fmt.Errorf("chain caller is nil")
	}
	parsed, err := FactoryABI()
	if err != nil {
		return model.TemplateInfo{}, fmt.Errorf("parse factory abi: %w", err)
	}

	values, err := callMethod(ctx, caller, factory, parsed, "getTemplate", templateID)
	if err != nil {
		return model.TemplateInfo{}, err
	}
	tpl, ok := abi.ConvertType(values[0], new(templateTuple)).(*templateTuple)
	if !ok {
		return model.TemplateInfo{}, fmt.Errorf("getTemplate: unexpected result type %T", values[0])
	}

	return model.TemplateInfo{
		Token:       tpl.Token,
		PoolSize:    nonNil(tpl.PoolSize),
		EntryFee:    nonNil(tpl.EntryFee),
		Exists:      tpl.Exists,
		Active:      tpl.Active,
		CurrentPool: tpl.CurrentPool,
	}, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Each field that cannot
// be read falls back to its default, so the result is always usable; the
// returned error reports the first failure for logging.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.DefaultTokenMeta(token)
	if caller == nil {
		return meta, fmt.Errorf("chain caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		return meta, err
	}

	var firstErr error
	record := func(field string, err error) {
		logger.Debug("token metadata call failed", zap.String("token", token.Hex()), zap.String("field", field), zap.Error(err))
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", field, err)
		}
	}

	if values, err := callMethod(ctx, caller, token, stringABI, "decimals"); err != nil {
		record("decimals", err)
	} else if decimals, err := asUint8(values[0]); err != nil {
		record("decimals", err)
	} else {
		meta.Decimals = decimals
	}

	if text, err := readText(ctx, caller, token, stringABI, bytes32ABI, "symbol"); err != nil {
		record("symbol", err)
	} else if text != "" {
		meta.Symbol = text
	}

	if text, err := readText(ctx, caller, token, stringABI, bytes32ABI, "name"); err != nil {
		record("name", err)
	} else if text != "" {
		meta.Name = text
	}

	return meta, firstErr
}

func readText(ctx context.Context, caller Caller, token common.Address, stringABI, bytes32ABI abi.ABI, method string) (string, error) {
	values, err := callMethod(ctx, caller, token, stringABI, method)
	if err == nil {
		if text, ok := values[0].(string); ok {
			return text, nil
		}
	}
	values, bytesErr := callMethod(ctx, caller, token, bytes32ABI, method)
	if bytesErr != nil {
		if err != nil {
			return "", err
		}
		return "", bytesErr
	}
	text, ok := bytes32ToString(values[0])
	if !ok {
		return "", fmt.Errorf("unsupported %s type %T", method, values[0])
	}
	return text, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func nonNil(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}
