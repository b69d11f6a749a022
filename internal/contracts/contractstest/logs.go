package contractstest

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/contracts"
)

const erc20JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Position places a log on chain.
type Position struct {
	Block uint64
	Tx    common.Hash
	Index uint
}

// At is shorthand for a position whose tx hash derives from block and index.
func At(block uint64, index uint) Position {
	return Position{
		Block: block,
		Tx:    common.BigToHash(new(big.Int).SetUint64(block<<16 | uint64(index))),
		Index: index,
	}
}

func buildLog(t testing.TB, parsed abi.ABI, address common.Address, name string, pos Position, indexed []common.Hash, values ...interface{}) types.Log {
	t.Helper()
	event, ok := parsed.Events[name]
	if !ok {
		t.Fatalf("event %s missing from abi", name)
	}
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	topics := append([]common.Hash{event.ID}, indexed...)
	return types.Log{
		Address:     address,
		Topics:      topics,
		Data:        data,
		BlockNumber: pos.Block,
		TxHash:      pos.Tx,
		Index:       pos.Index,
	}
}

func mustABI(t testing.TB, load func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := load()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	return parsed
}

func uintTopic(value uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(value))
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// TemplateRegisteredLog builds a factory TemplateRegistered log.
func TemplateRegisteredLog(t testing.TB, factory common.Address, pos Position, templateID uint64, pool common.Address) types.Log {
	return buildLog(t, mustABI(t, contracts.FactoryABI), factory, contracts.EventTemplateRegistered, pos,
		[]common.Hash{uintTopic(templateID)}, pool)
}

// TemplateStatusLog builds a factory TemplateStatusUpdated log.
func TemplateStatusLog(t testing.TB, factory common.Address, pos Position, templateID uint64, active bool) types.Log {
	return buildLog(t, mustABI(t, contracts.FactoryABI), factory, contracts.EventTemplateStatusUpdated, pos,
		[]common.Hash{uintTopic(templateID)}, active)
}

// PoolCreatedLog builds a factory PoolCreated log.
func PoolCreatedLog(t testing.TB, factory common.Address, pos Position, templateID uint64, pool common.Address) types.Log {
	return buildLog(t, mustABI(t, contracts.FactoryABI), factory, contracts.EventPoolCreated, pos,
		[]common.Hash{uintTopic(templateID)}, pool)
}

// TicketLog builds a pool TicketPurchased log.
func TicketLog(t testing.TB, pool common.Address, pos Position, account common.Address, amount, cumulative int64) types.Log {
	return buildLog(t, mustABI(t, contracts.PoolABI), pool, contracts.EventTicketPurchased, pos,
		[]common.Hash{addressTopic(account)}, big.NewInt(amount), big.NewInt(cumulative))
}

// PoolClosedLog builds a pool PoolClosed log.
func PoolClosedLog(t testing.TB, pool common.Address, pos Position, jackpot, consolation, treasury int64) types.Log {
	return buildLog(t, mustABI(t, contracts.PoolABI), pool, contracts.EventPoolClosed, pos,
		nil, big.NewInt(jackpot), big.NewInt(consolation), big.NewInt(treasury))
}

// PrizeLog builds a pool PrizeClaimed log.
func PrizeLog(t testing.TB, pool common.Address, pos Position, winner common.Address, ticket uint64, rewardType uint8, amount int64) types.Log {
	return buildLog(t, mustABI(t, contracts.PoolABI), pool, contracts.EventPrizeClaimed, pos,
		[]common.Hash{addressTopic(winner), uintTopic(ticket)}, rewardType, big.NewInt(amount))
}

// Address returns a deterministic address for n.
func Address(n uint64) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", n))
}
