// Package contractstest provides an in-memory chain for tests of packages
// that read logs and call contracts.
package contractstest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/contracts"
)

// GenesisTime is the timestamp of block 0; blocks are 12 seconds apart.
const GenesisTime = uint64(1700000000)

// ErrReverted is returned for calls nobody answers.
var ErrReverted = errors.New("execution reverted")

// FilterCall records one FilterLogs request.
type FilterCall struct {
	From, To  uint64
	Addresses []common.Address
}

// Chain is a scriptable chain backend.
type Chain struct {
	mu          sync.Mutex
	head        uint64
	logs        []types.Log
	responses   map[common.Address]map[string][]byte
	filterFails int
	filterCalls []FilterCall
	callCount   map[string]int
}

func New() *Chain {
	return &Chain{
		responses: make(map[common.Address]map[string][]byte),
		callCount: make(map[string]int),
	}
}

// SetHead moves the chain head.
func (c *Chain) SetHead(head uint64) {
	c.mu.Lock()
	c.head = head
	c.mu.Unlock()
}

// FailNextFilters makes the next n FilterLogs calls fail.
func (c *Chain) FailNextFilters(n int) {
	c.mu.Lock()
	c.filterFails = n
	c.mu.Unlock()
}

// FilterCalls returns every FilterLogs request seen so far.
func (c *Chain) FilterCalls() []FilterCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FilterCall, len(c.filterCalls))
	copy(out, c.filterCalls)
	return out
}

// CallCount returns how often method selector was called on any address.
func (c *Chain) CallCount(parsed abi.ABI, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCount[string(parsed.Methods[method].ID)]
}

// SetCall answers method on to with the packed outputs.
func (c *Chain) SetCall(t testing.TB, to common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("method %s missing from abi", method)
	}
	data, err := m.Outputs.Pack(outputs...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.responses[to] == nil {
		c.responses[to] = make(map[string][]byte)
	}
	c.responses[to][string(m.ID)] = data
}

// AddLogs appends logs to the chain.
func (c *Chain) AddLogs(logs ...types.Log) {
	c.mu.Lock()
	c.logs = append(c.logs, logs...)
	c.mu.Unlock()
}

func (c *Chain) LatestBlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *Chain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return GenesisTime + number*12, nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("invalid call")
	}
	selector := string(msg.Data[:4])
	c.callCount[selector]++
	data, ok := c.responses[*msg.To][selector]
	if !ok {
		return nil, ErrReverted
	}
	return data, nil
}

func (c *Chain) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filterCalls = append(c.filterCalls, FilterCall{From: from, To: to, Addresses: append([]common.Address(nil), addresses...)})
	if c.filterFails > 0 {
		c.filterFails--
		return nil, errors.New("rpc unavailable")
	}

	addrSet := make(map[common.Address]struct{}, len(addresses))
	for _, addr := range addresses {
		addrSet[addr] = struct{}{}
	}
	topicSet := make(map[common.Hash]struct{}, len(topic0))
	for _, topic := range topic0 {
		topicSet[topic] = struct{}{}
	}

	var out []types.Log
	for _, log := range c.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if _, ok := addrSet[log.Address]; len(addrSet) > 0 && !ok {
			continue
		}
		if len(topicSet) > 0 {
			if len(log.Topics) == 0 {
				continue
			}
			if _, ok := topicSet[log.Topics[0]]; !ok {
				continue
			}
		}
		out = append(out, log)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// Template is the getTemplate tuple.
type Template struct {
	Token       common.Address
	PoolSize    *big.Int
	EntryFee    *big.Int
	Exists      bool
	Active      bool
	CurrentPool common.Address
}

// SetTemplate answers getTemplate on the factory. The fake ignores the
// template id argument, so tests register one template at a time.
func (c *Chain) SetTemplate(t testing.TB, factory common.Address, tpl Template) {
	t.Helper()
	parsed, err := contracts.FactoryABI()
	if err != nil {
		t.Fatalf("factory abi: %v", err)
	}
	c.SetCall(t, factory, parsed, "getTemplate", tpl)
}

// SetToken answers the ERC20 metadata calls of token.
func (c *Chain) SetToken(t testing.TB, token common.Address, symbol, name string, decimals uint8) {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(erc20JSON))
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	c.SetCall(t, token, parsed, "symbol", symbol)
	c.SetCall(t, token, parsed, "name", name)
	c.SetCall(t, token, parsed, "decimals", decimals)
}
