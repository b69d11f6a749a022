package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/model"
)

// Decoder is the topic set shared by the factory and pool decoders.
type Decoder interface {
	Topics() []common.Hash
	CanDecode(topic0 common.Hash) bool
}

// eventSet maps topic0 hashes of a contract family to ABI events.
type eventSet struct {
	parsed abi.ABI
	byID   map[common.Hash]abi.Event
	topics []common.Hash
}

func newEventSet(parsed abi.ABI, names ...string) (eventSet, error) {
	set := eventSet{
		parsed: parsed,
		byID:   make(map[common.Hash]abi.Event, len(names)),
		topics: make([]common.Hash, 0, len(names)),
	}
	for _, name := range names {
		event, ok := parsed.Events[name]
		if !ok {
			return eventSet{}, fmt.Errorf("event %s missing from abi", name)
		}
		set.byID[event.ID] = event
		set.topics = append(set.topics, event.ID)
	}
	return set, nil
}

// Topics returns the topic0 filter for the family, in declaration order.
func (s eventSet) Topics() []common.Hash {
	out := make([]common.Hash, len(s.topics))
	copy(out, s.topics)
	return out
}

// CanDecode checks if the topic0 is supported.
func (s eventSet) CanDecode(topic0 common.Hash) bool {
	_, ok := s.byID[topic0]
	return ok
}

func (s eventSet) lookup(log types.Log) (abi.Event, bool) {
	if len(log.Topics) == 0 {
		return abi.Event{}, false
	}
	event, ok := s.byID[log.Topics[0]]
	return event, ok
}

// decodeInto parses indexed topics into indexed and returns the non-indexed values.
func decodeInto(event abi.Event, log types.Log, indexed interface{}) ([]interface{}, error) {
	indexedArgs := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexedArgs)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexedArgs)+1, len(log.Topics))
	}
	if indexed != nil && len(indexedArgs) > 0 {
		if err := abi.ParseTopics(indexed, indexedArgs, log.Topics[1:]); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if want := len(event.Inputs.NonIndexed()); len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func decodeError(event abi.Event, log types.Log, err error) error {
	return &model.DecodeError{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Address:     log.Address,
		Event:       event.Name,
		Err:         err,
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func asUint32(value interface{}) (uint32, error) {
	switch v := value.(type) {
	case uint32:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 1<<32-1 {
			return 0, fmt.Errorf("uint32 overflow: %s", v)
		}
		return uint32(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint32 type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return v, nil
}
