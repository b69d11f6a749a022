package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/model"
)

const (
	EventTicketPurchased = "TicketPurchased"
	EventPoolClosed      = "PoolClosed"
	EventPrizeClaimed    = "PrizeClaimed"
)

// PoolDecoder decodes events emitted by individual pools.
type PoolDecoder struct {
	eventSet
}

// NewPoolDecoder builds a pool decoder.
func NewPoolDecoder() (*PoolDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	set, err := newEventSet(parsed, EventTicketPurchased, EventPoolClosed, EventPrizeClaimed)
	if err != nil {
		return nil, err
	}
	return &PoolDecoder{eventSet: set}, nil
}

// Decode converts a pool log into a typed event. Logs with an unknown
// topic0 yield nil, nil.
func (d *PoolDecoder) Decode(log types.Log, meta model.LogMeta) (model.PoolEvent, error) {
	event, ok := d.lookup(log)
	if !ok {
		return nil, nil
	}

	var (
		decoded model.PoolEvent
		err     error
	)
	switch event.Name {
	case EventTicketPurchased:
		decoded, err = d.decodeTicketPurchased(log, meta)
	case EventPoolClosed:
		decoded, err = d.decodePoolClosed(log, meta)
	case EventPrizeClaimed:
		decoded, err = d.decodePrizeClaimed(log, meta)
	default:
		return nil, fmt.Errorf("unsupported pool event: %s", event.Name)
	}
	if err != nil {
		return nil, decodeError(event, log, err)
	}
	return decoded, nil
}

func (d *PoolDecoder) decodeTicketPurchased(log types.Log, meta model.LogMeta) (model.PoolEvent, error) {
	var indexed struct {
		Account common.Address
	}
	values, err := decodeInto(d.byID[log.Topics[0]], log, &indexed)
	if err != nil {
		return nil, err
	}

	amount, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	cumulative, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return model.TicketPurchased{
		LogMeta:           meta,
		Account:           indexed.Account,
		Amount:            amount,
		CumulativeEntries: cumulative,
	}, nil
}

func (d *PoolDecoder) decodePoolClosed(log types.Log, meta model.LogMeta) (model.PoolEvent, error) {
	values, err := decodeInto(d.byID[log.Topics[0]], log, nil)
	if err != nil {
		return nil, err
	}

	amounts := make([]*big.Int, 0, 3)
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}

	return model.PoolClosed{
		LogMeta:           meta,
		JackpotAmount:     amounts[0],
		ConsolationAmount: amounts[1],
		TreasuryAmount:    amounts[2],
	}, nil
}

func (d *PoolDecoder) decodePrizeClaimed(log types.Log, meta model.LogMeta) (model.PoolEvent, error) {
	var indexed struct {
		Winner       common.Address
		TicketNumber *big.Int
	}
	values, err := decodeInto(d.byID[log.Topics[0]], log, &indexed)
	if err != nil {
		return nil, err
	}

	rewardType, err := asUint8(values[0])
	if err != nil {
		return nil, err
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return model.PrizeClaimed{
		LogMeta:      meta,
		Winner:       indexed.Winner,
		TicketNumber: indexed.TicketNumber,
		RewardType:   rewardType,
		Amount:       amount,
	}, nil
}
