package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/model"
)

const (
	EventTemplateRegistered    = "TemplateRegistered"
	EventTemplateStatusUpdated = "TemplateStatusUpdated"
	EventPoolCreated           = "PoolCreated"
)

// FactoryDecoder decodes pool factory events.
type FactoryDecoder struct {
	eventSet
}

// NewFactoryDecoder builds a factory decoder.
func NewFactoryDecoder() (*FactoryDecoder, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	set, err := newEventSet(parsed, EventTemplateRegistered, EventTemplateStatusUpdated, EventPoolCreated)
	if err != nil {
		return nil, err
	}
	return &FactoryDecoder{eventSet: set}, nil
}

// Decode converts a factory log into a typed event. Logs with an unknown
// topic0 yield nil, nil.
func (d *FactoryDecoder) Decode(log types.Log, meta model.LogMeta) (model.FactoryEvent, error) {
	event, ok := d.lookup(log)
	if !ok {
		return nil, nil
	}

	var indexed struct {
		TemplateId *big.Int
	}
	values, err := decodeInto(event, log, &indexed)
	if err != nil {
		return nil, decodeError(event, log, err)
	}
	if indexed.TemplateId == nil {
		return nil, decodeError(event, log, fmt.Errorf("missing template id"))
	}

	switch event.Name {
	case EventTemplateRegistered, EventPoolCreated:
		pool, err := asAddress(values[0])
		if err != nil {
			return nil, decodeError(event, log, err)
		}
		if pool == (common.Address{}) {
			return nil, decodeError(event, log, fmt.Errorf("zero pool address"))
		}
		if event.Name == EventPoolCreated {
			return model.PoolCreated{LogMeta: meta, TemplateID: indexed.TemplateId, Pool: pool}, nil
		}
		return model.TemplateRegistered{LogMeta: meta, TemplateID: indexed.TemplateId, Pool: pool}, nil
	case EventTemplateStatusUpdated:
		active, err := asBool(values[0])
		if err != nil {
			return nil, decodeError(event, log, err)
		}
		return model.TemplateStatusUpdated{LogMeta: meta, TemplateID: indexed.TemplateId, Active: active}, nil
	default:
		return nil, fmt.Errorf("unsupported factory event: %s", event.Name)
	}
}
