package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LogMeta locates a decoded event on chain.
type LogMeta struct {
	Address     common.Address
	BlockNumber uint64
	BlockTime   time.Time
	TxHash      common.Hash
	LogIndex    uint
}

// Meta returns the log coordinates of the event.
func (m LogMeta) Meta() LogMeta { return m }

// FactoryEvent is one of TemplateRegistered, TemplateStatusUpdated or PoolCreated.
type FactoryEvent interface {
	Meta() LogMeta
	factoryEvent()
}

// PoolEvent is one of TicketPurchased, PoolClosed or PrizeClaimed.
type PoolEvent interface {
	Meta() LogMeta
	poolEvent()
}

// TemplateRegistered is emitted when the factory registers a pool template.
type TemplateRegistered struct {
	LogMeta
	TemplateID *big.Int
	Pool       common.Address
}

// TemplateStatusUpdated is emitted when a template is enabled or disabled.
type TemplateStatusUpdated struct {
	LogMeta
	TemplateID *big.Int
	Active     bool
}

// PoolCreated is emitted when the factory deploys a pool for a template.
type PoolCreated struct {
	LogMeta
	TemplateID *big.Int
	Pool       common.Address
}

// TicketPurchased is emitted by a pool for every ticket purchase.
type TicketPurchased struct {
	LogMeta
	Account           common.Address
	Amount            *big.Int
	CumulativeEntries *big.Int
}

// PoolClosed is emitted once, when a pool stops accepting entries.
type PoolClosed struct {
	LogMeta
	JackpotAmount     *big.Int
	ConsolationAmount *big.Int
	TreasuryAmount    *big.Int
}

// PrizeClaimed is emitted for each paid jackpot or consolation prize.
type PrizeClaimed struct {
	LogMeta
	Winner       common.Address
	TicketNumber *big.Int
	RewardType   uint8
	Amount       *big.Int
}

func (TemplateRegistered) factoryEvent()    {}
func (TemplateStatusUpdated) factoryEvent() {}
func (PoolCreated) factoryEvent()           {}

func (TicketPurchased) poolEvent() {}
func (PoolClosed) poolEvent()      {}
func (PrizeClaimed) poolEvent()    {}
