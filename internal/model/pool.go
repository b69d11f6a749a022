package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Provenance records the transaction and block that produced a row.
// A zero value means unknown and is stored as NULL.
type Provenance struct {
	TxHash      common.Hash
	BlockNumber uint64
	BlockTime   time.Time
}

// IsZero reports whether no provenance is known.
func (p Provenance) IsZero() bool {
	return p.TxHash == (common.Hash{}) && p.BlockNumber == 0
}

// ProvenanceOf returns the provenance of a decoded log.
func ProvenanceOf(meta LogMeta) Provenance {
	return Provenance{TxHash: meta.TxHash, BlockNumber: meta.BlockNumber, BlockTime: meta.BlockTime}
}

// Pool is a projected pool row. The pool id is the contract address.
type Pool struct {
	PoolID            common.Address
	TemplateID        *big.Int
	PoolSize          *big.Int
	EntryFee          *big.Int
	TokenAddress      common.Address
	Deposited         *big.Int
	TotalEntries      *big.Int
	ParticipantCount  uint64
	Closed            bool
	JackpotWinner     *common.Address
	JackpotAmount     *big.Int
	ConsolationAmount *big.Int
	TreasuryAmount    *big.Int
	Created           Provenance
	ClosedAt          Provenance
}

// PoolTerms are the template terms a pool is created with.
type PoolTerms struct {
	PoolID       common.Address
	TemplateID   *big.Int
	PoolSize     *big.Int
	EntryFee     *big.Int
	TokenAddress common.Address
	Created      Provenance
}

// PoolClose carries the amounts and provenance of a PoolClosed event.
type PoolClose struct {
	PoolID            common.Address
	JackpotAmount     *big.Int
	ConsolationAmount *big.Int
	TreasuryAmount    *big.Int
	Closed            Provenance
}
