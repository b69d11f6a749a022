package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Template is a projected factory template row.
type Template struct {
	TemplateID       *big.Int
	TokenAddress     common.Address
	PoolSize         *big.Int
	EntryFee         *big.Int
	Active           bool
	ExistsInContract bool
	ActivePoolID     common.Address
	Created          Provenance
}

// TemplateInfo is the factory's view of a template as returned by getTemplate.
type TemplateInfo struct {
	Token       common.Address
	PoolSize    *big.Int
	EntryFee    *big.Int
	Exists      bool
	Active      bool
	CurrentPool common.Address
}
