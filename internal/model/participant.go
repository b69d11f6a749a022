package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PrizeType distinguishes the jackpot from consolation prizes.
type PrizeType string

const (
	PrizeJackpot     PrizeType = "jackpot"
	PrizeConsolation PrizeType = "consolation"
)

// PrizeTypeOf maps a PrizeClaimed reward type code to a PrizeType.
func PrizeTypeOf(rewardType uint8) PrizeType {
	if rewardType == 0 {
		return PrizeJackpot
	}
	return PrizeConsolation
}

// Participant is one ticket purchase. (TxHash, LogIndex) is unique.
type Participant struct {
	PoolID      common.Address
	Address     common.Address
	Amount      *big.Int
	Entries     *big.Int
	TxHash      common.Hash
	LogIndex    uint
	BlockNumber uint64
	BlockTime   time.Time
}

// Winner is one prize claim. (TxHash, LogIndex) is unique.
type Winner struct {
	PoolID       common.Address
	Address      common.Address
	TicketNumber *big.Int
	Amount       *big.Int
	PrizeType    PrizeType
	TxHash       common.Hash
	LogIndex     uint
	BlockNumber  uint64
	BlockTime    time.Time
}

// Entries returns floor(amount / entryFee), or zero when entryFee is zero.
func Entries(amount, entryFee *big.Int) *big.Int {
	if amount == nil || entryFee == nil || entryFee.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(amount, entryFee)
}
