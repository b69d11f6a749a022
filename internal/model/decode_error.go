package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DecodeError records a decode failure for a recognized log.
type DecodeError struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Address     common.Address
	Event       string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at block %d tx %s log %d: %v", e.Event, e.BlockNumber, e.TxHash.Hex(), e.LogIndex, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
