package indexer

import (
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/model"
)

func buildLogMeta(log types.Log, timestamp uint64) model.LogMeta {
	var blockTime time.Time
	if timestamp > 0 {
		blockTime = time.Unix(int64(timestamp), 0).UTC()
	}
	return model.LogMeta{
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}
}
