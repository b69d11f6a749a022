package postgres

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"jackpotIndexer/internal/model"
)

// Amounts travel as decimal text and are cast to NUMERIC in SQL.

func numericArg(value *big.Int) interface{} {
	if value == nil {
		return nil
	}
	return value.String()
}

func numericOrZero(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func parseNumeric(value string) (*big.Int, error) {
	// NUMERIC columns without scale may still render a trailing ".0".
	value = strings.TrimSuffix(strings.TrimSpace(value), ".0")
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric %q", value)
	}
	return out, nil
}

func addressArg(addr common.Address) interface{} {
	if addr == (common.Address{}) {
		return nil
	}
	return addr.Hex()
}

func timeOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}

func provenanceArgs(p model.Provenance) (txHash, blockNumber, blockTime interface{}) {
	if p.IsZero() {
		return nil, nil, nil
	}
	txHash = p.TxHash.Hex()
	blockNumber = int64(p.BlockNumber)
	if !p.BlockTime.IsZero() {
		blockTime = p.BlockTime
	}
	return txHash, blockNumber, blockTime
}

func scanProvenance(txHash *string, blockNumber *int64, blockTime *time.Time) model.Provenance {
	var p model.Provenance
	if txHash != nil {
		p.TxHash = common.HexToHash(*txHash)
	}
	if blockNumber != nil && *blockNumber > 0 {
		p.BlockNumber = uint64(*blockNumber)
	}
	if blockTime != nil {
		p.BlockTime = blockTime.UTC()
	}
	return p
}

// prefixed qualifies every column of a select list with prefix.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
