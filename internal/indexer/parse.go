package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// DedupeAddresses drops repeated addresses, keeping the first occurrence and
// the input order. Addresses compare by value, so hex case never matters.
func DedupeAddresses(inputs []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(inputs))
	out := make([]common.Address, 0, len(inputs))
	for _, addr := range inputs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// chunkAddresses splits addresses into groups of at most size.
func chunkAddresses(addresses []common.Address, size int) [][]common.Address {
	if size <= 0 || len(addresses) <= size {
		return [][]common.Address{addresses}
	}
	chunks := make([][]common.Address, 0, (len(addresses)+size-1)/size)
	for start := 0; start < len(addresses); start += size {
		end := start + size
		if end > len(addresses) {
			end = len(addresses)
		}
		chunks = append(chunks, addresses[start:end])
	}
	return chunks
}
