package indexer

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= batchSize {
			end = to
		} else {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}

// NextBackfillRange returns the next batch after checkpoint while the target
// is more than threshold blocks ahead. ok is false once the gap is small
// enough to switch to tailing.
func NextBackfillRange(checkpoint, head, finality, threshold, batchSize uint64) (BlockRange, bool) {
	target := finalizedHead(head, finality)
	if target <= checkpoint || target-checkpoint <= threshold || batchSize == 0 {
		return BlockRange{}, false
	}
	to := checkpoint + batchSize
	if to > target {
		to = target
	}
	return BlockRange{From: checkpoint + 1, To: to}, true
}

// finalizedHead is head minus finality, floored at zero.
func finalizedHead(head, finality uint64) uint64 {
	if head < finality {
		return 0
	}
	return head - finality
}
