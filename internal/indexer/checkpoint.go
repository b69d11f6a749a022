package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"jackpotIndexer/internal/metrics"
	"jackpotIndexer/internal/storage"
)

// ErrNoStartBlock is returned when neither a stored checkpoint nor a start
// block is available.
var ErrNoStartBlock = errors.New("no checkpoint found and start block not set")

// Checkpoint is the in-process view of the persisted block cursor. It only
// moves forward.
type Checkpoint struct {
	store storage.CheckpointStore
	key   string

	mu   sync.Mutex
	last uint64
}

func NewCheckpoint(store storage.CheckpointStore, key string) *Checkpoint {
	if key == "" {
		key = storage.CheckpointKey
	}
	return &Checkpoint{store: store, key: key}
}

// Load reads the stored cursor. Without one, startBlock becomes the cursor,
// so the first processed block is startBlock+1.
func (c *Checkpoint) Load(ctx context.Context, startBlock *uint64) (uint64, error) {
	block, ok, err := c.store.LoadCheckpoint(ctx, c.key)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		if startBlock == nil {
			return 0, ErrNoStartBlock
		}
		block = *startBlock
	}

	c.mu.Lock()
	c.last = block
	c.mu.Unlock()
	metrics.Checkpoint.Set(float64(block))
	return block, nil
}

// Last returns the last committed block.
func (c *Checkpoint) Last() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Advance persists block as the new cursor. Blocks at or below the current
// cursor are ignored.
func (c *Checkpoint) Advance(ctx context.Context, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if block <= c.last {
		return nil
	}
	if err := c.store.SaveCheckpoint(ctx, c.key, block); err != nil {
		return fmt.Errorf("save checkpoint %d: %w", block, err)
	}
	c.last = block
	metrics.Checkpoint.Set(float64(block))
	return nil
}
