package indexer

import (
	"context"
	"errors"
	"testing"

	"jackpotIndexer/internal/storage"
	"jackpotIndexer/internal/storage/memory"
)

func TestCheckpointLoadAndAdvance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	start := uint64(100)

	cp := NewCheckpoint(store, "")
	got, err := cp.Load(ctx, &start)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 100 || cp.Last() != 100 {
		t.Fatalf("start block should become the cursor, got %d", got)
	}
	// Nothing is persisted until a range commits.
	if _, ok, _ := store.LoadCheckpoint(ctx, storage.CheckpointKey); ok {
		t.Fatalf("start block must not be persisted on load")
	}

	for _, block := range []uint64{150, 90, 150} {
		if err := cp.Advance(ctx, block); err != nil {
			t.Fatalf("advance %d: %v", block, err)
		}
	}
	if cp.Last() != 150 {
		t.Fatalf("checkpoint moved backwards: %d", cp.Last())
	}

	reloaded := NewCheckpoint(store, storage.CheckpointKey)
	got, err = reloaded.Load(ctx, &start)
	if err != nil || got != 150 {
		t.Fatalf("stored checkpoint should win over start block: %d %v", got, err)
	}
}

func TestCheckpointNoStartBlock(t *testing.T) {
	_, err := NewCheckpoint(memory.New(), "").Load(context.Background(), nil)
	if !errors.Is(err, ErrNoStartBlock) {
		t.Fatalf("expected ErrNoStartBlock, got %v", err)
	}
}
