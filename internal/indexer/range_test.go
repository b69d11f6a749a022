package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestNextBackfillRangeSchedule(t *testing.T) {
	var (
		checkpoint uint64
		got        []BlockRange
	)
	for {
		next, ok := NextBackfillRange(checkpoint, 10000, 0, 2000, 500)
		if !ok {
			break
		}
		got = append(got, next)
		checkpoint = next.To
	}

	if len(got) != 16 {
		t.Fatalf("expected 16 batches, got %d", len(got))
	}
	if got[0] != (BlockRange{From: 1, To: 500}) || got[1] != (BlockRange{From: 501, To: 1000}) {
		t.Fatalf("first batches mismatch: %+v", got[:2])
	}
	if checkpoint != 8000 {
		t.Fatalf("backfill should stop at 8000, got %d", checkpoint)
	}
}

func TestNextBackfillRangeEdges(t *testing.T) {
	cases := []struct {
		name                                  string
		checkpoint, head, finality, threshold uint64
		batch                                 uint64
		want                                  BlockRange
		ok                                    bool
	}{
		{name: "clamped to target", checkpoint: 0, head: 120, finality: 10, threshold: 0, batch: 500, want: BlockRange{From: 1, To: 110}, ok: true},
		{name: "finality above head", checkpoint: 0, head: 5, finality: 10, threshold: 0, batch: 500},
		{name: "checkpoint ahead of target", checkpoint: 200, head: 100, batch: 500},
		{name: "gap equals threshold", checkpoint: 100, head: 2100, threshold: 2000, batch: 500},
		{name: "zero batch", checkpoint: 0, head: 5000, batch: 0},
	}
	for _, tc := range cases {
		got, ok := NextBackfillRange(tc.checkpoint, tc.head, tc.finality, tc.threshold, tc.batch)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: got %+v %v want %+v %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
