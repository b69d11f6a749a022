package model

import (
	"math/big"
	"testing"
)

func TestEntries(t *testing.T) {
	cases := []struct {
		amount   int64
		entryFee int64
		want     int64
	}{
		{amount: 250, entryFee: 100, want: 2},
		{amount: 100, entryFee: 100, want: 1},
		{amount: 99, entryFee: 100, want: 0},
		{amount: 250, entryFee: 0, want: 0},
	}

	for _, tc := range cases {
		got := Entries(big.NewInt(tc.amount), big.NewInt(tc.entryFee))
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("entries(%d, %d) = %s, want %d", tc.amount, tc.entryFee, got, tc.want)
		}
	}

	if got := Entries(big.NewInt(10), nil); got.Sign() != 0 {
		t.Fatalf("nil entry fee should yield zero entries, got %s", got)
	}
}

func TestEntriesLargeAmounts(t *testing.T) {
	amount, _ := new(big.Int).SetString("250000000000000000000", 10)
	fee, _ := new(big.Int).SetString("100000000000000000000", 10)

	if got := Entries(amount, fee); got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("entries mismatch: %s", got)
	}
}

func TestPrizeTypeOf(t *testing.T) {
	if PrizeTypeOf(0) != PrizeJackpot {
		t.Fatalf("reward type 0 should be jackpot")
	}
	for _, code := range []uint8{1, 2, 255} {
		if PrizeTypeOf(code) != PrizeConsolation {
			t.Fatalf("reward type %d should be consolation", code)
		}
	}
}
