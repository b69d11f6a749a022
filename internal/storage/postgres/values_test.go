package postgres

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"jackpotIndexer/internal/model"
)

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0", "0", true},
		{"1000000000000000000000", "1000000000000000000000", true},
		{"42.0", "42", true},
		{" 7 ", "7", true},
		{"1.5", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, err := parseNumeric(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("parseNumeric(%q) err=%v", tc.in, err)
		}
		if tc.ok && got.String() != tc.want {
			t.Fatalf("parseNumeric(%q)=%s want %s", tc.in, got, tc.want)
		}
	}
}

func TestNumericArgs(t *testing.T) {
	if numericArg(nil) != nil {
		t.Fatalf("nil amount should map to NULL")
	}
	if numericArg(big.NewInt(5)) != "5" {
		t.Fatalf("amount should map to decimal text")
	}
	if numericOrZero(nil) != "0" {
		t.Fatalf("nil amount should map to zero")
	}
	if addressArg(common.Address{}) != nil {
		t.Fatalf("zero address should map to NULL")
	}
}

func TestProvenanceArgs(t *testing.T) {
	txHash, blockNumber, blockTime := provenanceArgs(model.Provenance{})
	if txHash != nil || blockNumber != nil || blockTime != nil {
		t.Fatalf("zero provenance should map to NULLs")
	}

	ts := time.Unix(1700000000, 0).UTC()
	p := model.Provenance{TxHash: common.HexToHash("0xabc"), BlockNumber: 12, BlockTime: ts}
	txHash, blockNumber, blockTime = provenanceArgs(p)
	if txHash != p.TxHash.Hex() || blockNumber != int64(12) || blockTime != ts {
		t.Fatalf("provenance args mismatch: %v %v %v", txHash, blockNumber, blockTime)
	}

	hash := p.TxHash.Hex()
	number := int64(12)
	back := scanProvenance(&hash, &number, &ts)
	if back != p {
		t.Fatalf("scanned provenance mismatch: %+v", back)
	}
	if !scanProvenance(nil, nil, nil).IsZero() {
		t.Fatalf("NULL provenance should be zero")
	}
}

func TestPrefixedColumns(t *testing.T) {
	got := prefixed("p.", "pool_id, deposited::text,\n\tclosed")
	if got != "p.pool_id, p.deposited::text, p.closed" {
		t.Fatalf("prefixed mismatch: %q", got)
	}
	if strings.Count(prefixed("p.", poolColumns), "p.") != strings.Count(poolColumns, ",")+1 {
		t.Fatalf("every pool column should be qualified")
	}
}
