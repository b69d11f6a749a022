package model

import "math/big"

// PoolState is the live on-chain state the relayer acts on.
type PoolState struct {
	Closed                      bool
	RandomSeedCount             uint8
	WinnersFinalized            bool
	JackpotPaid                 bool
	TotalEntries                *big.Int
	ConsolationPayoutIndex      *big.Int
	GeneratedConsolationWinners uint32
	ConsolationWinnerBps        *big.Int
}

// RandomnessReady reports whether the pool has been seeded.
func (s PoolState) RandomnessReady() bool {
	return s.RandomSeedCount > 0
}
