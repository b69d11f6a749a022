package contractstest

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"jackpotIndexer/internal/contracts"
	"jackpotIndexer/internal/model"
)

// SetPoolState answers the lifecycle views of pool with state.
func (c *Chain) SetPoolState(t testing.TB, pool common.Address, state model.PoolState) {
	t.Helper()
	parsed := mustABI(t, contracts.PoolABI)
	c.SetCall(t, pool, parsed, "closed", state.Closed)
	c.SetCall(t, pool, parsed, "randomSeedCount", state.RandomSeedCount)
	c.SetCall(t, pool, parsed, "winnersFinalized", state.WinnersFinalized)
	c.SetCall(t, pool, parsed, "jackpotPayed", state.JackpotPaid)
	c.SetCall(t, pool, parsed, "totalEntries", orZero(state.TotalEntries))
	c.SetCall(t, pool, parsed, "consolationPayoutIndex", orZero(state.ConsolationPayoutIndex))
	c.SetCall(t, pool, parsed, "generatedConsolationWinners", state.GeneratedConsolationWinners)
	c.SetCall(t, pool, parsed, "consolationWinnerBps", orZero(state.ConsolationWinnerBps))
}

func orZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}
