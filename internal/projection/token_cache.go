package projection

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// tokenCache remembers tokens already stored so repeated template refreshes
// skip the database lookup.
type tokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]struct{}
}

func newTokenCache() *tokenCache {
	return &tokenCache{data: make(map[common.Address]struct{})}
}

func (c *tokenCache) Has(address common.Address) bool {
	c.mu.RLock()
	_, ok := c.data[address]
	c.mu.RUnlock()
	return ok
}

func (c *tokenCache) Add(address common.Address) {
	c.mu.Lock()
	c.data[address] = struct{}{}
	c.mu.Unlock()
}
