// Package memory is an in-process Store with the same semantics as the
// Postgres store. It backs tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"jackpotIndexer/internal/model"
	"jackpotIndexer/internal/storage"
)

type logKey struct {
	txHash   common.Hash
	logIndex uint
}

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu           sync.Mutex
	checkpoints  map[string]uint64
	relayer      map[common.Address]model.RelayerAction
	tokens       map[common.Address]model.TokenMeta
	templates    map[string]model.Template
	pools        map[common.Address]*model.Pool
	participants map[logKey]model.Participant
	winners      map[logKey]model.Winner
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		checkpoints:  make(map[string]uint64),
		relayer:      make(map[common.Address]model.RelayerAction),
		tokens:       make(map[common.Address]model.TokenMeta),
		templates:    make(map[string]model.Template),
		pools:        make(map[common.Address]*model.Pool),
		participants: make(map[logKey]model.Participant),
		winners:      make(map[logKey]model.Winner),
	}
}

func (s *Store) LoadCheckpoint(_ context.Context, key string) (uint64, bool, error) {
	if key == "" {
		return 0, false, fmt.Errorf("state key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.checkpoints[key]
	return block, ok, nil
}

func (s *Store) SaveCheckpoint(_ context.Context, key string, block uint64) error {
	if key == "" {
		return fmt.Errorf("state key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.checkpoints[key]; !ok || block > current {
		s.checkpoints[key] = block
	}
	return nil
}

func (s *Store) ClosedPools(_ context.Context) ([]common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedPools(func(p *model.Pool) bool { return p.Closed }), nil
}

func (s *Store) KnownPools(_ context.Context) ([]common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedPools(nil), nil
}

func (s *Store) sortedPools(keep func(*model.Pool) bool) []common.Address {
	out := make([]common.Address, 0, len(s.pools))
	for id, pool := range s.pools {
		if keep == nil || keep(pool) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func (s *Store) LoadRelayerAction(_ context.Context, pool common.Address) (model.RelayerAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relayer[pool], nil
}

func (s *Store) SaveRelayerAction(_ context.Context, pool common.Address, action model.RelayerAction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relayer[pool].CanAdvanceTo(action) {
		return false, nil
	}
	s.relayer[pool] = action
	return true, nil
}

func (s *Store) TokenExists(_ context.Context, token common.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok, nil
}

func (s *Store) InsertToken(_ context.Context, meta model.TokenMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[meta.Address]; !ok {
		s.tokens[meta.Address] = meta
	}
	return nil
}

// Token returns stored token metadata.
func (s *Store) Token(token common.Address) (model.TokenMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.tokens[token]
	return meta, ok
}

func (s *Store) UpsertTemplate(_ context.Context, tpl model.Template) error {
	if tpl.TemplateID == nil {
		return fmt.Errorf("template id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tpl.TemplateID.String()
	next := tpl
	next.TemplateID = new(big.Int).Set(tpl.TemplateID)
	if current, ok := s.templates[key]; ok && !current.Created.IsZero() {
		next.Created = current.Created
	}
	s.templates[key] = next
	return nil
}

// Template returns a stored template.
func (s *Store) Template(templateID *big.Int) (model.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[templateID.String()]
	return tpl, ok
}

func (s *Store) SetTemplateActive(_ context.Context, templateID *big.Int, active bool) error {
	if templateID == nil {
		return fmt.Errorf("template id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl, ok := s.templates[templateID.String()]; ok {
		tpl.Active = active
		s.templates[templateID.String()] = tpl
	}
	return nil
}

func (s *Store) UpsertPool(_ context.Context, terms model.PoolTerms) error {
	if terms.TemplateID == nil {
		return fmt.Errorf("template id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[terms.PoolID]
	if !ok {
		pool = &model.Pool{
			PoolID:       terms.PoolID,
			Deposited:    new(big.Int),
			TotalEntries: new(big.Int),
		}
		s.pools[terms.PoolID] = pool
	}
	pool.TemplateID = new(big.Int).Set(terms.TemplateID)
	pool.PoolSize = copyOrZero(terms.PoolSize)
	pool.EntryFee = copyOrZero(terms.EntryFee)
	pool.TokenAddress = terms.TokenAddress
	if pool.Created.IsZero() {
		pool.Created = terms.Created
	}
	return nil
}

func (s *Store) RecordParticipant(_ context.Context, p model.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[p.PoolID]
	if !ok {
		return false, storage.ErrPoolNotFound
	}
	key := logKey{txHash: p.TxHash, logIndex: p.LogIndex}
	if _, exists := s.participants[key]; exists {
		return false, nil
	}

	p.Amount = copyOrZero(p.Amount)
	p.Entries = model.Entries(p.Amount, pool.EntryFee)
	s.participants[key] = p

	pool.Deposited = new(big.Int).Add(pool.Deposited, p.Amount)
	pool.TotalEntries = new(big.Int).Add(pool.TotalEntries, p.Entries)
	pool.ParticipantCount = s.distinctParticipants(p.PoolID)
	return true, nil
}

func (s *Store) distinctParticipants(poolID common.Address) uint64 {
	seen := make(map[common.Address]struct{})
	for _, p := range s.participants {
		if p.PoolID == poolID {
			seen[p.Address] = struct{}{}
		}
	}
	return uint64(len(seen))
}

// Participants returns the stored purchases of a pool.
func (s *Store) Participants(poolID common.Address) []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participant
	for _, p := range s.participants {
		if p.PoolID == poolID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out
}

func (s *Store) ClosePool(_ context.Context, c model.PoolClose) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[c.PoolID]
	if !ok || pool.Closed {
		return false, nil
	}
	pool.Closed = true
	pool.JackpotAmount = copyOrNil(c.JackpotAmount)
	pool.ConsolationAmount = copyOrNil(c.ConsolationAmount)
	pool.TreasuryAmount = copyOrNil(c.TreasuryAmount)
	pool.ClosedAt = c.Closed
	return true, nil
}

func (s *Store) RecordWinner(_ context.Context, w model.Winner) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := logKey{txHash: w.TxHash, logIndex: w.LogIndex}
	inserted := false
	if _, exists := s.winners[key]; !exists {
		w.Amount = copyOrZero(w.Amount)
		s.winners[key] = w
		inserted = true
	}

	if w.PrizeType == model.PrizeJackpot {
		if pool, ok := s.pools[w.PoolID]; ok && pool.JackpotWinner == nil {
			winner := w.Address
			pool.JackpotWinner = &winner
			if pool.JackpotAmount == nil {
				pool.JackpotAmount = copyOrZero(w.Amount)
			}
		}
	}
	return inserted, nil
}

// Winners returns the stored claims of a pool.
func (s *Store) Winners(poolID common.Address) []model.Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Winner
	for _, w := range s.winners {
		if w.PoolID == poolID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out
}

func (s *Store) Pool(_ context.Context, id common.Address) (model.Pool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[id]
	if !ok {
		return model.Pool{}, false, nil
	}
	return clonePool(pool), true, nil
}

func (s *Store) RecomputeTotals(_ context.Context, poolID *common.Address) ([]model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type sums struct {
		amount, entries *big.Int
	}
	byPool := make(map[common.Address]*sums)
	for _, p := range s.participants {
		if poolID != nil && p.PoolID != *poolID {
			continue
		}
		agg, ok := byPool[p.PoolID]
		if !ok {
			agg = &sums{amount: new(big.Int), entries: new(big.Int)}
			byPool[p.PoolID] = agg
		}
		agg.amount.Add(agg.amount, p.Amount)
		agg.entries.Add(agg.entries, p.Entries)
	}

	ids := make([]common.Address, 0, len(byPool))
	for id := range byPool {
		if _, ok := s.pools[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })

	out := make([]model.Pool, 0, len(ids))
	for _, id := range ids {
		pool := s.pools[id]
		pool.Deposited = new(big.Int).Set(byPool[id].amount)
		pool.TotalEntries = new(big.Int).Set(byPool[id].entries)
		pool.ParticipantCount = s.distinctParticipants(id)
		out = append(out, clonePool(pool))
	}
	return out, nil
}

func (s *Store) ResetPools(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, pool := range s.pools {
		if pool.Closed {
			continue
		}
		delete(s.pools, id)
		for key, p := range s.participants {
			if p.PoolID == id {
				delete(s.participants, key)
			}
		}
		deleted++
	}
	delete(s.checkpoints, storage.CheckpointKey)
	return deleted, nil
}

func clonePool(pool *model.Pool) model.Pool {
	out := *pool
	out.TemplateID = copyOrNil(pool.TemplateID)
	out.PoolSize = copyOrNil(pool.PoolSize)
	out.EntryFee = copyOrNil(pool.EntryFee)
	out.Deposited = copyOrNil(pool.Deposited)
	out.TotalEntries = copyOrNil(pool.TotalEntries)
	out.JackpotAmount = copyOrNil(pool.JackpotAmount)
	out.ConsolationAmount = copyOrNil(pool.ConsolationAmount)
	out.TreasuryAmount = copyOrNil(pool.TreasuryAmount)
	if pool.JackpotWinner != nil {
		winner := *pool.JackpotWinner
		out.JackpotWinner = &winner
	}
	return out
}

func copyOrNil(value *big.Int) *big.Int {
	if value == nil {
		return nil
	}
	return new(big.Int).Set(value)
}

func copyOrZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(value)
}
