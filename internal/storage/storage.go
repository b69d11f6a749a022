package storage

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"jackpotIndexer/internal/model"
)

// CheckpointKey is the indexer_state key of the global block cursor.
const CheckpointKey = "last_block"

// ErrPoolNotFound is returned when an event references a pool that has not
// been projected.
var ErrPoolNotFound = errors.New("pool not found")

// CheckpointStore persists named block cursors. Saving never moves a
// cursor backwards.
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, key string) (uint64, bool, error)
	SaveCheckpoint(ctx context.Context, key string, block uint64) error
}

// RelayerStore persists per-pool relayer progress.
type RelayerStore interface {
	ClosedPools(ctx context.Context) ([]common.Address, error)
	LoadRelayerAction(ctx context.Context, pool common.Address) (model.RelayerAction, error)
	// SaveRelayerAction records action if it does not move the pool back.
	// It reports whether the action was stored.
	SaveRelayerAction(ctx context.Context, pool common.Address, action model.RelayerAction) (bool, error)
}

// ProjectionStore receives projected events. Every method is idempotent.
type ProjectionStore interface {
	TokenExists(ctx context.Context, token common.Address) (bool, error)
	// InsertToken stores metadata unless the token is already known.
	InsertToken(ctx context.Context, meta model.TokenMeta) error
	// UpsertTemplate overwrites the template terms. Creation provenance is
	// kept from the first write that carried one.
	UpsertTemplate(ctx context.Context, tpl model.Template) error
	SetTemplateActive(ctx context.Context, templateID *big.Int, active bool) error
	// UpsertPool creates or refreshes a pool from its template terms.
	// Aggregates and close state are never touched.
	UpsertPool(ctx context.Context, terms model.PoolTerms) error
	// RecordParticipant inserts the purchase and, only when the row is new,
	// adds it to the pool aggregates. Entries are derived from the pool's
	// entry fee. Returns ErrPoolNotFound for unknown pools.
	RecordParticipant(ctx context.Context, p model.Participant) (bool, error)
	// ClosePool marks an open pool closed. A closed pool is left as is.
	ClosePool(ctx context.Context, c model.PoolClose) (bool, error)
	// RecordWinner inserts the claim. A jackpot claim also sets the pool's
	// jackpot winner if none is recorded yet.
	RecordWinner(ctx context.Context, w model.Winner) (bool, error)
}

// PoolReader exposes projected pools.
type PoolReader interface {
	KnownPools(ctx context.Context) ([]common.Address, error)
	Pool(ctx context.Context, id common.Address) (model.Pool, bool, error)
}

// AdminStore carries the repair operations of the CLI.
type AdminStore interface {
	// RecomputeTotals rebuilds pool aggregates from participants. A nil
	// pool recomputes every pool with participants.
	RecomputeTotals(ctx context.Context, pool *common.Address) ([]model.Pool, error)
	// ResetPools deletes open pools and the global checkpoint so the next
	// run reimports them.
	ResetPools(ctx context.Context) (int64, error)
}

// Store is the full persistence surface.
type Store interface {
	CheckpointStore
	RelayerStore
	ProjectionStore
	PoolReader
	AdminStore
}
