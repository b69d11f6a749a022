package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jackpotIndexer/internal/model"
	"jackpotIndexer/internal/storage"
)

// Store provides Postgres persistence for the projection, checkpoints and
// relayer progress.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadCheckpoint returns the block stored under key.
func (s *Store) LoadCheckpoint(ctx context.Context, key string) (uint64, bool, error) {
	if key == "" {
		return 0, false, fmt.Errorf("state key required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT value FROM indexer_state WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if value < 0 {
		return 0, false, fmt.Errorf("negative checkpoint %d for %s", value, key)
	}
	return uint64(value), true, nil
}

// SaveCheckpoint upserts the block for key, keeping the larger value.
func (s *Store) SaveCheckpoint(ctx context.Context, key string, block uint64) error {
	if key == "" {
		return fmt.Errorf("state key required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = GREATEST(indexer_state.value, EXCLUDED.value), updated_at = now()
	`, key, int64(block))
	return err
}

// ClosedPools returns the ids of every closed pool.
func (s *Store) ClosedPools(ctx context.Context) ([]common.Address, error) {
	return s.poolIDs(ctx, `SELECT pool_id FROM pools WHERE closed = TRUE ORDER BY pool_id`)
}

// KnownPools returns the ids of every projected pool.
func (s *Store) KnownPools(ctx context.Context) ([]common.Address, error) {
	return s.poolIDs(ctx, `SELECT pool_id FROM pools ORDER BY pool_id`)
}

func (s *Store) poolIDs(ctx context.Context, query string) ([]common.Address, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(ids))
	for _, id := range ids {
		if !common.IsHexAddress(id) {
			return nil, fmt.Errorf("invalid pool id %q", id)
		}
		out = append(out, common.HexToAddress(id))
	}
	return out, nil
}

// LoadRelayerAction returns the last recorded action for pool.
func (s *Store) LoadRelayerAction(ctx context.Context, pool common.Address) (model.RelayerAction, error) {
	var action *string
	row := s.pool.QueryRow(ctx, `SELECT last_action FROM relayer_state WHERE pool_id=$1`, pool.Hex())
	if err := row.Scan(&action); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ActionNone, nil
		}
		return model.ActionNone, err
	}
	if action == nil {
		return model.ActionNone, nil
	}
	return model.ParseRelayerAction(*action)
}

// SaveRelayerAction stores action when it keeps the lifecycle order.
func (s *Store) SaveRelayerAction(ctx context.Context, pool common.Address, action model.RelayerAction) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO relayer_state (pool_id, last_action, updated_at)
			VALUES ($1, NULL, now())
			ON CONFLICT (pool_id) DO NOTHING
		`, pool.Hex()); err != nil {
			return err
		}

		var current *string
		if err := tx.QueryRow(ctx, `SELECT last_action FROM relayer_state WHERE pool_id=$1 FOR UPDATE`, pool.Hex()).Scan(&current); err != nil {
			return err
		}
		prev := model.ActionNone
		if current != nil {
			parsed, err := model.ParseRelayerAction(*current)
			if err != nil {
				return err
			}
			prev = parsed
		}
		if !prev.CanAdvanceTo(action) {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE relayer_state SET last_action=$2, updated_at=now() WHERE pool_id=$1
		`, pool.Hex(), string(action)); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// TokenExists matches addresses case-insensitively.
func (s *Store) TokenExists(ctx context.Context, token common.Address) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE LOWER(address) = LOWER($1))`, token.Hex()).Scan(&exists)
	return exists, err
}

// InsertToken stores token metadata once.
func (s *Store) InsertToken(ctx context.Context, meta model.TokenMeta) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (address, symbol, name, decimals, logo_url)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT DO NOTHING
	`, meta.Address.Hex(), meta.Symbol, meta.Name, int16(meta.Decimals), meta.LogoURL)
	return err
}

// UpsertTemplate writes the template terms with first-write-wins provenance.
func (s *Store) UpsertTemplate(ctx context.Context, tpl model.Template) error {
	if tpl.TemplateID == nil {
		return fmt.Errorf("template id required")
	}
	txHash, blockNumber, blockTime := provenanceArgs(tpl.Created)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO templates (
			template_id, token_address, pool_size, entry_fee, active, exists_in_contract,
			active_pool_id, created_tx_hash, created_block_number, created_block_time
		) VALUES ($1::numeric, $2, $3::numeric, $4::numeric, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (template_id) DO UPDATE
		SET token_address = EXCLUDED.token_address,
			pool_size = EXCLUDED.pool_size,
			entry_fee = EXCLUDED.entry_fee,
			active = EXCLUDED.active,
			exists_in_contract = EXCLUDED.exists_in_contract,
			active_pool_id = EXCLUDED.active_pool_id,
			created_tx_hash = COALESCE(templates.created_tx_hash, EXCLUDED.created_tx_hash),
			created_block_number = COALESCE(templates.created_block_number, EXCLUDED.created_block_number),
			created_block_time = COALESCE(templates.created_block_time, EXCLUDED.created_block_time)
	`,
		tpl.TemplateID.String(),
		tpl.TokenAddress.Hex(),
		numericOrZero(tpl.PoolSize),
		numericOrZero(tpl.EntryFee),
		tpl.Active,
		tpl.ExistsInContract,
		addressArg(tpl.ActivePoolID),
		txHash,
		blockNumber,
		blockTime,
	)
	return err
}

// SetTemplateActive updates the active flag of a known template.
func (s *Store) SetTemplateActive(ctx context.Context, templateID *big.Int, active bool) error {
	if templateID == nil {
		return fmt.Errorf("template id required")
	}
	_, err := s.pool.Exec(ctx, `UPDATE templates SET active=$2 WHERE template_id=$1::numeric`, templateID.String(), active)
	return err
}

// UpsertPool creates a pool from its template terms or refreshes the terms.
func (s *Store) UpsertPool(ctx context.Context, terms model.PoolTerms) error {
	if terms.TemplateID == nil {
		return fmt.Errorf("template id required")
	}
	txHash, blockNumber, blockTime := provenanceArgs(terms.Created)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id, template_id, pool_address, pool_size, entry_fee, token_address,
			deposited, total_entries, participant_count, closed, block_time,
			created_tx_hash, created_block_number, created_block_time
		) VALUES ($1, $2::numeric, $1, $3::numeric, $4::numeric, $5, 0, 0, 0, FALSE, now(), $6, $7, $8)
		ON CONFLICT (pool_id) DO UPDATE
		SET template_id = EXCLUDED.template_id,
			pool_size = EXCLUDED.pool_size,
			entry_fee = EXCLUDED.entry_fee,
			token_address = EXCLUDED.token_address,
			created_tx_hash = COALESCE(pools.created_tx_hash, EXCLUDED.created_tx_hash),
			created_block_number = COALESCE(pools.created_block_number, EXCLUDED.created_block_number),
			created_block_time = COALESCE(pools.created_block_time, EXCLUDED.created_block_time)
	`,
		terms.PoolID.Hex(),
		terms.TemplateID.String(),
		numericOrZero(terms.PoolSize),
		numericOrZero(terms.EntryFee),
		terms.TokenAddress.Hex(),
		txHash,
		blockNumber,
		blockTime,
	)
	return err
}

// RecordParticipant inserts the purchase and bumps the pool aggregates in
// one transaction with the pool row locked.
func (s *Store) RecordParticipant(ctx context.Context, p model.Participant) (bool, error) {
	inserted := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var entryFee string
		err := tx.QueryRow(ctx, `SELECT entry_fee::text FROM pools WHERE pool_id=$1 FOR UPDATE`, p.PoolID.Hex()).Scan(&entryFee)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrPoolNotFound
			}
			return err
		}
		fee, err := parseNumeric(entryFee)
		if err != nil {
			return fmt.Errorf("pool entry fee: %w", err)
		}
		amount := numericOrZero(p.Amount)
		entries := model.Entries(p.Amount, fee).String()

		tag, err := tx.Exec(ctx, `
			INSERT INTO participants (
				pool_id, participant_address, amount, entries, tx_hash, block_number, block_time, log_index, created_at
			) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8, $7)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			p.PoolID.Hex(),
			p.Address.Hex(),
			amount,
			entries,
			p.TxHash.Hex(),
			int64(p.BlockNumber),
			timeOrNow(p.BlockTime),
			int32(p.LogIndex),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE pools
			SET deposited = deposited + $2::numeric,
				total_entries = total_entries + $3::numeric,
				participant_count = (
					SELECT COUNT(DISTINCT participant_address) FROM participants WHERE pool_id = $1
				)
			WHERE pool_id = $1
		`, p.PoolID.Hex(), amount, entries); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// ClosePool applies a PoolClosed event once.
func (s *Store) ClosePool(ctx context.Context, c model.PoolClose) (bool, error) {
	txHash, blockNumber, blockTime := provenanceArgs(c.Closed)
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools
		SET closed = TRUE,
			jackpot_amount = $2::numeric,
			consolation_amount = $3::numeric,
			treasury_amount = $4::numeric,
			closed_tx_hash = $5,
			closed_block_number = $6,
			closed_block_time = $7
		WHERE pool_id = $1 AND closed = FALSE
	`,
		c.PoolID.Hex(),
		numericArg(c.JackpotAmount),
		numericArg(c.ConsolationAmount),
		numericArg(c.TreasuryAmount),
		txHash,
		blockNumber,
		blockTime,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecordWinner inserts the claim and, for the jackpot, sets the pool winner.
func (s *Store) RecordWinner(ctx context.Context, w model.Winner) (bool, error) {
	inserted := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO winners (
				pool_id, winner_address, ticket_number, amount, prize_type, tx_hash, block_number, block_time, log_index, created_at
			) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8, $9, $8)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			w.PoolID.Hex(),
			w.Address.Hex(),
			numericArg(w.TicketNumber),
			numericOrZero(w.Amount),
			string(w.PrizeType),
			w.TxHash.Hex(),
			int64(w.BlockNumber),
			timeOrNow(w.BlockTime),
			int32(w.LogIndex),
		)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() > 0

		if w.PrizeType != model.PrizeJackpot {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE pools
			SET jackpot_winner = $2,
				jackpot_amount = COALESCE(jackpot_amount, $3::numeric)
			WHERE pool_id = $1 AND jackpot_winner IS NULL
		`, w.PoolID.Hex(), w.Address.Hex(), numericOrZero(w.Amount))
		return err
	})
	return inserted, err
}

const poolColumns = `
	pool_id, template_id::text, pool_size::text, entry_fee::text, token_address,
	deposited::text, total_entries::text, participant_count, closed, jackpot_winner,
	jackpot_amount::text, consolation_amount::text, treasury_amount::text,
	created_tx_hash, created_block_number, created_block_time,
	closed_tx_hash, closed_block_number, closed_block_time`

// Pool returns one projected pool.
func (s *Store) Pool(ctx context.Context, id common.Address) (model.Pool, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE pool_id=$1`, id.Hex())
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	return pool, true, nil
}

// RecomputeTotals rebuilds deposited, total_entries and participant_count
// from the participants table.
func (s *Store) RecomputeTotals(ctx context.Context, pool *common.Address) ([]model.Pool, error) {
	var poolID *string
	if pool != nil {
		id := pool.Hex()
		poolID = &id
	}
	rows, err := s.pool.Query(ctx, `
		WITH sums AS (
			SELECT pool_id,
				COALESCE(SUM(amount), 0)::numeric AS amt,
				COALESCE(SUM(entries), 0)::numeric AS ent,
				COUNT(DISTINCT participant_address) AS cnt
			FROM participants
			WHERE ($1::text IS NULL OR pool_id = $1)
			GROUP BY pool_id
		)
		UPDATE pools p
		SET deposited = s.amt, total_entries = s.ent, participant_count = s.cnt
		FROM sums s
		WHERE p.pool_id = s.pool_id
		RETURNING `+prefixed("p.", poolColumns), poolID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Pool, error) {
		return scanPool(row)
	})
}

// ResetPools deletes open pools and the global checkpoint.
func (s *Store) ResetPools(ctx context.Context) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM pools WHERE closed = FALSE`)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		_, err = tx.Exec(ctx, `DELETE FROM indexer_state WHERE key=$1`, storage.CheckpointKey)
		return err
	})
	return deleted, err
}

func scanPool(row pgx.Row) (model.Pool, error) {
	var (
		pool              model.Pool
		id                string
		tokenAddress      string
		templateID        string
		poolSize          string
		entryFee          string
		deposited         string
		totalEntries      string
		participantCount  int64
		jackpotWinner     *string
		jackpotAmount     *string
		consolationAmount *string
		treasury          *string
		createdTx         *string
		closedTx          *string
		createdBlock      *int64
		closedBlock       *int64
		createdTime       *time.Time
		closedTime        *time.Time
	)
	if err := row.Scan(
		&id, &templateID, &poolSize, &entryFee, &tokenAddress,
		&deposited, &totalEntries, &participantCount, &pool.Closed, &jackpotWinner,
		&jackpotAmount, &consolationAmount, &treasury,
		&createdTx, &createdBlock, &createdTime,
		&closedTx, &closedBlock, &closedTime,
	); err != nil {
		return model.Pool{}, err
	}

	pool.PoolID = common.HexToAddress(id)
	pool.TokenAddress = common.HexToAddress(tokenAddress)
	pool.ParticipantCount = uint64(participantCount)
	if jackpotWinner != nil {
		winner := common.HexToAddress(*jackpotWinner)
		pool.JackpotWinner = &winner
	}

	var err error
	for _, field := range []struct {
		dst   **big.Int
		value string
	}{
		{&pool.TemplateID, templateID},
		{&pool.PoolSize, poolSize},
		{&pool.EntryFee, entryFee},
		{&pool.Deposited, deposited},
		{&pool.TotalEntries, totalEntries},
	} {
		if *field.dst, err = parseNumeric(field.value); err != nil {
			return model.Pool{}, err
		}
	}
	for _, field := range []struct {
		dst   **big.Int
		value *string
	}{
		{&pool.JackpotAmount, jackpotAmount},
		{&pool.ConsolationAmount, consolationAmount},
		{&pool.TreasuryAmount, treasury},
	} {
		if field.value == nil {
			continue
		}
		if *field.dst, err = parseNumeric(*field.value); err != nil {
			return model.Pool{}, err
		}
	}

	pool.Created = scanProvenance(createdTx, createdBlock, createdTime)
	pool.ClosedAt = scanProvenance(closedTx, closedBlock, closedTime)
	return pool, nil
}
