package projection

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"jackpotIndexer/internal/contracts"
	"jackpotIndexer/internal/metrics"
	"jackpotIndexer/internal/model"
	"jackpotIndexer/internal/storage"
)

// Projector applies decoded events to the store. Every apply is idempotent,
// so replaying a range leaves the store unchanged.
type Projector struct {
	store   storage.ProjectionStore
	caller  contracts.Caller
	factory common.Address
	tokens  *tokenCache
	logger  *zap.Logger
}

// New builds a projector reading template state from factory through caller.
func New(store storage.ProjectionStore, caller contracts.Caller, factory common.Address, logger *zap.Logger) (*Projector, error) {
	if store == nil {
		return nil, fmt.Errorf("projection store is nil")
	}
	if caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{store: store, caller: caller, factory: factory, tokens: newTokenCache(), logger: logger}, nil
}

// ApplyFactory projects a factory event and returns pool addresses it
// introduced.
func (p *Projector) ApplyFactory(ctx context.Context, ev model.FactoryEvent) ([]common.Address, error) {
	switch e := ev.(type) {
	case model.TemplateRegistered:
		if _, _, err := p.upsertTemplate(ctx, e.TemplateID, model.ProvenanceOf(e.LogMeta)); err != nil {
			return nil, err
		}
		metrics.EventsProjected.WithLabelValues(contracts.EventTemplateRegistered).Inc()
		return []common.Address{e.Pool}, nil

	case model.TemplateStatusUpdated:
		if err := p.store.SetTemplateActive(ctx, e.TemplateID, e.Active); err != nil {
			return nil, fmt.Errorf("set template %s active: %w", e.TemplateID, err)
		}
		metrics.EventsProjected.WithLabelValues(contracts.EventTemplateStatusUpdated).Inc()
		return nil, nil

	case model.PoolCreated:
		info, _, err := p.upsertTemplate(ctx, e.TemplateID, model.ProvenanceOf(e.LogMeta))
		if err != nil {
			return nil, err
		}
		terms := model.PoolTerms{
			PoolID:       e.Pool,
			TemplateID:   e.TemplateID,
			PoolSize:     info.PoolSize,
			EntryFee:     info.EntryFee,
			TokenAddress: info.Token,
			Created:      model.ProvenanceOf(e.LogMeta),
		}
		if err := p.store.UpsertPool(ctx, terms); err != nil {
			return nil, fmt.Errorf("upsert pool %s: %w", e.Pool.Hex(), err)
		}
		p.logger.Info("pool created",
			zap.String("pool", e.Pool.Hex()),
			zap.String("template", e.TemplateID.String()),
			zap.Uint64("block", e.BlockNumber),
		)
		metrics.EventsProjected.WithLabelValues(contracts.EventPoolCreated).Inc()
		return []common.Address{e.Pool}, nil

	default:
		return nil, fmt.Errorf("unsupported factory event %T", ev)
	}
}

// ApplyPool projects a pool event.
func (p *Projector) ApplyPool(ctx context.Context, ev model.PoolEvent) error {
	switch e := ev.(type) {
	case model.TicketPurchased:
		return p.applyTicketPurchased(ctx, e)
	case model.PoolClosed:
		return p.applyPoolClosed(ctx, e)
	case model.PrizeClaimed:
		return p.applyPrizeClaimed(ctx, e)
	default:
		return fmt.Errorf("unsupported pool event %T", ev)
	}
}

func (p *Projector) applyTicketPurchased(ctx context.Context, e model.TicketPurchased) error {
	participant := model.Participant{
		PoolID:      e.Address,
		Address:     e.Account,
		Amount:      e.Amount,
		TxHash:      e.TxHash,
		LogIndex:    e.LogIndex,
		BlockNumber: e.BlockNumber,
		BlockTime:   e.BlockTime,
	}
	inserted, err := p.store.RecordParticipant(ctx, participant)
	if errors.Is(err, storage.ErrPoolNotFound) {
		p.logger.Warn("ticket for unknown pool skipped",
			zap.String("pool", e.Address.Hex()),
			zap.String("tx", e.TxHash.Hex()),
			zap.Uint("log_index", e.LogIndex),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record participant %s@%d: %w", e.TxHash.Hex(), e.LogIndex, err)
	}

	p.logger.Debug("ticket purchased",
		zap.String("pool", e.Address.Hex()),
		zap.String("account", e.Account.Hex()),
		zap.String("amount", e.Amount.String()),
		zap.String("tx", e.TxHash.Hex()),
		zap.Uint("log_index", e.LogIndex),
		zap.Bool("inserted", inserted),
	)
	metrics.EventsProjected.WithLabelValues(contracts.EventTicketPurchased).Inc()
	return nil
}

func (p *Projector) applyPoolClosed(ctx context.Context, e model.PoolClosed) error {
	closed, err := p.store.ClosePool(ctx, model.PoolClose{
		PoolID:            e.Address,
		JackpotAmount:     e.JackpotAmount,
		ConsolationAmount: e.ConsolationAmount,
		TreasuryAmount:    e.TreasuryAmount,
		Closed:            model.ProvenanceOf(e.LogMeta),
	})
	if err != nil {
		return fmt.Errorf("close pool %s: %w", e.Address.Hex(), err)
	}
	if closed {
		p.logger.Info("pool closed",
			zap.String("pool", e.Address.Hex()),
			zap.String("jackpot", e.JackpotAmount.String()),
			zap.String("consolation", e.ConsolationAmount.String()),
			zap.String("tx", e.TxHash.Hex()),
		)
	}
	metrics.EventsProjected.WithLabelValues(contracts.EventPoolClosed).Inc()
	return nil
}

func (p *Projector) applyPrizeClaimed(ctx context.Context, e model.PrizeClaimed) error {
	winner := model.Winner{
		PoolID:       e.Address,
		Address:      e.Winner,
		TicketNumber: e.TicketNumber,
		Amount:       e.Amount,
		PrizeType:    model.PrizeTypeOf(e.RewardType),
		TxHash:       e.TxHash,
		LogIndex:     e.LogIndex,
		BlockNumber:  e.BlockNumber,
		BlockTime:    e.BlockTime,
	}
	inserted, err := p.store.RecordWinner(ctx, winner)
	if err != nil {
		return fmt.Errorf("record winner %s@%d: %w", e.TxHash.Hex(), e.LogIndex, err)
	}
	if inserted {
		p.logger.Info("prize claimed",
			zap.String("pool", e.Address.Hex()),
			zap.String("winner", e.Winner.Hex()),
			zap.String("type", string(winner.PrizeType)),
			zap.String("amount", e.Amount.String()),
		)
	}
	metrics.EventsProjected.WithLabelValues(contracts.EventPrizeClaimed).Inc()
	return nil
}

// upsertTemplate refreshes a template from the factory. Templates the
// factory does not know are skipped and reported with exists=false.
func (p *Projector) upsertTemplate(ctx context.Context, templateID *big.Int, created model.Provenance) (model.TemplateInfo, bool, error) {
	info, err := contracts.FetchTemplate(ctx, p.caller, p.factory, templateID)
	if err != nil {
		return model.TemplateInfo{}, false, fmt.Errorf("get template %s: %w", templateID, err)
	}
	if !info.Exists {
		p.logger.Debug("template not found on factory", zap.String("template", templateID.String()))
		return info, false, nil
	}

	p.EnsureToken(ctx, info.Token)

	tpl := model.Template{
		TemplateID:       templateID,
		TokenAddress:     info.Token,
		PoolSize:         info.PoolSize,
		EntryFee:         info.EntryFee,
		Active:           info.Active,
		ExistsInContract: true,
		ActivePoolID:     info.CurrentPool,
		Created:          created,
	}
	if err := p.store.UpsertTemplate(ctx, tpl); err != nil {
		return info, true, fmt.Errorf("upsert template %s: %w", templateID, err)
	}

	if info.CurrentPool != (common.Address{}) {
		terms := model.PoolTerms{
			PoolID:       info.CurrentPool,
			TemplateID:   templateID,
			PoolSize:     info.PoolSize,
			EntryFee:     info.EntryFee,
			TokenAddress: info.Token,
		}
		if err := p.store.UpsertPool(ctx, terms); err != nil {
			return info, true, fmt.Errorf("upsert current pool %s: %w", info.CurrentPool.Hex(), err)
		}
	}
	return info, true, nil
}

// EnsureToken stores token metadata the first time a token is seen. Failures
// are logged and never block the caller.
func (p *Projector) EnsureToken(ctx context.Context, token common.Address) {
	if p.tokens.Has(token) {
		return
	}
	exists, err := p.store.TokenExists(ctx, token)
	if err != nil {
		p.logger.Warn("token lookup failed", zap.String("token", token.Hex()), zap.Error(err))
		return
	}
	if exists {
		p.tokens.Add(token)
		return
	}

	meta, err := contracts.FetchTokenMeta(ctx, p.caller, token, p.logger)
	if err != nil {
		p.logger.Debug("token metadata incomplete, using defaults", zap.String("token", token.Hex()), zap.Error(err))
	}
	if err := p.store.InsertToken(ctx, meta); err != nil {
		p.logger.Warn("failed to store token metadata", zap.String("token", token.Hex()), zap.Error(err))
		return
	}
	p.tokens.Add(token)
}
