package pool

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

// CreatedPool is the outcome of CreatePool.
type CreatedPool struct {
	TxID    uuid.UUID
	Address solana.PublicKey
	Pool    model.Pool
}

// CreatePool registers a new pool accepting asset. The asset is not validated here; a
// pool for an unknown asset simply never receives deposits.
func (p *Program) CreatePool(ctx context.Context, creator, asset solana.PublicKey) (CreatedPool, error) {
	if creator.IsZero() {
		return CreatedPool{}, ErrMissingSigner
	}

	var out CreatedPool
	txID, err := p.execute(ctx, "create_pool", []solana.PublicKey{creator}, func(inv *ledger.Invocation) error {
		id, err := p.allocatePoolID(ctx, inv)
		if err != nil {
			return err
		}
		addr, err := p.PoolAddress(id)
		if err != nil {
			return err
		}
		if _, exists, err := inv.Get(ctx, addr); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("pool %d at %s: %w", id, addr, ErrStateAlreadyInitialized)
		}

		pool := model.Pool{
			ID:       id,
			Creator:  creator,
			Asset:    asset,
			IsFrozen: false,
			IsClosed: false,
		}
		if err := p.put(ctx, inv, addr, pool); err != nil {
			return fmt.Errorf("store pool %d: %w", id, err)
		}
		out = CreatedPool{Address: addr, Pool: pool}
		return nil
	})
	if err != nil {
		return CreatedPool{}, err
	}
	out.TxID = txID

	p.metrics.poolsCreated.Inc()
	p.logger.Info("pool created",
		zap.String("tx_id", txID.String()),
		zap.Uint64("pool_id", out.Pool.ID),
		zap.Stringer("pool", out.Address),
		zap.Stringer("creator", creator),
		zap.Stringer("asset", asset),
	)
	p.events.Emit(ctx, txID, model.PoolCreated{
		ID:      out.Pool.ID,
		Creator: out.Pool.Creator,
		Asset:   out.Pool.Asset,
	})
	return out, nil
}

// Pool returns the record of the pool with id.
func (p *Program) Pool(ctx context.Context, id uint64) (model.Pool, error) {
	var pool model.Pool
	err := p.store.View(ctx, func(r ledger.Reader) error {
		var err error
		pool, _, err = p.loadPool(ctx, r, id)
		return err
	})
	return pool, err
}

func (p *Program) loadPool(ctx context.Context, r ledger.Reader, id uint64) (model.Pool, solana.PublicKey, error) {
	addr, err := p.PoolAddress(id)
	if err != nil {
		return model.Pool{}, solana.PublicKey{}, err
	}
	data, ok, err := p.load(ctx, r, addr)
	if err != nil {
		return model.Pool{}, solana.PublicKey{}, err
	}
	if !ok {
		return model.Pool{}, solana.PublicKey{}, fmt.Errorf("pool %d: %w", id, ErrPoolNotFound)
	}
	pool, err := model.UnmarshalPool(data)
	if err != nil {
		return model.Pool{}, solana.PublicKey{}, fmt.Errorf("pool %d: %w", id, err)
	}
	return pool, addr, nil
}
