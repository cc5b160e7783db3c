package pool

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

var errPoolIDsExhausted = errors.New("pool id space exhausted")

// InitializeRegistry creates the registry with its counter at zero. authority is the
// identity paying for and signing the instruction.
func (p *Program) InitializeRegistry(ctx context.Context, authority solana.PublicKey) error {
	if authority.IsZero() {
		return ErrMissingSigner
	}

	txID, err := p.execute(ctx, "initialize_registry", []solana.PublicKey{authority}, func(inv *ledger.Invocation) error {
		_, exists, err := p.load(ctx, inv, p.registryAddr)
		if err != nil {
			return err
		}
		if exists {
			return ErrStateAlreadyInitialized
		}
		return p.put(ctx, inv, p.registryAddr, model.Registry{NextPoolID: 0})
	})
	if err != nil {
		return err
	}

	p.logger.Info("registry initialized",
		zap.String("tx_id", txID.String()),
		zap.Stringer("registry", p.registryAddr),
		zap.Stringer("authority", authority),
	)
	return nil
}

// Registry returns the current registry state.
func (p *Program) Registry(ctx context.Context) (model.Registry, error) {
	var reg model.Registry
	err := p.store.View(ctx, func(r ledger.Reader) error {
		var err error
		reg, err = p.loadRegistry(ctx, r)
		return err
	})
	return reg, err
}

func (p *Program) loadRegistry(ctx context.Context, r ledger.Reader) (model.Registry, error) {
	data, ok, err := p.load(ctx, r, p.registryAddr)
	if err != nil {
		return model.Registry{}, err
	}
	if !ok {
		return model.Registry{}, ErrRegistryNotInitialized
	}
	return model.UnmarshalRegistry(data)
}

// allocatePoolID hands out the current counter and advances it within inv, so the id and
// the pool record it names commit together.
func (p *Program) allocatePoolID(ctx context.Context, inv *ledger.Invocation) (uint64, error) {
	reg, err := p.loadRegistry(ctx, inv)
	if err != nil {
		return 0, err
	}
	if reg.NextPoolID == math.MaxUint64 {
		return 0, errPoolIDsExhausted
	}

	id := reg.NextPoolID
	reg.NextPoolID++
	if err := p.put(ctx, inv, p.registryAddr, reg); err != nil {
		return 0, fmt.Errorf("store registry: %w", err)
	}
	return id, nil
}
