// Package pool is the pooled-vault program: a registry issuing pool ids, per-pool
// records, and the deposit protocol that takes assets into custody and mints receipt
// tokens 1:1 under a keyless program authority.
package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

// TokenProgram is the asset transfer and minting capability the program consumes.
type TokenProgram interface {
	AssociatedAddress(owner, mint solana.PublicKey) (solana.PublicKey, error)
	Mint(ctx context.Context, r ledger.Reader, address solana.PublicKey) (model.Mint, bool, error)
	Account(ctx context.Context, r ledger.Reader, address solana.PublicKey) (model.TokenAccount, bool, error)
	InitializeMint(ctx context.Context, inv *ledger.Invocation, auth ledger.Authorization, address, mintAuthority solana.PublicKey, decimals uint8) error
	CreateAssociatedAccount(ctx context.Context, inv *ledger.Invocation, owner, mint solana.PublicKey) (solana.PublicKey, bool, error)
	Transfer(ctx context.Context, inv *ledger.Invocation, auth ledger.Authorization, from, to solana.PublicKey, amount uint64) error
	MintTo(ctx context.Context, inv *ledger.Invocation, auth ledger.Authorization, mint, to solana.PublicKey, amount uint64) error
}

// EventEmitter receives events of committed instructions.
type EventEmitter interface {
	Emit(ctx context.Context, txID uuid.UUID, evts ...model.Event)
}

// Config holds the program identity and its ambient dependencies.
type Config struct {
	ProgramID solana.PublicKey
	Registry  prometheus.Registerer
	Logger    *zap.Logger
}

func (c *Config) validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("config: ProgramID cannot be zero")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return nil
}

// Program executes pool instructions against a ledger store.
type Program struct {
	id      solana.PublicKey
	store   ledger.Store
	tokens  TokenProgram
	events  EventEmitter
	metrics *Metrics
	logger  *zap.Logger

	registryAddr      solana.PublicKey
	mintAuthority     solana.PublicKey
	mintAuthorityBump uint8
}

func NewProgram(cfg Config, store ledger.Store, tokens TokenProgram, emitter EventEmitter) (*Program, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if tokens == nil {
		return nil, errors.New("token program is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}

	registryAddr, _, err := ledger.FindProgramAddress(cfg.ProgramID, registrySeed)
	if err != nil {
		return nil, fmt.Errorf("derive registry: %w", err)
	}
	mintAuthority, bump, err := ledger.FindProgramAddress(cfg.ProgramID, mintAuthoritySeed)
	if err != nil {
		return nil, fmt.Errorf("derive mint authority: %w", err)
	}

	return &Program{
		id:                cfg.ProgramID,
		store:             store,
		tokens:            tokens,
		events:            emitter,
		metrics:           NewMetrics(cfg.Registry),
		logger:            cfg.Logger.With(zap.String("program", cfg.ProgramID.String())),
		registryAddr:      registryAddr,
		mintAuthority:     mintAuthority,
		mintAuthorityBump: bump,
	}, nil
}

// ID returns the program identity.
func (p *Program) ID() solana.PublicKey { return p.id }

// execute runs fn as one atomic invocation and records its outcome.
func (p *Program) execute(
	ctx context.Context,
	instruction string,
	signers []solana.PublicKey,
	fn func(*ledger.Invocation) error,
) (uuid.UUID, error) {
	timer := prometheus.NewTimer(p.metrics.instructionDuration.WithLabelValues(instruction))
	defer timer.ObserveDuration()

	txID, err := ledger.Execute(ctx, p.store, p.id, signers, fn)
	p.metrics.instructionsTotal.WithLabelValues(instruction, errorName(err)).Inc()
	if err != nil {
		p.logger.Warn("instruction rejected",
			zap.String("instruction", instruction),
			zap.String("tx_id", txID.String()),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err),
		)
	}
	return txID, err
}

type accountData interface {
	MarshalAccount() ([]byte, error)
}

func (p *Program) put(ctx context.Context, inv *ledger.Invocation, address solana.PublicKey, v accountData) error {
	data, err := v.MarshalAccount()
	if err != nil {
		return err
	}
	return inv.Put(ctx, ledger.Account{Address: address, Owner: p.id, Data: data})
}

// load returns the data of a program-owned account.
func (p *Program) load(ctx context.Context, r ledger.Reader, address solana.PublicKey) ([]byte, bool, error) {
	acct, ok, err := r.Get(ctx, address)
	if err != nil || !ok {
		return nil, ok, err
	}
	if !acct.Owner.Equals(p.id) {
		return nil, false, fmt.Errorf("%s: %w", address, ledger.ErrAccountOwner)
	}
	return acct.Data, true, nil
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, uuid.UUID, ...model.Event) {}
