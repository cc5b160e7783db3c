package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Invocation is one atomic execution of a program instruction.
//
// Signers are the identities the host authenticated for the instruction. The program
// identity is fixed by Execute and cannot be chosen by the instruction itself.
type Invocation struct {
	id      uuid.UUID
	program solana.PublicKey
	tx      Tx
	signers map[solana.PublicKey]struct{}
	closed  bool
}

// Authorization proves that key approved an operation within a single invocation.
// The zero value authorizes nothing.
type Authorization struct {
	inv *Invocation
	key solana.PublicKey
}

// Execute runs fn as one atomic invocation of program against store.
// Authorizations created during fn are void once Execute returns.
func Execute(
	ctx context.Context,
	store Store,
	program solana.PublicKey,
	signers []solana.PublicKey,
	fn func(*Invocation) error,
) (uuid.UUID, error) {
	id := uuid.New()
	err := store.Update(ctx, func(tx Tx) error {
		inv := &Invocation{
			id:      id,
			program: program,
			tx:      tx,
			signers: make(map[solana.PublicKey]struct{}, len(signers)),
		}
		for _, s := range signers {
			inv.signers[s] = struct{}{}
		}
		defer func() { inv.closed = true }()
		return fn(inv)
	})
	return id, err
}

func (inv *Invocation) ID() uuid.UUID             { return inv.id }
func (inv *Invocation) Program() solana.PublicKey { return inv.program }

func (inv *Invocation) IsSigner(key solana.PublicKey) bool {
	_, ok := inv.signers[key]
	return ok
}

func (inv *Invocation) Get(ctx context.Context, address solana.PublicKey) (Account, bool, error) {
	if inv.closed {
		return Account{}, false, ErrInvocationClosed
	}
	return inv.tx.Get(ctx, address)
}

// Put writes account. An existing account keeps its owner: writing it under a
// different owner fails with ErrAccountOwner.
func (inv *Invocation) Put(ctx context.Context, account Account) error {
	if inv.closed {
		return ErrInvocationClosed
	}
	existing, ok, err := inv.tx.Get(ctx, account.Address)
	if err != nil {
		return err
	}
	if ok && !existing.Owner.Equals(account.Owner) {
		return fmt.Errorf("%s: %w", account.Address, ErrAccountOwner)
	}
	return inv.tx.Put(ctx, account)
}

// Authorize returns an authorization for key if key signed the invocation.
func (inv *Invocation) Authorize(key solana.PublicKey) (Authorization, error) {
	if inv.closed {
		return Authorization{}, ErrInvocationClosed
	}
	if !inv.IsSigner(key) {
		return Authorization{}, fmt.Errorf("%s: %w", key, ErrMissingSignature)
	}
	return Authorization{inv: inv, key: key}, nil
}

// SignWithSeeds returns an authorization for the address derived from seeds under the
// invoking program. Seeds must include the bump.
func (inv *Invocation) SignWithSeeds(seeds ...[]byte) (Authorization, error) {
	if inv.closed {
		return Authorization{}, ErrInvocationClosed
	}
	addr, err := solana.CreateProgramAddress(seeds, inv.program)
	if err != nil {
		return Authorization{}, fmt.Errorf("derive signer: %w", err)
	}
	return Authorization{inv: inv, key: addr}, nil
}

// Key returns the authorized identity.
func (a Authorization) Key() solana.PublicKey { return a.key }

// Permits reports whether a authorizes key within the still-open invocation inv.
func (a Authorization) Permits(inv *Invocation, key solana.PublicKey) bool {
	if a.inv == nil || a.inv != inv || inv.closed {
		return false
	}
	return a.key.Equals(key)
}
