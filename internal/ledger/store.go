// Package ledger is the account substrate the programs run on: keyed account storage,
// atomic invocations and program-derived addresses.
package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvocationClosed = errors.New("invocation is closed")
	ErrMissingSignature = errors.New("missing required signature")
	ErrAccountOwner     = errors.New("account is owned by another program")
)

// Account is a keyed record in the substrate. Owner is the program allowed to write Data.
type Account struct {
	Address solana.PublicKey
	Owner   solana.PublicKey
	Data    []byte
}

// Reader reads accounts.
type Reader interface {
	Get(ctx context.Context, address solana.PublicKey) (Account, bool, error)
}

// Tx is a read-write view whose writes become visible only if the enclosing Update succeeds.
type Tx interface {
	Reader
	Put(ctx context.Context, account Account) error
}

// Store persists accounts and runs atomic updates.
//
// Update must apply every Put made by fn, or none of them when fn returns an error.
// Implementations serialize or reject conflicting concurrent updates.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

func cloneAccount(a Account) Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	a.Data = data
	return a
}
