package ledger

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MemoryStore keeps accounts in memory. Updates are serialized.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[solana.PublicKey]Account)}
}

func (s *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{base: s.accounts})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{base: s.accounts, writes: make(map[solana.PublicKey]Account)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for addr, acct := range tx.writes {
		s.accounts[addr] = acct
	}
	return nil
}

// Len returns the number of stored accounts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *MemoryStore) Close() error { return nil }

type memoryTx struct {
	base   map[solana.PublicKey]Account
	writes map[solana.PublicKey]Account
}

func (t *memoryTx) Get(_ context.Context, address solana.PublicKey) (Account, bool, error) {
	if acct, ok := t.writes[address]; ok {
		return cloneAccount(acct), true, nil
	}
	acct, ok := t.base[address]
	if !ok {
		return Account{}, false, nil
	}
	return cloneAccount(acct), true, nil
}

func (t *memoryTx) Put(_ context.Context, account Account) error {
	t.writes[account.Address] = cloneAccount(account)
	return nil
}
