package model

import "github.com/gagliardetto/solana-go"

const (
	EventPoolCreated = "PoolCreated"
	EventPoolDeposit = "PoolDeposit"
)

var (
	PoolCreatedDiscriminator = NewDiscriminator("event", EventPoolCreated)
	PoolDepositDiscriminator = NewDiscriminator("event", EventPoolDeposit)
)

// Event is a notification emitted after a committed state transition.
type Event interface {
	EventName() string
	Discriminator() Discriminator
}

// PoolCreated is emitted once per created pool.
type PoolCreated struct {
	ID      uint64           `json:"id"`
	Creator solana.PublicKey `json:"creator"`
	Asset   solana.PublicKey `json:"asset"`
}

// PoolDeposit is emitted once per successful deposit.
type PoolDeposit struct {
	Amount    uint64           `json:"amount"`
	Depositor solana.PublicKey `json:"depositor"`
	PoolID    uint64           `json:"pool_id"`
}

func (PoolCreated) EventName() string            { return EventPoolCreated }
func (PoolCreated) Discriminator() Discriminator { return PoolCreatedDiscriminator }
func (PoolDeposit) EventName() string            { return EventPoolDeposit }
func (PoolDeposit) Discriminator() Discriminator { return PoolDepositDiscriminator }
