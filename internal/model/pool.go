package model

import "github.com/gagliardetto/solana-go"

var (
	RegistryDiscriminator = NewDiscriminator("account", "State")
	PoolDiscriminator     = NewDiscriminator("account", "Pool")
)

// RegistrySize is the encoded size of a Registry account including its discriminator.
const RegistrySize = DiscriminatorSize + 8

// PoolSize is the encoded size of a Pool account: id, creator, asset, is_closed, is_frozen.
const PoolSize = DiscriminatorSize + 8 + 32 + 32 + 1 + 1

// Registry is the program-wide pool id counter.
type Registry struct {
	NextPoolID uint64 `json:"next_pool_id"`
}

// Pool is the per-pool state record.
type Pool struct {
	ID       uint64           `json:"id"`
	Creator  solana.PublicKey `json:"creator"`
	Asset    solana.PublicKey `json:"asset"`
	IsClosed bool             `json:"is_closed"`
	IsFrozen bool             `json:"is_frozen"`
}

func (r Registry) MarshalAccount() ([]byte, error) {
	return Encode(RegistryDiscriminator, r)
}

func UnmarshalRegistry(data []byte) (Registry, error) {
	var r Registry
	err := Decode(RegistryDiscriminator, data, &r)
	return r, err
}

func (p Pool) MarshalAccount() ([]byte, error) {
	return Encode(PoolDiscriminator, p)
}

func UnmarshalPool(data []byte) (Pool, error) {
	var p Pool
	err := Decode(PoolDiscriminator, data, &p)
	return p, err
}
