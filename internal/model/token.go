package model

import "github.com/gagliardetto/solana-go"

var (
	MintDiscriminator         = NewDiscriminator("account", "Mint")
	TokenAccountDiscriminator = NewDiscriminator("account", "TokenAccount")
)

// Mint describes a token type.
type Mint struct {
	MintAuthority solana.PublicKey `json:"mint_authority"`
	Supply        uint64           `json:"supply"`
	Decimals      uint8            `json:"decimals"`
	IsInitialized bool             `json:"is_initialized"`
}

// TokenAccount is a holding of a single mint owned by one identity.
type TokenAccount struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

func (m Mint) MarshalAccount() ([]byte, error) {
	return Encode(MintDiscriminator, m)
}

func UnmarshalMint(data []byte) (Mint, error) {
	var m Mint
	err := Decode(MintDiscriminator, data, &m)
	return m, err
}

func (a TokenAccount) MarshalAccount() ([]byte, error) {
	return Encode(TokenAccountDiscriminator, a)
}

func UnmarshalTokenAccount(data []byte) (TokenAccount, error) {
	var a TokenAccount
	err := Decode(TokenAccountDiscriminator, data, &a)
	return a, err
}
