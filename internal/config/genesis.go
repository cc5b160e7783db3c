package config

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"poolvault/internal/token"
)

// Genesis lists the mints and funded holdings to seed a fresh ledger with.
type Genesis struct {
	Mints []GenesisMint `yaml:"mints"`
}

type GenesisMint struct {
	Address   string           `yaml:"address"`
	Authority string           `yaml:"authority"`
	Decimals  uint8            `yaml:"decimals"`
	Holdings  []GenesisHolding `yaml:"holdings"`
}

type GenesisHolding struct {
	Owner string `yaml:"owner"`
	// Amount is in display units, e.g. "12.5" for a 6-decimal mint.
	Amount string `yaml:"amount"`
}

// LoadGenesis reads a genesis YAML file.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Genesis{}, fmt.Errorf("parse genesis: %w", err)
	}
	if len(g.Mints) == 0 {
		return Genesis{}, fmt.Errorf("genesis %s lists no mints", path)
	}
	return g, nil
}

// TokenMints converts the file into token program genesis entries.
func (g Genesis) TokenMints() ([]token.GenesisMint, error) {
	out := make([]token.GenesisMint, 0, len(g.Mints))
	for i, m := range g.Mints {
		addr, err := solana.PublicKeyFromBase58(m.Address)
		if err != nil {
			return nil, fmt.Errorf("mints[%d].address: %w", i, err)
		}
		authority, err := solana.PublicKeyFromBase58(m.Authority)
		if err != nil {
			return nil, fmt.Errorf("mints[%d].authority: %w", i, err)
		}

		gm := token.GenesisMint{Address: addr, Authority: authority, Decimals: m.Decimals}
		for j, h := range m.Holdings {
			owner, err := solana.PublicKeyFromBase58(h.Owner)
			if err != nil {
				return nil, fmt.Errorf("mints[%d].holdings[%d].owner: %w", i, j, err)
			}
			amount, err := token.ParseAmount(h.Amount, m.Decimals)
			if err != nil {
				return nil, fmt.Errorf("mints[%d].holdings[%d].amount: %w", i, j, err)
			}
			gm.Holdings = append(gm.Holdings, token.GenesisHolding{Owner: owner, Amount: amount})
		}
		out = append(out, gm)
	}
	return out, nil
}
