package ledger

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// FindProgramAddress derives the off-curve address for seeds under program and its bump.
func FindProgramAddress(program solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(seeds, program)
}

// U64Seed encodes v as an 8-byte little-endian seed.
func U64Seed(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
