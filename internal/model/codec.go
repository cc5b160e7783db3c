package model

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// DiscriminatorSize is the length of the type tag prefixed to every encoded record.
const DiscriminatorSize = 8

// Discriminator is the 8-byte type tag of an encoded account or event.
type Discriminator [DiscriminatorSize]byte

// NewDiscriminator derives the tag for name within namespace ("account" or "event").
func NewDiscriminator(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Encode writes the discriminator followed by the borsh encoding of v.
func Encode(d Discriminator, v interface{}) ([]byte, error) {
	body, err := bin.MarshalBorsh(v)
	if err != nil {
		return nil, fmt.Errorf("borsh encode: %w", err)
	}
	out := make([]byte, 0, DiscriminatorSize+len(body))
	out = append(out, d[:]...)
	return append(out, body...), nil
}

// Decode checks the discriminator of data and borsh-decodes the remainder into v.
func Decode(d Discriminator, data []byte, v interface{}) error {
	if len(data) < DiscriminatorSize {
		return fmt.Errorf("data too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:DiscriminatorSize], d[:]) {
		return fmt.Errorf("discriminator mismatch: %x", data[:DiscriminatorSize])
	}
	if err := bin.UnmarshalBorsh(v, data[DiscriminatorSize:]); err != nil {
		return fmt.Errorf("borsh decode: %w", err)
	}
	return nil
}
