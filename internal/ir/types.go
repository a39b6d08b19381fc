package ir

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the length of an account address in bytes.
const PubkeySize = 32

// DiscriminatorSize is the length of event discriminators and instruction selectors.
const DiscriminatorSize = 8

// ErrInvalidPubkey is returned when a base58 string does not decode to 32 bytes.
var ErrInvalidPubkey = errors.New("invalid pubkey")

// Pubkey is a 32-byte account address (an ed25519 public key for signers).
type Pubkey [PubkeySize]byte

// ParsePubkey decodes a base58 address.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %q: %v", ErrInvalidPubkey, s, err)
	}
	if len(raw) != PubkeySize {
		return pk, fmt.Errorf("%w: %q decodes to %d bytes, want %d", ErrInvalidPubkey, s, len(raw), PubkeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey is like ParsePubkey but panics on error.
// Use only for compile-time constants and tests.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromBytes copies b into a Pubkey. b must be exactly 32 bytes.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeySize {
		return pk, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPubkey, len(b), PubkeySize)
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form.
func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether every byte is zero.
func (pk Pubkey) IsZero() bool {
	return pk == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler (used by JSON and YAML).
func (pk Pubkey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Discriminator identifies an event type or an instruction on the wire.
type Discriminator [DiscriminatorSize]byte

// String returns the lowercase hex form.
func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of d as a slice.
func (d Discriminator) Bytes() []byte {
	return append([]byte(nil), d[:]...)
}

// ParseDiscriminator parses the 16-character hex form.
func ParseDiscriminator(s string) (Discriminator, error) {
	var d Discriminator
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != DiscriminatorSize {
		return d, fmt.Errorf("invalid discriminator %q: want %d hex bytes", s, DiscriminatorSize)
	}
	copy(d[:], b)
	return d, nil
}

// AccountMeta references one account of an instruction.
//
// IsSigner is authoritative only after the runtime has verified signatures;
// programs read it and never set it.
type AccountMeta struct {
	Pubkey     Pubkey `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// Instruction is a single invocable unit: target program, ordered accounts,
// and opaque data (selector followed by the argument payload).
type Instruction struct {
	ProgramID Pubkey        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}
