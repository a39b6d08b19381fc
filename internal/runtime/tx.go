package runtime

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
)

// keyDomain separates derived key seeds from any other SHA-256 use.
const keyDomain = "eventprog/key/v1"

var (
	// ErrEmptyTransaction is returned for a transaction with no instructions.
	ErrEmptyTransaction = errors.New("runtime: transaction has no instructions")

	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("runtime: invalid signature")

	// ErrProgramNotFound is returned when an instruction targets an unregistered program.
	ErrProgramNotFound = errors.New("runtime: program not found")

	// ErrDuplicateProgram is returned when two processors share an ID.
	ErrDuplicateProgram = errors.New("runtime: program already registered")

	// ErrAlreadyProcessed is returned when a transaction's first signature
	// has been executed before.
	ErrAlreadyProcessed = errors.New("runtime: transaction already processed")

	// ErrFutureSlot is returned when RecentSlot is ahead of the runtime clock.
	ErrFutureSlot = errors.New("runtime: recent slot is ahead of the clock")
)

// DeriveKey derives a deterministic ed25519 key from a label.
// For local tooling and tests only: anyone who knows the label has the key.
func DeriveKey(label string) ed25519.PrivateKey {
	h := sha256.New()
	h.Write([]byte(keyDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(label))
	return ed25519.NewKeyFromSeed(h.Sum(nil))
}

// PubkeyOf returns the address of an ed25519 private key.
func PubkeyOf(key ed25519.PrivateKey) ir.Pubkey {
	var pk ir.Pubkey
	copy(pk[:], key.Public().(ed25519.PublicKey))
	return pk
}

// Signature is one signer's ed25519 signature over the transaction message.
type Signature struct {
	Signer ir.Pubkey
	Sig    []byte
}

// Transaction is an ordered, atomic list of instructions plus signatures.
//
// RecentSlot is the last slot the sender observed. It is covered by every
// signature, so resubmitting the same instructions after the clock moves
// yields a new transaction ID.
type Transaction struct {
	RecentSlot   int64
	Instructions []ir.Instruction
	Signatures   []Signature
}

// NewTransaction creates an unsigned transaction.
func NewTransaction(instructions ...ir.Instruction) *Transaction {
	return &Transaction{Instructions: instructions}
}

// Message returns the bytes every signature covers:
//
//	[u64 recent_slot][u8 count] then per instruction:
//	[program_id 32][u8 account count][per account: pubkey 32, u8 flags][u32 len + data]
//
// flags bit 0 = claimed signer, bit 1 = writable.
func (tx *Transaction) Message() ([]byte, error) {
	if tx.RecentSlot < 0 {
		return nil, fmt.Errorf("runtime: negative recent slot %d", tx.RecentSlot)
	}
	if len(tx.Instructions) > 255 {
		return nil, fmt.Errorf("runtime: %d instructions exceeds 255", len(tx.Instructions))
	}
	w := codec.NewWriter()
	w.WriteU64(uint64(tx.RecentSlot))
	w.WriteU8(uint8(len(tx.Instructions)))
	for i, ix := range tx.Instructions {
		if len(ix.Accounts) > 255 {
			return nil, fmt.Errorf("runtime: instruction %d has %d accounts, max 255", i, len(ix.Accounts))
		}
		w.WritePubkey(ix.ProgramID)
		w.WriteU8(uint8(len(ix.Accounts)))
		for _, a := range ix.Accounts {
			w.WritePubkey(a.Pubkey)
			var flags uint8
			if a.IsSigner {
				flags |= 1
			}
			if a.IsWritable {
				flags |= 2
			}
			w.WriteU8(flags)
		}
		w.WriteBytes(ix.Data)
	}
	return w.Bytes()
}

// Sign appends key's signature over the current message.
// Sign after the instruction list is final; later edits invalidate signatures.
func (tx *Transaction) Sign(key ed25519.PrivateKey) error {
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, Signature{
		Signer: PubkeyOf(key),
		Sig:    ed25519.Sign(key, msg),
	})
	return nil
}

// ID returns the base58 form of the first signature, or "" if unsigned.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58Signature(tx.Signatures[0].Sig)
}

// verify returns the set of keys whose signatures verify over msg.
func (tx *Transaction) verify(msg []byte) (map[ir.Pubkey]bool, error) {
	verified := make(map[ir.Pubkey]bool, len(tx.Signatures))
	for _, s := range tx.Signatures {
		if len(s.Sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(s.Signer[:]), msg, s.Sig) {
			return nil, fmt.Errorf("%w: signer %s", ErrInvalidSignature, s.Signer)
		}
		verified[s.Signer] = true
	}
	return verified, nil
}
