package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Namespaces for 8-byte identifiers. The sighash preimage is
// "<namespace>:<name>", compatible with Anchor-style log consumers.
const (
	NamespaceEvent       = "event"
	NamespaceInstruction = "global"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "eventprog/record/v1"
)

// Sighash returns the first 8 bytes of SHA256(namespace + ":" + name).
// The result depends only on the UTF-8 bytes of its inputs.
func Sighash(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// EventDiscriminator returns the discriminator for an event type name.
func EventDiscriminator(typeName string) Discriminator {
	return Sighash(NamespaceEvent, typeName)
}

// InstructionSelector returns the selector for an instruction name.
func InstructionSelector(name string) Discriminator {
	return Sighash(NamespaceInstruction, name)
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordID computes the content-addressed ID of an observed event.
// The same payload emitted by the same program at the same position of the
// same slot always yields the same ID, so re-indexing a receipt is idempotent.
func RecordID(programID Pubkey, slot int64, index int, payload []byte) (string, error) {
	obj := IRObject{
		"program_id": IRString(programID.String()),
		"slot":       IRInt(slot),
		"index":      IRInt(int64(index)),
		"payload":    IRString(hex.EncodeToString(payload)),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainRecord, canonical), nil
}
