package codec

import "errors"

// Sentinel errors. Codec functions wrap these with context; match with errors.Is.
var (
	// ErrMalformedPayload means fewer bytes were available than a field
	// declares, or bytes remained after the last field.
	ErrMalformedPayload = errors.New("codec: malformed payload")

	// ErrUnknownDiscriminator means the leading 8 bytes match no registered type.
	ErrUnknownDiscriminator = errors.New("codec: unknown discriminator")

	// ErrFieldTooLarge means a variable-length field exceeds what its length
	// prefix (or the configured limit) can represent.
	ErrFieldTooLarge = errors.New("codec: field too large")

	// ErrSchemaMismatch means a schema record holds a value that does not fit
	// the declared field kind.
	ErrSchemaMismatch = errors.New("codec: schema mismatch")

	// ErrDuplicateType means two registrations map to the same discriminator.
	ErrDuplicateType = errors.New("codec: duplicate event type")
)
