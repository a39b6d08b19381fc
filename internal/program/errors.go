package program

import (
	"errors"
	"fmt"

	"github.com/roach88/eventprog/internal/codec"
)

// ErrorCode categorizes dispatch failures. Every code is terminal for the
// current instruction.
type ErrorCode string

const (
	// ErrCodeMissingSignature indicates no authenticated signer where one is required.
	ErrCodeMissingSignature ErrorCode = "MISSING_SIGNATURE"

	// ErrCodeUnknownInstruction indicates the selector matches no registered instruction.
	ErrCodeUnknownInstruction ErrorCode = "UNKNOWN_INSTRUCTION"

	// ErrCodeMalformedPayload indicates argument or event bytes are short or have trailing data.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	// ErrCodeUnknownDiscriminator indicates an event payload of an unregistered type.
	ErrCodeUnknownDiscriminator ErrorCode = "UNKNOWN_DISCRIMINATOR"

	// ErrCodeFieldTooLarge indicates a string exceeds its length-prefix bound.
	ErrCodeFieldTooLarge ErrorCode = "FIELD_TOO_LARGE"

	// ErrCodeNotEnoughAccounts indicates fewer accounts than the instruction declares.
	ErrCodeNotEnoughAccounts ErrorCode = "NOT_ENOUGH_ACCOUNTS"

	// ErrCodeHandlerFailed indicates the handler returned an error of its own.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
)

// Error is returned by Dispatch and Context.Emit.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Instruction names the instruction being dispatched, if known.
	Instruction string

	// Err is the underlying cause (often a codec sentinel).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Instruction != "" {
		msg += fmt.Sprintf(" (instruction=%s)", e.Instruction)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause so errors.Is(err, codec.ErrMalformedPayload) works.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from err. Uses errors.As to handle wrapping.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// fromCodec maps codec sentinels onto dispatch codes.
func fromCodec(instruction, message string, err error) *Error {
	code := ErrCodeMalformedPayload
	switch {
	case errors.Is(err, codec.ErrFieldTooLarge):
		code = ErrCodeFieldTooLarge
	case errors.Is(err, codec.ErrUnknownDiscriminator):
		code = ErrCodeUnknownDiscriminator
	}
	return &Error{Code: code, Message: message, Instruction: instruction, Err: err}
}
