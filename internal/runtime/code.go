package runtime

import (
	"context"
	"errors"

	"github.com/roach88/eventprog/internal/program"
)

// Code returns a stable identifier for an Execute error: the dispatch code
// when the program failed, otherwise the runtime failure kind.
// Returns "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if code, ok := program.CodeOf(err); ok {
		return string(code)
	}
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrAlreadyProcessed):
		return "ALREADY_PROCESSED"
	case errors.Is(err, ErrFutureSlot):
		return "FUTURE_SLOT"
	case errors.Is(err, ErrProgramNotFound):
		return "PROGRAM_NOT_FOUND"
	case errors.Is(err, ErrEmptyTransaction):
		return "EMPTY_TRANSACTION"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	}
	return "ERROR"
}
