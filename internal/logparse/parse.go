package logparse

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
)

// ErrUnbalancedFrame is returned when a success or failed line does not
// close the innermost open invoke frame.
var ErrUnbalancedFrame = errors.New("logparse: unbalanced invoke frame")

// Observed is one decoded event line.
type Observed struct {
	// Line is the zero-based index of the line in the input.
	Line int

	// ProgramID is the program the line is attributed to.
	ProgramID ir.Pubkey

	Name          string
	Discriminator ir.Discriminator
	Payload       []byte
	Event         codec.Event
}

// Parser decodes event lines for one program.
type Parser struct {
	ProgramID ir.Pubkey

	// Marker defaults to program.DefaultMarker when empty.
	Marker string

	Registry *codec.Registry
}

// New returns a Parser with the default marker.
func New(programID ir.Pubkey, reg *codec.Registry) *Parser {
	return &Parser{ProgramID: programID, Marker: program.DefaultMarker, Registry: reg}
}

func (p *Parser) marker() string {
	if p.Marker == "" {
		return program.DefaultMarker
	}
	return p.Marker
}

// Parse decodes every event line of lines attributed to p.ProgramID.
// Lines outside any invoke frame count as the configured program's own.
func (p *Parser) Parse(lines []string) ([]Observed, error) {
	var (
		stack []ir.Pubkey
		out   []Observed
	)
	for i, line := range lines {
		if kind, id, ok := parseFrame(line); ok {
			switch kind {
			case frameInvoke:
				stack = append(stack, id)
			case frameClose:
				if len(stack) == 0 || stack[len(stack)-1] != id {
					return nil, fmt.Errorf("%w: line %d closes %s", ErrUnbalancedFrame, i, id)
				}
				stack = stack[:len(stack)-1]
			}
			continue
		}

		owner := p.ProgramID
		if len(stack) > 0 {
			owner = stack[len(stack)-1]
		}
		if owner != p.ProgramID {
			continue
		}

		obs, ok, err := p.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if !ok {
			continue
		}
		obs.Line = i
		out = append(out, obs)
	}
	return out, nil
}

// ParseLine decodes a single line. It reports false, with no error, for
// lines that do not carry the marker.
func (p *Parser) ParseLine(line string) (Observed, bool, error) {
	rest, ok := strings.CutPrefix(line, p.marker()+" ")
	if !ok {
		return Observed{}, false, nil
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest))
	if err != nil {
		return Observed{}, false, fmt.Errorf("%w: base64: %v", codec.ErrMalformedPayload, err)
	}
	ev, err := p.Registry.Decode(payload)
	if err != nil {
		return Observed{}, false, err
	}
	return Observed{
		ProgramID:     p.ProgramID,
		Name:          ev.EventName(),
		Discriminator: ev.Discriminator(),
		Payload:       payload,
		Event:         ev,
	}, true, nil
}

type frameKind int

const (
	frameInvoke frameKind = iota + 1
	frameClose
)

// parseFrame recognizes runtime framing lines.
func parseFrame(line string) (frameKind, ir.Pubkey, bool) {
	rest, ok := strings.CutPrefix(line, "Program ")
	if !ok {
		return 0, ir.Pubkey{}, false
	}
	idText, tail, ok := strings.Cut(rest, " ")
	if !ok {
		return 0, ir.Pubkey{}, false
	}
	id, err := ir.ParsePubkey(idText)
	if err != nil {
		return 0, ir.Pubkey{}, false
	}
	switch {
	case strings.HasPrefix(tail, "invoke ["):
		return frameInvoke, id, true
	case tail == "success", strings.HasPrefix(tail, "failed"):
		return frameClose, id, true
	}
	return 0, ir.Pubkey{}, false
}
