package hello

import (
	_ "embed"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
)

// DefaultProgramID is the address the program is declared under.
const DefaultProgramID = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"

// Names on the wire.
const (
	EventName       = "HelloEvent"
	InstructionName = "send_event"
)

// IDL is the CUE interface description of this program.
//
//go:embed hello.cue
var IDL []byte

var (
	// HelloEventDiscriminator is sha256("event:HelloEvent")[:8].
	HelloEventDiscriminator = codec.DiscriminatorFor(EventName)

	// SendEventSelector is sha256("global:send_event")[:8].
	SendEventSelector = ir.InstructionSelector(InstructionName)
)

// HelloEvent is emitted once per send_event call.
// Owner is always the verified signer, never a caller-supplied value.
type HelloEvent struct {
	Data  uint8     `json:"data"`
	Title string    `json:"title"`
	Owner ir.Pubkey `json:"owner"`
}

func (HelloEvent) EventName() string               { return EventName }
func (HelloEvent) Discriminator() ir.Discriminator { return HelloEventDiscriminator }

// MarshalFields writes data, title, owner.
func (e HelloEvent) MarshalFields(w *codec.Writer) {
	w.WriteU8(e.Data)
	w.WriteString(e.Title)
	w.WritePubkey(e.Owner)
}

// IRFields returns the event as an IR object. Owner is base58.
func (e HelloEvent) IRFields() ir.IRObject {
	return ir.IRObject{
		"data":  ir.IRInt(e.Data),
		"title": ir.IRString(e.Title),
		"owner": ir.IRString(e.Owner.String()),
	}
}

// DecodeHelloEvent reads the fields written by MarshalFields.
func DecodeHelloEvent(r *codec.Reader) (codec.Event, error) {
	e := HelloEvent{
		Data:  r.ReadU8(),
		Title: r.ReadString(),
		Owner: r.ReadPubkey(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// RegisterEvents adds this program's event types to reg.
func RegisterEvents(reg *codec.Registry) error {
	return reg.Register(EventName, DecodeHelloEvent)
}

// NewRegistry returns a registry holding only this program's events.
func NewRegistry() *codec.Registry {
	reg := codec.NewRegistry()
	if err := RegisterEvents(reg); err != nil {
		panic(err)
	}
	return reg
}

// SendEventArgs is the argument payload of send_event: [data u8][title string].
type SendEventArgs struct {
	Data  uint8
	Title string
}

// UnmarshalArgs implements the argument decoder used by program.NewInstruction.
func (a *SendEventArgs) UnmarshalArgs(r *codec.Reader) {
	a.Data = r.ReadU8()
	a.Title = r.ReadString()
}

// MarshalArgs writes the payload in wire order.
func (a SendEventArgs) MarshalArgs(w *codec.Writer) {
	w.WriteU8(a.Data)
	w.WriteString(a.Title)
}

// sendEventAccounts is the account shape of send_event.
var sendEventAccounts = []program.AccountSpec{
	{Name: "sender", Signer: true},
}

// SendEvent emits HelloEvent{data, title, owner = sender}.
func SendEvent(c *program.Context, args SendEventArgs) error {
	sender, err := c.Signer("sender")
	if err != nil {
		return err
	}
	return c.Emit(HelloEvent{
		Data:  args.Data,
		Title: args.Title,
		Owner: sender,
	})
}

// New builds the program under id.
func New(id ir.Pubkey, opts ...program.Option) (*program.Program, error) {
	return program.New(id, []program.Instruction{
		program.NewInstruction(InstructionName, sendEventAccounts, SendEvent),
	}, opts...)
}

// NewSendEventInstruction builds the client-side instruction. The sender is
// listed as a signer; the runtime decides whether that claim holds.
func NewSendEventInstruction(programID, sender ir.Pubkey, data uint8, title string) (ir.Instruction, error) {
	w := codec.NewWriter()
	w.WriteDiscriminator(SendEventSelector)
	SendEventArgs{Data: data, Title: title}.MarshalArgs(w)
	payload, err := w.Bytes()
	if err != nil {
		return ir.Instruction{}, err
	}
	return ir.Instruction{
		ProgramID: programID,
		Accounts:  []ir.AccountMeta{{Pubkey: sender, IsSigner: true}},
		Data:      payload,
	}, nil
}
