package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/ir"
)

// DiscriminatorOptions holds flags for the discriminator command.
type DiscriminatorOptions struct {
	*RootOptions
	Instruction bool
}

// DiscriminatorResult reports a derived 8-byte tag.
type DiscriminatorResult struct {
	Name     string `json:"name"`
	Preimage string `json:"preimage"`
	Hex      string `json:"hex"`
}

// NewDiscriminatorCommand creates the discriminator command.
func NewDiscriminatorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiscriminatorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "discriminator <name>",
		Short: "Print the 8-byte discriminator of an event or instruction",
		Long: `Print the first 8 bytes of sha256("event:" + name), or of
sha256("global:" + name) with --instruction.

Examples:
  eventprog discriminator HelloEvent
  eventprog discriminator --instruction send_event`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			result := discriminatorOf(args[0], opts.Instruction)
			if formatter.Format == "json" {
				return formatter.Success(result)
			}
			return formatter.Success(result.Hex)
		},
	}

	cmd.Flags().BoolVar(&opts.Instruction, "instruction", false, "derive an instruction selector instead")

	return cmd
}

func discriminatorOf(name string, instruction bool) DiscriminatorResult {
	if instruction {
		return DiscriminatorResult{Name: name, Preimage: "global:" + name, Hex: ir.InstructionSelector(name).String()}
	}
	return DiscriminatorResult{Name: name, Preimage: "event:" + name, Hex: ir.EventDiscriminator(name).String()}
}
