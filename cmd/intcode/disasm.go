package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/image"
	"github.com/chazu/intcode/pkg/intcode"
)

func newDisasmCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "disasm [program]",
		Aliases: []string{"dis"},
		Short:   "Print a disassembly listing",
		Long: `Disasm decodes a program linearly from address 0. Cells that are not
valid instructions are listed as DATA.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			program, name, err := readProgram(g, path, format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), intcode.DisassembleWithName(program, name))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Program encoding: text or binary (default: from extension)")
	return cmd
}

func newConvertCmd(g *globalFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a program image between text and binary",
		Long: `Convert reads a program image and writes it in another encoding. Files
ending in .icb are binary, everything else is text, unless --from or
--to say otherwise. Use "-" for stdin or stdout.`,
		Example: `  intcode convert day9.intcode day9.icb
  intcode convert --to text day9.icb -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]

			program, _, err := readProgram(g, in, from)
			if err != nil {
				return err
			}

			enc := image.EncodingFor(out)
			if out == "-" {
				enc = image.EncodingText
			}
			if to != "" {
				if enc, err = image.ParseEncoding(to); err != nil {
					return err
				}
			}
			data, err := image.Encode(program, enc)
			if err != nil {
				return err
			}

			if out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			log.Infof("wrote %d cells to %s (%s)", len(program), out, enc)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Input encoding: text or binary")
	cmd.Flags().StringVar(&to, "to", "", "Output encoding: text or binary")
	return cmd
}
