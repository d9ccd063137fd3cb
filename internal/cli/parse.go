package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/headline/internal/wire"
)

func parseCmd() *cobra.Command {
	var format string

	c := &cobra.Command{
		Use:   "parse",
		Short: "Decode status lines, header lines or whole response heads",
	}
	c.PersistentFlags().StringVar(&format, "format", formatPretty, "Output format: pretty|json")

	c.AddCommand(
		parseStatusCmd(&format),
		parseHeaderCmd(&format),
		parseHeadCmd(&format),
	)
	return c
}

func parseStatusCmd(format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <line>",
		Short: "Decode a status line such as \"HTTP/1.1 200 OK\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(*format); err != nil {
				return err
			}
			status, ok, err := wire.ParseStatusLine(args[0])
			if err != nil {
				return err
			}
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "(absent)")
				return err
			}
			return printStatus(cmd.OutOrStdout(), status, *format)
		},
	}
}

func parseHeaderCmd(format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "header <line>",
		Short: "Decode a header line such as \"Content-Type: text/html\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(*format); err != nil {
				return err
			}
			h, err := wire.ParseHeader(args[0])
			if err != nil {
				return err
			}
			return printHeader(cmd.OutOrStdout(), h, *format)
		},
	}
}

func parseHeadCmd(format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "head [file|-]",
		Short: "Decode a raw response head read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(*format); err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			head, err := wire.ReadHead(bufio.NewReader(in), wire.DefaultLimits())
			if err != nil {
				return err
			}
			return printHead(cmd.OutOrStdout(), head, *format)
		},
	}
}
