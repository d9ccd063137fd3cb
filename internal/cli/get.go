package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/usecase"
	"github.com/aalvaropc/headline/internal/wire"
)

func getCmd(opts *rootOptions) *cobra.Command {
	var method string
	var headers []string
	var body string
	var envName string
	var vars []string
	var format string
	var insecure bool

	c := &cobra.Command{
		Use:   "get <url>",
		Short: "Send a single request over a raw connection and print the decoded response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			hdrs, err := parseHeaderFlags(headers)
			if err != nil {
				return err
			}
			overrides, err := parseVars(vars)
			if err != nil {
				return err
			}

			ws, err := loadWorkspace(opts.root, withInsecureTLS(insecure))
			if err != nil {
				return err
			}

			probeVars, _, err := usecase.LayerVars(ws.envs, envName, nil, overrides)
			if err != nil {
				return err
			}

			probe := domain.ProbeSpec{
				Name:    "get",
				Method:  domain.HTTPMethod(strings.ToUpper(strings.TrimSpace(method))),
				URL:     args[0],
				Headers: hdrs,
				Body:    body,
			}

			uc := usecase.NewRunSuite(ws.suites, ws.runner, nil, usecase.WithLogger(ws.logger))
			res := uc.ExecuteProbe(cmd.Context(), probe, probeVars)

			if err := printProbe(cmd, res, format); err != nil {
				return err
			}
			if res.Error != nil {
				return fmt.Errorf("%s: %s", res.Error.Kind, res.Error.Message)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&method, "method", "X", "GET", "Request method")
	c.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header 'Name: value' (repeatable)")
	c.Flags().StringVarP(&body, "data", "d", "", "Raw request body")
	c.Flags().StringVarP(&envName, "env", "e", "", "Environment name (env/<name>.yaml) or path to an environment file")
	c.Flags().StringArrayVar(&vars, "var", nil, "Template variable key=value (repeatable)")
	c.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	c.Flags().StringVar(&format, "format", formatPretty, "Output format: pretty|json")
	return c
}

// parseHeaderFlags decodes -H values with the same parser used for responses.
// Repeated names are matched case-insensitively, joined with ", " and keep the
// first spelling.
func parseHeaderFlags(in []string) (domain.Headers, error) {
	out := domain.Headers{}
	for _, raw := range in {
		h, err := wire.ParseHeader(raw)
		if err != nil {
			return nil, err
		}
		if h.Name == "" {
			return nil, fmt.Errorf("invalid header %q: empty name", raw)
		}

		name := h.Name
		for k := range out {
			if strings.EqualFold(k, h.Name) {
				name = k
				break
			}
		}
		if prev, ok := out[name]; ok {
			h.Value = prev + ", " + h.Value
		}
		out[name] = h.Value
	}
	return out, nil
}

func printProbe(cmd *cobra.Command, res domain.ProbeResult, format string) error {
	w := cmd.OutOrStdout()
	if format == formatJSON {
		return writeJSON(w, res)
	}

	printPrettyProbe(w, res)
	keys := sortedHeaderKeys(res.Response.Headers)
	if len(keys) > 0 {
		fmt.Fprintln(w, "  headers:")
		for _, k := range keys {
			for _, v := range res.Response.Headers[k] {
				fmt.Fprintf(w, "    %s: %s\n", k, v)
			}
		}
	}
	if len(res.Response.Body) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, string(res.Response.Body))
	}
	return nil
}
