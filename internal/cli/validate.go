package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/headline/internal/usecase"
)

func validateCmd(opts *rootOptions) *cobra.Command {
	var file string
	var envName string
	var vars []string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate a probe suite (no network)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides, err := parseVars(vars)
			if err != nil {
				return err
			}

			ws, err := loadWorkspace(opts.root)
			if err != nil {
				return err
			}

			path, err := resolveSuitePath(ws, file)
			if err != nil {
				return err
			}

			suite, err := usecase.NewValidateSuite(ws.suites, usecase.WithEnvLoader(ws.envs)).
				Execute(cmd.Context(), path, envName, overrides)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "OK (%s: %d probe(s))\n", suite.Name, len(suite.Probes))
			return err
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Suite file (required)")
	c.Flags().StringVarP(&envName, "env", "e", "", "Environment name (env/<name>.yaml) or path to an environment file")
	c.Flags().StringArrayVar(&vars, "var", nil, "Override a suite variable key=value (repeatable)")

	_ = c.MarkFlagRequired("file")
	return c
}
