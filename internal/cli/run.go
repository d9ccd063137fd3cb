package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/headline/internal/ports"
	"github.com/aalvaropc/headline/internal/usecase"
)

func runCmd(opts *rootOptions) *cobra.Command {
	var file string
	var envName string
	var vars []string
	var noSave bool
	var format string

	c := &cobra.Command{
		Use:   "run",
		Short: "Run a probe suite and check every response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
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

			var store ports.ArtifactStore = ws.store
			if noSave {
				store = nil
			}

			uc := usecase.NewRunSuite(ws.suites, ws.runner, store,
				usecase.WithLogger(ws.logger),
				usecase.WithEnvironments(ws.envs),
			)

			run, runID, err := uc.Execute(cmd.Context(), path, envName, overrides)
			if err != nil {
				if run.SuiteName != "" {
					_ = printRun(cmd.OutOrStdout(), run, runID, format)
				}
				return err
			}

			if err := printRun(cmd.OutOrStdout(), run, runID, format); err != nil {
				return err
			}

			if fails := run.Failures(); fails > 0 {
				return fmt.Errorf("run failed (%d failed probe(s))", fails)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Suite file (required)")
	c.Flags().StringVarP(&envName, "env", "e", "", "Environment name (env/<name>.yaml) or path to an environment file")
	c.Flags().StringArrayVar(&vars, "var", nil, "Override a suite variable key=value (repeatable)")
	c.Flags().BoolVar(&noSave, "no-save", false, "Do not save the run artifact")
	c.Flags().StringVar(&format, "format", formatPretty, "Output format: pretty|json")

	_ = c.MarkFlagRequired("file")
	return c
}
