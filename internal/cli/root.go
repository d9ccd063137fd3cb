package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/headline/internal/buildinfo"
	"github.com/aalvaropc/headline/internal/infra/logger"
	"github.com/aalvaropc/headline/internal/infra/workspacefinder"
)

type rootOptions struct {
	debug bool
	root  string

	closeLog func() error
}

func (o *rootOptions) close() {
	if o.closeLog != nil {
		_ = o.closeLog()
		o.closeLog = nil
	}
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	err := cmd.ExecuteContext(ctx)
	opts.close()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "headline",
		Short:         "headline: decode HTTP/1.x response heads and probe servers over raw TCP/TLS",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging(opts)
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable verbose logging to .headline/logs/headline.log")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "workspace root holding headline.yaml (autodetected if omitted)")

	cmd.AddCommand(
		parseCmd(),
		getCmd(opts),
		runCmd(opts),
		validateCmd(opts),
		versionCmd(),
	)
	return cmd
}

// setupLogging points the logger at the workspace root. Outside a workspace,
// and without --root, logs are discarded.
func setupLogging(opts *rootOptions) error {
	logRoot := strings.TrimSpace(opts.root)
	if logRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		root, ferr := workspacefinder.NewFinder().FindRoot(wd)
		if ferr != nil || root == "" {
			return nil
		}
		logRoot = root
	}
	logRoot, _ = filepath.Abs(logRoot)

	cleanup, err := logger.Setup(logger.Config{
		Root:  logRoot,
		Debug: opts.debug,
	})
	if err != nil {
		// Logging is best effort; commands still run.
		return nil
	}
	opts.closeLog = cleanup
	return nil
}
