package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// #region root
var (
	configPath string
	logLevel   string
	logJSON    bool
)

// errMismatch signals a completed run whose results should fail the process.
var errMismatch = errors.New("mismatch")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treegen",
		Short:         "Generate dependency trees with a transition-based beam search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd, logLevel, logJSON)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to treegen YAML config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug | info | warn | error")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	root.AddCommand(
		newGenerateCmd(),
		newReplayCmd(),
		newInspectCmd(),
		newExportCmd(),
		newActionsCmd(),
		newServeCmd(),
	)
	return root
}

// #endregion root

// #region main
func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errMismatch) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// #endregion main

// #region helpers
func newLogger(cmd *cobra.Command, level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	w := cmd.ErrOrStderr()
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
