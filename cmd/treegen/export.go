package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/treegen/internal/replay"
	"github.com/danielpatrickdp/treegen/internal/store"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// #region command
func newExportCmd() *cobra.Command {
	var (
		dbPath  string
		runID   string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the best hypothesis of a run as a replay fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.OutOrStdout(), dbPath, runID, outPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "path to treegen SQLite file")
	cmd.Flags().StringVar(&runID, "run", "", "run ID to export")
	cmd.Flags().StringVar(&outPath, "out", "", "fixture path (stdout when empty)")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("run")
	return cmd
}

// #endregion command

// #region run
func runExport(w io.Writer, dbPath, runID, outPath string) error {
	cfg, sys, err := loadSystem()
	if err != nil {
		return err
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(runID)
	if err != nil {
		return err
	}
	best, err := s.BestHypothesis(runID)
	if err != nil {
		return err
	}
	if run.System != sys.Name() {
		if sys, err = transition.New(run.System, sys.Vocab()); err != nil {
			return err
		}
	}

	results, final := replay.Replay(sys, best.Actions)
	if n := len(results); n > 0 && results[n-1].Status == "rejected" {
		return fmt.Errorf("run %s does not replay with the configured vocabulary: %s", runID, results[n-1].Reason)
	}

	f := replay.NewFixture(
		fmt.Sprintf("run %s, hypothesis %s, score %.4f", run.RunID, best.HypothesisID, best.Score),
		sys, best.Actions, final,
		replay.FixtureConfig{RewriteRootLabels: cfg.Output.RewriteRootLabels, MaxTokens: cfg.Search.MaxTokens},
	)
	if outPath == "" {
		return printJSON(w, f)
	}
	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s (%d actions)\n", outPath, len(f.Actions))
	return nil
}

// #endregion run
