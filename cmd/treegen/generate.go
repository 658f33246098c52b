package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/treegen/internal/config"
	"github.com/danielpatrickdp/treegen/internal/eval"
	"github.com/danielpatrickdp/treegen/internal/features"
	"github.com/danielpatrickdp/treegen/internal/gate"
	"github.com/danielpatrickdp/treegen/internal/search"
	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/store"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// #region command
func newGenerateCmd() *cobra.Command {
	var (
		inputTokens int
		dbPath      string
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the beam search and print the best tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, cmd.OutOrStdout(), inputTokens, dbPath, jsonOut)
		},
	}
	cmd.Flags().IntVar(&inputTokens, "tokens", 0, "input sentence length used for token provenance")
	cmd.Flags().StringVar(&dbPath, "db", "", "persist the run to this SQLite file (overrides db_path)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region run
type generateOutput struct {
	RunID    string        `json:"run_id,omitempty"`
	Score    float64       `json:"score"`
	Complete bool          `json:"complete"`
	Steps    int           `json:"steps"`
	Actions  []string      `json:"actions"`
	Tokens   []state.Token `json:"tokens"`
}

func runGenerate(ctx context.Context, w io.Writer, inputTokens int, dbPath string, jsonOut bool) error {
	cfg, sys, err := loadSystem()
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	var ex *features.Extractor
	if strings.TrimSpace(cfg.Features) != "" {
		if ex, err = features.Parse(cfg.Features); err != nil {
			return fmt.Errorf("features: %w", err)
		}
	}
	scorer, release, err := newScorer(cfg, sys, ex)
	if err != nil {
		return err
	}
	defer release()

	dec := &search.Decoder{
		System:   sys,
		Scorer:   scorer,
		Features: ex,
		Gate:     gate.NewGate(cfg.GateConfig()),
		Eval:     eval.NewEvalHarness(cfg.EvalConfig()),
		Config:   cfg.DecoderConfig(),
		Logger:   slog.Default(),
	}
	res, err := dec.Decode(ctx, inputTokens)
	if err != nil {
		return err
	}

	actions, err := res.ActionPath(res.Best.BeamIndex())
	if err != nil {
		return err
	}
	out := generateOutput{
		Score:    res.Best.Score(),
		Complete: res.Complete,
		Steps:    res.Steps,
		Tokens:   sys.CreateOutput(res.Best.State(), cfg.Output.RewriteRootLabels),
	}
	replayed := sys.NewState()
	for _, a := range actions {
		out.Actions = append(out.Actions, sys.ActionAsString(a, replayed))
		transition.MustApply(sys, a, replayed)
	}

	if cfg.DBPath != "" {
		runID, err := persistRun(cfg, sys, res, inputTokens)
		if err != nil {
			return err
		}
		out.RunID = runID
	}

	if jsonOut {
		return printJSON(w, out)
	}
	printTokens(w, out)
	return nil
}

// #endregion run

// #region persist
// persistRun saves every hypothesis of the final beam, with traces when
// enabled, and points the run at the best one.
func persistRun(cfg config.Config, sys transition.System, res *search.Result, inputTokens int) (string, error) {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run, err := st.CreateRun(sys.Name(), cfg, inputTokens)
	if err != nil {
		return "", err
	}
	for _, h := range res.Beam {
		actions, err := res.ActionPath(h.BeamIndex())
		if err != nil {
			return "", err
		}
		rec, err := st.SaveHypothesis(store.RecordFromHypothesis(run.RunID, sys, h, actions, cfg.Output.RewriteRootLabels))
		if err != nil {
			return "", err
		}
		if err := st.SaveTrace(rec.HypothesisID, h.Trace()); err != nil {
			return "", err
		}
		if h == res.Best {
			if err := st.SetBest(run.RunID, rec.HypothesisID); err != nil {
				return "", err
			}
		}
	}
	if err := st.FinishRun(run.RunID, res.Steps, res.Complete); err != nil {
		return "", err
	}
	slog.Info("run saved", "run_id", run.RunID, "db", cfg.DBPath, "hypotheses", len(res.Beam))
	return run.RunID, nil
}

// #endregion persist

// #region print
func printTokens(w io.Writer, out generateOutput) {
	fmt.Fprintf(w, "%-4s  %-16s  %-8s  %-12s  %s\n", "ID", "Word", "Tag", "Label", "Head")
	fmt.Fprintf(w, "%-4s+-%-16s+-%-8s+-%-12s+-%s\n", "----", "----------------", "--------", "------------", "----")
	for i, t := range out.Tokens {
		fmt.Fprintf(w, "%-4d  %-16s  %-8s  %-12s  %d\n", i, t.Word, t.Tag, t.Label, t.Head)
	}
	fmt.Fprintf(w, "\nscore=%.4f complete=%t steps=%d", out.Score, out.Complete, out.Steps)
	if out.RunID != "" {
		fmt.Fprintf(w, " run=%s", shortID(out.RunID))
	}
	fmt.Fprintln(w)
}

// #endregion print
