package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/store"
	"github.com/danielpatrickdp/treegen/internal/trace"
)

// #region command
func newInspectCmd() *cobra.Command {
	var (
		dbPath       string
		last         int
		runID        string
		hypothesisID string
		jsonOut      bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List saved runs, the hypotheses of a run, or one hypothesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			switch {
			case hypothesisID != "":
				return runHypothesisDetail(w, s, hypothesisID, jsonOut)
			case runID != "":
				return runRunDetail(w, s, runID, jsonOut)
			default:
				return runListRuns(w, s, last, jsonOut)
			}
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "path to treegen SQLite file")
	cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	cmd.Flags().StringVar(&runID, "run", "", "show the hypotheses of one run")
	cmd.Flags().StringVar(&hypothesisID, "hypothesis", "", "show one hypothesis with its trace")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region list-mode
func runListRuns(w io.Writer, s *store.Store, last int, jsonOut bool) error {
	runs, err := s.ListRuns(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}
	fmt.Fprintf(w, "%-12s  %-18s  %6s  %5s  %-8s  %s\n", "Run", "System", "Tokens", "Steps", "Complete", "Time")
	fmt.Fprintf(w, "%-12s+-%-18s+-%6s+-%5s+-%-8s+-%s\n", "------------", "------------------", "------", "-----", "--------", "--------------------")
	for _, r := range runs {
		fmt.Fprintf(w, "%-12s  %-18s  %6d  %5d  %-8t  %s\n",
			shortID(r.RunID), r.System, r.InputTokens, r.Steps, r.Complete, r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region run-mode
func runRunDetail(w io.Writer, s *store.Store, runID string, jsonOut bool) error {
	run, err := s.GetRun(runID)
	if err != nil {
		return err
	}
	hyps, err := s.ListHypotheses(runID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, struct {
			Run        store.RunRecord          `json:"run"`
			Hypotheses []store.HypothesisRecord `json:"hypotheses"`
		}{run, hyps})
	}

	fmt.Fprintf(w, "Run:      %s\n", run.RunID)
	fmt.Fprintf(w, "System:   %s\n", run.System)
	fmt.Fprintf(w, "Steps:    %d (complete=%t)\n", run.Steps, run.Complete)
	fmt.Fprintf(w, "Best:     %s\n\n", shortID(run.BestID))
	fmt.Fprintf(w, "%-12s  %4s  %10s  %-5s  %s\n", "Hypothesis", "Beam", "Score", "Final", "Words")
	for _, h := range hyps {
		fmt.Fprintf(w, "%-12s  %4d  %10.4f  %-5t  %v\n",
			shortID(h.HypothesisID), h.BeamIndex, h.Score, h.Final, state.OutputWords(h.Tokens))
	}
	return nil
}

// #endregion run-mode

// #region detail-mode
type hypothesisDetail struct {
	Hypothesis store.HypothesisRecord `json:"hypothesis"`
	Lineage    []string               `json:"lineage,omitempty"`
	Trace      *trace.ComponentTrace  `json:"trace,omitempty"`
}

func runHypothesisDetail(w io.Writer, s *store.Store, id string, jsonOut bool) error {
	chain, err := s.Lineage(id)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrace(id)
	if err != nil {
		return err
	}
	out := hypothesisDetail{Hypothesis: chain[0]}
	for _, h := range chain[1:] {
		out.Lineage = append(out.Lineage, h.HypothesisID)
	}
	if tr.Len() > 0 {
		out.Trace = tr
	}
	if jsonOut {
		return printJSON(w, out)
	}

	h := out.Hypothesis
	fmt.Fprintf(w, "Hypothesis: %s\n", h.HypothesisID)
	fmt.Fprintf(w, "Run:        %s\n", h.RunID)
	fmt.Fprintf(w, "Beam:       %d (parent %d)\n", h.BeamIndex, h.ParentBeamIndex)
	fmt.Fprintf(w, "Score:      %.4f\n", h.Score)
	fmt.Fprintf(w, "Final:      %t\n", h.Final)
	fmt.Fprintf(w, "Stack:      %s\n", h.Stack)
	fmt.Fprintf(w, "Actions:    %v\n", h.Actions)
	fmt.Fprintf(w, "Words:      %v\n", state.OutputWords(h.Tokens))
	if out.Trace != nil {
		fmt.Fprintf(w, "\n%-4s  %-20s  %8s  %8s  %s\n", "Step", "Action", "Delta", "Score", "Stack")
		for _, st := range out.Trace.Steps {
			fmt.Fprintf(w, "%-4d  %-20s  %8.4f  %8.4f  %s\n", st.Step, st.ActionString, st.Delta, st.Score, st.Stack)
		}
	}
	return nil
}

// #endregion detail-mode

// #region helpers
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
