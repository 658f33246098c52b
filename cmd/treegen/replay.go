package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/treegen/internal/replay"
)

// #region command
func newReplayCmd() *cobra.Command {
	var (
		fixturePath string
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a fixture of actions and compare the resulting tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.OutOrStdout(), fixturePath, jsonOut)
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to fixture JSON")
	cmd.MarkFlagRequired("fixture")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region run
func runReplay(w io.Writer, fixturePath string, jsonOut bool) error {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		return err
	}
	rep, err := replay.Verify(f)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(w, rep); err != nil {
			return err
		}
	} else {
		printReport(w, f, rep)
	}
	if !rep.OK() {
		return errMismatch
	}
	return nil
}

func printReport(w io.Writer, f *replay.Fixture, rep *replay.Report) {
	fmt.Fprintf(w, "Fixture: %s\n\n", f.Description)
	fmt.Fprintf(w, "%-4s  %-20s  %-8s  %5s  %6s  %s\n", "Step", "Action", "Status", "Child", "Parent", "Stack")
	fmt.Fprintf(w, "%-4s+-%-20s+-%-8s+-%5s+-%6s+-%s\n", "----", "--------------------", "--------", "-----", "------", "--------")
	for _, r := range rep.Results {
		fmt.Fprintf(w, "%-4d  %-20s  %-8s  %5d  %6d  %s\n", r.Step, r.String, r.Status, r.ChildIndex, r.ParentIndex, r.Stack)
	}

	s := rep.Summary
	fmt.Fprintf(w, "\nSummary: %d steps, %d applied, %d rejected, final=%t, tokens=%d\n",
		s.TotalSteps, s.Applied, s.Rejected, s.Final, len(s.Tokens))
	fmt.Fprintf(w, "Eval: %s\n", s.EvalResult.Reason)

	if rep.OK() {
		fmt.Fprintln(w, "PASS")
		return
	}
	fmt.Fprintf(w, "FAIL: %d mismatches\n", len(rep.Mismatches))
	for _, m := range rep.Mismatches {
		fmt.Fprintf(w, "  - %s\n", m)
	}
}

// #endregion run
