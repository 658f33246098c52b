// Package replay applies recorded action sequences to a fresh state and
// checks the resulting tree. Fixtures pin transition-system behavior.
package replay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/treegen/internal/action"
	"github.com/danielpatrickdp/treegen/internal/eval"
	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/transition"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

// #region types
// ReplayConfig holds output and validation options for a replay run.
type ReplayConfig struct {
	RewriteRootLabels bool
	EvalConfig        eval.EvalConfig
}

// DefaultReplayConfig returns the defaults used by the CLI.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{EvalConfig: eval.DefaultEvalConfig()}
}

// ReplayResult captures the outcome of one action.
type ReplayResult struct {
	Step        int
	Action      int
	String      string
	Status      string // "applied" | "rejected"
	Reason      string
	ChildIndex  int
	ParentIndex int
	Stack       string // stack after the action
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Applied    int
	Rejected   int
	Final      bool
	Tokens     []state.Token
	Stack      string
	EvalResult eval.EvalResult
}

// #endregion types

// #region replay
// Replay applies actions in order to a fresh state of sys. The first
// disallowed action is reported as rejected and ends the run. The returned
// state is the one every applied action built.
func Replay(sys transition.System, actions []int) ([]ReplayResult, *state.State) {
	st := sys.NewState()
	st.SetKeepHistory(true)
	results := make([]ReplayResult, 0, len(actions))

	for i, a := range actions {
		r := ReplayResult{
			Step:        i,
			Action:      a,
			String:      sys.ActionAsString(a, st),
			ChildIndex:  -1,
			ParentIndex: -1,
		}
		if err := sys.Apply(a, st); err != nil {
			r.Status = "rejected"
			r.Reason = err.Error()
			r.Stack = st.String()
			results = append(results, r)
			break
		}
		r.Status = "applied"
		if sys.SupportsActionMetadata() {
			r.ChildIndex = sys.ChildIndex(st, a)
			r.ParentIndex = sys.ParentIndex(st, a)
		}
		r.Stack = st.String()
		results = append(results, r)
	}
	return results, st
}

// Summarize computes aggregate stats from replay results and the final state.
func Summarize(sys transition.System, results []ReplayResult, final *state.State, config ReplayConfig) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		Final:      sys.IsFinal(final),
		Tokens:     sys.CreateOutput(final, config.RewriteRootLabels),
		Stack:      final.String(),
		EvalResult: eval.NewEvalHarness(config.EvalConfig).Run(final),
	}
	for _, r := range results {
		switch r.Status {
		case "applied":
			s.Applied++
		case "rejected":
			s.Rejected++
		}
	}
	return s
}

// #endregion replay

// #region verify
// Report is the outcome of replaying a fixture.
type Report struct {
	Results    []ReplayResult
	Summary    ReplaySummary
	Mismatches []string
}

// OK reports whether the fixture replayed without mismatches.
func (r *Report) OK() bool { return len(r.Mismatches) == 0 }

// Verify replays f and compares the outcome with its expected section.
func Verify(f *Fixture) (*Report, error) {
	sys, ids, err := f.Build()
	if err != nil {
		return nil, err
	}
	config := f.Config.ToReplayConfig()
	results, final := Replay(sys, ids)
	rep := &Report{
		Results: results,
		Summary: Summarize(sys, results, final, config),
	}
	if rep.Summary.Rejected > 0 {
		last := results[len(results)-1]
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("step %d: %s", last.Step, last.Reason))
	}

	exp := f.Expected
	if exp == nil {
		return rep, nil
	}
	if exp.Final != nil && *exp.Final != rep.Summary.Final {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("final: got %t, want %t", rep.Summary.Final, *exp.Final))
	}
	if exp.Stack != "" && exp.Stack != rep.Summary.Stack {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("stack: got %s, want %s", rep.Summary.Stack, exp.Stack))
	}
	if exp.Tokens != nil {
		got := rep.Summary.Tokens
		if len(got) != len(exp.Tokens) {
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("tokens: got %d, want %d", len(got), len(exp.Tokens)))
		}
		for i := 0; i < len(got) && i < len(exp.Tokens); i++ {
			if got[i] != exp.Tokens[i] {
				rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("token %d: got %+v, want %+v", i, got[i], exp.Tokens[i]))
			}
		}
	}
	return rep, nil
}

// #endregion verify

// #region parse-action
// ParseAction is the inverse of the generator's action rendering: it accepts
// COLLAPSE, ADD(label, tag), WORD(word) or a bare action id.
func ParseAction(codec action.Codec, set *vocab.Set, s string) (int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "COLLAPSE":
		return codec.CollapseAction(), nil

	case strings.HasPrefix(s, "ADD(") && strings.HasSuffix(s, ")"):
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "ADD("), ")")
		labelName, tagName, ok := strings.Cut(inner, ", ")
		if !ok {
			return 0, fmt.Errorf("parse action %q: want ADD(label, tag)", s)
		}
		label := set.Labels.LookupIndex(labelName, -1)
		if label < 0 {
			return 0, fmt.Errorf("parse action %q: unknown label %q", s, labelName)
		}
		tag := set.Tags.LookupIndex(tagName, -1)
		if tag < 0 {
			return 0, fmt.Errorf("parse action %q: unknown tag %q", s, tagName)
		}
		return codec.Encode(action.NewAdd(label, tag))

	case strings.HasPrefix(s, "WORD(") && strings.HasSuffix(s, ")"):
		wordName := strings.TrimSuffix(strings.TrimPrefix(s, "WORD("), ")")
		word := set.Words.LookupIndex(wordName, -1)
		if word < 0 {
			return 0, fmt.Errorf("parse action %q: unknown word %q", s, wordName)
		}
		return codec.Encode(action.NewWord(word))
	}

	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse action %q: not an action", s)
	}
	if _, err := codec.Decode(id); err != nil {
		return 0, err
	}
	return id, nil
}

// #endregion parse-action
