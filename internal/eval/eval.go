// Package eval checks that a finished generator state is a well-formed tree.
package eval

import (
	"fmt"

	"github.com/danielpatrickdp/treegen/internal/state"
)

// #region eval-harness
// EvalHarness validates finished states.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks st and returns pass/fail with one metric per check.
func (h *EvalHarness) Run(st *state.State) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	n := st.NumTokens()
	check("num_tokens", float64(n),
		h.config.MaxTokens <= 0 || n <= h.config.MaxTokens,
		fmt.Sprintf("%d tokens exceeds %d", n, h.config.MaxTokens))

	check("missing_word", boolValue(st.MissingWord()), !st.MissingWord(),
		"last token has no word")

	depth := st.StackSize()
	check("stack_depth", float64(depth), depth == 1 && st.StackAt(0) == state.Root,
		fmt.Sprintf("stack depth %d, want root only", depth))

	heads := st.Heads()
	bad := badHeads(heads)
	check("bad_heads", float64(bad), bad == 0,
		fmt.Sprintf("%d tokens with a head outside [-1, i)", bad))

	set := st.Vocab()
	labels := outOfRange(st.Labels(), set.Labels.Size())
	check("label_range", float64(labels), labels == 0,
		fmt.Sprintf("%d labels outside the label table", labels))
	tags := outOfRange(st.Tags(), set.Tags.Size())
	check("tag_range", float64(tags), tags == 0,
		fmt.Sprintf("%d tags outside the tag table", tags))
	words := outOfRange(st.Words(), set.Words.Size())
	check("word_range", float64(words), words == 0,
		fmt.Sprintf("%d words outside the word table", words))

	reason := "all checks passed"
	switch {
	case len(failReasons) == 1:
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	case len(failReasons) > 1:
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
// badHeads counts tokens whose head is not the root or an earlier token.
// Heads pointing backwards only cannot form a cycle.
func badHeads(heads []int) int {
	bad := 0
	for i, h := range heads {
		if h < state.Root || h >= i {
			bad++
		}
	}
	return bad
}

func outOfRange(ids []int, size int) int {
	bad := 0
	for _, id := range ids {
		if id < 0 || id >= size {
			bad++
		}
	}
	return bad
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
