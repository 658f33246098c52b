package search

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/treegen/internal/beam"
)

// ErrEmptyBeam is returned when every successor of a step was pruned.
var ErrEmptyBeam = errors.New("search: beam is empty")

// #region config
// Config bounds a decode.
type Config struct {
	BeamSize    int  // hypotheses kept per step
	MaxSteps    int  // hard stop on the number of steps
	Workers     int  // hypotheses expanded concurrently; <= 0 means one
	KeepHistory bool // record action history on every state
	Trace       bool // attach a diagnostic trace to every hypothesis
}

// DefaultConfig returns the settings used by the CLI when none are given.
func DefaultConfig() Config {
	return Config{
		BeamSize: 8,
		MaxSteps: 512,
		Workers:  4,
	}
}

// #endregion config

// #region result
// Result is the outcome of one decode.
type Result struct {
	// Best is the highest scoring complete hypothesis, or the top of the
	// beam when none completed.
	Best     *beam.Hypothesis
	Complete bool
	Beam     []*beam.Hypothesis
	Steps    int

	// Backpointers[s][i] is the beam index, after step s-1, of the parent
	// of hypothesis i after step s. Actions[s][i] is the action it applied,
	// -1 when a finished hypothesis was carried over.
	Backpointers [][]int
	Actions      [][]int
}

// Backtrace returns the beam index of the ancestor of final hypothesis
// index at every step, oldest first.
func (r *Result) Backtrace(index int) ([]int, error) {
	if r.Steps == 0 {
		return nil, nil
	}
	if index < 0 || index >= len(r.Backpointers[r.Steps-1]) {
		return nil, fmt.Errorf("backtrace: beam index %d out of range", index)
	}
	path := make([]int, r.Steps)
	path[r.Steps-1] = index
	for s := r.Steps - 1; s > 0; s-- {
		path[s-1] = r.Backpointers[s][path[s]]
	}
	return path, nil
}

// ActionPath returns the actions applied along the backtrace of index,
// skipping steps where the hypothesis was carried over.
func (r *Result) ActionPath(index int) ([]int, error) {
	path, err := r.Backtrace(index)
	if err != nil {
		return nil, err
	}
	var actions []int
	for s, i := range path {
		if a := r.Actions[s][i]; a >= 0 {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// #endregion result
