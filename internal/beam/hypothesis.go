// Package beam wraps a generator state with the bookkeeping a beam search
// needs to rank hypotheses and to rebuild the path of a survivor.
package beam

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/trace"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// ErrTokenCount is returned when provenance arrays cannot be sized.
var ErrTokenCount = errors.New("invalid token count")

// Unset marks provenance slots and beam indices not assigned yet.
const Unset = -1

// #region hypothesis
// Hypothesis owns one state. It is never shared between concurrent branches;
// fork it with Clone.
type Hypothesis struct {
	st *state.State

	score            float64
	currentBeamIndex int
	parentBeamIndex  int

	stepForToken       []int
	parentForToken     []int
	parentStepForToken []int

	trace *trace.ComponentTrace
}

// NewHypothesis wraps st. numTokens sizes the provenance arrays to the input
// sentence; it must not be negative.
func NewHypothesis(st *state.State, numTokens int) (*Hypothesis, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil state", ErrTokenCount)
	}
	if numTokens < 0 {
		return nil, fmt.Errorf("%w: %d", ErrTokenCount, numTokens)
	}
	return &Hypothesis{
		st:                 st,
		currentBeamIndex:   Unset,
		parentBeamIndex:    0,
		stepForToken:       filled(numTokens),
		parentForToken:     filled(numTokens),
		parentStepForToken: filled(numTokens),
	}, nil
}

func filled(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = Unset
	}
	return out
}

// InitFromParent inherits the parent's score and takes its beam index as
// this hypothesis' parent index.
func (h *Hypothesis) InitFromParent(parent *Hypothesis) {
	h.score = parent.score
	h.parentBeamIndex = parent.currentBeamIndex
}

// Clone deep-copies the state, bookkeeping and trace.
func (h *Hypothesis) Clone() *Hypothesis {
	return &Hypothesis{
		st:                 h.st.Clone(),
		score:              h.score,
		currentBeamIndex:   h.currentBeamIndex,
		parentBeamIndex:    h.parentBeamIndex,
		stepForToken:       append([]int(nil), h.stepForToken...),
		parentForToken:     append([]int(nil), h.parentForToken...),
		parentStepForToken: append([]int(nil), h.parentStepForToken...),
		trace:              h.trace.Clone(),
	}
}

// #endregion hypothesis

// #region accessors
func (h *Hypothesis) State() *state.State { return h.st }

func (h *Hypothesis) Score() float64         { return h.score }
func (h *Hypothesis) SetScore(score float64) { h.score = score }

func (h *Hypothesis) BeamIndex() int         { return h.currentBeamIndex }
func (h *Hypothesis) SetBeamIndex(index int) { h.currentBeamIndex = index }
func (h *Hypothesis) ParentBeamIndex() int   { return h.parentBeamIndex }

// IsFinal reports whether sys considers the wrapped state terminal.
func (h *Hypothesis) IsFinal(sys transition.System) bool {
	return sys.IsFinal(h.st)
}

// #endregion accessors

// #region provenance
// NumInputTokens is the size of the provenance arrays.
func (h *Hypothesis) NumInputTokens() int { return len(h.stepForToken) }

func (h *Hypothesis) StepForToken(t int) int       { return at(h.stepForToken, t) }
func (h *Hypothesis) ParentForToken(t int) int     { return at(h.parentForToken, t) }
func (h *Hypothesis) ParentStepForToken(t int) int { return at(h.parentStepForToken, t) }

// SetTokenProvenance records that token t was produced at step, from the
// hypothesis at parent beam index parent whose own step was parentStep.
// Tokens outside the input sentence are ignored and reported false.
func (h *Hypothesis) SetTokenProvenance(t, step, parent, parentStep int) bool {
	if t < 0 || t >= len(h.stepForToken) {
		return false
	}
	h.stepForToken[t] = step
	h.parentForToken[t] = parent
	h.parentStepForToken[t] = parentStep
	return true
}

func at(a []int, i int) int {
	if i < 0 || i >= len(a) {
		return Unset
	}
	return a[i]
}

// #endregion provenance

// #region trace
// AttachTrace gives the hypothesis a diagnostic trace.
func (h *Hypothesis) AttachTrace(tr *trace.ComponentTrace) { h.trace = tr }

// Trace returns the attached trace, nil when tracing is off.
func (h *Hypothesis) Trace() *trace.ComponentTrace { return h.trace }

// #endregion trace
