// Package trace records what a hypothesis did at every search step. A trace
// is an optional attachment: hypotheses carry one only in diagnostic runs.
package trace

// #region step
// Step captures one applied action and the hypothesis bookkeeping around it.
type Step struct {
	Step            int     `json:"step"`
	Action          int     `json:"action"`
	ActionString    string  `json:"action_string"`
	Score           float64 `json:"score"`
	Delta           float64 `json:"delta"`
	BeamIndex       int     `json:"beam_index"`
	ParentBeamIndex int     `json:"parent_beam_index"`
	ChildIndex      int     `json:"child_index"`
	ParentIndex     int     `json:"parent_index"`
	Stack           string  `json:"stack"`
}

// #endregion step

// #region component-trace
// ComponentTrace is the ordered list of steps of one hypothesis.
type ComponentTrace struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// New returns an empty trace.
func New(name string) *ComponentTrace {
	return &ComponentTrace{Name: name}
}

// Add appends a step.
func (t *ComponentTrace) Add(s Step) {
	t.Steps = append(t.Steps, s)
}

// Len returns the number of recorded steps; a nil trace has none.
func (t *ComponentTrace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Steps)
}

// Last returns the latest step.
func (t *ComponentTrace) Last() (Step, bool) {
	if t.Len() == 0 {
		return Step{}, false
	}
	return t.Steps[len(t.Steps)-1], true
}

// Clone deep-copies t. Cloning nil yields nil.
func (t *ComponentTrace) Clone() *ComponentTrace {
	if t == nil {
		return nil
	}
	return &ComponentTrace{
		Name:  t.Name,
		Steps: append([]Step(nil), t.Steps...),
	}
}

// #endregion component-trace
