// Package features reads integer features off a generator state for a
// scoring model. Features are written as dotted descriptors, a chain of
// locators ending in a value function:
//
//	stack.word stack(1).label stack.child(-1).tag stack.head.focus last-action(1)
//
// Locators: stack(k) picks the k-th stack element from the top; head(n)
// climbs n parents; child(n) descends to the leftmost (n<0) or rightmost
// (n>0) child |n| times; sibling(n) moves to the n-th left (n<0) or right
// (n>0) sibling. Functions: label, tag, word and focus read the located
// token; last-action(n) and constant(v) read the state itself.
package features

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/treegen/internal/state"
)

// #region descriptor
type call struct {
	name string
	arg  int
}

func (c call) String() string {
	return c.name + "(" + strconv.Itoa(c.arg) + ")"
}

var defaultArgs = map[string]int{
	"stack":       0,
	"head":        1,
	"child":       1,
	"sibling":     1,
	"label":       0,
	"tag":         0,
	"word":        0,
	"focus":       0,
	"last-action": 0,
	"constant":    0,
}

var (
	indexLocators  = map[string]bool{"head": true, "child": true, "sibling": true}
	indexFunctions = map[string]bool{"label": true, "tag": true, "word": true, "focus": true}
	stateFunctions = map[string]bool{"last-action": true, "constant": true}
)

// Feature is one parsed descriptor.
type Feature struct {
	spec     string
	locators []call
	fn       call
}

// Spec returns the descriptor as written.
func (f Feature) Spec() string { return f.spec }

func parseCall(s string) (call, error) {
	name, rest, hasArg := strings.Cut(s, "(")
	def, known := defaultArgs[name]
	if !known {
		return call{}, fmt.Errorf("unknown feature function %q", name)
	}
	c := call{name: name, arg: def}
	if !hasArg {
		return c, nil
	}
	if !strings.HasSuffix(rest, ")") {
		return call{}, fmt.Errorf("unterminated argument in %q", s)
	}
	arg, err := strconv.Atoi(strings.TrimSuffix(rest, ")"))
	if err != nil {
		return call{}, fmt.Errorf("argument of %q: %w", s, err)
	}
	c.arg = arg
	return c, nil
}

// ParseFeature parses a single descriptor.
func ParseFeature(spec string) (Feature, error) {
	parts := strings.Split(spec, ".")
	calls := make([]call, 0, len(parts))
	for _, p := range parts {
		c, err := parseCall(p)
		if err != nil {
			return Feature{}, fmt.Errorf("feature %q: %w", spec, err)
		}
		calls = append(calls, c)
	}

	f := Feature{spec: spec, locators: calls[:len(calls)-1], fn: calls[len(calls)-1]}
	if len(f.locators) == 0 {
		if !stateFunctions[f.fn.name] {
			return Feature{}, fmt.Errorf("feature %q: %s needs a locator", spec, f.fn.name)
		}
		return f, nil
	}
	if f.locators[0].name != "stack" {
		return Feature{}, fmt.Errorf("feature %q: first locator must be stack, got %s", spec, f.locators[0].name)
	}
	for _, l := range f.locators[1:] {
		if !indexLocators[l.name] {
			return Feature{}, fmt.Errorf("feature %q: %s is not a token locator", spec, l.name)
		}
	}
	if !indexFunctions[f.fn.name] {
		return Feature{}, fmt.Errorf("feature %q: %s is not a token function", spec, f.fn.name)
	}
	return f, nil
}

// #endregion descriptor

// #region extractor
// Value is one extracted feature.
type Value struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Extractor evaluates a fixed list of features. It holds no per-state data
// and may be shared.
type Extractor struct {
	features []Feature
}

// Parse builds an extractor from a whitespace-separated descriptor list.
func Parse(fml string) (*Extractor, error) {
	fields := strings.Fields(fml)
	e := &Extractor{features: make([]Feature, 0, len(fields))}
	for _, field := range fields {
		f, err := ParseFeature(field)
		if err != nil {
			return nil, err
		}
		e.features = append(e.features, f)
	}
	return e, nil
}

// Specs returns the descriptors in extraction order.
func (e *Extractor) Specs() []string {
	out := make([]string, len(e.features))
	for i, f := range e.features {
		out[i] = f.spec
	}
	return out
}

// NeedsHistory reports whether any feature reads past actions.
func (e *Extractor) NeedsHistory() bool {
	for _, f := range e.features {
		if f.fn.name == "last-action" {
			return true
		}
	}
	return false
}

// Preprocess turns on history tracking when a feature needs it.
func (e *Extractor) Preprocess(st *state.State) {
	if e.NeedsHistory() {
		st.SetKeepHistory(true)
	}
}

// Extract evaluates every feature on st.
func (e *Extractor) Extract(st *state.State) ([]Value, error) {
	out := make([]Value, 0, len(e.features))
	for _, f := range e.features {
		id, err := f.evaluate(st)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.spec, err)
		}
		out = append(out, Value{Name: f.spec, ID: id})
	}
	return out, nil
}

// #endregion extractor

// #region evaluation
func (f Feature) evaluate(st *state.State) (int, error) {
	if len(f.locators) == 0 {
		switch f.fn.name {
		case "last-action":
			a, ok := st.HistoryAt(f.fn.arg)
			if !ok {
				return 0, nil
			}
			return a + 1, nil
		default:
			return f.fn.arg, nil
		}
	}

	focus := st.StackAt(f.locators[0].arg)
	for _, l := range f.locators[1:] {
		if focus < state.Root {
			break
		}
		var err error
		focus, err = locate(st, l, focus)
		if err != nil {
			return 0, err
		}
	}
	return f.compute(st, focus)
}

func locate(st *state.State, l call, focus int) (int, error) {
	switch l.name {
	case "head":
		return st.Parent(focus, l.arg)
	case "child":
		if l.arg < 0 {
			return st.LeftmostChild(focus, -l.arg)
		}
		return st.RightmostChild(focus, l.arg)
	case "sibling":
		if l.arg < 0 {
			return st.LeftSibling(focus, -l.arg)
		}
		return st.RightSibling(focus, l.arg)
	}
	return 0, fmt.Errorf("unknown locator %s", l)
}

// compute maps the located token to an id. For label, tag and word the
// domain is the vocabulary size plus two values: size for the root and
// size+1 for no token or no value.
func (f Feature) compute(st *state.State, focus int) (int, error) {
	v := st.Vocab()
	var size int
	var get func(int) (int, error)
	switch f.fn.name {
	case "focus":
		return focus, nil
	case "label":
		size, get = v.Labels.Size(), st.Label
	case "tag":
		size, get = v.Tags.Size(), st.Tag
	case "word":
		size, get = v.Words.Size(), st.Word
	default:
		return 0, fmt.Errorf("unknown function %s", f.fn)
	}

	rootValue, noneValue := size, size+1
	if focus == state.Root {
		return rootValue, nil
	}
	if focus < state.Root {
		return noneValue, nil
	}
	id, err := get(focus)
	if err != nil {
		return 0, err
	}
	if f.fn.name == "label" && id == st.RootLabel() {
		return rootValue, nil
	}
	if id < 0 || id >= size {
		return noneValue, nil
	}
	return id, nil
}

// #endregion evaluation
