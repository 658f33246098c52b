// Package transition implements the generator transition system: legality of
// the COLLAPSE / ADD / WORD actions, their application to a state, terminal
// tests and rendering.
package transition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danielpatrickdp/treegen/internal/action"
	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

var (
	// ErrInvalidTransition is returned when an action is applied to a state
	// that does not allow it.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownSystem is returned by New for names outside the registry.
	ErrUnknownSystem = errors.New("unknown transition system")
)

// #region system
// System is the surface a search driver uses. The set of implementations is
// closed: obtain one with New.
type System interface {
	Name() string
	Codec() action.Codec
	Vocab() *vocab.Set

	// NewState returns an initialized state for a fresh hypothesis.
	NewState() *state.State
	Init(st *state.State)

	NumActions() int
	NumActionTypes() int
	DefaultAction(st *state.State) int

	IsAllowed(a int, st *state.State) bool
	AllowedActions(st *state.State) []int

	// Apply records a in the state's history when tracking is on.
	Apply(a int, st *state.State) error
	ApplyWithoutHistory(a int, st *state.State) error

	IsFinal(st *state.State) bool
	IsDeterministic(st *state.State) bool

	ActionAsString(a int, st *state.State) string
	SupportsActionMetadata() bool
	ChildIndex(st *state.State, a int) int
	ParentIndex(st *state.State, a int) int

	CreateOutput(st *state.State, rewriteRootLabels bool) []state.Token
}

// #endregion system

// #region registry
const (
	// NameGenerator collapses down to the root, so a finished tree leaves
	// only the root on the stack.
	NameGenerator = "generator"
	// NameGeneratorStrict keeps the last token under the root open: COLLAPSE
	// needs at least two tokens above the root.
	NameGeneratorStrict = "generator-strict"
)

var registry = map[string]func(action.Codec, *vocab.Set) System{
	NameGenerator: func(c action.Codec, v *vocab.Set) System {
		return &Generator{name: NameGenerator, codec: c, vocab: v, collapseFloor: 1}
	},
	NameGeneratorStrict: func(c action.Codec, v *vocab.Set) System {
		return &Generator{name: NameGeneratorStrict, codec: c, vocab: v, collapseFloor: 2}
	},
}

// Names lists the registered systems in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the named system over set. The codec is sized from the label,
// tag and word tables.
func New(name string, set *vocab.Set) (System, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownSystem, name, Names())
	}
	codec, err := action.NewCodec(set.Labels.Size(), set.Tags.Size(), set.Words.Size())
	if err != nil {
		return nil, fmt.Errorf("transition system %s: %w", name, err)
	}
	return build(codec, set), nil
}

// #endregion registry

// #region generator
// Generator is the COLLAPSE / ADD / WORD system. collapseFloor is the stack
// depth COLLAPSE must exceed.
type Generator struct {
	name          string
	codec         action.Codec
	vocab         *vocab.Set
	collapseFloor int
}

var _ System = (*Generator)(nil)

func (g *Generator) Name() string        { return g.name }
func (g *Generator) Codec() action.Codec { return g.codec }
func (g *Generator) Vocab() *vocab.Set   { return g.vocab }

// NewState returns a state with the root pushed.
func (g *Generator) NewState() *state.State {
	st := state.New(g.vocab)
	g.Init(st)
	return st
}

// Init pushes the root.
func (g *Generator) Init(st *state.State) {
	st.Init()
}

func (g *Generator) NumActions() int     { return g.codec.NumActions() }
func (g *Generator) NumActionTypes() int { return action.NumKinds }

// DefaultAction is COLLAPSE.
func (g *Generator) DefaultAction(*state.State) int {
	return g.codec.CollapseAction()
}

// #endregion generator

// #region legality
func (g *Generator) IsAllowedCollapse(st *state.State) bool {
	return !st.MissingWord() && st.StackSize() > g.collapseFloor
}

func (g *Generator) IsAllowedAdd(st *state.State) bool {
	return !st.MissingWord()
}

func (g *Generator) IsAllowedWord(st *state.State) bool {
	return st.MissingWord()
}

// IsAllowed reports whether a may be applied to st. Ids outside the action
// space are never allowed.
func (g *Generator) IsAllowed(a int, st *state.State) bool {
	kind, err := g.codec.KindOf(a)
	if err != nil {
		return false
	}
	switch kind {
	case action.Collapse:
		return g.IsAllowedCollapse(st)
	case action.Add:
		return g.IsAllowedAdd(st)
	case action.Word:
		return g.IsAllowedWord(st)
	}
	return false
}

// AllowedActions lists every legal action id in increasing order.
func (g *Generator) AllowedActions(st *state.State) []int {
	if g.IsAllowedWord(st) {
		out := make([]int, 0, g.codec.NumWords())
		for w := 0; w < g.codec.NumWords(); w++ {
			out = append(out, g.codec.WordAction(w))
		}
		return out
	}
	span := g.codec.NumLabels() * g.codec.NumTags()
	out := make([]int, 0, span+1)
	if g.IsAllowedCollapse(st) {
		out = append(out, g.codec.CollapseAction())
	}
	for a := 1; a <= span; a++ {
		out = append(out, a)
	}
	return out
}

// #endregion legality

// #region apply
// Apply performs a on st and appends it to the history when enabled.
func (g *Generator) Apply(a int, st *state.State) error {
	if err := g.ApplyWithoutHistory(a, st); err != nil {
		return err
	}
	st.RecordAction(a)
	return nil
}

// ApplyWithoutHistory performs a on st. A disallowed action leaves st
// untouched and returns an error wrapping ErrInvalidTransition and
// state.ErrInvalidState.
func (g *Generator) ApplyWithoutHistory(a int, st *state.State) error {
	act, err := g.codec.Decode(a)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	if !g.IsAllowed(a, st) {
		return fmt.Errorf("%w: %w: %s not allowed in %s (stack depth %d, missing word %t)",
			ErrInvalidTransition, state.ErrInvalidState,
			g.ActionAsString(a, st), st.String(), st.StackSize(), st.MissingWord())
	}
	switch act.Kind {
	case action.Collapse:
		st.Collapse()
	case action.Add:
		st.Add(act.Label, act.Tag)
	case action.Word:
		st.AddWord(act.Word)
	}
	return nil
}

// MustApply is Apply for callers that only propose legal actions; it panics
// on a disallowed action.
func MustApply(sys System, a int, st *state.State) {
	if err := sys.Apply(a, st); err != nil {
		panic(err)
	}
}

// #endregion apply

// #region terminal
// IsFinal reports that no further action should be proposed: only the root
// is left on the stack.
func (g *Generator) IsFinal(st *state.State) bool {
	return st.StackSize() < 2
}

// IsDeterministic shares the final-state condition.
func (g *Generator) IsDeterministic(st *state.State) bool {
	return st.StackSize() < 2
}

// #endregion terminal

// #region rendering
// ActionAsString renders a as COLLAPSE, ADD(label, tag) or WORD(word).
func (g *Generator) ActionAsString(a int, st *state.State) string {
	act, err := g.codec.Decode(a)
	if err != nil {
		return "UNKNOWN"
	}
	switch act.Kind {
	case action.Collapse:
		return "COLLAPSE"
	case action.Add:
		return "ADD(" + st.LabelAsString(act.Label) + ", " + st.TagAsString(act.Tag) + ")"
	case action.Word:
		return "WORD(" + st.WordAsString(act.Word) + ")"
	}
	return "UNKNOWN"
}

// CreateOutput materializes the tokens of st.
func (g *Generator) CreateOutput(st *state.State, rewriteRootLabels bool) []state.Token {
	return st.CreateOutput(rewriteRootLabels)
}

// #endregion rendering

// #region metadata
func (g *Generator) SupportsActionMetadata() bool { return true }

// ChildIndex is the current stack top for ADD, -1 otherwise.
func (g *Generator) ChildIndex(st *state.State, a int) int {
	kind, err := g.codec.KindOf(a)
	if err != nil || kind != action.Add {
		return -1
	}
	return st.StackAt(0)
}

// ParentIndex is the element below the stack top for ADD, -1 otherwise.
func (g *Generator) ParentIndex(st *state.State, a int) int {
	kind, err := g.codec.KindOf(a)
	if err != nil || kind != action.Add {
		return -1
	}
	return st.StackAt(1)
}

// #endregion metadata
