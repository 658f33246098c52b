package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/treegen/internal/eval"
	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/transition"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string           `json:"description"`
	System      string           `json:"system,omitempty"`
	Vocab       FixtureVocab     `json:"vocab"`
	Config      FixtureConfig    `json:"config"`
	Actions     []FixtureAction  `json:"actions"`
	Expected    *FixtureExpected `json:"expected,omitempty"`
}

// FixtureVocab lists the terms of each table in id order.
type FixtureVocab struct {
	Labels    []string `json:"labels"`
	Tags      []string `json:"tags"`
	Words     []string `json:"words"`
	RootLabel string   `json:"root_label,omitempty"`
}

// FixtureConfig holds replay options.
type FixtureConfig struct {
	RewriteRootLabels bool `json:"rewrite_root_labels"`
	MaxTokens         int  `json:"max_tokens"`
}

// FixtureExpected is what the state must look like after every action.
// Nil fields are not checked.
type FixtureExpected struct {
	Tokens []state.Token `json:"tokens,omitempty"`
	Stack  string        `json:"stack,omitempty"`
	Final  *bool         `json:"final,omitempty"`
}

// FixtureAction is an action id or its rendered form, e.g. 3 or
// "ADD(nsubj, NN)".
type FixtureAction struct {
	ID   int
	Text string
}

func (a *FixtureAction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		a.ID = -1
		return json.Unmarshal(data, &a.Text)
	}
	a.Text = ""
	return json.Unmarshal(data, &a.ID)
}

func (a FixtureAction) MarshalJSON() ([]byte, error) {
	if a.Text != "" {
		return json.Marshal(a.Text)
	}
	return json.Marshal(a.ID)
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToSet builds the vocabulary tables.
func (v *FixtureVocab) ToSet() *vocab.Set {
	s := vocab.NewSet(
		vocab.NewTermMap(v.Labels...),
		vocab.NewTermMap(v.Tags...),
		vocab.NewTermMap(v.Words...),
	)
	if v.RootLabel != "" {
		s.RootLabelName = v.RootLabel
	}
	return s
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	return ReplayConfig{
		RewriteRootLabels: fc.RewriteRootLabels,
		EvalConfig:        eval.EvalConfig{MaxTokens: fc.MaxTokens},
	}
}

// Build resolves the fixture into a transition system and action ids.
func (f *Fixture) Build() (transition.System, []int, error) {
	name := f.System
	if name == "" {
		name = transition.NameGenerator
	}
	set := f.Vocab.ToSet()
	sys, err := transition.New(name, set)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int, len(f.Actions))
	for i, a := range f.Actions {
		if a.Text == "" {
			ids[i] = a.ID
			continue
		}
		id, err := ParseAction(sys.Codec(), set, a.Text)
		if err != nil {
			return nil, nil, fmt.Errorf("action %d: %w", i, err)
		}
		ids[i] = id
	}
	return sys, ids, nil
}

// #endregion fixture-loader

// #region fixture-export

// NewFixture records the actions that built st so the run can be replayed.
// The expected section is filled from st itself.
func NewFixture(description string, sys transition.System, actions []int, st *state.State, config FixtureConfig) *Fixture {
	set := sys.Vocab()
	f := &Fixture{
		Description: description,
		System:      sys.Name(),
		Vocab: FixtureVocab{
			Labels:    terms(set.Labels),
			Tags:      terms(set.Tags),
			Words:     terms(set.Words),
			RootLabel: set.RootName(),
		},
		Config: config,
	}

	// Render each action against the state it was applied to.
	replayed := sys.NewState()
	for _, a := range actions {
		fa := FixtureAction{ID: a}
		text := sys.ActionAsString(a, replayed)
		if id, err := ParseAction(sys.Codec(), set, text); err == nil && id == a {
			fa.Text = text
		}
		f.Actions = append(f.Actions, fa)
		if err := sys.ApplyWithoutHistory(a, replayed); err != nil {
			break
		}
	}

	final := sys.IsFinal(st)
	f.Expected = &FixtureExpected{
		Tokens: sys.CreateOutput(st, config.RewriteRootLabels),
		Stack:  st.String(),
		Final:  &final,
	}
	return f
}

func terms(v vocab.Vocabulary) []string {
	out := make([]string, v.Size())
	for i := range out {
		out[i] = v.GetTerm(i)
	}
	return out
}

// #endregion fixture-export
