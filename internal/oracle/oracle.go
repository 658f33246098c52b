// Package oracle scores candidate actions for a state. The core never
// computes scores itself; a search driver asks a Scorer.
package oracle

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/treegen/internal/action"
	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// #region scorer
// Scorer returns one score per candidate action id, in candidate order.
// Implementations must not mutate st.
type Scorer interface {
	Score(ctx context.Context, st *state.State, candidates []int) ([]float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, st *state.State, candidates []int) ([]float64, error)

func (f ScorerFunc) Score(ctx context.Context, st *state.State, candidates []int) ([]float64, error) {
	return f(ctx, st, candidates)
}

// #endregion scorer

// #region table
// Table holds static action weights. A candidate scores Default plus the
// weight of its kind plus the weight of its rendered string, if any.
type Table struct {
	Default float64            `yaml:"default" json:"default"`
	Kinds   map[string]float64 `yaml:"kinds" json:"kinds"`
	Actions map[string]float64 `yaml:"actions" json:"actions"`
}

// LoadTable reads a YAML weight table.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read score table %s: %w", path, err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse score table %s: %w", path, err)
	}
	for k := range t.Kinds {
		switch k {
		case action.Collapse.String(), action.Add.String(), action.Word.String():
		default:
			return Table{}, fmt.Errorf("score table %s: unknown action kind %q", path, k)
		}
	}
	return t, nil
}

// TableScorer scores with a static Table.
type TableScorer struct {
	sys   transition.System
	table Table
}

// NewTableScorer binds t to the action space of sys.
func NewTableScorer(sys transition.System, t Table) *TableScorer {
	return &TableScorer{sys: sys, table: t}
}

func (s *TableScorer) Score(ctx context.Context, st *state.State, candidates []int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	codec := s.sys.Codec()
	scores := make([]float64, len(candidates))
	for i, a := range candidates {
		kind, err := codec.KindOf(a)
		if err != nil {
			return nil, fmt.Errorf("score candidate %d: %w", a, err)
		}
		score := s.table.Default + s.table.Kinds[kind.String()]
		if len(s.table.Actions) > 0 {
			score += s.table.Actions[s.sys.ActionAsString(a, st)]
		}
		scores[i] = score
	}
	return scores, nil
}

// #endregion table

// #region table-server
// TableServer serves a Table over gRPC. Requests carry no state, so action
// strings are rendered against a scratch state of sys.
type TableServer struct {
	scorer  *TableScorer
	scratch *state.State
}

// NewTableServer binds t to the action space of sys.
func NewTableServer(sys transition.System, t Table) *TableServer {
	return &TableServer{scorer: NewTableScorer(sys, t), scratch: sys.NewState()}
}

func (s *TableServer) Score(ctx context.Context, req ScoreRequest) ([]float64, error) {
	return s.scorer.Score(ctx, s.scratch, req.Candidates)
}

// #endregion table-server
