package gate

import (
	"testing"

	"github.com/danielpatrickdp/treegen/internal/beam"
	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

// makeHypothesis builds a chain of depth tokens under the root, each with
// its word, and scores it.
func makeHypothesis(t *testing.T, depth int, score float64) *beam.Hypothesis {
	t.Helper()
	st := state.New(vocab.NewSet(
		vocab.NewTermMap("A"),
		vocab.NewTermMap("X"),
		vocab.NewTermMap("w"),
	))
	st.Init()
	for i := 0; i < depth; i++ {
		st.Add(0, 0)
		st.AddWord(0)
	}
	h, err := beam.NewHypothesis(st, depth)
	if err != nil {
		t.Fatalf("new hypothesis: %v", err)
	}
	h.SetScore(score)
	return h
}

func TestGateKeepsWithinLimits(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(makeHypothesis(t, 3, -1), -1)

	if decision.Action != "keep" {
		t.Fatalf("expected keep, got %s: %s", decision.Action, decision.Reason)
	}
	if decision.Vetoed {
		t.Fatal("should not be vetoed")
	}
	if decision.Margin != 0 {
		t.Errorf("margin = %v, want 0", decision.Margin)
	}
}

func TestGatePrunesOnTokenLimit(t *testing.T) {
	g := NewGate(GateConfig{MaxTokens: 2})

	decision := g.Evaluate(makeHypothesis(t, 3, 0), 0)

	if decision.Action != "prune" {
		t.Fatalf("expected prune, got %s", decision.Action)
	}
	if !decision.Vetoed {
		t.Fatal("should be vetoed")
	}
	if len(decision.VetoSignals) != 1 || decision.VetoSignals[0].Type != VetoTokenLimit {
		t.Fatalf("expected a single VetoTokenLimit, got %+v", decision.VetoSignals)
	}
}

func TestGatePrunesOnStackDepth(t *testing.T) {
	g := NewGate(GateConfig{MaxStackDepth: 3})

	// root plus three open tokens
	decision := g.Evaluate(makeHypothesis(t, 3, 0), 0)

	if !decision.Vetoed {
		t.Fatal("should be vetoed")
	}
	if decision.VetoSignals[0].Type != VetoStackDepth {
		t.Fatalf("expected VetoStackDepth, got %s", decision.VetoSignals[0].Type)
	}
}

func TestGatePrunesOnScoreMargin(t *testing.T) {
	g := NewGate(GateConfig{ScoreMargin: 2})

	kept := g.Evaluate(makeHypothesis(t, 1, -1.5), 0)
	if kept.Vetoed {
		t.Fatalf("margin 1.5 should pass: %s", kept.Reason)
	}

	pruned := g.Evaluate(makeHypothesis(t, 1, -3), 0)
	if !pruned.Vetoed {
		t.Fatal("margin 3 should be vetoed")
	}
	if pruned.VetoSignals[0].Type != VetoScoreMargin {
		t.Fatalf("expected VetoScoreMargin, got %s", pruned.VetoSignals[0].Type)
	}
	if pruned.Margin != 3 {
		t.Errorf("margin = %v, want 3", pruned.Margin)
	}
}

func TestGateCollectsAllVetoes(t *testing.T) {
	g := NewGate(GateConfig{MaxTokens: 1, MaxStackDepth: 2, ScoreMargin: 0.5})

	decision := g.Evaluate(makeHypothesis(t, 2, -1), 0)

	if len(decision.VetoSignals) != 3 {
		t.Fatalf("expected 3 veto signals, got %d", len(decision.VetoSignals))
	}
}

func TestGateZeroConfigDisablesChecks(t *testing.T) {
	g := NewGate(GateConfig{})

	decision := g.Evaluate(makeHypothesis(t, 5, -100), 0)

	if decision.Vetoed {
		t.Fatalf("zero config should not veto: %s", decision.Reason)
	}
}
