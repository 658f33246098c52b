// Package gate prunes successor hypotheses before they enter the beam.
package gate

import (
	"fmt"

	"github.com/danielpatrickdp/treegen/internal/beam"
)

// #region gate
// Gate decides whether a successor hypothesis may enter the beam.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the gate limits.
func (g *Gate) Config() GateConfig { return g.config }

// Evaluate checks every hard veto against h. best is the highest score
// among the successors of the current step.
func (g *Gate) Evaluate(h *beam.Hypothesis, best float64) GateDecision {
	var vetoes []VetoSignal
	st := h.State()

	// 1. Token limit
	if g.config.MaxTokens > 0 && st.NumTokens() > g.config.MaxTokens {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTokenLimit,
			Reason: fmt.Sprintf("%d tokens exceeds cap %d", st.NumTokens(), g.config.MaxTokens),
		})
	}

	// 2. Stack depth
	if g.config.MaxStackDepth > 0 && st.StackSize() > g.config.MaxStackDepth {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoStackDepth,
			Reason: fmt.Sprintf("stack depth %d exceeds cap %d", st.StackSize(), g.config.MaxStackDepth),
		})
	}

	// 3. Score margin
	margin := best - h.Score()
	if g.config.ScoreMargin > 0 && margin > g.config.ScoreMargin {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoScoreMargin,
			Reason: fmt.Sprintf("score %.4f is %.4f below best, margin %.4f", h.Score(), margin, g.config.ScoreMargin),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "prune",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Margin:      margin,
		}
	}

	return GateDecision{
		Action: "keep",
		Reason: fmt.Sprintf("passed gate: margin=%.4f", margin),
		Margin: margin,
	}
}

// #endregion gate
