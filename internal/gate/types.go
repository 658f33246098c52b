package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoTokenLimit  VetoType = "token_limit"
	VetoStackDepth  VetoType = "stack_depth"
	VetoScoreMargin VetoType = "score_margin"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds limits for successor hypotheses. Zero disables a limit.
type GateConfig struct {
	MaxTokens     int     // max tokens a hypothesis may create
	MaxStackDepth int     // max stack depth, root included
	ScoreMargin   float64 // max distance below the best successor of the step
}

// DefaultGateConfig returns the limits used when none are configured.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxTokens:     256,
		MaxStackDepth: 64,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string // "keep" | "prune"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
	Margin      float64      // best - score, for logging
}

// #endregion gate-decision
