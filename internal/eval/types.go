package eval

// #region eval-config
// EvalConfig holds limits for validating finished trees.
type EvalConfig struct {
	MaxTokens int // reject trees with more tokens; 0 disables the check
}

// DefaultEvalConfig returns the limits used when none are configured.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{MaxTokens: 256}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
