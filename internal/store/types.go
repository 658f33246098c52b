package store

import (
	"time"

	"github.com/danielpatrickdp/treegen/internal/state"
)

// #region run-record
// RunRecord is one decode: its configuration and outcome.
type RunRecord struct {
	RunID       string
	System      string
	ConfigJSON  string
	InputTokens int
	Steps       int
	Complete    bool
	BestID      string // "" until SetBest
	CreatedAt   time.Time
}

// #endregion run-record

// #region hypothesis-record
// HypothesisRecord is a persisted hypothesis. ParentID links it to the
// hypothesis it was expanded from when both were saved.
type HypothesisRecord struct {
	HypothesisID    string
	RunID           string
	ParentID        string
	BeamIndex       int
	ParentBeamIndex int
	Score           float64
	Final           bool
	Actions         []int
	Tokens          []state.Token
	Stack           string
	CreatedAt       time.Time
}

// #endregion hypothesis-record
