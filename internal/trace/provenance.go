package trace

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS step_log (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	hypothesis_id     TEXT NOT NULL,
	trace_name        TEXT,
	step              INTEGER NOT NULL,
	action            INTEGER NOT NULL,
	action_string     TEXT NOT NULL,
	score             REAL NOT NULL,
	delta             REAL NOT NULL,
	beam_index        INTEGER NOT NULL,
	parent_beam_index INTEGER NOT NULL,
	child_index       INTEGER NOT NULL,
	parent_index      INTEGER NOT NULL,
	stack             TEXT,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_step_log_hypothesis ON step_log(hypothesis_id);
`

// EnsureSchema creates the step_log table if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("step_log schema: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-steps
// LogSteps writes every step of tr for hypothesisID in one transaction.
func LogSteps(db *sql.DB, hypothesisID string, tr *ComponentTrace) error {
	if tr.Len() == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, s := range tr.Steps {
		_, err := tx.Exec(
			`INSERT INTO step_log (hypothesis_id, trace_name, step, action, action_string, score, delta,
			 beam_index, parent_beam_index, child_index, parent_index, stack, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			hypothesisID, nullIfEmpty(tr.Name), s.Step, s.Action, s.ActionString, s.Score, s.Delta,
			s.BeamIndex, s.ParentBeamIndex, s.ChildIndex, s.ParentIndex, nullIfEmpty(s.Stack), now,
		)
		if err != nil {
			return fmt.Errorf("log step %d: %w", s.Step, err)
		}
	}
	return tx.Commit()
}

// #endregion log-steps

// #region load-steps
// LoadSteps reads back the trace of hypothesisID ordered by step.
func LoadSteps(db *sql.DB, hypothesisID string) (*ComponentTrace, error) {
	rows, err := db.Query(
		`SELECT trace_name, step, action, action_string, score, delta, beam_index, parent_beam_index,
		 child_index, parent_index, stack
		 FROM step_log WHERE hypothesis_id = ? ORDER BY step ASC, id ASC`, hypothesisID,
	)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()

	tr := &ComponentTrace{}
	for rows.Next() {
		var s Step
		var name, stack sql.NullString
		if err := rows.Scan(&name, &s.Step, &s.Action, &s.ActionString, &s.Score, &s.Delta,
			&s.BeamIndex, &s.ParentBeamIndex, &s.ChildIndex, &s.ParentIndex, &stack); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if name.Valid {
			tr.Name = name.String
		}
		if stack.Valid {
			s.Stack = stack.String
		}
		tr.Add(s)
	}
	return tr, rows.Err()
}

// #endregion load-steps

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
