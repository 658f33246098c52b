// Package store persists decode runs and their hypotheses in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/treegen/internal/beam"
	"github.com/danielpatrickdp/treegen/internal/trace"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// ErrNotFound is returned when a run or hypothesis does not exist.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	system        TEXT NOT NULL,
	config_json   TEXT,
	input_tokens  INTEGER NOT NULL,
	steps         INTEGER NOT NULL DEFAULT 0,
	complete      INTEGER NOT NULL DEFAULT 0,
	best_id       TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS hypotheses (
	hypothesis_id     TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	parent_id         TEXT,
	beam_index        INTEGER NOT NULL,
	parent_beam_index INTEGER NOT NULL,
	score             REAL NOT NULL,
	final             INTEGER NOT NULL,
	actions_json      TEXT NOT NULL,
	output_json       TEXT NOT NULL,
	stack             TEXT,
	created_at        TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id),
	FOREIGN KEY (parent_id) REFERENCES hypotheses(hypothesis_id)
);
CREATE INDEX IF NOT EXISTS idx_hypotheses_run ON hypotheses(run_id);
`

// #endregion schema

// #region store-struct
// Store manages runs and hypotheses in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations, including the step
// log used for traces.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := trace.EnsureSchema(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region runs
// CreateRun records the start of a decode. config is stored as JSON.
func (s *Store) CreateRun(system string, config any, inputTokens int) (RunRecord, error) {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal config: %w", err)
	}
	rec := RunRecord{
		RunID:       uuid.New().String(),
		System:      system,
		ConfigJSON:  string(cfgJSON),
		InputTokens: inputTokens,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, system, config_json, input_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.System, rec.ConfigJSON, rec.InputTokens, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// FinishRun stores the outcome of a decode.
func (s *Store) FinishRun(runID string, steps int, complete bool) error {
	res, err := s.db.Exec(`UPDATE runs SET steps = ?, complete = ? WHERE run_id = ?`, steps, complete, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRow(res, "run", runID)
}

// SetBest points the run at its best hypothesis.
func (s *Store) SetBest(runID, hypothesisID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow(`SELECT run_id FROM hypotheses WHERE hypothesis_id = ?`, hypothesisID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("hypothesis %s: %w", hypothesisID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check hypothesis: %w", err)
	}
	if owner != runID {
		return fmt.Errorf("hypothesis %s belongs to run %s, not %s", hypothesisID, owner, runID)
	}

	if _, err := tx.Exec(`UPDATE runs SET best_id = ? WHERE run_id = ?`, hypothesisID, runID); err != nil {
		return fmt.Errorf("set best: %w", err)
	}
	return tx.Commit()
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, system, config_json, input_tokens, steps, complete, best_id, created_at
		 FROM runs WHERE run_id = ?`, id,
	)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, system, config_json, input_tokens, steps, complete, best_id, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion runs

// #region hypotheses
// SaveHypothesis inserts rec, assigning an ID and timestamp when unset.
func (s *Store) SaveHypothesis(rec HypothesisRecord) (HypothesisRecord, error) {
	if rec.HypothesisID == "" {
		rec.HypothesisID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	actionsJSON, err := json.Marshal(nonNil(rec.Actions))
	if err != nil {
		return HypothesisRecord{}, fmt.Errorf("marshal actions: %w", err)
	}
	outputJSON, err := json.Marshal(rec.Tokens)
	if err != nil {
		return HypothesisRecord{}, fmt.Errorf("marshal output: %w", err)
	}

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}

	_, err = s.db.Exec(
		`INSERT INTO hypotheses (hypothesis_id, run_id, parent_id, beam_index, parent_beam_index,
		 score, final, actions_json, output_json, stack, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.HypothesisID, rec.RunID, parentPtr, rec.BeamIndex, rec.ParentBeamIndex,
		rec.Score, rec.Final, string(actionsJSON), string(outputJSON), rec.Stack,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return HypothesisRecord{}, fmt.Errorf("insert hypothesis: %w", err)
	}
	return rec, nil
}

// SaveTrace writes the step log of a saved hypothesis.
func (s *Store) SaveTrace(hypothesisID string, tr *trace.ComponentTrace) error {
	return trace.LogSteps(s.db, hypothesisID, tr)
}

// LoadTrace reads the step log of a hypothesis.
func (s *Store) LoadTrace(hypothesisID string) (*trace.ComponentTrace, error) {
	return trace.LoadSteps(s.db, hypothesisID)
}

// GetHypothesis retrieves a hypothesis by ID.
func (s *Store) GetHypothesis(id string) (HypothesisRecord, error) {
	row := s.db.QueryRow(`SELECT `+hypothesisColumns+` FROM hypotheses WHERE hypothesis_id = ?`, id)
	rec, err := scanHypothesis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return HypothesisRecord{}, fmt.Errorf("get hypothesis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return HypothesisRecord{}, fmt.Errorf("get hypothesis %s: %w", id, err)
	}
	return rec, nil
}

// ListHypotheses returns the hypotheses of a run by beam index.
func (s *Store) ListHypotheses(runID string) ([]HypothesisRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+hypothesisColumns+` FROM hypotheses WHERE run_id = ?
		 ORDER BY beam_index ASC, created_at ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list hypotheses: %w", err)
	}
	defer rows.Close()

	var records []HypothesisRecord
	for rows.Next() {
		rec, err := scanHypothesis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BestHypothesis returns the hypothesis the run points at, or else its
// highest scoring final hypothesis.
func (s *Store) BestHypothesis(runID string) (HypothesisRecord, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return HypothesisRecord{}, err
	}
	if run.BestID != "" {
		return s.GetHypothesis(run.BestID)
	}

	row := s.db.QueryRow(
		`SELECT `+hypothesisColumns+` FROM hypotheses WHERE run_id = ? AND final = 1
		 ORDER BY score DESC, beam_index ASC LIMIT 1`, runID,
	)
	rec, err := scanHypothesis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return HypothesisRecord{}, fmt.Errorf("best hypothesis of run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return HypothesisRecord{}, fmt.Errorf("best hypothesis of run %s: %w", runID, err)
	}
	return rec, nil
}

// Lineage returns the hypothesis and its saved ancestors, newest first.
func (s *Store) Lineage(id string) ([]HypothesisRecord, error) {
	var chain []HypothesisRecord
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		seen[id] = true
		rec, err := s.GetHypothesis(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rec)
		id = rec.ParentID
	}
	return chain, nil
}

// #endregion hypotheses

// #region from-hypothesis
// RecordFromHypothesis captures h for saving. actions is the path that built
// its state.
func RecordFromHypothesis(runID string, sys transition.System, h *beam.Hypothesis, actions []int, rewriteRootLabels bool) HypothesisRecord {
	st := h.State()
	return HypothesisRecord{
		RunID:           runID,
		BeamIndex:       h.BeamIndex(),
		ParentBeamIndex: h.ParentBeamIndex(),
		Score:           h.Score(),
		Final:           sys.IsFinal(st) && st.NumTokens() > 0,
		Actions:         actions,
		Tokens:          sys.CreateOutput(st, rewriteRootLabels),
		Stack:           st.String(),
	}
}

// #endregion from-hypothesis

// #region scanning
const hypothesisColumns = `hypothesis_id, run_id, parent_id, beam_index, parent_beam_index,
	score, final, actions_json, output_json, stack, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var cfgJSON, bestID sql.NullString
	var createdStr string
	if err := row.Scan(&rec.RunID, &rec.System, &cfgJSON, &rec.InputTokens, &rec.Steps,
		&rec.Complete, &bestID, &createdStr); err != nil {
		return RunRecord{}, err
	}
	rec.ConfigJSON = cfgJSON.String
	rec.BestID = bestID.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func scanHypothesis(row scanner) (HypothesisRecord, error) {
	var rec HypothesisRecord
	var parentID, stack sql.NullString
	var actionsJSON, outputJSON, createdStr string
	if err := row.Scan(&rec.HypothesisID, &rec.RunID, &parentID, &rec.BeamIndex, &rec.ParentBeamIndex,
		&rec.Score, &rec.Final, &actionsJSON, &outputJSON, &stack, &createdStr); err != nil {
		return HypothesisRecord{}, err
	}
	rec.ParentID = parentID.String
	rec.Stack = stack.String
	if err := json.Unmarshal([]byte(actionsJSON), &rec.Actions); err != nil {
		return HypothesisRecord{}, fmt.Errorf("unmarshal actions: %w", err)
	}
	if err := json.Unmarshal([]byte(outputJSON), &rec.Tokens); err != nil {
		return HypothesisRecord{}, fmt.Errorf("unmarshal output: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nonNil(a []int) []int {
	if a == nil {
		return []int{}
	}
	return a
}

// #endregion scanning
