// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists analysis runs and their results in SQLite.
//
// The runs table records request parameters, the provider tag, lifecycle
// status, resolved identifiers and timestamps. API keys are never written.
// The results table holds one row per run with the serialized evidence
// bundle and analyzer output.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// ErrNotFound is returned when a run or result does not exist.
var ErrNotFound = errors.New("not found")

// TransitionError reports a status update that the run's current state
// does not allow.
type TransitionError struct {
	RunID int64
	From  types.RunState
	To    types.RunState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("run %d cannot transition from %s to %s", e.RunID, e.From, e.To)
}

// Store manages the run history database.
type Store struct {
	db           *sql.DB
	historyLimit int
	now          func() time.Time
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultPipelineConfig().Store.Path
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 50
	}

	s := &Store{db: db, historyLimit: limit, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gene TEXT NOT NULL,
			disease TEXT NOT NULL,
			params TEXT NOT NULL,
			provider TEXT,
			model TEXT,
			status TEXT NOT NULL,
			ensembl_id TEXT,
			efo_id TEXT,
			mondo_id TEXT,
			created_at TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id INTEGER PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			evidence TEXT,
			analyzer_output TEXT,
			verdict TEXT,
			confidence REAL NOT NULL DEFAULT 0,
			error_message TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateRun inserts a pending run for req and returns its id.
func (s *Store) CreateRun(ctx context.Context, req types.AnalysisRequest, provider types.Provider) (int64, error) {
	params, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshaling run parameters: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (gene, disease, params, provider, model, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.Gene, req.Disease, string(params), nullable(string(provider)), nullable(req.Model),
		string(types.RunPending), formatTime(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return id, nil
}

// MarkProcessing moves a pending run to processing.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	return s.transition(ctx, id, types.RunPending, types.RunProcessing, "", nil)
}

// FinishRun moves a processing run to a terminal status and records the
// resolved identifiers and completion time.
func (s *Store) FinishRun(ctx context.Context, id int64, status types.RunState, ids types.ResolvedIDs, completedAt time.Time) error {
	return s.transition(ctx, id, types.RunProcessing, status,
		`, ensembl_id = ?, efo_id = ?, mondo_id = ?, completed_at = ?`,
		[]any{nullable(ids.EnsemblID), nullable(ids.EFOID), nullable(ids.MONDOID), formatTime(completedAt)},
	)
}

// transition moves run id from one status to another, setting the extra
// columns in set. The update only applies while the run is still in from;
// otherwise the run's current status is reported in a TransitionError.
func (s *Store) transition(ctx context.Context, id int64, from, to types.RunState, set string, args []any) error {
	if !from.CanTransition(to) {
		return &TransitionError{RunID: id, From: from, To: to}
	}
	stmtArgs := append([]any{string(to)}, args...)
	stmtArgs = append(stmtArgs, id, string(from))
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?`+set+` WHERE id = ? AND status = ?`, stmtArgs...)
	if err != nil {
		return fmt.Errorf("updating run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating run %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return &TransitionError{RunID: id, From: run.Status, To: to}
}

// SaveResult writes the result row for res.RunID, replacing any earlier one.
func (s *Store) SaveResult(ctx context.Context, res types.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (run_id, evidence, analyzer_output, verdict, confidence, error_message)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			evidence=excluded.evidence, analyzer_output=excluded.analyzer_output,
			verdict=excluded.verdict, confidence=excluded.confidence,
			error_message=excluded.error_message`,
		res.RunID, nullableJSON(res.Evidence), nullableJSON(res.AnalyzerOutput),
		nullable(string(res.Verdict)), res.Confidence, nullable(res.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("saving result for run %d: %w", res.RunID, err)
	}
	return nil
}

const runColumns = `id, params, provider, status, ensembl_id, efo_id, mondo_id, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*types.Run, error) {
	var (
		run                                 types.Run
		params, status, createdAt           string
		provider, ensembl, efo, mondo, done sql.NullString
	)
	if err := row.Scan(&run.ID, &params, &provider, &status, &ensembl, &efo, &mondo, &createdAt, &done); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &run.Request); err != nil {
		return nil, fmt.Errorf("decoding parameters of run %d: %w", run.ID, err)
	}
	run.Provider = types.Provider(provider.String)
	run.Status = types.RunState(status)
	run.EnsemblID = ensembl.String
	run.EFOID = efo.String
	run.MONDOID = mondo.String
	run.CreatedAt = parseTime(createdAt)
	if done.Valid {
		t := parseTime(done.String)
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id int64) (*types.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %d: %w", id, err)
	}
	return run, nil
}

// GetResult returns the result recorded for a run.
func (s *Store) GetResult(ctx context.Context, runID int64) (*types.Result, error) {
	var (
		res                            types.Result
		evidence, output, verdict, msg sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, evidence, analyzer_output, verdict, confidence, error_message
		 FROM results WHERE run_id = ?`, runID,
	).Scan(&res.RunID, &evidence, &output, &verdict, &res.Confidence, &msg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result for run %d: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading result for run %d: %w", runID, err)
	}
	if evidence.Valid {
		res.Evidence = json.RawMessage(evidence.String)
	}
	if output.Valid {
		res.AnalyzerOutput = json.RawMessage(output.String)
	}
	res.Verdict = types.Verdict(verdict.String)
	res.ErrorMessage = msg.String
	return &res, nil
}

// HistoryEntry is one row of the run history listing. Verdict and
// Confidence are empty until a result has been saved.
type HistoryEntry struct {
	Run        types.Run     `json:"run" yaml:"run"`
	Verdict    types.Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Confidence *float64      `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less uses the configured history limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.params, r.provider, r.status, r.ensembl_id, r.efo_id, r.mondo_id,
			r.created_at, r.completed_at, res.verdict, res.confidence
		 FROM runs r LEFT JOIN results res ON res.run_id = r.id
		 ORDER BY r.created_at DESC, r.id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			verdict    sql.NullString
			confidence sql.NullFloat64
		)
		run, err := scanRun(scanFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &verdict, &confidence)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		entry := HistoryEntry{Run: *run, Verdict: types.Verdict(verdict.String)}
		if confidence.Valid {
			c := confidence.Float64
			entry.Confidence = &c
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableJSON(raw json.RawMessage) sql.NullString {
	return nullable(string(raw))
}
