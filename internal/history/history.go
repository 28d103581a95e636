package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aibasel/machetli-go/pkg/machetli"
)

// Store persists search run records to a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		environment TEXT NOT NULL,
		eval_dir TEXT,
		initial_label TEXT NOT NULL,
		final_label TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		generator_index INTEGER NOT NULL,
		change_label TEXT NOT NULL,
		committed_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_commits_run_id ON commits(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one recorded invocation of Search: the environment it ran under,
// the state it started and ended on (as caller-supplied human-readable
// labels, since the engine's State values are opaque), and the commits it
// accepted along the way.
type Run struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Environment  string
	EvalDir      string
	InitialLabel string
	FinalLabel   string
	Outcome      string // "ok" or "error"
	Error        string
	Commits      []machetli.CommitRecord
}

// RecordRun inserts run and its commit log in a single transaction,
// returning the assigned run ID.
func (s *Store) RecordRun(run Run) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		INSERT INTO runs (started_at, finished_at, environment, eval_dir, initial_label, final_label, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt, run.FinishedAt, run.Environment, run.EvalDir, run.InitialLabel, run.FinalLabel, run.Outcome, run.Error)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO commits (run_id, generator_index, change_label, committed_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare commit insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range run.Commits {
		if _, err := stmt.Exec(runID, c.GeneratorIndex, c.ChangeLabel, c.Timestamp); err != nil {
			return 0, fmt.Errorf("insert commit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit history transaction: %w", err)
	}

	return runID, nil
}

// Recent returns the most recently started runs, most recent first. A
// limit of 0 or less returns all runs.
func (s *Store) Recent(limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, finished_at, environment, eval_dir, initial_label, final_label, outcome, error
		FROM runs
		ORDER BY started_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var errMsg sql.NullString
		var evalDir sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Environment, &evalDir, &r.InitialLabel, &r.FinalLabel, &r.Outcome, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.EvalDir = evalDir.String
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		commits, err := s.commitsForRun(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Commits = commits
	}

	return runs, nil
}

func (s *Store) commitsForRun(runID int64) ([]machetli.CommitRecord, error) {
	rows, err := s.db.Query(`
		SELECT generator_index, change_label, committed_at
		FROM commits
		WHERE run_id = ?
		ORDER BY committed_at ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	var commits []machetli.CommitRecord
	for rows.Next() {
		var c machetli.CommitRecord
		if err := rows.Scan(&c.GeneratorIndex, &c.ChangeLabel, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}
