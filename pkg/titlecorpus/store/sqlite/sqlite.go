// Package sqlite keeps a snapshot of each run (raw records and token rows)
// in a SQLite file.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// Run describes one pipeline execution.
type Run struct {
	ID        string
	Term      string
	Language  string
	Model     string
	StartedAt time.Time
	Records   int
	Tokens    int
}

// Store persists run snapshots.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens a SQLite database with WAL mode and foreign keys enabled and
// creates the schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	term TEXT NOT NULL,
	language TEXT,
	model TEXT,
	started_at TEXT NOT NULL,
	records INTEGER NOT NULL DEFAULT 0,
	tokens INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
	run_id TEXT NOT NULL,
	post_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	title TEXT NOT NULL,
	PRIMARY KEY(run_id, post_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tokens (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	post_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	original_title TEXT NOT NULL,
	normalized_title TEXT NOT NULL,
	token TEXT NOT NULL,
	lemma TEXT,
	pos TEXT,
	tag TEXT,
	dep TEXT,
	head TEXT,
	entity_type TEXT,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tokens_lemma ON tokens(run_id, lemma);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// NewRunID returns a fresh, time-ordered run identifier.
func (s *Store) NewRunID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

// SaveRun stores a run with its raw records and tokens in one transaction.
// An empty run.ID is replaced with a new ULID; the stored run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, raw []record.Raw, tokens []record.Token) (Run, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.ID == "" {
		run.ID = s.NewRunID(run.StartedAt)
	}
	run.Records = len(raw)
	run.Tokens = len(tokens)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return run, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, term, language, model, started_at, records, tokens)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Term, run.Language, run.Model,
		run.StartedAt.UTC().Format(time.RFC3339), run.Records, run.Tokens)
	if err != nil {
		return run, fmt.Errorf("insert run: %w", err)
	}

	if err := insertRecords(ctx, tx, run.ID, raw); err != nil {
		return run, err
	}
	if err := insertTokens(ctx, tx, run.ID, tokens); err != nil {
		return run, err
	}
	return run, tx.Commit()
}

func insertRecords(ctx context.Context, tx *sql.Tx, runID string, raw []record.Raw) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO records (run_id, post_id, created_at, title) VALUES (?, ?, ?, ?)
ON CONFLICT(run_id, post_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range raw {
		if _, err := stmt.ExecContext(ctx, runID, r.ID, r.FormattedTimestamp(), r.Title); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertTokens(ctx context.Context, tx *sql.Tx, runID string, tokens []record.Token) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tokens (run_id, seq, post_id, created_at, original_title, normalized_title,
	token, lemma, pos, tag, dep, head, entity_type)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, t := range tokens {
		var ent sql.NullString
		if t.HasEntity() {
			ent = sql.NullString{String: t.EntityType, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, runID, i, t.ID,
			t.Timestamp.UTC().Format(record.TimestampLayout),
			t.OriginalTitle, t.NormalizedTitle, t.Text, t.Lemma,
			t.POS, t.Tag, t.Dep, t.HeadText, ent)
		if err != nil {
			return fmt.Errorf("insert token %d: %w", i, err)
		}
	}
	return nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, term, language, model, started_at, records, tokens
FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &r.Term, &r.Language, &r.Model, &started, &r.Records, &r.Tokens); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("run %s: parse started_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Tokens returns a run's token rows in their original order.
func (s *Store) Tokens(ctx context.Context, runID string) ([]record.Token, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT post_id, created_at, original_title, normalized_title, token,
	lemma, pos, tag, dep, head, entity_type
FROM tokens WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []record.Token
	for rows.Next() {
		var (
			t       record.Token
			created string
			ent     sql.NullString
		)
		if err := rows.Scan(&t.ID, &created, &t.OriginalTitle, &t.NormalizedTitle, &t.Text,
			&t.Lemma, &t.POS, &t.Tag, &t.Dep, &t.HeadText, &ent); err != nil {
			return nil, err
		}
		ts, err := time.ParseInLocation(record.TimestampLayout, created, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("token of %s: parse created_at: %w", t.ID, err)
		}
		t.Timestamp = ts
		t.EntityType = ent.String
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Records returns a run's raw records ordered by timestamp.
func (s *Store) Records(ctx context.Context, runID string) ([]record.Raw, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT post_id, created_at, title FROM records
WHERE run_id = ? ORDER BY created_at, post_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Raw
	for rows.Next() {
		var id, created, title string
		if err := rows.Scan(&id, &created, &title); err != nil {
			return nil, err
		}
		ts, err := time.ParseInLocation(record.TimestampLayout, created, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("record %s: parse created_at: %w", id, err)
		}
		out = append(out, record.Raw{ID: id, Timestamp: ts, Title: title})
	}
	return out, rows.Err()
}
