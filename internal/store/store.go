// Package store provides SQLite-backed persistence for the planning
// core: a bundle audit log, learned acquisition priors, and resume
// tickets survive process restarts here; everything else in the core
// stays in memory for the lifetime of one solver session.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection.
type Store struct {
	db *sql.DB
}

// BundleRecord is one audited solve bundle.
type BundleRecord struct {
	BundleID   string
	BundleHash string
	SolverID   string
	Solved     bool
	Timestamp  time.Time
	Payload    string // canonical JSON of the full SolveBundle
}

// PriorRecord is one learned acquisition prior.
type PriorRecord struct {
	Item          string
	Strategy      string
	ContextToken  string
	SuccessRate   float64
	SampleCount   int
}

// ResumeTicketRecord is one outstanding task-timeframe resume ticket.
type ResumeTicketRecord struct {
	ID              string
	TaskID          string
	BucketName      string
	TrailerOptionID string
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS bundle_audit (
	bundle_id   TEXT PRIMARY KEY,
	bundle_hash TEXT NOT NULL,
	solver_id   TEXT NOT NULL,
	solved      INTEGER NOT NULL,
	timestamp   TEXT NOT NULL,
	payload     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS acquisition_priors (
	item          TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	context_token TEXT NOT NULL,
	success_rate  REAL NOT NULL,
	sample_count  INTEGER NOT NULL,
	PRIMARY KEY (item, strategy, context_token)
);

CREATE TABLE IF NOT EXISTS resume_tickets (
	id                TEXT PRIMARY KEY,
	task_id           TEXT NOT NULL,
	bucket_name       TEXT NOT NULL,
	trailer_option_id TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL,
	expires_at        TEXT NOT NULL
);
`

// New opens (creating if absent) a SQLite database at dbPath and
// applies the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordBundle upserts a bundle's audit row.
func (s *Store) RecordBundle(r BundleRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO bundle_audit (bundle_id, bundle_hash, solver_id, solved, timestamp, payload)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bundle_id) DO UPDATE SET bundle_hash=excluded.bundle_hash, solved=excluded.solved, timestamp=excluded.timestamp, payload=excluded.payload`,
		r.BundleID, r.BundleHash, r.SolverID, boolToInt(r.Solved), r.Timestamp.UTC().Format(time.RFC3339Nano), r.Payload,
	)
	if err != nil {
		return fmt.Errorf("recording bundle %s: %w", r.BundleID, err)
	}
	return nil
}

// ListBundlesForSolver returns every audited bundle for solverID, most
// recent first.
func (s *Store) ListBundlesForSolver(solverID string) ([]BundleRecord, error) {
	rows, err := s.db.Query(
		`SELECT bundle_id, bundle_hash, solver_id, solved, timestamp, payload
		 FROM bundle_audit WHERE solver_id = ? ORDER BY timestamp DESC`,
		solverID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bundles for %s: %w", solverID, err)
	}
	defer rows.Close()

	var out []BundleRecord
	for rows.Next() {
		var r BundleRecord
		var solvedInt int
		var ts string
		if err := rows.Scan(&r.BundleID, &r.BundleHash, &r.SolverID, &solvedInt, &ts, &r.Payload); err != nil {
			return nil, fmt.Errorf("scanning bundle row: %w", err)
		}
		r.Solved = solvedInt != 0
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SavePrior upserts one learned acquisition prior.
func (s *Store) SavePrior(r PriorRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO acquisition_priors (item, strategy, context_token, success_rate, sample_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(item, strategy, context_token) DO UPDATE SET success_rate=excluded.success_rate, sample_count=excluded.sample_count`,
		r.Item, r.Strategy, r.ContextToken, r.SuccessRate, r.SampleCount,
	)
	if err != nil {
		return fmt.Errorf("saving prior %s/%s/%s: %w", r.Item, r.Strategy, r.ContextToken, err)
	}
	return nil
}

// LoadPriors returns every persisted acquisition prior.
func (s *Store) LoadPriors() ([]PriorRecord, error) {
	rows, err := s.db.Query(`SELECT item, strategy, context_token, success_rate, sample_count FROM acquisition_priors`)
	if err != nil {
		return nil, fmt.Errorf("loading priors: %w", err)
	}
	defer rows.Close()

	var out []PriorRecord
	for rows.Next() {
		var r PriorRecord
		if err := rows.Scan(&r.Item, &r.Strategy, &r.ContextToken, &r.SuccessRate, &r.SampleCount); err != nil {
			return nil, fmt.Errorf("scanning prior row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveResumeTicket persists an outstanding resume ticket.
func (s *Store) SaveResumeTicket(r ResumeTicketRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO resume_tickets (id, task_id, bucket_name, trailer_option_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskID, r.BucketName, r.TrailerOptionID, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving resume ticket %s: %w", r.ID, err)
	}
	return nil
}

// DeleteResumeTicket removes a consumed or expired ticket.
func (s *Store) DeleteResumeTicket(id string) error {
	_, err := s.db.Exec(`DELETE FROM resume_tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting resume ticket %s: %w", id, err)
	}
	return nil
}

// LoadValidResumeTickets returns tickets that have not yet expired as of now.
func (s *Store) LoadValidResumeTickets(now time.Time) ([]ResumeTicketRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, bucket_name, trailer_option_id, created_at, expires_at FROM resume_tickets WHERE expires_at > ?`,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("loading resume tickets: %w", err)
	}
	defer rows.Close()

	var out []ResumeTicketRecord
	for rows.Next() {
		var r ResumeTicketRecord
		var createdAt, expiresAt string
		if err := rows.Scan(&r.ID, &r.TaskID, &r.BucketName, &r.TrailerOptionID, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning resume ticket row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		r.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
