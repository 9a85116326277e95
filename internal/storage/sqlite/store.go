// Package sqlite is a SQLite implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/serenqa/serentrace/internal/domain"
	"github.com/serenqa/serentrace/internal/leaderboard"
	"github.com/serenqa/serentrace/internal/memory"
	"github.com/serenqa/serentrace/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			contributor_id TEXT NOT NULL,
			backend TEXT NOT NULL,
			discovery_name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			trace_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			stage TEXT NOT NULL,
			agent TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			language TEXT NOT NULL,
			serendipity REAL NOT NULL,
			confidence REAL NOT NULL,
			alignment_score REAL,
			translation_quality REAL,
			PRIMARY KEY (trace_id, sequence),
			FOREIGN KEY (trace_id) REFERENCES traces(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS folds (
			trace_id TEXT PRIMARY KEY,
			fold TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contributors (
			contributor_id TEXT PRIMARY KEY,
			stats TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_contributor ON traces(contributor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_trace ON events(trace_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateTrace(ctx context.Context, rec *storage.TraceRecord) error {
	query := `INSERT INTO traces (id, contributor_id, backend, discovery_name, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ContributorID, rec.Backend, rec.DiscoveryName, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, traceID string, event domain.Event) error {
	query := `INSERT INTO events (trace_id, sequence, timestamp, stage, agent, input, output,
	          language, serendipity, confidence, alignment_score, translation_quality)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var alignScore, transQuality sql.NullFloat64
	if event.AlignmentScore != nil {
		alignScore = sql.NullFloat64{Float64: *event.AlignmentScore, Valid: true}
	}
	if event.TranslationQuality != nil {
		transQuality = sql.NullFloat64{Float64: *event.TranslationQuality, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		traceID, event.Sequence, event.Timestamp,
		event.Stage.String(), event.Agent.String(),
		event.Input, event.Output, event.Language,
		event.Serendipity, event.Confidence, alignScore, transQuality)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *Store) GetTrace(ctx context.Context, id string) (*storage.TraceRecord, error) {
	query := `SELECT id, contributor_id, backend, discovery_name, created_at
	          FROM traces WHERE id = ?`

	var rec storage.TraceRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.ContributorID, &rec.Backend, &rec.DiscoveryName, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("trace %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trace: %w", err)
	}

	events, err := s.getEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Events = events
	return &rec, nil
}

func (s *Store) getEvents(ctx context.Context, traceID string) ([]domain.Event, error) {
	query := `SELECT sequence, timestamp, stage, agent, input, output, language,
	          serendipity, confidence, alignment_score, translation_quality
	          FROM events WHERE trace_id = ?
	          ORDER BY sequence ASC`

	rows, err := s.db.QueryContext(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var stage, agent string
		var alignScore, transQuality sql.NullFloat64

		if err := rows.Scan(&e.Sequence, &e.Timestamp, &stage, &agent,
			&e.Input, &e.Output, &e.Language,
			&e.Serendipity, &e.Confidence, &alignScore, &transQuality); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if e.Stage, err = domain.ParseStage(stage); err != nil {
			return nil, fmt.Errorf("failed to decode event stage: %w", err)
		}
		if e.Agent, err = domain.ParseAgent(agent); err != nil {
			return nil, fmt.Errorf("failed to decode event agent: %w", err)
		}
		if alignScore.Valid {
			v := alignScore.Float64
			e.AlignmentScore = &v
		}
		if transQuality.Valid {
			v := transQuality.Float64
			e.TranslationQuality = &v
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) ListTraces(ctx context.Context) ([]*storage.TraceRecord, error) {
	query := `SELECT id, contributor_id, backend, discovery_name, created_at
	          FROM traces ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var records []*storage.TraceRecord
	for rows.Next() {
		var rec storage.TraceRecord
		if err := rows.Scan(&rec.ID, &rec.ContributorID, &rec.Backend,
			&rec.DiscoveryName, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rec := range records {
		events, err := s.getEvents(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Events = events
	}
	return records, nil
}

func (s *Store) SaveFold(ctx context.Context, fold memory.Fold) error {
	payload, err := json.Marshal(fold)
	if err != nil {
		return fmt.Errorf("failed to marshal fold: %w", err)
	}

	query := `INSERT INTO folds (trace_id, fold, created_at)
	          VALUES (?, ?, ?)
	          ON CONFLICT(trace_id) DO UPDATE SET fold=excluded.fold, created_at=excluded.created_at`

	_, err = s.db.ExecContext(ctx, query, fold.TraceID, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save fold: %w", err)
	}
	return nil
}

func (s *Store) GetFold(ctx context.Context, traceID string) (*memory.Fold, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT fold FROM folds WHERE trace_id = ?`, traceID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("fold for trace %s not found", traceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fold: %w", err)
	}

	var fold memory.Fold
	if err := json.Unmarshal([]byte(payload), &fold); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fold: %w", err)
	}
	return &fold, nil
}

func (s *Store) SaveContributor(ctx context.Context, stats *leaderboard.Stats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal contributor stats: %w", err)
	}

	query := `INSERT INTO contributors (contributor_id, stats, updated_at)
	          VALUES (?, ?, ?)
	          ON CONFLICT(contributor_id) DO UPDATE SET stats=excluded.stats, updated_at=excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, stats.ContributorID, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save contributor: %w", err)
	}
	return nil
}

func (s *Store) ListContributors(ctx context.Context) ([]*leaderboard.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stats FROM contributors`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributors: %w", err)
	}
	defer rows.Close()

	var all []*leaderboard.Stats
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan contributor: %w", err)
		}
		var stats leaderboard.Stats
		if err := json.Unmarshal([]byte(payload), &stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contributor stats: %w", err)
		}
		if stats.LanguageProficiency == nil {
			stats.LanguageProficiency = make(map[string]int)
		}
		all = append(all, &stats)
	}
	return all, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
