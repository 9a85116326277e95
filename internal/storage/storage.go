// Package storage defines the persistence interfaces for traces, folds, and
// contributor stats. The engine itself is persistence-free; the server uses
// a Store write-through so traces survive restarts.
package storage

import (
	"context"
	"time"

	"github.com/serenqa/serentrace/internal/domain"
	"github.com/serenqa/serentrace/internal/leaderboard"
	"github.com/serenqa/serentrace/internal/memory"
)

// TraceRecord is the persisted form of a trace: its identity plus the full
// event sequence in causal order.
type TraceRecord struct {
	ID            string         `json:"id"`
	ContributorID string         `json:"contributor_id"`
	Backend       string         `json:"backend"`
	DiscoveryName string         `json:"discovery_name"`
	CreatedAt     time.Time      `json:"created_at"`
	Events        []domain.Event `json:"events"`
}

// Store persists traces, folds, and contributor stats.
type Store interface {
	// CreateTrace persists a new trace's identity. Events are appended
	// individually.
	CreateTrace(ctx context.Context, rec *TraceRecord) error

	// AppendEvent persists one event of a trace.
	AppendEvent(ctx context.Context, traceID string, event domain.Event) error

	// GetTrace loads a trace with its events in sequence order.
	GetTrace(ctx context.Context, id string) (*TraceRecord, error)

	// ListTraces loads all traces with their events.
	ListTraces(ctx context.Context) ([]*TraceRecord, error)

	// SaveFold stores the fold derived for a trace, replacing any earlier
	// fold of the same trace.
	SaveFold(ctx context.Context, fold memory.Fold) error

	// GetFold loads the stored fold for a trace.
	GetFold(ctx context.Context, traceID string) (*memory.Fold, error)

	// SaveContributor stores a contributor's stats, replacing by ID.
	SaveContributor(ctx context.Context, stats *leaderboard.Stats) error

	// ListContributors loads all contributor stats.
	ListContributors(ctx context.Context) ([]*leaderboard.Stats, error)

	Close() error
}
