package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit    int
	Offset   int
	MinScore float64
	Tag      string
	State    string
}

// BrowseRow is the joined read-model served to browsing consumers: one
// canonical record with its current score and annotation.
type BrowseRow struct {
	Record     MarketRecord `json:"record"`
	Score      *ScoreResult `json:"score,omitempty"`
	Annotation *Annotation  `json:"annotation,omitempty"`
}

// MarketStore persists canonical market records.
type MarketStore interface {
	Upsert(ctx context.Context, rec MarketRecord) error
	GetByID(ctx context.Context, id string) (MarketRecord, error)
	List(ctx context.Context, opts ListOpts) ([]MarketRecord, error)
	Count(ctx context.Context) (int64, error)
}

// ScoreStore persists the current score per market and the immutable score
// history. Upsert overwrites the current score; AppendHistory never
// overwrites, forming the audit trail for score-over-time charts.
type ScoreStore interface {
	Upsert(ctx context.Context, score ScoreResult) error
	GetByMarketID(ctx context.Context, marketID string) (ScoreResult, error)
	AppendHistory(ctx context.Context, score ScoreResult) error
	ListHistory(ctx context.Context, marketID string, opts ListOpts) ([]ScoreResult, error)
}

// AnnotationStore persists per-market analyst annotations. EnsureExists
// creates an empty placeholder only when no row exists, so analyst state
// survives re-syncs.
type AnnotationStore interface {
	EnsureExists(ctx context.Context, marketID string) error
	GetByMarketID(ctx context.Context, marketID string) (Annotation, error)
	Update(ctx context.Context, ann Annotation) error
}

// RunStatusStore persists the singleton run-status record.
type RunStatusStore interface {
	Get(ctx context.Context) (RunStatus, error)
	MarkAttempted(ctx context.Context, at time.Time) error
	MarkSucceeded(ctx context.Context, at time.Time, stats RunStats, refs ReferenceStats) error
	MarkFailed(ctx context.Context, errMsg string) error
}

// ScoreConfigStore reads and writes the singleton score-config override.
// The pipeline only reads it; writes come from the admin surface.
type ScoreConfigStore interface {
	Get(ctx context.Context) (*ScoreConfigOverride, error)
	Put(ctx context.Context, override ScoreConfigOverride) error
}

// BrowseReader serves the joined browse read-model. Implemented by the
// postgres store and consumed by the read API behind the snapshot cache.
type BrowseReader interface {
	Browse(ctx context.Context, opts ListOpts) ([]BrowseRow, error)
}
