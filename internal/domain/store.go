package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and optional time filtering for list queries.
type ListOpts struct {
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// EdgeStore persists edge snapshots. The lifecycle manager remains the
// authority over live edge state; the store is a write-through journal used
// for restarts and reporting.
type EdgeStore interface {
	Upsert(ctx context.Context, edge Edge) error
	GetByID(ctx context.Context, id string) (Edge, error)
	ListByStatus(ctx context.Context, status EdgeStatus, opts ListOpts) ([]Edge, error)
	ListOpen(ctx context.Context) ([]Edge, error)
}

// TradeStore persists execution outcomes.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	GetByID(ctx context.Context, id string) (Trade, error)
	List(ctx context.Context, filter TradeFilter) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of operator actions and
// archival events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
