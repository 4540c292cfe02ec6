package storage

import (
	"context"
	"encoding/json"
	"time"

	"swapPool/internal/state"
)

// AuditRecord is the durable trace of one applied (or rejected) operation.
type AuditRecord struct {
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Timestamp uint64          `json:"timestamp"`
	Body      json.RawMessage `json:"body,omitempty"`
	Error     string          `json:"error,omitempty"`
	AppliedAt time.Time       `json:"applied_at"`
}

// Storage persists the pool state container. A snapshot covers the whole
// unit (pool, shares, fund requests, next-id counter), so one save is the
// atomicity boundary of an operation.
type Storage interface {
	SaveSnapshot(ctx context.Context, snapshot state.Snapshot) error
	LoadSnapshot(ctx context.Context) (state.Snapshot, bool, error)
	AppendAudit(ctx context.Context, records []AuditRecord) error
}
