package models

import (
	"encoding/json"
	"time"
)

// RunTrace is one append-only merge patch recorded during a workflow run.
// Replaying the patches in Seq order over an empty state reproduces the
// final state exactly.
// Maps to: run_trace table
type RunTrace struct {
	// State ID the patch belongs to (one chain per run)
	StateID string `db:"state_id" json:"state_id"`

	// Application order (1 = first patch, N = last patch)
	Seq int `db:"seq" json:"seq"`

	// Node that produced the patch
	Node string `db:"node" json:"node"`

	// RFC 7386 merge patch against the previous state
	Patch json.RawMessage `db:"patch" json:"patch"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
