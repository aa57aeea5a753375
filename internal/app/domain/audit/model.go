// Package audit holds the append-only month lock audit trail.
package audit

import "time"

// Action is the kind of administrative event recorded.
type Action string

const (
	ActionLock   Action = "lock"
	ActionUnlock Action = "unlock"
)

// Entry is one audit record. Entries are append-only and never mutated.
type Entry struct {
	ID        string    `json:"id"`
	Month     string    `json:"month"`
	Action    Action    `json:"action"`
	User      string    `json:"user"`
	Role      string    `json:"role"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
