// Package founder holds guide-to-store founder assignments.
package founder

import "time"

// Assignment binds a guide to a sponsor store as its founder. A store has at
// most one founder; reassignment overwrites.
type Assignment struct {
	StoreID    string    `json:"store_id"`
	GuideID    string    `json:"guide_id"`
	AssignedAt time.Time `json:"assigned_at"`
}
