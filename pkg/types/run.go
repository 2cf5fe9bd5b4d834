package types

import "time"

// Run describes one depth invocation whose results were persisted.
type Run struct {
	ID            int64      `json:"id"`
	UID           string     `json:"uid"`
	Graph         string     `json:"graph"`
	Mode          string     `json:"mode"`
	Kind          ResultKind `json:"kind"`
	SelfExclusion string     `json:"self_exclusion"`
	StartedAt     time.Time  `json:"started_at"`
}
