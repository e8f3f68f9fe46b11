package models

import "time"

// LeaderRecord is the shared row a set of replicas competes for. The holder
// is live while its last heartbeat is younger than the staleness threshold.
type LeaderRecord struct {
	LeaderID     string    `json:"leader_id"`
	HolderKey    string    `json:"holder_key"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// IsStale reports whether the holder's lease has lapsed at now.
func (r LeaderRecord) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(r.LastActiveAt) >= threshold
}
