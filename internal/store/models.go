package store

import "time"

// CachedResult is a warehouse result set kept for reuse.
type CachedResult struct {
	Key       string
	Query     string
	Payload   []byte // JSON-encoded dataset
	CreatedAt time.Time
}

// Expired reports whether the entry is older than ttl at now.
func (c *CachedResult) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CreatedAt) >= ttl
}

// Run is a saved analysis: the query, the selected columns and the
// summary numbers it produced.
type Run struct {
	ID         string
	Query      string
	Event1     string
	Event2     string
	Assignment string
	Rows       int
	Lift       *float64 // nil when lift was unavailable
	PValue     *float64 // nil when the chi-squared test was unavailable
	Records    []RunRecord
	CreatedAt  time.Time
}

// RunRecord is one assignment group's conversion figures in a saved run.
type RunRecord struct {
	Group     string  `json:"group"`
	Count     int     `json:"count"`
	Successes int     `json:"successes"`
	Rate      float64 `json:"rate"`
}
