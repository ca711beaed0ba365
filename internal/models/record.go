// Package models defines data structures and domain types.
package models

import "time"

// TokenCounts holds per-kind token totals for a record or window.
type TokenCounts struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// Add accumulates another set of counts into this one.
func (t *TokenCounts) Add(o TokenCounts) {
	t.Input += o.Input
	t.Output += o.Output
	t.CacheWrite += o.CacheWrite
	t.CacheRead += o.CacheRead
}

// Total returns the sum across all token kinds.
func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheWrite + t.CacheRead
}

// UsageRecord is one hour-resolution usage observation for a single model.
// Records are immutable once produced by the source; the engine never
// mutates one after ingestion.
type UsageRecord struct {
	Timestamp time.Time // truncated to the hour, local time
	Model     string
	RequestID string // empty when the source could not attribute one
	Tokens    TokenCounts
	CostUSD   float64
}

// Key identifies a record for de-duplication across overlapping fetches.
// Request ID wins when present; otherwise timestamp+model+counts.
func (r UsageRecord) Key() string {
	if r.RequestID != "" {
		return r.RequestID
	}
	return r.Timestamp.Format(time.RFC3339) + "|" + r.Model
}

// DayRollup is a persisted per-day usage total, the durable form of a day's
// records once the underlying session logs have rotated away.
type DayRollup struct {
	Date       string // "2006-01-02", local
	CostUSD    float64
	Tokens     TokenCounts
	Models     []string
	Ratio      float64 // cost / plan pro-rata at time of recording
	RecordedAt time.Time
}
