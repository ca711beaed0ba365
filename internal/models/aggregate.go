package models

import "time"

// WindowAggregate is the full recompute of one time window over the
// supplied records. It is derived, never stored, and never updated in
// place; late or corrected records are absorbed by the next recompute.
type WindowAggregate struct {
	Start   time.Time
	End     time.Time
	CostUSD float64
	Tokens  TokenCounts
	Records int
}

// IsZero reports whether the window saw no usage at all.
func (w WindowAggregate) IsZero() bool {
	return w.Records == 0 && w.CostUSD == 0
}

// HourBucket is one of today's 24 hour-of-day buckets. All 24 buckets
// always exist in the output; a quiet hour is a zero bucket, not a
// missing one.
type HourBucket struct {
	Hour    int // 0-23, local
	CostUSD float64
	Tokens  TokenCounts
}

// DayPoint is one day of the trend series.
type DayPoint struct {
	Date    string // "2006-01-02", local
	CostUSD float64
	Ratio   float64 // cost / plan pro-rata; 0 when no plan configured
}
