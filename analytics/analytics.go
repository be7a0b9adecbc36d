// Package analytics computes dashboard and report metrics from a snapshot of orders.
//
// Every function is pure: it reads the orders and a reference time and
// returns fresh values. A nil or empty slice yields zero values, never a panic.
package analytics

import (
	"math"
	"time"
)

// Default result caps used by the dashboard and report
const (
	DefaultUpcomingLimit = 5
	DefaultTopClients    = 5
	DefaultRecentLimit   = 5
	UpcomingHorizon      = 7 * 24 * time.Hour
	TimelineMonths       = 6
)

// roundHalfUp rounds to the nearest integer with halves going up, negatives included (-2.5 -> -2)
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ceilDays is the number of started days between from and to
func ceilDays(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// percent returns part/total*100, or 0 for an empty total
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func limitOrDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
