package telemetry

import "github.com/vesaa/invmon/internal/models"

// Decision is the outcome of looking up a device before writing a sample.
type Decision int

const (
	// DecisionCreate: no record for the device yet.
	DecisionCreate Decision = iota
	// DecisionUpdateToday: the last daily entry is for the sample's day.
	DecisionUpdateToday
	// DecisionAppendDay: the last daily entry is stale, or there is none.
	DecisionAppendDay
)

func (d Decision) String() string {
	switch d {
	case DecisionCreate:
		return "create"
	case DecisionUpdateToday:
		return "update"
	case DecisionAppendDay:
		return "append"
	}
	return "unknown"
}

// Decide picks the write for a sample taken on dayKey. existing is nil when
// the device has no record.
func Decide(existing *models.CPUData, dayKey string) Decision {
	if existing == nil {
		return DecisionCreate
	}
	n := len(existing.DailyPerformance)
	if n == 0 {
		return DecisionAppendDay
	}
	if entryDay(existing.DailyPerformance[n-1]) == dayKey {
		return DecisionUpdateToday
	}
	return DecisionAppendDay
}

func entryDay(e models.DailyPerformance) string {
	if e.Day != "" {
		return e.Day
	}
	if e.LastRunDate.IsZero() {
		return ""
	}
	return e.LastRunDate.Format(DayLayout)
}
