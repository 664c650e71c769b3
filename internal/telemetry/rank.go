package telemetry

import (
	"time"

	"github.com/vesaa/invmon/internal/models"
)

// ClassifyRank maps a usage percentage to a rank. Bands are checked from
// the top; the first match wins, so 85 is SuperComputer and 75 is too.
func ClassifyRank(pct float64) models.Rank {
	switch {
	case pct > 85:
		return models.RankDanger
	case pct >= 75:
		return models.RankSuperComputer
	case pct >= 50:
		return models.RankPerfectlyUsed
	case pct >= 25:
		return models.RankGoodUse
	default:
		return models.RankUnderuse
	}
}

// DayLayout is the calendar-day key format.
const DayLayout = "2006-01-02"

// DayKey formats t as YYYY-MM-DD in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}
