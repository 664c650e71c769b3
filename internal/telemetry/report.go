package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vesaa/invmon/internal/models"
)

// ErrMissingDay means a report carries no bucket for the expected day.
var ErrMissingDay = errors.New("performance data for the day is missing")

// DailySample is the per-day bucket of a report.
type DailySample struct {
	RAMUsageInPercentage float64     `json:"ramUsageInPercentage"`
	LastRunDate          string      `json:"lastRunDate"`
	CPUPerformanceRank   models.Rank `json:"cpuPerformanceRank"`
}

// Report is the payload agents push to the server:
//
//	{"productID": "...", "cost": "...", "motherboard": {...},
//	 "2024-05-01": {"ramUsageInPercentage": 41.2, "lastRunDate": "2024-05-01", "cpuPerformanceRank": "Good Use"}}
//
// Day buckets sit beside the device fields, keyed by YYYY-MM-DD.
type Report struct {
	ProductID   string
	Cost        string
	Motherboard models.Motherboard
	Days        map[string]DailySample
}

// NewReport builds the payload for one reading.
func NewReport(r Reading) Report {
	return Report{
		ProductID:   r.ProductID,
		Cost:        r.Cost,
		Motherboard: r.Motherboard,
		Days: map[string]DailySample{
			r.Day: {
				RAMUsageInPercentage: r.RAMUsage,
				LastRunDate:          r.Day,
				CPUPerformanceRank:   r.Rank,
			},
		},
	}
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Days)+3)
	for day, s := range r.Days {
		out[day] = s
	}
	out["productID"] = r.ProductID
	out["cost"] = r.Cost
	out["motherboard"] = r.Motherboard
	return json.Marshal(out)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Report{Days: map[string]DailySample{}}
	for key, val := range raw {
		switch key {
		case "productID":
			if err := json.Unmarshal(val, &r.ProductID); err != nil {
				return fmt.Errorf("productID: %w", err)
			}
		case "cost":
			r.Cost = decodeCost(val)
		case "motherboard":
			if err := json.Unmarshal(val, &r.Motherboard); err != nil {
				return fmt.Errorf("motherboard: %w", err)
			}
		default:
			if _, err := time.Parse(DayLayout, key); err != nil {
				continue // unknown field
			}
			var s DailySample
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("day %s: %w", key, err)
			}
			r.Days[key] = s
		}
	}
	return nil
}

// decodeCost accepts both "1200" and 1200.
func decodeCost(val json.RawMessage) string {
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(val))
}

// ReadingFor extracts the reading for day. A rank that is missing or not
// one of the known ranks is recomputed from the usage.
func (r Report) ReadingFor(day string, at time.Time) (Reading, error) {
	if r.ProductID == "" {
		return Reading{}, errors.New("productID is required")
	}
	s, ok := r.Days[day]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %s", ErrMissingDay, day)
	}
	rank := s.CPUPerformanceRank
	if !rank.Valid() {
		rank = ClassifyRank(s.RAMUsageInPercentage)
	}
	return Reading{
		ProductID:   r.ProductID,
		Cost:        r.Cost,
		Motherboard: r.Motherboard,
		At:          at,
		Day:         day,
		RAMUsage:    s.RAMUsageInPercentage,
		Rank:        rank,
	}, nil
}
