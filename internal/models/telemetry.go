// Package models defines GORM data models for invmon.
package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Rank is the qualitative RAM usage class recorded with each daily entry.
type Rank string

const (
	RankUnderuse      Rank = "Underuse"
	RankGoodUse       Rank = "Good Use"
	RankPerfectlyUsed Rank = "Perfectly Used"
	RankSuperComputer Rank = "Super Computer"
	RankDanger        Rank = "Danger"
)

// Valid reports whether r is one of the known ranks.
func (r Rank) Valid() bool {
	switch r {
	case RankUnderuse, RankGoodUse, RankPerfectlyUsed, RankSuperComputer, RankDanger:
		return true
	}
	return false
}

// Motherboard is a snapshot of the host's board descriptor.
// It is overwritten on every sample and never versioned.
type Motherboard struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	Serial       string `json:"serial"`
	AssetTag     string `json:"assetTag"`
	MemMax       uint64 `json:"memMax"`
	MemSlots     int    `json:"memSlots"`
}

// CPUData is the per-device telemetry record, keyed by ProductID.
// DailyPerformance holds at most one entry per calendar day; while the day
// is current its entry is the last element.
type CPUData struct {
	gorm.Model

	ProductID   string                          `gorm:"uniqueIndex;size:191;not null" json:"productID"`
	Cost        string                          `gorm:"not null" json:"cost"`
	Motherboard datatypes.JSONType[Motherboard] `json:"motherboard"`

	DailyPerformance []DailyPerformance `gorm:"foreignKey:CPUDataID" json:"dailyPerformance"`
}

// TableName keeps the collection name used by existing dashboards.
func (CPUData) TableName() string { return "cpudatas" }

// DailyPerformance is one day's rollup for a device.
type DailyPerformance struct {
	gorm.Model

	CPUDataID uint `gorm:"column:cpu_data_id;uniqueIndex:idx_cpu_day;not null" json:"-"`
	// Day is LastRunDate as YYYY-MM-DD in the sampler's location.
	Day string `gorm:"uniqueIndex:idx_cpu_day;size:10;not null" json:"-"`

	LastRunDate          time.Time `gorm:"not null" json:"lastRunDate"`
	RAMUsageInPercentage float64   `gorm:"column:ram_usage_in_percentage" json:"ramUsageInPercentage"`
	CPUPerformanceRank   Rank      `gorm:"column:cpu_performance_rank;size:32" json:"cpuPerformanceRank"`
}
