// Package telemetry samples host RAM usage, classifies it into a performance
// rank and maintains one rollup entry per device per day.
package telemetry

import (
	"errors"
	"fmt"
	"sync"
)

// MemoryReader reads live host memory counters in bytes.
type MemoryReader interface {
	Memory() (total, free uint64, err error)
}

// RAMUsage is one sample. UsedMemoryPercentage is the running mean of every
// instantaneous percentage observed by the meter, not the current value.
type RAMUsage struct {
	TotalMemory          uint64  `json:"totalMemory"`
	FreeMemory           uint64  `json:"freeMemory"`
	UsedMemory           uint64  `json:"usedMemory"`
	UsedMemoryPercentage float64 `json:"usedMemoryPercentage"`
}

// RAMMeter owns the running-mean state. The state lives as long as the
// meter; Reset starts a new mean.
type RAMMeter struct {
	reader MemoryReader

	mu  sync.Mutex
	sum float64
	n   int
}

// NewRAMMeter returns a meter with an empty mean.
func NewRAMMeter(reader MemoryReader) *RAMMeter {
	return &RAMMeter{reader: reader}
}

var errNoMemory = errors.New("host reported zero total memory")

// Sample reads the host counters and folds the instantaneous percentage into
// the running mean. After samples p1..pk it returns (p1+...+pk)/k.
func (m *RAMMeter) Sample() (RAMUsage, error) {
	total, free, err := m.reader.Memory()
	if err != nil {
		return RAMUsage{}, fmt.Errorf("reading memory: %w", err)
	}
	if total == 0 {
		return RAMUsage{}, errNoMemory
	}
	if free > total {
		free = total
	}
	used := total - free
	pct := float64(used) / float64(total) * 100

	return RAMUsage{
		TotalMemory:          total,
		FreeMemory:           free,
		UsedMemory:           used,
		UsedMemoryPercentage: m.observe(pct),
	}, nil
}

// observe adds pct and returns the new mean in one critical section.
func (m *RAMMeter) observe(pct float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sum += pct
	m.n++
	return m.sum / float64(m.n)
}

// Count is the number of samples folded into the mean.
func (m *RAMMeter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}

// Reset clears the running mean.
func (m *RAMMeter) Reset() {
	m.mu.Lock()
	m.sum, m.n = 0, 0
	m.mu.Unlock()
}
