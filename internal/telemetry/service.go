package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vesaa/invmon/internal/metrics"
	"github.com/vesaa/invmon/internal/models"
	"github.com/vesaa/invmon/internal/store"
	"gorm.io/datatypes"
)

// DefaultInterval is the sampling period of the telemetry timer.
const DefaultInterval = 10 * time.Second

// Reading is one classified sample ready to be rolled up.
type Reading struct {
	ProductID   string
	Cost        string
	Motherboard models.Motherboard
	At          time.Time
	Day         string
	RAMUsage    float64
	Rank        models.Rank
}

// Sampler turns meter samples into readings for one device.
type Sampler struct {
	ProductID string
	Cost      string

	meter *RAMMeter
	board BoardReader
	clock func() time.Time
	loc   *time.Location

	mu        sync.Mutex
	lastBoard models.Motherboard
}

// SamplerOption customizes a Sampler.
type SamplerOption func(*Sampler)

// WithClock overrides the wall clock used for day keys.
func WithClock(clock func() time.Time) SamplerOption {
	return func(s *Sampler) { s.clock = clock }
}

// WithLocation sets the location day keys are computed in.
func WithLocation(loc *time.Location) SamplerOption {
	return func(s *Sampler) { s.loc = loc }
}

// NewSampler returns a sampler for the device productID.
func NewSampler(productID, cost string, meter *RAMMeter, board BoardReader, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		ProductID: productID,
		Cost:      cost,
		meter:     meter,
		board:     board,
		clock:     time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current day key.
func (s *Sampler) Today() string {
	return DayKey(s.clock(), s.loc)
}

// Now is the sampler's clock reading.
func (s *Sampler) Now() time.Time {
	return s.clock()
}

// Collect takes one sample and classifies it. The day key is computed
// fresh from the clock on every call.
func (s *Sampler) Collect() (Reading, RAMUsage, error) {
	usage, err := s.meter.Sample()
	if err != nil {
		return Reading{}, RAMUsage{}, err
	}
	board := s.readBoard()
	now := s.clock()
	rank := ClassifyRank(usage.UsedMemoryPercentage)
	metrics.RAMUsageMean.Set(usage.UsedMemoryPercentage)
	metrics.RankTotal.WithLabelValues(string(rank)).Inc()

	return Reading{
		ProductID:   s.ProductID,
		Cost:        s.Cost,
		Motherboard: board,
		At:          now,
		Day:         DayKey(now, s.loc),
		RAMUsage:    usage.UsedMemoryPercentage,
		Rank:        rank,
	}, usage, nil
}

func (s *Sampler) readBoard() models.Motherboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return s.lastBoard
	}
	board, err := s.board.Board()
	if err != nil {
		log.Printf("[telemetry] motherboard read failed, keeping last snapshot: %v", err)
		return s.lastBoard
	}
	s.lastBoard = board
	return board
}

// Store is the record store the rollup writes to.
type Store interface {
	FindDevice(ctx context.Context, productID string) (*models.CPUData, error)
	CreateDevice(ctx context.Context, dev *models.CPUData) error
	UpdateDay(ctx context.Context, deviceID, entryID uint, usage float64, rank models.Rank, board models.Motherboard) error
	AppendDay(ctx context.Context, deviceID uint, entry models.DailyPerformance, board models.Motherboard) error
}

// Service samples the local host and rolls readings up into daily entries.
// Upserts within one Service are serialized, so the timer, on-demand samples
// and agent reports never race on the same day. Across processes the last
// write wins.
type Service struct {
	store   Store
	sampler *Sampler

	upsertMu sync.Mutex
}

// NewService wires a sampler to a store.
func NewService(st Store, sampler *Sampler) *Service {
	return &Service{store: st, sampler: sampler}
}

// Sampler returns the local sampler.
func (s *Service) Sampler() *Sampler {
	return s.sampler
}

// Upsert writes r into the device's daily sequence: create the device, update
// today's entry in place, or append a new day. The motherboard snapshot is
// replaced in every branch.
func (s *Service) Upsert(ctx context.Context, r Reading) (Decision, error) {
	s.upsertMu.Lock()
	defer s.upsertMu.Unlock()

	existing, err := s.store.FindDevice(ctx, r.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		existing = nil
	} else if err != nil {
		return 0, fmt.Errorf("finding device %s: %w", r.ProductID, err)
	}

	decision := Decide(existing, r.Day)
	entry := models.DailyPerformance{
		Day:                  r.Day,
		LastRunDate:          r.At,
		RAMUsageInPercentage: r.RAMUsage,
		CPUPerformanceRank:   r.Rank,
	}

	switch decision {
	case DecisionCreate:
		dev := &models.CPUData{
			ProductID:        r.ProductID,
			Cost:             r.Cost,
			DailyPerformance: []models.DailyPerformance{entry},
		}
		dev.Motherboard = datatypes.NewJSONType(r.Motherboard)
		err = s.store.CreateDevice(ctx, dev)
	case DecisionUpdateToday:
		last := existing.DailyPerformance[len(existing.DailyPerformance)-1]
		err = s.store.UpdateDay(ctx, existing.ID, last.ID, r.RAMUsage, r.Rank, r.Motherboard)
	case DecisionAppendDay:
		err = s.store.AppendDay(ctx, existing.ID, entry, r.Motherboard)
	}
	if err != nil {
		return decision, fmt.Errorf("%s day %s for %s: %w", decision, r.Day, r.ProductID, err)
	}
	metrics.SamplesTotal.WithLabelValues(decision.String()).Inc()
	return decision, nil
}

// Tick samples the host once and upserts the reading.
func (s *Service) Tick(ctx context.Context) (Reading, error) {
	r, _, err := s.sampler.Collect()
	if err != nil {
		return Reading{}, fmt.Errorf("sampling: %w", err)
	}
	if _, err := s.Upsert(ctx, r); err != nil {
		return r, err
	}
	return r, nil
}

// Run ticks every interval until ctx is done. A failed tick is logged and
// dropped; the next tick proceeds normally.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[telemetry] sampling %s every %s", s.sampler.ProductID, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				metrics.SampleFailuresTotal.Inc()
				log.Printf("[telemetry] sample dropped: %v", err)
			}
		}
	}
}
