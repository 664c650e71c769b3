package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesaa/invmon/internal/models"
	"github.com/vesaa/invmon/internal/store"
	"gorm.io/datatypes"
)

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	devices map[string]*models.CPUData
	nextID  uint
	finds   int

	findErr  error // returned by FindDevice while failFind > 0
	failFind int
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{devices: map[string]*models.CPUData{}}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) FindDevice(_ context.Context, productID string) (*models.CPUData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.failFind > 0 {
		s.failFind--
		return nil, s.findErr
	}
	dev, ok := s.devices[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *dev
	cp.DailyPerformance = append([]models.DailyPerformance(nil), dev.DailyPerformance...)
	return &cp, nil
}

func (s *memStore) CreateDevice(_ context.Context, dev *models.CPUData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	dev.ID = s.id()
	for i := range dev.DailyPerformance {
		dev.DailyPerformance[i].ID = s.id()
		dev.DailyPerformance[i].CPUDataID = dev.ID
	}
	s.devices[dev.ProductID] = dev
	return nil
}

func (s *memStore) byID(id uint) *models.CPUData {
	for _, d := range s.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (s *memStore) UpdateDay(_ context.Context, deviceID, entryID uint, usage float64, rank models.Rank, board models.Motherboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	dev := s.byID(deviceID)
	if dev == nil {
		return store.ErrNotFound
	}
	for i := range dev.DailyPerformance {
		if dev.DailyPerformance[i].ID == entryID {
			dev.DailyPerformance[i].RAMUsageInPercentage = usage
			dev.DailyPerformance[i].CPUPerformanceRank = rank
			dev.Motherboard = datatypes.NewJSONType(board)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memStore) AppendDay(_ context.Context, deviceID uint, entry models.DailyPerformance, board models.Motherboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	dev := s.byID(deviceID)
	if dev == nil {
		return store.ErrNotFound
	}
	entry.ID = s.id()
	entry.CPUDataID = deviceID
	dev.DailyPerformance = append(dev.DailyPerformance, entry)
	dev.Motherboard = datatypes.NewJSONType(board)
	return nil
}

func (s *memStore) device(productID string) *models.CPUData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[productID]
}

type staticBoard struct {
	board models.Motherboard
	err   error
}

func (b *staticBoard) Board() (models.Motherboard, error) { return b.board, b.err }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(mem MemoryReader, board BoardReader, clock *fakeClock) (*Service, *memStore) {
	st := newMemStore()
	sampler := NewSampler("DEV-1", "1200", NewRAMMeter(mem), board,
		WithClock(clock.Now), WithLocation(time.UTC))
	return NewService(st, sampler), st
}

func TestTickCreatesUpdatesAndAppends(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc, st := newTestService(usedPct(40, 60, 20), &staticBoard{}, clock)

	r, err := svc.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", r.Day)
	dev := st.device("DEV-1")
	require.Len(t, dev.DailyPerformance, 1)
	assert.InDelta(t, 40.0, dev.DailyPerformance[0].RAMUsageInPercentage, 1e-9)
	assert.Equal(t, models.RankGoodUse, dev.DailyPerformance[0].CPUPerformanceRank)
	firstRun := dev.DailyPerformance[0].LastRunDate

	clock.Advance(10 * time.Second)
	_, err = svc.Tick(ctx)
	require.NoError(t, err)
	dev = st.device("DEV-1")
	require.Len(t, dev.DailyPerformance, 1, "same day updates in place")
	assert.InDelta(t, 50.0, dev.DailyPerformance[0].RAMUsageInPercentage, 1e-9)
	assert.Equal(t, models.RankPerfectlyUsed, dev.DailyPerformance[0].CPUPerformanceRank)
	assert.Equal(t, firstRun, dev.DailyPerformance[0].LastRunDate, "lastRunDate keeps the first run of the day")

	clock.Advance(24 * time.Hour)
	_, err = svc.Tick(ctx)
	require.NoError(t, err)
	dev = st.device("DEV-1")
	require.Len(t, dev.DailyPerformance, 2)
	assert.Equal(t, "2024-05-02", dev.DailyPerformance[1].Day)
	assert.InDelta(t, 40.0, dev.DailyPerformance[1].RAMUsageInPercentage, 1e-9, "the mean spans days")
}

func TestOneEntryPerDay(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 1, 0, time.UTC)}
	svc, st := newTestService(usedPct(30), &staticBoard{}, clock)

	const days = 5
	for d := 0; d < days; d++ {
		for i := 0; i < 3; i++ {
			_, err := svc.Tick(ctx)
			require.NoError(t, err)
			clock.Advance(time.Hour)
		}
		clock.Advance(21 * time.Hour)
	}

	dev := st.device("DEV-1")
	require.Len(t, dev.DailyPerformance, days)
	seen := map[string]bool{}
	for _, e := range dev.DailyPerformance {
		assert.False(t, seen[e.Day], "duplicate day %s", e.Day)
		seen[e.Day] = true
	}
}

func TestMotherboardOverwrittenEverySample(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	board := &staticBoard{board: models.Motherboard{Manufacturer: "ASUS", Model: "A"}}
	svc, st := newTestService(usedPct(30), board, clock)

	_, err := svc.Tick(ctx)
	require.NoError(t, err)

	board.board = models.Motherboard{Manufacturer: "ASUS", Model: "B"}
	_, err = svc.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", st.device("DEV-1").Motherboard.Data().Model)

	board.err = errors.New("dmi unreadable")
	_, err = svc.Tick(ctx)
	require.NoError(t, err, "a board read failure keeps the last snapshot")
	assert.Equal(t, "B", st.device("DEV-1").Motherboard.Data().Model)
}

func TestUpsertPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	boom := errors.New("db down")

	svc, st := newTestService(usedPct(30), &staticBoard{}, clock)
	st.findErr, st.failFind = boom, 1
	_, err := svc.Tick(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, st.device("DEV-1"), "nothing is written after a failed lookup")

	svc, st = newTestService(usedPct(30), &staticBoard{}, clock)
	st.writeErr = boom
	_, err = svc.Tick(ctx)
	assert.ErrorIs(t, err, boom)

	svc, _ = newTestService(&fakeMemory{err: boom}, &staticBoard{}, clock)
	_, err = svc.Tick(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestUpsertReading(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc, st := newTestService(usedPct(30), &staticBoard{}, clock)

	r := Reading{ProductID: "REMOTE", Cost: "900", At: clock.Now(), Day: "2024-05-01", RAMUsage: 90, Rank: models.RankDanger}
	decision, err := svc.Upsert(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, DecisionCreate, decision)

	r.RAMUsage, r.Rank = 70, models.RankPerfectlyUsed
	decision, err = svc.Upsert(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, DecisionUpdateToday, decision)

	dev := st.device("REMOTE")
	require.Len(t, dev.DailyPerformance, 1)
	assert.Equal(t, "900", dev.Cost)
	assert.Equal(t, models.RankPerfectlyUsed, dev.DailyPerformance[0].CPUPerformanceRank)
}

func TestRunSurvivesFailedTicks(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc, st := newTestService(usedPct(30), &staticBoard{}, clock)
	st.findErr, st.failFind = errors.New("transient"), 2

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.device("DEV-1") != nil }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.GreaterOrEqual(t, st.finds, 3)
}
