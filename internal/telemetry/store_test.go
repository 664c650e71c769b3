package telemetry

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesaa/invmon/internal/config"
	"github.com/vesaa/invmon/internal/models"
	"github.com/vesaa/invmon/internal/store"
)

func openStore(t *testing.T) *store.TelemetryStore {
	t.Helper()
	db, err := store.Open(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "telemetry.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return store.NewTelemetryStore(db)
}

func TestServiceOverDatabase(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	board := &staticBoard{board: models.Motherboard{Manufacturer: "ASUS"}}
	sampler := NewSampler("DEV-1", "1200", NewRAMMeter(usedPct(80, 90, 10)), board,
		WithClock(clock.Now), WithLocation(time.UTC))
	svc := NewService(st, sampler)

	for i := 0; i < 2; i++ {
		_, err := svc.Tick(ctx)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	clock.Advance(24 * time.Hour)
	_, err := svc.Tick(ctx)
	require.NoError(t, err)

	dev, err := st.FindDevice(ctx, "DEV-1")
	require.NoError(t, err)
	require.Len(t, dev.DailyPerformance, 2)
	assert.InDelta(t, 85.0, dev.DailyPerformance[0].RAMUsageInPercentage, 1e-9)
	assert.Equal(t, models.RankSuperComputer, dev.DailyPerformance[0].CPUPerformanceRank)
	assert.InDelta(t, 60.0, dev.DailyPerformance[1].RAMUsageInPercentage, 1e-9)
	assert.Equal(t, models.RankPerfectlyUsed, dev.DailyPerformance[1].CPUPerformanceRank)
	assert.Equal(t, "ASUS", dev.Motherboard.Data().Manufacturer)
}

// The timer, POST /cpu-performance and agent reports share one Service;
// overlapping writes for one day must not collide on the unique day index.
func TestConcurrentUpsertsOfOneDay(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	svc := NewService(st, NewSampler("DEV-1", "1200", NewRAMMeter(usedPct(50)), nil))
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	const writers = 8
	decisions := make([]Decision, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = svc.Upsert(ctx, Reading{
				ProductID: "DEV-1", Cost: "1200", At: at, Day: "2024-05-01",
				RAMUsage: float64(10 * i), Rank: ClassifyRank(float64(10 * i)),
			})
		}(i)
	}
	wg.Wait()

	creates := 0
	for i := range errs {
		require.NoError(t, errs[i], "writer %d", i)
		if decisions[i] == DecisionCreate {
			creates++
		}
	}
	assert.Equal(t, 1, creates)

	dev, err := st.FindDevice(ctx, "DEV-1")
	require.NoError(t, err)
	assert.Len(t, dev.DailyPerformance, 1)
}
