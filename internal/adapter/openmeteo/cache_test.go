package openmeteo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/landslide-alert-engine/internal/adapter/openmeteo"
	"github.com/gridwatch/landslide-alert-engine/internal/domain"
	"github.com/gridwatch/landslide-alert-engine/internal/observability"
)

type stubSource struct {
	mu      sync.Mutex
	calls   int
	samples []domain.PrecipitationSample
	err     error
}

func (s *stubSource) FetchSamples(_ context.Context, tower domain.Tower, _ time.Duration) ([]domain.PrecipitationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.samples, s.err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func oneSample(clock clockwork.Clock) []domain.PrecipitationSample {
	return []domain.PrecipitationSample{{
		TowerID:     "TORRE_001",
		Timestamp:   clock.Now().UTC(),
		Millimeters: 1.5,
	}}
}

func TestCachedSource_HitWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &stubSource{samples: oneSample(clock)}
	cached := openmeteo.NewCachedSource(inner, 16, time.Hour, clock, observability.NewMetricsForTesting())

	first, err := cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)

	second, err := cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.callCount())
}

func TestCachedSource_ExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &stubSource{samples: oneSample(clock)}
	cached := openmeteo.NewCachedSource(inner, 16, time.Hour, clock, observability.NewMetricsForTesting())

	_, err := cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCachedSource_NearbyCoordinatesShareEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &stubSource{samples: oneSample(clock)}
	cached := openmeteo.NewCachedSource(inner, 16, time.Hour, clock, observability.NewMetricsForTesting())

	_, err := cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)

	// ~1 m jitter rounds to the same 4-decimal key.
	jittered := testTower
	jittered.Latitude += 0.00001

	_, err = cached.FetchSamples(context.Background(), jittered, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.callCount())
}

func TestCachedSource_DistinctWindowsAreDistinctEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &stubSource{samples: oneSample(clock)}
	cached := openmeteo.NewCachedSource(inner, 16, time.Hour, clock, observability.NewMetricsForTesting())

	_, err := cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)
	_, err = cached.FetchSamples(context.Background(), testTower, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCachedSource_DoesNotCacheErrorsOrEmptySeries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &stubSource{err: errors.New("upstream gone")}
	cached := openmeteo.NewCachedSource(inner, 16, time.Hour, clock, observability.NewMetricsForTesting())

	_, err := cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.Error(t, err)

	inner.mu.Lock()
	inner.err = nil // recovered, but still returning an empty series
	inner.mu.Unlock()

	_, err = cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)

	_, err = cached.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.callCount(), "empty series must be refetched")
}

func TestCachedSource_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &stubSource{samples: oneSample(clock)}
	cached := openmeteo.NewCachedSource(inner, 2, time.Hour, clock, observability.NewMetricsForTesting())

	towerAt := func(lat float64) domain.Tower {
		tw := testTower
		tw.Latitude = lat
		return tw
	}

	ctx := context.Background()
	_, _ = cached.FetchSamples(ctx, towerAt(1.0), 72*time.Hour)
	_, _ = cached.FetchSamples(ctx, towerAt(2.0), 72*time.Hour)
	_, _ = cached.FetchSamples(ctx, towerAt(1.0), 72*time.Hour) // refresh 1.0
	_, _ = cached.FetchSamples(ctx, towerAt(3.0), 72*time.Hour) // evicts 2.0
	require.Equal(t, 3, inner.callCount())

	_, _ = cached.FetchSamples(ctx, towerAt(2.0), 72*time.Hour)
	assert.Equal(t, 4, inner.callCount(), "evicted entry must be refetched")

	_, _ = cached.FetchSamples(ctx, towerAt(1.0), 72*time.Hour)
	assert.Equal(t, 5, inner.callCount(), "1.0 was evicted when 2.0 came back")
}
