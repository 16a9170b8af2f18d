package openmeteo_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/landslide-alert-engine/internal/adapter/openmeteo"
	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

var testTower = domain.Tower{
	ID:        "TORRE_001",
	Latitude:  6.642631,
	Longitude: -71.8147,
}

func fakeClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
}

func TestClient_FetchSamples(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":  q.Get("latitude"),
			"longitude": q.Get("longitude"),
			"hourly":    q.Get("hourly"),
			"timezone":  q.Get("timezone"),
		}
		assert.Equal(t, "/v1/forecast", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"hourly": {
				"time": ["2025-03-10T10:00", "2025-03-10T11:00", "2025-03-10T12:00", "2025-03-10T13:00"],
				"precipitation": [0.4, 1.2, 0.0, 2.5]
			}
		}`))
	}))
	defer srv.Close()

	client := openmeteo.NewClient(srv.URL, 5*time.Second, fakeClock(), slog.Default())

	samples, err := client.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, "6.642631", gotQuery["latitude"])
	assert.Equal(t, "-71.814700", gotQuery["longitude"])
	assert.Equal(t, "precipitation", gotQuery["hourly"])
	assert.Equal(t, "UTC", gotQuery["timezone"])

	first := samples[0]
	assert.Equal(t, "TORRE_001", first.TowerID)
	assert.Equal(t, time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, 0.4, first.Millimeters)
	assert.False(t, first.IsForecast)

	// The 13:00 row is after the fake clock's noon: forecast.
	last := samples[3]
	assert.True(t, last.IsForecast)
	assert.Equal(t, 2.5, last.Millimeters)
}

func TestClient_FetchSamples_SkipsMalformedTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"hourly": {
				"time": ["garbage", "2025-03-10T11:00"],
				"precipitation": [1.0, 2.0]
			}
		}`))
	}))
	defer srv.Close()

	client := openmeteo.NewClient(srv.URL, 5*time.Second, fakeClock(), slog.Default())

	samples, err := client.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 2.0, samples[0].Millimeters)
}

func TestClient_FetchSamples_LengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"hourly": {
				"time": ["2025-03-10T11:00"],
				"precipitation": [1.0, 2.0]
			}
		}`))
	}))
	defer srv.Close()

	client := openmeteo.NewClient(srv.URL, 5*time.Second, fakeClock(), slog.Default())

	_, err := client.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precipitation values")
}

func TestClient_FetchSamples_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := openmeteo.NewClient(srv.URL, 5*time.Second, fakeClock(), slog.Default())

	_, err := client.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := openmeteo.NewClient(srv.URL, 5*time.Second, fakeClock(), slog.Default())

	for i := 0; i < 6; i++ {
		_, err := client.FetchSamples(context.Background(), testTower, 72*time.Hour)
		require.Error(t, err)
	}
	served := requests

	// Once open, calls fail fast without reaching the upstream.
	_, err := client.FetchSamples(context.Background(), testTower, 72*time.Hour)
	require.Error(t, err)
	assert.Equal(t, served, requests)
}
