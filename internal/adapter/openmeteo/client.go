// Package openmeteo implements the precipitation collaborator against the
// Open-Meteo forecast API. The hourly endpoint returns past observations and
// forecast rows in one response; rows after the evaluation instant are
// flagged as forecast.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

// hourlyTimeLayout is Open-Meteo's minute-resolution ISO 8601 format.
const hourlyTimeLayout = "2006-01-02T15:04"

// Client fetches hourly precipitation series for a coordinate. It implements
// engine.SampleSource. Outbound calls run through a circuit breaker so a
// degraded upstream fails fast instead of holding every tower's fetch slot
// for the full timeout.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]domain.PrecipitationSample]
	baseURL    string
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(baseURL string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker[[]domain.PrecipitationSample](gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		baseURL:    baseURL,
		clock:      clock,
		logger:     logger,
	}
}

// FetchSamples returns the tower's hourly precipitation covering at least
// the trailing window, plus the remainder of the current day as forecast
// rows.
func (c *Client) FetchSamples(ctx context.Context, tower domain.Tower, window time.Duration) ([]domain.PrecipitationSample, error) {
	now := c.clock.Now().UTC()
	start := now.Add(-window)

	params := url.Values{
		"latitude":   {fmt.Sprintf("%.6f", tower.Latitude)},
		"longitude":  {fmt.Sprintf("%.6f", tower.Longitude)},
		"hourly":     {"precipitation"},
		"timezone":   {"UTC"},
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {now.Format("2006-01-02")},
	}
	fullURL := c.baseURL + "/v1/forecast?" + params.Encode()

	return c.breaker.Execute(func() ([]domain.PrecipitationSample, error) {
		return c.doRequest(ctx, fullURL, tower.ID, now)
	})
}

func (c *Client) doRequest(ctx context.Context, fullURL, towerID string, now time.Time) ([]domain.PrecipitationSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("precipitation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Hourly.Time) != len(payload.Hourly.Precipitation) {
		return nil, fmt.Errorf("open-meteo response: %d timestamps but %d precipitation values",
			len(payload.Hourly.Time), len(payload.Hourly.Precipitation))
	}

	samples := make([]domain.PrecipitationSample, 0, len(payload.Hourly.Time))
	for i, ts := range payload.Hourly.Time {
		t, err := time.Parse(hourlyTimeLayout, ts)
		if err != nil {
			c.logger.Warn("skipping sample with malformed timestamp",
				"tower_id", towerID, "timestamp", ts)
			continue
		}
		t = t.UTC()
		samples = append(samples, domain.PrecipitationSample{
			TowerID:     towerID,
			Timestamp:   t,
			Millimeters: payload.Hourly.Precipitation[i],
			IsForecast:  t.After(now),
		})
	}
	domain.SortSamples(samples)
	return samples, nil
}

// Open-Meteo API response types.

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Time          []string  `json:"time"`
	Precipitation []float64 `json:"precipitation"`
}
