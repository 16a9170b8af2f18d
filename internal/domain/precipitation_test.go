package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

var asOf = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func sample(ts time.Time, mm float64) domain.PrecipitationSample {
	return domain.PrecipitationSample{TowerID: "TORRE_001", Timestamp: ts, Millimeters: mm}
}

func TestAccumulate_WindowInclusiveBothEnds(t *testing.T) {
	window := 72 * time.Hour
	samples := []domain.PrecipitationSample{
		sample(asOf.Add(-window).Add(-time.Second), 100), // just outside
		sample(asOf.Add(-window), 1),                     // exactly at the lower bound
		sample(asOf.Add(-time.Hour), 2),
		sample(asOf, 4), // exactly at the upper bound
		sample(asOf.Add(time.Second), 100), // forecast, just outside
	}

	acc := domain.Accumulate(samples, asOf, window)
	assert.Equal(t, 7.0, acc.Millimeters)
	assert.Equal(t, 3, acc.SampleCount)
	assert.False(t, acc.Insufficient)
}

func TestAccumulate_NoSamplesInWindow(t *testing.T) {
	samples := []domain.PrecipitationSample{
		sample(asOf.Add(-100*time.Hour), 50),
		sample(asOf.Add(10*time.Hour), 30),
	}

	acc := domain.Accumulate(samples, asOf, 72*time.Hour)
	assert.True(t, acc.Insufficient)
	assert.Zero(t, acc.Millimeters)
	assert.Zero(t, acc.SampleCount)
}

func TestAccumulate_EmptySeries(t *testing.T) {
	acc := domain.Accumulate(nil, asOf, 72*time.Hour)
	assert.True(t, acc.Insufficient)
	assert.Zero(t, acc.Millimeters)
}

func TestAccumulate_ClampsNegativeReadings(t *testing.T) {
	samples := []domain.PrecipitationSample{
		sample(asOf.Add(-3*time.Hour), 5),
		sample(asOf.Add(-2*time.Hour), -1.5), // sensor error
		sample(asOf.Add(-time.Hour), 3),
	}

	acc := domain.Accumulate(samples, asOf, 72*time.Hour)
	assert.Equal(t, 8.0, acc.Millimeters)
	assert.Equal(t, 1, acc.ClampedNegatives)
	assert.Equal(t, 3, acc.SampleCount)
	assert.False(t, acc.Insufficient, "clamped samples still count as data")
}

func TestAccumulate_DuplicateTimestampsLastWins(t *testing.T) {
	ts := asOf.Add(-time.Hour)
	samples := []domain.PrecipitationSample{
		sample(ts, 10),
		sample(asOf.Add(-2*time.Hour), 1),
		sample(ts, 2), // corrected reading replaces the original
	}

	acc := domain.Accumulate(samples, asOf, 72*time.Hour)
	assert.Equal(t, 3.0, acc.Millimeters)
	assert.Equal(t, 2, acc.SampleCount)
}

func TestAccumulate_DuplicateAcrossTimeZones(t *testing.T) {
	ts := asOf.Add(-time.Hour)
	bogota := time.FixedZone("COT", -5*3600)
	samples := []domain.PrecipitationSample{
		sample(ts, 10),
		sample(ts.In(bogota), 2), // same instant, different zone
	}

	acc := domain.Accumulate(samples, asOf, 72*time.Hour)
	assert.Equal(t, 2.0, acc.Millimeters)
	assert.Equal(t, 1, acc.SampleCount)
}

func TestSortSamples_StableOnDuplicates(t *testing.T) {
	ts := asOf.Add(-time.Hour)
	samples := []domain.PrecipitationSample{
		sample(asOf, 1),
		sample(ts, 10),
		sample(ts, 2),
	}

	domain.SortSamples(samples)
	assert.Equal(t, 10.0, samples[0].Millimeters)
	assert.Equal(t, 2.0, samples[1].Millimeters)
	assert.Equal(t, 1.0, samples[2].Millimeters)
}
