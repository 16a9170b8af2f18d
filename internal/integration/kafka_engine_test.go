//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "github.com/gridwatch/landslide-alert-engine/internal/adapter/kafka"
	"github.com/gridwatch/landslide-alert-engine/internal/config"
	"github.com/gridwatch/landslide-alert-engine/internal/domain"
	"github.com/gridwatch/landslide-alert-engine/internal/engine"
	"github.com/gridwatch/landslide-alert-engine/internal/observability"
)

const testAlertTopic = "test-tower-alerts"

// publishedAlert holds a deserialized message read from the alert topic.
type publishedAlert struct {
	Record  domain.AlertRecord
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedAlert {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.AlertRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal alert message")

	return publishedAlert{Record: rec, Key: string(msg.Key), Headers: headers}
}

type staticRegistry struct {
	towers []domain.Tower
}

func (r *staticRegistry) ListTowers(_ context.Context) ([]domain.Tower, error) {
	return r.towers, nil
}

type staticSource struct {
	samples map[string][]domain.PrecipitationSample
}

func (s *staticSource) FetchSamples(_ context.Context, tower domain.Tower, _ time.Duration) ([]domain.PrecipitationSample, error) {
	return s.samples[tower.ID], nil
}

// TestEngineCyclePublishesToKafka runs one evaluation cycle against real
// Kafka and verifies every record lands on the alert topic with its key and
// headers intact.
func TestEngineCyclePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	now := clock.Now().UTC()

	soaked := domain.Tower{
		ID: "TORRE_002", Name: "Torre 2",
		Latitude: 6.858107, Longitude: -71.902591,
		Threat: domain.ThreatVeryHigh, SlopeDeg: 48,
		EventCount: 7, DrainageDistanceM: 40, ResidualFactor: 0.8,
	}
	calm := domain.Tower{
		ID: "TORRE_001", Name: "Torre 1",
		Latitude: 6.642631, Longitude: -71.8147,
		Threat: domain.ThreatLow, SlopeDeg: 8,
		EventCount: 0, DrainageDistanceM: 420, ResidualFactor: 0.1,
	}

	// 72 hourly samples at 2 mm: 144 mm accumulated, over Muy Alta critical.
	wet := make([]domain.PrecipitationSample, 0, 72)
	for i := 71; i >= 0; i-- {
		wet = append(wet, domain.PrecipitationSample{
			TowerID:     soaked.ID,
			Timestamp:   now.Add(-time.Duration(i) * time.Hour),
			Millimeters: 2,
		})
	}

	eng := engine.New(
		&staticRegistry{towers: []domain.Tower{calm, soaked}},
		&staticSource{samples: map[string][]domain.PrecipitationSample{soaked.ID: wet}},
		[]engine.RecordSink{publisher},
		domain.DefaultThresholdTable(),
		domain.DefaultRiskWeights(),
		engine.Options{FetchConcurrency: 2, FetchTimeout: 5 * time.Second},
		clock, discardLogger(), observability.NewMetricsForTesting(),
	)

	records, err := eng.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedAlert{}
	for len(received) < 2 {
		pa := readAlert(ctx, t, consumer)
		received[pa.Key] = pa
	}

	calmAlert, ok := received["TORRE_001"]
	require.True(t, ok, "calm tower record on topic")
	assert.Equal(t, domain.AlertGreen, calmAlert.Record.FinalLevel)
	assert.Equal(t, domain.DataInsufficient, calmAlert.Record.DataStatus)
	assert.Equal(t, "green", calmAlert.Headers["final_level"])

	soakedAlert, ok := received["TORRE_002"]
	require.True(t, ok, "soaked tower record on topic")
	assert.Equal(t, 144.0, soakedAlert.Record.AccumulatedMM)
	assert.Equal(t, domain.AlertRed, soakedAlert.Record.RainLevel)
	assert.Equal(t, domain.AlertRed, soakedAlert.Record.FinalLevel)
	assert.Equal(t, "red", soakedAlert.Headers["final_level"])

	_, err = time.Parse(time.RFC3339, soakedAlert.Headers["evaluated_at"])
	assert.NoError(t, err, "evaluated_at header should be valid RFC3339")

	// Both records belong to the same cycle.
	assert.Equal(t, calmAlert.Record.CycleID, soakedAlert.Record.CycleID)
}
