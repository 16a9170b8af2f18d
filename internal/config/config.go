package config

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
// Immutable after Load.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	// Evaluation cycle.
	CycleInterval    time.Duration `envconfig:"CYCLE_INTERVAL" default:"1h" validate:"gt=0"`
	WindowHours      int           `envconfig:"ACCUMULATION_WINDOW_HOURS" default:"72" validate:"min=1,max=240"`
	FetchConcurrency int           `envconfig:"FETCH_CONCURRENCY" default:"8" validate:"min=1,max=64"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s" validate:"gt=0"`

	// Input and output files.
	RegistryPath    string `envconfig:"TOWER_REGISTRY_PATH" validate:"required"`
	ThresholdsPath  string `envconfig:"THRESHOLDS_PATH"`   // empty: built-in matrix
	AlertExportPath string `envconfig:"ALERT_EXPORT_PATH"` // empty: CSV export disabled

	// Open-Meteo precipitation source.
	OpenMeteoBaseURL string        `envconfig:"OPENMETEO_BASE_URL" default:"https://api.open-meteo.com"`
	OpenMeteoTimeout time.Duration `envconfig:"OPENMETEO_TIMEOUT" default:"10s" validate:"gt=0"`
	SampleCacheSize  int           `envconfig:"SAMPLE_CACHE_SIZE" default:"256" validate:"min=1"`
	SampleCacheTTL   time.Duration `envconfig:"SAMPLE_CACHE_TTL" default:"1h" validate:"gt=0"`

	// Kafka alert publishing (off by default; the CSV export and HTTP
	// endpoint work without a broker).
	KafkaEnabled    bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaAlertTopic string   `envconfig:"KAFKA_ALERT_TOPIC" default:"tower-alerts"`

	// Risk scoring. Weights must sum to 1.0; bounds normalization may be
	// fixed-domain (default) or derived from the cycle's population.
	UsePopulationBounds bool    `envconfig:"USE_POPULATION_BOUNDS" default:"false"`
	WeightThreat        float64 `envconfig:"RISK_WEIGHT_THREAT" default:"0.15" validate:"min=0,max=1"`
	WeightSlope         float64 `envconfig:"RISK_WEIGHT_SLOPE" default:"0.25" validate:"min=0,max=1"`
	WeightHistory       float64 `envconfig:"RISK_WEIGHT_HISTORY" default:"0.20" validate:"min=0,max=1"`
	WeightDrainage      float64 `envconfig:"RISK_WEIGHT_DRAINAGE" default:"0.15" validate:"min=0,max=1"`
	WeightResidual      float64 `envconfig:"RISK_WEIGHT_RESIDUAL" default:"0.25" validate:"min=0,max=1"`
}

// Window returns the accumulation window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// real environment variables win over .env entries.
func Load() (*Config, error) {
	// godotenv does not overwrite variables that are already set.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	sum := cfg.WeightThreat + cfg.WeightSlope + cfg.WeightHistory + cfg.WeightDrainage + cfg.WeightResidual
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("risk weights must sum to 1.0, got %.6f", sum)
	}

	// Drop empty broker entries so KAFKA_BROKERS="" reads as unset.
	brokers := cfg.KafkaBrokers[:0]
	for _, b := range cfg.KafkaBrokers {
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.KafkaBrokers = brokers
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return &cfg, nil
}
