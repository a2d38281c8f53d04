package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Dataset source and classification.
	DataSource          string
	SourceTimeout       time.Duration
	DefaultRegion       string
	Thresholds          domain.Thresholds
	RecommendationsFile string
	ReloadInterval      time.Duration

	// Kafka snapshot publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	reloadInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("RELOAD_INTERVAL", "0s"))
	if err != nil || reloadInterval < 0 {
		return nil, errors.New("invalid RELOAD_INTERVAL")
	}

	critical, err := parseThreshold("CRITICAL_THRESHOLD", domain.DefaultThresholds.Critical)
	if err != nil {
		return nil, err
	}
	medium, err := parseThreshold("MEDIUM_THRESHOLD", domain.DefaultThresholds.Medium)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     splitList(sharedcfg.EnvOrDefault("CORS_ORIGINS", "*")),

		DataSource:          sharedcfg.EnvOrDefault("DATA_SOURCE", "data/sp_zones_data.csv"),
		SourceTimeout:       sourceTimeout,
		DefaultRegion:       defaultRegion(),
		Thresholds:          domain.Thresholds{Critical: critical, Medium: medium},
		RecommendationsFile: os.Getenv("RECOMMENDATIONS_FILE"),
		ReloadInterval:      reloadInterval,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "classified-zones"),
	}

	if cfg.DataSource == "" {
		return nil, errors.New("DATA_SOURCE is required")
	}
	if cfg.DefaultRegion == "" {
		return nil, errors.New("DEFAULT_REGION must not be blank")
	}
	if cfg.Thresholds.Medium >= cfg.Thresholds.Critical {
		return nil, fmt.Errorf("MEDIUM_THRESHOLD (%g) must be below CRITICAL_THRESHOLD (%g)", medium, critical)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

// IsRemoteSource reports whether DataSource is an http(s) URL rather than a file path.
func (c *Config) IsRemoteSource() bool {
	return strings.HasPrefix(c.DataSource, "http://") || strings.HasPrefix(c.DataSource, "https://")
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseThreshold(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func defaultRegion() string {
	if v, ok := os.LookupEnv("DEFAULT_REGION"); ok {
		return strings.TrimSpace(v)
	}
	return domain.DefaultRegion
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
