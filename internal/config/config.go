package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "MATURITY_SCANNER_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	filingsAPIKeyEnv   = "FILINGS_API_KEY"
	registryAPIKeyEnv  = "REGISTRY_API_KEY"
	alertWebhookEnv    = "ALERT_WEBHOOK_URL"
	extractorAPIKeyEnv = "EXTRACTOR_API_KEY"
	seedEnv            = "DETERMINISM_SEED"
	fixedTimeEnv       = "DETERMINISM_FIXED_TIME"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Database    DatabaseConfig    `yaml:"database"`
	Determinism DeterminismConfig `yaml:"determinism"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Rubric      RubricConfig      `yaml:"rubric"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Alerts      AlertConfig       `yaml:"alerts"`
	Providers   []ProviderConfig  `yaml:"providers"`
}

// LoggingConfig selects console log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// DeterminismConfig pins clock and randomness for reproducible runs. With
// Enabled set, FixedTime (RFC3339) and Seed are both mandatory; the substrate
// refuses to start otherwise.
type DeterminismConfig struct {
	Enabled   bool    `yaml:"enabled"`
	FixedTime string  `yaml:"fixedTime"`
	Seed      *uint64 `yaml:"seed"`
}

// ParseFixedTime resolves the RFC3339 fixed-time string; an empty string
// yields the zero time, which the substrate treats as unconfigured.
func (d DeterminismConfig) ParseFixedTime() (time.Time, error) {
	if d.FixedTime == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, d.FixedTime)
}

// ScoringConfig tunes retrieval fusion and batch execution.
type ScoringConfig struct {
	Alpha           float64 `yaml:"alpha"`
	TopK            int     `yaml:"topK"`
	Parallelism     int     `yaml:"parallelism"`
	ProviderTimeout int     `yaml:"providerTimeoutSeconds"`
}

// Timeout converts the per-provider call budget into a duration.
func (s ScoringConfig) Timeout() time.Duration {
	return time.Duration(s.ProviderTimeout) * time.Second
}

// RubricConfig locates the versioned rubric definition file.
type RubricConfig struct {
	Path string `yaml:"path"`
}

// ExtractorConfig points to the external span-extraction service; with an
// empty endpoint the offline paragraph extractor is used instead.
type ExtractorConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// AlertConfig wires the outbound channel for parity correctness alarms.
type AlertConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// ProviderConfig describes one data source with its scanner strategy.
type ProviderConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	Tier    int               `yaml:"tier"`
	BaseURL string            `yaml:"baseUrl"`
	APIKey  string            `yaml:"apiKey"`
	Options map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultConfig().Providers
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(alertWebhookEnv); v != "" {
		c.Alerts.WebhookURL = v
	}

	if v := os.Getenv(extractorAPIKeyEnv); v != "" {
		c.Extractor.APIKey = v
	}

	if v := os.Getenv(fixedTimeEnv); v != "" {
		c.Determinism.FixedTime = v
	}

	if v := os.Getenv(seedEnv); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err != nil {
			log.Printf("config: invalid %s %q: %v (keeping configured seed)", seedEnv, v, err)
		} else {
			c.Determinism.Seed = &seed
		}
	}

	for i := range c.Providers {
		switch c.Providers[i].Kind {
		case "filings":
			if v := os.Getenv(filingsAPIKeyEnv); v != "" {
				c.Providers[i].APIKey = v
			}
		case "registry":
			if v := os.Getenv(registryAPIKeyEnv); v != "" {
				c.Providers[i].APIKey = v
			}
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Determinism.Enabled {
		base.Determinism.Enabled = true
	}
	if override.Determinism.FixedTime != "" {
		base.Determinism.FixedTime = override.Determinism.FixedTime
	}
	if override.Determinism.Seed != nil {
		base.Determinism.Seed = override.Determinism.Seed
	}

	if override.Scoring.Alpha != 0 {
		base.Scoring.Alpha = override.Scoring.Alpha
	}
	if override.Scoring.TopK != 0 {
		base.Scoring.TopK = override.Scoring.TopK
	}
	if override.Scoring.Parallelism != 0 {
		base.Scoring.Parallelism = override.Scoring.Parallelism
	}
	if override.Scoring.ProviderTimeout != 0 {
		base.Scoring.ProviderTimeout = override.Scoring.ProviderTimeout
	}

	if override.Rubric.Path != "" {
		base.Rubric = override.Rubric
	}

	if override.Extractor.Endpoint != "" {
		base.Extractor.Endpoint = override.Extractor.Endpoint
	}
	if override.Extractor.Model != "" {
		base.Extractor.Model = override.Extractor.Model
	}
	if override.Extractor.APIKey != "" {
		base.Extractor.APIKey = override.Extractor.APIKey
	}

	if override.Alerts.WebhookURL != "" {
		base.Alerts = override.Alerts
	}

	if len(override.Providers) > 0 {
		base.Providers = override.Providers
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Determinism: DeterminismConfig{
			Enabled: false,
		},
		Scoring: ScoringConfig{
			Alpha:           0.6,
			TopK:            10,
			Parallelism:     4,
			ProviderTimeout: 20,
		},
		Rubric: RubricConfig{Path: "rubric.yaml"},
		Providers: []ProviderConfig{
			{
				Name:    "filings",
				Kind:    "filings",
				Tier:    1,
				BaseURL: "https://filings.example.org",
			},
			{
				Name:    "registry",
				Kind:    "registry",
				Tier:    2,
				BaseURL: "https://esg-registry.example.org",
			},
			{
				Name:    "webreport",
				Kind:    "webreport",
				Tier:    3,
				BaseURL: "https://reports.example.org/index",
			},
		},
	}
}
