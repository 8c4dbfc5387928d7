// Package config loads the run configuration from YAML (or JSON, which is
// valid YAML) and fills defaults.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/contactkeval/straddle-pricer/internal/logger"
	"github.com/contactkeval/straddle-pricer/internal/pricing"
)

const (
	SourceStatic    = "static"
	SourceCSV       = "csv"
	SourceMassive   = "massive"
	SourceSynthetic = "synthetic"

	DefaultReportDir = "./out"
	DefaultPaths     = 100_000
	DefaultAPIKeyEnv = "MASSIVE_API_KEY"
)

// Config struct
type Config struct {
	Market     pricing.MarketParameters `yaml:"market"`                           // static market inputs, overridden by Source
	Source     SourceSpec               `yaml:"source"`                           // where spot and volatility come from
	Simulation SimulationSpec           `yaml:"simulation"`                       // Monte Carlo settings
	ReportDir  string                   `yaml:"report_dir,omitempty"`             // report directory
	Verbosity  int                      `yaml:"verbosity" validate:"gte=0,lte=3"` // 0=errors,1=info,2=debug,3=trace
	Addr       string                   `yaml:"addr,omitempty"`                   // REST listen address
}

// SourceSpec selects the market data provider used to derive spot and
// realized volatility. "static" takes Market as given.
type SourceSpec struct {
	Kind       string  `yaml:"kind" validate:"oneof=static csv massive synthetic"`
	Underlying string  `yaml:"underlying" validate:"required_unless=Kind static"`
	Dir        string  `yaml:"dir" validate:"required_if=Kind csv"`
	From       string  `yaml:"from" validate:"required_unless=Kind static"`
	To         string  `yaml:"to" validate:"required_unless=Kind static"`
	APIKeyEnv  string  `yaml:"api_key_env"`
	Fallback   bool    `yaml:"fallback"`                      // fall back to synthetic bars on provider failure
	StartPrice float64 `yaml:"start_price" validate:"gte=0"` // synthetic series start
}

// SimulationSpec configures the estimators.
type SimulationSpec struct {
	Paths      int    `yaml:"paths" validate:"gte=1"`       // terminal-price paths for the Monte Carlo pricer
	Seed       uint64 `yaml:"seed"`                         // 0 = derive from the clock
	Workers    int    `yaml:"workers" validate:"gte=0"`     // 0 = GOMAXPROCS
	BlockSize  int    `yaml:"block_size" validate:"gte=0"`  // draws per random-stream block, 0 = default
	Repeats    int    `yaml:"repeats" validate:"gte=-1"`    // repeated daily-step estimates, -1 = none
	DailyPaths int    `yaml:"daily_paths" validate:"gte=0"` // paths per daily-step estimate
	PathCount  int    `yaml:"path_count" validate:"gte=-1"` // sample paths exported for charting, -1 = none
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return Parse(raw)
}

// Parse decodes, defaults and validates a configuration document.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{Verbosity: int(logger.Info)}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills the zero-valued optional fields. Repeats and
// PathCount use -1 to switch their output off.
func (c *Config) ApplyDefaults() {
	if c.ReportDir == "" {
		c.ReportDir = DefaultReportDir
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceStatic
	}
	c.Source.Kind = strings.ToLower(c.Source.Kind)
	if c.Source.APIKeyEnv == "" {
		c.Source.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Source.StartPrice == 0 {
		c.Source.StartPrice = 100
	}
	if c.Simulation.Paths == 0 {
		c.Simulation.Paths = DefaultPaths
	}
	if c.Simulation.Seed == 0 {
		c.Simulation.Seed = uint64(time.Now().UnixNano())
	}
	if c.Simulation.Repeats == 0 {
		c.Simulation.Repeats = 5
	}
	if c.Simulation.DailyPaths == 0 {
		c.Simulation.DailyPaths = 10_000
	}
	if c.Simulation.PathCount == 0 {
		c.Simulation.PathCount = 4
	}
}

// Validate checks struct constraints and, for a static source, the market
// parameters themselves.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if c.Source.Kind == SourceStatic {
		if err := c.Market.Validate(); err != nil {
			return errors.Wrap(err, "invalid config market")
		}
	}
	return nil
}

// Window parses the source date range.
func (s SourceSpec) Window() (from, to time.Time, err error) {
	from, err = time.Parse("2006-01-02", s.From)
	if err != nil {
		return from, to, errors.Wrap(err, "source.from")
	}
	to, err = time.Parse("2006-01-02", s.To)
	if err != nil {
		return from, to, errors.Wrap(err, "source.to")
	}
	if to.Before(from) {
		return from, to, errors.Errorf("source window ends before it starts: %s → %s", s.From, s.To)
	}
	return from, to, nil
}

// APIKey reads the Massive key from the configured environment variable.
func (s SourceSpec) APIKey() string {
	return os.Getenv(s.APIKeyEnv)
}
