// Package config loads the scheduler configuration from a YAML file, .env
// files and RANSCHED_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/ransched/internal/observability"
	"github.com/signalsfoundry/ransched/kb"
	"github.com/signalsfoundry/ransched/model"
)

const envPrefix = "RANSCHED_"

// Defaults applied to fields the file leaves empty.
const (
	DefaultIngressAddr = ":50061"
	DefaultMetricsAddr = ":9091"
	DefaultMaxUEs      = model.MaxUEs
)

// Config is the full runtime configuration.
type Config struct {
	// Numerology sets the slot length for every cell (1 ms >> numerology).
	Numerology uint8              `yaml:"numerology"`
	MaxUEs     int                `yaml:"max_ues"`
	Cells      []model.CellConfig `yaml:"cells"`

	Ingress IngressConfig `yaml:"ingress"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

type IngressConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns a configuration with every default filled and no cells.
func Default() Config {
	return Config{
		MaxUEs:  DefaultMaxUEs,
		Ingress: IngressConfig{Addr: DefaultIngressAddr},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{Exporter: "stdout", ServiceName: "ransched", SampleRatio: 1},
	}
}

// Load reads .env files (missing ones are ignored), then the YAML file at
// path if non-empty, then environment overrides, and validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of cfg. Unknown keys are rejected.
func Parse(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	// Load never overrides variables already set in the process.
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from RANSCHED_* variables found through lookup.
// Malformed values are collected into one error.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var result *multierror.Error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, bits int, set func(int64)) {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return
		}
		n, err := strconv.ParseInt(v, 10, bits)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			return
		}
		set(n)
	}

	num("NUMEROLOGY", 8, func(n int64) { c.Numerology = uint8(n) })
	num("MAX_UES", 32, func(n int64) { c.MaxUEs = int(n) })
	str("INGRESS_ADDR", &c.Ingress.Addr)
	str("METRICS_ADDR", &c.Metrics.Addr)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("TRACING_EXPORTER", &c.Tracing.Exporter)
	str("OTLP_ENDPOINT", &c.Tracing.Endpoint)
	str("TRACING_SERVICE_NAME", &c.Tracing.ServiceName)
	if v, ok := lookup(envPrefix + "TRACING_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%sTRACING_ENABLED: %w", envPrefix, err))
		} else {
			c.Tracing.Enabled = b
		}
	}
	if v, ok := lookup(envPrefix + "TRACING_SAMPLE_RATIO"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%sTRACING_SAMPLE_RATIO: %w", envPrefix, err))
		} else {
			c.Tracing.SampleRatio = f
		}
	}
	return result.ErrorOrNil()
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Numerology > kb.MaxNumerology {
		result = multierror.Append(result, fmt.Errorf("numerology %d exceeds %d", c.Numerology, kb.MaxNumerology))
	}
	if c.MaxUEs <= 0 || c.MaxUEs > model.MaxUEs {
		result = multierror.Append(result, fmt.Errorf("max_ues %d outside [1, %d]", c.MaxUEs, model.MaxUEs))
	}
	if len(c.Cells) == 0 {
		result = multierror.Append(result, errors.New("at least one cell is required"))
	}
	if len(c.Cells) > model.MaxCells {
		result = multierror.Append(result, fmt.Errorf("%d cells configured, max %d", len(c.Cells), model.MaxCells))
	}

	seenIdx := make(map[model.CellIndex]bool, len(c.Cells))
	seenPCI := make(map[uint16]bool, len(c.Cells))
	for i, cell := range c.Cells {
		if err := kb.ValidateCell(cell); err != nil {
			result = multierror.Append(result, fmt.Errorf("cells[%d]: %w", i, err))
		}
		if cell.Numerology != c.Numerology {
			result = multierror.Append(result, fmt.Errorf("cells[%d]: numerology %d differs from slot numerology %d", i, cell.Numerology, c.Numerology))
		}
		if seenIdx[cell.Index] {
			result = multierror.Append(result, fmt.Errorf("cells[%d]: duplicate index %d", i, cell.Index))
		}
		if seenPCI[cell.PCI] {
			result = multierror.Append(result, fmt.Errorf("cells[%d]: duplicate pci %d", i, cell.PCI))
		}
		seenIdx[cell.Index] = true
		seenPCI[cell.PCI] = true
	}

	if c.Ingress.Addr == "" {
		result = multierror.Append(result, errors.New("ingress.addr is empty"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		result = multierror.Append(result, fmt.Errorf("tracing.exporter %q is not stdout or otlp", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		result = multierror.Append(result, fmt.Errorf("tracing.sample_ratio %v outside [0, 1]", c.Tracing.SampleRatio))
	}
	return result.ErrorOrNil()
}

// TracingOptions converts the tracing section to the observability form.
func (c *Config) TracingOptions() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    strings.ToLower(c.Tracing.Exporter),
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
