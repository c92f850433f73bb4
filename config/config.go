package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	ptf "github.com/tsiemens/capgain/portfolio"
)

const (
	FormatJson  = "json"
	FormatTable = "table"
	FormatCsv   = "csv"
)

// Config represents the tax rules and output settings of a calculation.
type Config struct {
	Rules  RulesConfig  `json:"rules" yaml:"rules"`
	Output OutputConfig `json:"output" yaml:"output"`
}

// RulesConfig holds the jurisdiction constants. Decimal values are kept as
// strings so they are never routed through a float.
type RulesConfig struct {
	TaxFreeThreshold   string `json:"tax_free_threshold" yaml:"tax_free_threshold"`
	TaxRate            string `json:"tax_rate" yaml:"tax_rate"`
	TaxPlaces          int32  `json:"tax_places" yaml:"tax_places"`
	AvgPricePlaces     int32  `json:"average_price_places" yaml:"average_price_places"`
	ThresholdExclusive bool   `json:"threshold_exclusive" yaml:"threshold_exclusive"`
}

type OutputConfig struct {
	Format       string `json:"format" yaml:"format"` // "json", "table" or "csv"
	OutDir       string `json:"out_dir,omitempty" yaml:"out_dir,omitempty"`
	Currency     string `json:"currency,omitempty" yaml:"currency,omitempty"`
	FullDecimals bool   `json:"full_decimals" yaml:"full_decimals"`
}

// Default returns the configuration of the default rule set: 20% over a
// 20000 per-sale exemption.
func Default() *Config {
	rules := ptf.DefaultRules()
	return &Config{
		Rules: RulesConfig{
			TaxFreeThreshold:   rules.TaxFreeThreshold.String(),
			TaxRate:            rules.TaxRate.String(),
			TaxPlaces:          rules.TaxPlaces,
			AvgPricePlaces:     rules.AvgPricePlaces,
			ThresholdExclusive: rules.ThresholdExclusive,
		},
		Output: OutputConfig{
			Format: FormatJson,
			OutDir: ".",
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file. Keys absent from
// the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.ToRules(); err != nil {
		return err
	}
	switch c.Output.Format {
	case FormatJson, FormatTable:
	case FormatCsv:
		if c.Output.OutDir == "" {
			return fmt.Errorf("output.out_dir is required for csv format")
		}
	default:
		return fmt.Errorf("output.format must be one of json, table or csv")
	}
	return nil
}

// ToRules converts the rules section into engine Rules.
func (c *Config) ToRules() (ptf.Rules, error) {
	rc := c.Rules
	threshold, err := decimal.NewFromString(strings.TrimSpace(rc.TaxFreeThreshold))
	if err != nil {
		return ptf.Rules{}, fmt.Errorf("rules.tax_free_threshold: %v", err)
	}
	if threshold.IsNegative() {
		return ptf.Rules{}, fmt.Errorf("rules.tax_free_threshold must not be negative")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(rc.TaxRate))
	if err != nil {
		return ptf.Rules{}, fmt.Errorf("rules.tax_rate: %v", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return ptf.Rules{}, fmt.Errorf("rules.tax_rate must be between 0 and 1")
	}
	if rc.TaxPlaces < 0 || rc.TaxPlaces > 12 {
		return ptf.Rules{}, fmt.Errorf("rules.tax_places must be between 0 and 12")
	}
	if rc.AvgPricePlaces < ptf.FullPrecision || rc.AvgPricePlaces > 16 {
		return ptf.Rules{}, fmt.Errorf("rules.average_price_places must be between -1 and 16")
	}
	return ptf.Rules{
		TaxFreeThreshold:   threshold,
		TaxRate:            rate,
		TaxPlaces:          rc.TaxPlaces,
		AvgPricePlaces:     rc.AvgPricePlaces,
		ThresholdExclusive: rc.ThresholdExclusive,
	}, nil
}

func (c *Config) RenderOptions() ptf.RenderOptions {
	return ptf.RenderOptions{
		FullDollarValues: c.Output.FullDecimals,
		Currency:         c.Output.Currency,
	}
}
