// Package config loads the aion configuration file: risk policy, paper
// runtime persistence, phase gate options, the decision pipeline and the
// closed-trade journal.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/aion/contracts"
	"github.com/rustyeddy/aion/paper"
	"github.com/rustyeddy/aion/phase"
)

// Config is the complete aion configuration.
type Config struct {
	Policy      contracts.TradingRiskPolicy `json:"policy" yaml:"policy" mapstructure:"policy"`
	Persistence paper.PersistenceConfig     `json:"persistence" yaml:"persistence" mapstructure:"persistence"`
	Phase       PhaseConfig                 `json:"phase" yaml:"phase" mapstructure:"phase"`
	DMIP        DMIPConfig                  `json:"dmip" yaml:"dmip" mapstructure:"dmip"`
	Journal     JournalConfig               `json:"journal" yaml:"journal" mapstructure:"journal"`
	Log         LogConfig                   `json:"log" yaml:"log" mapstructure:"log"`
}

type PhaseConfig struct {
	// StrictSignals applies the initial-trade-limits gate to every
	// submission, not only those carrying phase signals.
	StrictSignals bool `json:"strict_signals" yaml:"strict_signals" mapstructure:"strict_signals"`
}

// Options returns the gate options for the paper runtime.
func (p PhaseConfig) Options() phase.LimitsOptions {
	return phase.LimitsOptions{StrictSignals: p.StrictSignals}
}

// DMIPConfig configures the checkpoint runner. An empty CaptureDir
// disables the capture journals; an empty WeightsPath runs without weights.
type DMIPConfig struct {
	CaptureDir  string   `json:"capture_dir" yaml:"capture_dir" mapstructure:"capture_dir"`
	WeightsPath string   `json:"weights_path,omitempty" yaml:"weights_path,omitempty" mapstructure:"weights_path"`
	Pairs       []string `json:"pairs" yaml:"pairs" mapstructure:"pairs"`
}

// JournalConfig selects the closed-trade mirror.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type" mapstructure:"type"` // "none" or "sqlite"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" mapstructure:"db_path"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// LoadFromFile loads configuration from a YAML or JSON file. Keys missing
// from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(dc.DecodeHook, persistenceAliases)
		dc.WeaklyTypedInput = true
		dc.ErrorUnused = true
		// replace default lists instead of overwriting them in place
		dc.ZeroFields = true
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// persistenceAliases routes the persistence section through the paper
// decoder so the older key names load from files too.
func persistenceAliases(from, to reflect.Value) (any, error) {
	if to.Type() != reflect.TypeOf(paper.PersistenceConfig{}) {
		return from.Interface(), nil
	}
	raw, ok := from.Interface().(map[string]any)
	if !ok {
		return from.Interface(), nil
	}
	return paper.MergePersistenceConfig(to.Interface().(paper.PersistenceConfig), raw)
}

// SaveToFile saves configuration to a file (YAML or JSON by extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the policy and every section.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	if c.Persistence.Enabled && strings.TrimSpace(c.Persistence.BaseDir) == "" {
		errs = append(errs, errors.New("persistence.base_dir is required when persistence is enabled"))
	}
	for _, p := range c.DMIP.Pairs {
		if phase.NormalizePair(p) == "" {
			errs = append(errs, errors.New("dmip.pairs must not contain empty entries"))
			break
		}
	}
	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			errs = append(errs, errors.New("journal db_path required for SQLite type"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.type must be 'none' or 'sqlite', got %q", c.Journal.Type))
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level must be debug|info|warn|error, got %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Default returns a configuration with the Phase 2 policy and persistence
// under the working directory.
func Default() *Config {
	return &Config{
		Policy: contracts.DefaultPolicy(),
		Persistence: paper.PersistenceConfig{
			Enabled: true,
			BaseDir: paper.DefaultPersistenceDir,
		},
		DMIP: DMIPConfig{
			CaptureDir: ".aion/dmip",
			Pairs:      []string{"EUR/USD", "GBP/USD", "USD/JPY"},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: ".aion/paper_trades.sqlite",
		},
		Log: LogConfig{Level: "info"},
	}
}
