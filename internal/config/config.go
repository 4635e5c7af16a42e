// Package config loads and validates the planning core's TOML
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root configuration document.
type Config struct {
	General   General            `toml:"general"`
	Reasoner  Reasoner           `toml:"reasoner"`
	Risk      Risk               `toml:"risk"`
	Buckets   map[string]Bucket  `toml:"buckets"`
	Store     Store              `toml:"store"`
	Workflow  Workflow           `toml:"workflow"`
	Learning  Learning           `toml:"learning"`
}

// General covers process-wide ambient concerns.
type General struct {
	LogLevel      string   `toml:"log_level"`
	SolveTimeout  Duration `toml:"solve_timeout"`
	ConnectTimeout Duration `toml:"connect_timeout"`
}

// Reasoner configures the out-of-process capability the core delegates
// to when no local strategy applies.
type Reasoner struct {
	Mode          string `toml:"mode"` // "inmem" | "docker"
	DockerImage   string `toml:"docker_image"`
	SidecarAddr   string `toml:"sidecar_addr"`
	ContractVersion string `toml:"contract_version"`
}

// Risk seeds P10's risk-ledger defaults.
type Risk struct {
	EpsilonPpm      int    `toml:"epsilon_ppm"`
	Aggregation     string `toml:"aggregation"` // "union_bound" | "independent_product"
	MaxScenarioNodes int   `toml:"max_scenario_nodes"`
	MaxScenarioDepth int   `toml:"max_scenario_depth"`
}

// Bucket overrides one of the task-timeframe manager's default windows.
type Bucket struct {
	MaxDurationMs int64 `toml:"max_duration_ms"`
	Priority      int   `toml:"priority"`
}

// Store configures the audit/prior persistence layer.
type Store struct {
	DBPath string `toml:"db_path"`
}

// Workflow configures optional Temporal-backed orchestration of
// long-running solve sessions.
type Workflow struct {
	Enabled   bool   `toml:"enabled"`
	HostPort  string `toml:"host_port"`
	Namespace string `toml:"namespace"`
	TaskQueue string `toml:"task_queue"`
}

// Learning tunes prior-store and risk-model updates.
type Learning struct {
	MinSampleCount int `toml:"min_sample_count"`
}

// Load reads, defaults, and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.SolveTimeout.Duration == 0 {
		cfg.General.SolveTimeout.Duration = 30 * time.Second
	}
	if cfg.General.ConnectTimeout.Duration == 0 {
		cfg.General.ConnectTimeout.Duration = 5 * time.Second
	}
	if cfg.Reasoner.Mode == "" {
		cfg.Reasoner.Mode = "inmem"
	}
	if cfg.Reasoner.ContractVersion == "" {
		cfg.Reasoner.ContractVersion = "v1"
	}
	if cfg.Risk.EpsilonPpm == 0 {
		cfg.Risk.EpsilonPpm = 50_000
	}
	if cfg.Risk.Aggregation == "" {
		cfg.Risk.Aggregation = "union_bound"
	}
	if cfg.Risk.MaxScenarioNodes == 0 {
		cfg.Risk.MaxScenarioNodes = 300
	}
	if cfg.Risk.MaxScenarioDepth == 0 {
		cfg.Risk.MaxScenarioDepth = 50
	}
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = "./ember.db"
	}
	if cfg.Workflow.TaskQueue == "" {
		cfg.Workflow.TaskQueue = "ember-planning"
	}
	if cfg.Learning.MinSampleCount == 0 {
		cfg.Learning.MinSampleCount = 1
	}
}

func validate(cfg *Config) error {
	switch cfg.Reasoner.Mode {
	case "inmem", "docker":
	default:
		return fmt.Errorf("reasoner.mode must be \"inmem\" or \"docker\", got %q", cfg.Reasoner.Mode)
	}
	if cfg.Reasoner.Mode == "docker" && strings.TrimSpace(cfg.Reasoner.DockerImage) == "" {
		return fmt.Errorf("reasoner.docker_image is required when reasoner.mode is \"docker\"")
	}
	switch cfg.Risk.Aggregation {
	case "union_bound", "independent_product":
	default:
		return fmt.Errorf("risk.aggregation must be \"union_bound\" or \"independent_product\", got %q", cfg.Risk.Aggregation)
	}
	if cfg.Workflow.Enabled && strings.TrimSpace(cfg.Workflow.HostPort) == "" {
		return fmt.Errorf("workflow.host_port is required when workflow.enabled is true")
	}
	return nil
}
