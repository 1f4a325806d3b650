// Package config loads the twin's runtime configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the twin.yaml runtime configuration.
type Config struct {
	Version int `yaml:"version" validate:"required,eq=1"`

	Section struct {
		ID   string `yaml:"id" validate:"required"`
		Name string `yaml:"name"`
	} `yaml:"section"`

	Topology struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"topology"`

	Feed struct {
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
	} `yaml:"feed"`

	Analysis struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		HorizonMinutes  int `yaml:"horizon_minutes"`
	} `yaml:"analysis"`

	Optimizer struct {
		Objective          string `yaml:"objective" validate:"omitempty,oneof=minimize_total_delay maximize_throughput"`
		HorizonMinutes     int    `yaml:"horizon_minutes"`
		SolveBudgetSeconds int    `yaml:"solve_budget_seconds"`
		Scorer             string `yaml:"scorer" validate:"omitempty,oneof=heuristic learned"`
		ModelPath          string `yaml:"model_path"`
	} `yaml:"optimizer"`

	Storage struct {
		PostgresEnabled bool `yaml:"postgres_enabled"`
	} `yaml:"storage"`

	PlanningSections []PlanningSection `yaml:"planning_sections" validate:"dive"`
}

// PlanningSection configures one optimizer section on the km axis.
type PlanningSection struct {
	ID       string  `yaml:"id" validate:"required"`
	StartKm  float64 `yaml:"start_km"`
	EndKm    float64 `yaml:"end_km" validate:"gtfield=StartKm"`
	MaxSpeed float64 `yaml:"max_speed"`
	Capacity int     `yaml:"capacity" validate:"min=1"`
}

// Defaulting applied after load.
const (
	defaultFeedTopic       = "section/feed"
	defaultClientID        = "sectiontwin"
	defaultInterval        = 30 * time.Second
	defaultAnalysisHorizon = 30
)

// Load reads and validates twin.yaml.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported twin.yaml version: %d", cfg.Version)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid twin.yaml: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.Topic == "" {
		c.Feed.Topic = defaultFeedTopic
	}
	if c.Feed.ClientID == "" {
		c.Feed.ClientID = defaultClientID
	}
	if c.Analysis.HorizonMinutes <= 0 {
		c.Analysis.HorizonMinutes = defaultAnalysisHorizon
	}
	if c.Optimizer.Scorer == "" {
		c.Optimizer.Scorer = "heuristic"
	}
}

// AnalysisInterval returns the configured analysis period, defaulting to 30 s.
func (c *Config) AnalysisInterval() time.Duration {
	if c.Analysis.IntervalSeconds <= 0 {
		return defaultInterval
	}
	return time.Duration(c.Analysis.IntervalSeconds) * time.Second
}

// SolveBudget returns the optimizer wall-clock budget; zero means the
// optimizer's own default.
func (c *Config) SolveBudget() time.Duration {
	return time.Duration(c.Optimizer.SolveBudgetSeconds) * time.Second
}
