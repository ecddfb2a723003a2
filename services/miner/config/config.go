// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads miner run configuration.
//
// Priority, highest first: caller overrides (CLI flags), MINER_*
// environment variables, the YAML or JSON config file, defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianMiner/pkg/logging"
	"github.com/AleutianAI/AleutianMiner/services/miner/interaction"
	"github.com/AleutianAI/AleutianMiner/services/miner/mining"
	"github.com/AleutianAI/AleutianMiner/services/miner/telemetry"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
}

// Config is the full miner run configuration.
type Config struct {
	// Dataset selects the ground-truth entries for the run.
	Dataset string `yaml:"dataset" json:"dataset" validate:"required"`

	// GraphPath is the code-property-graph JSON document to mine.
	GraphPath string `yaml:"graph_path" json:"graph_path"`

	// GroundTruthPath is an XML, CSV or YAML pattern catalogue.
	GroundTruthPath string `yaml:"ground_truth_path" json:"ground_truth_path"`

	Mining    MiningConfig    `yaml:"mining" json:"mining"`
	Validity  ValidityConfig  `yaml:"validity" json:"validity"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// MiningConfig bounds path mining.
type MiningConfig struct {
	MaxDepth int `yaml:"max_depth" json:"max_depth" validate:"gte=1"`
	Rounds   int `yaml:"rounds" json:"rounds" validate:"gte=1"`
}

// ValidityConfig tunes the interaction validity filter.
type ValidityConfig struct {
	// MaxDistinctScopes of zero disables the scope check.
	MaxDistinctScopes int `yaml:"max_distinct_scopes" json:"max_distinct_scopes" validate:"gte=0"`
}

// StorageConfig controls persistence of the annotated graph.
type StorageConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Path     string `yaml:"path" json:"path" validate:"required_if=Enabled true InMemory false"`
	InMemory bool   `yaml:"in_memory" json:"in_memory"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"loglevel"`
	Dir   string `yaml:"dir" json:"dir"`
	JSON  bool   `yaml:"json" json:"json"`
	Quiet bool   `yaml:"quiet" json:"quiet"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" json:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" json:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" json:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`

	// MetricsFile receives the Prometheus registry after the run.
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	tel := telemetry.DefaultConfig()
	return Config{
		Dataset: "default",
		Mining: MiningConfig{
			MaxDepth: mining.DefaultMaxDepth,
			Rounds:   mining.DefaultRounds,
		},
		Validity: ValidityConfig{MaxDistinctScopes: interaction.DefaultMaxDistinctScopes},
		Logging:  LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			TraceExporter:  tel.TraceExporter,
			MetricExporter: tel.MetricExporter,
			OTLPEndpoint:   tel.OTLPEndpoint,
		},
	}
}

// Override mutates a loaded configuration before validation.
type Override func(*Config)

// Load builds a Config from defaults, the optional file at path, the
// environment and then overrides, and validates the result.
//
// Inputs:
//
//	path - YAML or JSON file. Empty or missing means defaults only.
//	overrides - Applied last, in order.
//
// Outputs:
//
//	Config - The merged configuration, also returned on validation failure.
//	error - A file read or parse error, or ErrInvalidConfig.
func Load(path string, overrides ...Override) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	envString("MINER_DATASET", &cfg.Dataset)
	envString("MINER_GRAPH", &cfg.GraphPath)
	envString("MINER_GROUND_TRUTH", &cfg.GroundTruthPath)

	envInt("MINER_MAX_DEPTH", &cfg.Mining.MaxDepth)
	envInt("MINER_ROUNDS", &cfg.Mining.Rounds)
	envInt("MINER_MAX_DISTINCT_SCOPES", &cfg.Validity.MaxDistinctScopes)

	envBool("MINER_STORAGE_ENABLED", &cfg.Storage.Enabled)
	envString("MINER_STORAGE_PATH", &cfg.Storage.Path)
	envBool("MINER_STORAGE_IN_MEMORY", &cfg.Storage.InMemory)

	envString("MINER_LOG_LEVEL", &cfg.Logging.Level)
	envString("MINER_LOG_DIR", &cfg.Logging.Dir)
	envBool("MINER_LOG_JSON", &cfg.Logging.JSON)

	envString("MINER_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	envString("MINER_METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	envString("MINER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	envString("MINER_METRICS_FILE", &cfg.Telemetry.MetricsFile)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Malformed numbers and booleans are ignored and the prior value kept.
func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks struct-tag constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// MinerConfig returns the path-mining bounds.
func (c Config) MinerConfig() mining.Config {
	return mining.Config{MaxDepth: c.Mining.MaxDepth, Rounds: c.Mining.Rounds}
}

// Filter returns the interaction validity filter.
func (c Config) Filter() interaction.Filter {
	return interaction.Filter{MaxDistinctScopes: c.Validity.MaxDistinctScopes}
}

// LoggerConfig returns the logging configuration for service.
// Level was checked by Validate.
func (c Config) LoggerConfig(service string) logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.Dir,
		Service: service,
		Quiet:   c.Logging.Quiet,
		JSON:    c.Logging.JSON,
	}
}

// TelemetryConfig returns telemetry settings layered on the defaults.
func (c Config) TelemetryConfig() telemetry.Config {
	tel := telemetry.DefaultConfig()
	tel.TraceExporter = c.Telemetry.TraceExporter
	tel.MetricExporter = c.Telemetry.MetricExporter
	tel.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	return tel
}
