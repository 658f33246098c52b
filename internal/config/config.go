// Package config loads the generator configuration: defaults, then a YAML
// file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/treegen/internal/eval"
	"github.com/danielpatrickdp/treegen/internal/gate"
	"github.com/danielpatrickdp/treegen/internal/search"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// #region types
// Config is the full generator configuration.
type Config struct {
	System   string       `yaml:"system" validate:"required,system"`
	Vocab    VocabConfig  `yaml:"vocab"`
	Search   SearchConfig `yaml:"search"`
	Scorer   ScorerConfig `yaml:"scorer"`
	Features string       `yaml:"features"`
	Output   OutputConfig `yaml:"output"`
	DBPath   string       `yaml:"db_path"`
}

// VocabConfig points at the term-frequency files.
type VocabConfig struct {
	Labels    string `yaml:"labels" validate:"required"`
	Tags      string `yaml:"tags" validate:"required"`
	Words     string `yaml:"words" validate:"required"`
	RootLabel string `yaml:"root_label"`
}

// SearchConfig bounds the beam search.
type SearchConfig struct {
	BeamSize      int     `yaml:"beam_size" validate:"gte=1,lte=4096"`
	MaxSteps      int     `yaml:"max_steps" validate:"gte=1"`
	MaxTokens     int     `yaml:"max_tokens" validate:"gte=0"`
	MaxStackDepth int     `yaml:"max_stack_depth" validate:"gte=0"`
	ScoreMargin   float64 `yaml:"score_margin" validate:"gte=0"`
	Workers       int     `yaml:"workers" validate:"gte=1,lte=256"`
	KeepHistory   bool    `yaml:"keep_history"`
	Trace         bool    `yaml:"trace"`
}

// ScorerConfig selects the scoring oracle.
type ScorerConfig struct {
	Kind  string `yaml:"kind" validate:"oneof=table grpc"`
	Addr  string `yaml:"addr" validate:"required_if=Kind grpc"`
	Table string `yaml:"table"`
}

// OutputConfig controls output materialization.
type OutputConfig struct {
	RewriteRootLabels bool `yaml:"rewrite_root_labels"`
}

// #endregion types

// #region defaults
// Default returns the configuration used when no file is given. Vocabulary
// paths have no default.
func Default() Config {
	return Config{
		System: transition.NameGenerator,
		Search: SearchConfig{
			BeamSize:      8,
			MaxSteps:      512,
			MaxTokens:     256,
			MaxStackDepth: 64,
			Workers:       4,
		},
		Scorer: ScorerConfig{Kind: "table"},
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DBPath = envOr("TREEGEN_DB", cfg.DBPath)
	cfg.System = envOr("TREEGEN_SYSTEM", cfg.System)
	if v := os.Getenv("TREEGEN_SCORER_ADDR"); v != "" {
		cfg.Scorer.Addr = v
		cfg.Scorer.Kind = "grpc"
	}
	if v := os.Getenv("TREEGEN_BEAM_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TREEGEN_BEAM_SIZE: %w", err)
		}
		cfg.Search.BeamSize = n
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load

// #region validate
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("system", validateSystem)
}

func validateSystem(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, known := range transition.Names() {
		if name == known {
			return true
		}
	}
	return false
}

// Validate checks every field constraint and reports all failures.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
	}
	return errors.New(strings.Join(msgs, "; "))
}

// #endregion validate

// #region derived
// DecoderConfig is the search driver view of the configuration.
func (c Config) DecoderConfig() search.Config {
	return search.Config{
		BeamSize:    c.Search.BeamSize,
		MaxSteps:    c.Search.MaxSteps,
		Workers:     c.Search.Workers,
		KeepHistory: c.Search.KeepHistory,
		Trace:       c.Search.Trace,
	}
}

// GateConfig is the pruning gate view of the configuration.
func (c Config) GateConfig() gate.GateConfig {
	return gate.GateConfig{
		MaxTokens:     c.Search.MaxTokens,
		MaxStackDepth: c.Search.MaxStackDepth,
		ScoreMargin:   c.Search.ScoreMargin,
	}
}

// EvalConfig is the output validation view of the configuration.
func (c Config) EvalConfig() eval.EvalConfig {
	return eval.EvalConfig{MaxTokens: c.Search.MaxTokens}
}

// #endregion derived
