package main

import (
	"fmt"

	"github.com/danielpatrickdp/treegen/internal/config"
	"github.com/danielpatrickdp/treegen/internal/features"
	"github.com/danielpatrickdp/treegen/internal/oracle"
	"github.com/danielpatrickdp/treegen/internal/transition"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

// #region setup
// loadSystem reads the config and vocabulary and builds the transition system.
func loadSystem() (config.Config, transition.System, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	set, err := vocab.LoadSet(cfg.Vocab.Labels, cfg.Vocab.Tags, cfg.Vocab.Words, cfg.Vocab.RootLabel)
	if err != nil {
		return cfg, nil, fmt.Errorf("load vocabulary: %w", err)
	}
	sys, err := transition.New(cfg.System, set)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, sys, nil
}

func loadTable(cfg config.Config) (oracle.Table, error) {
	if cfg.Scorer.Table == "" {
		return oracle.Table{}, nil
	}
	return oracle.LoadTable(cfg.Scorer.Table)
}

// newScorer builds the configured oracle and a func releasing it.
func newScorer(cfg config.Config, sys transition.System, ex *features.Extractor) (oracle.Scorer, func() error, error) {
	switch cfg.Scorer.Kind {
	case "grpc":
		c, err := oracle.NewGRPCScorer(cfg.Scorer.Addr, ex)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		t, err := loadTable(cfg)
		if err != nil {
			return nil, nil, err
		}
		return oracle.NewTableScorer(sys, t), func() error { return nil }, nil
	}
}

// #endregion setup
