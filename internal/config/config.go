package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blackjack/internal/domain"

	"gopkg.in/yaml.v3"
)

// TablePreset is a named rule set for new tables. Zero fields fall back to
// the house defaults.
type TablePreset struct {
	ID               string `json:"id" yaml:"id"`
	Decks            int    `json:"decks" yaml:"decks"`
	Seats            int    `json:"seats" yaml:"seats"`
	MinBet           int64  `json:"min_bet" yaml:"min_bet"`
	MaxBet           int64  `json:"max_bet" yaml:"max_bet"`
	DealerHitSoft17  *bool  `json:"dealer_hit_soft17" yaml:"dealer_hit_soft17"`
	DoubleAfterSplit *bool  `json:"double_after_split" yaml:"double_after_split"`
}

type GameConfig struct {
	DefaultTier         string        `json:"default_tier" yaml:"default_tier"`
	Tiers               []TablePreset `json:"tiers" yaml:"tiers"`
	TurnDurationSeconds int           `json:"turn_duration_seconds" yaml:"turn_duration_seconds"`
	// BroadcastConcurrency caps concurrent sends per state broadcast.
	BroadcastConcurrency int `json:"broadcast_concurrency" yaml:"broadcast_concurrency"`
}

// Default returns the configuration used when no file is given.
func Default() *GameConfig {
	return &GameConfig{TurnDurationSeconds: 30}
}

// Load reads a game config from path. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func Load(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates a game config. format is a file extension.
func Parse(data []byte, format string) (*GameConfig, error) {
	var c GameConfig
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every preset and the default tier reference.
func (c *GameConfig) Validate() error {
	if c.TurnDurationSeconds < 0 {
		return errors.New("turn_duration_seconds must not be negative")
	}
	if c.BroadcastConcurrency < 0 {
		return errors.New("broadcast_concurrency must not be negative")
	}
	seen := make(map[string]bool, len(c.Tiers))
	for i, tier := range c.Tiers {
		if tier.ID == "" {
			return fmt.Errorf("tier %d: id is required", i)
		}
		if seen[tier.ID] {
			return fmt.Errorf("tier %q defined twice", tier.ID)
		}
		seen[tier.ID] = true
		if err := tier.apply(domain.DefaultConfig()).Validate(); err != nil {
			return fmt.Errorf("tier %q: %w", tier.ID, err)
		}
	}
	if c.DefaultTier != "" && !seen[c.DefaultTier] {
		return fmt.Errorf("default_tier %q is not defined", c.DefaultTier)
	}
	return nil
}

// TableConfig returns the rules for a tier ID, or the default tier if not
// found, or the house defaults.
func (c *GameConfig) TableConfig(tierID string) domain.Config {
	base := domain.DefaultConfig()
	if c == nil {
		return base
	}

	target := tierID
	if target == "" {
		target = c.DefaultTier
	}
	for _, tier := range c.Tiers {
		if tier.ID == target {
			return tier.apply(base)
		}
	}

	// Fallback to default tier if specific ID not found
	for _, tier := range c.Tiers {
		if tier.ID == c.DefaultTier {
			return tier.apply(base)
		}
	}
	return base
}

// TurnDuration is the time a seat may hold the turn. Zero disables the
// turn clock.
func (c *GameConfig) TurnDuration() time.Duration {
	if c == nil {
		return 0
	}
	return time.Duration(c.TurnDurationSeconds) * time.Second
}

func (p TablePreset) apply(base domain.Config) domain.Config {
	if p.Decks != 0 {
		base.Decks = p.Decks
	}
	if p.Seats != 0 {
		base.Seats = p.Seats
	}
	if p.MinBet != 0 {
		base.MinBet = p.MinBet
	}
	if p.MaxBet != 0 {
		base.MaxBet = p.MaxBet
	}
	if p.DealerHitSoft17 != nil {
		base.DealerHitSoft17 = *p.DealerHitSoft17
	}
	if p.DoubleAfterSplit != nil {
		base.DoubleAfterSplit = *p.DoubleAfterSplit
	}
	return base
}
