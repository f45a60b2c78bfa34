package domain

import "fmt"

// Config holds the per-table rule set.
type Config struct {
	Decks            int   `json:"decks"`
	Seats            int   `json:"seats"`
	MinBet           int64 `json:"minBet"`
	MaxBet           int64 `json:"maxBet"`
	DealerHitSoft17  bool  `json:"dealerHitSoft17"`
	DoubleAfterSplit bool  `json:"doubleAfterSplit"`
}

// DefaultConfig returns the house rules used when no preset is configured.
func DefaultConfig() Config {
	return Config{
		Decks:            6,
		Seats:            5,
		MinBet:           1,
		MaxBet:           500,
		DealerHitSoft17:  true,
		DoubleAfterSplit: true,
	}
}

// Validate checks that the rule set can run a table.
func (c Config) Validate() error {
	switch {
	case c.Decks < 1:
		return fmt.Errorf("%w: decks must be at least 1, got %d", ErrInvalidConfig, c.Decks)
	case c.Seats < 1:
		return fmt.Errorf("%w: seats must be at least 1, got %d", ErrInvalidConfig, c.Seats)
	case c.MinBet < 1:
		return fmt.Errorf("%w: min bet must be positive, got %d", ErrInvalidConfig, c.MinBet)
	case c.MaxBet < c.MinBet:
		return fmt.Errorf("%w: max bet %d below min bet %d", ErrInvalidConfig, c.MaxBet, c.MinBet)
	}
	return nil
}
