// Package config holds the read-only settings of the analysis core: which
// kinds of explanation to show, how detailed they are, and the thresholds
// the detectors compare against.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/errors"
)

// Complexity selects how much detail explanations carry.
type Complexity string

const (
	Beginner     Complexity = "beginner"
	Intermediate Complexity = "intermediate"
	Advanced     Complexity = "advanced"
)

// Level orders the complexity tiers: beginner 0, intermediate 1, advanced 2.
func (c Complexity) Level() int {
	switch c {
	case Beginner:
		return 0
	case Advanced:
		return 2
	}
	return 1
}

// Range is a pair of mobility thresholds: fewer than Low safe squares is
// poor, more than High is excellent.
type Range struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Mobility holds the thresholds per piece kind.
type Mobility struct {
	Knight Range `json:"knight"`
	Bishop Range `json:"bishop"`
	Rook   Range `json:"rook"`
	Queen  Range `json:"queen"`
}

// For returns the thresholds of a piece kind; pawns and kings have none.
func (m Mobility) For(pt board.PieceType) (Range, bool) {
	switch pt {
	case board.Knight:
		return m.Knight, true
	case board.Bishop:
		return m.Bishop, true
	case board.Rook:
		return m.Rook, true
	case board.Queen:
		return m.Queen, true
	}
	return Range{}, false
}

// WinRateScale holds the logistic slope per material bucket. Material is the
// total non-king material on the board in pawns.
type WinRateScale struct {
	Low  float64 `json:"low"`  // material <= 10
	Mid  float64 `json:"mid"`  // material <= 20
	High float64 `json:"high"` // otherwise
}

// For returns the slope for a material total in pawns.
func (w WinRateScale) For(material float64) float64 {
	switch {
	case material <= 10:
		return w.Low
	case material <= 20:
		return w.Mid
	}
	return w.High
}

// Duration is a time.Duration that reads and writes as "24h" in JSON. Plain
// numbers are taken as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		n, nerr := strconv.ParseInt(string(data), 10, 64)
		if nerr != nil {
			return fmt.Errorf("duration %s: %w", data, err)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the flat settings surface of the analyzer.
type Config struct {
	ShowTactical          bool         `json:"show_tactical"`
	ShowPositional        bool         `json:"show_positional"`
	ShowEndgame           bool         `json:"show_endgame"`
	ShowOpeningPrinciples bool         `json:"show_opening_principles"`
	Complexity            Complexity   `json:"complexity"`
	SingularThreshold     float64      `json:"singular_threshold"` // pawns
	Mobility              Mobility     `json:"mobility"`
	WinRateScale          WinRateScale `json:"win_rate_scale"`
	CacheTTL              Duration     `json:"cache_ttl"`
	BookFiles             []string     `json:"book_files"`
	Workers               int          `json:"workers"`
}

// DefaultSingularThreshold is the evaluation gap in pawns between the best
// and second-best candidate at which the best move is called the only move.
const DefaultSingularThreshold = 1.5

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ShowTactical:          true,
		ShowPositional:        true,
		ShowEndgame:           true,
		ShowOpeningPrinciples: true,
		Complexity:            Intermediate,
		SingularThreshold:     DefaultSingularThreshold,
		Mobility: Mobility{
			Knight: Range{Low: 2, High: 6},
			Bishop: Range{Low: 3, High: 9},
			Rook:   Range{Low: 3, High: 10},
			Queen:  Range{Low: 5, High: 18},
		},
		WinRateScale: WinRateScale{Low: 0.0015, Mid: 0.0012, High: 0.0010},
		CacheTTL:     Duration(24 * time.Hour),
		Workers:      4,
	}
}

// Load reads a JSON file over the defaults, so a file only needs the keys
// it changes. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges. Errors wrap errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.Complexity {
	case Beginner, Intermediate, Advanced:
	default:
		return fmt.Errorf("%w: complexity %q", errors.ErrInvalidConfig, c.Complexity)
	}
	if c.SingularThreshold <= 0 {
		return fmt.Errorf("%w: singular_threshold must be positive", errors.ErrInvalidConfig)
	}
	for _, pt := range []board.PieceType{board.Knight, board.Bishop, board.Rook, board.Queen} {
		r, _ := c.Mobility.For(pt)
		if r.Low < 0 || r.High < r.Low {
			return fmt.Errorf("%w: mobility thresholds for %s", errors.ErrInvalidConfig, pt.Name())
		}
	}
	w := c.WinRateScale
	if w.Low <= 0 || w.Mid <= 0 || w.High <= 0 {
		return fmt.Errorf("%w: win_rate_scale values must be positive", errors.ErrInvalidConfig)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache_ttl is negative", errors.ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers is negative", errors.ErrInvalidConfig)
	}
	return nil
}

// Fingerprint hashes the settings that change analysis output. Cache keys
// include it so a config change never serves stale explanations.
func (c *Config) Fingerprint() uint64 {
	view := *c
	view.CacheTTL = 0
	view.BookFiles = nil
	view.Workers = 0
	data, _ := json.Marshal(view)
	return xxhash.Sum64(data)
}
