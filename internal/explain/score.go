package explain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/config"
)

// mateScore is the centipawn stand-in for a forced mate; shorter mates
// score higher.
const mateScore = 30000

// Score is an engine evaluation from White's point of view: centipawns, or
// moves to mate when Mate is non-zero (positive when White mates).
type Score struct {
	CP   int `json:"cp"`
	Mate int `json:"mate,omitempty"`
}

// Centipawns folds mate scores into the centipawn scale.
func (s Score) Centipawns() int {
	switch {
	case s.Mate > 0:
		return mateScore - s.Mate
	case s.Mate < 0:
		return -mateScore - s.Mate
	}
	return s.CP
}

// For returns the score in centipawns from c's point of view.
func (s Score) For(c board.Color) int {
	if c == board.Black {
		return -s.Centipawns()
	}
	return s.Centipawns()
}

func (s Score) String() string {
	if s.Mate != 0 {
		return fmt.Sprintf("#%d", s.Mate)
	}
	return fmt.Sprintf("%+.2f", float64(s.CP)/100)
}

// ParseScore reads "35" (centipawns), "#3" or "#-2" (mate in moves).
func ParseScore(s string) (Score, error) {
	if rest, ok := strings.CutPrefix(s, "#"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n == 0 {
			return Score{}, fmt.Errorf("bad mate score %q", s)
		}
		return Score{Mate: n}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Score{}, fmt.Errorf("bad centipawn score %q", s)
	}
	return Score{CP: n}, nil
}

// WinProbability maps a score to the chance in percent that c wins, using
// 100 / (1 + exp(-k*cp)) with k taken from the material bucket. material is
// the non-king material on the board in pawns. Mates map to 100 or 0.
func WinProbability(s Score, c board.Color, material float64, w config.WinRateScale) float64 {
	if s.Mate != 0 {
		if (s.Mate > 0) == (c == board.White) {
			return 100
		}
		return 0
	}
	cp := float64(s.CP)
	if c == board.Black {
		cp = -cp
	}
	return 100 / (1 + math.Exp(-w.For(material)*cp))
}

// totalMaterial is the non-king material of both sides in pawns.
func totalMaterial(b *board.Board) float64 {
	return float64(b.MaterialCount(board.White)+b.MaterialCount(board.Black)) / 100
}
