// Package tactics finds threats and defenses in a position and reports the
// ones a move creates by diffing the facts before and after it.
package tactics

import (
	"fmt"
	"strings"

	"github.com/hailam/chessmentor/internal/board"
)

// Kind identifies a tactical fact.
type Kind uint8

// Threat kinds.
const (
	HangingPiece Kind = iota
	MaterialWin
	Fork
	Pin
	Skewer
	DiscoveredAttack
	CheckmateThreat
	Check
	Promotion
	TrappedPiece

	// Defense kinds.
	ProtectPiece
	BlockAttack
	Escape
	ProtectKing
)

var kindNames = [...]string{
	HangingPiece:     "hanging piece",
	MaterialWin:      "material win",
	Fork:             "fork",
	Pin:              "pin",
	Skewer:           "skewer",
	DiscoveredAttack: "discovered attack",
	CheckmateThreat:  "checkmate threat",
	Check:            "check",
	Promotion:        "promotion",
	TrappedPiece:     "trapped piece",
	ProtectPiece:     "protect piece",
	BlockAttack:      "block attack",
	Escape:           "escape",
	ProtectKing:      "protect king",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsDefense reports whether k describes a defensive fact.
func (k Kind) IsDefense() bool {
	return k >= ProtectPiece
}

// Severity constants. Material values are in centipawns; the fixed
// severities rank checks and mates above ordinary material swings.
const (
	kingExposure    = 1000
	checkSeverity   = 400
	mateThreatSev   = 5000
	checkmateSev    = 10000
	extraPieceBonus = 50
	forkThreshold   = 600
	maxThreats      = 3
	maxDefenses     = 2
)

// Fact is one tactical observation about a position.
type Fact struct {
	Kind     Kind
	Square   board.Square    // target square
	Piece    board.PieceType // piece on Square, NoPieceType if not relevant
	Attacker board.Square    // piece creating the fact, NoSquare if none
	Value    int             // material at risk in centipawns
	Severity int
	Squares  []board.Square    // other squares involved
	Targets  []board.PieceType // pieces on Squares
	Token    string            // short machine-readable description
}

type factKey struct {
	kind Kind
	sq   board.Square
}

func (f Fact) key() factKey {
	return factKey{f.Kind, f.Square}
}

// severity combines the material at risk with the number of pieces involved.
func severity(value, pieces int) int {
	if pieces < 1 {
		pieces = 1
	}
	return value + extraPieceBonus*(pieces-1)
}

// Describe renders the fact as a short English phrase.
func (f Fact) Describe() string {
	name := f.Piece.Name()
	switch f.Kind {
	case HangingPiece:
		return fmt.Sprintf("the %s on %s is undefended", name, f.Square)
	case MaterialWin:
		return fmt.Sprintf("the %s on %s can be won", name, f.Square)
	case Fork:
		return fmt.Sprintf("the %s on %s forks %s", name, f.Square, f.targetList())
	case Pin:
		return fmt.Sprintf("the %s on %s is pinned", name, f.Square)
	case Skewer:
		return fmt.Sprintf("the %s on %s is skewered", name, f.Square)
	case DiscoveredAttack:
		return fmt.Sprintf("a discovered attack on the %s on %s", name, f.Square)
	case CheckmateThreat:
		if f.Token == "checkmate" {
			return "checkmate"
		}
		return "threatens checkmate"
	case Check:
		if len(f.Squares) > 1 {
			return "double check"
		}
		return "check"
	case Promotion:
		return fmt.Sprintf("the pawn on %s promotes", f.Square)
	case TrappedPiece:
		return fmt.Sprintf("the %s on %s is trapped", name, f.Square)
	case ProtectPiece:
		return fmt.Sprintf("the %s on %s is protected", name, f.Square)
	case BlockAttack:
		return fmt.Sprintf("the %s on %s blocks an attack", name, f.Square)
	case Escape:
		return fmt.Sprintf("the %s escapes to %s", name, f.Square)
	case ProtectKing:
		if f.Token == "castles" {
			return "castles the king to safety"
		}
		return "gets the king out of danger"
	}
	return f.Kind.String()
}

// targetList names the pieces on Squares, e.g. "the king on e8 and the rook on a8".
func (f Fact) targetList() string {
	parts := make([]string, len(f.Squares))
	for i, sq := range f.Squares {
		if i < len(f.Targets) {
			parts[i] = fmt.Sprintf("the %s on %s", f.Targets[i].Name(), sq)
		} else {
			parts[i] = sq.String()
		}
	}
	return strings.Join(parts, " and ")
}
