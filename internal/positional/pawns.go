// Package positional holds stateless predicates over a board: pawn
// structure, piece placement, king safety, game phase and endgame patterns.
// Each predicate returns a short description and whether it applies.
package positional

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/poscache"
)

// SquarePredicate inspects the piece on one square.
type SquarePredicate func(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool)

func abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// forwardRanks returns every rank strictly ahead of sq from c's side.
func forwardRanks(sq board.Square, c board.Color) board.Bitboard {
	var bb board.Bitboard
	if c == board.White {
		for r := sq.Rank() + 1; r < 8; r++ {
			bb |= board.RankMask[r]
		}
	} else {
		for r := sq.Rank() - 1; r >= 0; r-- {
			bb |= board.RankMask[r]
		}
	}
	return bb
}

// stopSquare returns the square in front of a pawn, or NoSquare on the last rank.
func stopSquare(sq board.Square, c board.Color) board.Square {
	r := sq.Rank() + 1
	if c == board.Black {
		r = sq.Rank() - 1
	}
	if r < 0 || r > 7 {
		return board.NoSquare
	}
	return board.NewSquare(sq.File(), r)
}

func promotionSquare(sq board.Square, c board.Color) board.Square {
	if c == board.White {
		return board.NewSquare(sq.File(), 7)
	}
	return board.NewSquare(sq.File(), 0)
}

// pawnAt returns the color of the pawn on sq, or false.
func pawnAt(b *board.Board, sq board.Square) (board.Color, bool) {
	p := b.PieceAt(sq)
	if p.Type() != board.Pawn {
		return board.NoColor, false
	}
	return p.Color(), true
}

func isPassed(b *board.Board, sq board.Square, c board.Color) bool {
	f := sq.File()
	zone := (board.FileMask[f] | board.AdjacentFiles(f)) & forwardRanks(sq, c)
	return b.Pieces(c.Other(), board.Pawn)&zone == 0
}

// DetectPassedPawn reports a pawn with no enemy pawn ahead of it on its own
// or an adjacent file.
func DetectPassedPawn(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	color, ok := pawnAt(b, sq)
	if !ok || !isPassed(b, sq, color) {
		return "", false
	}
	desc := fmt.Sprintf("passed pawn on %s", sq)
	if board.PawnAttacks(sq, color.Other())&b.Pieces(color, board.Pawn) != 0 {
		desc = "protected " + desc
	}
	front := forwardRanks(sq, color) & board.FileMask[sq.File()]
	if front&b.AllOccupied() == 0 && sq.RelativeRank(color) >= 4 {
		desc += " with a free path"
	}
	return desc, true
}

// DetectIsolatedPawn reports a pawn with no friendly pawn on adjacent files.
func DetectIsolatedPawn(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	color, ok := pawnAt(b, sq)
	if !ok || b.Pieces(color, board.Pawn)&board.AdjacentFiles(sq.File()) != 0 {
		return "", false
	}
	return fmt.Sprintf("isolated pawn on %s", sq), true
}

// DetectDoubledPawn reports the front pawn of two or more on one file.
func DetectDoubledPawn(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	color, ok := pawnAt(b, sq)
	if !ok {
		return "", false
	}
	onFile := b.Pieces(color, board.Pawn) & board.FileMask[sq.File()]
	if onFile.PopCount() < 2 {
		return "", false
	}
	front := onFile.MSB()
	if color == board.Black {
		front = onFile.LSB()
	}
	if sq != front {
		return "", false
	}
	return fmt.Sprintf("doubled pawns on the %c-file", 'a'+sq.File()), true
}

// DetectBackwardPawn reports a pawn whose neighbours have all advanced past
// it and whose stop square is covered by an enemy pawn.
func DetectBackwardPawn(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	color, ok := pawnAt(b, sq)
	if !ok || sq.RelativeRank(color) < 1 {
		return "", false
	}
	neighbours := b.Pieces(color, board.Pawn) & board.AdjacentFiles(sq.File())
	if neighbours == 0 {
		// Isolated, not backward.
		return "", false
	}
	behindOrLevel := ^forwardRanks(sq, color)
	if neighbours&behindOrLevel != 0 {
		return "", false
	}
	stop := stopSquare(sq, color)
	if stop == board.NoSquare || board.PawnAttacks(stop, color)&b.Pieces(color.Other(), board.Pawn) == 0 {
		return "", false
	}
	return fmt.Sprintf("backward pawn on %s", sq), true
}

// DetectConnectedPawns reports a pawn standing beside or defended by a
// friendly pawn.
func DetectConnectedPawns(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	color, ok := pawnAt(b, sq)
	if !ok {
		return "", false
	}
	own := b.Pieces(color, board.Pawn)
	side := own & board.AdjacentFiles(sq.File()) & board.RankMask[sq.Rank()]
	if side != 0 {
		return fmt.Sprintf("pawn on %s forms a phalanx", sq), true
	}
	if board.PawnAttacks(sq, color.Other())&own != 0 {
		return fmt.Sprintf("pawn on %s is part of a chain", sq), true
	}
	return "", false
}

// DetectRuleOfSquare reports a passed pawn the enemy king cannot catch.
// Pieces other than kings and pawns are ignored, so it only applies in
// pure pawn endings.
func DetectRuleOfSquare(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	color, ok := pawnAt(b, sq)
	if !ok || !isPassed(b, sq, color) {
		return "", false
	}
	them := color.Other()
	if b.MaterialCount(them) != b.Pieces(them, board.Pawn).PopCount()*board.Pawn.Value() {
		return "", false
	}
	front := forwardRanks(sq, color) & board.FileMask[sq.File()]
	if front&b.AllOccupied() != 0 {
		return "", false
	}
	steps := 7 - sq.RelativeRank(color)
	if sq.RelativeRank(color) == 1 {
		steps-- // double step
	}
	promo := promotionSquare(sq, color)
	kingDist := board.Distance(b.KingSquare(them), promo)
	if b.SideToMove() == them {
		kingDist--
	}
	if kingDist <= steps {
		return "", false
	}
	return fmt.Sprintf("the pawn on %s cannot be caught by the king", sq), true
}

// blockedPawns counts pawns whose stop square holds an enemy pawn.
func blockedPawns(b *board.Board) (blocked, total int) {
	for color := board.White; color <= board.Black; color++ {
		pawns := b.Pieces(color, board.Pawn)
		total += pawns.PopCount()
		for pawns != 0 {
			sq := pawns.PopLSB()
			stop := stopSquare(sq, color)
			if stop != board.NoSquare && b.Pieces(color.Other(), board.Pawn).IsSet(stop) {
				blocked++
			}
		}
	}
	return blocked, total
}
