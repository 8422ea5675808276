package positional

import (
	"fmt"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/config"
	"github.com/hailam/chessmentor/internal/poscache"
)

func pieceAt(b *board.Board, sq board.Square) (board.PieceType, board.Color, bool) {
	p := b.PieceAt(sq)
	if p == board.NoPiece {
		return board.NoPieceType, board.NoColor, false
	}
	return p.Type(), p.Color(), true
}

// pawnAttackable reports whether an enemy pawn could ever attack sq: one
// on an adjacent file that has not yet passed it.
func pawnAttackable(b *board.Board, sq board.Square, c board.Color) bool {
	zone := board.AdjacentFiles(sq.File()) & forwardRanks(sq, c)
	return b.Pieces(c.Other(), board.Pawn)&zone != 0
}

// DetectOutpost reports a knight or bishop on the fourth to sixth rank that
// no enemy pawn can chase away.
func DetectOutpost(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	pt, color, ok := pieceAt(b, sq)
	if !ok || (pt != board.Knight && pt != board.Bishop) {
		return "", false
	}
	rr := sq.RelativeRank(color)
	if rr < 3 || rr > 5 || pawnAttackable(b, sq, color) {
		return "", false
	}
	desc := fmt.Sprintf("%s on an outpost at %s", pt.Name(), sq)
	if board.PawnAttacks(sq, color.Other())&b.Pieces(color, board.Pawn) != 0 {
		desc += ", supported by a pawn"
	}
	return desc, true
}

// DetectOpenFile reports a rook or queen on an open or half-open file.
func DetectOpenFile(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	pt, color, ok := pieceAt(b, sq)
	if !ok || (pt != board.Rook && pt != board.Queen) {
		return "", false
	}
	file := board.FileMask[sq.File()]
	if b.Pieces(color, board.Pawn)&file != 0 {
		return "", false
	}
	if b.Pieces(color.Other(), board.Pawn)&file != 0 {
		return fmt.Sprintf("%s on the half-open %c-file", pt.Name(), 'a'+sq.File()), true
	}
	return fmt.Sprintf("%s on the open %c-file", pt.Name(), 'a'+sq.File()), true
}

// DetectCentralization reports a minor piece or queen in the centre.
func DetectCentralization(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	pt, _, ok := pieceAt(b, sq)
	if !ok || pt == board.Pawn || pt == board.King || pt == board.Rook {
		return "", false
	}
	switch {
	case board.Center.IsSet(sq):
		return fmt.Sprintf("%s in the centre on %s", pt.Name(), sq), true
	case board.BigCenter.IsSet(sq) && pt == board.Knight:
		return fmt.Sprintf("knight near the centre on %s", sq), true
	}
	return "", false
}

// safeMobility counts the squares a piece can go to that are not occupied
// by its own side or covered by enemy pawns.
func safeMobility(b *board.Board, c *poscache.Cache, sq board.Square, color board.Color) int {
	enemyPawns := b.Pieces(color.Other(), board.Pawn)
	var unsafe board.Bitboard
	if color == board.White {
		unsafe = enemyPawns.SouthEast() | enemyPawns.SouthWest()
	} else {
		unsafe = enemyPawns.NorthEast() | enemyPawns.NorthWest()
	}
	return (c.AttacksFrom(sq) &^ (unsafe | b.Occupied(color))).PopCount()
}

// MobilityDetector returns a predicate comparing a piece's safe mobility
// against per-kind thresholds.
func MobilityDetector(m config.Mobility) SquarePredicate {
	return func(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
		pt, color, ok := pieceAt(b, sq)
		if !ok {
			return "", false
		}
		r, ok := m.For(pt)
		if !ok {
			return "", false
		}
		if !c.Valid(b) {
			c = poscache.Build(b)
		}
		n := safeMobility(b, c, sq, color)
		switch {
		case n < r.Low:
			return fmt.Sprintf("the %s on %s has little room (%d safe squares)", pt.Name(), sq, n), true
		case n > r.High:
			return fmt.Sprintf("the %s on %s is very active (%d safe squares)", pt.Name(), sq, n), true
		}
		return "", false
	}
}

// DetectMobility is MobilityDetector with the default thresholds.
func DetectMobility(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	return MobilityDetector(config.Default().Mobility)(b, c, sq)
}

// DetectKingShelter looks at the pawns in front of the king on sq: two or
// more on the king's and neighbouring files within two ranks is a shelter,
// none is an exposed king.
func DetectKingShelter(b *board.Board, c *poscache.Cache, sq board.Square) (string, bool) {
	pt, color, ok := pieceAt(b, sq)
	if !ok || pt != board.King {
		return "", false
	}
	files := board.FileMask[sq.File()] | board.AdjacentFiles(sq.File())
	var ranks board.Bitboard
	for i := 1; i <= 2; i++ {
		r := sq.Rank() + i
		if color == board.Black {
			r = sq.Rank() - i
		}
		if r >= 0 && r < 8 {
			ranks |= board.RankMask[r]
		}
	}
	shield := (b.Pieces(color, board.Pawn) & files & ranks).PopCount()
	openFiles := 0
	for f := max(sq.File()-1, 0); f <= min(sq.File()+1, 7); f++ {
		if b.Pieces(color, board.Pawn)&board.FileMask[f] == 0 {
			openFiles++
		}
	}
	switch {
	case shield >= 2 && openFiles == 0:
		return fmt.Sprintf("the %s king is sheltered by %d pawns", color, shield), true
	case shield == 0 && b.NonKingPieceCount() >= 12:
		return fmt.Sprintf("the %s king is exposed", color), true
	}
	return "", false
}
