package positional

import (
	"fmt"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/poscache"
)

// BoardPredicate inspects a whole position.
type BoardPredicate func(b *board.Board, c *poscache.Cache) (string, bool)

// Phase is the game phase derived from the number of men on the board.
type Phase uint8

const (
	LateEndgame Phase = iota
	Endgame
	Transition
	Middlegame
)

func (p Phase) String() string {
	switch p {
	case LateEndgame:
		return "late endgame"
	case Endgame:
		return "endgame"
	case Transition:
		return "transition"
	}
	return "middlegame"
}

// IsEndgame reports whether p is one of the two endgame phases.
func (p Phase) IsEndgame() bool {
	return p <= Endgame
}

// ClassifyPhase maps the count of non-king men (pawns included) to a phase:
// 0-5 late endgame, 6-7 endgame, 8-11 transition, 12 or more middlegame.
func ClassifyPhase(nonKing int) Phase {
	switch {
	case nonKing <= 5:
		return LateEndgame
	case nonKing <= 7:
		return Endgame
	case nonKing <= 11:
		return Transition
	}
	return Middlegame
}

// PhaseOf classifies b.
func PhaseOf(b *board.Board) Phase {
	return ClassifyPhase(b.NonKingPieceCount())
}

// DetectZugzwang is a labelled heuristic, not a proof: it fires in the two
// endgame phases when more than half of the pawns are blocked by enemy
// pawns, or when at most four men including kings remain.
func DetectZugzwang(b *board.Board, c *poscache.Cache) (string, bool) {
	if b.AllOccupied().PopCount() <= 4 {
		return "few pieces remain, so zugzwang may decide the game", true
	}
	if !PhaseOf(b).IsEndgame() {
		return "", false
	}
	blocked, total := blockedPawns(b)
	if total == 0 || 2*blocked <= total {
		return "", false
	}
	return "the pawns are locked, so zugzwang may decide the game", true
}

// DetectOpposition reports which side holds the opposition when the kings
// face each other on a file, rank or diagonal with an odd number of
// squares between them. The side not to move has it.
func DetectOpposition(b *board.Board, c *poscache.Cache) (string, bool) {
	wk, bk := b.KingSquare(board.White), b.KingSquare(board.Black)
	if wk == board.NoSquare || bk == board.NoSquare {
		return "", false
	}
	df, dr := abs(wk.File()-bk.File()), abs(wk.Rank()-bk.Rank())
	holder := b.SideToMove().Other()

	switch {
	case (df == 0 || dr == 0) && board.Distance(wk, bk) == 2:
		return fmt.Sprintf("%s has the opposition", holder), true
	case df == dr && df == 2:
		return fmt.Sprintf("%s has the diagonal opposition", holder), true
	case (df == 0 || dr == 0) && board.Distance(wk, bk)%2 == 0:
		return fmt.Sprintf("%s has the distant opposition", holder), true
	}
	return "", false
}

// DetectFortress is a labelled heuristic for drawish endgames despite a
// material edge: opposite-coloured bishops, or a locked pawn chain the
// stronger side cannot break with at most a minor piece extra.
func DetectFortress(b *board.Board, c *poscache.Cache) (string, bool) {
	if !PhaseOf(b).IsEndgame() && PhaseOf(b) != Transition {
		return "", false
	}
	strong := board.White
	if b.MaterialCount(board.Black) > b.MaterialCount(board.White) {
		strong = board.Black
	}
	weak := strong.Other()
	edge := b.MaterialCount(strong) - b.MaterialCount(weak)
	if edge <= 0 {
		return "", false
	}

	if onlyBishops(b, board.White) && onlyBishops(b, board.Black) {
		wb, bb := b.Pieces(board.White, board.Bishop), b.Pieces(board.Black, board.Bishop)
		if wb.PopCount() == 1 && bb.PopCount() == 1 && wb.LSB().IsLight() != bb.LSB().IsLight() && edge <= 2*board.Pawn.Value() {
			return "opposite-coloured bishops make this hard to win", true
		}
	}

	if edge > board.Bishop.Value() {
		return "", false
	}
	pawns := b.Pieces(strong, board.Pawn)
	if pawns == 0 {
		return "", false
	}
	for p := pawns; p != 0; {
		sq := p.PopLSB()
		stop := stopSquare(sq, strong)
		if isPassed(b, sq, strong) || stop == board.NoSquare || !b.Pieces(weak, board.Pawn).IsSet(stop) {
			return "", false
		}
		// A pawn that can capture is a lever, not a fortress.
		if board.PawnAttacks(sq, strong)&b.Pieces(weak, board.Pawn) != 0 {
			return "", false
		}
	}
	return fmt.Sprintf("%s may hold a fortress behind the locked pawns", weak), true
}

// onlyBishops reports whether c has no pieces besides king, pawns and bishops.
func onlyBishops(b *board.Board, c board.Color) bool {
	return b.Pieces(c, board.Knight)|b.Pieces(c, board.Rook)|b.Pieces(c, board.Queen) == 0
}

// centerDistance is the king-move distance from sq to the nearest centre square.
func centerDistance(sq board.Square) int {
	best := 7
	for center := board.Center; center != 0; {
		best = min(best, board.Distance(sq, center.PopLSB()))
	}
	return best
}

// DetectKingActivity compares the kings in the endgame: a king at least two
// steps closer to the centre than the other is the active one.
func DetectKingActivity(b *board.Board, c *poscache.Cache) (string, bool) {
	if !PhaseOf(b).IsEndgame() {
		return "", false
	}
	wk, bk := b.KingSquare(board.White), b.KingSquare(board.Black)
	if wk == board.NoSquare || bk == board.NoSquare {
		return "", false
	}
	dw, db := centerDistance(wk), centerDistance(bk)
	switch {
	case db-dw >= 2:
		return fmt.Sprintf("White's king is more active (%s)", wk), true
	case dw-db >= 2:
		return fmt.Sprintf("Black's king is more active (%s)", bk), true
	}
	return "", false
}

// DetectBishopPair reports a side holding both bishops when the other does not.
func DetectBishopPair(b *board.Board, c *poscache.Cache) (string, bool) {
	has := func(color board.Color) bool {
		bs := b.Pieces(color, board.Bishop)
		return bs&board.LightSquares != 0 && bs&board.DarkSquares != 0
	}
	switch w, bl := has(board.White), has(board.Black); {
	case w && !bl:
		return "White has the bishop pair", true
	case bl && !w:
		return "Black has the bishop pair", true
	}
	return "", false
}

// DetectInsufficientMaterial reports a dead draw by material.
func DetectInsufficientMaterial(b *board.Board, c *poscache.Cache) (string, bool) {
	if b.IsInsufficientMaterial() {
		return "neither side has enough material to mate", true
	}
	return "", false
}
