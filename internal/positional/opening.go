package positional

import (
	"fmt"

	"github.com/hailam/chessmentor/internal/board"
)

// MovePredicate inspects a move played from b.
type MovePredicate func(b *board.Board, m board.Move) (string, bool)

// openingMoves is the last full move treated as the opening.
const openingMoves = 12

func inOpening(b *board.Board) bool {
	return b.FullmoveNumber() <= openingMoves && PhaseOf(b) == Middlegame
}

func backRank(c board.Color) board.Bitboard {
	if c == board.White {
		return board.Rank1
	}
	return board.Rank8
}

// undevelopedMinors counts c's knights and bishops still on the back rank.
func undevelopedMinors(b *board.Board, c board.Color) int {
	return ((b.Pieces(c, board.Knight) | b.Pieces(c, board.Bishop)) & backRank(c)).PopCount()
}

// DetectDevelopment reports a knight or bishop leaving the back rank.
func DetectDevelopment(b *board.Board, m board.Move) (string, bool) {
	if !inOpening(b) {
		return "", false
	}
	p := b.PieceAt(m.From())
	if pt := p.Type(); pt != board.Knight && pt != board.Bishop {
		return "", false
	}
	back := backRank(p.Color())
	if !back.IsSet(m.From()) || back.IsSet(m.To()) {
		return "", false
	}
	return fmt.Sprintf("develops the %s to %s", p.Type().Name(), m.To()), true
}

// DetectCenterControl reports a move that occupies a centre square or lets
// the moved piece attack at least two of them.
func DetectCenterControl(b *board.Board, m board.Move) (string, bool) {
	if !inOpening(b) {
		return "", false
	}
	p := b.PieceAt(m.From())
	if p == board.NoPiece || p.Type() == board.King {
		return "", false
	}
	if board.Center.IsSet(m.To()) {
		return fmt.Sprintf("occupies the centre with %s", m.To()), true
	}
	after, err := b.ApplyMove(m)
	if err != nil {
		return "", false
	}
	attacks := board.PieceAttacks(p.Type(), p.Color(), m.To(), after.AllOccupied())
	before := board.PieceAttacks(p.Type(), p.Color(), m.From(), b.AllOccupied())
	if n := (attacks & board.Center).PopCount(); n >= 2 && n > (before&board.Center).PopCount() {
		return "fights for the centre", true
	}
	return "", false
}

// DetectCastling reports castling, and king moves that throw away the right.
func DetectCastling(b *board.Board, m board.Move) (string, bool) {
	p := b.PieceAt(m.From())
	if p.Type() != board.King {
		return "", false
	}
	if m.IsCastling() || abs(m.To().File()-m.From().File()) == 2 {
		side := "kingside"
		if m.To().File() < m.From().File() {
			side = "queenside"
		}
		return fmt.Sprintf("castles %s to bring the king to safety", side), true
	}
	rights := b.CastlingRights()
	if inOpening(b) && (rights.CanCastle(p.Color(), true) || rights.CanCastle(p.Color(), false)) && !b.InCheck() {
		return "gives up the right to castle", true
	}
	return "", false
}

// DetectEarlyQueen warns about moving the queen while at least two minor
// pieces are still at home.
func DetectEarlyQueen(b *board.Board, m board.Move) (string, bool) {
	if !inOpening(b) || b.FullmoveNumber() > 8 {
		return "", false
	}
	p := b.PieceAt(m.From())
	if p.Type() != board.Queen || m.IsCapture(b) {
		return "", false
	}
	if undevelopedMinors(b, p.Color()) < 2 {
		return "", false
	}
	return "brings the queen out early before developing the minor pieces", true
}
