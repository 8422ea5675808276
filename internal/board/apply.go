package board

import (
	"fmt"

	"github.com/hailam/chessmentor/internal/errors"
)

// ApplyMove returns the board after m. The receiver is left untouched.
//
// The move must be playable by the piece on its origin square: correct
// color, reachable destination, clear sliding path, pawn and castling rules
// respected. A plain from/to pair is accepted for castling and en passant.
// Moves that leave the mover's own king attacked are NOT rejected; use
// LeavesKingInCheck or LegalMoves for that.
func (b *Board) ApplyMove(m Move) (Board, error) {
	if !m.IsPromotion() && !m.IsCastling() && !m.IsEnPassant() {
		m = classify(b, m.From(), m.To())
	}
	if reason := b.checkMove(m); reason != "" {
		return Board{}, &errors.IllegalMoveError{Move: m.String(), FEN: b.ToFEN(), Reason: reason}
	}
	return b.apply(m), nil
}

// ApplyUCI parses s against b and applies it.
func (b *Board) ApplyUCI(s string) (Board, error) {
	m, err := ParseUCI(s, b)
	if err != nil {
		return Board{}, err
	}
	return b.ApplyMove(m)
}

// LeavesKingInCheck reports whether playing m exposes the mover's king.
// Moves ApplyMove rejects are reported as true since they cannot be played.
func (b *Board) LeavesKingInCheck(m Move) bool {
	next, err := b.ApplyMove(m)
	if err != nil {
		return true
	}
	return next.IsAttacked(next.KingSquare(b.side), b.side.Other())
}

// checkMove returns why m cannot be applied, or "" when it can.
func (b *Board) checkMove(m Move) string {
	from, to := m.From(), m.To()
	if from == to {
		return "origin equals destination"
	}
	p := b.mailbox[from]
	if p == NoPiece {
		return fmt.Sprintf("no piece on %s", from)
	}
	us := b.side
	if p.Color() != us {
		return fmt.Sprintf("piece on %s belongs to %s", from, p.Color())
	}
	target := b.mailbox[to]
	if target != NoPiece {
		if target.Color() == us {
			return fmt.Sprintf("%s is occupied by own piece", to)
		}
		if target.Type() == King {
			return "cannot capture the king"
		}
	}

	pt := p.Type()
	if m.IsCastling() && pt != King {
		return "only the king castles"
	}
	if m.IsEnPassant() && pt != Pawn {
		return "only pawns capture en passant"
	}
	lastRank := to.RelativeRank(us) == 7
	if m.IsPromotion() && (pt != Pawn || !lastRank) {
		return "promotion only by a pawn reaching the last rank"
	}
	if pt == Pawn && lastRank && !m.IsPromotion() {
		return "promotion piece required"
	}

	switch pt {
	case Pawn:
		return b.checkPawn(m)
	case King:
		if m.IsCastling() {
			return b.checkCastle(from, to)
		}
		if !kingAttacks[from].IsSet(to) {
			return fmt.Sprintf("king cannot reach %s", to)
		}
	default:
		if !PieceAttacks(pt, us, from, b.all).IsSet(to) {
			return fmt.Sprintf("%s on %s cannot reach %s", pt.Name(), from, to)
		}
	}
	return ""
}

func (b *Board) checkPawn(m Move) string {
	us := b.side
	from, to := m.From(), m.To()
	target := b.mailbox[to]

	if pawnAttacks[us][from].IsSet(to) {
		if m.IsEnPassant() {
			if to != b.enPassant {
				return "no en passant on " + to.String()
			}
			if b.mailbox[m.CapturedSquare()] != NewPiece(Pawn, us.Other()) {
				return "no pawn to capture en passant"
			}
			return ""
		}
		if target == NoPiece {
			return "pawn captures need a piece on " + to.String()
		}
		return ""
	}
	if m.IsEnPassant() {
		return "en passant must be a diagonal capture"
	}

	step := 8
	if us == Black {
		step = -8
	}
	one := Square(int(from) + step)
	if from.File() != to.File() {
		return fmt.Sprintf("pawn cannot reach %s", to)
	}
	switch int(to) - int(from) {
	case step:
		if target != NoPiece {
			return "pawn push is blocked"
		}
	case 2 * step:
		if from.RelativeRank(us) != 1 {
			return "double push only from the starting rank"
		}
		if b.mailbox[one] != NoPiece || target != NoPiece {
			return "pawn push is blocked"
		}
	default:
		return fmt.Sprintf("pawn cannot reach %s", to)
	}
	return ""
}

func (b *Board) checkCastle(from, to Square) string {
	us, them := b.side, b.side.Other()
	home := NewSquare(4, 0)
	if us == Black {
		home = NewSquare(4, 7)
	}
	if from != home || to.Rank() != home.Rank() {
		return "castling starts from the king's home square"
	}
	kingSide := to.File() == 6
	if !kingSide && to.File() != 2 {
		return "castling destination must be the g- or c-file"
	}
	if !b.castling.CanCastle(us, kingSide) {
		return "castling right has been lost"
	}
	rookSq := NewSquare(0, home.Rank())
	if kingSide {
		rookSq = NewSquare(7, home.Rank())
	}
	if b.mailbox[rookSq] != NewPiece(Rook, us) {
		return "no rook to castle with"
	}
	if Between(from, rookSq)&b.all != 0 {
		return "castling path is blocked"
	}
	if b.IsAttacked(from, them) {
		return "cannot castle out of check"
	}
	crossed := Between(from, to) | SquareBB(to)
	for crossed != 0 {
		if sq := crossed.PopLSB(); b.IsAttacked(sq, them) {
			return fmt.Sprintf("king crosses attacked square %s", sq)
		}
	}
	return ""
}

// castleRook returns the rook's origin and destination for a castling king move.
func castleRook(from, to Square) (Square, Square) {
	if to > from {
		return NewSquare(7, from.Rank()), NewSquare(5, from.Rank())
	}
	return NewSquare(0, from.Rank()), NewSquare(3, from.Rank())
}

// castlingMask clears rights whenever a king or rook square is touched.
var castlingMask = func() [64]CastlingRights {
	var m [64]CastlingRights
	for i := range m {
		m[i] = AllCastling
	}
	m[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	m[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	m[A1] &^= WhiteQueenSideCastle
	m[H1] &^= WhiteKingSideCastle
	m[A8] &^= BlackQueenSideCastle
	m[H8] &^= BlackKingSideCastle
	return m
}()

// apply plays a move known to be well formed and updates the hash
// incrementally.
func (b *Board) apply(m Move) Board {
	nb := *b
	us, them := b.side, b.side.Other()
	from, to := m.From(), m.To()
	p := nb.mailbox[from]
	pt := p.Type()

	h := nb.hash ^ zobristSideToMove ^ zobristCastling[nb.castling]
	if nb.enPassant != NoSquare {
		h ^= zobristEnPassant[nb.enPassant.File()]
	}
	nb.enPassant = NoSquare

	captured := NoPiece
	if m.IsEnPassant() {
		csq := m.CapturedSquare()
		captured = nb.remove(csq)
		h ^= zobristPiece[them][Pawn][csq]
	} else if captured = nb.remove(to); captured != NoPiece {
		h ^= zobristPiece[them][captured.Type()][to]
	}

	nb.remove(from)
	h ^= zobristPiece[us][pt][from]
	placed := p
	if m.IsPromotion() {
		placed = NewPiece(m.Promotion(), us)
	}
	nb.put(placed, to)
	h ^= zobristPiece[us][placed.Type()][to]

	if m.IsCastling() {
		rookFrom, rookTo := castleRook(from, to)
		rook := nb.remove(rookFrom)
		nb.put(rook, rookTo)
		h ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	nb.castling &= castlingMask[from] & castlingMask[to]
	h ^= zobristCastling[nb.castling]

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		nb.enPassant = Square((int(from) + int(to)) / 2)
		h ^= zobristEnPassant[nb.enPassant.File()]
	}

	if pt == Pawn || captured != NoPiece {
		nb.halfmove = 0
	} else {
		nb.halfmove++
	}
	if us == Black {
		nb.fullmove++
	}
	nb.side = them
	nb.hash = h
	return nb
}

// NullMove returns b with the turn passed to the other side and the en
// passant square cleared. Detectors use it to ask what a side would threaten
// if it could move twice. It fails when the side to move is in check.
func (b *Board) NullMove() (Board, bool) {
	if b.InCheck() {
		return Board{}, false
	}
	nb := *b
	if nb.enPassant != NoSquare {
		nb.hash ^= zobristEnPassant[nb.enPassant.File()]
		nb.enPassant = NoSquare
	}
	nb.hash ^= zobristSideToMove
	nb.side = nb.side.Other()
	nb.halfmove++
	return nb, true
}
