package board

import (
	"github.com/hailam/chessmentor/internal/errors"
)

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-13: promotion piece (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: flags (0=normal, 1=promotion, 2=en passant, 3=castling)
type Move uint16

// Move flags
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	promoIdx := promo - Knight
	return Move(from) | Move(to)<<6 | Move(promoIdx)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move (king's movement).
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move flag.
func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return PieceType((m>>12)&3) + Knight
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCapture returns true if this move captures a piece on b.
func (m Move) IsCapture(b *Board) bool {
	if m.IsEnPassant() {
		return true
	}
	p := b.PieceAt(m.To())
	return p != NoPiece && p.Color() != b.PieceAt(m.From()).Color()
}

// CapturedSquare returns the square of the piece m removes, which differs
// from the destination for en passant.
func (m Move) CapturedSquare() Square {
	if m.IsEnPassant() {
		return NewSquare(m.To().File(), m.From().Rank())
	}
	return m.To()
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseUCI parses a UCI move string against b, recognising castling and en
// passant from the piece that moves. It does not check legality.
func ParseUCI(s string, b *Board) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, &errors.IllegalMoveError{Move: s, Reason: "malformed UCI move"}
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, &errors.IllegalMoveError{Move: s, Reason: "bad origin square"}
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, &errors.IllegalMoveError{Move: s, Reason: "bad destination square"}
	}
	if from == to {
		return NoMove, &errors.IllegalMoveError{Move: s, Reason: "null move"}
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, &errors.IllegalMoveError{Move: s, Reason: "bad promotion piece"}
		}
		return NewPromotion(from, to, promo), nil
	}

	return classify(b, from, to), nil
}

// classify attaches the castling or en passant flag a plain from/to pair
// implies on b.
func classify(b *Board, from, to Square) Move {
	p := b.PieceAt(from)
	switch {
	case p.Type() == King && from.Rank() == to.Rank() && abs(to.File()-from.File()) == 2:
		return NewCastling(from, to)
	case p.Type() == Pawn && to == b.enPassant && from.File() != to.File():
		return NewEnPassant(from, to)
	}
	return NewMove(from, to)
}
