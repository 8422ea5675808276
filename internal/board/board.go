package board

import (
	"fmt"
	"strings"

	"github.com/hailam/chessmentor/internal/errors"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return cr&castleRight(c, kingSide) != 0
}

func castleRight(c Color, kingSide bool) CastlingRights {
	switch {
	case c == White && kingSide:
		return WhiteKingSideCastle
	case c == White:
		return WhiteQueenSideCastle
	case kingSide:
		return BlackKingSideCastle
	default:
		return BlackQueenSideCastle
	}
}

// mirror swaps the white and black rights.
func (cr CastlingRights) mirror() CastlingRights {
	return (cr&3)<<2 | (cr>>2)&3
}

// Board is an immutable chess position. It is built by FromFEN or by
// ApplyMove on an existing Board and never changes afterwards; all methods
// are read-only.
type Board struct {
	pieces   [2][6]Bitboard // [Color][PieceType]
	occupied [2]Bitboard
	all      Bitboard
	mailbox  [64]Piece

	side      Color
	castling  CastlingRights
	enPassant Square
	halfmove  int
	fullmove  int

	hash uint64
}

// emptyBoard returns a board with no pieces and White to move.
func emptyBoard() Board {
	b := Board{enPassant: NoSquare, fullmove: 1}
	for i := range b.mailbox {
		b.mailbox[i] = NoPiece
	}
	return b
}

// New returns the starting position.
func New() Board {
	b, err := FromFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (b *Board) PieceAt(sq Square) Piece {
	if sq >= NoSquare {
		return NoPiece
	}
	return b.mailbox[sq]
}

// IsEmpty returns true if the square is empty.
func (b *Board) IsEmpty(sq Square) bool {
	return b.PieceAt(sq) == NoPiece
}

// Pieces returns the bitboard of pieces of type pt and color c.
func (b *Board) Pieces(c Color, pt PieceType) Bitboard {
	return b.pieces[c][pt]
}

// Occupied returns all squares occupied by color c.
func (b *Board) Occupied(c Color) Bitboard {
	return b.occupied[c]
}

// AllOccupied returns all occupied squares.
func (b *Board) AllOccupied() Bitboard {
	return b.all
}

// SideToMove returns the color to move.
func (b *Board) SideToMove() Color {
	return b.side
}

// CastlingRights returns the remaining castling rights.
func (b *Board) CastlingRights() CastlingRights {
	return b.castling
}

// EnPassant returns the en passant target square or NoSquare.
func (b *Board) EnPassant() Square {
	return b.enPassant
}

// HalfmoveClock returns the number of half moves since the last capture or pawn move.
func (b *Board) HalfmoveClock() int {
	return b.halfmove
}

// FullmoveNumber returns the move number, starting at 1.
func (b *Board) FullmoveNumber() int {
	return b.fullmove
}

// ZobristHash returns the incrementally maintained hash.
func (b *Board) ZobristHash() uint64 {
	return b.hash
}

// KingSquare returns the square of c's king, or NoSquare if there is none.
func (b *Board) KingSquare(c Color) Square {
	return b.pieces[c][King].LSB()
}

// MaterialCount returns c's non-king material in centipawns.
func (b *Board) MaterialCount(c Color) int {
	total := 0
	for pt := Pawn; pt < King; pt++ {
		total += b.pieces[c][pt].PopCount() * PieceValue[pt]
	}
	return total
}

// NonKingPieceCount returns the number of men on the board other than the
// two kings, pawns included.
func (b *Board) NonKingPieceCount() int {
	return b.all.PopCount() - (b.pieces[White][King] | b.pieces[Black][King]).PopCount()
}

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool {
	return b.Checkers() != 0
}

// put places a piece during construction. The hash is not touched.
func (b *Board) put(p Piece, sq Square) {
	c, pt := p.Color(), p.Type()
	bb := SquareBB(sq)
	b.pieces[c][pt] |= bb
	b.occupied[c] |= bb
	b.all |= bb
	b.mailbox[sq] = p
}

// remove clears a square during construction and returns what stood there.
func (b *Board) remove(sq Square) Piece {
	p := b.mailbox[sq]
	if p == NoPiece {
		return NoPiece
	}
	bb := SquareBB(sq)
	b.pieces[p.Color()][p.Type()] &^= bb
	b.occupied[p.Color()] &^= bb
	b.all &^= bb
	b.mailbox[sq] = NoPiece
	return p
}

// Validate checks the structural rules a playable position must satisfy.
func (b *Board) Validate() error {
	for _, c := range []Color{White, Black} {
		if n := b.pieces[c][King].PopCount(); n != 1 {
			return &errors.InvalidPositionError{Reason: fmt.Sprintf("%s has %d kings", strings.ToLower(c.String()), n)}
		}
	}
	if (b.pieces[White][Pawn]|b.pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return &errors.InvalidPositionError{Reason: "pawn on the first or last rank"}
	}
	them := b.side.Other()
	if b.IsAttacked(b.KingSquare(them), b.side) {
		return &errors.InvalidPositionError{Reason: fmt.Sprintf("%s is in check but not to move", strings.ToLower(them.String()))}
	}
	return nil
}

// Mirror returns the position flipped top to bottom with colors swapped.
// Every evaluation of the mirrored board should equal the original one
// with the sign of any White-relative number negated.
func (b *Board) Mirror() Board {
	m := emptyBoard()
	for sq := A1; sq <= H8; sq++ {
		if p := b.mailbox[sq]; p != NoPiece {
			m.put(NewPiece(p.Type(), p.Color().Other()), sq.Mirror())
		}
	}
	m.side = b.side.Other()
	m.castling = b.castling.mirror()
	if b.enPassant != NoSquare {
		m.enPassant = b.enPassant.Mirror()
	}
	m.halfmove = b.halfmove
	m.fullmove = b.fullmove
	m.hash = m.ComputeHash()
	return m
}

// String returns a visual representation of the position.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			p := b.PieceAt(NewSquare(file, rank))
			if p == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(p.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "FEN: %s\n", b.ToFEN())
	fmt.Fprintf(&sb, "Hash: %016x\n", b.hash)
	return sb.String()
}
