package board

// Direction is one of the eight compass directions a slider can travel.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	NoDirection Direction = 8
)

var directionDelta = [8][2]int{
	North:     {0, 1},
	NorthEast: {1, 1},
	East:      {1, 0},
	SouthEast: {1, -1},
	South:     {0, -1},
	SouthWest: {-1, -1},
	West:      {-1, 0},
	NorthWest: {-1, 1},
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return (d + 4) & 7
}

// Diagonal reports whether d is a bishop direction.
func (d Direction) Diagonal() bool {
	return d&1 == 1
}

// positive directions move toward higher square indices, so the first
// blocker along the ray is the least significant bit.
func (d Direction) positive() bool {
	return d == North || d == NorthEast || d == East || d == NorthWest
}

// Pre-computed attack tables. Sliders walk the ray tables; there are no
// magic numbers, so every table is filled deterministically in init.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]

	rays [8][64]Bitboard // [Direction][Square], excluding the origin

	betweenBB   [64][64]Bitboard  // Squares strictly between two squares
	lineBB      [64][64]Bitboard  // Full line through two squares (including endpoints)
	directionTo [64][64]Direction // Direction from the first square to the second
)

func init() {
	initKnightAttacks()
	initKingAttacks()
	initPawnAttacks()
	initRays()
	initLines()
}

func initKnightAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		attacks := Empty

		attacks |= (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA

		attacks |= (bb << 10) & NotFileAB
		attacks |= (bb << 6) & NotFileGH
		attacks |= (bb >> 10) & NotFileGH
		attacks |= (bb >> 6) & NotFileAB

		knightAttacks[sq] = attacks
	}
}

func initKingAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		attacks := bb.North() | bb.South()
		attacks |= bb.East() | bb.West()
		attacks |= bb.NorthEast() | bb.NorthWest()
		attacks |= bb.SouthEast() | bb.SouthWest()
		kingAttacks[sq] = attacks
	}
}

func initPawnAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initRays() {
	for sq := A1; sq <= H8; sq++ {
		for d := North; d < NoDirection; d++ {
			df, dr := directionDelta[d][0], directionDelta[d][1]
			f, r := sq.File()+df, sq.Rank()+dr
			for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
				rays[d][sq] |= SquareBB(NewSquare(f, r))
				f += df
				r += dr
			}
		}
	}
}

func initLines() {
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			directionTo[a][b] = NoDirection
		}
		for d := North; d < NoDirection; d++ {
			full := rays[d][a] | rays[d.Opposite()][a] | SquareBB(a)
			ray := rays[d][a]
			for ray != 0 {
				b := ray.PopLSB()
				betweenBB[a][b] = rays[d][a] & rays[d.Opposite()][b]
				lineBB[a][b] = full
				directionTo[a][b] = d
			}
		}
	}
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// Ray returns every square from sq (exclusive) to the board edge in direction d.
func Ray(d Direction, sq Square) Bitboard {
	return rays[d][sq]
}

// FirstBlocker returns the nearest occupied square from sq in direction d,
// or NoSquare when the ray is clear to the edge.
func FirstBlocker(d Direction, sq Square, occupied Bitboard) Square {
	blockers := rays[d][sq] & occupied
	if blockers == 0 {
		return NoSquare
	}
	if d.positive() {
		return blockers.LSB()
	}
	return blockers.MSB()
}

// rayAttacks returns the ray from sq in direction d cut after the first blocker.
func rayAttacks(d Direction, sq Square, occupied Bitboard) Bitboard {
	attacks := rays[d][sq]
	if b := FirstBlocker(d, sq, occupied); b != NoSquare {
		attacks &^= rays[d][b]
	}
	return attacks
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(NorthEast, sq, occupied) | rayAttacks(SouthEast, sq, occupied) |
		rayAttacks(SouthWest, sq, occupied) | rayAttacks(NorthWest, sq, occupied)
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(North, sq, occupied) | rayAttacks(East, sq, occupied) |
		rayAttacks(South, sq, occupied) | rayAttacks(West, sq, occupied)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// PieceAttacks returns the squares attacked by a piece of type pt and color c
// standing on sq.
func PieceAttacks(pt PieceType, c Color, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return pawnAttacks[c][sq]
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return Empty
}

// Between returns the bitboard of squares strictly between two squares.
// Returns empty if squares are not aligned (not on same rank, file, or diagonal).
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// Line returns the bitboard of the full line through two squares.
// Returns empty if squares are not aligned.
func Line(sq1, sq2 Square) Bitboard {
	return lineBB[sq1][sq2]
}

// Aligned returns true if three squares are on the same line.
func Aligned(sq1, sq2, sq3 Square) bool {
	return lineBB[sq1][sq2]&SquareBB(sq3) != 0
}

// DirectionTo returns the direction from one square to another, or
// NoDirection when they do not share a rank, file or diagonal.
func DirectionTo(from, to Square) Direction {
	return directionTo[from][to]
}

// SliderFor reports whether a piece of type pt moves along direction d.
func SliderFor(pt PieceType, d Direction) bool {
	switch pt {
	case Queen:
		return d < NoDirection
	case Bishop:
		return d < NoDirection && d.Diagonal()
	case Rook:
		return d < NoDirection && !d.Diagonal()
	}
	return false
}

// AttackersTo returns a bitboard of all pieces attacking a square under the
// given occupancy. Pieces missing from occupied are treated as captured,
// which lets exchange simulations reveal x-ray attackers.
func (b *Board) AttackersTo(sq Square, occupied Bitboard) Bitboard {
	return b.AttackersByColor(sq, White, occupied) | b.AttackersByColor(sq, Black, occupied)
}

// AttackersByColor returns a bitboard of pieces of the given color attacking a square.
func (b *Board) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	p := &b.pieces[c]
	return ((pawnAttacks[c.Other()][sq] & p[Pawn]) |
		(knightAttacks[sq] & p[Knight]) |
		(kingAttacks[sq] & p[King]) |
		(BishopAttacks(sq, occupied) & (p[Bishop] | p[Queen])) |
		(RookAttacks(sq, occupied) & (p[Rook] | p[Queen]))) & occupied
}

// IsAttacked returns true if the square is attacked by the given color.
func (b *Board) IsAttacked(sq Square, by Color) bool {
	if sq >= NoSquare {
		return false
	}
	return b.AttackersByColor(sq, by, b.all) != 0
}

// Checkers returns the pieces giving check to the side to move.
func (b *Board) Checkers() Bitboard {
	ksq := b.KingSquare(b.side)
	if ksq == NoSquare {
		return Empty
	}
	return b.AttackersByColor(ksq, b.side.Other(), b.all)
}

// Pinned returns the pieces of color c absolutely pinned to their own king.
func (b *Board) Pinned(c Color) Bitboard {
	ksq := b.KingSquare(c)
	if ksq == NoSquare {
		return Empty
	}
	them := c.Other()
	var pinned Bitboard

	snipers := (RookAttacks(ksq, 0) & (b.pieces[them][Rook] | b.pieces[them][Queen])) |
		(BishopAttacks(ksq, 0) & (b.pieces[them][Bishop] | b.pieces[them][Queen]))
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & b.all
		if blockers.PopCount() == 1 && blockers&b.occupied[c] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}
