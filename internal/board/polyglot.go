package board

const (
	polyglotCastlingOffset  = 768
	polyglotEnPassantOffset = 772
	polyglotTurnOffset      = 780
)

// polyglotKind maps a piece to the Polyglot kind index:
// black pawn 0, white pawn 1, black knight 2, ... white king 11.
func polyglotKind(p Piece) int {
	kind := 2 * int(p.Type())
	if p.Color() == White {
		kind++
	}
	return kind
}

// PolyglotKey computes the Polyglot opening book key of the position. It is
// independent of ZobristHash, which uses its own key set.
func (b *Board) PolyglotKey() uint64 {
	var key uint64

	occ := b.all
	for occ != 0 {
		sq := occ.PopLSB()
		key ^= polyglotRandom64[64*polyglotKind(b.mailbox[sq])+int(sq)]
	}

	for i := 0; i < 4; i++ {
		if b.castling&(1<<i) != 0 {
			key ^= polyglotRandom64[polyglotCastlingOffset+i]
		}
	}

	// The en passant file only counts when a pawn can actually take.
	if b.enPassant != NoSquare {
		us := b.side
		victim := NewSquare(b.enPassant.File(), 4)
		if us == Black {
			victim = NewSquare(b.enPassant.File(), 3)
		}
		capturers := AdjacentFiles(b.enPassant.File()) & RankMask[victim.Rank()] & b.pieces[us][Pawn]
		if capturers != 0 {
			key ^= polyglotRandom64[polyglotEnPassantOffset+b.enPassant.File()]
		}
	}

	if b.side == White {
		key ^= polyglotRandom64[polyglotTurnOffset]
	}
	return key
}
