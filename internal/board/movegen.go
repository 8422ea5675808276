package board

// LegalMoves returns every legal move for the side to move.
func (b *Board) LegalMoves() []Move {
	pseudo := b.pseudoLegalMoves(make([]Move, 0, 64))
	legal := pseudo[:0]
	for _, m := range pseudo {
		if b.isLegal(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (b *Board) HasLegalMoves() bool {
	for _, m := range b.pseudoLegalMoves(make([]Move, 0, 64)) {
		if b.isLegal(m) {
			return true
		}
	}
	return false
}

// IsLegal reports whether m is a fully legal move on b.
func (b *Board) IsLegal(m Move) bool {
	if !m.IsPromotion() && !m.IsCastling() && !m.IsEnPassant() {
		m = classify(b, m.From(), m.To())
	}
	return b.checkMove(m) == "" && b.isLegal(m)
}

// isLegal checks a well-formed move for king safety.
func (b *Board) isLegal(m Move) bool {
	us := b.side
	next := b.apply(m)
	return !next.IsAttacked(next.KingSquare(us), us.Other())
}

// IsCheckmate returns true if the position is checkmate.
func (b *Board) IsCheckmate() bool {
	return b.InCheck() && !b.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (b *Board) IsStalemate() bool {
	return !b.InCheck() && !b.HasLegalMoves()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (b *Board) IsInsufficientMaterial() bool {
	p := &b.pieces
	if p[White][Pawn]|p[Black][Pawn]|p[White][Rook]|p[Black][Rook]|p[White][Queen]|p[Black][Queen] != 0 {
		return false
	}

	wMinors := (p[White][Knight] | p[White][Bishop]).PopCount()
	bMinors := (p[Black][Knight] | p[Black][Bishop]).PopCount()

	if wMinors+bMinors <= 1 {
		return true
	}
	// Bishops only, all on one square color.
	if p[White][Knight]|p[Black][Knight] == 0 {
		bishops := p[White][Bishop] | p[Black][Bishop]
		return bishops&LightSquares == 0 || bishops&DarkSquares == 0
	}
	return false
}

// pseudoLegalMoves appends moves that obey piece movement but may leave the
// king attacked.
func (b *Board) pseudoLegalMoves(ml []Move) []Move {
	us := b.side
	own := b.occupied[us]

	ml = b.pawnMoves(ml)

	for _, pt := range []PieceType{Knight, Bishop, Rook, Queen, King} {
		pieces := b.pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			targets := PieceAttacks(pt, us, from, b.all) &^ own &^ b.pieces[us.Other()][King]
			for targets != 0 {
				ml = append(ml, NewMove(from, targets.PopLSB()))
			}
		}
	}

	return b.castlingMoves(ml)
}

func (b *Board) pawnMoves(ml []Move) []Move {
	us := b.side
	pawns := b.pieces[us][Pawn]
	empty := ^b.all
	enemies := b.occupied[us.Other()] &^ b.pieces[us.Other()][King]

	var push1, push2, attackL, attackR, promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	add := func(targets Bitboard, offset int) {
		for targets != 0 {
			to := targets.PopLSB()
			from := Square(int(to) - offset)
			if promotionRank.IsSet(to) {
				for _, promo := range []PieceType{Queen, Rook, Bishop, Knight} {
					ml = append(ml, NewPromotion(from, to, promo))
				}
				continue
			}
			ml = append(ml, NewMove(from, to))
		}
	}

	add(push1, pushDir)
	add(push2, 2*pushDir)
	add(attackL, pushDir-1)
	add(attackR, pushDir+1)

	if b.enPassant != NoSquare && b.mailbox[int(b.enPassant)-pushDir] == NewPiece(Pawn, us.Other()) {
		attackers := pawnAttacks[us.Other()][b.enPassant] & pawns
		for attackers != 0 {
			ml = append(ml, NewEnPassant(attackers.PopLSB(), b.enPassant))
		}
	}
	return ml
}

func (b *Board) castlingMoves(ml []Move) []Move {
	home := E1
	if b.side == Black {
		home = E8
	}
	if b.mailbox[home] != NewPiece(King, b.side) {
		return ml
	}
	for _, to := range []Square{home + 2, home - 2} {
		if b.checkCastle(home, to) == "" {
			ml = append(ml, NewCastling(home, to))
		}
	}
	return ml
}
