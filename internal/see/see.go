// Package see implements static exchange evaluation: it plays out every
// capture on one square in least-valuable-attacker order and reports the net
// material won or lost by the side that starts the exchange.
package see

import (
	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/poscache"
)

// maxSwaps bounds the swap list; 32 men is the most that can take part.
const maxSwaps = 32

// TradeMargin is the smallest balance in centipawns that counts as winning
// material. Knight and bishop values differ by less, so swapping one for
// the other is an even trade.
const TradeMargin = 50

// Capture is one step of a simulated exchange.
type Capture struct {
	From     board.Square
	Piece    board.PieceType // capturing piece
	Captured board.PieceType
}

// Result is the outcome of an exchange on Target.
type Result struct {
	Target    board.Square
	Initiator board.Color
	// Balance is the material won in centipawns from the initiator's point
	// of view, after both sides stop at their best moment.
	Balance int
	// Captures lists every capture the simulation considered, in order.
	// The minimax may stop the real exchange earlier.
	Captures []Capture
}

// ForWhite returns the balance from White's point of view.
func (r Result) ForWhite() int {
	if r.Initiator == board.Black {
		return -r.Balance
	}
	return r.Balance
}

// Wins reports whether the initiator comes out ahead by at least
// TradeMargin.
func (r Result) Wins() bool {
	return r.Balance >= TradeMargin
}

// Loses reports whether the initiator comes out behind by at least
// TradeMargin.
func (r Result) Loses() bool {
	return r.Balance <= -TradeMargin
}

// exchange carries the simulated state of one exchange.
type exchange struct {
	b      *board.Board
	target board.Square
	occ    board.Bitboard

	// The piece currently standing on target.
	onTarget      board.PieceType
	onTargetColor board.Color

	// With tracked set, attackers holds every piece that has reached target
	// so far: the cache's list plus sliders revealed behind removed pieces.
	// Without it each step re-scans the board.
	tracked   bool
	attackers [2]board.Bitboard
}

// Evaluate plays out the exchange started by the piece on from capturing the
// piece on target. attackerIsWhite names the initiating side.
//
// The boolean is false when there is no valid initial capture: the target is
// empty or a king or of the initiator's color, the piece on from is missing
// or of the wrong color, it does not attack target, it is pinned off the
// line, or its king is in check from another piece.
func Evaluate(b *board.Board, target, from board.Square, attackerIsWhite bool) (Result, bool) {
	us := board.Black
	if attackerIsWhite {
		us = board.White
	}
	victim := b.PieceAt(target)
	if victim == board.NoPiece || victim.Color() == us || victim.Type() == board.King {
		return Result{}, false
	}
	return evaluate(b, nil, from, target, target, us, victim.Type())
}

// EvaluateMove is Evaluate for a move, handling en passant and promotion.
// Quiet moves return false.
func EvaluateMove(b *board.Board, m board.Move) (Result, bool) {
	from := m.From()
	attacker := b.PieceAt(from)
	if attacker == board.NoPiece {
		return Result{}, false
	}
	us := attacker.Color()
	if m.IsEnPassant() || (attacker.Type() == board.Pawn && m.To() == b.EnPassant() && from.File() != m.To().File()) {
		victimSq := board.NewSquare(m.To().File(), from.Rank())
		if b.PieceAt(victimSq) != board.NewPiece(board.Pawn, us.Other()) {
			return Result{}, false
		}
		return evaluate(b, nil, from, m.To(), victimSq, us, board.Pawn)
	}
	return Evaluate(b, m.To(), from, us == board.White)
}

// BestCapture tries every piece of color that attacks target according to c
// and returns the exchange with the highest balance. The exchanges start
// from c's attacker lists, so c must be valid for b.
func BestCapture(b *board.Board, c *poscache.Cache, target board.Square, color board.Color) (Result, bool) {
	victim := b.PieceAt(target)
	if victim == board.NoPiece || victim.Color() == color || victim.Type() == board.King {
		return Result{}, false
	}
	var best Result
	found := false
	for attackers := c.AttackersBB(target, color); attackers != 0; {
		from := attackers.PopLSB()
		r, ok := evaluate(b, c, from, target, target, color, victim.Type())
		if ok && (!found || r.Balance > best.Balance) {
			best, found = r, true
		}
	}
	return best, found
}

// evaluate runs the swap list. victimSq differs from target only for en passant.
// A non-nil c seeds the attacker sets from the cache.
func evaluate(b *board.Board, c *poscache.Cache, from, target, victimSq board.Square, us board.Color, victim board.PieceType) (Result, bool) {
	attacker := b.PieceAt(from)
	if attacker == board.NoPiece || attacker.Color() != us || from == target {
		return Result{}, false
	}

	x := &exchange{b: b, target: target, occ: b.AllOccupied()}
	x.occ &^= board.SquareBB(victimSq)
	x.occ |= board.SquareBB(target)
	if c != nil {
		x.tracked = true
		x.attackers[board.White] = c.AttackersBB(target, board.White)
		x.attackers[board.Black] = c.AttackersBB(target, board.Black)
	}

	if !x.attacks(from, attacker.Type(), us) || !x.canCapture(from, attacker.Type(), us) {
		return Result{}, false
	}

	var gain [maxSwaps]int
	gain[0] = board.PieceValue[victim]
	captures := make([]Capture, 0, 4)
	captures = append(captures, Capture{From: from, Piece: attacker.Type(), Captured: victim})

	x.occ &^= board.SquareBB(from)
	x.reveal(from)
	x.onTarget, x.onTargetColor = attacker.Type(), us
	if x.promotes(attacker.Type(), us) {
		gain[0] += board.PieceValue[board.Queen] - board.PieceValue[board.Pawn]
		x.onTarget = board.Queen
	}

	side := us.Other()
	d := 1
	for ; d < maxSwaps; d++ {
		sq, pt, ok := x.leastValuableAttacker(side)
		if !ok {
			break
		}
		gain[d] = board.PieceValue[x.onTarget] - gain[d-1]
		captures = append(captures, Capture{From: sq, Piece: pt, Captured: x.onTarget})

		x.occ &^= board.SquareBB(sq)
		x.reveal(sq)
		x.onTarget, x.onTargetColor = pt, side
		if x.promotes(pt, side) {
			gain[d] += board.PieceValue[board.Queen] - board.PieceValue[board.Pawn]
			x.onTarget = board.Queen
		}
		if pt == board.King {
			// The king only steps onto an undefended square, so nothing follows.
			d++
			break
		}
		side = side.Other()
	}

	// Each side may decline to continue: negamax the swap list back to the root.
	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}

	return Result{Target: target, Initiator: us, Balance: gain[0], Captures: captures}, true
}

func (x *exchange) promotes(pt board.PieceType, c board.Color) bool {
	return pt == board.Pawn && x.target.RelativeRank(c) == 7
}

// attacks reports whether the piece on sq reaches target under the
// simulated occupancy.
func (x *exchange) attacks(sq board.Square, pt board.PieceType, c board.Color) bool {
	return board.PieceAttacks(pt, c, sq, x.occ).IsSet(x.target)
}

// reveal adds the slider, if any, that reaches target once the piece on sq
// has left it.
func (x *exchange) reveal(sq board.Square) {
	if !x.tracked {
		return
	}
	d := board.DirectionTo(x.target, sq)
	if d == board.NoDirection {
		return
	}
	beyond := board.FirstBlocker(d, sq, x.occ)
	if beyond == board.NoSquare {
		return
	}
	if p := x.b.PieceAt(beyond); p != board.NoPiece && board.SliderFor(p.Type(), d) {
		x.attackers[p.Color()] |= board.SquareBB(beyond)
	}
}

// leastValuableAttacker finds side's cheapest piece that may legally take on
// target. Pieces behind removed ones join as the exchange opens lines.
func (x *exchange) leastValuableAttacker(side board.Color) (board.Square, board.PieceType, bool) {
	var attackers board.Bitboard
	if x.tracked {
		attackers = x.attackers[side] & x.occ
	} else {
		attackers = x.b.AttackersByColor(x.target, side, x.occ)
	}
	for pt := board.Pawn; pt <= board.King; pt++ {
		candidates := attackers & x.b.Pieces(side, pt)
		for candidates != 0 {
			sq := candidates.PopLSB()
			if x.canCapture(sq, pt, side) {
				return sq, pt, true
			}
		}
	}
	return board.NoSquare, board.NoPieceType, false
}

// canCapture applies the legality filters for the piece on sq of color c
// taking on target.
func (x *exchange) canCapture(sq board.Square, pt board.PieceType, c board.Color) bool {
	them := c.Other()
	if pt == board.King {
		occ := x.occ &^ board.SquareBB(sq)
		return !x.attackedBy(x.target, them, occ)
	}

	ksq := x.b.KingSquare(c)
	if ksq == board.NoSquare {
		return true
	}
	// A king in check from anything but the piece on target must be dealt
	// with first.
	checkers := x.b.AttackersByColor(ksq, them, x.occ) &^ board.SquareBB(x.target)
	if checkers != 0 {
		return false
	}
	return !x.pinned(sq, c, ksq) || board.Aligned(ksq, sq, x.target)
}

// attackedBy is AttackersByColor with the target occupant accounted for.
func (x *exchange) attackedBy(sq board.Square, c board.Color, occ board.Bitboard) bool {
	return x.b.AttackersByColor(sq, c, occ)&^board.SquareBB(x.target) != 0
}

// pinned reports whether the piece on sq shields its king at ksq from an
// enemy slider under the simulated occupancy.
func (x *exchange) pinned(sq board.Square, c board.Color, ksq board.Square) bool {
	d := board.DirectionTo(ksq, sq)
	if d == board.NoDirection || board.Between(ksq, sq)&x.occ != 0 {
		return false
	}
	beyond := board.FirstBlocker(d, sq, x.occ)
	if beyond == board.NoSquare {
		return false
	}
	pt, color := x.pieceAt(beyond)
	return color == c.Other() && board.SliderFor(pt, d)
}

func (x *exchange) pieceAt(sq board.Square) (board.PieceType, board.Color) {
	if sq == x.target {
		return x.onTarget, x.onTargetColor
	}
	p := x.b.PieceAt(sq)
	return p.Type(), p.Color()
}
