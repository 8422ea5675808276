package tactics

import (
	"sort"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/poscache"
	"github.com/hailam/chessmentor/internal/see"
)

// Facts returns the threats us has against the opponent and the defenses of
// us' own pieces visible in b. c must be built for b; a nil or stale cache
// is rebuilt.
func Facts(b *board.Board, c *poscache.Cache, us board.Color) []Fact {
	if !c.Valid(b) {
		c = poscache.Build(b)
	}
	s := scan{b: b, c: c, us: us, them: us.Other()}

	var facts []Fact
	facts = s.material(facts)
	facts = s.forks(facts)
	facts = s.lines(facts)
	facts = s.checks(facts)
	facts = s.promotions(facts)
	facts = s.trapped(facts)
	facts = s.protected(facts)
	facts = s.blocks(facts)
	return dedupe(facts)
}

type scan struct {
	b        *board.Board
	c        *poscache.Cache
	us, them board.Color
}

func (s *scan) defended(sq board.Square, by board.Color) bool {
	return s.c.AttackersBB(sq, by) != 0
}

// exposure is the material a target puts at risk; the king counts as more
// than any other piece.
func exposure(pt board.PieceType) int {
	if pt == board.King {
		return kingExposure
	}
	return pt.Value()
}

// material reports enemy pieces us can win on the spot.
func (s *scan) material(facts []Fact) []Fact {
	for _, p := range s.c.Pieces(s.them) {
		if p.Type == board.King || !s.c.IsAttacked(p.Square, s.us) {
			continue
		}
		r, ok := see.BestCapture(s.b, s.c, p.Square, s.us)
		if !ok || !r.Wins() {
			continue
		}
		kind, token := MaterialWin, "wins"
		if !s.defended(p.Square, s.them) {
			kind, token = HangingPiece, "hanging"
		}
		facts = append(facts, Fact{
			Kind:     kind,
			Square:   p.Square,
			Piece:    p.Type,
			Attacker: r.Captures[0].From,
			Value:    r.Balance,
			Severity: severity(r.Balance, 1),
			Token:    token + ":" + p.Type.Name(),
		})
	}
	return facts
}

// forks reports pieces of us attacking two or more exposed enemy pieces
// while surviving the reply.
func (s *scan) forks(facts []Fact) []Fact {
	for _, p := range s.c.Pieces(s.us) {
		attacked := s.c.AttacksFrom(p.Square) & s.b.Occupied(s.them)
		if attacked.PopCount() < 2 {
			continue
		}

		var squares []board.Square
		var targets []board.PieceType
		var values []int
		total := 0
		for bb := attacked; bb != 0; {
			sq := bb.PopLSB()
			pt := s.b.PieceAt(sq).Type()
			exposed := pt == board.King || pt.Value()-p.Type.Value() >= see.TradeMargin || !s.defended(sq, s.them)
			if !exposed || pt == board.Pawn {
				continue
			}
			squares = append(squares, sq)
			targets = append(targets, pt)
			values = append(values, exposure(pt))
			total += exposure(pt)
		}
		if len(squares) < 2 || total < forkThreshold {
			continue
		}
		if r, ok := see.BestCapture(s.b, s.c, p.Square, s.them); ok && r.Wins() {
			continue
		}

		// The second most valuable target is what the fork realistically wins.
		sort.Sort(sort.Reverse(sort.IntSlice(values)))
		won := values[1]
		if won == kingExposure {
			won = values[0]
		}
		facts = append(facts, Fact{
			Kind:     Fork,
			Square:   p.Square,
			Piece:    p.Type,
			Attacker: p.Square,
			Value:    won,
			Severity: severity(won, len(squares)),
			Squares:  squares,
			Targets:  targets,
			Token:    "fork:" + p.Type.Name(),
		})
	}
	return facts
}

// lines reports pins and skewers along the x-ray lines of us' sliders.
func (s *scan) lines(facts []Fact) []Fact {
	for _, x := range s.c.XRays(s.us) {
		front, back := s.b.PieceAt(x.Blocker), s.b.PieceAt(x.Behind)
		if front.Color() != s.them || back.Color() != s.them {
			continue
		}
		slider := s.b.PieceAt(x.Slider).Type()
		fv, bv := exposure(front.Type()), exposure(back.Type())

		// Breaking the line wins the rear piece if it is loose or worth
		// more than the slider.
		rearWins := back.Type() != board.King &&
			(!s.defended(x.Behind, s.them) || slider.Value() < back.Type().Value())

		switch {
		case back.Type() == board.King:
			facts = append(facts, Fact{
				Kind: Pin, Square: x.Blocker, Piece: front.Type(), Attacker: x.Slider,
				Value: fv, Severity: severity(fv, 2),
				Squares: []board.Square{x.Behind}, Targets: []board.PieceType{back.Type()},
				Token: "pin:absolute",
			})
		case bv > fv && rearWins:
			facts = append(facts, Fact{
				Kind: Pin, Square: x.Blocker, Piece: front.Type(), Attacker: x.Slider,
				Value: fv, Severity: severity(fv, 2),
				Squares: []board.Square{x.Behind}, Targets: []board.PieceType{back.Type()},
				Token: "pin:relative",
			})
		case fv > bv && rearWins && (front.Type() == board.King || !s.defended(x.Blocker, s.them) || slider.Value() < front.Type().Value()):
			facts = append(facts, Fact{
				Kind: Skewer, Square: x.Behind, Piece: back.Type(), Attacker: x.Slider,
				Value: bv, Severity: severity(bv, 2),
				Squares: []board.Square{x.Blocker}, Targets: []board.PieceType{front.Type()},
				Token: "skewer",
			})
		}
	}
	return facts
}

// checks reports a check on the enemy king and mate or mate threats.
func (s *scan) checks(facts []Fact) []Fact {
	ksq := s.c.KingSquare(s.them)
	if ksq == board.NoSquare {
		return facts
	}
	if checkers := s.c.AttackersBB(ksq, s.us); checkers != 0 {
		sqs := checkers.Squares()
		targets := make([]board.PieceType, len(sqs))
		for i, sq := range sqs {
			targets[i] = s.b.PieceAt(sq).Type()
		}
		facts = append(facts, Fact{
			Kind:     Check,
			Square:   ksq,
			Piece:    board.King,
			Attacker: sqs[0],
			Severity: severity(checkSeverity, len(sqs)),
			Squares:  sqs,
			Targets:  targets,
			Token:    "check",
		})
	}

	if s.b.SideToMove() == s.them && s.b.IsCheckmate() {
		return append(facts, Fact{
			Kind: CheckmateThreat, Square: ksq, Piece: board.King, Attacker: board.NoSquare,
			Value: kingExposure, Severity: checkmateSev, Token: "checkmate",
		})
	}
	// A threat is keyed by the mating square so that delivering the mate
	// on the king square counts as a new fact.
	if m, ok := s.mateInOne(); ok {
		facts = append(facts, Fact{
			Kind: CheckmateThreat, Square: m.To(), Piece: s.b.PieceAt(m.From()).Type(), Attacker: m.From(),
			Value: kingExposure, Severity: mateThreatSev,
			Squares: []board.Square{ksq}, Targets: []board.PieceType{board.King}, Token: "mate-threat",
		})
	}
	return facts
}

// mateInOne looks for a move of us that mates, passing the turn first when
// it is the opponent's move.
func (s *scan) mateInOne() (board.Move, bool) {
	pos := *s.b
	if pos.SideToMove() != s.us {
		var ok bool
		if pos, ok = s.b.NullMove(); !ok {
			return board.NoMove, false
		}
	}
	for _, m := range pos.LegalMoves() {
		next, err := pos.ApplyMove(m)
		if err == nil && next.IsCheckmate() {
			return m, true
		}
	}
	return board.NoMove, false
}

// promotions reports pawns of us that can promote next move.
func (s *scan) promotions(facts []Fact) []Fact {
	pawns := s.b.Pieces(s.us, board.Pawn)
	for pawns != 0 {
		sq := pawns.PopLSB()
		if sq.RelativeRank(s.us) != 6 {
			continue
		}
		push := board.NewSquare(sq.File(), 7)
		if s.us == board.Black {
			push = board.NewSquare(sq.File(), 0)
		}
		canPush := s.b.IsEmpty(push)
		canTake := board.PawnAttacks(sq, s.us)&s.b.Occupied(s.them) != 0
		if !canPush && !canTake {
			continue
		}
		gain := board.Queen.Value() - board.Pawn.Value()
		facts = append(facts, Fact{
			Kind: Promotion, Square: sq, Piece: board.Pawn, Attacker: sq,
			Value: gain, Severity: severity(gain, 1), Token: "promotion",
		})
	}
	return facts
}

// trapped reports attacked enemy pieces with no safe square to go to.
func (s *scan) trapped(facts []Fact) []Fact {
	for _, p := range s.c.Pieces(s.them) {
		if p.Type == board.Pawn || p.Type == board.King || !s.c.IsAttacked(p.Square, s.us) {
			continue
		}
		if r, ok := see.BestCapture(s.b, s.c, p.Square, s.us); !ok || !r.Wins() {
			continue
		}
		escapes := s.c.AttacksFrom(p.Square) &^ s.b.Occupied(s.them)
		safe := false
		for escapes != 0 {
			sq := escapes.PopLSB()
			if s.safeFor(sq, p) {
				safe = true
				break
			}
		}
		if safe {
			continue
		}
		v := p.Type.Value()
		facts = append(facts, Fact{
			Kind: TrappedPiece, Square: p.Square, Piece: p.Type, Attacker: board.NoSquare,
			Value: v, Severity: severity(v, 1), Token: "trapped:" + p.Type.Name(),
		})
	}
	return facts
}

// safeFor reports whether an enemy piece of type pt could stand on sq
// without being won: either us does not attack it, or only with pieces
// worth about as much or more while the opponent defends it.
func (s *scan) safeFor(sq board.Square, p poscache.PieceInfo) bool {
	pt := p.Type
	attackers := s.c.AttackersBB(sq, s.us)
	if attackers == 0 {
		return true
	}
	if s.b.PieceAt(sq) != board.NoPiece && pt.Value()-s.b.PieceAt(sq).Type().Value() < see.TradeMargin {
		return true
	}
	for attackers != 0 {
		if pt.Value()-s.b.PieceAt(attackers.PopLSB()).Type().Value() >= see.TradeMargin {
			return false
		}
	}
	// Defenders other than the piece itself.
	return s.c.AttackersBB(sq, s.them)&^board.SquareBB(p.Square) != 0
}

// protected reports attacked pieces of us that the opponent cannot win.
func (s *scan) protected(facts []Fact) []Fact {
	for _, p := range s.c.Pieces(s.us) {
		if p.Type == board.King || !s.c.IsAttacked(p.Square, s.them) || !s.defended(p.Square, s.us) {
			continue
		}
		if r, ok := see.BestCapture(s.b, s.c, p.Square, s.them); ok && r.Wins() {
			continue
		}
		v := p.Type.Value()
		facts = append(facts, Fact{
			Kind: ProtectPiece, Square: p.Square, Piece: p.Type, Attacker: board.NoSquare,
			Value: v, Severity: severity(v, 1),
			Squares: s.c.Attackers(p.Square, s.us), Token: "protected:" + p.Type.Name(),
		})
	}
	return facts
}

// blocks reports pieces of us standing between an enemy slider and a more
// valuable piece of us, without being lost themselves.
func (s *scan) blocks(facts []Fact) []Fact {
	for _, x := range s.c.XRays(s.them) {
		front, back := s.b.PieceAt(x.Blocker), s.b.PieceAt(x.Behind)
		if front.Color() != s.us || back.Color() != s.us || front.Type() == board.King {
			continue
		}
		if exposure(back.Type()) <= exposure(front.Type()) {
			continue
		}
		if r, ok := see.BestCapture(s.b, s.c, x.Blocker, s.them); ok && r.Wins() {
			continue
		}
		v := exposure(back.Type())
		facts = append(facts, Fact{
			Kind: BlockAttack, Square: x.Blocker, Piece: front.Type(), Attacker: x.Slider,
			Value: v, Severity: severity(v, 2),
			Squares: []board.Square{x.Behind}, Targets: []board.PieceType{back.Type()},
			Token: "block",
		})
	}
	return facts
}

// dedupe keeps the most severe fact per (kind, square).
func dedupe(facts []Fact) []Fact {
	index := make(map[factKey]int, len(facts))
	out := facts[:0]
	for _, f := range facts {
		if i, ok := index[f.key()]; ok {
			if f.Severity > out[i].Severity {
				out[i] = f
			}
			continue
		}
		index[f.key()] = len(out)
		out = append(out, f)
	}
	return out
}
