package tactics

import (
	"sort"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/poscache"
	"github.com/hailam/chessmentor/internal/see"
)

// Report holds the facts a move creates, from the mover's point of view.
type Report struct {
	Move     board.Move
	Mover    board.Color
	Threats  []Fact // at most 3, most severe first
	Defenses []Fact // at most 2, most severe first
	After    board.Board
}

// Detect compares the facts of b before and after m and reports only those
// the move created. Moves that are not legal on b return an
// *errors.IllegalMoveError.
func Detect(b *board.Board, m board.Move) (Report, error) {
	before := poscache.Acquire(b)
	defer poscache.Release(before)
	return DetectWithCache(b, before, m)
}

// DetectWithCache is Detect reusing a cache already built for b.
func DetectWithCache(b *board.Board, c *poscache.Cache, m board.Move) (Report, error) {
	us := b.SideToMove()
	after, err := b.ApplyMove(m)
	if err != nil {
		return Report{}, err
	}
	if after.IsAttacked(after.KingSquare(us), us.Other()) {
		return Report{}, &errors.IllegalMoveError{Move: m.String(), FEN: b.ToFEN(), Reason: "leaves king in check"}
	}
	if !c.Valid(b) {
		c = poscache.Build(b)
	}

	ac := poscache.Acquire(&after)
	defer poscache.Release(ac)

	old := make(map[factKey]bool)
	for _, f := range Facts(b, c, us) {
		old[f.key()] = true
	}

	found := Facts(&after, ac, us)
	found = append(found, contextual(b, c, &after, ac, m)...)
	found = dedupe(found)

	r := Report{Move: m, Mover: us, After: after}
	for _, f := range found {
		if old[f.key()] {
			continue
		}
		if f.Kind.IsDefense() {
			r.Defenses = append(r.Defenses, f)
		} else {
			r.Threats = append(r.Threats, f)
		}
	}
	r.Threats = top(r.Threats, maxThreats)
	r.Defenses = top(r.Defenses, maxDefenses)
	return r, nil
}

// top sorts facts by severity and keeps the first n.
func top(facts []Fact, n int) []Fact {
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Severity > facts[j].Severity
	})
	if len(facts) > n {
		facts = facts[:n]
	}
	return facts
}

// contextual derives facts that depend on the move itself rather than on
// either position alone.
func contextual(b *board.Board, bc *poscache.Cache, after *board.Board, ac *poscache.Cache, m board.Move) []Fact {
	us := b.SideToMove()
	them := us.Other()
	from, to := m.From(), m.To()
	moved := b.PieceAt(from).Type()
	var facts []Fact

	// Sliders whose line opened through the origin square.
	for _, x := range ac.Pieces(us) {
		if x.Square == to || (x.Type != board.Bishop && x.Type != board.Rook && x.Type != board.Queen) {
			continue
		}
		gained := ac.AttacksFrom(x.Square) &^ bc.AttacksFrom(x.Square) & after.Occupied(them)
		for gained != 0 {
			sq := gained.PopLSB()
			if !board.Between(x.Square, sq).IsSet(from) {
				continue
			}
			pt := after.PieceAt(sq).Type()
			if pt == board.Pawn {
				continue
			}
			v := exposure(pt)
			facts = append(facts, Fact{
				Kind: DiscoveredAttack, Square: sq, Piece: pt, Attacker: x.Square,
				Value: v, Severity: severity(v, 2),
				Squares: []board.Square{from}, Token: "discovered:" + x.Type.Name(),
			})
		}
	}

	if m.IsPromotion() {
		v := m.Promotion().Value() - board.Pawn.Value()
		facts = append(facts, Fact{
			Kind: Promotion, Square: to, Piece: m.Promotion(), Attacker: from,
			Value: v, Severity: severity(v, 1), Token: "promotes:" + m.Promotion().Name(),
		})
	}

	// A piece that was en prise and is safe on its new square escaped.
	if moved != board.King && bc.IsAttacked(from, them) {
		if r, ok := see.BestCapture(b, bc, from, them); ok && r.Wins() {
			if r2, ok := see.BestCapture(after, ac, to, them); !ok || !r2.Wins() {
				v := moved.Value()
				facts = append(facts, Fact{
					Kind: Escape, Square: to, Piece: moved, Attacker: board.NoSquare,
					Value: v, Severity: severity(v, 1),
					Squares: []board.Square{from}, Token: "escape:" + moved.Name(),
				})
			}
		}
	}

	switch {
	case b.InCheck():
		kind, token := ProtectKing, "evades"
		checkers := b.Checkers()
		if moved != board.King && checkers.PopCount() == 1 && board.Between(checkers.LSB(), b.KingSquare(us)).IsSet(to) {
			kind, token = BlockAttack, "blocks-check"
		}
		facts = append(facts, Fact{
			Kind: kind, Square: to, Piece: moved, Attacker: board.NoSquare,
			Value: kingExposure, Severity: checkSeverity, Token: token,
		})
	case moved == board.King && (to.File()-from.File() == 2 || from.File()-to.File() == 2):
		facts = append(facts, Fact{
			Kind: ProtectKing, Square: to, Piece: board.King, Attacker: board.NoSquare,
			Severity: checkSeverity / 2, Token: "castles",
		})
	}
	return facts
}
