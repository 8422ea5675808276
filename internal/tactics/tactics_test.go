package tactics

import (
	stderrors "errors"
	"testing"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/poscache"
)

func findFact(facts []Fact, kind Kind, sq board.Square) (Fact, bool) {
	for _, f := range facts {
		if f.Kind == kind && f.Square == sq {
			return f, true
		}
	}
	return Fact{}, false
}

func detect(t *testing.T, fen, uci string) Report {
	t.Helper()
	b := board.MustFEN(fen)
	m, err := board.ParseUCI(uci, &b)
	if err != nil {
		t.Fatalf("ParseUCI(%s): %v", uci, err)
	}
	r, err := Detect(&b, m)
	if err != nil {
		t.Fatalf("Detect(%s): %v", uci, err)
	}
	return r
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		move    string
		kind    Kind
		square  board.Square
		token   string
		defense bool
	}{
		{"knight fork", "r3k3/8/8/1N6/8/8/8/4K3 w - - 0 1", "b5c7", Fork, board.C7, "fork:knight", false},
		{"absolute pin", "4k3/8/2n5/8/8/8/8/4KB2 w - - 0 1", "f1b5", Pin, board.C6, "pin:absolute", false},
		{"check", "4k3/8/8/8/8/8/r7/4K2Q w - - 0 1", "h1h8", Check, board.E8, "check", false},
		{"back rank mate", "6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1", "a1a8", CheckmateThreat, board.G8, "checkmate", false},
		{"promotion", "4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", "b7b8q", Promotion, board.B8, "promotes:queen", false},
		{"escape", "4k3/8/8/3p4/4N3/8/8/4K3 w - - 0 1", "e4c3", Escape, board.C3, "escape:knight", true},
		{"castling", "4k3/8/8/8/8/8/8/4K2R w K - 0 1", "e1g1", ProtectKing, board.G1, "castles", true},
		{"discovered attack", "3qk3/8/8/8/3N4/8/8/3RK3 w - - 0 1", "d4f5", DiscoveredAttack, board.D8, "discovered:rook", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := detect(t, tt.fen, tt.move)
			facts := r.Threats
			if tt.defense {
				facts = r.Defenses
			}
			f, ok := findFact(facts, tt.kind, tt.square)
			if !ok {
				t.Fatalf("no %s on %s; threats %+v defenses %+v", tt.kind, tt.square, r.Threats, r.Defenses)
			}
			if f.Token != tt.token {
				t.Errorf("Token = %q, want %q", f.Token, tt.token)
			}
			if f.Describe() == "" {
				t.Error("empty description")
			}
		})
	}
}

func TestForkTargets(t *testing.T) {
	r := detect(t, "r3k3/8/8/1N6/8/8/8/4K3 w - - 0 1", "b5c7")
	f, ok := findFact(r.Threats, Fork, board.C7)
	if !ok {
		t.Fatal("fork not reported")
	}
	if len(f.Squares) != 2 || f.Value != board.Rook.Value() {
		t.Errorf("fork targets %v value %d, want two targets worth a rook", f.Squares, f.Value)
	}
	if want := "the knight on c7 forks the rook on a8 and the king on e8"; f.Describe() != want {
		t.Errorf("Describe() = %q, want %q", f.Describe(), want)
	}
}

func TestForkRequiresSurvivingForker(t *testing.T) {
	// The knight lands on a square the b8 bishop covers.
	r := detect(t, "rb2k3/8/8/1N6/8/8/8/4K3 w - - 0 1", "b5c7")
	if _, ok := findFact(r.Threats, Fork, board.C7); ok {
		t.Error("fork reported for a knight that is simply lost")
	}
}

func TestPreexistingFactsNotReported(t *testing.T) {
	// The queen already attacks the loose rook; a king move changes nothing.
	r := detect(t, "r3k3/8/8/8/8/8/8/Q3K3 w - - 0 1", "e1e2")
	if _, ok := findFact(r.Threats, HangingPiece, board.A8); ok {
		t.Error("existing hanging rook reported as new")
	}
}

func TestDetectNeverRepeatsBeforeFacts(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
		"4k3/1P6/8/3p4/4N3/8/6q1/4K2R w K - 0 1",
	}
	for _, fen := range fens {
		b := board.MustFEN(fen)
		c := poscache.Build(&b)
		old := make(map[factKey]bool)
		for _, f := range Facts(&b, c, b.SideToMove()) {
			old[f.key()] = true
		}
		for _, m := range b.LegalMoves() {
			r, err := DetectWithCache(&b, c, m)
			if err != nil {
				t.Fatalf("%s %s: %v", fen, m, err)
			}
			if len(r.Threats) > maxThreats || len(r.Defenses) > maxDefenses {
				t.Errorf("%s %s: %d threats, %d defenses exceed caps", fen, m, len(r.Threats), len(r.Defenses))
			}
			for _, f := range append(r.Threats, r.Defenses...) {
				if old[f.key()] {
					t.Errorf("%s %s: pre-existing %s on %s reported", fen, m, f.Kind, f.Square)
				}
			}
			for i := 1; i < len(r.Threats); i++ {
				if r.Threats[i].Severity > r.Threats[i-1].Severity {
					t.Errorf("%s %s: threats not sorted by severity", fen, m)
				}
			}
		}
	}
}

func TestDetectIllegal(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move board.Move
	}{
		{"pinned knight", "4r1k1/8/8/8/8/8/4N3/4K3 w - - 0 1", board.NewMove(board.E2, board.C3)},
		{"empty origin", board.StartFEN, board.NewMove(board.E4, board.E5)},
		{"king into check", "4k3/8/8/8/8/8/3r4/4K3 w - - 0 1", board.NewMove(board.E1, board.E2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board.MustFEN(tt.fen)
			_, err := Detect(&b, tt.move)
			var ime *errors.IllegalMoveError
			if !stderrors.As(err, &ime) || !stderrors.Is(err, errors.ErrIllegalMove) {
				t.Errorf("Detect error = %v, want IllegalMoveError", err)
			}
		})
	}
}

func TestFactsRelativePin(t *testing.T) {
	// Rook pins the knight to an undefended queen.
	b := board.MustFEN("3qk3/8/8/3n4/8/8/8/3RK3 w - - 0 1")
	facts := Facts(&b, nil, board.White)
	f, ok := findFact(facts, Pin, board.D5)
	if !ok || f.Token != "pin:relative" {
		t.Errorf("relative pin not found: %+v", facts)
	}
}

func TestFactsSkewer(t *testing.T) {
	// Bishop checks the king with the rook behind it on the diagonal.
	b := board.MustFEN("8/8/5r2/4k3/8/8/1B6/4K3 b - - 0 1")
	facts := Facts(&b, nil, board.White)
	if _, ok := findFact(facts, Skewer, board.F6); !ok {
		t.Errorf("skewer not found: %+v", facts)
	}
}

func TestFactsProtectAndBlock(t *testing.T) {
	// The e4 knight is attacked by the rook and defended by the d3 pawn; the
	// e2 bishop shields the king from the same rook.
	b := board.MustFEN("4r1k1/8/8/8/4N3/3P4/4B3/4K3 w - - 0 1")
	facts := Facts(&b, nil, board.White)
	if _, ok := findFact(facts, ProtectPiece, board.E4); !ok {
		t.Errorf("protected knight not found: %+v", facts)
	}

	b = board.MustFEN("4r1k1/8/8/8/8/8/4B3/4K3 w - - 0 1")
	facts = Facts(&b, nil, board.White)
	if _, ok := findFact(facts, BlockAttack, board.E2); !ok {
		t.Errorf("blocking bishop not found: %+v", facts)
	}
}

func TestFactsTrapped(t *testing.T) {
	// The bishop attacks the a8 knight, whose only squares hold defended pawns.
	b := board.MustFEN("n3k3/2P5/1P6/P7/8/5B2/8/4K3 w - - 0 1")
	facts := Facts(&b, nil, board.White)
	if _, ok := findFact(facts, TrappedPiece, board.A8); !ok {
		t.Errorf("trapped knight not found: %+v", facts)
	}
}

func TestKindString(t *testing.T) {
	if Fork.String() != "fork" || !Escape.IsDefense() || Check.IsDefense() {
		t.Error("kind metadata wrong")
	}
}

func TestMinorPiecesAreNotWonByMinorPieces(t *testing.T) {
	// Ne5 hits the d7 rook and the f7 bishop, both covered by the king.
	// Taking the bishop only swaps minor pieces.
	r := detect(t, "4k3/3r1b2/8/8/2N5/8/8/K7 w - - 0 1", "c4e5")
	if f, ok := findFact(r.Threats, Fork, board.E5); ok {
		t.Errorf("fork reported: %s", f.Describe())
	}
	for _, f := range r.Threats {
		if f.Square == board.F7 {
			t.Errorf("defended bishop reported as won: %s (value %d)", f.Describe(), f.Value)
		}
	}
	if f, ok := findFact(r.Threats, MaterialWin, board.D7); !ok || f.Value != 180 {
		t.Errorf("winning the rook for the knight not reported: %+v", r.Threats)
	}

	// With the king away from both pieces the fork is real.
	r = detect(t, "7k/3r1b2/8/8/2N5/8/8/K7 w - - 0 1", "c4e5")
	if _, ok := findFact(r.Threats, Fork, board.E5); !ok {
		t.Errorf("fork of loose rook and bishop not reported: %+v", r.Threats)
	}
}
