package see

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/poscache"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		fen      string
		target   board.Square
		from     board.Square
		white    bool
		want     int
		captures int
	}{
		{
			name:   "undefended rook",
			fen:    "7k/4r3/8/5N2/8/8/8/4K3 w - - 0 1",
			target: board.E7, from: board.F5, white: true,
			want: 500, captures: 1,
		},
		{
			name:   "rook takes defended pawn",
			fen:    "4k3/2p5/3p4/8/8/8/8/3RK3 w - - 0 1",
			target: board.D6, from: board.D1, white: true,
			want: -400, captures: 2,
		},
		{
			name:   "doubled rooks x-ray",
			fen:    "3rk3/8/3p4/8/8/8/3R4/3RK3 w - - 0 1",
			target: board.D6, from: board.D2, white: true,
			want: 100, captures: 3,
		},
		{
			name:   "pinned defender cannot recapture",
			fen:    "8/4k3/5n2/3p2B1/8/8/8/3RK3 w - - 0 1",
			target: board.D5, from: board.D1, white: true,
			want: 100, captures: 1,
		},
		{
			name:   "king takes undefended pawn",
			fen:    "4k3/8/8/8/8/8/4p3/4K3 w - - 0 1",
			target: board.E2, from: board.E1, white: true,
			want: 100, captures: 1,
		},
		{
			name:   "capture with promotion",
			fen:    "r3k3/1P6/8/8/8/8/8/4K3 w - - 0 1",
			target: board.A8, from: board.B7, white: true,
			want: 1300, captures: 1,
		},
		{
			name:   "black initiates",
			fen:    "4k3/8/8/8/3n4/8/2P1P3/4K3 b - - 0 1",
			target: board.C2, from: board.D4, white: false,
			want: 100, captures: 1,
		},
		{
			name:   "knight takes pawn defended by king",
			fen:    "4k3/8/8/8/3n4/8/2P1P3/4K3 b - - 0 1",
			target: board.E2, from: board.D4, white: false,
			want: 100 - 320, captures: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board.MustFEN(tt.fen)
			r, ok := Evaluate(&b, tt.target, tt.from, tt.white)
			if !ok {
				t.Fatal("Evaluate returned no result")
			}
			if r.Balance != tt.want {
				t.Errorf("Balance = %d, want %d (captures %+v)", r.Balance, tt.want, r.Captures)
			}
			if len(r.Captures) != tt.captures {
				t.Errorf("len(Captures) = %d, want %d", len(r.Captures), tt.captures)
			}
			if r.Captures[0].From != tt.from {
				t.Errorf("first capture from %s, want %s", r.Captures[0].From, tt.from)
			}
		})
	}
}

func TestEvaluateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		target board.Square
		from   board.Square
		white  bool
	}{
		{"empty target", board.StartFEN, board.E4, board.E2, true},
		{"own piece", board.StartFEN, board.D2, board.E1, true},
		{"wrong color attacker", "7k/4r3/8/5N2/8/8/8/4K3 w - - 0 1", board.E7, board.F5, false},
		{"does not attack", "7k/4r3/8/4N3/8/8/8/4K3 w - - 0 1", board.E7, board.E5, true},
		{"king onto defended square", "4k3/8/8/8/8/3p4/4p3/4K3 w - - 0 1", board.E2, board.E1, true},
		{"in check from elsewhere", "4r2k/8/8/3p4/8/2N5/8/4K3 w - - 0 1", board.D5, board.C3, true},
		{"pinned off the line", "4r2k/8/8/8/3p4/8/4N3/4K3 w - - 0 1", board.D4, board.E2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board.MustFEN(tt.fen)
			if r, ok := Evaluate(&b, tt.target, tt.from, tt.white); ok {
				t.Errorf("expected no result, got %+v", r)
			}
		})
	}
}

func TestEvaluateMove(t *testing.T) {
	b := board.MustFEN("4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")
	r, ok := EvaluateMove(&b, board.NewEnPassant(board.E5, board.D6))
	if !ok || r.Balance != 100 {
		t.Errorf("en passant: got %+v, %v; want balance 100", r, ok)
	}

	quiet := board.MustFEN(board.StartFEN)
	if _, ok := EvaluateMove(&quiet, board.NewMove(board.G1, board.F3)); ok {
		t.Error("quiet move should not produce an exchange")
	}
}

func TestColorSymmetry(t *testing.T) {
	fens := []string{
		"7k/4r3/8/5N2/8/8/8/4K3 w - - 0 1",
		"4k3/2p5/3p4/8/8/8/8/3RK3 w - - 0 1",
		"3rk3/8/3p4/8/8/8/3R4/3RK3 w - - 0 1",
		"8/4k3/5n2/3p2B1/8/8/8/3RK3 w - - 0 1",
	}
	for _, fen := range fens {
		b := board.MustFEN(fen)
		m := b.Mirror()
		for _, mv := range b.LegalMoves() {
			r, ok := EvaluateMove(&b, mv)
			if !ok {
				continue
			}
			mirrored := board.NewMove(mv.From().Mirror(), mv.To().Mirror())
			mr, mok := EvaluateMove(&m, mirrored)
			if !mok {
				t.Fatalf("%s: mirrored %s has no result", fen, mirrored)
			}
			if r.Balance != mr.Balance || r.ForWhite() != -mr.ForWhite() {
				t.Errorf("%s %s: balance %d/%d, mirrored %d/%d", fen, mv, r.Balance, r.ForWhite(), mr.Balance, mr.ForWhite())
			}
		}
	}
}

func TestIdempotent(t *testing.T) {
	b := board.MustFEN("3rk3/8/3p4/8/8/8/3R4/3RK3 w - - 0 1")
	before := b.ToFEN()
	first, _ := Evaluate(&b, board.D6, board.D2, true)
	second, _ := Evaluate(&b, board.D6, board.D2, true)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}
	if b.ToFEN() != before {
		t.Error("Evaluate modified the board")
	}
}

func TestBestCapture(t *testing.T) {
	b := board.MustFEN("4k3/2p5/3p4/4P3/8/8/8/3QK3 w - - 0 1")
	c := poscache.Build(&b)
	r, ok := BestCapture(&b, c, board.D6, board.White)
	if !ok {
		t.Fatal("no capture found")
	}
	if r.Balance != 100 || r.Captures[0].From != board.E5 {
		t.Errorf("BestCapture = %+v, want pawn capture worth 100", r)
	}
	if _, ok := BestCapture(&b, c, board.C7, board.White); ok {
		t.Error("c7 is not attacked by White")
	}
}

func TestBestCaptureRevealsXRays(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		target  board.Square
		color   board.Color
		balance int
		swaps   int
	}{
		{"rook behind rook", "3r3k/8/8/3p4/8/8/3R4/K2R4 w - - 0 1", board.D5, board.White, 100, 3},
		{"queen behind bishop", "6k1/5p2/4p3/8/2B5/1Q6/8/K7 w - - 0 1", board.E6, board.White, -130, 3},
		{"batteries on both sides", "3r2k1/3r4/8/3p4/8/8/3R4/K2R4 w - - 0 1", board.D5, board.White, -400, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board.MustFEN(tt.fen)
			r, ok := BestCapture(&b, poscache.Build(&b), tt.target, tt.color)
			if !ok {
				t.Fatal("no capture found")
			}
			if r.Balance != tt.balance || len(r.Captures) != tt.swaps {
				t.Errorf("Balance %d with %d captures, want %d with %d (%+v)", r.Balance, len(r.Captures), tt.balance, tt.swaps, r.Captures)
			}
		})
	}
}

func TestCachedAttackersMatchRescan(t *testing.T) {
	fens := []string{
		"3rk3/8/3p4/8/8/8/3R4/3RK3 w - - 0 1",
		"8/4k3/5n2/3p2B1/8/8/8/3RK3 w - - 0 1",
		"3r3k/8/8/3p4/8/8/3R4/K2R4 w - - 0 1",
		"r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
		"r2q1rk1/pb1nbppp/1p2pn2/2pp4/2PP4/1PN1PN2/PB2BPPP/R2Q1RK1 w - - 0 10",
		"2r3k1/1q3ppp/4b3/3p4/3P4/2Q1B3/5PPP/2R3K1 b - - 0 1",
	}
	for _, fen := range fens {
		b := board.MustFEN(fen)
		c := poscache.Build(&b)
		for sq := board.A1; sq <= board.H8; sq++ {
			for _, color := range []board.Color{board.White, board.Black} {
				got, gotOK := BestCapture(&b, c, sq, color)
				want, wantOK := rescanBestCapture(&b, c, sq, color)
				if gotOK != wantOK {
					t.Errorf("%s %s by %v: ok = %v, want %v", fen, sq, color, gotOK, wantOK)
					continue
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("%s %s by %v (-rescan +cached):\n%s", fen, sq, color, diff)
				}
			}
		}
	}
}

// rescanBestCapture is BestCapture with every step scanning the board.
func rescanBestCapture(b *board.Board, c *poscache.Cache, target board.Square, color board.Color) (Result, bool) {
	var best Result
	found := false
	for attackers := c.AttackersBB(target, color); attackers != 0; {
		from := attackers.PopLSB()
		r, ok := Evaluate(b, target, from, color == board.White)
		if ok && (!found || r.Balance > best.Balance) {
			best, found = r, true
		}
	}
	return best, found
}

func TestMinorPieceSwapIsEven(t *testing.T) {
	tests := []struct {
		name        string
		fen         string
		from, to    board.Square
		balance     int
		wins, loses bool
	}{
		{"knight takes bishop", "4k3/1p1p4/2b5/8/3N4/8/8/4K3 w - - 0 1", board.D4, board.C6, 10, false, false},
		{"bishop takes knight", "4k3/1p1p4/2n5/8/4B3/8/8/4K3 w - - 0 1", board.E4, board.C6, -10, false, false},
		{"knight takes rook", "4k3/1p1p4/2r5/8/3N4/8/8/4K3 w - - 0 1", board.D4, board.C6, 180, true, false},
		{"rook takes knight", "4k3/1p1p4/2n5/8/8/8/8/2R1K3 w - - 0 1", board.C1, board.C6, -180, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board.MustFEN(tt.fen)
			r, ok := EvaluateMove(&b, board.NewMove(tt.from, tt.to))
			if !ok {
				t.Fatal("no exchange")
			}
			if r.Balance != tt.balance || r.Wins() != tt.wins || r.Loses() != tt.loses {
				t.Errorf("Balance %d Wins %v Loses %v, want %d %v %v", r.Balance, r.Wins(), r.Loses(), tt.balance, tt.wins, tt.loses)
			}
		})
	}
}
