package board

import (
	stderrors "errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/chessmentor/internal/errors"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 12 40",
		"4k3/8/8/8/8/8/8/4K2R b K - 3 17",
	}
	for _, fen := range fens {
		b, err := FromFEN(fen)
		if err != nil {
			t.Fatalf("FromFEN(%q): %v", fen, err)
		}
		if got := b.ToFEN(); got != fen {
			t.Errorf("round trip mismatch\n got  %s\n want %s", got, fen)
		}
	}
}

func TestFENOptionalCounters(t *testing.T) {
	b, err := FromFEN("8/8/8/4k3/8/8/8/4K3 w - -")
	if err != nil {
		t.Fatal(err)
	}
	if b.HalfmoveClock() != 0 || b.FullmoveNumber() != 1 {
		t.Errorf("counters = %d/%d, want 0/1", b.HalfmoveClock(), b.FullmoveNumber())
	}
}

func TestFENErrorsNameTheField(t *testing.T) {
	tests := []struct {
		fen   string
		field string
	}{
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1", "placement"},
		{"rnbqkbnr/ppppxppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "placement"},
		{"rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "placement"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1", "side"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq - 0 1", "castling"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KKq - 0 1", "castling"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1", "en passant"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1", "halfmove"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0", "fullmove"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w", "fields"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := FromFEN(tt.fen)
			if !stderrors.Is(err, errors.ErrInvalidFEN) {
				t.Fatalf("FromFEN(%q) error = %v, want ErrInvalidFEN", tt.fen, err)
			}
			var pe *errors.ParseError
			if !stderrors.As(err, &pe) || pe.Field != tt.field {
				t.Errorf("field = %v, want %q", pe, tt.field)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		valid bool
	}{
		{"start", StartFEN, true},
		{"missing black king", "8/8/8/8/8/8/8/4K3 w - - 0 1", false},
		{"two white kings", "4k3/8/8/8/8/8/8/3KK3 w - - 0 1", false},
		{"pawn on back rank", "4k2P/8/8/8/8/8/8/4K3 w - - 0 1", false},
		{"side not to move in check", "4k3/8/8/8/8/8/8/4R1K1 w - - 0 1", false},
		{"side to move in check", "4k3/8/8/8/8/8/8/4R1K1 b - - 0 1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := MustFEN(tt.fen)
			err := b.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !stderrors.Is(err, errors.ErrInvalidPosition) {
				t.Errorf("Validate() = %v, want ErrInvalidPosition", err)
			}
		})
	}
}

func TestApplyMoveDoesNotMutate(t *testing.T) {
	b := New()
	before := b.ToFEN()
	next, err := b.ApplyUCI("e2e4")
	if err != nil {
		t.Fatal(err)
	}
	if b.ToFEN() != before {
		t.Errorf("receiver changed to %s", b.ToFEN())
	}
	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	if got := next.ToFEN(); got != want {
		t.Errorf("after e2e4 = %s, want %s", got, want)
	}
}

func TestApplyMoveSpecialMoves(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want string
	}{
		{
			"white castles short",
			"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1",
			"r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1",
		},
		{
			"black castles long",
			"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8c8",
			"2kr3r/8/8/8/8/8/8/R3K2R w KQ - 1 2",
		},
		{
			"en passant",
			"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2", "e5d6",
			"4k3/8/3P4/8/8/8/8/4K3 b - - 0 2",
		},
		{
			"underpromotion with capture",
			"1r2k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7b8n",
			"1N2k3/8/8/8/8/8/8/4K3 b - - 0 1",
		},
		{
			"rook capture removes castling right",
			"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "a1a8",
			"R3k2r/8/8/8/8/8/8/4K2R b Kk - 0 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := MustFEN(tt.fen)
			next, err := b.ApplyUCI(tt.move)
			if err != nil {
				t.Fatalf("ApplyUCI(%s): %v", tt.move, err)
			}
			if got := next.ToFEN(); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
			if next.ZobristHash() != next.ComputeHash() {
				t.Errorf("incremental hash %x != scratch hash %x", next.ZobristHash(), next.ComputeHash())
			}
		})
	}
}

func TestApplyMoveRejectsIllegal(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
	}{
		{"empty origin", StartFEN, "e3e4"},
		{"wrong color", StartFEN, "e7e5"},
		{"own piece on target", StartFEN, "d1d2"},
		{"knight geometry", StartFEN, "g1g3"},
		{"blocked slider", StartFEN, "f1c4"},
		{"pawn triple push", StartFEN, "e2e5"},
		{"pawn diagonal without capture", StartFEN, "e2d3"},
		{"pawn push into piece", "4k3/8/8/8/8/4p3/4P3/4K3 w - - 0 1", "e2e3"},
		{"missing promotion", "4k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7a8"},
		{"castle without right", "r3k2r/8/8/8/8/8/8/R3K2R w Qkq - 0 1", "e1g1"},
		{"castle through check", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1", "e1g1"},
		{"castle out of check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1", "e1c1"},
		{"castle blocked", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", "e1c1"},
		{"capture king", "4k3/8/8/8/8/8/8/3KR3 w - - 0 1", "e1e8"},
		{"en passant without right", "4k3/8/8/3pP3/8/8/8/4K3 w - - 0 2", "e5d6"},
		{"malformed", StartFEN, "e2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := MustFEN(tt.fen)
			_, err := b.ApplyUCI(tt.move)
			if !stderrors.Is(err, errors.ErrIllegalMove) {
				t.Errorf("ApplyUCI(%s) error = %v, want ErrIllegalMove", tt.move, err)
			}
		})
	}
}

func TestApplyMoveAllowsSelfCheck(t *testing.T) {
	// The knight is pinned; ApplyMove accepts it, the legality helpers do not.
	b := MustFEN("4r1k1/8/8/8/8/8/4N3/4K3 w - - 0 1")
	m, err := ParseUCI("e2c3", &b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.ApplyMove(m); err != nil {
		t.Fatalf("ApplyMove rejected a pseudo-legal move: %v", err)
	}
	if !b.LeavesKingInCheck(m) {
		t.Error("LeavesKingInCheck = false for a pinned knight")
	}
	if b.IsLegal(m) {
		t.Error("IsLegal = true for a pinned knight")
	}
}

func TestIncrementalHashMatchesScratch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 50; game++ {
		b := New()
		for ply := 0; ply < 80; ply++ {
			moves := b.LegalMoves()
			if len(moves) == 0 {
				break
			}
			m := moves[rng.Intn(len(moves))]
			next, err := b.ApplyMove(m)
			if err != nil {
				t.Fatalf("game %d ply %d: %v", game, ply, err)
			}
			if next.ZobristHash() != next.ComputeHash() {
				t.Fatalf("game %d ply %d after %s: hash drift\n%s", game, ply, m, next.ToFEN())
			}
			reparsed := MustFEN(next.ToFEN())
			if reparsed.ZobristHash() != next.ZobristHash() {
				t.Fatalf("game %d ply %d: FEN round trip changed hash", game, ply)
			}
			b = next
		}
	}
}

func TestApplyUndoRoundTrip(t *testing.T) {
	// Applying a move never touches the source board, so "undo" is keeping it.
	b := MustFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	fen, hash := b.ToFEN(), b.ZobristHash()
	for _, m := range b.LegalMoves() {
		if _, err := b.ApplyMove(m); err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if b.ToFEN() != fen || b.ZobristHash() != hash {
			t.Fatalf("board changed after applying %s", m)
		}
	}
}

func TestMirror(t *testing.T) {
	b := MustFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	m := b.Mirror()
	want := "r3k2r/pppbbppp/2n2q1P/1P2p3/3pn3/BN2PNP1/P1PPQPB1/R3K2R b KQkq - 0 1"
	if got := m.ToFEN(); got != want {
		t.Errorf("Mirror() = %s, want %s", got, want)
	}
	back := m.Mirror()
	if back.ToFEN() != b.ToFEN() {
		t.Errorf("double mirror = %s", back.ToFEN())
	}
	if len(m.LegalMoves()) != len(b.LegalMoves()) {
		t.Errorf("mirrored move count %d != %d", len(m.LegalMoves()), len(b.LegalMoves()))
	}
}

func TestCounts(t *testing.T) {
	b := New()
	if got := b.NonKingPieceCount(); got != 30 {
		t.Errorf("NonKingPieceCount() = %d, want 30", got)
	}
	if got := b.MaterialCount(White); got != 8*100+2*320+2*330+2*500+900 {
		t.Errorf("MaterialCount(White) = %d", got)
	}
	if got := b.KingSquare(Black); got != E8 {
		t.Errorf("KingSquare(Black) = %s", got)
	}
}

func TestRays(t *testing.T) {
	tests := []struct {
		name string
		got  []Square
		want []Square
	}{
		{"between a1 h8", Between(A1, H8).Squares(), []Square{B2, C3, D4, E5, F6, G7}},
		{"between h1 a1", Between(H1, A1).Squares(), []Square{B1, C1, D1, E1, F1, G1}},
		{"between unaligned", Between(A1, B3).Squares(), []Square{}},
		{"rook d4 blocked", RookAttacks(D4, SquareBB(D6)|SquareBB(B4)).Squares(),
			[]Square{D1, D2, D3, B4, C4, E4, F4, G4, H4, D5, D6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if sq := FirstBlocker(South, E8, SquareBB(E2)|SquareBB(E5)); sq != E5 {
		t.Errorf("FirstBlocker(South) = %s, want e5", sq)
	}
	if sq := FirstBlocker(NorthEast, A1, SquareBB(G7)|SquareBB(C3)); sq != C3 {
		t.Errorf("FirstBlocker(NorthEast) = %s, want c3", sq)
	}
	if d := DirectionTo(H8, A1); d != SouthWest {
		t.Errorf("DirectionTo(h8, a1) = %d, want SouthWest", d)
	}
}

func TestSAN(t *testing.T) {
	tests := []struct {
		fen  string
		uci  string
		want string
	}{
		{StartFEN, "g1f3", "Nf3"},
		{StartFEN, "e2e4", "e4"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "O-O"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1", "O-O-O"},
		{"4k3/8/8/8/8/8/8/R3K2R w K - 0 1", "a1a8", "Ra8+"},
		{"6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1", "a1a8", "Ra8#"},
		{"4k3/8/8/8/8/8/8/R4RK1 w - - 0 1", "f1d1", "Rfd1"},
		{"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2", "e5d6", "exd6"},
		{"4k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7a8q", "a8=Q+"},
	}
	for _, tt := range tests {
		b := MustFEN(tt.fen)
		m, err := ParseUCI(tt.uci, &b)
		if err != nil {
			t.Fatal(err)
		}
		if got := m.SAN(&b); got != tt.want {
			t.Errorf("SAN(%s) = %q, want %q", tt.uci, got, tt.want)
		}
		back, err := ParseSAN(tt.want, &b)
		if err != nil || back != m {
			t.Errorf("ParseSAN(%q) = %v, %v; want %v", tt.want, back, err, m)
		}
	}
}

func TestNullMove(t *testing.T) {
	b := MustFEN("rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2")
	nb, ok := b.NullMove()
	if !ok {
		t.Fatal("NullMove failed outside check")
	}
	if nb.SideToMove() != Black || nb.EnPassant() != NoSquare {
		t.Errorf("NullMove: side %s, en passant %s", nb.SideToMove(), nb.EnPassant())
	}
	if nb.ZobristHash() != nb.ComputeHash() {
		t.Error("NullMove hash differs from scratch hash")
	}

	check := MustFEN("4k3/8/8/8/8/8/8/4K2r w - - 0 1")
	if _, ok := check.NullMove(); ok {
		t.Error("NullMove should fail while in check")
	}
}
