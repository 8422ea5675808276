package board

import "testing"

// Reference keys published with the Polyglot book format.
func TestPolyglotKey(t *testing.T) {
	tests := []struct {
		name  string
		moves []string
		want  uint64
	}{
		{"start", nil, 0x463b96181691fc9c},
		{"e2e4", []string{"e2e4"}, 0x823c9b50fd114196},
		{"e2e4 d7d5", []string{"e2e4", "d7d5"}, 0x0756b94461c50fb0},
		{"e2e4 d7d5 e4e5", []string{"e2e4", "d7d5", "e4e5"}, 0x662fafb965db29d4},
		{"e2e4 d7d5 e4e5 f7f5", []string{"e2e4", "d7d5", "e4e5", "f7f5"}, 0x22a48b5a8e47ff78},
		{"e2e4 d7d5 e4e5 f7f5 e1e2", []string{"e2e4", "d7d5", "e4e5", "f7f5", "e1e2"}, 0x652a607ca3f242c1},
		{"e2e4 d7d5 e4e5 f7f5 e1e2 e8f7", []string{"e2e4", "d7d5", "e4e5", "f7f5", "e1e2", "e8f7"}, 0x00fdd303c946bdd9},
		{"a2a4 b7b5 h2h4 b5b4 c2c4", []string{"a2a4", "b7b5", "h2h4", "b5b4", "c2c4"}, 0x3c8123ea7b067637},
		{"a2a4 b7b5 h2h4 b5b4 c2c4 b4c3 a1a3", []string{"a2a4", "b7b5", "h2h4", "b5b4", "c2c4", "b4c3", "a1a3"}, 0x5c3f9b829b279560},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			for _, mv := range tt.moves {
				next, err := b.ApplyUCI(mv)
				if err != nil {
					t.Fatalf("ApplyUCI(%s): %v", mv, err)
				}
				b = next
			}
			if got := b.PolyglotKey(); got != tt.want {
				t.Errorf("PolyglotKey() = %#016x, want %#016x (%s)", got, tt.want, b.ToFEN())
			}
		})
	}
}

func TestPolyglotKeyIgnoresUncapturableEnPassant(t *testing.T) {
	with := MustFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	without := MustFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if with.PolyglotKey() != without.PolyglotKey() {
		t.Error("en passant file hashed although no black pawn can capture")
	}
	if with.ZobristHash() == without.ZobristHash() {
		t.Error("internal hash should still distinguish the en passant square")
	}
}
