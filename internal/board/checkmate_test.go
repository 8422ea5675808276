package board

import (
	"testing"
)

func TestCheckmate(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		checkmate bool
		stalemate bool
	}{
		// Back rank: black king boxed in by its own pawns.
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, false},
		// The king can take the unprotected rook.
		{"king captures checker", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false, false},
		{"fool's mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", true, false},
		{"queen stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false, true},
		{"start", StartFEN, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := MustFEN(tt.fen)
			if got := pos.IsCheckmate(); got != tt.checkmate {
				t.Errorf("IsCheckmate() = %v, want %v\n%s", got, tt.checkmate, pos.String())
			}
			if got := pos.IsStalemate(); got != tt.stalemate {
				t.Errorf("IsStalemate() = %v, want %v", got, tt.stalemate)
			}
		})
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"8/8/8/4k3/8/8/8/4K3 w - - 0 1", true},
		{"8/8/8/4k3/8/8/8/4KN2 w - - 0 1", true},
		{"8/8/8/4k3/8/8/8/2B1KB2 w - - 0 1", false},
		{"8/8/8/4k3/8/8/8/4KR2 w - - 0 1", false},
		{"8/8/8/4k3/8/8/4P3/4K3 w - - 0 1", false},
	}

	for _, tt := range tests {
		pos := MustFEN(tt.fen)
		if got := pos.IsInsufficientMaterial(); got != tt.want {
			t.Errorf("IsInsufficientMaterial(%s) = %v, want %v", tt.fen, got, tt.want)
		}
	}
}
