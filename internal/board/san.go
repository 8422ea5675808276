package board

import (
	"strings"

	"github.com/hailam/chessmentor/internal/errors"
)

// SAN converts a move to Standard Algebraic Notation on b. Moves that b
// rejects fall back to UCI text.
func (m Move) SAN(b *Board) string {
	if m == NoMove {
		return "-"
	}
	if !m.IsPromotion() && !m.IsCastling() && !m.IsEnPassant() {
		m = classify(b, m.From(), m.To())
	}
	next, err := b.ApplyMove(m)
	if err != nil {
		return m.String()
	}

	from, to := m.From(), m.To()
	pt := b.PieceAt(from).Type()
	var sb strings.Builder

	switch {
	case m.IsCastling() && to > from:
		sb.WriteString("O-O")
	case m.IsCastling():
		sb.WriteString("O-O-O")
	default:
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(disambiguation(b, m, pt))
		}
		if m.IsCapture(b) {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	if next.IsCheckmate() {
		sb.WriteByte('#')
	} else if next.InCheck() {
		sb.WriteByte('+')
	}
	return sb.String()
}

// disambiguation returns the file, rank or square needed to tell m apart
// from other legal moves of the same piece type to the same square.
func disambiguation(b *Board, m Move, pt PieceType) string {
	from, to := m.From(), m.To()
	pieces := b.pieces[b.side][pt]
	var sameFile, sameRank, ambiguous bool

	for _, other := range b.LegalMoves() {
		of := other.From()
		if other.To() != to || of == from || !pieces.IsSet(of) {
			continue
		}
		ambiguous = true
		sameFile = sameFile || of.File() == from.File()
		sameRank = sameRank || of.Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// ParseSAN resolves a SAN string to a legal move on b.
func ParseSAN(s string, b *Board) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")

	for _, m := range b.LegalMoves() {
		if strings.TrimRight(m.SAN(b), "+#") == s {
			return m, nil
		}
	}
	if s == "0-0" || s == "0-0-0" {
		return ParseSAN(strings.ReplaceAll(s, "0", "O"), b)
	}
	return NoMove, &errors.IllegalMoveError{Move: orig, FEN: b.ToFEN(), Reason: "no legal move matches"}
}

// MovesToSAN converts a sequence of moves played from b to SAN. Conversion
// stops at the first move that cannot be applied.
func MovesToSAN(b *Board, moves []Move) []string {
	result := make([]string, 0, len(moves))
	cur := *b
	for _, m := range moves {
		next, err := cur.ApplyMove(m)
		if err != nil {
			break
		}
		result = append(result, m.SAN(&cur))
		cur = next
	}
	return result
}
