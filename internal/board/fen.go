package board

import (
	"strconv"
	"strings"

	"github.com/hailam/chessmentor/internal/errors"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// FromFEN parses a FEN string. The halfmove and fullmove fields may be
// omitted. Errors are *errors.ParseError values naming the bad field.
// FromFEN checks syntax only; call Validate for the structural rules.
func FromFEN(fen string) (Board, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return Board{}, errors.NewFENError("fields", strconv.Itoa(len(parts)))
	}

	b := emptyBoard()

	if err := parsePlacement(&b, parts[0]); err != nil {
		return Board{}, err
	}

	switch parts[1] {
	case "w":
		b.side = White
	case "b":
		b.side = Black
	default:
		return Board{}, errors.NewFENError("side", parts[1])
	}

	if err := parseCastling(&b, parts[2]); err != nil {
		return Board{}, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || (sq.Rank() != 2 && sq.Rank() != 5) {
			return Board{}, errors.NewFENError("en passant", parts[3])
		}
		b.enPassant = sq
	}

	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return Board{}, errors.NewFENError("halfmove", parts[4])
		}
		b.halfmove = n
	}

	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return Board{}, errors.NewFENError("fullmove", parts[5])
		}
		b.fullmove = n
	}

	b.hash = b.ComputeHash()
	return b, nil
}

// MustFEN is like FromFEN but panics on error. Intended for tests and
// package-level fixtures.
func MustFEN(fen string) Board {
	b, err := FromFEN(fen)
	if err != nil {
		panic(err)
	}
	return b
}

func parsePlacement(b *Board, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return errors.NewFENError("placement", placement)
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if file > 7 {
				return errors.NewFENError("placement", rankStr)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			p := PieceFromChar(c)
			if p == NoPiece {
				return errors.NewFENError("placement", string(c))
			}
			b.put(p, NewSquare(file, rank))
			file++
		}

		if file != 8 {
			return errors.NewFENError("placement", rankStr)
		}
	}
	return nil
}

func parseCastling(b *Board, castling string) error {
	if castling == "-" {
		return nil
	}
	for i := 0; i < len(castling); i++ {
		idx := strings.IndexByte("KQkq", castling[i])
		if idx < 0 || b.castling&(1<<idx) != 0 {
			return errors.NewFENError("castling", castling)
		}
		b.castling |= 1 << idx
	}
	return nil
}

// ToFEN returns the FEN representation of the position.
func (b *Board) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.PieceAt(NewSquare(file, rank))
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if b.side == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(b.castling.String())

	sb.WriteByte(' ')
	sb.WriteString(b.enPassant.String())

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.halfmove))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.fullmove))

	return sb.String()
}
