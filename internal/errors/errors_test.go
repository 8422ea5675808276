package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestTypedErrorsUnwrapToSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"fen", NewFENError("castling", "KQX"), ErrInvalidFEN},
		{"book", &ParseError{Err: ErrBookLoad, Source: "book.bin", Field: "record", Offset: 32}, ErrBookLoad},
		{"move", &IllegalMoveError{Move: "e2e5", Reason: "pawn cannot move three squares"}, ErrIllegalMove},
		{"position", &InvalidPositionError{Reason: "white has 2 kings"}, ErrInvalidPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			wrapped := Wrap(tt.err, "analysing")
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped error lost its sentinel: %v", wrapped)
			}
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := NewFENError("side", "x")
	msg := err.Error()
	for _, want := range []string{"fen", "side", `"x"`, "invalid FEN"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	book := &ParseError{Err: ErrBookLoad, Source: "a.bin", Field: "record", Offset: 48}
	if !strings.Contains(book.Error(), "a.bin@48") {
		t.Errorf("book error should carry offset: %q", book.Error())
	}

	var pe *ParseError
	if !errors.As(Wrapf(book, "book %d", 1), &pe) || pe.Source != "a.bin" {
		t.Errorf("errors.As failed to recover ParseError")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}
