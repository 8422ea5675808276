// Package errors defines the sentinel errors and typed errors shared by the
// analysis packages. Typed errors wrap a sentinel so callers can use
// errors.Is for the category and errors.As for the details.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure categories of the analysis core.
var (
	// ErrInvalidFEN indicates a malformed FEN string.
	ErrInvalidFEN = errors.New("invalid FEN")

	// ErrIllegalMove indicates a move that cannot be applied to a board.
	ErrIllegalMove = errors.New("illegal move")

	// ErrInvalidPosition indicates a structurally impossible position,
	// such as a missing king.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrBookLoad indicates an opening book that could not be loaded.
	ErrBookLoad = errors.New("opening book load failed")

	// ErrInvalidConfig indicates configuration values out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError reports malformed input: a FEN field or a book record.
type ParseError struct {
	Err    error  // Category sentinel (ErrInvalidFEN, ErrBookLoad)
	Source string // File name or "fen"
	Field  string // Offending field, e.g. "castling" or "record"
	Value  string // Offending text (may be empty)
	Offset int64  // Byte offset for binary sources, -1 if unknown
}

// Error returns the message with whatever context is available.
func (e *ParseError) Error() string {
	var parts []string
	if e.Source != "" {
		if e.Offset >= 0 {
			parts = append(parts, fmt.Sprintf("%s@%d", e.Source, e.Offset))
		} else {
			parts = append(parts, e.Source)
		}
	}
	if e.Field != "" {
		if e.Value != "" {
			parts = append(parts, fmt.Sprintf("field %s %q", e.Field, e.Value))
		} else {
			parts = append(parts, "field "+e.Field)
		}
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return "parse error"
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the category sentinel.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewFENError builds a ParseError for a FEN field.
func NewFENError(field, value string) *ParseError {
	return &ParseError{Err: ErrInvalidFEN, Source: "fen", Field: field, Value: value, Offset: -1}
}

// IllegalMoveError reports a move that is inapplicable to a board.
type IllegalMoveError struct {
	Move   string // UCI text of the move
	FEN    string // Board the move was applied to (may be empty)
	Reason string
}

// Error returns the formatted message.
func (e *IllegalMoveError) Error() string {
	msg := fmt.Sprintf("%v %q", ErrIllegalMove, e.Move)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.FEN != "" {
		msg += " (" + e.FEN + ")"
	}
	return msg
}

// Unwrap returns ErrIllegalMove.
func (e *IllegalMoveError) Unwrap() error {
	return ErrIllegalMove
}

// InvalidPositionError reports a structural violation of a board.
type InvalidPositionError struct {
	Reason string
}

// Error returns the formatted message.
func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidPosition, e.Reason)
}

// Unwrap returns ErrInvalidPosition.
func (e *InvalidPositionError) Unwrap() error {
	return ErrInvalidPosition
}

// Wrap adds context to an error while preserving it for errors.Is/As.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf adds formatted context to an error.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
