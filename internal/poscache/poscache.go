// Package poscache precomputes attack relations for one board so the
// exchange evaluator, the threat detector and the positional predicates can
// query them in constant time.
//
// A Cache is bound to exactly one board. It is never patched after a move;
// build a new one (or Acquire a pooled one) for each distinct position.
package poscache

import (
	"sync"

	"github.com/hailam/chessmentor/internal/board"
)

// PieceInfo is one entry of a color's piece list.
type PieceInfo struct {
	Square board.Square
	Type   board.PieceType
}

// XRay records a slider looking through one piece at another along a line.
// It is the raw material for pins, skewers and discovered attacks.
type XRay struct {
	Slider    board.Square
	Blocker   board.Square
	Behind    board.Square
	Direction board.Direction
}

// Cache holds the attack maps of a single board.
type Cache struct {
	hash     uint64
	occupied board.Bitboard
	side     board.Color

	pieces      [2][]PieceInfo
	byColor     [2]board.Bitboard
	attacked    [2]board.Bitboard
	kings       [2]board.Square
	attacksFrom [64]board.Bitboard
	attackers   [64][2]board.Bitboard
	xrays       [2][]XRay
}

var pool = sync.Pool{
	New: func() any { return &Cache{} },
}

// Build scans b once and returns a fresh cache.
func Build(b *board.Board) *Cache {
	c := &Cache{}
	c.fill(b)
	return c
}

// Acquire returns a pooled cache filled for b. Pair it with Release.
func Acquire(b *board.Board) *Cache {
	c := pool.Get().(*Cache)
	c.Reset()
	c.fill(b)
	return c
}

// Release returns c to the pool. c must not be used afterwards.
func Release(c *Cache) {
	if c == nil {
		return
	}
	c.Reset()
	pool.Put(c)
}

// Reset clears every field so a pooled cache carries nothing over from the
// previous board. Slice capacity is kept.
func (c *Cache) Reset() {
	c.hash = 0
	c.occupied = 0
	c.side = board.White
	for i := range c.pieces {
		c.pieces[i] = c.pieces[i][:0]
		c.xrays[i] = c.xrays[i][:0]
		c.attacked[i] = 0
		c.byColor[i] = 0
		c.kings[i] = board.NoSquare
	}
	c.attacksFrom = [64]board.Bitboard{}
	c.attackers = [64][2]board.Bitboard{}
}

func (c *Cache) fill(b *board.Board) {
	c.hash = b.ZobristHash()
	c.occupied = b.AllOccupied()
	c.side = b.SideToMove()
	c.kings[board.White] = board.NoSquare
	c.kings[board.Black] = board.NoSquare

	occ := c.occupied
	for sq := board.A1; sq <= board.H8; sq++ {
		p := b.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		color, pt := p.Color(), p.Type()
		c.pieces[color] = append(c.pieces[color], PieceInfo{Square: sq, Type: pt})
		c.byColor[color] |= board.SquareBB(sq)
		if pt == board.King {
			c.kings[color] = sq
		}

		attacks := board.PieceAttacks(pt, color, sq, occ)
		c.attacksFrom[sq] = attacks
		c.attacked[color] |= attacks
		for a := attacks; a != 0; {
			target := a.PopLSB()
			c.attackers[target][color] |= board.SquareBB(sq)
		}

		if pt == board.Bishop || pt == board.Rook || pt == board.Queen {
			c.scanXRays(color, pt, sq)
		}
	}
}

func (c *Cache) scanXRays(color board.Color, pt board.PieceType, sq board.Square) {
	for d := board.North; d < board.NoDirection; d++ {
		if !board.SliderFor(pt, d) {
			continue
		}
		blocker := board.FirstBlocker(d, sq, c.occupied)
		if blocker == board.NoSquare {
			continue
		}
		behind := board.FirstBlocker(d, blocker, c.occupied)
		if behind == board.NoSquare {
			continue
		}
		c.xrays[color] = append(c.xrays[color], XRay{Slider: sq, Blocker: blocker, Behind: behind, Direction: d})
	}
}

// Valid reports whether c was built for b.
func (c *Cache) Valid(b *board.Board) bool {
	return c != nil && c.hash == b.ZobristHash() && c.occupied == b.AllOccupied() && c.side == b.SideToMove()
}

// IsAttacked reports whether color attacks sq.
func (c *Cache) IsAttacked(sq board.Square, color board.Color) bool {
	return c.attackers[sq][color] != 0
}

// AttackersBB returns the squares of color's pieces attacking sq.
func (c *Cache) AttackersBB(sq board.Square, color board.Color) board.Bitboard {
	return c.attackers[sq][color]
}

// Attackers lists the squares of color's pieces attacking sq.
func (c *Cache) Attackers(sq board.Square, color board.Color) []board.Square {
	return c.attackers[sq][color].Squares()
}

// Defenders lists the pieces protecting the piece on sq, i.e. attackers of
// the same color. The result is empty for an empty square.
func (c *Cache) Defenders(sq board.Square) []board.Square {
	for color := board.White; color <= board.Black; color++ {
		if c.byColor[color].IsSet(sq) {
			return c.Attackers(sq, color)
		}
	}
	return nil
}

// AttacksFrom returns the squares attacked by the piece on sq.
func (c *Cache) AttacksFrom(sq board.Square) board.Bitboard {
	return c.attacksFrom[sq]
}

// Attacked returns every square color attacks.
func (c *Cache) Attacked(color board.Color) board.Bitboard {
	return c.attacked[color]
}

// KingSquare returns color's king square or NoSquare.
func (c *Cache) KingSquare(color board.Color) board.Square {
	return c.kings[color]
}

// Pieces returns color's pieces in ascending square order. The slice is
// owned by the cache.
func (c *Cache) Pieces(color board.Color) []PieceInfo {
	return c.pieces[color]
}

// XRays returns the x-ray lines of color's sliders.
func (c *Cache) XRays(color board.Color) []XRay {
	return c.xrays[color]
}

// SideToMove returns the side to move of the cached board.
func (c *Cache) SideToMove() board.Color {
	return c.side
}
