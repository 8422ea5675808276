// Package book reads Polyglot opening books and answers which moves they
// recommend for a position.
package book

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/errors"
)

// recordSize is the length of one Polyglot record:
// 8 bytes key, 2 bytes move, 2 bytes weight, 4 bytes learn.
const recordSize = 16

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Entry is one book record.
type Entry struct {
	Key    uint64
	Move   board.Move // as stored; Lookup resolves castling against the board
	Weight uint16
	Learn  uint32
	Source string
}

// Book maps Polyglot keys to their entries in file order.
type Book struct {
	entries map[uint64][]Entry
	sources []string
}

// New creates an empty book.
func New() *Book {
	return &Book{entries: make(map[uint64][]Entry)}
}

// Load parses a book from r. name is recorded as the entries' source and in
// errors. zstd-compressed input is detected by its magic number.
func Load(name string, r io.Reader) (*Book, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, &errors.ParseError{Err: errors.ErrBookLoad, Source: name, Field: "zstd", Value: err.Error(), Offset: 0}
		}
		defer dec.Close()
		return parse(name, dec)
	}
	return parse(name, br)
}

func parse(name string, r io.Reader) (*Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(stderrors.Join(errors.ErrBookLoad, err), "read book %s", name)
	}
	if rem := len(data) % recordSize; rem != 0 {
		return nil, &errors.ParseError{
			Err: errors.ErrBookLoad, Source: name, Field: "record",
			Value: "truncated", Offset: int64(len(data) - rem),
		}
	}

	book := New()
	book.sources = []string{name}
	for off := 0; off < len(data); off += recordSize {
		rec := data[off : off+recordSize]
		e := Entry{
			Key:    binary.BigEndian.Uint64(rec[0:8]),
			Move:   decodeMove(binary.BigEndian.Uint16(rec[8:10])),
			Weight: binary.BigEndian.Uint16(rec[10:12]),
			Learn:  binary.BigEndian.Uint32(rec[12:16]),
			Source: name,
		}
		if e.Move == board.NoMove {
			continue
		}
		book.entries[e.Key] = append(book.entries[e.Key], e)
	}
	return book, nil
}

// LoadFile loads one book from disk. Files ending in .zst are always
// treated as compressed.
func LoadFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(stderrors.Join(errors.ErrBookLoad, err), "open book")
	}
	defer f.Close()

	name := filepath.Base(path)
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, &errors.ParseError{Err: errors.ErrBookLoad, Source: name, Field: "zstd", Value: err.Error(), Offset: 0}
		}
		defer dec.Close()
		return parse(name, dec)
	}
	return Load(name, f)
}

// Loader loads several books concurrently.
type Loader struct {
	Log   zerolog.Logger
	Limit int // concurrent files, 0 means one per file
}

// LoadFiles loads paths with the zero Loader.
func LoadFiles(ctx context.Context, paths ...string) (*Book, error) {
	return Loader{Log: zerolog.Nop()}.LoadFiles(ctx, paths...)
}

// LoadFiles loads every path concurrently and merges the books that loaded
// in path order. A file that fails does not stop the others: the merged
// book is returned together with the joined per-file errors.
func (l Loader) LoadFiles(ctx context.Context, paths ...string) (*Book, error) {
	books := make([]*Book, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if l.Limit > 0 {
		g.SetLimit(l.Limit)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			b, err := LoadFile(path)
			if err != nil {
				l.Log.Warn().Err(err).Str("file", path).Msg("book not loaded")
				errs[i] = err
				return nil
			}
			l.Log.Debug().Str("file", path).Int("entries", b.Len()).Msg("book loaded")
			books[i] = b
			return nil
		})
	}
	_ = g.Wait()

	merged := New()
	for _, b := range books {
		merged.Merge(b)
	}
	return merged, stderrors.Join(errs...)
}

// Merge appends other's entries after b's, keeping each entry's source and
// weight.
func (b *Book) Merge(other *Book) {
	if other == nil {
		return
	}
	for key, entries := range other.entries {
		b.entries[key] = append(b.entries[key], entries...)
	}
	b.sources = append(b.sources, other.sources...)
}

// decodeMove unpacks a Polyglot move: to-square bits 0-5, from-square bits
// 6-11, promotion bits 12-14 (1 knight to 4 queen).
func decodeMove(data uint16) board.Move {
	to := board.NewSquare(int(data&7), int(data>>3&7))
	from := board.NewSquare(int(data>>6&7), int(data>>9&7))
	if from == to {
		return board.NoMove
	}
	promo := data >> 12 & 7
	if promo == 0 {
		return board.NewMove(from, to)
	}
	if promo > 4 {
		return board.NoMove
	}
	kinds := [...]board.PieceType{board.Knight, board.Bishop, board.Rook, board.Queen}
	return board.NewPromotion(from, to, kinds[promo-1])
}

// resolve maps a stored move onto pos: king-takes-rook castling becomes the
// king's two-square move and en passant gets its flag.
func resolve(pos *board.Board, m board.Move) board.Move {
	from, to := m.From(), m.To()
	king := pos.PieceAt(from)
	if king.Type() == board.King && pos.PieceAt(to) == board.NewPiece(board.Rook, king.Color()) {
		file := 6
		if to.File() < from.File() {
			file = 2
		}
		return board.NewCastling(from, board.NewSquare(file, from.Rank()))
	}
	if m.IsPromotion() {
		return m
	}
	resolved, err := board.ParseUCI(m.String(), pos)
	if err != nil {
		return m
	}
	return resolved
}

// Lookup returns the entries stored under pos's Polyglot key, heaviest
// first. Entries of equal weight keep their file order.
func (b *Book) Lookup(pos *board.Board) []Entry {
	if b == nil {
		return nil
	}
	stored := b.entries[pos.PolyglotKey()]
	if len(stored) == 0 {
		return nil
	}
	out := make([]Entry, len(stored))
	for i, e := range stored {
		e.Move = resolve(pos, e.Move)
		out[i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// Move is a legal book move with its share of the total weight.
type Move struct {
	Move     board.Move `json:"-"`
	UCI      string     `json:"uci"`
	Weight   uint16     `json:"weight"`
	Priority float64    `json:"priority"` // weight / total weight, 0..1
	Source   string     `json:"source"`            // first book listing the move
	Sources  []string   `json:"sources,omitempty"` // every book listing the move, merge order
}

// Moves returns the legal book moves for pos. The same move from several
// books is listed once with the weights summed and every contributing book
// in Sources.
func (b *Book) Moves(pos *board.Board) []Move {
	var moves []Move
	index := make(map[board.Move]int)
	total := 0
	for _, e := range b.Lookup(pos) {
		if !pos.IsLegal(e.Move) {
			continue
		}
		total += int(e.Weight)
		if i, ok := index[e.Move]; ok {
			moves[i].Weight = sumWeight(moves[i].Weight, e.Weight)
			if !contains(moves[i].Sources, e.Source) {
				moves[i].Sources = append(moves[i].Sources, e.Source)
			}
			continue
		}
		index[e.Move] = len(moves)
		moves = append(moves, Move{
			Move:    e.Move,
			UCI:     e.Move.String(),
			Weight:  e.Weight,
			Source:  e.Source,
			Sources: []string{e.Source},
		})
	}
	for i := range moves {
		if total == 0 {
			moves[i].Priority = 1 / float64(len(moves))
		} else {
			moves[i].Priority = float64(moves[i].Weight) / float64(total)
		}
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].Weight > moves[j].Weight
	})
	return moves
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sumWeight(a, b uint16) uint16 {
	if s := int(a) + int(b); s < 0xFFFF {
		return uint16(s)
	}
	return 0xFFFF
}

// Contains reports whether m is a book move in pos.
func (b *Book) Contains(pos *board.Board, m board.Move) bool {
	for _, bm := range b.Moves(pos) {
		if bm.Move == m {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, entries := range b.entries {
		n += len(entries)
	}
	return n
}

// Size returns the number of distinct positions.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Fingerprint hashes every entry with its source. Books with the same
// content share a fingerprint; a nil or empty book hashes to 0.
func (b *Book) Fingerprint() uint64 {
	if b.Len() == 0 {
		return 0
	}
	keys := make([]uint64, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	d := xxhash.New()
	var buf []byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			buf = binary.BigEndian.AppendUint64(buf[:0], e.Key)
			buf = binary.BigEndian.AppendUint16(buf, uint16(e.Move))
			buf = binary.BigEndian.AppendUint16(buf, e.Weight)
			buf = append(buf, e.Source...)
			buf = append(buf, 0)
			d.Write(buf)
		}
	}
	return d.Sum64()
}

// Sources lists the names of the loaded books in merge order.
func (b *Book) Sources() []string {
	if b == nil {
		return nil
	}
	return b.sources
}
