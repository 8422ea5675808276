// Package diagram draws an analysed position as an SVG board with the
// candidate move and the squares its threats and defenses involve.
package diagram

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/tactics"
)

const defaultSquareSize = 60

// Colours of the board and its overlays.
const (
	lightSquare = "#f0d9b5"
	darkSquare  = "#b58863"
	moveFill    = "#f6f669"
	threatFill  = "#e04040"
	defenseFill = "#40a040"
	arrowColour = "#1560bd"
)

var glyphs = [...]string{
	board.WhitePawn:   "♙",
	board.WhiteKnight: "♘",
	board.WhiteBishop: "♗",
	board.WhiteRook:   "♖",
	board.WhiteQueen:  "♕",
	board.WhiteKing:   "♔",
	board.BlackPawn:   "♟",
	board.BlackKnight: "♞",
	board.BlackBishop: "♝",
	board.BlackRook:   "♜",
	board.BlackQueen:  "♛",
	board.BlackKing:   "♚",
}

// Options controls what Render draws on top of the position.
type Options struct {
	Move       board.Move     // drawn as an arrow; NoMove for none
	Facts      []tactics.Fact // threats and defenses to highlight
	Flip       bool           // draw from Black's side
	SquareSize int            // pixels, 60 when zero
}

// Render writes an SVG diagram of b to w.
func Render(w io.Writer, b *board.Board, opts Options) error {
	size := opts.SquareSize
	if size <= 0 {
		size = defaultSquareSize
	}
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(8*size, 8*size)
	canvas.Title(b.ToFEN())

	d := drawer{canvas: canvas, size: size, flip: opts.Flip}
	d.squares()
	if opts.Move != board.NoMove {
		d.fill(opts.Move.From(), moveFill, 0.6, "move")
		d.fill(opts.Move.To(), moveFill, 0.6, "move")
	}
	for _, f := range opts.Facts {
		d.fact(f)
	}
	d.pieces(b)
	d.coordinates()
	if opts.Move != board.NoMove {
		d.arrow(opts.Move.From(), opts.Move.To())
	}

	canvas.End()
	return ew.err
}

type drawer struct {
	canvas *svg.SVG
	size   int
	flip   bool
}

// origin returns the top-left pixel of sq.
func (d drawer) origin(sq board.Square) (x, y int) {
	file, rank := sq.File(), 7-sq.Rank()
	if d.flip {
		file, rank = 7-file, 7-rank
	}
	return file * d.size, rank * d.size
}

func (d drawer) center(sq board.Square) (x, y int) {
	x, y = d.origin(sq)
	return x + d.size/2, y + d.size/2
}

func (d drawer) squares() {
	d.canvas.Gid("squares")
	for sq := board.Square(0); sq < 64; sq++ {
		colour := darkSquare
		if sq.IsLight() {
			colour = lightSquare
		}
		x, y := d.origin(sq)
		d.canvas.Rect(x, y, d.size, d.size, "fill:"+colour)
	}
	d.canvas.Gend()
}

func (d drawer) fill(sq board.Square, colour string, opacity float64, class string) {
	x, y := d.origin(sq)
	d.canvas.Rect(x, y, d.size, d.size,
		fmt.Sprintf(`class="%s"`, class),
		fmt.Sprintf("fill:%s;fill-opacity:%.2f", colour, opacity))
}

// fact marks the target square of f and rings the other squares involved.
func (d drawer) fact(f tactics.Fact) {
	colour, class := threatFill, "threat"
	if f.Kind.IsDefense() {
		colour, class = defenseFill, "defense"
	}
	if f.Square.IsValid() {
		d.fill(f.Square, colour, 0.45, class)
	}
	for _, sq := range f.Squares {
		if !sq.IsValid() {
			continue
		}
		x, y := d.center(sq)
		d.canvas.Circle(x, y, d.size*2/5,
			fmt.Sprintf(`class="%s"`, class),
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:%d", colour, max(2, d.size/20)))
	}
}

func (d drawer) pieces(b *board.Board) {
	d.canvas.Gid("pieces")
	style := fmt.Sprintf("font-size:%dpx;text-anchor:middle;dominant-baseline:central", d.size*4/5)
	for sq := board.Square(0); sq < 64; sq++ {
		p := b.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		x, y := d.center(sq)
		d.canvas.Text(x, y, glyphs[p], style)
	}
	d.canvas.Gend()
}

// coordinates labels the files along the bottom edge and the ranks along
// the left edge.
func (d drawer) coordinates() {
	d.canvas.Gid("coordinates")
	style := fmt.Sprintf("font-size:%dpx;font-family:sans-serif;fill:#404040", max(8, d.size/6))
	pad := max(2, d.size/20)
	for i := 0; i < 8; i++ {
		x, _ := d.origin(board.NewSquare(i, 0))
		d.canvas.Text(x+d.size-pad, 8*d.size-pad, string(rune('a'+i)), style+";text-anchor:end")

		_, y := d.origin(board.NewSquare(0, i))
		d.canvas.Text(pad, y+d.size/5+pad, string(rune('1'+i)), style)
	}
	d.canvas.Gend()
}

func (d drawer) arrow(from, to board.Square) {
	d.canvas.Def()
	d.canvas.Marker("arrowhead", 5, 5, 4, 4, `orient="auto"`, `viewBox="0 0 10 10"`)
	d.canvas.Path("M 0 0 L 10 5 L 0 10 z", "fill:"+arrowColour)
	d.canvas.MarkerEnd()
	d.canvas.DefEnd()

	x1, y1 := d.center(from)
	x2, y2 := d.center(to)
	d.canvas.Line(x1, y1, x2, y2,
		`class="move"`,
		`marker-end="url(#arrowhead)"`,
		fmt.Sprintf("stroke:%s;stroke-width:%d;stroke-opacity:0.8", arrowColour, max(3, d.size/8)))
}

// errWriter remembers the first write error; svgo ignores them.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return len(p), nil
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, err
}
