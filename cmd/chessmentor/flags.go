// flags.go - command-line flags and candidate parsing
package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/explain"
)

// options holds the parsed command line.
type options struct {
	fen      string
	moves    []string
	books    []string
	config   string
	cacheDir string
	svg      string
	batch    string
	workers  int
	verbose  bool
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("chessmentor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var moves, books listFlag
	fs.StringVar(&opts.fen, "fen", board.StartFEN, "Position to analyse (FEN)")
	fs.Var(&moves, "move", "Candidate as uci:score[:pv...], score in centipawns for White or #N for mate (repeatable)")
	fs.Var(&books, "book", "Polyglot opening book, .zst for compressed (repeatable)")
	fs.StringVar(&opts.config, "config", "", "JSON config file")
	fs.StringVar(&opts.cacheDir, "cache-dir", "", `Persistent result cache directory, "default" for the user data dir (default: in-memory)`)
	fs.StringVar(&opts.svg, "svg", "", "Write a diagram of the best candidate to this SVG file")
	fs.StringVar(&opts.batch, "batch", "", "JSON Lines file with one request per line")
	fs.IntVar(&opts.workers, "workers", 0, "Batch workers (default: from config)")
	fs.BoolVar(&opts.verbose, "v", false, "Debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chessmentor [options]\n\n")
		fmt.Fprintf(fs.Output(), "Explains engine candidate moves in plain language.\n\n")
		fmt.Fprintf(fs.Output(), "  chessmentor -fen <FEN> -move e2e4:35 -move d2d4:20\n")
		fmt.Fprintf(fs.Output(), "  chessmentor -batch requests.jsonl -workers 8\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.moves, opts.books = moves, books

	if opts.batch == "" && len(opts.moves) == 0 {
		return nil, fmt.Errorf("no candidates: give at least one -move or a -batch file")
	}
	if opts.batch != "" && len(opts.moves) > 0 {
		return nil, fmt.Errorf("-move and -batch cannot be combined")
	}
	if opts.workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative")
	}
	return opts, nil
}

// parseCandidate reads "e2e4:35", "e2e4:#3" or "e2e4:35:e2e4 e7e5 g1f3".
// PV moves may be separated by spaces, commas or colons.
func parseCandidate(s string) (explain.Candidate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return explain.Candidate{}, fmt.Errorf("candidate %q: want uci:score[:pv...]", s)
	}
	score, err := explain.ParseScore(parts[1])
	if err != nil {
		return explain.Candidate{}, fmt.Errorf("candidate %q: %w", s, err)
	}
	c := explain.Candidate{UCI: parts[0], Score: score}
	if len(parts) == 3 {
		c.PV = strings.FieldsFunc(parts[2], func(r rune) bool {
			return r == ' ' || r == ',' || r == ':'
		})
	}
	return c, nil
}

func parseCandidates(moves []string) ([]explain.Candidate, error) {
	cands := make([]explain.Candidate, 0, len(moves))
	for _, s := range moves {
		c, err := parseCandidate(s)
		if err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}
	return cands, nil
}
