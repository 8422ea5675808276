// analyze.go - single-position mode and diagram output
package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/diagram"
	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/explain"
	"github.com/hailam/chessmentor/internal/tactics"
)

func (a *app) runSingle(opts *options, stdout io.Writer) error {
	cands, err := parseCandidates(opts.moves)
	if err != nil {
		return err
	}
	b, err := board.FromFEN(opts.fen)
	if err != nil {
		return err
	}
	res, err := a.analyzer.Analyze(explain.Request{Board: &b, Candidates: cands})
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		a.log.Warn().Str("move", s.Move).Str("reason", s.Reason).Msg("candidate skipped")
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return errors.Wrap(err, "write analysis")
	}

	if opts.svg != "" {
		if err := writeDiagram(opts.svg, &b, res); err != nil {
			return err
		}
		a.log.Info().Str("file", opts.svg).Msg("diagram written")
	}
	return nil
}

// bestMove returns the candidate the side to move scores highest.
func bestMove(b *board.Board, res *explain.Analysis) (explain.MoveAnalysis, bool) {
	var best explain.MoveAnalysis
	found := false
	for _, m := range res.Moves {
		if !found || m.Score.For(b.SideToMove()) > best.Score.For(b.SideToMove()) {
			best, found = m, true
		}
	}
	return best, found
}

// writeDiagram draws the position with the best candidate and the facts
// it creates.
func writeDiagram(path string, b *board.Board, res *explain.Analysis) error {
	opts := diagram.Options{Flip: b.SideToMove() == board.Black}
	if best, ok := bestMove(b, res); ok {
		m, err := board.ParseUCI(best.Move, b)
		if err != nil {
			return err
		}
		report, err := tactics.Detect(b, m)
		if err != nil {
			return err
		}
		opts.Move = m
		opts.Facts = append(report.Threats, report.Defenses...)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := diagram.Render(f, b, opts); err != nil {
		f.Close()
		return errors.Wrapf(err, "render %s", path)
	}
	return f.Close()
}
