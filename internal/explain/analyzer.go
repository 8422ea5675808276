// Package explain turns engine candidate moves into short explanations. For
// every candidate it runs a fixed, ordered list of detectors and keeps the
// first two that have something to say.
package explain

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/book"
	"github.com/hailam/chessmentor/internal/config"
	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/poscache"
	"github.com/hailam/chessmentor/internal/positional"
	"github.com/hailam/chessmentor/internal/see"
	"github.com/hailam/chessmentor/internal/tactics"
)

// maxLines is the number of explanation lines kept per move.
const maxLines = 2

// Candidate is one engine suggestion. Score is from White's point of view.
type Candidate struct {
	UCI   string   `json:"uci"`
	Score Score    `json:"score"`
	PV    []string `json:"pv,omitempty"`
}

// Request asks for explanations of candidates in one position. Board takes
// precedence over FEN when both are set.
type Request struct {
	FEN        string       `json:"fen"`
	Board      *board.Board `json:"-"`
	Candidates []Candidate  `json:"candidates"`
}

// Line is one explanation with the tier of the detector that produced it.
type Line struct {
	Tier     Tier   `json:"tier"`
	Detector string `json:"detector"`
	Text     string `json:"text"`
}

// Finding is a tactical fact rendered for output.
type Finding struct {
	Kind     string `json:"kind"`
	Square   string `json:"square"`
	Severity int    `json:"severity"`
	Text     string `json:"text"`
}

// MoveAnalysis is the result for one candidate.
type MoveAnalysis struct {
	Move           string    `json:"move"`
	SAN            string    `json:"san"`
	Score          Score     `json:"score"`
	WinProbability float64   `json:"win_probability"`
	Lines          []Line    `json:"lines"`
	Threats        []Finding `json:"threats,omitempty"`
	Defenses       []Finding `json:"defenses,omitempty"`
	Exchange       *int      `json:"exchange,omitempty"` // SEE balance for captures, centipawns
}

// Explanation joins the lines into one sentence.
func (m MoveAnalysis) Explanation() string {
	texts := make([]string, len(m.Lines))
	for i, l := range m.Lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "; ")
}

// Skipped records a candidate that could not be analysed.
type Skipped struct {
	Move   string `json:"move"`
	Reason string `json:"reason"`
}

// Analysis is the result of one request.
type Analysis struct {
	FEN     string         `json:"fen"`
	Phase   string         `json:"phase"`
	Moves   []MoveAnalysis `json:"moves"`
	Book    []book.Move    `json:"book,omitempty"`
	Skipped []Skipped      `json:"skipped,omitempty"`
}

// Analyzer explains candidate moves. It is safe for concurrent use when the
// configured cache is.
type Analyzer struct {
	cfg    *config.Config
	book   *book.Book
	bookID uint64
	cache  ResultCache
	log    zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig sets the configuration. The Analyzer never modifies it.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		if cfg != nil {
			a.cfg = cfg
		}
	}
}

// WithBook sets the opening book.
func WithBook(b *book.Book) Option {
	return func(a *Analyzer) { a.book = b }
}

// WithCache sets the result cache.
func WithCache(c ResultCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// New creates an Analyzer with the default config and no book or cache.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{cfg: config.Default(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	a.bookID = a.book.Fingerprint()
	return a
}

// Analyze explains every candidate of req. A malformed FEN returns the
// *errors.ParseError and an impossible position the
// *errors.InvalidPositionError; illegal candidates are listed in Skipped.
func (a *Analyzer) Analyze(req Request) (*Analysis, error) {
	var b board.Board
	if req.Board != nil {
		b = *req.Board
	} else {
		var err error
		if b, err = board.FromFEN(req.FEN); err != nil {
			return nil, err
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	fen := b.ToFEN()
	log := a.log.With().Str("fen", fen).Logger()

	key := CacheKey(fen, req.Candidates, a.cfg.Fingerprint(), a.bookID)
	if a.cache != nil {
		cached, ok, err := a.cache.Get(key)
		if err != nil {
			log.Warn().Err(err).Msg("cache read failed")
		} else if ok {
			log.Debug().Msg("cache hit")
			return cached, nil
		}
	}

	c := poscache.Acquire(&b)
	defer poscache.Release(c)

	result := &Analysis{FEN: fen, Phase: positional.PhaseOf(&b).String()}
	if a.book != nil {
		result.Book = a.book.Moves(&b)
	}

	prepared := make([]*moveContext, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		mc, err := a.prepare(&b, c, cand)
		if err != nil {
			log.Debug().Err(err).Str("move", cand.UCI).Msg("candidate skipped")
			result.Skipped = append(result.Skipped, Skipped{Move: cand.UCI, Reason: reason(err)})
			continue
		}
		prepared = append(prepared, mc)
	}
	rank(prepared)

	material := totalMaterial(&b)
	for _, mc := range prepared {
		mc.winProb = WinProbability(mc.cand.Score, mc.mover, material, a.cfg.WinRateScale)
		mc.bookMoves = result.Book
		ma := MoveAnalysis{
			Move:           mc.cand.UCI,
			SAN:            mc.move.SAN(&b),
			Score:          mc.cand.Score,
			WinProbability: mc.winProb,
			Lines:          a.compose(mc, log),
			Threats:        findings(mc.report.Threats),
			Defenses:       findings(mc.report.Defenses),
		}
		if mc.hasExchange {
			balance := mc.exchange.Balance
			ma.Exchange = &balance
		}
		mc.release()
		result.Moves = append(result.Moves, ma)
	}

	if a.cache != nil {
		if err := a.cache.Put(key, result); err != nil {
			log.Warn().Err(err).Msg("cache write failed")
		}
	}
	return result, nil
}

func reason(err error) string {
	var ime *errors.IllegalMoveError
	if stderrors.As(err, &ime) && ime.Reason != "" {
		return ime.Reason
	}
	return err.Error()
}

// prepare parses and checks one candidate and computes the facts every
// detector shares.
func (a *Analyzer) prepare(b *board.Board, c *poscache.Cache, cand Candidate) (*moveContext, error) {
	m, err := board.ParseUCI(cand.UCI, b)
	if err != nil {
		return nil, err
	}
	report, err := tactics.DetectWithCache(b, c, m)
	if err != nil {
		return nil, err
	}
	mc := &moveContext{
		cfg:    a.cfg,
		book:   a.book,
		b:      b,
		c:      c,
		move:   m,
		cand:   cand,
		mover:  b.SideToMove(),
		report: report,
		score:  cand.Score.For(b.SideToMove()),
	}
	mc.after = &mc.report.After
	mc.exchange, mc.hasExchange = see.EvaluateMove(b, m)
	return mc, nil
}

// rank orders candidates by the mover's score and records each one's gap
// to the next best.
func rank(moves []*moveContext) {
	order := make([]*moveContext, len(moves))
	copy(order, moves)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score > order[j].score
	})
	for i, mc := range order {
		mc.rank = i
		mc.total = len(order)
		mc.best = order[0]
		if i+1 < len(order) {
			mc.next = order[i+1]
		}
	}
}

// compose runs the detectors in order and keeps the first maxLines results.
func (a *Analyzer) compose(mc *moveContext, log zerolog.Logger) []Line {
	lines := make([]Line, 0, maxLines)
	for _, d := range pipeline {
		if len(lines) == maxLines {
			break
		}
		if d.enabled != nil && !d.enabled(a.cfg) {
			continue
		}
		text := d.run(mc)
		if text == "" {
			continue
		}
		log.Debug().Str("move", mc.cand.UCI).Str("detector", d.name).Msg(text)
		lines = append(lines, Line{Tier: d.tier, Detector: d.name, Text: text})
	}
	if a.cfg.Complexity == config.Advanced && len(lines) > 0 {
		if pv := mc.pvSnippet(4); pv != "" {
			lines[0].Text += " (line: " + pv + ")"
		}
	}
	return lines
}

func findings(facts []tactics.Fact) []Finding {
	if len(facts) == 0 {
		return nil
	}
	out := make([]Finding, len(facts))
	for i, f := range facts {
		out[i] = Finding{Kind: f.Kind.String(), Square: f.Square.String(), Severity: f.Severity, Text: f.Describe()}
	}
	return out
}
