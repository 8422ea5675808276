package explain

import (
	"fmt"
	"strings"

	"github.com/hailam/chessmentor/internal/board"
	"github.com/hailam/chessmentor/internal/book"
	"github.com/hailam/chessmentor/internal/config"
	"github.com/hailam/chessmentor/internal/poscache"
	"github.com/hailam/chessmentor/internal/positional"
	"github.com/hailam/chessmentor/internal/see"
	"github.com/hailam/chessmentor/internal/tactics"
)

// Tier is a detector's place in the pipeline; lower tiers win.
type Tier int

const (
	TierSingular Tier = iota + 1
	TierForced
	TierThreat
	TierPattern
	TierSacrifice
	TierCapture
	TierPawnStructure
	TierActivity
	TierEndgame
	TierOpening
	TierWinRate
	TierFallback
)

// detector produces one explanation for a move, or "" when it has nothing
// to say. enabled gates it on the config; nil means always on.
type detector struct {
	tier    Tier
	name    string
	enabled func(*config.Config) bool
	run     func(*moveContext) string
}

func tactical(c *config.Config) bool     { return c.ShowTactical }
func positionalOn(c *config.Config) bool { return c.ShowPositional }
func endgame(c *config.Config) bool      { return c.ShowEndgame }
func opening(c *config.Config) bool      { return c.ShowOpeningPrinciples }

// pipeline is the fixed order in which explanations are tried.
var pipeline = [...]detector{
	{TierSingular, "singular", nil, detectSingular},
	{TierForced, "forced", nil, detectForced},
	{TierThreat, "threat", tactical, detectThreat},
	{TierPattern, "pattern", tactical, detectPattern},
	{TierSacrifice, "sacrifice", tactical, detectSacrifice},
	{TierCapture, "capture", tactical, detectCapture},
	{TierPawnStructure, "pawn-structure", positionalOn, detectPawnStructure},
	{TierActivity, "activity", positionalOn, detectActivity},
	{TierEndgame, "endgame", endgame, detectEndgame},
	{TierOpening, "opening", opening, detectOpening},
	{TierWinRate, "win-rate", nil, detectWinRate},
	{TierFallback, "fallback", nil, detectFallback},
}

// moveContext is everything the detectors know about one candidate.
type moveContext struct {
	cfg   *config.Config
	book  *book.Book
	b     *board.Board
	c     *poscache.Cache
	move  board.Move
	cand  Candidate
	mover board.Color

	report tactics.Report
	after  *board.Board
	ac     *poscache.Cache // built on first use

	exchange    see.Result
	hasExchange bool

	score      int // centipawns, mover's view
	rank       int
	total      int
	best, next *moveContext
	winProb    float64
	bookMoves  []book.Move
}

func (mc *moveContext) afterCache() *poscache.Cache {
	if mc.ac == nil {
		mc.ac = poscache.Acquire(mc.after)
	}
	return mc.ac
}

func (mc *moveContext) release() {
	if mc.ac != nil {
		poscache.Release(mc.ac)
		mc.ac = nil
	}
}

func (mc *moveContext) san() string {
	return mc.move.SAN(mc.b)
}

func (mc *moveContext) piece() board.PieceType {
	return mc.b.PieceAt(mc.move.From()).Type()
}

func (mc *moveContext) detailed() bool {
	return mc.cfg.Complexity.Level() >= config.Intermediate.Level()
}

// mates reports whether s is a forced mate for c.
func mates(s Score, c board.Color) bool {
	return s.Mate != 0 && (s.Mate > 0) == (c == board.White)
}

// pvSnippet renders up to n plies of the candidate's line in SAN.
func (mc *moveContext) pvSnippet(n int) string {
	pv := mc.cand.PV
	if len(pv) == 0 {
		return ""
	}
	if pv[0] != mc.cand.UCI {
		pv = append([]string{mc.cand.UCI}, pv...)
	}
	if len(pv) > n {
		pv = pv[:n]
	}
	var moves []board.Move
	cur := *mc.b
	for _, s := range pv {
		m, err := board.ParseUCI(s, &cur)
		if err != nil {
			break
		}
		next, err := cur.ApplyMove(m)
		if err != nil {
			break
		}
		moves = append(moves, m)
		cur = next
	}
	return strings.Join(board.MovesToSAN(mc.b, moves), " ")
}

func detectSingular(mc *moveContext) string {
	if mc.rank != 0 || mc.next == nil {
		return ""
	}
	if mates(mc.cand.Score, mc.mover) && !mates(mc.next.cand.Score, mc.mover) {
		return "the only move that forces mate"
	}
	if next := mc.next.cand.Score; next.Mate != 0 && !mates(next, mc.mover) && mc.cand.Score.Mate == 0 {
		return "the only move that does not allow mate"
	}
	gap := float64(mc.score-mc.next.score) / 100
	if gap < mc.cfg.SingularThreshold {
		return ""
	}
	if !mc.detailed() {
		return "the only good move; every other move is clearly worse"
	}
	return fmt.Sprintf("the only good move: the next best, %s, is %.1f pawns worse", mc.next.san(), gap)
}

func detectForced(mc *moveContext) string {
	if len(mc.b.LegalMoves()) == 1 {
		return "the only legal move"
	}
	if !mc.b.InCheck() {
		return ""
	}
	switch {
	case mc.piece() == board.King:
		return "gets out of check by moving the king"
	case mc.b.Checkers().IsSet(mc.move.CapturedSquare()):
		return "gets out of check by capturing the checking piece"
	}
	return "gets out of check by blocking"
}

func detectThreat(mc *moveContext) string {
	for _, f := range mc.report.Threats {
		name := f.Piece.Name()
		switch f.Kind {
		case tactics.CheckmateThreat:
			if f.Token == "checkmate" {
				return "delivers checkmate"
			}
			return fmt.Sprintf("threatens mate on %s", f.Square)
		case tactics.Check:
			if len(f.Squares) > 1 {
				return "gives double check"
			}
			return "gives check"
		case tactics.HangingPiece:
			return fmt.Sprintf("attacks the undefended %s on %s", name, f.Square)
		case tactics.MaterialWin:
			return fmt.Sprintf("threatens to win the %s on %s", name, f.Square)
		}
	}
	return ""
}

func detectPattern(mc *moveContext) string {
	for _, f := range mc.report.Threats {
		switch f.Kind {
		case tactics.Fork, tactics.Pin, tactics.Skewer, tactics.DiscoveredAttack, tactics.TrappedPiece:
			return f.Describe()
		case tactics.Promotion:
			if piece, ok := strings.CutPrefix(f.Token, "promotes:"); ok {
				return "promotes to a " + piece
			}
			return fmt.Sprintf("threatens to promote the pawn on %s", f.Square)
		}
	}
	return ""
}

// offered returns the material the move puts en prise: the losing side of
// a capture, or what the opponent wins by taking the moved piece.
func (mc *moveContext) offered() int {
	if mc.hasExchange {
		if mc.exchange.Loses() {
			return -mc.exchange.Balance
		}
		return 0
	}
	r, ok := see.BestCapture(mc.after, mc.afterCache(), mc.move.To(), mc.mover.Other())
	if !ok || !r.Wins() {
		return 0
	}
	return r.Balance
}

func detectSacrifice(mc *moveContext) string {
	given := mc.offered()
	if given < board.Pawn.Value() {
		return ""
	}
	if mc.rank != 0 && mc.best.score-mc.score > 30 {
		return ""
	}
	name := mc.piece().Name()
	if given < mc.piece().Value() {
		name = "material"
	}
	if !mc.detailed() {
		return fmt.Sprintf("a sound sacrifice of %s", article(name))
	}
	return fmt.Sprintf("sacrifices %s (%.1f pawns) and the engine still rates it %s", article(name), float64(given)/100, mc.cand.Score)
}

func article(name string) string {
	if name == "material" {
		return name
	}
	return "the " + name
}

func detectCapture(mc *moveContext) string {
	if !mc.hasExchange {
		return ""
	}
	attacker := mc.piece()
	victim := mc.b.PieceAt(mc.move.CapturedSquare()).Type()
	bal := mc.exchange.Balance

	var text string
	even := false
	switch {
	case bal >= victim.Value():
		text = "wins the " + victim.Name()
	case mc.exchange.Wins() && victim == board.Rook && (attacker == board.Knight || attacker == board.Bishop):
		text = "wins the exchange"
	case mc.exchange.Wins():
		text = "wins material"
	case mc.exchange.Loses():
		text = fmt.Sprintf("loses material in the exchange on %s", mc.move.To())
	case attacker == victim:
		text, even = fmt.Sprintf("trades %ss", victim.Name()), true
	default:
		text, even = fmt.Sprintf("trades the %s for the %s", attacker.Name(), victim.Name()), true
	}
	if !even && mc.detailed() {
		text += fmt.Sprintf(" (%+.1f)", float64(bal)/100)
	}
	return text
}

type squareCheck struct {
	prefix string
	detect positional.SquarePredicate
}

var pawnChecks = []squareCheck{
	{"creates a ", positional.DetectPassedPawn},
	{"the ", positional.DetectConnectedPawns},
	{"leaves an ", positional.DetectIsolatedPawn},
	{"leaves a ", positional.DetectBackwardPawn},
	{"creates ", positional.DetectDoubledPawn},
}

func runChecks(checks []squareCheck, b *board.Board, c *poscache.Cache, sq board.Square) string {
	for _, chk := range checks {
		if text, ok := chk.detect(b, c, sq); ok {
			return chk.prefix + text
		}
	}
	return ""
}

func detectPawnStructure(mc *moveContext) string {
	if mc.piece() != board.Pawn || mc.move.IsPromotion() {
		return ""
	}
	return runChecks(pawnChecks, mc.after, mc.afterCache(), mc.move.To())
}

func detectActivity(mc *moveContext) string {
	if mc.piece() == board.Pawn {
		return ""
	}
	checks := []squareCheck{
		{"puts the ", positional.DetectOutpost},
		{"puts the ", positional.DetectOpenFile},
		{"puts the ", positional.DetectCentralization},
		{"", positional.MobilityDetector(mc.cfg.Mobility)},
		{"", positional.DetectKingShelter},
	}
	return runChecks(checks, mc.after, mc.afterCache(), mc.move.To())
}

var endgameChecks = []positional.BoardPredicate{
	positional.DetectOpposition,
	positional.DetectKingActivity,
	positional.DetectFortress,
	positional.DetectZugzwang,
	positional.DetectBishopPair,
}

func detectEndgame(mc *moveContext) string {
	phase := positional.PhaseOf(mc.after)
	if !phase.IsEndgame() {
		return ""
	}
	ac := mc.afterCache()
	text := ""
	if t, ok := positional.DetectInsufficientMaterial(mc.after, ac); ok {
		text = t
	}
	for pawns := mc.after.Pieces(mc.mover, board.Pawn); text == "" && pawns != 0; {
		if t, ok := positional.DetectRuleOfSquare(mc.after, ac, pawns.PopLSB()); ok {
			text = t
		}
	}
	for _, detect := range endgameChecks {
		if text != "" {
			break
		}
		if t, ok := detect(mc.after, ac); ok {
			text = t
		}
	}
	if text != "" && mc.cfg.Complexity == config.Advanced {
		text = phase.String() + ": " + text
	}
	return text
}

var openingChecks = []positional.MovePredicate{
	positional.DetectCastling,
	positional.DetectDevelopment,
	positional.DetectCenterControl,
	positional.DetectEarlyQueen,
}

func detectOpening(mc *moveContext) string {
	for _, bm := range mc.bookMoves {
		if bm.Move == mc.move {
			if !mc.detailed() {
				return "a known opening move"
			}
			return fmt.Sprintf("a book move, chosen %.0f%% of the time", bm.Priority*100)
		}
	}
	for _, detect := range openingChecks {
		if text, ok := detect(mc.b, mc.move); ok {
			return text
		}
	}
	return ""
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func detectWinRate(mc *moveContext) string {
	s := mc.cand.Score
	p := mc.winProb
	switch {
	case s.Mate != 0 && mates(s, mc.mover):
		return fmt.Sprintf("forces mate in %d", abs(s.Mate))
	case s.Mate != 0:
		return fmt.Sprintf("allows mate in %d", abs(s.Mate))
	case p >= 75:
		return fmt.Sprintf("keeps a winning position (about %.0f%% to win)", p)
	case p >= 60:
		return fmt.Sprintf("keeps an edge (about %.0f%% to win)", p)
	case p <= 25:
		return fmt.Sprintf("leaves a difficult position (about %.0f%% to win)", p)
	}
	return ""
}

func detectFallback(mc *moveContext) string {
	if mc.rank == 0 {
		if mc.total > 1 {
			return "the engine's first choice"
		}
		return "a reasonable move"
	}
	if mates(mc.best.cand.Score, mc.mover) && !mates(mc.cand.Score, mc.mover) {
		return "misses a forced mate"
	}
	gap := float64(mc.best.score-mc.score) / 100
	if gap < 0.3 {
		return "about as good as the best move"
	}
	return fmt.Sprintf("playable, but %.1f pawns behind %s", gap, mc.best.san())
}
