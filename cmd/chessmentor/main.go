// Command chessmentor explains engine candidate moves for a chess position.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chessmentor/internal/book"
	"github.com/hailam/chessmentor/internal/config"
	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/explain"
	"github.com/hailam/chessmentor/internal/storage"
)

// memoryCacheSize bounds the in-process result cache.
const memoryCacheSize = 1024

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "chessmentor:", err)
		return 2
	}
	log := newLogger(stderr, opts.verbose)

	app, err := setup(ctx, opts, log)
	if err != nil {
		log.Error().Err(err).Msg("setup failed")
		return 1
	}
	defer app.close()

	if opts.batch != "" {
		err = app.runBatch(ctx, opts.batch, stdout)
	} else {
		err = app.runSingle(opts, stdout)
	}
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// app is everything one invocation shares across requests.
type app struct {
	cfg      *config.Config
	analyzer *explain.Analyzer
	workers  int
	log      zerolog.Logger
	closers  []func() error
}

func setup(ctx context.Context, opts *options, log zerolog.Logger) (*app, error) {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return nil, err
		}
	}
	a := &app{cfg: cfg, workers: cfg.Workers, log: log}
	if opts.workers > 0 {
		a.workers = opts.workers
	}

	analyzerOpts := []explain.Option{explain.WithConfig(cfg), explain.WithLogger(log)}

	paths := append(append([]string{}, cfg.BookFiles...), opts.books...)
	if len(paths) > 0 {
		bk, err := book.Loader{Log: log, Limit: 4}.LoadFiles(ctx, paths...)
		if err != nil {
			log.Warn().Err(err).Msg("continuing with the books that loaded")
		}
		if bk.Len() > 0 {
			log.Info().Strs("books", bk.Sources()).Int("entries", bk.Len()).Msg("opening books ready")
			analyzerOpts = append(analyzerOpts, explain.WithBook(bk))
		}
	}

	cache, err := a.openCache(opts.cacheDir)
	if err != nil {
		return nil, err
	}
	analyzerOpts = append(analyzerOpts, explain.WithCache(cache))

	a.analyzer = explain.New(analyzerOpts...)
	return a, nil
}

// openCache returns the badger store when dir is set and an in-process
// cache otherwise.
func (a *app) openCache(dir string) (explain.ResultCache, error) {
	if dir == "" {
		return explain.NewMemoryCache(memoryCacheSize, time.Duration(a.cfg.CacheTTL)), nil
	}
	if dir == "default" {
		var err error
		if dir, err = storage.DefaultDir(); err != nil {
			return nil, errors.Wrap(err, "locate cache dir")
		}
	}
	store, err := storage.Open(dir,
		storage.WithTTL(time.Duration(a.cfg.CacheTTL)),
		storage.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("dir", dir).Msg("result cache opened")
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
}
