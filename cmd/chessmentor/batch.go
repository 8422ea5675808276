// batch.go - JSON Lines batch mode
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/explain"
	"github.com/hailam/chessmentor/internal/worker"
)

// maxLineSize bounds one request line.
const maxLineSize = 1 << 20

// batchOutput is one line of batch output.
type batchOutput struct {
	Line     int               `json:"line"`
	Analysis *explain.Analysis `json:"analysis,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// readRequests parses a JSON Lines file. Lines that do not decode come back
// as results carrying the error so they keep their place in the output.
func readRequests(r io.Reader) ([]worker.Job, []worker.Result, error) {
	var jobs []worker.Job
	var bad []worker.Result

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		source := "line " + strconv.Itoa(lineNo)
		var req explain.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			bad = append(bad, worker.Result{Index: lineNo, Source: source, Err: errors.Wrap(err, "decode request")})
			continue
		}
		jobs = append(jobs, worker.Job{Request: req, Index: lineNo, Source: source})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "read batch")
	}
	return jobs, bad, nil
}

func (a *app) runBatch(ctx context.Context, path string, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open batch %s", path)
	}
	jobs, results, err := readRequests(f)
	f.Close()
	if err != nil {
		return err
	}

	a.log.Info().Str("file", path).Int("requests", len(jobs)).Int("workers", a.workers).Msg("batch started")
	results = append(results, worker.Run(ctx, jobs, worker.AnalyzerFunc(a.analyzer),
		worker.WithWorkers(a.workers),
		worker.WithBufferSize(2*max(a.workers, 1)))...)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	w := bufio.NewWriter(stdout)
	enc := json.NewEncoder(w)
	failed := 0
	for _, r := range results {
		out := batchOutput{Line: r.Index, Analysis: r.Analysis}
		if r.Err != nil {
			failed++
			out.Error = r.Err.Error()
			a.log.Warn().Err(r.Err).Str("source", r.Source).Msg("request failed")
		}
		if err := enc.Encode(out); err != nil {
			return errors.Wrap(err, "write batch output")
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "write batch output")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(results))
	}
	a.log.Info().Int("requests", len(results)).Msg("batch done")
	return nil
}
