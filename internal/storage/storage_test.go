package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/hailam/chessmentor/internal/explain"
)

func openTest(t *testing.T, opts ...Option) *AnalysisCache {
	t.Helper()
	ac, err := OpenInMemory(opts...)
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { ac.Close() })
	return ac
}

func TestPutGet(t *testing.T) {
	ac := openTest(t)
	exchange := 500
	want := &explain.Analysis{
		FEN:   "7k/4r3/8/3N4/8/8/8/K7 w - - 0 1",
		Phase: "late endgame",
		Moves: []explain.MoveAnalysis{{
			Move:           "d5e7",
			SAN:            "Nxe7",
			Score:          explain.Score{CP: 500},
			WinProbability: 81.7574,
			Lines:          []explain.Line{{Tier: explain.TierCapture, Detector: "capture", Text: "wins the rook (+5.0)"}},
			Exchange:       &exchange,
		}},
		Skipped: []explain.Skipped{{Move: "e1e3", Reason: "no piece can reach e3"}},
	}

	if _, ok, err := ac.Get("k"); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := ac.Put("k", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := ac.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	if hits, misses := ac.Stats(); hits != 1 || misses != 1 {
		t.Errorf("hits, misses = %d, %d; want 1, 1", hits, misses)
	}
	if n, err := ac.Len(); err != nil || n != 1 {
		t.Errorf("Len = %d, %v", n, err)
	}
	if err := ac.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := ac.Len(); n != 0 {
		t.Errorf("Len after Clear = %d", n)
	}
}

func TestTTL(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		expires bool
	}{
		{"no ttl", 0, false},
		{"one day", 24 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := openTest(t, WithTTL(tt.ttl))
			if err := ac.Put("k", &explain.Analysis{FEN: "x"}); err != nil {
				t.Fatal(err)
			}
			var expiresAt uint64
			err := ac.db.View(func(txn *badger.Txn) error {
				item, err := txn.Get([]byte(keyPrefix + "k"))
				if err != nil {
					return err
				}
				expiresAt = item.ExpiresAt()
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := expiresAt != 0; got != tt.expires {
				t.Fatalf("ExpiresAt = %d, want expiry %v", expiresAt, tt.expires)
			}
			if tt.expires {
				deadline := uint64(time.Now().Add(tt.ttl).Unix())
				if expiresAt > deadline+1 || expiresAt+60 < deadline {
					t.Errorf("ExpiresAt = %d, want about %d", expiresAt, deadline)
				}
			}
		})
	}
}

func TestAnalyzerUsesStore(t *testing.T) {
	ac := openTest(t)
	a := explain.New(explain.WithCache(ac))
	req := explain.Request{
		FEN:        "7k/4r3/8/3N4/8/8/8/K7 w - - 0 1",
		Candidates: []explain.Candidate{{UCI: "d5e7", Score: explain.Score{CP: 500}}},
	}

	first, err := a.Analyze(req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(req)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached analysis differs (-first +second):\n%s", diff)
	}
	if hits, _ := ac.Stats(); hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	ac, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ac.Put("k", &explain.Analysis{FEN: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := ac.Close(); err != nil {
		t.Fatal(err)
	}

	ac, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ac.Close()
	got, ok, err := ac.Get("k")
	if err != nil || !ok || got.FEN != "x" {
		t.Errorf("after reopen: %+v, %v, %v", got, ok, err)
	}
}

func TestDataPaths(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on Linux")
	}
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", base)

	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir: %v", err)
	}
	if want := filepath.Join(base, appName, "cache"); dir != want {
		t.Errorf("DefaultDir = %s, want %s", dir, want)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache directory was not created: %v", err)
	}
}
