package explain

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/chessmentor/internal/book"
)

// ResultCache stores finished analyses. Implementations decide expiry;
// a miss is (nil, false, nil).
type ResultCache interface {
	Get(key string) (*Analysis, bool, error)
	Put(key string, a *Analysis) error
}

// CacheKey identifies an analysis request: the position, every candidate
// with its score and line, the fingerprint of the config in force and the
// fingerprint of the opening book (0 without one).
func CacheKey(fen string, candidates []Candidate, fingerprint, bookID uint64) string {
	var sb strings.Builder
	sb.WriteString(fen)
	for _, c := range candidates {
		sb.WriteByte('|')
		sb.WriteString(c.UCI)
		sb.WriteByte(':')
		sb.WriteString(c.Score.String())
		for _, mv := range c.PV {
			sb.WriteByte(' ')
			sb.WriteString(mv)
		}
	}
	return strconv.FormatUint(xxhash.Sum64String(sb.String()), 16) + "-" +
		strconv.FormatUint(fingerprint, 16) + "-" + strconv.FormatUint(bookID, 16)
}

// MemoryCache is a bounded in-process ResultCache. When full it drops
// half of its entries. It stores and returns copies, so callers may modify
// what they put or get.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	hits    uint64
	misses  uint64
}

type memoryEntry struct {
	analysis *Analysis
	expires  time.Time // zero when the cache has no ttl
}

// NewMemoryCache creates a cache holding at most size analyses, each for
// ttl. A ttl of 0 keeps entries until evicted.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size < 2 {
		size = 2
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry, size),
		maxSize: size,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (mc *MemoryCache) Get(key string) (*Analysis, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	e, ok := mc.entries[key]
	if ok && !e.expires.IsZero() && !mc.now().Before(e.expires) {
		delete(mc.entries, key)
		ok = false
	}
	if !ok {
		mc.misses++
		return nil, false, nil
	}
	mc.hits++
	return e.analysis.clone(), true, nil
}

func (mc *MemoryCache) Put(key string, a *Analysis) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.entries[key]; !ok && len(mc.entries) >= mc.maxSize {
		i := 0
		for k := range mc.entries {
			if i >= mc.maxSize/2 {
				break
			}
			delete(mc.entries, k)
			i++
		}
	}
	e := memoryEntry{analysis: a.clone()}
	if mc.ttl > 0 {
		e.expires = mc.now().Add(mc.ttl)
	}
	mc.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}

// Stats returns the hit and miss counts.
func (mc *MemoryCache) Stats() (hits, misses uint64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.hits, mc.misses
}

// clone copies a down to its slices.
func (a *Analysis) clone() *Analysis {
	if a == nil {
		return nil
	}
	out := *a
	out.Skipped = slices.Clone(a.Skipped)
	if a.Book != nil {
		out.Book = make([]book.Move, len(a.Book))
		for i, bm := range a.Book {
			bm.Sources = slices.Clone(bm.Sources)
			out.Book[i] = bm
		}
	}
	if a.Moves != nil {
		out.Moves = make([]MoveAnalysis, len(a.Moves))
		for i, m := range a.Moves {
			m.Lines = slices.Clone(m.Lines)
			m.Threats = slices.Clone(m.Threats)
			m.Defenses = slices.Clone(m.Defenses)
			if m.Exchange != nil {
				x := *m.Exchange
				m.Exchange = &x
			}
			out.Moves[i] = m
		}
	}
	return &out
}
