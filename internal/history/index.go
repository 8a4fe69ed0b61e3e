package history

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Match is a search hit.
type Match struct {
	Entry
	Score int
	pos   int
}

// Index is the append-only command history of a session. Reads never block:
// they work on an immutable snapshot. Appends are serialized.
type Index struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]Entry]
	store   *Store
	session string
	log     *zap.Logger
	now     func() time.Time
}

// NewIndex creates an empty index. A nil store disables persistence.
func NewIndex(store *Store, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	x := &Index{
		store:   store,
		session: uuid.NewString(),
		log:     log,
		now:     time.Now,
	}
	empty := []Entry{}
	x.entries.Store(&empty)
	return x
}

// Session returns the id stamped on entries appended by this index.
func (x *Index) Session() string { return x.session }

// Load reads up to limit persisted entries (all of them if limit <= 0) and
// places them before anything already appended.
func (x *Index) Load(limit int) error {
	if x.store == nil {
		return nil
	}
	loaded, err := x.store.Load(limit)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	cur := *x.entries.Load()
	next := make([]Entry, 0, len(loaded)+len(cur))
	next = append(next, loaded...)
	next = append(next, cur...)
	x.entries.Store(&next)
	x.log.Debug("history loaded", zap.Int("entries", len(loaded)), zap.String("path", x.store.Path()))
	return nil
}

// Append records a command. Blank text is ignored. The entry stays in memory
// even when persisting it fails; the failure is logged and returned as a
// *PersistError.
func (x *Index) Append(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	x.mu.Lock()
	e := Entry{Text: text, Timestamp: x.now(), Session: x.session}
	// Readers only look at the prefix their snapshot covers, so growing the
	// shared backing array is safe.
	next := append(*x.entries.Load(), e)
	x.entries.Store(&next)
	x.mu.Unlock()

	if x.store == nil {
		return nil
	}
	if err := x.store.Append(e); err != nil {
		x.log.Warn("history not persisted", zap.Error(err))
		return err
	}
	return nil
}

// Entries returns a snapshot in append order.
func (x *Index) Entries() []Entry {
	return *x.entries.Load()
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(*x.entries.Load())
}

// Search ranks entries against query. Identical texts collapse to their most
// recent occurrence. Equal scores are ordered most recent first; an empty
// query lists everything most recent first. limit <= 0 means no limit.
func (x *Index) Search(query string, limit int) []Match {
	entries := x.Entries()
	seen := make(map[string]struct{}, len(entries))
	var out []Match
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if _, dup := seen[e.Text]; dup {
			continue
		}
		seen[e.Text] = struct{}{}
		score, ok := Score(query, e.Text)
		if !ok {
			continue
		}
		out = append(out, Match{Entry: e, Score: score, pos: i})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].pos > out[b].pos
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
