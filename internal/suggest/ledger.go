// Package suggest keeps the autocomplete usage ledger: known values per
// searchable field with usage counts and recency, independent of the
// reference-entity pools.
package suggest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/normalize"
	"github.com/comado-8/EpisodeStocker-sub000/internal/search"
)

// Persister mirrors ledger mutations into durable storage.
type Persister interface {
	SaveSuggestion(ctx context.Context, s model.Suggestion) error
}

// Ledger is a concurrent usage ledger keyed by (field, value) with
// case-insensitive value matching. Reads run under a shared lock; writes
// are mutually exclusive. Mutations are mirrored to the persister through
// a buffered queue, so a write's durable effect is deferred relative to
// the caller; in-memory visibility is immediate once the write returns.
type Ledger struct {
	mu      sync.RWMutex
	entries []model.Suggestion

	persist Persister
	log     zerolog.Logger
	writes  chan model.Suggestion

	now func() time.Time
}

// New returns an empty ledger.
func New(log zerolog.Logger) *Ledger {
	return &Ledger{
		log:    log,
		writes: make(chan model.Suggestion, 256),
		now:    time.Now,
	}
}

// WithPersister wires durable storage for write-behind mirroring.
func (l *Ledger) WithPersister(p Persister) *Ledger {
	l.persist = p
	return l
}

// Load replaces the ledger contents with persisted records. Called once at
// boot, before concurrent use.
func (l *Ledger) Load(records []model.Suggestion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries[:0], records...)
}

// Start drains the write-behind queue until ctx is cancelled. No-op
// without a persister.
func (l *Ledger) Start(ctx context.Context) {
	if l.persist == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-l.writes:
				if err := l.persist.SaveSuggestion(ctx, s); err != nil {
					l.log.Error().Err(err).Str("field", s.Field).Str("value", s.Value).Msg("suggestion write-behind failed")
				}
			}
		}
	}()
}

// Fetch returns entries of one field filtered by a case-insensitive
// substring query and, unless includeDeleted, the deleted flag. Order:
// last used desc, usage count desc, value asc.
func (l *Ledger) Fetch(field search.Field, query string, includeDeleted bool) []model.Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Suggestion
	for _, e := range l.entries {
		if e.Field != field.String() {
			continue
		}
		if e.Deleted && !includeDeleted {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Value), q) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.After(out[j].LastUsedAt)
		}
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Upsert records one use of value under field: an existing entry (matched
// case-insensitively) gets its count bumped, recency refreshed and deleted
// flag cleared; otherwise a new entry starts at count 1. Blank values are
// ignored.
func (l *Ledger) Upsert(field search.Field, value string) (model.Suggestion, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return model.Suggestion{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for i := range l.entries {
		e := &l.entries[i]
		if e.Field == field.String() && strings.EqualFold(e.Value, v) {
			e.UsageCount++
			e.LastUsedAt = now
			e.Deleted = false
			l.enqueue(*e)
			return *e, true
		}
	}
	e := model.Suggestion{
		ID:         uuid.New().String(),
		Field:      field.String(),
		Value:      v,
		UsageCount: 1,
		LastUsedAt: now,
	}
	l.entries = append(l.entries, e)
	l.enqueue(e)
	return e, true
}

// SoftDelete flips the deleted flag on; usage data is untouched.
func (l *Ledger) SoftDelete(id string) bool { return l.setDeleted(id, true) }

// Restore flips the deleted flag off; usage data is untouched.
func (l *Ledger) Restore(id string) bool { return l.setDeleted(id, false) }

func (l *Ledger) setDeleted(id string, deleted bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Deleted = deleted
			l.enqueue(l.entries[i])
			return true
		}
	}
	return false
}

// BumpUsage increments the count and refreshes recency without touching
// the deleted flag.
func (l *Ledger) BumpUsage(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].UsageCount++
			l.entries[i].LastUsedAt = l.now()
			l.enqueue(l.entries[i])
			return true
		}
	}
	return false
}

// Prime seeds raw values for a field, once. Values are normalized with the
// entity rules (tags become their '#'-prefixed canonical form, free names
// are trimmed) and inserted only when no existing entry, including
// soft-deleted ones, already covers the normalized key; a value the user
// removed on purpose stays removed. Seeded entries carry no usage yet.
func (l *Ledger) Prime(field search.Field, rawValues []string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	known := make(map[string]struct{})
	for _, e := range l.entries {
		if e.Field == field.String() {
			if k, ok := primeKey(field, e.Value); ok {
				known[k] = struct{}{}
			}
		}
	}

	added := 0
	for _, raw := range rawValues {
		display, key, ok := primeValue(field, raw)
		if !ok {
			continue
		}
		if _, dup := known[key]; dup {
			continue
		}
		known[key] = struct{}{}
		e := model.Suggestion{
			ID:    uuid.New().String(),
			Field: field.String(),
			Value: display,
		}
		l.entries = append(l.entries, e)
		l.enqueue(e)
		added++
	}
	return added
}

func primeValue(field search.Field, raw string) (display, key string, ok bool) {
	if field == search.FieldTag {
		name, ok := normalize.Tag(raw)
		if !ok {
			return "", "", false
		}
		return "#" + name, name, true
	}
	display, key, ok = normalize.Name(raw)
	return display, key, ok
}

func primeKey(field search.Field, value string) (string, bool) {
	if field == search.FieldTag {
		return normalize.Tag(value)
	}
	_, key, ok := normalize.Name(value)
	return key, ok
}

// enqueue hands a mutated entry to the write-behind drain. The queue never
// blocks a caller; an overflowing entry is dropped and logged, to be
// reconciled at next boot from the in-memory state.
func (l *Ledger) enqueue(s model.Suggestion) {
	if l.persist == nil {
		return
	}
	select {
	case l.writes <- s:
	default:
		l.log.Warn().Str("field", s.Field).Str("value", s.Value).Msg("suggestion write queue full, dropping mirror write")
	}
}
