package suggest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/search"
)

func newTestLedger() (*Ledger, *time.Time) {
	l := New(zerolog.Nop())
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	cur := &now
	l.now = func() time.Time { return *cur }
	return l, cur
}

func TestUpsertCaseInsensitive(t *testing.T) {
	l, _ := newTestLedger()

	first, ok := l.Upsert(search.FieldPerson, "Alice")
	require.True(t, ok)
	second, ok := l.Upsert(search.FieldPerson, "ALICE")
	require.True(t, ok)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.UsageCount)
	assert.Equal(t, "Alice", second.Value, "original casing kept")

	if _, ok := l.Upsert(search.FieldPerson, "   "); ok {
		t.Error("blank value upserted")
	}
	assert.Len(t, l.Fetch(search.FieldPerson, "", true), 1)
}

func TestUpsertRevivesDeleted(t *testing.T) {
	l, _ := newTestLedger()
	e, _ := l.Upsert(search.FieldProject, "朝の番組")
	require.True(t, l.SoftDelete(e.ID))
	assert.Empty(t, l.Fetch(search.FieldProject, "", false))

	revived, ok := l.Upsert(search.FieldProject, "朝の番組")
	require.True(t, ok)
	assert.Equal(t, e.ID, revived.ID)
	assert.False(t, revived.Deleted)
	assert.Len(t, l.Fetch(search.FieldProject, "", false), 1)
}

func TestFetchFilterAndOrder(t *testing.T) {
	l, cur := newTestLedger()

	a, _ := l.Upsert(search.FieldTag, "#あさ")
	*cur = cur.Add(time.Minute)
	l.Upsert(search.FieldTag, "#ばん")
	*cur = cur.Add(time.Minute)
	l.Upsert(search.FieldTag, "#あさごはん")
	l.Upsert(search.FieldPerson, "あさの") // other field, excluded

	got := l.Fetch(search.FieldTag, "あさ", false)
	require.Len(t, got, 2)
	// Most recently used first.
	assert.Equal(t, "#あさごはん", got[0].Value)
	assert.Equal(t, "#あさ", got[1].Value)

	// Equal recency falls back to usage count, then value.
	require.True(t, l.SoftDelete(a.ID))
	assert.Len(t, l.Fetch(search.FieldTag, "あさ", false), 1)
	assert.Len(t, l.Fetch(search.FieldTag, "あさ", true), 2)
}

func TestFetchTieBreaks(t *testing.T) {
	l, _ := newTestLedger()
	// Same clock for every write: lastUsedAt ties across the board.
	l.Upsert(search.FieldPlace, "b-park")
	l.Upsert(search.FieldPlace, "a-park")
	l.Upsert(search.FieldPlace, "a-park")

	got := l.Fetch(search.FieldPlace, "", false)
	require.Len(t, got, 2)
	assert.Equal(t, "a-park", got[0].Value, "higher usage first on equal recency")

	l.Upsert(search.FieldPlace, "b-park")
	got = l.Fetch(search.FieldPlace, "", false)
	assert.Equal(t, "a-park", got[0].Value, "value asc on full tie")
}

func TestBumpUsageKeepsDeletedFlag(t *testing.T) {
	l, _ := newTestLedger()
	e, _ := l.Upsert(search.FieldEmotion, "うれしい")
	require.True(t, l.SoftDelete(e.ID))
	require.True(t, l.BumpUsage(e.ID))

	got := l.Fetch(search.FieldEmotion, "", true)
	require.Len(t, got, 1)
	assert.True(t, got[0].Deleted)
	assert.Equal(t, 2, got[0].UsageCount)

	assert.False(t, l.BumpUsage("missing-id"))
	assert.False(t, l.Restore("missing-id"))
}

func TestPrime(t *testing.T) {
	l, _ := newTestLedger()

	added := l.Prime(search.FieldTag, []string{"#仕事", "＃仕事", "学び", "   "})
	assert.Equal(t, 2, added, "input deduped by normalized key")

	got := l.Fetch(search.FieldTag, "", true)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, byte('#'), e.Value[0], "tag seeds carry the canonical # prefix")
		assert.Zero(t, e.UsageCount)
	}

	// A soft-deleted entry blocks re-seeding of the same key.
	e, _ := l.Upsert(search.FieldPerson, "田中")
	require.True(t, l.SoftDelete(e.ID))
	assert.Equal(t, 0, l.Prime(search.FieldPerson, []string{" 田中 "}))
	assert.Equal(t, 1, l.Prime(search.FieldPerson, []string{"佐藤"}))
}

func TestWriteBehindPersister(t *testing.T) {
	var mu sync.Mutex
	var saved []model.Suggestion
	p := persisterFunc(func(ctx context.Context, s model.Suggestion) error {
		mu.Lock()
		defer mu.Unlock()
		saved = append(saved, s)
		return nil
	})

	l, _ := newTestLedger()
	l.WithPersister(p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)

	l.Upsert(search.FieldTag, "#仕事")

	// Durable effect is deferred; poll for convergence.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(saved)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("write-behind mirror never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	l, _ := newTestLedger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Upsert(search.FieldTag, "#racer")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Fetch(search.FieldTag, "race", false)
			}
		}()
	}
	wg.Wait()

	got := l.Fetch(search.FieldTag, "", false)
	require.Len(t, got, 1)
	assert.Equal(t, 800, got[0].UsageCount)
}

type persisterFunc func(ctx context.Context, s model.Suggestion) error

func (f persisterFunc) SaveSuggestion(ctx context.Context, s model.Suggestion) error {
	return f(ctx, s)
}
