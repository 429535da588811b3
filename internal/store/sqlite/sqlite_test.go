package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store/storetest"
)

func TestSqliteStore_Compliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		path := filepath.Join(t.TempDir(), "episodes.db")
		s, err := New(context.Background(), path)
		if err != nil {
			t.Fatalf("sqlite open: %v", err)
		}
		return s
	})
}
