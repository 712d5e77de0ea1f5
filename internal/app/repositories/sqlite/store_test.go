package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yigit/univote/internal/app/repositories/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "univote.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) *storetest.Store {
		store := newTestStore(t)
		return &storetest.Store{
			Repositories: store.Repositories,
			Exec: func(ctx context.Context, query string) error {
				_, err := store.DB().ExecContext(ctx, query)
				return err
			},
		}
	})
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "univote.db")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		s, err := store.Settings.Get(context.Background())
		store.Close()
		if err != nil || s.VotingOpen {
			t.Fatalf("settings after open #%d = %+v, %v", i+1, s, err)
		}
	}
}
