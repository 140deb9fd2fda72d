package testsupport

import (
	"context"
	"testing"

	"reelsync/internal/config"
	"reelsync/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedItem upserts a minimal catalog item for tests.
func SeedItem(t testing.TB, st *store.Store, contentID, title string, year int) *store.Item {
	t.Helper()

	item := &store.Item{
		ContentID: contentID,
		Kind:      store.KindMovie,
		Title:     title,
		Year:      year,
	}
	if _, err := st.UpsertItem(context.Background(), item); err != nil {
		t.Fatalf("store.UpsertItem: %v", err)
	}
	seeded, err := st.GetItem(context.Background(), contentID)
	if err != nil {
		t.Fatalf("store.GetItem: %v", err)
	}
	return seeded
}
