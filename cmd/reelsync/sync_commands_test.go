package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsync/internal/catalog"
	"reelsync/internal/store"
)

func TestSyncDailyDiscardsCredentialOnAuthRejection(t *testing.T) {
	env := setupCLITestEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	env.cfg.Catalog.BaseURL = server.URL
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"token", "--save"}, env.configPath); err != nil {
		t.Fatalf("token --save: %v", err)
	}

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := st.ActiveCredential(context.Background()); err != nil {
		t.Fatalf("expected a saved credential before sync: %v", err)
	}
	st.Close()

	_, _, err = runCLI(t, []string{"sync", "daily"}, env.configPath)
	if !errors.Is(err, catalog.ErrAuthRejected) {
		t.Fatalf("expected auth rejection, got %v", err)
	}

	st, err = store.Open(env.cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	if _, err := st.ActiveCredential(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected credential discarded after rejection, got %v", err)
	}
}
