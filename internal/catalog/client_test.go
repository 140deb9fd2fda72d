package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/edgeauth"
	"reelsync/internal/testsupport"
)

func newIssuer(t *testing.T) *edgeauth.Issuer {
	t.Helper()
	issuer, err := edgeauth.NewIssuer("deadbeef", "/*", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func feedPage(items string) string {
	return fmt.Sprintf(`{"body":{"results":{"items":[%s],"totalResults":12345}}}`, items)
}

const sampleItem = `{
	"contentId": 1770001234,
	"contentType": "MOVIE",
	"title": "3 Idiots",
	"description": "Two friends search for a third.",
	"year": 2009,
	"duration": 10220,
	"lang": ["Hindi"],
	"genre": ["Comedy", "Drama"],
	"actors": ["Aamir Khan", "R. Madhavan", "Sharman Joshi"],
	"director": ["Rajkumar Hirani"],
	"images": {"h": "https://img.example/h.jpg", "v": "https://img.example/v.jpg"},
	"locators": [{"platform": "web", "url": "https://watch.example/3-idiots"}],
	"startDate": 1262304000000,
	"updateDate": 1700000000000
}`

func TestFetchPageDecodesItems(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		if r.URL.Path != "/movie/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("hdnea") == "" {
			t.Error("expected hdnea credential header")
		}
		if r.Header.Get("x-country-code") != "in" {
			t.Errorf("unexpected country code %q", r.Header.Get("x-country-code"))
		}
		fmt.Fprint(w, feedPage(sampleItem))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogBaseURL(server.URL))
	client := catalog.NewClient(cfg.Catalog, newIssuer(t), nil)

	page, err := client.FetchPage(context.Background(), catalog.PageQuery{Offset: 2000, Size: 1000})
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if gotQuery["offset"] != "2000" || gotQuery["size"] != "1000" {
		t.Fatalf("unexpected pagination params: %v", gotQuery)
	}
	if gotQuery["orderBy"] != "contentId" || gotQuery["order"] != "desc" {
		t.Fatalf("unexpected ordering params: %v", gotQuery)
	}

	if page.TotalResults != 12345 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: total=%d items=%d", page.TotalResults, len(page.Items))
	}

	item := page.Items[0]
	if item.ContentID != "1770001234" {
		t.Fatalf("unexpected content id %q", item.ContentID)
	}
	if item.Title != "3 Idiots" || item.Year != 2009 || item.Duration != 10220 {
		t.Fatalf("unexpected core fields: %+v", item)
	}
	if len(item.Images) != 2 || item.Images[0] != "h=https://img.example/h.jpg" {
		t.Fatalf("unexpected flattened images: %v", item.Images)
	}
	if len(item.Locators) != 1 || item.Locators[0] != "web=https://watch.example/3-idiots" {
		t.Fatalf("unexpected locators: %v", item.Locators)
	}
	if len(item.Raw) == 0 {
		t.Fatal("expected raw payload snapshot")
	}
}

func TestFetchPageSendsWindowBounds(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		fmt.Fprint(w, feedPage(""))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogBaseURL(server.URL))
	client := catalog.NewClient(cfg.Catalog, newIssuer(t), nil)

	from := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.FetchPage(context.Background(), catalog.PageQuery{
		Offset: 0,
		Size:   1000,
		Window: &catalog.Window{From: from, To: to},
		Field:  catalog.WindowStartDate,
	})
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if gotQuery["fromStartDate"] != "1451606400000" || gotQuery["toStartDate"] != "1483228800000" {
		t.Fatalf("unexpected window params: %v", gotQuery)
	}
	if _, ok := gotQuery["fromUpdateDate"]; ok {
		t.Fatal("start-date window must not set update-date params")
	}
}

func TestFetchPageRefreshesCredentialExactlyOnce(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("hdnea"))
		if len(tokens) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, feedPage(""))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogBaseURL(server.URL))
	issuer := newIssuer(t)
	client := catalog.NewClient(cfg.Catalog, issuer, nil)

	// Seed a still-valid credential the server will reject, so the retry
	// must carry a freshly issued token.
	now := time.Now()
	client.Seed(edgeauth.Credential{Token: "revoked-token", IssuedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour)})

	if _, err := client.FetchPage(context.Background(), catalog.PageQuery{Offset: 0, Size: 10}); err != nil {
		t.Fatalf("FetchPage failed after refresh: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(tokens))
	}
	if tokens[0] == tokens[1] {
		t.Fatal("expected refreshed credential on retry")
	}
}

func TestFetchPageSecondRejectionIsFatal(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogBaseURL(server.URL))
	client := catalog.NewClient(cfg.Catalog, newIssuer(t), nil)

	_, err := client.FetchPage(context.Background(), catalog.PageQuery{Offset: 0, Size: 10})
	if !errors.Is(err, catalog.ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestFetchPagePropagatesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogBaseURL(server.URL))
	client := catalog.NewClient(cfg.Catalog, newIssuer(t), nil)

	_, err := client.FetchPage(context.Background(), catalog.PageQuery{Offset: 0, Size: 10})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !catalog.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	// The client never retries non-auth failures; backoff belongs to the
	// sync engine.
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestPageExhausted(t *testing.T) {
	full := &catalog.Page{Items: make([]catalog.Item, 1000)}
	if full.Exhausted(1000) {
		t.Fatal("full page should not exhaust the partition")
	}
	short := &catalog.Page{Items: make([]catalog.Item, 999)}
	if !short.Exhausted(1000) {
		t.Fatal("short page should exhaust the partition")
	}
	empty := &catalog.Page{}
	if !empty.Exhausted(1000) {
		t.Fatal("empty page should exhaust the partition")
	}
}
