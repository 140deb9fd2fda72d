// Package catalog implements the HTTP client for the upstream catalog
// feed.
//
// The client signs every request with a credential from the edgeauth
// issuer. On an auth rejection it requests exactly one fresh credential
// and retries the same request once; any other failure propagates to
// the sync engine, which owns backoff policy.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"reelsync/internal/config"
	"reelsync/internal/edgeauth"
	"reelsync/internal/logging"
)

// ErrAuthRejected indicates the upstream rejected a freshly issued
// credential; the call is fatal for the run.
var ErrAuthRejected = errors.New("catalog: credential rejected after refresh")

// TransientError wraps an upstream failure the sync engine may retry
// after its own cooldown.
type TransientError struct {
	Status int
	Body   string
}

func (e *TransientError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("catalog: upstream status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("catalog: upstream status %d", e.Status)
}

// IsTransient reports whether err is retryable by the caller.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// WindowField selects which upstream timestamp a query window bounds.
type WindowField string

const (
	// WindowStartDate bounds results by first availability, used by
	// bootstrap year partitioning.
	WindowStartDate WindowField = "StartDate"
	// WindowUpdateDate bounds results by last modification, used by
	// incremental watermark sync.
	WindowUpdateDate WindowField = "UpdateDate"
)

// Window is a closed time interval restricting a page query.
type Window struct {
	From time.Time
	To   time.Time
}

// PageQuery describes one feed page request.
type PageQuery struct {
	Offset int
	Size   int
	Window *Window
	Field  WindowField
}

// Page is the decoded result of one feed request.
type Page struct {
	Items        []Item
	TotalResults int
}

// Exhausted reports whether pagination for the current partition is
// done: a short or empty page means no further offsets hold items.
func (p *Page) Exhausted(requested int) bool {
	return len(p.Items) < requested
}

// Client fetches catalog pages with credential management.
type Client struct {
	cfg    config.Catalog
	issuer *edgeauth.Issuer
	http   *http.Client
	logger *slog.Logger

	mu   sync.Mutex
	cred edgeauth.Credential
}

// NewClient builds a catalog client. The logger may be nil.
func NewClient(cfg config.Catalog, issuer *edgeauth.Issuer, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		issuer: issuer,
		http: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		logger: logging.WithComponent(logger, "catalog"),
	}
}

// Seed installs a previously persisted credential so a fresh process
// can reuse it until rejection.
func (c *Client) Seed(cred edgeauth.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = cred
}

// Credential returns the credential currently in use, refreshing it
// first if none is held or the held one has expired.
func (c *Client) Credential() edgeauth.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cred.ValidAt(time.Now()) {
		c.cred = c.issuer.Issue()
	}
	return c.cred
}

func (c *Client) refreshCredential() edgeauth.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = c.issuer.Issue()
	return c.cred
}

// FetchPage retrieves one page of the feed. Pagination for a partition
// is exhausted when the page is shorter than requested. On an auth
// rejection the client refreshes its credential and retries once; a
// second rejection returns ErrAuthRejected. All other non-2xx statuses
// return a TransientError for the engine to handle.
func (c *Client) FetchPage(ctx context.Context, query PageQuery) (*Page, error) {
	if query.Size <= 0 {
		return nil, fmt.Errorf("catalog: page size must be positive, got %d", query.Size)
	}

	cred := c.Credential()
	page, err := c.fetchOnce(ctx, query, cred)
	if !errors.Is(err, errUnauthorized) {
		return page, err
	}

	c.logger.Warn("credential rejected, refreshing",
		logging.Int("offset", query.Offset))
	cred = c.refreshCredential()
	page, err = c.fetchOnce(ctx, query, cred)
	if errors.Is(err, errUnauthorized) {
		return nil, ErrAuthRejected
	}
	return page, err
}

var errUnauthorized = errors.New("catalog: unauthorized")

type feedEnvelope struct {
	Body struct {
		Results struct {
			Items        []Item `json:"items"`
			TotalResults int    `json:"totalResults"`
		} `json:"results"`
	} `json:"body"`
}

func (c *Client) fetchOnce(ctx context.Context, query PageQuery, cred edgeauth.Credential) (*Page, error) {
	endpoint, err := c.buildURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("x-country-code", c.cfg.CountryCode)
	req.Header.Set("x-platform-code", c.cfg.PlatformCode)
	req.Header.Set("x-region-code", c.cfg.RegionCode)
	req.Header.Set("x-client-code", c.cfg.ClientCode)
	req.Header.Set("x-partner-name", c.cfg.PartnerID)
	req.Header.Set("hdnea", cred.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, errUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransientError{Status: resp.StatusCode, Body: string(body)}
	}

	var envelope feedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("catalog: decode page at offset %d: %w", query.Offset, err)
	}

	return &Page{
		Items:        envelope.Body.Results.Items,
		TotalResults: envelope.Body.Results.TotalResults,
	}, nil
}

func (c *Client) buildURL(query PageQuery) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL + "/movie/search")
	if err != nil {
		return "", fmt.Errorf("catalog: parse base url: %w", err)
	}

	params := url.Values{}
	params.Set("partner", c.cfg.PartnerID)
	params.Set("orderBy", "contentId")
	params.Set("order", "desc")
	params.Set("offset", strconv.Itoa(query.Offset))
	params.Set("size", strconv.Itoa(query.Size))

	if query.Window != nil {
		field := query.Field
		if field == "" {
			field = WindowUpdateDate
		}
		params.Set("from"+string(field), strconv.FormatInt(query.Window.From.UnixMilli(), 10))
		params.Set("to"+string(field), strconv.FormatInt(query.Window.To.UnixMilli(), 10))
	}

	base.RawQuery = params.Encode()
	return base.String(), nil
}
