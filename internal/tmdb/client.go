package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reelsync/internal/config"
)

// Result represents a single reference catalog search match.
type Result struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
}

// Year extracts the release year, or 0 when unknown.
func (r *Result) Year() int {
	if len(r.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(r.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// Response models the paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// CastMember is one credited cast entry.
type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is one credited crew entry.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits holds the cast and crew lists of a movie.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Directors returns the names of crew members credited as director.
func (c *Credits) Directors() []string {
	var names []string
	for _, member := range c.Crew {
		if strings.EqualFold(member.Job, "Director") {
			names = append(names, member.Name)
		}
	}
	return names
}

// ExternalIDs carries cross-catalog identifiers.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

// Movie is the extended detail payload including credits and external
// ids, fetched in a single request via append_to_response.
type Movie struct {
	Result
	Runtime     int         `json:"runtime"` // minutes
	Credits     Credits     `json:"credits"`
	ExternalIDs ExternalIDs `json:"external_ids"`
	IMDBID      string      `json:"imdb_id"`
}

// ImdbID returns the imdb identifier from whichever field carried it.
func (m *Movie) ImdbID() string {
	if m.ExternalIDs.IMDBID != "" {
		return m.ExternalIDs.IMDBID
	}
	return m.IMDBID
}

// SearchOptions contains optional parameters for a movie search.
type SearchOptions struct {
	Year     int
	Language string
}

// API defines the reference catalog operations used by the resolver.
type API interface {
	SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	MovieDetails(ctx context.Context, movieID int64) (*Movie, error)
	GetExternalID(ctx context.Context, movieID int64) (string, error)
}

// Client provides rate-limited access to the reference catalog API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a reference catalog client from config. The shared rate
// limiter admits cfg.RateBudget requests per cfg.RateWindowSeconds.
func New(cfg config.Reference, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}

	window := time.Duration(cfg.RateWindowSeconds) * time.Second
	limit := rate.Limit(float64(cfg.RateBudget) / window.Seconds())

	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second},
		limiter:    rate.NewLimiter(limit, cfg.RateBudget),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMovie searches the reference catalog for the supplied title.
func (c *Client) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("primary_release_year", strconv.Itoa(opts.Year))
	}
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	var payload Response
	if err := c.get(ctx, "/search/movie", params, &payload); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return &payload, nil
}

// MovieDetails fetches extended movie detail including credits and
// external ids in one request.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*Movie, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}

	params := url.Values{}
	params.Set("append_to_response", "credits,external_ids")

	var payload Movie
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), params, &payload); err != nil {
		return nil, fmt.Errorf("movie details %d: %w", movieID, err)
	}
	return &payload, nil
}

// GetExternalID fetches the imdb identifier for a movie on its own.
// Fallback for candidates whose detail payload carried no external id.
func (c *Client) GetExternalID(ctx context.Context, movieID int64) (string, error) {
	if movieID <= 0 {
		return "", errors.New("movie id must be positive")
	}

	var payload ExternalIDs
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/external_ids", movieID), url.Values{}, &payload); err != nil {
		return "", fmt.Errorf("external ids %d: %w", movieID, err)
	}
	return payload.IMDBID, nil
}

// rateLimitPause is how long to wait after an upstream 429 before the
// single retry.
const rateLimitPause = 2 * time.Second

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			resp.Body.Close()
			select {
			case <-time.After(rateLimitPause):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("reference api returned %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}
