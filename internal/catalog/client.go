// Package catalog talks to the remote movie/TV catalog (TMDB API v3).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

const (
	// DefaultBaseURL is the TMDB API base URL
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// UserAgent identifies this application to the catalog
	UserAgent = "mcl-MovieChecklist/1.0 (https://github.com/franz/movie-checklist)"

	// DefaultRateLimit is the sustained request rate per second
	DefaultRateLimit = 4
)

// Config holds client settings
type Config struct {
	BaseURL   string
	APIKey    string
	Language  string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = DefaultRateLimit
	Burst     int

	// HTTPClient overrides the default client (tests)
	HTTPClient *http.Client
}

// Client handles catalog API requests with rate limiting
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a new catalog API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		userAgent:  UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
	}
}

// SearchMulti searches movies and series by free text. People and other
// result kinds are dropped from the page.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	util.DebugLog("Catalog API: searching for '%s' (page %d)", query, page)

	var result SearchPage
	if err := c.get(ctx, "search", "/search/multi", params, &result); err != nil {
		return nil, err
	}

	filtered := result.Results[:0]
	for _, r := range result.Results {
		if r.MediaType == "movie" || r.MediaType == "tv" {
			filtered = append(filtered, r)
		}
	}
	result.Results = filtered

	util.DebugLog("Catalog: %d results for '%s'", len(result.Results), query)

	return &result, nil
}

// Details retrieves the full payload of a movie or series
func (c *Client) Details(ctx context.Context, id int64, mediaType library.MediaType) (*Detail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("catalog id must be positive, got %d", id)
	}

	path := fmt.Sprintf("/%s/%d", mediaType.CatalogType(), id)

	util.DebugLog("Catalog API: looking up %s", path)

	var detail Detail
	if err := c.get(ctx, "details", path, url.Values{}, &detail); err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, ErrNotFound
	}

	util.DebugLog("Catalog: retrieved '%s' with %d genres", firstNonEmpty(detail.Title, detail.Name), len(detail.Genres))

	return &detail, nil
}

// get performs a rate-limited GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.language != "" {
		params.Set("language", c.language)
	}
	urlStr := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
