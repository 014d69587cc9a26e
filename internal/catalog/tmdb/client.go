package tmdb

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
	"strings"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p"
	defaultTimeout      = 15 * time.Second
	userAgent           = "Marquee/1.0"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	Language          string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side limiting
	HTTPClient        *http.Client
}

// Client implements domain.CatalogClient for the TMDB v3 API
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ domain.CatalogClient = (*Client)(nil)

// NewClient creates a new TMDB API client
func NewClient(apiKey string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		language:   opts.Language,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// doRequest performs a GET with the api_key query parameter and decodes JSON into dest
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, dest any) error {
	if c.apiKey == "" {
		return &domain.CatalogError{Kind: domain.CatalogUnknown, Err: errors.New("tmdb api key not set")}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.CatalogError{Kind: domain.CatalogNetworkUnavailable, Err: err}
		}
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if c.language != "" && query.Get("language") == "" {
		query.Set("language", c.language)
	}
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("tmdb request", "path", path, "page", query.Get("page"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("tmdb request failed", "path", path, "error", err)
		return &domain.CatalogError{Kind: domain.CatalogNetworkUnavailable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.CatalogError{Kind: domain.CatalogNetworkUnavailable, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return c.statusError(path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "path", path, "error", err, "bodyLen", len(body))
		return &domain.CatalogError{Kind: domain.CatalogUnknown, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

func (c *Client) statusError(path string, status int, body []byte) error {
	kind := domain.CatalogUnknown
	switch {
	case status == http.StatusNotFound:
		kind = domain.CatalogNotFound
	case status == http.StatusTooManyRequests:
		kind = domain.CatalogRateLimited
	case status >= 500:
		kind = domain.CatalogNetworkUnavailable
	}

	var apiErr errorResponse
	var cause error
	if json.Unmarshal(body, &apiErr) == nil && apiErr.StatusMessage != "" {
		cause = errors.New(apiErr.StatusMessage)
	}

	c.logger.Error("tmdb request error", "path", path, "status", status, "kind", kind.String())
	return &domain.CatalogError{Kind: kind, Status: status, Err: cause}
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

func checkKind(kind domain.MediaKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	return nil
}

// categoryPath maps a category to its endpoint. "trending" uses the daily window.
func categoryPath(kind domain.MediaKind, category string) string {
	if category == domain.CategoryTrending {
		return "/trending/" + string(kind) + "/day"
	}
	return "/" + string(kind) + "/" + url.PathEscape(category)
}

// ListByCategory returns one page of a category listing
func (c *Client) ListByCategory(ctx context.Context, kind domain.MediaKind, category string, page int) (*domain.CatalogPage, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var resp listResponse
	if err := c.doRequest(ctx, categoryPath(kind, category), pageQuery(page), &resp); err != nil {
		return nil, err
	}
	return mapPage(&resp, kind), nil
}

// Search returns one page of search results
func (c *Client) Search(ctx context.Context, kind domain.MediaKind, query string, page int) (*domain.CatalogPage, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrQueryDisabled
	}
	q := pageQuery(page)
	q.Set("query", query)

	var resp listResponse
	if err := c.doRequest(ctx, "/search/"+string(kind), q, &resp); err != nil {
		return nil, err
	}
	return mapPage(&resp, kind), nil
}

// Details returns the detail page including credits. Videos come from Videos.
func (c *Client) Details(ctx context.Context, kind domain.MediaKind, id int) (*domain.MediaDetails, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	q := url.Values{"append_to_response": {"credits"}}

	var resp detailsResponse
	if err := c.doRequest(ctx, fmt.Sprintf("/%s/%d", kind, id), q, &resp); err != nil {
		return nil, err
	}
	return mapDetails(&resp, kind), nil
}

// Similar returns titles similar to id
func (c *Client) Similar(ctx context.Context, kind domain.MediaKind, id int) (*domain.CatalogPage, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var resp listResponse
	if err := c.doRequest(ctx, fmt.Sprintf("/%s/%d/similar", kind, id), nil, &resp); err != nil {
		return nil, err
	}
	return mapPage(&resp, kind), nil
}

// Videos returns trailers and clips for a title
func (c *Client) Videos(ctx context.Context, kind domain.MediaKind, id int) ([]domain.VideoRef, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var resp videoList
	if err := c.doRequest(ctx, fmt.Sprintf("/%s/%d/videos", kind, id), nil, &resp); err != nil {
		return nil, err
	}
	return mapVideos(resp.Results), nil
}

// PersonDetails returns a person's biography and combined credits
func (c *Client) PersonDetails(ctx context.Context, personID int) (*domain.PersonDetails, error) {
	q := url.Values{"append_to_response": {"combined_credits"}}

	var resp personResponse
	if err := c.doRequest(ctx, fmt.Sprintf("/person/%d", personID), q, &resp); err != nil {
		return nil, err
	}
	return mapPerson(&resp), nil
}

// ImageURL builds an image URL for a poster/profile path. size defaults to w500.
func ImageURL(baseURL, path, size string) string {
	if path == "" {
		return ""
	}
	if baseURL == "" {
		baseURL = defaultImageBaseURL
	}
	if size == "" {
		size = "w500"
	}
	return strings.TrimRight(baseURL, "/") + "/" + size + path
}
