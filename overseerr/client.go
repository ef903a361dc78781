package overseerr

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100

	// newest requests scanned for the last-request attributes
	lastRequestWindow = 20
)

// Client represents a Seerr (Jellyseerr/Overseerr) API client
type Client struct {
	baseURL    string
	apiKey     string
	username   string
	password   string
	pageSize   int
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithPageSize sets how many requests are fetched per page
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCredentials enables local username/password authentication
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithInsecureSkipVerify disables certificate verification.
// Only meant for self-signed certificates on a trusted network.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}
}

// NewClient creates a new Seerr client, authenticates when credentials are
// configured and verifies the connection.
func NewClient(baseURL, apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	client, err := newClient(baseURL, apiKey, logger, opts...)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if client.username != "" && client.apiKey == "" {
		if err := client.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("failed to authenticate with Seerr: %w", err)
		}
	}

	if err := client.TestConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Seerr: %w", err)
	}

	return client, nil
}

func newClient(baseURL, apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: seerr URL is required", ErrInvalidConfig)
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With().Str("component", "seerr").Logger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" && (client.username == "" || client.password == "") {
		return nil, fmt.Errorf("%w: seerr API key or username/password is required", ErrInvalidConfig)
	}

	return client, nil
}

// BaseURL returns the server root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated HTTP request and decodes the JSON
// response into out when out is non-nil
func (c *Client) doRequest(ctx context.Context, op, method, endpoint string, params url.Values, body, out any) error {
	reqURL := fmt.Sprintf("%s/api/v1%s", c.baseURL, endpoint)
	if len(params) > 0 {
		// Seerr rejects '+' as a space in search queries
		reqURL += "?" + strings.ReplaceAll(params.Encode(), "+", "%20")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return serviceErr(op, fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return serviceErr(op, fmt.Errorf("failed to create request: %w", err))
	}

	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Trace().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Making Seerr API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return serviceErr(op, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return serviceErr(op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return serviceErr(op, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// Authenticate signs in with local credentials. The session cookie is kept
// in the client's cookie jar for subsequent calls.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return serviceErr("authenticate", err)
		}
		c.httpClient.Jar = jar
	}

	body := map[string]string{
		"email":    c.username,
		"password": c.password,
	}
	if err := c.doRequest(ctx, "authenticate", http.MethodPost, "/auth/local", nil, body, nil); err != nil {
		return err
	}

	c.logger.Debug().Str("username", c.username).Msg("Authenticated with Seerr")
	return nil
}

// TestConnection tests the connection to Seerr
func (c *Client) TestConnection(ctx context.Context) error {
	// /auth/me validates both reachability and credentials
	var me User
	return c.doRequest(ctx, "test connection", http.MethodGet, "/auth/me", nil, nil, &me)
}

// Search returns the hits of the given kind for title, in the order the
// remote service ranked them
func (c *Client) Search(ctx context.Context, title string, kind MediaType) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("page", "1")

	var resp searchResponse
	if err := c.doRequest(ctx, "search", http.MethodGet, "/search", params, nil, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.MediaType == kind {
			results = append(results, r)
		}
	}

	c.logger.Debug().
		Str("query", title).
		Str("media_type", string(kind)).
		Int("results", len(results)).
		Msg("Searched Seerr")

	return results, nil
}

// SearchMusicAlbum searches the album catalog of legacy servers
func (c *Client) SearchMusicAlbum(ctx context.Context, title string) ([]Album, error) {
	params := url.Values{}
	params.Set("query", title)

	var resp struct {
		Results []Album `json:"results"`
	}
	if err := c.doRequest(ctx, "search music", http.MethodGet, "/search/music", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Request submits a new movie or tv request for the given TMDB id
func (c *Client) Request(ctx context.Context, mediaID int, kind MediaType, opts RequestOptions) error {
	body := requestBody{
		MediaType: kind,
		MediaID:   mediaID,
		Is4K:      opts.Is4K,
	}

	if kind == MediaTypeTV {
		seasons, err := c.seasonsFor(ctx, mediaID, opts)
		if err != nil {
			return err
		}
		body.Seasons = seasons
	}

	if err := c.doRequest(ctx, "request", http.MethodPost, "/request", nil, body, nil); err != nil {
		return err
	}

	c.logger.Info().
		Int("media_id", mediaID).
		Str("media_type", string(kind)).
		Bool("is_4k", opts.Is4K).
		Msg("Submitted request")
	return nil
}

// seasonsFor turns the season flags into the seasons field of a tv request
func (c *Client) seasonsFor(ctx context.Context, showID int, opts RequestOptions) (any, error) {
	switch {
	case opts.AllSeasons:
		return "all", nil
	case opts.FirstSeason:
		return []int{1}, nil
	}

	var show tvDetails
	if err := c.doRequest(ctx, "tv details", http.MethodGet, "/tv/"+strconv.Itoa(showID), nil, nil, &show); err != nil {
		return nil, err
	}

	latest := 0
	for _, s := range show.Seasons {
		// season 0 holds specials
		if s.SeasonNumber > latest {
			latest = s.SeasonNumber
		}
	}
	if latest == 0 {
		return "all", nil
	}
	return []int{latest}, nil
}

// RequestMusic requests an album by its foreign album id on legacy servers
func (c *Client) RequestMusic(ctx context.Context, foreignAlbumID string) error {
	body := requestBody{
		MediaType: MediaTypeMusic,
		MediaID:   foreignAlbumID,
	}
	if err := c.doRequest(ctx, "request music", http.MethodPost, "/request", nil, body, nil); err != nil {
		return err
	}

	c.logger.Info().Str("album_id", foreignAlbumID).Msg("Submitted music request")
	return nil
}

// ListRequests retrieves every request on the server
func (c *Client) ListRequests(ctx context.Context) ([]MediaRequest, error) {
	return c.listRequests(ctx, "all", "")
}

// listRequests walks all pages of the request endpoint
func (c *Client) listRequests(ctx context.Context, filter string, kind MediaType) ([]MediaRequest, error) {
	var allRequests []MediaRequest
	page := 1

	for {
		params := c.requestParams(filter, kind)
		params.Set("take", strconv.Itoa(c.pageSize))
		params.Set("skip", strconv.Itoa((page-1)*c.pageSize))

		var response RequestsResponse
		if err := c.doRequest(ctx, "list requests", http.MethodGet, "/request", params, nil, &response); err != nil {
			return nil, err
		}

		for _, req := range response.Results {
			// older servers ignore the mediaType parameter
			if kind == "" || req.Type == kind {
				allRequests = append(allRequests, req)
			}
		}

		c.logger.Debug().
			Int("page", page).
			Int("count", len(response.Results)).
			Int("total", len(allRequests)).
			Msg("Retrieved requests from Seerr")

		if !response.HasMorePages() {
			break
		}
		page++
	}

	return allRequests, nil
}

func (c *Client) requestParams(filter string, kind MediaType) url.Values {
	params := url.Values{}
	params.Set("filter", filter)
	params.Set("sort", "added")
	if kind != "" {
		params.Set("mediaType", string(kind))
	}
	return params
}

// lastRequest returns the most recently added request matching filter and kind.
// A small window is fetched so servers that ignore mediaType still yield the
// newest request of the wanted kind.
func (c *Client) lastRequest(ctx context.Context, filter string, kind MediaType) (*MediaRequest, error) {
	params := c.requestParams(filter, kind)
	params.Set("take", strconv.Itoa(lastRequestWindow))
	params.Set("skip", "0")

	var response RequestsResponse
	if err := c.doRequest(ctx, "last request", http.MethodGet, "/request", params, nil, &response); err != nil {
		return nil, err
	}

	for i := range response.Results {
		if kind == "" || response.Results[i].Type == kind {
			return &response.Results[i], nil
		}
	}
	return nil, nil
}

// UpdateStatus moves a request to a new status
func (c *Client) UpdateStatus(ctx context.Context, requestID int, action RequestAction) error {
	endpoint := fmt.Sprintf("/request/%d/%s", requestID, action)
	if err := c.doRequest(ctx, "update status", http.MethodPost, endpoint, nil, nil, nil); err != nil {
		return err
	}

	c.logger.Info().
		Int("request_id", requestID).
		Str("status", string(action)).
		Msg("Updated request status")
	return nil
}

// MovieRequestCounts tallies all movie requests
func (c *Client) MovieRequestCounts(ctx context.Context) (RequestCounts, error) {
	requests, err := c.listRequests(ctx, "all", MediaTypeMovie)
	if err != nil {
		return RequestCounts{}, err
	}
	return Tally(requests), nil
}

// TVRequestCounts tallies all tv requests
func (c *Client) TVRequestCounts(ctx context.Context) (RequestCounts, error) {
	requests, err := c.listRequests(ctx, "all", MediaTypeTV)
	if err != nil {
		return RequestCounts{}, err
	}
	return Tally(requests), nil
}

// PendingRequestCounts tallies the requests awaiting approval
func (c *Client) PendingRequestCounts(ctx context.Context) (RequestCounts, error) {
	requests, err := c.listRequests(ctx, "pending", "")
	if err != nil {
		return RequestCounts{}, err
	}
	return Tally(requests), nil
}

// TotalRequestCounts combines the server side request counters with the
// quality tier split, which only the request list carries
func (c *Client) TotalRequestCounts(ctx context.Context) (RequestCounts, error) {
	var counts RequestCounts
	if err := c.doRequest(ctx, "request count", http.MethodGet, "/request/count", nil, nil, &counts); err != nil {
		return RequestCounts{}, err
	}

	requests, err := c.ListRequests(ctx)
	if err != nil {
		return RequestCounts{}, err
	}
	tally := Tally(requests)
	counts.Standard = tally.Standard
	counts.FourK = tally.FourK

	return counts, nil
}

// LastMovieRequest returns the newest movie request, or nil
func (c *Client) LastMovieRequest(ctx context.Context) (*MediaRequest, error) {
	return c.lastRequest(ctx, "all", MediaTypeMovie)
}

// LastTVRequest returns the newest tv request, or nil
func (c *Client) LastTVRequest(ctx context.Context) (*MediaRequest, error) {
	return c.lastRequest(ctx, "all", MediaTypeTV)
}

// LastPendingRequest returns the newest pending request, or nil
func (c *Client) LastPendingRequest(ctx context.Context) (*MediaRequest, error) {
	return c.lastRequest(ctx, "pending", "")
}

// LastRequest returns the newest request of any kind, or nil
func (c *Client) LastRequest(ctx context.Context) (*MediaRequest, error) {
	return c.lastRequest(ctx, "all", "")
}

// IssueCounts returns the issue counters
func (c *Client) IssueCounts(ctx context.Context) (IssueCounts, error) {
	var counts IssueCounts
	if err := c.doRequest(ctx, "issue count", http.MethodGet, "/issue/count", nil, nil, &counts); err != nil {
		return IssueCounts{}, err
	}
	return counts, nil
}

// LastIssue returns the most recently filed issue, or nil
func (c *Client) LastIssue(ctx context.Context) (*Issue, error) {
	params := url.Values{}
	params.Set("take", "1")
	params.Set("skip", "0")
	params.Set("sort", "added")
	params.Set("filter", "all")

	var response issuesResponse
	if err := c.doRequest(ctx, "last issue", http.MethodGet, "/issue", params, nil, &response); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, nil
	}
	return &response.Results[0], nil
}
