// Package freesound implements the client for the Freesound search API.
package freesound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

const (
	// DefaultBaseURL is the public Freesound API root.
	DefaultBaseURL = "https://freesound.org/apiv2"

	// DefaultPageSize is the number of results requested per page.
	DefaultPageSize = 30

	defaultTimeout = 10 * time.Second
	previewTimeout = 30 * time.Second
)

// searchFields is the field list requested for every search, wide enough to
// render the detail panel without a second round trip.
const searchFields = "id,username,created,name,tags,description,license," +
	"type,duration,bitdepth,bitrate,samplerate,filesize,channels," +
	"num_downloads,avg_rating,num_ratings,previews"

// Ensure Client implements the search contract at compile time
var _ api.SearchClient = (*Client)(nil)

// Client talks to the Freesound API over HTTP.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithPageSize overrides the per-page result count.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Freesound API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		pageSize: DefaultPageSize,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the configured per-page result count.
func (c *Client) PageSize() int {
	return c.pageSize
}

type searchResponse struct {
	Count   int                `json:"count"`
	Results []api.SoundSummary `json:"results"`
}

// Search fetches one page of text-search results.
func (c *Client) Search(ctx context.Context, query string, page int) (*api.ResultPage, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("token", c.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))
	params.Set("fields", searchFields)

	endpoint := c.baseURL + "/search/text/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scouterrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &scouterrors.APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", scouterrors.ErrAPI, err)
	}

	return &api.ResultPage{
		Query:        query,
		Number:       page,
		TotalPages:   totalPages(sr.Count, c.pageSize),
		TotalResults: sr.Count,
		Sounds:       sr.Results,
	}, nil
}

// PreviewReader opens a streaming reader over a preview rendition.
// The caller owns the returned reader and must close it.
func (c *Client) PreviewReader(ctx context.Context, previewURL string) (io.ReadCloser, int64, error) {
	if previewURL == "" {
		return nil, 0, scouterrors.ErrNoPreview
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build preview request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)

	// Previews are larger than search payloads; give them their own budget.
	client := &http.Client{Timeout: previewTimeout, Transport: c.http.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", scouterrors.ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, &scouterrors.APIError{StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

// FetchPreview downloads a whole preview rendition into memory.
func (c *Client) FetchPreview(ctx context.Context, previewURL string) ([]byte, error) {
	rc, _, err := c.PreviewReader(ctx, previewURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read preview: %v", scouterrors.ErrNetwork, err)
	}
	return data, nil
}

// totalPages derives the page count the way the API's count field implies it.
func totalPages(count, pageSize int) int {
	if count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}
