// Package remote is the HTTP client for the catalog API. Every failure is
// mapped onto the catalog error taxonomy in the types package.
package remote

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

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/sony/gobreaker"
)

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns the token, or ErrAuthenticationMissing when it is empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", types.ErrAuthenticationMissing
	}
	return string(t), nil
}

// Config holds the client settings.
type Config struct {
	BaseURL         string
	PageTimeout     time.Duration // single page, count and category reads
	BatchTimeout    time.Duration // each full-catalog batch
	BatchSize       int
	BreakerFailures uint32        // consecutive failures that open the breaker
	BreakerCooldown time.Duration // time the breaker stays open
	HTTPClient      *http.Client
}

func (c *Config) setDefaults() {
	if c.PageTimeout == 0 {
		c.PageTimeout = 15 * time.Second
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 60 * time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// Client performs authenticated reads against the catalog API.
type Client struct {
	baseURL string
	cfg     Config
	tokens  TokenSource
	breaker *gobreaker.CircuitBreaker
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config, tokens TokenSource) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base URL not configured")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	cfg.setDefaults()

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog-remote",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Auth failures say nothing about the health of the remote.
		IsSuccessful: func(err error) bool {
			return err == nil || types.IsAuthError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"component", "remote",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		tokens:  tokens,
		breaker: breaker,
	}, nil
}

// BatchSize returns the page size used by FetchFullCatalog.
func (c *Client) BatchSize() int {
	return c.cfg.BatchSize
}

type pageEnvelope struct {
	Products []types.Product `json:"products"`
	Total    int             `json:"total"`
}

type countEnvelope struct {
	TotalCount int `json:"totalCount"`
}

type categoriesEnvelope struct {
	Categories []types.Category `json:"categories"`
}

// FetchPage reads one page of the catalog.
func (c *Client) FetchPage(ctx context.Context, req types.PageRequest) (*types.PaginatedResponse, error) {
	return c.fetchPage(ctx, req.Normalized(), c.cfg.PageTimeout)
}

func (c *Client) fetchPage(ctx context.Context, req types.PageRequest, timeout time.Duration) (*types.PaginatedResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("limit", strconv.Itoa(req.Limit))
	if req.SearchQuery != "" {
		q.Set("search", req.SearchQuery)
	}
	if req.Category != "" {
		q.Set("category", req.Category)
	}
	if subs := req.CanonicalSubcategories(); len(subs) > 0 {
		q.Set("subcategory", strings.Join(subs, ","))
	}
	if filters := req.ActiveFilters.Canonical(); len(filters) > 0 {
		q.Set("filters", strings.Join(filters, ","))
	}
	q.Set("sortBy", req.SortBy)
	q.Set("sortOrder", req.SortOrder)

	var env pageEnvelope
	if err := c.getJSON(ctx, timeout, "/items/paginated", q, &env); err != nil {
		return nil, err
	}
	resp := types.NewPaginatedResponse(env.Products, env.Total, req.Page, req.Limit)
	resp.Source = types.SourceNetwork
	return resp, nil
}

// FetchTotalCount returns the number of products the server holds.
func (c *Client) FetchTotalCount(ctx context.Context) (int, error) {
	var env countEnvelope
	if err := c.getJSON(ctx, c.cfg.PageTimeout, "/items/count", nil, &env); err != nil {
		return 0, err
	}
	if env.TotalCount < 0 {
		return 0, fmt.Errorf("%w: negative total count %d", types.ErrRemoteUnavailable, env.TotalCount)
	}
	return env.TotalCount, nil
}

// FetchCategories returns the server's category vocabulary.
func (c *Client) FetchCategories(ctx context.Context) ([]types.Category, error) {
	var env categoriesEnvelope
	if err := c.getJSON(ctx, c.cfg.PageTimeout, "/categories", nil, &env); err != nil {
		return nil, err
	}
	return env.Categories, nil
}

// maxPrealloc bounds the capacity reserved up front for a full download.
const maxPrealloc = 10_000

// FetchFullCatalog pulls the whole catalog in batches of BatchSize. It
// issues exactly ceil(totalCount/BatchSize) requests even when a batch comes
// back short or empty. Products repeated across batches are kept once, in
// their first position, with the later copy's fields.
func (c *Client) FetchFullCatalog(ctx context.Context, totalCount int) ([]types.Product, error) {
	size := c.cfg.BatchSize
	batches := totalCount / size
	if totalCount%size != 0 {
		batches++
	}

	// The count comes from the server; size the buffers from it only up to a point.
	hint := min(totalCount, maxPrealloc)
	products := make([]types.Product, 0, hint)
	index := make(map[string]int, hint)

	for page := 1; page <= batches; page++ {
		req := types.PageRequest{
			Page:      page,
			Limit:     size,
			SortBy:    types.SortItemCode,
			SortOrder: types.SortAsc,
		}
		resp, err := c.fetchPage(ctx, req, c.cfg.BatchTimeout)
		if err != nil {
			return nil, fmt.Errorf("fetch batch %d/%d: %w", page, batches, err)
		}

		for _, p := range resp.Products {
			if i, ok := index[p.ItemCode]; ok {
				products[i] = p
				continue
			}
			index[p.ItemCode] = len(products)
			products = append(products, p)
		}

		slog.Debug("catalog batch fetched",
			"component", "remote",
			"action", "batch_fetched",
			"batch", page,
			"batches", batches,
			"received", len(resp.Products),
		)
	}

	return products, nil
}

// getJSON issues an authenticated GET through the circuit breaker and
// decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, timeout time.Duration, path string, query url.Values, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, types.ErrAuthenticationMissing) {
			return err
		}
		return fmt.Errorf("%w: %v", types.ErrAuthenticationMissing, err)
	}
	if token == "" {
		return types.ErrAuthenticationMissing
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, timeout, path, query, token, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", types.ErrRemoteUnavailable, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, timeout time.Duration, path string, query url.Values, token string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", types.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrRemoteUnavailable, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned 401", types.ErrSessionExpired, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned status %d", types.ErrRemoteUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", types.ErrRemoteUnavailable, path, err)
	}
	return nil
}
