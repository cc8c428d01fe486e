// Package merchants provides HTTP clients for third-party deal providers.
package merchants

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/cache"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/deals"
)

// DealFeedTTL is how long a fetched deal list stays fresh in the cache.
const DealFeedTTL = 15 * time.Minute

// Client fetches deals from a merchant HTTP feed. It implements the matching
// pipeline's Source interface.
//
// Merchant feeds are flaky; on fetch or decode failure the client falls back
// to the last cached response for the same query (stale data > no data).
type Client struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	store   cache.Store
	log     zerolog.Logger
}

// Config for a merchant feed client.
type Config struct {
	// Name identifies this source in statuses and dedupe keys.
	Name string
	// BaseURL is the feed endpoint, e.g. "https://partner.example.com/v1/deals".
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout for a single fetch. Defaults to 10s.
	Timeout time.Duration
}

// NewClient creates a merchant feed client. store is optional; when nil the
// stale-response fallback is disabled.
func NewClient(cfg Config, store cache.Store, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		store:   store,
		log:     log.With().Str("client", cfg.Name).Logger(),
	}
}

// Name identifies the source.
func (c *Client) Name() string {
	return c.name
}

// feedResponse is the wire format merchant feeds return.
type feedResponse struct {
	Deals []domain.Deal `json:"deals"`
}

// FetchDeals fetches candidate deals for the query. A fresh cached feed is
// served without hitting the network.
func (c *Client) FetchDeals(ctx context.Context, query deals.Query) ([]domain.Deal, error) {
	cacheKey := c.cacheKey(query)

	if c.store != nil {
		var cached []domain.Deal
		if found, err := c.store.Get(freshKey(cacheKey), &cached); err == nil && found {
			c.log.Debug().Int("deals", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	reqURL, err := c.buildURL(query)
	if err != nil {
		return nil, fmt.Errorf("build feed URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Int("deals", len(stale)).Msg("Feed unreachable, using stale cached deals")
			return stale, nil
		}
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Int("status", resp.StatusCode).Int("deals", len(stale)).
				Msg("Feed error, using stale cached deals")
			return stale, nil
		}
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Int("deals", len(stale)).
				Msg("Failed to parse feed response, using stale cached deals")
			return stale, nil
		}
		return nil, fmt.Errorf("parse feed response: %w", err)
	}

	if c.store != nil {
		if err := c.store.Set(freshKey(cacheKey), feed.Deals, DealFeedTTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache deal feed")
		}
		// The stale copy never expires; it is the fallback for long outages.
		if err := c.store.Set(cacheKey, feed.Deals, 0); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache stale deal feed copy")
		}
	}

	c.log.Debug().
		Str("location", query.Location).
		Str("category", query.Category).
		Int("deals", len(feed.Deals)).
		Msg("Fetched deal feed")

	return feed.Deals, nil
}

func (c *Client) buildURL(query deals.Query) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if query.Location != "" {
		q.Set("location", query.Location)
	}
	if query.Category != "" {
		q.Set("category", query.Category)
	}
	if query.MaxPrice > 0 {
		q.Set("max_price", strconv.FormatFloat(query.MaxPrice, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) cacheKey(query deals.Query) string {
	return fmt.Sprintf("merchantfeed:%s:%s:%s:%.0f", c.name, query.Location, query.Category, query.MaxPrice)
}

func freshKey(cacheKey string) string {
	return cacheKey + ":fresh"
}

// getStaleFromCache returns the last successfully fetched feed for this
// query, however old.
func (c *Client) getStaleFromCache(cacheKey string) ([]domain.Deal, bool) {
	if c.store == nil {
		return nil, false
	}
	var stale []domain.Deal
	found, err := c.store.Get(cacheKey, &stale)
	if err != nil || !found {
		return nil, false
	}
	return stale, true
}
