package thingspeak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	ChannelID string
	APIKey    string
	// Results is the number of entries requested per call; 0 lets upstream decide.
	Results int
	Backoff BackoffConfig
	// BreakerTimeout is how long the circuit stays open after tripping.
	BreakerTimeout time.Duration
}

// Client reads channel feeds from a ThingSpeak compatible API.
// It implements telemetry.FeedSource.
type Client struct {
	name    string
	opts    Options
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

var _ telemetry.FeedSource = (*Client)(nil)

func NewClient(client *http.Client, opts Options) *Client {
	if opts.Backoff == (BackoffConfig{}) {
		opts.Backoff = DefaultBackoff
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "thingspeak",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		name:    "thingspeak",
		opts:    opts,
		client:  client,
		circuit: cb,
	}
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) ChannelFeed(ctx context.Context) (telemetry.Feed, error) {
	return c.fetch(ctx, fmt.Sprintf("/channels/%s/feeds.json", url.PathEscape(c.opts.ChannelID)))
}

func (c *Client) FieldFeed(ctx context.Context, field telemetry.FieldKey) (telemetry.Feed, error) {
	if !field.Valid() {
		return telemetry.Feed{}, fmt.Errorf("%w: %d", telemetry.ErrInvalidField, field)
	}
	return c.fetch(ctx, fmt.Sprintf("/channels/%s/fields/%d.json", url.PathEscape(c.opts.ChannelID), int(field)))
}

func (c *Client) fetch(ctx context.Context, path string) (telemetry.Feed, error) {
	if c.opts.BaseURL == "" || c.opts.ChannelID == "" {
		return telemetry.Feed{}, fmt.Errorf("%w: thingspeak base url or channel is not configured", ErrUnavailable)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		if c.opts.Results > 0 {
			values.Set("results", strconv.Itoa(c.opts.Results))
		}
		if c.opts.APIKey != "" {
			values.Set("api_key", c.opts.APIKey)
		}

		u := c.opts.BaseURL + path
		if len(values) > 0 {
			u += "?" + values.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequest(ctx, c.client, c.opts.Backoff, c.circuit, buildRequest)
	if err != nil {
		return telemetry.Feed{}, err
	}
	defer resp.Body.Close()

	var feed telemetry.Feed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return telemetry.Feed{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if feed.Feeds == nil {
		// Upstream answers "-1" or {} for unknown channels.
		return telemetry.Feed{}, fmt.Errorf("%w: no feeds in response", ErrMalformedPayload)
	}
	return feed, nil
}
