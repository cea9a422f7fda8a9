// Package openf1 implements telemetry.Provider on top of the OpenF1 REST API
// (https://openf1.org).
package openf1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"justapengu.in/f1bot/internal/cache"
)

const DefaultBaseURL = "https://api.openf1.org/v1"

var ErrRateLimited = errors.New("openf1: rate limited")

var requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "f1bot",
	Subsystem: "openf1",
	Name:      "requests_total",
	Help:      "Requests made to the OpenF1 API, by endpoint and cache result.",
}, []string{"endpoint", "cache"})

func init() {
	prometheus.MustRegister(requestsTotal)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   cache.Cache
	logger  logrus.FieldLogger

	// sem bounds the number of in-flight upstream requests
	sem chan struct{}

	now func() time.Time
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

func WithCache(ca cache.Cache) Option {
	return func(c *Client) {
		c.cache = ca
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMaxConcurrentRequests(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = make(chan struct{}, n)
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   cache.Nop{},
		logger:  logrus.StandardLogger(),
		sem:     make(chan struct{}, 4),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type filter struct {
	key, op, value string
}

func eq(key string, value interface{}) filter {
	return filter{key: key, op: "=", value: fmt.Sprint(value)}
}

const filterDateFormat = "2006-01-02T15:04:05.000"

func between(key string, from, to time.Time) []filter {
	return []filter{
		{key: key, op: ">=", value: from.UTC().Format(filterDateFormat)},
		{key: key, op: "<=", value: to.UTC().Format(filterDateFormat)},
	}
}

// requestURL builds the URL by hand, since OpenF1 expects comparison operators
// such as date>= unescaped in the query string.
func (c *Client) requestURL(endpoint string, filters []filter) string {
	parts := make([]string, 0, len(filters))

	for _, f := range filters {
		parts = append(parts, f.key+f.op+url.QueryEscape(f.value))
	}

	u := c.baseURL + "/" + endpoint

	if len(parts) > 0 {
		u += "?" + strings.Join(parts, "&")
	}

	return u
}

type cachePolicy int

const (
	// cacheDefault serves from the cache and stores fresh responses.
	cacheDefault cachePolicy = iota
	// cacheRefresh always goes upstream but stores the response.
	cacheRefresh
	// cacheBypass neither reads nor writes the cache.
	cacheBypass
)

const (
	// sessionSettleDelay is how long after a session ends OpenF1 keeps amending its data.
	sessionSettleDelay = 2 * time.Hour

	// sessionLengthEstimate stands in for a missing session end time.
	sessionLengthEstimate = 3 * time.Hour
)

// sessionPolicy only caches data for sessions that finished long enough ago
// for OpenF1 to have published everything.
func (c *Client) sessionPolicy(start, end time.Time) cachePolicy {
	if end.IsZero() {
		if start.IsZero() {
			return cacheBypass
		}

		end = start.Add(sessionLengthEstimate)
	}

	if c.now().Before(end.Add(sessionSettleDelay)) {
		return cacheBypass
	}

	return cacheDefault
}

// emptyList reports whether body is a JSON array with no elements, or null.
func emptyList(body []byte) bool {
	body = bytes.TrimSpace(body)

	if bytes.Equal(body, []byte("null")) {
		return true
	}

	if len(body) < 2 || body[0] != '[' || body[len(body)-1] != ']' {
		return false
	}

	return len(bytes.TrimSpace(body[1:len(body)-1])) == 0
}

// get fetches endpoint into out. An endpoint with no matching rows leaves out untouched.
// Empty lists are never cached, so data published later is picked up.
func (c *Client) get(ctx context.Context, endpoint string, out interface{}, policy cachePolicy, filters ...filter) error {
	u := c.requestURL(endpoint, filters)

	if policy == cacheDefault {
		body, ok, err := c.cache.Get(u)

		if err != nil {
			c.logger.WithError(err).Warnf("Could not read cached response for %s", u)
		} else if ok {
			requestsTotal.WithLabelValues(endpoint, "hit").Inc()

			return errors.Wrapf(json.Unmarshal(body, out), "openf1: could not decode cached %s", endpoint)
		}
	}

	requestsTotal.WithLabelValues(endpoint, "miss").Inc()

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	c.logger.Debugf("Fetching %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)

	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)

	if err != nil {
		return errors.Wrapf(err, "openf1: could not fetch %s", endpoint)
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// OpenF1 answers queries without results with a 404
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Wrapf(ErrRateLimited, "endpoint %s", endpoint)
	case resp.StatusCode != http.StatusOK:
		return errors.Errorf("openf1: unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return errors.Wrapf(err, "openf1: could not read %s", endpoint)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "openf1: could not decode %s", endpoint)
	}

	if policy == cacheBypass || emptyList(body) {
		return nil
	}

	if err := c.cache.Put(u, body); err != nil {
		c.logger.WithError(err).Warnf("Could not cache response for %s", u)
	}

	return nil
}
