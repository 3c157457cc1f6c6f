// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jxmas/gmaps2kml/utils/httputils"
)

const (
	// DefaultEndpoint is the Nominatim reverse-geocoding endpoint.
	DefaultEndpoint = "https://nominatim.openstreetmap.org/reverse"

	// DefaultMaxRetries bounds how often a transient failure is retried.
	DefaultMaxRetries = 3

	// retryBaseDelay is the first backoff delay; it doubles per attempt.
	retryBaseDelay = 100 * time.Millisecond
)

// ClientOptions configuration for the Nominatim client.
type ClientOptions struct {
	// Endpoint is the reverse-geocoding URL. Empty means DefaultEndpoint.
	Endpoint string

	// UserAgent is the User-Agent header to use in HTTP requests.
	// Nominatim rejects anonymous clients.
	UserAgent string

	// MaxRetries bounds retries of transient failures. Zero means
	// DefaultMaxRetries; negative disables retrying.
	MaxRetries int

	// CacheSize is the geocode cache capacity. Zero means DefaultCacheSize.
	CacheSize int

	// TraceWriter enables light tracing of HTTP requests and responses.
	TraceWriter io.Writer

	// TraceBody enables full HTTP body tracing.
	TraceBody bool

	// Sleep is called between retries. Nil means time.Sleep; tests inject
	// a recorder to avoid real waits.
	Sleep func(time.Duration)
}

// Nominatim is a reverse-geocoding client with a bounded in-memory cache
// and bounded retry of transient failures.
type Nominatim struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	sleep      func(time.Duration)
	cache      *Cache
}

var _ Geocoder = (*Nominatim)(nil)

// NewNominatim creates a Nominatim client with the provided options.
func NewNominatim(options *ClientOptions) (*Nominatim, error) {
	if options == nil {
		options = &ClientOptions{}
	}

	endpoint := options.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parsing geocode endpoint: %w", err)
	}

	userAgent := "gmaps2kml/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	maxRetries := options.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	sleep := options.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	cache, err := NewCache(options.CacheSize)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	tracingTransport := &httputils.TracingRoundTripper{
		Writer:    options.TraceWriter,
		DumpBody:  options.TraceBody,
		Transport: transport,
	}

	headerTransport := &httputils.UserAgentRoundTripper{
		UserAgent: userAgent,
		Transport: tracingTransport,
	}

	return &Nominatim{
		endpoint:   endpoint,
		maxRetries: maxRetries,
		sleep:      sleep,
		cache:      cache,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: headerTransport,
		},
	}, nil
}

// nominatimResponse is the subset of the reverse endpoint's JSON we use.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Cache exposes the client's cache, mostly for inspection in tests and
// end-of-run reporting.
func (n *Nominatim) Cache() *Cache {
	return n.cache
}

// ReverseGeocode resolves a coordinate to an address. Results, including
// negative ones, are cached by rounded coordinate; transient HTTP failures
// are retried with exponential backoff before giving up.
func (n *Nominatim) ReverseGeocode(lat, lon float64) (string, error) {
	if address, ok := n.cache.Get(lat, lon); ok {
		return address, nil
	}

	address, err := n.fetchWithRetry(lat, lon)
	if err != nil {
		return "", err
	}

	if address == "" {
		n.cache.PutUnavailable(lat, lon)
	} else {
		n.cache.Put(lat, lon, address)
	}

	return address, nil
}

func (n *Nominatim) fetchWithRetry(lat, lon float64) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			n.sleep(retryBaseDelay << (attempt - 1))
		}

		address, err := n.fetch(lat, lon)
		if err == nil {
			return address, nil
		}

		lastErr = err
		if !IsTransient(err) {
			break
		}
	}

	return "", lastErr
}

func (n *Nominatim) fetch(lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")

	resp, err := n.client.Get(n.endpoint + "?" + params.Encode())
	if err != nil {
		return "", &Error{
			Type:    ErrorTypeNetwork,
			Message: "reverse-geocoding request failed",
			Err:     err,
		}
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", ClassifyHTTPError(resp.StatusCode)
	}

	var parsed nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &Error{
			Type:    ErrorTypeUnknown,
			Message: "decoding reverse-geocoding response",
			Err:     err,
		}
	}

	// Nominatim reports "Unable to geocode" in-band with status 200.
	if parsed.Error != "" {
		return "", nil
	}

	return parsed.DisplayName, nil
}
