// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Nominatim, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var sleeps []time.Duration

	client, err := NewNominatim(&ClientOptions{
		Endpoint:  server.URL,
		UserAgent: "gmaps2kml/test",
		Sleep:     func(d time.Duration) { sleeps = append(sleeps, d) },
	})
	require.NoError(t, err)

	return client, &sleeps
}

func TestReverseGeocode(t *testing.T) {
	var requests int

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++

		assert.Equal(t, "gmaps2kml/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "-34.9011", r.URL.Query().Get("lat"))
		assert.Equal(t, "-56.1645", r.URL.Query().Get("lon"))

		fmt.Fprint(w, `{"display_name":"Plaza Independencia, Montevideo, Uruguay"}`)
	})

	address, err := client.ReverseGeocode(-34.9011, -56.1645)
	require.NoError(t, err)
	assert.Equal(t, "Plaza Independencia, Montevideo, Uruguay", address)
	assert.Equal(t, 1, requests)
}

// Repeated lookups of the same rounded coordinate must be answered from the
// cache without touching the network again.
func TestReverseGeocodeCached(t *testing.T) {
	var requests int

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		fmt.Fprint(w, `{"display_name":"Somewhere"}`)
	})

	for range 3 {
		address, err := client.ReverseGeocode(10.5, 20.5)
		require.NoError(t, err)
		assert.Equal(t, "Somewhere", address)
	}

	// Within rounding distance of the first coordinate.
	address, err := client.ReverseGeocode(10.500001, 20.500001)
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", address)

	assert.Equal(t, 1, requests)
}

func TestReverseGeocodeRetriesTransient(t *testing.T) {
	var requests int

	client, sleeps := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		fmt.Fprint(w, `{"display_name":"Recovered"}`)
	})

	address, err := client.ReverseGeocode(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Recovered", address)
	assert.Equal(t, 3, requests)

	// Exponential backoff: each wait doubles the previous one.
	require.Len(t, *sleeps, 2)
	assert.Equal(t, (*sleeps)[0]*2, (*sleeps)[1])
}

func TestReverseGeocodeExhaustsRetries(t *testing.T) {
	var requests int

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ReverseGeocode(1, 2)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 1+DefaultMaxRetries, requests)

	// Failures are not cached: the next call hits the network again.
	_, err = client.ReverseGeocode(1, 2)
	require.Error(t, err)
	assert.Equal(t, 2*(1+DefaultMaxRetries), requests)
}

func TestReverseGeocodeNoRetryOnPermanentError(t *testing.T) {
	var requests int

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.ReverseGeocode(1, 2)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, 1, requests)
}

// Nominatim reports coordinates it cannot resolve in-band with status 200;
// those are cached as unavailable and never asked about again.
func TestReverseGeocodeUnableToGeocode(t *testing.T) {
	var requests int

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		fmt.Fprint(w, `{"error":"Unable to geocode"}`)
	})

	for range 2 {
		address, err := client.ReverseGeocode(0, 0)
		require.NoError(t, err)
		assert.Empty(t, address)
	}

	assert.Equal(t, 1, requests)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		transient bool
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusBadRequest, ErrorTypeInvalidRequest, false},
		{http.StatusNotFound, ErrorTypeNotFound, false},
		{http.StatusInternalServerError, ErrorTypeNetwork, true},
		{http.StatusBadGateway, ErrorTypeNetwork, true},
		{http.StatusServiceUnavailable, ErrorTypeNetwork, true},
		{http.StatusGatewayTimeout, ErrorTypeNetwork, true},
		{http.StatusTeapot, ErrorTypeUnknown, false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("status %d", tc.status), func(t *testing.T) {
			err := ClassifyHTTPError(tc.status)
			assert.Equal(t, tc.wantType, err.Type)
			assert.Equal(t, tc.transient, IsTransient(err))
		})
	}
}
