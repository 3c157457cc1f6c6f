// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

// dummyRoundTripper captures the last request and returns a canned response.
type dummyRoundTripper struct {
	lastRequest *http.Request
}

func (d *dummyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("response body")),
	}, nil
}

func TestUserAgentRoundTripper(t *testing.T) {
	dummy := &dummyRoundTripper{}
	rt := &UserAgentRoundTripper{
		Transport: dummy,
		UserAgent: "gmaps2kml/test",
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.org/reverse", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = rt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if dummy.lastRequest == nil {
		t.Fatalf("transport did not receive any request")
	}

	if got := dummy.lastRequest.Header.Get("User-Agent"); got != "gmaps2kml/test" {
		t.Errorf("expected User-Agent 'gmaps2kml/test', got %q", got)
	}
}

// TestTracingRoundTripper verifies that both the request and the response
// (including timing information) are dumped.
func TestTracingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	rt := &TracingRoundTripper{
		Transport: &dummyRoundTripper{},
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/abc", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = rt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	logContent := logBuffer.String()
	if !strings.Contains(logContent, "> GET /abc") {
		t.Errorf("log does not contain request info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "< RESPONSE: [") {
		t.Errorf("log does not contain response header with timing info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "response body") {
		t.Errorf("log does not contain response body. Got: %s", logContent)
	}
}

func TestTracingRoundTripperNilWriter(t *testing.T) {
	rt := &TracingRoundTripper{Transport: &dummyRoundTripper{}}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/abc", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
