// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jxmas/gmaps2kml/utils/httputils"
	"golang.org/x/net/html"
)

// Coordinate patterns found inside Google Maps place pages. The
// coordinates usually live in inline script data rather than the markup.
var (
	jsonCoordRegex    = regexp.MustCompile(`"latitude":(-?\d+(?:\.\d+)?),"longitude":(-?\d+(?:\.\d+)?)`)
	centerCoordRegex  = regexp.MustCompile(`center=(-?\d+(?:\.\d+)?)%2C(-?\d+(?:\.\d+)?)`)
	featureTypeRegex  = regexp.MustCompile(`"featureTypeDescription":"([^"]+)"`)
	pageContentRegexp = []*regexp.Regexp{jsonCoordRegex, markerURLRegex, atURLRegex, centerCoordRegex}
)

// ResolvedPlace is what a maps/place/ URL resolves to.
type ResolvedPlace struct {
	Lat      float64
	Lon      float64
	Category string
	FinalURL string
}

// URLResolver fetches Google Maps place URLs that carry no embedded
// coordinates, following redirects and scraping the final page. This is
// the only part of extraction that touches the network, and it is opt-in.
type URLResolver struct {
	client *http.Client
}

// NewURLResolver creates a resolver using the given User-Agent.
func NewURLResolver(userAgent string, trace io.Writer, traceBody bool) *URLResolver {
	return &URLResolver{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &httputils.UserAgentRoundTripper{
				UserAgent: userAgent,
				Transport: &httputils.TracingRoundTripper{
					Writer:    trace,
					DumpBody:  traceBody,
					Transport: http.DefaultTransport,
				},
			},
		},
	}
}

// IsPlaceURL reports whether a URL is a Google Maps place link worth
// resolving.
func IsPlaceURL(url string) bool {
	return strings.Contains(url, "maps/place/")
}

// Resolve fetches a place URL and extracts a coordinate pair, preferring
// one embedded in the post-redirect URL over one scraped from the page.
func (r *URLResolver) Resolve(placeURL string) (*ResolvedPlace, error) {
	resp, err := r.client.Get(placeURL)
	if err != nil {
		return nil, fmt.Errorf("fetching place URL: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching place URL: status %d", resp.StatusCode)
	}

	resolved := &ResolvedPlace{FinalURL: placeURL}
	if resp.Request != nil && resp.Request.URL != nil {
		resolved.FinalURL = resp.Request.URL.String()
	}

	// The redirect target often carries the coordinate directly.
	if lat, lon, ok := coordinatesFromURL(resolved.FinalURL); ok {
		resolved.Lat, resolved.Lon = lat, lon

		return resolved, nil
	}

	node, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing place page: %w", err)
	}

	var content strings.Builder

	collectTextContent(node, &content)

	page := content.String()

	if m := featureTypeRegex.FindStringSubmatch(page); m != nil {
		resolved.Category = m[1]
	}

	for _, re := range pageContentRegexp {
		m := re.FindStringSubmatch(page)
		if m == nil {
			continue
		}

		lat, latErr := strconv.ParseFloat(m[1], 64)
		lon, lonErr := strconv.ParseFloat(m[2], 64)

		if latErr == nil && lonErr == nil {
			resolved.Lat, resolved.Lon = lat, lon

			return resolved, nil
		}
	}

	return nil, errors.New("no coordinates in place page")
}

// collectTextContent gathers text and inline script content from the
// parsed HTML tree.
func collectTextContent(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte('\n')
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectTextContent(child, sb)
	}
}
