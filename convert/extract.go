// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

// Package convert turns Google Maps saved-places exports into KML/KMZ
// documents.
package convert

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jxmas/gmaps2kml/utils/textutils"
)

// Row is one CSV record, keyed by accent-folded lowercase header name.
// Google Takeout has shipped several column layouts over the years, so all
// lookups go through alias lists.
type Row map[string]string

// Known header aliases, already in folded form.
var (
	latAliases      = []string{"latitude", "lat"}
	lonAliases      = []string{"longitude", "lon", "lng"}
	nameAliases     = []string{"title", "name"}
	urlAliases      = []string{"url", "google maps url"}
	noteAliases     = []string{"note", "description", "comment"}
	categoryAliases = []string{"type", "category", "tags"}
)

func (r Row) lookup(aliases []string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := r[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}

	return "", false
}

// Name returns the place name, or "Unknown" when the export has none.
func (r Row) Name() string {
	if v, ok := r.lookup(nameAliases); ok {
		return v
	}

	return "Unknown"
}

// URL returns the row's Google Maps URL, if any.
func (r Row) URL() string {
	v, _ := r.lookup(urlAliases)

	return v
}

// Note returns the user's note for the place, if any.
func (r Row) Note() string {
	v, _ := r.lookup(noteAliases)

	return v
}

// Category returns the raw place category/type text, if any.
func (r Row) Category() string {
	v, _ := r.lookup(categoryAliases)

	return v
}

// Coordinate patterns seen in Google Maps URLs, tried in order:
// dropped pins ("maps/search/lat,lon"), place URLs ("!3dlat!4dlon"),
// and viewport URLs ("@lat,lon,z").
var (
	searchURLRegex = regexp.MustCompile(`maps/search/(-?\d+(?:\.\d+)?),\s*(-?\d+(?:\.\d+)?)`)
	markerURLRegex = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	atURLRegex     = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
)

// coordinatesFromURL extracts an embedded coordinate pair from a Google
// Maps URL. The boolean result reports whether any pattern matched.
func coordinatesFromURL(url string) (float64, float64, bool) {
	for _, re := range []*regexp.Regexp{searchURLRegex, markerURLRegex, atURLRegex} {
		m := re.FindStringSubmatch(url)
		if m == nil {
			continue
		}

		lat, latErr := strconv.ParseFloat(m[1], 64)
		lon, lonErr := strconv.ParseFloat(m[2], 64)

		if latErr == nil && lonErr == nil {
			return lat, lon, true
		}
	}

	return 0, 0, false
}

// validateCoordinates verifies the global latitude/longitude bounds.
func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return outOfRange(lat, lon)
	}

	return nil
}

// ExtractCoordinates obtains a validated coordinate pair from a row.
// Explicit latitude/longitude columns win; a URL-embedded coordinate is
// only consulted when a column is missing or unparsable. Pure function of
// the row.
func ExtractCoordinates(row Row) (float64, float64, error) {
	var (
		lat, lon      float64
		haveExplicit  bool
		parseFailure  *RowError
		latRaw, okLat = row.lookup(latAliases)
		lonRaw, okLon = row.lookup(lonAliases)
	)

	if okLat && okLon {
		var latErr, lonErr error

		lat, latErr = strconv.ParseFloat(latRaw, 64)
		lon, lonErr = strconv.ParseFloat(lonRaw, 64)

		switch {
		case latErr != nil:
			parseFailure = unparsableValue("latitude", latRaw, latErr)
		case lonErr != nil:
			parseFailure = unparsableValue("longitude", lonRaw, lonErr)
		default:
			haveExplicit = true
		}
	}

	if !haveExplicit {
		url := row.URL()

		urlLat, urlLon, ok := coordinatesFromURL(url)
		if !ok {
			if parseFailure != nil {
				return 0, 0, parseFailure
			}

			return 0, 0, missingCoordinates(url != "")
		}

		lat, lon = urlLat, urlLon
	}

	if err := validateCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}

	return lat, lon, nil
}

// NewRow builds a Row from parallel header and value slices, folding the
// header names. Extra values without a header are dropped and missing
// values stay absent; Takeout exports are not strict about field counts.
func NewRow(header, values []string) Row {
	row := make(Row, len(header))

	for i, h := range header {
		if i >= len(values) {
			break
		}

		row[textutils.LowerASCIIFolding(h)] = values[i]
	}

	return row
}
