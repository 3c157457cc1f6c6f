// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves coordinates to human-readable addresses.
package geocode

// Geocoder interface for different reverse-geocoding providers.
type Geocoder interface {
	// ReverseGeocode returns the address for the given coordinate, or an
	// empty string when the provider has no answer for it.
	ReverseGeocode(lat, lon float64) (string, error)
}
