// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"strings"

	"github.com/jxmas/gmaps2kml/kml"
	"github.com/jxmas/gmaps2kml/utils/textutils"
)

// layerRule maps category keywords to an output layer. Rules are evaluated
// in order, first match wins.
type layerRule struct {
	keywords []string
	layer    kml.Layer
}

var layerRules = []layerRule{
	{
		keywords: []string{"hotel", "motel", "hostel", "lodging", "bed & breakfast", "b&b"},
		layer:    kml.LayerSleep,
	},
	{
		keywords: []string{"restaurant", "cafe", "coffee", "bar", "pub", "dining", "bakery", "food"},
		layer:    kml.LayerEat,
	},
}

// Classify maps a place's category/type text to an output layer. Matching
// is substring-based over the accent-folded lowercase text, so "Joe's Café"
// lands in Eat and "Hotel California" in Sleep. Unmatched or absent
// categories default to Do. Total function, no failure mode.
func Classify(category string) kml.Layer {
	folded := textutils.LowerASCIIFolding(category)
	if folded == "" {
		return kml.LayerDo
	}

	for _, rule := range layerRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(folded, keyword) {
				return rule.layer
			}
		}
	}

	return kml.LayerDo
}
