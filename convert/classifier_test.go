// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"testing"

	"github.com/jxmas/gmaps2kml/kml"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		category string
		want     kml.Layer
	}{
		{"Hotel California", kml.LayerSleep},
		{"Motel 6", kml.LayerSleep},
		{"Backpacker Hostel", kml.LayerSleep},
		{"Lodging", kml.LayerSleep},
		{"Joe's Café", kml.LayerEat},
		{"Restaurant", kml.LayerEat},
		{"Wine Bar", kml.LayerEat},
		{"Irish Pub", kml.LayerEat},
		{"Public House", kml.LayerEat},
		// Substring matching: "pub" is inside "public".
		{"Public Pool", kml.LayerEat},
		{"Bakery", kml.LayerEat},
		{"Hiking Trail", kml.LayerDo},
		{"Museum", kml.LayerDo},
		{"Scenic Overlook", kml.LayerDo},
		{"", kml.LayerDo},
		{"   ", kml.LayerDo},
	}

	for _, tc := range tests {
		t.Run(tc.category, func(t *testing.T) {
			if got := Classify(tc.category); got != tc.want {
				t.Fatalf("Classify(%q): want %s, got %s", tc.category, tc.want, got)
			}
		})
	}
}

// The classifier is deterministic: same input, same layer, every time.
func TestClassifyDeterministic(t *testing.T) {
	for range 10 {
		if got := Classify("Hotel Restaurant"); got != kml.LayerSleep {
			t.Fatalf("first matching rule must win, got %s", got)
		}
	}
}
