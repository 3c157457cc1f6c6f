// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package kml

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteKMLAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "trip.kml")

	if err := sampleDocument().WriteKML(path); err != nil {
		t.Fatalf("writing: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}

	folders, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}

	if len(folders) != 3 {
		t.Fatalf("expected 3 folders, got %d", len(folders))
	}
}

func TestWriteKMZ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trip.kmz")

	doc := sampleDocument()
	if err := doc.WriteKMZ(path); err != nil {
		t.Fatalf("writing: %v", err)
	}

	payload, err := ReadKMZ(path)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}

	want, err := doc.Marshal()
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}

	if !bytes.Equal(payload, want) {
		t.Fatal("archive payload differs from marshaled document")
	}
}

func TestWriteHonorsKMLExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trip.kml")

	// Even with kmz requested, a .kml path gets plain XML.
	if err := sampleDocument().Write(path, true); err != nil {
		t.Fatalf("writing: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Fatal("expected plain XML output for .kml path")
	}
}

func TestWriteLayerVariants(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "trip.kmz")

	doc := NewDocument("trip")
	doc.Add(Place{Name: "inn", Lat: 1, Lon: 2, Layer: LayerSleep})
	doc.Add(Place{Name: "diner", Lat: 3, Lon: 4, Layer: LayerEat})
	// LayerDo stays empty on purpose.

	if err := doc.WriteLayerVariants(outputPath); err != nil {
		t.Fatalf("writing variants: %v", err)
	}

	layersDir := filepath.Join(dir, LayersDirName)
	for _, want := range []string{
		"trip_sleep.kml", "trip_sleep.kmz",
		"trip_eat.kml", "trip_eat.kmz",
	} {
		if _, err := os.Stat(filepath.Join(layersDir, want)); err != nil {
			t.Errorf("expected %s: %v", want, err)
		}
	}

	if _, err := os.Stat(filepath.Join(layersDir, "trip_do.kml")); err == nil {
		t.Error("empty layer must not produce a variant file")
	}

	// Each variant holds exactly its own layer.
	data, err := os.ReadFile(filepath.Join(layersDir, "trip_sleep.kml"))
	if err != nil {
		t.Fatalf("reading variant: %v", err)
	}

	folders, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing variant: %v", err)
	}

	if len(folders) != 1 || folders[0].Name != string(LayerSleep) {
		t.Fatalf("unexpected folders in variant: %+v", folders)
	}

	if len(folders[0].Placemarks) != 1 || folders[0].Placemarks[0].Name != "inn" {
		t.Fatalf("unexpected placemarks in variant: %+v", folders[0].Placemarks)
	}
}
