// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package kml

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// archiveDocName is the conventional name of the KML entry inside a KMZ.
const archiveDocName = "doc.kml"

// LayersDirName is the subdirectory, next to the main output, that holds
// the per-layer variant files.
const LayersDirName = "layers"

// WriteKML writes the document as a plain .kml file, creating parent
// directories as needed.
func (d *Document) WriteKML(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

// WriteKMZ writes the document as a deflate-compressed archive containing
// doc.kml.
func (d *Document) WriteKMZ(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	return writeArchive(path, data)
}

// Write picks the output form from the path extension or the kmz flag:
// a .kml path always gets plain XML, everything else follows kmz.
func (d *Document) Write(path string, kmz bool) error {
	if strings.EqualFold(filepath.Ext(path), ".kml") {
		return d.WriteKML(path)
	}

	if kmz {
		return d.WriteKMZ(path)
	}

	return d.WriteKML(path)
}

// WriteLayerVariants writes one single-layer file per non-empty layer into
// a layers/ subdirectory next to the main output, both as .kml and .kmz,
// named <base>_<layer>.
func (d *Document) WriteLayerVariants(outputPath string) error {
	layersDir := filepath.Join(filepath.Dir(outputPath), LayersDirName)

	base := filepath.Base(outputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var wrote bool

	for _, l := range Layers() {
		if len(d.places[l]) == 0 {
			continue
		}

		data, err := d.layerDocument(l)
		if err != nil {
			return err
		}

		name := filepath.Join(layersDir, fmt.Sprintf("%s_%s", base, strings.ToLower(string(l))))

		if err := writeFile(name+".kml", data); err != nil {
			return err
		}

		if err := writeArchive(name+".kmz", data); err != nil {
			return err
		}

		wrote = true
	}

	if !wrote {
		// Nothing to write; don't leave an empty layers/ directory behind.
		_ = os.Remove(layersDir)
	}

	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return fmt.Errorf("writing KML file: %w", err)
	}

	return nil
}

func writeArchive(path string, data []byte) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating KMZ file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing KMZ file: %w", cerr))
		}
	}()

	zw := zip.NewWriter(f)

	entry, err := zw.Create(archiveDocName)
	if err != nil {
		return errors.Join(
			fmt.Errorf("creating KMZ entry: %w", err),
			zw.Close(),
		)
	}

	if _, err := entry.Write(data); err != nil {
		return errors.Join(
			fmt.Errorf("writing KMZ entry: %w", err),
			zw.Close(),
		)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing KMZ archive: %w", err)
	}

	return nil
}

// ReadKMZ extracts the KML payload from a KMZ archive. Used to verify
// written archives and by the round-trip tests.
func ReadKMZ(path string) ([]byte, error) {
	zr, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening KMZ archive: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	for _, member := range zr.File {
		if !strings.EqualFold(filepath.Ext(member.Name), ".kml") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("opening KMZ entry %q: %w", member.Name, err)
		}

		data, err := io.ReadAll(rc)
		if cerr := rc.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}

		if err != nil {
			return nil, fmt.Errorf("reading KMZ entry %q: %w", member.Name, err)
		}

		return data, nil
	}

	return nil, errors.New("no .kml entry in archive")
}
