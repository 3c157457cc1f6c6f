// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// EachRow reads CSV content and invokes fn for every data row with its
// zero-based index. The first record is the header; rows with fewer
// fields than the header simply leave those columns absent.
func EachRow(r io.Reader, fn func(index int, row Row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	} else if err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}

	for index := 0; ; index++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("reading CSV row %d: %w", index+1, err)
		}

		if err := fn(index, NewRow(header, record)); err != nil {
			return err
		}
	}
}

// EachCSVRow opens a CSV file and iterates its rows. A file that cannot be
// opened or whose header cannot be read is ErrUnreadableInput.
func EachCSVRow(path string, fn func(index int, row Row) error) (err error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing input: %w", cerr))
		}
	}()

	if err := EachRow(f, fn); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}

	return nil
}

// CountRows returns the number of data rows in a CSV file. Used to size the
// progress bar before the real pass; the sequence restarts per call.
func CountRows(path string) (int, error) {
	var n int

	err := EachCSVRow(path, func(int, Row) error {
		n++

		return nil
	})

	return n, err
}

// fatalError marks a member callback error that aborts the whole archive
// instead of skipping the member. Write failures use it; read failures
// stay member-local.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

// EachZipMember opens a ZIP archive and invokes fn for every contained CSV
// file, in archive order. Members that cannot be opened are skipped with a
// warning; fn errors for one member likewise only skip that member, unless
// wrapped in fatalError, which stops the iteration. An archive without any
// successfully processed CSV member is ErrUnreadableInput. Returns the
// number of members skipped.
func EachZipMember(path string, fn func(name string, r io.Reader) error) (int, error) {
	zr, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}

	defer func() {
		_ = zr.Close()
	}()

	var processed, skipped int

	for _, member := range zr.File {
		if !strings.EqualFold(filepath.Ext(member.Name), ".csv") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			skipped++

			log.Printf("Skipping archive member %q: %s", member.Name, err)

			continue
		}

		err = fn(member.Name, rc)
		if cerr := rc.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}

		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return skipped, fatal.err
			}

			skipped++

			log.Printf("Skipping archive member %q: %s", member.Name, err)

			continue
		}

		processed++
	}

	if processed == 0 {
		return skipped, fmt.Errorf("%w: %s: no readable CSV member", ErrUnreadableInput, path)
	}

	return skipped, nil
}
