// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"errors"
	"fmt"
)

// ErrUnreadableInput marks input files or archive members that could not
// be read at all. For a ZIP member it downgrades to a warning; for the
// only input it is fatal.
var ErrUnreadableInput = errors.New("unreadable input")

// ErrorKind classifies row-level conversion failures.
type ErrorKind int

const (
	// KindMissingCoordinates means no column or URL yielded a coordinate.
	KindMissingCoordinates ErrorKind = iota
	// KindOutOfRange means the coordinate fell outside valid lat/lon bounds.
	KindOutOfRange
	// KindUnparsableValue means a coordinate value could not be parsed.
	KindUnparsableValue
)

// String returns the reason string recorded in logs and in the output's
// failed-conversions folder.
func (k ErrorKind) String() string {
	switch k {
	case KindMissingCoordinates:
		return "could not extract coordinates"
	case KindOutOfRange:
		return "coordinates out of range"
	case KindUnparsableValue:
		return "unparsable coordinate value"
	default:
		return "unknown error"
	}
}

// RowError is a recoverable, row-level conversion failure. The row becomes
// a failure record; the run continues.
type RowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RowError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reason returns the enumerated reason string for failure records.
func (e *RowError) Reason() string {
	if e.Message != "" {
		return e.Message
	}

	return e.Kind.String()
}

func missingCoordinates(hasURL bool) *RowError {
	msg := "could not extract coordinates"
	if hasURL {
		msg += " from URL"
	}

	return &RowError{Kind: KindMissingCoordinates, Message: msg}
}

func outOfRange(lat, lon float64) *RowError {
	return &RowError{
		Kind:    KindOutOfRange,
		Message: fmt.Sprintf("invalid coordinates %g,%g", lat, lon),
	}
}

func unparsableValue(field, value string, err error) *RowError {
	return &RowError{
		Kind:    KindUnparsableValue,
		Message: fmt.Sprintf("unparsable %s %q", field, value),
		Err:     err,
	}
}
