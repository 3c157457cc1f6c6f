// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jxmas/gmaps2kml/geocode"
	"github.com/jxmas/gmaps2kml/kml"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Options configuration for a conversion run.
type Options struct {
	// PlainKML selects .kml output; the default is compressed .kmz.
	PlainKML bool

	// Geocode enables reverse geocoding of extracted coordinates.
	Geocode bool

	// ResolveURLs enables fetching maps/place/ URLs that carry no
	// embedded coordinates.
	ResolveURLs bool

	// Debug enables per-row diagnostics.
	Debug bool

	// DryRun skips writing any output file.
	DryRun bool

	// UserAgent is sent on every outbound HTTP request.
	UserAgent string

	// GeocodeEndpoint overrides the reverse-geocoding URL.
	GeocodeEndpoint string

	// GeocodeMaxRetries bounds retries of transient geocoding failures.
	GeocodeMaxRetries int

	// GeocodeCacheSize is the geocode cache capacity.
	GeocodeCacheSize int

	// Enables light tracing of HTTP requests and responses.
	TraceWriter io.Writer

	// Enables full HTTP body tracing.
	TraceBody bool
}

// Metrics tracks counters across a conversion run.
type Metrics struct {
	RowsRead       int
	Places         int
	RowFailures    int
	GeocodeErrors  int
	FilesWritten   int
	MembersSkipped int
}

// Merge combines the metrics from another run into this one.
func (m *Metrics) Merge(o *Metrics) *Metrics {
	m.RowsRead += o.RowsRead
	m.Places += o.Places
	m.RowFailures += o.RowFailures
	m.GeocodeErrors += o.GeocodeErrors
	m.FilesWritten += o.FilesWritten
	m.MembersSkipped += o.MembersSkipped

	return m
}

// Converter runs the conversion pipeline: read, extract and validate,
// optionally geocode, classify, accumulate, write.
type Converter struct {
	options  *Options
	geocoder geocode.Geocoder
	resolver *URLResolver
	Metrics  Metrics
}

// New creates a Converter. The geocode client and its cache live for the
// whole run, so coordinates repeated across input files are only resolved
// once.
func New(options *Options) (*Converter, error) {
	if options == nil {
		options = &Options{}
	}

	c := &Converter{options: options}

	if options.Geocode {
		geocoder, err := geocode.NewNominatim(&geocode.ClientOptions{
			Endpoint:    options.GeocodeEndpoint,
			UserAgent:   options.UserAgent,
			MaxRetries:  options.GeocodeMaxRetries,
			CacheSize:   options.GeocodeCacheSize,
			TraceWriter: options.TraceWriter,
			TraceBody:   options.TraceBody,
		})
		if err != nil {
			return nil, err
		}

		c.geocoder = geocoder
	}

	if options.ResolveURLs {
		c.resolver = NewURLResolver(options.UserAgent, options.TraceWriter, options.TraceBody)
	}

	return c, nil
}

// Run converts one input file. A .zip input produces one output per CSV
// member inside the output directory; anything else is treated as a single
// CSV producing a single output file.
func (c *Converter) Run(input, output string) error {
	if strings.EqualFold(filepath.Ext(input), ".zip") {
		return c.convertZip(input, output)
	}

	return c.convertCSV(input, output)
}

// ExitCode derives the process exit status from the accumulated metrics:
// 0 when every row converted, 2 when some rows failed but the input was
// readable. Fatal errors are handled by the caller and map to 1.
func (c *Converter) ExitCode() int {
	if c.Metrics.RowFailures > 0 || c.Metrics.MembersSkipped > 0 {
		return 2
	}

	return 0
}

// LogSummary writes the end-of-run counters to the log.
func (c *Converter) LogSummary() {
	log.Printf(
		"Conversion completed - %d rows read, %d places, %d failed, %d geocode errors, %d files written, %d archive members skipped",
		c.Metrics.RowsRead,
		c.Metrics.Places,
		c.Metrics.RowFailures,
		c.Metrics.GeocodeErrors,
		c.Metrics.FilesWritten,
		c.Metrics.MembersSkipped,
	)
}

func (c *Converter) convertCSV(input, output string) error {
	// First pass to size the progress bar; second pass does the work.
	total, err := CountRows(input)
	if err != nil {
		return err
	}

	bar := newProgressBar(total, "Converting "+filepath.Base(input))

	doc := kml.NewDocument(documentName(output))

	err = EachCSVRow(input, func(index int, row Row) error {
		if bar != nil {
			_ = bar.Add(1)
		}

		c.processRow(index, row, doc)

		return nil
	})
	if err != nil {
		return err
	}

	return c.write(doc, output)
}

func (c *Converter) convertZip(input, outputDir string) error {
	ext := ".kmz"
	if c.options.PlainKML {
		ext = ".kml"
	}

	skipped, err := EachZipMember(input, func(name string, r io.Reader) error {
		base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		outputPath := filepath.Join(outputDir, base+ext)

		doc := kml.NewDocument(base)

		if err := EachRow(r, func(index int, row Row) error {
			c.processRow(index, row, doc)

			return nil
		}); err != nil {
			return err
		}

		// Write failures are fatal for the run, unlike member read errors.
		if err := c.write(doc, outputPath); err != nil {
			return &fatalError{err: err}
		}

		log.Printf("Created %s with %d places", outputPath, doc.Len())

		return nil
	})

	c.Metrics.MembersSkipped += skipped

	return err
}

// processRow runs one row through extract → resolve? → geocode? →
// classify → accumulate. Row-level failures are recorded, never fatal.
func (c *Converter) processRow(index int, row Row, doc *kml.Document) {
	c.Metrics.RowsRead++

	if c.options.Debug {
		log.Printf("Processing row %d: %v", index+1, row)
	}

	name, url, category := row.Name(), row.URL(), row.Category()

	lat, lon, err := ExtractCoordinates(row)
	if err != nil && c.resolver != nil && IsPlaceURL(url) {
		var rowErr *RowError
		if errors.As(err, &rowErr) && rowErr.Kind == KindMissingCoordinates {
			resolved, resolveErr := c.resolver.Resolve(url)
			if resolveErr != nil {
				log.Printf("Row %d (%s): resolving place URL: %s", index+1, name, resolveErr)
			} else {
				lat, lon = resolved.Lat, resolved.Lon
				url = resolved.FinalURL

				if category == "" {
					category = resolved.Category
				}

				err = validateCoordinates(lat, lon)
			}
		}
	}

	if err != nil {
		c.Metrics.RowFailures++

		reason := err.Error()

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			reason = rowErr.Reason()
		}

		log.Printf("Row %d (%s): %s", index+1, name, reason)
		doc.AddFailure(kml.Failure{Name: name, URL: url, Reason: reason})

		return
	}

	place := kml.Place{
		Name:     name,
		Lat:      lat,
		Lon:      lon,
		URL:      url,
		Note:     row.Note(),
		Category: category,
		Layer:    Classify(category),
	}

	if c.geocoder != nil {
		address, err := c.geocoder.ReverseGeocode(lat, lon)
		if err != nil {
			// Recoverable: the placemark just goes out without an address.
			c.Metrics.GeocodeErrors++

			log.Printf("Geocoding failed for %g,%g: %s", lat, lon, err)
		}

		place.Address = address
	}

	c.Metrics.Places++
	doc.Add(place)
}

func (c *Converter) write(doc *kml.Document, output string) error {
	if c.options.DryRun {
		return nil
	}

	if err := doc.Write(output, !c.options.PlainKML); err != nil {
		return err
	}

	c.Metrics.FilesWritten++

	if err := doc.WriteLayerVariants(output); err != nil {
		return err
	}

	return nil
}

func documentName(output string) string {
	base := filepath.Base(output)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
