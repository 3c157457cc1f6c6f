// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jxmas/gmaps2kml/convert"
	"github.com/jxmas/gmaps2kml/geocode"
)

const envPrefix = "GMAPS2KML"

type convertFlags struct {
	plainKML      bool
	geocode       bool
	resolveURLs   bool
	debug         bool
	dryRun        bool
	traceHTTP     bool
	traceHTTPBody bool
	logFile       string
}

var convertOptions = &convertFlags{}

// newConfig binds the environment overrides. Flags cover per-run choices;
// the environment covers deployment concerns such as a self-hosted
// Nominatim endpoint.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("geocode_url", geocode.DefaultEndpoint)
	v.SetDefault("user_agent", "gmaps2kml/"+Version)
	v.SetDefault("max_retries", geocode.DefaultMaxRetries)
	v.SetDefault("cache_size", geocode.DefaultCacheSize)

	return v
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.csv|input.zip> <output>",
	Short: "Convert a saved-places CSV or Takeout ZIP to KML/KMZ",
	Long: `
Convert reads a Google Takeout saved-places CSV, or a ZIP archive of
them, and writes a KML or KMZ document per input file. Places are
grouped into Sleep, Eat and Do folders; rows that yield no usable
coordinates are recorded in a "Failed Conversions" folder instead of
being dropped.

For a CSV input the output argument is the output file; for a ZIP it is
the output directory, and each archive member produces a file named
after it.

Exit status is 0 on full success, 1 on a fatal error, and 2 when the
run completed but some rows or archive members failed.
`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, args []string) error {
		input, output := args[0], args[1]

		if convertOptions.logFile != "" {
			closeLog, err := teeLogTo(convertOptions.logFile)
			if err != nil {
				return err
			}
			defer closeLog()
		}

		config := newConfig()

		var trace io.Writer
		if convertOptions.traceHTTP || convertOptions.traceHTTPBody {
			trace = os.Stderr
		}

		c, err := convert.New(&convert.Options{
			PlainKML:          convertOptions.plainKML,
			Geocode:           convertOptions.geocode,
			ResolveURLs:       convertOptions.resolveURLs,
			Debug:             convertOptions.debug,
			DryRun:            convertOptions.dryRun,
			UserAgent:         config.GetString("user_agent"),
			GeocodeEndpoint:   config.GetString("geocode_url"),
			GeocodeMaxRetries: config.GetInt("max_retries"),
			GeocodeCacheSize:  config.GetInt("cache_size"),
			TraceWriter:       trace,
			TraceBody:         convertOptions.traceHTTPBody,
		})
		if err != nil {
			return err
		}

		if err := c.Run(input, output); err != nil {
			return fmt.Errorf("converting %s: %w", input, err)
		}

		c.LogSummary()

		// Deferred cleanup must run before the process exits, so the
		// status only gets recorded here; Execute applies it.
		exitCode = c.ExitCode()

		return nil
	},
}

// teeLogTo duplicates log output into an append-mode file, keeping the
// terminal copy.
func teeLogTo(path string) (func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	log.SetOutput(&logWriter{writer: io.MultiWriter(os.Stderr, f)})

	return func() {
		log.SetOutput(&logWriter{writer: os.Stderr})
		_ = f.Close()
	}, nil
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.plainKML,
		"kml",
		false,
		"Write plain .kml output instead of compressed .kmz",
	)
	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.geocode,
		"geocode",
		false,
		"Reverse-geocode each place into a street address",
	)
	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.resolveURLs,
		"resolve-urls",
		false,
		"Fetch Google Maps place URLs to recover missing coordinates",
	)
	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.debug,
		"debug",
		false,
		"Log every processed row",
	)
	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.dryRun,
		"dry-run",
		false,
		"Run the conversion without writing any output file",
	)
	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.traceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	convertCmd.PersistentFlags().BoolVar(
		&convertOptions.traceHTTPBody,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
	convertCmd.PersistentFlags().StringVar(
		&convertOptions.logFile,
		"log-file",
		"",
		"Also append log output to this file",
	)
}
