// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "gmaps2kml",
	Short: "convert Google Maps saved places to KML/KMZ",
	Long: `
gmaps2kml converts the CSV files exported by Google Takeout for saved
places into KML or KMZ documents, with places grouped into Sleep, Eat
and Do layers. It accepts a single CSV or a whole Takeout ZIP archive,
and can optionally reverse-geocode each place into a street address.
`,
}

var Version = "dev"

// exitCode is the status a command wants the process to end with. Kept
// out of RunE so deferred cleanup runs before the process exits.
var exitCode int

func Execute(version string) {
	Version = version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
