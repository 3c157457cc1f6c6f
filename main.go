// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jxmas/gmaps2kml/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
