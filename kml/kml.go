// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

// Package kml assembles placemarks into KML 2.2 documents and writes them
// as .kml files or compressed .kmz archives.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jxmas/gmaps2kml/utils/textutils"
)

// Namespace is the KML 2.2 XML namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// FailedFolderName is the folder that collects rows that could not be
// converted.
const FailedFolderName = "Failed Conversions"

// Layer is a categorical grouping of output placemarks.
type Layer string

// The three output layers.
const (
	LayerSleep Layer = "Sleep"
	LayerEat   Layer = "Eat"
	LayerDo    Layer = "Do"
)

// Layers returns all layers in output order.
func Layers() []Layer {
	return []Layer{LayerSleep, LayerEat, LayerDo}
}

// Description returns the human-readable blurb shown on the layer folder.
func (l Layer) Description() string {
	switch l {
	case LayerSleep:
		return "Hotels, motels and other lodging"
	case LayerEat:
		return "Restaurants, bars and cafes"
	case LayerDo:
		return "Activities and other places"
	default:
		return ""
	}
}

// Google Maps palette icons per place category.
var iconMap = map[string]string{
	"lodging":    "http://maps.google.com/mapfiles/kml/pal4/icon57.png",
	"restaurant": "http://maps.google.com/mapfiles/kml/pal4/icon46.png",
	"bar":        "http://maps.google.com/mapfiles/kml/pal4/icon7.png",
	"hiking":     "http://maps.google.com/mapfiles/kml/pal4/icon13.png",
	"swimming":   "http://maps.google.com/mapfiles/kml/pal4/icon61.png",
	"scenic":     "http://maps.google.com/mapfiles/kml/pal4/icon38.png",
	"default":    "http://maps.google.com/mapfiles/kml/pal4/icon49.png",
}

// IconFor picks a map icon for a place category. An absent category gets
// the scenic (camera) icon, an unrecognized one the generic pin.
func IconFor(category string) string {
	if category == "" {
		return iconMap["scenic"]
	}

	category = textutils.LowerASCIIFolding(category)

	switch {
	case containsAny(category, "hotel", "motel", "lodging"):
		return iconMap["lodging"]
	case containsAny(category, "restaurant", "cafe", "dining"):
		return iconMap["restaurant"]
	case containsAny(category, "bar", "pub"):
		return iconMap["bar"]
	case containsAny(category, "hiking", "trail"):
		return iconMap["hiking"]
	case containsAny(category, "swimming", "pool", "beach"):
		return iconMap["swimming"]
	default:
		return iconMap["default"]
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// Place is one successfully converted saved place.
type Place struct {
	Name     string
	Lat      float64
	Lon      float64
	URL      string
	Note     string
	Address  string
	Category string
	Layer    Layer
}

// Failure is one row that could not be converted. It still shows up in the
// output, inside the failed-conversions folder, so nothing is silently lost.
type Failure struct {
	Name   string
	URL    string
	Reason string
}

// Document accumulates places grouped by layer, preserving input order
// within each layer, plus the failures for the same logical output.
type Document struct {
	name     string
	places   map[Layer][]Place
	failures []Failure
}

// NewDocument creates an empty document with the given display name.
func NewDocument(name string) *Document {
	return &Document{
		name:   name,
		places: make(map[Layer][]Place),
	}
}

// Add appends a place to its layer. Places with an unset layer land in Do.
func (d *Document) Add(p Place) {
	if p.Layer == "" {
		p.Layer = LayerDo
	}

	d.places[p.Layer] = append(d.places[p.Layer], p)
}

// AddFailure appends a failure record.
func (d *Document) AddFailure(f Failure) {
	d.failures = append(d.failures, f)
}

// Places returns the places of one layer, in input order.
func (d *Document) Places(l Layer) []Place {
	return d.places[l]
}

// Len returns the number of places across all layers.
func (d *Document) Len() int {
	var n int
	for _, places := range d.places {
		n += len(places)
	}

	return n
}

// Failures returns the accumulated failure records.
func (d *Document) Failures() []Failure {
	return d.failures
}

//////////////////////////////////////////////////
// XML wire representation

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document xmlDocument `xml:"Document"`
}

type xmlDocument struct {
	Name    string      `xml:"name,omitempty"`
	Folders []xmlFolder `xml:"Folder"`
}

type xmlFolder struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	Placemarks  []xmlPlacemark `xml:"Placemark"`
}

type xmlPlacemark struct {
	Name        string    `xml:"name"`
	Style       *xmlStyle `xml:"Style,omitempty"`
	Point       *xmlPoint `xml:"Point,omitempty"`
	Description string    `xml:"description,omitempty"`
}

type xmlStyle struct {
	IconStyle xmlIconStyle `xml:"IconStyle"`
}

type xmlIconStyle struct {
	Icon xmlIcon `xml:"Icon"`
}

type xmlIcon struct {
	Href string `xml:"href"`
}

type xmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

func formatCoordinates(lat, lon float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) +
		"," + strconv.FormatFloat(lat, 'f', -1, 64) + ",0"
}

func placemarkFor(p Place) xmlPlacemark {
	var desc []string
	if p.URL != "" {
		desc = append(desc, fmt.Sprintf("<a href=%q>View on Google Maps</a>", p.URL))
	}

	if p.Note != "" {
		desc = append(desc, "<b>Notes:</b> "+p.Note)
	}

	if p.Address != "" {
		desc = append(desc, "<b>Address:</b> "+p.Address)
	}

	return xmlPlacemark{
		Name:        p.Name,
		Description: strings.Join(desc, "<br/>"),
		Style: &xmlStyle{
			IconStyle: xmlIconStyle{Icon: xmlIcon{Href: IconFor(p.Category)}},
		},
		Point: &xmlPoint{Coordinates: formatCoordinates(p.Lat, p.Lon)},
	}
}

func folderFor(l Layer, places []Place) xmlFolder {
	folder := xmlFolder{
		Name:        string(l),
		Description: l.Description(),
		Placemarks:  make([]xmlPlacemark, 0, len(places)),
	}

	for _, p := range places {
		folder.Placemarks = append(folder.Placemarks, placemarkFor(p))
	}

	return folder
}

func failureFolder(failures []Failure) xmlFolder {
	folder := xmlFolder{
		Name:        FailedFolderName,
		Description: "Locations that could not be converted",
		Placemarks:  make([]xmlPlacemark, 0, len(failures)),
	}

	for _, f := range failures {
		folder.Placemarks = append(folder.Placemarks, xmlPlacemark{
			Name:        f.Name,
			Description: fmt.Sprintf("URL: %s\nError: %s", f.URL, f.Reason),
		})
	}

	return folder
}

// Marshal renders the document as an indented KML 2.2 byte sequence.
// encoding/xml takes care of escaping names, notes and URLs.
func (d *Document) Marshal() ([]byte, error) {
	root := kmlRoot{
		Xmlns: Namespace,
		Document: xmlDocument{
			Name: d.name,
		},
	}

	for _, l := range Layers() {
		root.Document.Folders = append(root.Document.Folders, folderFor(l, d.places[l]))
	}

	if len(d.failures) > 0 {
		root.Document.Folders = append(root.Document.Folders, failureFolder(d.failures))
	}

	body, err := xml.MarshalIndent(&root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling KML document: %w", err)
	}

	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// layerDocument renders a single-layer variant of the document.
func (d *Document) layerDocument(l Layer) ([]byte, error) {
	root := kmlRoot{
		Xmlns: Namespace,
		Document: xmlDocument{
			Folders: []xmlFolder{folderFor(l, d.places[l])},
		},
	}

	body, err := xml.MarshalIndent(&root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling layer document: %w", err)
	}

	return append([]byte(xml.Header), append(body, '\n')...), nil
}

//////////////////////////////////////////////////
// Parsing

// ParsedPlacemark is a placemark read back from a KML document.
type ParsedPlacemark struct {
	Name        string
	Description string
	Lat         float64
	Lon         float64
	HasPoint    bool
}

// ParsedFolder is a folder read back from a KML document.
type ParsedFolder struct {
	Name       string
	Placemarks []ParsedPlacemark
}

// Parse reads a KML document and returns its folders. It understands the
// subset of KML this package emits, which is enough for verification and
// round-trip tests.
func Parse(r io.Reader) ([]ParsedFolder, error) {
	var root kmlRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("parsing KML document: %w", err)
	}

	folders := make([]ParsedFolder, 0, len(root.Document.Folders))

	for _, f := range root.Document.Folders {
		parsed := ParsedFolder{Name: f.Name}

		for _, pm := range f.Placemarks {
			entry := ParsedPlacemark{
				Name:        pm.Name,
				Description: pm.Description,
			}

			if pm.Point != nil {
				parts := strings.Split(pm.Point.Coordinates, ",")
				if len(parts) < 2 {
					return nil, fmt.Errorf("malformed coordinates %q", pm.Point.Coordinates)
				}

				lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
				if err != nil {
					return nil, fmt.Errorf("parsing longitude %q: %w", parts[0], err)
				}

				lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
				if err != nil {
					return nil, fmt.Errorf("parsing latitude %q: %w", parts[1], err)
				}

				entry.Lon, entry.Lat, entry.HasPoint = lon, lat, true
			}

			parsed.Placemarks = append(parsed.Placemarks, entry)
		}

		folders = append(folders, parsed)
	}

	return folders, nil
}
