/*
	Trailmark
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package staticmap

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/timelinize/trailmark/activity"
	"github.com/twpayne/go-polyline"
)

// Request describes a static map centered on a point.
type Request struct {
	Center  activity.Coordinate
	Zoom    float64
	Bearing float64 // degrees clockwise from north
	Pitch   float64 // degrees, 0-60
	Width   int     // pixels
	Height  int     // pixels
	Style   string  // provider-specific; empty for the default
	Retina  bool    // request a @2x image

	// Path, if set, is drawn on the map as a line.
	Path activity.Route
}

func (r Request) validate() error {
	if !r.Center.Valid() {
		return fmt.Errorf("invalid center coordinate %s", r.Center)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", r.Width, r.Height)
	}
	return nil
}

// Provider builds request URLs for a static map service.
type Provider interface {
	Name() string
	URL(Request) (string, error)

	// Redact removes secrets from a URL so it can be logged.
	Redact(string) string
}

// maxPathPoints keeps encoded paths well below URL length limits.
const maxPathPoints = 250

// encodePath thins route to at most maxPoints points, keeping the
// first and last, and encodes it as a Google polyline.
func encodePath(route activity.Route, maxPoints int) string {
	if len(route) < 2 {
		return ""
	}
	step := 1
	if len(route) > maxPoints {
		step = int(math.Ceil(float64(len(route)) / float64(maxPoints-1)))
	}
	coords := make([][]float64, 0, maxPoints)
	for i := 0; i < len(route); i += step {
		coords = append(coords, []float64{route[i].Latitude, route[i].Longitude})
	}
	if last := route[len(route)-1]; (len(route)-1)%step != 0 {
		coords = append(coords, []float64{last.Latitude, last.Longitude})
	}
	return string(polyline.EncodeCoords(coords))
}

func redact(u, secret string) string {
	if secret == "" {
		return u
	}
	return strings.ReplaceAll(u, url.QueryEscape(secret), "[REDACTED]")
}

// Mapbox is the Mapbox Static Images API.
type Mapbox struct {
	AccessToken string
	BaseURL     string // defaults to https://api.mapbox.com
}

// DefaultMapboxStyle is used when a request has no style.
const DefaultMapboxStyle = "mapbox/outdoors-v12"

// Name returns "mapbox".
func (Mapbox) Name() string { return "mapbox" }

// URL returns the image URL for req.
func (m Mapbox) URL(req Request) (string, error) {
	if m.AccessToken == "" {
		return "", errors.New("mapbox: no access token")
	}
	if err := req.validate(); err != nil {
		return "", err
	}

	base := m.BaseURL
	if base == "" {
		base = "https://api.mapbox.com"
	}
	style := req.Style
	if style == "" {
		style = DefaultMapboxStyle
	}

	const maxSize = 1280
	w, h := min(req.Width, maxSize), min(req.Height, maxSize)

	lon, lat := formatCoord(req.Center.Longitude), formatCoord(req.Center.Latitude)

	overlays := []string{}
	if enc := encodePath(req.Path, maxPathPoints); enc != "" {
		overlays = append(overlays, "path-3+ff4500-0.85("+url.PathEscape(enc)+")")
	}
	overlays = append(overlays, fmt.Sprintf("pin-l-s+e53935(%s,%s)", lon, lat))

	size := fmt.Sprintf("%dx%d", w, h)
	if req.Retina {
		size += "@2x"
	}

	u := fmt.Sprintf("%s/styles/v1/%s/static/%s/%s,%s,%s,%s,%s/%s",
		strings.TrimSuffix(base, "/"),
		style,
		strings.Join(overlays, ","),
		lon, lat,
		strconv.FormatFloat(req.Zoom, 'f', 2, 64),
		strconv.FormatFloat(math.Mod(req.Bearing+360, 360), 'f', 1, 64),
		strconv.FormatFloat(math.Max(0, math.Min(60, req.Pitch)), 'f', 1, 64),
		size)

	q := url.Values{"access_token": {m.AccessToken}}
	return u + "?" + q.Encode(), nil
}

// Redact hides the access token.
func (m Mapbox) Redact(u string) string { return redact(u, m.AccessToken) }

// Google is the Google Maps Static API. It has no notion of
// bearing or pitch, and only supports whole zoom levels.
type Google struct {
	APIKey  string
	BaseURL string // defaults to https://maps.googleapis.com/maps/api/staticmap
	MapType string // defaults to "terrain"
}

// Name returns "google".
func (Google) Name() string { return "google" }

// URL returns the image URL for req.
func (g Google) URL(req Request) (string, error) {
	if g.APIKey == "" {
		return "", errors.New("google: no API key")
	}
	if err := req.validate(); err != nil {
		return "", err
	}

	base := g.BaseURL
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/staticmap"
	}
	mapType := g.MapType
	if mapType == "" {
		mapType = "terrain"
	}

	const maxSize = 640
	w, h := min(req.Width, maxSize), min(req.Height, maxSize)
	center := formatCoord(req.Center.Latitude) + "," + formatCoord(req.Center.Longitude)

	q := url.Values{
		"center":  {center},
		"zoom":    {strconv.Itoa(int(math.Round(clampZoom(req.Zoom))))},
		"size":    {fmt.Sprintf("%dx%d", w, h)},
		"maptype": {mapType},
		"markers": {"color:red|label:S|" + center},
		"key":     {g.APIKey},
	}
	if req.Retina {
		q.Set("scale", "2")
	}
	if enc := encodePath(req.Path, maxPathPoints); enc != "" {
		q.Set("path", "color:0xff4500d9|weight:3|enc:"+enc)
	}

	return strings.TrimSuffix(base, "/") + "?" + q.Encode(), nil
}

// Redact hides the API key.
func (g Google) Redact(u string) string { return redact(u, g.APIKey) }

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

var (
	_ Provider = Mapbox{}
	_ Provider = Google{}
)
