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
	"net/url"
	"strings"
	"testing"

	"github.com/timelinize/trailmark/activity"
	"github.com/twpayne/go-polyline"
)

var testCenter = activity.Coordinate{Latitude: 47.608013, Longitude: -122.335167}

func TestMapboxURL(t *testing.T) {
	m := Mapbox{AccessToken: "pk.secret"}

	u, err := m.URL(Request{
		Center:  testCenter,
		Zoom:    15.954,
		Bearing: -30,
		Pitch:   75,
		Width:   600,
		Height:  400,
		Retina:  true,
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := "https://api.mapbox.com/styles/v1/mapbox/outdoors-v12/static/" +
		"pin-l-s+e53935(-122.335167,47.608013)/" +
		"-122.335167,47.608013,15.95,330.0,60.0/600x400@2x?access_token=pk.secret"
	if u != expected {
		t.Errorf("Expected\n%s\ngot\n%s", expected, u)
	}

	if redacted := m.Redact(u); strings.Contains(redacted, "pk.secret") {
		t.Errorf("Expected token to be redacted: %s", redacted)
	}
}

func TestMapboxURLWithPath(t *testing.T) {
	m := Mapbox{AccessToken: "tok", BaseURL: "http://127.0.0.1:1234/"}
	path := activity.Route{testCenter, {Latitude: 47.61, Longitude: -122.34}}

	u, err := m.URL(Request{Center: testCenter, Zoom: 14, Width: 2000, Height: 100, Style: "me/custom", Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(u, "http://127.0.0.1:1234/styles/v1/me/custom/static/path-3+ff4500-0.85(") {
		t.Errorf("Unexpected URL prefix: %s", u)
	}
	if !strings.Contains(u, "/1280x100?") {
		t.Errorf("Expected the size to be capped at 1280: %s", u)
	}

	enc := string(polyline.EncodeCoords([][]float64{
		{testCenter.Latitude, testCenter.Longitude},
		{47.61, -122.34},
	}))
	if !strings.Contains(u, url.PathEscape(enc)) {
		t.Errorf("Expected encoded path %q in URL: %s", enc, u)
	}
}

func TestGoogleURL(t *testing.T) {
	g := Google{APIKey: "AIza-secret"}
	u, err := g.URL(Request{Center: testCenter, Zoom: 15.6, Width: 800, Height: 400})
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Host != "maps.googleapis.com" || parsed.Path != "/maps/api/staticmap" {
		t.Errorf("Unexpected endpoint: %s", u)
	}
	q := parsed.Query()
	for key, want := range map[string]string{
		"center":  "47.608013,-122.335167",
		"zoom":    "16",
		"size":    "640x400",
		"maptype": "terrain",
		"markers": "color:red|label:S|47.608013,-122.335167",
		"key":     "AIza-secret",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("Expected %s=%q, got %q", key, want, got)
		}
	}
	if q.Has("path") {
		t.Errorf("Expected no path without a route: %s", u)
	}

	if redacted := g.Redact(u); strings.Contains(redacted, "AIza-secret") {
		t.Errorf("Expected key to be redacted: %s", redacted)
	}
}

func TestProviderURLErrors(t *testing.T) {
	good := Request{Center: testCenter, Zoom: 10, Width: 10, Height: 10}
	for i, test := range []struct {
		provider Provider
		req      Request
	}{
		{provider: Mapbox{}, req: good},
		{provider: Google{}, req: good},
		{provider: Mapbox{AccessToken: "t"}, req: Request{Center: activity.Coordinate{Latitude: 91}, Width: 10, Height: 10}},
		{provider: Google{APIKey: "k"}, req: Request{Center: testCenter, Width: 0, Height: 10}},
	} {
		if u, err := test.provider.URL(test.req); err == nil {
			t.Errorf("Test %d: Expected error, got URL %s", i, u)
		}
	}
}

func TestEncodePathThinning(t *testing.T) {
	route := make(activity.Route, 1000)
	for i := range route {
		route[i] = activity.Coordinate{Latitude: 47 + float64(i)/10000, Longitude: -122}
	}

	enc := encodePath(route, 100)
	coords, _, err := polyline.DecodeCoords([]byte(enc))
	if err != nil {
		t.Fatal(err)
	}
	if len(coords) > 100 {
		t.Errorf("Expected at most 100 points, got %d", len(coords))
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] != 47 {
		t.Errorf("Expected the first point to be kept, got %v", first)
	}
	if want := route[len(route)-1].Latitude; last[0] < want-1e-5 || last[0] > want+1e-5 {
		t.Errorf("Expected the last point %v to be kept, got %v", want, last)
	}

	if encodePath(route[:1], 100) != "" {
		t.Error("Expected no path for a single point")
	}
}
