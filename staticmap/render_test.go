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
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timelinize/trailmark/activity"
)

func TestRenderWritesBodyVerbatim(t *testing.T) {
	body := []byte("\x89PNG\r\n\x1a\nnot really a png, but bytes are bytes")

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("Expected access token in request, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	r := Renderer{
		Provider:   Mapbox{AccessToken: "tok", BaseURL: srv.URL},
		HTTPClient: srv.Client(),
	}
	filename := filepath.Join(t.TempDir(), "map.png")

	err := r.Render(context.Background(), Request{Center: testCenter, Zoom: 15, Width: 600, Height: 400}, filename)
	if err != nil {
		t.Fatal(err)
	}

	written, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, body) {
		t.Errorf("Expected file to contain the response body verbatim")
	}
	if !strings.HasPrefix(gotPath, "/styles/v1/mapbox/outdoors-v12/static/") {
		t.Errorf("Unexpected request path: %s", gotPath)
	}
}

func TestRenderFailureWritesNothing(t *testing.T) {
	for i, status := range []int{http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"Not Authorized - Invalid Token"}`))
		}))

		r := Renderer{
			Provider:   Google{APIKey: "secret-key", BaseURL: srv.URL},
			HTTPClient: srv.Client(),
		}
		dir := t.TempDir()
		filename := filepath.Join(dir, "map.png")

		err := r.Render(context.Background(), Request{Center: testCenter, Zoom: 15, Width: 600, Height: 400}, filename)
		srv.Close()

		var se activity.StatusError
		if !errors.As(err, &se) {
			t.Errorf("Test %d: Expected StatusError, got %v", i, err)
			continue
		}
		if se.StatusCode != status {
			t.Errorf("Test %d: Expected status %d, got %d", i, status, se.StatusCode)
		}
		if strings.Contains(se.Error(), "secret-key") {
			t.Errorf("Test %d: Expected key to be redacted from error: %v", i, se)
		}
		if entries, _ := os.ReadDir(dir); len(entries) != 0 {
			t.Errorf("Test %d: Expected no file to be written, found %d entries", i, len(entries))
		}
	}
}

func TestPreview(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "preview.png")
	req := Request{
		Center:  testCenter,
		Zoom:    EstimateZoom(testCenter.Latitude, 300, 1000),
		Bearing: 45,
		Width:   300,
		Height:  200,
		Path: activity.Route{
			testCenter,
			{Latitude: 47.6085, Longitude: -122.3345},
			{Latitude: 47.6092, Longitude: -122.3338},
		},
	}
	if err := Preview(req, filename); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Preview is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("Expected 300x200 image, got %dx%d", b.Dx(), b.Dy())
	}

	// the start marker is drawn in the middle
	r, g, b, _ := img.At(150, 100).RGBA()
	if r>>8 < 200 || g>>8 > 100 || b>>8 > 100 {
		t.Errorf("Expected a red marker at the center, got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestPreviewInvalidRequest(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "preview.png")
	if err := Preview(Request{Center: testCenter}, filename); err == nil {
		t.Error("Expected an error for a zero-size image")
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		t.Error("Expected no file to be written")
	}
}
