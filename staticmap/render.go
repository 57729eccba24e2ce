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

// Package staticmap renders a map image centered on an activity's
// starting point, either by downloading it from a static map service
// or by drawing a plain preview offline.
package staticmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/timelinize/trailmark/activity"
	"go.uber.org/zap"
)

// DefaultFilename is where the map image is written by default.
const DefaultFilename = "start_map.png"

// Renderer downloads static map images from a provider.
type Renderer struct {
	Provider   Provider
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Render requests the image described by req and, if the service
// answers 200 OK, writes the response body unaltered to filename.
// On any other status the body is logged, nothing is written, and
// an activity.StatusError is returned.
func (r Renderer) Render(ctx context.Context, req Request, filename string) error {
	if r.Provider == nil {
		return fmt.Errorf("no map provider")
	}
	logger := r.logger()

	u, err := r.Provider.URL(req)
	if err != nil {
		return fmt.Errorf("building %s URL: %w", r.Provider.Name(), err)
	}
	redacted := r.Provider.Redact(u)

	logger.Debug("requesting static map",
		zap.String("url", redacted),
		zap.Float64("zoom", req.Zoom),
		zap.Int("width", req.Width),
		zap.Int("height", req.Height))

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hreq)
	if err != nil {
		// the transport error may quote the full URL
		return fmt.Errorf("requesting %s map: %s", r.Provider.Name(), r.Provider.Redact(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s map: %w", r.Provider.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("map request failed",
			zap.String("url", redacted),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", truncate(body, 1024)))
		return activity.NewStatusError(redacted, resp.StatusCode, body)
	}

	if err := writeFile(filename, body); err != nil {
		return err
	}

	logger.Info("saved map image",
		zap.String("file", filename),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int("bytes", len(body)))

	return nil
}

func (r Renderer) logger() *zap.Logger {
	if r.Logger == nil {
		return activity.Log.Named("map")
	}
	return r.Logger
}

// writeFile writes data to filename via a temporary file in the
// same directory, so a failed write never leaves a partial image.
func writeFile(filename string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(filename), ".map-*.tmp")
	if err != nil {
		return fmt.Errorf("creating map file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing map file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing map file: %w", err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("saving map file: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
