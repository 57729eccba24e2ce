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

// Package elevation looks up ground elevations for a route from an
// Open-Elevation compatible service and computes the climb from them.
package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/schollz/progressbar/v3"
	"github.com/timelinize/trailmark/activity"
	"go.uber.org/zap"
)

// DefaultURL is the public Open-Elevation lookup endpoint.
const DefaultURL = "https://api.open-elevation.com/api/v1/lookup"

// BatchSize is the most coordinates sent in one lookup request.
const BatchSize = 100

// Enricher fetches ground elevations for routes.
type Enricher struct {
	// URL of the lookup endpoint; defaults to DefaultURL.
	URL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// BatchSize defaults to BatchSize.
	BatchSize int

	// Progress, if set, receives a progress bar that
	// advances once per batch.
	Progress io.Writer

	Logger *zap.Logger
}

// Batches splits route into consecutive batches of at most size
// coordinates. The last batch may be shorter.
func Batches(route activity.Route, size int) []activity.Route {
	if size <= 0 {
		size = BatchSize
	}
	batches := make([]activity.Route, 0, (len(route)+size-1)/size)
	for start := 0; start < len(route); start += size {
		end := min(start+size, len(route))
		batches = append(batches, route[start:end])
	}
	return batches
}

// FetchGroundElevations returns one sample per coordinate of route,
// in the same order. Each batch is one request; if a request fails,
// that batch's samples are left invalid and the other batches are
// still looked up. An empty route yields an empty result without
// any requests.
func (e Enricher) FetchGroundElevations(ctx context.Context, route activity.Route) []activity.Sample {
	samples := make([]activity.Sample, len(route))
	if len(route) == 0 {
		return samples
	}

	logger := e.logger()
	batches := Batches(route, e.BatchSize)

	var bar *progressbar.ProgressBar
	if e.Progress != nil {
		bar = progressbar.NewOptions(len(batches),
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSetDescription("Looking up elevations"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish() //nolint:errcheck
	}

	offset := 0
	for i, batch := range batches {
		elevs, err := e.lookup(ctx, batch)
		if err != nil {
			// samples for this batch stay invalid
			logger.Warn("elevation lookup failed for batch",
				zap.Int("batch", i+1),
				zap.Int("of", len(batches)),
				zap.Int("points", len(batch)),
				zap.Error(err))
		} else {
			for j, m := range elevs {
				samples[offset+j] = activity.Elevation(m)
			}
		}
		offset += len(batch)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return samples
}

type lookupRequest struct {
	Locations []activity.Coordinate `json:"locations"`
}

type lookupResponse struct {
	Results []struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

// lookup performs one request for batch and returns elevations
// aligned with it.
func (e Enricher) lookup(ctx context.Context, batch activity.Route) ([]float64, error) {
	body, err := json.Marshal(lookupRequest{Locations: batch})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, activity.NewStatusError(e.url(), resp.StatusCode, respBody)
	}

	var result lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	if len(result.Results) != len(batch) {
		return nil, fmt.Errorf("asked for %d elevations but got %d", len(batch), len(result.Results))
	}

	elevs := make([]float64, len(batch))
	for i, r := range result.Results {
		if r.Elevation == nil {
			return nil, fmt.Errorf("result %d has no elevation", i)
		}
		elevs[i] = *r.Elevation
	}
	return elevs, nil
}

func (e Enricher) url() string {
	if e.URL == "" {
		return DefaultURL
	}
	return e.URL
}

func (e Enricher) logger() *zap.Logger {
	if e.Logger == nil {
		return activity.Log.Named("elevation")
	}
	return e.Logger
}
