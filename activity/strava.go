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

package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultAPIURL is the base URL of the Strava v3 API.
const DefaultAPIURL = "https://www.strava.com/api/v3"

// Client reads activities from the Strava API.
type Client struct {
	// HTTPClient must add authentication to requests;
	// typically Session.HTTPClient.
	HTTPClient *http.Client

	// BaseURL defaults to DefaultAPIURL.
	BaseURL string

	log *zap.Logger
}

// NewClient returns a client that uses sess for authentication.
func NewClient(sess *Session) *Client {
	return &Client{HTTPClient: sess.HTTPClient}
}

// Athlete returns the authenticated athlete.
func (c *Client) Athlete(ctx context.Context) (Athlete, error) {
	var ath Athlete
	if err := c.get(ctx, "/athlete", nil, &ath); err != nil {
		return Athlete{}, fmt.Errorf("getting athlete: %w", err)
	}
	return ath, nil
}

// LatestActivity returns the single most recent activity. It returns
// nil and no error if the athlete has no activities; that is a normal
// outcome.
func (c *Client) LatestActivity(ctx context.Context) (*Summary, error) {
	q := url.Values{
		"per_page": {"1"},
		"page":     {"1"},
	}
	var acts []Summary
	if err := c.get(ctx, "/athlete/activities", q, &acts); err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	if len(acts) == 0 {
		c.logger().Info("no activities found")
		return nil, nil
	}
	return &acts[0], nil
}

// streamSet is the key_by_type=true form of a streams response.
type streamSet map[string]struct {
	Data         json.RawMessage `json:"data"`
	SeriesType   string          `json:"series_type"`
	OriginalSize int             `json:"original_size"`
	Resolution   string          `json:"resolution"`
}

// RouteAndElevation returns the high-resolution route of act and the
// total elevation gain as reported by Strava. If the activity has no
// GPS stream (e.g. it was recorded indoors), the route is empty.
func (c *Client) RouteAndElevation(ctx context.Context, act *Summary) (Route, float64, error) {
	if act == nil {
		return nil, 0, ErrNoActivities
	}

	q := url.Values{
		"keys":        {"latlng"},
		"key_by_type": {"true"},
		"resolution":  {"high"},
	}
	endpoint := "/activities/" + strconv.FormatInt(act.ID, 10) + "/streams"

	var streams streamSet
	err := c.get(ctx, endpoint, q, &streams)
	var se StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		// Strava answers 404 when an activity has no streams at all
		c.logger().Info("activity has no streams", zap.Int64("activity_id", act.ID))
		return Route{}, act.TotalElevationGain, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("getting streams for activity %d: %w", act.ID, err)
	}

	latlng, ok := streams["latlng"]
	if !ok || len(latlng.Data) == 0 {
		c.logger().Info("activity has no latlng stream", zap.Int64("activity_id", act.ID))
		return Route{}, act.TotalElevationGain, nil
	}

	var route Route
	if err := json.Unmarshal(latlng.Data, &route); err != nil {
		return nil, 0, fmt.Errorf("decoding latlng stream: %w", err)
	}
	if route == nil {
		route = Route{}
	}

	c.logger().Debug("got route",
		zap.Int64("activity_id", act.ID),
		zap.Int("points", len(route)),
		zap.String("resolution", latlng.Resolution))

	return route, act.TotalElevationGain, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, into any) error {
	u := strings.TrimSuffix(c.baseURL(), "/") + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return NewStatusError(u, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultAPIURL
	}
	return c.BaseURL
}

func (c *Client) logger() *zap.Logger {
	if c.log == nil {
		c.log = Log.Named("strava")
	}
	return c.log
}
