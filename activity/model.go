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

// Package activity talks to the Strava API on behalf of a single athlete:
// it keeps the OAuth2 credentials on disk, retrieves the latest activity,
// and extracts its route.
package activity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Coordinate is a point on the globe in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid returns true if c is within the WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// UnmarshalJSON decodes the [lat, lng] pair format used by
// Strava streams. An object with latitude/longitude keys is
// also accepted.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("coordinate must have 2 values, got %d", len(pair))
		}
		c.Latitude, c.Longitude = pair[0], pair[1]
		return nil
	}
	type plain Coordinate
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Coordinate(p)
	return nil
}

// Route is an ordered sequence of coordinates; the order is the
// order in which they were recorded. A route may be empty.
type Route []Coordinate

// Start returns the first coordinate of the route, if any.
func (r Route) Start() (Coordinate, bool) {
	if len(r) == 0 {
		return Coordinate{}, false
	}
	return r[0], true
}

// Sample is a ground elevation in meters for one coordinate of a
// route. A sample that is not Valid marks a point whose elevation
// could not be looked up.
type Sample struct {
	Meters float64
	Valid  bool
}

// Elevation returns a valid sample of m meters.
func Elevation(m float64) Sample { return Sample{Meters: m, Valid: true} }

// Athlete is the authenticated Strava user.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// Name returns the athlete's display name.
func (a Athlete) Name() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.Username != "":
		return a.Username
	}
	return fmt.Sprintf("athlete %d", a.ID)
}

// Summary is a read-only view of an activity as reported by Strava.
type Summary struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters, as reported by Strava
	StartLatLng        []float64 `json:"start_latlng"`
	Map                struct {
		ID              string `json:"id"`
		SummaryPolyline string `json:"summary_polyline"`
	} `json:"map"`
}
