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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeStrava serves canned responses for the endpoints the client
// uses, keyed by request path.
func fakeStrava(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := routes[r.URL.Path]
		if !ok {
			t.Errorf("Unexpected request: %s", r.URL)
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return &Client{HTTPClient: srv.Client(), BaseURL: srv.URL}
}

func respond(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestLatestActivity(t *testing.T) {
	c := fakeStrava(t, map[string]func(http.ResponseWriter, *http.Request){
		"/athlete/activities": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("per_page") != "1" || r.URL.Query().Get("page") != "1" {
				t.Errorf("Expected per_page=1&page=1, got %s", r.URL.RawQuery)
			}
			respond(`[{
				"id": 12345,
				"name": "Morning Run",
				"sport_type": "Run",
				"start_date": "2024-05-01T06:30:00Z",
				"distance": 10012.5,
				"moving_time": 3120,
				"total_elevation_gain": 87.4,
				"start_latlng": [47.6, -122.3],
				"map": {"id": "a12345", "summary_polyline": "abc"}
			}]`)(w, r)
		},
	})

	act, err := c.LatestActivity(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if act == nil {
		t.Fatal("Expected an activity")
	}
	if act.ID != 12345 || act.Name != "Morning Run" || act.SportType != "Run" {
		t.Errorf("Unexpected activity: %+v", act)
	}
	if act.TotalElevationGain != 87.4 {
		t.Errorf("Expected reported gain 87.4, got %v", act.TotalElevationGain)
	}
	if want := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC); !act.StartDate.Equal(want) {
		t.Errorf("Expected start %v, got %v", want, act.StartDate)
	}
}

func TestLatestActivityNone(t *testing.T) {
	c := fakeStrava(t, map[string]func(http.ResponseWriter, *http.Request){
		"/athlete/activities": respond(`[]`),
	})
	act, err := c.LatestActivity(context.Background())
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if act != nil {
		t.Errorf("Expected no activity, got %+v", act)
	}
}

func TestLatestActivityStatusError(t *testing.T) {
	c := fakeStrava(t, map[string]func(http.ResponseWriter, *http.Request){
		"/athlete/activities": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Authorization Error"}`)
		},
	})
	_, err := c.LatestActivity(context.Background())
	var se StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", se.StatusCode)
	}
}

func TestRouteAndElevation(t *testing.T) {
	act := &Summary{ID: 99, TotalElevationGain: 42.5}

	for i, test := range []struct {
		handler     func(http.ResponseWriter, *http.Request)
		expectRoute Route
	}{
		{
			handler: respond(`{"latlng": {"data": [[47.1, -122.1], [47.2, -122.2], [47.3, -122.3]], "series_type": "distance", "original_size": 3, "resolution": "high"}}`),
			expectRoute: Route{
				{Latitude: 47.1, Longitude: -122.1},
				{Latitude: 47.2, Longitude: -122.2},
				{Latitude: 47.3, Longitude: -122.3},
			},
		},
		{
			// indoor activity: no latlng stream
			handler:     respond(`{"distance": {"data": [0, 1.5, 3.0], "series_type": "distance", "original_size": 3, "resolution": "high"}}`),
			expectRoute: Route{},
		},
		{
			handler:     respond(`{"latlng": {"data": [], "series_type": "distance", "original_size": 0, "resolution": "high"}}`),
			expectRoute: Route{},
		},
		{
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message":"Record Not Found"}`)
			},
			expectRoute: Route{},
		},
	} {
		c := fakeStrava(t, map[string]func(http.ResponseWriter, *http.Request){
			"/activities/99/streams": func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("keys") != "latlng" || q.Get("key_by_type") != "true" || q.Get("resolution") != "high" {
					t.Errorf("Test %d: Unexpected query: %s", i, r.URL.RawQuery)
				}
				test.handler(w, r)
			},
		})

		route, gain, err := c.RouteAndElevation(context.Background(), act)
		if err != nil {
			t.Errorf("Test %d: Unexpected error: %v", i, err)
			continue
		}
		if route == nil {
			t.Errorf("Test %d: Expected a non-nil route", i)
		}
		if len(route) != len(test.expectRoute) {
			t.Errorf("Test %d: Expected %d points, got %d", i, len(test.expectRoute), len(route))
			continue
		}
		for j := range route {
			if route[j] != test.expectRoute[j] {
				t.Errorf("Test %d: Point %d: expected %v, got %v", i, j, test.expectRoute[j], route[j])
			}
		}
		if gain != act.TotalElevationGain {
			t.Errorf("Test %d: Expected reported gain %v, got %v", i, act.TotalElevationGain, gain)
		}
	}
}

func TestRouteAndElevationNoActivity(t *testing.T) {
	c := &Client{BaseURL: "http://127.0.0.1:0"}
	if _, _, err := c.RouteAndElevation(context.Background(), nil); !errors.Is(err, ErrNoActivities) {
		t.Errorf("Expected ErrNoActivities, got %v", err)
	}
}

func TestRouteAndElevationServerError(t *testing.T) {
	c := fakeStrava(t, map[string]func(http.ResponseWriter, *http.Request){
		"/activities/7/streams": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	_, _, err := c.RouteAndElevation(context.Background(), &Summary{ID: 7})
	var se StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected StatusError with 500, got %v", err)
	}
}

func TestAthlete(t *testing.T) {
	c := fakeStrava(t, map[string]func(http.ResponseWriter, *http.Request){
		"/athlete": respond(`{"id": 1, "username": "jdoe", "firstname": "Jane", "lastname": "Doe", "city": "Boulder", "country": "United States"}`),
	})
	ath, err := c.Athlete(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ath.Name() != "Jane Doe" {
		t.Errorf("Expected name 'Jane Doe', got %q", ath.Name())
	}
}
