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
	"fmt"
	"io"
	"strconv"

	"github.com/tkrajina/gpxgo/gpx"
)

// WriteGPX writes route as a single-track GPX 1.1 document. Samples,
// if not nil, must be aligned with route; valid samples become the
// points' elevations.
func WriteGPX(w io.Writer, act *Summary, route Route, samples []Sample) error {
	if samples != nil && len(samples) != len(route) {
		return fmt.Errorf("have %d elevation samples for %d points", len(samples), len(route))
	}

	doc := &gpx.GPX{
		Creator: "trailmark",
	}

	var seg gpx.GPXTrackSegment
	seg.Points = make([]gpx.GPXPoint, 0, len(route))
	for i, c := range route {
		var pt gpx.GPXPoint
		pt.Latitude = c.Latitude
		pt.Longitude = c.Longitude
		if samples != nil && samples[i].Valid {
			pt.Elevation.SetValue(samples[i].Meters)
		}
		seg.Points = append(seg.Points, pt)
	}

	trk := gpx.GPXTrack{Segments: []gpx.GPXTrackSegment{seg}}
	if act != nil {
		doc.Name = act.Name
		trk.Name = act.Name
		trk.Type = act.SportType
		if act.ID != 0 {
			trk.Source = "strava:" + strconv.FormatInt(act.ID, 10)
		}
		if !act.StartDate.IsZero() {
			start := act.StartDate
			doc.Time = &start
		}
	}
	doc.Tracks = []gpx.GPXTrack{trk}

	xml, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encoding GPX: %w", err)
	}
	_, err = w.Write(xml)
	return err
}
