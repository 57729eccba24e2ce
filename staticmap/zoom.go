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

import "math"

// Zoom range supported by the static map providers.
const (
	MinZoom = 0.0
	MaxZoom = 22.0
)

// equatorMetersPerPixel is the ground resolution of a 256px
// Web-Mercator tile at zoom 0 on the equator.
const equatorMetersPerPixel = 156543.03392

// EstimateZoom returns the Web-Mercator zoom level at which
// groundWidthMeters spans pixelWidth pixels at latitude (degrees).
// The result is always within [MinZoom, MaxZoom]: a ground width
// of zero or less asks for as much detail as possible, and a
// pixel width of zero or less for as little.
func EstimateZoom(latitude float64, pixelWidth int, groundWidthMeters float64) float64 {
	if groundWidthMeters <= 0 {
		return MaxZoom
	}
	if pixelWidth <= 0 {
		return MinZoom
	}
	metersPerPixel := groundWidthMeters / float64(pixelWidth)
	z := math.Log2(equatorMetersPerPixel * math.Cos(latitude*math.Pi/180) / metersPerPixel)
	return clampZoom(z)
}

func clampZoom(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return MinZoom
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

// deg2num converts a coordinate to fractional tile numbers at zoom.
func deg2num(lat, lon, zoom float64) (float64, float64) {
	latRad := lat * math.Pi / 180
	n := math.Pow(2, zoom)
	xtile := (lon + 180) / 360 * n
	ytile := (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n
	return xtile, ytile
}
