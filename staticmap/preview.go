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
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

const tileSize = 256

var (
	previewBackground = color.RGBA{242, 239, 233, 255}
	previewGrid       = color.RGBA{220, 215, 205, 255}
	previewPath       = color.RGBA{255, 69, 0, 220}
	previewMarker     = color.RGBA{229, 57, 53, 255}
)

// Preview draws req without any map service: the route over a tile
// grid, projected with Web Mercator at req.Zoom around req.Center,
// and a marker on the center. Bearing rotates the drawing; pitch is
// ignored. The image is saved as a PNG at filename.
func Preview(req Request, filename string) error {
	if err := req.validate(); err != nil {
		return err
	}

	scale := 1.0
	if req.Retina {
		scale = 2
	}
	w, h := float64(req.Width)*scale, float64(req.Height)*scale
	zoom := clampZoom(req.Zoom)

	dc := gg.NewContext(int(w), int(h))
	dc.SetColor(previewBackground)
	dc.Clear()

	cx, cy := deg2num(req.Center.Latitude, req.Center.Longitude, zoom)
	cx *= tileSize
	cy *= tileSize

	// world pixel -> image pixel
	project := func(lat, lon float64) (float64, float64) {
		x, y := deg2num(lat, lon, zoom)
		return (x*tileSize-cx)*scale + w/2, (y*tileSize-cy)*scale + h/2
	}

	dc.Push()
	dc.RotateAbout(gg.Radians(-req.Bearing), w/2, h/2)

	drawGrid(dc, cx, cy, w, h, scale)

	if len(req.Path) > 1 {
		dc.SetColor(previewPath)
		dc.SetLineWidth(3 * scale)
		dc.SetLineCapRound()
		dc.SetLineJoinRound()
		for i, c := range req.Path {
			x, y := project(c.Latitude, c.Longitude)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}
	dc.Pop()

	dc.SetColor(previewMarker)
	dc.DrawPoint(w/2, h/2, 7*scale)
	dc.Fill()
	dc.SetColor(color.White)
	dc.SetLineWidth(2 * scale)
	dc.DrawPoint(w/2, h/2, 7*scale)
	dc.Stroke()

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("saving preview: %w", err)
	}
	return nil
}

// drawGrid outlines the tiles around the center. The grid extends
// past the image so that rotation leaves no bare corners.
func drawGrid(dc *gg.Context, cx, cy, w, h, scale float64) {
	reach := math.Hypot(w, h) / scale
	step := float64(tileSize)

	dc.SetColor(previewGrid)
	dc.SetLineWidth(1)
	for x := math.Floor((cx-reach)/step) * step; x <= cx+reach; x += step {
		px := (x-cx)*scale + w/2
		dc.DrawLine(px, h/2-reach*scale, px, h/2+reach*scale)
	}
	for y := math.Floor((cy-reach)/step) * step; y <= cy+reach; y += step {
		py := (y-cy)*scale + h/2
		dc.DrawLine(w/2-reach*scale, py, w/2+reach*scale, py)
	}
	dc.Stroke()
}
