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

package tmcmd

import (
	"flag"

	"github.com/timelinize/trailmark/app"
)

var (
	configFile  string
	tokenFile   string
	mapFile     string
	gpxFile     string
	provider    string
	mapWidth    int
	mapHeight   int
	groundWidth float64
	bearing     float64
	pitch       float64
	browser     bool
	historyDB   string
	progress    bool
	verbose     bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "JSON config file")
	flag.StringVar(&tokenFile, "token-file", "", "where the Strava token is stored")
	flag.StringVar(&mapFile, "out", "", "map image file")
	flag.StringVar(&gpxFile, "gpx", "", "also write the route as GPX to this file")
	flag.StringVar(&provider, "provider", "", "map provider: auto, mapbox, google or preview")
	flag.IntVar(&mapWidth, "width", 0, "map width in pixels")
	flag.IntVar(&mapHeight, "height", 0, "map height in pixels")
	flag.Float64Var(&groundWidth, "ground-width", 0, "meters of ground covered by the map width")
	flag.Float64Var(&bearing, "bearing", 0, "map bearing in degrees")
	flag.Float64Var(&pitch, "pitch", 0, "map pitch in degrees")
	flag.BoolVar(&browser, "browser", false, "receive the authorization code via a local web server")
	flag.StringVar(&historyDB, "history", "", "history database, or - to disable")
	flag.BoolVar(&progress, "progress", false, "show progress while looking up elevations")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
}

// applyFlags overrides cfg with the flags that were given
// on the command line.
func applyFlags(cfg *app.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "token-file":
			cfg.TokenFile = tokenFile
		case "out":
			cfg.MapFile = mapFile
		case "gpx":
			cfg.GPXFile = gpxFile
		case "provider":
			cfg.MapProvider = provider
		case "width":
			if mapWidth > 0 {
				cfg.MapWidth = mapWidth
			}
		case "height":
			if mapHeight > 0 {
				cfg.MapHeight = mapHeight
			}
		case "ground-width":
			if groundWidth > 0 {
				cfg.GroundWidthMeters = groundWidth
			}
		case "bearing":
			cfg.Bearing = bearing
		case "pitch":
			cfg.Pitch = pitch
		case "browser":
			cfg.Browser = browser
		case "history":
			cfg.HistoryDB = historyDB
		case "progress":
			cfg.Progress = progress
		}
	})
}
