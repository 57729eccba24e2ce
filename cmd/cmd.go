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

// Package tmcmd facilitates the command line interface (CLI)
// and implements the main().
package tmcmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/timelinize/trailmark/activity"
	"github.com/timelinize/trailmark/app"
	"github.com/timelinize/trailmark/staticmap"
	"go.uber.org/zap"
)

func Main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	defer activity.Log.Sync() //nolint:errcheck

	if verbose {
		activity.LogLevel.SetLevel(zap.DebugLevel)
	}

	subCommand := "run"
	if flag.NArg() > 0 {
		subCommand = flag.Arg(0)
	}
	subCommandFunc, ok := standardSubcommands[subCommand]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n", subCommand)
		flag.Usage()
		os.Exit(2) //nolint:mnd
	}
	if err := checkFlagParsing(); err != nil {
		activity.Log.Fatal("possible syntax error detected", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.TrapSignals(cancel)

	if err := subCommandFunc(ctx, flag.Args()); err != nil {
		exitWithError(subCommand, err)
	}
}

type subcommandFunc func(ctx context.Context, args []string) error

var standardSubcommands map[string]subcommandFunc

func init() {
	standardSubcommands = map[string]subcommandFunc{
		"run": func(ctx context.Context, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			_, err = a.Run(ctx)
			return err
		},
		"auth": func(ctx context.Context, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			_, err = a.Authorize(ctx)
			return err
		},
		"history": func(ctx context.Context, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			limit := 20
			if len(args) > 1 {
				limit, err = strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid limit %q: %w", args[1], err)
				}
			}
			return a.PrintHistory(ctx, limit)
		},
		"zoom": func(_ context.Context, args []string) error {
			return printZoom(args[1:])
		},
		"help": func(context.Context, []string) error { //nolint:unparam
			flag.CommandLine.SetOutput(os.Stdout)
			flag.Usage()
			return nil
		},
		"version": func(context.Context, []string) error { //nolint:unparam
			fmt.Println(version())
			return nil
		},
	}
}

func printZoom(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: zoom LATITUDE GROUND_WIDTH_METERS [PIXEL_WIDTH]")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	groundWidth, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid ground width: %w", err)
	}
	pixelWidth := mapWidth
	if len(args) == 3 {
		pixelWidth, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid pixel width: %w", err)
		}
	}
	if pixelWidth <= 0 {
		pixelWidth = 600
	}
	fmt.Printf("%.4f\n", staticmap.EstimateZoom(lat, pixelWidth, groundWidth))
	return nil
}

// newApp loads the configuration, applies any flags that were
// set on the command line, and returns the app.
func newApp() (*app.App, error) {
	cfg, err := app.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cfg)
	return app.New(cfg), nil
}

// exitWithError terminates the program, explaining err in the
// way that best suits its kind.
func exitWithError(subCommand string, err error) {
	var cfgErr activity.ConfigurationError
	var authErr activity.AuthorizationError
	switch {
	case errors.As(err, &cfgErr):
		activity.Log.Fatal("configuration incomplete", zap.Strings("missing", cfgErr.Missing))
	case errors.As(err, &authErr):
		activity.Log.Fatal("authorization failed; run the program again to restart the flow", zap.Error(authErr.Err))
	case errors.Is(err, context.Canceled):
		activity.Log.Warn("canceled")
		_ = activity.Log.Sync()
		os.Exit(1)
	default:
		activity.Log.Fatal("subcommand failed",
			zap.String("subcommand", subCommand),
			zap.Error(err))
	}
}

// checkFlagParsing returns an error if it looks like the
// program may have been invoked with the flags in the
// wrong place, e.g. `trailmark run -out map.png` where it
// needs to be run as `trailmark -out map.png run` in order
// for the flag to take effect.
func checkFlagParsing() error {
	if flag.NArg() > 1 && flag.Arg(0) != "zoom" && flag.Arg(0) != "history" {
		return errors.New("it looks like you intended to specify flags, but none were parsed; make sure flags go before positional arguments")
	}
	for _, arg := range flag.Args() {
		if len(arg) > 1 && arg[0] == '-' {
			if _, err := strconv.ParseFloat(arg, 64); err == nil {
				continue // negative number
			}
			return fmt.Errorf("flag %s appears after the subcommand; make sure flags go before positional arguments", arg)
		}
	}
	return nil
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "trailmark (unknown version)"
	}
	return "trailmark " + info.Main.Version
}

const usage = `Usage: trailmark [flags] [subcommand]

Shows your latest Strava activity: its route, the elevation gain
reported by Strava next to the gain computed from ground elevation
data, and a map image of where it started.

Subcommands:
  run                       Run the full pipeline (default)
  auth                      Authorize (if needed) and show the athlete
  history [LIMIT]           List previous runs
  zoom LAT GROUND_WIDTH_M [PIXEL_WIDTH]
                            Print the map zoom level for a ground width
  help                      Show this help
  version                   Print the version

Flags:
  -config FILE        JSON config file
  -token-file FILE    Where the Strava token is stored
  -out FILE           Map image file (default start_map.png)
  -gpx FILE           Also write the route as GPX
  -provider NAME      Map provider: auto, mapbox, google or preview
  -width PX           Map width (default 600)
  -height PX          Map height (default 400)
  -ground-width M     Ground covered by the map width (default 1000)
  -bearing DEG        Map bearing
  -pitch DEG          Map pitch
  -browser            Receive the authorization code via a local web server
  -history FILE       History database, or - to disable (default trailmark.db)
  -progress           Show progress while looking up elevations
  -v                  Verbose logging

Environment (also read from .env):
  STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET   required
  MAPBOX_ACCESS_TOKEN, GOOGLE_MAPS_API_KEY optional map providers
  TRAILMARK_TOKEN_FILE, TRAILMARK_ELEVATION_URL, TRAILMARK_HISTORY_DB
`
