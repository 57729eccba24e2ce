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

// Package app ties the components together into the program's
// sequential pipeline: authenticate, fetch the latest activity and
// its route, look up ground elevations, render a map of the start,
// and record the run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/timelinize/trailmark/activity"
	"github.com/timelinize/trailmark/elevation"
	"github.com/timelinize/trailmark/oauth2client"
	"github.com/timelinize/trailmark/staticmap"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// App runs the pipeline with a configuration.
type App struct {
	cfg *Config
	log *zap.Logger

	// Out receives the operator-facing report; defaults to stdout.
	Out io.Writer

	// In is where the authorization code is read from when not
	// using the browser; defaults to stdin.
	In io.Reader

	// The remaining fields replace remote services; they
	// default to the real ones.
	APIURL      string
	Endpoint    oauth2.Endpoint
	HTTPClient  *http.Client
	MapProvider staticmap.Provider
	CodeGetter  oauth2client.Getter
}

// New returns an App for cfg.
func New(cfg *Config) *App {
	return &App{
		cfg: cfg,
		log: activity.Log.Named("app"),
	}
}

// Report summarizes one pass of the pipeline. Fields for steps that
// were skipped are left zero.
type Report struct {
	Athlete   activity.Athlete
	Activity  *activity.Summary
	Points    int
	Reported  float64 // elevation gain according to Strava
	Elevation elevation.Stats
	MapFile   string
	GPXFile   string
	RunID     uuid.UUID
}

// Session validates the configuration and returns an authenticated
// session, authorizing interactively if there is no stored token.
func (a *App) Session(ctx context.Context) (*activity.Session, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	provider := activity.Provider{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		RedirectURL:  a.cfg.RedirectURL,
		Endpoint:     a.Endpoint,
		Store:        activity.TokenFile{Path: a.cfg.TokenFile},
		CodeGetter:   a.codeGetter(),
		HTTPClient:   a.HTTPClient,
	}
	if a.cfg.Browser && a.cfg.RedirectURL == activity.DefaultRedirectURL {
		// the loopback listener needs a port and path to serve
		provider.RedirectURL = oauth2client.DefaultRedirectURL
	}

	return provider.ObtainSession(ctx)
}

func (a *App) codeGetter() oauth2client.Getter {
	if a.CodeGetter != nil {
		return a.CodeGetter
	}
	if a.cfg.Browser {
		redir := a.cfg.RedirectURL
		if redir == activity.DefaultRedirectURL {
			redir = oauth2client.DefaultRedirectURL
		}
		return oauth2client.Browser{RedirectURL: redir, Out: a.out()}
	}
	return oauth2client.Prompt{In: a.In, Out: a.out()}
}

// Authorize obtains a session and prints who it belongs to.
func (a *App) Authorize(ctx context.Context) (activity.Athlete, error) {
	sess, err := a.Session(ctx)
	if err != nil {
		return activity.Athlete{}, err
	}
	ath, err := a.client(sess).Athlete(ctx)
	if err != nil {
		return activity.Athlete{}, err
	}
	fmt.Fprintf(a.out(), "Authenticated as %s\n", ath.Name())
	return ath, nil
}

// Run executes the whole pipeline. Steps run one after another.
// If there is no activity or the activity has no route, the
// remaining steps are skipped and the returned error is nil. A
// failed map request is logged and does not fail the run.
func (a *App) Run(ctx context.Context) (Report, error) {
	var report Report
	out := a.out()

	sess, err := a.Session(ctx)
	if err != nil {
		return report, err
	}
	client := a.client(sess)

	report.Athlete, err = client.Athlete(ctx)
	if err != nil {
		return report, err
	}
	fmt.Fprintf(out, "Authenticated as %s\n", report.Athlete.Name())

	act, err := client.LatestActivity(ctx)
	if err != nil {
		return report, err
	}
	if act == nil {
		fmt.Fprintln(out, "No activities found.")
		return report, nil
	}
	report.Activity = act
	fmt.Fprintf(out, "Latest activity: %s (%s)\n", act.Name, act.StartDate.Local().Format("Mon Jan 2 2006 15:04"))

	route, reportedGain, err := client.RouteAndElevation(ctx, act)
	if err != nil {
		return report, err
	}
	report.Reported = reportedGain
	report.Points = len(route)
	if len(route) == 0 {
		fmt.Fprintln(out, "No GPS data for this activity.")
		return report, nil
	}
	fmt.Fprintf(out, "Route has %d points\n", len(route))

	enricher := elevation.Enricher{
		URL:        a.cfg.ElevationURL,
		HTTPClient: a.HTTPClient,
	}
	if a.cfg.Progress {
		enricher.Progress = os.Stderr
	}
	samples := enricher.FetchGroundElevations(ctx, route)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Elevation = elevation.Summarize(samples)

	fmt.Fprintf(out, "Elevation gain reported by Strava: %.1f m\n", reportedGain)
	fmt.Fprintf(out, "Elevation gain from ground elevations: %.1f m\n", report.Elevation.Gain)
	if report.Elevation.Missing > 0 {
		fmt.Fprintf(out, "  (%d of %d points had no elevation; %.0f%% coverage)\n",
			report.Elevation.Missing, report.Elevation.Points, report.Elevation.Coverage()*100)
	}

	if a.cfg.GPXFile != "" {
		if err := a.writeGPX(act, route, samples); err != nil {
			a.log.Error("could not write GPX file", zap.String("file", a.cfg.GPXFile), zap.Error(err))
		} else {
			report.GPXFile = a.cfg.GPXFile
			fmt.Fprintf(out, "Route saved to %s\n", a.cfg.GPXFile)
		}
	}

	start, _ := route.Start()
	if err := a.renderMap(ctx, start, route); err != nil {
		if errors.Is(err, context.Canceled) {
			return report, err
		}
		a.log.Error("could not render map", zap.Error(err))
		fmt.Fprintln(out, "Map could not be created.")
	} else {
		report.MapFile = a.cfg.MapFile
		fmt.Fprintf(out, "Map of the start saved to %s\n", a.cfg.MapFile)
	}

	if a.cfg.historyEnabled() {
		id, err := a.record(ctx, report)
		if err != nil {
			a.log.Warn("could not record run in history", zap.Error(err))
		} else {
			report.RunID = id
		}
	}

	return report, nil
}

func (a *App) renderMap(ctx context.Context, start activity.Coordinate, route activity.Route) error {
	req := staticmap.Request{
		Center:  start,
		Zoom:    staticmap.EstimateZoom(start.Latitude, a.cfg.MapWidth, a.cfg.GroundWidthMeters),
		Bearing: a.cfg.Bearing,
		Pitch:   a.cfg.Pitch,
		Width:   a.cfg.MapWidth,
		Height:  a.cfg.MapHeight,
		Style:   a.cfg.MapStyle,
		Path:    route,
	}

	provider := a.MapProvider
	if provider == nil {
		provider = a.cfg.mapProvider()
	}
	if provider == nil {
		a.log.Info("no map provider configured; drawing offline preview")
		return staticmap.Preview(req, a.cfg.MapFile)
	}

	r := staticmap.Renderer{
		Provider:   provider,
		HTTPClient: a.HTTPClient,
	}
	return r.Render(ctx, req, a.cfg.MapFile)
}

func (a *App) writeGPX(act *activity.Summary, route activity.Route, samples []activity.Sample) error {
	f, err := os.Create(a.cfg.GPXFile)
	if err != nil {
		return err
	}
	if err := activity.WriteGPX(f, act, route, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *App) record(ctx context.Context, report Report) (uuid.UUID, error) {
	h, err := OpenHistory(ctx, a.cfg.HistoryDB)
	if err != nil {
		return uuid.Nil, err
	}
	defer h.Close()

	return h.Record(ctx, Run{
		ActivityID:   report.Activity.ID,
		ActivityName: report.Activity.Name,
		StartDate:    report.Activity.StartDate,
		ReportedGain: report.Reported,
		ComputedGain: report.Elevation.Gain,
		Points:       report.Points,
		Missing:      report.Elevation.Missing,
		MapFile:      report.MapFile,
		GPXFile:      report.GPXFile,
	})
}

// PrintHistory writes up to limit recorded runs, newest first.
func (a *App) PrintHistory(ctx context.Context, limit int) error {
	if !a.cfg.historyEnabled() {
		return errors.New("history is disabled")
	}
	h, err := OpenHistory(ctx, a.cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.List(ctx, limit)
	if err != nil {
		return err
	}

	out := a.out()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "%s  %-30s  %6d pts  reported %7.1f m  computed %7.1f m  %s\n",
			run.Created.Local().Format(time.DateTime),
			run.ActivityName,
			run.Points,
			run.ReportedGain,
			run.ComputedGain,
			run.MapFile)
	}
	return nil
}

func (a *App) client(sess *activity.Session) *activity.Client {
	c := activity.NewClient(sess)
	c.BaseURL = a.APIURL
	return c
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}
