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

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/timelinize/trailmark/activity"
	"github.com/timelinize/trailmark/elevation"
	"github.com/timelinize/trailmark/staticmap"
	"go.uber.org/zap"
)

// Environment variables that are read into the config.
const (
	EnvClientID       = "STRAVA_CLIENT_ID"
	EnvClientSecret   = "STRAVA_CLIENT_SECRET"
	EnvGoogleMapsKey  = "GOOGLE_MAPS_API_KEY"
	EnvMapboxToken    = "MAPBOX_ACCESS_TOKEN"
	EnvTokenFile      = "TRAILMARK_TOKEN_FILE"
	EnvElevationURL   = "TRAILMARK_ELEVATION_URL"
	EnvHistoryDB      = "TRAILMARK_HISTORY_DB"
	defaultHistoryDB  = "trailmark.db"
	defaultWidth      = 600
	defaultHeight     = 400
	defaultGroundSpan = 1000.0
)

// Config describes the program's configuration. Values come from an
// optional JSON file, then the environment, then command line flags,
// each overriding the last.
type Config struct {
	// Strava API application credentials. Both are required.
	ClientID     string `json:"strava_client_id,omitempty"`
	ClientSecret string `json:"strava_client_secret,omitempty"`

	// Must match the callback domain registered with the Strava
	// application.
	RedirectURL string `json:"redirect_url,omitempty"`

	// Where the credential record is kept.
	TokenFile string `json:"token_file,omitempty"`

	// Static map credentials. If neither is set, an offline
	// preview is drawn instead.
	GoogleMapsAPIKey  string `json:"google_maps_api_key,omitempty"`
	MapboxAccessToken string `json:"mapbox_access_token,omitempty"`

	// Which map provider to use: auto, mapbox, google or preview.
	MapProvider string `json:"map_provider,omitempty"`
	MapStyle    string `json:"map_style,omitempty"`

	// The map image and how much ground it covers.
	MapFile           string  `json:"map_file,omitempty"`
	MapWidth          int     `json:"map_width,omitempty"`
	MapHeight         int     `json:"map_height,omitempty"`
	GroundWidthMeters float64 `json:"ground_width_meters,omitempty"`
	Bearing           float64 `json:"bearing,omitempty"`
	Pitch             float64 `json:"pitch,omitempty"`

	// Open-Elevation compatible lookup endpoint.
	ElevationURL string `json:"elevation_url,omitempty"`

	// If set, the route is also written as GPX to this file.
	GPXFile string `json:"gpx_file,omitempty"`

	// Sqlite database recording each run. A value of "-"
	// disables the history.
	HistoryDB string `json:"history_db,omitempty"`

	// Use a loopback listener to receive the authorization code
	// instead of asking for it on standard input.
	Browser bool `json:"browser,omitempty"`

	// Show a progress bar while looking up elevations.
	Progress bool `json:"progress,omitempty"`
}

// LoadConfig loads a .env file from the working directory if there
// is one, then the JSON config file at path, then applies environment
// variables. If path is empty, the default config file is used if it
// exists.
func LoadConfig(path string) (*Config, error) {
	log := activity.Log.Named("config")

	// variables already in the environment take precedence
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded .env file")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg := new(Config)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilePath()
	}
	if path != "" {
		err := cfg.load(path)
		switch {
		case err == nil:
			log.Info("loaded config file", zap.String("path", path))
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, err
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.fillDefaults()

	return cfg, nil
}

func (cfg *Config) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields with any non-empty environment values.
func (cfg *Config) applyEnv(getenv func(string) string) {
	for _, v := range []struct {
		env   string
		field *string
	}{
		{EnvClientID, &cfg.ClientID},
		{EnvClientSecret, &cfg.ClientSecret},
		{EnvGoogleMapsKey, &cfg.GoogleMapsAPIKey},
		{EnvMapboxToken, &cfg.MapboxAccessToken},
		{EnvTokenFile, &cfg.TokenFile},
		{EnvElevationURL, &cfg.ElevationURL},
		{EnvHistoryDB, &cfg.HistoryDB},
	} {
		if val := strings.TrimSpace(getenv(v.env)); val != "" {
			*v.field = val
		}
	}
}

func (cfg *Config) fillDefaults() {
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = activity.DefaultRedirectURL
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = activity.DefaultTokenFile
	}
	if cfg.MapProvider == "" {
		cfg.MapProvider = "auto"
	}
	if cfg.MapFile == "" {
		cfg.MapFile = staticmap.DefaultFilename
	}
	if cfg.MapWidth <= 0 {
		cfg.MapWidth = defaultWidth
	}
	if cfg.MapHeight <= 0 {
		cfg.MapHeight = defaultHeight
	}
	if cfg.GroundWidthMeters <= 0 {
		cfg.GroundWidthMeters = defaultGroundSpan
	}
	if cfg.ElevationURL == "" {
		cfg.ElevationURL = elevation.DefaultURL
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = defaultHistoryDB
	}
}

// Validate returns an activity.ConfigurationError naming every
// required setting that is missing.
func (cfg *Config) Validate() error {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if len(missing) > 0 {
		return activity.ConfigurationError{Missing: missing}
	}
	switch cfg.MapProvider {
	case "auto", "mapbox", "google", "preview":
	default:
		return fmt.Errorf("unknown map provider %q (expected auto, mapbox, google or preview)", cfg.MapProvider)
	}
	return nil
}

// historyEnabled reports whether runs should be recorded.
func (cfg *Config) historyEnabled() bool {
	return cfg.HistoryDB != "" && cfg.HistoryDB != "-"
}

// mapProvider returns the configured static map provider, or nil
// if the map should be drawn offline.
func (cfg *Config) mapProvider() staticmap.Provider {
	switch cfg.MapProvider {
	case "mapbox":
		return staticmap.Mapbox{AccessToken: cfg.MapboxAccessToken}
	case "google":
		return staticmap.Google{APIKey: cfg.GoogleMapsAPIKey}
	case "preview":
		return nil
	}
	if cfg.MapboxAccessToken != "" {
		return staticmap.Mapbox{AccessToken: cfg.MapboxAccessToken}
	}
	if cfg.GoogleMapsAPIKey != "" {
		return staticmap.Google{APIKey: cfg.GoogleMapsAPIKey}
	}
	return nil
}

// DefaultConfigFilePath returns the path of the config file that
// is read when none is given, or "" if there is no user config
// directory.
func DefaultConfigFilePath() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(cfgDir, "trailmark", "config.json")
}
