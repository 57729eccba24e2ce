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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultTokenFile is where credentials are kept, relative
// to the working directory.
const DefaultTokenFile = "strava_token.json"

// Record is the persisted form of an OAuth2 token. If a token
// file exists, all three fields are present and non-empty.
type Record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

func (r Record) validate() error {
	var missing []string
	if r.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if r.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if r.ExpiresAt == 0 {
		missing = append(missing, "expires_at")
	}
	if len(missing) > 0 {
		return fmt.Errorf("token record is missing %v", missing)
	}
	return nil
}

// Expired reports whether the access token has expired as of now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(time.Unix(r.ExpiresAt, 0))
}

// Token converts r to an oauth2.Token.
func (r Record) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Unix(r.ExpiresAt, 0),
	}
}

// RecordFromToken converts tkn to a Record. Strava includes an
// absolute "expires_at" in its token responses; it is preferred
// over the expiry computed from "expires_in".
func RecordFromToken(tkn *oauth2.Token) Record {
	rec := Record{
		AccessToken:  tkn.AccessToken,
		RefreshToken: tkn.RefreshToken,
	}
	switch v := tkn.Extra("expires_at").(type) {
	case float64:
		rec.ExpiresAt = int64(v)
	case int64:
		rec.ExpiresAt = v
	case json.Number:
		rec.ExpiresAt, _ = v.Int64()
	}
	if rec.ExpiresAt == 0 && !tkn.Expiry.IsZero() {
		rec.ExpiresAt = tkn.Expiry.Unix()
	}
	return rec
}

// TokenFile stores a single Record as a JSON file.
// Every save replaces the whole file.
type TokenFile struct {
	Path string
}

// Load reads the record from disk. The boolean is false, with
// no error, if there is no token file yet.
func (tf TokenFile) Load() (Record, bool, error) {
	data, err := os.ReadFile(tf.path())
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("reading token file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("malformed token file %s: %w", tf.path(), err)
	}
	if err := rec.validate(); err != nil {
		return Record{}, false, fmt.Errorf("%s: %w", tf.path(), err)
	}
	return rec, true, nil
}

// Save overwrites the token file with rec.
func (tf TokenFile) Save(rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}

	// write to a sibling temp file and rename over the old one,
	// so an interrupted write never leaves half a record behind
	dir := filepath.Dir(tf.path())
	tmp, err := os.CreateTemp(dir, ".strava_token-*")
	if err != nil {
		return fmt.Errorf("creating temporary token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), tf.path()); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}

	Log.Named("auth").Info("saved token information",
		zap.String("path", tf.path()),
		zap.Time("expires", time.Unix(rec.ExpiresAt, 0)))

	return nil
}

// TokenRefreshed implements RefreshListener by saving rec.
func (tf TokenFile) TokenRefreshed(rec Record) error {
	return tf.Save(rec)
}

func (tf TokenFile) path() string {
	if tf.Path == "" {
		return DefaultTokenFile
	}
	return tf.Path
}
