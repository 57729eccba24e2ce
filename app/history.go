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
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
	"github.com/timelinize/trailmark/activity"
	"go.uber.org/zap"
)

//go:embed schema.sql
var createDB string

// Run is one completed pass of the pipeline over an activity.
type Run struct {
	ID           uuid.UUID
	ActivityID   int64
	ActivityName string
	StartDate    time.Time
	ReportedGain float64
	ComputedGain float64
	Points       int
	Missing      int
	MapFile      string
	GPXFile      string
	Created      time.Time
}

// History records runs in a sqlite database.
type History struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenHistory opens (creating if needed) the history database
// at path.
func OpenHistory(ctx context.Context, path string) (*History, error) {
	var db *sql.DB
	var err error
	defer func() {
		if err != nil && db != nil {
			db.Close()
		}
	}()

	log := activity.Log.Named("history")

	db, err = sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var version string
	if verr := db.QueryRowContext(ctx, "SELECT sqlite_version() AS version").Scan(&version); verr == nil {
		log.Debug("using sqlite", zap.String("version", version), zap.String("path", path))
	}

	if _, err = db.ExecContext(ctx, createDB); err != nil {
		return nil, fmt.Errorf("setting up database: %w", err)
	}

	return &History{db: db, log: log}, nil
}

// Record stores run, assigning it a new ID if it has none, and
// returns the ID.
func (h *History) Record(ctx context.Context, run Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Created.IsZero() {
		run.Created = time.Now()
	}

	var startDate *int64
	if !run.StartDate.IsZero() {
		sd := run.StartDate.Unix()
		startDate = &sd
	}

	_, err := h.db.ExecContext(ctx, `INSERT INTO runs
		(id, activity_id, activity_name, start_date, reported_gain, computed_gain, points, missing, map_file, gpx_file, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.ActivityID, run.ActivityName, startDate,
		run.ReportedGain, run.ComputedGain, run.Points, run.Missing,
		nullString(run.MapFile), nullString(run.GPXFile), run.Created.UnixMilli())
	if err != nil {
		return uuid.Nil, fmt.Errorf("recording run: %w", err)
	}

	h.log.Debug("recorded run",
		zap.Stringer("id", run.ID),
		zap.Int64("activity_id", run.ActivityID))

	return run.ID, nil
}

// List returns up to limit runs, most recent first. A limit of
// zero or less returns all runs.
func (h *History) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, activity_id, activity_name, start_date, reported_gain, computed_gain,
		points, missing, map_file, gpx_file, created
		FROM runs ORDER BY created DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var id string
		var name, mapFile, gpxFile *string
		var startDate *int64
		var created int64
		err := rows.Scan(&id, &run.ActivityID, &name, &startDate, &run.ReportedGain, &run.ComputedGain,
			&run.Points, &run.Missing, &mapFile, &gpxFile, &created)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("run has invalid ID %q: %w", id, err)
		}
		if name != nil {
			run.ActivityName = *name
		}
		if startDate != nil {
			run.StartDate = time.Unix(*startDate, 0).UTC()
		}
		if mapFile != nil {
			run.MapFile = *mapFile
		}
		if gpxFile != nil {
			run.GPXFile = *gpxFile
		}
		run.Created = time.UnixMilli(created)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
