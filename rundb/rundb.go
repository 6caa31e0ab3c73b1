// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rundb is a run catalog recording one entry per finished data
// file: campaign, run, subrun, path, board count, saved events, and the
// start/end timestamps bracketing that file. It is adapted from
// conddb.go's Open/dsn/ping/Close, generalized from conddb's read-only
// conditions queries to also support the INSERT rundb needs to record a
// run and the UPDATE it needs to close one out. Not in the distilled
// spec.md: original run-level bookkeeping is implied by spec.md §6's
// directory-scan file naming, but nothing there records what happened in
// a run beyond the file itself.
package rundb // import "github.com/go-lpc/wavedaq/rundb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var drvName = "mysql"

// DB is a connection to the run-catalog database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to dbname and verifies it is reachable.
func Open(dbname string, dsn string) (*DB, error) {
	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("rundb: could not open %q db: %w", dbname, err)
	}

	if err := ping(db, dbname); err != nil {
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("rundb: could not ping %q db: %w", dbname, err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// RunEntry identifies a run within a campaign, for StartRun and RecordFile.
type RunEntry struct {
	Campaign int
	RunNum   int
}

// StartRun inserts a new run row, before any file has been closed. It
// carries no subrun/path/saved-events yet — those arrive one at a time
// via RecordFile.
func (db *DB) StartRun(ctx context.Context, run RunEntry, nBoards int, startedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO runs (campaign, run_num, n_boards, started_at, status)
		 VALUES (?, ?, ?, ?, ?)`,
		run.Campaign, run.RunNum, nBoards, startedAt, "running",
	)
	if err != nil {
		return fmt.Errorf("rundb: could not start run camp%d/run%d: %w", run.Campaign, run.RunNum, err)
	}
	return nil
}

// FileRecord describes one file store.Writer has finished writing,
// passed to RecordFile by runctl via store.Writer.SetCloseHook.
type FileRecord struct {
	Run         RunEntry
	Subrun      int
	Path        string
	SavedEvents uint64
	EndedAt     time.Time
}

// RecordFile inserts one catalog entry per closed file, called once per
// rollover and once at clean shutdown (spec.md §4.6's enrichment: a
// rollover closes a subrun file just as surely as a clean stop does).
// Best-effort by convention: callers log a RecordFile error rather than
// treat it as run-fatal, since rundb failures must never propagate as a
// run error (spec.md §7's propagation policy says nothing about a
// catalog, so this enrichment defaults to "never worse than
// recoverable/logged").
func (db *DB) RecordFile(ctx context.Context, rec FileRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO runs (campaign, run_num, subrun, path, saved_events, ended_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   path=VALUES(path), saved_events=VALUES(saved_events),
		   ended_at=VALUES(ended_at), status=VALUES(status)`,
		rec.Run.Campaign, rec.Run.RunNum, rec.Subrun, rec.Path, rec.SavedEvents, rec.EndedAt, "closed",
	)
	if err != nil {
		return fmt.Errorf("rundb: could not record file %q: %w", rec.Path, err)
	}
	return nil
}

// FailRun marks a run's most recent row as having ended in error, used
// when the supervisor surfaces a run-fatal error after the last clean
// RecordFile.
func (db *DB) FailRun(ctx context.Context, run RunEntry, endedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(ctx,
		`UPDATE runs SET status=?, ended_at=? WHERE campaign=? AND run_num=? ORDER BY subrun DESC LIMIT 1`,
		"failed", endedAt, run.Campaign, run.RunNum,
	)
	if err != nil {
		return fmt.Errorf("rundb: could not mark camp%d/run%d failed: %w", run.Campaign, run.RunNum, err)
	}
	return nil
}

// Run is one catalog row, as returned by Runs.
type Run struct {
	Campaign    int
	RunNum      int
	Subrun      int
	Path        string
	NBoards     int
	SavedEvents uint64
	StartedAt   time.Time
	EndedAt     time.Time
	Status      string
}

// Runs returns every catalog row for campaign, most recent first, for
// cmd/wavedaq-runs.
func (db *DB) Runs(ctx context.Context, campaign int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(ctx,
		`SELECT campaign, run_num, subrun, path, n_boards, saved_events, started_at, ended_at, status
		 FROM runs WHERE campaign=? ORDER BY run_num DESC, subrun DESC`,
		campaign,
	)
	if err != nil {
		return nil, fmt.Errorf("rundb: could not query runs for campaign %d: %w", campaign, err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		err = rows.Scan(&r.Campaign, &r.RunNum, &r.Subrun, &r.Path, &r.NBoards,
			&r.SavedEvents, &r.StartedAt, &r.EndedAt, &r.Status)
		if err != nil {
			return nil, fmt.Errorf("rundb: could not scan run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rundb: could not scan runs for campaign %d: %w", campaign, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rundb: context error while retrieving runs: %w", err)
	}
	return out, nil
}
