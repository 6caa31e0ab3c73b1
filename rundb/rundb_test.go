// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rundb

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/wavedaq/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb", "fakedb")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()
}

func TestStartRun(t *testing.T) {
	db, err := Open("fakedb", "fakedb")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.StartRun(ctx, RunEntry{Campaign: 3, RunNum: 7}, 2, time.Unix(1000, 0))
	})
	if err != nil {
		t.Fatalf("could not start run: %+v", err)
	}

	if got, want := len(execs), 1; got != want {
		t.Fatalf("invalid exec count: got=%d, want=%d", got, want)
	}
	if !strings.Contains(execs[0].Query, "INSERT INTO runs") {
		t.Fatalf("invalid exec query: %q", execs[0].Query)
	}
	wantArgs := []driver.Value{int64(3), int64(7), int64(2), time.Unix(1000, 0), "running"}
	if got, want := len(execs[0].Args), len(wantArgs); got != want {
		t.Fatalf("invalid arg count: got=%d, want=%d", got, want)
	}
}

func TestRecordFile(t *testing.T) {
	db, err := Open("fakedb", "fakedb")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	rec := FileRecord{
		Run:         RunEntry{Campaign: 3, RunNum: 7},
		Subrun:      1,
		Path:        "run7_01.root",
		SavedEvents: 4096,
		EndedAt:     time.Unix(2000, 0),
	}

	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.RecordFile(ctx, rec)
	})
	if err != nil {
		t.Fatalf("could not record file: %+v", err)
	}

	if got, want := len(execs), 1; got != want {
		t.Fatalf("invalid exec count: got=%d, want=%d", got, want)
	}
	if !strings.Contains(execs[0].Query, "ON DUPLICATE KEY UPDATE") {
		t.Fatalf("invalid exec query: %q", execs[0].Query)
	}
}

func TestRecordFileError(t *testing.T) {
	db, err := Open("fakedb", "fakedb")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	wantErr := errTest("insert failed")
	fakedb.SetExecResult(0, 0, wantErr)
	defer fakedb.SetExecResult(0, 0, nil)

	_, err = fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.RecordFile(ctx, FileRecord{Run: RunEntry{Campaign: 1, RunNum: 1}})
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestFailRun(t *testing.T) {
	db, err := Open("fakedb", "fakedb")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.FailRun(ctx, RunEntry{Campaign: 3, RunNum: 7}, time.Unix(3000, 0))
	})
	if err != nil {
		t.Fatalf("could not fail run: %+v", err)
	}
	if got, want := len(execs), 1; got != want {
		t.Fatalf("invalid exec count: got=%d, want=%d", got, want)
	}
	if !strings.Contains(execs[0].Query, "UPDATE runs") {
		t.Fatalf("invalid exec query: %q", execs[0].Query)
	}
}

func TestRuns(t *testing.T) {
	db, err := Open("fakedb", "fakedb")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	started := time.Unix(1000, 0)
	ended := time.Unix(2000, 0)

	_, err = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"campaign", "run_num", "subrun", "path", "n_boards", "saved_events", "started_at", "ended_at", "status"},
		Values: [][]driver.Value{
			{int64(3), int64(7), int64(1), "run7_01.root", int64(2), int64(4096), started, ended, "closed"},
		},
	}, func(ctx context.Context) error {
		runs, err := db.Runs(ctx, 3)
		if err != nil {
			t.Fatalf("could not query runs: %+v", err)
		}
		if got, want := len(runs), 1; got != want {
			t.Fatalf("invalid run count: got=%d, want=%d", got, want)
		}
		if got, want := runs[0].Path, "run7_01.root"; got != want {
			t.Fatalf("invalid path: got=%q, want=%q", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("could not run test: %+v", err)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
