// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-lpc/wavedaq/rundb"
)

func main() {
	log.SetPrefix("wavedaq-runs: ")
	log.SetFlags(0)

	var (
		dsn      = flag.String("dsn", "", "run catalog data source name")
		campaign = flag.Int("campaign", 0, "campaign number to list")
	)
	flag.Parse()

	db, err := rundb.Open("wavedaq", *dsn)
	if err != nil {
		log.Fatalf("could not open run catalog: %+v", err)
	}
	defer db.Close()

	if err := listRuns(db, *campaign); err != nil {
		log.Fatalf("could not list runs: %+v", err)
	}
}

func listRuns(db *rundb.DB, campaign int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs, err := db.Runs(ctx, campaign)
	if err != nil {
		return err
	}

	log.Printf("campaign %d: %d run(s)", campaign, len(runs))
	for _, r := range runs {
		log.Printf("run%d_%02d: %s boards=%d events=%d started=%s ended=%s status=%s",
			r.RunNum, r.Subrun, r.Path, r.NBoards, r.SavedEvents,
			r.StartedAt.Format(time.RFC3339), r.EndedAt.Format(time.RFC3339), r.Status)
	}
	return nil
}
