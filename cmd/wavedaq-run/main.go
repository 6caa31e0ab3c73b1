// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command wavedaq-run drives one acquisition campaign: it reads a
// configuration file, opens the configured boards, and runs the
// supervisor's lifecycle until the user quits or an optional run cap is
// reached. Generalizes original_source/src/main.rs's CLI entry point,
// wired up in cmd/daq-boot/main.go's signal.Notify/errgroup style.
package main // import "github.com/go-lpc/wavedaq/cmd/wavedaq-run"

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-lpc/wavedaq/daqcfg"
	"github.com/go-lpc/wavedaq/rundb"
	"github.com/go-lpc/wavedaq/runctl"
)

func main() {
	log.SetPrefix("wavedaq-run: ")
	log.SetFlags(0)

	cfgPath := flag.String("config", "", "path to the run configuration file")
	flag.Parse()

	maxRuns := 0
	if args := flag.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatalf("invalid runs cap %q: %+v", args[0], err)
		}
		maxRuns = n
	}

	if err := run(*cfgPath, maxRuns); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(cfgPath string, maxRuns int) error {
	cfg, err := daqcfg.Load(cfgPath)
	if err != nil {
		return err
	}

	dash, err := runctl.NewDashboard()
	if err != nil {
		return err
	}
	defer dash.Close()

	var db *rundb.DB
	if dsn := os.Getenv("WAVEDAQ_RUNDB_DSN"); dsn != "" {
		db, err = rundb.Open("wavedaq", dsn)
		if err != nil {
			log.Printf("wavedaq-run: run catalog disabled: %+v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	mailer, _ := runctl.MailerFromEnv()

	sup, err := runctl.New(cfg, dash, db, mailer)
	if err != nil {
		return err
	}
	defer sup.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return sup.RunLoop(ctx, maxRuns)
}
