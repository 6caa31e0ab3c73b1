// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runctl is the supervisor: it drives the per-run lifecycle
// (configure boards, spawn acquisition/processing workers, 1 Hz UI tick,
// shutdown and rollover-to-next-run), generalizing
// original_source/src/tui.rs's begin_run loop to an arbitrary board count
// N and a typed error surface, in the style of cmd/daq-boot's
// errgroup+signal.Notify supervision.
package runctl // import "github.com/go-lpc/wavedaq/runctl"

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-lpc/wavedaq/acq"
	"github.com/go-lpc/wavedaq/align"
	"github.com/go-lpc/wavedaq/board"
	"github.com/go-lpc/wavedaq/daqcfg"
	"github.com/go-lpc/wavedaq/felib"
	"github.com/go-lpc/wavedaq/rundb"
	"github.com/go-lpc/wavedaq/store"
)

// tickInterval is the supervisor's UI/stats-drain period (spec.md §4.6
// item 6, "ticks at 1 Hz").
const tickInterval = 1 * time.Second

// statsQueueDepth is the bounded capacity of the single-producer stats
// queue (spec.md §4.6 item 2); a full queue after shutdown is a
// recoverable no-op (spec.md §7), otherwise ErrProcessingTransit.
const statsQueueDepth = 16

// eventQueueDepth is the bounded capacity of the multi-producer event
// queue acquisition workers feed and the processing worker drains.
const eventQueueDepth = 256

// Supervisor owns the devices for one run's board set and drives runs
// against them until the user quits or the run cap is reached.
type Supervisor struct {
	cfg     *daqcfg.Config
	devices []*felib.Device
	db      *rundb.DB
	mailer  *Mailer
	dash    *Dashboard
	msg     *log.Logger

	campaignNum int
}

// New returns a Supervisor for cfg, having already opened one
// felib.Device per cfg.Run.Boards URL. db and mailer may be nil: both
// enrichments are best-effort and absent when unconfigured.
func New(cfg *daqcfg.Config, dash *Dashboard, db *rundb.DB, mailer *Mailer) (*Supervisor, error) {
	devices := make([]*felib.Device, 0, cfg.NumBoards())
	for _, url := range cfg.Run.Boards {
		dev, err := felib.Open(url)
		if err != nil {
			for _, d := range devices {
				d.Close()
			}
			return nil, fmt.Errorf("runctl: could not open board %q: %w", url, err)
		}
		devices = append(devices, dev)
	}
	return newSupervisor(cfg, dash, db, mailer, devices), nil
}

// newSupervisor assembles a Supervisor around already-open devices,
// bypassing felib.Open. Exercised directly by tests, against
// felib.NewFakeDevice boards, the way board_test.go and worker_test.go
// exercise board.Configure and acq.Worker.
func newSupervisor(cfg *daqcfg.Config, dash *Dashboard, db *rundb.DB, mailer *Mailer, devices []*felib.Device) *Supervisor {
	return &Supervisor{
		cfg:         cfg,
		devices:     devices,
		db:          db,
		mailer:      mailer,
		dash:        dash,
		msg:         log.New(os.Stdout, "runctl: ", 0),
		campaignNum: cfg.Run.CampaignNum,
	}
}

// Close closes every board device. Call after the run loop returns.
func (s *Supervisor) Close() error {
	var first error
	for _, d := range s.devices {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RunLoop executes runs until maxRuns is reached (0 means unbounded) or
// the user quits, per spec.md §4.6's "Run loop". It returns the first
// fatal (process-ending) error, per spec.md §7; a run-level error is
// logged and surfaced via the dashboard modal, not returned.
func (s *Supervisor) RunLoop(ctx context.Context, maxRuns int) error {
	for n := 0; maxRuns == 0 || n < maxRuns; n++ {
		path, runNum, err := NextRunFile(s.cfg.Run.OutputDir, s.campaignNum)
		if err != nil {
			return fmt.Errorf("runctl: fatal: %w", err)
		}

		quit, err := s.runOnce(ctx, path, runNum)
		if err != nil {
			return fmt.Errorf("runctl: fatal: %w", err)
		}
		if quit {
			return nil
		}
	}
	return nil
}

// runOnce drives exactly one run against a freshly created file at path,
// implementing spec.md §4.6's numbered startup protocol end to end.
// quit reports whether the user requested shutdown mid-run (ending
// RunLoop); a non-nil err is always process-fatal (failure to configure
// a board or create the run file).
func (s *Supervisor) runOnce(ctx context.Context, path string, runNum int) (quit bool, err error) {
	n := s.cfg.NumBoards()
	run := rundb.RunEntry{Campaign: s.campaignNum, RunNum: runNum}
	started := time.Now()
	s.msg.Printf("-----------------RUN %d (campaign %d)-----------------", runNum, s.campaignNum)

	// 1. reset, reconfigure, sync every board.
	for id, dev := range s.devices {
		if err := board.Configure(dev, s.cfg, id, n); err != nil {
			return false, fmt.Errorf("could not configure board %d: %w", id, err)
		}
	}
	s.msg.Printf("%d board(s) configured [done]", n)

	writerCfg := store.Config{
		Boards:            n,
		Channels:          felib.MaxChannels,
		Samples:           s.cfg.Board.Common.RecordLen,
		MaxEventsPerBoard: maxEventsPerBoard,
		BufferCapacity:    bufferCapacity,
		CompressionLevel:  s.cfg.Run.CompressionLevel,
		BloscThreads:      s.cfg.Run.BloscThreads,
	}
	writer, err := store.New(path, writerCfg)
	if err != nil {
		return false, fmt.Errorf("could not create run file %q: %w", path, err)
	}
	writer.SetCloseHook(func(finishedPath string, subrun int, savedEvents uint64) {
		s.recordFile(run, subrun, finishedPath, savedEvents)
	})

	if s.db != nil {
		if err := s.db.StartRun(ctx, run, n, started); err != nil {
			s.msg.Printf("could not record run start: %+v", err)
		}
	}

	mon, err := startSelfMonitor(path+".pmon.log", tickInterval)
	if err != nil {
		s.msg.Printf("%+v", err)
	}
	defer mon.Stop()

	// 2. shared lifecycle signals (spec.md §9).
	var shutdown atomic.Bool
	barrier := NewStartBarrier(n)
	events := make(chan acq.TaggedEvent, eventQueueDepth)
	stats := make(chan RunInfo, statsQueueDepth)

	aligner := align.NewAligner(n)
	suppressor := align.NewSuppressor(align.ZSConfig{
		Level:           s.cfg.Run.ZSLevel,
		Threshold:       s.cfg.Run.ZSThreshold,
		Edge:            s.cfg.Run.ZSEdge,
		BaselineSamples: s.cfg.Run.ZSSamples,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 3. spawn one acquisition worker per board, plus the processing worker.
	var g errgroup.Group
	for id, dev := range s.devices {
		id, dev := id, dev
		w := acq.NewWorker(id, dev, felib.MaxChannels, s.cfg.Board.Common.RecordLen)
		g.Go(func() error {
			return w.Run(runCtx, barrier, events, &shutdown)
		})
	}

	procErrCh := make(chan error, 1)
	go func() {
		procErrCh <- RunProcessing(runCtx, events, stats, aligner, suppressor, writer, &shutdown)
	}()

	// 4-5. wait for every worker ready, then release them together and
	// arm the primary board.
	barrier.WaitReady()
	s.msg.Printf("all workers ready, starting")
	barrier.Start()
	if err := s.devices[0].SendCommand("/cmd/swstartacquisition"); err != nil {
		s.msg.Printf("could not start acquisition: %+v", err)
		shutdown.Store(true)
	}

	counter := &Counter{}
	counter.Reset()
	runErr := s.tickLoop(runCtx, &shutdown, stats, counter, aligner, runNum)
	quitRequested := runErr == errQuit
	if quitRequested {
		runErr = nil
	}

	// Shutdown: disarm every board, join acquisition workers, drop the
	// event-queue send endpoint, join the processing worker.
	s.msg.Printf("shutting down: disarming boards")
	shutdown.Store(true)
	cancel()
	for _, dev := range s.devices {
		dev.SendCommand("/cmd/disarmacquisition")
	}
	workerErr := g.Wait()
	close(events)
	procErr := <-procErrCh

	if err := writer.Close(); err != nil && procErr == nil {
		procErr = err
	}

	finalErr := firstNonNil(runErr, workerErr, procErr)
	if finalErr != nil {
		s.msg.Printf("run failed: %+v", finalErr)
		s.dash.ShowError(finalErr.Error())
		s.mailer.AlertRunFailed(s.campaignNum, runNum, finalErr)
		if s.db != nil {
			if err := s.db.FailRun(ctx, run, time.Now()); err != nil {
				s.msg.Printf("could not record run failure: %+v", err)
			}
		}
		if s.dash != nil {
			s.dash.WaitAnyKey()
		}
	} else {
		s.msg.Printf("run %d [done]", runNum)
	}

	return quitRequested, nil
}

// errQuit is a sentinel returned by tickLoop to signal a user-requested
// quit, distinct from a timeout-ended run (both end the tick loop
// cleanly, but only quit should stop RunLoop).
var errQuit = fmt.Errorf("runctl: quit requested")

// tickLoop is the supervisor's 1 Hz UI/stats loop (spec.md §4.6 item 6):
// drain stats, redraw the dashboard, check the run-duration timeout, and
// poll for the quit key. It returns errQuit on user quit, and nil on
// timeout, context cancellation or upstream shutdown; worker errors are
// collected by runOnce, not returned here.
func (s *Supervisor) tickLoop(ctx context.Context, shutdown *atomic.Bool, stats <-chan RunInfo, counter *Counter, aligner *align.Aligner, runNum int) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	queueDepth := 0
	for {
	drain:
		for {
			select {
			case info, ok := <-stats:
				if !ok {
					return nil
				}
				counter.Add(info)
				queueDepth = info.QueueDepth
			default:
				break drain
			}
		}

		select {
		case <-ticker.C:
			if s.dash != nil {
				boards := make([]BoardStatus, len(s.devices))
				for i, dev := range s.devices {
					boards[i] = ReadBoardStatus(dev, i)
				}
				s.dash.Render(s.campaignNum, runNum, counter, queueDepth,
					aligner.MisalignedCount(), aligner.DroppedCount(), boards)
				if s.dash.QuitRequested() {
					return errQuit
				}
			}
			if s.cfg.Run.RunDuration > 0 && counter.Elapsed() >= s.cfg.Run.RunDuration {
				return nil
			}
		case <-ctx.Done():
			return nil
		}

		if shutdown.Load() {
			return nil
		}
	}
}

func (s *Supervisor) recordFile(run rundb.RunEntry, subrun int, path string, savedEvents uint64) {
	s.msg.Printf("closed %q: saved_events=%d", path, savedEvents)
	if s.db == nil {
		return
	}
	rec := rundb.FileRecord{Run: run, Subrun: subrun, Path: path, SavedEvents: savedEvents, EndedAt: time.Now()}
	if err := s.db.RecordFile(context.Background(), rec); err != nil {
		s.msg.Printf("could not record file %q: %+v", path, err)
	}
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

const (
	maxEventsPerBoard = 10000
	bufferCapacity    = 256
)
