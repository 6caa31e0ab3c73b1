// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store is the buffered, chunked, compressed on-disk writer with
// automatic file rollover. It generalizes
// original_source/src/writer.rs's HDF5Writer/BoardData (HDF5 + blosc,
// via the hdf5/ndarray crates) onto go-hep.org/x/hep/groot's riofs/rtree:
// no Go binding for HDF5 or blosc exists anywhere in the retrieved
// examples, while go-hep.org/x/hep is already a direct teacher dependency
// (used there for LCIO). One ROOT tree per board plays the role of one
// HDF5 group; tree branches play the role of HDF5 datasets; ROOT's own
// basket compression plays the role of blosc.
package store // import "github.com/go-lpc/wavedaq/store"

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrDimensionMismatch is returned when an appended waveform's shape does
// not match the writer's configured (channels, samples).
var ErrDimensionMismatch = errors.New("store: waveform dimension mismatch")

// ErrCapacityExceeded is returned when a single append cannot fit even in
// a freshly rolled-over file (a misconfigured max-events-per-board).
var ErrCapacityExceeded = errors.New("store: capacity exceeded even after rollover")

// Config parameterizes a Writer, per spec.md §4.5.
type Config struct {
	Boards            int // N
	Channels          int // C
	Samples           int // S
	MaxEventsPerBoard int // E
	BufferCapacity    int // B
	CompressionLevel  int // L
	BloscThreads      int // T; carried for configuration fidelity
}

// boardState is the in-memory staging area for one board's five
// per-event datasets, plus the durable sink they eventually flush to.
type boardState struct {
	sink rowSink

	currentEvent int
	bufferCount  int

	ts    []uint64
	wf    [][][]uint16 // per event, per channel
	tid   []uint32
	flags []uint16
	fail  []bool
}

func newBoardState(cfg Config) *boardState {
	return &boardState{
		ts:    make([]uint64, cfg.BufferCapacity),
		wf:    make([][][]uint16, cfg.BufferCapacity),
		tid:   make([]uint32, cfg.BufferCapacity),
		flags: make([]uint16, cfg.BufferCapacity),
		fail:  make([]bool, cfg.BufferCapacity),
	}
}

// Writer is the single-owner, buffered chunked writer. It is not safe for
// concurrent use: spec.md's shared-resource policy reserves it to the
// processing worker alone.
type Writer struct {
	cfg      Config
	baseName string
	subrun   int
	boards   []*boardState
	backend  backend
	meta     metaSink

	mu          sync.Mutex
	savedEvents uint64
	onClose     func(path string, subrun int, savedEvents uint64)
}

// backend creates the on-disk container (a ROOT file, in production) and
// the per-board sinks within it. Splitting this out lets tests exercise
// Writer's staging/rollover/header logic against an in-memory fake,
// without a real ROOT file — the same seam felib draws between Device and
// its nativeAPI.
type backend interface {
	open(path string, cfg Config) (boardSinks []rowSink, meta metaSink, err error)
}

// rowSink durably appends one board's staged rows, starting at ordinal
// startEvent.
type rowSink interface {
	WriteRows(startEvent int, ts []uint64, wf [][][]uint16, tid []uint32, flags []uint16, fail []bool) error
	Close() error
}

// metaSink durably records the scalar saved_events header value. Each
// call appends a new entry; the last entry is authoritative, since ROOT
// trees (unlike HDF5 attributes) have no single mutable scalar slot.
type metaSink interface {
	WriteSavedEvents(n uint64) error
	Close() error
}

// newWriter creates a new container at path, using backend b to open it.
func newWriter(b backend, path string, cfg Config) (*Writer, error) {
	w := &Writer{cfg: cfg, baseName: path, backend: b}
	if err := w.openFile(path); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openFile(path string) error {
	sinks, meta, err := w.backend.open(path, w.cfg)
	if err != nil {
		return fmt.Errorf("store: could not create %q: %w", path, err)
	}
	w.boards = make([]*boardState, len(sinks))
	for i, s := range sinks {
		st := newBoardState(w.cfg)
		st.sink = s
		w.boards[i] = st
	}
	w.meta = meta
	return nil
}

// Append validates and stages one event for board, rolling the container
// over first if needed. See spec.md §4.5.
func (w *Writer) Append(board int, timestamp uint64, waveform [][]uint16, triggerID uint32, flags uint16, fail bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(board, timestamp, waveform, triggerID, flags, fail)
}

func (w *Writer) appendLocked(board int, timestamp uint64, waveform [][]uint16, triggerID uint32, flags uint16, fail bool) error {
	if len(waveform) != w.cfg.Channels {
		return fmt.Errorf("%w: got %d channels, want %d", ErrDimensionMismatch, len(waveform), w.cfg.Channels)
	}
	for _, ch := range waveform {
		if len(ch) != w.cfg.Samples {
			return fmt.Errorf("%w: got %d samples, want %d", ErrDimensionMismatch, len(ch), w.cfg.Samples)
		}
	}

	st := w.boards[board]
	if st.currentEvent+st.bufferCount >= w.cfg.MaxEventsPerBoard {
		if err := w.rolloverLocked(); err != nil {
			return err
		}
		st = w.boards[board]
		if st.currentEvent+st.bufferCount >= w.cfg.MaxEventsPerBoard {
			return ErrCapacityExceeded
		}
	}

	i := st.bufferCount
	st.ts[i] = timestamp
	st.wf[i] = waveform
	st.tid[i] = triggerID
	st.flags[i] = flags
	st.fail[i] = fail
	st.bufferCount++

	if st.bufferCount == w.cfg.BufferCapacity {
		if err := w.flushBoardLocked(board); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) flushBoardLocked(board int) error {
	st := w.boards[board]
	if st.bufferCount == 0 {
		return nil
	}
	err := st.sink.WriteRows(st.currentEvent,
		st.ts[:st.bufferCount], st.wf[:st.bufferCount], st.tid[:st.bufferCount],
		st.flags[:st.bufferCount], st.fail[:st.bufferCount])
	if err != nil {
		return fmt.Errorf("store: flush board %d: %w", board, err)
	}
	st.currentEvent += st.bufferCount
	st.bufferCount = 0
	return nil
}

// FlushAll flushes every board's partial staging buffer and updates the
// saved_events header to the sum of per-board current_event (P6).
func (w *Writer) FlushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushAllLocked()
}

func (w *Writer) flushAllLocked() error {
	var sum uint64
	for i, st := range w.boards {
		if err := w.flushBoardLocked(i); err != nil {
			return err
		}
		sum += uint64(st.currentEvent)
	}
	w.savedEvents = sum
	if w.meta != nil {
		if err := w.meta.WriteSavedEvents(sum); err != nil {
			return fmt.Errorf("store: write saved_events header: %w", err)
		}
	}
	return nil
}

// rolloverLocked takes (not flushes) every board's currently staged rows,
// finalizes the current file's header, opens a new file with an
// incremented subrun suffix, and re-appends the taken rows. Rollover is
// atomic from the writer's perspective: it either fully succeeds or
// returns an error and the caller shuts the pipeline down.
func (w *Writer) rolloverLocked() error {
	type pending struct {
		ts    []uint64
		wf    [][][]uint16
		tid   []uint32
		flags []uint16
		fail  []bool
	}
	taken := make([]pending, len(w.boards))
	for i, st := range w.boards {
		taken[i] = pending{
			ts:    append([]uint64(nil), st.ts[:st.bufferCount]...),
			wf:    append([][][]uint16(nil), st.wf[:st.bufferCount]...),
			tid:   append([]uint32(nil), st.tid[:st.bufferCount]...),
			flags: append([]uint16(nil), st.flags[:st.bufferCount]...),
			fail:  append([]bool(nil), st.fail[:st.bufferCount]...),
		}
		st.bufferCount = 0
	}

	if err := w.flushAllLocked(); err != nil {
		return fmt.Errorf("store: rollover: finalize current file: %w", err)
	}
	finishedPath, finishedSaved := w.currentPath(), w.savedEvents
	for _, st := range w.boards {
		if err := st.sink.Close(); err != nil {
			return fmt.Errorf("store: rollover: close current file: %w", err)
		}
	}
	if w.meta != nil {
		if err := w.meta.Close(); err != nil {
			return fmt.Errorf("store: rollover: close current file metadata: %w", err)
		}
	}
	if w.onClose != nil {
		w.onClose(finishedPath, w.subrun, finishedSaved)
	}

	w.subrun++
	next := rolloverName(w.baseName, w.subrun)
	if err := w.openFile(next); err != nil {
		return fmt.Errorf("store: rollover: open %q: %w", next, err)
	}

	for i, p := range taken {
		for j := range p.ts {
			if err := w.appendLocked(i, p.ts[j], p.wf[j], p.tid[j], p.flags[j], p.fail[j]); err != nil {
				return fmt.Errorf("store: rollover: re-append board %d: %w", i, err)
			}
		}
	}
	return nil
}

// SetCloseHook registers fn to be called with the path, subrun index,
// and saved_events of every file this Writer finishes writing — once
// per rollover and once at Close. Used by runctl to record one rundb
// entry per closed file, per spec.md §4.6's enrichment ("RecordFile...
// called once per closed file, both at clean shutdown and at
// rollover"). fn runs with the Writer's lock held; it must not call back
// into the Writer.
func (w *Writer) SetCloseHook(fn func(path string, subrun int, savedEvents uint64)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

// currentPath returns the path of the file currently open for writing.
func (w *Writer) currentPath() string {
	if w.subrun == 0 {
		return w.baseName
	}
	return rolloverName(w.baseName, w.subrun)
}

// SavedEvents returns the header value as of the last FlushAll.
func (w *Writer) SavedEvents() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.savedEvents
}

// CurrentEvent returns board's flushed-event ordinal in the current file.
func (w *Writer) CurrentEvent(board int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.boards[board].currentEvent
}

// Subrun returns the current subrun index (0 for the original file).
func (w *Writer) Subrun() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subrun
}

// Close flushes every board and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushAllLocked(); err != nil {
		return err
	}
	finishedPath, finishedSaved := w.currentPath(), w.savedEvents
	for i, st := range w.boards {
		if err := st.sink.Close(); err != nil {
			return fmt.Errorf("store: close board %d: %w", i, err)
		}
	}
	if w.meta != nil {
		if err := w.meta.Close(); err != nil {
			return err
		}
	}
	if w.onClose != nil {
		w.onClose(finishedPath, w.subrun, finishedSaved)
	}
	return nil
}

// rolloverName derives the next subrun's filename from base by replacing
// its trailing "_NN" (or "_N") component with a freshly zero-padded
// 2-digit subrun, per spec.md §6's `run{N}_{SS}` layout.
func rolloverName(base string, subrun int) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	idx := strings.LastIndexByte(stem, '_')
	if idx < 0 {
		return fmt.Sprintf("%s_%02d%s", stem, subrun, ext)
	}
	return fmt.Sprintf("%s_%02d%s", stem[:idx], subrun, ext)
}
