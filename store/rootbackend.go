// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"

	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// rootBackend opens containers as ROOT files, one rtree per board plus a
// one-branch metadata tree, via go-hep.org/x/hep/groot. It is the only
// place in store that imports groot directly; everything else in the
// package talks to the rowSink/metaSink seam.
type rootBackend struct{}

// New opens path as a fresh ROOT-backed container for cfg.
func New(path string, cfg Config) (*Writer, error) {
	return newWriter(rootBackend{}, path, cfg)
}

func (rootBackend) open(path string, cfg Config) ([]rowSink, metaSink, error) {
	f, err := riofs.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("store: riofs.Create: %w", err)
	}

	sinks := make([]rowSink, cfg.Boards)
	for i := range sinks {
		dir, err := f.Mkdir(fmt.Sprintf("board%d", i))
		if err != nil {
			return nil, nil, fmt.Errorf("store: mkdir board%d: %w", i, err)
		}
		sink, err := newTreeSink(dir, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("store: new tree for board%d: %w", i, err)
		}
		sinks[i] = sink
	}

	meta, err := newTreeMeta(f)
	if err != nil {
		return nil, nil, fmt.Errorf("store: new metadata tree: %w", err)
	}
	return sinks, meta, nil
}

// treeSink writes one board's five per-event datasets as branches of a
// single ROOT tree, basket-sized to the writer's buffer capacity so each
// Append-triggered flush lands in its own basket (spec.md §4.5's
// chunking rationale).
type treeSink struct {
	dir   riofs.Directory
	w     *rtree.Writer
	ts    uint64
	tid   uint32
	wf    []uint16 // flattened channels*samples, row-major by channel
	flags uint16
	fail  bool

	channels, samples int
}

func newTreeSink(dir riofs.Directory, cfg Config) (*treeSink, error) {
	s := &treeSink{
		dir:      dir,
		wf:       make([]uint16, cfg.Channels*cfg.Samples),
		channels: cfg.Channels,
		samples:  cfg.Samples,
	}
	wvars := []rtree.WriteVar{
		{Name: "timestamp", Value: &s.ts},
		{Name: "triggerid", Value: &s.tid},
		{Name: "waveform", Value: &s.wf},
		{Name: "flags", Value: &s.flags},
		{Name: "fail", Value: &s.fail},
	}
	w, err := rtree.NewWriter(dir, "events", wvars,
		rtree.WithBasketSize(int32(cfg.BufferCapacity)),
		rtree.WithTitle("wavedaq event data"),
		rtree.WithCompress(riofs.NewCompression(riofs.FromZLib(), cfg.CompressionLevel)),
	)
	if err != nil {
		return nil, err
	}
	s.w = w
	return s, nil
}

func (s *treeSink) WriteRows(startEvent int, ts []uint64, wf [][][]uint16, tid []uint32, flags []uint16, fail []bool) error {
	for i := range ts {
		s.ts = ts[i]
		s.tid = tid[i]
		s.flags = flags[i]
		s.fail = fail[i]
		for ch := 0; ch < s.channels; ch++ {
			copy(s.wf[ch*s.samples:(ch+1)*s.samples], wf[i][ch])
		}
		if _, err := s.w.Write(); err != nil {
			return fmt.Errorf("store: write row %d: %w", startEvent+i, err)
		}
	}
	return nil
}

func (s *treeSink) Close() error {
	return s.w.Close()
}

// treeMeta is a one-branch ROOT tree recording the saved_events header.
// Every FlushAll appends a new entry; only the last entry is read back,
// since ROOT trees have no mutable scalar attribute the way HDF5 groups
// do.
type treeMeta struct {
	w *rtree.Writer
	n uint64
}

func newTreeMeta(f *riofs.File) (*treeMeta, error) {
	m := &treeMeta{}
	wvars := []rtree.WriteVar{{Name: "saved_events", Value: &m.n}}
	w, err := rtree.NewWriter(f, "metadata", wvars, rtree.WithTitle("wavedaq run metadata"))
	if err != nil {
		return nil, err
	}
	m.w = w
	return m, nil
}

func (m *treeMeta) WriteSavedEvents(n uint64) error {
	m.n = n
	_, err := m.w.Write()
	return err
}

func (m *treeMeta) Close() error {
	return m.w.Close()
}
