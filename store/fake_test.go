// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

// fakeBackend and fakeSink record what was written without touching a
// real ROOT file, so Writer's staging/rollover/header logic can be
// exercised directly, the same way felib.Fake stands in for a real
// digitizer.
type fakeBackend struct {
	opened []string // paths, in open order
}

type fakeRow struct {
	event int
	ts    uint64
	wf    [][]uint16
	tid   uint32
	flags uint16
	fail  bool
}

type fakeSink struct {
	rows   []fakeRow
	closed bool
}

func (s *fakeSink) WriteRows(startEvent int, ts []uint64, wf [][][]uint16, tid []uint32, flags []uint16, fail []bool) error {
	for i := range ts {
		s.rows = append(s.rows, fakeRow{
			event: startEvent + i,
			ts:    ts[i],
			wf:    wf[i],
			tid:   tid[i],
			flags: flags[i],
			fail:  fail[i],
		})
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

type fakeMeta struct {
	values []uint64
	closed bool
}

func (m *fakeMeta) WriteSavedEvents(n uint64) error {
	m.values = append(m.values, n)
	return nil
}

func (m *fakeMeta) Close() error {
	m.closed = true
	return nil
}

func (b *fakeBackend) open(path string, cfg Config) ([]rowSink, metaSink, error) {
	b.opened = append(b.opened, path)
	sinks := make([]rowSink, cfg.Boards)
	for i := range sinks {
		sinks[i] = &fakeSink{}
	}
	return sinks, &fakeMeta{}, nil
}
