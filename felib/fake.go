// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package felib

import "sync"

// Fake is a pure-Go nativeAPI exercised by tests throughout this module in
// place of the real vendor library: board, acq, align and runctl all
// test against it rather than a real digitizer. It plays the role
// eda/fake_device_test.go's fakeDev plays for the teacher's tests, minus
// the backing mmap file — there is no real /dev/mem analog on this side of
// the vendor ABI, so Fake just keeps its state in memory.
type Fake struct {
	mu       sync.Mutex
	nextH    uint64
	values   map[string]string
	children map[string]uint64
	parents  map[uint64]uint64
	events   []FakeEvent
	pos      int
	closed   bool
	commands []string
}

var _ nativeAPI = (*Fake)(nil)

// FakeEvent is one canned event a Fake will hand back from ReadData, in
// queue order.
type FakeEvent struct {
	Timestamp uint64
	TriggerID uint32
	Flags     uint16
	BoardFail bool
	Waveform  [][]uint16 // per channel, in channel order
}

// NewFake returns an empty Fake with no queued events.
func NewFake() *Fake {
	return &Fake{
		nextH:    1,
		values:   make(map[string]string),
		children: make(map[string]uint64),
		parents:  make(map[uint64]uint64),
	}
}

// NewFakeDevice wraps a fresh Fake in a Device, for tests of code that
// consumes *felib.Device directly.
func NewFakeDevice() (*Device, *Fake) {
	f := NewFake()
	return &Device{api: f, handle: f.nextH, url: "fake://"}, f
}

// QueueEvents appends evs to the sequence ReadData will hand back.
func (f *Fake) QueueEvents(evs ...FakeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evs...)
}

// SetValue seeds the value GetValue will later return for path, as if a
// prior SetValue call had written it.
func (f *Fake) SetValue(path, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[path] = value
}

// Commands returns every path SendCommand was called with, in order.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Closed reports whether close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) open(url string) (uint64, Status) { return f.nextH, Success }

func (f *Fake) close(handle uint64) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return Success
}

func (f *Fake) getImplLibVersion(handle uint64) (string, Status) { return "fake-1.0.0", Success }

func (f *Fake) getDeviceTree(handle uint64) (string, Status) { return "{}", Success }

func (f *Fake) getValue(handle uint64, path string) (string, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[path]
	if !ok {
		return "", InvalidParam
	}
	return v, Success
}

func (f *Fake) setValue(handle uint64, path, value string) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[path] = value
	return Success
}

func (f *Fake) sendCommand(handle uint64, path string) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, path)
	return Success
}

func (f *Fake) setReadDataFormat(handle uint64, format string) Status { return Success }

func (f *Fake) hasData(handle uint64, timeoutMS int) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.events) {
		return Timeout
	}
	return Success
}

func (f *Fake) readData(handle uint64, timeoutMS int, buf *EventBuffer) Status {
	f.mu.Lock()
	if f.pos >= len(f.events) {
		f.mu.Unlock()
		return Timeout
	}
	ev := f.events[f.pos]
	f.pos++
	f.mu.Unlock()

	buf.timestamp = ev.Timestamp
	buf.triggerID = ev.TriggerID
	buf.flags = ev.Flags
	buf.boardFail = ev.BoardFail
	for c := 0; c < buf.nChannels && c < len(ev.Waveform); c++ {
		n := len(ev.Waveform[c])
		buf.nSamples[c] = uint64(n)
		copy(buf.waveform[c][:n], ev.Waveform[c])
	}
	return Success
}

func (f *Fake) getHandle(handle uint64, path string) (uint64, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.children[path]; ok {
		return h, Success
	}
	f.nextH++
	h := f.nextH
	f.children[path] = h
	f.parents[h] = handle
	return h, Success
}

func (f *Fake) getParentHandle(handle uint64, path string) (uint64, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parents[handle]
	if !ok {
		return 0, InvalidHandle
	}
	return p, Success
}
