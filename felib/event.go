// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package felib

// MaxChannels is the fixed per-event channel allocation. spec.md fixes this
// at 64 (the largest channel count across the supported digitizer models)
// rather than sizing EventBuffer per board: a single fixed layout lets
// buffers be recycled across boards of differing channel counts without
// reallocation, at the cost of over-allocating for smaller boards. The
// native reader dereferences all 64 row pointers regardless of how many
// channels are actually enabled, so shrinking this risks out-of-bounds
// writes on the native side.
const MaxChannels = 64

// MaxSamples is the fixed per-channel sample allocation, sized to the
// largest configurable record length (spec.md §4.1).
const MaxSamples = 1 << 16

// EventBuffer is a single pre-allocated, natively-addressable event record:
// a contiguous channels×samples sample matrix plus the per-channel
// actually-filled/allocated counts and scalar metadata the native reader
// fills in alongside it. Its waveform storage is a flat Go-owned array;
// waveformPtrs holds raw pointers into each channel's row, in the layout
// the vendor ABI's ReadData expects — one row pointer per channel,
// mirroring original_source/src/event.rs's CEvent.probes field.
//
// EventBuffer is not safe for concurrent use: acq.Worker owns one buffer
// per board and hands it to align after a read completes, swapping in a
// freshly allocated buffer rather than mutating a buffer another
// goroutine might still be reading — the same swap-not-mutate discipline
// original_source/src/tui.rs's data_taking_thread uses with
// std::mem::replace.
type EventBuffer struct {
	timestamp uint64 // TIMESTAMP_NS
	triggerID uint32 // TRIGGER_ID
	flags     uint16 // FLAGS
	boardFail bool   // BOARD_FAIL
	eventSize uint64 // EVENT_SIZE

	nChannels int
	nSamples  [MaxChannels]uint64 // WAVEFORM_SIZE, per channel
	waveform  [MaxChannels][MaxSamples]uint16

	// waveformPtrs[c] always points at &waveform[c][0]; it exists only so
	// the cgo ABI has a contiguous array of row pointers to write into.
	waveformPtrs [MaxChannels]*uint16
}

// NewEventBuffer allocates an EventBuffer sized for nChannels (<=
// MaxChannels) and wires up its row pointers once, up front.
func NewEventBuffer(nChannels int) *EventBuffer {
	if nChannels <= 0 || nChannels > MaxChannels {
		nChannels = MaxChannels
	}
	buf := &EventBuffer{nChannels: nChannels}
	for c := 0; c < MaxChannels; c++ {
		buf.waveformPtrs[c] = &buf.waveform[c][0]
	}
	return buf
}

// Timestamp returns the event's timestamp, in nanoseconds.
func (b *EventBuffer) Timestamp() uint64 { return b.timestamp }

// TriggerID returns the event's trigger identifier.
func (b *EventBuffer) TriggerID() uint32 { return b.triggerID }

// Flags returns the event's status-flag bitfield.
func (b *EventBuffer) Flags() uint16 { return b.flags }

// BoardFail reports whether the board signaled a failure for this event.
func (b *EventBuffer) BoardFail() bool { return b.boardFail }

// EventSize returns the native-reported size of the raw event, in bytes.
func (b *EventBuffer) EventSize() uint64 { return b.eventSize }

// NumChannels returns the number of channels this buffer was sized for.
func (b *EventBuffer) NumChannels() int { return b.nChannels }

// NumSamples returns the number of valid samples in channel ch.
func (b *EventBuffer) NumSamples(ch int) int { return int(b.nSamples[ch]) }

// Waveform returns the valid samples of channel ch as a read-only slice
// over the buffer's backing array. The slice is only valid until the next
// ReadData call reuses this buffer.
func (b *EventBuffer) Waveform(ch int) []uint16 {
	n := b.nSamples[ch]
	return b.waveform[ch][:n:n]
}

// Reset zeroes the sample counts and scalar metadata (not the waveform
// contents — ReadData always writes nSamples[c] fresh samples before
// they're read) so a reused buffer never reports leftover lengths.
func (b *EventBuffer) Reset() {
	for c := range b.nSamples {
		b.nSamples[c] = 0
	}
	b.timestamp, b.triggerID, b.flags, b.boardFail, b.eventSize = 0, 0, 0, false, 0
}

// CopyFrom deep-copies src's fields into b, truncating to b's channel
// count.
func (b *EventBuffer) CopyFrom(src *EventBuffer) {
	b.timestamp = src.timestamp
	b.triggerID = src.triggerID
	b.flags = src.flags
	b.boardFail = src.boardFail
	b.eventSize = src.eventSize
	n := b.nChannels
	if src.nChannels < n {
		n = src.nChannels
	}
	for c := 0; c < n; c++ {
		ns := src.nSamples[c]
		b.nSamples[c] = ns
		copy(b.waveform[c][:ns], src.waveform[c][:ns])
	}
}
