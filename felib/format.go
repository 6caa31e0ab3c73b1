// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package felib

import (
	"fmt"
	"strings"
)

// field is one entry of a read-data-format schema: a named value of a
// given vendor type, optionally an array of rank dim (number of
// dimensions, not element count — CAEN's own convention).
type field struct {
	name string
	vt   string
	dim  int
}

// Schema builds the fixed JSON read-data-format document this module
// always requests, matching spec.md's native API contract exactly:
// TIMESTAMP_NS (u64), TRIGGER_ID (u32), WAVEFORM (u16, 2-D), WAVEFORM_SIZE
// (size_t, 1-D), FLAGS (u16), BOARD_FAIL (bool), EVENT_SIZE (size_t).
// Every board requests the same schema regardless of its configured
// channel count: nChannels does not change the document. EventBuffer
// always hands the native side MaxChannels row pointers to fill.
func Schema(nChannels int) string {
	if nChannels <= 0 || nChannels > MaxChannels {
		nChannels = MaxChannels
	}
	fields := []field{
		{"TIMESTAMP_NS", "U64", 0},
		{"TRIGGER_ID", "U32", 0},
		{"WAVEFORM", "U16", 2},
		{"WAVEFORM_SIZE", "SIZE_T", 1},
		{"FLAGS", "U16", 0},
		{"BOARD_FAIL", "BOOL", 0},
		{"EVENT_SIZE", "SIZE_T", 0},
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if f.dim > 0 {
			fmt.Fprintf(&b, `{"name":"%s","type":"%s","dim":%d}`, f.name, f.vt, f.dim)
		} else {
			fmt.Fprintf(&b, `{"name":"%s","type":"%s"}`, f.name, f.vt)
		}
	}
	b.WriteByte(']')
	return b.String()
}
