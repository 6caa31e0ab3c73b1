// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package felib

import "testing"

func TestDeviceOpenClose(t *testing.T) {
	dev, fake := NewFakeDevice()
	if dev.URL() != "fake://" {
		t.Fatalf("URL() = %q, want %q", dev.URL(), "fake://")
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %+v", err)
	}
	if !fake.Closed() {
		t.Fatalf("fake device was not closed")
	}
	// Close is idempotent.
	if err := dev.Close(); err != nil {
		t.Fatalf("second Close: %+v", err)
	}
}

func TestDeviceGetSetValue(t *testing.T) {
	dev, _ := NewFakeDevice()
	defer dev.Close()

	if err := dev.SetValue("/par/RecordLengthS", "1024"); err != nil {
		t.Fatalf("SetValue: %+v", err)
	}
	got, err := dev.GetValue("/par/RecordLengthS")
	if err != nil {
		t.Fatalf("GetValue: %+v", err)
	}
	if got != "1024" {
		t.Fatalf("GetValue = %q, want %q", got, "1024")
	}

	if _, err := dev.GetValue("/par/Unset"); err == nil {
		t.Fatalf("GetValue of an unset path should have failed")
	}
}

func TestDeviceSendCommand(t *testing.T) {
	dev, fake := NewFakeDevice()
	defer dev.Close()

	if err := dev.SendCommand("/cmd/reset"); err != nil {
		t.Fatalf("SendCommand: %+v", err)
	}
	if err := dev.SendCommand("/cmd/armacquisition"); err != nil {
		t.Fatalf("SendCommand: %+v", err)
	}
	want := []string{"/cmd/reset", "/cmd/armacquisition"}
	got := fake.Commands()
	if len(got) != len(want) {
		t.Fatalf("Commands() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Commands()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeviceOpenEndpointReadData(t *testing.T) {
	dev, fake := NewFakeDevice()
	defer dev.Close()

	fake.QueueEvents(FakeEvent{
		Timestamp: 100,
		TriggerID: 1,
		Waveform:  [][]uint16{{1, 2, 3}, {4, 5, 6}},
	})

	ep, err := dev.OpenEndpoint("/endpoint/scope", "scope", Schema(2))
	if err != nil {
		t.Fatalf("OpenEndpoint: %+v", err)
	}

	buf := NewEventBuffer(2)
	if st := ep.ReadData(buf); !st.Ok() {
		t.Fatalf("ReadData: %v", st)
	}
	if buf.TriggerID() != 1 {
		t.Fatalf("TriggerID() = %d, want 1", buf.TriggerID())
	}
	if got := buf.Waveform(0); len(got) != 3 || got[2] != 3 {
		t.Fatalf("Waveform(0) = %v, want [1 2 3]", got)
	}

	// The queue is now empty: the next read times out rather than
	// blocking or erroring.
	if st := ep.ReadData(buf); st != Timeout {
		t.Fatalf("ReadData on empty queue = %v, want Timeout", st)
	}
}

func TestEventBufferCopyFromAndReset(t *testing.T) {
	src := NewEventBuffer(2)
	src.timestamp, src.triggerID = 7, 3
	src.nSamples[0] = 2
	src.waveform[0][0], src.waveform[0][1] = 10, 20

	dst := NewEventBuffer(2)
	dst.CopyFrom(src)
	if dst.TriggerID() != 3 {
		t.Fatalf("CopyFrom: TriggerID() = %d, want 3", dst.TriggerID())
	}
	if got := dst.Waveform(0); len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Fatalf("CopyFrom: Waveform(0) = %v", got)
	}

	dst.Reset()
	if dst.TriggerID() != 0 || dst.NumSamples(0) != 0 {
		t.Fatalf("Reset did not clear buffer state")
	}
}
