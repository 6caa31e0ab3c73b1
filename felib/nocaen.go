// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !caen

package felib

// unavailableAPI is the nativeAPI used when this module is built without
// the "caen" tag, i.e. without the vendor shared library installed. Every
// call fails with DevLibNotAvailable rather than the build failing to
// link: it lets the rest of this module (board, acq, align, store,
// runctl, and their tests) build and run against felib.NewFake instead.
type unavailableAPI struct{}

var defaultAPI nativeAPI = unavailableAPI{}

func (unavailableAPI) open(url string) (uint64, Status)      { return 0, DevLibNotAvailable }
func (unavailableAPI) close(handle uint64) Status            { return DevLibNotAvailable }
func (unavailableAPI) getImplLibVersion(h uint64) (string, Status) {
	return "", DevLibNotAvailable
}
func (unavailableAPI) getDeviceTree(h uint64) (string, Status) { return "", DevLibNotAvailable }
func (unavailableAPI) getValue(h uint64, path string) (string, Status) {
	return "", DevLibNotAvailable
}
func (unavailableAPI) setValue(h uint64, path, value string) Status  { return DevLibNotAvailable }
func (unavailableAPI) sendCommand(h uint64, path string) Status      { return DevLibNotAvailable }
func (unavailableAPI) setReadDataFormat(h uint64, format string) Status {
	return DevLibNotAvailable
}
func (unavailableAPI) readData(h uint64, timeoutMS int, buf *EventBuffer) Status {
	return DevLibNotAvailable
}
func (unavailableAPI) hasData(h uint64, timeoutMS int) Status { return DevLibNotAvailable }
func (unavailableAPI) getHandle(h uint64, path string) (uint64, Status) {
	return 0, DevLibNotAvailable
}
func (unavailableAPI) getParentHandle(h uint64, path string) (uint64, Status) {
	return 0, DevLibNotAvailable
}
