// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build caen

package felib

//#cgo LDFLAGS: -lCAEN_FELib
//
//#include <stdlib.h>
//#include <string.h>
//#include <CAEN_FELib.h>
import "C"

import "unsafe"

// cgoAPI is the nativeAPI backed by the real vendor shared library. It is
// only compiled in with the "caen" build tag, so the rest of this module
// (and every package that depends on felib) builds and tests without the
// vendor library installed.
type cgoAPI struct{}

var defaultAPI nativeAPI = cgoAPI{}

func (cgoAPI) open(url string) (uint64, Status) {
	curl := C.CString(url)
	defer C.free(unsafe.Pointer(curl))

	var handle C.uint64_t
	ret := C.CAEN_FELib_Open(curl, &handle)
	return uint64(handle), FromErrno(int32(ret))
}

func (cgoAPI) close(handle uint64) Status {
	ret := C.CAEN_FELib_Close(C.uint64_t(handle))
	return FromErrno(int32(ret))
}

func (cgoAPI) getImplLibVersion(handle uint64) (string, Status) {
	var buf [16]C.char
	ret := C.CAEN_FELib_GetImplLibVersion(C.uint64_t(handle), &buf[0])
	return C.GoString(&buf[0]), FromErrno(int32(ret))
}

func (cgoAPI) getDeviceTree(handle uint64) (string, Status) {
	var size C.size_t
	ret := C.CAEN_FELib_GetDeviceTree(C.uint64_t(handle), nil, 0, &size)
	if st := FromErrno(int32(ret)); !st.Ok() {
		return "", st
	}
	buf := make([]C.char, size)
	ret = C.CAEN_FELib_GetDeviceTree(C.uint64_t(handle), &buf[0], size, &size)
	return C.GoString(&buf[0]), FromErrno(int32(ret))
}

func (cgoAPI) getValue(handle uint64, path string) (string, Status) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var buf [256]C.char
	ret := C.CAEN_FELib_GetValue(C.uint64_t(handle), cpath, &buf[0])
	return C.GoString(&buf[0]), FromErrno(int32(ret))
}

func (cgoAPI) setValue(handle uint64, path, value string) Status {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))

	ret := C.CAEN_FELib_SetValue(C.uint64_t(handle), cpath, cvalue)
	return FromErrno(int32(ret))
}

func (cgoAPI) sendCommand(handle uint64, path string) Status {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	ret := C.CAEN_FELib_SendCommand(C.uint64_t(handle), cpath)
	return FromErrno(int32(ret))
}

func (cgoAPI) setReadDataFormat(handle uint64, format string) Status {
	cformat := C.CString(format)
	defer C.free(unsafe.Pointer(cformat))

	ret := C.CAEN_FELib_SetReadDataFormat(C.uint64_t(handle), cformat)
	return FromErrno(int32(ret))
}

// readData fills buf's pre-allocated fields via the variadic
// CAEN_FELib_ReadData ABI. The argument order matches the fixed schema
// Schema produces: TIMESTAMP_NS, TRIGGER_ID, WAVEFORM, WAVEFORM_SIZE,
// FLAGS, BOARD_FAIL, EVENT_SIZE.
func (cgoAPI) readData(handle uint64, timeoutMS int, buf *EventBuffer) Status {
	ret := C.CAEN_FELib_ReadData(C.uint64_t(handle), C.int(timeoutMS),
		unsafe.Pointer(&buf.timestamp),
		unsafe.Pointer(&buf.triggerID),
		unsafe.Pointer(&buf.waveformPtrs[0]),
		unsafe.Pointer(&buf.nSamples[0]),
		unsafe.Pointer(&buf.flags),
		unsafe.Pointer(&buf.boardFail),
		unsafe.Pointer(&buf.eventSize),
	)
	return FromErrno(int32(ret))
}

func (cgoAPI) hasData(handle uint64, timeoutMS int) Status {
	ret := C.CAEN_FELib_HasData(C.uint64_t(handle), C.int(timeoutMS))
	return FromErrno(int32(ret))
}

func (cgoAPI) getHandle(handle uint64, path string) (uint64, Status) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var h C.uint64_t
	ret := C.CAEN_FELib_GetHandle(C.uint64_t(handle), cpath, &h)
	return uint64(h), FromErrno(int32(ret))
}

func (cgoAPI) getParentHandle(handle uint64, path string) (uint64, Status) {
	var cpath *C.char
	if path != "" {
		cpath = C.CString(path)
		defer C.free(unsafe.Pointer(cpath))
	}

	var h C.uint64_t
	ret := C.CAEN_FELib_GetParentHandle(C.uint64_t(handle), cpath, &h)
	return uint64(h), FromErrno(int32(ret))
}
