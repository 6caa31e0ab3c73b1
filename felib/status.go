// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package felib is a thin typed facade over the vendor front-end C library
// used to talk to a digitizer board: open/close a device, get/set a named
// value, send a command, resolve child/parent handles, set the read-data
// format, and read one event into a pre-allocated buffer.
package felib // import "github.com/go-lpc/wavedaq/felib"

import "fmt"

// Status is the typed return code of every native call. It satisfies error
// so callers that only care "did this fail" can use it directly, while
// callers that need to branch on the kind of failure can switch on the
// value.
type Status int32

const (
	Success            Status = 0
	Generic            Status = -1
	InvalidParam       Status = -2
	DevAlreadyOpen     Status = -3
	DevNotFound        Status = -4
	MaxDev             Status = -5
	Command            Status = -6
	Internal           Status = -7
	NotImplemented     Status = -8
	InvalidHandle      Status = -9
	DevLibNotAvailable Status = -10
	Timeout            Status = -11
	Stop               Status = -12
	Disabled           Status = -13
	BadLibVer          Status = -14
	Comm               Status = -15
	Unknown            Status = 1
)

// FromErrno converts a raw native return code into a Status, mapping any
// value outside the known set to Unknown rather than panicking.
func FromErrno(v int32) Status {
	switch Status(v) {
	case Success, Generic, InvalidParam, DevAlreadyOpen, DevNotFound, MaxDev,
		Command, Internal, NotImplemented, InvalidHandle, DevLibNotAvailable,
		Timeout, Stop, Disabled, BadLibVer, Comm:
		return Status(v)
	default:
		return Unknown
	}
}

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case Generic:
		return "Generic"
	case InvalidParam:
		return "InvalidParam"
	case DevAlreadyOpen:
		return "DevAlreadyOpen"
	case DevNotFound:
		return "DevNotFound"
	case MaxDev:
		return "MaxDev"
	case Command:
		return "Command"
	case Internal:
		return "Internal"
	case NotImplemented:
		return "NotImplemented"
	case InvalidHandle:
		return "InvalidHandle"
	case DevLibNotAvailable:
		return "DevLibNotAvailable"
	case Timeout:
		return "Timeout"
	case Stop:
		return "Stop"
	case Disabled:
		return "Disabled"
	case BadLibVer:
		return "BadLibVer"
	case Comm:
		return "Comm"
	default:
		return "Unknown"
	}
}

// Error implements error. A Success status is never wrapped as an error by
// this package, but Error is still defined on the full type so a Status can
// be returned directly from functions with an `error` result.
func (s Status) Error() string {
	return fmt.Sprintf("felib: status %s (%d)", s.String(), int32(s))
}

// Ok reports whether s is Success.
func (s Status) Ok() bool { return s == Success }
