// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package felib

import "fmt"

// nativeAPI is the seam between the typed Device facade and the vendor
// front-end library. It mirrors, one-to-one, the function set of
// _examples/original_source/src/felib.rs (itself a thin wrapper over the
// CAEN_FELib_* C ABI): Open, Close, GetImplLibVersion, GetDeviceTree,
// GetValue, SetValue, SendCommand, SetReadDataFormat, ReadData, HasData,
// GetHandle, GetParentHandle.
//
// Splitting this out as an interface, rather than calling into cgo
// directly from Device, is the same seam the teacher draws between
// eda.Device and its driver/rwer interfaces (eda/driver.go, eda/register.go):
// it lets every other package in this module (acq, board, runctl) be
// exercised by tests against a fake implementation, without a real
// digitizer or the vendor shared library present.
type nativeAPI interface {
	open(url string) (uint64, Status)
	close(handle uint64) Status
	getImplLibVersion(handle uint64) (string, Status)
	getDeviceTree(handle uint64) (string, Status)
	getValue(handle uint64, path string) (string, Status)
	setValue(handle uint64, path, value string) Status
	sendCommand(handle uint64, path string) Status
	setReadDataFormat(handle uint64, format string) Status
	readData(handle uint64, timeoutMS int, buf *EventBuffer) Status
	hasData(handle uint64, timeoutMS int) Status
	getHandle(handle uint64, path string) (uint64, Status)
	getParentHandle(handle uint64, path string) (uint64, Status)
}

// Device is a typed handle onto one digitizer board, opened through the
// vendor front-end library. The zero value is not usable; create one with
// Open.
type Device struct {
	api    nativeAPI
	handle uint64
	url    string
}

// Open opens the device reachable at url (e.g. "dig2://caendgtz-usb-25380")
// through the vendor front-end library and returns a handle onto it.
func Open(url string) (*Device, error) {
	return open(defaultAPI, url)
}

func open(api nativeAPI, url string) (*Device, error) {
	h, st := api.open(url)
	if !st.Ok() {
		return nil, fmt.Errorf("felib: could not open %q: %w", url, st)
	}
	return &Device{api: api, handle: h, url: url}, nil
}

// Close releases the device handle. Close is idempotent: calling it twice
// is a no-op returning nil the second time.
func (d *Device) Close() error {
	if d == nil || d.api == nil {
		return nil
	}
	st := d.api.close(d.handle)
	d.api = nil
	if !st.Ok() {
		return fmt.Errorf("felib: could not close %q: %w", d.url, st)
	}
	return nil
}

// Handle returns the raw native handle, for callers (e.g. the run catalog)
// that need to log or key on it.
func (d *Device) Handle() uint64 { return d.handle }

// URL returns the URL this device was opened with.
func (d *Device) URL() string { return d.url }

// ImplLibVersion returns the implementation library version string.
func (d *Device) ImplLibVersion() (string, error) {
	v, st := d.api.getImplLibVersion(d.handle)
	if !st.Ok() {
		return "", fmt.Errorf("felib: could not get impl lib version: %w", st)
	}
	return v, nil
}

// DeviceTree returns the device's JSON parameter tree.
func (d *Device) DeviceTree() (string, error) {
	v, st := d.api.getDeviceTree(d.handle)
	if !st.Ok() {
		return "", fmt.Errorf("felib: could not get device tree: %w", st)
	}
	return v, nil
}

// GetValue reads the named value at the dotted path (e.g. "/par/NumCh").
func (d *Device) GetValue(path string) (string, error) {
	v, st := d.api.getValue(d.handle, path)
	if !st.Ok() {
		return "", fmt.Errorf("felib: could not get %q: %w", path, st)
	}
	return v, nil
}

// SetValue writes the named value at the dotted path.
func (d *Device) SetValue(path, value string) error {
	st := d.api.setValue(d.handle, path, value)
	if !st.Ok() {
		return fmt.Errorf("felib: could not set %q=%q: %w", path, value, st)
	}
	return nil
}

// SendCommand issues a command at the dotted path (e.g. "/cmd/reset").
func (d *Device) SendCommand(path string) error {
	st := d.api.sendCommand(d.handle, path)
	if !st.Ok() {
		return fmt.Errorf("felib: could not send command %q: %w", path, st)
	}
	return nil
}

// SetReadDataFormat configures the JSON schema of fields a subsequent
// ReadData call will fill in.
func (d *Device) SetReadDataFormat(format string) error {
	st := d.api.setReadDataFormat(d.handle, format)
	if !st.Ok() {
		return fmt.Errorf("felib: could not set read-data format: %w", st)
	}
	return nil
}

// ReadTimeoutMS is the fixed per-call timeout spec.md requires for event
// reads: a bounded blocking call so the acquisition loop's only suspension
// points are timeout-bounded (spec.md §5).
const ReadTimeoutMS = 100

// ReadData reads one event into buf, non-throwing: it returns the status
// variant rather than an error, so the caller's loop can branch on Timeout
// (retry), Stop (exit), Success (emit), or log-and-retry for anything else,
// exactly as spec.md §4.1 specifies.
func (d *Device) ReadData(buf *EventBuffer) Status {
	return d.api.readData(d.handle, ReadTimeoutMS, buf)
}

// HasData polls (with a short timeout) whether data is available without
// consuming it.
func (d *Device) HasData(timeoutMS int) error {
	st := d.api.hasData(d.handle, timeoutMS)
	if !st.Ok() {
		return fmt.Errorf("felib: has-data: %w", st)
	}
	return nil
}

// GetHandle resolves the handle of the child object at path.
func (d *Device) GetHandle(path string) (uint64, error) {
	h, st := d.api.getHandle(d.handle, path)
	if !st.Ok() {
		return 0, fmt.Errorf("felib: could not resolve handle %q: %w", path, st)
	}
	return h, nil
}

// GetParentHandle resolves the parent handle of h (path is usually "").
func (d *Device) GetParentHandle(h uint64, path string) (uint64, error) {
	p, st := d.api.getParentHandle(h, path)
	if !st.Ok() {
		return 0, fmt.Errorf("felib: could not resolve parent handle: %w", st)
	}
	return p, nil
}

// Endpoint is a child handle resolved under a device, e.g. the "scope"
// readout endpoint. It shares the device's nativeAPI so a read through it
// is indistinguishable, at the ABI level, from a read through the device
// handle itself.
type Endpoint struct {
	dev    *Device
	handle uint64
}

// OpenEndpoint resolves path (e.g. "/endpoint/scope") under d, activates it
// as the active endpoint on its parent folder, and sets the read-data
// format. This is the Init-state sequence of spec.md §4.3, factored out so
// acq.Worker can call it once per board.
func (d *Device) OpenEndpoint(path, activate, format string) (*Endpoint, error) {
	h, err := d.GetHandle(path)
	if err != nil {
		return nil, err
	}
	parent, err := d.GetParentHandle(h, "")
	if err != nil {
		return nil, err
	}
	if activate != "" {
		st := d.api.setValue(parent, "/par/activeendpoint", activate)
		if !st.Ok() {
			return nil, fmt.Errorf("felib: could not activate endpoint %q: %w", activate, st)
		}
	}
	st := d.api.setReadDataFormat(h, format)
	if !st.Ok() {
		return nil, fmt.Errorf("felib: could not set read-data format on %q: %w", path, st)
	}
	return &Endpoint{dev: d, handle: h}, nil
}

// ReadData reads one event from the endpoint into buf.
func (e *Endpoint) ReadData(buf *EventBuffer) Status {
	return e.dev.api.readData(e.handle, ReadTimeoutMS, buf)
}
