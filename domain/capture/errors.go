package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// DeviceErrorKind classifies camera failures the user must resolve.
type DeviceErrorKind int

const (
	DeviceUnavailable DeviceErrorKind = iota
	DevicePermissionDenied
	DeviceNotFound
	DeviceBusy
)

func (k DeviceErrorKind) String() string {
	switch k {
	case DevicePermissionDenied:
		return "permission_denied"
	case DeviceNotFound:
		return "not_found"
	case DeviceBusy:
		return "busy"
	default:
		return "unavailable"
	}
}

// ErrDeviceBusy is returned by drivers whose device is held by another process.
var ErrDeviceBusy = errors.New("device busy")

// ErrNoDevice is returned when no capture device is selected.
var ErrNoDevice = errors.New("no capture device selected")

// DeviceError reports a camera failure. It is surfaced to the user once and
// blocks the detection loop until a device is selected again.
type DeviceError struct {
	Kind     DeviceErrorKind
	DeviceID string
	Err      error
}

func (e *DeviceError) Error() string {
	switch e.Kind {
	case DevicePermissionDenied:
		return fmt.Sprintf("camera %q: permission denied", e.DeviceID)
	case DeviceNotFound:
		return fmt.Sprintf("camera %q: not found", e.DeviceID)
	case DeviceBusy:
		return fmt.Sprintf("camera %q: in use by another application", e.DeviceID)
	}
	if e.Err != nil {
		return fmt.Sprintf("camera %q: %v", e.DeviceID, e.Err)
	}
	return fmt.Sprintf("camera %q: unavailable", e.DeviceID)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// classify wraps a driver error into a DeviceError. Context errors and
// existing DeviceErrors pass through untouched.
func classify(id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	kind := DeviceUnavailable
	switch {
	case errors.Is(err, os.ErrPermission):
		kind = DevicePermissionDenied
	case errors.Is(err, os.ErrNotExist), errors.Is(err, ErrNoDevice):
		kind = DeviceNotFound
	case errors.Is(err, ErrDeviceBusy):
		kind = DeviceBusy
	}
	return &DeviceError{Kind: kind, DeviceID: id, Err: err}
}

// classifyGrab is classify for per-frame failures. Only failures the user
// has to resolve become DeviceErrors; anything else is a plain error the
// caller may retry.
func classifyGrab(id string, err error) error {
	err = classify(id, err)
	var de *DeviceError
	if errors.As(err, &de) && de.Kind == DeviceUnavailable && de.Err != nil {
		return fmt.Errorf("grab %s: %w", id, de.Err)
	}
	return err
}
