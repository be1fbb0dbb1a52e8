package domain

import "errors"

// Domain errors represent error conditions in the faderlink protocol layer.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrDecode is returned when a wire value group cannot be decoded.
	ErrDecode = errors.New("faderlink: protocol decode error")

	// ErrValueOutOfRange is returned when a fader value is outside -128..127.
	ErrValueOutOfRange = errors.New("faderlink: value out of range")

	// ErrUnknownAddress is returned when a fader address is not mapped.
	ErrUnknownAddress = errors.New("faderlink: unknown fader address")

	// ErrWaitSlotBusy is returned when a reply wait is registered while another is pending.
	ErrWaitSlotBusy = errors.New("faderlink: wait slot busy")

	// ErrTransportClosed is returned when the underlying MIDI port goes away.
	ErrTransportClosed = errors.New("faderlink: transport closed")

	// ErrTimeout is returned when a reply does not arrive in time.
	ErrTimeout = errors.New("faderlink: timeout waiting for reply")

	// ErrAborted is returned to a pending wait when the listener stops.
	ErrAborted = errors.New("faderlink: wait aborted")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("faderlink: invalid configuration")

	// ErrInvalidMessage is returned for messages that cannot be built or parsed.
	ErrInvalidMessage = errors.New("faderlink: invalid message")

	// ErrNoMessage is returned when a recording is requested before any message arrived.
	ErrNoMessage = errors.New("faderlink: no message received yet")

	// ErrUnknownRecording is returned by Diff for names never recorded.
	ErrUnknownRecording = errors.New("faderlink: unknown recording")

	// ErrUnknownMode is returned when the device reports a mode code not in the mode table.
	ErrUnknownMode = errors.New("faderlink: unknown mode")

	// ErrDeviceNotFound is returned when no port matches the device pattern.
	ErrDeviceNotFound = errors.New("faderlink: device not found")
)
