// Package app contains the duplex message pump: a Listener draining the
// inbound stream, a Sender draining an outbound FIFO, and a Coordinator that
// pairs them into a blocking send-and-wait.
//
// Both workers follow the pkg/lifecycle state machine and own their port:
// the port is closed when the worker's goroutine exits, whatever the cause.
// A Session composes the pair so that the failure of one worker stops the
// other and aborts any pending wait.
package app
