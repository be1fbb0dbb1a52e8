package ports

import "github.com/bft-labs/faderlink/internal/domain"

// CaptureSink persists sysex payloads for offline analysis.
type CaptureSink interface {
	// Capture stores msg if it has not been seen before and reports
	// whether it was stored.
	Capture(msg domain.Message) (bool, error)

	// Close flushes and releases the sink.
	Close() error
}
