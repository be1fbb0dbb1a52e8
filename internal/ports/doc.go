// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [MessageReceiver]: blocking, ordered inbound MIDI stream
//   - [MessageTransmitter]: outbound MIDI port
//   - [DeviceOpener]: port discovery and opening by name pattern
//   - [CaptureSink]: persistence of observed sysex payloads
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with gomidi and
// the file system. Tests substitute in-memory fakes.
package ports
