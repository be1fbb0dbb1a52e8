// Package log provides a logging abstraction for faderlink components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Implementations are provided for zerolog, zap
// and a no-op logger for testing.
//
// # Usage
//
// Use the zerolog adapter (the default used by the CLI):
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Or the zap adapter:
//
//	logger, err := log.NewZapAdapter("info")
//
// Or the no-op logger for testing:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Implement the Logger interface to integrate with your existing
// logging infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
