// Package lifecycle provides the state machine shared by the long-lived
// faderlink workers (listener and sender).
//
// A worker is created Idle, moves to Running when started and ends in
// Stopped. Stopped is terminal: a stopped worker cannot be restarted.
// A worker whose transport fails moves to Crashed; Crashed only allows a
// final transition to Stopped.
//
// # Usage
//
//	manager := lifecycle.NewManager("listener", logger, emitter)
//
//	if err := manager.TransitionTo(lifecycle.StateRunning, "Start() called"); err != nil {
//	    return err
//	}
//
//	manager.AddWorker()
//	go func() {
//	    defer manager.WorkerDone()
//	    // ... receive loop ...
//	}()
//
//	// Shutdown
//	if err := manager.WaitWithTimeout(10 * time.Second); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Idle -> Running, Stopped
//   - Running -> Stopped, Crashed
//   - Crashed -> Stopped
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
