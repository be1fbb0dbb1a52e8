// Package gomidi implements the transport ports on top of
// gitlab.com/gomidi/midi/v2. A driver (rtmididrv) must be registered by the
// program, usually with a blank import in main.
package gomidi
