package fs

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/faderlink/internal/domain"
)

// CaptureFile implements ports.CaptureSink by appending each sysex message
// not seen before to a text file, one hex line per message. Two payloads
// that differ only in their final byte count as the same message.
type CaptureFile struct {
	path string

	mu   sync.Mutex
	f    *os.File
	seen map[string]struct{}
}

// OpenCaptureFile opens path for appending, creating it and its directory
// if needed. Messages already in the file are treated as seen.
func OpenCaptureFile(path string) (*CaptureFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	c := &CaptureFile{path: path, seen: make(map[string]struct{})}
	if err := c.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	c.f = f
	return c, nil
}

func (c *CaptureFile) load() error {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		msg, err := domain.ParseHex(scanner.Text())
		if err != nil || msg.Kind != domain.KindSysEx {
			continue
		}
		c.seen[captureKey(msg)] = struct{}{}
	}
	return scanner.Err()
}

func captureKey(msg domain.Message) string {
	if len(msg.Data) == 0 {
		return ""
	}
	return hex.EncodeToString(msg.Data[:len(msg.Data)-1])
}

// Capture appends msg if it is a sysex message not seen before.
func (c *CaptureFile) Capture(msg domain.Message) (bool, error) {
	if msg.Kind != domain.KindSysEx {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.f == nil {
		return false, fmt.Errorf("capture file %s: %w", c.path, os.ErrClosed)
	}

	key := captureKey(msg)
	if _, ok := c.seen[key]; ok {
		return false, nil
	}
	if _, err := fmt.Fprintln(c.f, msg.Hex()); err != nil {
		return false, err
	}
	c.seen[key] = struct{}{}
	return true, nil
}

// Len returns the number of distinct messages known.
func (c *CaptureFile) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Path returns the file path.
func (c *CaptureFile) Path() string {
	return c.path
}

// Close closes the file.
func (c *CaptureFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}
