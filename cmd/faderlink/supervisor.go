package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/faderlink"
	"github.com/bft-labs/faderlink/internal/app"
	"github.com/bft-labs/faderlink/internal/cliconfig"
	"github.com/bft-labs/faderlink/internal/display"
	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/fader"
	"github.com/bft-labs/faderlink/pkg/lifecycle"
	"github.com/bft-labs/faderlink/pkg/log"
)

// supervisor keeps a session open until ctx is done, reconnecting with
// backoff whenever a worker crashes.
type supervisor struct {
	connect func(context.Context, cliconfig.Config, log.Logger, ...app.SessionOption) (*faderlink.Session, error)
	logger  log.Logger
	opts    []app.SessionOption
	changed map[string]bool

	mu      sync.Mutex
	cfg     cliconfig.Config
	current *faderlink.Session
}

func newSupervisor(cfg cliconfig.Config, changed map[string]bool, logger log.Logger, opts ...app.SessionOption) *supervisor {
	return &supervisor{connect: faderlink.Connect, cfg: cfg, changed: changed, logger: logger, opts: opts}
}

func (sv *supervisor) config() cliconfig.Config {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.cfg
}

func (sv *supervisor) setCurrent(s *faderlink.Session) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.current = s
}

func (sv *supervisor) session() *faderlink.Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.current
}

func (sv *supervisor) run(ctx context.Context) error {
	cfg := sv.config()
	backoff := lifecycle.NewBackoff(cfg.ReconnectMin, cfg.ReconnectMax)

	for {
		cfg = sv.config()
		s, err := sv.connect(ctx, cfg, sv.logger, sv.opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrInvalidConfig) {
				return err
			}
			sv.logger.Warn("connect failed, retrying", log.Err(err), log.Duration("backoff", backoff.Current()))
			if err := backoff.Wait(ctx); err != nil {
				return nil
			}
			continue
		}
		sv.setCurrent(s)
		connected := time.Now()

		select {
		case <-ctx.Done():
			sv.setCurrent(nil)
			sv.logger.Info("shutting down")
			return s.Stop(cfg.ShutdownTimeout)
		case <-s.Crashed():
		}

		sv.setCurrent(nil)
		cause := s.Err()
		if err := s.Stop(cfg.ShutdownTimeout); err != nil {
			sv.logger.Warn("session stop", log.Err(err))
		}

		// A session that stayed up for a while earns a fast reconnect.
		if time.Since(connected) > cfg.ReconnectMax {
			backoff.Reset()
		}
		sv.logger.Warn("session lost, reconnecting", log.Err(cause), log.Duration("backoff", backoff.Current()))
		if err := backoff.Wait(ctx); err != nil {
			return nil
		}
	}
}

// watch applies config file changes until ctx is done.
func (sv *supervisor) watch(ctx context.Context, path string) {
	w := cliconfig.NewWatcher(path, sv.logger, sv.reload)
	if err := w.Run(ctx); err != nil {
		sv.logger.Warn("config watcher stopped", log.String("path", path), log.Err(err))
	}
}

// reload applies the request timeout and log level from fc. Other changes
// take effect on the next connection.
func (sv *supervisor) reload(fc cliconfig.FileConfig) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	next, err := reloadConfig(sv.cfg, fc, sv.changed)
	if err != nil {
		sv.logger.Warn("ignoring config change", log.Err(err))
		return
	}
	sv.cfg = next

	if ls, ok := sv.logger.(log.LevelSetter); ok {
		ls.SetLevel(next.LogLevel)
	}
	if sv.current != nil {
		sv.current.Coordinator().SetTimeout(next.RequestTimeout)
	}
	sv.logger.Info("config applied",
		log.String("log_level", next.LogLevel),
		log.Duration("request_timeout", next.RequestTimeout),
	)
}

// reloadConfig layers fc and the environment onto cur. The log backend
// cannot change without a restart.
func reloadConfig(cur cliconfig.Config, fc cliconfig.FileConfig, changed map[string]bool) (cliconfig.Config, error) {
	next := cur
	if err := cliconfig.ApplyFileConfig(&next, fc, changed); err != nil {
		return cur, err
	}
	if err := cliconfig.ApplyEnvConfig(&next, changed); err != nil {
		return cur, err
	}
	next.LogBackend = cur.LogBackend
	if err := next.Validate(); err != nil {
		return cur, err
	}
	return next, nil
}

// printTable writes the fader table to w whenever it changes.
func (sv *supervisor) printTable(ctx context.Context, w io.Writer, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s := sv.session()
		if s == nil {
			continue
		}
		snaps := s.Registry().Snapshot()
		if key := snapshotKey(snaps); key != last {
			last = key
			fmt.Fprintln(w, display.Faders(snaps))
		}
	}
}

func snapshotKey(snaps []fader.Snapshot) string {
	return fmt.Sprint(snaps)
}
