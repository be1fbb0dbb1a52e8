package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/faderlink"
	"github.com/bft-labs/faderlink/internal/adapters/fs"
	"github.com/bft-labs/faderlink/internal/adapters/gomidi"
	"github.com/bft-labs/faderlink/internal/app"
	"github.com/bft-labs/faderlink/internal/cliconfig"
	"github.com/bft-labs/faderlink/internal/display"
	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/fader"
	"github.com/bft-labs/faderlink/internal/protocol"
	"github.com/bft-labs/faderlink/pkg/log"
)

func newPortsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List MIDI input and output ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, outs, err := gomidi.NewOpener(c.logger, c.cfg.SysExBufferSize).ListPorts()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Ports(ins, outs))
			return nil
		},
	}
}

func newMonitorCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Track fader movements until interrupted, reconnecting as needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.monitor(cmd.Context(), cmd)
		},
	}
	cmd.Flags().BoolVar(&c.cfg.Table, "table", c.cfg.Table, "print the fader table whenever it changes")
	cmd.Flags().StringVar(&c.cfg.CaptureFile, "capture-file", c.cfg.CaptureFile, "append unique sysex messages to this file")
	return cmd
}

func newCaptureCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "capture [file]",
		Short: "Record every distinct sysex message the device sends",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.cfg.CaptureFile = args[0]
			}
			if c.cfg.CaptureFile == "" {
				return fmt.Errorf("%w: capture file is required", domain.ErrInvalidConfig)
			}
			return c.monitor(cmd.Context(), cmd)
		},
	}
}

func (c *cli) monitor(ctx context.Context, cmd *cobra.Command) error {
	var opts []app.SessionOption
	if c.cfg.CaptureFile != "" {
		cf, err := fs.OpenCaptureFile(c.cfg.CaptureFile)
		if err != nil {
			return err
		}
		defer cf.Close()
		c.logger.Info("capturing sysex", log.String("path", cf.Path()), log.Int("known", cf.Len()))
		opts = append(opts, app.WithSessionReceiveObserver(captureObserver(cf, c.logger)))
	}

	sv := newSupervisor(c.cfg, c.changed, c.logger, opts...)
	if path := c.configFile(); path != "" && cliconfig.FileExists(path) {
		go sv.watch(ctx, path)
	}
	if c.cfg.Table {
		go sv.printTable(ctx, cmd.OutOrStdout(), time.Second)
	}
	return sv.run(ctx)
}

func captureObserver(cf *fs.CaptureFile, logger log.Logger) app.Observer {
	return func(msg domain.Message) {
		added, err := cf.Capture(msg)
		if err != nil {
			logger.Error("capture failed", log.String("path", cf.Path()), log.Err(err))
			return
		}
		if added {
			logger.Info("captured", log.Int("count", cf.Len()), log.String("msg", msg.Hex()))
		}
	}
}

func newModeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Print the device's current operating mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd.Context(), nil, func(ctx context.Context, s *faderlink.Session) error {
				mode, err := s.Coordinator().GetMode(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", mode.Name, mode.Code)
				return nil
			})
		},
	}
}

func newQueryCommand(c *cli) *cobra.Command {
	names := protocol.RequestNames()
	return &cobra.Command{
		Use:       fmt.Sprintf("query {%s}", strings.Join(names, "|")),
		Short:     "Send a canonical request and print the reply",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd.Context(), nil, func(ctx context.Context, s *faderlink.Session) error {
				reply, err := s.Coordinator().Query(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.Hex())
				return nil
			})
		},
	}
}

func newSendCommand(c *cli) *cobra.Command {
	var (
		wait   bool
		tagHex string
	)
	cmd := &cobra.Command{
		Use:   "send HEX",
		Short: "Send a raw message given as hex bytes",
		Long: strings.TrimSpace(`
Send a raw message given as hex bytes, e.g. "F0 42 30 68 12 F7".
With --wait the reply whose payload starts with the derived (or --tag)
prefix is printed.`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := domain.ParseHex(strings.Join(args, " "))
			if err != nil {
				return err
			}
			var tag []byte
			if tagHex != "" {
				if tag, err = parseTag(tagHex); err != nil {
					return err
				}
				wait = true
			}
			if !wait {
				return c.transmit(cmd.Context(), func(s *faderlink.Session) error {
					return s.Sender().Enqueue(msg)
				})
			}
			return c.withSession(cmd.Context(), nil, func(ctx context.Context, s *faderlink.Session) error {
				reply, err := s.Coordinator().SendWait(ctx, msg, tag)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.Hex())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the reply and print it")
	cmd.Flags().StringVar(&tagHex, "tag", "", "reply payload prefix as hex (implies --wait)")
	return cmd
}

func parseTag(s string) ([]byte, error) {
	tag, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: tag %q: %v", domain.ErrInvalidMessage, s, err)
	}
	if len(tag) == 0 {
		return nil, fmt.Errorf("%w: empty tag", domain.ErrInvalidMessage)
	}
	return tag, nil
}

func newSetCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set FADER VALUE",
		Short: "Move a fader; FADER is a name (e.g. MASTER) or an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: value %q", domain.ErrValueOutOfRange, args[1])
			}
			return c.transmit(cmd.Context(), func(s *faderlink.Session) error {
				addr, err := resolveFader(s.Registry(), args[0])
				if err != nil {
					return err
				}
				return s.SetFader(addr, value)
			})
		},
	}
}

func resolveFader(r *fader.Registry, arg string) (byte, error) {
	if f, ok := r.Lookup(arg); ok {
		return f.Address, nil
	}
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownAddress, arg)
	}
	f, err := r.Get(byte(n))
	if err != nil {
		return 0, err
	}
	return f.Address, nil
}

func newFadersCommand(c *cli) *cobra.Command {
	var listen time.Duration
	cmd := &cobra.Command{
		Use:   "faders",
		Short: "Listen for fader updates for a while and print the fader table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd.Context(), nil, func(ctx context.Context, s *faderlink.Session) error {
				select {
				case <-time.After(listen):
				case <-ctx.Done():
				case <-s.Crashed():
					return s.Err()
				}
				fmt.Fprintln(cmd.OutOrStdout(), display.Faders(s.Registry().Snapshot()))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&listen, "listen", 2*time.Second, "how long to collect fader updates")
	return cmd
}

func newDiffCommand(c *cli) *cobra.Command {
	var (
		snapshots int
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Record the last message at intervals and show which bytes changed",
		Long: strings.TrimSpace(`
Record the most recent message the device sent every --interval, --snapshots
times, then print the payload positions that differ between recordings.
Change one parameter on the device between recordings to locate it.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshots < 2 {
				return fmt.Errorf("%w: need at least 2 snapshots", domain.ErrInvalidConfig)
			}
			return c.withSession(cmd.Context(), nil, func(ctx context.Context, s *faderlink.Session) error {
				names := make([]string, 0, snapshots)
				for i := 0; i < snapshots; i++ {
					select {
					case <-time.After(interval):
					case <-ctx.Done():
						return ctx.Err()
					case <-s.Crashed():
						return s.Err()
					}
					name := fmt.Sprintf("#%d", i+1)
					if err := s.Listener().Record(name); err != nil {
						return err
					}
					names = append(names, name)
					c.logger.Info("recorded", log.String("name", name))
				}
				entries, err := s.Listener().Diff(names...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), display.Diff(names, entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&snapshots, "snapshots", 2, "number of recordings")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "time between recordings")
	return cmd
}

// withSession connects, runs fn and stops the session.
func (c *cli) withSession(ctx context.Context, opts []app.SessionOption, fn func(context.Context, *faderlink.Session) error) error {
	s, err := c.session(ctx, opts...)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	return errors.Join(runErr, s.Stop(c.cfg.ShutdownTimeout))
}

// transmit runs enqueue on a fresh session and returns once every queued
// message has left the sender, or the request timeout expires.
func (c *cli) transmit(ctx context.Context, enqueue func(*faderlink.Session) error) error {
	sent := make(chan struct{}, 16)
	observer := app.WithSessionTransmitObserver(func(domain.Message) {
		select {
		case sent <- struct{}{}:
		default:
		}
	})

	return c.withSession(ctx, []app.SessionOption{observer}, func(ctx context.Context, s *faderlink.Session) error {
		if err := enqueue(s); err != nil {
			return err
		}
		timer := time.NewTimer(c.cfg.RequestTimeout)
		defer timer.Stop()
		for {
			select {
			case <-sent:
				if s.Sender().Pending() == 0 {
					return nil
				}
			case <-s.Crashed():
				return s.Err()
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return fmt.Errorf("%w: message not transmitted", domain.ErrTimeout)
			}
		}
	})
}
