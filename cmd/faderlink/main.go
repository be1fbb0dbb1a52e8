package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/bft-labs/faderlink"
	"github.com/bft-labs/faderlink/internal/adapters/gomidi"
	"github.com/bft-labs/faderlink/internal/app"
	"github.com/bft-labs/faderlink/internal/cliconfig"
	"github.com/bft-labs/faderlink/pkg/log"
)

const helpDescription = `
Talk to a Korg Kronos over MIDI system exclusive messages.

Highlights:
  - Tracks every mixer fader the keyboard reports and moves faders remotely.
  - Request/reply queries (mode, combi, program, settings) with bounded waits.
  - Waits for the device to appear and reconnects when it goes away.
  - Configure via file ($HOME/.faderlink/config.toml), FADERLINK_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  faderlink ports
  faderlink monitor --table
  faderlink mode --device "kronos"
  faderlink send "F0 42 30 68 12 F7" --wait
  faderlink set MASTER 100
  faderlink capture ~/kronos/unique.txt
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return faderlink.Version
}

// cli carries the configuration shared by all subcommands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	changed map[string]bool
	logger  log.Logger
}

// load layers file, environment and flags onto the defaults and builds the
// logger. Flags set on the command line always win.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.configFile()

	c.changed = map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { c.changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, c.changed); err != nil {
			return err
		}
	}

	// FADERLINK_* override the file but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(&c.cfg, c.changed); err != nil {
		return err
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logger, err := faderlink.NewLogger(c.cfg)
	if err != nil {
		return err
	}
	c.logger = logger
	c.logger.Debug("configuration",
		log.String("device", c.cfg.Device),
		log.String("log_backend", c.cfg.LogBackend),
		log.Duration("request_timeout", c.cfg.RequestTimeout),
		log.Int("sysex_buffer_size", c.cfg.SysExBufferSize),
	)
	return nil
}

func (c *cli) configFile() string {
	if c.cfgPath != "" {
		return c.cfgPath
	}
	return cliconfig.DefaultConfigPath()
}

// session connects using the loaded configuration.
func (c *cli) session(ctx context.Context, opts ...app.SessionOption) (*faderlink.Session, error) {
	return faderlink.Connect(ctx, c.cfg, c.logger, opts...)
}

func newRootCommand() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:               "faderlink",
		Short:             "Talk to a Korg Kronos over MIDI sysex",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.load(cmd) },
	}

	f := root.PersistentFlags()
	f.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.faderlink/config.toml)")
	f.StringVar(&c.cfg.Device, "device", c.cfg.Device, "case-insensitive substring of the MIDI port names")
	f.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&c.cfg.LogBackend, "log-backend", c.cfg.LogBackend, "log backend (zerolog, zap)")
	f.DurationVar(&c.cfg.PollInterval, "poll", c.cfg.PollInterval, "interval between device availability checks")
	f.DurationVar(&c.cfg.RequestTimeout, "timeout", c.cfg.RequestTimeout, "how long to wait for a reply")
	f.DurationVar(&c.cfg.ShutdownTimeout, "shutdown-timeout", c.cfg.ShutdownTimeout, "how long to wait for workers on exit")
	f.DurationVar(&c.cfg.ReconnectMin, "reconnect-min", c.cfg.ReconnectMin, "initial reconnect delay")
	f.DurationVar(&c.cfg.ReconnectMax, "reconnect-max", c.cfg.ReconnectMax, "maximum reconnect delay")
	f.IntVar(&c.cfg.SysExBufferSize, "sysex-buffer", c.cfg.SysExBufferSize, "sysex receive buffer size in bytes")
	if err := root.PersistentFlags().MarkHidden("sysex-buffer"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	root.AddCommand(
		newPortsCommand(c),
		newMonitorCommand(c),
		newModeCommand(c),
		newQueryCommand(c),
		newSendCommand(c),
		newSetCommand(c),
		newFadersCommand(c),
		newDiffCommand(c),
		newCaptureCommand(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	gomidi.CloseDriver()

	if err != nil {
		fmt.Fprintf(os.Stderr, "faderlink: %v\n", err)
		os.Exit(1)
	}
}
