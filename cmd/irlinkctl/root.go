package main

import (
	"context"
	"fmt"

	"github.com/danmuck/irlink/internal/comm"
	"github.com/danmuck/irlink/internal/config"
	"github.com/danmuck/irlink/internal/logging"
	"github.com/danmuck/irlink/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "irlinkctl"

// cli holds flag values and the config resolved before each command runs.
type cli struct {
	cfgFile  string
	logLevel string

	backend string
	device  string
	room    string
	src     uint16
	host    string
	dst     uint16

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "Exchange framed IR-control messages over serial, rendezvous, or UDP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.InitLogger(appName)
			return c.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "TOML config file (defaults apply when empty)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	flags.StringVar(&c.backend, "backend", "", "channel: disabled|serial|rendezvous|network")
	flags.StringVar(&c.device, "device", "", "serial device name")
	flags.StringVar(&c.room, "room", "", "rendezvous room")
	flags.Uint16Var(&c.src, "src", 0, "network source port")
	flags.StringVar(&c.host, "host", "", "network destination host")
	flags.Uint16Var(&c.dst, "dst", 0, "network destination port")

	root.AddCommand(
		newPortsCmd(),
		newRoomsCmd(),
		newSendCmd(c),
		newListenCmd(c),
		newServeCmd(c),
		newConfigCmd(),
	)
	return root
}

// resolve loads the config file and layers explicitly set flags over it.
func (c *cli) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if c.cfgFile != "" {
		loaded, err := config.Load(c.cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = c.backend
	}
	if flags.Changed("device") {
		cfg.Serial.Device = c.device
	}
	if flags.Changed("room") {
		cfg.Rendezvous.Room = c.room
	}
	if flags.Changed("src") {
		cfg.Network.SourcePort = c.src
	}
	if flags.Changed("host") {
		cfg.Network.DestinationHost = c.host
	}
	if flags.Changed("dst") {
		cfg.Network.DestinationPort = c.dst
	}
	// IRLINK_LOG_LEVEL stands unless a file or flag names a level.
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if cfg.Log.Level != "" {
		if !logging.SetLevel(cfg.Log.Level) {
			return fmt.Errorf("unknown log level %q", cfg.Log.Level)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// openHandler builds a handler for the resolved config and enables it.
func (c *cli) openHandler(ctx context.Context) (*comm.Handler, error) {
	opts, err := config.HandlerOptions(c.cfg)
	if err != nil {
		return nil, err
	}
	h := comm.NewHandler(opts...)
	config.Select(h, c.cfg)
	if err := h.Enable(ctx); err != nil {
		_ = h.Close()
		return nil, err
	}
	log.Info().Str("channel", h.Active().String()).Msg("channel enabled")
	return h, nil
}

func closeHandler(h *comm.Handler) {
	if err := h.Close(); err != nil {
		log.Warn().Err(err).Msg("channel release failed")
	}
}
