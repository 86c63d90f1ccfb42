package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendDisabled   = "disabled"
	BackendSerial     = "serial"
	BackendRendezvous = "rendezvous"
	BackendNetwork    = "network"
)

var (
	ErrUnknownBackend = errors.New("config: unknown backend")
	ErrMissingField   = errors.New("config: missing required field")
	ErrUnknownKeys    = errors.New("config: unknown keys")
)

type Config struct {
	Backend    string           `toml:"backend"`
	Serial     SerialConfig     `toml:"serial"`
	Rendezvous RendezvousConfig `toml:"rendezvous"`
	Network    NetworkConfig    `toml:"network"`
	HTTP       HTTPConfig       `toml:"http"`
	Log        LogConfig        `toml:"log"`
}

type SerialConfig struct {
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

type RendezvousConfig struct {
	Room        string `toml:"room"`
	Dir         string `toml:"dir"`
	MeetTimeout string `toml:"meet_timeout"`
}

type NetworkConfig struct {
	SourcePort      uint16 `toml:"source_port"`
	DestinationHost string `toml:"destination_host"`
	DestinationPort uint16 `toml:"destination_port"`
}

type HTTPConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// LogConfig.Level is empty unless set; empty keeps the process log level.
type LogConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Backend: BackendDisabled,
		Serial:  SerialConfig{Baud: 115200},
		Rendezvous: RendezvousConfig{
			Room:        "Room A",
			MeetTimeout: "30s",
		},
		Network: NetworkConfig{DestinationHost: "127.0.0.1"},
		HTTP:    HTTPConfig{Addr: "127.0.0.1:9300"},
	}
}

// Load decodes path over Default and validates the result. Keys the
// schema does not know are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w (%s): %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	switch cfg.Backend {
	case BackendDisabled:
	case BackendSerial:
		if strings.TrimSpace(cfg.Serial.Device) == "" {
			return fmt.Errorf("%w: serial.device", ErrMissingField)
		}
	case BackendRendezvous:
		if strings.TrimSpace(cfg.Rendezvous.Room) == "" {
			return fmt.Errorf("%w: rendezvous.room", ErrMissingField)
		}
	case BackendNetwork:
		if strings.TrimSpace(cfg.Network.DestinationHost) == "" {
			return fmt.Errorf("%w: network.destination_host", ErrMissingField)
		}
		if cfg.Network.DestinationPort == 0 {
			return fmt.Errorf("%w: network.destination_port", ErrMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	if _, err := cfg.Rendezvous.MeetTimeoutDuration(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("%w: http.addr", ErrMissingField)
	}
	return nil
}

// MeetTimeoutDuration parses MeetTimeout; empty means the link default.
func (r RendezvousConfig) MeetTimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(r.MeetTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse rendezvous.meet_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("rendezvous.meet_timeout must not be negative, got %s", d)
	}
	return d, nil
}
