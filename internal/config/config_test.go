package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/irlink/internal/channel"
	"github.com/danmuck/irlink/internal/comm"
	"github.com/danmuck/irlink/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irlink.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSerialConfig(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
backend = "Serial"

[serial]
device = "/dev/ttyACM0"

[http]
addr = ":9400"
cors_origins = ["http://localhost:3000"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendSerial || cfg.Serial.Device != "/dev/ttyACM0" {
		t.Fatalf("unexpected serial config: %+v", cfg)
	}
	if cfg.Serial.Baud != 115200 {
		t.Fatalf("default baud not kept: %d", cfg.Serial.Baud)
	}
	if cfg.HTTP.Addr != ":9400" || len(cfg.HTTP.CorsOrigins) != 1 {
		t.Fatalf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Rendezvous.Room != "Room A" {
		t.Fatalf("default room not kept: %q", cfg.Rendezvous.Room)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
backend = "disabled"
baudrate = 9600
`)
	if _, err := Load(path); !errors.Is(err, ErrUnknownKeys) {
		t.Fatalf("expected ErrUnknownKeys, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown backend", func(c *Config) { c.Backend = "bluetooth" }, ErrUnknownBackend},
		{"serial without device", func(c *Config) { c.Backend = BackendSerial }, ErrMissingField},
		{"rendezvous without room", func(c *Config) { c.Backend, c.Rendezvous.Room = BackendRendezvous, " " }, ErrMissingField},
		{"network without port", func(c *Config) { c.Backend = BackendNetwork }, ErrMissingField},
		{"missing http addr", func(c *Config) { c.HTTP.Addr = "" }, ErrMissingField},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		if err := Validate(cfg); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	cfg := Default()
	cfg.Rendezvous.MeetTimeout = "soon"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected meet timeout parse error")
	}
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestMeetTimeoutDuration(t *testing.T) {
	testlog.Start(t)
	d, err := RendezvousConfig{MeetTimeout: "1500ms"}.MeetTimeoutDuration()
	if err != nil || d != 1500*time.Millisecond {
		t.Fatalf("got=%v err=%v", d, err)
	}
	d, err = RendezvousConfig{}.MeetTimeoutDuration()
	if err != nil || d != 0 {
		t.Fatalf("empty timeout got=%v err=%v", d, err)
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	testlog.Start(t)
	for _, backend := range []string{BackendDisabled, BackendSerial, BackendRendezvous, BackendNetwork} {
		path := filepath.Join(t.TempDir(), "irlink.toml")
		if err := WriteTemplate(path, backend, false); err != nil {
			t.Fatalf("%s: write template: %v", backend, err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load template: %v", backend, err)
		}
		if cfg.Backend != backend {
			t.Fatalf("template backend got=%q want=%q", cfg.Backend, backend)
		}
		if err := WriteTemplate(path, backend, false); err == nil {
			t.Fatalf("%s: expected refusal to overwrite", backend)
		}
	}
	if _, err := Template("carrier-pigeon"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestSelectAppliesBackend(t *testing.T) {
	testlog.Start(t)
	cases := map[string]channel.Kind{
		BackendDisabled:   channel.KindDisabled,
		BackendSerial:     channel.KindSerial,
		BackendRendezvous: channel.KindRendezvous,
		BackendNetwork:    channel.KindNetwork,
	}
	for backend, want := range cases {
		cfg := Default()
		cfg.Backend = backend
		cfg.Serial.Device = "/dev/ttyUSB0"
		cfg.Network.DestinationPort = 7401
		opts, err := HandlerOptions(cfg)
		if err != nil {
			t.Fatalf("%s: handler options: %v", backend, err)
		}
		h := comm.NewHandler(opts...)
		Select(h, cfg)
		if h.Active() != want {
			t.Fatalf("%s: active got=%s want=%s", backend, h.Active(), want)
		}
	}
}
