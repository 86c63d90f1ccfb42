package config

import (
	"github.com/danmuck/irlink/internal/comm"
	"github.com/danmuck/irlink/internal/serial"
	"github.com/danmuck/irlink/internal/udp"
)

// HandlerOptions maps the file settings onto comm.Handler options.
func HandlerOptions(cfg Config) ([]comm.Option, error) {
	meet, err := cfg.Rendezvous.MeetTimeoutDuration()
	if err != nil {
		return nil, err
	}
	rdv := []udp.RendezvousOption{udp.WithMeetTimeout(meet)}
	if cfg.Rendezvous.Dir != "" {
		rdv = append(rdv, udp.WithRendezvousDir(cfg.Rendezvous.Dir))
	}
	return []comm.Option{
		comm.WithSerialOptions(serial.WithBaudRate(cfg.Serial.Baud)),
		comm.WithRendezvousOptions(rdv...),
	}, nil
}

// Select points h at the configured backend.
func Select(h *comm.Handler, cfg Config) {
	switch cfg.Backend {
	case BackendSerial:
		h.SelectSerial(cfg.Serial.Device)
	case BackendRendezvous:
		h.SelectRendezvous(cfg.Rendezvous.Room)
	case BackendNetwork:
		h.SelectNetwork(cfg.Network.SourcePort, cfg.Network.DestinationHost, cfg.Network.DestinationPort)
	}
}
