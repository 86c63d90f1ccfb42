package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders Default as TOML with the selected backend and sample
// values for its required fields.
func Template(backend string) (string, error) {
	cfg := Default()
	if backend != "" {
		cfg.Backend = backend
	}
	cfg.Log.Level = "info"
	switch cfg.Backend {
	case BackendSerial:
		cfg.Serial.Device = "/dev/ttyUSB0"
	case BackendNetwork:
		cfg.Network.SourcePort = 7400
		cfg.Network.DestinationPort = 7401
	}
	if err := Validate(cfg); err != nil {
		return "", err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return string(data), nil
}

func WriteTemplate(path, backend string, overwrite bool) error {
	template, err := Template(backend)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
