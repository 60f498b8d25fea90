package app

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/flightplot/internal/ingest/serial"
	"github.com/roman-kulish/flightplot/internal/logging"
)

// StdinPort reads telemetry from the standard input instead of a serial port.
const StdinPort = "-"

// Config represents the main application configuration
type Config struct {
	Settings  logging.Settings `yaml:"settings"`
	Device    DeviceConfig     `yaml:"device"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Storage   StorageConfig    `yaml:"storage"`
}

// DeviceConfig identifies the recorded aircraft
type DeviceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// TelemetryConfig represents telemetry settings
type TelemetryConfig struct {
	SerialPort string `yaml:"serialPort"`
	BaudRate   int    `yaml:"baudRate"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Config{
		Device:    DeviceConfig{Type: "fc"},
		Telemetry: TelemetryConfig{SerialPort: serial.AutoPort},
		Storage:   StorageConfig{DataDirectory: storageDir, MaxBatchSize: maxBatchSize},
	}
	if err = yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	var errs []error
	if c.Device.Name == "" {
		errs = append(errs, errors.New("device: name is required"))
	}
	if c.Storage.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("storage: maxBatchSize must be positive"))
	}
	if c.Telemetry.BaudRate < 0 {
		errs = append(errs, errors.New("telemetry: baudRate must not be negative"))
	}
	if _, err = logging.ParseLevel(c.Settings.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("settings: %w", err))
	}
	if err = errors.Join(errs...); err != nil {
		return nil, err
	}
	return &c, nil
}
