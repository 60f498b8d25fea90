// Package config loads the yaml configuration shared by the plot tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/logging"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	BackendGL     = "gl"
	BackendRaster = "raster"

	ModeLine   = "line"
	ModePoints = "points"

	defaultWidth   = 1280
	defaultHeight  = 720
	defaultColumns = 2
	defaultFPS     = 60
)

// Config represents the main application configuration
type Config struct {
	Settings logging.Settings `yaml:"settings"`
	Render   RenderConfig     `yaml:"render"`
	Sources  SourcesConfig    `yaml:"sources"`
	Tiles    []TileConfig     `yaml:"tiles"`
}

// RenderConfig represents the output surface settings
type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Columns    int    `yaml:"columns"`
	FPS        int    `yaml:"fps"`
	Background *Color `yaml:"background"`
	Foreground *Color `yaml:"foreground"`
	Backend    string `yaml:"backend"`
}

// SourcesConfig lists the ingestion sources; each one is optional.
// MaxSamples caps every channel, zero means unbounded.
type SourcesConfig struct {
	MaxSamples int           `yaml:"maxSamples"`
	TCP        *TCPConfig    `yaml:"tcp"`
	Serial     *SerialConfig `yaml:"serial"`
	Replay     *ReplayConfig `yaml:"replay"`
}

// TCPConfig represents the Arrow table receiver settings
type TCPConfig struct {
	Address        string `yaml:"address"`
	MaxTableSizeMB int    `yaml:"maxTableSizeMB"`
}

// SerialConfig represents the serial line receiver settings
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baudRate"`
}

// ReplayConfig represents the recorded session playback settings
type ReplayConfig struct {
	Database    string   `yaml:"database"`
	SessionID   int64    `yaml:"sessionId"`
	Speed       *float64 `yaml:"speed"`
	Loop        bool     `yaml:"loop"`
	SkipRecords int      `yaml:"skipRecords"`
}

// TileConfig represents one plot of the grid
type TileConfig struct {
	Title       string        `yaml:"title"`
	Topics      []TopicConfig `yaml:"topics"`
	PointSize   float32       `yaml:"pointSize"`
	Mode        string        `yaml:"mode"`
	Axis        *AxisConfig   `yaml:"axis"`
	Window      Duration      `yaml:"window"`
	ValueMargin float64       `yaml:"valueMargin"`
	Readout     string        `yaml:"readout"`
}

// TopicConfig binds a topic to an optional colour
type TopicConfig struct {
	Topic string `yaml:"topic"`
	Color *Color `yaml:"color"`
}

// UnmarshalYAML accepts either a bare topic name or a mapping.
func (t *TopicConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		t.Topic = value.Value
		return nil
	}

	type plain TopicConfig
	return value.Decode((*plain)(t))
}

// AxisConfig fixes the plot axes
type AxisConfig struct {
	MinTime  float64 `yaml:"minTime"`
	MaxTime  float64 `yaml:"maxTime"`
	MinValue float64 `yaml:"minValue"`
	MaxValue float64 `yaml:"maxValue"`
}

// Duration is a time.Duration read from strings such as "30s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration: %w", err)
	}
	defer f.Close()

	var c Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	c.SetDefaults()
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetDefaults fills every unset optional value.
func (c *Config) SetDefaults() {
	r := &c.Render
	if r.Width == 0 {
		r.Width = defaultWidth
	}
	if r.Height == 0 {
		r.Height = defaultHeight
	}
	if r.Columns == 0 {
		r.Columns = defaultColumns
	}
	if r.FPS == 0 {
		r.FPS = defaultFPS
	}
	if r.Backend == "" {
		r.Backend = BackendGL
	}
	if r.Background == nil {
		r.Background = &Color{R: 1, G: 1, B: 1, A: 1}
	}
	if r.Foreground == nil {
		r.Foreground = &Color{A: 1}
	}

	for i := range c.Tiles {
		if c.Tiles[i].Mode == "" {
			c.Tiles[i].Mode = ModeLine
		}
		if c.Tiles[i].Readout == "" {
			c.Tiles[i].Readout = channel.Previous.String()
		}
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if _, err := logging.ParseLevel(c.Settings.LogLevel); err != nil {
		fail("settings: %s", err)
	}

	r := c.Render
	if r.Width <= 0 || r.Height <= 0 {
		fail("render: size %dx%d must be positive", r.Width, r.Height)
	}
	if r.Columns <= 0 {
		fail("render: columns must be positive")
	}
	if r.FPS <= 0 {
		fail("render: fps must be positive")
	}
	if r.Backend != BackendGL && r.Backend != BackendRaster {
		fail("render: unknown backend %q", r.Backend)
	}

	if c.Sources.MaxSamples < 0 {
		fail("sources: maxSamples must not be negative")
	}
	if s := c.Sources.Replay; s != nil {
		if s.Database == "" {
			fail("sources.replay: database is required")
		}
		if s.Speed != nil && *s.Speed < 0 {
			fail("sources.replay: speed must not be negative")
		}
	}
	if s := c.Sources.Serial; s != nil && s.Port == "" {
		fail("sources.serial: port is required")
	}
	if s := c.Sources.TCP; s != nil && s.MaxTableSizeMB < 0 {
		fail("sources.tcp: maxTableSizeMB must not be negative")
	}

	if len(c.Tiles) == 0 {
		fail("tiles: at least one tile is required")
	}
	for i, t := range c.Tiles {
		name := fmt.Sprintf("tiles[%d]", i)
		if t.Title != "" {
			name = fmt.Sprintf("tiles[%d] %q", i, t.Title)
		}

		if len(t.Topics) == 0 {
			fail("%s: at least one topic is required", name)
		}
		for _, topic := range t.Topics {
			if strings.TrimSpace(topic.Topic) == "" {
				fail("%s: empty topic", name)
			}
		}
		if t.Mode != ModeLine && t.Mode != ModePoints {
			fail("%s: unknown mode %q", name, t.Mode)
		}
		if _, err := channel.ParseInterpolation(t.Readout); err != nil {
			fail("%s: %s", name, err)
		}
		if t.PointSize < 0 {
			fail("%s: pointSize must not be negative", name)
		}
		if t.Window < 0 {
			fail("%s: window must not be negative", name)
		}
		if t.ValueMargin < 0 {
			fail("%s: valueMargin must not be negative", name)
		}
		if a := t.Axis; a != nil && (a.MinTime > a.MaxTime || a.MinValue > a.MaxValue) {
			fail("%s: axis minimum is above maximum", name)
		}
	}

	return errors.Join(errs...)
}
