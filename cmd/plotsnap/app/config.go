package app

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/roman-kulish/flightplot/internal/config"
	"github.com/roman-kulish/flightplot/internal/render/raster"
)

type Config struct {
	*config.Config

	OutputFile string
	Format     raster.Format
	Duration   time.Duration
}

func NewConfigFromCLI() (*Config, error) {
	c := Config{Format: raster.ImagePNG}

	var configPath, imageFormat, logLevel string
	var sessionID int64
	var width, height int
	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	flag.StringVar(&imageFormat, "f", string(raster.ImagePNG), "Output image format. [png, jpeg]")
	flag.DurationVar(&c.Duration, "d", 0, "How long to ingest from live sources before rendering")
	flag.Int64Var(&sessionID, "s", 0, "Replay session ID, overrides the configuration")
	flag.IntVar(&width, "width", 0, "Image width, overrides the configuration")
	flag.IntVar(&height, "height", 0, "Image height, overrides the configuration")
	flag.StringVar(&logLevel, "log-level", "", "Log level, overrides the configuration. [debug, info, warn, error]")
	flag.Parse()

	var err error
	if configPath == "" {
		err = errors.New("configuration file is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if c.Duration < 0 {
		err = errors.New("duration must not be negative")
	} else {
		c.Format, err = raster.ParseFormat(imageFormat)
	}
	if err != nil {
		flag.Usage()
		return nil, err
	}

	if c.Config, err = config.Load(configPath); err != nil {
		return nil, fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "s":
			if c.Sources.Replay != nil {
				c.Sources.Replay.SessionID = sessionID
			}
		case "width":
			c.Render.Width = width
		case "height":
			c.Render.Height = height
		case "log-level":
			c.Settings.LogLevel = logLevel
		}
	})
	if err = c.Validate(); err != nil {
		return nil, err
	}

	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return &c, nil
}
