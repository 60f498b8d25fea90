package app

import (
	"errors"
	"flag"
	"fmt"

	"github.com/roman-kulish/flightplot/internal/config"
)

func NewConfigFromCLI() (*config.Config, error) {
	var configPath, backend, logLevel, address string
	var width, height, fps int
	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.StringVar(&backend, "backend", "", "Render backend, overrides the configuration. [gl, raster]")
	flag.IntVar(&width, "width", 0, "Window width, overrides the configuration")
	flag.IntVar(&height, "height", 0, "Window height, overrides the configuration")
	flag.IntVar(&fps, "fps", 0, "Frame rate limit, overrides the configuration")
	flag.StringVar(&address, "listen", "", "Listen for Arrow tables on this address, overrides the configuration")
	flag.StringVar(&logLevel, "log-level", "", "Log level, overrides the configuration. [debug, info, warn, error]")
	flag.Parse()

	if configPath == "" {
		flag.Usage()
		return nil, errors.New("configuration file is required")
	}

	c, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			c.Render.Backend = backend
		case "width":
			c.Render.Width = width
		case "height":
			c.Render.Height = height
		case "fps":
			c.Render.FPS = fps
		case "listen":
			if c.Sources.TCP == nil {
				c.Sources.TCP = &config.TCPConfig{}
			}
			c.Sources.TCP.Address = address
		case "log-level":
			c.Settings.LogLevel = logLevel
		}
	})
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
