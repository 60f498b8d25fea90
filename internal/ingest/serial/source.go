// Package serial reads telemetry lines from a serial port.
package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/roman-kulish/flightplot/internal/ingest"
)

// AutoPort selects the first USB port with a known vendor id.
const AutoPort = "auto"

const defaultBaudRate = 115200

// USB-serial bridges commonly found on flight controllers and telemetry radios
var preferredVIDs = map[string]bool{
	"0483": true, // STM32 virtual COM port
	"1209": true, // ArduPilot / pid.codes
	"26AC": true, // 3D Robotics
	"2341": true, // Arduino
	"1A86": true, // CH340
	"10C4": true, // CP210x
	"0403": true, // FTDI
}

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(slog.String("source", "serial"))
	}
}

// WithBaudRate sets the port speed
func WithBaudRate(baud int) func(*Source) {
	return func(s *Source) {
		s.baudRate = baud
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint8) func(*Source) {
	return func(s *Source) {
		s.parseErrorsThreshold = threshold
	}
}

// Source ingests "topic,time,value" lines from a serial port.
type Source struct {
	port                 string
	baudRate             int
	parseErrorsThreshold uint8
	logger               *slog.Logger

	open func(name string, mode *serial.Mode) (io.ReadCloser, error)
}

// New creates a Source reading from port, which may be AutoPort.
func New(port string, options ...func(*Source)) *Source {
	s := Source{
		port:                 port,
		baudRate:             defaultBaudRate,
		parseErrorsThreshold: ingest.ParseErrorsThreshold,
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		open: func(name string, mode *serial.Mode) (io.ReadCloser, error) {
			return serial.Open(name, mode)
		},
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

func (s *Source) Name() string {
	return "serial " + s.port
}

// Run opens the port and ingests lines until the port closes, ctx is
// cancelled or too many consecutive lines fail to parse.
func (s *Source) Run(ctx context.Context, in *ingest.Ingestor) (err error) {
	name := s.port
	if name == AutoPort {
		if name, err = AutoSelectPort(); err != nil {
			return fmt.Errorf("auto-selecting port: %w", err)
		}
	}

	port, err := s.open(name, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("opening serial port %s: %w", name, err)
	}
	s.logger.Info(fmt.Sprintf("connected to %s @ %d", name, s.baudRate))

	stop := context.AfterFunc(ctx, func() {
		port.Close() // unblocks the pending read
	})
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	err = s.consume(port, in)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Source) consume(r io.Reader, in *ingest.Ingestor) error {
	batcher := ingest.NewBatcher(in)
	defer batcher.Close()

	var parseErrors uint8

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		topic, sample, err := ParseLine(line)
		if errors.Is(err, errSkipLine) {
			continue
		}
		if err != nil {
			parseErrors++
			s.logger.Warn(fmt.Sprintf("error parsing line: %s", err.Error()), slog.String("line", strings.TrimSpace(line)))

			if parseErrors >= s.parseErrorsThreshold {
				return ingest.ErrTooManyParseErrors
			}
			continue
		}
		parseErrors = 0 // reset counter

		// growth failures are logged by the ingestor, keep reading
		_ = batcher.Add(topic, sample)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("reading serial port: %w", err)
	}
	return nil
}

// AutoSelectPort returns the first USB port with a known vendor id, or the
// first port when none matches.
func AutoSelectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerating ports: %w", err)
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return ports[0].Name, nil
}
