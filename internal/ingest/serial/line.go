package serial

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roman-kulish/flightplot/internal/channel"
)

var errSkipLine = errors.New("skip line")

// ParseLine parses a "topic,time,value" line. Time is in seconds. Blank lines
// and lines starting with '#' yield errSkipLine.
func ParseLine(line string) (string, channel.Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", channel.Sample{}, errSkipLine
	}

	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return "", channel.Sample{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	topic := strings.TrimSpace(fields[0])
	if topic == "" {
		return "", channel.Sample{}, errors.New("empty topic")
	}

	t, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return "", channel.Sample{}, fmt.Errorf("parsing time: %w", err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 32)
	if err != nil {
		return "", channel.Sample{}, fmt.Errorf("parsing value: %w", err)
	}

	return topic, channel.Sample{Time: t, Value: float32(v)}, nil
}
