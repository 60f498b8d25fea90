package tcp

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/roman-kulish/flightplot/internal/channel"
)

// TimeColumn is the column holding sample timestamps. Integer columns are in
// microseconds, Arrow timestamp columns carry their own unit.
const TimeColumn = "timestamp"

const (
	maxMetadataSize = 1 << 20
	maxNameSize     = 1 << 12

	defaultMaxTableSize = 256 << 20
)

var errFrameTooLarge = errors.New("frame section exceeds size limit")

// TimelineRange is the time span of a frame in microseconds.
type TimelineRange struct {
	MinTimestamp *int64 `json:"min_timestamp"`
	MaxTimestamp *int64 `json:"max_timestamp"`
}

// Metadata is the JSON header of a frame.
type Metadata struct {
	Parameters    map[string]any    `json:"parameters"`
	VersionInfo   map[string]string `json:"version_info"`
	TableCount    int               `json:"table_count"`
	TableNames    []string          `json:"table_names"`
	TimelineRange TimelineRange     `json:"timeline_range"`
}

// Batch is the samples of one topic decoded from a table column.
type Batch struct {
	Topic   string
	Samples []channel.Sample
}

// Clock converts microsecond timestamps into seconds relative to the session
// start. The start is taken from the first frame that announces one, or from
// the first timestamp seen.
type Clock struct {
	start int64
	set   bool
}

func (c *Clock) observe(meta *Metadata) {
	if !c.set && meta.TimelineRange.MinTimestamp != nil {
		c.start, c.set = *meta.TimelineRange.MinTimestamp, true
	}
}

func (c *Clock) seconds(us int64) float64 {
	if !c.set {
		c.start, c.set = us, true
	}
	return float64(us-c.start) / 1e6
}

// ReadMetadata reads the length prefixed JSON header of a frame.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err // io.EOF here means a clean end of stream
	}
	if size > maxMetadataSize {
		return nil, fmt.Errorf("reading metadata: %w: %d bytes", errFrameTooLarge, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(buf, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if meta.TableCount < 0 {
		return nil, fmt.Errorf("decoding metadata: negative table count %d", meta.TableCount)
	}
	return &meta, nil
}

// TableHeader precedes the Arrow IPC stream of each table.
type TableHeader struct {
	Name string
	Size uint64
}

// ReadTableHeader reads the name and payload size of the next table.
func ReadTableHeader(r io.Reader) (TableHeader, error) {
	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return TableHeader{}, fmt.Errorf("reading table name length: %w", err)
	}
	if nameLen > maxNameSize {
		return TableHeader{}, fmt.Errorf("reading table name: %w: %d bytes", errFrameTooLarge, nameLen)
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return TableHeader{}, fmt.Errorf("reading table name: %w", err)
	}

	var size uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return TableHeader{}, fmt.Errorf("reading table size: %w", err)
	}
	return TableHeader{Name: string(name), Size: size}, nil
}

// DecodeTable reads an Arrow IPC stream and turns every non-time column into a
// batch of samples for topic "table/column".
func DecodeTable(name string, r io.Reader, clock *Clock) ([]Batch, error) {
	rdr, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream of %s: %w", name, err)
	}
	defer rdr.Release()

	byTopic := make(map[string]int)
	var batches []Batch

	for rdr.Next() {
		rec := rdr.Record()

		times, err := recordTimes(rec, clock)
		if err != nil {
			return batches, fmt.Errorf("decoding %s: %w", name, err)
		}

		for i, field := range rec.Schema().Fields() {
			if field.Name == TimeColumn {
				continue
			}
			values, ok := columnValues(rec.Column(i))
			if !ok {
				continue
			}

			topic := name + "/" + field.Name
			idx, seen := byTopic[topic]
			if !seen {
				idx = len(batches)
				byTopic[topic] = idx
				batches = append(batches, Batch{Topic: topic})
			}
			for row, t := range times {
				if math.IsNaN(t) {
					continue
				}
				batches[idx].Samples = append(batches[idx].Samples, channel.Sample{Time: t, Value: values[row]})
			}
		}
	}
	if err = rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return batches, fmt.Errorf("reading arrow stream of %s: %w", name, err)
	}
	return batches, nil
}

// recordTimes returns the time of each row in seconds, NaN for null stamps.
func recordTimes(rec arrow.Record, clock *Clock) ([]float64, error) {
	idx := rec.Schema().FieldIndices(TimeColumn)
	if len(idx) == 0 {
		return nil, fmt.Errorf("missing %q column", TimeColumn)
	}

	col := rec.Column(idx[0])
	times := make([]float64, col.Len())
	for i := range times {
		if col.IsNull(i) {
			times[i] = math.NaN()
			continue
		}
		switch arr := col.(type) {
		case *array.Int64:
			times[i] = clock.seconds(arr.Value(i))
		case *array.Uint64:
			times[i] = clock.seconds(int64(arr.Value(i)))
		case *array.Timestamp:
			unit := arr.DataType().(*arrow.TimestampType).Unit
			times[i] = clock.seconds(microseconds(int64(arr.Value(i)), unit))
		default:
			return nil, fmt.Errorf("unsupported %q column type %s", TimeColumn, col.DataType())
		}
	}
	return times, nil
}

// microseconds converts a timestamp of the given unit to the microseconds
// the clock works in.
func microseconds(v int64, unit arrow.TimeUnit) int64 {
	switch unit {
	case arrow.Second:
		return v * 1_000_000
	case arrow.Millisecond:
		return v * 1_000
	case arrow.Nanosecond:
		return v / 1_000
	default:
		return v
	}
}

// columnValues converts a numeric or boolean column to float32, NaN for nulls.
func columnValues(col arrow.Array) ([]float32, bool) {
	var at func(i int) float32

	switch arr := col.(type) {
	case *array.Float32:
		at = arr.Value
	case *array.Float64:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Int8:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Int16:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Int32:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Int64:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Uint8:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Uint16:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Uint32:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Uint64:
		at = func(i int) float32 { return float32(arr.Value(i)) }
	case *array.Boolean:
		at = func(i int) float32 {
			if arr.Value(i) {
				return 1
			}
			return 0
		}
	default:
		return nil, false
	}

	values := make([]float32, col.Len())
	for i := range values {
		if col.IsNull(i) {
			values[i] = float32(math.NaN())
			continue
		}
		values[i] = at(i)
	}
	return values, true
}
