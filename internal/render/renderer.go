package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
)

const (
	defaultBufferCacheSize = 256
	defaultLogInterval     = 5 * time.Second
)

// WithLogger sets the logger for the renderer
func WithLogger(logger *slog.Logger) func(*PlotRenderer) {
	return func(r *PlotRenderer) {
		r.logger = logger.With(slog.String("component", "renderer"))
	}
}

// WithBufferCacheSize sets how many uploaded series buffers are kept for reuse
// across frames.
func WithBufferCacheSize(size int) func(*PlotRenderer) {
	return func(r *PlotRenderer) {
		r.cacheSize = size
	}
}

// WithTracker makes the renderer share a bounds tracker with other readers.
func WithTracker(t *bounds.Tracker) func(*PlotRenderer) {
	return func(r *PlotRenderer) {
		r.tracker = t
	}
}

// WithLogInterval sets the minimum interval between two log records for the
// same tile and error kind.
func WithLogInterval(d time.Duration) func(*PlotRenderer) {
	return func(r *PlotRenderer) {
		r.logInterval = d
	}
}

// TileReport is the outcome of rendering one tile.
type TileReport struct {
	Title string

	// Bounds are the axis bounds the series were normalised against. They
	// are Empty when nothing was drawn.
	Bounds bounds.Bounds

	// Drawn is the number of series drawn.
	Drawn int

	// Errors holds tile and topic scoped problems, see ErrUnknownTopic,
	// ErrNoData, ErrDegenerateBounds and ErrUploadFailed.
	Errors []error
}

// FrameReport is the outcome of one RenderFrame call.
type FrameReport struct {
	Tiles []TileReport
}

// Err joins every tile error except ErrUnknownTopic and ErrNoData, which only
// mean that data has not arrived yet.
func (f FrameReport) Err() error {
	var errs []error
	for _, tile := range f.Tiles {
		for _, err := range tile.Errors {
			if errors.Is(err, ErrUnknownTopic) || errors.Is(err, ErrNoData) {
				continue
			}
			errs = append(errs, fmt.Errorf("tile %q: %w", tile.Title, err))
		}
	}
	return errors.Join(errs...)
}

type uploaded struct {
	buffer  Buffer
	version uint64
	count   int
}

type series struct {
	style TopicStyle
	snap  channel.Snapshot
	data  bounds.Bounds
}

// PlotRenderer draws tiles from the channels of a registry. It must be used
// from a single render goroutine.
type PlotRenderer struct {
	registry *channel.Registry
	backend  Backend
	tracker  *bounds.Tracker
	logger   *slog.Logger

	cacheSize  int
	buffers    *lru.Cache[string, *uploaded]
	evicted    []Buffer // released once the frame no longer draws them
	generation uint64
	scratch    []float32

	logInterval time.Duration
	lastLogged  map[string]time.Time
}

// NewPlotRenderer creates a renderer reading from registry and drawing with
// backend.
func NewPlotRenderer(registry *channel.Registry, backend Backend, options ...func(*PlotRenderer)) (*PlotRenderer, error) {
	if registry == nil {
		return nil, errors.New("registry required")
	}
	if backend == nil {
		return nil, errors.New("backend required")
	}

	r := PlotRenderer{
		registry:    registry,
		backend:     backend,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize:   defaultBufferCacheSize,
		logInterval: defaultLogInterval,
		lastLogged:  make(map[string]time.Time),
		generation:  registry.Generation(),
	}
	for _, option := range options {
		option(&r)
	}
	if r.tracker == nil {
		r.tracker = bounds.NewTracker()
	}

	cache, err := lru.NewWithEvict[string, *uploaded](r.cacheSize, func(_ string, u *uploaded) {
		r.evicted = append(r.evicted, u.buffer)
	})
	if err != nil {
		return nil, fmt.Errorf("creating buffer cache: %w", err)
	}
	r.buffers = cache

	return &r, nil
}

// Tracker returns the bounds tracker used by the renderer.
func (r *PlotRenderer) Tracker() *bounds.Tracker {
	return r.tracker
}

// RenderFrame draws every tile once. Failures are confined to the tile they
// occur in and are listed in the report.
func (r *PlotRenderer) RenderFrame(specs []PlotSpec) FrameReport {
	release := r.registry.Hold()
	defer release()
	defer r.releaseEvicted()

	if gen := r.registry.Generation(); gen != r.generation {
		r.tracker.Reset()
		r.buffers.Purge()
		r.generation = gen
	}

	report := FrameReport{Tiles: make([]TileReport, 0, len(specs))}

	fb, framed := r.backend.(FrameBackend)
	if framed {
		if err := fb.BeginFrame(); err != nil {
			r.logger.Error(fmt.Sprintf("beginning frame: %s", err.Error()))
			for i := range specs {
				report.Tiles = append(report.Tiles, TileReport{
					Title:  specs[i].Title,
					Bounds: bounds.Empty(),
					Errors: []error{fmt.Errorf("%w: %w", ErrUploadFailed, err)},
				})
			}
			return report
		}
	}

	for i := range specs {
		tile := r.renderTile(&specs[i])
		r.logTile(i, &tile)
		report.Tiles = append(report.Tiles, tile)
	}

	if framed {
		if err := fb.EndFrame(); err != nil {
			r.logger.Error(fmt.Sprintf("ending frame: %s", err.Error()))
		}
	}

	return report
}

func (r *PlotRenderer) renderTile(spec *PlotSpec) TileReport {
	tile := TileReport{Title: spec.Title, Bounds: bounds.Empty()}

	var drawable []series
	for _, style := range spec.Topics {
		ch, ok := r.registry.Get(style.Topic)
		if !ok {
			tile.Errors = append(tile.Errors, &TopicError{Topic: style.Topic, Err: ErrUnknownTopic})
			continue
		}

		snap := ch.Snapshot()
		b, ok := r.tracker.Observe(ch, snap)
		if snap.IsEmpty() || !ok {
			tile.Errors = append(tile.Errors, &TopicError{Topic: style.Topic, Err: ErrNoData})
			continue
		}

		drawable = append(drawable, series{style: style, snap: snap, data: b})
	}
	if len(drawable) == 0 {
		return tile
	}

	axes, ok := tileBounds(spec, drawable)
	if !ok {
		tile.Errors = append(tile.Errors, ErrNoData)
		return tile
	}
	axes = PadBounds(ApplyValueMargin(axes, spec.ValueMargin))

	calls := make([]DrawCall, 0, len(drawable))
	for _, s := range drawable {
		u, err := ComputeUniforms(axes, s.style.Color, spec.pointSize())
		if err != nil {
			tile.Errors = append(tile.Errors, fmt.Errorf("%w: %s", err, axes))
			return tile
		}

		buf, err := r.upload(s.style.Topic, s.snap)
		if err != nil {
			tile.Errors = append(tile.Errors, &TopicError{Topic: s.style.Topic, Err: err})
			return tile
		}

		calls = append(calls, DrawCall{
			Viewport: spec.Viewport,
			Buffer:   buf,
			Uniforms: u,
			Count:    s.snap.Len(),
			Mode:     spec.Mode,
		})
	}

	tile.Bounds = axes
	for i, call := range calls {
		if err := r.backend.Draw(call); err != nil {
			tile.Errors = append(tile.Errors, &TopicError{
				Topic: drawable[i].style.Topic,
				Err:   fmt.Errorf("%w: drawing: %w", ErrUploadFailed, err),
			})
			// the buffer may be in an unknown state, upload it again next frame
			r.buffers.Remove(drawable[i].style.Topic)
			continue
		}
		tile.Drawn++
	}

	return tile
}

// tileBounds picks the axes a tile is normalised against: the override when
// set, the followed window, or the union of every series.
func tileBounds(spec *PlotSpec, drawable []series) (bounds.Bounds, bool) {
	if spec.AxisOverride != nil {
		return *spec.AxisOverride, !spec.AxisOverride.IsEmpty()
	}

	union := bounds.Empty()
	for _, s := range drawable {
		union = union.Union(s.data)
	}
	if spec.Window <= 0 || union.IsEmpty() {
		return union, !union.IsEmpty()
	}

	axes := bounds.Empty()
	axes.MaxTime = union.MaxTime
	axes.MinTime = union.MaxTime - spec.Window
	for _, s := range drawable {
		from, to := s.snap.Range(axes.MinTime, axes.MaxTime)
		inWindow := bounds.Empty().Fold(s.snap.Samples()[from:to])
		axes.MinValue = min(axes.MinValue, inWindow.MinValue)
		axes.MaxValue = max(axes.MaxValue, inWindow.MaxValue)
	}
	if axes.MinValue > axes.MaxValue {
		// nothing inside the window, keep the whole value range
		axes.MinValue, axes.MaxValue = union.MinValue, union.MaxValue
	}
	return axes, true
}

// upload returns a buffer holding the snapshot, reusing the previous upload
// of the topic when the channel has not changed since.
func (r *PlotRenderer) upload(topic string, snap channel.Snapshot) (Buffer, error) {
	if u, ok := r.buffers.Get(topic); ok && u.version == snap.Version() && u.count == snap.Len() {
		return u.buffer, nil
	}

	r.scratch = Interleave(snap.Samples(), r.scratch)
	buf, err := r.backend.Upload(r.scratch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	// Add does not evict on replace, queue the stale buffer here.
	if old, ok := r.buffers.Peek(topic); ok {
		r.evicted = append(r.evicted, old.buffer)
	}
	r.buffers.Add(topic, &uploaded{buffer: buf, version: snap.Version(), count: snap.Len()})
	return buf, nil
}

// releaseEvicted frees the buffers dropped from the cache during the frame.
// A tile with more topics than the cache holds evicts buffers it still has
// to draw, so they are kept alive until the frame ends.
func (r *PlotRenderer) releaseEvicted() {
	for _, buf := range r.evicted {
		buf.Release()
	}
	clear(r.evicted)
	r.evicted = r.evicted[:0]
}

func (r *PlotRenderer) logTile(index int, tile *TileReport) {
	now := time.Now()
	for _, err := range tile.Errors {
		level := slog.LevelWarn
		kind := "error"
		switch {
		case errors.Is(err, ErrUnknownTopic):
			level, kind = slog.LevelDebug, "unknown"
		case errors.Is(err, ErrNoData):
			level, kind = slog.LevelDebug, "nodata"
		case errors.Is(err, ErrDegenerateBounds):
			kind = "degenerate"
		case errors.Is(err, ErrUploadFailed):
			kind = "upload"
		}

		key := fmt.Sprintf("%d/%s", index, kind)
		if last, ok := r.lastLogged[key]; ok && now.Sub(last) < r.logInterval {
			continue
		}
		r.lastLogged[key] = now

		r.logger.Log(context.Background(), level, fmt.Sprintf("rendering tile: %s", err.Error()),
			slog.String("tile", tile.Title),
			slog.Int("index", index))
	}
}
