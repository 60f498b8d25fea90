// Package tcp receives telemetry tables over TCP. Each frame carries a JSON
// header followed by named Arrow IPC streams.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/flightplot/internal/ingest"
)

// DefaultAddress is the address the source listens on when none is set.
const DefaultAddress = "127.0.0.1:9999"

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(slog.String("source", "tcp"))
	}
}

// WithMaxTableSize limits the size of a single Arrow table payload.
func WithMaxTableSize(n uint64) func(*Source) {
	return func(s *Source) {
		s.maxTableSize = n
	}
}

// Source listens for connections and ingests every table column of every
// frame it receives.
type Source struct {
	address      string
	maxTableSize uint64
	logger       *slog.Logger

	mu    sync.Mutex
	clock Clock

	ready chan net.Addr
}

// New creates a Source listening on address, or DefaultAddress when empty.
func New(address string, options ...func(*Source)) *Source {
	if address == "" {
		address = DefaultAddress
	}
	s := Source{
		address:      address,
		maxTableSize: defaultMaxTableSize,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		ready:        make(chan net.Addr, 1),
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

func (s *Source) Name() string {
	return "tcp " + s.address
}

// Addr blocks until the listener is bound and returns its address.
func (s *Source) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-s.ready:
		s.ready <- addr
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run accepts connections until ctx is cancelled. Connections are served one
// at a time per goroutine; a broken connection is logged and dropped.
func (s *Source) Run(ctx context.Context, in *ingest.Ingestor) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	defer listener.Close()
	s.ready <- listener.Addr()
	s.logger.Info(fmt.Sprintf("listening on %s", listener.Addr()))

	var wg sync.WaitGroup
	defer wg.Wait()

	var conns sync.Map
	go func() {
		<-ctx.Done()
		listener.Close()
		conns.Range(func(k, _ any) bool {
			k.(net.Conn).Close()
			return true
		})
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		conns.Store(conn, struct{}{})
		if ctx.Err() != nil {
			// accepted while shutting down, after the connections were closed
			conn.Close()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conns.Delete(conn)
			defer conn.Close()

			logger := s.logger.With(slog.String("remote", conn.RemoteAddr().String()))
			logger.Info("connection opened")

			if err := s.serve(conn, in, logger); err != nil && ctx.Err() == nil {
				logger.Error(fmt.Sprintf("handling connection: %s", err.Error()))
			}
			logger.Info("connection closed")
		}()
	}
}

// serve reads frames until the peer closes the connection.
func (s *Source) serve(r io.Reader, in *ingest.Ingestor, logger *slog.Logger) error {
	for {
		meta, err := ReadMetadata(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		logger.Debug(fmt.Sprintf("received metadata: %d tables", meta.TableCount))

		s.mu.Lock()
		s.clock.observe(meta)
		s.mu.Unlock()

		for range meta.TableCount {
			if err = s.readTable(r, in, logger); err != nil {
				return err
			}
		}
	}
}

func (s *Source) readTable(r io.Reader, in *ingest.Ingestor, logger *slog.Logger) error {
	header, err := ReadTableHeader(r)
	if err != nil {
		return err
	}
	if header.Size > s.maxTableSize {
		return fmt.Errorf("table %s: %w: %s", header.Name, errFrameTooLarge, humanize.IBytes(header.Size))
	}

	payload := io.LimitReader(r, int64(header.Size))

	s.mu.Lock()
	batches, err := DecodeTable(header.Name, payload, &s.clock)
	s.mu.Unlock()
	if err != nil {
		// the table is skipped, framing is kept by draining its payload
		logger.Warn(err.Error(), slog.String("table", header.Name))
	}
	if _, err = io.Copy(io.Discard, payload); err != nil {
		return fmt.Errorf("skipping table %s: %w", header.Name, err)
	}

	for _, b := range batches {
		// growth failures are logged by the ingestor and do not stop the stream
		_ = in.Ingest(b.Topic, b.Samples)
	}
	return nil
}
