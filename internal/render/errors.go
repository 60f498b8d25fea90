package render

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTopic means a tile references a topic that has not been
	// ingested yet. It is reported but is not a failure.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrNoData means a topic exists but has nothing drawable yet.
	ErrNoData = errors.New("no data")

	// ErrDegenerateBounds means an axis has zero span even after padding.
	// The tile is skipped for the frame.
	ErrDegenerateBounds = errors.New("degenerate bounds")

	// ErrUploadFailed means the backend could not upload or draw a series.
	// The tile is skipped for the frame and retried on the next one.
	ErrUploadFailed = errors.New("upload failed")
)

// TopicError attaches the topic to a tile-scoped error.
type TopicError struct {
	Topic string
	Err   error
}

func (e *TopicError) Error() string {
	return fmt.Sprintf("topic %q: %s", e.Topic, e.Err)
}

func (e *TopicError) Unwrap() error {
	return e.Err
}
