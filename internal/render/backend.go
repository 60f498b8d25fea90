package render

import "image"

// Buffer is a vertex buffer owned by a Backend.
type Buffer interface {
	// Len returns the number of vertices held by the buffer.
	Len() int

	// Release frees the buffer. The buffer must not be used afterwards.
	Release()
}

// DrawCall is a single series draw.
type DrawCall struct {
	Viewport image.Rectangle
	Buffer   Buffer
	Uniforms Uniforms
	Count    int
	Mode     Mode
}

// Backend executes draws on behalf of the PlotRenderer. Implementations are
// used from the render goroutine only.
type Backend interface {
	// Upload copies the interleaved [T0, V0, T1, V1, ...] data into a new
	// buffer.
	Upload(data []float32) (Buffer, error)

	// Draw renders Count vertices of the buffer into the viewport. Each
	// vertex is placed at the clip coordinate given by Normalize and coloured
	// with Uniforms.Color.
	Draw(call DrawCall) error
}

// FrameBackend is implemented by backends that need to know where a frame
// starts and ends.
type FrameBackend interface {
	Backend
	BeginFrame() error
	EndFrame() error
}
