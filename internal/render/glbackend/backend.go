// Package glbackend draws plot series with OpenGL 4.1 core. All methods must
// be called on the goroutine that owns the GL context.
package glbackend

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/roman-kulish/flightplot/internal/render"
)

const transformBinding = 0

const vertexShader = `
#version 410 core

layout(location = 0) in vec2 inSample;

layout(std140) uniform Transform {
	vec4 bounds; // min_time, max_time, min_value, max_value
	vec4 color;
	vec4 params; // point_size, reserved
};

void main() {
	float tNorm = (inSample.x - bounds.x) / (bounds.y - bounds.x);
	float vNorm = (inSample.y - bounds.z) / (bounds.w - bounds.z);
	gl_Position = vec4(tNorm * 2.0 - 1.0, vNorm * 2.0 - 1.0, 0.0, 1.0);
	gl_PointSize = params.x;
}
` + "\x00"

const fragmentShader = `
#version 410 core

layout(std140) uniform Transform {
	vec4 bounds;
	vec4 color;
	vec4 params;
};

out vec4 outColor;

void main() {
	outColor = color;
}
` + "\x00"

type buffer struct {
	vbo   uint32
	count int
}

func (b *buffer) Len() int {
	return b.count
}

func (b *buffer) Release() {
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
		b.vbo = 0
	}
}

// Backend implements render.Backend on an OpenGL context.
type Backend struct {
	program uint32
	vao     uint32
	ubo     uint32

	width, height int32
	background    [4]float32
}

// New compiles the shaders and allocates the shared GL objects. gl.Init must
// have been called for the current context.
func New(width, height int, background color.Color) (*Backend, error) {
	program, err := newProgram(vertexShader, fragmentShader)
	if err != nil {
		return nil, err
	}

	b := Backend{program: program}
	b.SetFramebufferSize(width, height)

	r, g, bl, a := background.RGBA()
	b.background = [4]float32{float32(r) / 0xffff, float32(g) / 0xffff, float32(bl) / 0xffff, float32(a) / 0xffff}

	index := gl.GetUniformBlockIndex(program, gl.Str("Transform\x00"))
	if index == gl.INVALID_INDEX {
		gl.DeleteProgram(program)
		return nil, errors.New("uniform block Transform not found")
	}
	gl.UniformBlockBinding(program, index, transformBinding)

	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, render.UniformsSize, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	gl.Enable(gl.PROGRAM_POINT_SIZE)

	if err = check("initializing backend"); err != nil {
		b.Dispose()
		return nil, err
	}
	return &b, nil
}

// SetFramebufferSize updates the size used to flip viewports into GL
// coordinates, whose origin is the bottom left corner.
func (b *Backend) SetFramebufferSize(width, height int) {
	b.width, b.height = int32(width), int32(height)
}

// Dispose frees the GL objects owned by the backend.
func (b *Backend) Dispose() {
	gl.DeleteBuffers(1, &b.ubo)
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteProgram(b.program)
}

func (b *Backend) BeginFrame() error {
	gl.Disable(gl.SCISSOR_TEST)
	gl.Viewport(0, 0, b.width, b.height)
	gl.ClearColor(b.background[0], b.background[1], b.background[2], b.background[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.UseProgram(b.program)
	gl.BindVertexArray(b.vao)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, transformBinding, b.ubo)
	return check("beginning frame")
}

func (b *Backend) EndFrame() error {
	gl.BindVertexArray(0)
	gl.Disable(gl.SCISSOR_TEST)
	return check("ending frame")
}

func (b *Backend) Upload(data []float32) (render.Buffer, error) {
	if len(data) == 0 || len(data)%2 != 0 {
		return nil, fmt.Errorf("invalid interleaved data length %d", len(data))
	}

	buf := buffer{count: len(data) / 2}
	gl.GenBuffers(1, &buf.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if err := check("uploading samples"); err != nil {
		buf.Release()
		return nil, err
	}
	return &buf, nil
}

func (b *Backend) Draw(call render.DrawCall) error {
	buf, ok := call.Buffer.(*buffer)
	if !ok || buf.vbo == 0 {
		return errors.New("buffer is not a live GL buffer")
	}
	count := int32(min(call.Count, buf.count))
	if count == 0 {
		return nil
	}

	x, y := int32(call.Viewport.Min.X), b.height-int32(call.Viewport.Max.Y)
	w, h := int32(call.Viewport.Dx()), int32(call.Viewport.Dy())
	gl.Viewport(x, y, w, h)
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(x, y, w, h)

	uniforms := call.Uniforms.Bytes()
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ubo)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(uniforms), gl.Ptr(uniforms))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, nil)

	mode := uint32(gl.LINE_STRIP)
	if call.Mode == render.ModePoints {
		mode = gl.POINTS
	}
	gl.DrawArrays(mode, 0, count)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	return check("drawing series")
}

func check(msg string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", msg, code)
	}
	return nil
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vs, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("compiling vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("compiling fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("linking program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
