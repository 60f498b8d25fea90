package glbackend

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// A single triangle covering the viewport, generated from gl_VertexID.
const blitVertexShader = `
#version 410 core

out vec2 uv;

void main() {
	vec2 p = vec2(float((gl_VertexID << 1) & 2), float(gl_VertexID & 2));
	uv = vec2(p.x, 1.0 - p.y); // image rows run top down
	gl_Position = vec4(p * 2.0 - 1.0, 0.0, 1.0);
}
` + "\x00"

const blitFragmentShader = `
#version 410 core

in vec2 uv;
uniform sampler2D frame;

out vec4 outColor;

void main() {
	outColor = texture(frame, uv);
}
` + "\x00"

// Blitter copies CPU rendered frames to the framebuffer.
type Blitter struct {
	program uint32
	vao     uint32
	texture uint32
	size    image.Point
}

func NewBlitter() (*Blitter, error) {
	program, err := newProgram(blitVertexShader, blitFragmentShader)
	if err != nil {
		return nil, err
	}

	b := Blitter{program: program}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenTextures(1, &b.texture)
	gl.BindTexture(gl.TEXTURE_2D, b.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err = check("initializing blitter"); err != nil {
		b.Dispose()
		return nil, err
	}
	return &b, nil
}

// Draw uploads img and stretches it over a viewport of the given size.
func (b *Blitter) Draw(img *image.RGBA, width, height int) error {
	size := img.Bounds().Size()

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, b.texture)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	if size != b.size {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(size.X), int32(size.Y), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
		b.size = size
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(size.X), int32(size.Y), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	gl.Disable(gl.SCISSOR_TEST)
	gl.Disable(gl.BLEND)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.UseProgram(b.program)
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return check("drawing frame image")
}

func (b *Blitter) Dispose() {
	gl.DeleteTextures(1, &b.texture)
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteProgram(b.program)
}
