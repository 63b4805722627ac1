// Copyright 2024 The rayforge Authors. All rights reserved.

// Package texture implements the CPU-side float sampler the path
// tracer fetches material overrides and the environment HDRI
// through: bilinear filtering with repeat addressing (§4.11) and
// equirectangular direction lookup for the environment map (§4.12).
package texture

import (
	"errors"
	"math"

	"rayforge/linear"
)

const prefix = "texture: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrInvalidDims is raised when a Texture is constructed with
// dimensions that don't match the pixel buffer length.
var ErrInvalidDims = newErr("pixel buffer length does not match width*height*4")

// NoTexture marks an unused texture slot in a Table lookup.
const NoTexture int32 = -1

// Texture is a width x height float RGBA image, linear-filtered with
// repeat wrap. HDRI textures and ordinary material maps share this
// representation; the spec requires HDRI float precision and permits
// ordinary maps to be byte-quantized on load, but both are expanded
// to float32 here.
type Texture struct {
	Width, Height int
	Pixels        []float32 // row-major, 4 floats per texel
}

// New constructs a Texture, validating that pixels has exactly
// width*height*4 elements.
func New(width, height int, pixels []float32) (*Texture, error) {
	if len(pixels) != width*height*4 {
		return nil, ErrInvalidDims
	}
	return &Texture{Width: width, Height: height, Pixels: pixels}, nil
}

func (t *Texture) texel(x, y int) linear.V3 {
	x = wrapIndex(x, t.Width)
	y = wrapIndex(y, t.Height)
	i := (y*t.Width + x) * 4
	return linear.V3{t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2]}
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func wrapFrac(u float32) float32 { return u - float32(math.Floor(float64(u))) }

// Sample bilinearly filters the texture at UV coordinates (u, v),
// wrapping both axes via u - floor(u) (§4.11).
func (t *Texture) Sample(u, v float32) linear.V3 {
	u = wrapFrac(u)
	v = wrapFrac(v)

	fx := u*float32(t.Width) - 0.5
	fy := v*float32(t.Height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := t.texel(x0, y0)
	c10 := t.texel(x0+1, y0)
	c01 := t.texel(x0, y0+1)
	c11 := t.texel(x0+1, y0+1)

	var top, bottom, out linear.V3
	lerp3(&top, &c00, &c10, tx)
	lerp3(&bottom, &c01, &c11, tx)
	lerp3(&out, &top, &bottom, ty)
	return out
}

func lerp3(out *linear.V3, a, b *linear.V3, t float32) {
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*t
	}
}

// Table is an ordered, index-addressed collection of textures, as
// referenced by Material.*Tex fields. Index NoTexture (-1) or any
// index past Len is treated as "unused" by FetchOr rather than as an
// error, matching the TextureOutOfRange non-fatal recovery in §7.
type Table struct {
	textures []*Texture
}

// NewTable builds a Table from an initial slice of textures.
func NewTable(textures []*Texture) *Table {
	t := &Table{textures: make([]*Texture, len(textures))}
	copy(t.textures, textures)
	return t
}

// Len returns the number of textures in the table.
func (t *Table) Len() int { return len(t.textures) }

// At returns the texture at index, or an error if index is out of
// range or NoTexture. Used for single lookups such as the
// environment HDRI, where FetchOr's fallback-on-miss shape doesn't
// apply.
func (t *Table) At(index int32) (*Texture, error) {
	if index < 0 || int(index) >= len(t.textures) {
		return nil, newErr("invalid texture index")
	}
	return t.textures[index], nil
}

// Append adds a texture to the table, returning its new index.
func (t *Table) Append(tex *Texture) int32 {
	t.textures = append(t.textures, tex)
	return int32(len(t.textures) - 1)
}

// Replace overwrites the texture at index.
func (t *Table) Replace(index int32, tex *Texture) error {
	if index < 0 || int(index) >= len(t.textures) {
		return newErr("invalid texture index")
	}
	t.textures[index] = tex
	return nil
}

// FetchOr samples the texture at index, returning fallback
// unmodified if index is NoTexture or out of range — no fetch is
// issued in either case (§4.11).
func (t *Table) FetchOr(index int32, u, v float32, fallback linear.V3) linear.V3 {
	if index < 0 || int(index) >= len(t.textures) || t.textures[index] == nil {
		return fallback
	}
	return t.textures[index].Sample(u, v)
}

// EquirectUV converts a unit direction to equirectangular UV
// coordinates (§4.6 miss handling): longitude maps to u via atan2,
// latitude maps to v via acos of the (clamped) Y component.
func EquirectUV(dir *linear.V3) (u, v float32) {
	u = float32(math.Atan2(float64(dir[0]), float64(dir[2])))/(2*math.Pi) + 0.5
	y := linear.Clamp(dir[1], -1, 1)
	v = float32(math.Acos(float64(y))) / math.Pi
	return
}

// SampleEnvironment looks up the environment HDRI by direction. A
// nil env texture (environment index == NoTexture) yields neutral
// white (§4.12).
func SampleEnvironment(env *Texture, dir linear.V3) linear.V3 {
	if env == nil {
		return linear.V3{1, 1, 1}
	}
	u, v := EquirectUV(&dir)
	return env.Sample(u, v)
}
