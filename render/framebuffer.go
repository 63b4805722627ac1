// Copyright 2024 The rayforge Authors. All rights reserved.

// Package render drives the per-frame bucketed path trace: raygen,
// the bounce loop against shading.ClosestHit/Miss, frame-accumulated
// running means, and a tile scheduler distributing work across
// GOMAXPROCS workers (§4.7-§4.9).
package render

import "rayforge/linear"

// Framebuffer holds the four persistent per-pixel buffers the core
// writes every frame: the accumulated color, plus the auxiliary AOVs
// a denoiser or picking UI reads (§3, supplemented feature D.4).
// Crypto stores the first-hit instance index, or -1 on a miss.
type Framebuffer struct {
	Width, Height int

	Color  []linear.V3
	Albedo []linear.V3
	Normal []linear.V3
	Crypto []int32
}

// NewFramebuffer allocates a framebuffer sized width x height, with
// Color, Albedo and Normal zeroed and every Crypto entry set to -1.
func NewFramebuffer(width, height int) *Framebuffer {
	n := width * height
	crypto := make([]int32, n)
	for i := range crypto {
		crypto[i] = -1
	}
	return &Framebuffer{
		Width:  width,
		Height: height,
		Color:  make([]linear.V3, n),
		Albedo: make([]linear.V3, n),
		Normal: make([]linear.V3, n),
		Crypto: crypto,
	}
}

func (f *Framebuffer) index(x, y int) int { return y*f.Width + x }

// InstanceAt returns the instance index of the first surface hit at
// pixel (x, y) in the most recently completed frame, or -1 if the
// primary ray missed everything (supplemented feature D.4: picking).
func (f *Framebuffer) InstanceAt(x, y int) int32 {
	return f.Crypto[f.index(x, y)]
}

// Resize reallocates the framebuffer to new dimensions, discarding
// the accumulated pixel data. It does not touch any Renderer's frame
// counter.
func (f *Framebuffer) Resize(width, height int) {
	*f = *NewFramebuffer(width, height)
}
