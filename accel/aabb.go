// Copyright 2024 The rayforge Authors. All rights reserved.

// Package accel implements the bottom-level per-mesh BVH and the
// flat top-level instance accelerator (TLAS) that the path tracer
// queries for closest-hit intersections.
package accel

import (
	"math"

	"rayforge/linear"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max linear.V3
}

// EmptyAABB returns the empty box (Min = +MaxFloat32, Max =
// -MaxFloat32 on every axis), the
// identity element for Expand/ExpandBox.
func EmptyAABB() AABB {
	return AABB{
		Min: linear.V3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: linear.V3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Expand grows the box to contain point.
func (b *AABB) Expand(point *linear.V3) {
	b.Min.Min(&b.Min, point)
	b.Max.Max(&b.Max, point)
}

// ExpandBox grows the box to contain other.
func (b *AABB) ExpandBox(other *AABB) {
	b.Min.Min(&b.Min, &other.Min)
	b.Max.Max(&b.Max, &other.Max)
}

// SurfaceArea returns the box's surface area. Degenerate (flat or
// inverted) extents contribute zero area on the offending axis.
func (b *AABB) SurfaceArea() float32 {
	ex := max(b.Max[0]-b.Min[0], 0)
	ey := max(b.Max[1]-b.Min[1], 0)
	ez := max(b.Max[2]-b.Min[2], 0)
	return 2 * (ex*ey + ey*ez + ez*ex)
}

// Intersect performs the slab test against a ray given its origin,
// precomputed inverse direction and per-axis sign bits (invDir[i] < 0).
// It returns the near/far intersection parameters and whether the
// ray hits the box at all (tNear <= tFar); the caller is responsible
// for clamping tNear/tFar against its own tMin/tMax.
func (b *AABB) Intersect(origin, invDir *linear.V3, signBits *[3]bool) (tNear, tFar float32, hit bool) {
	t1 := [3]float32{
		(b.Min[0] - origin[0]) * invDir[0],
		(b.Min[1] - origin[1]) * invDir[1],
		(b.Min[2] - origin[2]) * invDir[2],
	}
	t2 := [3]float32{
		(b.Max[0] - origin[0]) * invDir[0],
		(b.Max[1] - origin[1]) * invDir[1],
		(b.Max[2] - origin[2]) * invDir[2],
	}
	for i := 0; i < 3; i++ {
		if signBits[i] {
			t1[i], t2[i] = t2[i], t1[i]
		}
	}
	tNear = max3(t1[0], t1[1], t1[2])
	tFar = min3(t2[0], t2[1], t2[2])
	hit = tNear <= tFar
	return
}

func max3(a, b, c float32) float32 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

func min3(a, b, c float32) float32 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// InvDir computes the componentwise reciprocal of dir and the sign
// bit of each component (true when negative), for use with
// AABB.Intersect.
func InvDir(dir *linear.V3) (inv linear.V3, signBits [3]bool) {
	inv = linear.V3{1 / dir[0], 1 / dir[1], 1 / dir[2]}
	signBits = [3]bool{inv[0] < 0, inv[1] < 0, inv[2] < 0}
	return
}
