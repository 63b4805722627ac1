// Copyright 2024 The rayforge Authors. All rights reserved.

package accel

import "rayforge/linear"

const transformEps = 1e-8

// Blas is the subset of a bottom-level accelerator a TLAS needs to
// query: the per-mesh BVH built by Build.
type Blas interface {
	Intersect(origin, dir linear.V3, tMin, tMax float32) (Hit, bool)
}

// Instance places a Blas in world space via a world-from-object
// transform and its precomputed inverse (object-from-world).
type Instance struct {
	Blas         Blas
	WorldFromObj linear.M4
	ObjFromWorld linear.M4
}

// TLAS is a flat top-level accelerator: a linear scan over instances,
// each query transformed into the instance's object space. It holds
// no tree of its own; spatial culling happens one level down, inside
// each instance's BVH.
type TLAS struct {
	Instances []Instance
}

// TraceHit is a closest-hit result against the whole scene.
type TraceHit struct {
	T              float32
	InstanceIndex  int32
	PrimitiveIndex int32
	Barycentric    linear.V3
}

// Trace finds the closest intersection across all instances within
// [tMin, tMax). It mirrors traceRayEXT_CPU: each ray is carried into
// object space by the instance's inverse transform, intersected
// against that instance's BVH with tMax rescaled by the local
// direction's length (since the object-space direction is not
// renormalized), and the resulting local t converted back to world
// space by the same factor.
func (tl *TLAS) Trace(origin, dir linear.V3, tMin, tMax float32) (TraceHit, bool) {
	best := TraceHit{T: tMax, InstanceIndex: -1, PrimitiveIndex: -1}
	found := false

	for i := range tl.Instances {
		inst := &tl.Instances[i]

		var localOrigin, localDir linear.V3
		localOrigin.MulPoint(&inst.ObjFromWorld, &origin)
		localDir.MulDir(&inst.ObjFromWorld, &dir)

		localDirLen := localDir.Len()
		if localDirLen < transformEps {
			continue
		}

		localTMax := best.T / localDirLen
		hit, ok := inst.Blas.Intersect(localOrigin, localDir, tMin, localTMax)
		if !ok {
			continue
		}

		worldT := hit.T * localDirLen
		if worldT < best.T {
			found = true
			best = TraceHit{
				T:              worldT,
				InstanceIndex:  int32(i),
				PrimitiveIndex: hit.PrimitiveIndex,
				Barycentric:    hit.Barycentric,
			}
		}
	}

	if !found {
		return TraceHit{}, false
	}
	return best, true
}

// NewInstance builds an Instance from a Blas and a world-from-object
// transform, inverting it once up front.
func NewInstance(blas Blas, worldFromObj linear.M4) Instance {
	var objFromWorld linear.M4
	objFromWorld.Invert(&worldFromObj)
	return Instance{Blas: blas, WorldFromObj: worldFromObj, ObjFromWorld: objFromWorld}
}
