// Copyright 2024 The rayforge Authors. All rights reserved.

package render

import (
	"math"

	"rayforge/accel"
	"rayforge/camera"
	"rayforge/linear"
	"rayforge/mesh"
	"rayforge/sampling"
	"rayforge/shading"
	"rayforge/texture"
)

// frameInstances is the per-frame-built TLAS plus the one piece of
// per-instance state the TLAS itself doesn't carry: the normal matrix
// (transpose of the inverse of the 3x3 world-from-object part),
// needed to transform hit normals without denormalizing them under
// non-uniform scale (§4.6 step 2).
type frameInstances struct {
	tlas       *accel.TLAS
	normalMats []linear.M3
}

func buildNormalMatrix(worldFromObj *linear.M4) linear.M3 {
	var m3, inv, normalMat linear.M3
	m3.FromM4(worldFromObj)
	inv.Invert(&m3)
	normalMat.Transpose(&inv)
	return normalMat
}

// pixelResult is what tracePixel reports back to the bucket worker:
// the terminal radiance plus the first-hit AOVs for the albedo,
// normal and instance-picking buffers.
type pixelResult struct {
	Color, Albedo, Normal linear.V3
	InstanceIndex         int32
}

// tracePixel drives the full bounce loop for one pixel: raygen, then
// repeated TLAS traces feeding shading.ClosestHit/Miss, until the
// payload reports Done or a bounce cap trips.
func tracePixel(cam *camera.Data, fi *frameInstances, textures *texture.Table, environment int32, caps shading.BounceCaps, x, y, width, height int, frame uint32) pixelResult {
	rngX, rngY := sampling.SeedPair(uint32(x), uint32(y), frame)
	ray := cam.Generate(x, y, width, height, frame, &rngX, &rngY)

	p := shading.Payload{
		Throughput:    linear.V3{1, 1, 1},
		NextDirection: ray.Direction,
		RNGState:      rngX,
	}
	origin := ray.Origin

	var counts shading.BounceCounts
	result := pixelResult{InstanceIndex: -1}
	firstHit := true

	for !p.Done {
		hit, ok := fi.tlas.Trace(origin, p.NextDirection, sampling.Epsilon, math.MaxFloat32)
		if !ok {
			var env *texture.Texture
			if environment != texture.NoTexture {
				env, _ = textures.At(environment)
			}
			shading.Miss(&p, env)
			if firstHit {
				result.Albedo = p.Albedo
				result.Normal = p.Normal
				firstHit = false
			}
			break
		}

		inst := &fi.tlas.Instances[hit.InstanceIndex]
		asset, _ := inst.Blas.(*mesh.MeshAsset)

		ctx := &shading.HitContext{
			Asset:         asset,
			FaceIndex:     hit.PrimitiveIndex,
			Barycentric:   hit.Barycentric,
			WorldFromObj:  inst.WorldFromObj,
			NormalFromObj: fi.normalMats[hit.InstanceIndex],
		}
		shading.ClosestHit(&p, ctx, textures)

		if firstHit {
			result.InstanceIndex = hit.InstanceIndex
			result.Albedo = p.Albedo
			result.Normal = p.Normal
			firstHit = false
		}

		counts.Record(p.BounceKind)
		if counts.Exceeded(caps) {
			p.Done = true
			break
		}

		var originNext linear.V3
		originNext.Scale(sampling.Epsilon, &p.NextDirection)
		originNext.Add(&p.Position, &originNext)
		origin = originNext
	}

	result.Color = p.Color
	return result
}
