// Copyright 2024 The rayforge Authors. All rights reserved.

// Package shading implements the shading core (§4.6): given a
// closest-hit or a miss, it updates a Payload's accumulated color and
// throughput, decides between diffuse/specular/transmission bounces
// with multiple importance sampling, and enforces the per-kind and
// global bounce caps.
package shading

import (
	"rayforge/linear"
	"rayforge/material"
	"rayforge/mesh"
	"rayforge/sampling"
	"rayforge/texture"
)

// Kind tags the most recent bounce a Payload took, used to account
// against the per-kind caps in BounceCaps.
type Kind int

const (
	KindNone Kind = iota
	KindDiffuse
	KindSpecular
	KindTransmission
)

// Payload is the explicit loop state threaded through the bounce
// loop in place of recursion or coroutine-style yields (§9).
type Payload struct {
	Color         linear.V3
	Throughput    linear.V3
	Position      linear.V3
	Normal        linear.V3
	Albedo        linear.V3 // fetched (texture-weighted) surface albedo at the last hit
	NextDirection linear.V3
	RNGState      sampling.State
	BounceKind    Kind
	Done          bool
}

// BounceCaps holds the per-kind and total bounce budgets (§6).
type BounceCaps struct {
	MaxDiffuse      int
	MaxSpecular     int
	MaxTransmission int
	MaxTotal        int
}

// DefaultBounceCaps returns the spec's default bounce budget.
func DefaultBounceCaps() BounceCaps {
	return BounceCaps{MaxDiffuse: 4, MaxSpecular: 6, MaxTransmission: 12, MaxTotal: 24}
}

// BounceCounts accumulates how many bounces of each kind a path has
// taken so far, checked against BounceCaps between bounces. Per the
// Open Question resolution (§9), caps are total-per-kind, not
// consecutive: a path alternating diffuse/specular/diffuse still
// counts two diffuse bounces toward MaxDiffuse.
type BounceCounts struct {
	Diffuse, Specular, Transmission, Total int
}

// Exceeded reports whether counts has overrun any cap in caps,
// checked after a bounce kind has been recorded.
func (c *BounceCounts) Exceeded(caps BounceCaps) bool {
	switch {
	case c.Diffuse > caps.MaxDiffuse:
		return true
	case c.Specular > caps.MaxSpecular:
		return true
	case c.Transmission > caps.MaxTransmission:
		return true
	case c.Total > caps.MaxTotal:
		return true
	default:
		return false
	}
}

// Record increments the counter matching kind and the total counter.
func (c *BounceCounts) Record(kind Kind) {
	switch kind {
	case KindDiffuse:
		c.Diffuse++
	case KindSpecular:
		c.Specular++
	case KindTransmission:
		c.Transmission++
	}
	c.Total++
}

// HitContext bundles the mesh-level data a closest hit needs to
// resolve material/texture state: the mesh asset hit, the face and
// barycentric coordinates within it, and the instance's
// transform/normal matrix.
type HitContext struct {
	Asset         *mesh.MeshAsset
	FaceIndex     int32
	Barycentric   linear.V3
	WorldFromObj  linear.M4
	NormalFromObj linear.M3 // transpose(inverse(mat3(worldFromObj)))
}

// Miss applies the environment lookup and terminates the path
// (§4.6's miss handling / §4.12): the terminal direction is sampled
// against the environment HDRI (or neutral white, absent one).
func Miss(p *Payload, env *texture.Texture) {
	sky := texture.SampleEnvironment(env, p.NextDirection)
	p.Color[0] += p.Throughput[0] * sky[0]
	p.Color[1] += p.Throughput[1] * sky[1]
	p.Color[2] += p.Throughput[2] * sky[2]
	p.Albedo = sky
	p.Done = true
}

// ClosestHit resolves a hit into updated payload state, following
// §4.6 steps 1-7, drawing randomness from p.RNGState (advanced in
// place). textures is the scene-wide texture table that material
// texture indices address. ClosestHit takes no bounce counts or caps
// and does not terminate the path on cap overrun: it sets
// p.BounceKind, and the caller records that kind and checks the caps.
func ClosestHit(p *Payload, hit *HitContext, textures *texture.Table) {
	rng := &p.RNGState
	localPos, localNormal, uv := hit.Asset.Interpolate(hit.FaceIndex, hit.Barycentric)

	var worldPos, worldNormal linear.V3
	worldPos.MulPoint(&hit.WorldFromObj, &localPos)
	worldNormal.Mul(&hit.NormalFromObj, &localNormal)
	worldNormal.Norm(&worldNormal)

	face := hit.Asset.Faces[hit.FaceIndex]
	mat, err := hit.Asset.Materials.At(face.MaterialIndex)
	if err != nil {
		mat = material.Default()
	}

	albedo := mat.Albedo
	if mat.AlbedoTex != material.NoTexture {
		sample := textures.FetchOr(mat.AlbedoTex, uv[0], uv[1], linear.V3{1, 1, 1})
		albedo[0] *= sample[0]
		albedo[1] *= sample[1]
		albedo[2] *= sample[2]
	}

	metallic := mat.Metallic
	if mat.MetallicTex != material.NoTexture {
		sample := textures.FetchOr(mat.MetallicTex, uv[0], uv[1], linear.V3{1, 1, 1})
		metallic *= sample[0]
	}
	metallic = linear.Clamp(metallic, 0, 1)

	roughness := mat.ClampedRoughness()
	if mat.RoughnessTex != material.NoTexture {
		sample := textures.FetchOr(mat.RoughnessTex, uv[0], uv[1], linear.V3{1, 1, 1})
		roughness = linear.Clamp(roughness*sample[0], material.MinRoughness, material.MaxRoughness)
	}

	specular := mat.Specular * 2
	if mat.SpecularTex != material.NoTexture {
		sample := textures.FetchOr(mat.SpecularTex, uv[0], uv[1], linear.V3{1, 1, 1})
		specular *= sample[0]
	}

	p.Color[0] += p.Throughput[0] * mat.Emission[0]
	p.Color[1] += p.Throughput[1] * mat.Emission[1]
	p.Color[2] += p.Throughput[2] * mat.Emission[2]
	p.Position = worldPos
	p.Normal = worldNormal
	p.Albedo = albedo

	normal := worldNormal
	transmissionWeight := mat.TransmissionWeight()
	if transmissionWeight > 0 && rng.Next() < transmissionWeight {
		shadeTransmission(p, &mat, &albedo, &normal, rng)
		return
	}

	shadeBRDF(p, &albedo, metallic, roughness, specular, &normal, rng)
}

func shadeTransmission(p *Payload, mat *material.Material, albedo, normal *linear.V3, rng *sampling.State) {
	incident := p.NextDirection
	incident.Norm(&incident)

	etaI, etaT := float32(1), mat.IOR
	n := *normal
	if incident.Dot(&n) > 0 {
		n.Neg(&n)
		etaI, etaT = etaT, etaI
	}
	eta := etaI / etaT

	var refracted linear.V3
	if ok := refracted.Refract(&incident, &n, eta); !ok {
		refracted.Reflect(&incident, &n)
	}

	p.NextDirection = refracted
	p.Throughput[0] *= mat.Transmission[0] * albedo[0]
	p.Throughput[1] *= mat.Transmission[1] * albedo[1]
	p.Throughput[2] *= mat.Transmission[2] * albedo[2]
	p.BounceKind = KindTransmission
}

func shadeBRDF(p *Payload, albedo *linear.V3, metallic, roughness, specular float32, normal *linear.V3, rng *sampling.State) {
	var viewDir linear.V3
	viewDir.Neg(&p.NextDirection)
	viewDir.Norm(&viewDir)

	n := *normal
	if n.Dot(&viewDir) < 0 {
		n.Neg(&n)
	}

	noV := maxf(n.Dot(&viewDir), 0)
	f0 := mixF0(albedo, metallic)
	fresnelAtNoV := sampling.FresnelSchlick(noV, &f0)[0]

	diffuseEnergy := (1 - metallic) * (1 - fresnelAtNoV)
	specularEnergy := maxf(fresnelAtNoV, 0.04) * maxf(1-roughness*roughness, 0.05)
	sumEnergy := diffuseEnergy + specularEnergy + sampling.Epsilon
	probDiffuse := diffuseEnergy / sumEnergy

	choseDiffuse := rng.Next() < probDiffuse

	var sampledDir linear.V3
	if choseDiffuse {
		sampledDir = sampling.SampleDiffuse(&n, rng)
	} else {
		sampledDir = sampling.SampleSpecular(&viewDir, &n, roughness, rng)
	}

	pdfDiffuse := maxf(sampling.PDFDiffuse(&n, &sampledDir), sampling.Epsilon)
	pdfSpecular := maxf(sampling.PDFSpecular(&viewDir, &n, roughness, &sampledDir), sampling.Epsilon)

	diffuseBRDF := sampling.EvaluateDiffuseBRDF(albedo, metallic)
	specularBRDFRaw := sampling.EvaluateSpecularBRDF(&viewDir, &n, albedo, metallic, roughness, &sampledDir)
	var specularBRDF linear.V3
	specularBRDF.Scale(specular, &specularBRDFRaw)

	wDiffuse := probDiffuse * pdfDiffuse
	wSpecular := (1 - probDiffuse) * pdfSpecular

	var misWeight float32
	if choseDiffuse {
		misWeight = (wDiffuse * wDiffuse) / (wDiffuse*wDiffuse + wSpecular*wSpecular + sampling.Epsilon)
	} else {
		misWeight = (wSpecular * wSpecular) / (wDiffuse*wDiffuse + wSpecular*wSpecular + sampling.Epsilon)
	}

	pdfCombined := probDiffuse*pdfDiffuse + (1-probDiffuse)*pdfSpecular
	noL := maxf(n.Dot(&sampledDir), 0)

	var totalBRDF linear.V3
	totalBRDF.Add(&diffuseBRDF, &specularBRDF)

	scale := noL * misWeight / pdfCombined
	p.Throughput[0] *= totalBRDF[0] * scale
	p.Throughput[1] *= totalBRDF[1] * scale
	p.Throughput[2] *= totalBRDF[2] * scale

	var normalized linear.V3
	normalized.Norm(&sampledDir)
	p.NextDirection = normalized
	if choseDiffuse {
		p.BounceKind = KindDiffuse
	} else {
		p.BounceKind = KindSpecular
	}
}

func mixF0(albedo *linear.V3, metallic float32) linear.V3 {
	const dielectric = 0.04
	return linear.V3{
		dielectric + (albedo[0]-dielectric)*metallic,
		dielectric + (albedo[1]-dielectric)*metallic,
		dielectric + (albedo[2]-dielectric)*metallic,
	}
}

func maxf(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}
