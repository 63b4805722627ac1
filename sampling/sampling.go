// Copyright 2024 The rayforge Authors. All rights reserved.

// Package sampling implements the per-pixel RNG and the BRDF
// sample/PDF/Fresnel/geometry kernels the shading core draws on:
// cosine-weighted diffuse, GGX specular, Schlick Fresnel and
// Smith/Schlick-GGX geometry (§4.5).
package sampling

import "rayforge/linear"

// Epsilon floors denominators throughout the sampling kernel to
// avoid division by (near-)zero without branching on every call site.
const Epsilon = 1e-6

// State is a per-pixel RNG state: a 32-bit LCG seeded once via pcg2d
// and advanced with Next thereafter (§4.5).
type State uint32

// Seed derives the initial RNG state for a pixel at a given frame
// from pcg2d(pixel XOR (frame * 16777619)). Only the first of the two
// returned words is carried forward as the running state, matching
// raygen's use of rngStateX as payload.rngState after jitter.
func Seed(pixelX, pixelY uint32, frame uint32) State {
	x, _ := pcg2d(pixelX^(frame*16777619), pixelY^(frame*16777619))
	return State(x)
}

// SeedPair derives both jitter words independently, used only for the
// initial pixel-jitter draw in raygen (§4.7 step 1) before the single
// running state takes over.
func SeedPair(pixelX, pixelY uint32, frame uint32) (x, y State) {
	a, b := pcg2d(pixelX^(frame*16777619), pixelY^(frame*16777619))
	return State(a), State(b)
}

func pcg2d(x, y uint32) (uint32, uint32) {
	x = x*1664525 + 1013904223
	y = y*1664525 + 1013904223
	x += y * 1664525
	y += x * 1664525
	x ^= x >> 16
	y ^= y >> 16
	x += y * 1664525
	y += x * 1664525
	x ^= x >> 16
	y ^= y >> 16
	return x, y
}

// Next advances the state with the classic LCG and returns a value
// in [0, 1).
func (s *State) Next() float32 {
	*s = State(uint32(*s)*1664525 + 1013904223)
	return float32(uint32(*s)>>8) / (1 << 24)
}

// CoordinateSystem builds an orthonormal (T, B) basis around unit
// normal n, switching the reference axis from world-Z to world-Y when
// n is nearly collinear with Z (§4.5).
func CoordinateSystem(n *linear.V3) (t, b linear.V3) {
	var ref linear.V3
	if abs32(n[2]) < 0.999 {
		ref = linear.V3{0, 0, 1}
	} else {
		ref = linear.V3{0, 1, 0}
	}
	t.Cross(n, &ref)
	t.Norm(&t)
	b.Cross(&t, n)
	return
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// SampleDiffuse draws a cosine-weighted direction about normal n.
func SampleDiffuse(n *linear.V3, rng *State) linear.V3 {
	u1, u2 := rng.Next(), rng.Next()
	r := sqrt32(u1)
	theta := 2 * pi * u2
	x := r * cos32(theta)
	y := r * sin32(theta)
	z := sqrt32(max32(0, 1-u1))

	t, b := CoordinateSystem(n)
	var xt, yb, zn, sum linear.V3
	xt.Scale(x, &t)
	yb.Scale(y, &b)
	zn.Scale(z, n)
	sum.Add(&xt, &yb)
	sum.Add(&sum, &zn)
	var out linear.V3
	out.Norm(&sum)
	return out
}

// PDFDiffuse returns the cosine-weighted PDF of direction l about
// normal n.
func PDFDiffuse(n, l *linear.V3) float32 {
	return max32(n.Dot(l), 0) / pi
}

// EvaluateDiffuseBRDF returns the Lambertian BRDF value (constant
// over the hemisphere): albedo/π scaled down by the metallic mix.
func EvaluateDiffuseBRDF(albedo *linear.V3, metallic float32) linear.V3 {
	var out linear.V3
	out.Scale((1-metallic)/pi, albedo)
	return out
}

// SampleGGX draws a microfacet half-vector about normal n for the
// given roughness (§4.5).
func SampleGGX(roughness float32, n *linear.V3, rng *State) linear.V3 {
	u1, u2 := rng.Next(), rng.Next()
	a := roughness * roughness
	phi := 2 * pi * u1
	denom := max32(1+(a*a-1)*u2, Epsilon)
	cosTheta := sqrt32(max32(0, (1-u2)/denom))
	sinTheta := sqrt32(max32(0, 1-cosTheta*cosTheta))

	t, b := CoordinateSystem(n)
	var xt, yb, zn, sum linear.V3
	xt.Scale(cos32(phi)*sinTheta, &t)
	yb.Scale(sin32(phi)*sinTheta, &b)
	zn.Scale(cosTheta, n)
	sum.Add(&xt, &yb)
	sum.Add(&sum, &zn)
	var out linear.V3
	out.Norm(&sum)
	return out
}

// DistributionGGX evaluates the Trowbridge-Reitz NDF D(H).
func DistributionGGX(n, h *linear.V3, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	ndotH := max32(n.Dot(h), 0)
	ndotH2 := ndotH * ndotH
	denom := max32(ndotH2*(a2-1)+1, Epsilon)
	denom = pi * denom * denom
	return a2 / denom
}

// SampleSpecular draws a reflected direction about normal n for the
// given view direction and roughness, sampling GGX and reflecting the
// view vector about the resulting half-vector.
func SampleSpecular(viewDir, n *linear.V3, roughness float32, rng *State) linear.V3 {
	h := SampleGGX(roughness, n, rng)
	if h.Dot(n) < 0 {
		h.Neg(&h)
	}
	var negView, reflected linear.V3
	negView.Neg(viewDir)
	reflected.Reflect(&negView, &h)
	return reflected
}

// PDFSpecular returns the PDF of sampling direction l via SampleSpecular.
func PDFSpecular(viewDir, n *linear.V3, roughness float32, l *linear.V3) float32 {
	var h linear.V3
	h.Add(viewDir, l)
	h.Norm(&h)
	noH := max32(n.Dot(&h), Epsilon)
	voH := max32(viewDir.Dot(&h), Epsilon)
	d := DistributionGGX(n, &h, roughness)
	return max32((d*noH)/(4*voH), Epsilon)
}

// FresnelSchlick evaluates the Schlick approximation to Fresnel
// reflectance given F0 and the cosine of the view angle.
func FresnelSchlick(cosTheta float32, f0 *linear.V3) linear.V3 {
	cosTheta = linear.Clamp(cosTheta, 0, 1)
	p := pow5(1 - cosTheta)
	return linear.V3{
		f0[0] + (1-f0[0])*p,
		f0[1] + (1-f0[1])*p,
		f0[2] + (1-f0[2])*p,
	}
}

func pow5(x float32) float32 { x2 := x * x; return x2 * x2 * x }

// GeometrySchlickGGX evaluates the Schlick-GGX visibility term for a
// single direction.
func GeometrySchlickGGX(ndotV, roughness float32) float32 {
	ndotV = max32(ndotV, Epsilon)
	k := (roughness * roughness) / 2
	return ndotV / (ndotV*(1-k) + k)
}

// GeometrySmith combines the Schlick-GGX term for both view and light
// directions (Smith's separable masking-shadowing model).
func GeometrySmith(n, v, l *linear.V3, roughness float32) float32 {
	ndotV := max32(n.Dot(v), 0)
	ndotL := max32(n.Dot(l), 0)
	return GeometrySchlickGGX(ndotV, roughness) * GeometrySchlickGGX(ndotL, roughness)
}

// EvaluateSpecularBRDF evaluates the full Cook-Torrance specular term
// F*D*G / max(4*NoV*NoL, ε).
func EvaluateSpecularBRDF(viewDir, n, albedo *linear.V3, metallic, roughness float32, l *linear.V3) linear.V3 {
	var h linear.V3
	h.Add(viewDir, l)
	h.Norm(&h)
	noV := max32(n.Dot(viewDir), 0)
	noL := max32(n.Dot(l), 0)
	voH := max32(viewDir.Dot(&h), 0)
	d := DistributionGGX(n, &h, roughness)
	g := GeometrySmith(n, viewDir, l, roughness)
	f0 := mixF0(albedo, metallic)
	f := FresnelSchlick(voH, &f0)

	denom := max32(4*noV*noL, Epsilon)
	return linear.V3{
		f[0] * d * g / denom,
		f[1] * d * g / denom,
		f[2] * d * g / denom,
	}
}

// mixF0 interpolates the dielectric base reflectance (0.04) towards
// albedo by the metallic factor (§4.5's F0 = mix(vec3(0.04), albedo,
// metallic)).
func mixF0(albedo *linear.V3, metallic float32) linear.V3 {
	const dielectric = 0.04
	return linear.V3{
		dielectric + (albedo[0]-dielectric)*metallic,
		dielectric + (albedo[1]-dielectric)*metallic,
		dielectric + (albedo[2]-dielectric)*metallic,
	}
}

// RoundBokeh draws a disk sample shaped by bias (0 = uniform disk),
// used by the thin-lens camera's aperture sampling (§4.7 step 5).
// bias <= 0 uses the uniform-disk radius r = sqrt(u1); bias > 0 uses
// r = u1^(1/(1+bias)), which pulls samples toward the centre for
// 0 < bias < 1, is again uniform at bias == 1, and pushes them toward
// the edge for bias > 1.
func RoundBokeh(u1, u2, bias float32) (x, y float32) {
	var r float32
	if bias <= 0 {
		r = sqrt32(u1)
	} else {
		r = pow32(u1, 1/(1+bias))
	}
	theta := 2 * pi * u2
	return r * cos32(theta), r * sin32(theta)
}
