// Copyright 2024 The rayforge Authors. All rights reserved.

// Package linear implements math for 3D graphics.
package linear

import (
	"math"
)

// V3 is a 3-component vector of float32.
type V3 [3]float32

// Add sets v to contain l + r.
func (v *V3) Add(l, r *V3) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *V3) Sub(l, r *V3) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s ⋅ w.
func (v *V3) Scale(s float32, w *V3) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v ⋅ w.
func (v *V3) Dot(w *V3) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V3) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Norm sets v to contain w normalized.
func (v *V3) Norm(w *V3) { v.Scale(1/w.Len(), w) }

// Cross sets v to contain l × r.
func (v *V3) Cross(l, r *V3) {
	v[0] = l[1]*r[2] - l[2]*r[1]
	v[1] = l[2]*r[0] - l[0]*r[2]
	v[2] = l[0]*r[1] - l[1]*r[0]
	return
}

// Mul sets v to contain m ⋅ w.
func (v *V3) Mul(m *M3, w *V3) {
	*v = V3{}
	for i := range v {
		for j := range v {
			v[i] += m[j][i] * w[j]
		}
	}
}

// Neg sets v to contain -w.
func (v *V3) Neg(w *V3) {
	for i := range v {
		v[i] = -w[i]
	}
}

// Min sets v to contain the componentwise minimum of l and r.
func (v *V3) Min(l, r *V3) {
	for i := range v {
		if l[i] < r[i] {
			v[i] = l[i]
		} else {
			v[i] = r[i]
		}
	}
}

// Max sets v to contain the componentwise maximum of l and r.
func (v *V3) Max(l, r *V3) {
	for i := range v {
		if l[i] > r[i] {
			v[i] = l[i]
		} else {
			v[i] = r[i]
		}
	}
}

// MulPoint sets v to contain the affine transform of point w by m
// (w's fourth component is taken to be 1).
func (v *V3) MulPoint(m *M4, w *V3) {
	var h V4
	h.Mul(m, &V4{w[0], w[1], w[2], 1})
	*v = V3{h[0], h[1], h[2]}
}

// MulDir sets v to contain the transform of direction w by m,
// ignoring translation (w's fourth component is taken to be 0).
func (v *V3) MulDir(m *M4, w *V3) {
	var h V4
	h.Mul(m, &V4{w[0], w[1], w[2], 0})
	*v = V3{h[0], h[1], h[2]}
}

// Reflect sets v to contain i reflected about normal n (n must be
// unit length).
func (v *V3) Reflect(i, n *V3) {
	var s V3
	s.Scale(2*i.Dot(n), n)
	v.Sub(i, &s)
}

// Refract sets v to contain unit incident ray i refracted through
// unit normal n (oriented against i) using relative index of
// refraction eta = etaIncident/etaTransmitted. It returns false
// (leaving v zeroed) on total internal reflection.
func (v *V3) Refract(i, n *V3, eta float32) bool {
	cosI := -i.Dot(n)
	sin2T := eta * eta * (1 - cosI*cosI)
	if sin2T > 1 {
		*v = V3{}
		return false
	}
	cosT := float32(math.Sqrt(float64(1 - sin2T)))
	var a, b V3
	a.Scale(eta, i)
	b.Scale(eta*cosI-cosT, n)
	v.Add(&a, &b)
	return true
}

// Clamp returns x constrained to the interval [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	default:
		return x
	}
}

// V4 is a 4-component vector of float32.
type V4 [4]float32

// Add sets v to contain l + r.
func (v *V4) Add(l, r *V4) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *V4) Sub(l, r *V4) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s ⋅ w.
func (v *V4) Scale(s float32, w *V4) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v ⋅ w.
func (v *V4) Dot(w *V4) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V4) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Norm sets v to contain w normalized.
func (v *V4) Norm(w *V4) { v.Scale(1/w.Len(), w) }

// Mul sets v to contain m ⋅ w.
func (v *V4) Mul(m *M4, w *V4) {
	*v = V4{}
	for i := range v {
		for j := range v {
			v[i] += m[j][i] * w[j]
		}
	}
}
