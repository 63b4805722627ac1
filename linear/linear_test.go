// Copyright 2024 The rayforge Authors. All rights reserved.

package linear

import (
	"math"
	"testing"
)

func TestV3(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	var u V3
	u.Add(&v, &w)
	if u != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", u)
	}
	u.Sub(&v, &w)
	if u != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", u)
	}
	u.Scale(-1, &v)
	if u != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", u)
	}
	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6", d)
	}
	if d := v.Dot(&v); d != 21 {
		t.Fatalf("V3.Dot\nhave %v\nwant 21", d)
	}
	if l := v.Len(); l != float32(math.Sqrt(21)) {
		t.Fatalf("V3.Len\nhave %v\nwant %v", l, math.Sqrt(21))
	}

	a := V3{0, 0, -2}
	b := V3{0, 4, 0}
	var na, nb V3
	na.Norm(&a)
	if na != (V3{0, 0, -1}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 0 -1]", na)
	}
	nb.Norm(&b)
	if nb != (V3{0, 1, 0}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 1 0]", nb)
	}
	var c V3
	c.Cross(&na, &nb)
	if c != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [1 0 0]", c)
	}
	c.Cross(&nb, &na)
	if c != (V3{-1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [-1 0 0]", c)
	}
}

func TestV3MinMax(t *testing.T) {
	a := V3{1, -2, 3}
	b := V3{-1, 5, 2}
	var mn, mx V3
	mn.Min(&a, &b)
	mx.Max(&a, &b)
	if mn != (V3{-1, -2, 2}) {
		t.Fatalf("V3.Min\nhave %v\nwant [-1 -2 2]", mn)
	}
	if mx != (V3{1, 5, 3}) {
		t.Fatalf("V3.Max\nhave %v\nwant [1 5 3]", mx)
	}
}

func TestV3Reflect(t *testing.T) {
	i := V3{1, -1, 0}
	n := V3{0, 1, 0}
	var r V3
	r.Reflect(&i, &n)
	if r != (V3{1, 1, 0}) {
		t.Fatalf("V3.Reflect\nhave %v\nwant [1 1 0]", r)
	}
}

func TestV3RefractTIR(t *testing.T) {
	// A ray passing from a dense to a less dense medium beyond the
	// critical angle must totally internally reflect: cosI = 0.6,
	// so sin2T = 1.5^2 * (1 - 0.36) = 1.44 > 1.
	i := V3{0.6, 0.8, 0}
	n := V3{-1, 0, 0}
	var r V3
	if ok := r.Refract(&i, &n, 1.5); ok {
		t.Fatalf("V3.Refract: expected total internal reflection")
	}
	if r != (V3{}) {
		t.Fatalf("V3.Refract: expected zeroed output on TIR, have %v", r)
	}
}

func TestM4Transform(t *testing.T) {
	var m M4
	m.I()
	m[3] = V4{10, 20, 30, 1}

	p := V3{1, 2, 3}
	var wp, wd V3
	wp.MulPoint(&m, &p)
	if wp != (V3{11, 22, 33}) {
		t.Fatalf("V3.MulPoint\nhave %v\nwant [11 22 33]", wp)
	}
	wd.MulDir(&m, &p)
	if wd != p {
		t.Fatalf("V3.MulDir\nhave %v\nwant %v (translation ignored)", wd, p)
	}
}

func TestM4Invert(t *testing.T) {
	var m, inv, id M4
	m.I()
	m[3] = V4{1, 2, 3, 1}
	inv.Invert(&m)
	id.Mul(&m, &inv)

	var want M4
	want.I()
	for i := range id {
		for j := range id[i] {
			if d := id[i][j] - want[i][j]; d > 1e-5 || d < -1e-5 {
				t.Fatalf("M4.Invert: m * inv(m)\nhave %v\nwant identity", id)
			}
		}
	}
}

func TestM3FromM4(t *testing.T) {
	var m M4
	m.I()
	m[3] = V4{10, 20, 30, 1}
	var m3 M3
	m3.FromM4(&m)
	var want M3
	want.I()
	if m3 != want {
		t.Fatalf("M3.FromM4\nhave %v\nwant %v", m3, want)
	}
}

func TestClamp(t *testing.T) {
	if x := Clamp(5, 0, 1); x != 1 {
		t.Fatalf("Clamp\nhave %v\nwant 1", x)
	}
	if x := Clamp(-5, 0, 1); x != 0 {
		t.Fatalf("Clamp\nhave %v\nwant 0", x)
	}
	if x := Clamp(0.5, 0, 1); x != 0.5 {
		t.Fatalf("Clamp\nhave %v\nwant 0.5", x)
	}
}
