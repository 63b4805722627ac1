// Copyright 2024 The rayforge Authors. All rights reserved.

// Package material defines the surface shading model shared by every
// mesh triangle: albedo, metallic/roughness, dielectric transmission,
// emission and the optional texture indices that override them.
package material

import (
	"errors"

	"rayforge/linear"
)

const prefix = "material: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrInvalidIndex is raised by a table lookup against an out-of-range
// material index.
var ErrInvalidIndex = newErr("invalid material index")

// NoTexture marks a texture slot as unused.
const NoTexture int32 = -1

// Roughness is clamped into this range at shading time so the GGX
// lobe never degenerates to a mirror or a diffuse hemisphere.
const (
	MinRoughness = 0.05
	MaxRoughness = 0.99
)

// Material is the per-face surface description (§3: albedo, metallic,
// roughness, specular, IOR, transmission tint, emission) plus four
// optional texture overrides.
type Material struct {
	Albedo       linear.V3
	Metallic     float32
	Roughness    float32
	Specular     float32
	IOR          float32
	Transmission linear.V3
	Emission     linear.V3

	AlbedoTex    int32
	MetallicTex  int32
	RoughnessTex int32
	SpecularTex  int32
}

// Default returns a fully opaque, moderately rough dielectric with
// no texture overrides — a reasonable placeholder material.
func Default() Material {
	return Material{
		Albedo:       linear.V3{0.8, 0.8, 0.8},
		Metallic:     0,
		Roughness:    0.8,
		Specular:     0.5,
		IOR:          1.45,
		Transmission: linear.V3{},
		Emission:     linear.V3{},
		AlbedoTex:    NoTexture,
		MetallicTex:  NoTexture,
		RoughnessTex: NoTexture,
		SpecularTex:  NoTexture,
	}
}

// TransmissionWeight returns mean(Transmission), the probability that
// a hit against this material fires the transmission branch (§4.6 step 4).
func (m *Material) TransmissionWeight() float32 {
	return (m.Transmission[0] + m.Transmission[1] + m.Transmission[2]) / 3
}

// ClampedRoughness returns Roughness constrained to
// [MinRoughness, MaxRoughness], the value the shading core actually
// evaluates the BRDF with.
func (m *Material) ClampedRoughness() float32 {
	return linear.Clamp(m.Roughness, MinRoughness, MaxRoughness)
}

// Table is an ordered, index-addressed collection of materials, as
// referenced by Face.MaterialIndex.
type Table struct {
	materials []Material
}

// NewTable builds a Table from an initial slice of materials, copying
// it so later caller mutation of the slice does not alias the table.
func NewTable(materials []Material) *Table {
	t := &Table{materials: make([]Material, len(materials))}
	copy(t.materials, materials)
	return t
}

// Len returns the number of materials in the table.
func (t *Table) Len() int { return len(t.materials) }

// At returns the material at index, or an error if index is out of
// range (caller treats this as TextureOutOfRange-shaped: fall back to
// a default rather than panic).
func (t *Table) At(index int32) (Material, error) {
	if index < 0 || int(index) >= len(t.materials) {
		return Material{}, ErrInvalidIndex
	}
	return t.materials[index], nil
}

// Append adds a material to the table, returning its new index.
func (t *Table) Append(m Material) int32 {
	t.materials = append(t.materials, m)
	return int32(len(t.materials) - 1)
}

// Replace overwrites the material at index.
func (t *Table) Replace(index int32, m Material) error {
	if index < 0 || int(index) >= len(t.materials) {
		return ErrInvalidIndex
	}
	t.materials[index] = m
	return nil
}
