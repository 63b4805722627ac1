// Copyright 2024 The rayforge Authors. All rights reserved.

// Package mesh defines the immutable triangle-mesh data model
// (Vertex, Face, MeshAsset) and a registry assigning stable integer
// mesh-ids to assets as they're imported.
package mesh

import (
	"errors"
	"sync"

	"rayforge/accel"
	"rayforge/internal/bitvec"
	"rayforge/linear"
	"rayforge/material"
)

const prefix = "mesh: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrUnknownMesh is returned by Registry.Get for an id that was
// never assigned or has since been removed.
var ErrUnknownMesh = newErr("unknown mesh id")

// Vertex holds one triangle-mesh vertex. Position and normal are in
// object space; normal need not be unit length, since barycentric
// interpolation denormalizes it anyway (renormalized at hit time).
type Vertex struct {
	Position linear.V3
	Normal   linear.V3
	Tangent  linear.V3
	UV       [2]float32
}

// Face is a triangle: an index triple into the owning mesh's vertex
// array plus the material it shades with.
type Face struct {
	Indices       [3]uint32
	MaterialIndex int32
}

// MeshAsset is an immutable mesh: its vertex/index/face buffers and
// a built BVH over its triangles. Once registered it is never
// mutated — replacing a mesh's source data registers a new asset and
// rebuilds the BVH, matching the §3 lifecycle rule.
type MeshAsset struct {
	Vertices  []Vertex
	Faces     []Face
	Materials *material.Table
	BVH       *accel.BVH

	positions []linear.V3
	indices   []uint32
}

// Intersect satisfies accel.Blas, letting a MeshAsset be used
// directly as a TLAS instance's bottom-level accelerator.
func (m *MeshAsset) Intersect(origin, dir linear.V3, tMin, tMax float32) (accel.Hit, bool) {
	return m.BVH.Intersect(origin, dir, tMin, tMax)
}

// Build constructs a MeshAsset from vertex and face data, building
// the BVH with the given tunables. An empty face list still produces
// a valid (always-missing) asset, matching §4.2's empty-mesh rule.
func Build(vertices []Vertex, faces []Face, materials []material.Material, cfg accel.BuildConfig) (*MeshAsset, error) {
	positions := make([]linear.V3, len(vertices))
	for i, v := range vertices {
		positions[i] = v.Position
	}
	indices := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		indices = append(indices, f.Indices[0], f.Indices[1], f.Indices[2])
	}

	bvh, err := accel.Build(positions, indices, cfg)
	if err != nil {
		return nil, err
	}

	return &MeshAsset{
		Vertices:  vertices,
		Faces:     faces,
		Materials: material.NewTable(materials),
		BVH:       bvh,
		positions: positions,
		indices:   indices,
	}, nil
}

// Interpolate barycentrically blends vertex position, normal and UV
// for a hit on face faceIndex, given barycentric weights (w0, w1, w2)
// matching §4.6 step 1's "interpolate position, normal, UV by
// barycentrics".
func (m *MeshAsset) Interpolate(faceIndex int32, bary linear.V3) (position, normal linear.V3, uv [2]float32) {
	f := m.Faces[faceIndex]
	v0, v1, v2 := m.Vertices[f.Indices[0]], m.Vertices[f.Indices[1]], m.Vertices[f.Indices[2]]

	var p0, p1, p2, n0, n1, n2 linear.V3
	p0.Scale(bary[0], &v0.Position)
	p1.Scale(bary[1], &v1.Position)
	p2.Scale(bary[2], &v2.Position)
	position.Add(&p0, &p1)
	position.Add(&position, &p2)

	n0.Scale(bary[0], &v0.Normal)
	n1.Scale(bary[1], &v1.Normal)
	n2.Scale(bary[2], &v2.Normal)
	normal.Add(&n0, &n1)
	normal.Add(&normal, &n2)

	for i := range uv {
		uv[i] = bary[0]*v0.UV[i] + bary[1]*v1.UV[i] + bary[2]*v2.UV[i]
	}
	return
}

// Registry assigns stable integer mesh-ids to assets, backed by a
// growable bit vector free list so ids are reused after removal
// instead of growing without bound.
type Registry struct {
	mu     sync.RWMutex
	ids    bitvec.V[uint32]
	assets []*MeshAsset
}

// NewRegistry returns an empty mesh registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register assigns a new mesh-id to asset and returns it.
func (r *Registry) Register(asset *MeshAsset) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, ok := r.ids.Search()
	if !ok {
		index = r.ids.Grow(1)
	}
	r.ids.Set(index)
	if index >= len(r.assets) {
		grown := make([]*MeshAsset, index+1)
		copy(grown, r.assets)
		r.assets = grown
	}
	r.assets[index] = asset
	return int32(index)
}

// Replace overwrites the asset at an existing mesh-id, used when the
// source mesh changes and the BVH must be rebuilt (§3 Lifecycle).
func (r *Registry) Replace(id int32, asset *MeshAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || int(id) >= len(r.assets) || !r.ids.IsSet(int(id)) {
		return ErrUnknownMesh
	}
	r.assets[id] = asset
	return nil
}

// Remove releases a mesh-id back to the free list.
func (r *Registry) Remove(id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || int(id) >= len(r.assets) || !r.ids.IsSet(int(id)) {
		return ErrUnknownMesh
	}
	r.ids.Unset(int(id))
	r.assets[id] = nil
	return nil
}

// Get returns the asset registered under id.
func (r *Registry) Get(id int32) (*MeshAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || int(id) >= len(r.assets) || !r.ids.IsSet(int(id)) {
		return nil, ErrUnknownMesh
	}
	return r.assets[id], nil
}
