// Copyright 2024 The rayforge Authors. All rights reserved.

// Package scene holds the logical root the render core consumes each
// frame: instances, the active camera, an environment texture index
// and the four dirty bits that drive incremental rebuilds (§3, §4.10).
package scene

import (
	"errors"
	"log"
	"sync"

	"rayforge/camera"
	"rayforge/linear"
)

const prefix = "scene: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrUnknownInstance is returned when an operation addresses an
// instance handle that doesn't exist.
var ErrUnknownInstance = newErr("unknown instance")

// ErrLastInstance guards against removing the scene's only instance,
// since an empty scene still needs a well-defined (miss-everything)
// TLAS rather than a nonsensical one.
var ErrLastInstance = newErr("cannot remove the only remaining instance")

// ErrActiveCamera guards against removing the instance currently
// bound as the render viewpoint.
var ErrActiveCamera = newErr("cannot remove the active camera's instance")

// Dirty is a bitmask of the four independent rebuild categories
// (§4.10): TLAS, meshes, textures, accumulation.
type Dirty uint8

const (
	DirtyTLAS Dirty = 1 << iota
	DirtyMeshes
	DirtyTextures
	DirtyAccumulation

	DirtyAll = DirtyTLAS | DirtyMeshes | DirtyTextures | DirtyAccumulation
)

// Instance places a mesh asset in world space (§3): transform,
// precomputed inverse, and the mesh-id it references.
type Instance struct {
	Transform        linear.M4
	InverseTransform linear.M4
	MeshID           int32
}

// SetTransform replaces the instance's transform, recomputing its
// inverse — the sole correct way to mutate a placed instance, since
// the inverse must never be allowed to go stale (§3).
func (i *Instance) SetTransform(transform linear.M4) {
	i.Transform = transform
	i.InverseTransform.Invert(&transform)
}

// Handle identifies an instance within a Scene; stable across
// mutation of other instances (it's the slice index at insertion,
// and slots are never reused within a Scene's lifetime — removal
// marks a slot empty rather than shifting others).
type Handle int32

// Scene is the logical root consumed by the core each frame: an
// ordered, sparsely-populated instance list, the active camera, an
// environment texture reference, and the dirty bits raised by the
// mutations below. All mutation methods are safe for concurrent use
// with Snapshot, guarded by a single RWMutex (§5's snapshot discipline).
type Scene struct {
	mu sync.RWMutex

	instances     []*Instance // nil entries are removed slots
	liveCount     int
	activeCamera  camera.Data
	activeHandle  Handle // handle of the instance treated as the camera rig, or -1 if none
	environmentID int32  // index into the texture table, or -1 (texture.NoTexture)

	dirty Dirty
}

// New returns an empty scene with every dirty bit set (an initial
// frame must always rebuild everything).
func New() *Scene {
	return &Scene{
		activeCamera:  camera.Default(),
		activeHandle:  -1,
		environmentID: -1,
		dirty:         DirtyAll,
	}
}

// AddInstance appends a new instance and raises DirtyTLAS (a new
// instance changes the TLAS) and DirtyAccumulation (any geometric
// change invalidates the running mean, §4.8).
func (s *Scene) AddInstance(inst Instance) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst.InverseTransform.Invert(&inst.Transform)
	s.instances = append(s.instances, &inst)
	s.liveCount++
	s.setDirtyLocked(DirtyTLAS | DirtyAccumulation)
	return Handle(len(s.instances) - 1)
}

// RemoveInstance deletes the instance at handle, refusing to remove
// the scene's last live instance or the instance backing the active
// camera (§9's ownership rules: the scene, not the instance, decides
// what removal is safe).
func (s *Scene) RemoveInstance(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(h) < 0 || int(h) >= len(s.instances) || s.instances[h] == nil {
		return ErrUnknownInstance
	}
	if s.liveCount <= 1 {
		log.Printf(prefix+"refusing to remove instance %d: it is the only remaining instance", h)
		return ErrLastInstance
	}
	if h == s.activeHandle {
		log.Printf(prefix+"refusing to remove instance %d: it backs the active camera", h)
		return ErrActiveCamera
	}
	s.instances[h] = nil
	s.liveCount--
	s.setDirtyLocked(DirtyTLAS | DirtyAccumulation)
	return nil
}

// SetInstanceTransform mutates an instance's transform in place,
// raising DirtyTLAS + DirtyAccumulation.
func (s *Scene) SetInstanceTransform(h Handle, transform linear.M4) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(h) < 0 || int(h) >= len(s.instances) || s.instances[h] == nil {
		return ErrUnknownInstance
	}
	s.instances[h].SetTransform(transform)
	s.setDirtyLocked(DirtyTLAS | DirtyAccumulation)
	return nil
}

// SetActiveCameraHandle records instance h as the one backing the
// active camera: the instance thereafter cannot be removed until the
// handle is changed. The camera record itself (see SetCamera) is not
// modified. Pass -1 to detach.
func (s *Scene) SetActiveCameraHandle(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h >= 0 && (int(h) >= len(s.instances) || s.instances[h] == nil) {
		return ErrUnknownInstance
	}
	s.activeHandle = h
	s.setDirtyLocked(DirtyAccumulation)
	return nil
}

// SetCamera replaces the active camera record directly (independent
// of any instance binding), raising DirtyAccumulation.
func (s *Scene) SetCamera(cam camera.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCamera = cam
	s.setDirtyLocked(DirtyAccumulation)
}

// SetEnvironment replaces the environment texture index, raising
// DirtyTextures + DirtyAccumulation.
func (s *Scene) SetEnvironment(textureID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environmentID = textureID
	s.setDirtyLocked(DirtyTextures | DirtyAccumulation)
}

// MarkMeshesDirty raises DirtyMeshes + DirtyAccumulation, for the
// caller to call after replacing a mesh asset's source data in place
// (§3: "BVH must be rebuilt if the source mesh is replaced").
func (s *Scene) MarkMeshesDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setDirtyLocked(DirtyMeshes | DirtyAccumulation)
}

// setDirtyLocked ORs bits into the dirty mask. Idempotent: setting an
// already-set bit again is a no-op bitwise, satisfying §8's
// "dirty idempotence" property. Caller must hold mu.
func (s *Scene) setDirtyLocked(bits Dirty) {
	s.dirty |= bits
}

// Snapshot is the read-only view a frame renders against, copied out
// from under the scene's lock per §5's snapshot discipline: workers
// then operate on this snapshot without touching the live scene.
type Snapshot struct {
	Instances     []Instance
	Camera        camera.Data
	EnvironmentID int32
	Dirty         Dirty
}

// Snapshot acquires a shared-read lock, copies the live instance list
// (skipping removed slots) and the camera/environment state, and
// releases the lock — the dispatcher then operates on the returned
// value for the whole frame (§5).
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Instance, 0, s.liveCount)
	for _, inst := range s.instances {
		if inst != nil {
			out = append(out, *inst)
		}
	}
	return Snapshot{
		Instances:     out,
		Camera:        s.activeCamera,
		EnvironmentID: s.environmentID,
		Dirty:         s.dirty,
	}
}

// ClearDirty clears exactly the bits the core has absorbed this
// frame (§4.10: "Clearing is atomic with the frame it applies to;
// later mutations during the frame must set the bit for the next
// frame" — since mutation methods take the write lock, any mutation
// racing with ClearDirty is serialized after it or before it, never
// torn).
func (s *Scene) ClearDirty(bits Dirty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty &^= bits
}
