// Copyright 2024 The rayforge Authors. All rights reserved.

package rayforge

import (
	"context"

	"rayforge/material"
	"rayforge/mesh"
	"rayforge/render"
	"rayforge/scene"
	"rayforge/texture"
)

// Core is the facade a host application drives: it owns the scene,
// the mesh/texture registries meshes and materials are imported into,
// and the renderer that traces frames against them.
type Core struct {
	cfg      Config
	Scene    *scene.Scene
	Meshes   *mesh.Registry
	Textures *texture.Table
	renderer *render.Renderer
}

// NewCore constructs a Core for a widthxheight output image.
func NewCore(cfg Config, width, height int) *Core {
	meshes := mesh.NewRegistry()
	textures := texture.NewTable(nil)
	rcfg := render.Config{
		Bounces:    cfg.bounceCaps(),
		Workers:    cfg.Workers,
		BVH:        cfg.bvhConfig(),
		BucketSize: cfg.BucketSize,
	}
	return &Core{
		cfg:      cfg,
		Scene:    scene.New(),
		Meshes:   meshes,
		Textures: textures,
		renderer: render.NewRenderer(rcfg, width, height, meshes, textures),
	}
}

// ImportMesh builds a MeshAsset from raw vertex/face/material data and
// registers it, returning the mesh-id a scene.Instance references.
func (c *Core) ImportMesh(vertices []mesh.Vertex, faces []mesh.Face, materials []material.Material) (int32, error) {
	asset, err := mesh.Build(vertices, faces, materials, c.cfg.bvhConfig())
	if err != nil {
		return 0, err
	}
	return c.Meshes.Register(asset), nil
}

// ReplaceMesh rebuilds the BVH for an existing mesh-id from new source
// data and marks the scene's meshes dirty (§3's "BVH must be rebuilt
// if the source mesh is replaced").
func (c *Core) ReplaceMesh(id int32, vertices []mesh.Vertex, faces []mesh.Face, materials []material.Material) error {
	asset, err := mesh.Build(vertices, faces, materials, c.cfg.bvhConfig())
	if err != nil {
		return err
	}
	if err := c.Meshes.Replace(id, asset); err != nil {
		return err
	}
	c.Scene.MarkMeshesDirty()
	return nil
}

// Framebuffer returns the renderer's output buffers.
func (c *Core) Framebuffer() *render.Framebuffer { return c.renderer.Framebuffer() }

// RenderFrame traces one synchronous frame.
func (c *Core) RenderFrame(ctx context.Context) error {
	return c.renderer.Render(ctx, c.Scene)
}

// RenderFrameAsync launches a frame in the background; Done/Wait
// observe its completion.
func (c *Core) RenderFrameAsync(ctx context.Context) {
	c.renderer.RenderAsync(ctx, c.Scene)
}

// Done reports whether an in-flight RenderFrameAsync call has completed.
func (c *Core) Done() bool { return c.renderer.Done() }

// Wait blocks until the in-flight RenderFrameAsync call completes.
func (c *Core) Wait() error { return c.renderer.Wait() }
