// Copyright 2024 The rayforge Authors. All rights reserved.

// Package rayforge wires together the scene, mesh/texture registries
// and render core into a single facade (§6), plus the optional TOML
// configuration file a host application loads tunables from.
package rayforge

import (
	"github.com/BurntSushi/toml"

	"rayforge/accel"
	"rayforge/shading"
)

// Config holds the renderer's tunables (§6): bounce budgets, the BVH
// builder's SAH tunables, and the tile scheduler's worker/bucket
// sizing. There is no samples-per-frame setting: each frame traces
// one sample per pixel.
type Config struct {
	MaxDiffuseBounces      int `toml:"max_diffuse_bounces"`
	MaxSpecularBounces     int `toml:"max_specular_bounces"`
	MaxTransmissionBounces int `toml:"max_transmission_bounces"`
	MaxTotalBounces        int `toml:"max_total_bounces"`

	BVHMaxDepth         int     `toml:"bvh_max_depth"`
	BVHLeafMax          int     `toml:"bvh_leaf_max"`
	SAHTraversalCost    float32 `toml:"sah_traversal_cost"`
	SAHIntersectionCost float32 `toml:"sah_intersection_cost"`

	Workers    int `toml:"workers"`
	BucketSize int `toml:"bucket_size"`
}

// DefaultConfig returns the spec's default tunables (§6).
func DefaultConfig() Config {
	return Config{
		MaxDiffuseBounces:      4,
		MaxSpecularBounces:     6,
		MaxTransmissionBounces: 12,
		MaxTotalBounces:        24,

		BVHMaxDepth:         accel.MaxDepth,
		BVHLeafMax:          accel.LeafMax,
		SAHTraversalCost:    accel.DefaultTravCost,
		SAHIntersectionCost: accel.DefaultIsectCost,

		Workers:    0,
		BucketSize: 16,
	}
}

// LoadConfig reads a TOML file at path and overlays it onto
// DefaultConfig, so an absent field keeps its spec default rather
// than zeroing out.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) bounceCaps() shading.BounceCaps {
	return shading.BounceCaps{
		MaxDiffuse:      c.MaxDiffuseBounces,
		MaxSpecular:     c.MaxSpecularBounces,
		MaxTransmission: c.MaxTransmissionBounces,
		MaxTotal:        c.MaxTotalBounces,
	}
}

func (c *Config) bvhConfig() accel.BuildConfig {
	return accel.BuildConfig{
		MaxDepth:      c.BVHMaxDepth,
		LeafMax:       c.BVHLeafMax,
		TraversalCost: c.SAHTraversalCost,
		IntersectCost: c.SAHIntersectionCost,
	}
}
