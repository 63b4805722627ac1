// Copyright 2024 The rayforge Authors. All rights reserved.

package render

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// BucketSize is the edge length, in pixels, of one scheduling tile
// (§4.9). Smaller tiles balance load better across workers finishing
// at different rates; larger tiles cut scheduling overhead.
const BucketSize = 16

// tile is one rectangular region of the frame, clipped to the
// framebuffer's bounds at the right and bottom edges.
type tile struct {
	x0, y0, x1, y1 int
}

func tilesFor(width, height, size int) []tile {
	var tiles []tile
	for y := 0; y < height; y += size {
		for x := 0; x < width; x += size {
			t := tile{x0: x, y0: y, x1: x + size, y1: y + size}
			if t.x1 > width {
				t.x1 = width
			}
			if t.y1 > height {
				t.y1 = height
			}
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// dispatchTiles runs work over every tile of a width x height frame,
// sized bucketSize (BucketSize when bucketSize <= 0), using an atomic counter so idle workers steal the
// next unclaimed tile instead of being statically assigned a share
// (§4.9). workers <= 0 defaults to GOMAXPROCS.
func dispatchTiles(ctx context.Context, width, height, workers, bucketSize int, work func(t tile)) error {
	if bucketSize <= 0 {
		bucketSize = BucketSize
	}
	tiles := tilesFor(width, height, bucketSize)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var next int64 = -1
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				idx := atomic.AddInt64(&next, 1)
				if int(idx) >= len(tiles) {
					return nil
				}
				work(tiles[idx])
			}
		})
	}
	return g.Wait()
}
