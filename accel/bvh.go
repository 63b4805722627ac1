// Copyright 2024 The rayforge Authors. All rights reserved.

package accel

import (
	"errors"

	"golang.org/x/exp/slices"

	"rayforge/linear"
)

const prefix = "accel: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrBuildFailure indicates that the builder produced zero nodes for
// a non-empty triangle list, an unrecoverable mesh-level condition.
var ErrBuildFailure = newErr("BVH build resulted in no nodes")

// Tunables governing the SAH builder, mirroring spec §6/§4.2.
const (
	LeafMax           = 4
	MaxDepth          = 128
	DefaultTravCost   = 1.0
	DefaultIsectCost  = 1.0
	degenerateAxisEps = 1e-6
	triangleEps       = 1e-7
)

// BuildConfig carries the builder tunables (§6: bvh_max_depth,
// bvh_leaf_max, sah_traversal_cost, sah_intersection_cost).
type BuildConfig struct {
	MaxDepth      int
	LeafMax       int
	TraversalCost float32
	IntersectCost float32
}

// DefaultBuildConfig returns the spec's default tunables.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		MaxDepth:      MaxDepth,
		LeafMax:       LeafMax,
		TraversalCost: DefaultTravCost,
		IntersectCost: DefaultIsectCost,
	}
}

// Node is a flat BVH node. A node is a leaf iff FaceCount > 0; an
// internal node's BBox is the union of its children's BBoxes.
type Node struct {
	BBox        AABB
	Left, Right int32 // child node indices, or -1 for a leaf
	FaceCount   int32
	FaceIndices [LeafMax]int32
}

// IsLeaf reports whether n is a leaf node.
func (n *Node) IsLeaf() bool { return n.FaceCount > 0 }

// BVH is a bottom-level acceleration structure over a single mesh's
// triangles. The zero value (via Build on zero triangles) is a
// valid, always-missing BVH.
type BVH struct {
	Nodes     []Node
	positions []linear.V3
	indices   []uint32 // triangle index triples, len = 3*faceCount
}

// Hit describes a closest-hit result.
type Hit struct {
	T              float32
	PrimitiveIndex int32
	Barycentric    linear.V3
}

type primitiveInfo struct {
	faceIndex int32
	centroid  linear.V3
	bbox      AABB
}

type buildTask struct {
	start, end, nodeIndex, depth int
	bounds                       AABB
}

// Build constructs a BVH over the triangles described by positions
// (vertex positions) and indices (triangle index triples, 3 per
// face). An empty triangle list yields an empty, always-missing
// tree (no error).
func Build(positions []linear.V3, indices []uint32, cfg BuildConfig) (*BVH, error) {
	faceCount := len(indices) / 3
	b := &BVH{positions: positions, indices: indices}
	if faceCount == 0 {
		return b, nil
	}

	infos := make([]primitiveInfo, faceCount)
	sceneBounds := EmptyAABB()
	for i := 0; i < faceCount; i++ {
		i0, i1, i2 := indices[i*3], indices[i*3+1], indices[i*3+2]
		v0, v1, v2 := positions[i0], positions[i1], positions[i2]

		var sum V3Sum
		sum.add(v0)
		sum.add(v1)
		sum.add(v2)

		box := EmptyAABB()
		box.Expand(&v0)
		box.Expand(&v1)
		box.Expand(&v2)

		infos[i] = primitiveInfo{
			faceIndex: int32(i),
			centroid:  sum.mean(),
			bbox:      box,
		}
		sceneBounds.ExpandBox(&box)
	}

	nodes := make([]Node, 0, faceCount*2)
	stack := []buildTask{{start: 0, end: faceCount, nodeIndex: 0, depth: 0, bounds: sceneBounds}}
	nodes = append(nodes, Node{})

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &nodes[task.nodeIndex]
		node.BBox = task.bounds
		count := task.end - task.start

		if count <= cfg.LeafMax || task.depth >= cfg.MaxDepth {
			node.Left, node.Right = -1, -1
			n := count
			if n > LeafMax {
				// A leaf wider than LeafMax arises when cfg.MaxDepth
				// stops the build before the range is small enough, or
				// when cfg.LeafMax itself exceeds LeafMax. (Coincident
				// centroids alone do not cause it: findBestSplit then
				// reports no plane and the range is split at its middle.)
				// FaceIndices is fixed-size, so the leaf keeps its first
				// LeafMax faces and drops the rest rather than indexing
				// past the array.
				n = LeafMax
			}
			node.FaceCount = int32(n)
			for i := 0; i < n; i++ {
				node.FaceIndices[i] = infos[task.start+i].faceIndex
			}
			continue
		}

		bestAxis, splitIndex := findBestSplit(infos, task.start, task.end, &task.bounds, cfg)
		if bestAxis == -1 && splitIndex == task.start {
			splitIndex = task.start + count/2
		}
		if bestAxis != -1 {
			slices.SortFunc(infos[task.start:task.end], func(a, b primitiveInfo) int {
				switch {
				case a.centroid[bestAxis] < b.centroid[bestAxis]:
					return -1
				case a.centroid[bestAxis] > b.centroid[bestAxis]:
					return 1
				default:
					return 0
				}
			})
		}

		leftBounds, rightBounds := EmptyAABB(), EmptyAABB()
		for i := task.start; i < splitIndex; i++ {
			leftBounds.ExpandBox(&infos[i].bbox)
		}
		for i := splitIndex; i < task.end; i++ {
			rightBounds.ExpandBox(&infos[i].bbox)
		}

		leftIndex := len(nodes)
		nodes = append(nodes, Node{})
		rightIndex := len(nodes)
		nodes = append(nodes, Node{})

		node = &nodes[task.nodeIndex]
		node.Left, node.Right = int32(leftIndex), int32(rightIndex)
		node.FaceCount = 0

		// Right pushed before left so left is processed next
		// (front-to-back layout in the flat array).
		stack = append(stack, buildTask{splitIndex, task.end, rightIndex, task.depth + 1, rightBounds})
		stack = append(stack, buildTask{task.start, splitIndex, leftIndex, task.depth + 1, leftBounds})
	}

	if len(nodes) == 0 {
		return nil, ErrBuildFailure
	}
	b.Nodes = nodes
	return b, nil
}

// findBestSplit sweeps each non-degenerate axis, returning the best
// (axis, splitIndex) pair, or axis -1 if a leaf is cheaper than any
// split. Ties are broken by the order of evaluation: axis 0 before
// 1 before 2, and lower split indices before higher ones within an
// axis, since only strict improvements update the running best.
func findBestSplit(infos []primitiveInfo, start, end int, bounds *AABB, cfg BuildConfig) (bestAxis, bestSplit int) {
	count := end - start
	bestAxis = -1
	bestSplit = start + count/2
	bestCost := float32(1e30)
	boundsArea := bounds.SurfaceArea()

	rightBoxes := make([]AABB, count)

	for axis := 0; axis < 3; axis++ {
		extent := extentOnAxis(bounds, axis)
		if extent < degenerateAxisEps {
			continue
		}

		slices.SortFunc(infos[start:end], func(a, b primitiveInfo) int {
			switch {
			case a.centroid[axis] < b.centroid[axis]:
				return -1
			case a.centroid[axis] > b.centroid[axis]:
				return 1
			default:
				return 0
			}
		})

		cur := EmptyAABB()
		for i := count - 1; i > 0; i-- {
			cur.ExpandBox(&infos[start+i].bbox)
			rightBoxes[i-1] = cur
		}

		left := EmptyAABB()
		for i := 1; i < count; i++ {
			left.ExpandBox(&infos[start+i-1].bbox)
			leftArea := left.SurfaceArea()
			rightArea := rightBoxes[i-1].SurfaceArea()
			cost := cfg.TraversalCost + cfg.IntersectCost*(float32(i)*leftArea+float32(count-i)*rightArea)/boundsArea
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = start + i
			}
		}
	}

	leafCost := cfg.IntersectCost * float32(count)
	if bestCost >= leafCost {
		return -1, start + count/2
	}
	return bestAxis, bestSplit
}

func extentOnAxis(b *AABB, axis int) float32 { return b.Max[axis] - b.Min[axis] }

// V3Sum accumulates a running sum for computing a mean, avoiding
// repeated Add/Scale out-param ceremony in the hot build loop.
type V3Sum struct {
	sum   linear.V3
	count float32
}

func (s *V3Sum) add(v linear.V3) {
	s.sum[0] += v[0]
	s.sum[1] += v[1]
	s.sum[2] += v[2]
	s.count++
}

func (s *V3Sum) mean() linear.V3 {
	return linear.V3{s.sum[0] / s.count, s.sum[1] / s.count, s.sum[2] / s.count}
}

// Intersect performs a closest-hit query, returning the nearest
// triangle intersection within [tMin, tMax), or ok=false if none.
func (b *BVH) Intersect(origin, dir linear.V3, tMin, tMax float32) (hit Hit, ok bool) {
	if len(b.Nodes) == 0 {
		return Hit{}, false
	}
	invDir, signBits := InvDir(&dir)

	type traversal struct {
		nodeIndex int32
		tNear     float32
	}
	stack := make([]traversal, 0, 64)
	stack = append(stack, traversal{0, tMin})

	best := Hit{T: tMax, PrimitiveIndex: -1}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.tNear >= best.T {
			continue
		}

		node := &b.Nodes[cur.nodeIndex]
		if node.IsLeaf() {
			for i := int32(0); i < node.FaceCount; i++ {
				faceIdx := node.FaceIndices[i]
				if h, hitTri := b.intersectTriangle(faceIdx, origin, dir); hitTri {
					if h.T >= tMin && h.T < best.T {
						best = h
						ok = true
					}
				}
			}
			continue
		}

		left, right := &b.Nodes[node.Left], &b.Nodes[node.Right]
		lNear, lFar, lHit := left.BBox.Intersect(&origin, &invDir, &signBits)
		rNear, rFar, rHit := right.BBox.Intersect(&origin, &invDir, &signBits)

		if lHit {
			lNear = max2(lNear, tMin)
			lHit = lNear <= min2(lFar, best.T)
		}
		if rHit {
			rNear = max2(rNear, tMin)
			rHit = rNear <= min2(rFar, best.T)
		}

		switch {
		case lHit && rHit:
			if lNear > rNear {
				stack = append(stack, traversal{node.Left, lNear})
				stack = append(stack, traversal{node.Right, rNear})
			} else {
				stack = append(stack, traversal{node.Right, rNear})
				stack = append(stack, traversal{node.Left, lNear})
			}
		case lHit:
			stack = append(stack, traversal{node.Left, lNear})
		case rHit:
			stack = append(stack, traversal{node.Right, rNear})
		}
	}

	if !ok {
		return Hit{}, false
	}
	return best, true
}

// intersectTriangle implements Möller-Trumbore.
func (b *BVH) intersectTriangle(faceIdx int32, origin, dir linear.V3) (Hit, bool) {
	i0 := b.indices[faceIdx*3+0]
	i1 := b.indices[faceIdx*3+1]
	i2 := b.indices[faceIdx*3+2]
	v0, v1, v2 := b.positions[i0], b.positions[i1], b.positions[i2]

	var edge1, edge2 linear.V3
	edge1.Sub(&v1, &v0)
	edge2.Sub(&v2, &v0)

	var h linear.V3
	h.Cross(&dir, &edge2)
	a := edge1.Dot(&h)
	if a > -triangleEps && a < triangleEps {
		return Hit{}, false
	}
	f := 1 / a

	var s linear.V3
	s.Sub(&origin, &v0)
	u := f * s.Dot(&h)
	if u < 0 || u > 1 {
		return Hit{}, false
	}

	var q linear.V3
	q.Cross(&s, &edge1)
	v := f * dir.Dot(&q)
	if v < 0 || u+v > 1 {
		return Hit{}, false
	}

	t := f * edge2.Dot(&q)
	if t <= triangleEps {
		return Hit{}, false
	}
	return Hit{
		T:              t,
		PrimitiveIndex: faceIdx,
		Barycentric:    linear.V3{1 - u - v, u, v},
	}, true
}

func max2(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}

func min2(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}
