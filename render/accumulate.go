// Copyright 2024 The rayforge Authors. All rights reserved.

package render

import "rayforge/linear"

// Accumulate folds sample into buf[idx] using the frame-indexed
// running mean from §4.8: buf holds the mean of frames [0, frame], so
// the new mean is (old*frame + sample)/(frame+1). Frame 0, or any
// frame following a DirtyAccumulation reset, simply overwrites.
func Accumulate(buf []linear.V3, idx int, sample linear.V3, frame uint32, reset bool) {
	if frame == 0 || reset {
		buf[idx] = sample
		return
	}
	f := float32(frame)
	var scaled, sum linear.V3
	scaled.Scale(f, &buf[idx])
	sum.Add(&scaled, &sample)
	buf[idx].Scale(1/(f+1), &sum)
}
