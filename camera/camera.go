// Copyright 2024 The rayforge Authors. All rights reserved.

// Package camera implements the CameraData record (§6) and the
// thin-lens ray construction raygen performs against it (§4.7).
package camera

import (
	"rayforge/linear"
	"rayforge/sampling"
)

// Data is the camera record consumed by raygen: a thin-lens/pinhole
// hybrid. Horizontal/vertical are pre-scaled to sensor dimensions in
// meters (§3: "horizontal basis (length = sensor width in meters)").
type Data struct {
	Position      linear.V3
	Direction     linear.V3 // unit
	Horizontal    linear.V3 // scaled to sensor width
	Vertical      linear.V3 // scaled to sensor height
	FocalLength   float32   // millimeters
	Aperture      float32   // f-stop; 0 disables depth of field
	FocusDistance float32   // meters
	BokehBias     float32   // shape parameter, >= 0
}

// Ray is a primary ray origin/direction pair.
type Ray struct {
	Origin, Direction linear.V3
}

// Default returns a camera at the origin looking down +Z with a
// 36mm sensor, 50mm focal length and no depth-of-field — a sane
// placeholder absent a scene-provided camera.
func Default() Data {
	return Data{
		Position:      linear.V3{0, 0, 0},
		Direction:     linear.V3{0, 0, 1},
		Horizontal:    linear.V3{0.036, 0, 0},
		Vertical:      linear.V3{0, 0.036, 0},
		FocalLength:   50,
		Aperture:      0,
		FocusDistance: 10,
		BokehBias:     0,
	}
}

// Generate builds the primary ray for pixel (x, y) of a widthxheight
// image at the given frame index, following §4.7 exactly: jitter is
// disabled on frame 0 (kept centered) and enabled afterward, then
// depth-of-field lens sampling is applied when Aperture > 0.
func (d *Data) Generate(x, y int, width, height int, frame uint32, rngX, rngY *sampling.State) Ray {
	jitterScale := float32(1)
	if frame == 0 {
		jitterScale = 0
	}
	jx := (rngX.Next() - 0.5) * jitterScale
	jy := (rngY.Next() - 0.5) * jitterScale

	u := (float32(x) + jx) / float32(width)
	v := (float32(y) + jy) / float32(height)
	v = 1 - v

	offsetX := u - 0.5
	offsetY := v - 0.5

	var dir linear.V3
	dir.Norm(&d.Direction)
	focalLength := d.FocalLength * 0.001

	var planeCenter, hOff, vOff, planePoint linear.V3
	planeCenter.Scale(focalLength, &dir)
	planeCenter.Add(&d.Position, &planeCenter)
	hOff.Scale(offsetX, &d.Horizontal)
	vOff.Scale(offsetY, &d.Vertical)
	planePoint.Add(&planeCenter, &hOff)
	planePoint.Add(&planePoint, &vOff)

	origin := d.Position
	var rayDir linear.V3
	rayDir.Sub(&planePoint, &origin)
	rayDir.Norm(&rayDir)

	if d.Aperture > 0 {
		apertureRadius := (d.FocalLength / d.Aperture) * 0.5 * 0.001
		lx, ly := sampling.RoundBokeh(rngX.Next(), rngY.Next(), d.BokehBias)
		lx *= apertureRadius
		ly *= apertureRadius

		var lensU, lensV linear.V3
		lensU.Norm(&d.Horizontal)
		lensV.Norm(&d.Vertical)

		var uOff, vOff2, lensOrigin linear.V3
		uOff.Scale(lx, &lensU)
		vOff2.Scale(ly, &lensV)
		lensOrigin.Add(&d.Position, &uOff)
		lensOrigin.Add(&lensOrigin, &vOff2)

		var focusPoint, focusDir linear.V3
		focusPoint.Scale(d.FocusDistance, &rayDir)
		focusPoint.Add(&origin, &focusPoint)
		focusDir.Sub(&focusPoint, &lensOrigin)
		focusDir.Norm(&focusDir)

		origin = lensOrigin
		rayDir = focusDir
	}

	return Ray{Origin: origin, Direction: rayDir}
}
