package main

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/core"
	"scenegraph/scene"
)

// OrbitController turns the master camera around a target point: right drag
// rotates, the wheel zooms and WASD/QE move the target.
type OrbitController struct {
	target    mgl32.Vec3
	distance  float32
	yaw       float32 // degrees around +Y, 0 looks down -Z
	pitch     float32 // degrees, clamped short of the poles
	moveSpeed float32
	lookSpeed float32

	lastMouseX float64
	lastMouseY float64
	firstMouse bool
}

func NewOrbitController(distance float32) *OrbitController {
	return &OrbitController{
		distance:   distance,
		pitch:      20,
		moveSpeed:  4,
		lookSpeed:  0.25,
		firstMouse: true,
	}
}

// Frame centres the orbit on bs and backs off far enough to see all of it.
func (oc *OrbitController) Frame(bs scene.BoundingSphere) {
	if !bs.Valid() {
		return
	}
	oc.target = bs.Center()
	oc.distance = max(bs.Radius()*2.5, 1)
}

// Zoom scales the orbit distance by a wheel delta.
func (oc *OrbitController) Zoom(yoff float64) {
	oc.distance *= math32.Pow(0.9, float32(yoff))
	oc.distance = min(max(oc.distance, 0.05), 1e5)
}

func (oc *OrbitController) Update(window *core.Window, camera *scene.Camera, deltaTime float32) {
	// cap to avoid huge jumps on the first frames or hitches
	deltaTime = min(deltaTime, 0.05)

	if window.IsMouseButtonPressed(core.MouseRight) {
		mouseX, mouseY := window.GetCursorPos()
		if oc.firstMouse {
			oc.lastMouseX, oc.lastMouseY = mouseX, mouseY
			oc.firstMouse = false
		}
		oc.yaw += float32(mouseX-oc.lastMouseX) * oc.lookSpeed
		oc.pitch += float32(mouseY-oc.lastMouseY) * oc.lookSpeed
		oc.pitch = min(max(oc.pitch, -88), 88)
		oc.lastMouseX, oc.lastMouseY = mouseX, mouseY
	} else {
		oc.firstMouse = true
	}

	yawRad := mgl32.DegToRad(oc.yaw)
	pitchRad := mgl32.DegToRad(oc.pitch)
	sy, cy := math32.Sincos(yawRad)
	sp, cp := math32.Sincos(pitchRad)
	// from the target towards the eye
	back := mgl32.Vec3{-sy * cp, sp, cy * cp}

	forward := mgl32.Vec3{sy, 0, -cy}
	right := mgl32.Vec3{cy, 0, sy}
	var move mgl32.Vec3
	if window.IsKeyPressed(core.KeyW) {
		move = move.Add(forward)
	}
	if window.IsKeyPressed(core.KeyS) {
		move = move.Sub(forward)
	}
	if window.IsKeyPressed(core.KeyD) {
		move = move.Add(right)
	}
	if window.IsKeyPressed(core.KeyA) {
		move = move.Sub(right)
	}
	if window.IsKeyPressed(core.KeyE) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if window.IsKeyPressed(core.KeyQ) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() > 0 {
		// scale with distance so large models stay navigable
		speed := oc.moveSpeed * max(oc.distance/10, 0.1)
		oc.target = oc.target.Add(move.Normalize().Mul(speed * deltaTime))
	}

	eye := oc.target.Add(back.Mul(oc.distance))
	camera.SetLookAt(eye, oc.target, mgl32.Vec3{0, 1, 0})
}
