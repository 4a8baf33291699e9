package main

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
	"scenegraph/renderer"
	"scenegraph/scene"
)

// dayPalette holds the sky and sun values for one key time of day.
type dayPalette struct {
	t            float32 // normalised time 0..1
	sky          mgl32.Vec4
	sunIntensity float32
}

// palettes is ordered by t and wraps (0 == 1).
var palettes = []dayPalette{
	{t: 0.00, sky: mgl32.Vec4{0.58, 0.75, 0.95, 1}, sunIntensity: 1.00}, // noon
	{t: 0.22, sky: mgl32.Vec4{0.90, 0.52, 0.18, 1}, sunIntensity: 0.75}, // golden hour
	{t: 0.30, sky: mgl32.Vec4{0.50, 0.22, 0.28, 1}, sunIntensity: 0.30}, // dusk
	{t: 0.50, sky: mgl32.Vec4{0.04, 0.04, 0.08, 1}, sunIntensity: 0.12}, // midnight
	{t: 0.70, sky: mgl32.Vec4{0.40, 0.18, 0.24, 1}, sunIntensity: 0.20}, // pre-dawn
	{t: 0.78, sky: mgl32.Vec4{0.88, 0.45, 0.22, 1}, sunIntensity: 0.60}, // sunrise
}

// samplePalette interpolates the palette at t in [0,1).
func samplePalette(t float32) dayPalette {
	n := len(palettes)
	for i := range palettes {
		a, b := palettes[i], palettes[(i+1)%n]
		ta, tb := a.t, b.t
		if i == n-1 {
			tb = 1
		}
		lt := t
		if i == n-1 && t < palettes[0].t {
			lt = t + 1
		}
		if lt >= ta && lt < tb {
			f := (lt - ta) / (tb - ta)
			return dayPalette{
				t:            t,
				sky:          a.sky.Add(b.sky.Sub(a.sky).Mul(f)),
				sunIntensity: a.sunIntensity + (b.sunIntensity-a.sunIntensity)*f,
			}
		}
	}
	return palettes[0]
}

// DayNight is an update callback that turns the sun around the scene and
// tints the master camera's clear color. It starts paused.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Active bool

	camera *scene.Camera
	light  *gpu.Uniform
}

// NewDayNight drives the LightDirection uniform of ss and the clear color
// of camera.
func NewDayNight(camera *scene.Camera, ss *gpu.StateSet) *DayNight {
	return &DayNight{
		Speed:  120,
		camera: camera,
		light:  ss.Uniform(renderer.LightDirectionUniform),
	}
}

func (dn *DayNight) Update(n scene.Node, uv *scene.UpdateVisitor) bool {
	if !dn.Active {
		return true
	}
	dn.Time += float32(uv.FrameStamp().DeltaTime) / dn.Speed
	dn.Time -= math32.Floor(dn.Time)
	p := samplePalette(dn.Time)

	angle := dn.Time * 2 * math32.Pi
	s, c := math32.Sincos(angle)
	// towards the sun, overhead at noon
	world := mgl32.Vec3{s, c, 0.35}.Normalize()
	if dn.light != nil {
		eye := dn.camera.ViewMatrix().Mat3().Mul3x1(world).Mul(max(p.sunIntensity, 0.05))
		dn.light.SetFloats(eye[0], eye[1], eye[2])
	}
	dn.camera.SetClearColor(p.sky)
	return true
}
