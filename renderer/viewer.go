package renderer

import (
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
	"scenegraph/loader"
	"scenegraph/scene"
)

// FrameStats summarises the last frame.
type FrameStats struct {
	FrameNumber uint64
	Attached    int // asynchronous loads attached before the update pass
	CullStats
}

// Viewer owns a master camera and runs one frame as: attach finished loads,
// update, cull, draw. All methods must be called from the goroutine owning
// the device's context.
type Viewer struct {
	device gpu.Device
	state  *gpu.State
	camera *scene.Camera
	data   scene.Node

	update *scene.UpdateVisitor
	cull   *CullVisitor
	stage  *RenderStage
	loads  loader.Queue

	frame    uint64
	lastTime float64
	stats    FrameStats
}

// NewViewer returns a viewer drawing through dev with a perspective master
// camera and the default program at its root.
func NewViewer(dev gpu.Device) *Viewer {
	cam := scene.NewCamera()
	cam.SetName("master")
	cam.SetReferenceFrame(scene.AbsoluteRF)
	cam.SetPerspective(45, 1, 0.1, 1000)
	cam.SetStateSet(NewDefaultStateSet())

	return &Viewer{
		device: dev,
		state:  gpu.NewState(dev),
		camera: cam,
		update: scene.NewUpdateVisitor(),
		cull:   NewCullVisitor(),
		stage:  NewRenderStage(),
	}
}

func (v *Viewer) Camera() *scene.Camera     { return v.camera }
func (v *Viewer) CullVisitor() *CullVisitor { return v.cull }
func (v *Viewer) RenderStage() *RenderStage { return v.stage }
func (v *Viewer) State() *gpu.State         { return v.state }
func (v *Viewer) Stats() FrameStats         { return v.stats }
func (v *Viewer) LoadQueue() *loader.Queue  { return &v.loads }
func (v *Viewer) SceneData() scene.Node     { return v.data }

// SetSceneData replaces the graph under the master camera.
func (v *Viewer) SetSceneData(n scene.Node) {
	if v.data != nil {
		v.camera.RemoveChild(v.data)
	}
	v.data = n
	if n != nil {
		v.camera.AddChild(n)
	}
}

// Attach queues f to be added under the scene data once it resolves.
func (v *Viewer) Attach(f *loader.Future) {
	parent := v.data
	if parent == nil {
		parent = v.camera
	}
	v.loads.Add(f, parent)
}

// Resize sets the viewport and keeps the projection's aspect ratio.
func (v *Viewer) Resize(width, height int) {
	v.camera.SetViewport(scene.Viewport{Width: int32(width), Height: int32(height)})
	v.camera.UpdateAspectRatio(float32(width), float32(height))
}

// Frame runs one frame at simulationTime seconds.
func (v *Viewer) Frame(simulationTime float64) {
	v.stats = FrameStats{FrameNumber: v.frame}
	v.stats.Attached = v.loads.Flush()

	v.Update(simulationTime)
	v.Cull()
	v.Draw()
	v.frame++
}

// Update runs the update pass.
func (v *Viewer) Update(simulationTime float64) {
	fs := scene.FrameStamp{FrameNumber: v.frame, SimulationTime: simulationTime}
	if v.frame > 0 {
		fs.DeltaTime = simulationTime - v.lastTime
	}
	v.lastTime = simulationTime
	v.update.SetFrameStamp(fs)
	v.camera.Accept(v.update)
}

// Cull rebuilds the render stage from the master camera.
func (v *Viewer) Cull() {
	v.stage.Reset()
	v.stage.SetViewport(v.camera.Viewport())
	v.stage.SetClearColor(v.camera.ClearColor())
	v.stage.SetClearMask(v.camera.ClearMask())

	v.cull.SetRenderStage(v.stage)
	v.camera.Accept(v.cull)
	v.stats.CullStats = v.cull.Stats()
}

// Draw submits the render stage and leaves the state clean for the next
// frame.
func (v *Viewer) Draw() {
	v.state.Reset()
	v.stage.Draw(v.state)
	v.state.Reset()
}

// Release frees every GPU object reachable from the master camera and
// cancels pending loads.
func (v *Viewer) Release() {
	if n := v.loads.Len(); n > 0 {
		logger.Log.Debug("viewer: cancelling pending loads", zap.Int("count", n))
	}
	v.loads.Cancel()
	scene.ReleaseGPUObjects(v.camera, v.device)
}
