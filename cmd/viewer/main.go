// Command viewer displays glTF models and a built-in showcase through the
// scene graph renderer.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"scenegraph/config"
	"scenegraph/core"
	"scenegraph/gpu"
	"scenegraph/internal/logger"
	"scenegraph/internal/opengl"
	"scenegraph/loader"
	"scenegraph/renderer"
	"scenegraph/scene"
)

func main() {
	cfgPath := flag.String("config", "", "TOML settings file")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	cfg.Assets.Models = append(cfg.Assets.Models, flag.Args()...)

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Development); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	err := run(cfg)
	if err != nil {
		logger.Log.Error("viewer failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	window, err := core.NewWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}
	scene.EnableVAO = cfg.Render.VAO

	v := renderer.NewViewer(dev)
	defer v.Release()

	cam := v.Camera()
	cam.SetPerspective(cfg.Render.FieldOfView, 1, cfg.Render.Near, cfg.Render.Far)
	cam.SetClearColor(mgl32.Vec4(cfg.Render.ClearColor))
	v.Resize(window.Width, window.Height)
	window.OnResize(v.Resize)

	cv := v.CullVisitor()
	cv.SetCullingEnabled(cfg.Render.FrustumCulling)
	cv.SetTraversalMask(cfg.Render.TraversalMask)

	root := buildShowcase()
	v.SetSceneData(root)

	ld := loader.NewLoader(cfg.Assets.Workers)
	defer ld.Close()
	for _, path := range cfg.Assets.Models {
		logger.Log.Info("loading model", zap.String("path", path))
		v.Attach(ld.LoadAsync(path))
	}

	dayNight := NewDayNight(cam, cam.StateSet())
	root.AddUpdateCallback(dayNight)

	controller := NewOrbitController(12)
	controller.Frame(root.Bound())
	window.SetScrollCallback(func(_, yoff float64) { controller.Zoom(yoff) })

	window.SetKeyCallback(func(key int) {
		switch key {
		case core.KeyEscape:
			window.SetShouldClose(true)
		case core.KeyF1:
			dev.SetWireframe(!dev.Wireframe())
		case core.KeyC:
			cv.SetCullingEnabled(!cv.CullingEnabled())
			logger.Log.Info("frustum culling", zap.Bool("enabled", cv.CullingEnabled()))
		case core.KeyN:
			dayNight.Active = !dayNight.Active
		case core.KeyR:
			controller.Frame(root.Bound())
		case core.KeySpace:
			pick(window, cam, root)
		}
	})

	var (
		hud       titleOverlay
		start     = window.Time()
		last      = start
		lastTitle = time.Now()
		frames    int
		attached  int
	)
	for !window.ShouldClose() {
		now := window.Time()
		dt := float32(now - last)
		last = now

		window.PollEvents()
		controller.Update(window, cam, dt)
		v.Frame(now - start)
		window.SwapBuffers()

		frames++
		st := v.Stats()
		if st.Attached > 0 {
			attached += st.Attached
			controller.Frame(root.Bound())
		}
		if elapsed := time.Since(lastTitle); elapsed >= time.Second {
			hud.Clear()
			hud.AddLine("%s", cfg.Window.Title)
			hud.AddLine("%.0f fps", float64(frames)/elapsed.Seconds())
			hud.AddLine("%d drawn, %d culled", st.Leaves, st.Culled)
			if pending := v.LoadQueue().Len(); pending > 0 {
				hud.AddLine("loading %d", pending)
			} else if attached > 0 {
				hud.AddLine("%d models", attached)
			}
			window.SetTitle(hud.Text())
			frames = 0
			lastTitle = time.Now()
		}
	}
	return nil
}

// pick logs the geometry under the cursor.
func pick(window *core.Window, cam *scene.Camera, root scene.Node) {
	w, h := window.GetSize()
	if w == 0 || h == 0 {
		return
	}
	x, y := window.GetCursorPos()
	ray := scene.ScreenToRay(float32(x), float32(y), float32(w), float32(h), cam.ViewMatrix(), cam.ProjectionMatrix())
	hits := scene.Intersect(root, ray)
	if len(hits) == 0 {
		logger.Log.Info("pick: nothing")
		return
	}
	hit := hits[0]
	logger.Log.Info("pick",
		zap.String("geometry", hit.Geometry.Name()),
		zap.Float32("distance", hit.Distance),
		zap.Int("face", hit.FaceIdx))
}

// buildShowcase assembles a small scene exercising transforms, shared
// geometry, per-node state and the transparent bin.
func buildShowcase() *scene.NodeBase {
	root := scene.NewNode()
	root.SetName("showcase")

	ground := scene.CreateBox(mgl32.Vec3{0, -0.05, 0}, 20, 0.1, 20)
	ground.SetName("ground")
	ground.SetStateSet(colorStateSet(0.62, 0.58, 0.52, 1))
	root.AddChild(ground)

	grid := scene.NewTransform()
	grid.SetMatrix(mgl32.Translate3D(0, 0.005, 0))
	grid.AddChild(scene.CreateGrid(20, 20))
	root.AddChild(grid)

	// one box shared by a ring of transforms
	crate := scene.CreateBox(mgl32.Vec3{0, 0.5, 0}, 1, 1, 1)
	crate.SetName("crate")
	crate.SetStateSet(colorStateSet(0.70, 0.43, 0.30, 1))
	ring := scene.NewTransform()
	ring.SetName("ring")
	const n = 8
	for i := range n {
		angle := float32(i) * 2 * math32.Pi / n
		xf := scene.NewTransform()
		xf.SetMatrix(mgl32.HomogRotate3DY(angle).Mul4(mgl32.Translate3D(6, 0, 0)))
		xf.AddChild(crate)
		ring.AddChild(xf)
	}
	ring.AddUpdateCallback(scene.UpdateFunc(func(node scene.Node, uv *scene.UpdateVisitor) bool {
		t := float32(uv.FrameStamp().SimulationTime)
		node.(*scene.Transform).SetMatrix(mgl32.HomogRotate3DY(t * 0.2))
		return true
	}))
	root.AddChild(ring)

	sphere := scene.CreateSphere(1.2, 32, 16)
	sphere.SetName("sphere")
	solid := scene.NewTransform()
	solid.SetName("marble")
	solid.SetStateSet(colorStateSet(0.92, 0.90, 0.86, 1))
	solid.SetMatrix(mgl32.Translate3D(-2, 1.2, 0))
	solid.AddChild(sphere)
	root.AddChild(solid)

	glass := scene.NewTransform()
	glass.SetName("glass")
	glass.SetMatrix(mgl32.Translate3D(2, 1.2, 0))
	glassState := colorStateSet(0.28, 0.52, 0.72, 0.45)
	glassState.SetRenderBin(gpu.TransparentBin)
	glass.SetStateSet(glassState)
	glass.AddChild(sphere)
	root.AddChild(glass)

	return root
}

func colorStateSet(r, g, b, a float32) *gpu.StateSet {
	ss := gpu.NewStateSet()
	ss.AddUniform(gpu.NewUniformFloats(loader.BaseColorUniform, r, g, b, a))
	return ss
}
