//go:build !scenedebug

package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"scenegraph/internal/logger"
	"scenegraph/scene"
)

func TestCullRepairsUnbalancedCallback(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })

	cam := scene.NewCamera()
	leaky := scene.NewNode()
	leaky.SetName("leaky")
	leaky.AddCullCallback(scene.CullFunc(func(n scene.Node, v scene.Visitor) bool {
		v.(*CullVisitor).PushModelViewMatrix(mgl32.Translate3D(1, 0, 0))
		return true
	}))
	leaky.AddChild(smallBox(0, 0, 0))
	cam.AddChild(leaky)
	cam.AddChild(smallBox(0.5, 0, 0))

	cv, _ := cull(cam)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "leaky", entry.ContextMap()["node"])
	assert.NotEqual(t, entry.ContextMap()["want"], entry.ContextMap()["got"])
	assert.Equal(t, stackDepth{0, 1, 1}, cv.depth())
	assert.Equal(t, mgl32.Ident4(), cv.ModelViewMatrix())
	assert.Equal(t, 2, cv.Stats().Leaves)
}
