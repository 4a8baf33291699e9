package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init("loud", false)
	assert.Error(t, err)
}

func TestInitSetsLevel(t *testing.T) {
	defer Set(nil)
	require.NoError(t, Init("warn", true))
	assert.False(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Log.Core().Enabled(zapcore.WarnLevel))
}

func TestSetNilRestoresNop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	Log.Debug("visible")
	assert.Equal(t, 1, logs.Len())

	Set(nil)
	Log.Error("dropped")
	assert.Equal(t, 1, logs.Len())
}
