package logflags

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabled(t *testing.T) {
	f, err := Setup(false, "", "", nil)
	require.NoError(t, err)
	assert.False(t, f.Enabled(LayerTrace))
	assert.Equal(t, logrus.PanicLevel, f.TraceLogger().Logger.Level)

	_, err = Setup(false, "trace", "", nil)
	assert.Equal(t, errLayersWithoutLog, err)
}

func TestSetupLayers(t *testing.T) {
	var buf bytes.Buffer
	f, err := Setup(true, "trace,module", "debug", &buf)
	require.NoError(t, err)
	assert.True(t, f.Enabled(LayerTrace))
	assert.True(t, f.Enabled(LayerModule))
	assert.False(t, f.Enabled(LayerSymbol))

	f.TraceLogger().Debug("stopped")
	f.SymbolLogger().Error("dropped")
	out := buf.String()
	assert.Contains(t, out, "layer=trace")
	assert.Contains(t, out, "stopped")
	assert.NotContains(t, out, "dropped")
}

func TestSetupAllLayers(t *testing.T) {
	f, err := Setup(true, "", "", &bytes.Buffer{})
	require.NoError(t, err)
	for _, l := range []string{LayerSymbol, LayerTarget, LayerModule, LayerTrace} {
		assert.True(t, f.Enabled(l), l)
	}
	assert.Equal(t, logrus.InfoLevel, f.TargetLogger().Logger.Level)
}

func TestSetupErrors(t *testing.T) {
	_, err := Setup(true, "bogus", "", nil)
	assert.Error(t, err)
	_, err = Setup(true, "", "loud", nil)
	assert.Error(t, err)
}

func TestNilFlags(t *testing.T) {
	var f *Flags
	assert.False(t, f.Enabled(LayerTrace))
	assert.NotNil(t, f.TraceLogger())
}
