package driver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"protochain/pkg/config"
	chainerrors "protochain/pkg/errors"
	"protochain/pkg/source"
	"protochain/pkg/vm"
)

const graphDoc = `
objects:
  - name: parent
    properties: {value: 2}
    methods:
      method: {field: value, add: 1}
  - name: child
    proto: parent
`

func TestSessionGraph(t *testing.T) {
	s, buf := newTestSession(t, config.Default())
	g, err := s.LoadGraph(source.NewInlineSource(graphDoc))
	require.NoError(t, err)

	child, err := g.Object("child")
	require.NoError(t, err)
	v, err := child.Invoke("method")
	assert.True(t, s.DisplayResult(buf, v, err))
	assert.Equal(t, "3\n", buf.String())

	// intrinsics are installed on the session realm
	has, err := child.Invoke("hasOwnProperty", vm.NewString("value"))
	require.NoError(t, err)
	assert.False(t, has.AsBoolean())

	var errOut bytes.Buffer
	_, err = child.Invoke("missing")
	assert.False(t, s.DisplayResult(&errOut, vm.Undefined, err))
	assert.Equal(t, "PropertyNotFound Error: property 'missing' not found on receiver or its prototype chain\n", errOut.String())
}

func TestSessionCacheStats(t *testing.T) {
	cfg := config.Default()
	cfg.EnablePrototypeCache = true
	cfg.DetailedCacheStats = true
	s, buf := newTestSession(t, cfg)
	require.NoError(t, s.RunLessons("inheriting-properties"))
	assert.Contains(t, buf.String(), "Prototype Chain Cache Stats:")
	assert.NotContains(t, buf.String(), "disabled")
}

func TestSessionLogsRebinding(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var buf bytes.Buffer
	s, err := NewSession(config.Default(), &buf, zap.New(core))
	require.NoError(t, err)

	_, err = s.LoadGraph(source.NewInlineSource("objects:\n  - name: a\n    proto: a\n"))
	require.ErrorIs(t, err, chainerrors.ErrCycleDetected)
	assert.Equal(t, 1, logs.FilterMessage("delegate rebinding rejected").Len())

	require.NoError(t, s.RunLesson("longer-chains"))
	assert.Equal(t, 1, logs.FilterMessage("lesson started").Len())
	assert.NotZero(t, logs.FilterMessage("delegate rebound").Len())
}
