package debug

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/finreact/config"
)

func TestDisabledDebuggerIsNoop(t *testing.T) {
	cfg := &config.Config{}
	cfg.Debug.EinoDebugPort = 52538
	d := NewEinoDebugger(cfg, nil)

	require.NoError(t, d.Initialize(context.Background()))
	assert.False(t, d.IsEnabled())
	assert.Empty(t, d.GetDebugURL())

	cfg.Debug.EinoDebugEnabled = true
	assert.Equal(t, "http://localhost:52538", d.GetDebugURL())
}
