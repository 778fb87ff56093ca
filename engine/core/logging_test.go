package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() {
		_ = SetLogLevel("info")
	})

	require.NoError(t, SetLogLevel("warn"))
	LogInfo("hidden %d", 1)
	assert.Empty(t, buf.String())

	LogWarn("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")

	require.NoError(t, SetLogLevel("DEBUG"))
	LogDebug("debug line")
	assert.Contains(t, buf.String(), "debug line")

	assert.Error(t, SetLogLevel("loud"))
}
