package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

func TestFramebufferResizeSetsFlagAndQueuesEvent(t *testing.T) {
	events := core.NewEventQueue()
	p := New(events)

	p.onFramebufferResize(1024, 0)

	assert.True(t, p.WasResized())
	assert.Equal(t, renderer.Extent{Width: 1024, Height: 0}, p.Extent())
	assert.True(t, p.Extent().IsZero())

	queued := events.Drain()
	require.Len(t, queued, 1)
	assert.Equal(t, core.EVENT_CODE_RESIZED, queued[0].Type)
	assert.Equal(t, uint32(1024), queued[0].Width)
	assert.Equal(t, uint32(0), queued[0].Height)

	p.ResetResized()
	assert.False(t, p.WasResized())
}

func TestKeyActionsAreQueued(t *testing.T) {
	events := core.NewEventQueue()
	p := New(events)

	p.onKey(core.KEY_ESCAPE, glfw.Press)
	p.onKey(core.KEY_ESCAPE, glfw.Repeat)
	p.onKey(core.KEY_ESCAPE, glfw.Release)

	queued := events.Drain()
	require.Len(t, queued, 2)
	assert.Equal(t, core.EVENT_CODE_KEY_PRESSED, queued[0].Type)
	assert.Equal(t, core.KEY_ESCAPE, queued[0].KeyCode)
	assert.Equal(t, core.EVENT_CODE_KEY_RELEASED, queued[1].Type)
}

func TestCloseQueuesQuit(t *testing.T) {
	events := core.NewEventQueue()
	p := New(events)

	p.onClose()

	queued := events.Drain()
	require.Len(t, queued, 1)
	assert.Equal(t, core.EVENT_CODE_APPLICATION_QUIT, queued[0].Type)
}

func TestShouldCloseWithoutWindow(t *testing.T) {
	p := New(core.NewEventQueue())
	assert.True(t, p.ShouldClose())
	assert.NotPanics(t, p.RequestClose)
}
