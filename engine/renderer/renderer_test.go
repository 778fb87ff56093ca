package renderer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
	"github.com/spaghettifunk/chronos/engine/renderer/renderertest"
)

type harness struct {
	rec     *renderertest.Recorder
	surface *renderertest.Surface
	device  *renderertest.Device
	factory *renderertest.ChainFactory
	r       *renderer.Renderer
}

func newHarness(t *testing.T, imageCounts ...int) *harness {
	t.Helper()
	rec := &renderertest.Recorder{}
	h := &harness{
		rec:     rec,
		surface: renderertest.NewSurface(renderer.Extent{Width: 800, Height: 600}),
		device:  renderertest.NewDevice(rec),
		factory: &renderertest.ChainFactory{ImageCounts: imageCounts, Recorder: rec},
	}
	r, err := renderer.New(h.surface, h.device, h.factory)
	require.NoError(t, err)
	h.r = r
	rec.Reset()
	return h
}

func (h *harness) frame(t *testing.T) {
	t.Helper()
	cb, err := h.r.BeginFrame()
	require.NoError(t, err)
	require.NotNil(t, cb)
	h.r.BeginRenderPass(cb)
	h.r.EndRenderPass(cb)
	require.NoError(t, h.r.EndFrame())
}

func TestNewBuildsChainAndCommandBuffers(t *testing.T) {
	h := newHarness(t, 3)

	require.Len(t, h.factory.Created, 1)
	assert.Nil(t, h.factory.Created[0].Previous)
	assert.Equal(t, renderer.Extent{Width: 800, Height: 600}, h.r.Chain().Extent())
	require.Len(t, h.device.Allocated, 1)
	assert.Len(t, h.device.Allocated[0], 3)
	assert.InDelta(t, 800.0/600.0, h.r.AspectRatio(), 1e-6)
	assert.Equal(t, uint64(1), h.r.Generation())
}

func TestBeginFrameTwicePanics(t *testing.T) {
	h := newHarness(t)

	_, err := h.r.BeginFrame()
	require.NoError(t, err)
	assert.True(t, h.r.IsFrameInProgress())
	assert.Panics(t, func() { _, _ = h.r.BeginFrame() })

	require.NoError(t, h.r.EndFrame())
	assert.False(t, h.r.IsFrameInProgress())
	assert.NotPanics(t, func() { _, _ = h.r.BeginFrame() })
}

func TestStateMachinePreconditions(t *testing.T) {
	h := newHarness(t)
	other := &renderertest.CommandBuffer{ID: 99, Recorder: h.rec}

	assert.Panics(t, func() { _ = h.r.EndFrame() }, "EndFrame while idle")
	assert.Panics(t, func() { h.r.BeginRenderPass(other) }, "render pass while idle")
	assert.Panics(t, func() { h.r.CurrentCommandBuffer() })
	assert.Panics(t, func() { h.r.FrameIndex() })

	cb, err := h.r.BeginFrame()
	require.NoError(t, err)
	assert.Panics(t, func() { h.r.BeginRenderPass(other) }, "foreign command buffer")
	assert.Panics(t, func() { h.r.EndRenderPass(cb) }, "no render pass active")

	h.r.BeginRenderPass(cb)
	assert.Panics(t, func() { _ = h.r.EndFrame() }, "render pass still active")
	h.r.EndRenderPass(cb)
	require.NoError(t, h.r.EndFrame())
}

func TestFrameRecordsRenderPassViewportAndScissor(t *testing.T) {
	h := newHarness(t)

	h.frame(t)

	assert.Equal(t, []string{
		"acquire",
		"begin cb0",
		"begin-render-pass 800x600",
		"set-viewport 800x600",
		"set-scissor 800x600",
		"end-render-pass",
		"end cb0",
		"submit 0",
		"present 0",
	}, h.rec.Commands())
}

func TestFrameIndexCyclesOverImages(t *testing.T) {
	h := newHarness(t, 2)

	var seen []int
	for i := 0; i < 4; i++ {
		_, err := h.r.BeginFrame()
		require.NoError(t, err)
		seen = append(seen, h.r.FrameIndex())
		require.NoError(t, h.r.EndFrame())
	}
	assert.Equal(t, []int{0, 1, 0, 1}, seen)
	assert.Equal(t, []uint32{0, 1, 0, 1}, h.factory.Last().Submitted)
}

func TestRebuildWaitsForPositiveExtent(t *testing.T) {
	rec := &renderertest.Recorder{}
	surface := renderertest.NewSurface(
		renderer.Extent{Width: 0, Height: 0},
		renderer.Extent{Width: 800, Height: 0},
		renderer.Extent{Width: 1024, Height: 768},
	)
	factory := &renderertest.ChainFactory{Recorder: rec}

	r, err := renderer.New(surface, renderertest.NewDevice(rec), factory)
	require.NoError(t, err)

	assert.Equal(t, 2, surface.WaitCalls)
	require.Len(t, factory.Created, 1)
	assert.Equal(t, renderer.Extent{Width: 1024, Height: 768}, r.Chain().Extent())
}

func TestRebuildWhileMinimizedBlocksUntilRestored(t *testing.T) {
	h := newHarness(t)
	h.surface.SetExtents(
		renderer.Extent{Width: 0, Height: 0},
		renderer.Extent{Width: 0, Height: 0},
		renderer.Extent{Width: 640, Height: 480},
	)
	h.surface.Resized = true

	h.frame(t)

	assert.Equal(t, 2, h.surface.WaitCalls)
	require.Len(t, h.factory.Created, 2)
	for _, c := range h.factory.Created {
		assert.False(t, c.Size.IsZero())
	}
	assert.Equal(t, renderer.Extent{Width: 640, Height: 480}, h.r.Chain().Extent())
}

func TestRebuildWhileMinimizedStopsWhenSurfaceCloses(t *testing.T) {
	h := newHarness(t)
	h.surface.SetExtents(renderer.Extent{})
	h.surface.Resized = true
	h.surface.Closed = true

	h.frame(t)

	assert.Len(t, h.factory.Created, 1)
	assert.Equal(t, 0, h.surface.WaitCalls)
}

func TestRebuildReallocatesCommandBuffersForNewImageCount(t *testing.T) {
	h := newHarness(t, 2, 3)
	first := h.factory.Created[0]
	first.Presents = []renderertest.PresentResult{{Status: renderer.StatusSuboptimal}}

	h.frame(t)

	require.Len(t, h.factory.Created, 2)
	second := h.factory.Created[1]
	assert.Same(t, first, second.Previous)
	assert.True(t, first.Destroyed)
	assert.False(t, second.Destroyed)

	require.Len(t, h.device.Allocated, 2)
	assert.Len(t, h.device.Allocated[1], 3)
	assert.Equal(t, 2, h.device.FreedCount)
	for _, cb := range h.device.Allocated[0] {
		assert.True(t, cb.(*renderertest.CommandBuffer).Freed)
	}
}

func TestRebuildTwiceKeepsImageCount(t *testing.T) {
	h := newHarness(t, 3)

	h.surface.Resized = true
	h.frame(t)
	h.surface.Resized = true
	h.frame(t)

	require.Len(t, h.factory.Created, 3)
	for _, c := range h.factory.Created {
		assert.Equal(t, 3, c.ImageCount())
	}
	assert.Len(t, h.device.Allocated, 1, "command buffers must not be reallocated")
	assert.Equal(t, 0, h.device.FreedCount)
	assert.Equal(t, 2, h.surface.ResetCalls)
	assert.Equal(t, uint64(3), h.r.Generation())
}

func TestOutOfDateAcquireSkipsFrameAndRebuilds(t *testing.T) {
	h := newHarness(t)
	first := h.factory.Created[0]
	first.Acquires = []renderertest.AcquireResult{{Status: renderer.StatusOutOfDate}}

	cb, err := h.r.BeginFrame()

	require.NoError(t, err)
	assert.Nil(t, cb)
	assert.False(t, h.r.IsFrameInProgress())
	assert.Equal(t, []string{"acquire"}, h.rec.Commands())
	assert.Empty(t, first.Submitted)
	require.Len(t, h.factory.Created, 2)
	assert.True(t, first.Destroyed)

	h.rec.Reset()
	h.frame(t)
	assert.Equal(t, 1, h.rec.Count("submit 0"))
}

func TestSuboptimalAcquireStillRendersFrame(t *testing.T) {
	h := newHarness(t)
	h.factory.Created[0].Acquires = []renderertest.AcquireResult{{Index: 1, Status: renderer.StatusSuboptimal}}

	h.frame(t)

	assert.Equal(t, []uint32{1}, h.factory.Created[0].Submitted)
	assert.Len(t, h.factory.Created, 1)
}

func TestOutOfDatePresentRebuilds(t *testing.T) {
	h := newHarness(t)
	h.factory.Created[0].Presents = []renderertest.PresentResult{{Status: renderer.StatusOutOfDate}}

	h.frame(t)

	assert.Len(t, h.factory.Created, 2)
	assert.False(t, h.r.IsFrameInProgress())
}

func TestFatalAcquireErrorIsWrapped(t *testing.T) {
	h := newHarness(t)
	lost := errors.New("device lost")
	h.factory.Created[0].Acquires = []renderertest.AcquireResult{{Err: lost}}

	cb, err := h.r.BeginFrame()

	assert.Nil(t, cb)
	require.ErrorIs(t, err, lost)
	assert.False(t, h.r.IsFrameInProgress())
	assert.Len(t, h.factory.Created, 1)
}

func TestFatalPresentErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	lost := errors.New("surface lost")
	h.factory.Created[0].Presents = []renderertest.PresentResult{{Err: lost}}

	_, err := h.r.BeginFrame()
	require.NoError(t, err)
	err = h.r.EndFrame()

	require.ErrorIs(t, err, lost)
	assert.False(t, h.r.IsFrameInProgress())
}

func TestRecordErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	broken := errors.New("out of host memory")
	for _, cb := range h.device.Allocated[0] {
		cb.(*renderertest.CommandBuffer).EndErr = broken
	}

	_, err := h.r.BeginFrame()
	require.NoError(t, err)

	require.ErrorIs(t, h.r.EndFrame(), broken)
	assert.Empty(t, h.factory.Created[0].Submitted)
}

func TestRebuildListenersRunWithNewChain(t *testing.T) {
	h := newHarness(t)
	var got []renderer.Chain
	h.r.OnRebuild(func(chain renderer.Chain) error {
		got = append(got, chain)
		return nil
	})

	h.surface.Resized = true
	h.frame(t)

	require.Len(t, got, 1)
	assert.Same(t, h.factory.Last(), got[0])
	// one wait for the initial chain, one for the rebuild
	assert.Equal(t, 2, h.device.WaitIdleCalls)
}

func TestRebuildListenerErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("pipeline")
	h.r.OnRebuild(func(renderer.Chain) error { return boom })
	h.factory.Created[0].Acquires = []renderertest.AcquireResult{{Status: renderer.StatusOutOfDate}}

	_, err := h.r.BeginFrame()

	require.ErrorIs(t, err, boom)
}

func TestNewFailsWhenSurfaceClosesWhileMinimized(t *testing.T) {
	rec := &renderertest.Recorder{}
	surface := renderertest.NewSurface(renderer.Extent{})
	surface.Closed = true
	factory := &renderertest.ChainFactory{Recorder: rec}

	r, err := renderer.New(surface, renderertest.NewDevice(rec), factory)

	require.ErrorIs(t, err, core.ErrSurfaceClosed)
	assert.Nil(t, r)
	assert.Empty(t, factory.Created)
}

func TestAllocateErrorFailsConstruction(t *testing.T) {
	rec := &renderertest.Recorder{}
	device := renderertest.NewDevice(rec)
	device.AllocateErr = errors.New("no memory")

	_, err := renderer.New(renderertest.NewSurface(renderer.Extent{Width: 1, Height: 1}), device, &renderertest.ChainFactory{Recorder: rec})

	require.ErrorIs(t, err, device.AllocateErr)
}

func TestDestroyReleasesEverything(t *testing.T) {
	h := newHarness(t, 2)
	chain := h.factory.Last()

	h.r.Destroy()

	assert.True(t, chain.Destroyed)
	assert.Equal(t, 2, h.device.FreedCount)
	assert.Nil(t, h.r.Chain())
}

func TestWithClearValues(t *testing.T) {
	rec := &renderertest.Recorder{}
	clear := renderer.ClearValues{Color: [4]float32{1, 0, 0, 1}, Depth: 1}
	r, err := renderer.New(
		renderertest.NewSurface(renderer.Extent{Width: 10, Height: 10}),
		renderertest.NewDevice(rec),
		&renderertest.ChainFactory{Recorder: rec},
		renderer.WithClearValues(clear),
	)
	require.NoError(t, err)

	cb, err := r.BeginFrame()
	require.NoError(t, err)
	r.BeginRenderPass(cb)

	assert.Equal(t, clear, cb.(*renderertest.CommandBuffer).LastClear)
	assert.Equal(t, [4]float32{0.01, 0.01, 0.01, 1.0}, renderer.DefaultClearValues().Color)
}

func TestExtent(t *testing.T) {
	assert.True(t, renderer.Extent{Width: 0, Height: 10}.IsZero())
	assert.True(t, renderer.Extent{Width: 10, Height: 0}.IsZero())
	assert.False(t, renderer.Extent{Width: 10, Height: 10}.IsZero())
	assert.Equal(t, float32(0), renderer.Extent{}.AspectRatio())
	assert.Equal(t, "out-of-date", renderer.StatusOutOfDate.String())
}
