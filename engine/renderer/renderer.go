package renderer

import (
	"fmt"

	"github.com/spaghettifunk/chronos/engine/core"
)

type frameState uint8

const (
	frameIdle frameState = iota
	frameStarted
	renderPassActive
)

func (s frameState) String() string {
	switch s {
	case frameIdle:
		return "idle"
	case frameStarted:
		return "frame-started"
	case renderPassActive:
		return "render-pass-active"
	}
	return "unknown"
}

// RebuildFunc is invoked after the presentation chain has been replaced.
// Anything built against the previous chain's render pass (pipelines, mostly)
// must be recreated here.
type RebuildFunc func(chain Chain) error

type Option func(*Renderer)

// WithClearValues overrides the values attachments are cleared to.
func WithClearValues(clear ClearValues) Option {
	return func(r *Renderer) {
		r.clear = clear
	}
}

/**
 * @brief Renderer drives the per frame state machine:
 * Idle -> BeginFrame -> FrameStarted -> BeginRenderPass -> RenderPassActive
 * -> EndRenderPass -> FrameStarted -> EndFrame -> Idle.
 *
 * It owns the current presentation chain and one command buffer per chain
 * image, and it rebuilds the chain whenever acquire or present says it is
 * stale or the surface was resized.
 */
type Renderer struct {
	surface Surface
	device  Device
	factory ChainFactory

	chain          Chain
	commandBuffers []CommandBuffer
	generation     uint64

	state             frameState
	currentImageIndex uint32
	currentFrameIndex int

	clear     ClearValues
	listeners []RebuildFunc
}

// New creates the first presentation chain and its command buffers.
func New(surface Surface, device Device, factory ChainFactory, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		surface: surface,
		device:  device,
		factory: factory,
		clear:   DefaultClearValues(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.recreateChain(); err != nil {
		return nil, err
	}
	return r, nil
}

// OnRebuild registers fn to be called, in registration order, every time
// the chain is replaced.
func (r *Renderer) OnRebuild(fn RebuildFunc) {
	r.listeners = append(r.listeners, fn)
}

// BeginFrame acquires the next chain image and starts recording into its
// command buffer. A nil command buffer with a nil error means the chain was
// out of date and has been rebuilt; the caller should skip this iteration.
func (r *Renderer) BeginFrame() (CommandBuffer, error) {
	if r.state != frameIdle {
		panic(fmt.Sprintf("renderer: cannot call BeginFrame while %s", r.state))
	}

	imageIndex, status, err := r.chain.AcquireNextImage()
	if err != nil {
		err = fmt.Errorf("failed to acquire swapchain image: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	if status == StatusOutOfDate {
		core.LogDebug("swapchain out of date on acquire, rebuilding")
		if err := r.recreateChain(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if int(imageIndex) >= len(r.commandBuffers) {
		err := fmt.Errorf("acquired image index %d out of range for %d command buffers", imageIndex, len(r.commandBuffers))
		core.LogError(err.Error())
		return nil, err
	}

	cb := r.commandBuffers[imageIndex]
	if err := cb.Begin(); err != nil {
		err = fmt.Errorf("failed to begin recording command buffer: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	r.currentImageIndex = imageIndex
	r.state = frameStarted
	return cb, nil
}

// BeginRenderPass starts the chain's render pass on cb and sets a dynamic
// viewport and scissor covering the whole chain extent.
func (r *Renderer) BeginRenderPass(cb CommandBuffer) {
	if r.state != frameStarted {
		panic(fmt.Sprintf("renderer: cannot call BeginRenderPass while %s", r.state))
	}
	r.assertCurrent(cb, "BeginRenderPass")

	extent := r.chain.Extent()
	cb.BeginRenderPass(r.chain.RenderPass(), r.chain.Framebuffer(r.currentImageIndex), extent, r.clear)
	cb.SetViewport(Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	})
	cb.SetScissor(Rect2D{X: 0, Y: 0, Extent: extent})
	r.state = renderPassActive
}

func (r *Renderer) EndRenderPass(cb CommandBuffer) {
	if r.state != renderPassActive {
		panic(fmt.Sprintf("renderer: cannot call EndRenderPass while %s", r.state))
	}
	r.assertCurrent(cb, "EndRenderPass")

	cb.EndRenderPass()
	r.state = frameStarted
}

// EndFrame finishes recording, submits and presents. The renderer is back
// to idle once this returns, whatever the outcome.
func (r *Renderer) EndFrame() error {
	if r.state != frameStarted {
		panic(fmt.Sprintf("renderer: cannot call EndFrame while %s", r.state))
	}
	defer func() {
		r.state = frameIdle
	}()

	cb := r.commandBuffers[r.currentImageIndex]
	if err := cb.End(); err != nil {
		err = fmt.Errorf("failed to record command buffer: %w", err)
		core.LogError(err.Error())
		return err
	}
	if err := r.chain.Submit(cb, r.currentImageIndex); err != nil {
		err = fmt.Errorf("failed to submit draw command buffer: %w", err)
		core.LogError(err.Error())
		return err
	}
	status, err := r.chain.Present(r.currentImageIndex)
	if err != nil {
		err = fmt.Errorf("failed to present swapchain image: %w", err)
		core.LogError(err.Error())
		return err
	}

	if status != StatusOK || r.surface.WasResized() {
		core.LogDebug("rebuilding swapchain after present (status=%s, resized=%t)", status, r.surface.WasResized())
		r.surface.ResetResized()
		if err := r.recreateChain(); err != nil {
			return err
		}
		return nil
	}
	r.currentFrameIndex = (r.currentFrameIndex + 1) % r.chain.ImageCount()
	return nil
}

// Destroy releases the command buffers and the chain. The caller must make
// sure the device is idle first.
func (r *Renderer) Destroy() {
	r.freeCommandBuffers()
	if r.chain != nil {
		r.chain.Destroy()
		r.chain = nil
	}
	r.listeners = nil
}

func (r *Renderer) recreateChain() error {
	extent := r.surface.Extent()
	for extent.IsZero() {
		if r.surface.ShouldClose() {
			if r.chain == nil {
				core.LogError(core.ErrSurfaceClosed.Error())
				return core.ErrSurfaceClosed
			}
			core.LogDebug("surface closed while minimized, keeping the current swapchain")
			return nil
		}
		r.surface.WaitEvents()
		extent = r.surface.Extent()
	}

	if err := r.device.WaitIdle(); err != nil {
		err = fmt.Errorf("failed to wait for device idle before swapchain rebuild: %w", err)
		core.LogError(err.Error())
		return err
	}

	previous := r.chain
	chain, err := r.factory.NewChain(extent, previous)
	if err != nil {
		err = fmt.Errorf("failed to create swapchain: %w", err)
		core.LogError(err.Error())
		return err
	}
	if previous != nil {
		previous.Destroy()
	}
	r.chain = chain
	r.generation++
	r.currentFrameIndex = 0

	if len(r.commandBuffers) != chain.ImageCount() {
		r.freeCommandBuffers()
		buffers, err := r.device.AllocateCommandBuffers(chain.ImageCount())
		if err != nil {
			err = fmt.Errorf("failed to allocate command buffers: %w", err)
			core.LogError(err.Error())
			return err
		}
		r.commandBuffers = buffers
	}

	for _, fn := range r.listeners {
		if err := fn(chain); err != nil {
			return err
		}
	}
	core.LogDebug("swapchain rebuilt: %dx%d, %d images", extent.Width, extent.Height, chain.ImageCount())
	return nil
}

func (r *Renderer) freeCommandBuffers() {
	if len(r.commandBuffers) == 0 {
		return
	}
	r.device.FreeCommandBuffers(r.commandBuffers)
	r.commandBuffers = nil
}

func (r *Renderer) assertCurrent(cb CommandBuffer, op string) {
	if cb != r.commandBuffers[r.currentImageIndex] {
		panic(fmt.Sprintf("renderer: cannot call %s on a command buffer from a different frame", op))
	}
}

// Chain returns the current presentation chain.
func (r *Renderer) Chain() Chain {
	return r.chain
}

func (r *Renderer) RenderPass() RenderPass {
	return r.chain.RenderPass()
}

func (r *Renderer) AspectRatio() float32 {
	return r.chain.Extent().AspectRatio()
}

// Generation increments every time the chain is replaced.
func (r *Renderer) Generation() uint64 {
	return r.generation
}

func (r *Renderer) IsFrameInProgress() bool {
	return r.state != frameIdle
}

func (r *Renderer) CurrentCommandBuffer() CommandBuffer {
	if r.state == frameIdle {
		panic("renderer: cannot get command buffer when frame not in progress")
	}
	return r.commandBuffers[r.currentImageIndex]
}

// FrameIndex is the in-flight frame counter, cycling over the chain images.
func (r *Renderer) FrameIndex() int {
	if r.state == frameIdle {
		panic("renderer: cannot get frame index when frame not in progress")
	}
	return r.currentFrameIndex
}

func (r *Renderer) ImageIndex() uint32 {
	if r.state == frameIdle {
		panic("renderer: cannot get image index when frame not in progress")
	}
	return r.currentImageIndex
}
