package renderer

// Surface is the presentation surface the frame loop draws into.
type Surface interface {
	// Extent returns the current drawable size.
	Extent() Extent
	ShouldClose() bool
	// WasResized reports whether a resize happened since the last
	// ResetResized call.
	WasResized() bool
	ResetResized()
	// WaitEvents blocks until the platform delivers at least one event.
	WaitEvents()
}

// CommandBuffer receives the commands recorded for one frame.
type CommandBuffer interface {
	Begin() error
	End() error
	BeginRenderPass(pass RenderPass, framebuffer Framebuffer, area Extent, clear ClearValues)
	EndRenderPass()
	SetViewport(viewport Viewport)
	SetScissor(scissor Rect2D)
}

// Device is the subset of the logical GPU device the frame loop relies on.
type Device interface {
	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)
	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error
}

// ChainFactory builds presentation chains. previous is nil for the first
// chain; otherwise it is still alive and may hand resources to the new one.
// The caller destroys previous once NewChain returns.
type ChainFactory interface {
	NewChain(extent Extent, previous Chain) (Chain, error)
}

// Chain is a set of drawable images together with their framebuffers, the
// render pass they are compatible with and the synchronisation objects
// that keep the CPU from running ahead of the GPU.
type Chain interface {
	// AcquireNextImage waits for the in-flight slot about to be reused and
	// returns the index of the next image to render into.
	AcquireNextImage() (uint32, Status, error)
	// Submit queues cb for execution against imageIndex.
	Submit(cb CommandBuffer, imageIndex uint32) error
	// Present hands imageIndex back to the presentation engine and moves
	// on to the next in-flight slot.
	Present(imageIndex uint32) (Status, error)

	RenderPass() RenderPass
	Framebuffer(imageIndex uint32) Framebuffer
	Extent() Extent
	ImageCount() int
	Destroy()
}

// RenderPass describes the attachments a chain renders into.
type RenderPass interface {
	AttachmentCount() uint32
}

// Framebuffer binds a chain image (plus its depth attachment) to a render pass.
type Framebuffer interface {
	Extent() Extent
}

// Pipeline is an immutable graphics pipeline whose layout declares a single
// push constant range visible to the vertex and fragment stages.
type Pipeline interface {
	Bind(cb CommandBuffer)
	PushConstants(cb CommandBuffer, data []byte)
}

// Geometry is GPU resident vertex data. Both calls append commands to a
// command buffer that is inside an active render pass.
type Geometry interface {
	Bind(cb CommandBuffer)
	Draw(cb CommandBuffer)
}
