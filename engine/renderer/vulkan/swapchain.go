package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/chronos/engine/core"
	emath "github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

// Swapchain is the presentation chain: the swapchain images and their views,
// one depth image and framebuffer per image, the render pass they share and
// the synchronisation objects that pace the CPU against the GPU.
//
// Acquire semaphores and in-flight fences are per frame slot; render-finished
// semaphores are per image, since presentation waits on them for the image
// and a slot may outpace the presentation engine.
type Swapchain struct {
	context *Context

	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	extent      renderer.Extent

	Images           []vk.Image
	Views            []vk.ImageView
	DepthAttachments []*Image
	Framebuffers     []*Framebuffer
	renderPass       *RenderPass

	maxFramesInFlight int
	currentFrame      int

	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
	inFlight       []*Fence
	// Fence of the slot that last rendered into each image, nil if none.
	imagesInFlight []*Fence
}

var _ renderer.Chain = (*Swapchain)(nil)

// NewSwapchain builds a chain sized for extent. A non nil previous chain is
// handed to the driver as oldSwapchain; the caller still destroys it.
func NewSwapchain(context *Context, extent renderer.Extent, previous *Swapchain) (*Swapchain, error) {
	support, err := context.Device.QuerySwapchainSupport(context.Surface)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		err := fmt.Errorf("surface reports no formats or present modes")
		core.LogError(err.Error())
		return nil, err
	}

	caps := support.Capabilities
	sc := &Swapchain{
		context:     context,
		ImageFormat: chooseSwapSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes, context.config.VSync),
		extent:      chooseSwapExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, extent),
	}
	imageCount := chooseImageCount(caps.MinImageCount, caps.MaxImageCount)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      sc.ImageFormat.Format,
		ImageColorSpace:  sc.ImageFormat.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: sc.extent.Width, Height: sc.extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if previous != nil {
		createInfo.OldSwapchain = previous.Handle
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	sc.Handle = handle

	if err := sc.createImageViews(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createRenderPass(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createDepthResources(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createFramebuffers(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createSyncObjects(); err != nil {
		sc.Destroy()
		return nil, err
	}

	core.LogDebug("Swapchain created: %dx%d, %d images, %d frames in flight",
		sc.extent.Width, sc.extent.Height, len(sc.Images), sc.maxFramesInFlight)
	return sc, nil
}

func (sc *Swapchain) createImageViews() error {
	var count uint32
	if res := vk.GetSwapchainImages(sc.context.Device.LogicalDevice, sc.Handle, &count, nil); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	sc.Images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(sc.context.Device.LogicalDevice, sc.Handle, &count, sc.Images); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	sc.Views = make([]vk.ImageView, 0, count)
	for _, image := range sc.Images {
		view, err := newImageView(sc.context, image, sc.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		sc.Views = append(sc.Views, view)
	}
	return nil
}

func (sc *Swapchain) createRenderPass() error {
	rp, err := NewRenderPass(sc.context, sc.ImageFormat.Format, sc.context.Device.DepthFormat)
	if err != nil {
		return err
	}
	sc.renderPass = rp
	return nil
}

func (sc *Swapchain) createDepthResources() error {
	sc.DepthAttachments = make([]*Image, 0, len(sc.Images))
	for range sc.Images {
		depth, err := NewImage(
			sc.context,
			sc.extent.Width,
			sc.extent.Height,
			sc.context.Device.DepthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		)
		if err != nil {
			return err
		}
		sc.DepthAttachments = append(sc.DepthAttachments, depth)
	}
	return nil
}

func (sc *Swapchain) createFramebuffers() error {
	sc.Framebuffers = make([]*Framebuffer, 0, len(sc.Images))
	for i := range sc.Images {
		attachments := []vk.ImageView{sc.Views[i], sc.DepthAttachments[i].View}
		fb, err := NewFramebuffer(sc.context, sc.renderPass, sc.extent, attachments)
		if err != nil {
			return err
		}
		sc.Framebuffers = append(sc.Framebuffers, fb)
	}
	return nil
}

func (sc *Swapchain) createSyncObjects() error {
	sc.maxFramesInFlight = emath.Clamp(sc.context.config.MaxFramesInFlight, 1, len(sc.Images))
	sc.currentFrame = 0

	semaphoreInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	newSemaphore := func() (vk.Semaphore, error) {
		var sem vk.Semaphore
		if res := vk.CreateSemaphore(sc.context.Device.LogicalDevice, &semaphoreInfo, sc.context.Allocator, &sem); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return vk.NullSemaphore, err
		}
		return sem, nil
	}

	for i := 0; i < sc.maxFramesInFlight; i++ {
		sem, err := newSemaphore()
		if err != nil {
			return err
		}
		sc.imageAvailable = append(sc.imageAvailable, sem)

		// Created signaled so the first wait on each slot returns at once.
		fence, err := NewFence(sc.context, true)
		if err != nil {
			return err
		}
		sc.inFlight = append(sc.inFlight, fence)
	}
	for range sc.Images {
		sem, err := newSemaphore()
		if err != nil {
			return err
		}
		sc.renderFinished = append(sc.renderFinished, sem)
	}
	sc.imagesInFlight = make([]*Fence, len(sc.Images))
	return nil
}

// AcquireNextImage waits for the current slot to retire and then asks the
// presentation engine for an image.
func (sc *Swapchain) AcquireNextImage() (uint32, renderer.Status, error) {
	if err := sc.inFlight[sc.currentFrame].Wait(sc.context, vk.MaxUint64); err != nil {
		return 0, renderer.StatusOK, err
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(
		sc.context.Device.LogicalDevice,
		sc.Handle,
		vk.MaxUint64,
		sc.imageAvailable[sc.currentFrame],
		vk.NullFence,
		&imageIndex)
	status, err := presentStatus(res)
	if err != nil {
		err = fmt.Errorf("failed to acquire swapchain image: %w", err)
		core.LogError(err.Error())
		return 0, status, err
	}
	return imageIndex, status, nil
}

// Submit queues the recorded buffer for imageIndex. It waits on the image
// available semaphore of the current slot and signals the render finished
// semaphore of the image plus the slot fence.
func (sc *Swapchain) Submit(cb renderer.CommandBuffer, imageIndex uint32) error {
	buffer := mustCommandBuffer(cb)

	// Make sure the previous frame is not using this image.
	if pending := sc.imagesInFlight[imageIndex]; pending != nil {
		if err := pending.Wait(sc.context, vk.MaxUint64); err != nil {
			return err
		}
	}
	fence := sc.inFlight[sc.currentFrame]
	sc.imagesInFlight[imageIndex] = fence

	if err := fence.Reset(sc.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sc.imageAvailable[sc.currentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.renderFinished[imageIndex]},
	}

	device := sc.context.Device
	if err := sc.context.locks.SafeQueueCall(uint32(device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
			return fmt.Errorf("failed to submit draw command buffer: %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	buffer.UpdateSubmitted()
	return nil
}

// Present hands imageIndex back to the presentation engine and advances the
// frame slot regardless of the outcome.
func (sc *Swapchain) Present(imageIndex uint32) (renderer.Status, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sc.renderFinished[imageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var res vk.Result
	device := sc.context.Device
	_ = sc.context.locks.SafeQueueCall(uint32(device.PresentQueueIndex), func() error {
		res = vk.QueuePresent(device.PresentQueue, &presentInfo)
		return nil
	})

	sc.currentFrame = (sc.currentFrame + 1) % sc.maxFramesInFlight

	status, err := presentStatus(res)
	if err != nil {
		err = fmt.Errorf("failed to present swapchain image: %w", err)
		core.LogError(err.Error())
		return status, err
	}
	return status, nil
}

func (sc *Swapchain) RenderPass() renderer.RenderPass {
	return sc.renderPass
}

func (sc *Swapchain) Framebuffer(imageIndex uint32) renderer.Framebuffer {
	return sc.Framebuffers[imageIndex]
}

func (sc *Swapchain) Extent() renderer.Extent {
	return sc.extent
}

func (sc *Swapchain) ImageCount() int {
	return len(sc.Images)
}

// Destroy releases everything the chain owns. The images themselves belong
// to the swapchain and go away with it. The device must be idle.
func (sc *Swapchain) Destroy() {
	device := sc.context.Device.LogicalDevice
	allocator := sc.context.Allocator

	for _, sem := range sc.imageAvailable {
		vk.DestroySemaphore(device, sem, allocator)
	}
	sc.imageAvailable = nil
	for _, sem := range sc.renderFinished {
		vk.DestroySemaphore(device, sem, allocator)
	}
	sc.renderFinished = nil
	for _, fence := range sc.inFlight {
		fence.Destroy(sc.context)
	}
	sc.inFlight = nil
	sc.imagesInFlight = nil

	for _, fb := range sc.Framebuffers {
		fb.Destroy(sc.context)
	}
	sc.Framebuffers = nil
	for _, depth := range sc.DepthAttachments {
		depth.Destroy(sc.context)
	}
	sc.DepthAttachments = nil
	if sc.renderPass != nil {
		sc.renderPass.Destroy(sc.context)
		sc.renderPass = nil
	}
	for _, view := range sc.Views {
		vk.DestroyImageView(device, view, allocator)
	}
	sc.Views = nil
	sc.Images = nil

	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, sc.Handle, allocator)
		sc.Handle = vk.NullSwapchain
	}
	core.LogDebug("Swapchain destroyed.")
}

// chooseSwapSurfaceFormat prefers 8-bit BGRA sRGB, falling back to the first
// format the surface lists.
func chooseSwapSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode uses mailbox when vsync is off and the surface offers
// it. FIFO is always available.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if !vsync {
		for _, mode := range modes {
			if mode == vk.PresentModeMailbox {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

// chooseSwapExtent returns the surface's current extent, or the window size
// clamped to the allowed range when the surface lets the swapchain decide.
func chooseSwapExtent(current, minExtent, maxExtent vk.Extent2D, window renderer.Extent) renderer.Extent {
	if current.Width != vk.MaxUint32 {
		return renderer.Extent{Width: current.Width, Height: current.Height}
	}
	return renderer.Extent{
		Width:  emath.Clamp(window.Width, minExtent.Width, maxExtent.Width),
		Height: emath.Clamp(window.Height, minExtent.Height, maxExtent.Height),
	}
}

// chooseImageCount asks for one more than the minimum. A maximum of zero
// means there is no limit.
func chooseImageCount(minImageCount, maxImageCount uint32) uint32 {
	count := minImageCount + 1
	if maxImageCount > 0 && count > maxImageCount {
		count = maxImageCount
	}
	return count
}
