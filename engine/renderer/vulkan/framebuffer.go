package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

type Framebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *RenderPass
	size        renderer.Extent
}

var _ renderer.Framebuffer = (*Framebuffer)(nil)

func mustFramebuffer(framebuffer renderer.Framebuffer) *Framebuffer {
	fb, ok := framebuffer.(*Framebuffer)
	if !ok {
		panic(fmt.Sprintf("vulkan: framebuffer is %T, not *vulkan.Framebuffer", framebuffer))
	}
	return fb
}

func NewFramebuffer(context *Context, renderpass *RenderPass, extent renderer.Extent, attachments []vk.ImageView) (*Framebuffer, error) {
	outFramebuffer := &Framebuffer{
		// Take a copy of the attachments.
		Attachments: append([]vk.ImageView{}, attachments...),
		Renderpass:  renderpass,
		size:        extent,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create framebuffer: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	outFramebuffer.Handle = handle
	return outFramebuffer, nil
}

func (fb *Framebuffer) Extent() renderer.Extent {
	return fb.size
}

func (fb *Framebuffer) Destroy(context *Context) {
	if fb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, fb.Handle, context.Allocator)
	}
	fb.Attachments = nil
	fb.Handle = nil
	fb.Renderpass = nil
}
