package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

type Config struct {
	ApplicationName string
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool
	// VSync forces FIFO presentation; otherwise mailbox is used when available.
	VSync bool
	// MaxFramesInFlight is clamped to the swapchain image count.
	MaxFramesInFlight int
}

// Context owns the instance, surface and logical device. It is the
// renderer.Device the frame loop talks to and the renderer.ChainFactory that
// builds swapchains.
type Context struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *Device

	config Config
	locks  *LockPool
}

var (
	_ renderer.Device       = (*Context)(nil)
	_ renderer.ChainFactory = (*Context)(nil)
)

func NewContext(window Window, config Config) (*Context, error) {
	if config.MaxFramesInFlight < 1 {
		config.MaxFramesInFlight = 1
	}
	c := &Context{
		Allocator: nil,
		config:    config,
		locks:     NewLockPool(),
	}

	if err := initLoader(window); err != nil {
		return nil, err
	}
	if err := c.createInstance(window); err != nil {
		return nil, err
	}
	if c.config.Validation {
		if err := c.createDebugCallback(); err != nil {
			c.Destroy()
			return nil, err
		}
	}
	if err := c.createSurface(window); err != nil {
		c.Destroy()
		return nil, err
	}
	device, err := NewDevice(c)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	c.Device = device

	core.LogInfo("Vulkan context initialized successfully.")
	return c, nil
}

// Destroy tears down everything in reverse creation order. The device must
// be idle and every chain, pipeline and buffer already destroyed.
func (c *Context) Destroy() {
	if c.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		c.Device.Destroy(c)
		c.Device = nil
	}

	if c.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(c.Instance, c.Surface, c.Allocator)
		c.Surface = vk.NullSurface
	}

	if c.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(c.Instance, c.debugCallback, c.Allocator)
		c.debugCallback = vk.NullDebugReportCallback
	}

	if c.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(c.Instance, c.Allocator)
		c.Instance = nil
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all of propertyFlags.
func (c *Context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return i, nil
		}
	}
	err := fmt.Errorf("unable to find suitable memory type for filter %#x and flags %#x", typeFilter, propertyFlags)
	core.LogWarn(err.Error())
	return 0, err
}

// AllocateCommandBuffers allocates count primary command buffers from the
// graphics command pool.
func (c *Context) AllocateCommandBuffers(count int) ([]renderer.CommandBuffer, error) {
	handles := make([]vk.CommandBuffer, count)
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.Device.GraphicsCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	if err := c.locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.AllocateCommandBuffers(c.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return fmt.Errorf("failed to allocate command buffers: %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	buffers := make([]renderer.CommandBuffer, count)
	for i := range handles {
		buffers[i] = &CommandBuffer{
			Handle: handles[i],
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	core.LogDebug("Vulkan command buffers created: %d", count)
	return buffers, nil
}

func (c *Context) FreeCommandBuffers(buffers []renderer.CommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb := mustCommandBuffer(b)
		if cb.Handle == nil {
			continue
		}
		handles = append(handles, cb.Handle)
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) == 0 {
		return
	}
	_ = c.locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(c.Device.LogicalDevice, c.Device.GraphicsCommandPool, uint32(len(handles)), handles)
		return nil
	})
}

func (c *Context) WaitIdle() error {
	if res := vk.DeviceWaitIdle(c.Device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("vkDeviceWaitIdle failed: '%s'", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// NewChain builds a swapchain for extent. When previous is a *Swapchain its
// handle is passed as oldSwapchain so the driver can recycle resources.
func (c *Context) NewChain(extent renderer.Extent, previous renderer.Chain) (renderer.Chain, error) {
	var old *Swapchain
	if previous != nil {
		sc, ok := previous.(*Swapchain)
		if !ok {
			panic(fmt.Sprintf("vulkan: previous chain is %T, not *vulkan.Swapchain", previous))
		}
		old = sc
	}
	return NewSwapchain(c, extent, old)
}
