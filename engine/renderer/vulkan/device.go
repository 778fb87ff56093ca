package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/chronos/engine/core"
)

type SwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type Device struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures

	DepthFormat vk.Format
}

type physicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

// queueFamilyInfo holds the selected family indices, -1 when missing.
type queueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func (q queueFamilyInfo) meets(requirements physicalDeviceRequirements) bool {
	return (!requirements.Graphics || q.GraphicsFamilyIndex >= 0) &&
		(!requirements.Present || q.PresentFamilyIndex >= 0)
}

// queueFamilyCaps is the subset of a queue family the selection looks at.
type queueFamilyCaps struct {
	Graphics bool
	Present  bool
}

// selectQueueFamilies picks the first graphics-capable family and, for
// presentation, prefers that same family when it can present.
func selectQueueFamilies(families []queueFamilyCaps) queueFamilyInfo {
	info := queueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	for i, f := range families {
		if f.Graphics && info.GraphicsFamilyIndex < 0 {
			info.GraphicsFamilyIndex = int32(i)
		}
		if f.Present && info.PresentFamilyIndex < 0 {
			info.PresentFamilyIndex = int32(i)
		}
		if f.Graphics && f.Present {
			info.GraphicsFamilyIndex = int32(i)
			info.PresentFamilyIndex = int32(i)
			break
		}
	}
	return info
}

// NewDevice selects a physical device that can render and present to the
// context surface, then creates the logical device, its queues and the
// graphics command pool.
func NewDevice(context *Context) (*Device, error) {
	d := &Device{GraphicsQueueIndex: -1, PresentQueueIndex: -1}
	if err := d.selectPhysicalDevice(context); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(d.GraphicsQueueIndex)}
	if d.PresentQueueIndex != d.GraphicsQueueIndex {
		indices = append(indices, uint32(d.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if d.supportsExtension("VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	d.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.PresentQueueIndex), 0, &presentQueue)
	d.GraphicsQueue = graphicsQueue
	d.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(d.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		return nil, err
	}
	d.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return d, nil
}

func (d *Device) Destroy(context *Context) {
	d.GraphicsQueue = nil
	d.PresentQueue = nil

	core.LogInfo("Destroying command pools...")
	if d.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, context.Allocator)
		d.GraphicsCommandPool = nil
	}

	core.LogInfo("Destroying logical device...")
	if d.LogicalDevice != nil {
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		d.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
	d.GraphicsQueueIndex = -1
	d.PresentQueueIndex = -1
}

// QuerySwapchainSupport reads the capabilities, formats and present modes
// the surface offers on this device. It is called on every swapchain build
// because the current extent changes with the window.
func (d *Device) QuerySwapchainSupport(surface vk.Surface) (SwapchainSupportInfo, error) {
	return querySwapchainSupport(d.PhysicalDevice, surface)
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (SwapchainSupportInfo, error) {
	var info SwapchainSupportInfo

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return info, fmt.Errorf("failed to get surface capabilities: %s", VulkanResultString(res, true))
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return info, fmt.Errorf("failed to get surface formats: %s", VulkanResultString(res, true))
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return info, fmt.Errorf("failed to get surface formats: %s", VulkanResultString(res, true))
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return info, fmt.Errorf("failed to get surface present modes: %s", VulkanResultString(res, true))
	}
	if presentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, info.PresentModes); res != vk.Success {
			return info, fmt.Errorf("failed to get surface present modes: %s", VulkanResultString(res, true))
		}
	}
	return info, nil
}

func (d *Device) detectDepthFormat() bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			d.DepthFormat = candidate
			return true
		}
	}
	return false
}

func (d *Device) supportsExtension(name string) bool {
	return slices.Contains(deviceExtensions(d.PhysicalDevice), name)
}

func deviceExtensions(device vk.PhysicalDevice) []string {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return nil
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].ExtensionName[:])
		names = append(names, string(available[i].ExtensionName[:end]))
	}
	return names
}

func (d *Device) selectPhysicalDevice(context *Context) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrNoSuitableDevice)
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	requirements := physicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	// Prefer a discrete GPU, fall back to anything that qualifies.
	passes := []bool{true, false}
	if runtime.GOOS == "darwin" {
		passes = []bool{false}
	}
	for _, discrete := range passes {
		requirements.DiscreteGPU = discrete
		for _, candidate := range physicalDevices {
			var properties vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(candidate, &properties)
			properties.Deref()

			var features vk.PhysicalDeviceFeatures
			vk.GetPhysicalDeviceFeatures(candidate, &features)
			features.Deref()

			queueInfo, ok := physicalDeviceMeetsRequirements(candidate, context.Surface, &properties, requirements)
			if !ok {
				continue
			}

			d.PhysicalDevice = candidate
			d.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
			d.PresentQueueIndex = queueInfo.PresentFamilyIndex
			d.Properties = properties
			d.Features = features
			if !d.detectDepthFormat() {
				d.PhysicalDevice = nil
				core.LogWarn("Device has no supported depth format, skipping.")
				continue
			}
			logDeviceInfo(&properties)
			core.LogInfo("Physical device selected.")
			return nil
		}
	}

	err := fmt.Errorf("no physical device meets the requirements: %w", core.ErrNoSuitableDevice)
	core.LogError(err.Error())
	return err
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties) {
	end := FindFirstZeroInByteArray(properties.DeviceName[:])
	core.LogInfo("Selected device: '%s'.", string(properties.DeviceName[:end]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
}

func physicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, requirements physicalDeviceRequirements) (queueFamilyInfo, bool) {
	none := queueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("Device is not a discrete GPU, and one is required. Skipping.")
		return none, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	caps := make([]queueFamilyCaps, queueFamilyCount)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		caps[i].Graphics = queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return none, false
		}
		caps[i].Present = supportsPresent == vk.True
	}

	queueInfo := selectQueueFamilies(caps)
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)
	if !queueInfo.meets(requirements) {
		return none, false
	}

	support, err := querySwapchainSupport(device, surface)
	if err != nil || len(support.Formats) < 1 || len(support.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return none, false
	}

	available := deviceExtensions(device)
	for _, required := range requirements.DeviceExtensionNames {
		if !slices.Contains(available, required) {
			core.LogInfo("Required extension not found: '%s', skipping device.", required)
			return none, false
		}
	}
	return queueInfo, true
}
