package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/chronos/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// Window is the windowing collaborator the backend needs to talk to the
// Vulkan loader and to create a presentation surface.
type Window interface {
	GetInstanceProcAddress() unsafe.Pointer
	GetRequiredExtensionNames() []string
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

func initLoader(window Window) error {
	procAddr := window.GetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}
	return nil
}

// requiredInstanceExtensions merges the window extensions with the ones the
// backend itself needs on this platform.
func requiredInstanceExtensions(windowExtensions []string, goos string, validation bool) []string {
	extensions := append([]string{}, windowExtensions...)
	if goos == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func validationLayerAvailable() bool {
	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return false
	}

	for i := range availableLayers {
		availableLayers[i].Deref()
		end := FindFirstZeroInByteArray(availableLayers[i].LayerName[:])
		name := string(availableLayers[i].LayerName[:end])
		core.LogDebug("Available Layer: `%s`", name)
		if name == validationLayerName {
			return true
		}
	}
	return false
}

func (c *Context) createInstance(window Window) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(c.config.ApplicationName),
		PEngineName:        VulkanSafeString("Chronos Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	if c.config.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		if !validationLayerAvailable() {
			core.LogWarn("Required validation layer is missing: %s, continuing without it", validationLayerName)
			c.config.Validation = false
		} else {
			core.LogInfo("All required validation layers are present.")
		}
	}

	extensions := requiredInstanceExtensions(window.GetRequiredExtensionNames(), runtime.GOOS, c.config.Validation)
	core.LogDebug("Required extensions: %v", extensions)
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)

	if c.config.Validation {
		layers := []string{validationLayerName}
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)
	}

	if res := vk.CreateInstance(&createInfo, c.Allocator, &c.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(c.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func (c *Context) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
		PNext:       nil,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(c.Instance, &debugCreateInfo, c.Allocator, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return err
	}
	c.debugCallback = dbg

	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (c *Context) createSurface(window Window) error {
	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(c.Instance)
	if err != nil {
		err = fmt.Errorf("vulkan surface creation failed: %w", err)
		core.LogError(err.Error())
		return err
	}
	c.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
