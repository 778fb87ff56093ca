package vulkan

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

func TestPresentStatus(t *testing.T) {
	status, err := presentStatus(vk.Success)
	require.NoError(t, err)
	assert.Equal(t, renderer.StatusOK, status)

	status, err = presentStatus(vk.Suboptimal)
	require.NoError(t, err)
	assert.Equal(t, renderer.StatusSuboptimal, status)

	status, err = presentStatus(vk.ErrorOutOfDate)
	require.NoError(t, err)
	assert.Equal(t, renderer.StatusOutOfDate, status)

	_, err = presentStatus(vk.ErrorDeviceLost)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VK_ERROR_DEVICE_LOST")
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", VulkanResultString(vk.ErrorOutOfDate, false))
	assert.Equal(t, "VK_UNKNOWN_RESULT", VulkanResultString(vk.Result(-12345), false))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"a", "b\x00", ""}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00", "\x00"}, out)
	assert.Equal(t, "a", in[0], "input must not be modified")
}

func TestFindFirstZeroInByteArray(t *testing.T) {
	assert.Equal(t, 3, FindFirstZeroInByteArray([]byte{'a', 'b', 'c', 0, 'd'}))
	assert.Equal(t, 2, FindFirstZeroInByteArray([]byte{'a', 'b'}))
}

func TestRequiredInstanceExtensions(t *testing.T) {
	window := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}

	exts := requiredInstanceExtensions(window, "linux", false)
	assert.Equal(t, window, exts)

	exts = requiredInstanceExtensions(window, "linux", true)
	assert.Contains(t, exts, vk.ExtDebugReportExtensionName)

	exts = requiredInstanceExtensions(window, "darwin", false)
	assert.Contains(t, exts, "VK_KHR_portability_enumeration")
	assert.Len(t, window, 2, "window extensions must not be modified")
}

func TestSelectQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []queueFamilyCaps
		want     queueFamilyInfo
	}{
		{
			name:     "first family does everything",
			families: []queueFamilyCaps{{Graphics: true, Present: true}, {Graphics: true}},
			want:     queueFamilyInfo{GraphicsFamilyIndex: 0, PresentFamilyIndex: 0},
		},
		{
			name:     "separate families",
			families: []queueFamilyCaps{{Graphics: true}, {Present: true}},
			want:     queueFamilyInfo{GraphicsFamilyIndex: 0, PresentFamilyIndex: 1},
		},
		{
			name:     "prefer a shared family",
			families: []queueFamilyCaps{{Graphics: true}, {Present: true}, {Graphics: true, Present: true}},
			want:     queueFamilyInfo{GraphicsFamilyIndex: 2, PresentFamilyIndex: 2},
		},
		{
			name:     "no present support",
			families: []queueFamilyCaps{{Graphics: true}},
			want:     queueFamilyInfo{GraphicsFamilyIndex: 0, PresentFamilyIndex: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectQueueFamilies(tt.families))
		})
	}

	req := physicalDeviceRequirements{Graphics: true, Present: true}
	assert.True(t, queueFamilyInfo{0, 0}.meets(req))
	assert.False(t, queueFamilyInfo{0, -1}.meets(req))
}

func TestChooseSwapSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSwapSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSwapSurfaceFormat([]vk.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes, true))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, false))
}

func TestChooseSwapExtent(t *testing.T) {
	minExtent := vk.Extent2D{Width: 100, Height: 100}
	maxExtent := vk.Extent2D{Width: 1920, Height: 1080}

	current := vk.Extent2D{Width: 800, Height: 600}
	assert.Equal(t, renderer.Extent{Width: 800, Height: 600},
		chooseSwapExtent(current, minExtent, maxExtent, renderer.Extent{Width: 1, Height: 1}))

	undefined := vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	assert.Equal(t, renderer.Extent{Width: 1920, Height: 100},
		chooseSwapExtent(undefined, minExtent, maxExtent, renderer.Extent{Width: 4000, Height: 50}))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(2, 0))
	assert.Equal(t, uint32(3), chooseImageCount(2, 8))
	assert.Equal(t, uint32(2), chooseImageCount(2, 2))
}

func TestEncodeVertices(t *testing.T) {
	vertices := []math.Vertex2D{
		{Position: math.NewVec2(0, -0.5), Colour: math.NewVec3(1, 0, 0)},
		{Position: math.NewVec2(0.5, 0.5), Colour: math.NewVec3(0, 1, 0)},
	}
	data := encodeVertices(vertices)
	require.Len(t, data, 2*VertexStride)

	f := func(off int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	assert.Equal(t, float32(-0.5), f(4))
	assert.Equal(t, float32(1), f(8))
	assert.Equal(t, float32(0.5), f(VertexStride))
	assert.Equal(t, float32(1), f(VertexStride+12))
}

func TestVertexDescriptions(t *testing.T) {
	bindings := VertexBindingDescriptions()
	require.Len(t, bindings, 1)
	assert.Equal(t, uint32(VertexStride), bindings[0].Stride)

	attrs := VertexAttributeDescriptions()
	require.Len(t, attrs, 2)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[0].Format)
	assert.Equal(t, uint32(0), attrs[0].Offset)
	assert.Equal(t, uint32(1), attrs[1].Location)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attrs[1].Format)
	assert.Equal(t, uint32(8), attrs[1].Offset)
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, cfg.Topology)
	assert.Equal(t, vk.PolygonModeFill, cfg.PolygonMode)
	assert.Equal(t, vk.CullModeNone, cfg.CullMode)
	assert.False(t, cfg.BlendEnable)
	assert.True(t, cfg.DepthTest)
	assert.True(t, cfg.DepthWrite)
	assert.Equal(t, DefaultPushConstantSize, cfg.PushConstantSize)
	assert.ElementsMatch(t, []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}, cfg.DynamicStates)
}

func TestLockPoolSerialisesGroup(t *testing.T) {
	lp := NewLockPool()
	calls := 0
	require.NoError(t, lp.SafeCall(PipelineManagement, func() error {
		calls++
		// A different group must not deadlock while this one is held.
		return lp.SafeCall(CommandPoolManagement, func() error {
			calls++
			return nil
		})
	}))
	require.NoError(t, lp.SafeQueueCall(0, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 3, calls)
}

func TestScissorRectUsesExtent(t *testing.T) {
	rect := vkRect2D(renderer.Rect2D{X: 4, Y: 8, Extent: renderer.Extent{Width: 640, Height: 480}})
	assert.Equal(t, int32(4), rect.Offset.X)
	assert.Equal(t, int32(8), rect.Offset.Y)
	assert.Equal(t, uint32(640), rect.Extent.Width)
	assert.Equal(t, uint32(480), rect.Extent.Height)
}
