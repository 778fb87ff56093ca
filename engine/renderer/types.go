package renderer

// Extent is the drawable size of a surface or chain, in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is 0, i.e. nothing can be presented.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// AspectRatio returns width / height, or 0 for a non presentable extent.
func (e Extent) AspectRatio() float32 {
	if e.IsZero() {
		return 0
	}
	return float32(e.Width) / float32(e.Height)
}

// Status is the non-fatal outcome of an acquire or present call. Fatal
// outcomes are reported through the accompanying error instead.
type Status uint8

const (
	StatusOK Status = iota
	// The chain can still be used but no longer matches the surface exactly.
	StatusSuboptimal
	// The chain can no longer be used and has to be rebuilt.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type Rect2D struct {
	X, Y   int32
	Extent Extent
}

// ClearValues are the values the colour and depth attachments are cleared
// to when a render pass begins.
type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// DefaultClearValues clears to a near black colour and the far depth plane.
func DefaultClearValues() ClearValues {
	return ClearValues{
		Color:   [4]float32{0.01, 0.01, 0.01, 1.0},
		Depth:   1.0,
		Stencil: 0,
	}
}
