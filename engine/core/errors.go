package core

import (
	"errors"
)

var (
	ErrNoSuitableDevice = errors.New("no physical device meets the requirements")
	ErrShaderInvalid    = errors.New("invalid SPIR-V shader code")
	ErrInvalidModel     = errors.New("model requires at least 3 vertices")
	ErrConfig           = errors.New("invalid configuration")
	ErrSurfaceClosed    = errors.New("surface closed before a swapchain could be created")
)
