package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/chronos/engine/core"
)

// ShaderLoader reads compiled SPIR-V. Resource.Data is a []uint32.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read shader %s: %s", path, err)
		return nil, err
	}
	code, err := ParseSPIRV(data)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), ".spv"),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(res *Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}
