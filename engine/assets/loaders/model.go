package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/math"
)

// modelFile is the on-disk layout of a .model.toml file:
//
//	[[vertices]]
//	position = [0.0, -0.5]
//	color = [1.0, 0.0, 0.0]
type modelFile struct {
	Vertices []struct {
		Position [2]float32 `toml:"position"`
		Color    [3]float32 `toml:"color"`
	} `toml:"vertices"`
}

// ModelLoader reads vertex lists. Resource.Data is a []math.Vertex2D.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read model %s: %s", path, err)
		return nil, err
	}
	vertices, err := ml.parseModelData(data)
	if err != nil {
		err = fmt.Errorf("model %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), ".model.toml"),
		FullPath: path,
		DataSize: uint64(len(vertices)),
		Data:     vertices,
	}, nil
}

func (ml *ModelLoader) parseModelData(data []byte) ([]math.Vertex2D, error) {
	var file modelFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Vertices) < 3 {
		return nil, fmt.Errorf("%d vertices: %w", len(file.Vertices), core.ErrInvalidModel)
	}
	vertices := make([]math.Vertex2D, len(file.Vertices))
	for i, v := range file.Vertices {
		vertices[i] = math.Vertex2D{
			Position: math.NewVec2(v.Position[0], v.Position[1]),
			Colour:   math.NewVec3(v.Color[0], v.Color[1], v.Color[2]),
		}
	}
	return vertices, nil
}

func (ml *ModelLoader) Unload(res *Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}
