// Package scene describes the static geometry, materials and probe placements
// a probe network is built from.
package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/probenet/pkg/math"
)

// Scene errors.
var (
	ErrInvalidIndices = errors.New("invalid primitive indices")
)

// Scene is the input of a probe build.
type Scene struct {
	Meshes    []Mesh           `yaml:"meshes"`
	Materials []Material       `yaml:"materials"`
	Probes    []ProbePlacement `yaml:"probes"`
}

// Mesh is a set of primitives sharing a world transform.
type Mesh struct {
	Name       string      `yaml:"name"`
	World      math.Mat4   `yaml:"world"` // Column-major, all zero means identity
	Primitives []Primitive `yaml:"primitives"`
}

// Primitive is an indexed triangle list in mesh-local space.
type Primitive struct {
	MaterialID uint32       `yaml:"material"`
	Positions  [][3]float32 `yaml:"positions"`
	Indices    []uint32     `yaml:"indices"`
}

// Material is the part of a scene material the probe network cares about.
type Material struct {
	ID       uint32     `yaml:"id"`
	Name     string     `yaml:"name"`
	Albedo   [3]float32 `yaml:"albedo"`
	Emissive [3]float32 `yaml:"emissive"`
}

// IsEmissive reports whether the material emits light.
func (m *Material) IsEmissive() bool {
	return m.Emissive != [3]float32{}
}

// ProbePlacement is a probe as authored in the scene.
type ProbePlacement struct {
	Name     string      `yaml:"name"`
	Position [3]float32  `yaml:"position"`
	Radius   float32     `yaml:"radius"`
	Static   *StaticData `yaml:"static,omitempty"`
}

// StaticData is precomputed lighting a scene may ship with its probes.
type StaticData struct {
	SHOcclusion      [9]float32    `yaml:"sh_occlusion"`
	SHStaticLighting [9][3]float32 `yaml:"sh_static_lighting"`
}

// WorldMatrix returns the mesh's local-to-world transform.
func (m *Mesh) WorldMatrix() math.Mat4 {
	if m.World.IsZero() {
		return math.Identity()
	}
	return m.World
}

// FaceCount returns the number of triangles in the primitive.
func (p *Primitive) FaceCount() int {
	return len(p.Indices) / 3
}

// Validate checks the index buffer against the vertex count.
func (p *Primitive) Validate() error {
	if len(p.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidIndices, len(p.Indices))
	}
	for i, idx := range p.Indices {
		if int(idx) >= len(p.Positions) {
			return fmt.Errorf("%w: index %d references vertex %d of %d", ErrInvalidIndices, i, idx, len(p.Positions))
		}
	}
	return nil
}

// FaceCount returns the number of triangles in the whole scene.
func (s *Scene) FaceCount() int {
	n := 0
	for i := range s.Meshes {
		for j := range s.Meshes[i].Primitives {
			n += s.Meshes[i].Primitives[j].FaceCount()
		}
	}
	return n
}

// Bounds returns the world-space box enclosing all geometry and probes.
func (s *Scene) Bounds() math.AABB {
	b := math.EmptyAABB()
	for i := range s.Meshes {
		world := s.Meshes[i].WorldMatrix()
		for _, prim := range s.Meshes[i].Primitives {
			for _, p := range prim.Positions {
				b = b.Extend(world.TransformPoint(math.V3(p)))
			}
		}
	}
	for _, p := range s.Probes {
		b = b.Extend(math.V3(p.Position))
	}
	return b
}

// Material returns the material with the given ID.
func (s *Scene) Material(id uint32) (*Material, bool) {
	for i := range s.Materials {
		if s.Materials[i].ID == id {
			return &s.Materials[i], true
		}
	}
	return nil, false
}

// Validate checks every primitive.
func (s *Scene) Validate() error {
	for i := range s.Meshes {
		for j := range s.Meshes[i].Primitives {
			if err := s.Meshes[i].Primitives[j].Validate(); err != nil {
				return fmt.Errorf("mesh %d (%s) primitive %d: %w", i, s.Meshes[i].Name, j, err)
			}
		}
	}
	return nil
}

// Load reads a YAML scene description.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scene description.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
