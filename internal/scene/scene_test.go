package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/probenet/pkg/math"
)

const testSceneYAML = `
materials:
  - id: 1
    name: floor
    albedo: [0.5, 0.5, 0.5]
  - id: 2
    name: lamp
    emissive: [4, 3, 2]
meshes:
  - name: floor
    primitives:
      - material: 1
        positions: [[0, 0, 0], [1, 0, 0], [1, 0, 1], [0, 0, 1]]
        indices: [0, 1, 2, 0, 2, 3]
  - name: lamp
    world: [1,0,0,0, 0,1,0,0, 0,0,1,0, 5,2,0,1]
    primitives:
      - material: 2
        positions: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
        indices: [0, 1, 2]
probes:
  - name: center
    position: [0.5, 1, 0.5]
    radius: 2
  - position: [5, 1, 0]
    radius: 1
    static:
      sh_occlusion: [1, 0, 0, 0, 0, 0, 0, 0, 0]
      sh_static_lighting: [[1,1,1],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0]]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(testSceneYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(s.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(s.Meshes))
	}
	if s.FaceCount() != 3 {
		t.Errorf("expected 3 faces, got %d", s.FaceCount())
	}
	if s.Meshes[0].WorldMatrix() != math.Identity() {
		t.Error("missing world matrix should be identity")
	}
	if s.Probes[0].Static != nil {
		t.Error("first probe should have no static data")
	}
	if s.Probes[1].Static == nil || s.Probes[1].Static.SHOcclusion[0] != 1 {
		t.Errorf("second probe static data not loaded: %+v", s.Probes[1].Static)
	}

	lamp, ok := s.Material(2)
	if !ok || !lamp.IsEmissive() {
		t.Errorf("expected emissive material 2, got %+v", lamp)
	}
	if _, ok := s.Material(99); ok {
		t.Error("unknown material should not resolve")
	}
}

func TestBounds(t *testing.T) {
	s, err := Parse([]byte(testSceneYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	b := s.Bounds()
	if b.Min != (math.Vec3{X: 0, Y: 0, Z: 0}) {
		t.Errorf("unexpected min %v", b.Min)
	}
	// Lamp is translated by (5,2,0): its top vertex sits at y=3.
	if b.Max != (math.Vec3{X: 6, Y: 3, Z: 1}) {
		t.Errorf("unexpected max %v", b.Max)
	}
}

func TestParseInvalidIndices(t *testing.T) {
	bad := `
meshes:
  - primitives:
      - positions: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
        indices: [0, 1, 5]
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrInvalidIndices) {
		t.Errorf("expected ErrInvalidIndices, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(testSceneYAML), 0644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Probes) != 2 {
		t.Errorf("expected 2 probes, got %d", len(s.Probes))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing scene")
	}
}
