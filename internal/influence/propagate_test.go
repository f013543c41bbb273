package influence

import (
	"reflect"
	"testing"

	"github.com/Faultbox/probenet/internal/meshgraph"
	"github.com/Faultbox/probenet/pkg/math"
)

// quadMesh returns a unit quad in the XZ plane split along its 0-2 diagonal.
func quadMesh() *meshgraph.Graph {
	positions := []math.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 1},
		{X: 0, Y: 0, Z: 1},
	}
	return meshgraph.Build(positions, []uint32{0, 1, 2, 0, 2, 3})
}

// stripMesh returns n unit quads laid along +X. Quad k owns faces 2k
// (center x = k+2/3) and 2k+1 (center x = k+1/3).
func stripMesh(n int) *meshgraph.Graph {
	var positions []math.Vec3
	for i := 0; i <= n; i++ {
		positions = append(positions,
			math.Vec3{X: float32(i), Y: 0, Z: 0},
			math.Vec3{X: float32(i), Y: 0, Z: 1},
		)
	}
	var indices []uint32
	for k := 0; k < n; k++ {
		v00, v01 := uint32(2*k), uint32(2*k+1)
		v10, v11 := uint32(2*k+2), uint32(2*k+3)
		indices = append(indices, v00, v10, v11, v00, v11, v01)
	}
	return meshgraph.Build(positions, indices)
}

func TestQuadSingleProbeSinglePass(t *testing.T) {
	g := quadMesh()
	p := NewPropagator(g, []math.Vec3{{X: 0.5, Y: 1, Z: 0.5}})

	if n := p.SeedNearestFaces(); n != 1 {
		t.Fatalf("expected 1 seed, got %d", n)
	}
	p.Sweep()

	if p.Pass() != 1 {
		t.Errorf("expected a single pass, got %d", p.Pass())
	}
	for f := 0; f < 2; f++ {
		id, ok := p.Owner(f)
		if !ok || id != 0 {
			t.Errorf("face %d: expected probe 0, got %d (assigned=%v)", f, id, ok)
		}
	}
}

func TestStripTwoProbes(t *testing.T) {
	const n = 8
	g := stripMesh(n)
	probes := []math.Vec3{
		{X: 0.5, Y: 1, Z: 0.5},
		{X: n - 0.5, Y: 1, Z: 0.5},
	}
	p := NewPropagator(g, probes)
	p.SeedNearestFaces()
	p.Run()

	if p.Unassigned() != 0 {
		t.Fatalf("expected every face assigned, %d left", p.Unassigned())
	}
	for f := range g.Faces {
		want := uint32(0)
		if f/2 >= n/2 {
			want = 1
		}
		if id, _ := p.Owner(f); id != want {
			t.Errorf("face %d (quad %d): expected probe %d, got %d", f, f/2, want, id)
		}
	}
}

func TestRunConverges(t *testing.T) {
	g := stripMesh(6)
	p := NewPropagator(g, []math.Vec3{{X: 5, Y: 1}, {X: 1, Y: 1}, {X: 3, Y: 1, Z: 1}})
	p.SeedNearestFaces()
	p.Run()

	if p.Sweep() {
		t.Error("a converged propagation should not change on another sweep")
	}
}

func TestPropagateSamePassIsNoop(t *testing.T) {
	g := quadMesh()
	p := NewPropagator(g, []math.Vec3{{X: 0.5, Y: 1, Z: 0.5}})
	p.Seed(0, 0, 1)

	if !p.PropagateProbeInfluences(0, 0, 1) {
		t.Fatal("first propagation should claim face 1")
	}
	if p.PropagateProbeInfluences(0, 0, 1) {
		t.Error("re-entering with the same pass should be rejected")
	}
	if p.PropagateProbeInfluences(0, 1, 1) {
		t.Error("starting from an already visited face should be rejected")
	}
}

func TestDeterminism(t *testing.T) {
	probes := []math.Vec3{{X: 0.2, Y: 1}, {X: 4.9, Y: 0.5, Z: 1}, {X: 2.5, Y: 2, Z: 0.5}}

	run := func() ([]int32, []ProbeInfluence, []meshgraph.Face) {
		g := stripMesh(5)
		p := NewPropagator(g, probes)
		p.SeedNearestFaces()
		p.Seed(3, 2, 10)
		p.Run()
		return p.FaceOwners(), p.Influences, g.Faces
	}

	owners1, inf1, faces1 := run()
	owners2, inf2, faces2 := run()
	if !reflect.DeepEqual(owners1, owners2) {
		t.Errorf("owners differ: %v vs %v", owners1, owners2)
	}
	if !reflect.DeepEqual(inf1, inf2) {
		t.Error("influence arenas differ")
	}
	if !reflect.DeepEqual(faces1, faces2) {
		t.Error("face records differ")
	}
}

func TestDisconnectedIslandFallback(t *testing.T) {
	positions := []math.Vec3{
		{X: 0}, {X: 1}, {Z: 1},
		{X: 10}, {X: 11}, {X: 10, Z: 1},
	}
	g := meshgraph.Build(positions, []uint32{0, 1, 2, 3, 4, 5})
	p := NewPropagator(g, []math.Vec3{{X: 0.3, Y: 1, Z: 0.3}})
	p.SeedNearestFaces()
	p.Run()

	if p.Unassigned() != 1 {
		t.Fatalf("expected the far island unassigned, got %d", p.Unassigned())
	}
	if n := p.AssignNearestProbe(); n != 1 {
		t.Errorf("expected 1 fallback assignment, got %d", n)
	}
	if id, ok := p.Owner(1); !ok || id != 0 {
		t.Errorf("island face should fall back to probe 0, got %d (%v)", id, ok)
	}
}

func TestAssignNearestProbeNoProbes(t *testing.T) {
	p := NewPropagator(quadMesh(), nil)
	if n := p.AssignNearestProbe(); n != 0 {
		t.Errorf("expected no assignment without probes, got %d", n)
	}
	if p.Unassigned() != 2 {
		t.Errorf("expected 2 unassigned faces, got %d", p.Unassigned())
	}
}

func TestSeedConflict(t *testing.T) {
	p := NewPropagator(quadMesh(), make([]math.Vec3, 3))

	if !p.Seed(0, 1, 0.5) {
		t.Fatal("first seed should claim the face")
	}
	if !p.Seed(0, 0, 0.5) {
		t.Error("equal influence should go to the lower probe ID")
	}
	if p.Seed(0, 2, 0.1) {
		t.Error("weaker seed should be rejected")
	}
	if id, _ := p.Owner(0); id != 0 {
		t.Errorf("expected probe 0, got %d", id)
	}
	if p.Seed(5, 0, 1) || p.Seed(0, 9, 1) {
		t.Error("out of range seeds should be rejected")
	}
}

func TestLocalProbePositions(t *testing.T) {
	local := LocalProbePositions(math.Translate(5, 0, 0), []math.Vec3{{X: 6, Y: 2}})
	if local[0].Distance(math.Vec3{X: 1, Y: 2}) > 1e-5 {
		t.Errorf("expected (1,2,0), got %v", local[0])
	}
}
