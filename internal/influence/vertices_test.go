package influence

import (
	"math"
	"testing"

	"github.com/Faultbox/probenet/internal/meshgraph"
	pmath "github.com/Faultbox/probenet/pkg/math"
)

func TestRedistributeQuad(t *testing.T) {
	p := NewPropagator(quadMesh(), make([]pmath.Vec3, 2))
	p.Seed(0, 0, 1)
	p.Seed(1, 1, 1)

	verts := p.RedistributeProbeIDs2Vertices(WeightByCount, 4)

	if len(verts[0]) != 2 || verts[0][0].ProbeID != 0 || verts[0][1].ProbeID != 1 {
		t.Errorf("vertex 0 should blend probes 0 and 1: %+v", verts[0])
	}
	if verts[0][0].Influence != 0.5 {
		t.Errorf("expected weight 0.5, got %f", verts[0][0].Influence)
	}
	if len(verts[1]) != 1 || verts[1][0] != (ProbeInfluence{ProbeID: 0, Influence: 1}) {
		t.Errorf("vertex 1 should only see probe 0: %+v", verts[1])
	}
	if len(verts[3]) != 1 || verts[3][0].ProbeID != 1 {
		t.Errorf("vertex 3 should only see probe 1: %+v", verts[3])
	}
}

// fan returns three triangles around vertex 0.
func fan() *meshgraph.Graph {
	positions := []pmath.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: -1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: -4},
	}
	return meshgraph.Build(positions, []uint32{0, 2, 1, 0, 3, 2, 0, 1, 4})
}

func TestRedistributeMergesDuplicates(t *testing.T) {
	p := NewPropagator(fan(), make([]pmath.Vec3, 8))
	p.Seed(0, 3, 1)
	p.Seed(1, 3, 1)
	p.Seed(2, 7, 1)

	verts := p.RedistributeProbeIDs2Vertices(WeightByCount, 4)
	center := verts[0]
	if len(center) != 2 {
		t.Fatalf("expected probes 3 and 7, got %+v", center)
	}
	if center[0].ProbeID != 3 || math.Abs(center[0].Influence-2.0/3.0) > 1e-9 {
		t.Errorf("expected probe 3 with weight 2/3, got %+v", center[0])
	}
	if center[1].ProbeID != 7 || math.Abs(center[1].Influence-1.0/3.0) > 1e-9 {
		t.Errorf("expected probe 7 with weight 1/3, got %+v", center[1])
	}
}

func TestRedistributeByArea(t *testing.T) {
	p := NewPropagator(fan(), make([]pmath.Vec3, 8))
	p.Seed(0, 3, 1) // area 0.5
	p.Seed(1, 3, 1) // area 0.5
	p.Seed(2, 7, 1) // area 2

	center := p.RedistributeProbeIDs2Vertices(WeightByArea, 4)[0]
	if center[0].ProbeID != 7 {
		t.Errorf("largest face should dominate by area, got %+v", center)
	}
	if math.Abs(center[0].Influence-2.0/3.0) > 1e-6 {
		t.Errorf("expected weight 2/3, got %f", center[0].Influence)
	}
}

func TestRedistributeCap(t *testing.T) {
	p := NewPropagator(fan(), make([]pmath.Vec3, 8))
	p.Seed(0, 1, 1)
	p.Seed(1, 2, 1)
	p.Seed(2, 3, 1)

	center := p.RedistributeProbeIDs2Vertices(WeightByCount, 2)[0]
	if len(center) != 2 {
		t.Fatalf("expected 2 influences, got %d", len(center))
	}
	if center[0].ProbeID != 1 || center[1].ProbeID != 2 {
		t.Errorf("ties should keep the lower probe IDs: %+v", center)
	}
	if center[0].Influence+center[1].Influence != 1 {
		t.Errorf("weights should be renormalized, got %+v", center)
	}
}

func TestRedistributeUnclaimed(t *testing.T) {
	p := NewPropagator(quadMesh(), make([]pmath.Vec3, 1))
	verts := p.RedistributeProbeIDs2Vertices(WeightByCount, 4)
	for v, list := range verts {
		if len(list) != 0 {
			t.Errorf("vertex %d should have no influences, got %+v", v, list)
		}
	}
}

func TestParseWeighting(t *testing.T) {
	if ParseWeighting("area") != WeightByArea || ParseWeighting("count") != WeightByCount {
		t.Error("unexpected weighting mapping")
	}
}
