package probenet

import (
	"testing"

	"github.com/Faultbox/probenet/internal/scene"
	"github.com/Faultbox/probenet/pkg/math"
)

func TestGeometryEncoderEmptyScene(t *testing.T) {
	c, err := GeometryEncoder{}.EncodeProbe(math.Vec3{}, nil, &scene.Scene{})
	if err != nil {
		t.Fatal(err)
	}
	if c.SHOcclusion[0] != fullSphere {
		t.Errorf("an empty scene should leave the probe unoccluded, got %f", c.SHOcclusion[0])
	}
	if len(c.FaceHits) != 0 || c.MinDistance != 0 {
		t.Errorf("expected no hits, got %+v", c)
	}
}

func TestGeometryEncoderFloor(t *testing.T) {
	sc := &scene.Scene{
		Meshes:    []scene.Mesh{{Primitives: []scene.Primitive{floorGrid(2, 1)}}},
		Materials: []scene.Material{{ID: 1, Albedo: [3]float32{0.2, 0.4, 0.6}}},
	}

	above, _ := GeometryEncoder{}.EncodeProbe(math.Vec3{X: 1, Y: 1, Z: 1}, nil, sc)
	if above.SHOcclusion[0] >= fullSphere {
		t.Errorf("the floor should occlude part of the sphere, got %f", above.SHOcclusion[0])
	}
	if len(above.Samples) != 1 || above.Samples[0].Albedo != [3]float32{0.2, 0.4, 0.6} {
		t.Errorf("expected one floor sample, got %+v", above.Samples)
	}
	if len(above.FaceHits) != 1 {
		t.Fatalf("expected one face hit per primitive, got %d", len(above.FaceHits))
	}
	if above.MinDistance >= above.MaxDistance || above.MeanHarmonicDistance > above.MeanDistance {
		t.Errorf("inconsistent distance stats %+v", above)
	}
	if above.BBoxMin.Y != 0 || above.BBoxMax.Y != 0 {
		t.Errorf("visible points lie on the floor, got %v..%v", above.BBoxMin, above.BBoxMax)
	}

	below, _ := GeometryEncoder{}.EncodeProbe(math.Vec3{X: 1, Y: -1, Z: 1}, nil, sc)
	if len(below.Samples) != 0 || len(below.FaceHits) != 0 {
		t.Error("back faces should not be visible")
	}
}
