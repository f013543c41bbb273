package probenet

import (
	gomath "math"
	"sort"

	"github.com/Faultbox/probenet/internal/scene"
	"github.com/Faultbox/probenet/pkg/formats"
	"github.com/Faultbox/probenet/pkg/math"
	"github.com/Faultbox/probenet/pkg/sh"
)

// RenderDelegate renders a material into the encoder's working cube map.
type RenderDelegate interface {
	RenderMaterial(m *scene.Material)
}

// RenderFunc adapts a function to RenderDelegate.
type RenderFunc func(m *scene.Material)

// RenderMaterial implements RenderDelegate.
func (f RenderFunc) RenderMaterial(m *scene.Material) { f(m) }

// MaterialQuery resolves a material ID to the live material, nil when the
// material does not exist.
type MaterialQuery interface {
	QueryMaterial(id uint32) *scene.Material
}

// MaterialQueryFunc adapts a function to MaterialQuery.
type MaterialQueryFunc func(id uint32) *scene.Material

// QueryMaterial implements MaterialQuery.
func (f MaterialQueryFunc) QueryMaterial(id uint32) *scene.Material { return f(id) }

// SceneMaterials resolves materials from a scene description.
func SceneMaterials(sc *scene.Scene) MaterialQuery {
	return MaterialQueryFunc(func(id uint32) *scene.Material {
		m, _ := sc.Material(id)
		return m
	})
}

// FaceHit is a face seen directly by a probe. Face is the global face index:
// faces are numbered across meshes and primitives in scene order.
type FaceHit struct {
	Face   int
	Weight float64
}

// Capture is everything an encoder gathers around one probe.
type Capture struct {
	SHOcclusion      sh.Coeffs
	SHStaticLighting sh.RGB

	MeanDistance         float32
	MeanHarmonicDistance float32
	MinDistance          float32
	MaxDistance          float32
	BBoxMin              math.Vec3
	BBoxMax              math.Vec3

	Samples          []formats.SHPSample
	EmissiveSurfaces []formats.SHPEmissiveSurface

	// FaceHits seed influence propagation.
	FaceHits []FaceHit
}

// Encoder samples the scene around a probe. Implementations must be
// deterministic for byte-identical builds.
type Encoder interface {
	EncodeProbe(position math.Vec3, render RenderDelegate, sc *scene.Scene) (*Capture, error)
}

// Default F0 for dielectric samples.
var dielectricF0 = [3]float32{0.04, 0.04, 0.04}

// fullSphere is the DC coefficient of a fully unoccluded probe.
var fullSphere = float32(4 * gomath.Pi * 0.282095)

// GeometryEncoder gathers probe data straight from scene geometry, without
// a renderer. A face is visible when its front side faces the probe; each
// visible face covers the solid angle of its projected area.
type GeometryEncoder struct{}

type cluster struct {
	material  uint32
	area      float32
	weight    float32 // Solid angle covered
	position  math.Vec3
	normal    math.Vec3
	bestFace  int
	bestOmega float32
}

// EncodeProbe implements Encoder.
func (GeometryEncoder) EncodeProbe(position math.Vec3, render RenderDelegate, sc *scene.Scene) (*Capture, error) {
	if render != nil {
		for i := range sc.Materials {
			render.RenderMaterial(&sc.Materials[i])
		}
	}

	c := &Capture{}
	bbox := math.EmptyAABB()
	var blocked sh.Coeffs
	var sumDist, sumInvDist float64
	visible := 0
	c.MinDistance = float32(gomath.Inf(1))

	var clusters []cluster
	face := 0
	for mi := range sc.Meshes {
		mesh := &sc.Meshes[mi]
		world := mesh.WorldMatrix()
		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			cl := cluster{material: prim.MaterialID, bestFace: -1}

			for f := 0; f < prim.FaceCount(); f, face = f+1, face+1 {
				p0 := world.TransformPoint(math.V3(prim.Positions[prim.Indices[f*3]]))
				p1 := world.TransformPoint(math.V3(prim.Positions[prim.Indices[f*3+1]]))
				p2 := world.TransformPoint(math.V3(prim.Positions[prim.Indices[f*3+2]]))

				center := p0.Add(p1).Add(p2).Scale(1.0 / 3.0)
				cross := p1.Sub(p0).Cross(p2.Sub(p0))
				area := 0.5 * cross.Length()
				normal := cross.Normalize()

				toProbe := position.Sub(center)
				dist := toProbe.Length()
				if area == 0 || dist == 0 {
					continue
				}
				cosine := normal.Dot(toProbe) / dist
				if cosine <= 0 {
					continue
				}
				omega := min(area*cosine/(dist*dist), 2*gomath.Pi)

				dir := toProbe.Scale(-1 / dist)
				blocked = blocked.Add(sh.Basis(dir).Scale(omega))

				visible++
				sumDist += float64(dist)
				sumInvDist += 1 / float64(dist)
				c.MinDistance = min(c.MinDistance, dist)
				c.MaxDistance = max(c.MaxDistance, dist)
				bbox = bbox.Extend(center)

				cl.area += area
				cl.weight += omega
				cl.position = cl.position.Add(center.Scale(area))
				cl.normal = cl.normal.Add(normal.Scale(area))
				if omega > cl.bestOmega {
					cl.bestFace, cl.bestOmega = face, omega
				}
			}
			if cl.bestFace >= 0 {
				cl.position = cl.position.Scale(1 / cl.area)
				cl.normal = cl.normal.Normalize()
				clusters = append(clusters, cl)
			}
		}
	}

	c.SHOcclusion = blocked.Scale(-1)
	c.SHOcclusion[0] += fullSphere
	if visible == 0 {
		c.MinDistance = 0
		return c, nil
	}
	c.MeanDistance = float32(sumDist / float64(visible))
	c.MeanHarmonicDistance = float32(float64(visible) / sumInvDist)
	c.BBoxMin, c.BBoxMax = bbox.Min, bbox.Max

	// Most significant clusters first.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].weight > clusters[j].weight
	})

	for _, cl := range clusters {
		c.FaceHits = append(c.FaceHits, FaceHit{Face: cl.bestFace, Weight: float64(cl.bestOmega)})

		tangent, bitangent := tangentFrame(cl.normal, cl.area)
		dir := cl.position.Sub(position).Normalize()
		projected := sh.Basis(dir).Scale(cl.weight)

		mat, ok := sc.Material(cl.material)
		if ok && mat.IsEmissive() {
			c.SHStaticLighting = c.SHStaticLighting.Add(sh.FromScalar(projected, mat.Emissive))
			if len(c.EmissiveSurfaces) < formats.SHPMaxEmissiveSurfaces {
				c.EmissiveSurfaces = append(c.EmissiveSurfaces, formats.SHPEmissiveSurface{
					Position:   cl.position.Array(),
					Normal:     cl.normal.Array(),
					Tangent:    tangent.Array(),
					BiTangent:  bitangent.Array(),
					MaterialID: cl.material,
					SH:         projected,
				})
			}
			continue
		}

		if len(c.Samples) < formats.SHPMaxSamples {
			var albedo [3]float32
			if ok {
				albedo = mat.Albedo
			}
			c.Samples = append(c.Samples, formats.SHPSample{
				Position:  cl.position.Array(),
				Normal:    cl.normal.Array(),
				Tangent:   tangent.Array(),
				BiTangent: bitangent.Array(),
				Radius:    float32(gomath.Sqrt(float64(cl.area) / gomath.Pi)),
				Albedo:    albedo,
				F0:        dielectricF0,
				SHFactor:  cl.weight / (4 * gomath.Pi),
			})
		}
	}
	return c, nil
}

// tangentFrame returns two axes perpendicular to normal, scaled by the
// extent of a square of the given area.
func tangentFrame(normal math.Vec3, area float32) (math.Vec3, math.Vec3) {
	up := math.Vec3{Y: 1}
	if gomath.Abs(float64(normal.Y)) > 0.99 {
		up = math.Vec3{X: 1}
	}
	t := up.Cross(normal).Normalize()
	b := normal.Cross(t)
	extent := float32(gomath.Sqrt(float64(area)))
	return t.Scale(extent), b.Scale(extent)
}
