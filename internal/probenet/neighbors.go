package probenet

import (
	gomath "math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"go.uber.org/zap"

	"github.com/Faultbox/probenet/internal/logger"
	"github.com/Faultbox/probenet/pkg/formats"
	"github.com/Faultbox/probenet/pkg/math"
)

// probeTolerance pads probe points into boxes for the R-tree.
const probeTolerance = 1e-5

// probeSpatial is a probe position stored in the R-tree.
type probeSpatial struct {
	id   int
	rect rtreego.Rect
}

func (p *probeSpatial) Bounds() rtreego.Rect {
	return p.rect
}

func toPoint(v [3]float32) rtreego.Point {
	return rtreego.Point{float64(v[0]), float64(v[1]), float64(v[2])}
}

// SolidAngle returns the solid angle of a sphere of the given radius seen
// from distance away. A viewer inside the sphere sees a hemisphere.
func SolidAngle(radius, distance float32) float32 {
	if radius <= 0 {
		return 0
	}
	if radius >= distance {
		return 2 * gomath.Pi
	}
	ratio := float64(radius / distance)
	return float32(2 * gomath.Pi * (1 - gomath.Sqrt(1-ratio*ratio)))
}

type candidate struct {
	id         int
	distance   float32
	solidAngle float32
	direction  math.Vec3
}

// moreSignificant orders candidates by perceived solid angle, then distance,
// then neighbor ID.
func moreSignificant(a, b candidate) bool {
	if a.solidAngle != b.solidAngle {
		return a.solidAngle > b.solidAngle
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.id < b.id
}

// LinkNeighbors links every probe to its most significant neighbors. The
// k nearest probes are the candidates; up to four are kept per probe, ranked
// by the solid angle under which the probe perceives them.
func (n *Network) LinkNeighbors() {
	count := len(n.probes)
	for i := range n.probes {
		n.probes[i].Neighbors = nil
		n.probes[i].NearestProbeDistance = 0
		n.probes[i].FarthestProbeDistance = 0
	}
	if count < 2 {
		return
	}

	objs := make([]rtreego.Spatial, count)
	for i := range n.probes {
		objs[i] = &probeSpatial{id: i, rect: toPoint(n.probes[i].Position).ToRect(probeTolerance)}
	}
	tree := rtreego.NewTree(3, 4, 16, objs...)

	// Never consider fewer candidates than links a probe can hold.
	k := min(max(n.opts.NeighborCandidates, formats.SHPMaxNeighbors), count-1)
	linked := 0
	for i := range n.probes {
		probe := &n.probes[i]
		pos := math.V3(probe.Position)

		var cands []candidate
		for _, s := range tree.NearestNeighbors(k+1, toPoint(probe.Position)) {
			if s == nil {
				continue
			}
			other := s.(*probeSpatial).id
			if other == i {
				continue
			}
			delta := math.V3(n.probes[other].Position).Sub(pos)
			d := delta.Length()
			cands = append(cands, candidate{
				id:         other,
				distance:   d,
				solidAngle: SolidAngle(n.probes[other].Radius, d),
				direction:  delta.Normalize(),
			})
		}
		if len(cands) == 0 {
			continue
		}

		probe.NearestProbeDistance = cands[0].distance
		for _, c := range cands[1:] {
			probe.NearestProbeDistance = min(probe.NearestProbeDistance, c.distance)
		}

		sort.Slice(cands, func(a, b int) bool {
			return moreSignificant(cands[a], cands[b])
		})
		if len(cands) > formats.SHPMaxNeighbors {
			cands = cands[:formats.SHPMaxNeighbors]
		}

		probe.Neighbors = make([]formats.SHPNeighbor, len(cands))
		for j, c := range cands {
			probe.Neighbors[j] = formats.SHPNeighbor{
				ProbeID:    uint32(c.id),
				Distance:   c.distance,
				SolidAngle: c.solidAngle,
				Direction:  c.direction.Array(),
				SH:         n.opts.Kernels.NeighborKernel(c.direction, c.solidAngle),
			}
			probe.FarthestProbeDistance = max(probe.FarthestProbeDistance, c.distance)
		}
		linked += len(cands)
	}

	logger.Info("probe neighbors linked",
		zap.Int("probes", count),
		zap.Int("links", linked),
		zap.Int("candidates", k))
}

// Connection is an unordered pair of linked probes with the solid angle each
// perceives the other under. A side that did not keep the link reports 0.
type Connection struct {
	A, B        int
	SolidAngleA float32 // B as seen from A
	SolidAngleB float32 // A as seen from B
}

// Connections lists every linked probe pair once, ordered by (A, B).
func (n *Network) Connections() []Connection {
	type pair struct{ a, b int }
	index := make(map[pair]int)
	var out []Connection

	for i := range n.probes {
		for _, nb := range n.probes[i].Neighbors {
			a, b := i, int(nb.ProbeID)
			swapped := a > b
			if swapped {
				a, b = b, a
			}
			key := pair{a, b}
			idx, ok := index[key]
			if !ok {
				idx = len(out)
				index[key] = idx
				out = append(out, Connection{A: a, B: b})
			}
			if swapped {
				out[idx].SolidAngleB = nb.SolidAngle
			} else {
				out[idx].SolidAngleA = nb.SolidAngle
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
