// Package influence assigns every face of a primitive to the probe that
// governs it by flooding probe claims across face adjacency.
package influence

import (
	"github.com/Faultbox/probenet/internal/meshgraph"
	"github.com/Faultbox/probenet/pkg/math"
)

// ProbeInfluence is a probe claim with its score. Faces share claim records
// through indices into the propagator's arena.
type ProbeInfluence struct {
	ProbeID   uint32
	Influence float64
}

type seed struct {
	face      int32
	influence int32
}

// Propagator floods probe claims over one primitive's adjacency graph.
// It is not safe for concurrent use; primitives are independent, so run one
// propagator per primitive instead.
type Propagator struct {
	graph  *meshgraph.Graph
	probes []math.Vec3 // Probe positions in the primitive's local space, by probe ID

	// Influences is the claim arena referenced by Face.Influence.
	Influences []ProbeInfluence

	seeds []seed
	pass  uint32
	queue []int32
}

// NewPropagator creates a propagator over g. localProbes holds every probe's
// position expressed in the mesh's local space, indexed by probe ID.
func NewPropagator(g *meshgraph.Graph, localProbes []math.Vec3) *Propagator {
	return &Propagator{
		graph:  g,
		probes: localProbes,
	}
}

// LocalProbePositions transforms world-space probe positions into the local
// space of a mesh with the given local-to-world matrix.
func LocalProbePositions(world math.Mat4, probes []math.Vec3) []math.Vec3 {
	toLocal := world.Inverse()
	local := make([]math.Vec3, len(probes))
	for i, p := range probes {
		local[i] = toLocal.TransformPoint(p)
	}
	return local
}

// Graph returns the graph being propagated over.
func (p *Propagator) Graph() *meshgraph.Graph {
	return p.graph
}

// Pass returns the last pass index used.
func (p *Propagator) Pass() uint32 {
	return p.pass
}

// Owner returns the probe that owns a face.
func (p *Propagator) Owner(face int) (uint32, bool) {
	idx := p.graph.Faces[face].Influence
	if idx == meshgraph.None {
		return 0, false
	}
	return p.Influences[idx].ProbeID, true
}

// Seed marks a face as directly claimed by a probe. When a face is seeded
// twice the higher influence wins, then the lower probe ID.
func (p *Propagator) Seed(face int, probeID uint32, influence float64) bool {
	if face < 0 || face >= len(p.graph.Faces) || int(probeID) >= len(p.probes) {
		return false
	}

	f := &p.graph.Faces[face]
	if f.Influence != meshgraph.None {
		cur := p.Influences[f.Influence]
		if influence < cur.Influence || (influence == cur.Influence && probeID >= cur.ProbeID) {
			return false
		}
	}

	idx := int32(len(p.Influences))
	p.Influences = append(p.Influences, ProbeInfluence{ProbeID: probeID, Influence: influence})
	f.Influence = idx
	p.seeds = append(p.seeds, seed{face: int32(face), influence: idx})
	return true
}

// SeedNearestFaces seeds, for every probe, the face whose center is closest
// to it. Used when the caller has no direct face claims.
func (p *Propagator) SeedNearestFaces() int {
	if len(p.graph.Faces) == 0 {
		return 0
	}

	seeded := 0
	for id, pos := range p.probes {
		best := 0
		bestDist := p.graph.Faces[0].Center.DistanceSq(pos)
		for f := 1; f < len(p.graph.Faces); f++ {
			if d := p.graph.Faces[f].Center.DistanceSq(pos); d < bestDist {
				best, bestDist = f, d
			}
		}
		if p.Seed(best, uint32(id), 1/(1+float64(bestDist))) {
			seeded++
		}
	}
	return seeded
}

// accepts reports whether face f should switch to (or keep) the claim of
// probe. A face accepts an unclaimed state, its own probe, or a strictly
// closer probe, with ties going to the lower probe ID.
func (p *Propagator) accepts(f *meshgraph.Face, probe uint32) (accept, change bool) {
	if f.Influence == meshgraph.None {
		return true, true
	}
	cur := p.Influences[f.Influence].ProbeID
	if cur == probe {
		return true, false
	}
	dNew := f.Center.DistanceSq(p.probes[probe])
	dCur := f.Center.DistanceSq(p.probes[cur])
	if dNew < dCur || (dNew == dCur && probe < cur) {
		return true, true
	}
	return false, false
}

// PropagateProbeInfluences spreads the claim influence from face start under
// the given pass index. Faces already visited during this pass are skipped,
// so calling it again with the same pass is a no-op. It returns true when
// at least one face changed owner.
func (p *Propagator) PropagateProbeInfluences(influence int32, start int32, pass uint32) bool {
	faces := p.graph.Faces
	probe := p.Influences[influence].ProbeID

	first := &faces[start]
	if first.LastVisit >= pass {
		return false
	}
	first.LastVisit = pass

	accept, changed := p.accepts(first, probe)
	if !accept {
		return false
	}
	if changed {
		first.Influence = influence
	}

	p.queue = append(p.queue[:0], start)
	for len(p.queue) > 0 {
		f := p.queue[0]
		p.queue = p.queue[1:]

		for _, adj := range faces[f].Adjacent {
			if adj == meshgraph.None {
				continue
			}
			face := &faces[adj]
			if face.LastVisit >= pass {
				continue
			}
			face.LastVisit = pass

			accept, change := p.accepts(face, probe)
			if !accept {
				continue
			}
			if change {
				face.Influence = influence
				changed = true
			}
			p.queue = append(p.queue, adj)
		}
	}
	return changed
}

// RecursePropagateProbeInfluences runs one propagation from every seed, each
// under its own pass index starting at pass. Pass indices never go backwards,
// so a stale pass is bumped past the last one used. It returns true when any
// face changed owner.
func (p *Propagator) RecursePropagateProbeInfluences(pass uint32) bool {
	if pass <= p.pass {
		pass = p.pass + 1
	}
	changed := false
	for _, s := range p.seeds {
		p.pass = pass
		if p.PropagateProbeInfluences(s.influence, s.face, pass) {
			changed = true
		}
		pass++
	}
	return changed
}

// Sweep runs RecursePropagateProbeInfluences with the next free pass index.
func (p *Propagator) Sweep() bool {
	return p.RecursePropagateProbeInfluences(p.pass + 1)
}

// Run sweeps until no face changes owner and returns the number of sweeps.
// Every accepted change strictly lowers a face's (distance, probe ID) pair,
// so this terminates.
func (p *Propagator) Run() int {
	sweeps := 1
	for p.Sweep() {
		sweeps++
	}
	return sweeps
}

// Unassigned returns the number of faces without a probe.
func (p *Propagator) Unassigned() int {
	n := 0
	for i := range p.graph.Faces {
		if p.graph.Faces[i].Influence == meshgraph.None {
			n++
		}
	}
	return n
}

// AssignNearestProbe gives every unclaimed face the probe closest to its
// center by brute force. This covers islands no seed could reach. It returns
// the number of faces assigned.
func (p *Propagator) AssignNearestProbe() int {
	if len(p.probes) == 0 {
		return 0
	}

	assigned := 0
	for i := range p.graph.Faces {
		f := &p.graph.Faces[i]
		if f.Influence != meshgraph.None {
			continue
		}
		best := uint32(0)
		bestDist := f.Center.DistanceSq(p.probes[0])
		for id := 1; id < len(p.probes); id++ {
			if d := f.Center.DistanceSq(p.probes[id]); d < bestDist {
				best, bestDist = uint32(id), d
			}
		}
		f.Influence = int32(len(p.Influences))
		p.Influences = append(p.Influences, ProbeInfluence{ProbeID: best})
		assigned++
	}
	return assigned
}

// FaceOwners returns the owning probe ID of every face, -1 when unassigned.
func (p *Propagator) FaceOwners() []int32 {
	owners := make([]int32, len(p.graph.Faces))
	for i := range owners {
		owners[i] = -1
		if id, ok := p.Owner(i); ok {
			owners[i] = int32(id)
		}
	}
	return owners
}
