// Package meshgraph builds face adjacency for triangle meshes.
//
// Faces live in a flat array and refer to each other by index, so the graph
// can be shared read-only between flood-fill passes and copied cheaply.
package meshgraph

import (
	"github.com/Faultbox/probenet/pkg/math"
)

// None marks a missing adjacent face or an unassigned influence.
const None int32 = -1

// Face is a triangle with its adjacency across each edge. Edge i runs from
// V[i] to V[(i+1)%3].
type Face struct {
	V        [3]uint32
	Center   math.Vec3
	Normal   math.Vec3
	Area     float32
	Adjacent [3]int32 // Face index across each edge, None on open boundaries

	// Influence indexes the propagator's influence arena, None until claimed.
	Influence int32
	// LastVisit is the last propagation pass that reached this face.
	LastVisit uint32
}

// Graph is the adjacency structure of one primitive.
type Graph struct {
	Faces       []Face
	VertexCount int

	// NonManifoldEdges counts edges shared by more than two faces. Only the
	// first two faces (in index order) are linked across such an edge.
	NonManifoldEdges int
	// BoundaryEdges counts edges with a single incident face.
	BoundaryEdges int
	// DegenerateFaces counts faces with a repeated vertex.
	DegenerateFaces int
}

func edgeKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// Build creates the adjacency graph of an indexed triangle list. Trailing
// indices that do not form a full triangle are ignored. The result does not
// depend on map iteration order.
func Build(positions []math.Vec3, indices []uint32) *Graph {
	faceCount := len(indices) / 3
	g := &Graph{
		Faces:       make([]Face, faceCount),
		VertexCount: len(positions),
	}

	edges := make(map[uint64][]int32, faceCount*3/2+1)
	for f := range g.Faces {
		face := &g.Faces[f]
		face.V = [3]uint32{indices[f*3], indices[f*3+1], indices[f*3+2]}
		face.Adjacent = [3]int32{None, None, None}
		face.Influence = None

		p0 := positions[face.V[0]]
		p1 := positions[face.V[1]]
		p2 := positions[face.V[2]]
		face.Center = p0.Add(p1).Add(p2).Scale(1.0 / 3.0)
		cross := p1.Sub(p0).Cross(p2.Sub(p0))
		face.Area = 0.5 * cross.Length()
		face.Normal = cross.Normalize()

		if face.V[0] == face.V[1] || face.V[1] == face.V[2] || face.V[2] == face.V[0] {
			g.DegenerateFaces++
		}

		for e := 0; e < 3; e++ {
			v0, v1 := face.V[e], face.V[(e+1)%3]
			if v0 == v1 {
				continue
			}
			key := edgeKey(v0, v1)
			edges[key] = append(edges[key], int32(f))
		}
	}

	// Link faces in index order so every counter and link is deterministic.
	for f := range g.Faces {
		face := &g.Faces[f]
		for e := 0; e < 3; e++ {
			v0, v1 := face.V[e], face.V[(e+1)%3]
			if v0 == v1 {
				continue
			}
			shared := edges[edgeKey(v0, v1)]
			switch {
			case len(shared) == 1:
				g.BoundaryEdges++
			case len(shared) > 2:
				// Count each non-manifold edge once, from its first face.
				if shared[0] == int32(f) && firstEdgeOf(face, v0, v1) == e {
					g.NonManifoldEdges++
				}
			}
			if len(shared) < 2 {
				continue
			}
			switch int32(f) {
			case shared[0]:
				face.Adjacent[e] = shared[1]
			case shared[1]:
				face.Adjacent[e] = shared[0]
			}
		}
	}

	return g
}

// firstEdgeOf returns the first edge index of face joining v0 and v1.
func firstEdgeOf(face *Face, v0, v1 uint32) int {
	key := edgeKey(v0, v1)
	for e := 0; e < 3; e++ {
		if edgeKey(face.V[e], face.V[(e+1)%3]) == key {
			return e
		}
	}
	return -1
}

// Reset clears all influence assignments and visit markers.
func (g *Graph) Reset() {
	for i := range g.Faces {
		g.Faces[i].Influence = None
		g.Faces[i].LastVisit = 0
	}
}

// VertexFaces returns, for every vertex, the faces that use it in index order.
func (g *Graph) VertexFaces() [][]int32 {
	out := make([][]int32, g.VertexCount)
	for f := range g.Faces {
		v := g.Faces[f].V
		for i := 0; i < 3; i++ {
			// Degenerate faces list a vertex only once.
			if (i == 1 && v[1] == v[0]) || (i == 2 && (v[2] == v[0] || v[2] == v[1])) {
				continue
			}
			out[v[i]] = append(out[v[i]], int32(f))
		}
	}
	return out
}

// Components labels connected face islands. It returns the label of every
// face and the number of islands.
func (g *Graph) Components() ([]int32, int) {
	labels := make([]int32, len(g.Faces))
	for i := range labels {
		labels[i] = None
	}

	count := 0
	var queue []int32
	for start := range g.Faces {
		if labels[start] != None {
			continue
		}
		label := int32(count)
		count++
		labels[start] = label
		queue = append(queue[:0], int32(start))
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, adj := range g.Faces[f].Adjacent {
				if adj != None && labels[adj] == None {
					labels[adj] = label
					queue = append(queue, adj)
				}
			}
		}
	}
	return labels, count
}
