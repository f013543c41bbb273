package influence

import (
	"sort"

	"github.com/Faultbox/probenet/internal/meshgraph"
)

// Weighting selects how face claims are weighted when merged at a vertex.
type Weighting int

const (
	// WeightByCount weights each probe by the number of incident faces it owns.
	WeightByCount Weighting = iota
	// WeightByArea weights each probe by the area of the incident faces it owns.
	WeightByArea
)

// ParseWeighting converts a config string to a Weighting.
func ParseWeighting(s string) Weighting {
	if s == "area" {
		return WeightByArea
	}
	return WeightByCount
}

// RedistributeProbeIDs2Vertices merges the owners of the faces around each
// vertex into a per-vertex influence list. Weights are normalized to sum to
// one, sorted strongest first (lower probe ID on ties) and capped at
// maxInfluences. Vertices without a claimed incident face get an empty list.
func (p *Propagator) RedistributeProbeIDs2Vertices(weighting Weighting, maxInfluences int) [][]ProbeInfluence {
	vertexFaces := p.graph.VertexFaces()
	out := make([][]ProbeInfluence, len(vertexFaces))

	for v, faces := range vertexFaces {
		var merged []ProbeInfluence
		for _, f := range faces {
			face := &p.graph.Faces[f]
			if face.Influence == meshgraph.None {
				continue
			}
			id := p.Influences[face.Influence].ProbeID
			w := 1.0
			if weighting == WeightByArea {
				w = float64(face.Area)
			}

			found := false
			for i := range merged {
				if merged[i].ProbeID == id {
					merged[i].Influence += w
					found = true
					break
				}
			}
			if !found {
				merged = append(merged, ProbeInfluence{ProbeID: id, Influence: w})
			}
		}

		// Zero-area fans fall back to plain incidence.
		if weighting == WeightByArea && total(merged) == 0 {
			for i := range merged {
				merged[i].Influence = 0
			}
			for _, f := range faces {
				face := &p.graph.Faces[f]
				if face.Influence == meshgraph.None {
					continue
				}
				id := p.Influences[face.Influence].ProbeID
				for i := range merged {
					if merged[i].ProbeID == id {
						merged[i].Influence++
					}
				}
			}
		}

		sort.Slice(merged, func(i, j int) bool {
			if merged[i].Influence != merged[j].Influence {
				return merged[i].Influence > merged[j].Influence
			}
			return merged[i].ProbeID < merged[j].ProbeID
		})
		if maxInfluences > 0 && len(merged) > maxInfluences {
			merged = merged[:maxInfluences]
		}
		if sum := total(merged); sum > 0 {
			for i := range merged {
				merged[i].Influence /= sum
			}
		}
		out[v] = merged
	}
	return out
}

func total(list []ProbeInfluence) float64 {
	var sum float64
	for _, inf := range list {
		sum += inf.Influence
	}
	return sum
}
