package probenet

import (
	"github.com/Faultbox/probenet/pkg/formats"
	"github.com/Faultbox/probenet/pkg/math"
	"github.com/Faultbox/probenet/pkg/sh"
)

// EmissiveInput is an emissive surface with its resolved emitted color.
type EmissiveInput struct {
	Surface formats.SHPEmissiveSurface
	Color   [3]float32
}

// NeighborInput is a snapshot of a neighbor's final SH with the kernel
// isolating what this probe perceives of it.
type NeighborInput struct {
	ProbeID int
	Kernel  sh.Coeffs
	SH      sh.RGB
}

// UpdateCommand asks the compute backend to recompute one probe's dynamic
// SH from the given inputs.
type UpdateCommand struct {
	Frame    uint64
	ProbeID  int
	Position math.Vec3
	Radius   float32

	StaticSH  sh.RGB
	Occlusion sh.Coeffs
	Samples   []formats.SHPSample
	Emissive  []EmissiveInput
	Neighbors []NeighborInput
}

// UpdateResult is a recomputed probe. Contributions are unweighted; bounce
// factors are applied when accumulating.
type UpdateResult struct {
	ProbeID    int
	Frame      uint64 // Frame the command was issued in
	Dynamic    sh.RGB
	DynamicSun sh.RGB
	Emissive   sh.RGB
	Neighbors  sh.RGB
}

// ComputeBackend runs probe updates asynchronously. Dispatch must not block
// on the work; Completed returns the results that finished by frame.
type ComputeBackend interface {
	Dispatch(cmd UpdateCommand)
	Completed(frame uint64) []UpdateResult
}

type pendingResult struct {
	ready  uint64
	result UpdateResult
}

// MemoryBackend computes updates on the CPU and releases them after a fixed
// number of frames. It is deterministic.
type MemoryBackend struct {
	latency uint64
	pending []pendingResult

	// Sun and DynamicLights are the light reaching the probe's samples.
	Sun           sh.RGB
	DynamicLights sh.RGB
}

// NewMemoryBackend creates a backend whose results land latencyFrames after
// dispatch. Results are never visible in the frame they were issued.
func NewMemoryBackend(latencyFrames int) *MemoryBackend {
	return &MemoryBackend{latency: uint64(max(latencyFrames, 1))}
}

// Dispatch implements ComputeBackend.
func (b *MemoryBackend) Dispatch(cmd UpdateCommand) {
	res := UpdateResult{ProbeID: cmd.ProbeID, Frame: cmd.Frame}

	for _, s := range cmd.Samples {
		bounce := s.SHFactor
		res.Dynamic = res.Dynamic.Add(b.DynamicLights.Tint(s.Albedo).Scale(bounce))
		res.DynamicSun = res.DynamicSun.Add(b.Sun.Tint(s.Albedo).Scale(bounce))
	}
	for _, e := range cmd.Emissive {
		res.Emissive = res.Emissive.Add(sh.FromScalar(e.Surface.SH, e.Color))
	}
	for _, nb := range cmd.Neighbors {
		res.Neighbors = res.Neighbors.Add(nb.SH.Convolve(nb.Kernel))
	}

	b.pending = append(b.pending, pendingResult{ready: cmd.Frame + b.latency, result: res})
}

// Completed implements ComputeBackend. Results come back in dispatch order.
func (b *MemoryBackend) Completed(frame uint64) []UpdateResult {
	var done []UpdateResult
	kept := b.pending[:0]
	for _, p := range b.pending {
		if p.ready <= frame {
			done = append(done, p.result)
		} else {
			kept = append(kept, p)
		}
	}
	b.pending = kept
	return done
}

// Pending returns the number of updates in flight.
func (b *MemoryBackend) Pending() int {
	return len(b.pending)
}
