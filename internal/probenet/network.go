// Package probenet builds, persists and refreshes a network of SH light
// probes.
//
// A Network is driven from a single goroutine. Build-time influence
// propagation fans out over primitives internally, and the active static
// light set may be flipped from any goroutine.
package probenet

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"github.com/Faultbox/probenet/internal/config"
	"github.com/Faultbox/probenet/internal/influence"
	"github.com/Faultbox/probenet/internal/logger"
	"github.com/Faultbox/probenet/internal/octree"
	"github.com/Faultbox/probenet/internal/scene"
	"github.com/Faultbox/probenet/pkg/formats"
	"github.com/Faultbox/probenet/pkg/math"
	"github.com/Faultbox/probenet/pkg/sh"
)

// Network errors.
var (
	ErrCapacityExceeded = errors.New("probe capacity exceeded")
	ErrNoProbes         = errors.New("no probes available")
	ErrInvalidProbeID   = errors.New("invalid probe ID")
	ErrNonManifoldEdge  = errors.New("non-manifold edge")
	ErrMissingMaterial  = errors.New("missing material")
)

// ErrorCode is the outcome of the last build or load.
type ErrorCode int

// Error codes, in increasing severity. Non-manifold edges and missing
// materials are recovered from; capacity and I/O failures are not.
const (
	CodeOK ErrorCode = iota
	CodeNonManifold
	CodeMissingMaterial
	CodeCapacity
	CodeIO
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeNonManifold:
		return "non-manifold"
	case CodeCapacity:
		return "capacity"
	case CodeIO:
		return "io"
	case CodeMissingMaterial:
		return "missing-material"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Defaults used when Options leave a field zero.
const (
	DefaultNeighborCandidates      = 12
	DefaultWorkers                 = 4
	DefaultMaxVertexInfluences     = formats.PIDMaxInfluences
	DefaultMaxProbeUpdatesPerFrame = 32
)

// Probe is a probe with its static data and the materials its emissive
// surfaces resolve to.
type Probe struct {
	formats.SHPProbe
	Name string

	// Materials has one entry per emissive surface, nil when unresolved.
	Materials []*scene.Material

	// hasStatic is set when the scene supplied precomputed SH.
	hasStatic bool
}

// Options configures a Network.
type Options struct {
	Encoder             Encoder
	Kernels             sh.KernelBuilder
	Backend             ComputeBackend
	NeighborCandidates  int
	Workers             int
	Weighting           influence.Weighting
	MaxVertexInfluences int
	RevalidateFrames    int
}

// OptionsFromConfig maps configuration onto Options. Encoder and Backend are
// left to the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		NeighborCandidates:  cfg.Build.NeighborCandidates,
		Workers:             cfg.Build.Workers,
		Weighting:           influence.ParseWeighting(cfg.Build.VertexWeighting),
		MaxVertexInfluences: cfg.Build.MaxVertexInfluences,
		RevalidateFrames:    cfg.Runtime.RevalidateFrames,
	}
}

// Network is an array of probes linked to their neighbors.
type Network struct {
	opts Options

	probes   []Probe
	capacity int

	index       *octree.Tree
	indexBounds math.AABB

	vertexStream *formats.PID
	errorCode    ErrorCode

	staticSet atomic.Int32
	rt        *runtimeBuffers
	sched     *Scheduler

	// pool runs per-primitive propagation. Its workers live as long as the
	// network, so every build reuses them.
	pool worker.DynamicWorkerPool
}

// New creates an empty network.
func New(opts Options) *Network {
	if opts.Encoder == nil {
		opts.Encoder = &GeometryEncoder{}
	}
	if opts.Kernels == nil {
		opts.Kernels = sh.ConeKernel{}
	}
	if opts.Backend == nil {
		opts.Backend = NewMemoryBackend(1)
	}
	if opts.NeighborCandidates <= 0 {
		opts.NeighborCandidates = DefaultNeighborCandidates
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxVertexInfluences <= 0 || opts.MaxVertexInfluences > formats.PIDMaxInfluences {
		opts.MaxVertexInfluences = DefaultMaxVertexInfluences
	}
	return &Network{opts: opts}
}

// workers returns the build pool, starting it on first use.
func (n *Network) workers() worker.DynamicWorkerPool {
	if n.pool == nil {
		n.pool = worker.NewDynamicWorkerPool(n.opts.Workers, 256, 1*time.Second)
	}
	return n.pool
}

// ErrorCode returns the outcome of the last build or load.
func (n *Network) ErrorCode() ErrorCode {
	return n.errorCode
}

// raise records code unless a more severe one is already set.
func (n *Network) raise(code ErrorCode) {
	if code > n.errorCode {
		n.errorCode = code
	}
}

// PreAllocateProbes reserves room for n probes. Growing keeps every issued
// probe ID; shrinking below the number of issued probes fails.
func (n *Network) PreAllocateProbes(count int) error {
	if count < len(n.probes) {
		return fmt.Errorf("%w: cannot shrink to %d with %d probes issued", ErrCapacityExceeded, count, len(n.probes))
	}
	if count > cap(n.probes) {
		grown := make([]Probe, len(n.probes), count)
		copy(grown, n.probes)
		n.probes = grown
	}
	n.capacity = count
	return nil
}

// AddProbe appends a probe from its scene placement and returns its ID.
func (n *Network) AddProbe(p scene.ProbePlacement) (int, error) {
	if len(n.probes) >= n.capacity {
		n.raise(CodeCapacity)
		return -1, fmt.Errorf("%w: %d probes reserved", ErrCapacityExceeded, n.capacity)
	}

	id := len(n.probes)
	probe := Probe{Name: p.Name}
	probe.ID = uint32(id)
	probe.Position = p.Position
	probe.Radius = p.Radius
	if p.Static != nil {
		probe.SHOcclusion = p.Static.SHOcclusion
		probe.SHStaticLighting = p.Static.SHStaticLighting
		probe.hasStatic = true
	}
	n.probes = append(n.probes, probe)

	if n.index != nil {
		n.index.Insert(id, math.V3(p.Position))
	}
	n.rt = nil
	return id, nil
}

// ProbesCount returns the number of probes.
func (n *Network) ProbesCount() int {
	return len(n.probes)
}

// Capacity returns the number of reserved probe slots.
func (n *Network) Capacity() int {
	return n.capacity
}

// Probe returns the probe with the given ID.
func (n *Network) Probe(id int) (*Probe, error) {
	if id < 0 || id >= len(n.probes) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProbeID, id)
	}
	return &n.probes[id], nil
}

// Probes returns the probe array. Callers must not append to it.
func (n *Network) Probes() []Probe {
	return n.probes
}

// ProbeIDVertexStream returns the vertex probe-ID stream of the last build
// or load, nil when none exists.
func (n *Network) ProbeIDVertexStream() *formats.PID {
	return n.vertexStream
}

// positions returns every probe position in world space.
func (n *Network) positions() []math.Vec3 {
	pos := make([]math.Vec3, len(n.probes))
	for i := range n.probes {
		pos[i] = math.V3(n.probes[i].Position)
	}
	return pos
}

// BuildIndex rebuilds the spatial index over [min, max].
func (n *Network) BuildIndex(min, max math.Vec3) {
	n.indexBounds = math.AABB{Min: min, Max: max}
	n.index = octree.New(min, max)
	for i := range n.probes {
		n.index.Insert(i, math.V3(n.probes[i].Position))
	}
	logger.Debug("probe index built",
		zap.Int("probes", n.index.Len()),
		zap.Any("min", min.Array()),
		zap.Any("max", max.Array()))
}

// GetNearestProbe returns the ID of the probe closest to pos. It returns
// ErrNoProbes on an empty network.
func (n *Network) GetNearestProbe(pos math.Vec3) (int, error) {
	if len(n.probes) == 0 {
		return -1, ErrNoProbes
	}
	if n.index == nil {
		tree := octree.Build(n.positions())
		n.index, n.indexBounds = tree, tree.Bounds()
	}
	id, err := n.index.Nearest(pos)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrNoProbes, err)
	}
	return id, nil
}

// reset drops every probe and derived structure.
func (n *Network) reset() {
	n.probes = nil
	n.capacity = 0
	n.index = nil
	n.indexBounds = math.AABB{}
	n.vertexStream = nil
	n.rt = nil
	n.sched = nil
}
