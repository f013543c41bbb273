package probenet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"github.com/Faultbox/probenet/internal/influence"
	"github.com/Faultbox/probenet/internal/logger"
	"github.com/Faultbox/probenet/internal/meshgraph"
	"github.com/Faultbox/probenet/internal/scene"
	"github.com/Faultbox/probenet/pkg/formats"
	"github.com/Faultbox/probenet/pkg/math"
)

// BuildReport summarizes a PreComputeProbes run. Topology problems are
// recovered during the build and only counted here.
type BuildReport struct {
	Probes     int
	Primitives int
	Faces      int
	Vertices   int
	Links      int

	NonManifoldEdges int
	DegenerateFaces  int
	// UnreachedFaces were assigned by the nearest-probe fallback.
	UnreachedFaces int
	// IsolatedVertices belong to no face and took the nearest probe.
	IsolatedVertices int
	Sweeps           int

	Duration time.Duration
}

// primitiveJob is the propagation work for one primitive. Jobs share only
// the read-only probe positions.
type primitiveJob struct {
	mesh, prim int
	firstFace  int
	seeds      []primitiveSeed

	graph   *meshgraph.Graph
	sweeps  int
	fixed   int
	isolate int
	stream  []formats.PIDVertex
}

type primitiveSeed struct {
	face      int
	probe     uint32
	influence float64
}

// PreComputeProbes runs the offline build: it encodes every probe, links
// neighbors, propagates probe influence over every primitive and writes the
// probe file and vertex stream to dir. Probes already added are used as is;
// an empty network takes the scene's placements.
//
// The build can be cancelled between primitives.
func (n *Network) PreComputeProbes(ctx context.Context, dir string, render RenderDelegate, sc *scene.Scene, totalFaceCount int) (*BuildReport, error) {
	start := time.Now()
	n.errorCode = CodeOK

	if faces := sc.FaceCount(); faces != totalFaceCount {
		logger.Warn("face count mismatch, using scene count",
			zap.Int("expected", totalFaceCount),
			zap.Int("scene", faces))
		totalFaceCount = faces
	}

	if len(n.probes) == 0 {
		if err := n.PreAllocateProbes(len(sc.Probes)); err != nil {
			return nil, err
		}
		for _, p := range sc.Probes {
			if _, err := n.AddProbe(p); err != nil {
				return nil, err
			}
		}
	}

	report := &BuildReport{Probes: len(n.probes), Faces: totalFaceCount}
	hits := make(map[int][]primitiveSeed)

	// 1. Encode every probe.
	for i := range n.probes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probe := &n.probes[i]
		capture, err := n.opts.Encoder.EncodeProbe(math.V3(probe.Position), render, sc)
		if err != nil {
			return nil, fmt.Errorf("encoding probe %d: %w", i, err)
		}
		n.applyCapture(probe, capture, sc)
		for _, h := range capture.FaceHits {
			if h.Face < 0 || h.Face >= totalFaceCount {
				continue
			}
			hits[h.Face] = append(hits[h.Face], primitiveSeed{face: h.Face, probe: uint32(i), influence: h.Weight})
		}
	}

	// 2. Link neighbors and index the probes.
	n.LinkNeighbors()
	for i := range n.probes {
		report.Links += len(n.probes[i].Neighbors)
	}
	bounds := sc.Bounds()
	if bounds.IsEmpty() {
		bounds = math.AABB{}
	}
	n.BuildIndex(bounds.Min, bounds.Max)

	// 3. Propagate influence over every primitive.
	var jobs []*primitiveJob
	face := 0
	for mi := range sc.Meshes {
		for pi := range sc.Meshes[mi].Primitives {
			job := &primitiveJob{mesh: mi, prim: pi, firstFace: face}
			count := sc.Meshes[mi].Primitives[pi].FaceCount()
			for f := face; f < face+count; f++ {
				for _, s := range hits[f] {
					s.face -= face
					job.seeds = append(job.seeds, s)
				}
			}
			face += count
			jobs = append(jobs, job)
		}
	}

	if err := n.propagate(ctx, sc, jobs); err != nil {
		return nil, err
	}

	stream := &formats.PID{Version: formats.PIDVersion}
	for _, job := range jobs {
		report.Primitives++
		report.Vertices += len(job.stream)
		report.NonManifoldEdges += job.graph.NonManifoldEdges
		report.DegenerateFaces += job.graph.DegenerateFaces
		report.UnreachedFaces += job.fixed
		report.IsolatedVertices += job.isolate
		report.Sweeps += job.sweeps
		stream.Primitives = append(stream.Primitives, formats.PIDPrimitive{
			MeshIndex:      uint32(job.mesh),
			PrimitiveIndex: uint32(job.prim),
			Vertices:       job.stream,
		})
	}
	n.vertexStream = stream

	if report.NonManifoldEdges > 0 {
		n.raise(CodeNonManifold)
		logger.Warn("non-manifold edges found",
			zap.Int("count", report.NonManifoldEdges),
			zap.Error(ErrNonManifoldEdge))
	}
	if report.UnreachedFaces > 0 {
		logger.Warn("faces unreachable by propagation, assigned nearest probe",
			zap.Int("count", report.UnreachedFaces))
	}

	// 4. Persist.
	if err := n.SaveProbes(dir); err != nil {
		return nil, err
	}

	n.rt = nil
	report.Duration = time.Since(start)
	logger.Info("probe network built",
		zap.Int("probes", report.Probes),
		zap.Int("primitives", report.Primitives),
		zap.Int("faces", report.Faces),
		zap.Int("links", report.Links),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// applyCapture copies encoder output into a probe. SH supplied by the scene
// is kept.
func (n *Network) applyCapture(p *Probe, c *Capture, sc *scene.Scene) {
	if !p.hasStatic {
		p.SHOcclusion = c.SHOcclusion
		p.SHStaticLighting = c.SHStaticLighting
	}
	p.MeanDistance = c.MeanDistance
	p.MeanHarmonicDistance = c.MeanHarmonicDistance
	p.MinDistance = c.MinDistance
	p.MaxDistance = c.MaxDistance
	p.BBoxMin = c.BBoxMin.Array()
	p.BBoxMax = c.BBoxMax.Array()

	p.Samples = c.Samples
	if len(p.Samples) > formats.SHPMaxSamples {
		p.Samples = p.Samples[:formats.SHPMaxSamples]
	}
	p.EmissiveSurfaces = c.EmissiveSurfaces
	if len(p.EmissiveSurfaces) > formats.SHPMaxEmissiveSurfaces {
		p.EmissiveSurfaces = p.EmissiveSurfaces[:formats.SHPMaxEmissiveSurfaces]
	}

	p.Materials = make([]*scene.Material, len(p.EmissiveSurfaces))
	for i, es := range p.EmissiveSurfaces {
		if m, ok := sc.Material(es.MaterialID); ok {
			p.Materials[i] = m
		}
	}
}

// propagate runs every job on a worker pool and waits for all of them.
// Once ctx is done no further primitive is started.
func (n *Network) propagate(ctx context.Context, sc *scene.Scene, jobs []*primitiveJob) error {
	positions := n.positions()
	pool := n.workers()

	var wg sync.WaitGroup
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		j := job
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				n.runPrimitive(sc, j, positions)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("probe build cancelled: %w", err)
	}
	return nil
}

// runPrimitive assigns probes to the faces and vertices of one primitive.
func (n *Network) runPrimitive(sc *scene.Scene, job *primitiveJob, probes []math.Vec3) {
	mesh := &sc.Meshes[job.mesh]
	prim := &mesh.Primitives[job.prim]
	world := mesh.WorldMatrix()

	positions := make([]math.Vec3, len(prim.Positions))
	for i, p := range prim.Positions {
		positions[i] = math.V3(p)
	}
	job.graph = meshgraph.Build(positions, prim.Indices)

	prop := influence.NewPropagator(job.graph, influence.LocalProbePositions(world, probes))
	for _, s := range job.seeds {
		prop.Seed(s.face, s.probe, s.influence)
	}
	if len(job.seeds) == 0 {
		prop.SeedNearestFaces()
	}
	job.sweeps = prop.Run()
	job.fixed = prop.AssignNearestProbe()

	if job.graph.NonManifoldEdges > 0 {
		logger.Warn("non-manifold primitive",
			zap.Int("mesh", job.mesh),
			zap.Int("primitive", job.prim),
			zap.Int("count", job.graph.NonManifoldEdges))
	}

	perVertex := prop.RedistributeProbeIDs2Vertices(n.opts.Weighting, n.opts.MaxVertexInfluences)
	job.stream = make([]formats.PIDVertex, len(perVertex))
	for v, list := range perVertex {
		if len(list) == 0 {
			id := n.nearestToVertex(world.TransformPoint(positions[v]))
			if id < 0 {
				continue
			}
			job.stream[v].Influences = []formats.PIDInfluence{{ProbeID: uint32(id), Weight: 1}}
			job.isolate++
			continue
		}
		infl := make([]formats.PIDInfluence, len(list))
		for k, pi := range list {
			infl[k] = formats.PIDInfluence{ProbeID: pi.ProbeID, Weight: float32(pi.Influence)}
		}
		job.stream[v].Influences = infl
	}
}

// nearestToVertex queries the spatial index, which is read-only while jobs
// run.
func (n *Network) nearestToVertex(pos math.Vec3) int {
	if n.index == nil {
		return -1
	}
	id, err := n.index.Nearest(pos)
	if err != nil {
		return -1
	}
	return id
}
