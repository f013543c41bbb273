package probenet

import (
	"github.com/Faultbox/probenet/internal/config"
	"github.com/Faultbox/probenet/pkg/math"
	"github.com/Faultbox/probenet/pkg/sh"
)

// StaticSet selects one of the two static lighting slots.
type StaticSet int32

// Static lighting slots.
const (
	SetA StaticSet = iota
	SetB
)

// ParseStaticSet converts a config value ("a" or "b").
func ParseStaticSet(s string) StaticSet {
	if s == "b" {
		return SetB
	}
	return SetA
}

// RuntimeProbe is the per-probe data used to light dynamic objects.
type RuntimeProbe struct {
	Position math.Vec3
	Radius   float32
}

// DynamicUpdateParms drives one frame of dynamic probe updates.
type DynamicUpdateParms struct {
	MaxProbeUpdatesPerFrame int
	AmbientSkySH            sh.RGB

	BounceFactorSun       float32
	BounceFactorSky       float32
	BounceFactorDynamic   float32
	BounceFactorStatic    float32
	BounceFactorEmissive  float32
	BounceFactorNeighbors float32
}

// ParmsFromConfig maps runtime configuration onto update parameters.
func ParmsFromConfig(rc config.RuntimeConfig) DynamicUpdateParms {
	return DynamicUpdateParms{
		MaxProbeUpdatesPerFrame: rc.MaxProbeUpdatesPerFrame,
		AmbientSkySH:            rc.AmbientSkySH,
		BounceFactorSun:         rc.BounceFactors.Sun,
		BounceFactorSky:         rc.BounceFactors.Sky,
		BounceFactorDynamic:     rc.BounceFactors.Dynamic,
		BounceFactorStatic:      rc.BounceFactors.Static,
		BounceFactorEmissive:    rc.BounceFactors.Emissive,
		BounceFactorNeighbors:   rc.BounceFactors.Neighbors,
	}
}

// FrameReport describes one UpdateDynamicProbes call.
type FrameReport struct {
	Frame     uint64
	Selected  []int
	Completed int
	Stats     SchedulerStats
}

// runtimeBuffers mirror probe state for rendering. They are rebuilt from
// the probes whenever the probe count changes.
type runtimeBuffers struct {
	probes     []RuntimeProbe
	static     [2][]sh.RGB
	visibility []float32 // Unoccluded fraction, from the occlusion SH
	ambientSky sh.RGB

	dynamic    []sh.RGB
	dynamicSun []sh.RGB
	emissive   []sh.RGB
	neighbors  []sh.RGB

	final []sh.RGB
	next  []sh.RGB

	// appliedSet is the static slot the scheduler last saw.
	appliedSet StaticSet
}

func newRuntimeBuffers(probes []Probe) *runtimeBuffers {
	count := len(probes)
	rt := &runtimeBuffers{
		probes:     make([]RuntimeProbe, count),
		visibility: make([]float32, count),
		dynamic:    make([]sh.RGB, count),
		dynamicSun: make([]sh.RGB, count),
		emissive:   make([]sh.RGB, count),
		neighbors:  make([]sh.RGB, count),
		final:      make([]sh.RGB, count),
		next:       make([]sh.RGB, count),
	}
	rt.static[SetA] = make([]sh.RGB, count)
	rt.static[SetB] = make([]sh.RGB, count)
	for i := range probes {
		p := &probes[i]
		rt.probes[i] = RuntimeProbe{Position: math.V3(p.Position), Radius: p.Radius}
		rt.static[SetA][i] = p.SHStaticLighting
		rt.static[SetB][i] = p.SHStaticLighting
		rt.visibility[i] = min(max(p.SHOcclusion[0]/fullSphere, 0), 1)
	}
	return rt
}

// ensureRuntime rebuilds the runtime buffers and scheduler when stale.
func (n *Network) ensureRuntime() {
	if n.rt != nil && len(n.rt.probes) == len(n.probes) {
		return
	}
	n.rt = newRuntimeBuffers(n.probes)
	n.rt.appliedSet = n.ActiveStaticSet()
	n.sched = NewScheduler(len(n.probes), n.opts.RevalidateFrames)
}

// Scheduler returns the runtime update scheduler.
func (n *Network) Scheduler() *Scheduler {
	n.ensureRuntime()
	return n.sched
}

// RuntimeProbes returns the position and radius of every probe.
func (n *Network) RuntimeProbes() []RuntimeProbe {
	n.ensureRuntime()
	return n.rt.probes
}

// Final returns the combined SH of every probe as of the last accumulation.
// The slice is valid until the next UpdateDynamicProbes call.
func (n *Network) Final() []sh.RGB {
	n.ensureRuntime()
	return n.rt.final
}

// ActiveStaticSet returns the static lighting slot in use.
func (n *Network) ActiveStaticSet() StaticSet {
	return StaticSet(n.staticSet.Load())
}

// SelectStaticSet switches the active static lighting slot. Switching to a
// different slot invalidates every probe. Safe for concurrent use; the flip
// takes effect at the next frame.
func (n *Network) SelectStaticSet(set StaticSet) {
	if set != SetB {
		set = SetA
	}
	n.staticSet.Store(int32(set))
}

// SetStaticLighting replaces a probe's static lighting in one slot.
func (n *Network) SetStaticLighting(set StaticSet, id int, lighting sh.RGB) error {
	n.ensureRuntime()
	if id < 0 || id >= len(n.probes) {
		return ErrInvalidProbeID
	}
	n.rt.static[set&1][id] = lighting
	if set == n.ActiveStaticSet() {
		n.sched.Invalidate(id)
	}
	return nil
}

// Invalidate marks a probe's static data as changed.
func (n *Network) Invalidate(id int) {
	n.ensureRuntime()
	n.sched.Invalidate(id)
}

// InvalidateAll marks every probe's static data as changed.
func (n *Network) InvalidateAll() {
	n.ensureRuntime()
	n.sched.InvalidateAll()
}

// UpdateDynamicProbes runs one frame: it commits results that landed since
// the last frame, accumulates the final SH, then issues updates for up to
// MaxProbeUpdatesPerFrame stale probes. It never waits for the backend.
func (n *Network) UpdateDynamicProbes(parms DynamicUpdateParms) FrameReport {
	n.ensureRuntime()
	n.applyStaticSet()
	n.sched.BeginFrame()
	frame := n.sched.Frame()

	done := n.opts.Backend.Completed(frame)
	for _, res := range done {
		if res.ProbeID < 0 || res.ProbeID >= len(n.probes) || n.sched.State(res.ProbeID) != Updating {
			continue
		}
		n.rt.dynamic[res.ProbeID] = res.Dynamic
		n.rt.dynamicSun[res.ProbeID] = res.DynamicSun
		n.rt.emissive[res.ProbeID] = res.Emissive
		n.rt.neighbors[res.ProbeID] = res.Neighbors
		n.sched.Complete(res.ProbeID)
	}

	n.accumulate(parms)

	budget := parms.MaxProbeUpdatesPerFrame
	if budget <= 0 {
		budget = DefaultMaxProbeUpdatesPerFrame
	}
	selected := n.sched.Select(budget)
	for _, id := range selected {
		n.opts.Backend.Dispatch(n.updateCommand(id, frame))
	}
	n.sched.MarkUpdating(selected)

	return FrameReport{
		Frame:     frame,
		Selected:  selected,
		Completed: len(done),
		Stats:     n.sched.Stats(),
	}
}

// applyStaticSet invalidates every probe when the active slot changed
// since the last frame.
func (n *Network) applyStaticSet() {
	if set := n.ActiveStaticSet(); set != n.rt.appliedSet {
		n.rt.appliedSet = set
		n.sched.InvalidateAll()
	}
}

// accumulate sums every committed contribution into the final buffer.
func (n *Network) accumulate(parms DynamicUpdateParms) {
	rt := n.rt
	rt.ambientSky = parms.AmbientSkySH
	static := rt.static[n.ActiveStaticSet()&1]

	for i := range rt.next {
		sum := static[i].Scale(parms.BounceFactorStatic)
		sum = sum.Add(rt.ambientSky.Scale(rt.visibility[i] * parms.BounceFactorSky))
		sum = sum.Add(rt.dynamic[i].Scale(parms.BounceFactorDynamic))
		sum = sum.Add(rt.dynamicSun[i].Scale(parms.BounceFactorSun))
		sum = sum.Add(rt.emissive[i].Scale(parms.BounceFactorEmissive))
		sum = sum.Add(rt.neighbors[i].Scale(parms.BounceFactorNeighbors))
		rt.next[i] = sum
	}
	rt.final, rt.next = rt.next, rt.final
}

// updateCommand gathers the inputs of one probe. Neighbor SH is read from
// the committed final buffer and may lag by a few frames.
func (n *Network) updateCommand(id int, frame uint64) UpdateCommand {
	p := &n.probes[id]
	cmd := UpdateCommand{
		Frame:     frame,
		ProbeID:   id,
		Position:  math.V3(p.Position),
		Radius:    p.Radius,
		StaticSH:  n.rt.static[n.ActiveStaticSet()&1][id],
		Occlusion: p.SHOcclusion,
		Samples:   p.Samples,
	}
	for i, es := range p.EmissiveSurfaces {
		var color [3]float32
		if i < len(p.Materials) && p.Materials[i] != nil {
			color = p.Materials[i].Emissive
		}
		cmd.Emissive = append(cmd.Emissive, EmissiveInput{Surface: es, Color: color})
	}
	for _, nb := range p.Neighbors {
		if int(nb.ProbeID) >= len(n.rt.final) {
			continue
		}
		cmd.Neighbors = append(cmd.Neighbors, NeighborInput{
			ProbeID: int(nb.ProbeID),
			Kernel:  nb.SH,
			SH:      n.rt.final[nb.ProbeID],
		})
	}
	return cmd
}
