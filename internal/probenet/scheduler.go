package probenet

// ProbeState is the refresh state of one probe's dynamic SH.
type ProbeState uint8

// Probe states. A probe cycles Stale -> Queued -> Updating -> Fresh and
// decays back to Stale.
const (
	Stale ProbeState = iota
	Queued
	Updating
	Fresh
)

func (s ProbeState) String() string {
	switch s {
	case Stale:
		return "stale"
	case Queued:
		return "queued"
	case Updating:
		return "updating"
	case Fresh:
		return "fresh"
	default:
		return "unknown"
	}
}

// SchedulerStats is a snapshot of the scheduler for debugging.
type SchedulerStats struct {
	Frame      uint64
	Stale      int
	Queued     int
	Updating   int
	Fresh      int
	Dispatched uint64
	Completed  uint64
}

// Scheduler picks which probes to refresh each frame. Selection is
// round-robin over probe IDs from a persisted cursor, so every stale probe
// is reached within ceil(count/budget) frames.
type Scheduler struct {
	states      []ProbeState
	freshSince  []uint64
	invalidated []bool
	updates     []int

	cursor     int
	frame      uint64
	revalidate uint64

	dispatched uint64
	completed  uint64
}

// NewScheduler creates a scheduler for count probes, all stale. Fresh
// probes go stale again after revalidateFrames frames; 0 disables that.
func NewScheduler(count, revalidateFrames int) *Scheduler {
	return &Scheduler{
		states:      make([]ProbeState, count),
		freshSince:  make([]uint64, count),
		invalidated: make([]bool, count),
		updates:     make([]int, count),
		revalidate:  uint64(max(revalidateFrames, 0)),
	}
}

// Len returns the number of scheduled probes.
func (s *Scheduler) Len() int {
	return len(s.states)
}

// Frame returns the current frame number, starting at 1 after the first
// BeginFrame.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// Cursor returns the probe ID the next selection starts from.
func (s *Scheduler) Cursor() int {
	return s.cursor
}

// State returns a probe's state.
func (s *Scheduler) State(id int) ProbeState {
	return s.states[id]
}

// Updates returns how many times a probe has been dispatched.
func (s *Scheduler) Updates(id int) int {
	return s.updates[id]
}

// BeginFrame advances the frame and lets fresh probes past the revalidation
// interval decay to stale.
func (s *Scheduler) BeginFrame() {
	s.frame++
	if s.revalidate == 0 {
		return
	}
	for i, st := range s.states {
		if st == Fresh && s.frame-s.freshSince[i] >= s.revalidate {
			s.states[i] = Stale
		}
	}
}

// Select queues up to budget stale probes, scanning from the cursor. The
// cursor moves past the last probe selected.
func (s *Scheduler) Select(budget int) []int {
	count := len(s.states)
	if count == 0 || budget <= 0 {
		return nil
	}

	var picked []int
	for i := 0; i < count && len(picked) < budget; i++ {
		id := (s.cursor + i) % count
		if s.states[id] != Stale {
			continue
		}
		s.states[id] = Queued
		picked = append(picked, id)
	}
	if len(picked) > 0 {
		s.cursor = (picked[len(picked)-1] + 1) % count
	}
	return picked
}

// MarkUpdating moves queued probes to updating once their work is issued.
func (s *Scheduler) MarkUpdating(ids []int) {
	for _, id := range ids {
		if s.states[id] != Queued {
			continue
		}
		s.states[id] = Updating
		s.invalidated[id] = false
		s.updates[id]++
		s.dispatched++
	}
}

// Complete marks an updating probe fresh. A probe invalidated while its
// update was in flight goes back to stale so it is picked up again.
func (s *Scheduler) Complete(id int) {
	if id < 0 || id >= len(s.states) || s.states[id] != Updating {
		return
	}
	s.completed++
	if s.invalidated[id] {
		s.invalidated[id] = false
		s.states[id] = Stale
		return
	}
	s.states[id] = Fresh
	s.freshSince[id] = s.frame
}

// Invalidate marks a probe's static data as changed.
func (s *Scheduler) Invalidate(id int) {
	if id < 0 || id >= len(s.states) {
		return
	}
	switch s.states[id] {
	case Fresh:
		s.states[id] = Stale
	case Updating:
		s.invalidated[id] = true
	}
}

// InvalidateAll marks every probe's static data as changed.
func (s *Scheduler) InvalidateAll() {
	for id := range s.states {
		s.Invalidate(id)
	}
}

// Stats returns per-state counts and totals.
func (s *Scheduler) Stats() SchedulerStats {
	st := SchedulerStats{
		Frame:      s.frame,
		Dispatched: s.dispatched,
		Completed:  s.completed,
	}
	for _, state := range s.states {
		switch state {
		case Stale:
			st.Stale++
		case Queued:
			st.Queued++
		case Updating:
			st.Updating++
		case Fresh:
			st.Fresh++
		}
	}
	return st
}
