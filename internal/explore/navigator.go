package explore

import (
	"github.com/tracenav/tracenav/internal/store"
)

// navigator finds the frames that continue a call chain toward a leaf. It is
// scoped to one read session and one pair of active leaf sets.
type navigator struct {
	sess    *store.Session
	sources map[string]bool
	sinks   map[string]bool
}

// step is one hop of a trace walk: the frame chosen at that position and how
// many valid candidates existed there. branches == 0 marks a missing-frame
// placeholder.
type step struct {
	frame    store.TraceFrame
	branches int
}

func (n *navigator) activeLeaves(kind store.FrameKind) map[string]bool {
	if kind == store.Postcondition {
		return n.sources
	}
	return n.sinks
}

// nextFrames returns every frame continuing the call chain from f: same kind
// and run, caller matching f's callee/port, sharing at least one active leaf,
// with the shared leaf's remaining hop count one less than f's where f
// records one. Ordered by ascending frame id. An empty result is not an
// error; the caller records it as a missing continuation.
func (n *navigator) nextFrames(f *store.TraceFrame) ([]store.TraceFrame, error) {
	candidates, err := n.sess.CalleeFrames(f.RunID, f.Kind, f.Callee, f.CalleePort)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	active := n.activeLeaves(f.Kind)

	ownHops, err := n.sess.FrameLeaves(f.ID)
	if err != nil {
		return nil, err
	}
	own := make(map[string]int)
	for _, h := range ownHops {
		if active[h.Contents] {
			own[h.Contents] = h.TraceLength
		}
	}

	ids := make([]store.FrameID, len(candidates))
	for j, c := range candidates {
		ids[j] = c.ID
	}
	hops, err := n.sess.FrameLeavesBatch(ids)
	if err != nil {
		return nil, err
	}

	var next []store.TraceFrame
	for _, g := range candidates {
		if continuesChain(own, active, hops[g.ID]) {
			next = append(next, g)
		}
	}
	return next, nil
}

// continuesChain decides whether a candidate's leaf hops extend the chain.
// For each active leaf the candidate reaches: an unrecorded hop count on the
// current frame imposes no constraint; a recorded count t must be positive
// (t == 0 means the chain already terminated for that leaf) and the candidate
// must record t-1.
func continuesChain(own map[string]int, active map[string]bool, hops []store.LeafHop) bool {
	for _, h := range hops {
		if !active[h.Contents] {
			continue
		}
		t, known := own[h.Contents]
		if !known || t == store.TraceLengthUnknown {
			return true
		}
		if t > 0 && h.TraceLength == t-1 {
			return true
		}
	}
	return false
}

// navigate repeatedly applies nextFrames from a candidate set, recording the
// candidate count at each hop. choice selects which seed starts the walk
// (branch switching passes a non-zero choice); subsequent hops always follow
// the lowest-id candidate. The walk stops at a leaf terminal, or emits a
// zero-branch placeholder when a continuation is expected but not stored.
// A frame already on the walk is never a continuation: unknown trace lengths
// impose no hop constraint, so cyclic frame data would otherwise walk forever.
func (n *navigator) navigate(seeds []store.TraceFrame, choice int) ([]step, error) {
	var steps []step
	seen := make(map[store.FrameID]bool)
	frames := seeds
	idx := choice
	for len(frames) > 0 {
		f := frames[idx]
		steps = append(steps, step{frame: f, branches: len(frames)})
		seen[f.ID] = true
		if f.LeafTerminal() {
			break
		}
		next, err := n.nextFrames(&f)
		if err != nil {
			return nil, err
		}
		fresh := next[:0]
		for _, g := range next {
			if !seen[g.ID] {
				fresh = append(fresh, g)
			}
		}
		if len(fresh) == 0 {
			steps = append(steps, step{frame: missingFrame(&f)})
			break
		}
		frames = fresh
		idx = 0
	}
	return steps, nil
}

// missingFrame builds the placeholder emitted when no stored frame continues
// the chain. The empty caller is what marks it as missing.
func missingFrame(f *store.TraceFrame) store.TraceFrame {
	return store.TraceFrame{
		Kind:       f.Kind,
		Callee:     f.Callee,
		CalleePort: f.CalleePort,
		RunID:      f.RunID,
	}
}
