package explore

import (
	"errors"
	"fmt"

	"github.com/tracenav/tracenav/internal/store"
)

var (
	errAtRoot    = errors.New("cursor is on the issue root")
	errAtMissing = errors.New("cursor is on a missing trace frame")
)

// branchesAt enumerates the sibling candidates at the cursor: every valid
// continuation from the cursor tuple's predecessor, not only the one
// currently chosen. At the first position of either chain the siblings are
// the instance's entry frames on that side. Ordered by ascending frame id.
func (i *Interactive) branchesAt(sess *store.Session, nav *navigator) ([]store.TraceFrame, error) {
	idx := i.cursor
	if idx == i.rootIndex {
		return nil, errAtRoot
	}
	if i.tuples[idx].Missing {
		return nil, errAtMissing
	}

	if idx < i.rootIndex {
		if idx+1 == i.rootIndex {
			return sess.EntryFrames(i.instanceID, store.Postcondition)
		}
		pred := i.tuples[idx+1].Frame
		return nav.nextFrames(&pred)
	}

	if idx-1 == i.rootIndex {
		return sess.EntryFrames(i.instanceID, store.Precondition)
	}
	pred := i.tuples[idx-1].Frame
	return nav.nextFrames(&pred)
}

// multipleBranches reports whether the cursor tuple recorded more than one
// candidate at its hop, i.e. whether switching can change anything.
func (i *Interactive) multipleBranches() bool {
	return i.tuples[i.cursor].Branches > 1
}

// Expand prints every branch candidate at the cursor with its reachable
// leaves, remaining hop counts, and location. The active candidate is marked
// "[*]"; the others carry the position to pass to Branch. Inspection is
// always permitted, including on single-branch positions.
func (i *Interactive) Expand() error {
	if !i.issueSelected() {
		return nil
	}

	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	nav := i.navigator(sess)
	branches, err := i.branchesAt(sess, nav)
	if i.reportBranchError(err) {
		return nil
	}
	if err != nil {
		return err
	}

	ids := make([]store.FrameID, len(branches))
	for j, f := range branches {
		ids[j] = f.ID
	}
	hops, err := sess.FrameLeavesBatch(ids)
	if err != nil {
		return err
	}

	renderBranches(i.out, branches, hops, i.tuples[i.cursor].Frame.ID, i.sourceRoot)
	return nil
}

// Branch switches the active branch at the cursor to the candidate at the
// given position and regenerates the remainder of that side's chain. The
// opposite side and everything between the cursor and the root are
// untouched; the cursor ends up on the newly chosen frame. Position 0 on a
// single-branch hop is a legal no-op; anything else out of range reports an
// out-of-bounds error and changes nothing.
func (i *Interactive) Branch(position int) error {
	if !i.issueSelected() {
		return nil
	}

	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	nav := i.navigator(sess)
	branches, err := i.branchesAt(sess, nav)
	if i.reportBranchError(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if position < 0 || position >= len(branches) {
		fmt.Fprintf(i.errOut, "Branch number %d is out of bounds (valid range is [0, %d]).\n",
			position, len(branches)-1)
		return nil
	}

	if !i.multipleBranches() && position == 0 {
		renderTrace(i.out, i.tuples, i.cursor, i.sourceRoot)
		return nil
	}

	walk, err := nav.navigate(branches, position)
	if err != nil {
		return err
	}
	replacement := makeTuples(walk)

	if i.cursor < i.rootIndex {
		// Upstream: the walk continues toward the source leaf, which is
		// earlier in display order, so the replacement goes in reversed and
		// the root boundary shifts by the length difference.
		reverseTuples(replacement)
		tuples := make([]TraceTuple, 0, len(replacement)+len(i.tuples)-i.cursor-1)
		tuples = append(tuples, replacement...)
		tuples = append(tuples, i.tuples[i.cursor+1:]...)
		i.rootIndex += len(replacement) - (i.cursor + 1)
		i.cursor = len(replacement) - 1
		i.tuples = tuples
	} else {
		tuples := make([]TraceTuple, 0, i.cursor+len(replacement))
		tuples = append(tuples, i.tuples[:i.cursor]...)
		tuples = append(tuples, replacement...)
		i.tuples = tuples
	}

	renderTrace(i.out, i.tuples, i.cursor, i.sourceRoot)
	return nil
}

// reportBranchError prints the user-visible message for branch resolution
// failures that are session-sequencing conditions rather than store errors.
func (i *Interactive) reportBranchError(err error) bool {
	switch {
	case errors.Is(err, errAtRoot):
		fmt.Fprintln(i.errOut, "The issue root has no alternative branches.")
		return true
	case errors.Is(err, errAtMissing):
		fmt.Fprintln(i.errOut, "Cannot branch at a missing trace frame.")
		return true
	}
	return false
}
