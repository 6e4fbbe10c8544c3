package explore

import (
	"errors"
	"fmt"
	"io"

	"github.com/tracenav/tracenav/internal/store"
)

// PagerFunc receives a fully rendered block for paged display. Tests inject
// a capturing func; the shell wires one that shells out to the configured
// pager command.
type PagerFunc func(string)

// Interactive holds the mutable state of one analyst session: the selected
// run and issue, the active source/sink leaf sets, the assembled trace path,
// and the cursor. It is not safe for concurrent use; each analyst session
// owns its own value. All graph entities are read-only underneath it.
type Interactive struct {
	store      *store.Store
	out        io.Writer
	errOut     io.Writer
	pager      PagerFunc
	sourceRoot string

	runID      store.RunID
	instanceID store.InstanceID
	sources    map[string]bool
	sinks      map[string]bool
	tuples     []TraceTuple
	rootIndex  int
	cursor     int
}

// New creates a session over the given store writing to the given streams.
func New(st *store.Store, out, errOut io.Writer) *Interactive {
	return &Interactive{store: st, out: out, errOut: errOut}
}

// SetPager installs the sink used for paged listings.
func (i *Interactive) SetPager(p PagerFunc) {
	i.pager = p
}

// SetSourceRoot sets a directory prepended to filenames printed in traces,
// so locations resolve against a local checkout.
func (i *Interactive) SetSourceRoot(root string) {
	i.sourceRoot = root
}

// Setup selects the latest finished run as the session's scope. With no
// finished run in the store it reports "No runs found." and leaves the
// session usable for ingest-then-retry workflows.
func (i *Interactive) Setup() error {
	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	run, err := sess.LatestFinishedRun()
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(i.errOut, "No runs found.")
		return nil
	}
	if err != nil {
		return err
	}
	i.runID = run.ID
	return nil
}

// SetRun selects a run by id. Only finished runs are selectable; anything
// else reports "doesn't exist" on the error channel and changes nothing.
// Selecting a run invalidates any issue selection.
func (i *Interactive) SetRun(id store.RunID) error {
	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	run, err := sess.Run(id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && run.Status != store.RunFinished) {
		fmt.Fprintf(i.errOut, "Run %d doesn't exist.\n", id)
		return nil
	}
	if err != nil {
		return err
	}

	i.runID = run.ID
	i.clearIssue()
	return nil
}

// SetIssue selects an issue instance by id, loads its source and sink leaf
// sets, assembles the trace path, and resets the cursor to the root boundary.
func (i *Interactive) SetIssue(id store.InstanceID) error {
	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	row, err := sess.InstanceRowByID(id)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(i.errOut, "Issue %d doesn't exist.\n", id)
		return nil
	}
	if err != nil {
		return err
	}

	sources, err := sess.InstanceLeaves(id, store.TextSource)
	if err != nil {
		return err
	}
	sinks, err := sess.InstanceLeaves(id, store.TextSink)
	if err != nil {
		return err
	}

	i.instanceID = id
	i.sources = toSet(sources)
	i.sinks = toSet(sinks)

	tuples, root, err := assembleTrace(sess, i.navigator(sess), row)
	if err != nil {
		i.clearIssue()
		return err
	}
	i.tuples = tuples
	i.rootIndex = root
	i.cursor = root
	return nil
}

// Issues lists the selected run's issue instances narrowed by the filter.
func (i *Interactive) Issues(filter store.IssueFilter, paged bool) error {
	if i.runID == 0 {
		fmt.Fprintln(i.errOut, "No runs found.")
		return nil
	}

	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	rows, err := sess.Instances(i.runID, filter)
	if err != nil {
		return err
	}
	i.emit(renderInstances(rows), paged)
	return nil
}

// Runs lists the finished runs in the store.
func (i *Interactive) Runs(paged bool) error {
	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	runs, err := sess.FinishedRuns()
	if err != nil {
		return err
	}
	i.emit(renderRuns(runs), paged)
	return nil
}

// Show prints the selected issue instance.
func (i *Interactive) Show() error {
	if !i.issueSelected() {
		return nil
	}

	sess, err := i.store.Session()
	if err != nil {
		return err
	}
	defer sess.Close()

	row, err := sess.InstanceRowByID(i.instanceID)
	if err != nil {
		return err
	}
	i.emit(renderInstances([]store.InstanceRow{*row}), false)
	return nil
}

// Trace prints the assembled trace path with the cursor marker.
func (i *Interactive) Trace() error {
	if !i.issueSelected() {
		return nil
	}
	renderTrace(i.out, i.tuples, i.cursor, i.sourceRoot)
	return nil
}

// NextCursorLocation moves the cursor one hop toward the sink leaf and
// re-renders the path. A no-op at the end of the path.
func (i *Interactive) NextCursorLocation() error {
	if !i.issueSelected() {
		return nil
	}
	if i.cursor < len(i.tuples)-1 {
		i.cursor++
	}
	renderTrace(i.out, i.tuples, i.cursor, i.sourceRoot)
	return nil
}

// PrevCursorLocation moves the cursor one hop toward the source leaf and
// re-renders the path. A no-op at the start of the path.
func (i *Interactive) PrevCursorLocation() error {
	if !i.issueSelected() {
		return nil
	}
	if i.cursor > 0 {
		i.cursor--
	}
	renderTrace(i.out, i.tuples, i.cursor, i.sourceRoot)
	return nil
}

// CursorIndex returns the cursor's position in the assembled path.
func (i *Interactive) CursorIndex() int {
	return i.cursor
}

func (i *Interactive) navigator(sess *store.Session) *navigator {
	return &navigator{sess: sess, sources: i.sources, sinks: i.sinks}
}

func (i *Interactive) issueSelected() bool {
	if i.instanceID == 0 {
		fmt.Fprintln(i.errOut, "Use 'set_issue ID' to select an issue first.")
		return false
	}
	return true
}

func (i *Interactive) clearIssue() {
	i.instanceID = 0
	i.sources = nil
	i.sinks = nil
	i.tuples = nil
	i.rootIndex = 0
	i.cursor = 0
}

func (i *Interactive) emit(block string, paged bool) {
	if paged && i.pager != nil {
		i.pager(block)
		return
	}
	fmt.Fprint(i.out, block)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
