package explore

import (
	"strings"
	"testing"

	"github.com/tracenav/tracenav/internal/store"
)

// insertBranchedTrace stores an instance with two candidates at every hop:
// frames 1-2 are interchangeable source-side terminals, 3-4 interchangeable
// first sink-side hops, 5-6 interchangeable sink terminals. Frame i sits at
// line i so rows are tellable apart by location.
func insertBranchedTrace(t *testing.T, st *store.Store) {
	f := beginFixture(t, st)
	f.run(1, store.RunFinished)
	f.instance(1, 1, 1000, "module.function1", "m1")

	terminal := func(id store.FrameID, kind store.FrameKind, caller, callerPort, port string) store.TraceFrame {
		n := int(id)
		return store.TraceFrame{
			ID: id, Kind: kind, Caller: caller, CallerPort: callerPort,
			Callee: "leaf", CalleePort: port, Filename: "file.py",
			CalleeLocation: store.Location{Line: n, Start: n, End: n}, RunID: 1,
		}
	}

	f.frame(terminal(1, store.Postcondition, "call1", "root", "source"))
	f.frame(terminal(2, store.Postcondition, "call1", "root", "source"))
	f.frame(store.TraceFrame{
		ID: 3, Kind: store.Precondition, Caller: "call1", CallerPort: "root",
		Callee: "call2", CalleePort: "param2", Filename: "file.py",
		CalleeLocation: store.Location{Line: 3, Start: 3, End: 3}, RunID: 1,
	})
	f.frame(store.TraceFrame{
		ID: 4, Kind: store.Precondition, Caller: "call1", CallerPort: "root",
		Callee: "call2", CalleePort: "param2", Filename: "file.py",
		CalleeLocation: store.Location{Line: 4, Start: 4, End: 4}, RunID: 1,
	})
	f.frame(terminal(5, store.Precondition, "call2", "param2", "sink"))
	f.frame(terminal(6, store.Precondition, "call2", "param2", "sink"))

	f.hop(1, "source1", store.TextSource, 0)
	f.hop(2, "source1", store.TextSource, 0)
	f.hop(3, "sink1", store.TextSink, 1)
	f.hop(4, "sink1", store.TextSink, 1)
	f.hop(5, "sink1", store.TextSink, 0)
	f.hop(6, "sink1", store.TextSink, 0)

	f.entry(1, 1)
	f.entry(1, 2)
	f.entry(1, 3)
	f.entry(1, 4)
	f.leaf(1, "source1", store.TextSource)
	f.leaf(1, "sink1", store.TextSink)
	f.commit()
}

func sessionWithIssue(t *testing.T, st *store.Store) (*Interactive, *strings.Builder, *strings.Builder) {
	t.Helper()
	var out, errOut strings.Builder
	i := New(st, &out, &errOut)
	mustSetup(t, i)
	if err := i.SetIssue(1); err != nil {
		t.Fatalf("failed to set issue: %v", err)
	}
	return i, &out, &errOut
}

func TestTraceBranchCounts(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.Trace(); err != nil {
		t.Fatalf("failed to trace: %v", err)
	}

	want := `     [branches] [callable] [port] [location]
     + 2        leaf       source file.py:1|1|1
 -->            call1      root   file.py:3|3|3
     + 2        call2      param2 file.py:3|3|3
     + 2        leaf       sink   file.py:5|5|5
`
	if out.String() != want {
		t.Errorf("trace mismatch:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestExpand(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.PrevCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	out.Reset()
	if err := i.Expand(); err != nil {
		t.Fatalf("failed to expand: %v", err)
	}

	want := `[*] leaf : source
        [0 hops: source1]
        [file.py:1|1|1]
[1] leaf : source
        [0 hops: source1]
        [file.py:2|2|2]
`
	if out.String() != want {
		t.Errorf("expand mismatch:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestExpandDownstream(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	out.Reset()
	if err := i.Expand(); err != nil {
		t.Fatalf("failed to expand: %v", err)
	}

	want := `[*] call2 : param2
        [1 hops: sink1]
        [file.py:3|3|3]
[1] call2 : param2
        [1 hops: sink1]
        [file.py:4|4|4]
`
	if out.String() != want {
		t.Errorf("expand mismatch:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestExpandSingleBranch(t *testing.T) {
	st := newTestStore(t)
	insertLinearTrace(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	out.Reset()
	if err := i.Expand(); err != nil {
		t.Fatalf("failed to expand: %v", err)
	}

	// Inspection is permitted even when there is nothing to switch to.
	want := `[*] call2 : param0
        [1 hops: sink1]
        [file.py:1|1|2]
`
	if out.String() != want {
		t.Errorf("expand mismatch:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestBranchSingleBranchNoOp(t *testing.T) {
	st := newTestStore(t)
	insertLinearTrace(t, st)
	i, out, errOut := sessionWithIssue(t, st)

	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}

	// Position 0 on a single-branch hop re-renders and changes nothing.
	out.Reset()
	if err := i.Branch(0); err != nil {
		t.Fatalf("failed to run branch: %v", err)
	}
	if i.CursorIndex() != 2 {
		t.Errorf("no-op branch must not move the cursor, got %d", i.CursorIndex())
	}
	if !strings.Contains(out.String(), " --> ") {
		t.Errorf("expected a re-rendered trace, got:\n%s", out.String())
	}

	if err := i.Branch(2); err != nil {
		t.Fatalf("failed to run branch: %v", err)
	}
	if got := errOut.String(); got != "Branch number 2 is out of bounds (valid range is [0, 0]).\n" {
		t.Errorf("expected out-of-bounds message, got %q", got)
	}
}

func TestExpandAtRoot(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, out, errOut := sessionWithIssue(t, st)

	out.Reset()
	if err := i.Expand(); err != nil {
		t.Fatalf("failed to expand: %v", err)
	}
	if got := errOut.String(); got != "The issue root has no alternative branches.\n" {
		t.Errorf("expected root message, got %q", got)
	}
	if out.String() != "" {
		t.Errorf("expected no branch listing at the root, got:\n%s", out.String())
	}
}

func TestBranchUpstream(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.PrevCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}

	out.Reset()
	if err := i.Branch(1); err != nil {
		t.Fatalf("failed to branch: %v", err)
	}
	if !strings.Contains(out.String(), " --> + 2        leaf       source file.py:2|2|2\n") {
		t.Errorf("expected the alternative source terminal, got:\n%s", out.String())
	}
	if i.CursorIndex() != 0 {
		t.Errorf("expected cursor to stay on the switched frame, got %d", i.CursorIndex())
	}

	// Switching back restores the original frame.
	out.Reset()
	if err := i.Branch(0); err != nil {
		t.Fatalf("failed to branch back: %v", err)
	}
	if !strings.Contains(out.String(), " --> + 2        leaf       source file.py:1|1|1\n") {
		t.Errorf("expected the original source terminal, got:\n%s", out.String())
	}
}

func TestBranchDownstream(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}

	// Switch the first sink-side hop; the rest of the chain regenerates.
	out.Reset()
	if err := i.Branch(1); err != nil {
		t.Fatalf("failed to branch: %v", err)
	}
	if !strings.Contains(out.String(), " --> + 2        call2      param2 file.py:4|4|4\n") {
		t.Errorf("expected the alternative sink-side hop, got:\n%s", out.String())
	}
	if i.CursorIndex() != 2 {
		t.Errorf("expected cursor unchanged at 2, got %d", i.CursorIndex())
	}

	// Deeper in the chain the candidates come from the predecessor frame.
	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	out.Reset()
	if err := i.Branch(1); err != nil {
		t.Fatalf("failed to branch: %v", err)
	}
	if !strings.Contains(out.String(), " --> + 2        leaf       sink   file.py:6|6|6\n") {
		t.Errorf("expected the alternative sink terminal, got:\n%s", out.String())
	}
}

func TestBranchAtRoot(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, _, errOut := sessionWithIssue(t, st)

	if err := i.Branch(1); err != nil {
		t.Fatalf("failed to run branch: %v", err)
	}
	if got := errOut.String(); got != "The issue root has no alternative branches.\n" {
		t.Errorf("expected root message, got %q", got)
	}
}

func TestBranchOutOfBounds(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, _, errOut := sessionWithIssue(t, st)

	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	before := i.CursorIndex()

	if err := i.Branch(5); err != nil {
		t.Fatalf("failed to run branch: %v", err)
	}
	if got := errOut.String(); got != "Branch number 5 is out of bounds (valid range is [0, 1]).\n" {
		t.Errorf("expected out-of-bounds message, got %q", got)
	}
	if i.CursorIndex() != before {
		t.Errorf("out-of-bounds branch must not move the cursor, got %d", i.CursorIndex())
	}
}

func TestBranchAtMissingFrame(t *testing.T) {
	st := newTestStore(t)
	f := beginFixture(t, st)
	f.run(1, store.RunFinished)
	f.instance(1, 1, 1000, "module.function1", "m1")
	f.frame(store.TraceFrame{
		ID: 1, Kind: store.Precondition, Caller: "call1", CallerPort: "root",
		Callee: "call2", CalleePort: "param0", Filename: "file.py",
		CalleeLocation: store.Location{Line: 1, Start: 1, End: 1}, RunID: 1,
	})
	f.hop(1, "sink1", store.TextSink, store.TraceLengthUnknown)
	f.entry(1, 1)
	f.leaf(1, "sink1", store.TextSink)
	f.commit()

	i, _, errOut := sessionWithIssue(t, st)

	// Path is root, call2, missing placeholder.
	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}

	if err := i.Branch(0); err != nil {
		t.Fatalf("failed to run branch: %v", err)
	}
	if got := errOut.String(); got != "Cannot branch at a missing trace frame.\n" {
		t.Errorf("expected missing-frame message, got %q", got)
	}
}

// insertForkedChain stores an instance whose source side has two walks of
// different lengths: entry frame 1 reaches the source directly while entry
// frame 2 goes through a further hop. Switching between them changes how
// many rows sit above the root.
func insertForkedChain(t *testing.T, st *store.Store) {
	f := beginFixture(t, st)
	f.run(1, store.RunFinished)
	f.instance(1, 1, 1000, "module.function1", "m1")

	f.frame(store.TraceFrame{
		ID: 1, Kind: store.Postcondition, Caller: "call1", CallerPort: "root",
		Callee: "leaf", CalleePort: "source", Filename: "file.py",
		CalleeLocation: store.Location{Line: 1, Start: 1, End: 1}, RunID: 1,
	})
	f.frame(store.TraceFrame{
		ID: 2, Kind: store.Postcondition, Caller: "call1", CallerPort: "root",
		Callee: "prev_call", CalleePort: "result", Filename: "file.py",
		CalleeLocation: store.Location{Line: 1, Start: 1, End: 1}, RunID: 1,
	})
	f.frame(store.TraceFrame{
		ID: 3, Kind: store.Postcondition, Caller: "prev_call", CallerPort: "result",
		Callee: "leaf", CalleePort: "source", Filename: "file.py",
		CalleeLocation: store.Location{Line: 1, Start: 1, End: 1}, RunID: 1,
	})
	f.frame(store.TraceFrame{
		ID: 4, Kind: store.Precondition, Caller: "call1", CallerPort: "root",
		Callee: "leaf", CalleePort: "sink", Filename: "file.py",
		CalleeLocation: store.Location{Line: 1, Start: 2, End: 2}, RunID: 1,
	})

	f.hop(1, "source1", store.TextSource, 0)
	f.hop(2, "source1", store.TextSource, 1)
	f.hop(3, "source1", store.TextSource, 0)
	f.hop(4, "sink1", store.TextSink, 0)

	f.entry(1, 1)
	f.entry(1, 2)
	f.entry(1, 4)
	f.leaf(1, "source1", store.TextSource)
	f.leaf(1, "sink1", store.TextSink)
	f.commit()
}

func TestBranchChangesChainLength(t *testing.T) {
	st := newTestStore(t)
	insertForkedChain(t, st)
	i, out, _ := sessionWithIssue(t, st)

	if err := i.PrevCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	want := `     [branches] [callable] [port] [location]
 --> + 2        leaf       source file.py:1|1|1
                call1      root   file.py:1|2|2
                leaf       sink   file.py:1|2|2
`
	if out.String() != want {
		t.Fatalf("trace mismatch before branching:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}

	// The alternative walk is one hop longer; the root boundary shifts and
	// the cursor stays on the switched frame.
	out.Reset()
	if err := i.Branch(1); err != nil {
		t.Fatalf("failed to branch: %v", err)
	}
	want = `     [branches] [callable] [port] [location]
                leaf       source file.py:1|1|1
 --> + 2        prev_call  result file.py:1|1|1
                call1      root   file.py:1|2|2
                leaf       sink   file.py:1|2|2
`
	if out.String() != want {
		t.Errorf("trace mismatch after branching:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
	if i.CursorIndex() != 1 {
		t.Errorf("expected cursor 1 on the switched frame, got %d", i.CursorIndex())
	}

	// Branch positions still resolve against the entry frames after the
	// boundary shift.
	out.Reset()
	if err := i.Expand(); err != nil {
		t.Fatalf("failed to expand: %v", err)
	}
	wantExpand := `[0] leaf : source
        [0 hops: source1]
        [file.py:1|1|1]
[*] prev_call : result
        [1 hops: source1]
        [file.py:1|1|1]
`
	if out.String() != wantExpand {
		t.Errorf("expand mismatch:\ngot:\n%s\nwant:\n%s", out.String(), wantExpand)
	}
}

func TestMultipleBranches(t *testing.T) {
	st := newTestStore(t)
	insertBranchedTrace(t, st)
	i, _, _ := sessionWithIssue(t, st)

	if i.multipleBranches() {
		t.Error("root tuple must report a single branch")
	}
	if err := i.NextCursorLocation(); err != nil {
		t.Fatalf("failed to move cursor: %v", err)
	}
	if !i.multipleBranches() {
		t.Error("expected multiple branches at the first sink-side hop")
	}
}
