package store

import (
	"strconv"
	"time"
)

// RunID is a type-safe identifier for analysis runs.
type RunID int64

// IssueID is a type-safe identifier for deduplicated issues.
type IssueID int64

// InstanceID is a type-safe identifier for issue instances.
type InstanceID int64

// TextID is a type-safe identifier for interned shared texts.
type TextID int64

// FrameID is a type-safe identifier for trace frames.
type FrameID int64

// RunStatus represents the completion state of an analysis run.
type RunStatus string

const (
	RunFinished   RunStatus = "finished"
	RunIncomplete RunStatus = "incomplete"
)

// TextKind classifies an interned shared text.
type TextKind string

const (
	TextMessage TextKind = "message"
	TextSource  TextKind = "source"
	TextSink    TextKind = "sink"
	TextFeature TextKind = "feature"
)

// FrameKind tags the flow direction of a trace frame. Postcondition frames
// flow from a callee upward toward the issue root (source side); precondition
// frames flow from the root's caller downward toward a sink.
type FrameKind string

const (
	Postcondition FrameKind = "postcondition"
	Precondition  FrameKind = "precondition"
)

// TraceLengthUnknown marks a leaf association whose remaining hop count was
// not recorded by the analysis pipeline. Stored as NULL.
const TraceLengthUnknown = -1

// Location is a source position. End == 0 means no end column was recorded.
type Location struct {
	Line  int `json:"line"`
	Start int `json:"start"`
	End   int `json:"end,omitempty"`
}

// String renders the position in the pipeline's pipe-joined form:
// "line|start|end", or "line|start" when no end column is recorded.
func (l Location) String() string {
	if l.End == 0 {
		return strconv.Itoa(l.Line) + "|" + strconv.Itoa(l.Start)
	}
	return strconv.Itoa(l.Line) + "|" + strconv.Itoa(l.Start) + "|" + strconv.Itoa(l.End)
}

// Run represents one analysis execution.
type Run struct {
	ID     RunID     `json:"id"`
	Date   time.Time `json:"date"`
	Status RunStatus `json:"status"`
}

// Issue is a deduplicated finding. Identity spans runs via Handle.
type Issue struct {
	ID        IssueID   `json:"id"`
	Handle    string    `json:"handle"`
	FirstSeen time.Time `json:"first_seen"`
	Code      int       `json:"code"`
	Callable  string    `json:"callable"`
	Filename  string    `json:"filename,omitempty"`
}

// IssueInstance is one occurrence of an Issue within one Run.
type IssueInstance struct {
	ID        InstanceID `json:"id"`
	RunID     RunID      `json:"run_id"`
	IssueID   IssueID    `json:"issue_id"`
	MessageID TextID     `json:"message_id"`
	Filename  string     `json:"filename"`
	Location  Location   `json:"location"`
}

// SharedText is an interned string payload, deduplicated by contents+kind.
type SharedText struct {
	ID       TextID   `json:"id"`
	Contents string   `json:"contents"`
	Kind     TextKind `json:"kind"`
}

// TraceFrame is one edge of the data-flow call graph.
type TraceFrame struct {
	ID             FrameID   `json:"id"`
	Kind           FrameKind `json:"kind"`
	Caller         string    `json:"caller"`
	CallerPort     string    `json:"caller_port"`
	Callee         string    `json:"callee"`
	CalleePort     string    `json:"callee_port"`
	CalleeLocation Location  `json:"callee_location"`
	Filename       string    `json:"filename"`
	RunID          RunID     `json:"run_id"`
}

// LeafTerminal reports whether the frame's callee is literally a source or
// sink leaf, which terminates a trace walk.
func (f *TraceFrame) LeafTerminal() bool {
	return f.Callee == "leaf" && (f.CalleePort == "source" || f.CalleePort == "sink")
}

// LeafHop records that a frame can reach a leaf in TraceLength more hops.
// TraceLength 0 means the frame's callee is the leaf itself.
type LeafHop struct {
	FrameID     FrameID  `json:"trace_frame_id"`
	LeafID      TextID   `json:"leaf_id"`
	Contents    string   `json:"contents"`
	Kind        TextKind `json:"kind"`
	TraceLength int      `json:"trace_length"`
}

// InstanceRow is an issue instance joined with its issue and message text,
// used for listing and display.
type InstanceRow struct {
	Instance IssueInstance
	Issue    Issue
	Message  string
}

// IssueFilter narrows an instance listing. Nil/empty fields match everything.
// Callable and filename patterns use SQL LIKE syntax (% and _ wildcards) and
// apply to the issue's callable and filename.
type IssueFilter struct {
	Codes     []int
	Callables []string
	Filenames []string
}
