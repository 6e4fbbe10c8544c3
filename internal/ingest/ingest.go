// Package ingest loads analysis-output documents into the results database.
// It is the write path the explorer itself never takes: the upstream taint
// analysis emits one JSON document per run, and ingest turns it into rows.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/tracenav/tracenav/internal/store"
)

// Document is one run's worth of analysis output.
type Document struct {
	Run    Run     `json:"run"`
	Frames []Frame `json:"trace_frames"`
	Issues []Issue `json:"issues"`
}

// Run describes the analysis execution that produced the document.
type Run struct {
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
}

// Frame is one call-graph edge. Key is a document-local name that instances
// use to reference their entry frames.
type Frame struct {
	Key        string         `json:"key"`
	Kind       string         `json:"kind"`
	Caller     string         `json:"caller"`
	CallerPort string         `json:"caller_port"`
	Callee     string         `json:"callee"`
	CalleePort string         `json:"callee_port"`
	Filename   string         `json:"filename"`
	Location   store.Location `json:"callee_location"`
	Leaves     []Leaf         `json:"leaves"`
}

// Leaf is a reachable source or sink with the remaining hop count, nil when
// the analysis recorded none.
type Leaf struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	TraceLength *int   `json:"trace_length"`
}

// Issue is a finding with its occurrences in this run.
type Issue struct {
	Handle    string     `json:"handle"`
	FirstSeen time.Time  `json:"first_seen"`
	Code      int        `json:"code"`
	Callable  string     `json:"callable"`
	Filename  string     `json:"filename"`
	Instances []Instance `json:"instances"`
}

// Instance is one occurrence of an issue.
type Instance struct {
	Message  string         `json:"message"`
	Filename string         `json:"filename"`
	Location store.Location `json:"location"`
	Sources  []string       `json:"sources"`
	Sinks    []string       `json:"sinks"`
	Entries  []string       `json:"entry_frames"`
}

// Result summarizes a completed load.
type Result struct {
	RunID         store.RunID
	IssueCount    int
	InstanceCount int
	FrameCount    int
}

// Loader writes documents into a store, one batch transaction per document.
type Loader struct {
	store    *store.Store
	progress bool
}

// NewLoader creates a loader over the given store.
func NewLoader(st *store.Store) *Loader {
	return &Loader{store: st}
}

// ShowProgress toggles the terminal progress bar during frame loading.
func (l *Loader) ShowProgress(on bool) {
	l.progress = on
}

// LoadFile reads and loads a JSON document from disk.
func (l *Loader) LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return l.Load(&doc)
}

// Load writes one document in a single transaction. Nothing is retained on
// error.
func (l *Loader) Load(doc *Document) (*Result, error) {
	batch, err := l.store.Begin()
	if err != nil {
		return nil, err
	}
	result, err := l.load(batch, doc)
	if err != nil {
		batch.Rollback()
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Loader) load(batch *store.Batch, doc *Document) (*Result, error) {
	status, err := runStatus(doc.Run.Status)
	if err != nil {
		return nil, err
	}
	date := doc.Run.Date
	if date.IsZero() {
		date = time.Now()
	}
	runID, err := batch.InsertRun(&store.Run{Date: date, Status: status})
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	frameIDs, frameCount, err := l.loadFrames(batch, doc, runID)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, FrameCount: frameCount}
	for j := range doc.Issues {
		if err := l.loadIssue(batch, &doc.Issues[j], runID, frameIDs, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (l *Loader) loadFrames(batch *store.Batch, doc *Document, runID store.RunID) (map[string]store.FrameID, int, error) {
	bar := progressbar.DefaultSilent(int64(len(doc.Frames)), "loading frames")
	if l.progress {
		bar = progressbar.Default(int64(len(doc.Frames)), "loading frames")
	}

	frameIDs := make(map[string]store.FrameID, len(doc.Frames))
	for j := range doc.Frames {
		f := &doc.Frames[j]
		kind, err := frameKind(f.Kind)
		if err != nil {
			return nil, 0, err
		}
		id, err := batch.InsertFrame(&store.TraceFrame{
			Kind:           kind,
			Caller:         f.Caller,
			CallerPort:     f.CallerPort,
			Callee:         f.Callee,
			CalleePort:     f.CalleePort,
			CalleeLocation: f.Location,
			Filename:       f.Filename,
			RunID:          runID,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("inserting frame %q: %w", f.Key, err)
		}
		if f.Key != "" {
			frameIDs[f.Key] = id
		}

		for _, leaf := range f.Leaves {
			kind, err := leafKind(leaf.Kind)
			if err != nil {
				return nil, 0, err
			}
			leafID, err := batch.InternText(leaf.Name, kind)
			if err != nil {
				return nil, 0, err
			}
			length := store.TraceLengthUnknown
			if leaf.TraceLength != nil {
				length = *leaf.TraceLength
			}
			if err := batch.InsertLeafHop(id, leafID, length); err != nil {
				return nil, 0, err
			}
		}
		bar.Add(1)
	}
	return frameIDs, len(doc.Frames), nil
}

func (l *Loader) loadIssue(batch *store.Batch, issue *Issue, runID store.RunID, frameIDs map[string]store.FrameID, result *Result) error {
	issueID, err := batch.IssueIDByHandle(issue.Handle)
	if errors.Is(err, store.ErrNotFound) {
		firstSeen := issue.FirstSeen
		if firstSeen.IsZero() {
			firstSeen = time.Now()
		}
		issueID, err = batch.InsertIssue(&store.Issue{
			Handle:    issue.Handle,
			FirstSeen: firstSeen,
			Code:      issue.Code,
			Callable:  issue.Callable,
			Filename:  issue.Filename,
		})
		if err == nil {
			result.IssueCount++
		}
	}
	if err != nil {
		return fmt.Errorf("inserting issue %q: %w", issue.Handle, err)
	}

	for j := range issue.Instances {
		inst := &issue.Instances[j]
		messageID, err := batch.InternText(inst.Message, store.TextMessage)
		if err != nil {
			return err
		}
		instID, err := batch.InsertInstance(&store.IssueInstance{
			RunID:     runID,
			IssueID:   issueID,
			MessageID: messageID,
			Filename:  inst.Filename,
			Location:  inst.Location,
		})
		if err != nil {
			return fmt.Errorf("inserting instance of %q: %w", issue.Handle, err)
		}
		result.InstanceCount++

		for _, name := range inst.Sources {
			if err := assocLeaf(batch, instID, name, store.TextSource); err != nil {
				return err
			}
		}
		for _, name := range inst.Sinks {
			if err := assocLeaf(batch, instID, name, store.TextSink); err != nil {
				return err
			}
		}
		for _, key := range inst.Entries {
			frameID, ok := frameIDs[key]
			if !ok {
				return fmt.Errorf("instance of %q references unknown frame %q", issue.Handle, key)
			}
			if err := batch.AssocInstanceFrame(instID, frameID); err != nil {
				return err
			}
		}
	}
	return nil
}

func assocLeaf(batch *store.Batch, instID store.InstanceID, name string, kind store.TextKind) error {
	textID, err := batch.InternText(name, kind)
	if err != nil {
		return err
	}
	return batch.AssocInstanceText(instID, textID)
}

func runStatus(s string) (store.RunStatus, error) {
	switch store.RunStatus(s) {
	case store.RunFinished, store.RunIncomplete:
		return store.RunStatus(s), nil
	case "":
		return store.RunFinished, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

func frameKind(s string) (store.FrameKind, error) {
	switch store.FrameKind(s) {
	case store.Postcondition, store.Precondition:
		return store.FrameKind(s), nil
	}
	return "", fmt.Errorf("unknown frame kind %q", s)
}

func leafKind(s string) (store.TextKind, error) {
	switch store.TextKind(s) {
	case store.TextSource, store.TextSink:
		return store.TextKind(s), nil
	}
	return "", fmt.Errorf("leaf kind must be source or sink, got %q", s)
}
