package store

import (
	"database/sql"
	"errors"
	"time"
)

// Batch wraps a write transaction for bulk loading of analysis results.
// Only the ingest pipeline writes; the explorer is read-only.
type Batch struct {
	tx *sql.Tx
}

// Begin starts a batch write transaction. Call Commit when done, or Rollback
// on error.
func (s *Store) Begin() (*Batch, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &Batch{tx: tx}, nil
}

// Commit commits the batch transaction.
func (b *Batch) Commit() error {
	return b.tx.Commit()
}

// Rollback rolls back the batch transaction.
func (b *Batch) Rollback() error {
	return b.tx.Rollback()
}

// InsertRun inserts a run and returns its id. A non-zero r.ID is used as-is,
// which lets fixtures and re-imports pin ids.
func (b *Batch) InsertRun(r *Run) (RunID, error) {
	res, err := b.tx.Exec(`
		INSERT INTO runs (id, date, status) VALUES (?, ?, ?)`,
		nullID(int64(r.ID)), r.Date.Format(time.RFC3339), r.Status)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return RunID(id), err
}

// InsertIssue inserts an issue and returns its id.
func (b *Batch) InsertIssue(is *Issue) (IssueID, error) {
	res, err := b.tx.Exec(`
		INSERT INTO issues (id, handle, first_seen, code, callable, filename)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullID(int64(is.ID)), is.Handle, is.FirstSeen.Format(time.RFC3339),
		is.Code, is.Callable, nullString(is.Filename))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return IssueID(id), err
}

// IssueIDByHandle returns the id of the issue with the given stable handle,
// or ErrNotFound. Lets re-ingests attach new instances to existing issues.
func (b *Batch) IssueIDByHandle(handle string) (IssueID, error) {
	var id int64
	err := b.tx.QueryRow("SELECT id FROM issues WHERE handle = ?", handle).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return IssueID(id), err
}

// InsertInstance inserts an issue instance and returns its id.
func (b *Batch) InsertInstance(inst *IssueInstance) (InstanceID, error) {
	res, err := b.tx.Exec(`
		INSERT INTO issue_instances (id, run_id, issue_id, message_id, filename, line, start_col, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(int64(inst.ID)), inst.RunID, inst.IssueID, nullID(int64(inst.MessageID)),
		inst.Filename, inst.Location.Line, inst.Location.Start, inst.Location.End)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return InstanceID(id), err
}

// InternText inserts a shared text, or returns the id of the existing row
// with the same contents and kind.
func (b *Batch) InternText(contents string, kind TextKind) (TextID, error) {
	res, err := b.tx.Exec(`
		INSERT INTO shared_texts (contents, kind) VALUES (?, ?)
		ON CONFLICT (contents, kind) DO NOTHING`, contents, kind)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		return TextID(id), err
	}

	var id int64
	err = b.tx.QueryRow(
		"SELECT id FROM shared_texts WHERE contents = ? AND kind = ?",
		contents, kind).Scan(&id)
	return TextID(id), err
}

// InsertFrame inserts a trace frame and returns its id.
func (b *Batch) InsertFrame(f *TraceFrame) (FrameID, error) {
	res, err := b.tx.Exec(`
		INSERT INTO trace_frames (id, kind, caller, caller_port, callee, callee_port,
		                          filename, line, start_col, end_col, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(int64(f.ID)), f.Kind, f.Caller, f.CallerPort, f.Callee, f.CalleePort,
		f.Filename, f.CalleeLocation.Line, f.CalleeLocation.Start, f.CalleeLocation.End,
		f.RunID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return FrameID(id), err
}

// InsertLeafHop records that a frame reaches a leaf in traceLength more hops.
// Pass TraceLengthUnknown when the pipeline recorded no hop count.
func (b *Batch) InsertLeafHop(frameID FrameID, leafID TextID, traceLength int) error {
	var length any
	if traceLength != TraceLengthUnknown {
		length = traceLength
	}
	_, err := b.tx.Exec(`
		INSERT INTO trace_frame_leaf_assoc (trace_frame_id, leaf_id, trace_length)
		VALUES (?, ?, ?)`, frameID, leafID, length)
	return err
}

// AssocInstanceFrame marks a frame as an entry frame of an instance.
func (b *Batch) AssocInstanceFrame(instanceID InstanceID, frameID FrameID) error {
	_, err := b.tx.Exec(`
		INSERT INTO issue_instance_trace_frame_assoc (issue_instance_id, trace_frame_id)
		VALUES (?, ?)`, instanceID, frameID)
	return err
}

// AssocInstanceText associates a directly known leaf with an instance.
func (b *Batch) AssocInstanceText(instanceID InstanceID, textID TextID) error {
	_, err := b.tx.Exec(`
		INSERT INTO issue_instance_shared_text_assoc (issue_instance_id, shared_text_id)
		VALUES (?, ?)`, instanceID, textID)
	return err
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
