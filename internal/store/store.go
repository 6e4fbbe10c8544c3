package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookup methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store handles access to a tracenav results database. The explorer only
// reads; writes happen through Batch, used by the ingest pipeline.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) a results database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Session starts a scoped read transaction. Callers must Close it on every
// exit path; Close rolls back, which is always correct for reads.
func (s *Store) Session() (*Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Session is a scoped read transaction over the results database.
type Session struct {
	tx *sql.Tx
}

// Close releases the session's transaction.
func (se *Session) Close() error {
	err := se.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Run looks up a run by id.
func (se *Session) Run(id RunID) (*Run, error) {
	row := se.tx.QueryRow("SELECT id, date, status FROM runs WHERE id = ?", id)
	return scanRun(row)
}

// LatestFinishedRun returns the finished run with the highest id, or
// ErrNotFound when no finished run exists.
func (se *Session) LatestFinishedRun() (*Run, error) {
	row := se.tx.QueryRow(
		"SELECT id, date, status FROM runs WHERE status = ? ORDER BY id DESC LIMIT 1",
		RunFinished)
	return scanRun(row)
}

// FinishedRuns lists all finished runs in id order.
func (se *Session) FinishedRuns() ([]Run, error) {
	rows, err := se.tx.Query(
		"SELECT id, date, status FROM runs WHERE status = ? ORDER BY id", RunFinished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var date string
		if err := rows.Scan(&r.ID, &date, &r.Status); err != nil {
			return nil, err
		}
		r.Date, _ = time.Parse(time.RFC3339, date)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Instance looks up an issue instance by id.
func (se *Session) Instance(id InstanceID) (*IssueInstance, error) {
	row := se.tx.QueryRow(`
		SELECT id, run_id, issue_id, COALESCE(message_id, 0), filename, line, start_col, end_col
		FROM issue_instances WHERE id = ?`, id)

	var inst IssueInstance
	err := row.Scan(&inst.ID, &inst.RunID, &inst.IssueID, &inst.MessageID,
		&inst.Filename, &inst.Location.Line, &inst.Location.Start, &inst.Location.End)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// InstanceRowByID returns one instance joined with its issue and message.
func (se *Session) InstanceRowByID(id InstanceID) (*InstanceRow, error) {
	rows, err := se.instanceRows("ii.id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Instances lists the instances of a run joined with their issues, narrowed
// by the filter, in instance-id order.
func (se *Session) Instances(runID RunID, filter IssueFilter) ([]InstanceRow, error) {
	where := []string{"ii.run_id = ?"}
	args := []any{runID}

	if len(filter.Codes) > 0 {
		ph := strings.Repeat("?,", len(filter.Codes))
		where = append(where, "i.code IN ("+ph[:len(ph)-1]+")")
		for _, c := range filter.Codes {
			args = append(args, c)
		}
	}
	if len(filter.Callables) > 0 {
		likes := make([]string, len(filter.Callables))
		for j, p := range filter.Callables {
			likes[j] = "i.callable LIKE ?"
			args = append(args, p)
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}
	if len(filter.Filenames) > 0 {
		likes := make([]string, len(filter.Filenames))
		for j, p := range filter.Filenames {
			likes[j] = "i.filename LIKE ?"
			args = append(args, p)
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}

	return se.instanceRows(strings.Join(where, " AND "), args)
}

func (se *Session) instanceRows(where string, args []any) ([]InstanceRow, error) {
	rows, err := se.tx.Query(`
		SELECT ii.id, ii.run_id, ii.issue_id, COALESCE(ii.message_id, 0),
		       ii.filename, ii.line, ii.start_col, ii.end_col,
		       i.id, i.handle, i.first_seen, i.code, i.callable, COALESCE(i.filename, ''),
		       COALESCE(st.contents, '')
		FROM issue_instances ii
		JOIN issues i ON i.id = ii.issue_id
		LEFT JOIN shared_texts st ON st.id = ii.message_id
		WHERE `+where+`
		ORDER BY ii.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InstanceRow
	for rows.Next() {
		var r InstanceRow
		var firstSeen string
		err := rows.Scan(
			&r.Instance.ID, &r.Instance.RunID, &r.Instance.IssueID, &r.Instance.MessageID,
			&r.Instance.Filename, &r.Instance.Location.Line, &r.Instance.Location.Start,
			&r.Instance.Location.End,
			&r.Issue.ID, &r.Issue.Handle, &firstSeen, &r.Issue.Code, &r.Issue.Callable,
			&r.Issue.Filename,
			&r.Message)
		if err != nil {
			return nil, err
		}
		r.Issue.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		result = append(result, r)
	}
	return result, rows.Err()
}

// InstanceLeaves returns the contents of the instance's directly associated
// shared texts of the given kind (its known sources or sinks).
func (se *Session) InstanceLeaves(id InstanceID, kind TextKind) ([]string, error) {
	rows, err := se.tx.Query(`
		SELECT st.contents
		FROM issue_instance_shared_text_assoc a
		JOIN shared_texts st ON st.id = a.shared_text_id
		WHERE a.issue_instance_id = ? AND st.kind = ?
		ORDER BY st.id`, id, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leaves []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		leaves = append(leaves, c)
	}
	return leaves, rows.Err()
}

// EntryFrames returns the instance's entry frames of the given kind, ordered
// by frame id.
func (se *Session) EntryFrames(id InstanceID, kind FrameKind) ([]TraceFrame, error) {
	return se.frames(`
		SELECT f.id, f.kind, f.caller, f.caller_port, f.callee, f.callee_port,
		       f.filename, f.line, f.start_col, f.end_col, f.run_id
		FROM issue_instance_trace_frame_assoc a
		JOIN trace_frames f ON f.id = a.trace_frame_id
		WHERE a.issue_instance_id = ? AND f.kind = ?
		ORDER BY f.id`, id, kind)
}

// CalleeFrames returns the frames of a run that continue a call edge: same
// kind, caller matching the given callee/port pair. Ordered by frame id.
func (se *Session) CalleeFrames(runID RunID, kind FrameKind, caller, callerPort string) ([]TraceFrame, error) {
	return se.frames(`
		SELECT id, kind, caller, caller_port, callee, callee_port,
		       filename, line, start_col, end_col, run_id
		FROM trace_frames
		WHERE run_id = ? AND kind = ? AND caller = ? AND caller_port = ?
		ORDER BY id`, runID, kind, caller, callerPort)
}

func (se *Session) frames(query string, args ...any) ([]TraceFrame, error) {
	rows, err := se.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []TraceFrame
	for rows.Next() {
		var f TraceFrame
		err := rows.Scan(&f.ID, &f.Kind, &f.Caller, &f.CallerPort, &f.Callee, &f.CalleePort,
			&f.Filename, &f.CalleeLocation.Line, &f.CalleeLocation.Start,
			&f.CalleeLocation.End, &f.RunID)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// FrameLeaves returns the leaf associations of one frame, ordered by leaf id.
func (se *Session) FrameLeaves(id FrameID) ([]LeafHop, error) {
	hops, err := se.FrameLeavesBatch([]FrameID{id})
	if err != nil {
		return nil, err
	}
	return hops[id], nil
}

// FrameLeavesBatch returns the leaf associations of a set of frames in one
// query, keyed by frame id. One call per traversal step keeps adjacency
// expansion free of per-candidate lookups.
func (se *Session) FrameLeavesBatch(ids []FrameID) (map[FrameID][]LeafHop, error) {
	result := make(map[FrameID][]LeafHop, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ph := strings.Repeat("?,", len(ids))
	args := make([]any, len(ids))
	for j, id := range ids {
		args[j] = id
	}

	rows, err := se.tx.Query(`
		SELECT a.trace_frame_id, a.leaf_id, st.contents, st.kind,
		       COALESCE(a.trace_length, `+strconv.Itoa(TraceLengthUnknown)+`)
		FROM trace_frame_leaf_assoc a
		JOIN shared_texts st ON st.id = a.leaf_id
		WHERE a.trace_frame_id IN (`+ph[:len(ph)-1]+`)
		ORDER BY a.trace_frame_id, a.leaf_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h LeafHop
		if err := rows.Scan(&h.FrameID, &h.LeafID, &h.Contents, &h.Kind, &h.TraceLength); err != nil {
			return nil, err
		}
		result[h.FrameID] = append(result[h.FrameID], h)
	}
	return result, rows.Err()
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	var date string
	err := row.Scan(&r.ID, &date, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Date, _ = time.Parse(time.RFC3339, date)
	return &r, nil
}
