package store

// schema contains the SQL statements to create the tracenav database schema.
// The tables mirror what the upstream analysis pipeline emits; the explorer
// only ever reads them.
const schema = `
-- Analysis runs
CREATE TABLE IF NOT EXISTS runs (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    date   TEXT NOT NULL,
    status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

-- Deduplicated findings; identity spans runs via handle
CREATE TABLE IF NOT EXISTS issues (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    handle     TEXT NOT NULL UNIQUE,
    first_seen TEXT NOT NULL,
    code       INTEGER NOT NULL,
    callable   TEXT NOT NULL,
    filename   TEXT
);

CREATE INDEX IF NOT EXISTS idx_issues_code ON issues(code);
CREATE INDEX IF NOT EXISTS idx_issues_callable ON issues(callable);

-- One occurrence of an issue within one run
CREATE TABLE IF NOT EXISTS issue_instances (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     INTEGER NOT NULL,
    issue_id   INTEGER NOT NULL,
    message_id INTEGER,
    filename   TEXT NOT NULL,
    line       INTEGER NOT NULL,
    start_col  INTEGER NOT NULL,
    end_col    INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(id),
    FOREIGN KEY (issue_id) REFERENCES issues(id)
);

CREATE INDEX IF NOT EXISTS idx_instances_run ON issue_instances(run_id);
CREATE INDEX IF NOT EXISTS idx_instances_issue ON issue_instances(issue_id);

-- Interned strings: messages, source names, sink names, features
CREATE TABLE IF NOT EXISTS shared_texts (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    contents TEXT NOT NULL,
    kind     TEXT NOT NULL,
    UNIQUE (contents, kind)
);

CREATE INDEX IF NOT EXISTS idx_shared_texts_kind ON shared_texts(kind);

-- One edge of the data-flow call graph
CREATE TABLE IF NOT EXISTS trace_frames (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT NOT NULL,
    caller      TEXT NOT NULL,
    caller_port TEXT NOT NULL,
    callee      TEXT NOT NULL,
    callee_port TEXT NOT NULL,
    filename    TEXT NOT NULL,
    line        INTEGER NOT NULL,
    start_col   INTEGER NOT NULL,
    end_col     INTEGER NOT NULL DEFAULT 0,
    run_id      INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

-- Adjacency lookups during trace walks are keyed on this index
CREATE INDEX IF NOT EXISTS idx_frames_adjacency
    ON trace_frames(run_id, kind, caller, caller_port);

-- "This frame can reach this leaf in trace_length more hops"
CREATE TABLE IF NOT EXISTS trace_frame_leaf_assoc (
    trace_frame_id INTEGER NOT NULL,
    leaf_id        INTEGER NOT NULL,
    trace_length   INTEGER,
    PRIMARY KEY (trace_frame_id, leaf_id),
    FOREIGN KEY (trace_frame_id) REFERENCES trace_frames(id),
    FOREIGN KEY (leaf_id) REFERENCES shared_texts(id)
);

CREATE INDEX IF NOT EXISTS idx_leaf_assoc_leaf ON trace_frame_leaf_assoc(leaf_id);

-- An instance's entry frames
CREATE TABLE IF NOT EXISTS issue_instance_trace_frame_assoc (
    issue_instance_id INTEGER NOT NULL,
    trace_frame_id    INTEGER NOT NULL,
    PRIMARY KEY (issue_instance_id, trace_frame_id),
    FOREIGN KEY (issue_instance_id) REFERENCES issue_instances(id),
    FOREIGN KEY (trace_frame_id) REFERENCES trace_frames(id)
);

-- An instance's directly known leaves
CREATE TABLE IF NOT EXISTS issue_instance_shared_text_assoc (
    issue_instance_id INTEGER NOT NULL,
    shared_text_id    INTEGER NOT NULL,
    PRIMARY KEY (issue_instance_id, shared_text_id),
    FOREIGN KEY (issue_instance_id) REFERENCES issue_instances(id),
    FOREIGN KEY (shared_text_id) REFERENCES shared_texts(id)
);
`
