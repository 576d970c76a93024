package store

// Schema creates the tree index table and the local graph tables.
const Schema = `
CREATE TABLE IF NOT EXISTS tree_indexes (
    id           TEXT PRIMARY KEY,
    document_id  TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL DEFAULT '',
    tree_json    TEXT NOT NULL,
    full_content TEXT NOT NULL,
    node_count   INTEGER NOT NULL DEFAULT 0,
    model        TEXT NOT NULL DEFAULT '',
    provider     TEXT NOT NULL DEFAULT '',
    method       TEXT NOT NULL DEFAULT ''
                 CHECK(method IN ('', 'headers', 'synthesized')),
    content_hash TEXT NOT NULL,
    version      INTEGER NOT NULL DEFAULT 1,
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tree_indexes_hash ON tree_indexes(content_hash);

CREATE TABLE IF NOT EXISTS graph_nodes (
    id          TEXT PRIMARY KEY,
    label       TEXT NOT NULL,
    document_id TEXT NOT NULL DEFAULT '',
    properties  TEXT NOT NULL DEFAULT '{}',
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_graph_nodes_doc ON graph_nodes(document_id);

CREATE TABLE IF NOT EXISTS graph_edges (
    from_id     TEXT NOT NULL,
    to_id       TEXT NOT NULL,
    edge_type   TEXT NOT NULL,
    properties  TEXT NOT NULL DEFAULT '{}',
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (from_id, to_id, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_to ON graph_edges(to_id);
`
