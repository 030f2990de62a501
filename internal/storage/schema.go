package storage

// PostgresSchema creates the evidence, link and hit tables. Hit profiles
// need the pgvector extension.
const PostgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS evidence (
    seq              BIGSERIAL PRIMARY KEY,
    id               UUID NOT NULL UNIQUE,
    participant_a    TEXT NOT NULL,
    participant_b    TEXT NOT NULL,
    publication      TEXT NOT NULL DEFAULT '',
    source           TEXT NOT NULL DEFAULT '',
    detection_method TEXT NOT NULL DEFAULT '',
    line             TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evidence_pair ON evidence(participant_a, participant_b);

CREATE TABLE IF NOT EXISTS links (
    id          UUID PRIMARY KEY,
    query_low   TEXT NOT NULL,
    query_high  TEXT NOT NULL,
    created_by  TEXT NOT NULL DEFAULT '',
    snapshot    JSONB NOT NULL,
    rows        JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS homology_hits (
    link_id   UUID NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    side      TEXT NOT NULL CHECK(side IN ('low', 'high')),
    template  TEXT NOT NULL,
    profile   vector(4) NOT NULL,
    PRIMARY KEY (link_id, row_index, side)
);
`

// SQLiteSchema is the local equivalent of PostgresSchema. Profiles are
// stored as JSON arrays.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS evidence (
    seq              INTEGER PRIMARY KEY AUTOINCREMENT,
    id               TEXT NOT NULL UNIQUE,
    participant_a    TEXT NOT NULL,
    participant_b    TEXT NOT NULL,
    publication      TEXT NOT NULL DEFAULT '',
    source           TEXT NOT NULL DEFAULT '',
    detection_method TEXT NOT NULL DEFAULT '',
    line             TEXT NOT NULL,
    created_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evidence_pair ON evidence(participant_a, participant_b);

CREATE TABLE IF NOT EXISTS links (
    id          TEXT PRIMARY KEY,
    query_low   TEXT NOT NULL,
    query_high  TEXT NOT NULL,
    created_by  TEXT NOT NULL DEFAULT '',
    snapshot    TEXT NOT NULL,
    rows        TEXT NOT NULL DEFAULT '[]',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS homology_hits (
    link_id   TEXT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    side      TEXT NOT NULL CHECK(side IN ('low', 'high')),
    template  TEXT NOT NULL,
    profile   TEXT NOT NULL,
    PRIMARY KEY (link_id, row_index, side)
);
`
