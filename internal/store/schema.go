package store

// Schema v1 - library records keyed by catalog id
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per title the user added. Rows with no status are never stored:
-- a title that is not in the library only exists in memory.
CREATE TABLE IF NOT EXISTS library (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  title_key TEXT NOT NULL,
  overview TEXT NOT NULL DEFAULT '',
  poster_path TEXT NOT NULL DEFAULT '',
  backdrop_path TEXT NOT NULL DEFAULT '',
  release_date TEXT NOT NULL DEFAULT '',
  vote_average REAL NOT NULL DEFAULT 0,
  genres_json TEXT NOT NULL DEFAULT '[]',
  media_type TEXT NOT NULL CHECK (media_type IN ('movie', 'series')),
  status TEXT NOT NULL CHECK (status IN ('planned', 'watched')),
  user_rating INTEGER CHECK (user_rating IS NULL OR user_rating BETWEEN 1 AND 5),
  added_at INTEGER NOT NULL,   -- unix milliseconds
  updated_at INTEGER NOT NULL, -- unix milliseconds
  CHECK (status = 'watched' OR user_rating IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_library_status ON library(status);
CREATE INDEX IF NOT EXISTS idx_library_title_key ON library(title_key);
`

// Schema v2 - list ordering index and resumable batch enrichment
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_library_status_title ON library(status, title_key);
CREATE INDEX IF NOT EXISTS idx_library_media_type ON library(media_type);

-- Single-row progress of an interrupted "mcl enrich" run
CREATE TABLE IF NOT EXISTS enrich_progress (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  last_processed_id INTEGER NOT NULL DEFAULT 0,
  total_records INTEGER NOT NULL DEFAULT 0,
  records_processed INTEGER NOT NULL DEFAULT 0,
  records_failed INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`
