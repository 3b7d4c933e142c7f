package store

import "fmt"

// migrate creates all tables if they don't exist and seeds metadata.
// All statements are idempotent; reopening an existing workspace is a no-op.
func (s *Store) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS characters (
			id                     TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			is_protagonist         INTEGER NOT NULL DEFAULT 0,
			status                 TEXT,
			personality            TEXT,
			description            TEXT,
			cultivation_stage      TEXT,
			first_appeared_chapter INTEGER NOT NULL DEFAULT 0,
			created_at             DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at             DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_characters_name ON characters(lower(name))`,

		// Relationships are deduplicated by (owner, target display name);
		// renames can leave stale edges under the old name.
		`CREATE TABLE IF NOT EXISTS relationships (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id    TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			target_id   TEXT,
			type        TEXT NOT NULL,
			target_name TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_relationships_owner_target
			ON relationships(owner_id, lower(target_name))`,

		`CREATE TABLE IF NOT EXISTS chapters (
			id         TEXT PRIMARY KEY,
			number     INTEGER NOT NULL UNIQUE,
			title      TEXT,
			content    TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS scenes (
			id         TEXT PRIMARY KEY,
			chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
			number     INTEGER NOT NULL DEFAULT 0,
			title      TEXT,
			content    TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL DEFAULT '',
			excerpt    TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scenes_chapter ON scenes(chapter_id)`,

		`CREATE TABLE IF NOT EXISTS arcs (
			id                 TEXT PRIMARY KEY,
			title              TEXT NOT NULL,
			status             TEXT NOT NULL DEFAULT 'active',
			started_at_chapter INTEGER NOT NULL DEFAULT 0,
			ended_at_chapter   INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS items (
			id                     TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			category               TEXT,
			description            TEXT,
			owner_character_id     TEXT,
			first_appeared_chapter INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_name ON items(lower(name))`,

		`CREATE TABLE IF NOT EXISTS techniques (
			id                     TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			category               TEXT,
			description            TEXT,
			first_appeared_chapter INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_techniques_name ON techniques(lower(name))`,

		`CREATE TABLE IF NOT EXISTS antagonists (
			id                     TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			type                   TEXT,
			threat_level           TEXT,
			status                 TEXT,
			description            TEXT,
			first_appeared_chapter INTEGER NOT NULL DEFAULT 0,
			last_appeared_chapter  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_antagonists_name ON antagonists(lower(name))`,

		`CREATE TABLE IF NOT EXISTS world_entries (
			id       TEXT PRIMARY KEY,
			title    TEXT NOT NULL,
			category TEXT,
			content  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_world_entries_title ON world_entries(lower(title))`,

		// Arc membership for characters, antagonists, items, and techniques.
		`CREATE TABLE IF NOT EXISTS arc_links (
			arc_id      TEXT NOT NULL REFERENCES arcs(id) ON DELETE CASCADE,
			entity_type TEXT NOT NULL CHECK(entity_type IN ('character','antagonist','item','technique')),
			entity_id   TEXT NOT NULL,
			UNIQUE(arc_id, entity_type, entity_id)
		)`,

		// Who holds which item, who practices which technique.
		`CREATE TABLE IF NOT EXISTS possessions (
			character_id TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			item_id      TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			UNIQUE(character_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS masteries (
			character_id TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			technique_id TEXT NOT NULL REFERENCES techniques(id) ON DELETE CASCADE,
			UNIQUE(character_id, technique_id)
		)`,

		// Append-only audit of engine runs (trust, transition, gaps).
		`CREATE TABLE IF NOT EXISTS analysis_log (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			kind           TEXT NOT NULL CHECK(kind IN ('trust','transition','gaps','connections')),
			chapter_number INTEGER NOT NULL DEFAULT 0,
			score          INTEGER NOT NULL DEFAULT 0,
			payload        TEXT NOT NULL DEFAULT '{}',
			created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_log_kind ON analysis_log(kind, created_at)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', '1')`,
	); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}
	return nil
}
