package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// UpsertCharacter inserts or updates a character by name. Missing IDs are
// generated. The character's ID field is filled in on return.
func (s *Store) UpsertCharacter(ctx context.Context, c *story.Character) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("character name is empty")
	}
	if c.ID == "" {
		if existing, err := s.lookupID(ctx, "characters", "name", c.Name); err != nil {
			return err
		} else if existing != "" {
			c.ID = existing
		} else {
			c.ID = uuid.NewString()
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO characters (id, name, is_protagonist, status, personality, description, cultivation_stage, first_appeared_chapter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_protagonist = excluded.is_protagonist,
			status = excluded.status,
			personality = excluded.personality,
			description = excluded.description,
			cultivation_stage = excluded.cultivation_stage,
			first_appeared_chapter = excluded.first_appeared_chapter,
			updated_at = CURRENT_TIMESTAMP`,
		c.ID, c.Name, boolInt(c.IsProtagonist), c.Status, c.Personality, c.Description,
		c.CultivationStage, c.FirstAppearedChapter)
	if err != nil {
		return fmt.Errorf("upserting character %q: %w", c.Name, err)
	}
	return nil
}

// AddRelationship records a relationship edge on the owner character.
// Duplicate (owner, target name) pairs are ignored.
func (s *Store) AddRelationship(ctx context.Context, ownerID string, rel story.Relationship) error {
	if strings.TrimSpace(rel.TargetName) == "" {
		return fmt.Errorf("relationship target name is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO relationships (owner_id, target_id, type, target_name)
		VALUES (?, ?, ?, ?)`,
		ownerID, rel.CharacterID, rel.Type, rel.TargetName)
	if err != nil {
		return fmt.Errorf("adding relationship %s -> %q: %w", ownerID, rel.TargetName, err)
	}
	return nil
}

// UpsertChapter inserts or updates a chapter by number; scenes are replaced
// wholesale.
func (s *Store) UpsertChapter(ctx context.Context, ch *story.Chapter) error {
	if ch.Number <= 0 {
		return fmt.Errorf("chapter number must be positive, got %d", ch.Number)
	}
	if ch.ID == "" {
		var existing string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM chapters WHERE number = ?`, ch.Number).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			ch.ID = uuid.NewString()
		case err != nil:
			return fmt.Errorf("looking up chapter %d: %w", ch.Number, err)
		default:
			ch.ID = existing
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chapter upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chapters (id, number, title, content, summary)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			title = excluded.title,
			content = excluded.content,
			summary = excluded.summary,
			updated_at = CURRENT_TIMESTAMP`,
		ch.ID, ch.Number, ch.Title, ch.Content, ch.Summary); err != nil {
		return fmt.Errorf("upserting chapter %d: %w", ch.Number, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE chapter_id = ?`, ch.ID); err != nil {
		return fmt.Errorf("clearing scenes for chapter %d: %w", ch.Number, err)
	}
	for i := range ch.Scenes {
		sc := &ch.Scenes[i]
		if sc.ID == "" {
			sc.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (id, chapter_id, number, title, content, summary, excerpt)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, ch.ID, sc.Number, sc.Title, sc.Content, sc.Summary, sc.Excerpt); err != nil {
			return fmt.Errorf("inserting scene %d of chapter %d: %w", i+1, ch.Number, err)
		}
	}

	return tx.Commit()
}

// UpsertArc inserts or updates a plot arc.
func (s *Store) UpsertArc(ctx context.Context, a *story.Arc) error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("arc title is empty")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = story.ArcStatusActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO arcs (id, title, status, started_at_chapter, ended_at_chapter)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			started_at_chapter = excluded.started_at_chapter,
			ended_at_chapter = excluded.ended_at_chapter`,
		a.ID, a.Title, a.Status, a.StartedAtChapter, a.EndedAtChapter)
	if err != nil {
		return fmt.Errorf("upserting arc %q: %w", a.Title, err)
	}
	return nil
}

// UpsertItem inserts or updates an item by name.
func (s *Store) UpsertItem(ctx context.Context, it *story.Item) error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("item name is empty")
	}
	if it.ID == "" {
		if existing, err := s.lookupID(ctx, "items", "name", it.Name); err != nil {
			return err
		} else if existing != "" {
			it.ID = existing
		} else {
			it.ID = uuid.NewString()
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, category, description, owner_character_id, first_appeared_chapter)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			owner_character_id = excluded.owner_character_id,
			first_appeared_chapter = excluded.first_appeared_chapter`,
		it.ID, it.Name, it.Category, it.Description, it.OwnerCharacterID, it.FirstAppearedChapter)
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", it.Name, err)
	}
	return nil
}

// UpsertTechnique inserts or updates a technique by name.
func (s *Store) UpsertTechnique(ctx context.Context, t *story.Technique) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("technique name is empty")
	}
	if t.ID == "" {
		if existing, err := s.lookupID(ctx, "techniques", "name", t.Name); err != nil {
			return err
		} else if existing != "" {
			t.ID = existing
		} else {
			t.ID = uuid.NewString()
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO techniques (id, name, category, description, first_appeared_chapter)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			first_appeared_chapter = excluded.first_appeared_chapter`,
		t.ID, t.Name, t.Category, t.Description, t.FirstAppearedChapter)
	if err != nil {
		return fmt.Errorf("upserting technique %q: %w", t.Name, err)
	}
	return nil
}

// UpsertAntagonist inserts or updates an antagonist by name.
func (s *Store) UpsertAntagonist(ctx context.Context, a *story.Antagonist) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("antagonist name is empty")
	}
	if a.ID == "" {
		if existing, err := s.lookupID(ctx, "antagonists", "name", a.Name); err != nil {
			return err
		} else if existing != "" {
			a.ID = existing
		} else {
			a.ID = uuid.NewString()
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO antagonists (id, name, type, threat_level, status, description, first_appeared_chapter, last_appeared_chapter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			threat_level = excluded.threat_level,
			status = excluded.status,
			description = excluded.description,
			first_appeared_chapter = excluded.first_appeared_chapter,
			last_appeared_chapter = excluded.last_appeared_chapter`,
		a.ID, a.Name, a.Type, a.ThreatLevel, a.Status, a.Description,
		a.FirstAppearedChapter, a.LastAppearedChapter)
	if err != nil {
		return fmt.Errorf("upserting antagonist %q: %w", a.Name, err)
	}
	return nil
}

// UpsertWorldEntry inserts or updates a world-bible entry by title.
func (s *Store) UpsertWorldEntry(ctx context.Context, w *story.WorldEntry) error {
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("world entry title is empty")
	}
	if w.ID == "" {
		if existing, err := s.lookupID(ctx, "world_entries", "title", w.Title); err != nil {
			return err
		} else if existing != "" {
			w.ID = existing
		} else {
			w.ID = uuid.NewString()
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO world_entries (id, title, category, content)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			content = excluded.content`,
		w.ID, w.Title, w.Category, w.Content)
	if err != nil {
		return fmt.Errorf("upserting world entry %q: %w", w.Title, err)
	}
	return nil
}

// LinkArc records arc membership for a character, antagonist, item, or
// technique. Duplicates are ignored.
func (s *Store) LinkArc(ctx context.Context, arcID, entityType, entityID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO arc_links (arc_id, entity_type, entity_id)
		VALUES (?, ?, ?)`, arcID, entityType, entityID)
	if err != nil {
		return fmt.Errorf("linking %s %s to arc %s: %w", entityType, entityID, arcID, err)
	}
	return nil
}

// AddPossession records that a character holds an item.
func (s *Store) AddPossession(ctx context.Context, characterID, itemID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO possessions (character_id, item_id) VALUES (?, ?)`,
		characterID, itemID)
	if err != nil {
		return fmt.Errorf("adding possession: %w", err)
	}
	return nil
}

// AddMastery records that a character practices a technique.
func (s *Store) AddMastery(ctx context.Context, characterID, techniqueID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO masteries (character_id, technique_id) VALUES (?, ?)`,
		characterID, techniqueID)
	if err != nil {
		return fmt.Errorf("adding mastery: %w", err)
	}
	return nil
}

func (s *Store) lookupID(ctx context.Context, table, column, value string) (string, error) {
	var id string
	// table and column are compile-time constants at every call site.
	q := fmt.Sprintf(`SELECT id FROM %s WHERE lower(%s) = lower(?)`, table, column)
	err := s.db.QueryRowContext(ctx, q, strings.TrimSpace(value)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s by %s: %w", table, column, err)
	}
	return id, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
