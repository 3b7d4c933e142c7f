package store

import (
	"context"
	"fmt"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// Snapshot loads the entire workspace into an in-memory NovelState for the
// analysis packages. The returned snapshot is owned by the caller; the
// engine never writes back through it.
func (s *Store) Snapshot(ctx context.Context) (*story.NovelState, error) {
	state := &story.NovelState{}

	chars, err := s.loadCharacters(ctx)
	if err != nil {
		return nil, err
	}
	state.Characters = chars

	if state.Chapters, err = s.loadChapters(ctx); err != nil {
		return nil, err
	}
	if state.PlotLedger, err = s.loadArcs(ctx); err != nil {
		return nil, err
	}
	if state.Items, err = s.loadItems(ctx); err != nil {
		return nil, err
	}
	if state.Techniques, err = s.loadTechniques(ctx); err != nil {
		return nil, err
	}
	if state.Antagonists, err = s.loadAntagonists(ctx); err != nil {
		return nil, err
	}
	if state.WorldEntries, err = s.loadWorldEntries(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) loadCharacters(ctx context.Context) ([]story.Character, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_protagonist, COALESCE(status,''), COALESCE(personality,''),
		       COALESCE(description,''), COALESCE(cultivation_stage,''), first_appeared_chapter
		FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}
	defer rows.Close()

	var out []story.Character
	index := map[string]int{}
	for rows.Next() {
		var c story.Character
		var prot int
		if err := rows.Scan(&c.ID, &c.Name, &prot, &c.Status, &c.Personality,
			&c.Description, &c.CultivationStage, &c.FirstAppearedChapter); err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		c.IsProtagonist = prot != 0
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating characters: %w", err)
	}

	if err := s.attachRelationships(ctx, out, index); err != nil {
		return nil, err
	}
	if err := s.attachLinks(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) attachRelationships(ctx context.Context, chars []story.Character, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, COALESCE(target_id,''), type, target_name FROM relationships`)
	if err != nil {
		return fmt.Errorf("loading relationships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ownerID string
		var rel story.Relationship
		if err := rows.Scan(&ownerID, &rel.CharacterID, &rel.Type, &rel.TargetName); err != nil {
			return fmt.Errorf("scanning relationship: %w", err)
		}
		if i, ok := index[ownerID]; ok {
			chars[i].Relationships = append(chars[i].Relationships, rel)
		}
	}
	return rows.Err()
}

// attachLinks fills arc associations, possessions, and masteries.
func (s *Store) attachLinks(ctx context.Context, chars []story.Character, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, arc_id FROM arc_links WHERE entity_type = 'character'`)
	if err != nil {
		return fmt.Errorf("loading character arc links: %w", err)
	}
	for rows.Next() {
		var entityID, arcID string
		if err := rows.Scan(&entityID, &arcID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning arc link: %w", err)
		}
		if i, ok := index[entityID]; ok {
			chars[i].ArcAssociations = append(chars[i].ArcAssociations, arcID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT character_id, item_id FROM possessions`)
	if err != nil {
		return fmt.Errorf("loading possessions: %w", err)
	}
	for rows.Next() {
		var charID, itemID string
		if err := rows.Scan(&charID, &itemID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning possession: %w", err)
		}
		if i, ok := index[charID]; ok {
			chars[i].Possessions = append(chars[i].Possessions, itemID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT character_id, technique_id FROM masteries`)
	if err != nil {
		return fmt.Errorf("loading masteries: %w", err)
	}
	for rows.Next() {
		var charID, techID string
		if err := rows.Scan(&charID, &techID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning mastery: %w", err)
		}
		if i, ok := index[charID]; ok {
			chars[i].MasteredTechniques = append(chars[i].MasteredTechniques, techID)
		}
	}
	rows.Close()
	return rows.Err()
}

func (s *Store) loadChapters(ctx context.Context) ([]story.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, COALESCE(title,''), content, summary
		FROM chapters ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("loading chapters: %w", err)
	}
	defer rows.Close()

	var out []story.Chapter
	index := map[string]int{}
	for rows.Next() {
		var ch story.Chapter
		if err := rows.Scan(&ch.ID, &ch.Number, &ch.Title, &ch.Content, &ch.Summary); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		index[ch.ID] = len(out)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chapters: %w", err)
	}

	srows, err := s.db.QueryContext(ctx, `
		SELECT id, chapter_id, number, COALESCE(title,''), content, summary, excerpt
		FROM scenes ORDER BY chapter_id, number`)
	if err != nil {
		return nil, fmt.Errorf("loading scenes: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var sc story.Scene
		var chapterID string
		if err := srows.Scan(&sc.ID, &chapterID, &sc.Number, &sc.Title, &sc.Content, &sc.Summary, &sc.Excerpt); err != nil {
			return nil, fmt.Errorf("scanning scene: %w", err)
		}
		if i, ok := index[chapterID]; ok {
			out[i].Scenes = append(out[i].Scenes, sc)
		}
	}
	return out, srows.Err()
}

func (s *Store) loadArcs(ctx context.Context) ([]story.Arc, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, started_at_chapter, ended_at_chapter
		FROM arcs ORDER BY started_at_chapter`)
	if err != nil {
		return nil, fmt.Errorf("loading arcs: %w", err)
	}
	defer rows.Close()

	var out []story.Arc
	for rows.Next() {
		var a story.Arc
		if err := rows.Scan(&a.ID, &a.Title, &a.Status, &a.StartedAtChapter, &a.EndedAtChapter); err != nil {
			return nil, fmt.Errorf("scanning arc: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) loadItems(ctx context.Context) ([]story.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(category,''), COALESCE(description,''),
		       COALESCE(owner_character_id,''), first_appeared_chapter
		FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	defer rows.Close()

	var out []story.Item
	for rows.Next() {
		var it story.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Description,
			&it.OwnerCharacterID, &it.FirstAppearedChapter); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) loadTechniques(ctx context.Context) ([]story.Technique, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(category,''), COALESCE(description,''), first_appeared_chapter
		FROM techniques ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading techniques: %w", err)
	}
	defer rows.Close()

	var out []story.Technique
	for rows.Next() {
		var t story.Technique
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.FirstAppearedChapter); err != nil {
			return nil, fmt.Errorf("scanning technique: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) loadAntagonists(ctx context.Context) ([]story.Antagonist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(type,''), COALESCE(threat_level,''), COALESCE(status,''),
		       COALESCE(description,''), first_appeared_chapter, last_appeared_chapter
		FROM antagonists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading antagonists: %w", err)
	}
	defer rows.Close()

	var out []story.Antagonist
	index := map[string]int{}
	for rows.Next() {
		var a story.Antagonist
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.ThreatLevel, &a.Status,
			&a.Description, &a.FirstAppearedChapter, &a.LastAppearedChapter); err != nil {
			return nil, fmt.Errorf("scanning antagonist: %w", err)
		}
		index[a.ID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lrows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, arc_id FROM arc_links WHERE entity_type = 'antagonist'`)
	if err != nil {
		return nil, fmt.Errorf("loading antagonist arc links: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var entityID, arcID string
		if err := lrows.Scan(&entityID, &arcID); err != nil {
			return nil, fmt.Errorf("scanning antagonist arc link: %w", err)
		}
		if i, ok := index[entityID]; ok {
			out[i].ArcAssociations = append(out[i].ArcAssociations, arcID)
		}
	}
	return out, lrows.Err()
}

func (s *Store) loadWorldEntries(ctx context.Context) ([]story.WorldEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(category,''), content FROM world_entries ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("loading world entries: %w", err)
	}
	defer rows.Close()

	var out []story.WorldEntry
	for rows.Next() {
		var w story.WorldEntry
		if err := rows.Scan(&w.ID, &w.Title, &w.Category, &w.Content); err != nil {
			return nil, fmt.Errorf("scanning world entry: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
