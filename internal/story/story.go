// Package story defines the in-memory novel state the consistency engine
// operates on.
//
// A NovelState is a read-only snapshot assembled by the caller (usually from
// the store). The analysis packages never mutate a snapshot; everything they
// produce is a newly allocated value.
package story

import (
	"sort"
	"strings"
)

// ArcStatusActive marks the arc the engine treats as current.
const ArcStatusActive = "active"

// Relationship links a character to another character by display name.
// Dedup checks compare TargetName, not CharacterID, so a renamed character
// can accumulate a second edge under the new name.
type Relationship struct {
	CharacterID string `json:"character_id"`
	Type        string `json:"type"`
	TargetName  string `json:"target_name"`
}

// Character is a named cast member.
type Character struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	IsProtagonist        bool           `json:"is_protagonist"`
	Status               string         `json:"status,omitempty"`
	Personality          string         `json:"personality,omitempty"`
	Description          string         `json:"description,omitempty"`
	CultivationStage     string         `json:"cultivation_stage,omitempty"`
	Relationships        []Relationship `json:"relationships,omitempty"`
	Possessions          []string       `json:"possessions,omitempty"`          // item IDs
	MasteredTechniques   []string       `json:"mastered_techniques,omitempty"`  // technique IDs
	ArcAssociations      []string       `json:"arc_associations,omitempty"`     // arc IDs
	FirstAppearedChapter int            `json:"first_appeared_chapter,omitempty"`
}

// HasRelationshipWith reports whether the character already records a
// relationship toward the given display name (case-insensitive).
func (c *Character) HasRelationshipWith(targetName string) bool {
	want := strings.ToLower(strings.TrimSpace(targetName))
	for _, r := range c.Relationships {
		if strings.ToLower(strings.TrimSpace(r.TargetName)) == want {
			return true
		}
	}
	return false
}

// Antagonist is an opposing force, tracked separately from the cast.
type Antagonist struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type,omitempty"`         // individual, sect, beast, ...
	ThreatLevel          string   `json:"threat_level,omitempty"` // minor, major, arc-defining
	Status               string   `json:"status,omitempty"`
	Description          string   `json:"description,omitempty"`
	FirstAppearedChapter int      `json:"first_appeared_chapter,omitempty"`
	LastAppearedChapter  int      `json:"last_appeared_chapter,omitempty"`
	ArcAssociations      []string `json:"arc_associations,omitempty"`
}

// AssociatedWithArc reports whether the antagonist is already linked to the arc.
func (a *Antagonist) AssociatedWithArc(arcID string) bool {
	for _, id := range a.ArcAssociations {
		if id == arcID {
			return true
		}
	}
	return false
}

// Item is a significant object (treasure, weapon, pill, ...).
type Item struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Category             string `json:"category,omitempty"`
	Description          string `json:"description,omitempty"`
	OwnerCharacterID     string `json:"owner_character_id,omitempty"`
	FirstAppearedChapter int    `json:"first_appeared_chapter,omitempty"`
}

// Technique is a learnable ability or cultivation method.
type Technique struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Category             string `json:"category,omitempty"`
	Description          string `json:"description,omitempty"`
	FirstAppearedChapter int    `json:"first_appeared_chapter,omitempty"`
}

// WorldEntry is a world-bible record (location, faction, law of the world).
type WorldEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Arc is a plot arc spanning a chapter range.
type Arc struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	StartedAtChapter int    `json:"started_at_chapter"`
	EndedAtChapter   int    `json:"ended_at_chapter,omitempty"` // 0 = still open
}

// Contains reports whether the chapter number falls inside the arc's span.
func (a *Arc) Contains(chapterNumber int) bool {
	if chapterNumber < a.StartedAtChapter {
		return false
	}
	return a.EndedAtChapter == 0 || chapterNumber <= a.EndedAtChapter
}

// Scene is a sub-unit of a chapter.
type Scene struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Number  int    `json:"number,omitempty"`
	Content string `json:"content,omitempty"`
	Summary string `json:"summary,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Text returns the matchable text of the scene: content when present,
// otherwise summary.
func (s *Scene) Text() string {
	if strings.TrimSpace(s.Content) != "" {
		return s.Content
	}
	return s.Summary
}

// Chapter is one generated chapter. Matching always re-reads Content;
// there is no cached index.
type Chapter struct {
	ID      string  `json:"id"`
	Number  int     `json:"number"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Summary string  `json:"summary,omitempty"`
	Scenes  []Scene `json:"scenes,omitempty"`
}

// Text returns content and summary joined for name matching.
func (c *Chapter) Text() string {
	if c.Summary == "" {
		return c.Content
	}
	if c.Content == "" {
		return c.Summary
	}
	return c.Content + "\n" + c.Summary
}

// NovelState is the full snapshot the engine analyzes.
type NovelState struct {
	Characters   []Character  `json:"characters"`
	Chapters     []Chapter    `json:"chapters"`
	PlotLedger   []Arc        `json:"plot_ledger"`
	Items        []Item       `json:"items"`
	Techniques   []Technique  `json:"techniques"`
	Antagonists  []Antagonist `json:"antagonists"`
	WorldEntries []WorldEntry `json:"world_entries"`
}

// ActiveArc returns the first arc with active status, or nil.
// At most one active arc is expected; ties resolve to slice order.
func (s *NovelState) ActiveArc() *Arc {
	for i := range s.PlotLedger {
		if s.PlotLedger[i].Status == ArcStatusActive {
			return &s.PlotLedger[i]
		}
	}
	return nil
}

// Protagonist returns the first character flagged as protagonist, or nil.
func (s *NovelState) Protagonist() *Character {
	for i := range s.Characters {
		if s.Characters[i].IsProtagonist {
			return &s.Characters[i]
		}
	}
	return nil
}

// RecentChapters returns up to n chapters sorted by descending number.
// The snapshot's own slice is left untouched.
func (s *NovelState) RecentChapters(n int) []Chapter {
	out := make([]Chapter, len(s.Chapters))
	copy(out, s.Chapters)
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ChaptersInRange returns chapters with from <= number <= to, in snapshot order.
func (s *NovelState) ChaptersInRange(from, to int) []Chapter {
	var out []Chapter
	for _, ch := range s.Chapters {
		if ch.Number >= from && ch.Number <= to {
			out = append(out, ch)
		}
	}
	return out
}

// CharacterByName returns the character whose name equals the given one
// after lowercasing and trimming, or nil.
func (s *NovelState) CharacterByName(name string) *Character {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}
	for i := range s.Characters {
		if strings.ToLower(strings.TrimSpace(s.Characters[i].Name)) == want {
			return &s.Characters[i]
		}
	}
	return nil
}
